package ir

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
)

func init() {
	// Register bundle types for gob serialization
	gob.Register(&Bundle{})
	gob.Register(&Graph{})
	gob.Register(map[string]*Graph{})
}

// Bundle is the serialized-graph container: a root graph with all its
// owned subgraphs, plus the external output naming when one exists.
// This is the on-disk and on-wire format used by the CLI, the rewrite
// cache and the remote rewrite service.
type Bundle struct {
	// Root is the top-level graph (subgraphs travel inside it)
	Root *Graph

	// Spec is the external output naming, nil when the graph has none
	Spec *OutputSpec

	// SourceFile is the original graph file path (for error messages)
	SourceFile string
}

const bundleVersion byte = 0x01

// bundleMagic identifies serialized graph bundles ("GIRB")
var bundleMagic = [4]byte{'G', 'I', 'R', 'B'}

// Serialize converts a Bundle to binary format.
// Format:
// - Magic number (4 bytes): "GIRB"
// - Version (1 byte): 0x01
// - Gob-encoded Bundle data
func (b *Bundle) Serialize() ([]byte, error) {
	if b.Root == nil {
		return nil, fmt.Errorf("bundle has no root graph")
	}
	buf := new(bytes.Buffer)
	buf.Write(bundleMagic[:])
	buf.WriteByte(bundleVersion)

	enc := gob.NewEncoder(buf)
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("bundle gob encoding failed: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeBundle reads serialized bundle data back into a Bundle and
// validates the contained graph.
func DeserializeBundle(data []byte) (*Bundle, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("bundle data too short")
	}
	if !bytes.Equal(data[:4], bundleMagic[:]) {
		return nil, fmt.Errorf("invalid magic number, expected GIRB")
	}
	version := data[4]
	if version != bundleVersion {
		return nil, fmt.Errorf("unsupported bundle version: %d (this binary supports version %d)", version, bundleVersion)
	}

	dec := gob.NewDecoder(bytes.NewReader(data[5:]))
	var bundle Bundle
	if err := dec.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("bundle gob decoding failed: %w", err)
	}
	if bundle.Root == nil {
		return nil, fmt.Errorf("decoded bundle has no root graph")
	}
	if bundle.Root.Subgraphs == nil {
		bundle.Root.Subgraphs = make(map[string]*Graph)
	}
	if err := bundle.Root.Validate(); err != nil {
		return nil, fmt.Errorf("bundle graph validation failed: %w", err)
	}
	return &bundle, nil
}

// Fingerprint returns a content hash of the bundle, used as the
// rewrite-cache key. Gob output depends on map iteration order, so the
// hash is computed over a canonical rendering instead.
func (b *Bundle) Fingerprint() (string, error) {
	if b.Root == nil {
		return "", fmt.Errorf("bundle has no root graph")
	}
	h := sha256.New()
	writeCanonical(h, b.Root)
	if b.Spec != nil {
		for _, e := range b.Spec.Entries {
			fmt.Fprintf(h, "spec %s=%s\n", e.Declared, e.Value)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeCanonical(w io.Writer, g *Graph) {
	fmt.Fprintf(w, "graph %s\n", g.Name)
	for _, in := range g.Insts {
		fmt.Fprintf(w, "%s = %s target=%s index=%d tuple=%t args=", in.Name, in.Kind, in.Target, in.Index, in.Tuple)
		for _, a := range in.Args {
			fmt.Fprintf(w, "%s,", a)
		}
		io.WriteString(w, " scope=")
		for _, a := range in.ScopeArgs {
			fmt.Fprintf(w, "%s,", a)
		}
		io.WriteString(w, "\n")
	}
	names := make([]string, 0, len(g.Subgraphs))
	for name := range g.Subgraphs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writeCanonical(w, g.Subgraphs[name])
	}
}
