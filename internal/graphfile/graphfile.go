// Package graphfile loads and saves graphs as YAML documents. It is the
// human-editable counterpart of the binary bundle format and doubles as
// the test-fixture format.
package graphfile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/graphir/internal/ir"
)

// graphDoc mirrors one graph in the YAML document.
type graphDoc struct {
	Graph        string               `yaml:"graph,omitempty"`
	Inputs       []inputDoc           `yaml:"inputs,omitempty"`
	Instructions []instDoc            `yaml:"instructions"`
	Subgraphs    map[string]*graphDoc `yaml:"subgraphs,omitempty"`
	Outputs      []specDoc            `yaml:"outputs,omitempty"`
}

type instDoc struct {
	Name   string   `yaml:"name"`
	Op     string   `yaml:"op"`
	Target string   `yaml:"target,omitempty"`
	Args   []any    `yaml:"args,omitempty"`
	Scope  []any    `yaml:"scope,omitempty"`
	Index  int      `yaml:"index,omitempty"`
	Tuple  bool     `yaml:"tuple,omitempty"`
	Meta   *metaDoc `yaml:"meta,omitempty"`
}

// inputDoc is a graph parameter. A bare string is shorthand for an
// input without metadata.
type inputDoc struct {
	Name string   `yaml:"name"`
	Meta *metaDoc `yaml:"meta,omitempty"`
}

func (d *inputDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&d.Name)
	}
	type plain inputDoc
	return node.Decode((*plain)(d))
}

func (d inputDoc) MarshalYAML() (any, error) {
	if d.Meta == nil {
		return d.Name, nil
	}
	type plain inputDoc
	return plain(d), nil
}

// metaDoc mirrors an instruction's metadata: produced value shapes and
// the scope provenance stack.
type metaDoc struct {
	Val   []valDoc `yaml:"val,omitempty"`
	Scope []string `yaml:"scope,omitempty,flow"`
}

type valDoc struct {
	Dtype string `yaml:"dtype,omitempty"`
	Dims  []int  `yaml:"dims,omitempty,flow"`
}

type specDoc struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value,omitempty"`
}

// Load parses a YAML graph document into a bundle.
func Load(data []byte) (*ir.Bundle, error) {
	var doc graphDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing graph document: %w", err)
	}
	root, err := docToGraph(&doc, doc.Graph)
	if err != nil {
		return nil, err
	}
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("loaded graph is invalid: %w", err)
	}
	bundle := &ir.Bundle{Root: root}
	if len(doc.Outputs) > 0 {
		spec := &ir.OutputSpec{}
		for _, s := range doc.Outputs {
			spec.Entries = append(spec.Entries, ir.OutputEntry{Declared: s.Name, Value: s.Value})
		}
		if err := spec.Validate(root); err != nil {
			return nil, err
		}
		bundle.Spec = spec
	}
	return bundle, nil
}

// LoadFile reads and parses a YAML graph file.
func LoadFile(path string) (*ir.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	bundle, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	bundle.SourceFile = path
	return bundle, nil
}

// Save renders a bundle back to YAML.
func Save(b *ir.Bundle) ([]byte, error) {
	if b.Root == nil {
		return nil, fmt.Errorf("bundle has no root graph")
	}
	doc := graphToDoc(b.Root)
	doc.Graph = b.Root.Name
	if b.Spec != nil {
		for _, e := range b.Spec.Entries {
			doc.Outputs = append(doc.Outputs, specDoc{Name: e.Declared, Value: e.Value})
		}
	}
	return yaml.Marshal(doc)
}

// SaveFile writes a bundle to path as YAML.
func SaveFile(path string, b *ir.Bundle) error {
	data, err := Save(b)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func docToGraph(doc *graphDoc, name string) (*ir.Graph, error) {
	g := ir.NewGraph(name)
	for _, in := range doc.Inputs {
		inst := &ir.Instruction{Name: in.Name, Kind: ir.KindInput, Meta: decodeMeta(in.Meta)}
		if err := g.Append(inst); err != nil {
			return nil, err
		}
	}
	for _, d := range doc.Instructions {
		kind, ok := ir.KindFromString(d.Op)
		if !ok {
			return nil, fmt.Errorf("instruction %q: unknown op %q", d.Name, d.Op)
		}
		inst := &ir.Instruction{
			Name:   d.Name,
			Kind:   kind,
			Target: d.Target,
			Index:  d.Index,
			Tuple:  d.Tuple,
			Meta:   decodeMeta(d.Meta),
		}
		var err error
		if inst.Args, err = decodeArgs(d.Args); err != nil {
			return nil, fmt.Errorf("instruction %q: %w", d.Name, err)
		}
		if inst.ScopeArgs, err = decodeArgs(d.Scope); err != nil {
			return nil, fmt.Errorf("instruction %q scope: %w", d.Name, err)
		}
		if err := g.Append(inst); err != nil {
			return nil, err
		}
	}
	for subName, subDoc := range doc.Subgraphs {
		child, err := docToGraph(subDoc, subName)
		if err != nil {
			return nil, fmt.Errorf("subgraph %s: %w", subName, err)
		}
		g.SetSubgraph(subName, child)
	}
	return g, nil
}

func graphToDoc(g *ir.Graph) *graphDoc {
	doc := &graphDoc{}
	for _, in := range g.Insts {
		if in.Kind == ir.KindInput {
			doc.Inputs = append(doc.Inputs, inputDoc{Name: in.Name, Meta: encodeMeta(in.Meta)})
			continue
		}
		doc.Instructions = append(doc.Instructions, instDoc{
			Name:   in.Name,
			Op:     in.Kind.String(),
			Target: in.Target,
			Args:   encodeArgs(in.Args),
			Scope:  encodeArgs(in.ScopeArgs),
			Index:  in.Index,
			Tuple:  in.Tuple,
			Meta:   encodeMeta(in.Meta),
		})
	}
	for name, child := range g.Subgraphs {
		if doc.Subgraphs == nil {
			doc.Subgraphs = make(map[string]*graphDoc)
		}
		doc.Subgraphs[name] = graphToDoc(child)
	}
	return doc
}

func encodeMeta(m ir.Metadata) *metaDoc {
	if len(m.Val) == 0 && len(m.Scope) == 0 {
		return nil
	}
	doc := &metaDoc{Scope: m.Scope}
	for _, v := range m.Val {
		doc.Val = append(doc.Val, valDoc{Dtype: v.Dtype, Dims: v.Dims})
	}
	return doc
}

func decodeMeta(d *metaDoc) ir.Metadata {
	if d == nil {
		return ir.Metadata{}
	}
	m := ir.Metadata{Scope: append([]string(nil), d.Scope...)}
	for _, v := range d.Val {
		m.Val = append(m.Val, ir.ValueInfo{Dtype: v.Dtype, Dims: append([]int(nil), v.Dims...)})
	}
	return m
}

// decodeArgs converts YAML scalars to arguments. Strings starting with
// "%" reference an instruction; "%%" escapes a literal percent.
func decodeArgs(raw []any) ([]ir.Argument, error) {
	var out []ir.Argument
	for _, r := range raw {
		switch v := r.(type) {
		case nil:
			out = append(out, ir.NilArg())
		case string:
			if strings.HasPrefix(v, "%%") {
				out = append(out, ir.LitArg(ir.StrLit(v[1:])))
			} else if strings.HasPrefix(v, "%") {
				out = append(out, ir.RefArg(v[1:]))
			} else {
				out = append(out, ir.LitArg(ir.StrLit(v)))
			}
		case bool:
			out = append(out, ir.LitArg(ir.BoolLit(v)))
		case int:
			out = append(out, ir.LitArg(ir.IntLit(int64(v))))
		case int64:
			out = append(out, ir.LitArg(ir.IntLit(v)))
		case float64:
			out = append(out, ir.LitArg(ir.FloatLit(v)))
		default:
			return nil, fmt.Errorf("unsupported argument %v (%T)", r, r)
		}
	}
	return out, nil
}

func encodeArgs(args []ir.Argument) []any {
	var out []any
	for _, a := range args {
		if a.IsRef() {
			out = append(out, "%"+a.Ref)
			continue
		}
		switch a.Lit.Kind {
		case ir.LitNil:
			out = append(out, nil)
		case ir.LitFloat:
			out = append(out, a.Lit.Float)
		case ir.LitInt:
			out = append(out, a.Lit.Int)
		case ir.LitString:
			if strings.HasPrefix(a.Lit.Str, "%") {
				out = append(out, "%"+a.Lit.Str)
			} else {
				out = append(out, a.Lit.Str)
			}
		case ir.LitBool:
			out = append(out, a.Lit.Bool)
		}
	}
	return out
}
