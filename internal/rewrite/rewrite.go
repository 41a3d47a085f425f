package rewrite

import (
	"fmt"
	"sort"

	"github.com/funvibe/graphir/internal/ir"
	"github.com/funvibe/graphir/internal/split"
)

// Rewrite runs the scope-outlining pass on g and returns the rewritten
// graph together with the reconciled output specification (nil in, nil
// out). The input graph's own instruction list is never mutated; owned
// subgraphs are rewritten in place and swapped back.
//
// The pass is single-threaded and purely in-memory: it either returns a
// validated graph or fails with one of the package's sentinel errors.
func Rewrite(g *ir.Graph, spec *ir.OutputSpec) (*ir.Graph, *ir.OutputSpec, error) {
	out := g
	newSpec := spec

	if hasMarkers(g) {
		tr := &tracker{}
		segmented, err := split.Split(g, tr.startsNew)
		if tr.err != nil {
			return nil, nil, tr.err
		}
		if err != nil {
			return nil, nil, fmt.Errorf("splitting scope regions: %w", err)
		}
		if len(tr.stack) > 0 {
			return nil, nil, fmt.Errorf("%w: enter %q is never closed", ErrIncompleteScope, tr.stack[0])
		}

		// The splitter renames the values feeding the graph output, so
		// the external naming has to follow.
		if spec != nil {
			newSpec = spec.Clone()
			if err := reconcileSpec(segmented, newSpec); err != nil {
				return nil, nil, err
			}
		}

		// Mutations below are keyed off a snapshot; the live list shifts
		// under outlining and inlining.
		for _, in := range segmented.Snapshot() {
			if in.Kind != ir.KindInvoke {
				continue
			}
			if isScopedBody(segmented, in) {
				if err := replaceWithRegion(segmented, in); err != nil {
					return nil, nil, err
				}
			} else {
				if err := inlineSegment(segmented, in); err != nil {
					return nil, nil, err
				}
			}
		}

		// Outlining renames output-feeding values again (regions and
		// extracts take over the original names); refresh the spec.
		if newSpec != nil {
			if err := reconcileSpec(segmented, newSpec); err != nil {
				return nil, nil, err
			}
		}
		out = segmented
	}

	// Recurse into every remaining owned subgraph so nested scope
	// regions get outlined too. Children carry no external output names.
	names := make([]string, 0, len(out.Subgraphs))
	for name := range out.Subgraphs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		child, _, err := Rewrite(out.Subgraphs[name], nil)
		if err != nil {
			return nil, nil, fmt.Errorf("subgraph %s: %w", name, err)
		}
		out.SetSubgraph(name, child)
	}

	if err := out.Validate(); err != nil {
		return nil, nil, fmt.Errorf("rewritten graph failed validation: %w", err)
	}
	if err := newSpec.Validate(out); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSpecMismatch, err)
	}
	return out, newSpec, nil
}
