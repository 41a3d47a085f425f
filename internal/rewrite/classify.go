// Package rewrite implements the precision-scope outlining pass: maximal
// top-level enter/exit scope regions are split into owned subgraphs and
// the calls to them replaced by single region instructions; nested
// regions are handled by recursing into the outlined bodies.
package rewrite

import "github.com/funvibe/graphir/internal/ir"

func isEnter(in *ir.Instruction) bool {
	return in != nil && in.Kind == ir.KindEnterScope
}

func isExit(in *ir.Instruction) bool {
	return in != nil && in.Kind == ir.KindExitScope
}

func isMarker(in *ir.Instruction) bool {
	return isEnter(in) || isExit(in)
}

// isScopedBody reports whether the invoke's callee is an outlined scope
// body: its first non-input instruction is an enter marker. A missing or
// unresolvable callee is simply not a scope body.
func isScopedBody(parent *ir.Graph, in *ir.Instruction) bool {
	if in == nil || in.Kind != ir.KindInvoke {
		return false
	}
	sub := parent.Subgraph(in.Target)
	if sub == nil {
		return false
	}
	for _, bi := range sub.Insts {
		if bi.Kind == ir.KindInput {
			continue
		}
		return isEnter(bi)
	}
	return false
}

// hasMarkers reports whether any scope marker appears among the graph's
// own instructions (owned subgraphs are not consulted; recursion visits
// them separately).
func hasMarkers(g *ir.Graph) bool {
	for _, in := range g.Insts {
		if isMarker(in) {
			return true
		}
	}
	return false
}
