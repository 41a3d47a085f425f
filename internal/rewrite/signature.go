package rewrite

import (
	"fmt"

	"github.com/funvibe/graphir/internal/ir"
)

// reconcileSpec walks the graph's output arguments against the spec
// entries in lexical order and updates each entry's value name to the
// instruction now feeding that output slot. Splitting and outlining both
// rename the values behind a declared output; the declared names
// themselves never change.
//
// Absent output slots (immediate nil arguments) must pair with absent
// spec entries, and the counts must match exactly.
func reconcileSpec(g *ir.Graph, spec *ir.OutputSpec) error {
	if spec == nil {
		return nil
	}
	var args []ir.Argument
	if out := g.Output(); out != nil {
		args = out.Args
	}
	if len(args) != len(spec.Entries) {
		return fmt.Errorf("%w: graph outputs %d values but the specification declares %d",
			ErrSpecMismatch, len(args), len(spec.Entries))
	}
	for i := range args {
		a := args[i]
		e := &spec.Entries[i]
		if !a.IsRef() {
			if !a.IsNil() {
				return fmt.Errorf("%w: output %d is immediate %s, expected a value or nil",
					ErrSpecMismatch, i, a)
			}
			if e.Value != "" {
				return fmt.Errorf("%w: output %d is absent but entry %q names value %q",
					ErrSpecMismatch, i, e.Declared, e.Value)
			}
			continue
		}
		if e.Value != a.Ref {
			e.Value = a.Ref
		}
	}
	return nil
}
