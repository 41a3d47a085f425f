package rewrite

import (
	"fmt"
	"strconv"

	"github.com/funvibe/graphir/internal/ir"
)

// replaceWithRegion rewrites an invoke of an outlined scope body into a
// single region instruction carrying the scope parameters, and strips
// the now-redundant marker pair from the body. The region's declared
// results mirror the body's output shape exactly: a tuple output yields
// one region with renamed extract users, a single value yields one
// region under the value's own name, and an absent output erases the
// call site without replacement.
func replaceWithRegion(parent *ir.Graph, inv *ir.Instruction) error {
	sub := parent.Subgraph(inv.Target)
	if sub == nil {
		return fmt.Errorf("outline: unknown subgraph %q", inv.Target)
	}

	var markers []*ir.Instruction
	for _, in := range sub.Insts {
		if isMarker(in) {
			markers = append(markers, in)
		}
	}
	if len(markers) < 2 {
		return fmt.Errorf("%w: body %q holds %d marker(s), need an enter and an exit",
			ErrIncompleteScope, inv.Target, len(markers))
	}
	enter, exit := markers[0], markers[len(markers)-1]
	if !isEnter(enter) || !isExit(exit) {
		return fmt.Errorf("%w: body %q is not delimited by an enter/exit pair",
			ErrMalformedNesting, inv.Target)
	}
	if len(exit.Args) == 0 || exit.Args[0].Ref != enter.Name {
		return fmt.Errorf("%w: exit %q does not close enter %q",
			ErrMalformedNesting, exit.Name, enter.Name)
	}

	// A use of the exit marker's value stands for the region's result;
	// redirect it to the last substantive instruction before the exit.
	if len(sub.Users(exit.Name)) > 0 {
		carrier := lastSubstantive(sub, exit.Name)
		if carrier == nil {
			return fmt.Errorf("%w: scope body %q computes nothing to stand for its result",
				ErrUnsupportedOutput, inv.Target)
		}
		sub.ReplaceUses(exit.Name, carrier.Name)
	}

	scopeArgs := append([]ir.Argument(nil), enter.Args...)
	provenance := append([]string(nil), enter.Meta.Scope...)

	if err := sub.Erase(exit.Name); err != nil {
		return fmt.Errorf("scope body %q: %w", inv.Target, err)
	}
	if err := sub.Erase(enter.Name); err != nil {
		return fmt.Errorf("scope body %q: %w", inv.Target, err)
	}

	out := sub.Output()
	switch {
	case out == nil:
		// The scope has no observable result: erase the call site and
		// drop the body outright.
		if err := parent.Erase(inv.Name); err != nil {
			return fmt.Errorf("dropping void scope %q: %w", inv.Target, err)
		}
		parent.RemoveSubgraph(inv.Target)
		return nil

	case out.Tuple:
		region := &ir.Instruction{
			Name:      parent.FreshName("region"),
			Kind:      ir.KindRegion,
			Target:    inv.Target,
			Args:      append([]ir.Argument(nil), inv.Args...),
			ScopeArgs: scopeArgs,
		}
		region.Meta.Scope = provenance
		for _, a := range out.Args {
			if !a.IsRef() {
				return fmt.Errorf("%w: tuple member %s of body %q", ErrUnsupportedOutput, a, inv.Target)
			}
			if src := sub.Find(a.Ref); src != nil {
				region.Meta.Val = append(region.Meta.Val, src.Meta.Val...)
			}
		}
		if err := swapInstruction(parent, inv, region); err != nil {
			return err
		}
		// Rename extract users to the member names so downstream
		// references and external naming stay legible.
		for _, user := range parent.Users(region.Name) {
			if user.Kind != ir.KindExtract {
				continue
			}
			if user.Index >= len(out.Args) {
				return fmt.Errorf("extract %q indexes %d but body %q returns %d values",
					user.Name, user.Index, inv.Target, len(out.Args))
			}
			member := out.Args[user.Index].Ref
			if src := sub.Find(member); src != nil {
				user.Meta = src.Meta.Clone()
			}
			if err := parent.Rename(user.Name, parent.FreshName(member)); err != nil {
				return err
			}
		}
		return nil

	case len(out.Args) == 1:
		a := out.Args[0]
		if !a.IsRef() {
			return fmt.Errorf("%w: body %q returns immediate %s", ErrUnsupportedOutput, inv.Target, a)
		}
		region := &ir.Instruction{
			Name:      parent.FreshName(a.Ref),
			Kind:      ir.KindRegion,
			Target:    inv.Target,
			Args:      append([]ir.Argument(nil), inv.Args...),
			ScopeArgs: scopeArgs,
		}
		if src := sub.Find(a.Ref); src != nil {
			region.Meta = src.Meta.Clone()
		}
		region.Meta.Scope = provenance
		return swapInstruction(parent, inv, region)

	default:
		return fmt.Errorf("%w: body %q output has %d non-tuple arguments",
			ErrUnsupportedOutput, inv.Target, len(out.Args))
	}
}

// swapInstruction inserts repl before old, moves old's users onto repl
// and erases old.
func swapInstruction(g *ir.Graph, old, repl *ir.Instruction) error {
	if err := g.InsertBefore(old.Name, repl); err != nil {
		return err
	}
	g.ReplaceUses(old.Name, repl.Name)
	return g.Erase(old.Name)
}

// lastSubstantive returns the last non-marker, non-input instruction
// strictly before the named one, or nil.
func lastSubstantive(g *ir.Graph, before string) *ir.Instruction {
	var found *ir.Instruction
	for _, in := range g.Insts {
		if in.Name == before {
			return found
		}
		if isMarker(in) || in.Kind == ir.KindInput || in.Kind == ir.KindOutput {
			continue
		}
		found = in
	}
	return nil
}

// inlineSegment splices a non-scope segment's instructions back into the
// parent in place of the invoke, undoing the splitter's segmentation for
// ordinary control flow.
func inlineSegment(parent *ir.Graph, inv *ir.Instruction) error {
	sub := parent.Subgraph(inv.Target)
	if sub == nil {
		return fmt.Errorf("inline: unknown subgraph %q", inv.Target)
	}
	inputs := sub.Inputs()
	if len(inputs) != len(inv.Args) {
		return fmt.Errorf("inline %q: %d arguments for %d inputs", inv.Target, len(inv.Args), len(inputs))
	}

	// env maps the child's value names to their replacements in the parent
	env := make(map[string]ir.Argument, len(sub.Insts))
	for i, in := range inputs {
		env[in.Name] = inv.Args[i]
	}
	resolve := func(a ir.Argument) ir.Argument {
		if a.IsRef() {
			if m, ok := env[a.Ref]; ok {
				return m
			}
		}
		return a
	}

	for _, in := range sub.Insts {
		if in.Kind == ir.KindInput || in.Kind == ir.KindOutput {
			continue
		}
		clone := in.Clone()
		clone.Name = parent.FreshName(in.Name)
		for i := range clone.Args {
			clone.Args[i] = resolve(clone.Args[i])
		}
		for i := range clone.ScopeArgs {
			clone.ScopeArgs[i] = resolve(clone.ScopeArgs[i])
		}
		// Owned subgraphs move up with the instruction referencing them
		if clone.Kind == ir.KindInvoke || clone.Kind == ir.KindRegion {
			if inner := sub.Subgraph(clone.Target); inner != nil {
				target := clone.Target
				if parent.Subgraph(target) != nil {
					target = freshSubgraphName(parent, target)
					clone.Target = target
				}
				parent.SetSubgraph(target, inner)
			}
		}
		if err := parent.InsertBefore(inv.Name, clone); err != nil {
			return err
		}
		env[in.Name] = ir.RefArg(clone.Name)
	}

	if out := sub.Output(); out != nil {
		if out.Tuple {
			for _, user := range parent.Users(inv.Name) {
				if user.Kind != ir.KindExtract {
					continue
				}
				if user.Index >= len(out.Args) {
					return fmt.Errorf("extract %q indexes %d but segment %q returns %d values",
						user.Name, user.Index, inv.Target, len(out.Args))
				}
				replaceArgEverywhere(parent, user.Name, resolve(out.Args[user.Index]))
				if err := parent.Erase(user.Name); err != nil {
					return err
				}
			}
		} else if len(out.Args) == 1 {
			replaceArgEverywhere(parent, inv.Name, resolve(out.Args[0]))
		}
	}

	if err := parent.Erase(inv.Name); err != nil {
		return fmt.Errorf("inlining %q: %w", inv.Target, err)
	}
	parent.RemoveSubgraph(inv.Target)
	return nil
}

// replaceArgEverywhere substitutes every argument referencing old with
// repl, which may itself be a literal.
func replaceArgEverywhere(g *ir.Graph, old string, repl ir.Argument) {
	for _, in := range g.Insts {
		for i := range in.Args {
			if in.Args[i].Ref == old {
				in.Args[i] = repl
			}
		}
		for i := range in.ScopeArgs {
			if in.ScopeArgs[i].Ref == old {
				in.ScopeArgs[i] = repl
			}
		}
	}
}

func freshSubgraphName(g *ir.Graph, base string) string {
	for n := 1; ; n++ {
		candidate := base + "_" + strconv.Itoa(n)
		if g.Subgraph(candidate) == nil {
			return candidate
		}
	}
}
