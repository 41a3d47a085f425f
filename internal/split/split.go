// Package split implements sequential graph splitting: partitioning a
// graph's instruction sequence into contiguous segments, each outlined
// into an owned subgraph and invoked in order from a new root graph.
package split

import (
	"fmt"
	"strconv"

	"github.com/funvibe/graphir/internal/ir"
)

// Callback decides, in program order, whether a new segment must begin
// at the given instruction. Inputs and the output instruction are never
// presented to the callback.
type Callback func(*ir.Instruction) bool

// segment is a contiguous run of body instructions plus its computed
// boundary values.
type segment struct {
	insts   []*ir.Instruction
	inputs  []string // externally defined values read by the segment
	outputs []string // values defined here and used outside the segment
}

// Split partitions g's body into segments at the positions where
// startsNew returns true and returns a new root graph that owns one
// subgraph per segment (submod_0, submod_1, ...) and invokes them in
// order. The input graph is not mutated.
//
// A segment whose values are never used outside it produces a child
// graph with no output instruction; that is a legal graph, not an error.
func Split(g *ir.Graph, startsNew Callback) (*ir.Graph, error) {
	segs := partition(g, startsNew)

	root := ir.NewGraph(g.Name)
	for _, in := range g.Inputs() {
		if err := root.Append(in.Clone()); err != nil {
			return nil, err
		}
	}

	// env maps original value names to their names in the new root
	env := make(map[string]string)
	for _, in := range g.Inputs() {
		env[in.Name] = in.Name
	}

	for i, seg := range segs {
		subName := "submod_" + strconv.Itoa(i)
		child, err := buildChild(g, seg)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		root.SetSubgraph(subName, child)

		invoke := &ir.Instruction{
			Name:   root.FreshName(subName),
			Kind:   ir.KindInvoke,
			Target: subName,
		}
		for _, name := range seg.inputs {
			mapped, ok := env[name]
			if !ok {
				return nil, fmt.Errorf("segment %d reads %q which is not defined upstream", i, name)
			}
			invoke.Args = append(invoke.Args, ir.RefArg(mapped))
		}
		for _, name := range seg.outputs {
			if def := findInst(seg.insts, name); def != nil {
				invoke.Meta.Val = append(invoke.Meta.Val, def.Meta.Val...)
			}
		}
		if err := root.Append(invoke); err != nil {
			return nil, err
		}

		switch len(seg.outputs) {
		case 0:
			// nothing escapes the segment
		case 1:
			env[seg.outputs[0]] = invoke.Name
		default:
			for idx, name := range seg.outputs {
				extract := &ir.Instruction{
					Name:  root.FreshName("getitem"),
					Kind:  ir.KindExtract,
					Args:  []ir.Argument{ir.RefArg(invoke.Name)},
					Index: idx,
				}
				if def := findInst(seg.insts, name); def != nil {
					extract.Meta = def.Meta.Clone()
				}
				if err := root.Append(extract); err != nil {
					return nil, err
				}
				env[name] = extract.Name
			}
		}
	}

	if out := g.Output(); out != nil {
		newOut := &ir.Instruction{
			Name:  root.FreshName(out.Name),
			Kind:  ir.KindOutput,
			Tuple: out.Tuple,
			Meta:  out.Meta.Clone(),
		}
		for _, a := range out.Args {
			if !a.IsRef() {
				newOut.Args = append(newOut.Args, a)
				continue
			}
			mapped, ok := env[a.Ref]
			if !ok {
				return nil, fmt.Errorf("output references %q which no segment produces", a.Ref)
			}
			newOut.Args = append(newOut.Args, ir.RefArg(mapped))
		}
		if err := root.Append(newOut); err != nil {
			return nil, err
		}
	}

	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("split produced invalid graph: %w", err)
	}
	return root, nil
}

// partition assigns every body instruction to a segment.
func partition(g *ir.Graph, startsNew Callback) []*segment {
	var segs []*segment
	var cur *segment
	for _, in := range g.Insts {
		if in.Kind == ir.KindInput || in.Kind == ir.KindOutput {
			continue
		}
		if cur == nil || startsNew(in) {
			cur = &segment{}
			segs = append(segs, cur)
		}
		cur.insts = append(cur.insts, in)
	}
	computeBoundaries(g, segs)
	return segs
}

// computeBoundaries fills each segment's external inputs (in first-use
// order) and escaping outputs (in definition order).
func computeBoundaries(g *ir.Graph, segs []*segment) {
	segOf := make(map[string]int)
	for i, seg := range segs {
		for _, in := range seg.insts {
			segOf[in.Name] = i
		}
	}
	used := make(map[string]bool) // defined in a segment, used outside it

	markUse := func(a ir.Argument, segIdx int) {
		if !a.IsRef() {
			return
		}
		def, inSeg := segOf[a.Ref]
		if inSeg && def == segIdx {
			return // internal to the segment
		}
		if inSeg {
			used[a.Ref] = true
		}
		if segIdx >= 0 {
			seg := segs[segIdx]
			for _, have := range seg.inputs {
				if have == a.Ref {
					return
				}
			}
			seg.inputs = append(seg.inputs, a.Ref)
		}
	}

	for i, seg := range segs {
		for _, in := range seg.insts {
			for _, a := range in.Args {
				markUse(a, i)
			}
			for _, a := range in.ScopeArgs {
				markUse(a, i)
			}
		}
	}
	if out := g.Output(); out != nil {
		for _, a := range out.Args {
			if a.IsRef() {
				if _, inSeg := segOf[a.Ref]; inSeg {
					used[a.Ref] = true
				}
			}
		}
	}

	for _, seg := range segs {
		for _, in := range seg.insts {
			if used[in.Name] {
				seg.outputs = append(seg.outputs, in.Name)
			}
		}
	}
}

// buildChild materializes a segment as a standalone graph: one input per
// external value, the segment's instructions (names preserved), and an
// output instruction when any value escapes.
func buildChild(g *ir.Graph, seg *segment) (*ir.Graph, error) {
	child := ir.NewGraph("")
	for _, name := range seg.inputs {
		in := &ir.Instruction{Name: name, Kind: ir.KindInput}
		if def := g.Find(name); def != nil {
			in.Meta = def.Meta.Clone()
		}
		if err := child.Append(in); err != nil {
			return nil, err
		}
	}
	for _, in := range seg.insts {
		clone := in.Clone()
		if err := child.Append(clone); err != nil {
			return nil, err
		}
		// Subgraph references travel with the instruction that holds them
		if clone.Kind == ir.KindInvoke || clone.Kind == ir.KindRegion {
			if sub := g.Subgraph(clone.Target); sub != nil {
				child.SetSubgraph(clone.Target, sub.Clone())
			}
		}
	}
	switch len(seg.outputs) {
	case 0:
		// intentionally no output instruction
	case 1:
		out := &ir.Instruction{
			Name: child.FreshName("output"),
			Kind: ir.KindOutput,
			Args: []ir.Argument{ir.RefArg(seg.outputs[0])},
		}
		if err := child.Append(out); err != nil {
			return nil, err
		}
	default:
		out := &ir.Instruction{
			Name:  child.FreshName("output"),
			Kind:  ir.KindOutput,
			Tuple: true,
		}
		for _, name := range seg.outputs {
			out.Args = append(out.Args, ir.RefArg(name))
		}
		if err := child.Append(out); err != nil {
			return nil, err
		}
	}
	if err := child.Validate(); err != nil {
		return nil, err
	}
	return child, nil
}

func findInst(insts []*ir.Instruction, name string) *ir.Instruction {
	for _, in := range insts {
		if in.Name == name {
			return in
		}
	}
	return nil
}
