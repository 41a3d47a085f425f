package ir

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Graph is an ordered sequence of uniquely named instructions plus the
// child graphs it owns. Instructions reference earlier instructions by
// name; the graph never contains cycles or forward references.
type Graph struct {
	// ID is a stable identity assigned at creation, preserved by Clone
	// and serialization. Used for cache keys and dump cross-references.
	ID string

	// Name is the graph's attribute name inside its parent ("" for roots)
	Name string

	Insts []*Instruction

	// Subgraphs maps attribute name -> owned child graph, referenced by
	// invoke/region instructions via Target
	Subgraphs map[string]*Graph
}

// NewGraph creates an empty graph with a fresh identity.
func NewGraph(name string) *Graph {
	return &Graph{
		ID:        uuid.NewString(),
		Name:      name,
		Insts:     make([]*Instruction, 0, 16),
		Subgraphs: make(map[string]*Graph),
	}
}

// Find returns the instruction with the given name, or nil.
func (g *Graph) Find(name string) *Instruction {
	for _, in := range g.Insts {
		if in.Name == name {
			return in
		}
	}
	return nil
}

func (g *Graph) index(name string) int {
	for i, in := range g.Insts {
		if in.Name == name {
			return i
		}
	}
	return -1
}

// Inputs returns the graph's parameter instructions in order.
func (g *Graph) Inputs() []*Instruction {
	var out []*Instruction
	for _, in := range g.Insts {
		if in.Kind == KindInput {
			out = append(out, in)
		}
	}
	return out
}

// Output returns the graph's terminal output instruction, or nil when the
// graph returns nothing. A missing output is legal.
func (g *Graph) Output() *Instruction {
	if len(g.Insts) == 0 {
		return nil
	}
	last := g.Insts[len(g.Insts)-1]
	if last.Kind == KindOutput {
		return last
	}
	return nil
}

// Append adds an instruction at the end of the sequence.
func (g *Graph) Append(in *Instruction) error {
	if g.Find(in.Name) != nil {
		return fmt.Errorf("duplicate instruction name %q in graph %s", in.Name, g.Name)
	}
	g.Insts = append(g.Insts, in)
	return nil
}

// InsertBefore places in immediately before the named anchor instruction.
func (g *Graph) InsertBefore(anchor string, in *Instruction) error {
	idx := g.index(anchor)
	if idx < 0 {
		return fmt.Errorf("insert anchor %q not found in graph %s", anchor, g.Name)
	}
	if g.Find(in.Name) != nil {
		return fmt.Errorf("duplicate instruction name %q in graph %s", in.Name, g.Name)
	}
	g.Insts = append(g.Insts, nil)
	copy(g.Insts[idx+1:], g.Insts[idx:])
	g.Insts[idx] = in
	return nil
}

// Erase removes the named instruction. It is an error to erase an
// instruction that still has users.
func (g *Graph) Erase(name string) error {
	idx := g.index(name)
	if idx < 0 {
		return fmt.Errorf("erase: instruction %q not found in graph %s", name, g.Name)
	}
	for _, in := range g.Insts {
		if in.Name != name && in.RefersTo(name) {
			return fmt.Errorf("erase: instruction %q still used by %q", name, in.Name)
		}
	}
	g.Insts = append(g.Insts[:idx], g.Insts[idx+1:]...)
	return nil
}

// Rename changes an instruction's name and rewrites every argument that
// referenced the old name.
func (g *Graph) Rename(old, new string) error {
	if old == new {
		return nil
	}
	in := g.Find(old)
	if in == nil {
		return fmt.Errorf("rename: instruction %q not found in graph %s", old, g.Name)
	}
	if g.Find(new) != nil {
		return fmt.Errorf("rename: name %q already taken in graph %s", new, g.Name)
	}
	in.Name = new
	g.ReplaceUses(old, new)
	return nil
}

// ReplaceUses rewrites every argument referencing old to reference new.
func (g *Graph) ReplaceUses(old, new string) {
	for _, in := range g.Insts {
		for i := range in.Args {
			if in.Args[i].Ref == old {
				in.Args[i].Ref = new
			}
		}
		for i := range in.ScopeArgs {
			if in.ScopeArgs[i].Ref == old {
				in.ScopeArgs[i].Ref = new
			}
		}
	}
}

// Users returns the instructions that reference the named instruction.
func (g *Graph) Users(name string) []*Instruction {
	var out []*Instruction
	for _, in := range g.Insts {
		if in.Name != name && in.RefersTo(name) {
			out = append(out, in)
		}
	}
	return out
}

// Snapshot returns a copy of the instruction list, safe to iterate while
// the live graph is mutated.
func (g *Graph) Snapshot() []*Instruction {
	return append([]*Instruction(nil), g.Insts...)
}

// FreshName returns base, or base_N for the smallest N that makes the
// name unused in this graph.
func (g *Graph) FreshName(base string) string {
	if g.Find(base) == nil {
		return base
	}
	for n := 1; ; n++ {
		candidate := base + "_" + strconv.Itoa(n)
		if g.Find(candidate) == nil {
			return candidate
		}
	}
}

// Subgraph returns the owned child graph with the given attribute name.
func (g *Graph) Subgraph(name string) *Graph {
	if g.Subgraphs == nil {
		return nil
	}
	return g.Subgraphs[name]
}

// SetSubgraph installs (or replaces) an owned child graph.
func (g *Graph) SetSubgraph(name string, child *Graph) {
	if g.Subgraphs == nil {
		g.Subgraphs = make(map[string]*Graph)
	}
	child.Name = name
	g.Subgraphs[name] = child
}

// RemoveSubgraph drops an owned child graph.
func (g *Graph) RemoveSubgraph(name string) {
	delete(g.Subgraphs, name)
}

// Clone returns a deep copy of the graph, keeping the same ID.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		ID:        g.ID,
		Name:      g.Name,
		Insts:     make([]*Instruction, len(g.Insts)),
		Subgraphs: make(map[string]*Graph, len(g.Subgraphs)),
	}
	for i, in := range g.Insts {
		out.Insts[i] = in.Clone()
	}
	for name, child := range g.Subgraphs {
		out.Subgraphs[name] = child.Clone()
	}
	return out
}

// Validate checks the graph's structural invariants: unique names, no
// forward references, a single trailing output, resolvable invoke/region
// targets, and well-formed extract and exit-scope arguments. Owned
// subgraphs are validated recursively.
func (g *Graph) Validate() error {
	seen := make(map[string]int, len(g.Insts))
	for i, in := range g.Insts {
		if in.Name == "" {
			return fmt.Errorf("graph %s: instruction %d has no name", g.Name, i)
		}
		if _, dup := seen[in.Name]; dup {
			return fmt.Errorf("graph %s: duplicate instruction name %q", g.Name, in.Name)
		}
		seen[in.Name] = i

		if in.Kind == KindOutput && i != len(g.Insts)-1 {
			return fmt.Errorf("graph %s: output %q is not the last instruction", g.Name, in.Name)
		}

		refs := make([]Argument, 0, len(in.Args)+len(in.ScopeArgs))
		refs = append(refs, in.Args...)
		refs = append(refs, in.ScopeArgs...)
		for _, a := range refs {
			if !a.IsRef() {
				continue
			}
			def, ok := seen[a.Ref]
			if !ok {
				return fmt.Errorf("graph %s: %q references undefined or later value %q", g.Name, in.Name, a.Ref)
			}
			if def == i {
				return fmt.Errorf("graph %s: %q references itself", g.Name, in.Name)
			}
		}

		switch in.Kind {
		case KindInvoke, KindRegion:
			if g.Subgraph(in.Target) == nil {
				return fmt.Errorf("graph %s: %q targets unknown subgraph %q", g.Name, in.Name, in.Target)
			}
		case KindExtract:
			if len(in.Args) != 1 || !in.Args[0].IsRef() {
				return fmt.Errorf("graph %s: extract %q must reference a producing instruction", g.Name, in.Name)
			}
			src := g.Find(in.Args[0].Ref)
			if src.Kind != KindInvoke && src.Kind != KindRegion {
				return fmt.Errorf("graph %s: extract %q does not index an invoke or region", g.Name, in.Name)
			}
			if in.Index < 0 {
				return fmt.Errorf("graph %s: extract %q has negative index", g.Name, in.Name)
			}
		case KindExitScope:
			if len(in.Args) < 1 || !in.Args[0].IsRef() {
				return fmt.Errorf("graph %s: exit_scope %q has no enter reference", g.Name, in.Name)
			}
			if enter := g.Find(in.Args[0].Ref); enter == nil || enter.Kind != KindEnterScope {
				return fmt.Errorf("graph %s: exit_scope %q does not reference an enter_scope", g.Name, in.Name)
			}
		}
	}
	for name, child := range g.Subgraphs {
		if err := child.Validate(); err != nil {
			return fmt.Errorf("subgraph %s: %w", name, err)
		}
	}
	return nil
}
