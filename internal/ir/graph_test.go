package ir

import (
	"strings"
	"testing"
)

// buildLinear constructs: x = input; a = call add(x, 1.0); out = output(a)
func buildLinear(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph("main")
	mustAppend(t, g, &Instruction{Name: "x", Kind: KindInput})
	mustAppend(t, g, &Instruction{
		Name: "a", Kind: KindCall, Target: "add",
		Args: []Argument{RefArg("x"), LitArg(FloatLit(1))},
	})
	mustAppend(t, g, &Instruction{
		Name: "out", Kind: KindOutput,
		Args: []Argument{RefArg("a")},
	})
	return g
}

func mustAppend(t *testing.T, g *Graph, in *Instruction) {
	t.Helper()
	if err := g.Append(in); err != nil {
		t.Fatalf("Append(%s) failed: %v", in.Name, err)
	}
}

func TestGraph_Validate(t *testing.T) {
	g := buildLinear(t)
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate failed on well-formed graph: %v", err)
	}
}

func TestGraph_ValidateForwardReference(t *testing.T) {
	g := NewGraph("main")
	mustAppend(t, g, &Instruction{
		Name: "a", Kind: KindCall, Target: "neg",
		Args: []Argument{RefArg("b")},
	})
	mustAppend(t, g, &Instruction{Name: "b", Kind: KindInput})
	err := g.Validate()
	if err == nil {
		t.Fatal("expected error for forward reference")
	}
	if !strings.Contains(err.Error(), "undefined or later") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGraph_ValidateOutputNotLast(t *testing.T) {
	g := NewGraph("main")
	mustAppend(t, g, &Instruction{Name: "x", Kind: KindInput})
	mustAppend(t, g, &Instruction{Name: "out", Kind: KindOutput, Args: []Argument{RefArg("x")}})
	mustAppend(t, g, &Instruction{Name: "y", Kind: KindCall, Target: "neg", Args: []Argument{RefArg("x")}})
	if err := g.Validate(); err == nil {
		t.Fatal("expected error for output not last")
	}
}

func TestGraph_InsertBefore(t *testing.T) {
	g := buildLinear(t)
	in := &Instruction{Name: "b", Kind: KindCall, Target: "neg", Args: []Argument{RefArg("x")}}
	if err := g.InsertBefore("a", in); err != nil {
		t.Fatalf("InsertBefore failed: %v", err)
	}
	if g.Insts[1].Name != "b" || g.Insts[2].Name != "a" {
		t.Errorf("wrong order after insert: %s, %s", g.Insts[1].Name, g.Insts[2].Name)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate failed after insert: %v", err)
	}
}

func TestGraph_EraseRejectsUsed(t *testing.T) {
	g := buildLinear(t)
	if err := g.Erase("a"); err == nil {
		t.Fatal("expected error erasing a used instruction")
	}
}

func TestGraph_Rename(t *testing.T) {
	g := buildLinear(t)
	if err := g.Rename("a", "sum"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	out := g.Output()
	if out.Args[0].Ref != "sum" {
		t.Errorf("output still references old name: %s", out.Args[0].Ref)
	}
	if g.Find("a") != nil {
		t.Error("old name still resolves")
	}
}

func TestGraph_FreshName(t *testing.T) {
	g := buildLinear(t)
	if got := g.FreshName("getitem"); got != "getitem" {
		t.Errorf("FreshName: got %s, want getitem", got)
	}
	mustAppend(t, g, &Instruction{Name: "getitem", Kind: KindCall, Target: "id", Args: []Argument{RefArg("x")}})
	if got := g.FreshName("getitem"); got != "getitem_1" {
		t.Errorf("FreshName: got %s, want getitem_1", got)
	}
}

func TestGraph_CloneIsDeep(t *testing.T) {
	g := buildLinear(t)
	sub := NewGraph("")
	mustAppend(t, sub, &Instruction{Name: "p", Kind: KindInput})
	g.SetSubgraph("submod_0", sub)

	clone := g.Clone()
	clone.Insts[1].Target = "mul"
	clone.Subgraphs["submod_0"].Insts[0].Name = "q"

	if g.Insts[1].Target != "add" {
		t.Error("clone shares instruction storage with original")
	}
	if g.Subgraphs["submod_0"].Insts[0].Name != "p" {
		t.Error("clone shares subgraph storage with original")
	}
	if clone.ID != g.ID {
		t.Error("clone should keep the graph identity")
	}
}

func TestOutputSpec_Validate(t *testing.T) {
	g := buildLinear(t)
	spec := &OutputSpec{Entries: []OutputEntry{{Declared: "y", Value: "a"}}}
	if err := spec.Validate(g); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	bad := &OutputSpec{Entries: []OutputEntry{{Declared: "y", Value: "missing"}}}
	if err := bad.Validate(g); err == nil {
		t.Fatal("expected error for dangling spec value")
	}
}
