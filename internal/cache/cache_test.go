package cache

import (
	"testing"

	"github.com/funvibe/graphir/internal/ir"
)

func buildBundle(t *testing.T, name string) *ir.Bundle {
	t.Helper()
	g := ir.NewGraph(name)
	insts := []*ir.Instruction{
		{Name: "x", Kind: ir.KindInput},
		{Name: "a", Kind: ir.KindCall, Target: "neg", Args: []ir.Argument{ir.RefArg("x")}},
		{Name: "out", Kind: ir.KindOutput, Args: []ir.Argument{ir.RefArg("a")}},
	}
	for _, in := range insts {
		if err := g.Append(in); err != nil {
			t.Fatalf("Append(%s): %v", in.Name, err)
		}
	}
	return &ir.Bundle{Root: g}
}

func TestCache_MissThenHit(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	input := buildBundle(t, "main")
	got, err := c.Lookup(input)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != nil {
		t.Fatal("expected cache miss for fresh database")
	}

	rewritten := buildBundle(t, "rewritten")
	if err := c.Store(input, rewritten); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err = c.Lookup(input)
	if err != nil {
		t.Fatalf("Lookup after Store: %v", err)
	}
	if got == nil {
		t.Fatal("expected cache hit")
	}
	if got.Root.Name != "rewritten" {
		t.Errorf("cached root name = %q, want rewritten", got.Root.Name)
	}
}

func TestCache_KeyDependsOnGraph(t *testing.T) {
	a := buildBundle(t, "main")
	b := buildBundle(t, "main")
	b.Root.Find("a").Target = "sqrt"

	ka, err := Key(a)
	if err != nil {
		t.Fatalf("Key(a): %v", err)
	}
	kb, err := Key(b)
	if err != nil {
		t.Fatalf("Key(b): %v", err)
	}
	if ka == kb {
		t.Error("different graphs produced the same cache key")
	}
}

func TestCache_Clean(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	input := buildBundle(t, "main")
	if err := c.Store(input, input); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if n, _ := c.Len(); n != 1 {
		t.Fatalf("Len = %d, want 1", n)
	}
	if err := c.Clean(); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if n, _ := c.Len(); n != 0 {
		t.Errorf("Len after Clean = %d, want 0", n)
	}
}

func TestCache_PersistsAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	input := buildBundle(t, "main")

	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.Store(input, input); err != nil {
		t.Fatalf("Store: %v", err)
	}
	c.Close()

	c2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()
	got, err := c2.Lookup(input)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got == nil {
		t.Error("entry did not survive reopen")
	}
}
