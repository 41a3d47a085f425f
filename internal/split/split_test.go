package split

import (
	"testing"

	"github.com/funvibe/graphir/internal/ir"
)

func mustAppend(t *testing.T, g *ir.Graph, in *ir.Instruction) {
	t.Helper()
	if err := g.Append(in); err != nil {
		t.Fatalf("Append(%s) failed: %v", in.Name, err)
	}
}

// buildChain constructs: x = input; a = add(x, 1); b = mul(a, a); c = neg(b); out = output(c)
func buildChain(t *testing.T) *ir.Graph {
	t.Helper()
	g := ir.NewGraph("main")
	mustAppend(t, g, &ir.Instruction{Name: "x", Kind: ir.KindInput})
	mustAppend(t, g, &ir.Instruction{Name: "a", Kind: ir.KindCall, Target: "add",
		Args: []ir.Argument{ir.RefArg("x"), ir.LitArg(ir.FloatLit(1))}})
	mustAppend(t, g, &ir.Instruction{Name: "b", Kind: ir.KindCall, Target: "mul",
		Args: []ir.Argument{ir.RefArg("a"), ir.RefArg("a")}})
	mustAppend(t, g, &ir.Instruction{Name: "c", Kind: ir.KindCall, Target: "neg",
		Args: []ir.Argument{ir.RefArg("b")}})
	mustAppend(t, g, &ir.Instruction{Name: "out", Kind: ir.KindOutput,
		Args: []ir.Argument{ir.RefArg("c")}})
	return g
}

func TestSplit_SingleSegment(t *testing.T) {
	g := buildChain(t)
	root, err := Split(g, func(*ir.Instruction) bool { return false })
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	sub := root.Subgraph("submod_0")
	if sub == nil {
		t.Fatal("submod_0 missing")
	}
	if root.Subgraph("submod_1") != nil {
		t.Error("unexpected second segment")
	}
	if len(sub.Insts) != 5 { // input x + a,b,c + output
		t.Errorf("submod_0 has %d instructions, want 5", len(sub.Insts))
	}
	inv := root.Find("submod_0")
	if inv == nil || inv.Kind != ir.KindInvoke {
		t.Fatal("root does not invoke submod_0")
	}
	if len(inv.Args) != 1 || inv.Args[0].Ref != "x" {
		t.Errorf("invoke args: %v", inv.Args)
	}
}

func TestSplit_BoundaryAtCallback(t *testing.T) {
	g := buildChain(t)
	root, err := Split(g, func(in *ir.Instruction) bool { return in.Name == "b" })
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	s0, s1 := root.Subgraph("submod_0"), root.Subgraph("submod_1")
	if s0 == nil || s1 == nil {
		t.Fatal("expected two segments")
	}
	if s0.Find("a") == nil || s0.Find("b") != nil {
		t.Error("segment boundary not at b")
	}
	if s1.Find("b") == nil || s1.Find("c") == nil {
		t.Error("second segment missing b or c")
	}
	// a crosses the boundary: output of submod_0, input of submod_1
	if out := s0.Output(); out == nil || out.Args[0].Ref != "a" {
		t.Error("a should be submod_0's output")
	}
	if s1.Find("a") == nil || s1.Find("a").Kind != ir.KindInput {
		t.Error("a should be an input of submod_1")
	}
}

func TestSplit_NoEscapingValuesOmitsOutput(t *testing.T) {
	g := ir.NewGraph("main")
	mustAppend(t, g, &ir.Instruction{Name: "x", Kind: ir.KindInput})
	mustAppend(t, g, &ir.Instruction{Name: "a", Kind: ir.KindCall, Target: "neg",
		Args: []ir.Argument{ir.RefArg("x")}})
	// no output instruction at all; a is dead
	root, err := Split(g, func(*ir.Instruction) bool { return false })
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	sub := root.Subgraph("submod_0")
	if sub == nil {
		t.Fatal("submod_0 missing")
	}
	if sub.Output() != nil {
		t.Error("segment with no escaping values must omit the output instruction")
	}
}

func TestSplit_TupleEscapeGetsGetitems(t *testing.T) {
	// Both a and b escape into the second segment.
	g := ir.NewGraph("main")
	mustAppend(t, g, &ir.Instruction{Name: "x", Kind: ir.KindInput})
	mustAppend(t, g, &ir.Instruction{Name: "a", Kind: ir.KindCall, Target: "neg",
		Args: []ir.Argument{ir.RefArg("x")}})
	mustAppend(t, g, &ir.Instruction{Name: "b", Kind: ir.KindCall, Target: "id",
		Args: []ir.Argument{ir.RefArg("x")}})
	mustAppend(t, g, &ir.Instruction{Name: "c", Kind: ir.KindCall, Target: "add",
		Args: []ir.Argument{ir.RefArg("a"), ir.RefArg("b")}})
	mustAppend(t, g, &ir.Instruction{Name: "out", Kind: ir.KindOutput,
		Args: []ir.Argument{ir.RefArg("c")}})

	root, err := Split(g, func(in *ir.Instruction) bool { return in.Name == "c" })
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	s0 := root.Subgraph("submod_0")
	out := s0.Output()
	if out == nil || !out.Tuple || len(out.Args) != 2 {
		t.Fatalf("submod_0 should return a 2-tuple, got %+v", out)
	}
	g0 := root.Find("getitem")
	g1 := root.Find("getitem_1")
	if g0 == nil || g1 == nil {
		t.Fatal("expected getitem / getitem_1 extract nodes")
	}
	if g0.Kind != ir.KindExtract || g0.Index != 0 || g1.Index != 1 {
		t.Errorf("extract nodes malformed: %+v %+v", g0, g1)
	}
}

func TestSplit_DoesNotMutateInput(t *testing.T) {
	g := buildChain(t)
	before := len(g.Insts)
	if _, err := Split(g, func(in *ir.Instruction) bool { return in.Name == "b" }); err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(g.Insts) != before || len(g.Subgraphs) != 0 {
		t.Error("Split mutated its input graph")
	}
}

func TestSplit_SubgraphTravelsWithInstruction(t *testing.T) {
	g := buildChain(t)
	inner := ir.NewGraph("")
	mustAppend(t, inner, &ir.Instruction{Name: "p", Kind: ir.KindInput})
	mustAppend(t, inner, &ir.Instruction{Name: "q", Kind: ir.KindCall, Target: "neg",
		Args: []ir.Argument{ir.RefArg("p")}})
	mustAppend(t, inner, &ir.Instruction{Name: "output", Kind: ir.KindOutput,
		Args: []ir.Argument{ir.RefArg("q")}})
	g.SetSubgraph("helper", inner)
	// replace c = neg(b) with c = invoke helper(b)
	c := g.Find("c")
	c.Kind = ir.KindInvoke
	c.Target = "helper"

	root, err := Split(g, func(in *ir.Instruction) bool { return in.Name == "c" })
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	s1 := root.Subgraph("submod_1")
	if s1 == nil || s1.Subgraph("helper") == nil {
		t.Error("helper subgraph did not travel into the segment that invokes it")
	}
}
