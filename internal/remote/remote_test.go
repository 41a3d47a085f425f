package remote

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/funvibe/graphir/internal/ir"
)

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewServer()
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)
	return srv, lis.Addr().String()
}

func mustAppend(t *testing.T, g *ir.Graph, in *ir.Instruction) {
	t.Helper()
	if err := g.Append(in); err != nil {
		t.Fatalf("Append(%s): %v", in.Name, err)
	}
}

func scopedBundle(t *testing.T) *ir.Bundle {
	t.Helper()
	g := ir.NewGraph("main")
	mustAppend(t, g, &ir.Instruction{Name: "x", Kind: ir.KindInput})
	mustAppend(t, g, &ir.Instruction{Name: "a", Kind: ir.KindCall, Target: "neg",
		Args: []ir.Argument{ir.RefArg("x")}})
	mustAppend(t, g, &ir.Instruction{Name: "b", Kind: ir.KindEnterScope,
		Args: []ir.Argument{ir.LitArg(ir.StrLit("f16")), ir.LitArg(ir.BoolLit(true))}})
	mustAppend(t, g, &ir.Instruction{Name: "c", Kind: ir.KindCall, Target: "mul",
		Args: []ir.Argument{ir.RefArg("a"), ir.RefArg("a")}})
	mustAppend(t, g, &ir.Instruction{Name: "d", Kind: ir.KindExitScope,
		Args: []ir.Argument{ir.RefArg("b")}})
	mustAppend(t, g, &ir.Instruction{Name: "out", Kind: ir.KindOutput,
		Args: []ir.Argument{ir.RefArg("d")}})
	return &ir.Bundle{Root: g}
}

func TestRemoteRewrite_RoundTrip(t *testing.T) {
	_, addr := startServer(t)

	client, err := Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := client.Rewrite(ctx, scopedBundle(t))
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	var region *ir.Instruction
	for _, in := range out.Root.Insts {
		if in.Kind == ir.KindRegion {
			region = in
		}
		if in.Kind == ir.KindEnterScope || in.Kind == ir.KindExitScope {
			t.Errorf("marker %s survived remote rewrite", in.Name)
		}
	}
	if region == nil {
		t.Fatal("no region node in remote rewrite result")
	}
	if out.Root.Subgraph(region.Target) == nil {
		t.Errorf("region body %q missing from result", region.Target)
	}
}

func TestRemoteRewrite_MalformedReported(t *testing.T) {
	_, addr := startServer(t)

	client, err := Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	g := ir.NewGraph("main")
	mustAppend(t, g, &ir.Instruction{Name: "x", Kind: ir.KindInput})
	mustAppend(t, g, &ir.Instruction{Name: "b", Kind: ir.KindEnterScope,
		Args: []ir.Argument{ir.LitArg(ir.StrLit("f16")), ir.LitArg(ir.BoolLit(true))}})
	mustAppend(t, g, &ir.Instruction{Name: "out", Kind: ir.KindOutput,
		Args: []ir.Argument{ir.RefArg("x")}})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = client.Rewrite(ctx, &ir.Bundle{Root: g})
	if err == nil {
		t.Fatal("expected error for unclosed scope")
	}
	if st, ok := status.FromError(err); !ok || st.Code() != codes.InvalidArgument {
		t.Errorf("status = %v, want InvalidArgument", err)
	}
}

func TestGobCodec_RoundTrip(t *testing.T) {
	c := gobCodec{}
	in := &RewriteRequest{Bundle: []byte{1, 2, 3}}
	data, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := new(RewriteRequest)
	if err := c.Unmarshal(data, out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(out.Bundle) != string(in.Bundle) {
		t.Errorf("payload changed: %v vs %v", out.Bundle, in.Bundle)
	}
}
