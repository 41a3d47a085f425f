package graphir_test

import (
	"context"
	"math"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/graphir/internal/remote"
	"github.com/funvibe/graphir/pkg/graphir"
)

const scopedDoc = `
graph: main
inputs: [x]
instructions:
  - name: a
    op: call
    target: neg
    args: ["%x"]
  - name: b
    op: enter_scope
    args: ["f16", true]
  - name: c
    op: call
    target: mul
    args: ["%a", "%a"]
  - name: d
    op: exit_scope
    args: ["%b"]
  - name: e
    op: call
    target: add
    args: ["%d", 1.0]
  - name: out
    op: output
    args: ["%e"]
`

func TestEngine_Rewrite(t *testing.T) {
	e, err := graphir.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	out, err := e.Rewrite(context.Background(), []byte(scopedDoc))
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	text := string(out)
	if !strings.Contains(text, "region") {
		t.Errorf("rewritten document has no region op:\n%s", text)
	}
	if strings.Contains(text, "enter_scope") || strings.Contains(text, "exit_scope") {
		t.Errorf("rewritten document still has markers:\n%s", text)
	}
}

func TestEngine_Exec(t *testing.T) {
	e, err := graphir.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	// neg(3) = -3, squared in f16 is 9, plus 1 is 10. All values are
	// exactly representable in half precision.
	got, err := e.Exec(context.Background(), []byte(scopedDoc), []float64{3})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if len(got) != 1 || math.Abs(got[0]-10) > 1e-12 {
		t.Errorf("Exec result = %v, want [10]", got)
	}
}

func TestEngine_WithCache(t *testing.T) {
	dir := t.TempDir()
	e, err := graphir.New(graphir.WithCache(dir))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	first, err := e.Rewrite(context.Background(), []byte(scopedDoc))
	if err != nil {
		t.Fatalf("first Rewrite: %v", err)
	}
	second, err := e.Rewrite(context.Background(), []byte(scopedDoc))
	if err != nil {
		t.Fatalf("second Rewrite: %v", err)
	}
	if string(first) != string(second) {
		t.Error("cached rewrite differs from fresh rewrite")
	}
}

func TestEngine_WithRemote(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := remote.NewServer()
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	e, err := graphir.New(graphir.WithRemote(lis.Addr().String()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	out, err := e.Rewrite(context.Background(), []byte(scopedDoc))
	if err != nil {
		t.Fatalf("remote Rewrite: %v", err)
	}
	if !strings.Contains(string(out), "region") {
		t.Errorf("remote rewrite has no region op:\n%s", out)
	}
}

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.gir.yaml")
	if err := os.WriteFile(path, []byte(scopedDoc), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestEngine_RewriteFile(t *testing.T) {
	e, err := graphir.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	out, err := e.RewriteFile(context.Background(), writeDoc(t))
	if err != nil {
		t.Fatalf("RewriteFile: %v", err)
	}
	if !strings.Contains(string(out), "region") {
		t.Errorf("rewritten file has no region op:\n%s", out)
	}
}

func TestEngine_ExecFile(t *testing.T) {
	e, err := graphir.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	got, err := e.ExecFile(context.Background(), writeDoc(t), []float64{3})
	if err != nil {
		t.Fatalf("ExecFile: %v", err)
	}
	if len(got) != 1 || math.Abs(got[0]-10) > 1e-12 {
		t.Errorf("ExecFile result = %v, want [10]", got)
	}
}

func TestEngine_PrintFile(t *testing.T) {
	e, err := graphir.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	text, err := e.PrintFile(writeDoc(t), false)
	if err != nil {
		t.Fatalf("PrintFile: %v", err)
	}
	if !strings.Contains(text, "enter_scope") {
		t.Errorf("printed file lacks markers:\n%s", text)
	}
	if _, err := e.PrintFile(filepath.Join(t.TempDir(), "absent.gir.yaml"), false); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEngine_Print(t *testing.T) {
	e, err := graphir.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	text, err := e.Print([]byte(scopedDoc), false)
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	if !strings.Contains(text, "enter_scope") {
		t.Errorf("printed original lacks markers:\n%s", text)
	}
}
