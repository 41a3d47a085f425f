// Package printer renders graphs as readable text, one instruction per
// line with owned subgraphs indented below their parent.
package printer

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/funvibe/graphir/internal/ir"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiCyan   = "\x1b[36m"
	ansiYellow = "\x1b[33m"
	ansiGreen  = "\x1b[32m"
)

// Printer renders graphs. Color output is opt-in; callers decide based
// on whether stdout is a terminal.
type Printer struct {
	color bool
	buf   bytes.Buffer
}

func New(color bool) *Printer {
	return &Printer{color: color}
}

func (p *Printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + ansiReset
}

// Print renders g and all its subgraphs.
func (p *Printer) Print(g *ir.Graph) string {
	p.buf.Reset()
	p.printGraph(g, 0, "graph")
	return p.buf.String()
}

func (p *Printer) printGraph(g *ir.Graph, depth int, label string) {
	pad := strings.Repeat("  ", depth)
	name := g.Name
	if name == "" {
		name = "<anonymous>"
	}
	var inputs []string
	for _, in := range g.Inputs() {
		inputs = append(inputs, in.Name)
	}
	fmt.Fprintf(&p.buf, "%s%s %s(%s):\n", pad, p.paint(ansiBold, label), name, strings.Join(inputs, ", "))

	for _, in := range g.Insts {
		if in.Kind == ir.KindInput {
			continue
		}
		fmt.Fprintf(&p.buf, "%s  %s\n", pad, p.instruction(in))
	}

	names := make([]string, 0, len(g.Subgraphs))
	for n := range g.Subgraphs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		child := g.Subgraphs[n]
		saved := child.Name
		child.Name = n
		p.printGraph(child, depth+1, "subgraph")
		child.Name = saved
	}
}

func (p *Printer) instruction(in *ir.Instruction) string {
	args := make([]string, len(in.Args))
	for i, a := range in.Args {
		args[i] = p.arg(a)
	}
	joined := strings.Join(args, ", ")

	switch in.Kind {
	case ir.KindConst:
		return fmt.Sprintf("%s = %s %s", in.Name, p.paint(ansiCyan, "const"), joined)
	case ir.KindCall:
		return fmt.Sprintf("%s = %s %s(%s)", in.Name, p.paint(ansiCyan, "call"), in.Target, joined)
	case ir.KindEnterScope:
		return fmt.Sprintf("%s = %s[%s]", in.Name, p.paint(ansiYellow, "enter_scope"), joined)
	case ir.KindExitScope:
		return fmt.Sprintf("%s = %s(%s)", in.Name, p.paint(ansiYellow, "exit_scope"), joined)
	case ir.KindInvoke:
		return fmt.Sprintf("%s = %s %s(%s)", in.Name, p.paint(ansiCyan, "invoke"), in.Target, joined)
	case ir.KindExtract:
		return fmt.Sprintf("%s = %s %s[%d]", in.Name, p.paint(ansiCyan, "extract"), joined, in.Index)
	case ir.KindRegion:
		scope := make([]string, len(in.ScopeArgs))
		for i, a := range in.ScopeArgs {
			scope[i] = p.arg(a)
		}
		return fmt.Sprintf("%s = %s[%s] %s(%s)", in.Name,
			p.paint(ansiYellow, "region"), strings.Join(scope, ", "), in.Target, joined)
	case ir.KindOutput:
		if in.Tuple {
			return fmt.Sprintf("%s (%s)", p.paint(ansiGreen, "output"), joined)
		}
		return fmt.Sprintf("%s %s", p.paint(ansiGreen, "output"), joined)
	default:
		return fmt.Sprintf("%s = %s %s", in.Name, in.Kind, joined)
	}
}

func (p *Printer) arg(a ir.Argument) string {
	if a.IsRef() {
		return "%" + a.Ref
	}
	return a.Lit.String()
}
