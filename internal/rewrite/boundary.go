package rewrite

import (
	"fmt"

	"github.com/funvibe/graphir/internal/ir"
)

// tracker is the nesting-depth state machine behind the splitter
// callback. It keeps the stack of open enter markers and a flag forcing
// the instruction after an outermost exit into a fresh segment, so that
// every maximal top-level scope region lands in exactly one segment and
// nested regions stay embedded.
//
// The callback is boolean-only, so nesting violations are latched in err
// and surfaced by the driver once the split returns.
type tracker struct {
	stack     []string // names of open enter markers, innermost last
	breakNext bool     // previous instruction closed an outermost region
	err       error
}

func (t *tracker) startsNew(in *ir.Instruction) bool {
	if t.err != nil {
		return false
	}
	switch {
	case isEnter(in):
		// Only an outermost enter (or one right after a region closed)
		// opens a segment; nested enters just deepen the stack.
		fresh := t.breakNext || len(t.stack) == 0
		t.breakNext = false
		t.stack = append(t.stack, in.Name)
		return fresh

	case isExit(in):
		if len(t.stack) == 0 {
			t.err = fmt.Errorf("%w: exit %q closes no open scope", ErrMalformedNesting, in.Name)
			return false
		}
		top := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		ref := ""
		if len(in.Args) > 0 {
			ref = in.Args[0].Ref
		}
		if ref != top {
			t.err = fmt.Errorf("%w: exit %q closes %q but the innermost open scope is %q",
				ErrMalformedNesting, in.Name, ref, top)
			return false
		}
		if len(t.stack) == 0 {
			t.breakNext = true
		}
		return false

	default:
		if t.breakNext {
			t.breakNext = false
			return true
		}
		return false
	}
}
