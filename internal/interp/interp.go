package interp

import (
	"fmt"

	"github.com/funvibe/graphir/internal/ir"
)

// scopeFrame is one open precision scope.
type scopeFrame struct {
	precision string
	enabled   bool
}

// Interpreter evaluates graphs. Precision scopes are dynamically scoped:
// the stack is shared across subgraph invocations, so a body executes
// under its caller's context.
type Interpreter struct {
	builtins map[string]Builtin
	scopes   []scopeFrame
}

// New creates an interpreter with the default builtin registry.
func New() *Interpreter {
	return &Interpreter{builtins: Builtins}
}

// Run evaluates g on the given input values and returns its result:
// the single output value, a Tuple for tuple outputs, or Nil when the
// graph has no output instruction.
func (it *Interpreter) Run(g *ir.Graph, args []Value) (Value, error) {
	inputs := g.Inputs()
	if len(args) != len(inputs) {
		return nil, fmt.Errorf("graph %s expects %d input(s), got %d", g.Name, len(inputs), len(args))
	}
	env := make(map[string]Value, len(g.Insts))
	for i, in := range inputs {
		env[in.Name] = args[i]
	}

	resolve := func(a ir.Argument) (Value, error) {
		if a.IsRef() {
			v, ok := env[a.Ref]
			if !ok {
				return nil, fmt.Errorf("graph %s: unbound value %q", g.Name, a.Ref)
			}
			return v, nil
		}
		switch a.Lit.Kind {
		case ir.LitNil:
			return Nil{}, nil
		case ir.LitFloat:
			return Scalar(a.Lit.Float), nil
		case ir.LitInt:
			return Scalar(float64(a.Lit.Int)), nil
		case ir.LitBool:
			if a.Lit.Bool {
				return Scalar(1), nil
			}
			return Scalar(0), nil
		default:
			return nil, fmt.Errorf("graph %s: string literal %s is not a runtime value", g.Name, a.Lit)
		}
	}
	resolveAll := func(as []ir.Argument) ([]Value, error) {
		out := make([]Value, len(as))
		for i, a := range as {
			v, err := resolve(a)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	// last tracks the most recent substantive result; an exit marker's
	// value stands for the result of the region it closes.
	var last Value = Nil{}

	for _, in := range g.Insts {
		switch in.Kind {
		case ir.KindInput:
			// bound above

		case ir.KindConst:
			v, err := resolve(in.Args[0])
			if err != nil {
				return nil, err
			}
			env[in.Name] = v
			last = v

		case ir.KindCall:
			fn, ok := it.builtins[in.Target]
			if !ok {
				return nil, fmt.Errorf("graph %s: unknown builtin %q", g.Name, in.Target)
			}
			vals, err := resolveAll(in.Args)
			if err != nil {
				return nil, err
			}
			v, err := fn(vals)
			if err != nil {
				return nil, fmt.Errorf("%s (%s): %w", in.Name, in.Target, err)
			}
			v = it.quantize(v)
			env[in.Name] = v
			last = v

		case ir.KindEnterScope:
			frame, err := scopeFrameFromArgs(in.Args)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", in.Name, err)
			}
			it.scopes = append(it.scopes, frame)
			env[in.Name] = Token{}

		case ir.KindExitScope:
			if len(it.scopes) == 0 {
				return nil, fmt.Errorf("%s: exit with no open scope", in.Name)
			}
			it.scopes = it.scopes[:len(it.scopes)-1]
			env[in.Name] = last

		case ir.KindInvoke:
			sub := g.Subgraph(in.Target)
			if sub == nil {
				return nil, fmt.Errorf("graph %s: unknown subgraph %q", g.Name, in.Target)
			}
			vals, err := resolveAll(in.Args)
			if err != nil {
				return nil, err
			}
			v, err := it.Run(sub, vals)
			if err != nil {
				return nil, err
			}
			env[in.Name] = v
			last = v

		case ir.KindRegion:
			sub := g.Subgraph(in.Target)
			if sub == nil {
				return nil, fmt.Errorf("graph %s: unknown region body %q", g.Name, in.Target)
			}
			frame, err := scopeFrameFromArgs(in.ScopeArgs)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", in.Name, err)
			}
			vals, err := resolveAll(in.Args)
			if err != nil {
				return nil, err
			}
			// enter scope, run body, exit scope
			it.scopes = append(it.scopes, frame)
			v, err := it.Run(sub, vals)
			it.scopes = it.scopes[:len(it.scopes)-1]
			if err != nil {
				return nil, err
			}
			env[in.Name] = v
			last = v

		case ir.KindExtract:
			src, err := resolve(in.Args[0])
			if err != nil {
				return nil, err
			}
			tup, ok := src.(Tuple)
			if !ok {
				return nil, fmt.Errorf("%s: extracting from %s, want tuple", in.Name, src.Kind())
			}
			if in.Index >= len(tup) {
				return nil, fmt.Errorf("%s: index %d out of range for %d-tuple", in.Name, in.Index, len(tup))
			}
			env[in.Name] = tup[in.Index]
			last = tup[in.Index]

		case ir.KindOutput:
			if in.Tuple {
				vals, err := resolveAll(in.Args)
				if err != nil {
					return nil, err
				}
				return Tuple(vals), nil
			}
			if len(in.Args) == 1 {
				return resolve(in.Args[0])
			}
			return Nil{}, nil
		}
	}
	return Nil{}, nil
}

// quantize rounds a scalar result to the active precision.
func (it *Interpreter) quantize(v Value) Value {
	if len(it.scopes) == 0 {
		return v
	}
	top := it.scopes[len(it.scopes)-1]
	if !top.enabled {
		return v
	}
	if s, ok := v.(Scalar); ok {
		return Scalar(roundTo(top.precision, float64(s)))
	}
	return v
}

func scopeFrameFromArgs(args []ir.Argument) (scopeFrame, error) {
	frame := scopeFrame{enabled: true}
	if len(args) == 0 {
		return frame, fmt.Errorf("scope has no precision parameter")
	}
	if args[0].IsRef() || args[0].Lit.Kind != ir.LitString {
		return frame, fmt.Errorf("scope precision must be an immediate string, got %s", args[0])
	}
	frame.precision = args[0].Lit.Str
	if len(args) > 1 {
		if args[1].IsRef() || args[1].Lit.Kind != ir.LitBool {
			return frame, fmt.Errorf("scope enable flag must be an immediate bool, got %s", args[1])
		}
		frame.enabled = args[1].Lit.Bool
	}
	return frame, nil
}
