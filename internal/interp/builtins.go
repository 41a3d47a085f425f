package interp

import (
	"fmt"
	"math"

	"github.com/funvibe/graphir/internal/config"
)

// Builtin is a callable operation usable as a call target.
type Builtin func(args []Value) (Value, error)

func scalarArgs(name string, args []Value, want int) ([]float64, error) {
	if len(args) != want {
		return nil, fmt.Errorf("%s expects %d argument(s), got %d", name, want, len(args))
	}
	out := make([]float64, len(args))
	for i, a := range args {
		s, ok := a.(Scalar)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d is %s, want scalar", name, i, a.Kind())
		}
		out[i] = float64(s)
	}
	return out, nil
}

func scalar2(name string, f func(a, b float64) float64) Builtin {
	return func(args []Value) (Value, error) {
		xs, err := scalarArgs(name, args, 2)
		if err != nil {
			return nil, err
		}
		return Scalar(f(xs[0], xs[1])), nil
	}
}

func scalar1(name string, f func(a float64) float64) Builtin {
	return func(args []Value) (Value, error) {
		xs, err := scalarArgs(name, args, 1)
		if err != nil {
			return nil, err
		}
		return Scalar(f(xs[0])), nil
	}
}

// Builtins is the default call-target registry.
var Builtins = map[string]Builtin{
	config.AddFuncName:  scalar2("add", func(a, b float64) float64 { return a + b }),
	config.SubFuncName:  scalar2("sub", func(a, b float64) float64 { return a - b }),
	config.MulFuncName:  scalar2("mul", func(a, b float64) float64 { return a * b }),
	config.DivFuncName:  scalar2("div", func(a, b float64) float64 { return a / b }),
	config.NegFuncName:  scalar1("neg", func(a float64) float64 { return -a }),
	config.SqrtFuncName: scalar1("sqrt", math.Sqrt),
	config.MinFuncName:  scalar2("min", math.Min),
	config.MaxFuncName:  scalar2("max", math.Max),
	config.FMAFuncName: func(args []Value) (Value, error) {
		xs, err := scalarArgs("fma", args, 3)
		if err != nil {
			return nil, err
		}
		return Scalar(math.FMA(xs[0], xs[1], xs[2])), nil
	},
	config.IdFuncName: func(args []Value) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("id expects 1 argument, got %d", len(args))
		}
		return args[0], nil
	},
}
