// Package interp is the reference interpreter for graph IR: it fixes the
// execution semantics of precision scopes so graph rewrites can be
// checked for observational equivalence.
package interp

import (
	"fmt"
	"strings"
)

// Value is the runtime representation of an instruction's result.
type Value interface {
	Kind() string
	String() string
}

// Scalar is a numeric value. All arithmetic runs on float64 and is
// rounded to the active scope precision afterwards.
type Scalar float64

func (s Scalar) Kind() string   { return "scalar" }
func (s Scalar) String() string { return fmt.Sprintf("%g", float64(s)) }

// Tuple is an ordered group of values, produced by tuple outputs.
type Tuple []Value

func (t Tuple) Kind() string { return "tuple" }
func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Token is the opaque value yielded by a scope-enter marker and consumed
// by its exit.
type Token struct{}

func (Token) Kind() string   { return "token" }
func (Token) String() string { return "<scope token>" }

// Nil is the absence of a value.
type Nil struct{}

func (Nil) Kind() string   { return "nil" }
func (Nil) String() string { return "nil" }
