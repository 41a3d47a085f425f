package ir

import "fmt"

// LiteralKind tags the payload of a Literal.
type LiteralKind uint8

const (
	LitNil LiteralKind = iota
	LitFloat
	LitInt
	LitString
	LitBool
)

// Literal is an immediate constant usable as an instruction argument.
// Exactly one payload field is meaningful, selected by Kind.
type Literal struct {
	Kind  LiteralKind
	Float float64
	Int   int64
	Str   string
	Bool  bool
}

func NilLit() Literal            { return Literal{Kind: LitNil} }
func FloatLit(v float64) Literal { return Literal{Kind: LitFloat, Float: v} }
func IntLit(v int64) Literal     { return Literal{Kind: LitInt, Int: v} }
func StrLit(s string) Literal    { return Literal{Kind: LitString, Str: s} }
func BoolLit(b bool) Literal     { return Literal{Kind: LitBool, Bool: b} }

// Equal reports payload equality of two literals.
func (l Literal) Equal(o Literal) bool {
	if l.Kind != o.Kind {
		return false
	}
	switch l.Kind {
	case LitNil:
		return true
	case LitFloat:
		return l.Float == o.Float
	case LitInt:
		return l.Int == o.Int
	case LitString:
		return l.Str == o.Str
	case LitBool:
		return l.Bool == o.Bool
	}
	return false
}

func (l Literal) String() string {
	switch l.Kind {
	case LitNil:
		return "nil"
	case LitFloat:
		return fmt.Sprintf("%g", l.Float)
	case LitInt:
		return fmt.Sprintf("%d", l.Int)
	case LitString:
		return fmt.Sprintf("%q", l.Str)
	case LitBool:
		return fmt.Sprintf("%t", l.Bool)
	}
	return "?"
}

// Argument references the value produced by an earlier instruction (Ref)
// or carries an immediate Literal. An empty Ref means the literal is used.
type Argument struct {
	Ref string
	Lit Literal
}

// RefArg builds an argument referencing the named instruction.
func RefArg(name string) Argument { return Argument{Ref: name} }

// LitArg builds an immediate argument.
func LitArg(l Literal) Argument { return Argument{Lit: l} }

// NilArg builds an immediate nil argument (used for absent output slots).
func NilArg() Argument { return Argument{Lit: NilLit()} }

// IsRef reports whether the argument references another instruction.
func (a Argument) IsRef() bool { return a.Ref != "" }

// IsNil reports whether the argument is an immediate nil.
func (a Argument) IsNil() bool { return a.Ref == "" && a.Lit.Kind == LitNil }

func (a Argument) String() string {
	if a.IsRef() {
		return "%" + a.Ref
	}
	return a.Lit.String()
}

// ValueInfo is the static shape of a produced value.
type ValueInfo struct {
	Dtype string
	Dims  []int
}

// Metadata travels with an instruction through rewrites.
type Metadata struct {
	// Val describes the produced value(s); more than one entry means the
	// instruction produces a tuple.
	Val []ValueInfo

	// Scope is the provenance stack of enclosing region names, outermost
	// first. Propagated from scope-enter markers onto region nodes.
	Scope []string
}

// Clone returns a deep copy of the metadata.
func (m Metadata) Clone() Metadata {
	out := Metadata{}
	if m.Val != nil {
		out.Val = make([]ValueInfo, len(m.Val))
		for i, v := range m.Val {
			out.Val[i] = ValueInfo{Dtype: v.Dtype, Dims: append([]int(nil), v.Dims...)}
		}
	}
	if m.Scope != nil {
		out.Scope = append([]string(nil), m.Scope...)
	}
	return out
}

// Instruction is one node of a Graph. It is owned by exactly one graph and
// referenced from other instructions' arguments by name.
type Instruction struct {
	// Name is unique within the owning graph
	Name string

	Kind Kind

	// Target is the builtin name for KindCall, or the owned-subgraph name
	// for KindInvoke and KindRegion
	Target string

	Args []Argument

	// ScopeArgs are the saved scope-enter parameters (KindRegion only)
	ScopeArgs []Argument

	// Index is the tuple position for KindExtract
	Index int

	// Tuple marks a KindOutput whose Args form a tuple even when len == 1
	Tuple bool

	Meta Metadata
}

// Clone returns a deep copy of the instruction.
func (in *Instruction) Clone() *Instruction {
	out := &Instruction{
		Name:   in.Name,
		Kind:   in.Kind,
		Target: in.Target,
		Index:  in.Index,
		Tuple:  in.Tuple,
		Meta:   in.Meta.Clone(),
	}
	out.Args = append([]Argument(nil), in.Args...)
	out.ScopeArgs = append([]Argument(nil), in.ScopeArgs...)
	return out
}

// RefersTo reports whether any argument references the named instruction.
func (in *Instruction) RefersTo(name string) bool {
	for _, a := range in.Args {
		if a.Ref == name {
			return true
		}
	}
	for _, a := range in.ScopeArgs {
		if a.Ref == name {
			return true
		}
	}
	return false
}
