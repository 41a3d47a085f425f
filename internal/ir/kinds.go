// Package ir implements the program-graph intermediate representation:
// ordered instruction graphs with named values, owned subgraphs and
// precision-scope markers.
package ir

// Kind identifies what an instruction does. The set is closed; every
// switch over Kind is expected to be exhaustive.
type Kind uint8

const (
	// KindInput is a graph parameter (placeholder)
	KindInput Kind = iota

	// KindConst materializes a literal value
	KindConst

	// KindCall invokes a builtin operation by name (Target)
	KindCall

	// KindEnterScope opens a precision scope; Args hold the scope parameters
	KindEnterScope

	// KindExitScope closes a precision scope; Args[0] references the
	// matching enter instruction
	KindExitScope

	// KindInvoke calls an owned subgraph (Target) with Args
	KindInvoke

	// KindExtract indexes into an invoke's tuple result (Args[0], Index)
	KindExtract

	// KindRegion runs an owned subgraph (Target) under a precision scope:
	// enter with ScopeArgs, run the body on Args, exit, return the results
	KindRegion

	// KindOutput terminates a graph; Args are the returned values
	KindOutput
)

var kindNames = [...]string{
	KindInput:      "input",
	KindConst:      "const",
	KindCall:       "call",
	KindEnterScope: "enter_scope",
	KindExitScope:  "exit_scope",
	KindInvoke:     "invoke",
	KindExtract:    "extract",
	KindRegion:     "region",
	KindOutput:     "output",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// KindFromString maps a textual op name back to its Kind.
// Returns KindOutput+1 sentinel and false for unknown names.
func KindFromString(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return Kind(len(kindNames)), false
}
