package rewrite

import "errors"

// All rewrite failures are fatal: the pass checks compiler-internal
// invariants, so a violation means a bug upstream, never a condition to
// recover from. The sentinels below categorize them for errors.Is.
var (
	// ErrMalformedNesting reports an exit marker that closes something
	// other than the innermost open scope, or closes nothing at all.
	ErrMalformedNesting = errors.New("malformed scope nesting")

	// ErrIncompleteScope reports a scope body holding an enter marker
	// without its matching exit.
	ErrIncompleteScope = errors.New("incomplete scope block")

	// ErrUnsupportedOutput reports a scope body whose result is neither
	// absent, a single value, nor a tuple.
	ErrUnsupportedOutput = errors.New("unsupported scope output shape")

	// ErrSpecMismatch reports an output specification that no longer
	// lines up with the rewritten graph's output arguments.
	ErrSpecMismatch = errors.New("output specification mismatch")
)
