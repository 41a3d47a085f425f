package ir

import "fmt"

// OutputEntry pairs an externally declared output name with the graph
// value producing it. Value is empty for declared-but-absent outputs.
type OutputEntry struct {
	Declared string
	Value    string
}

// OutputSpec is the externally visible naming of a graph's results, in
// output-argument order. Rewrites that rename the values feeding the
// output must keep the spec in sync.
type OutputSpec struct {
	Entries []OutputEntry
}

// Clone returns a deep copy of the spec.
func (s *OutputSpec) Clone() *OutputSpec {
	if s == nil {
		return nil
	}
	out := &OutputSpec{Entries: make([]OutputEntry, len(s.Entries))}
	copy(out.Entries, s.Entries)
	return out
}

// Validate checks that every non-absent entry resolves to an instruction
// of the graph.
func (s *OutputSpec) Validate(g *Graph) error {
	if s == nil {
		return nil
	}
	for i, e := range s.Entries {
		if e.Value == "" {
			continue
		}
		if g.Find(e.Value) == nil {
			return fmt.Errorf("output spec entry %d (%q): value %q not found in graph", i, e.Declared, e.Value)
		}
	}
	return nil
}
