package grammar

import (
	"fmt"
	"slices"

	"treegp/internal/genome"
)

// DefinitionSet renumbers the node values of one type (or of the whole
// grammar) into a local space: terminals occupy [0, TerminalLimit) and
// functions [TerminalLimit, FunctionLimit). Drawing a uniform local value and
// mapping it back with NodeValue gives a weight-proportional, type-legal pick.
type DefinitionSet struct {
	typ           TypeID
	terminalStart genome.Value
	functionStart genome.Value
	terminalLimit genome.Value
	functionLimit genome.Value
}

func (s DefinitionSet) Type() TypeID {
	return s.typ
}

// TerminalLimit is the total terminal weight of the set.
func (s DefinitionSet) TerminalLimit() genome.Value {
	return s.terminalLimit
}

// FunctionLimit is the end of the local space: terminal plus function weight.
func (s DefinitionSet) FunctionLimit() genome.Value {
	return s.functionLimit
}

func (s DefinitionSet) HasTerminals() bool {
	return s.terminalLimit > 0
}

func (s DefinitionSet) HasFunctions() bool {
	return s.functionLimit > s.terminalLimit
}

// NodeValue maps a local value to the catalog's node value space.
func (s DefinitionSet) NodeValue(local genome.Value) genome.Value {
	if local >= s.functionLimit {
		panic(fmt.Sprintf("grammar: local value %d out of range [0, %d)", local, s.functionLimit))
	}
	if local < s.terminalLimit {
		return s.terminalStart + local
	}
	return s.functionStart + (local - s.terminalLimit)
}

// LocalValue is the inverse of NodeValue. It reports false for node values
// outside the set.
func (s DefinitionSet) LocalValue(v genome.Value) (genome.Value, bool) {
	if v >= s.terminalStart && v-s.terminalStart < s.terminalLimit {
		return v - s.terminalStart, true
	}
	funcWeight := s.functionLimit - s.terminalLimit
	if v >= s.functionStart && v-s.functionStart < funcWeight {
		return s.terminalLimit + (v - s.functionStart), true
	}
	return 0, false
}

// NamedSet is the group of definitions sharing one name, typically the same
// operator declared once per type.
type NamedSet struct {
	name string
	ids  []int
}

func (s NamedSet) Name() string {
	return s.name
}

func (s NamedSet) IDs() []int {
	return slices.Clone(s.ids)
}

func (s NamedSet) Empty() bool {
	return len(s.ids) == 0
}

// Contains reports whether the definition id belongs to the set.
func (s NamedSet) Contains(definitionID int) bool {
	return slices.Contains(s.ids, definitionID)
}
