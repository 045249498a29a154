package grammar

import (
	"fmt"

	"treegp/internal/genome"
)

// TypeID identifies a declared type by its position in the catalog's type list.
type TypeID int

// NoType selects the global, unconstrained view of a catalog.
const NoType TypeID = -1

// Type names a GP node type. Types are resolved to TypeIDs by the catalog
// that declares them.
type Type struct {
	name string
}

func NewType(name string) Type {
	return Type{name: name}
}

func (t Type) Name() string {
	return t.name
}

type Kind int

const (
	KindTerminal Kind = iota
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindTerminal:
		return "terminal"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Declaration describes a definition before it is placed in a catalog.
type Declaration struct {
	Name   string
	Kind   Kind
	Type   Type
	Args   []Type
	Weight uint32
}

func Terminal(name string, typ Type, weight uint32) Declaration {
	return Declaration{Name: name, Kind: KindTerminal, Type: typ, Weight: weight}
}

func Unary(name string, typ Type, arg Type, weight uint32) Declaration {
	return Function(name, typ, []Type{arg}, weight)
}

func Binary(name string, typ Type, args [2]Type, weight uint32) Declaration {
	return Function(name, typ, args[:], weight)
}

func Ternary(name string, typ Type, args [3]Type, weight uint32) Declaration {
	return Function(name, typ, args[:], weight)
}

func Function(name string, typ Type, args []Type, weight uint32) Declaration {
	return Declaration{Name: name, Kind: KindFunction, Type: typ, Args: append([]Type(nil), args...), Weight: weight}
}

// Definition is a declaration placed in a catalog: it owns the node values
// [NodeValue(), NodeValue()+Weight()).
type Definition struct {
	name   string
	kind   Kind
	typ    TypeID
	args   []TypeID
	weight uint32
	id     int
	start  genome.Value
}

func (d *Definition) Name() string {
	return d.name
}

func (d *Definition) Kind() Kind {
	return d.kind
}

func (d *Definition) IsTerminal() bool {
	return d.kind == KindTerminal
}

func (d *Definition) IsFunction() bool {
	return d.kind == KindFunction
}

func (d *Definition) Type() TypeID {
	return d.typ
}

func (d *Definition) Arity() int {
	return len(d.args)
}

// ArgType returns the type required for argument i.
func (d *Definition) ArgType(i int) TypeID {
	return d.args[i]
}

func (d *Definition) Weight() uint32 {
	return d.weight
}

// ID is the definition's index in catalog order.
func (d *Definition) ID() int {
	return d.id
}

// NodeValue is the first node value owned by the definition.
func (d *Definition) NodeValue() genome.Value {
	return d.start
}

// Contains reports whether v falls in the definition's node value range.
func (d *Definition) Contains(v genome.Value) bool {
	return v >= d.start && v-d.start < genome.Value(d.weight)
}

// Offset returns v's position inside the definition's range. Problems use it
// to split one weighted definition into several variants.
func (d *Definition) Offset(v genome.Value) uint32 {
	if !d.Contains(v) {
		panic(fmt.Sprintf("grammar: value %d outside definition %q range [%d, %d)", v, d.name, d.start, d.start+genome.Value(d.weight)))
	}
	return uint32(v - d.start)
}

func (d *Definition) String() string {
	return fmt.Sprintf("%s %q type=%d arity=%d weight=%d values=[%d,%d)", d.kind, d.name, d.typ, len(d.args), d.weight, d.start, d.start+genome.Value(d.weight))
}
