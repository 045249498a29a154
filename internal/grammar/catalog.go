package grammar

import (
	"errors"
	"fmt"
	"iter"
	"sort"

	"treegp/internal/genome"
)

var ErrInvalidGrammar = errors.New("invalid grammar")

// span is a half-open range of definition indices.
type span struct {
	from, to int
}

// Catalog holds the typed definitions of a grammar. Definitions are ordered
// terminals first, then functions; within a kind they are grouped by type in
// type declaration order and keep their declaration order inside a type.
// Node values are assigned to that order by cumulative weight starting at 0.
type Catalog struct {
	types       []string
	typeIDs     map[string]TypeID
	defs        []Definition
	byName      map[string][]int
	terminals   []span // per type
	functions   []span // per type
	terminalEnd int    // index of the first function definition

	terminalLimit genome.Value
	functionLimit genome.Value
}

// MustCatalog is NewCatalog for grammars declared as package-level values.
func MustCatalog(types []Type, decls []Declaration) *Catalog {
	c, err := NewCatalog(types, decls)
	if err != nil {
		panic(err)
	}
	return c
}

func NewCatalog(types []Type, decls []Declaration) (*Catalog, error) {
	c := &Catalog{
		types:     make([]string, 0, len(types)),
		typeIDs:   make(map[string]TypeID, len(types)),
		byName:    make(map[string][]int, len(decls)),
		terminals: make([]span, len(types)),
		functions: make([]span, len(types)),
	}
	for _, t := range types {
		if _, dup := c.typeIDs[t.name]; dup {
			return nil, fmt.Errorf("%w: duplicate type %q", ErrInvalidGrammar, t.name)
		}
		c.typeIDs[t.name] = TypeID(len(c.types))
		c.types = append(c.types, t.name)
	}

	// Bucket declarations by kind and type, preserving declaration order.
	buckets := [2][][]Definition{make([][]Definition, len(types)), make([][]Definition, len(types))}
	for i, decl := range decls {
		def, err := c.resolve(decl)
		if err != nil {
			return nil, fmt.Errorf("declaration %d: %w", i, err)
		}
		buckets[decl.Kind][def.typ] = append(buckets[decl.Kind][def.typ], def)
	}

	var next genome.Value
	for kind, byType := range buckets {
		for typ, defs := range byType {
			from := len(c.defs)
			for _, def := range defs {
				def.id = len(c.defs)
				def.start = next
				next += genome.Value(def.weight)
				c.byName[def.name] = append(c.byName[def.name], def.id)
				c.defs = append(c.defs, def)
			}
			if Kind(kind) == KindTerminal {
				c.terminals[typ] = span{from, len(c.defs)}
			} else {
				c.functions[typ] = span{from, len(c.defs)}
			}
		}
		if Kind(kind) == KindTerminal {
			c.terminalEnd = len(c.defs)
			c.terminalLimit = next
		}
	}
	c.functionLimit = next - c.terminalLimit
	return c, nil
}

func (c *Catalog) resolve(decl Declaration) (Definition, error) {
	typ, ok := c.typeIDs[decl.Type.name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q has undeclared type %q", ErrInvalidGrammar, decl.Name, decl.Type.name)
	}
	if decl.Weight == 0 {
		return Definition{}, fmt.Errorf("%w: %q has zero weight", ErrInvalidGrammar, decl.Name)
	}
	switch decl.Kind {
	case KindTerminal:
		if len(decl.Args) != 0 {
			return Definition{}, fmt.Errorf("%w: terminal %q declares %d arguments", ErrInvalidGrammar, decl.Name, len(decl.Args))
		}
	case KindFunction:
		if len(decl.Args) == 0 {
			return Definition{}, fmt.Errorf("%w: function %q declares no arguments", ErrInvalidGrammar, decl.Name)
		}
	default:
		return Definition{}, fmt.Errorf("%w: %q has unknown kind %d", ErrInvalidGrammar, decl.Name, decl.Kind)
	}
	args := make([]TypeID, len(decl.Args))
	for i, arg := range decl.Args {
		id, ok := c.typeIDs[arg.name]
		if !ok {
			return Definition{}, fmt.Errorf("%w: %q argument %d has undeclared type %q", ErrInvalidGrammar, decl.Name, i, arg.name)
		}
		args[i] = id
	}
	return Definition{name: decl.Name, kind: decl.Kind, typ: typ, args: args, weight: decl.Weight}, nil
}

// TerminalLimit is the sum of all terminal weights; terminal node values are [0, TerminalLimit).
func (c *Catalog) TerminalLimit() genome.Value {
	return c.terminalLimit
}

// FunctionLimit is the sum of all function weights.
func (c *Catalog) FunctionLimit() genome.Value {
	return c.functionLimit
}

// NodeLimit bounds every node value of the grammar.
func (c *Catalog) NodeLimit() genome.Value {
	return c.terminalLimit + c.functionLimit
}

func (c *Catalog) Len() int {
	return len(c.defs)
}

// Definition returns the definition with the given catalog id.
func (c *Catalog) Definition(id int) *Definition {
	return &c.defs[id]
}

// Definitions iterates every definition in catalog order.
func (c *Catalog) Definitions() iter.Seq[*Definition] {
	return c.rangeOf(span{0, len(c.defs)})
}

// DefinitionForValue returns the definition owning node value v.
func (c *Catalog) DefinitionForValue(v genome.Value) *Definition {
	if v >= c.NodeLimit() {
		panic(fmt.Sprintf("grammar: node value %d out of range [0, %d)", v, c.NodeLimit()))
	}
	i := sort.Search(len(c.defs), func(i int) bool {
		return c.defs[i].start+genome.Value(c.defs[i].weight) > v
	})
	return &c.defs[i]
}

// DefinitionForNode is DefinitionForValue applied to a node's stored value.
func (c *Catalog) DefinitionForNode(n genome.Node) *Definition {
	return c.DefinitionForValue(n.Value())
}

// TypeOf returns the type of the definition owning node value v.
func (c *Catalog) TypeOf(v genome.Value) TypeID {
	return c.DefinitionForValue(v).typ
}

// Lookup returns the first definition named name in catalog order.
func (c *Catalog) Lookup(name string) (*Definition, bool) {
	ids := c.byName[name]
	if len(ids) == 0 {
		return nil, false
	}
	return &c.defs[ids[0]], true
}

// Named returns every definition sharing name, across types.
func (c *Catalog) Named(name string) NamedSet {
	return NamedSet{name: name, ids: append([]int(nil), c.byName[name]...)}
}

func (c *Catalog) TypeByName(name string) (TypeID, bool) {
	id, ok := c.typeIDs[name]
	if !ok {
		return NoType, false
	}
	return id, true
}

func (c *Catalog) TypeName(id TypeID) string {
	if id == NoType {
		return "<any>"
	}
	return c.types[id]
}

func (c *Catalog) TypeCount() int {
	return len(c.types)
}

// TerminalsFor iterates the terminals of type t (all terminals for NoType)
// in declaration order.
func (c *Catalog) TerminalsFor(t TypeID) iter.Seq[*Definition] {
	if t == NoType {
		return c.rangeOf(span{0, c.terminalEnd})
	}
	return c.rangeOf(c.terminals[t])
}

// FunctionsFor iterates the functions of type t (all functions for NoType)
// in declaration order.
func (c *Catalog) FunctionsFor(t TypeID) iter.Seq[*Definition] {
	if t == NoType {
		return c.rangeOf(span{c.terminalEnd, len(c.defs)})
	}
	return c.rangeOf(c.functions[t])
}

func (c *Catalog) rangeOf(s span) iter.Seq[*Definition] {
	return func(yield func(*Definition) bool) {
		for i := s.from; i < s.to; i++ {
			if !yield(&c.defs[i]) {
				return
			}
		}
	}
}

// DefinitionSet returns the node value view for type t, or the global view
// for NoType.
func (c *Catalog) DefinitionSet(t TypeID) DefinitionSet {
	if t == NoType {
		return DefinitionSet{
			typ:           NoType,
			terminalStart: 0,
			functionStart: c.terminalLimit,
			terminalLimit: c.terminalLimit,
			functionLimit: c.NodeLimit(),
		}
	}
	if t < 0 || int(t) >= len(c.types) {
		panic(fmt.Sprintf("grammar: type id %d out of range [0, %d)", t, len(c.types)))
	}
	terms, funcs := c.terminals[t], c.functions[t]
	set := DefinitionSet{typ: t}
	set.terminalStart, set.terminalLimit = c.valueRange(terms)
	var funcWeight genome.Value
	set.functionStart, funcWeight = c.valueRange(funcs)
	set.functionLimit = set.terminalLimit + funcWeight
	return set
}

// valueRange returns the first node value and total weight of a definition span.
func (c *Catalog) valueRange(s span) (genome.Value, genome.Value) {
	if s.from == s.to {
		return 0, 0
	}
	first, last := &c.defs[s.from], &c.defs[s.to-1]
	return first.start, last.start + genome.Value(last.weight) - first.start
}
