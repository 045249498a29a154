package generator

import (
	"fmt"
	"math/rand"

	"treegp/internal/genome"
	"treegp/internal/grammar"
)

// Strategy selects how a random tree fills its depth budget.
type Strategy int

const (
	// Full draws only functions until the depth budget is spent.
	Full Strategy = iota
	// Grow draws from terminals and functions alike, so branches may stop early.
	Grow
)

func (s Strategy) String() string {
	switch s {
	case Full:
		return "full"
	case Grow:
		return "grow"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Generator builds random trees that respect a grammar's types and weights.
type Generator struct {
	catalog *grammar.Catalog
	rng     *rand.Rand
}

func New(catalog *grammar.Catalog, rng *rand.Rand) (*Generator, error) {
	if catalog == nil {
		return nil, fmt.Errorf("grammar catalog is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if catalog.TerminalLimit() == 0 {
		return nil, fmt.Errorf("grammar has no terminals")
	}
	return &Generator{catalog: catalog, rng: rng}, nil
}

func (g *Generator) Catalog() *grammar.Catalog {
	return g.catalog
}

// uniform draws from [lo, hi).
func (g *Generator) uniform(lo, hi genome.Value) genome.Value {
	return lo + genome.Value(g.rng.Int63n(int64(hi-lo)))
}

func (g *Generator) RandomTerminalValue() genome.Value {
	return g.uniform(0, g.catalog.TerminalLimit())
}

func (g *Generator) RandomFunctionValue() genome.Value {
	return g.uniform(g.catalog.TerminalLimit(), g.catalog.NodeLimit())
}

func (g *Generator) RandomNodeValue() genome.Value {
	return g.uniform(0, g.catalog.NodeLimit())
}

func (g *Generator) RandomTerminalValueIn(set grammar.DefinitionSet) genome.Value {
	return set.NodeValue(g.uniform(0, set.TerminalLimit()))
}

func (g *Generator) RandomFunctionValueIn(set grammar.DefinitionSet) genome.Value {
	return set.NodeValue(g.uniform(set.TerminalLimit(), set.FunctionLimit()))
}

func (g *Generator) RandomNodeValueIn(set grammar.DefinitionSet) genome.Value {
	return set.NodeValue(g.uniform(0, set.FunctionLimit()))
}

// Generate appends a random sub-tree of type typ (grammar.NoType for any) to b.
//
// A type without terminals always yields a function node, even once maxDepth
// is exhausted, so such trees can exceed the requested depth. A type without
// functions yields a terminal whatever the strategy.
func (g *Generator) Generate(b *genome.Builder, maxDepth int, strategy Strategy, typ grammar.TypeID) {
	set := g.catalog.DefinitionSet(typ)
	if !set.HasTerminals() && !set.HasFunctions() {
		panic(fmt.Sprintf("generator: type %q has no definitions", g.catalog.TypeName(typ)))
	}
	if (maxDepth <= 1 || !set.HasFunctions()) && set.HasTerminals() {
		b.Add(g.RandomTerminalValueIn(set))
		return
	}

	var value genome.Value
	if strategy == Full {
		value = g.RandomFunctionValueIn(set)
	} else {
		value = g.RandomNodeValueIn(set)
	}
	def := g.catalog.DefinitionForValue(value)
	if def.IsTerminal() {
		b.Add(value)
		return
	}
	b.Push(value)
	for i := 0; i < def.Arity(); i++ {
		g.Generate(b, maxDepth-1, strategy, def.ArgType(i))
	}
	b.Pop()
}

// GenerateFull appends a tree whose every branch reaches maxDepth when the
// grammar allows it.
func (g *Generator) GenerateFull(b *genome.Builder, maxDepth int, typ grammar.TypeID) {
	g.Generate(b, maxDepth, Full, typ)
}

// GenerateGrow appends a tree of depth at most maxDepth (see Generate for the
// exception).
func (g *Generator) GenerateGrow(b *genome.Builder, maxDepth int, typ grammar.TypeID) {
	g.Generate(b, maxDepth, Grow, typ)
}

// Tree returns a new random tree.
func (g *Generator) Tree(maxDepth int, strategy Strategy, typ grammar.TypeID) *genome.Tree {
	tree := genome.New()
	g.Generate(genome.NewBuilder(tree), maxDepth, strategy, typ)
	return tree
}
