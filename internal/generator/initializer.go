package generator

import (
	"fmt"
	"math"

	"treegp/internal/genome"
	"treegp/internal/grammar"
)

// Options controls population seeding.
type Options struct {
	MaxDepth       int
	PopulationSize int
}

func (o Options) validate() error {
	if o.MaxDepth < 1 {
		return fmt.Errorf("max depth must be >= 1, got %d", o.MaxDepth)
	}
	if o.PopulationSize <= 0 {
		return fmt.Errorf("population size must be > 0, got %d", o.PopulationSize)
	}
	return nil
}

// Initializer seeds a population, handing each new tree to consume.
type Initializer interface {
	Initialize(opts Options, consume func(*genome.Tree)) error
}

// Delegate can take over tree construction during ramped half-and-half
// seeding, for example to force a root structure. Returning false falls back
// to the default generator.
type Delegate interface {
	GenerateFull(g *Generator, b *genome.Builder, maxDepth int) bool
	GenerateGrow(g *Generator, b *genome.Builder, maxDepth int) bool
}

// TypedRoot is a Delegate that roots every seeded tree at one type.
type TypedRoot struct {
	Type grammar.TypeID
}

func (d TypedRoot) GenerateFull(g *Generator, b *genome.Builder, maxDepth int) bool {
	g.GenerateFull(b, maxDepth, d.Type)
	return true
}

func (d TypedRoot) GenerateGrow(g *Generator, b *genome.Builder, maxDepth int) bool {
	g.GenerateGrow(b, maxDepth, d.Type)
	return true
}

// RampedHalfAndHalf seeds the first half of the population with Full trees
// and the second half with Grow trees. Within each half the depth ramps from
// 1 towards MaxDepth.
type RampedHalfAndHalf struct {
	gen      *Generator
	delegate Delegate
}

func NewRampedHalfAndHalf(gen *Generator, delegate Delegate) *RampedHalfAndHalf {
	return &RampedHalfAndHalf{gen: gen, delegate: delegate}
}

func (r *RampedHalfAndHalf) Initialize(opts Options, consume func(*genome.Tree)) error {
	if err := opts.validate(); err != nil {
		return err
	}
	half := opts.PopulationSize / 2
	for i := 0; i < half; i++ {
		consume(r.build(Full, RampDepth(i, opts)))
	}
	for i := 0; i < opts.PopulationSize-half; i++ {
		consume(r.build(Grow, RampDepth(i, opts)))
	}
	return nil
}

// RampDepth is the depth of the i-th tree of a half:
// floor(1 + i*(MaxDepth-1)/(PopulationSize/2)).
func RampDepth(i int, opts Options) int {
	halfSize := float64(opts.PopulationSize) / 2
	return int(math.Floor(1 + float64(i)*float64(opts.MaxDepth-1)/halfSize))
}

func (r *RampedHalfAndHalf) build(strategy Strategy, depth int) *genome.Tree {
	tree := genome.New()
	b := genome.NewBuilder(tree)
	handled := false
	if r.delegate != nil {
		if strategy == Full {
			handled = r.delegate.GenerateFull(r.gen, b, depth)
		} else {
			handled = r.delegate.GenerateGrow(r.gen, b, depth)
		}
	}
	if !handled {
		r.gen.Generate(b, depth, strategy, grammar.NoType)
	}
	return tree
}
