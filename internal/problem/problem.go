package problem

import (
	"context"
	"math"

	"treegp/internal/generator"
	"treegp/internal/genome"
	"treegp/internal/grammar"
	"treegp/internal/render"
)

// Problem bundles a grammar with the fitness function and renderers used to
// evolve programs for it.
type Problem interface {
	Name() string
	Catalog() *grammar.Catalog
	// Fitness scores a whole generation; larger is better.
	Fitness(ctx context.Context, individuals []*genome.Tree) ([]float64, error)
	// Initializer seeds the starting population from gen.
	Initializer(gen *generator.Generator) generator.Initializer
	Printer() *render.Printer
	Compiler() *render.Compiler
	Defaults() Defaults
}

// Defaults are the run parameters a problem is known to converge with.
type Defaults struct {
	PopulationSize int
	MaxDepth       int
	Generations    int
	MutationRate   float64
	CrossoverRate  float64
	Seed           int64
}

// samplePoints are the (x, y) inputs every integer regression target is
// scored on.
var samplePoints = [][2]int{
	{1, 2}, {4, 5}, {6, 7}, {8, 9}, {10, 11}, {45, 11}, {450, 660}, {2017, 13},
}

const (
	errorScale     = 1000.0
	penaltyNodeCap = 30.0
)

// regressionFitness averages 1-|got-want|/1000 over samplePoints and
// subtracts log10(ceil(nodes/30)) so that trees beyond 30 nodes pay for
// their size.
func regressionFitness(tree *genome.Tree, target func(x, y int) int, program func(x, y int) int) float64 {
	total := 0.0
	for _, p := range samplePoints {
		want := target(p[0], p[1])
		got := program(p[0], p[1])
		total += 1.0 - math.Abs(float64(got-want))/errorScale
	}
	total /= float64(len(samplePoints))
	return total - math.Log10(math.Ceil(float64(tree.Len())/penaltyNodeCap))
}

func scoreAll(ctx context.Context, individuals []*genome.Tree, score func(*genome.Tree) float64) ([]float64, error) {
	out := make([]float64, len(individuals))
	for i, tree := range individuals {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = score(tree)
	}
	return out, nil
}
