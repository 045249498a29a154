package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"treegp/internal/generator"
	"treegp/internal/genome"
	"treegp/internal/grammar"
)

// ErrContract marks caller misuse or a misconfigured engine.
var ErrContract = errors.New("evolution contract violated")

const (
	// MinPopulationSize leaves room for the two mutable elites, one tournament
	// pick and the untouched elite.
	MinPopulationSize = 4
	// TournamentSize is the number of contestants per selection.
	TournamentSize = 3
	// DefaultMutationDepth bounds trees grown by the default RandomTree.
	DefaultMutationDepth = 2
)

// FitnessFunc scores a whole generation at once; larger is better. It must
// return exactly one fitness per individual and must not modify them.
type FitnessFunc func(ctx context.Context, individuals []*genome.Tree) ([]float64, error)

// RandomTreeFunc returns a fresh tree whose root has type typ. Mutation uses
// it to regrow a sub-tree.
type RandomTreeFunc func(typ grammar.TypeID) *genome.Tree

type Config struct {
	Catalog       *grammar.Catalog
	Size          int
	MutationRate  float64
	CrossoverRate float64
	// Rand drives every stochastic decision of the engine.
	Rand    *rand.Rand
	Fitness FitnessFunc
	// RandomTree defaults to Grow trees of DefaultMutationDepth drawn from Catalog and Rand.
	RandomTree RandomTreeFunc
	Logger     *slog.Logger
	Metrics    *Metrics
}

// Population is a fixed-size set of tree genomes evolved generation by
// generation. It is not safe for concurrent use.
type Population struct {
	cfg         Config
	individuals []*genome.Tree
	fitnesses   []float64
	generation  int

	evaluatedGeneration int
	bestIndex           int
}

func NewPopulation(cfg Config) (*Population, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("%w: grammar catalog is required", ErrContract)
	}
	if cfg.Rand == nil {
		return nil, fmt.Errorf("%w: random source is required", ErrContract)
	}
	if cfg.Fitness == nil {
		return nil, fmt.Errorf("%w: fitness function is required", ErrContract)
	}
	if cfg.Size < MinPopulationSize {
		return nil, fmt.Errorf("%w: population size must be >= %d, got %d", ErrContract, MinPopulationSize, cfg.Size)
	}
	if cfg.MutationRate < 0 || cfg.CrossoverRate < 0 {
		return nil, fmt.Errorf("%w: mutation and crossover rates must be >= 0", ErrContract)
	}
	if cfg.MutationRate+cfg.CrossoverRate > 1.0 {
		return nil, fmt.Errorf("%w: mutation rate %.3f + crossover rate %.3f exceeds 1.0", ErrContract, cfg.MutationRate, cfg.CrossoverRate)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RandomTree == nil {
		gen, err := generator.New(cfg.Catalog, cfg.Rand)
		if err != nil {
			return nil, fmt.Errorf("%w: default mutation generator: %v", ErrContract, err)
		}
		cfg.RandomTree = func(typ grammar.TypeID) *genome.Tree {
			return gen.Tree(DefaultMutationDepth, generator.Grow, typ)
		}
	}

	return &Population{
		cfg:                 cfg,
		fitnesses:           make([]float64, cfg.Size),
		evaluatedGeneration: -1,
	}, nil
}

// Initialize replaces the individuals with trees from init, seeded with
// depths up to maxDepth.
func (p *Population) Initialize(maxDepth int, init generator.Initializer) error {
	seeded := make([]*genome.Tree, 0, p.cfg.Size)
	err := init.Initialize(generator.Options{MaxDepth: maxDepth, PopulationSize: p.cfg.Size}, func(tree *genome.Tree) {
		seeded = append(seeded, tree)
	})
	if err != nil {
		return fmt.Errorf("initialize population: %w", err)
	}
	if len(seeded) != p.cfg.Size {
		return fmt.Errorf("%w: initializer produced %d individuals, want %d", ErrContract, len(seeded), p.cfg.Size)
	}
	p.individuals = seeded
	clear(p.fitnesses)
	p.evaluatedGeneration = -1
	p.bestIndex = 0
	return nil
}

// Seed installs the given individuals directly. The trees are owned by the
// population afterwards.
func (p *Population) Seed(individuals []*genome.Tree) error {
	if len(individuals) != p.cfg.Size {
		return fmt.Errorf("%w: seeded %d individuals, want %d", ErrContract, len(individuals), p.cfg.Size)
	}
	p.individuals = append([]*genome.Tree(nil), individuals...)
	clear(p.fitnesses)
	p.evaluatedGeneration = -1
	p.bestIndex = 0
	return nil
}

func (p *Population) Size() int {
	return p.cfg.Size
}

// Generation is the number of completed NextGeneration calls.
func (p *Population) Generation() int {
	return p.generation
}

func (p *Population) Catalog() *grammar.Catalog {
	return p.cfg.Catalog
}

func (p *Population) Individual(i int) *genome.Tree {
	return p.individuals[i]
}

// Individuals returns the current generation. Callers must not modify the trees.
func (p *Population) Individuals() []*genome.Tree {
	return p.individuals
}

// Fitness returns individual i's fitness from the last evaluation.
func (p *Population) Fitness(i int) float64 {
	return p.fitnesses[i]
}

// Evaluated reports whether the current generation has been scored.
func (p *Population) Evaluated() bool {
	return p.evaluatedGeneration == p.generation
}

// EvaluateGeneration scores the current generation once and returns the index
// of its best individual; ties go to the lowest index. Repeated calls within
// a generation reuse the cached result.
func (p *Population) EvaluateGeneration(ctx context.Context) (int, error) {
	if p.evaluatedGeneration == p.generation {
		return p.bestIndex, nil
	}
	if len(p.individuals) == 0 {
		return 0, fmt.Errorf("%w: population is not initialized", ErrContract)
	}

	fitnesses, err := p.cfg.Fitness(ctx, p.individuals)
	if err != nil {
		return 0, fmt.Errorf("evaluate generation %d: %w", p.generation, err)
	}
	if len(fitnesses) != len(p.individuals) {
		return 0, fmt.Errorf("%w: fitness function returned %d values for %d individuals", ErrContract, len(fitnesses), len(p.individuals))
	}
	copy(p.fitnesses, fitnesses)

	best := 0
	for i, fitness := range p.fitnesses {
		if fitness > p.fitnesses[best] {
			best = i
		}
	}
	p.bestIndex = best
	p.evaluatedGeneration = p.generation

	stats := p.Stats()
	p.cfg.Metrics.observeEvaluation(stats)
	p.cfg.Logger.Debug("generation evaluated",
		slog.Int("generation", p.generation),
		slog.Float64("best_fitness", stats.BestFitness),
		slog.Float64("average_fitness", stats.AverageFitness),
		slog.Int("best_index", best),
	)
	return best, nil
}

// Best returns the best individual and its fitness from the last evaluation.
func (p *Population) Best() (*genome.Tree, float64) {
	if len(p.individuals) == 0 {
		return nil, 0
	}
	return p.individuals[p.bestIndex], p.fitnesses[p.bestIndex]
}
