package problem

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treegp/internal/evo"
	"treegp/internal/generator"
	"treegp/internal/genome"
	"treegp/internal/grammar"
)

// typedValue returns the node value of the definition named name whose type is typ.
func typedValue(t *testing.T, c *grammar.Catalog, name, typ string) genome.Value {
	t.Helper()
	want, ok := c.TypeByName(typ)
	require.True(t, ok, typ)
	for _, id := range c.Named(name).IDs() {
		if def := c.Definition(id); def.Type() == want {
			return def.NodeValue()
		}
	}
	t.Fatalf("no %q of type %q", name, typ)
	return 0
}

func exactFunctionSolution(t *testing.T, s *FunctionSolver) *genome.Tree {
	t.Helper()
	c := s.Catalog()
	plus := typedValue(t, c, "+", "int")
	minus := typedValue(t, c, "-", "int")
	times := typedValue(t, c, "*", "int")
	p0, p1 := s.ParameterValue(0), s.ParameterValue(1)

	// (+ (* $0 $1) (- $1 (* $0 $0)))
	tree := genome.New()
	b := genome.NewBuilder(tree)
	b.Push(plus)
	b.Push(times)
	b.Add(p0)
	b.Add(p1)
	b.Pop()
	b.Push(minus)
	b.Add(p1)
	b.Push(times)
	b.Add(p0)
	b.Add(p0)
	b.Pop()
	b.Pop()
	b.Pop()
	return tree
}

func exactMultiFunctionSolution(t *testing.T, s *MultiFunctionSolver) *genome.Tree {
	t.Helper()
	c := s.Catalog()
	v := func(name, typ string) genome.Value { return typedValue(t, c, name, typ) }

	tree := genome.New()
	b := genome.NewBuilder(tree)
	b.Push(v("functions", "function-set"))

	// f0: (- (* x y) (+ (* y y) x))
	b.Push(v("-", "int-base"))
	b.Push(v("*", "int-base"))
	b.Add(v("x", "int-base"))
	b.Add(v("y", "int-base"))
	b.Pop()
	b.Push(v("+", "int-base"))
	b.Push(v("*", "int-base"))
	b.Add(v("y", "int-base"))
	b.Add(v("y", "int-base"))
	b.Pop()
	b.Add(v("x", "int-base"))
	b.Pop()
	b.Pop()

	// f: (- (call (+ x (+ 1 1)) (call x y)) (call y (* x y)))
	b.Push(v("-", "int"))
	b.Push(v("call", "int"))
	b.Push(v("+", "int"))
	b.Add(v("x", "int"))
	b.Push(v("+", "int"))
	b.Add(v("1", "int"))
	b.Add(v("1", "int"))
	b.Pop()
	b.Pop()
	b.Push(v("call", "int"))
	b.Add(v("x", "int"))
	b.Add(v("y", "int"))
	b.Pop()
	b.Pop()
	b.Push(v("call", "int"))
	b.Add(v("y", "int"))
	b.Push(v("*", "int"))
	b.Add(v("x", "int"))
	b.Add(v("y", "int"))
	b.Pop()
	b.Pop()
	b.Pop()

	b.Pop()
	return tree
}

func TestFunctionSolverGrammar(t *testing.T) {
	s, err := NewFunctionSolver()
	require.NoError(t, err)
	c := s.Catalog()
	assert.Equal(t, genome.Value(100), c.TerminalLimit())
	assert.Equal(t, genome.Value(250), c.NodeLimit())
	assert.Equal(t, genome.Value(0), s.ParameterValue(0))
	assert.Equal(t, genome.Value(25), s.ParameterValue(1))
	assert.Panics(t, func() { s.ParameterValue(2) })
}

func TestFunctionSolverExactSolutionScoresOne(t *testing.T) {
	s, err := NewFunctionSolver()
	require.NoError(t, err)
	tree := exactFunctionSolution(t, s)

	for _, p := range samplePoints {
		assert.Equal(t, s.Target(p[0], p[1]), s.Evaluate(tree, p[0], p[1]))
	}
	fitness, err := s.Fitness(context.Background(), []*genome.Tree{tree})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0}, fitness)

	assert.Equal(t, "(+ (* $0 $1) (- $1 (* $0 $0)))", s.Printer().String(tree))
	assert.Equal(t, "(($0 * $1) + ($1 - ($0 * $0)))", s.Compiler().String(tree))
}

func TestFunctionSolverParametersShareTerminalRange(t *testing.T) {
	s, err := NewFunctionSolver()
	require.NoError(t, err)
	for v := genome.Value(0); v < 50; v++ {
		tree := genome.New()
		genome.NewBuilder(tree).Add(v)
		want := 3
		if v >= 25 {
			want = 7
		}
		assert.Equal(t, want, s.Evaluate(tree, 3, 7), "value %d", v)
	}
}

func TestRegressionFitnessPenalisesLargeTrees(t *testing.T) {
	s, err := NewFunctionSolver()
	require.NoError(t, err)
	one := typedValue(t, s.Catalog(), "1", "int")
	plus := typedValue(t, s.Catalog(), "+", "int")

	// 31 nodes: (+ 1 (+ 1 ... 1)) with 15 additions.
	tree := genome.New()
	b := genome.NewBuilder(tree)
	for i := 0; i < 15; i++ {
		b.Push(plus)
		b.Add(one)
	}
	b.Add(one)
	for i := 0; i < 15; i++ {
		b.Pop()
	}
	require.Equal(t, 31, tree.Len())

	exact := regressionFitness(tree, s.Target, s.Target)
	assert.InDelta(t, 1.0-0.30103, exact, 1e-5)
}

func TestFitnessHonoursCancelledContext(t *testing.T) {
	s, err := NewFunctionSolver()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Fitness(ctx, []*genome.Tree{exactFunctionSolution(t, s)})
	require.ErrorIs(t, err, context.Canceled)
}

func TestFunctionSolverEvolutionKeepsBest(t *testing.T) {
	s, err := NewFunctionSolver()
	require.NoError(t, err)

	run := func() evo.Stats {
		rng := rand.New(rand.NewSource(42))
		p, err := evo.NewPopulation(evo.Config{
			Catalog:       s.Catalog(),
			Size:          30,
			MutationRate:  0.1,
			CrossoverRate: 0.895,
			Rand:          rng,
			Fitness:       s.Fitness,
		})
		require.NoError(t, err)
		gen, err := generator.New(s.Catalog(), rng)
		require.NoError(t, err)
		require.NoError(t, p.Initialize(6, s.Initializer(gen)))

		_, err = p.EvaluateGeneration(context.Background())
		require.NoError(t, err)
		initial := p.Stats().BestFitness

		stats, err := p.Run(context.Background(), 10, nil)
		require.NoError(t, err)
		assert.Equal(t, 10, p.Generation())
		assert.GreaterOrEqual(t, stats.BestFitness, initial)
		return stats
	}
	assert.Equal(t, run(), run())
}

func TestFunctionSolverDefaultsConverge(t *testing.T) {
	if testing.Short() {
		t.Skip("runs a full default-sized evolution")
	}
	s, err := NewFunctionSolver()
	require.NoError(t, err)
	d := s.Defaults()

	rng := rand.New(rand.NewSource(d.Seed))
	p, err := evo.NewPopulation(evo.Config{
		Catalog:       s.Catalog(),
		Size:          d.PopulationSize,
		MutationRate:  d.MutationRate,
		CrossoverRate: d.CrossoverRate,
		Rand:          rng,
		Fitness:       s.Fitness,
	})
	require.NoError(t, err)
	gen, err := generator.New(s.Catalog(), rng)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(d.MaxDepth, s.Initializer(gen)))

	stats, err := p.Run(context.Background(), d.Generations, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Generation())
	assert.Equal(t, 1.0, stats.BestFitness)
}

func TestMultiFunctionSolverExactSolutionScoresOne(t *testing.T) {
	s, err := NewMultiFunctionSolver()
	require.NoError(t, err)
	tree := exactMultiFunctionSolution(t, s)
	require.Equal(t, 25, tree.Len())

	for _, p := range samplePoints {
		assert.Equal(t, s.Target(p[0], p[1]), s.Evaluate(tree, p[0], p[1]))
	}
	fitness, err := s.Fitness(context.Background(), []*genome.Tree{tree})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0}, fitness)

	assert.Equal(t,
		"f0(x, y) = ((x * y) - ((y * y) + x)); f(x, y) = (f0((x + (1 + 1)), f0(x, y)) - f0(y, (x * y)))",
		s.Compiler().String(tree))
}

func TestMultiFunctionSolverRejectsForeignRoot(t *testing.T) {
	s, err := NewMultiFunctionSolver()
	require.NoError(t, err)
	tree := genome.New()
	genome.NewBuilder(tree).Add(typedValue(t, s.Catalog(), "x", "int"))

	_, err = s.Fitness(context.Background(), []*genome.Tree{tree})
	require.Error(t, err)
	assert.Panics(t, func() { s.Evaluate(tree, 1, 2) })
}

func TestMultiFunctionSolverSeedsFunctionSetRoots(t *testing.T) {
	s, err := NewMultiFunctionSolver()
	require.NoError(t, err)
	gen, err := generator.New(s.Catalog(), rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	var trees []*genome.Tree
	err = s.Initializer(gen).Initialize(generator.Options{MaxDepth: 6, PopulationSize: 20}, func(tree *genome.Tree) {
		trees = append(trees, tree)
	})
	require.NoError(t, err)
	require.Len(t, trees, 20)

	fitness, err := s.Fitness(context.Background(), trees)
	require.NoError(t, err)
	assert.Len(t, fitness, 20)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{FunctionSolverName, MultiFunctionSolverName}, Names())

	p, err := New(FunctionSolverName)
	require.NoError(t, err)
	assert.Equal(t, FunctionSolverName, p.Name())

	_, err = New("missing")
	require.ErrorIs(t, err, ErrProblemNotFound)

	err = Register(FunctionSolverName, func() (Problem, error) { return NewFunctionSolver() })
	require.ErrorIs(t, err, ErrProblemExists)
	require.Error(t, Register("", nil))

	require.NoError(t, Register("custom", func() (Problem, error) { return NewMultiFunctionSolver() }))
	t.Cleanup(func() {
		problemRegistry.mu.Lock()
		delete(problemRegistry.m, "custom")
		problemRegistry.mu.Unlock()
	})
	assert.Contains(t, Names(), "custom")
}
