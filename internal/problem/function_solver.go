package problem

import (
	"context"
	"fmt"

	"treegp/internal/eval"
	"treegp/internal/generator"
	"treegp/internal/genome"
	"treegp/internal/grammar"
	"treegp/internal/render"
)

const FunctionSolverName = "function-solver"

// parameterCount is how many inputs share the "parameter" terminal's value
// range; each owns an equal slice of it.
const parameterCount = 2

// FunctionSolver searches for f(x, y) = x*y + (y - x*x) over one integer type.
// Inputs are a single weighted "parameter" terminal whose node value range is
// split evenly between $0 and $1.
type FunctionSolver struct {
	catalog   *grammar.Catalog
	parameter *grammar.Definition
	printer   *render.Printer
	compiler  *render.Compiler
}

func NewFunctionSolver() (*FunctionSolver, error) {
	i := grammar.NewType("int")
	c, err := grammar.NewCatalog([]grammar.Type{i}, []grammar.Declaration{
		grammar.Terminal("parameter", i, 50),
		grammar.Terminal("1", i, 50),
		grammar.Binary("+", i, [2]grammar.Type{i, i}, 50),
		grammar.Binary("-", i, [2]grammar.Type{i, i}, 50),
		grammar.Binary("*", i, [2]grammar.Type{i, i}, 50),
	})
	if err != nil {
		return nil, err
	}
	parameter, _ := c.Lookup("parameter")
	if parameter.Weight()%parameterCount != 0 {
		return nil, fmt.Errorf("parameter weight %d does not split into %d inputs", parameter.Weight(), parameterCount)
	}

	s := &FunctionSolver{catalog: c, parameter: parameter}
	terminal := func(def *grammar.Definition, node genome.Node) (string, bool) {
		if def.ID() != s.parameter.ID() {
			return "", false
		}
		return fmt.Sprintf("$%d", s.parameterID(node)), true
	}
	s.printer = render.NewPrinter(c, terminal)
	s.compiler = render.NewCompiler(c, render.CompilerDelegate{
		Terminal: terminal,
		Operator: render.OperatorNames("+", "-", "*"),
	})
	return s, nil
}

func (s *FunctionSolver) Name() string {
	return FunctionSolverName
}

func (s *FunctionSolver) Catalog() *grammar.Catalog {
	return s.catalog
}

func (s *FunctionSolver) Printer() *render.Printer {
	return s.printer
}

func (s *FunctionSolver) Compiler() *render.Compiler {
	return s.compiler
}

func (s *FunctionSolver) Initializer(gen *generator.Generator) generator.Initializer {
	return generator.NewRampedHalfAndHalf(gen, nil)
}

func (s *FunctionSolver) Defaults() Defaults {
	return Defaults{
		PopulationSize: 100,
		MaxDepth:       10,
		Generations:    100,
		MutationRate:   0.1,
		CrossoverRate:  0.895,
		Seed:           42,
	}
}

// Target is the function being searched for.
func (s *FunctionSolver) Target(x, y int) int {
	return x*y + (y - x*x)
}

func (s *FunctionSolver) Fitness(ctx context.Context, individuals []*genome.Tree) ([]float64, error) {
	return scoreAll(ctx, individuals, func(tree *genome.Tree) float64 {
		return regressionFitness(tree, s.Target, func(x, y int) int {
			return s.Evaluate(tree, x, y)
		})
	})
}

// Evaluate runs tree with $0 = x and $1 = y.
func (s *FunctionSolver) Evaluate(tree *genome.Tree, x, y int) int {
	params := [parameterCount]int{x, y}
	e := &eval.Evaluator[int]{
		Catalog: s.catalog,
		Terminal: func(def *grammar.Definition, node genome.Node) int {
			if def.ID() == s.parameter.ID() {
				return params[s.parameterID(node)]
			}
			return 1
		},
		Binary: func(def *grammar.Definition, _ genome.Node, a, b int) int {
			switch def.Name() {
			case "+":
				return a + b
			case "-":
				return a - b
			default:
				return a * b
			}
		},
	}
	return e.Tree(tree)
}

// ParameterValue returns the node value that encodes input $k.
func (s *FunctionSolver) ParameterValue(k int) genome.Value {
	if k < 0 || k >= parameterCount {
		panic(fmt.Sprintf("problem: parameter %d out of range [0, %d)", k, parameterCount))
	}
	return s.parameter.NodeValue() + genome.Value(uint32(k)*s.parameter.Weight()/parameterCount)
}

func (s *FunctionSolver) parameterID(node genome.Node) int {
	return int(s.parameter.Offset(node.Value()) / (s.parameter.Weight() / parameterCount))
}
