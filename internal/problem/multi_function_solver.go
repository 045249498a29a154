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

const MultiFunctionSolverName = "multi-function-solver"

// MultiFunctionSolver evolves a pair of functions rooted at "functions": a
// base function F0 over int-base and a main function F1 over int that may
// invoke F0 through "call". The target is
//
//	f0(x, y) = x*y - (y*y + x)
//	f(x, y)  = f0(x+2, f0(x, y)) - f0(y, x*y)
type MultiFunctionSolver struct {
	catalog  *grammar.Catalog
	rootType grammar.TypeID
	root     *grammar.Definition

	x, y, one, add, sub, call grammar.NamedSet

	printer  *render.Printer
	compiler *render.Compiler
}

func NewMultiFunctionSolver() (*MultiFunctionSolver, error) {
	base := grammar.NewType("int-base")
	fn := grammar.NewType("int")
	set := grammar.NewType("function-set")
	c, err := grammar.NewCatalog([]grammar.Type{base, fn, set}, []grammar.Declaration{
		grammar.Terminal("x", fn, 25),
		grammar.Terminal("y", fn, 25),
		grammar.Terminal("1", fn, 50),
		grammar.Binary("+", fn, [2]grammar.Type{fn, fn}, 50),
		grammar.Binary("-", fn, [2]grammar.Type{fn, fn}, 50),
		grammar.Binary("*", fn, [2]grammar.Type{fn, fn}, 50),
		grammar.Binary("call", fn, [2]grammar.Type{fn, fn}, 200),

		grammar.Terminal("x", base, 25),
		grammar.Terminal("y", base, 25),
		grammar.Terminal("1", base, 50),
		grammar.Binary("+", base, [2]grammar.Type{base, base}, 50),
		grammar.Binary("-", base, [2]grammar.Type{base, base}, 50),
		grammar.Binary("*", base, [2]grammar.Type{base, base}, 50),

		grammar.Binary("functions", set, [2]grammar.Type{base, fn}, 50),
	})
	if err != nil {
		return nil, err
	}
	rootType, _ := c.TypeByName("function-set")
	root, _ := c.Lookup("functions")

	s := &MultiFunctionSolver{
		catalog:  c,
		rootType: rootType,
		root:     root,
		x:        c.Named("x"),
		y:        c.Named("y"),
		one:      c.Named("1"),
		add:      c.Named("+"),
		sub:      c.Named("-"),
		call:     c.Named("call"),
		printer:  render.NewPrinter(c, nil),
	}
	s.compiler = render.NewCompiler(c, render.CompilerDelegate{
		Function: func(def *grammar.Definition, node genome.Node) (string, bool) {
			switch {
			case def.ID() == s.root.ID():
				return fmt.Sprintf("f0(x, y) = %s; f(x, y) = %s",
					s.compiler.Node(node.Child(0)), s.compiler.Node(node.Child(1))), true
			case s.call.Contains(def.ID()):
				return fmt.Sprintf("f0(%s, %s)",
					s.compiler.Node(node.Child(0)), s.compiler.Node(node.Child(1))), true
			}
			return "", false
		},
		Operator: render.OperatorNames("+", "-", "*"),
	})
	return s, nil
}

func (s *MultiFunctionSolver) Name() string {
	return MultiFunctionSolverName
}

func (s *MultiFunctionSolver) Catalog() *grammar.Catalog {
	return s.catalog
}

func (s *MultiFunctionSolver) Printer() *render.Printer {
	return s.printer
}

func (s *MultiFunctionSolver) Compiler() *render.Compiler {
	return s.compiler
}

// Initializer roots every seeded tree at the function-set type.
func (s *MultiFunctionSolver) Initializer(gen *generator.Generator) generator.Initializer {
	return generator.NewRampedHalfAndHalf(gen, generator.TypedRoot{Type: s.rootType})
}

func (s *MultiFunctionSolver) Defaults() Defaults {
	return Defaults{
		PopulationSize: 100,
		MaxDepth:       6,
		Generations:    100,
		MutationRate:   0.1,
		CrossoverRate:  0.895,
		Seed:           42,
	}
}

func (s *MultiFunctionSolver) base(x, y int) int {
	return x*y - (y*y + x)
}

// Target is the function being searched for.
func (s *MultiFunctionSolver) Target(x, y int) int {
	return s.base(x+1+1, s.base(x, y)) - s.base(y, x*y)
}

func (s *MultiFunctionSolver) Fitness(ctx context.Context, individuals []*genome.Tree) ([]float64, error) {
	for i, tree := range individuals {
		if def := s.catalog.DefinitionForNode(tree.Root()); def.ID() != s.root.ID() {
			return nil, fmt.Errorf("individual %d: root is %q, want %q", i, def.Name(), s.root.Name())
		}
	}
	return scoreAll(ctx, individuals, func(tree *genome.Tree) float64 {
		return regressionFitness(tree, s.Target, func(x, y int) int {
			return s.Evaluate(tree, x, y)
		})
	})
}

// Evaluate runs the main function of tree, whose root must be "functions".
func (s *MultiFunctionSolver) Evaluate(tree *genome.Tree, x, y int) int {
	root := tree.Root()
	if def := s.catalog.DefinitionForNode(root); def.ID() != s.root.ID() {
		panic(fmt.Sprintf("problem: multi-function root is %q, want %q", def.Name(), s.root.Name()))
	}
	return s.evaluator(root.Child(0), x, y).Node(root.Child(1))
}

func (s *MultiFunctionSolver) evaluator(base genome.Node, px, py int) *eval.Evaluator[int] {
	return &eval.Evaluator[int]{
		Catalog: s.catalog,
		Terminal: func(def *grammar.Definition, _ genome.Node) int {
			switch {
			case s.x.Contains(def.ID()):
				return px
			case s.y.Contains(def.ID()):
				return py
			case s.one.Contains(def.ID()):
				return 1
			}
			panic(fmt.Sprintf("problem: unexpected terminal %q", def.Name()))
		},
		Binary: func(def *grammar.Definition, _ genome.Node, a, b int) int {
			switch {
			case s.add.Contains(def.ID()):
				return a + b
			case s.sub.Contains(def.ID()):
				return a - b
			case s.call.Contains(def.ID()):
				return s.evaluator(base, a, b).Node(base)
			default:
				return a * b
			}
		},
	}
}
