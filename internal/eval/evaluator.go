package eval

import (
	"fmt"

	"treegp/internal/genome"
	"treegp/internal/grammar"
)

// Evaluator computes a value of type T for a tree, bottom-up. Callbacks are
// keyed by definition and receive the node so problems can decode variants
// packed into a definition's node value range. Nil callbacks fall back to
// defaults: Unary returns its argument, Binary and Function return the zero
// value.
type Evaluator[T any] struct {
	Catalog  *grammar.Catalog
	Terminal func(def *grammar.Definition, node genome.Node) T
	Unary    func(def *grammar.Definition, node genome.Node, x T) T
	Binary   func(def *grammar.Definition, node genome.Node, x, y T) T
	Function func(def *grammar.Definition, node genome.Node, args []T) T
}

// Tree evaluates the whole tree.
func (e *Evaluator[T]) Tree(tree *genome.Tree) T {
	return e.Node(tree.Root())
}

// Node evaluates the sub-tree rooted at n.
func (e *Evaluator[T]) Node(n genome.Node) T {
	def := e.Catalog.DefinitionForNode(n)
	if def.IsTerminal() {
		if !n.IsEmpty() {
			panic(fmt.Sprintf("eval: terminal %q at node %d has children", def.Name(), n.ID()))
		}
		if e.Terminal == nil {
			panic("eval: no terminal callback")
		}
		return e.Terminal(def, n)
	}
	if n.ChildCount() != def.Arity() {
		panic(fmt.Sprintf("eval: function %q at node %d has %d children, declared arity %d", def.Name(), n.ID(), n.ChildCount(), def.Arity()))
	}
	args := make([]T, 0, def.Arity())
	for child := range n.Children() {
		args = append(args, e.Node(child))
	}
	switch len(args) {
	case 1:
		if e.Unary == nil {
			return args[0]
		}
		return e.Unary(def, n, args[0])
	case 2:
		if e.Binary == nil {
			var zero T
			return zero
		}
		return e.Binary(def, n, args[0], args[1])
	default:
		if e.Function == nil {
			var zero T
			return zero
		}
		return e.Function(def, n, args)
	}
}
