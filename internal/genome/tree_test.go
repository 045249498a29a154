package genome

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	plus Value = iota
	one
	zero
)

func describe(n Node) string {
	switch n.Value() {
	case plus:
		parts := make([]string, 0, n.ChildCount())
		for child := range n.Children() {
			parts = append(parts, describe(child))
		}
		return "(+ " + strings.Join(parts, " ") + ")"
	case one:
		return "1"
	case zero:
		return "0"
	}
	return "?"
}

func describeTree(t *Tree) string {
	return describe(t.Root())
}

// (+ (+ 1 1) 0)
func nestedPlus() *Tree {
	tree := New()
	b := NewBuilder(tree)
	b.Push(plus)
	b.Push(plus)
	b.Add(one)
	b.Add(one)
	b.Pop()
	b.Add(zero)
	b.Pop()
	return tree
}

func leaf(v Value) *Tree {
	tree := New()
	NewBuilder(tree).Add(v)
	return tree
}

func TestBuilderSimpleTree(t *testing.T) {
	tree := New()
	b := NewBuilder(tree)
	b.Push(plus)
	b.Add(one)
	b.Add(zero)
	b.Pop()

	require.Equal(t, 0, b.Open())
	assert.Equal(t, 3, tree.Len())
	assert.Equal(t, "(+ 1 0)", describeTree(tree))
	assert.Equal(t, tree.Len(), tree.Root().Size())
	require.NoError(t, tree.Validate())
}

func TestBuilderNestedTree(t *testing.T) {
	tree := nestedPlus()
	assert.Equal(t, 5, tree.Len())
	assert.Equal(t, "(+ (+ 1 1) 0)", describeTree(tree))
	assert.Equal(t, 5, tree.Root().Size())
	assert.Equal(t, 3, tree.Node(1).Size())
	require.NoError(t, tree.Validate())
}

func TestBuilderPopWithoutOpenNodePanics(t *testing.T) {
	b := NewBuilder(New())
	assert.Panics(t, func() { b.Pop() })
}

func TestBuilderRejectsSecondRoot(t *testing.T) {
	tree := New()
	b := NewBuilder(tree)
	b.Push(plus)
	b.Add(one)
	b.Add(zero)
	b.Pop()

	assert.PanicsWithValue(t, "genome: tree already has a root", func() { b.Add(one) })
	assert.PanicsWithValue(t, "genome: tree already has a root", func() { b.Push(plus) })
	assert.PanicsWithValue(t, "genome: tree already has a root", func() { b.AddTree(leaf(one)) })
	assert.Equal(t, 3, tree.Len())
	require.NoError(t, tree.Validate())

	leafOnly := New()
	lb := NewBuilder(leafOnly)
	lb.Add(one)
	assert.Panics(t, func() { lb.Add(zero) })
	assert.Equal(t, 1, leafOnly.Len())
}

func TestBuilderAddTree(t *testing.T) {
	tree := New()
	b := NewBuilder(tree)
	b.Push(plus)
	b.AddTree(nestedPlus())
	b.Add(one)
	b.Pop()

	assert.Equal(t, "(+ (+ (+ 1 1) 0) 1)", describeTree(tree))
	require.NoError(t, tree.Validate())
}

func TestTreeIteration(t *testing.T) {
	// Construct:
	//          2
	//       /  |  \
	//      11  42  90
	//         /|\
	//        13 0 9
	//             |
	//             7
	tree := New()
	b := NewBuilder(tree)
	b.Push(2)
	b.Add(11)
	b.Push(42)
	b.Add(13)
	b.Add(0)
	b.Push(9)
	b.Add(7)
	b.Pop()
	b.Pop()
	b.Add(90)
	b.Pop()

	root := tree.Root()
	assert.Equal(t, Value(2), root.Value())
	assert.Equal(t, 3, root.ChildCount())

	x0, x1, x2 := root.Child(0), root.Child(1), root.Child(2)
	assert.Equal(t, Value(11), x0.Value())
	assert.True(t, x0.IsEmpty())
	assert.Equal(t, Value(42), x1.Value())
	assert.Equal(t, 3, x1.ChildCount())
	assert.Equal(t, Value(90), x2.Value())
	assert.True(t, x2.IsEmpty())

	y3 := x1.Child(2)
	assert.Equal(t, Value(9), y3.Value())
	assert.Equal(t, 1, y3.ChildCount())
	assert.Equal(t, Value(7), y3.Child(0).Value())
	assert.True(t, y3.Child(0).IsEmpty())

	var walked []Value
	var walk func(Node)
	walk = func(n Node) {
		walked = append(walked, n.Value())
		for child := range n.Children() {
			walk(child)
		}
	}
	walk(root)
	assert.Equal(t, []Value{2, 11, 42, 13, 0, 9, 7, 90}, walked)
	assert.Equal(t, walked, tree.Values())
	assert.Equal(t, 4, tree.Depth())

	assert.Panics(t, func() { x0.Child(0) })
	assert.Panics(t, func() { tree.Node(8) })
}

func TestSubTreeCopiesRange(t *testing.T) {
	tree := nestedPlus()
	sub := tree.SubTree(1)

	assert.Equal(t, 3, sub.Len())
	assert.Equal(t, "(+ 1 1)", describeTree(sub))
	assert.Equal(t, tree.Values()[1:4], sub.Values())

	whole := tree.SubTree(0)
	assert.True(t, whole.Equal(tree))

	tree.Replace(2, leaf(zero))
	assert.Equal(t, "(+ 1 1)", describeTree(sub), "sub-tree must not alias its source")
	assert.Panics(t, func() { tree.SubTree(tree.Len()) })
}

func TestReplaceSequence(t *testing.T) {
	genome := nestedPlus()
	sub := genome.SubTree(1)

	genome.Replace(4, sub)
	assert.Equal(t, 7, genome.Len())
	assert.Equal(t, "(+ (+ 1 1) (+ 1 1))", describeTree(genome))
	assert.Equal(t, "(+ 1 1)", describeTree(sub))

	genome.Replace(0, sub)
	assert.Equal(t, 3, genome.Len())
	assert.Equal(t, "(+ 1 1)", describeTree(genome))

	z := leaf(zero)
	genome.Replace(2, z)
	assert.Equal(t, "(+ 1 0)", describeTree(genome))
	genome.Replace(1, z)
	assert.Equal(t, "(+ 0 0)", describeTree(genome))
	genome.Replace(2, sub)
	assert.Equal(t, 5, genome.Len())
	assert.Equal(t, "(+ 0 (+ 1 1))", describeTree(genome))

	z2 := genome.SubTree(1)
	assert.Equal(t, 1, z2.Len())
	assert.Equal(t, "0", describeTree(z2))
	genome.Replace(2, z2)
	assert.Equal(t, 3, genome.Len())
	assert.Equal(t, "(+ 0 0)", describeTree(genome))
	require.NoError(t, genome.Validate())
}

func TestReplaceInsideNestedSubTree(t *testing.T) {
	genome := nestedPlus()
	sub := genome.SubTree(1)
	genome.Replace(2, sub)

	assert.Equal(t, 7, genome.Len())
	assert.Equal(t, "(+ (+ (+ 1 1) 1) 0)", describeTree(genome))
	assert.Equal(t, "(+ (+ (+ 1 1) 1) 0)", describeTree(genome.SubTree(0)))
	assert.Equal(t, 5, genome.Node(1).Size())
	require.NoError(t, genome.Validate())
}

func TestReplaceReExtractsAndAdjustsCount(t *testing.T) {
	genome := nestedPlus()
	for id := 0; id < genome.Len(); id++ {
		for _, sub := range []*Tree{leaf(one), nestedPlus()} {
			target := genome.Clone()
			before := target.Len()
			oldSize := target.Node(id).Size()

			target.Replace(id, sub)

			assert.Equal(t, before+sub.Len()-oldSize, target.Len())
			assert.True(t, target.SubTree(id).Equal(sub))
			require.NoError(t, target.Validate())
		}
	}
}

func TestReplaceWithItself(t *testing.T) {
	genome := nestedPlus()
	genome.Replace(4, genome)
	assert.Equal(t, "(+ (+ 1 1) (+ (+ 1 1) 0))", describeTree(genome))
	require.NoError(t, genome.Validate())
}

func TestReplaceOutOfRangePanics(t *testing.T) {
	genome := nestedPlus()
	assert.Panics(t, func() { genome.Replace(5, leaf(one)) })
	assert.Panics(t, func() { genome.Replace(0, New()) })
}
