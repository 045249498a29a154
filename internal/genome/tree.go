package genome

import (
	"fmt"
	"iter"
	"slices"
)

// Value is the payload stored in a tree node. For GP trees it is a node value
// assigned by a grammar catalog.
type Value uint32

type nodeStorage struct {
	value      Value
	childCount uint32
	// subtreeSize counts the nodes of the sub-tree rooted here, including the node itself.
	subtreeSize uint32
}

// Tree is a rooted ordered tree flattened in pre-order. The children of a node
// occupy the index ranges immediately following it, each as long as that
// child's sub-tree size.
type Tree struct {
	nodes []nodeStorage
}

// New returns an empty tree ready to be filled by a Builder.
func New() *Tree {
	return &Tree{nodes: make([]nodeStorage, 0, 100)}
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Root returns the root node. The tree must not be empty.
func (t *Tree) Root() Node {
	return t.Node(0)
}

// Node returns a view of the node stored at position id.
func (t *Tree) Node(id int) Node {
	t.checkID(id)
	return Node{tree: t, id: id}
}

// Values returns the node values in pre-order.
func (t *Tree) Values() []Value {
	out := make([]Value, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = n.value
	}
	return out
}

// Clone returns an independent copy of the tree.
func (t *Tree) Clone() *Tree {
	return &Tree{nodes: slices.Clone(t.nodes)}
}

// Equal reports whether both trees hold the same nodes in the same shape.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	return slices.Equal(t.nodes, other.nodes)
}

// Depth returns the number of nodes on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if len(t.nodes) == 0 {
		return 0
	}
	return t.Root().Depth()
}

// SubTree returns a copy of the sub-tree rooted at id, re-rooted at position 0.
func (t *Tree) SubTree(id int) *Tree {
	t.checkID(id)
	end := id + int(t.nodes[id].subtreeSize)
	return &Tree{nodes: slices.Clone(t.nodes[id:end])}
}

// Replace swaps the sub-tree rooted at id for a copy of sub. Sizes of every
// ancestor of id are adjusted by the change in node count.
func (t *Tree) Replace(id int, sub *Tree) {
	t.checkID(id)
	if sub == nil || len(sub.nodes) == 0 {
		panic("genome: replacement sub-tree is empty")
	}
	if sub == t {
		sub = t.Clone()
	}
	ancestors := t.pathTo(id)
	oldSize := int(t.nodes[id].subtreeSize)
	delta := len(sub.nodes) - oldSize

	t.nodes = slices.Replace(t.nodes, id, id+oldSize, sub.nodes...)
	for _, a := range ancestors {
		t.nodes[a].subtreeSize = uint32(int(t.nodes[a].subtreeSize) + delta)
	}
	if int(t.nodes[0].subtreeSize) != len(t.nodes) {
		panic(fmt.Sprintf("genome: root size %d does not match node count %d after replace", t.nodes[0].subtreeSize, len(t.nodes)))
	}
}

// Validate re-derives every sub-tree size and reports the first node whose
// stored size disagrees.
func (t *Tree) Validate() error {
	if len(t.nodes) == 0 {
		return nil
	}
	end, err := t.validateFrom(0)
	if err != nil {
		return err
	}
	if end != len(t.nodes) {
		return fmt.Errorf("root sub-tree covers %d of %d nodes", end, len(t.nodes))
	}
	return nil
}

func (t *Tree) validateFrom(id int) (int, error) {
	if id >= len(t.nodes) {
		return 0, fmt.Errorf("node %d: child range runs past the end of the tree", id)
	}
	next := id + 1
	for i := uint32(0); i < t.nodes[id].childCount; i++ {
		var err error
		next, err = t.validateFrom(next)
		if err != nil {
			return 0, err
		}
	}
	if got := next - id; got != int(t.nodes[id].subtreeSize) {
		return 0, fmt.Errorf("node %d: stored size %d, derived size %d", id, t.nodes[id].subtreeSize, got)
	}
	return next, nil
}

// pathTo returns the ids of the strict ancestors of id, root first.
func (t *Tree) pathTo(id int) []int {
	var path []int
	cur := 0
	for cur != id {
		path = append(path, cur)
		child := cur + 1
		for i := uint32(0); i < t.nodes[cur].childCount; i++ {
			end := child + int(t.nodes[child].subtreeSize)
			if id < end {
				break
			}
			child = end
		}
		cur = child
	}
	return path
}

func (t *Tree) checkID(id int) {
	if id < 0 || id >= len(t.nodes) {
		panic(fmt.Sprintf("genome: node id %d out of range [0, %d)", id, len(t.nodes)))
	}
}

func (t *Tree) appendNode(value Value) int {
	t.nodes = append(t.nodes, nodeStorage{value: value, subtreeSize: 1})
	return len(t.nodes) - 1
}

// Node is a read-only view of one node of a tree.
type Node struct {
	tree *Tree
	id   int
}

func (n Node) ID() int {
	return n.id
}

func (n Node) Value() Value {
	return n.tree.nodes[n.id].value
}

func (n Node) ChildCount() int {
	return int(n.tree.nodes[n.id].childCount)
}

// Size returns the number of nodes in the sub-tree rooted at n.
func (n Node) Size() int {
	return int(n.tree.nodes[n.id].subtreeSize)
}

func (n Node) IsEmpty() bool {
	return n.ChildCount() == 0
}

// Child returns the k-th child of n.
func (n Node) Child(k int) Node {
	if k < 0 || k >= n.ChildCount() {
		panic(fmt.Sprintf("genome: child %d out of range for node %d with %d children", k, n.id, n.ChildCount()))
	}
	id := n.id + 1
	for i := 0; i < k; i++ {
		id += int(n.tree.nodes[id].subtreeSize)
	}
	return Node{tree: n.tree, id: id}
}

// Children iterates the direct children of n in order.
func (n Node) Children() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		id := n.id + 1
		for i := 0; i < n.ChildCount(); i++ {
			if !yield(Node{tree: n.tree, id: id}) {
				return
			}
			id += int(n.tree.nodes[id].subtreeSize)
		}
	}
}

// Depth returns the number of nodes on the longest path from n to a leaf.
func (n Node) Depth() int {
	deepest := 0
	for child := range n.Children() {
		deepest = max(deepest, child.Depth())
	}
	return deepest + 1
}
