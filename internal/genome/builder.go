package genome

// Builder appends nodes to a tree in pre-order. Push opens a node that
// receives the following nodes as children until the matching Pop; Add
// appends a complete leaf.
type Builder struct {
	tree  *Tree
	stack []int
}

// NewBuilder returns a builder appending to tree.
func NewBuilder(tree *Tree) *Builder {
	return &Builder{tree: tree}
}

// Tree returns the tree under construction.
func (b *Builder) Tree() *Tree {
	return b.tree
}

// Open returns the number of nodes opened by Push and not yet closed.
func (b *Builder) Open() int {
	return len(b.stack)
}

func (b *Builder) Push(value Value) {
	b.checkRoot()
	if len(b.stack) > 0 {
		b.tree.nodes[b.stack[len(b.stack)-1]].childCount++
	}
	b.stack = append(b.stack, b.tree.appendNode(value))
}

func (b *Builder) Add(value Value) {
	b.checkRoot()
	b.tree.appendNode(value)
	if len(b.stack) > 0 {
		parent := &b.tree.nodes[b.stack[len(b.stack)-1]]
		parent.childCount++
		parent.subtreeSize++
	}
}

// Pop closes the most recently pushed node and folds its size into its parent.
func (b *Builder) Pop() {
	if len(b.stack) == 0 {
		panic("genome: pop with no open node")
	}
	size := b.tree.nodes[b.stack[len(b.stack)-1]].subtreeSize
	b.stack = b.stack[:len(b.stack)-1]
	if len(b.stack) > 0 {
		b.tree.nodes[b.stack[len(b.stack)-1]].subtreeSize += size
	}
}

// AddTree appends a complete copy of sub as the next child of the open node.
func (b *Builder) AddTree(sub *Tree) {
	if sub.Len() == 0 {
		return
	}
	b.checkRoot()
	b.tree.nodes = append(b.tree.nodes, sub.nodes...)
	if len(b.stack) > 0 {
		parent := &b.tree.nodes[b.stack[len(b.stack)-1]]
		parent.childCount++
		parent.subtreeSize += uint32(sub.Len())
	}
}

// checkRoot panics when a closed root would gain a sibling.
func (b *Builder) checkRoot() {
	if len(b.stack) == 0 && b.tree.Len() > 0 {
		panic("genome: tree already has a root")
	}
}
