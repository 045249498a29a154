package render

import (
	"fmt"
	"strings"

	"treegp/internal/genome"
	"treegp/internal/grammar"
)

// CompilerDelegate customises Compiler output. Any hook may be nil.
type CompilerDelegate struct {
	// Terminal replaces the output of a terminal node when it returns true.
	Terminal TerminalFunc
	// Function replaces the output of a whole function node when it returns true.
	Function func(def *grammar.Definition, node genome.Node) (string, bool)
	// Operator reports whether a unary or binary function prints as an
	// operator: `(op x)` or `(x op y)`.
	Operator func(def *grammar.Definition) bool
}

// Compiler renders trees as source-like text: `name(a, b)` calls, or infix
// operators when the delegate asks for them.
type Compiler struct {
	catalog  *grammar.Catalog
	delegate CompilerDelegate
}

func NewCompiler(catalog *grammar.Catalog, delegate CompilerDelegate) *Compiler {
	return &Compiler{catalog: catalog, delegate: delegate}
}

// OperatorNames returns an Operator hook matching any of names.
func OperatorNames(names ...string) func(def *grammar.Definition) bool {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return func(def *grammar.Definition) bool {
		_, ok := set[def.Name()]
		return ok
	}
}

func (c *Compiler) String(tree *genome.Tree) string {
	var sb strings.Builder
	c.write(&sb, tree.Root())
	return sb.String()
}

// Node renders the sub-tree rooted at n. Delegate hooks may call it to
// render operands.
func (c *Compiler) Node(n genome.Node) string {
	var sb strings.Builder
	c.write(&sb, n)
	return sb.String()
}

func (c *Compiler) write(sb *strings.Builder, n genome.Node) {
	def := c.catalog.DefinitionForNode(n)
	if def.IsTerminal() {
		if hook := c.delegate.Terminal; hook != nil {
			if text, ok := hook(def, n); ok {
				sb.WriteString(text)
				return
			}
		}
		sb.WriteString(def.Name())
		return
	}
	checkArity(def, n)
	if hook := c.delegate.Function; hook != nil {
		if text, ok := hook(def, n); ok {
			sb.WriteString(text)
			return
		}
	}
	if c.delegate.Operator != nil && c.delegate.Operator(def) {
		switch n.ChildCount() {
		case 1:
			sb.WriteString("(" + def.Name() + " ")
			c.write(sb, n.Child(0))
			sb.WriteByte(')')
		case 2:
			sb.WriteByte('(')
			c.write(sb, n.Child(0))
			sb.WriteString(" " + def.Name() + " ")
			c.write(sb, n.Child(1))
			sb.WriteByte(')')
		default:
			panic(fmt.Sprintf("render: operator %q needs 1 or 2 operands, has %d", def.Name(), n.ChildCount()))
		}
		return
	}
	sb.WriteString(def.Name())
	sb.WriteByte('(')
	first := true
	for child := range n.Children() {
		if !first {
			sb.WriteString(", ")
		}
		c.write(sb, child)
		first = false
	}
	sb.WriteByte(')')
}
