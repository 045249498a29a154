package render

import (
	"fmt"
	"io"
	"strings"

	"treegp/internal/genome"
	"treegp/internal/grammar"
)

// TerminalFunc overrides how a terminal node is printed. Returning false keeps
// the default, which prints the definition name.
type TerminalFunc func(def *grammar.Definition, node genome.Node) (string, bool)

// Printer renders trees as s-expressions: `(name child...)` for functions and
// the bare name for terminals.
type Printer struct {
	Catalog  *grammar.Catalog
	Terminal TerminalFunc
}

func NewPrinter(catalog *grammar.Catalog, terminal TerminalFunc) *Printer {
	return &Printer{Catalog: catalog, Terminal: terminal}
}

// String renders the whole tree.
func (p *Printer) String(tree *genome.Tree) string {
	var sb strings.Builder
	p.write(&sb, tree.Root())
	return sb.String()
}

// Node renders the sub-tree rooted at n.
func (p *Printer) Node(n genome.Node) string {
	var sb strings.Builder
	p.write(&sb, n)
	return sb.String()
}

func (p *Printer) Fprint(w io.Writer, tree *genome.Tree) error {
	_, err := io.WriteString(w, p.String(tree))
	return err
}

func (p *Printer) write(sb *strings.Builder, n genome.Node) {
	def := p.Catalog.DefinitionForNode(n)
	if def.IsTerminal() {
		if !n.IsEmpty() {
			panic(fmt.Sprintf("render: terminal %q at node %d has %d children", def.Name(), n.ID(), n.ChildCount()))
		}
		if p.Terminal != nil {
			if text, ok := p.Terminal(def, n); ok {
				sb.WriteString(text)
				return
			}
		}
		sb.WriteString(def.Name())
		return
	}
	checkArity(def, n)
	sb.WriteByte('(')
	sb.WriteString(def.Name())
	for child := range n.Children() {
		sb.WriteByte(' ')
		p.write(sb, child)
	}
	sb.WriteByte(')')
}

func checkArity(def *grammar.Definition, n genome.Node) {
	if n.ChildCount() != def.Arity() {
		panic(fmt.Sprintf("render: function %q at node %d has %d children, declared arity %d", def.Name(), n.ID(), n.ChildCount(), def.Arity()))
	}
}
