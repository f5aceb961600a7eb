package scl

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/dhamidi/sclview/span"
	"github.com/dhamidi/sclview/syntax"
)

// KindError is the kind of nodes covering input the parser skipped.
const KindError = "ERROR"

// IDs come from one process-wide counter, so no two nodes ever share one,
// even across parses.
var lastNodeID atomic.Uint64

type Error struct {
	Message  string
	Expected []string
}

// Node is a node of an SCL concrete syntax tree. Named nodes use the rule
// names of the tree-sitter grammar (function_block, if_statement, ...);
// anonymous nodes are keywords and punctuation, with the token's canonical
// spelling as their Type.
type Node struct {
	Type      string
	Range     span.Span
	FieldName string
	Named     bool
	Missing   bool
	Children  []*Node
	Token     *Token
	Error     *Error

	id uintptr
}

func newNode(kind string) *Node {
	return &Node{
		Type:  kind,
		Named: true,
		id:    uintptr(lastNodeID.Add(1)),
	}
}

func (n *Node) ID() uintptr { return n.id }
func (n *Node) Kind() string { return n.Type }
func (n *Node) Span() span.Span { return n.Range }
func (n *Node) Field() string { return n.FieldName }
func (n *Node) IsNamed() bool { return n.Named }
func (n *Node) IsError() bool { return n.Type == KindError }
func (n *Node) IsMissing() bool { return n.Missing }
func (n *Node) ChildCount() int { return len(n.Children) }
func (n *Node) Child(i int) syntax.Node { return n.Children[i] }

// AddChild appends child and widens the span to cover it.
func (n *Node) AddChild(child *Node) {
	if child == nil {
		return
	}
	if len(n.Children) == 0 {
		n.Range = child.Range
	} else {
		if span.Compare(child.Range.Start, n.Range.Start) == span.Before {
			n.Range.Start = child.Range.Start
		}
		if span.Compare(child.Range.End, n.Range.End) == span.After {
			n.Range.End = child.Range.End
		}
	}
	n.Children = append(n.Children, child)
}

func (n *Node) addField(field string, child *Node) {
	if child == nil {
		return
	}
	child.FieldName = field
	n.AddChild(child)
}

func (n *Node) FirstChildOfKind(kind string) *Node {
	for _, child := range n.Children {
		if child.Type == kind {
			return child
		}
	}
	return nil
}

func (n *Node) ChildByField(field string) *Node {
	for _, child := range n.Children {
		if child.FieldName == field {
			return child
		}
	}
	return nil
}

func (n *Node) NamedChildren() []*Node {
	var result []*Node
	for _, child := range n.Children {
		if child.Named {
			result = append(result, child)
		}
	}
	return result
}

func (n *Node) TokenLiteral() string {
	if n.Token != nil {
		return n.Token.Literal
	}
	return ""
}

// String renders named nodes as an s-expression, the format the
// tree-sitter CLI prints.
func (n *Node) String() string {
	var b strings.Builder
	n.writeSexp(&b)
	return b.String()
}

func (n *Node) writeSexp(b *strings.Builder) {
	if n.FieldName != "" {
		b.WriteString(n.FieldName)
		b.WriteString(": ")
	}
	if n.Missing {
		b.WriteString("(MISSING ")
		if n.Named {
			b.WriteString(n.Type)
		} else {
			b.WriteString(strconv.Quote(n.Type))
		}
		b.WriteString(")")
		return
	}
	b.WriteString("(")
	b.WriteString(n.Type)
	for _, child := range n.Children {
		if !child.Named && !child.Missing {
			continue
		}
		b.WriteString(" ")
		child.writeSexp(b)
	}
	b.WriteString(")")
}

// Tree is the result of parsing one SCL source.
type Tree struct {
	Root   *Node
	source []byte
	errors int
}

func (t *Tree) RootNode() syntax.Node { return t.Root }
func (t *Tree) Source() []byte { return t.source }

// HasError reports whether the tree contains error or missing nodes.
func (t *Tree) HasError() bool { return t.errors > 0 }
