// Package syntax defines what sclview needs from a parser and from a
// highlight query engine. Implementations adapt whatever library they wrap
// to these interfaces; the rest of the module depends only on them.
package syntax

import (
	"reflect"

	"github.com/dhamidi/sclview/span"
)

// Node is a node of a concrete syntax tree.
//
// ID identifies the node within the tree that produced it. Two different
// parses make no promise about IDs, so callers must not carry them from one
// tree to another.
type Node interface {
	ID() uintptr
	Kind() string
	Span() span.Span
	// Field is the name of the grammar field this node fills in its
	// parent, or "" when it fills none.
	Field() string
	// IsNamed is false for anonymous tokens such as keywords and
	// punctuation.
	IsNamed() bool
	// IsError reports whether the node is a region the parser could not
	// make sense of.
	IsError() bool
	// IsMissing reports whether the node stands for a required token the
	// parser had to assume. Missing nodes have empty spans.
	IsMissing() bool
	ChildCount() int
	Child(i int) Node
}

// Tree is the result of parsing one input.
type Tree interface {
	RootNode() Node
	// HasError reports whether any node of the tree is an error or
	// missing node.
	HasError() bool
	// Source returns the bytes the tree was parsed from.
	Source() []byte
}

// Parser turns bytes into a tree. Parse must not modify src and must be
// safe to call repeatedly.
type Parser interface {
	Parse(src []byte) (Tree, error)
}

// Capture is one node matched by a named capture of a query pattern.
type Capture struct {
	Node Node
	Name string
}

// Query produces highlight captures for a tree.
type Query interface {
	Captures(tree Tree) ([]Capture, error)
	CaptureNames() []string
}

// Text returns the source text covered by n.
func Text(n Node, src []byte) string {
	s := n.Span()
	start, end := s.Start.Offset, s.End.Offset
	if start < 0 || end > len(src) || start > end {
		return ""
	}
	return string(src[start:end])
}

// IsNil reports whether v is nil, including a nil pointer held in an
// interface such as a Node or a Tree.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
