// Package tree indexes a parsed syntax tree.
//
// Build walks the tree once and records every node in an arena. Nodes are
// addressed by Ref, an opaque handle that is only valid for the Index that
// issued it. The Index also keeps the error registry: every error or
// missing node, in document order.
package tree

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync/atomic"

	"github.com/dhamidi/sclview/span"
	"github.com/dhamidi/sclview/syntax"
)

var (
	ErrNilRoot  = errors.New("nil root node")
	ErrNilChild = errors.New("nil child node")
	ErrCycle    = errors.New("node reached twice")
	ErrStaleRef = errors.New("ref does not belong to this index")
)

// StructureError reports a malformed external tree. Err is one of
// ErrNilChild or ErrCycle.
type StructureError struct {
	ID   uintptr
	Kind string
	Err  error
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("node %d (%s): %v", e.ID, e.Kind, e.Err)
}

func (e *StructureError) Unwrap() error {
	return e.Err
}

// Ref is a handle to a node of one Index. The zero Ref refers to nothing.
type Ref struct {
	index int
	gen   uint64
}

func (r Ref) IsZero() bool {
	return r.gen == 0
}

func (r Ref) String() string {
	if r.IsZero() {
		return "ref(none)"
	}
	return fmt.Sprintf("ref(%d@%d)", r.index, r.gen)
}

// Node is the indexed view of one syntax node. Nodes belong to their Index
// and must not be modified.
type Node struct {
	Ref      Ref
	Kind     string
	Field    string
	Span     span.Span
	Named    bool
	Error    bool
	Missing  bool
	Depth    int
	Parent   Ref
	Children []Ref

	// Syntax is the node as the parser produced it.
	Syntax syntax.Node
}

// IsError reports whether the node belongs in the error registry.
func (n *Node) IsError() bool {
	return n.Error || n.Missing
}

type Index struct {
	gen    uint64
	nodes  []Node
	errors []Ref
	byID   map[uintptr]Ref
}

var generations atomic.Uint64

// Build indexes the tree below root in one depth-first pre-order walk.
// A tree in which some node is reached twice is rejected; no partial index
// is returned.
func Build(root syntax.Node) (*Index, error) {
	if syntax.IsNil(root) {
		return nil, ErrNilRoot
	}
	ix := &Index{
		gen:  generations.Add(1),
		byID: map[uintptr]Ref{},
	}

	type frame struct {
		node   syntax.Node
		parent Ref
		depth  int
	}
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := f.node.ID()
		if _, seen := ix.byID[id]; seen {
			return nil, &StructureError{ID: id, Kind: f.node.Kind(), Err: ErrCycle}
		}
		ref := Ref{index: len(ix.nodes), gen: ix.gen}
		ix.byID[id] = ref
		ix.nodes = append(ix.nodes, Node{
			Ref:     ref,
			Kind:    f.node.Kind(),
			Field:   f.node.Field(),
			Span:    f.node.Span(),
			Named:   f.node.IsNamed(),
			Error:   f.node.IsError(),
			Missing: f.node.IsMissing(),
			Depth:   f.depth,
			Parent:  f.parent,
			Syntax:  f.node,
		})
		if f.node.IsError() || f.node.IsMissing() {
			ix.errors = append(ix.errors, ref)
		}
		if !f.parent.IsZero() {
			parent := &ix.nodes[f.parent.index]
			parent.Children = append(parent.Children, ref)
		}

		// Push in reverse so children pop in order.
		for i := f.node.ChildCount() - 1; i >= 0; i-- {
			child := f.node.Child(i)
			if syntax.IsNil(child) {
				return nil, &StructureError{ID: id, Kind: f.node.Kind(), Err: ErrNilChild}
			}
			stack = append(stack, frame{node: child, parent: ref, depth: f.depth + 1})
		}
	}
	return ix, nil
}


// Generation distinguishes indexes. No two Builds share one.
func (ix *Index) Generation() uint64 {
	return ix.gen
}

func (ix *Index) Root() Ref {
	return ix.nodes[0].Ref
}

func (ix *Index) Len() int {
	return len(ix.nodes)
}

func (ix *Index) valid(ref Ref) bool {
	return ref.gen == ix.gen && ref.index >= 0 && ref.index < len(ix.nodes)
}

func (ix *Index) Node(ref Ref) (*Node, error) {
	if !ix.valid(ref) {
		return nil, fmt.Errorf("%v: %w", ref, ErrStaleRef)
	}
	return &ix.nodes[ref.index], nil
}

// MustNode is Node for refs known to come from ix.
func (ix *Index) MustNode(ref Ref) *Node {
	n, err := ix.Node(ref)
	if err != nil {
		panic(err)
	}
	return n
}

// Lookup maps a syntax node ID back to its Ref.
func (ix *Index) Lookup(id uintptr) (Ref, bool) {
	ref, ok := ix.byID[id]
	return ref, ok
}

// Errors returns the error registry: every error or missing node in
// document order.
func (ix *Index) Errors() []Ref {
	return slices.Clone(ix.errors)
}

// All yields every node in pre-order.
func (ix *Index) All() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for i := range ix.nodes {
			if !yield(&ix.nodes[i]) {
				return
			}
		}
	}
}

// NodeAt returns the deepest node whose span contains pos. Where two
// siblings meet at pos the later one wins, so a missing node sitting at
// the end of a token is found.
func (ix *Index) NodeAt(pos span.Position) (Ref, bool) {
	n := &ix.nodes[0]
	if !n.Span.ContainsPosition(pos) {
		return Ref{}, false
	}
	for {
		var next *Node
		for _, child := range n.Children {
			c := &ix.nodes[child.index]
			if c.Span.ContainsPosition(pos) {
				next = c
			}
		}
		if next == nil {
			return n.Ref, true
		}
		n = next
	}
}

// Named returns ref itself if it is a named node, otherwise its nearest
// named ancestor.
func (ix *Index) Named(ref Ref) (Ref, error) {
	n, err := ix.Node(ref)
	if err != nil {
		return Ref{}, err
	}
	for !n.Named && !n.Parent.IsZero() {
		n = &ix.nodes[n.Parent.index]
	}
	return n.Ref, nil
}

// Path returns the refs from the root down to ref.
func (ix *Index) Path(ref Ref) ([]Ref, error) {
	n, err := ix.Node(ref)
	if err != nil {
		return nil, err
	}
	path := make([]Ref, n.Depth+1)
	for i := n.Depth; i >= 0; i-- {
		path[i] = n.Ref
		if !n.Parent.IsZero() {
			n = &ix.nodes[n.Parent.index]
		}
	}
	return path, nil
}
