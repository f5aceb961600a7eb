package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/sclview/scl"
	"github.com/dhamidi/sclview/span"
	"github.com/dhamidi/sclview/syntax"
)

type fakeNode struct {
	id       uintptr
	kind     string
	sp       span.Span
	isError  bool
	missing  bool
	children []syntax.Node
}

func (n *fakeNode) ID() uintptr             { return n.id }
func (n *fakeNode) Kind() string            { return n.kind }
func (n *fakeNode) Span() span.Span         { return n.sp }
func (n *fakeNode) Field() string           { return "" }
func (n *fakeNode) IsNamed() bool           { return true }
func (n *fakeNode) IsError() bool           { return n.isError }
func (n *fakeNode) IsMissing() bool         { return n.missing }
func (n *fakeNode) ChildCount() int         { return len(n.children) }
func (n *fakeNode) Child(i int) syntax.Node { return n.children[i] }

func pos(row, col int) span.Position {
	return span.Position{Row: row, Column: col}
}

func sp(r1, c1, r2, c2 int) span.Span {
	return span.Span{Start: pos(r1, c1), End: pos(r2, c2)}
}

// handcrafted builds:
//
//	root
//	├── a (error)
//	│   └── a1 (missing)
//	└── b
//	    ├── b1
//	    └── b2 (error)
func handcrafted() *fakeNode {
	a1 := &fakeNode{id: 3, kind: "a1", sp: sp(0, 4, 0, 4), missing: true}
	a := &fakeNode{id: 2, kind: "a", sp: sp(0, 0, 0, 4), isError: true, children: []syntax.Node{a1}}
	b1 := &fakeNode{id: 5, kind: "b1", sp: sp(1, 0, 1, 2)}
	b2 := &fakeNode{id: 6, kind: "b2", sp: sp(1, 3, 1, 6), isError: true}
	b := &fakeNode{id: 4, kind: "b", sp: sp(1, 0, 1, 6), children: []syntax.Node{b1, b2}}
	return &fakeNode{id: 1, kind: "root", sp: sp(0, 0, 2, 0), children: []syntax.Node{a, b}}
}

func kinds(t *testing.T, ix *Index, refs []Ref) []string {
	t.Helper()
	var out []string
	for _, ref := range refs {
		n, err := ix.Node(ref)
		require.NoError(t, err)
		out = append(out, n.Kind)
	}
	return out
}

func TestBuildPreOrder(t *testing.T) {
	ix, err := Build(handcrafted())
	require.NoError(t, err)

	var got []string
	for n := range ix.All() {
		got = append(got, n.Kind)
	}
	assert.Equal(t, []string{"root", "a", "a1", "b", "b1", "b2"}, got)
	assert.Equal(t, 6, ix.Len())
}

func TestErrorRegistry(t *testing.T) {
	ix, err := Build(handcrafted())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a1", "b2"}, kinds(t, ix, ix.Errors()))
}

func TestErrorsReturnsCopy(t *testing.T) {
	ix, err := Build(handcrafted())
	require.NoError(t, err)
	errs := ix.Errors()
	errs[0] = Ref{}
	assert.False(t, ix.Errors()[0].IsZero())
}

func TestAdjacency(t *testing.T) {
	ix, err := Build(handcrafted())
	require.NoError(t, err)

	root := ix.MustNode(ix.Root())
	assert.True(t, root.Parent.IsZero())
	assert.Equal(t, []string{"a", "b"}, kinds(t, ix, root.Children))

	b := ix.MustNode(root.Children[1])
	assert.Equal(t, 1, b.Depth)
	assert.Equal(t, ix.Root(), b.Parent)
	assert.Equal(t, []string{"b1", "b2"}, kinds(t, ix, b.Children))
}

func TestLookup(t *testing.T) {
	ix, err := Build(handcrafted())
	require.NoError(t, err)

	ref, ok := ix.Lookup(5)
	require.True(t, ok)
	assert.Equal(t, "b1", ix.MustNode(ref).Kind)

	_, ok = ix.Lookup(99)
	assert.False(t, ok)
}

func TestStaleRef(t *testing.T) {
	first, err := Build(handcrafted())
	require.NoError(t, err)
	second, err := Build(handcrafted())
	require.NoError(t, err)
	assert.NotEqual(t, first.Generation(), second.Generation())

	_, err = second.Node(first.Root())
	assert.ErrorIs(t, err, ErrStaleRef)
	_, err = second.Node(Ref{})
	assert.ErrorIs(t, err, ErrStaleRef)
	_, err = second.Path(first.Errors()[0])
	assert.ErrorIs(t, err, ErrStaleRef)
}

func TestBuildNilRoot(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, ErrNilRoot)

	var typed *fakeNode
	_, err = Build(typed)
	assert.ErrorIs(t, err, ErrNilRoot)
}

func TestBuildRejectsCycle(t *testing.T) {
	root := handcrafted()
	b := root.children[1].(*fakeNode)
	b.children = append(b.children, root)

	ix, err := Build(root)
	assert.Nil(t, ix)
	require.ErrorIs(t, err, ErrCycle)

	var structErr *StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Equal(t, uintptr(1), structErr.ID)
}

func TestBuildRejectsSharedChild(t *testing.T) {
	root := handcrafted()
	a := root.children[0].(*fakeNode)
	b := root.children[1].(*fakeNode)
	b.children = append(b.children, a.children[0])

	_, err := Build(root)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestBuildRejectsNilChild(t *testing.T) {
	root := handcrafted()
	root.children = append(root.children, nil)

	_, err := Build(root)
	assert.ErrorIs(t, err, ErrNilChild)
}

func TestNodeAt(t *testing.T) {
	ix, err := Build(handcrafted())
	require.NoError(t, err)

	tests := []struct {
		pos  span.Position
		kind string
	}{
		{pos(0, 1), "a"},
		{pos(0, 4), "a1"},
		{pos(1, 1), "b1"},
		{pos(1, 5), "b2"},
		{pos(1, 3), "b2"},
		{pos(1, 7), "root"},
	}
	for _, tt := range tests {
		t.Run(tt.pos.String(), func(t *testing.T) {
			ref, ok := ix.NodeAt(tt.pos)
			require.True(t, ok)
			assert.Equal(t, tt.kind, ix.MustNode(ref).Kind)
		})
	}

	_, ok := ix.NodeAt(pos(5, 0))
	assert.False(t, ok)
}

func TestNodeAtCommentInsideIdentifier(t *testing.T) {
	tree := scl.Parse([]byte("FUNCTION_BLOCK \"FB\"\nBEGIN\n  # (* c *) s := 1;\nEND_FUNCTION_BLOCK\n"))
	ix, err := Build(tree.RootNode())
	require.NoError(t, err)

	ref, ok := ix.NodeAt(pos(2, 2))
	require.True(t, ok)
	named, err := ix.Named(ref)
	require.NoError(t, err)
	assert.Equal(t, "identifier", ix.MustNode(named).Kind)

	ref, ok = ix.NodeAt(pos(2, 5))
	require.True(t, ok)
	assert.Equal(t, "block_comment", ix.MustNode(ref).Kind)

	ref, ok = ix.NodeAt(pos(2, 12))
	require.True(t, ok)
	assert.Equal(t, "simple_identifier", ix.MustNode(ref).Kind)
}

func TestPath(t *testing.T) {
	ix, err := Build(handcrafted())
	require.NoError(t, err)

	ref, ok := ix.Lookup(6)
	require.True(t, ok)
	path, err := ix.Path(ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "b", "b2"}, kinds(t, ix, path))

	path, err = ix.Path(ix.Root())
	require.NoError(t, err)
	assert.Equal(t, []Ref{ix.Root()}, path)
}

func TestRegistryMatchesParsedTree(t *testing.T) {
	inputs := []string{
		"",
		"FUNCTION_BLOCK \"FB\" BEGIN\n  x := 1\nEND_FUNCTION_BLOCK\n",
		"garbage FUNCTION \"F\" : Int BEGIN IF a THEN x := ) ; END_FUNCTION",
		"DATA_BLOCK \"D\" BEGIN END_DATA_BLOCK",
		"TYPE \"T\" STRUCT a : Bool; b : ; END_STRUCT END_TYPE",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			tree := scl.Parse([]byte(input))
			ix, err := Build(tree.RootNode())
			require.NoError(t, err)

			var want []Ref
			for n := range ix.All() {
				if n.Syntax.IsError() || n.Syntax.IsMissing() {
					want = append(want, n.Ref)
				}
			}
			assert.Equal(t, want, ix.Errors())
			assert.Equal(t, tree.HasError(), len(ix.Errors()) > 0)
		})
	}
}

func TestEmptyInputIndexesRootOnly(t *testing.T) {
	ix, err := Build(scl.Parse(nil).RootNode())
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())
	assert.Empty(t, ix.Errors())

	ref, ok := ix.NodeAt(pos(0, 0))
	require.True(t, ok)
	assert.Equal(t, ix.Root(), ref)
}

func TestNamed(t *testing.T) {
	tree := scl.Parse([]byte("FUNCTION_BLOCK \"FB\" BEGIN x := 1; END_FUNCTION_BLOCK"))
	ix, err := Build(tree.RootNode())
	require.NoError(t, err)

	// Column 28 is the ":=" token.
	ref, ok := ix.NodeAt(span.Position{Row: 0, Column: 28})
	require.True(t, ok)
	leaf := ix.MustNode(ref)
	require.Equal(t, ":=", leaf.Kind)
	require.False(t, leaf.Named)

	named, err := ix.Named(ref)
	require.NoError(t, err)
	assert.Equal(t, "binary_expression", ix.MustNode(named).Kind)
}
