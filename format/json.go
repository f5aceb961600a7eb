package format

import (
	"encoding/json"
	"io"

	"github.com/dhamidi/sclview/syntax"
	"github.com/dhamidi/sclview/tree"
)

// JSONEncoder writes the index as nested JSON objects. With a source, leaves
// carry their text.
type JSONEncoder struct {
	w      io.Writer
	ix     *tree.Index
	source []byte
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

func (e *JSONEncoder) WithSource(src []byte) *JSONEncoder {
	e.source = src
	return e
}

func (e *JSONEncoder) Encode(ix *tree.Index) error {
	e.ix = ix
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	if _, err := e.w.Write(text); err != nil {
		return err
	}
	_, err = io.WriteString(e.w, "\n")
	return err
}

func (e *JSONEncoder) MarshalText() ([]byte, error) {
	return json.MarshalIndent(e.node(e.ix.Root()), "", "  ")
}

type jsonNode struct {
	Kind     string      `json:"kind"`
	Field    string      `json:"field,omitempty"`
	Named    bool        `json:"named"`
	Span     jsonSpan    `json:"span"`
	Error    bool        `json:"error,omitempty"`
	Missing  bool        `json:"missing,omitempty"`
	Text     string      `json:"text,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

type jsonSpan struct {
	Start jsonPosition `json:"start"`
	End   jsonPosition `json:"end"`
}

type jsonPosition struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

func (e *JSONEncoder) node(ref tree.Ref) *jsonNode {
	n := e.ix.MustNode(ref)
	jn := &jsonNode{
		Kind:    n.Kind,
		Field:   n.Field,
		Named:   n.Named,
		Error:   n.Error,
		Missing: n.Missing,
		Span: jsonSpan{
			Start: jsonPosition{Row: n.Span.Start.Row, Column: n.Span.Start.Column},
			End:   jsonPosition{Row: n.Span.End.Row, Column: n.Span.End.Column},
		},
	}
	if e.source != nil && len(n.Children) == 0 && !n.Missing {
		jn.Text = syntax.Text(n.Syntax, e.source)
	}
	if len(n.Children) > 0 {
		jn.Children = make([]*jsonNode, len(n.Children))
		for i, child := range n.Children {
			jn.Children[i] = e.node(child)
		}
	}
	return jn
}
