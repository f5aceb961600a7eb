package format

import (
	"io"
	"strings"

	"github.com/dhamidi/sclview/tree"
)

// OutlineEncoder writes one line per node, indented by depth:
//
//	source_file [(0, 0) - (4, 0)]
//	  function_block [(0, 0) - (3, 18)]
//	    "FUNCTION_BLOCK" [(0, 0) - (0, 14)]
//
// Nodes of the error registry are marked with a leading "!".
type OutlineEncoder struct {
	w         io.Writer
	ix        *tree.Index
	namedOnly bool
}

func NewOutlineEncoder(w io.Writer) *OutlineEncoder {
	return &OutlineEncoder{w: w}
}

// NamedOnly leaves out anonymous nodes, unless they are errors.
func (e *OutlineEncoder) NamedOnly(v bool) *OutlineEncoder {
	e.namedOnly = v
	return e
}

func (e *OutlineEncoder) Encode(ix *tree.Index) error {
	e.ix = ix
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *OutlineEncoder) MarshalText() ([]byte, error) {
	var sb strings.Builder
	for n := range e.ix.All() {
		if e.namedOnly && !n.Named && !n.IsError() {
			continue
		}
		if n.IsError() {
			sb.WriteString("!")
		} else {
			sb.WriteString(" ")
		}
		sb.WriteString(strings.Repeat("  ", n.Depth))
		sb.WriteString(Describe(n))
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}
