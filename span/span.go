// Package span models locations and ranges in source text.
//
// Rows and columns are 0-based. Columns count bytes within a row, the same
// unit the parser reports. Converting to the 1-based rows or character
// columns a text widget expects is left to the presentation layer.
package span

import (
	"fmt"
)

// Position is a location in source text. Offset is the byte offset from
// the start of the input; it is carried along for slicing but does not take
// part in ordering.
type Position struct {
	Row    int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.Row, p.Column)
}

// Ordering is the result of comparing two positions.
type Ordering int

const (
	Before Ordering = iota - 1
	Equal
	After
)

func (o Ordering) String() string {
	switch o {
	case Before:
		return "before"
	case Equal:
		return "equal"
	case After:
		return "after"
	}
	return "unknown"
}

// Compare orders positions by row, then column.
func Compare(a, b Position) Ordering {
	switch {
	case a.Row < b.Row:
		return Before
	case a.Row > b.Row:
		return After
	case a.Column < b.Column:
		return Before
	case a.Column > b.Column:
		return After
	}
	return Equal
}

// Span is the range [Start, End] between two positions. Start never comes
// after End.
type Span struct {
	Start Position
	End   Position
}

// New returns the span from start to end, or an error if end comes before
// start.
func New(start, end Position) (Span, error) {
	if Compare(start, end) == After {
		return Span{}, fmt.Errorf("span: start %s after end %s", start, end)
	}
	return Span{Start: start, End: end}, nil
}

// At returns the empty span at p.
func At(p Position) Span {
	return Span{Start: p, End: p}
}

// IsEmpty reports whether the span covers no text. Missing-token markers
// are empty.
func (s Span) IsEmpty() bool {
	return Compare(s.Start, s.End) == Equal
}

// ContainsPosition reports whether p lies within s. The end position is
// included so that a cursor sitting right after a token still selects it.
func (s Span) ContainsPosition(p Position) bool {
	return Compare(s.Start, p) != After && Compare(p, s.End) != After
}

func (s Span) String() string {
	return s.Start.String() + " - " + s.End.String()
}

// Contains reports whether inner lies entirely within outer.
func Contains(outer, inner Span) bool {
	return Compare(outer.Start, inner.Start) != After && Compare(inner.End, outer.End) != After
}
