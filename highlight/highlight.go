// Package highlight turns query captures into style regions.
//
// Overlapping captures are all kept. A renderer applies regions in order,
// as layered text attributes, so for any one visual property the region
// applied last wins. Layers and Theme implement that policy for renderers
// that cannot layer attributes themselves.
package highlight

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dhamidi/sclview/span"
	"github.com/dhamidi/sclview/syntax"
	"github.com/dhamidi/sclview/tree"
)

var ErrForeignCapture = errors.New("capture node is not part of the index")

type Region struct {
	Span span.Span
	Tag  string
	Ref  tree.Ref
}

// Resolve returns one region per capture, ordered by start position.
// Regions starting at the same position keep the order of captures, so
// Resolve is deterministic for a given capture list.
func Resolve(ix *tree.Index, captures []syntax.Capture) ([]Region, error) {
	regions := make([]Region, 0, len(captures))
	for _, c := range captures {
		if c.Node == nil {
			return nil, fmt.Errorf("capture @%s: %w", c.Name, ErrForeignCapture)
		}
		ref, ok := ix.Lookup(c.Node.ID())
		if !ok {
			return nil, fmt.Errorf("capture @%s on %s node %d: %w", c.Name, c.Node.Kind(), c.Node.ID(), ErrForeignCapture)
		}
		regions = append(regions, Region{
			Span: ix.MustNode(ref).Span,
			Tag:  c.Name,
			Ref:  ref,
		})
	}
	slices.SortStableFunc(regions, func(a, b Region) int {
		return int(span.Compare(a.Span.Start, b.Span.Start))
	})
	return regions, nil
}

// Segment is a stretch of text with a fixed set of tags. Tags are listed in
// the order their regions are applied.
type Segment struct {
	Span span.Span
	Tags []string
}

// Layers cuts the text covered by regions into segments that do not
// overlap. Text no region covers gets no segment; empty regions are
// ignored. regions must be ordered as Resolve orders them.
func Layers(regions []Region) []Segment {
	var bounds []span.Position
	for _, r := range regions {
		if !r.Span.IsEmpty() {
			bounds = append(bounds, r.Span.Start, r.Span.End)
		}
	}
	slices.SortFunc(bounds, func(a, b span.Position) int {
		return int(span.Compare(a, b))
	})
	bounds = slices.CompactFunc(bounds, func(a, b span.Position) bool {
		return span.Compare(a, b) == span.Equal
	})

	var (
		segments []Segment
		active   []int
		next     int
	)
	for i, pos := range bounds {
		active = slices.DeleteFunc(active, func(r int) bool {
			return span.Compare(regions[r].Span.End, pos) != span.After
		})
		for ; next < len(regions) && span.Compare(regions[next].Span.Start, pos) != span.After; next++ {
			if regions[next].Span.IsEmpty() {
				continue
			}
			// active stays sorted by region index, which is the order of
			// application.
			at, _ := slices.BinarySearch(active, next)
			active = slices.Insert(active, at, next)
		}
		if len(active) == 0 || i+1 == len(bounds) {
			continue
		}
		tags := make([]string, len(active))
		for j, r := range active {
			tags[j] = regions[r].Tag
		}
		segments = append(segments, Segment{
			Span: span.Span{Start: pos, End: bounds[i+1]},
			Tags: tags,
		})
	}
	return segments
}
