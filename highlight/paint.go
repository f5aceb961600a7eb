package highlight

import (
	"slices"

	"github.com/dhamidi/sclview/span"
)

// Run is a stretch of source bytes painted with the same tags. Tags is nil
// for text no region covers. ErrorTag comes last when an error covers the
// run.
type Run struct {
	Start, End int
	Tags       []string
}

// Paint cuts the offsets [0, n) into consecutive runs using the layered
// regions and the error spans. Every error span start and end is a run
// boundary, including those of empty spans, so a caller can place markers
// for zero width errors between runs.
func Paint(n int, regions []Region, errors []span.Span) []Run {
	if n <= 0 {
		return nil
	}
	segments := Layers(regions)
	covering := make([]int, n)
	for i := range covering {
		covering[i] = -1
	}
	for i, seg := range segments {
		for o := clamp(seg.Span.Start.Offset, n); o < clamp(seg.Span.End.Offset, n); o++ {
			covering[o] = i
		}
	}

	broken := make([]bool, n)
	breaks := make([]bool, n+1)
	for _, e := range errors {
		start, end := clamp(e.Start.Offset, n), clamp(e.End.Offset, n)
		breaks[start], breaks[end] = true, true
		for o := start; o < end; o++ {
			broken[o] = true
		}
	}

	var runs []Run
	start := 0
	for o := 1; o <= n; o++ {
		if o < n && !breaks[o] && covering[o] == covering[start] && broken[o] == broken[start] {
			continue
		}
		var tags []string
		if seg := covering[start]; seg >= 0 {
			tags = segments[seg].Tags
		}
		if broken[start] {
			tags = append(slices.Clip(tags), ErrorTag)
		}
		runs = append(runs, Run{Start: start, End: o, Tags: tags})
		start = o
	}
	return runs
}

func clamp(offset, n int) int {
	return max(0, min(offset, n))
}
