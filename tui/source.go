package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dhamidi/sclview/highlight"
	"github.com/dhamidi/sclview/session"
	"github.com/dhamidi/sclview/span"
)

const tabWidth = 4

// paintLines renders the file's source one styled string per row. Zero
// width errors show up as a marker in the error style.
func paintLines(f *session.File, theme highlight.Theme) []string {
	src := f.Source
	var (
		errors  []span.Span
		markers = make(map[int]int)
	)
	for _, ref := range f.Index.Errors() {
		n := f.Index.MustNode(ref)
		errors = append(errors, n.Span)
		if n.Span.IsEmpty() {
			markers[n.Span.Start.Offset]++
		}
	}

	cache := make(map[string]lipgloss.Style)
	styleFor := func(tags []string) lipgloss.Style {
		k := strings.Join(tags, " ")
		st, ok := cache[k]
		if !ok {
			st = lipglossStyle(theme.Style(tags))
			cache[k] = st
		}
		return st
	}
	errorStyle := styleFor([]string{highlight.ErrorTag})
	marker := func(b *strings.Builder, offset int) {
		for range markers[offset] {
			b.WriteString(errorStyle.Render("‸"))
		}
	}

	var (
		lines []string
		b     strings.Builder
	)
	for _, run := range highlight.Paint(len(src), f.Regions, errors) {
		marker(&b, run.Start)
		st := styleFor(run.Tags)
		for i, piece := range strings.Split(f.Display(run.Start, run.End), "\n") {
			if i > 0 {
				lines = append(lines, b.String())
				b.Reset()
			}
			text := strings.ReplaceAll(strings.TrimSuffix(piece, "\r"), "\t", strings.Repeat(" ", tabWidth))
			if text == "" {
				continue
			}
			if len(run.Tags) == 0 {
				b.WriteString(text)
			} else {
				b.WriteString(st.Render(text))
			}
		}
	}
	marker(&b, len(src))
	return append(lines, b.String())
}
