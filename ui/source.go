package ui

import (
	"html/template"
	"strconv"
	"strings"

	"github.com/dhamidi/sclview/format"
	"github.com/dhamidi/sclview/highlight"
	"github.com/dhamidi/sclview/session"
	"github.com/dhamidi/sclview/span"
	"github.com/dhamidi/sclview/tree"
)

// renderSource paints the file's source as HTML. Painted runs become
// styled spans, zero width missing nodes become markers, and every row is
// wrapped in a span with an L<row> anchor.
func renderSource(f *session.File, theme highlight.Theme) template.HTML {
	src := f.Source
	var (
		errors  []span.Span
		markers = make(map[int][]*tree.Node)
	)
	for _, ref := range f.Index.Errors() {
		n := f.Index.MustNode(ref)
		errors = append(errors, n.Span)
		if n.Span.IsEmpty() {
			markers[n.Span.Start.Offset] = append(markers[n.Span.Start.Offset], n)
		}
	}
	errorStyle, _ := theme.Lookup(highlight.ErrorTag)

	var b strings.Builder
	row := 0
	b.WriteString(`<span class="line" id="L0">`)
	writeMarkers := func(offset int) {
		for _, n := range markers[offset] {
			writeStyled(&b, css(errorStyle), format.ErrorMessage(n), "‸", "missing")
		}
	}
	for _, run := range highlight.Paint(len(src), f.Regions, errors) {
		writeMarkers(run.Start)
		style := css(theme.Style(run.Tags))
		title := strings.Join(run.Tags, " ")
		for i, line := range strings.Split(f.Display(run.Start, run.End), "\n") {
			if i > 0 {
				row++
				b.WriteString("</span>\n")
				b.WriteString(`<span class="line" id="L` + strconv.Itoa(row) + `">`)
			}
			if len(line) == 0 {
				continue
			}
			if len(run.Tags) == 0 {
				b.WriteString(template.HTMLEscapeString(line))
				continue
			}
			writeStyled(&b, style, title, line, "")
		}
	}
	writeMarkers(len(src))
	b.WriteString("</span>")
	return template.HTML(b.String())
}

func writeStyled(b *strings.Builder, style, title, text, class string) {
	b.WriteString(`<span`)
	if class != "" {
		b.WriteString(` class="` + class + `"`)
	}
	b.WriteString(` style="` + template.HTMLEscapeString(style) + `"`)
	b.WriteString(` title="` + template.HTMLEscapeString(title) + `">`)
	b.WriteString(template.HTMLEscapeString(text))
	b.WriteString(`</span>`)
}

func css(s highlight.Style) string {
	var rules []string
	if s.Foreground != "" {
		rules = append(rules, "color: "+s.Foreground)
	}
	if s.Background != "" {
		rules = append(rules, "background-color: "+s.Background)
	}
	if s.Bold {
		rules = append(rules, "font-weight: bold")
	}
	if s.Italic {
		rules = append(rules, "font-style: italic")
	}
	if s.Underline {
		rules = append(rules, "text-decoration: underline")
	}
	return strings.Join(rules, "; ")
}
