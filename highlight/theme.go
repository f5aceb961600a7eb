package highlight

import (
	"fmt"
	"regexp"
	"strings"
)

// Style is the set of visual attributes a tag contributes. Empty colors
// leave the color of earlier layers alone.
type Style struct {
	Foreground string `yaml:"foreground,omitempty" json:"foreground,omitempty"`
	Background string `yaml:"background,omitempty" json:"background,omitempty"`
	Bold       bool   `yaml:"bold,omitempty" json:"bold,omitempty"`
	Italic     bool   `yaml:"italic,omitempty" json:"italic,omitempty"`
	Underline  bool   `yaml:"underline,omitempty" json:"underline,omitempty"`
}

// Over returns s layered on top of base.
func (s Style) Over(base Style) Style {
	out := base
	if s.Foreground != "" {
		out.Foreground = s.Foreground
	}
	if s.Background != "" {
		out.Background = s.Background
	}
	out.Bold = out.Bold || s.Bold
	out.Italic = out.Italic || s.Italic
	out.Underline = out.Underline || s.Underline
	return out
}

func (s Style) IsZero() bool {
	return s == Style{}
}

// Theme maps capture names to styles.
type Theme map[string]Style

// ErrorTag styles error nodes. The highlight query never captures it;
// renderers add it for spans of the error registry.
const ErrorTag = "error"

// DefaultTheme returns a dark palette.
func DefaultTheme() Theme {
	return Theme{
		"keyword":               {Foreground: "#C586C0"},
		"keyword.operator":      {Foreground: "#C586C0"},
		"keyword.type":          {Foreground: "#569CD6"},
		"type":                  {Foreground: "#4EC9B0"},
		"function":              {Foreground: "#DCDCAA"},
		"variable":              {Foreground: "#9CDCFE"},
		"variable.parameter":    {Foreground: "#9CDCFE", Italic: true},
		"property":              {Foreground: "#9CDCFE"},
		"constant":              {Foreground: "#4FC1FF"},
		"boolean":               {Foreground: "#569CD6"},
		"number":                {Foreground: "#B5CEA8"},
		"string":                {Foreground: "#CE9178"},
		"string.special":        {Foreground: "#D7BA7D"},
		"comment":               {Foreground: "#6A9955", Italic: true},
		"operator":              {Foreground: "#D4D4D4"},
		"punctuation":           {Foreground: "#808080"},
		"punctuation.delimiter": {Foreground: "#808080"},
		"punctuation.bracket":   {Foreground: "#808080"},
		ErrorTag:                {Background: "#E57373", Underline: true},
	}
}

// Lookup finds the style for tag. A dotted tag without its own entry falls
// back to its parent: keyword.type, then keyword.
func (t Theme) Lookup(tag string) (Style, bool) {
	for {
		if s, ok := t[tag]; ok {
			return s, true
		}
		i := strings.LastIndexByte(tag, '.')
		if i < 0 {
			return Style{}, false
		}
		tag = tag[:i]
	}
}

// Style layers the styles of tags in order. For every attribute the last tag
// that sets it wins.
func (t Theme) Style(tags []string) Style {
	var out Style
	for _, tag := range tags {
		if s, ok := t.Lookup(tag); ok {
			out = s.Over(out)
		}
	}
	return out
}

// Merge returns a copy of t with the entries of other replacing its own.
func (t Theme) Merge(other Theme) Theme {
	out := make(Theme, len(t)+len(other))
	for tag, s := range t {
		out[tag] = s
	}
	for tag, s := range other {
		out[tag] = s
	}
	return out
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Validate checks that every color in t is a hex color.
func (t Theme) Validate() error {
	for tag, s := range t {
		for _, c := range []string{s.Foreground, s.Background} {
			if c != "" && !hexColor.MatchString(c) {
				return fmt.Errorf("theme %s: %q is not a hex color", tag, c)
			}
		}
	}
	return nil
}
