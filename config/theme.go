package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/dhamidi/sclview/highlight"
)

// Theme maps capture names to styles. In YAML an entry is either a color,
//
//	keyword: "#C586C0"
//
// or a full style:
//
//	comment: {foreground: "#6A9955", italic: true}
type Theme map[string]ThemeEntry

type ThemeEntry struct {
	highlight.Style
}

func (e *ThemeEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&e.Foreground)
	case yaml.MappingNode:
		return node.Decode(&e.Style)
	}
	return fmt.Errorf("line %d: theme entry must be a color or a style", node.Line)
}

func (t Theme) Styles() highlight.Theme {
	out := make(highlight.Theme, len(t))
	for tag, e := range t {
		out[tag] = e.Style
	}
	return out
}
