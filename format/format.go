// Package format renders tree indexes as text for people and programs.
package format

import (
	"encoding"
	"fmt"
	"strings"

	"github.com/dhamidi/sclview/tree"
)

type Encoder interface {
	encoding.TextMarshaler
	Encode(ix *tree.Index) error
}

// Describe names the node the way the outline shows it, with its field:
// "name: identifier [(0, 15) - (0, 19)]".
func Describe(n *tree.Node) string {
	var sb strings.Builder
	if n.Field != "" {
		sb.WriteString(n.Field)
		sb.WriteString(": ")
	}
	if n.Missing {
		sb.WriteString("MISSING ")
	}
	if n.Named {
		sb.WriteString(n.Kind)
	} else {
		fmt.Fprintf(&sb, "%q", n.Kind)
	}
	fmt.Fprintf(&sb, " [%s - %s]", n.Span.Start, n.Span.End)
	return sb.String()
}

// ErrorMessage is the diagnostic text for a node of the error registry.
func ErrorMessage(n *tree.Node) string {
	if !n.Missing {
		return "syntax error"
	}
	if n.Named {
		return "missing " + n.Kind
	}
	return fmt.Sprintf("missing %q", n.Kind)
}
