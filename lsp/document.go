package lsp

import (
	"slices"
	"unicode/utf8"
	"unicode/utf16"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/sclview/format"
	"github.com/dhamidi/sclview/span"
	"github.com/dhamidi/sclview/syntax"
	"github.com/dhamidi/sclview/tree"
)

// Document is one parsed text document.
type Document struct {
	URI     protocol.DocumentUri
	Version protocol.Integer
	Source  []byte
	Tree    syntax.Tree
	Index   *tree.Index
}

// Parse builds a document from its text.
func Parse(parser syntax.Parser, uri protocol.DocumentUri, src []byte) (*Document, error) {
	parsed, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	ix, err := tree.Build(parsed.RootNode())
	if err != nil {
		return nil, err
	}
	return &Document{URI: uri, Source: src, Tree: parsed, Index: ix}, nil
}

// position converts a byte column into the UTF-16 column the protocol uses.
func (d *Document) position(p span.Position) protocol.Position {
	lineStart := p.Offset - p.Column
	if lineStart < 0 || p.Offset > len(d.Source) {
		return protocol.Position{Line: protocol.UInteger(p.Row), Character: protocol.UInteger(p.Column)}
	}
	units := 0
	for rest := d.Source[lineStart:p.Offset]; len(rest) > 0; {
		r, size := utf8.DecodeRune(rest)
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		units += n
		rest = rest[size:]
	}
	return protocol.Position{Line: protocol.UInteger(p.Row), Character: protocol.UInteger(units)}
}

func (d *Document) rangeOf(s span.Span) protocol.Range {
	return protocol.Range{Start: d.position(s.Start), End: d.position(s.End)}
}

// Diagnostics returns one diagnostic per node of the error registry, in
// source order.
func (d *Document) Diagnostics() []protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := lsName
	diagnostics := []protocol.Diagnostic{}
	for _, ref := range d.Index.Errors() {
		n := d.Index.MustNode(ref)
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    d.rangeOf(n.Span),
			Severity: &severity,
			Source:   &source,
			Message:  format.ErrorMessage(n),
		})
	}
	return diagnostics
}

var symbolKinds = map[string]protocol.SymbolKind{
	"function_block":       protocol.SymbolKindClass,
	"function":             protocol.SymbolKindFunction,
	"organization_block":   protocol.SymbolKindModule,
	"data_block":           protocol.SymbolKindObject,
	"type_definition":      protocol.SymbolKindStruct,
	"namespace":            protocol.SymbolKindNamespace,
	"variable_declaration": protocol.SymbolKindVariable,
	"fields":               protocol.SymbolKindField,
}

// Symbols returns the definitions of the document with their variables and
// fields as children.
func (d *Document) Symbols() []protocol.DocumentSymbol {
	return d.symbolsUnder(d.Index.Root())
}

func (d *Document) symbolsUnder(ref tree.Ref) []protocol.DocumentSymbol {
	symbols := []protocol.DocumentSymbol{}
	for _, child := range d.Index.MustNode(ref).Children {
		n := d.Index.MustNode(child)
		if n.Kind == "statement_list" {
			continue
		}
		kind, ok := symbolKinds[n.Kind]
		if !ok {
			symbols = append(symbols, d.symbolsUnder(child)...)
			continue
		}
		name, ok := d.name(n)
		if !ok {
			continue
		}
		detail := n.Kind
		symbols = append(symbols, protocol.DocumentSymbol{
			Name:           syntax.Text(name.Syntax, d.Source),
			Detail:         &detail,
			Kind:           kind,
			Range:          d.rangeOf(n.Span),
			SelectionRange: d.rangeOf(name.Span),
			Children:       d.symbolsUnder(child),
		})
	}
	return symbols
}

func (d *Document) name(n *tree.Node) (*tree.Node, bool) {
	i := slices.IndexFunc(n.Children, func(ref tree.Ref) bool {
		return d.Index.MustNode(ref).Field == "name"
	})
	if i < 0 {
		return nil, false
	}
	name := d.Index.MustNode(n.Children[i])
	if name.Missing || name.Span.IsEmpty() {
		return nil, false
	}
	return name, true
}
