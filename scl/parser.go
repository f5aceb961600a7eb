package scl

import (
	"strconv"
	"strings"

	"github.com/dhamidi/sclview/span"
	"github.com/dhamidi/sclview/syntax"
)

type Option func(*config)

type config struct {
	comments bool
}

// WithoutComments drops comment nodes from the tree.
func WithoutComments() Option {
	return func(c *config) {
		c.comments = false
	}
}

// Parser implements syntax.Parser for SCL. It holds no per-parse state and
// may be shared between goroutines.
type Parser struct {
	opts []Option
}

func NewParser(opts ...Option) *Parser {
	return &Parser{opts: opts}
}

func (p *Parser) Parse(src []byte) (syntax.Tree, error) {
	return Parse(src, p.opts...), nil
}

// Parse parses src into a concrete syntax tree. It never fails: input the
// grammar does not accept ends up in ERROR nodes, and tokens the grammar
// requires but the input lacks become zero-width missing nodes.
func Parse(src []byte, opts ...Option) *Tree {
	cfg := config{comments: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &parser{comments: cfg.comments}
	p.tokenize(src)
	root := p.parseSourceFile()
	return &Tree{Root: root, source: src, errors: p.errors}
}

type parser struct {
	tokens   []Token
	pos      int
	comments bool
	errors   int
	// pending holds comments that preceded an identifier or literal; they
	// go to whichever node adopts it.
	pending []Token
}

func (p *parser) tokenize(src []byte) {
	l := NewLexer(src)
	var leading []Token
	for {
		tok := l.NextToken()
		switch tok.Kind {
		case TokenWhitespace:
			continue
		case TokenLineComment, TokenBlockComment:
			if p.comments {
				leading = append(leading, tok)
			}
			continue
		}
		tok.Leading = leading
		leading = nil
		p.tokens = append(p.tokens, tok)
		if tok.Kind == TokenEOF {
			return
		}
	}
}

func (p *parser) peek() Token {
	return p.peekN(0)
}

func (p *parser) peekN(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *parser) advance() Token {
	tok := p.peek()
	if tok.Kind != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) atEOF() bool {
	return p.peek().Kind == TokenEOF
}

// at reports whether the current token is one of the given keywords or
// punctuation.
func (p *parser) at(values ...string) bool {
	tok := p.peek()
	for _, v := range values {
		if tok.Is(v) {
			return true
		}
	}
	return false
}

func (p *parser) atIdentifier() bool {
	switch p.peek().Kind {
	case TokenIdent, TokenQuotedIdent:
		return true
	}
	return p.at("#") && p.peekN(1).Kind == TokenIdent
}

// prevEnd is where a missing node goes: right after the last real token.
func (p *parser) prevEnd() span.Position {
	if p.pos == 0 {
		return p.tokens[0].Span.Start
	}
	return p.tokens[p.pos-1].Span.End
}

// mustProgress returns a function to call at the end of a loop iteration.
// If the iteration consumed nothing the current token is wrapped into an
// ERROR node on parent so the loop cannot spin.
func (p *parser) mustProgress(parent *Node) func() bool {
	saved := p.pos
	return func() bool {
		if p.pos != saved {
			return true
		}
		if !p.atEOF() {
			parent.AddChild(p.errorNode("unexpected "+describe(p.peek()), func() bool { return true }))
		}
		return false
	}
}

func (p *parser) attachComments(n *Node, comments []Token) {
	for _, c := range comments {
		kind := "line_comment"
		if c.Kind == TokenBlockComment {
			kind = "block_comment"
		}
		leaf := newNode(kind)
		tok := c
		leaf.Token = &tok
		leaf.Range = c.Span
		n.AddChild(leaf)
	}
}

func tokenNode(tok Token) *Node {
	var n *Node
	switch tok.Kind {
	case TokenKeyword, TokenPunct:
		n = newNode(tok.Value)
		n.Named = false
	case TokenIdent:
		n = newNode("simple_identifier")
	case TokenQuotedIdent:
		n = newNode("quoted_identifier")
	case TokenIntLiteral:
		n = newNode("integer_literal")
	case TokenRealLiteral:
		n = newNode("real_literal")
	case TokenStringLiteral:
		n = newNode("string_literal")
	case TokenTitleText:
		n = newNode("title_text")
	default:
		n = newNode(tok.Literal)
		n.Named = false
	}
	n.Token = &tok
	n.Range = tok.Span
	return n
}

// consume adds the current token to parent as a leaf under field.
func (p *parser) consume(parent *Node, field string) *Node {
	tok := p.advance()
	p.attachComments(parent, tok.Leading)
	n := tokenNode(tok)
	parent.addField(field, n)
	return n
}

// consumeAs is consume for contextual words, which become anonymous nodes
// of the given kind.
func (p *parser) consumeAs(parent *Node, field, kind string) *Node {
	n := p.consume(parent, field)
	n.Type = kind
	n.Named = false
	return n
}

// add attaches an expression result to parent together with the pending
// comments. Comments that start inside or after child follow it, so the
// children stay in source order.
func (p *parser) add(parent *Node, field string, child *Node) {
	before, after := p.pending, []Token(nil)
	if child != nil {
		for i, c := range p.pending {
			if span.Compare(c.Span.Start, child.Range.Start) != span.Before {
				before, after = p.pending[:i], p.pending[i:]
				break
			}
		}
	}
	p.pending = nil
	p.attachComments(parent, before)
	parent.addField(field, child)
	p.attachComments(parent, after)
}

func (p *parser) missing(kind string, named bool) *Node {
	n := newNode(kind)
	n.Named = named
	n.Missing = true
	n.Range = span.At(p.prevEnd())
	label := kind
	if !named {
		label = strconv.Quote(kind)
	}
	n.Error = &Error{Message: "missing " + label, Expected: []string{kind}}
	p.errors++
	return n
}

// expect consumes the keyword or punctuation v, or inserts a missing node
// for it without consuming anything.
func (p *parser) expect(parent *Node, v string) bool {
	if p.at(v) {
		p.consume(parent, "")
		return true
	}
	parent.AddChild(p.missing(v, false))
	return false
}

// errorNode wraps tokens into an ERROR node until stop reports true or the
// input ends. It always consumes at least one token.
func (p *parser) errorNode(msg string, stop func() bool, expected ...string) *Node {
	n := newNode(KindError)
	n.Error = &Error{Message: msg, Expected: expected}
	p.errors++
	for {
		tok := p.advance()
		p.attachComments(n, tok.Leading)
		n.AddChild(tokenNode(tok))
		if p.atEOF() || stop() || tok.Is(";") {
			return n
		}
	}
}

func describe(tok Token) string {
	switch tok.Kind {
	case TokenEOF:
		return "end of input"
	case TokenKeyword, TokenPunct:
		return strconv.Quote(tok.Value)
	}
	return tok.Kind.String() + " " + strconv.Quote(tok.Literal)
}

var definitionStarts = []string{"FUNCTION_BLOCK", "FUNCTION", "ORGANIZATION_BLOCK", "DATA_BLOCK", "TYPE", "NAMESPACE"}

var sectionKeywords = []string{"VAR_INPUT", "VAR_OUTPUT", "VAR_IN_OUT", "VAR", "VAR_TEMP", "VAR_STATIC", "CONSTANT"}

func (p *parser) atDefinitionStart() bool {
	return p.at(definitionStarts...)
}

func (p *parser) atBlockEnd() bool {
	tok := p.peek()
	return tok.Kind == TokenKeyword && strings.HasPrefix(tok.Value, "END_")
}

// atStatementBoundary reports whether the current token closes the
// enclosing statement list.
func (p *parser) atStatementBoundary() bool {
	return p.atEOF() || p.atBlockEnd() || p.at("ELSE", "ELSIF", "UNTIL") || p.atDefinitionStart()
}

func (p *parser) parseSourceFile() *Node {
	root := newNode("source_file")
	for !p.atEOF() {
		progressed := p.mustProgress(root)
		if p.atDefinitionStart() {
			p.add(root, "", p.parseDefinition())
		} else {
			root.AddChild(p.errorNode("expected a block definition", p.atDefinitionStart, definitionStarts...))
		}
		if !progressed() {
			break
		}
	}
	eof := p.peek()
	p.attachComments(root, eof.Leading)
	root.Range = span.Span{End: eof.Span.End}
	return root
}

func (p *parser) parseDefinition() *Node {
	switch p.peek().Value {
	case "FUNCTION_BLOCK":
		return p.parseCodeBlock("function_block", "END_FUNCTION_BLOCK", false)
	case "FUNCTION":
		return p.parseCodeBlock("function", "END_FUNCTION", true)
	case "ORGANIZATION_BLOCK":
		return p.parseCodeBlock("organization_block", "END_ORGANIZATION_BLOCK", false)
	case "DATA_BLOCK":
		return p.parseDataBlock()
	case "TYPE":
		return p.parseTypeDefinition()
	case "NAMESPACE":
		return p.parseNamespace()
	}
	return nil
}

// expectEnd closes a definition. Anything left before the end keyword is
// wrapped into an ERROR node, unless a new definition starts first.
func (p *parser) expectEnd(n *Node, end string) {
	if !p.at(end) && !p.atEOF() && !p.atDefinitionStart() {
		n.AddChild(p.errorNode("expected "+strconv.Quote(end), func() bool {
			return p.at(end) || p.atDefinitionStart()
		}, end))
	}
	p.expect(n, end)
}

func (p *parser) parseCodeBlock(kind, end string, returnType bool) *Node {
	n := newNode(kind)
	p.consume(n, "")
	p.add(n, "name", p.parseIdentifier())
	if returnType {
		p.expect(n, ":")
		p.add(n, "return_type", p.parseType())
	}
	p.parsePreamble(n)
	if p.at("VERSION") {
		p.add(n, "", p.parseVersion())
	}
	p.parseSections(n)
	p.parseBlockBody(n)
	p.expectEnd(n, end)
	return n
}

func (p *parser) parseDataBlock() *Node {
	n := newNode("data_block")
	p.consume(n, "")
	p.add(n, "name", p.parseIdentifier())
	p.parsePreamble(n)
	if p.at("VERSION") {
		p.add(n, "", p.parseVersion())
	} else {
		n.AddChild(p.missing("version", true))
	}
	if p.at("RETAIN", "NON_RETAIN") {
		attr := newNode("db_attribute")
		p.consume(attr, "")
		n.AddChild(attr)
	}
	switch {
	case p.peek().Kind == TokenQuotedIdent:
		p.consume(n, "type")
	case p.at(sectionKeywords...):
		p.parseSections(n)
	default:
		n.addField("type", p.missing("quoted_identifier", true))
	}
	p.parseBlockBody(n)
	p.expectEnd(n, "END_DATA_BLOCK")
	return n
}

func (p *parser) parseTypeDefinition() *Node {
	n := newNode("type_definition")
	p.consume(n, "")
	p.add(n, "name", p.parseIdentifier())
	p.parsePreamble(n)
	if p.at("VERSION") {
		p.add(n, "", p.parseVersion())
	}
	if p.at("STRUCT") {
		p.add(n, "", p.parseStructDefinition())
	} else {
		n.AddChild(p.missing("struct_definition", true))
	}
	p.expectEnd(n, "END_TYPE")
	return n
}

func (p *parser) parseNamespace() *Node {
	n := newNode("namespace")
	p.consume(n, "")
	if p.peek().Kind == TokenIdent {
		p.consume(n, "name")
	} else {
		n.addField("name", p.missing("simple_identifier", true))
	}
	for !p.atEOF() && !p.at("END_NAMESPACE") {
		progressed := p.mustProgress(n)
		if p.atDefinitionStart() {
			p.add(n, "", p.parseDefinition())
		} else {
			n.AddChild(p.errorNode("expected a block definition", func() bool {
				return p.atDefinitionStart() || p.at("END_NAMESPACE")
			}, definitionStarts...))
		}
		if !progressed() {
			break
		}
	}
	p.expect(n, "END_NAMESPACE")
	return n
}

func (p *parser) atHeaderAttribute() bool {
	tok := p.peek()
	if !tok.IsWord("AUTHOR") && !tok.IsWord("FAMILY") && !tok.IsWord("NAME") {
		return false
	}
	next := p.peekN(1)
	return next.Is(":") || next.Is(":=")
}

// parsePreamble parses the block attributes and header lines that come
// between a block's name and its declarations, in any order.
func (p *parser) parsePreamble(n *Node) {
	for {
		switch {
		case p.atHeaderAttribute():
			p.add(n, "", p.parseHeaderAttribute())
		case p.at("TITLE"):
			p.add(n, "", p.parseLegacyHeaderAttribute())
		case p.at("{"):
			p.add(n, "", p.parseAttributes())
		default:
			return
		}
	}
}

func (p *parser) parseHeaderAttribute() *Node {
	n := newNode("header_attribute")
	p.consumeAs(n, "name", strings.ToUpper(p.peek().Literal))
	p.consume(n, "")
	switch p.peek().Kind {
	case TokenStringLiteral, TokenIdent:
		p.consume(n, "value")
	default:
		n.addField("value", p.missing("string_literal", true))
	}
	return n
}

func (p *parser) parseLegacyHeaderAttribute() *Node {
	n := newNode("legacy_header_attribute")
	p.consume(n, "name")
	p.expect(n, "=")
	if p.peek().Kind == TokenTitleText {
		p.consume(n, "value")
	} else {
		n.addField("value", p.missing("title_text", true))
	}
	return n
}

func (p *parser) parseAttributes() *Node {
	n := newNode("attributes")
	p.consume(n, "")
	if !p.at("}") {
		list := newNode("attribute_list")
		for {
			p.add(list, "", p.parseAttribute())
			if !p.at(";") {
				break
			}
			p.consume(list, "")
			if !p.atIdentifier() {
				break
			}
		}
		n.AddChild(list)
	}
	p.expect(n, "}")
	return n
}

func (p *parser) parseAttribute() *Node {
	n := newNode("attribute")
	p.add(n, "name", p.parseIdentifier())
	p.expect(n, ":=")
	if p.peek().Kind == TokenStringLiteral {
		p.consume(n, "value")
	} else {
		n.addField("value", p.missing("string_literal", true))
	}
	return n
}

func (p *parser) parseVersion() *Node {
	n := newNode("version")
	p.consume(n, "")
	p.expect(n, ":")
	if p.peek().Kind == TokenRealLiteral {
		p.consume(n, "value")
	} else {
		n.addField("value", p.missing("real_literal", true))
	}
	return n
}

func (p *parser) parseSections(n *Node) {
	for !p.atEOF() && !p.at("BEGIN") && !p.atBlockEnd() && !p.atDefinitionStart() {
		progressed := p.mustProgress(n)
		if p.at(sectionKeywords...) {
			p.add(n, "", p.parseVariableSection())
		} else {
			n.AddChild(p.errorNode("expected a declaration section", func() bool {
				return p.at(sectionKeywords...) || p.at("BEGIN") || p.atBlockEnd() || p.atDefinitionStart()
			}, append(sectionKeywords, "BEGIN")...))
		}
		if !progressed() {
			return
		}
	}
}

func (p *parser) parseBlockBody(n *Node) {
	if !p.expect(n, "BEGIN") && !p.atStatementStart() {
		return
	}
	if list := p.parseStatementList(nil); list != nil {
		n.AddChild(list)
	}
}

func (p *parser) parseVariableSection() *Node {
	n := newNode("variable_declaration_section")
	p.consume(n, "type")
	if p.at("RETAIN", "NON_RETAIN", "CONSTANT") {
		p.consume(n, "")
	}
	for !p.atEOF() && !p.at("END_VAR") {
		progressed := p.mustProgress(n)
		if p.peek().Kind == TokenIdent || p.peek().Kind == TokenQuotedIdent {
			p.add(n, "", p.parseDeclaration("variable_declaration", "data_type"))
		} else {
			if p.at(sectionKeywords...) || p.at("BEGIN") || p.atBlockEnd() || p.atDefinitionStart() {
				break
			}
			n.AddChild(p.errorNode("expected a variable declaration", func() bool {
				return p.at("END_VAR", "BEGIN") || p.at(sectionKeywords...) || p.atBlockEnd() || p.atDefinitionStart()
			}))
		}
		if !progressed() {
			break
		}
	}
	p.expect(n, "END_VAR")
	return n
}

// parseDeclaration parses "name {attrs} : type := init ;", used both for
// variables and struct fields.
func (p *parser) parseDeclaration(kind, typeField string) *Node {
	n := newNode(kind)
	p.add(n, "name", p.parseIdentifier())
	if p.at("{") {
		p.add(n, "", p.parseAttributes())
	}
	p.expect(n, ":")
	p.add(n, typeField, p.parseType())
	if p.at(":=") {
		p.consume(n, "")
		p.add(n, "initial_value", p.parseExpression(0))
	}
	p.expect(n, ";")
	return n
}

func (p *parser) parseStructDefinition() *Node {
	n := newNode("struct_definition")
	p.parseStructBody(n)
	p.expect(n, ";")
	return n
}

func (p *parser) parseStructBody(n *Node) {
	p.consume(n, "")
	for !p.atEOF() && !p.at("END_STRUCT") {
		progressed := p.mustProgress(n)
		if p.peek().Kind == TokenIdent || p.peek().Kind == TokenQuotedIdent {
			p.add(n, "", p.parseDeclaration("fields", ""))
		} else {
			if p.atBlockEnd() || p.atDefinitionStart() {
				break
			}
			n.AddChild(p.errorNode("expected a field declaration", func() bool {
				return p.atBlockEnd() || p.atDefinitionStart() || p.peek().Kind == TokenIdent
			}))
		}
		if !progressed() {
			break
		}
	}
	p.expect(n, "END_STRUCT")
}

func (p *parser) parseType() *Node {
	n := newNode("type")
	tok := p.peek()
	switch {
	case tok.Is("Array"):
		p.add(n, "", p.parseArrayType())
	case tok.Is("STRUCT"):
		st := newNode("struct_type")
		p.parseStructBody(st)
		n.AddChild(st)
	case tok.Kind == TokenKeyword && typeNameGroup[tok.Value] == "string_type_names" && p.peekN(1).Is("["):
		sized := newNode("sized_string_type")
		p.add(sized, "", p.parseTypeName(false))
		p.consume(sized, "")
		p.add(sized, "size", p.parseExpression(0))
		p.expect(sized, "]")
		n.AddChild(sized)
	case tok.Kind == TokenKeyword && typeNameGroup[tok.Value] != "":
		elem := newNode("elementary_type")
		p.add(elem, "", p.parseTypeName(true))
		if p.at("(") {
			p.consume(elem, "")
			p.add(elem, "", p.parseExpression(0))
			p.expect(elem, ")")
		}
		n.AddChild(elem)
		p.parseTypeAttributes(n)
	case tok.Kind == TokenIdent || tok.Kind == TokenQuotedIdent:
		p.consume(n, "")
		p.parseTypeAttributes(n)
	default:
		return p.missing("type", true)
	}
	return n
}

func (p *parser) parseTypeAttributes(n *Node) {
	if p.at("{") {
		p.add(n, "", p.parseAttributes())
	}
}

// parseTypeName builds the chain of group nodes above a type name keyword.
// A sized string drops the elementary_type_names level.
func (p *parser) parseTypeName(elementary bool) *Node {
	path := typeNamePaths[typeNameGroup[p.peek().Value]]
	if !elementary {
		path = path[len(path)-1:]
	}
	nodes := make([]*Node, len(path))
	for i, kind := range path {
		nodes[i] = newNode(kind)
	}
	p.consume(nodes[len(nodes)-1], "")
	for i := len(nodes) - 1; i > 0; i-- {
		nodes[i-1].AddChild(nodes[i])
	}
	return nodes[0]
}

func (p *parser) parseArrayType() *Node {
	n := newNode("array_type")
	p.consume(n, "")
	p.expect(n, "[")
	for {
		p.add(n, "start", p.parseExpression(0))
		p.expect(n, "..")
		p.add(n, "end", p.parseExpression(0))
		if !p.at(",") {
			break
		}
		p.consume(n, "")
	}
	p.expect(n, "]")
	p.expect(n, "OF")
	p.add(n, "type", p.parseType())
	return n
}

func (p *parser) parseIdentifier() *Node {
	if !p.atIdentifier() {
		return p.missing("identifier", true)
	}
	// Comments ahead of an identifier go to the node that adopts it.
	n := newNode("identifier")
	for {
		tok := p.advance()
		p.pending = append(p.pending, tok.Leading...)
		n.AddChild(tokenNode(tok))
		if tok.Kind != TokenPunct {
			return n
		}
	}
}

func (p *parser) atStatementStart() bool {
	if p.at("IF", "CASE", "FOR", "WHILE", "REPEAT", "RETURN", "EXIT") {
		return true
	}
	return p.atExpressionStart()
}

func (p *parser) atExpressionStart() bool {
	switch p.peek().Kind {
	case TokenIdent, TokenQuotedIdent, TokenIntLiteral, TokenRealLiteral, TokenStringLiteral:
		return true
	}
	return p.at("#", "(", "NOT", "-", "TRUE", "FALSE")
}

// parseStatementList parses statements until a boundary token, or until
// stop reports true. It returns nil if there are none.
func (p *parser) parseStatementList(stop func() bool) *Node {
	n := newNode("statement_list")
	for !p.atStatementBoundary() && (stop == nil || !stop()) {
		progressed := p.mustProgress(n)
		if p.atStatementStart() {
			p.add(n, "", p.parseStatement())
		} else {
			n.AddChild(p.errorNode("expected a statement", func() bool {
				return p.atStatementBoundary() || p.atStatementStart() || (stop != nil && stop())
			}))
		}
		if !progressed() {
			break
		}
	}
	if len(n.Children) == 0 {
		return nil
	}
	return n
}

func (p *parser) parseStatement() *Node {
	switch p.peek().Value {
	case "IF":
		return p.parseIfStatement()
	case "CASE":
		return p.parseCaseStatement()
	case "FOR":
		return p.parseForStatement()
	case "WHILE":
		return p.parseWhileStatement()
	case "REPEAT":
		return p.parseRepeatStatement()
	case "RETURN":
		return p.parseSimpleStatement("return_statement")
	case "EXIT":
		return p.parseSimpleStatement("exit_statement")
	}
	n := newNode("expression_statement")
	p.add(n, "", p.parseExpression(0))
	p.expect(n, ";")
	return n
}

func (p *parser) parseSimpleStatement(kind string) *Node {
	n := newNode(kind)
	p.consume(n, "")
	p.expect(n, ";")
	return n
}

func (p *parser) addStatements(n *Node, stop func() bool) {
	if list := p.parseStatementList(stop); list != nil {
		n.AddChild(list)
	}
}

func (p *parser) parseIfStatement() *Node {
	n := newNode("if_statement")
	p.consume(n, "")
	p.add(n, "condition", p.parseExpression(0))
	p.expect(n, "THEN")
	p.addStatements(n, nil)
	for p.at("ELSIF") {
		clause := newNode("elsif_clause")
		p.consume(clause, "")
		p.add(clause, "condition", p.parseExpression(0))
		p.expect(clause, "THEN")
		p.addStatements(clause, nil)
		n.AddChild(clause)
	}
	if p.at("ELSE") {
		p.add(n, "", p.parseElseClause(nil))
	}
	p.expect(n, "END_IF")
	p.expect(n, ";")
	return n
}

func (p *parser) parseElseClause(stop func() bool) *Node {
	clause := newNode("else_clause")
	p.consume(clause, "")
	p.addStatements(clause, stop)
	return clause
}

func (p *parser) parseCaseStatement() *Node {
	n := newNode("case_statement")
	p.consume(n, "")
	p.add(n, "value", p.parseExpression(0))
	p.expect(n, "OF")
	options := 0
	for !p.atStatementBoundary() {
		progressed := p.mustProgress(n)
		if p.atCaseLabel() {
			p.add(n, "", p.parseCaseOption())
			options++
		} else {
			n.AddChild(p.errorNode("expected a case label", func() bool {
				return p.atStatementBoundary() || p.atCaseLabel()
			}))
		}
		if !progressed() {
			break
		}
	}
	if options == 0 {
		n.AddChild(p.missing("case_option", true))
	}
	if p.at("ELSE") {
		p.add(n, "", p.parseElseClause(nil))
	}
	p.expect(n, "END_CASE")
	p.expect(n, ";")
	return n
}

// atCaseLabel looks ahead for "expr [.. expr] {, expr [.. expr]} :"
// without keeping anything it parsed.
func (p *parser) atCaseLabel() bool {
	if !p.atExpressionStart() {
		return false
	}
	savedPos, savedErrors, savedPending := p.pos, p.errors, p.pending
	defer func() {
		p.pos, p.errors, p.pending = savedPos, savedErrors, savedPending
	}()
	p.parseCaseLabels(newNode("case_option"))
	return p.errors == savedErrors && p.at(":")
}

func (p *parser) parseCaseLabels(n *Node) {
	for {
		p.add(n, "match", p.parseExpression(0))
		if p.at("..") {
			p.consume(n, "")
			p.add(n, "match", p.parseExpression(0))
		}
		if !p.at(",") {
			return
		}
		p.consume(n, "")
	}
}

func (p *parser) parseCaseOption() *Node {
	n := newNode("case_option")
	p.parseCaseLabels(n)
	p.expect(n, ":")
	p.addStatements(n, p.atCaseLabel)
	return n
}

func (p *parser) parseForStatement() *Node {
	n := newNode("for_statement")
	p.consume(n, "")
	p.add(n, "iterator", p.parseIdentifier())
	p.expect(n, ":=")
	p.add(n, "start", p.parseExpression(assignPrec+1))
	p.expect(n, "TO")
	p.add(n, "end", p.parseExpression(assignPrec+1))
	if p.at("BY") {
		p.consume(n, "")
		p.add(n, "step", p.parseExpression(assignPrec+1))
	}
	p.expect(n, "DO")
	p.addStatements(n, nil)
	p.expect(n, "END_FOR")
	p.expect(n, ";")
	return n
}

func (p *parser) parseWhileStatement() *Node {
	n := newNode("while_statement")
	p.consume(n, "")
	p.add(n, "condition", p.parseExpression(0))
	p.expect(n, "DO")
	p.addStatements(n, nil)
	p.expect(n, "END_WHILE")
	p.expect(n, ";")
	return n
}

func (p *parser) parseRepeatStatement() *Node {
	n := newNode("repeat_statement")
	p.consume(n, "")
	p.addStatements(n, nil)
	p.expect(n, "UNTIL")
	p.add(n, "condition", p.parseExpression(0))
	p.expect(n, "END_REPEAT")
	p.expect(n, ";")
	return n
}

const (
	assignPrec = iota
	orPrec
	xorPrec
	andPrec
	equalityPrec
	comparePrec
	additivePrec
	multiplicativePrec
	unaryPrec
)

// binaryPrec returns the precedence of tok as a binary operator.
func binaryPrec(tok Token) (int, bool) {
	if tok.Kind != TokenKeyword && tok.Kind != TokenPunct {
		return 0, false
	}
	switch tok.Value {
	case ":=":
		return assignPrec, true
	case "OR":
		return orPrec, true
	case "XOR":
		return xorPrec, true
	case "AND":
		return andPrec, true
	case "=", "<>":
		return equalityPrec, true
	case "<", ">", "<=", ">=":
		return comparePrec, true
	case "+", "-":
		return additivePrec, true
	case "*", "/", "MOD":
		return multiplicativePrec, true
	}
	return 0, false
}

// parseExpression parses operators binding at least as tightly as minPrec.
// Assignment is right-associative; everything else associates left.
func (p *parser) parseExpression(minPrec int) *Node {
	left := p.parseUnary()
	for {
		prec, ok := binaryPrec(p.peek())
		if !ok || prec < minPrec {
			return left
		}
		n := newNode("binary_expression")
		p.add(n, "left", left)
		p.consume(n, "operator")
		next := prec + 1
		if prec == assignPrec {
			next = prec
		}
		p.add(n, "right", p.parseExpression(next))
		left = n
	}
}

func (p *parser) parseUnary() *Node {
	if p.at("NOT", "-") {
		n := newNode("unary_expression")
		p.consume(n, "operator")
		p.add(n, "operand", p.parseExpression(unaryPrec))
		return n
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *parser) parsePostfix(left *Node) *Node {
	for {
		switch {
		case p.at(".") && (p.peekN(1).Kind == TokenIdent || p.peekN(1).Kind == TokenQuotedIdent):
			n := newNode("member_expression")
			p.add(n, "object", left)
			p.consume(n, "")
			p.add(n, "property", p.parseIdentifier())
			left = n
		case p.at("["):
			n := newNode("array_expression")
			p.add(n, "array", left)
			p.consume(n, "")
			for {
				p.add(n, "index", p.parseExpression(0))
				if !p.at(",") {
					break
				}
				p.consume(n, "")
			}
			p.expect(n, "]")
			left = n
		default:
			return left
		}
	}
}

func (p *parser) parsePrimary() *Node {
	tok := p.peek()
	switch tok.Kind {
	case TokenIdent, TokenQuotedIdent:
		return p.parseNameOrCall()
	case TokenIntLiteral, TokenRealLiteral, TokenStringLiteral:
		p.advance()
		p.pending = append(p.pending, tok.Leading...)
		return tokenNode(tok)
	case TokenError:
		return p.errorNode("invalid token "+strconv.Quote(tok.Literal), func() bool { return true })
	}
	switch {
	case p.at("#") && p.peekN(1).Kind == TokenIdent:
		return p.parseNameOrCall()
	case p.at("TRUE", "FALSE"):
		n := newNode("bool_literal")
		p.consume(n, "")
		return n
	case p.at("("):
		return p.parseParenthesized()
	}
	return p.missing("identifier", true)
}

func (p *parser) parseNameOrCall() *Node {
	id := p.parseIdentifier()
	if !p.at("(") {
		return id
	}
	n := newNode("function_call")
	p.add(n, "function", id)
	p.consume(n, "")
	if !p.at(")") {
		p.add(n, "", p.parseArgumentList())
	}
	p.expect(n, ")")
	return n
}

func (p *parser) parseArgumentList() *Node {
	n := newNode("argument_list")
	for {
		p.add(n, "", p.parseArgument())
		if !p.at(",") {
			return n
		}
		p.consume(n, "")
	}
}

func (p *parser) parseArgument() *Node {
	n := newNode("argument")
	next := p.peekN(1)
	if (p.peek().Kind == TokenIdent || p.peek().Kind == TokenQuotedIdent) && (next.Is(":=") || next.Is("=>")) {
		named := newNode("named_argument")
		p.add(named, "name", p.parseIdentifier())
		p.consume(named, "")
		p.add(named, "value", p.parseExpression(assignPrec+1))
		n.AddChild(named)
		return n
	}
	p.add(n, "", p.parseExpression(assignPrec + 1))
	return n
}

func (p *parser) parseParenthesized() *Node {
	if p.peekN(1).Is(")") {
		n := newNode("struct_literal")
		p.consume(n, "")
		p.consume(n, "")
		return n
	}
	n := newNode("parenthesized_expression")
	p.consume(n, "")
	p.add(n, "", p.parseExpression(0))
	if p.at(",") {
		n.Type = "struct_literal"
		for p.at(",") {
			p.consume(n, "")
			p.add(n, "", p.parseExpression(0))
		}
	}
	p.expect(n, ")")
	return n
}
