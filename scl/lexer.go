package scl

import (
	"strings"
	"unicode/utf8"

	"github.com/dhamidi/sclview/span"
)

type Lexer struct {
	input  []byte
	pos    int
	row    int
	column int

	// TITLE = takes the rest of the line verbatim.
	titleState int
}

func NewLexer(input []byte) *Lexer {
	return &Lexer{input: input}
}

func (l *Lexer) Position() span.Position {
	return span.Position{Row: l.row, Column: l.column, Offset: l.pos}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekN(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	ch := l.input[l.pos]
	l.pos++
	if ch == '\n' {
		l.row++
		l.column = 0
	} else {
		l.column++
	}
	return ch
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

func (l *Lexer) hasPrefix(s string) bool {
	return strings.HasPrefix(string(l.input[l.pos:min(len(l.input), l.pos+len(s))]), s)
}

func (l *Lexer) NextToken() Token {
	startPos := l.Position()

	if l.pos >= len(l.input) {
		return Token{Kind: TokenEOF, Span: span.At(startPos)}
	}

	if l.titleState == 2 {
		l.titleState = 0
		if tok, ok := l.scanTitleText(startPos); ok {
			return tok
		}
		startPos = l.Position()
		if l.pos >= len(l.input) {
			return Token{Kind: TokenEOF, Span: span.At(startPos)}
		}
	}

	ch := l.peek()

	if isSpace(ch) {
		return l.scanWhitespace(startPos)
	}
	// U+FEFF byte order mark
	if l.hasPrefix("\xef\xbb\xbf") {
		l.advanceN(3)
		return l.token(TokenWhitespace, startPos)
	}

	var tok Token
	switch {
	case ch == '/' && l.peekN(1) == '/':
		return l.scanLineComment(startPos)
	case ch == '(' && l.peekN(1) == '*':
		return l.scanBlockComment(startPos)
	case isLetter(ch):
		tok = l.scanIdentOrKeyword(startPos)
	case isDigit(ch):
		tok = l.scanNumber(startPos)
	case ch == '\'':
		tok = l.scanStringLiteral(startPos)
	case ch == '"':
		tok = l.scanQuotedIdent(startPos)
	default:
		tok = l.scanPunct(startPos)
	}

	switch {
	case tok.Kind == TokenKeyword && tok.Value == "TITLE":
		l.titleState = 1
	case l.titleState == 1 && tok.Is("="):
		l.titleState = 2
	default:
		l.titleState = 0
	}
	return tok
}

func (l *Lexer) scanWhitespace(start span.Position) Token {
	for isSpace(l.peek()) {
		l.advance()
	}
	return l.token(TokenWhitespace, start)
}

// scanTitleText consumes horizontal space and then the rest of the line.
// It reports false if the line ends before any text.
func (l *Lexer) scanTitleText(start span.Position) (Token, bool) {
	for l.peek() == ' ' || l.peek() == '\t' {
		l.advance()
	}
	textStart := l.Position()
	for l.pos < len(l.input) && l.peek() != '\n' && l.peek() != '\r' {
		l.advance()
	}
	if l.pos == textStart.Offset {
		return Token{}, false
	}
	return l.token(TokenTitleText, textStart), true
}

func (l *Lexer) scanLineComment(start span.Position) Token {
	for l.pos < len(l.input) && l.peek() != '\n' {
		l.advance()
	}
	tok := l.token(TokenLineComment, start)
	tok.Literal = strings.TrimSuffix(tok.Literal, "\r")
	return tok
}

func (l *Lexer) scanBlockComment(start span.Position) Token {
	l.advanceN(2)
	for l.pos < len(l.input) {
		if l.peek() == '*' && l.peekN(1) == ')' {
			l.advanceN(2)
			return l.token(TokenBlockComment, start)
		}
		l.advance()
	}
	return l.token(TokenError, start)
}

func (l *Lexer) scanIdentOrKeyword(start span.Position) Token {
	for isLetterOrDigit(l.peek()) {
		l.advance()
	}
	word := string(l.input[start.Offset:l.pos])

	// Real#1.5 and LReal#1.5 are typed real literals.
	if (strings.EqualFold(word, "Real") || strings.EqualFold(word, "LReal")) && l.peek() == '#' && isDigit(l.peekN(1)) {
		l.advance()
		l.scanDigits()
		if l.peek() == '.' && isDigit(l.peekN(1)) {
			l.advance()
			l.scanDigits()
			l.scanExponent()
		}
		return l.token(TokenRealLiteral, start)
	}

	if kw, ok := LookupKeyword(word); ok {
		tok := l.token(TokenKeyword, start)
		tok.Value = kw
		return tok
	}
	return l.token(TokenIdent, start)
}

func (l *Lexer) scanDigits() {
	for isDigit(l.peek()) || (l.peek() == '_' && isDigit(l.peekN(1))) {
		l.advance()
	}
}

func (l *Lexer) scanExponent() {
	if l.peek() != 'e' && l.peek() != 'E' {
		return
	}
	n := 1
	if l.peekN(1) == '+' || l.peekN(1) == '-' {
		n = 2
	}
	if isDigit(l.peekN(n)) {
		l.advanceN(n)
		l.scanDigits()
	}
}

func (l *Lexer) scanNumber(start span.Position) Token {
	if l.peekN(1) == '#' || (l.peekN(2) == '#' && l.peek() == '1' && l.peekN(1) == '6') {
		return l.scanBasedNumber(start)
	}

	l.scanDigits()
	// A single dot followed by a digit makes a real; ".." is a range.
	if l.peek() == '.' && isDigit(l.peekN(1)) {
		l.advance()
		l.scanDigits()
		l.scanExponent()
		return l.token(TokenRealLiteral, start)
	}
	return l.token(TokenIntLiteral, start)
}

func (l *Lexer) scanBasedNumber(start span.Position) Token {
	var valid func(byte) bool
	switch {
	case l.hasPrefix("16#"):
		valid = isHexDigit
		l.advanceN(3)
	case l.hasPrefix("2#"):
		valid = func(ch byte) bool { return ch == '0' || ch == '1' }
		l.advanceN(2)
	case l.hasPrefix("8#"):
		valid = func(ch byte) bool { return ch >= '0' && ch <= '7' }
		l.advanceN(2)
	default:
		l.scanDigits()
		return l.token(TokenIntLiteral, start)
	}
	n := 0
	for valid(l.peek()) || l.peek() == '_' {
		l.advance()
		n++
	}
	if n == 0 {
		return l.token(TokenError, start)
	}
	return l.token(TokenIntLiteral, start)
}

func (l *Lexer) scanStringLiteral(start span.Position) Token {
	l.advance()
	for l.pos < len(l.input) {
		ch := l.peek()
		if ch == '\'' {
			l.advance()
			return l.token(TokenStringLiteral, start)
		}
		if ch == '\n' {
			break
		}
		l.advance()
	}
	return l.token(TokenError, start)
}

func (l *Lexer) scanQuotedIdent(start span.Position) Token {
	l.advance()
	n := 0
	for l.pos < len(l.input) {
		ch := l.peek()
		if ch == '"' {
			l.advance()
			if n == 0 {
				return l.token(TokenError, start)
			}
			return l.token(TokenQuotedIdent, start)
		}
		if ch == '\n' {
			break
		}
		l.advance()
		n++
	}
	return l.token(TokenError, start)
}

func (l *Lexer) scanPunct(start span.Position) Token {
	for _, p := range punctuation {
		if l.hasPrefix(p) {
			l.advanceN(len(p))
			tok := l.token(TokenPunct, start)
			tok.Value = p
			return tok
		}
	}
	_, width := utf8.DecodeRune(l.input[l.pos:])
	l.advanceN(width)
	return l.token(TokenError, start)
}

func (l *Lexer) token(kind TokenKind, start span.Position) Token {
	return Token{
		Kind:    kind,
		Span:    span.Span{Start: start, End: l.Position()},
		Literal: string(l.input[start.Offset:l.pos]),
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\f' || ch == '\v'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isLetterOrDigit(ch byte) bool {
	return isLetter(ch) || isDigit(ch)
}
