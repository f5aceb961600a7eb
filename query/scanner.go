package query

import (
	"fmt"
	"strings"

	"github.com/dhamidi/sclview/span"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokColon
	tokIdent
	tokString
	tokCapture
	tokPredicate
	tokBang
	tokQuantifier
	tokAnchor
	tokInvalid
)

type token struct {
	kind tokenKind
	text string
	pos  span.Position
}

type scanner struct {
	src    string
	pos    int
	row    int
	column int
}

func (s *scanner) position() span.Position {
	return span.Position{Row: s.row, Column: s.column, Offset: s.pos}
}

func (s *scanner) peek() byte {
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) advance() byte {
	ch := s.src[s.pos]
	s.pos++
	if ch == '\n' {
		s.row++
		s.column = 0
	} else {
		s.column++
	}
	return ch
}

func (s *scanner) skipSpaceAndComments() {
	for s.pos < len(s.src) {
		switch ch := s.peek(); {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			s.advance()
		case ch == ';':
			for s.pos < len(s.src) && s.peek() != '\n' {
				s.advance()
			}
		default:
			return
		}
	}
}

func isIdentByte(ch byte) bool {
	return ch == '_' || ch == '-' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// Capture names may be dotted (keyword.type).
func isCaptureByte(ch byte) bool {
	return isIdentByte(ch) || ch == '.'
}

// Predicate names end in ? and directives in !.
func isPredicateByte(ch byte) bool {
	return isIdentByte(ch) || ch == '?' || ch == '!'
}

func (s *scanner) name(valid func(byte) bool) string {
	start := s.pos
	for s.pos < len(s.src) && valid(s.peek()) {
		s.advance()
	}
	return s.src[start:s.pos]
}

func (s *scanner) next() token {
	s.skipSpaceAndComments()
	tok := token{pos: s.position()}
	if s.pos >= len(s.src) {
		tok.kind = tokEOF
		return tok
	}

	ch := s.peek()
	switch ch {
	case '(':
		s.advance()
		tok.kind = tokLParen
	case ')':
		s.advance()
		tok.kind = tokRParen
	case '[':
		s.advance()
		tok.kind = tokLBracket
	case ']':
		s.advance()
		tok.kind = tokRBracket
	case ':':
		s.advance()
		tok.kind = tokColon
	case '!':
		s.advance()
		tok.kind = tokBang
	case '*', '+', '?':
		s.advance()
		tok.kind = tokQuantifier
		tok.text = string(ch)
	case '.':
		s.advance()
		tok.kind = tokAnchor
	case '@':
		s.advance()
		tok.kind = tokCapture
		tok.text = s.name(isCaptureByte)
	case '#':
		s.advance()
		tok.kind = tokPredicate
		tok.text = s.name(isPredicateByte)
	case '"':
		return s.string(tok)
	default:
		if isIdentByte(ch) {
			tok.kind = tokIdent
			tok.text = s.name(isIdentByte)
			return tok
		}
		s.advance()
		tok.kind = tokInvalid
		tok.text = fmt.Sprintf("unexpected character %q", ch)
	}
	return tok
}

func (s *scanner) string(tok token) token {
	s.advance()
	var b strings.Builder
	for s.pos < len(s.src) {
		ch := s.advance()
		switch ch {
		case '"':
			tok.kind = tokString
			tok.text = b.String()
			return tok
		case '\\':
			if s.pos >= len(s.src) {
				break
			}
			switch esc := s.advance(); esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0':
				b.WriteByte(0)
			default:
				b.WriteByte(esc)
			}
		case '\n':
			tok.kind = tokInvalid
			tok.text = "unterminated string"
			return tok
		default:
			b.WriteByte(ch)
		}
	}
	tok.kind = tokInvalid
	tok.text = "unterminated string"
	return tok
}
