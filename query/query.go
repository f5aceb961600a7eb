// Package query implements the part of the tree-sitter query language that
// highlight files use: node and literal patterns, wildcards, alternations,
// fields, captures and the #eq?, #match? and #any-of? predicates with
// their negations.
//
// Quantifiers, anchors and negated fields are rejected at load time.
// Directives such as #set! are accepted and ignored.
package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/sclview/span"
)

var log = commonlog.GetLogger("sclview.query")

// LoadError reports a malformed query. Row and Column are 0-based.
type LoadError struct {
	Offset  int
	Row     int
	Column  int
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("query %d:%d: %s", e.Row+1, e.Column+1, e.Message)
}

type patternKind int

// Pattern kinds, in query syntax: (kind ...), (_ ...), _, "text" and
// [ ... ].
const (
	patternNode patternKind = iota
	patternNamed
	patternAny
	patternLiteral
	patternAlternation
)

type pattern struct {
	kind     patternKind
	name     string
	field    string
	children []*pattern
	alts     []*pattern
	captures []int
}

type predicate struct {
	pos     span.Position
	name    string
	negate  bool
	capture int
	// Exactly one of other, values and re is set.
	other  int
	values []string
	re     *regexp2.Regexp
}

type topPattern struct {
	root       *pattern
	predicates []predicate
}

// Query is a compiled highlight query. It is safe for concurrent use.
type Query struct {
	patterns     []topPattern
	captureNames []string
}

// CaptureNames returns the capture names in order of first appearance.
func (q *Query) CaptureNames() []string {
	return slices.Clone(q.captureNames)
}

// PatternCount returns the number of top-level patterns.
func (q *Query) PatternCount() int {
	return len(q.patterns)
}

type loader struct {
	scan    scanner
	tok     token
	query   *Query
	current *topPattern
}

// Load compiles source.
func Load(source string) (*Query, error) {
	l := &loader{
		scan:  scanner{src: source},
		query: &Query{},
	}
	l.advance()
	for l.tok.kind != tokEOF {
		if err := l.topLevel(); err != nil {
			return nil, err
		}
	}
	log.Debugf("loaded query with %d patterns and %d captures", len(l.query.patterns), len(l.query.captureNames))
	return l.query, nil
}

func (l *loader) advance() {
	l.tok = l.scan.next()
}

func (l *loader) errorf(pos span.Position, format string, args ...any) error {
	return &LoadError{
		Offset:  pos.Offset,
		Row:     pos.Row,
		Column:  pos.Column,
		Message: fmt.Sprintf(format, args...),
	}
}

func (l *loader) captureIndex(name string) int {
	if i := slices.Index(l.query.captureNames, name); i >= 0 {
		return i
	}
	l.query.captureNames = append(l.query.captureNames, name)
	return len(l.query.captureNames) - 1
}

// topLevel parses one top-level pattern. A parenthesized group holding a
// single pattern plus predicates, ((identifier) @x (#eq? @x "a")), counts
// as that pattern.
func (l *loader) topLevel() error {
	top := &topPattern{}
	l.current = top
	defer func() { l.current = nil }()

	if l.tok.kind == tokLParen && l.groupAhead() {
		open := l.tok.pos
		l.advance()
		for l.tok.kind != tokRParen {
			switch l.tok.kind {
			case tokEOF:
				return l.errorf(open, "unclosed group")
			case tokLParen:
				if l.peekPredicate() {
					if err := l.predicate(); err != nil {
						return err
					}
					continue
				}
			}
			if top.root != nil {
				return l.errorf(l.tok.pos, "sibling patterns are not supported")
			}
			p, err := l.pattern()
			if err != nil {
				return err
			}
			top.root = p
		}
		l.advance()
		if top.root == nil {
			return l.errorf(open, "empty group")
		}
		if err := l.captures(top.root); err != nil {
			return err
		}
	} else {
		p, err := l.pattern()
		if err != nil {
			return err
		}
		top.root = p
	}
	if err := l.checkPredicates(top); err != nil {
		return err
	}
	l.query.patterns = append(l.query.patterns, *top)
	return nil
}

// groupAhead reports whether the "(" at the current token opens a group
// rather than a node pattern: the next token starts a pattern itself.
func (l *loader) groupAhead() bool {
	saved := l.scan
	defer func() { l.scan = saved }()
	next := l.scan.next()
	return next.kind == tokLParen || next.kind == tokLBracket || next.kind == tokString
}

func (l *loader) peekPredicate() bool {
	saved := l.scan
	defer func() { l.scan = saved }()
	return l.scan.next().kind == tokPredicate
}

// pattern parses a pattern with an optional field prefix and trailing
// captures.
func (l *loader) pattern() (*pattern, error) {
	var field string
	if l.tok.kind == tokIdent {
		saved, savedTok := l.scan, l.tok
		l.advance()
		if l.tok.kind == tokColon {
			field = savedTok.text
			l.advance()
		} else {
			l.scan, l.tok = saved, savedTok
		}
	}

	var p *pattern
	start := l.tok
	switch start.kind {
	case tokLParen:
		l.advance()
		var err error
		p, err = l.nodePattern(start.pos)
		if err != nil {
			return nil, err
		}
	case tokLBracket:
		l.advance()
		p = &pattern{kind: patternAlternation}
		for l.tok.kind != tokRBracket {
			if l.tok.kind == tokEOF {
				return nil, l.errorf(start.pos, "unclosed alternation")
			}
			alt, err := l.pattern()
			if err != nil {
				return nil, err
			}
			p.alts = append(p.alts, alt)
		}
		if len(p.alts) == 0 {
			return nil, l.errorf(start.pos, "empty alternation")
		}
		l.advance()
	case tokString:
		l.advance()
		p = &pattern{kind: patternLiteral, name: start.text}
	case tokIdent:
		if start.text != "_" {
			return nil, l.errorf(start.pos, "bare node kind %q must be parenthesized", start.text)
		}
		l.advance()
		p = &pattern{kind: patternAny}
	case tokBang:
		return nil, l.errorf(start.pos, "negated fields are not supported")
	case tokInvalid:
		return nil, l.errorf(start.pos, "%s", start.text)
	default:
		return nil, l.errorf(start.pos, "expected a pattern, got %s", describe(start))
	}
	p.field = field

	if err := l.captures(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (l *loader) captures(p *pattern) error {
	for {
		switch l.tok.kind {
		case tokCapture:
			if l.tok.text == "" {
				return l.errorf(l.tok.pos, "empty capture name")
			}
			p.captures = append(p.captures, l.captureIndex(l.tok.text))
			l.advance()
		case tokQuantifier:
			return l.errorf(l.tok.pos, "quantifier %q is not supported", l.tok.text)
		default:
			return nil
		}
	}
}

// nodePattern parses the rest of "(kind child...)" after the "(".
func (l *loader) nodePattern(open span.Position) (*pattern, error) {
	p := &pattern{}
	switch l.tok.kind {
	case tokIdent:
		if l.tok.text == "_" {
			p.kind = patternNamed
		} else {
			p.kind = patternNode
			p.name = l.tok.text
		}
		l.advance()
	case tokPredicate:
		return nil, l.errorf(l.tok.pos, "predicate outside a pattern")
	default:
		return nil, l.errorf(l.tok.pos, "expected a node kind, got %s", describe(l.tok))
	}

	for l.tok.kind != tokRParen {
		switch l.tok.kind {
		case tokEOF:
			return nil, l.errorf(open, "unclosed pattern")
		case tokAnchor:
			return nil, l.errorf(l.tok.pos, "anchors are not supported")
		case tokLParen:
			if l.peekPredicate() {
				if err := l.predicate(); err != nil {
					return nil, err
				}
				continue
			}
		}
		child, err := l.pattern()
		if err != nil {
			return nil, err
		}
		p.children = append(p.children, child)
	}
	l.advance()
	return p, nil
}

// predicate parses "(#name? arg...)" into the current top-level pattern.
func (l *loader) predicate() error {
	open := l.tok.pos
	l.advance()
	name, namePos := l.tok.text, l.tok.pos
	l.advance()

	type arg struct {
		capture bool
		text    string
		pos     span.Position
	}
	var args []arg
	for l.tok.kind != tokRParen {
		switch l.tok.kind {
		case tokCapture:
			args = append(args, arg{capture: true, text: l.tok.text, pos: l.tok.pos})
		case tokString, tokIdent:
			args = append(args, arg{text: l.tok.text, pos: l.tok.pos})
		case tokEOF:
			return l.errorf(open, "unclosed predicate")
		default:
			return l.errorf(l.tok.pos, "unexpected %s in predicate", describe(l.tok))
		}
		l.advance()
	}
	l.advance()

	if strings.HasSuffix(name, "!") {
		log.Debugf("ignoring directive #%s", name)
		return nil
	}

	pred := predicate{pos: namePos, name: name, other: -1}
	switch name {
	case "eq?", "not-eq?", "match?", "not-match?", "any-of?", "not-any-of?":
	default:
		return l.errorf(namePos, "unknown predicate #%s", name)
	}
	pred.negate = strings.HasPrefix(name, "not-")

	if len(args) < 2 {
		return l.errorf(namePos, "#%s needs a capture and a value", name)
	}
	if !args[0].capture {
		return l.errorf(args[0].pos, "#%s must start with a capture", name)
	}
	pred.capture = l.captureIndex(args[0].text)

	switch name {
	case "eq?", "not-eq?":
		if len(args) != 2 {
			return l.errorf(namePos, "#%s takes exactly two arguments", name)
		}
		if args[1].capture {
			pred.other = l.captureIndex(args[1].text)
		} else {
			pred.values = []string{args[1].text}
		}
	case "match?", "not-match?":
		if len(args) != 2 || args[1].capture {
			return l.errorf(namePos, "#%s takes a capture and a regular expression", name)
		}
		re, err := compileRegexp(args[1].text)
		if err != nil {
			return l.errorf(args[1].pos, "bad regular expression: %v", err)
		}
		pred.re = re
	default:
		for _, a := range args[1:] {
			if a.capture {
				return l.errorf(a.pos, "#%s takes string values", name)
			}
			pred.values = append(pred.values, a.text)
		}
	}
	l.current.predicates = append(l.current.predicates, pred)
	return nil
}

func compileRegexp(pattern string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pattern, regexp2.RE2)
	if err != nil {
		// Some patterns use syntax only the default flavor understands.
		re, err = regexp2.Compile(pattern, regexp2.None)
	}
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}

// checkPredicates rejects predicates about captures their pattern never
// binds.
func (l *loader) checkPredicates(top *topPattern) error {
	bound := map[int]bool{}
	var walk func(p *pattern)
	walk = func(p *pattern) {
		for _, c := range p.captures {
			bound[c] = true
		}
		for _, child := range p.children {
			walk(child)
		}
		for _, alt := range p.alts {
			walk(alt)
		}
	}
	walk(top.root)
	for _, pred := range top.predicates {
		if !bound[pred.capture] {
			return l.errorf(pred.pos, "#%s refers to @%s, which the pattern does not capture", pred.name, l.query.captureNames[pred.capture])
		}
		if pred.other >= 0 && !bound[pred.other] {
			return l.errorf(pred.pos, "#%s refers to @%s, which the pattern does not capture", pred.name, l.query.captureNames[pred.other])
		}
	}
	return nil
}

func describe(tok token) string {
	switch tok.kind {
	case tokEOF:
		return "end of input"
	case tokLParen:
		return `"("`
	case tokRParen:
		return `")"`
	case tokLBracket:
		return `"["`
	case tokRBracket:
		return `"]"`
	case tokColon:
		return `":"`
	case tokCapture:
		return "capture @" + tok.text
	case tokPredicate:
		return "predicate #" + tok.text
	case tokString:
		return fmt.Sprintf("string %q", tok.text)
	}
	return fmt.Sprintf("%q", tok.text)
}
