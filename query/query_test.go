package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/sclview/scl"
	"github.com/dhamidi/sclview/syntax"
)

const sample = "FUNCTION_BLOCK \"FB\"\nBEGIN\n  // note\n  IF x THEN MAX_SPEED := 1; END_IF;\nEND_FUNCTION_BLOCK\n"

func captureTexts(t *testing.T, source, src string) []string {
	t.Helper()
	q, err := Load(source)
	require.NoError(t, err)
	tree := scl.Parse([]byte(src))
	captures, err := q.Captures(tree)
	require.NoError(t, err)

	var out []string
	for _, c := range captures {
		out = append(out, c.Name+"="+syntax.Text(c.Node, tree.Source()))
	}
	return out
}

func TestCaptures(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{"field", `(if_statement condition: (identifier) @cond)`, []string{"cond=x"}},
		{"literal", `"IF" @kw`, []string{"kw=IF"}},
		{"named pattern skips anonymous nodes", `(IF) @kw`, nil},
		{"alternation", `["IF" "THEN"] @kw`, []string{"kw=IF", "kw=THEN"}},
		{"wildcards", `(binary_expression left: (_) @l right: _ @r)`, []string{"l=MAX_SPEED", "r=1"}},
		{"anonymous field", `(binary_expression operator: _ @op)`, []string{"op=:="}},
		{"nested", `(if_statement (statement_list (expression_statement (binary_expression) @assign)))`, []string{"assign=MAX_SPEED := 1"}},
		{"comment", `(line_comment) @comment`, []string{"comment=// note"}},
		{"several captures", `(identifier (quoted_identifier) @a @b)`, []string{`a="FB"`, `b="FB"`}},
		{"match", `((simple_identifier) @c (#match? @c "^[A-Z_]+$"))`, []string{"c=MAX_SPEED"}},
		{"not-match", `((simple_identifier) @c (#not-match? @c "^[A-Z_]+$"))`, []string{"c=x"}},
		{"eq", `((simple_identifier) @c (#eq? @c "x"))`, []string{"c=x"}},
		{"not-eq", `((simple_identifier) @c (#not-eq? @c "x"))`, []string{"c=MAX_SPEED"}},
		{"any-of", `((simple_identifier) @c (#any-of? @c "x" "y"))`, []string{"c=x"}},
		{"not-any-of", `((simple_identifier) @c (#not-any-of? @c "x" "y"))`, []string{"c=MAX_SPEED"}},
		{"predicate inside pattern", `(binary_expression left: (identifier) @l (#eq? @l "MAX_SPEED"))`, []string{"l=MAX_SPEED"}},
		{"directive ignored", `((line_comment) @c (#set! priority "99"))`, []string{"c=// note"}},
		{"no match", `(while_statement) @loop`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, captureTexts(t, tt.source, sample))
		})
	}
}

func TestCaptureComparesCaptures(t *testing.T) {
	src := "FUNCTION_BLOCK \"FB\"\nBEGIN\n  x := x;\n  y := x;\nEND_FUNCTION_BLOCK\n"
	got := captureTexts(t, `(binary_expression left: (identifier) @a right: (identifier) @b (#eq? @a @b))`, src)
	assert.Equal(t, []string{"a=x", "b=x"}, got)
}

func TestCapturesBacktrack(t *testing.T) {
	// The first simple_identifier child candidate fails the predicate, the
	// matcher has to move on to the next child.
	src := "FUNCTION_BLOCK \"FB\"\nBEGIN\n  f(a, b);\nEND_FUNCTION_BLOCK\n"
	got := captureTexts(t, `(argument_list (argument (identifier) @arg) (#eq? @arg "b"))`, src)
	assert.Equal(t, []string{"arg=b"}, got)
}

func TestCapturesSkipMissingNodes(t *testing.T) {
	src := "FUNCTION_BLOCK \"FB\"\nBEGIN\n  x := 1\nEND_FUNCTION_BLOCK\n"
	got := captureTexts(t, `";" @semi`, src)
	assert.Empty(t, got)
}

func TestCaptureNames(t *testing.T) {
	q, err := Load(`
; comment
(line_comment) @comment
["IF" "THEN"] @keyword
(identifier) @variable @keyword
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"comment", "keyword", "variable"}, q.CaptureNames())
	assert.Equal(t, 3, q.PatternCount())
}

func TestHighlightsQuery(t *testing.T) {
	q, err := Load(scl.HighlightsQuery)
	require.NoError(t, err)
	assert.Contains(t, q.CaptureNames(), "keyword")
	assert.Contains(t, q.CaptureNames(), "comment")

	got := captureTexts(t, scl.HighlightsQuery, sample)
	assert.Contains(t, got, "keyword=IF")
	assert.Contains(t, got, "keyword=END_FUNCTION_BLOCK")
	assert.Contains(t, got, "comment=// note")
	assert.Contains(t, got, `function="FB"`)
	assert.Contains(t, got, "constant=MAX_SPEED")
	assert.Contains(t, got, "number=1")
	assert.Contains(t, got, "operator=:=")
	assert.Contains(t, got, "punctuation.delimiter=;")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		source  string
		row     int
		column  int
		message string
	}{
		{"(identifier)*", 0, 12, `quantifier "*" is not supported`},
		{"(a . (b))", 0, 3, "anchors are not supported"},
		{"((a) @x (#frob? @x))", 0, 9, "unknown predicate #frob?"},
		{"(a", 0, 0, "unclosed pattern"},
		{`((a) (#eq? @y "v"))`, 0, 6, "#eq? refers to @y, which the pattern does not capture"},
		{"identifier", 0, 0, `bare node kind "identifier" must be parenthesized`},
		{"(a !field)", 0, 3, "negated fields are not supported"},
		{"\n\n  (a\n   \"x)", 3, 3, "unterminated string"},
		{`(#eq? @a "b")`, 0, 1, "predicate outside a pattern"},
		{`((a) @x (#eq? @x))`, 0, 9, "#eq? needs a capture and a value"},
		{"[]", 0, 0, "empty alternation"},
		{"(a) %", 0, 4, `unexpected character '%'`},
		{"((a) (b))", 0, 5, "sibling patterns are not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			q, err := Load(tt.source)
			assert.Nil(t, q)
			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, tt.row, loadErr.Row, "row")
			assert.Equal(t, tt.column, loadErr.Column, "column")
			assert.Equal(t, tt.message, loadErr.Message)
		})
	}
}

func TestLoadBadRegexp(t *testing.T) {
	_, err := Load(`((a) @x (#match? @x "["))`)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, 20, loadErr.Column)
	assert.Contains(t, loadErr.Message, "bad regular expression")
}

func TestMatchPredicateHasTimeout(t *testing.T) {
	q, err := Load(`((a) @x (#match? @x "^(a+)+$")) ((b) @y (#not-match? @y "(?<=x)y"))`)
	require.NoError(t, err)
	require.Len(t, q.patterns, 2)
	for _, top := range q.patterns {
		require.Len(t, top.predicates, 1)
		require.NotNil(t, top.predicates[0].re)
		assert.Equal(t, matchTimeout, top.predicates[0].re.MatchTimeout)
	}
}

func TestLoadErrorMessage(t *testing.T) {
	_, err := Load("(a")
	require.Error(t, err)
	assert.Equal(t, "query 1:1: unclosed pattern", err.Error())
}

func TestCapturesNilTree(t *testing.T) {
	q, err := Load("(a) @a")
	require.NoError(t, err)
	_, err = q.Captures(nil)
	assert.ErrorIs(t, err, ErrNoTree)
}
