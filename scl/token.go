package scl

import (
	"strings"

	"github.com/dhamidi/sclview/span"
)

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenError
	TokenWhitespace
	TokenLineComment
	TokenBlockComment

	TokenIdent
	TokenQuotedIdent
	TokenKeyword
	TokenIntLiteral
	TokenRealLiteral
	TokenStringLiteral
	TokenTitleText

	TokenPunct
)

var tokenKindNames = map[TokenKind]string{
	TokenEOF:           "EOF",
	TokenError:         "Error",
	TokenWhitespace:    "Whitespace",
	TokenLineComment:   "LineComment",
	TokenBlockComment:  "BlockComment",
	TokenIdent:         "Identifier",
	TokenQuotedIdent:   "QuotedIdentifier",
	TokenKeyword:       "Keyword",
	TokenIntLiteral:    "IntLiteral",
	TokenRealLiteral:   "RealLiteral",
	TokenStringLiteral: "StringLiteral",
	TokenTitleText:     "TitleText",
	TokenPunct:         "Punct",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Token is a lexical token. For keywords and punctuation Value holds the
// canonical spelling used as the node kind; Literal is always the raw text.
type Token struct {
	Kind    TokenKind
	Span    span.Span
	Literal string
	Value   string
	// Leading holds the comments between the previous token and this one.
	Leading []Token
}

// Is reports whether the token is the keyword or punctuation v.
func (t Token) Is(v string) bool {
	return (t.Kind == TokenKeyword || t.Kind == TokenPunct) && t.Value == v
}

// IsWord reports whether the token is an identifier or keyword spelled w,
// ignoring case. Header words like NAME and AUTHOR are not reserved and
// are recognized this way.
func (t Token) IsWord(w string) bool {
	return (t.Kind == TokenIdent || t.Kind == TokenKeyword) && strings.EqualFold(t.Literal, w)
}

var keywordList = []string{
	"FUNCTION_BLOCK", "END_FUNCTION_BLOCK",
	"FUNCTION", "END_FUNCTION",
	"ORGANIZATION_BLOCK", "END_ORGANIZATION_BLOCK",
	"DATA_BLOCK", "END_DATA_BLOCK",
	"NAMESPACE", "END_NAMESPACE",
	"TYPE", "END_TYPE",
	"STRUCT", "END_STRUCT",
	"VAR_INPUT", "VAR_OUTPUT", "VAR_IN_OUT", "VAR", "VAR_TEMP", "VAR_STATIC", "CONSTANT", "END_VAR",
	"BEGIN", "RETAIN", "NON_RETAIN", "VERSION", "TITLE",
	"IF", "THEN", "ELSIF", "ELSE", "END_IF",
	"CASE", "OF", "END_CASE",
	"FOR", "TO", "BY", "DO", "END_FOR",
	"WHILE", "END_WHILE",
	"REPEAT", "UNTIL", "END_REPEAT",
	"RETURN", "EXIT",
	"NOT", "MOD", "AND", "XOR", "OR",
	"TRUE", "FALSE",
	"Array",
}

// Type names are keywords too, spelled the way the TIA Portal prints them.
var typeNameGroups = map[string][]string{
	"signed_integer_type_names":   {"SInt", "Int", "DInt", "LInt"},
	"unsigned_integer_type_names": {"USInt", "UInt", "UDInt", "ULInt"},
	"real_type_names":             {"Real", "LReal"},
	"date_type_names":             {"Date", "Time_Of_Day", "Tod", "Time", "Date_And_Time", "Dt"},
	"bit_string_type_names":       {"Bool", "Byte", "Word", "DWord", "LWord"},
	"string_type_names":           {"String", "WString"},
}

// typeNamePaths lists the nodes wrapping a type name keyword, outermost
// first. Real type names sit directly below numeric_type_names because the
// grammar hides _real_type_names.
var typeNamePaths = map[string][]string{
	"signed_integer_type_names":   {"elementary_type_names", "numeric_type_names", "integer_type_names", "signed_integer_type_names"},
	"unsigned_integer_type_names": {"elementary_type_names", "numeric_type_names", "integer_type_names", "unsigned_integer_type_names"},
	"real_type_names":             {"elementary_type_names", "numeric_type_names"},
	"date_type_names":             {"elementary_type_names", "date_type_names"},
	"bit_string_type_names":       {"elementary_type_names", "bit_string_type_names"},
	"string_type_names":           {"elementary_type_names", "string_type_names"},
}

var (
	keywords      = map[string]string{}
	typeNameGroup = map[string]string{}
)

func init() {
	for _, kw := range keywordList {
		keywords[strings.ToUpper(kw)] = kw
	}
	for group, names := range typeNameGroups {
		for _, name := range names {
			keywords[strings.ToUpper(name)] = name
			typeNameGroup[name] = group
		}
	}
}

// LookupKeyword returns the canonical spelling of ident if it is a
// reserved word. Keywords are matched without regard to case.
func LookupKeyword(ident string) (string, bool) {
	kw, ok := keywords[strings.ToUpper(ident)]
	return kw, ok
}

var punctuation = []string{
	":=", "=>", "<=", ">=", "<>", "..",
	":", ";", ",", ".", "(", ")", "[", "]", "{", "}",
	"+", "-", "*", "/", "<", ">", "=", "#",
}
