package scl

import _ "embed"

// HighlightsQuery is the default highlight query for SCL trees, written in
// the tree-sitter query language.
//
//go:embed queries/highlights.scm
var HighlightsQuery string
