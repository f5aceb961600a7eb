package scl

import (
	"strings"
	"testing"

	"github.com/dhamidi/sclview/span"
)

const assign = "(expression_statement (binary_expression left: (identifier (simple_identifier)) right: (integer_literal)))"

func TestParseDataBlock(t *testing.T) {
	input := `
DATA_BLOCK "AHU1_AE1_Data"
{ S7_Optimized_Access := 'TRUE' }
VERSION : 0.1
 "UDT_AHU_AE1_Data"

BEGIN
   UDT_BYP_Act1.BOOL_EnableFaceplate := FALSE;
END_DATA_BLOCK
`
	tree := Parse([]byte(input))
	if tree.HasError() {
		t.Fatalf("unexpected errors: %s", tree.Root)
	}
	want := "(source_file (data_block name: (identifier (quoted_identifier))" +
		" (attributes (attribute_list (attribute name: (identifier (simple_identifier)) value: (string_literal))))" +
		" (version value: (real_literal))" +
		" type: (quoted_identifier)" +
		" (statement_list (expression_statement (binary_expression" +
		" left: (member_expression object: (identifier (simple_identifier)) property: (identifier (simple_identifier)))" +
		" right: (bool_literal))))))"
	if got := tree.Root.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestParseMissingTerminator(t *testing.T) {
	tree := Parse([]byte("FUNCTION_BLOCK \"FB\" BEGIN\n  x := 1\nEND_FUNCTION_BLOCK\n"))
	if !tree.HasError() {
		t.Fatal("expected HasError")
	}
	want := `(source_file (function_block name: (identifier (quoted_identifier)) (statement_list (expression_statement (binary_expression left: (identifier (simple_identifier)) right: (integer_literal)) (MISSING ";")))))`
	if got := tree.Root.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}

	stmt := tree.Root.Children[0].FirstChildOfKind("statement_list").Children[0]
	missing := stmt.Children[len(stmt.Children)-1]
	if !missing.IsMissing() || missing.Type != ";" {
		t.Fatalf("got %s, want missing \";\"", missing.Type)
	}
	if !missing.Range.IsEmpty() {
		t.Errorf("missing node should be empty, got %v", missing.Range)
	}
	if missing.Range.Start.Row != 1 || missing.Range.Start.Column != 8 {
		t.Errorf("missing node at %v, want (1, 8)", missing.Range.Start)
	}
}

func TestParseDeclarations(t *testing.T) {
	input := `FUNCTION_BLOCK "Motor"
{ S7_Optimized_Access := 'TRUE' }
VERSION : 0.1
   VAR_INPUT
      start : Bool;
      speed : Int := 10;
   END_VAR
   VAR
      buf : Array[0..9] of Byte;
      name : String[20];
   END_VAR
BEGIN
END_FUNCTION_BLOCK
`
	tree := Parse([]byte(input))
	if tree.HasError() {
		t.Fatalf("unexpected errors: %s", tree.Root)
	}
	bitType := "(type (elementary_type (elementary_type_names (bit_string_type_names))))"
	intType := "(type (elementary_type (elementary_type_names (numeric_type_names (integer_type_names (signed_integer_type_names))))))"
	want := "(source_file (function_block name: (identifier (quoted_identifier))" +
		" (attributes (attribute_list (attribute name: (identifier (simple_identifier)) value: (string_literal))))" +
		" (version value: (real_literal))" +
		" (variable_declaration_section" +
		" (variable_declaration name: (identifier (simple_identifier)) data_type: " + bitType + ")" +
		" (variable_declaration name: (identifier (simple_identifier)) data_type: " + intType + " initial_value: (integer_literal)))" +
		" (variable_declaration_section" +
		" (variable_declaration name: (identifier (simple_identifier)) data_type: (type (array_type start: (integer_literal) end: (integer_literal) type: " + bitType + ")))" +
		" (variable_declaration name: (identifier (simple_identifier)) data_type: (type (sized_string_type (string_type_names) size: (integer_literal)))))))"
	if got := tree.Root.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestParseTypeDefinition(t *testing.T) {
	input := `TYPE "UDT_Valve"
VERSION : 0.1
   STRUCT
      open : Bool;
      position : Real;
   END_STRUCT;
END_TYPE
`
	tree := Parse([]byte(input))
	if tree.HasError() {
		t.Fatalf("unexpected errors: %s", tree.Root)
	}
	def := tree.Root.Children[0]
	if def.Type != "type_definition" {
		t.Fatalf("got %s, want type_definition", def.Type)
	}
	st := def.FirstChildOfKind("struct_definition")
	if st == nil {
		t.Fatal("no struct_definition")
	}
	fields := st.NamedChildren()
	if len(fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(fields))
	}
	names := fields[1].FirstChildOfKind("type").Children[0].Children[0]
	if names.Type != "elementary_type_names" || names.Children[0].Type != "numeric_type_names" {
		t.Errorf("got %s", fields[1])
	}
}

func TestParseFunctionHeader(t *testing.T) {
	input := `FUNCTION "Scale" : Real
TITLE = Scale an analog value
AUTHOR : Plant
FAMILY : Analog
VERSION : 1.2
   VAR_INPUT
      raw : Int;
   END_VAR
BEGIN
   "Scale" := raw / 27648.0;
END_FUNCTION
`
	tree := Parse([]byte(input))
	if tree.HasError() {
		t.Fatalf("unexpected errors: %s", tree.Root)
	}
	fn := tree.Root.Children[0]
	if fn.Type != "function" {
		t.Fatalf("got %s, want function", fn.Type)
	}
	if rt := fn.ChildByField("return_type"); rt == nil || rt.Type != "type" {
		t.Errorf("missing return_type: %s", fn)
	}
	title := fn.FirstChildOfKind("legacy_header_attribute")
	if title == nil || title.ChildByField("value").TokenLiteral() != "Scale an analog value" {
		t.Errorf("title: %s", fn)
	}
	var headers []string
	for _, child := range fn.Children {
		if child.Type == "header_attribute" {
			headers = append(headers, child.ChildByField("name").Type)
		}
	}
	if strings.Join(headers, ",") != "AUTHOR,FAMILY" {
		t.Errorf("headers: got %v", headers)
	}
}

func TestParseStatements(t *testing.T) {
	id := "(identifier (simple_identifier))"
	tests := []struct {
		input string
		want  string
	}{
		{"x := a OR b AND c;", "(expression_statement (binary_expression left: " + id + " right: (binary_expression left: " + id + " right: (binary_expression left: " + id + " right: " + id + "))))"},
		{"x := a - b - c;", "(expression_statement (binary_expression left: " + id + " right: (binary_expression left: (binary_expression left: " + id + " right: " + id + ") right: " + id + ")))"},
		{"x := NOT a;", "(expression_statement (binary_expression left: " + id + " right: (unary_expression operand: " + id + ")))"},
		{"#x := -5;", "(expression_statement (binary_expression left: " + id + " right: (unary_expression operand: (integer_literal))))"},
		{"x := (a + b) * c;", "(expression_statement (binary_expression left: " + id + " right: (binary_expression left: (parenthesized_expression (binary_expression left: " + id + " right: " + id + ")) right: " + id + ")))"},
		{"x := TRUE;", "(expression_statement (binary_expression left: " + id + " right: (bool_literal)))"},
		{"x := a = b;", "(expression_statement (binary_expression left: " + id + " right: (binary_expression left: " + id + " right: " + id + ")))"},
		{"f(a := 1, b);", "(expression_statement (function_call function: " + id + " (argument_list (argument (named_argument name: " + id + " value: (integer_literal))) (argument " + id + "))))"},
		{"f();", "(expression_statement (function_call function: " + id + "))"},
		{"x := arr[i, 2].y;", "(expression_statement (binary_expression left: " + id + " right: (member_expression object: (array_expression array: " + id + " index: " + id + " index: (integer_literal)) property: " + id + ")))"},
		{"IF a THEN x := 1; ELSIF b THEN x := 2; ELSE x := 3; END_IF;",
			"(if_statement condition: " + id + " (statement_list " + assign + ") (elsif_clause condition: " + id + " (statement_list " + assign + ")) (else_clause (statement_list " + assign + ")))"},
		{"CASE n OF 1: x := 1; 2, 3: x := 2; ELSE x := 3; END_CASE;",
			"(case_statement value: " + id + " (case_option match: (integer_literal) (statement_list " + assign + ")) (case_option match: (integer_literal) match: (integer_literal) (statement_list " + assign + ")) (else_clause (statement_list " + assign + ")))"},
		{"FOR i := 1 TO 10 BY 2 DO x := 1; END_FOR;",
			"(for_statement iterator: " + id + " start: (integer_literal) end: (integer_literal) step: (integer_literal) (statement_list " + assign + "))"},
		{"WHILE a DO EXIT; END_WHILE;", "(while_statement condition: " + id + " (statement_list (exit_statement)))"},
		{"REPEAT RETURN; UNTIL a END_REPEAT;", "(repeat_statement (statement_list (return_statement)) condition: " + id + ")"},
		{"IF a THEN END_IF;", "(if_statement condition: " + id + ")"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tree := Parse([]byte("FUNCTION_BLOCK \"FB\"\nBEGIN\n" + tt.input + "\nEND_FUNCTION_BLOCK\n"))
			if tree.HasError() {
				t.Errorf("unexpected errors: %s", tree.Root)
			}
			list := tree.Root.Children[0].FirstChildOfKind("statement_list")
			if list == nil {
				t.Fatalf("no statement_list in %s", tree.Root)
			}
			if got := list.Children[0].String(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestParseRecovery(t *testing.T) {
	tree := Parse([]byte("FUNCTION_BLOCK \"FB\"\nBEGIN\n  x := ) ;\n  y := 2;\nEND_FUNCTION_BLOCK\n"))
	if !tree.HasError() {
		t.Fatal("expected HasError")
	}
	list := tree.Root.Children[0].FirstChildOfKind("statement_list")
	want := `(statement_list (expression_statement (binary_expression left: (identifier (simple_identifier)) right: (MISSING identifier)) (MISSING ";")) (ERROR) ` + assign + `)`
	if got := list.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestParseTopLevelGarbage(t *testing.T) {
	tree := Parse([]byte("garbage\nFUNCTION_BLOCK \"FB\"\nBEGIN\nEND_FUNCTION_BLOCK\n"))
	want := `(source_file (ERROR (simple_identifier)) (function_block name: (identifier (quoted_identifier))))`
	if got := tree.Root.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
	if !tree.HasError() {
		t.Error("expected HasError")
	}
}

func TestParseMissingEnd(t *testing.T) {
	tree := Parse([]byte("FUNCTION_BLOCK \"A\"\nBEGIN\n  x := 1;\nFUNCTION_BLOCK \"B\"\nBEGIN\nEND_FUNCTION_BLOCK\n"))
	if len(tree.Root.Children) != 2 {
		t.Fatalf("got %d definitions, want 2: %s", len(tree.Root.Children), tree.Root)
	}
	first := tree.Root.Children[0]
	last := first.Children[len(first.Children)-1]
	if !last.IsMissing() || last.Type != "END_FUNCTION_BLOCK" {
		t.Errorf("got %s, want missing END_FUNCTION_BLOCK", last.Type)
	}
}

func TestParseComments(t *testing.T) {
	input := "// header\nFUNCTION_BLOCK \"FB\"\nBEGIN\n  (* note *)\n  x := 1;\nEND_FUNCTION_BLOCK\n// trailing"
	tree := Parse([]byte(input))
	want := "(source_file (function_block (line_comment) name: (identifier (quoted_identifier))" +
		" (statement_list (expression_statement (binary_expression (block_comment) left: (identifier (simple_identifier)) right: (integer_literal)))))" +
		" (line_comment))"
	if got := tree.Root.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}

	tree = Parse([]byte(input), WithoutComments())
	want = "(source_file (function_block name: (identifier (quoted_identifier))" +
		" (statement_list (expression_statement (binary_expression left: (identifier (simple_identifier)) right: (integer_literal))))))"
	if got := tree.Root.String(); got != want {
		t.Errorf("without comments got:\n%s\nwant:\n%s", got, want)
	}
}

func TestParseEmpty(t *testing.T) {
	tree := Parse(nil)
	if got := tree.Root.String(); got != "(source_file)" {
		t.Errorf("got %s", got)
	}
	if tree.HasError() {
		t.Error("empty input should not have errors")
	}
	if !tree.Root.Range.IsEmpty() {
		t.Errorf("got span %v", tree.Root.Range)
	}
}

func TestParseRootCoversInput(t *testing.T) {
	input := "\n\nFUNCTION_BLOCK \"FB\"\nBEGIN\nEND_FUNCTION_BLOCK\n\n"
	tree := Parse([]byte(input))
	want := span.Span{End: span.Position{Row: 6, Column: 0, Offset: len(input)}}
	if tree.Root.Range != want {
		t.Errorf("got %v, want %v", tree.Root.Range, want)
	}
}

func TestParseKeepsSourceUntouched(t *testing.T) {
	src := []byte("FUNCTION_BLOCK \"FB\" BEGIN x := 1 END_FUNCTION_BLOCK")
	orig := string(src)
	tree := Parse(src)
	if string(src) != orig {
		t.Error("input was modified")
	}
	if string(tree.Source()) != orig {
		t.Error("tree source differs from input")
	}
}

func TestParserImplementsSyntaxParser(t *testing.T) {
	tree, err := NewParser().Parse([]byte("ORGANIZATION_BLOCK \"Main\"\nBEGIN\nEND_ORGANIZATION_BLOCK\n"))
	if err != nil {
		t.Fatal(err)
	}
	root := tree.RootNode()
	if root.Kind() != "source_file" || root.ChildCount() != 1 {
		t.Fatalf("got %s with %d children", root.Kind(), root.ChildCount())
	}
	if root.Child(0).Kind() != "organization_block" {
		t.Errorf("got %s", root.Child(0).Kind())
	}
}

func TestNodeIDsAreUnique(t *testing.T) {
	seen := map[uintptr]bool{}
	var walk func(n *Node)
	walk = func(n *Node) {
		if seen[n.ID()] {
			t.Fatalf("duplicate id %d for %s", n.ID(), n.Type)
		}
		seen[n.ID()] = true
		for _, child := range n.Children {
			walk(child)
		}
	}
	src := []byte("FUNCTION_BLOCK \"FB\" BEGIN x := 1; END_FUNCTION_BLOCK")
	walk(Parse(src).Root)
	walk(Parse(src).Root)
}

func TestParseChildrenWithinParent(t *testing.T) {
	inputs := []string{
		"FUNCTION_BLOCK \"FB\"\nBEGIN\n  # (* c *) s := 1;\nEND_FUNCTION_BLOCK\n",
		"FUNCTION_BLOCK \"FB\"\nBEGIN\n  x := (* a *) 1 + // b\n 2;\nEND_FUNCTION_BLOCK\n",
		"FUNCTION_BLOCK \"FB\"\nBEGIN\n  a.(* m *)b := #(* n *)c;\nEND_FUNCTION_BLOCK\n",
	}
	var walk func(n *Node)
	walk = func(n *Node) {
		var prev span.Position
		for i, child := range n.Children {
			if !span.Contains(n.Range, child.Range) {
				t.Errorf("%s %v outside parent %s %v", child.Type, child.Range, n.Type, n.Range)
			}
			if i > 0 && span.Compare(child.Range.Start, prev) == span.Before {
				t.Errorf("%s at %v precedes its previous sibling in %s", child.Type, child.Range.Start, n.Type)
			}
			prev = child.Range.Start
			walk(child)
		}
	}
	for _, input := range inputs {
		walk(Parse([]byte(input)).Root)
	}
}
