package parser

import (
	"testing"

	"kano/internal/ast"
	"kano/internal/diagnostics"
	"kano/internal/lexer"
)

func parseString(input string) (*ast.GlobalScope, *diagnostics.Bag) {
	diags := diagnostics.NewBag("test.kano")
	tokens := lexer.NewScanner(input, diags).ScanTokens()
	scope := NewParser(tokens, diags).Parse()
	return scope, diags
}

func assertParseSuccess(t *testing.T, input, description string) *ast.GlobalScope {
	t.Helper()
	scope, diags := parseString(input)
	if diags.HasErrors() {
		t.Errorf("%s: parsing failed: %v", description, diags.Strings())
		return nil
	}
	return scope
}

func assertParseError(t *testing.T, input, description string) {
	t.Helper()
	_, diags := parseString(input)
	if !diags.HasErrors() {
		t.Errorf("%s: expected a syntax error but none was reported", description)
	}
}

func TestVariableDeclarations(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldPass bool
	}{
		{"typed with init", "var x : int = 1;", true},
		{"typed without init", "var x : int;", true},
		{"inferred from init", "var x = 1;", true},
		{"missing semicolon", "var x : int = 1", false},
		{"missing name", "var : int = 1;", false},
	}
	for _, tc := range tests {
		if tc.shouldPass {
			assertParseSuccess(t, tc.input, tc.name)
		} else {
			assertParseError(t, tc.input, tc.name)
		}
	}
}

func TestProcedureDeclaration(t *testing.T) {
	scope := assertParseSuccess(t, `
		proc add(a: int, b: int): int {
			return a + b;
		}
	`, "simple procedure")
	if scope == nil {
		return
	}
	if len(scope.Declarations) != 1 {
		t.Fatalf("expected 1 declaration, got %d", len(scope.Declarations))
	}
	proc, ok := scope.Declarations[0].Init.(*ast.Procedure)
	if !ok {
		t.Fatalf("expected *ast.Procedure, got %T", scope.Declarations[0].Init)
	}
	if len(proc.Params) != 2 {
		t.Errorf("expected 2 parameters, got %d", len(proc.Params))
	}
}

func TestVariadicProcedure(t *testing.T) {
	scope := assertParseSuccess(t, `
		proc logf(fmt: *char, ...): void {
		}
	`, "variadic procedure")
	if scope == nil {
		return
	}
	proc := scope.Declarations[0].Init.(*ast.Procedure)
	if !proc.Variadic {
		t.Errorf("expected procedure to be marked variadic")
	}
}

func TestStructDeclaration(t *testing.T) {
	scope := assertParseSuccess(t, `
		struct Point {
			x: int;
			y: int;
		}
	`, "struct with two fields")
	if scope == nil {
		return
	}
	s, ok := scope.Declarations[0].Init.(*ast.Struct)
	if !ok {
		t.Fatalf("expected *ast.Struct, got %T", scope.Declarations[0].Init)
	}
	if len(s.Fields) != 2 {
		t.Errorf("expected 2 fields, got %d", len(s.Fields))
	}
}

func TestControlFlow(t *testing.T) {
	inputs := []string{
		`proc f() { if (1) { } else { } }`,
		`proc f() { while (1) { } }`,
		`proc f() { do { } while (1); }`,
		`proc f() { for (var i = 0; i < 10; i = i + 1) { } }`,
	}
	for _, in := range inputs {
		assertParseSuccess(t, in, in)
	}
}

func TestControlFlowBracelessBody(t *testing.T) {
	inputs := []string{
		`proc f() { if (1) x = 1; else x = 2; }`,
		`proc f() { while (1) x = x + 1; }`,
		`proc f() { do x = x + 1; while (1); }`,
		`proc f() { for (var i = 0; i < 10; i = i + 1) x = x + 1; }`,
	}
	for _, in := range inputs {
		assertParseSuccess(t, in, in)
	}
}

func TestForBracelessBodyDoesNotSwallowFollowingStatements(t *testing.T) {
	scope := assertParseSuccess(t, `
		proc main(): int {
			var s: int = 0;
			for (var i: int = 1; i <= 5; i = i + 1) s = s + i;
			return s;
		}
	`, "braceless for body followed by a return")
	if scope == nil {
		return
	}
	body := scope.Declarations[0].Init.(*ast.Procedure).Body.(*ast.Block)
	if len(body.Statements) != 3 {
		t.Fatalf("expected 3 top-level statements (decl, for, return), got %d: %#v", len(body.Statements), body.Statements)
	}
	forStmt, ok := body.Statements[1].(*ast.For)
	if !ok {
		t.Fatalf("expected *ast.For, got %T", body.Statements[1])
	}
	if _, ok := forStmt.Body.(*ast.Block); ok {
		t.Errorf("expected a bare statement for-body, got an *ast.Block")
	}
	if _, ok := body.Statements[2].(*ast.Return); !ok {
		t.Errorf("expected the trailing return to remain a sibling of the for-loop, got %T", body.Statements[2])
	}
}

func TestExpressionPrecedence(t *testing.T) {
	scope := assertParseSuccess(t, `
		proc f() {
			var x = 1 + 2 * 3;
		}
	`, "multiplication binds tighter than addition")
	if scope == nil {
		return
	}
	body := scope.Declarations[0].Init.(*ast.Procedure).Body.(*ast.Block)
	decl := body.Statements[0].(*ast.Declaration)
	add, ok := decl.Init.(*ast.BinaryOp)
	if !ok || add.Op != "+" {
		t.Fatalf("expected top-level '+', got %#v", decl.Init)
	}
	if _, ok := add.Right.(*ast.BinaryOp); !ok {
		t.Errorf("expected right operand of '+' to be the '*' subtree")
	}
}

func TestPointerAndMemberSyntax(t *testing.T) {
	inputs := []string{
		`proc f(p: *int) { var v = *p; }`,
		`proc f(p: *int) { var v = &p; }`,
		`struct S { x: int; } proc f(s: S) { var v = s.x; }`,
		`proc f(a: [4]int) { var v = a[0]; }`,
	}
	for _, in := range inputs {
		assertParseSuccess(t, in, in)
	}
}

func TestCastSizeofTypeof(t *testing.T) {
	inputs := []string{
		`proc f() { var v = 1 as float; }`,
		`proc f() { var v = sizeof(int); }`,
		`proc f() { var v = typeof(1); }`,
	}
	for _, in := range inputs {
		assertParseSuccess(t, in, in)
	}
}
