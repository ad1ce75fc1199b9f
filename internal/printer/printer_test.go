package printer_test

import (
	"strings"
	"testing"

	"kano/internal/diagnostics"
	"kano/internal/lexer"
	"kano/internal/parser"
	"kano/internal/printer"
)

func TestFormatRoundTripsParserOutput(t *testing.T) {
	source := `
struct Point {
	x: int;
	y: int;
}

proc add(a: int, b: int): int {
	return a + b;
}
`
	diags := diagnostics.NewBag("fmt.kano")
	tokens := lexer.NewScanner(source, diags).ScanTokens()
	scope := parser.NewParser(tokens, diags).Parse()
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}

	out := printer.New().Format(scope)
	if !strings.Contains(out, "struct Point") {
		t.Errorf("expected formatted output to contain 'struct Point', got:\n%s", out)
	}
	if !strings.Contains(out, "proc add") {
		t.Errorf("expected formatted output to contain 'proc add', got:\n%s", out)
	}

	// Re-parsing the formatted output must succeed and yield the same
	// number of declarations.
	diags2 := diagnostics.NewBag("fmt2.kano")
	tokens2 := lexer.NewScanner(out, diags2).ScanTokens()
	scope2 := parser.NewParser(tokens2, diags2).Parse()
	if diags2.HasErrors() {
		t.Fatalf("formatted output failed to reparse: %v\n%s", diags2.Strings(), out)
	}
	if len(scope2.Declarations) != len(scope.Declarations) {
		t.Errorf("expected %d declarations after reparse, got %d", len(scope.Declarations), len(scope2.Declarations))
	}
}

// TestFormatNormalizesBracelessAndElseIfBodies covers the two shapes an
// if/while/do/for body can take besides a braced block: a single bare
// statement, and (for an else-if chain) another *ast.If. Both used to
// reach a failed `.(*ast.Block)` assertion in formatBody's predecessor.
func TestFormatNormalizesBracelessAndElseIfBodies(t *testing.T) {
	source := `
proc classify(x: int): int {
	if (x < 0) return 0; else if (x < 10) return 1; else return 2;
	for (var i: int = 0; i < x; i = i + 1) x = x - 1;
	return x;
}
`
	diags := diagnostics.NewBag("braceless.kano")
	tokens := lexer.NewScanner(source, diags).ScanTokens()
	scope := parser.NewParser(tokens, diags).Parse()
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}

	out := printer.New().Format(scope)
	for _, want := range []string{"return 0", "return 1", "return 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected formatted output to contain %q, got:\n%s", want, out)
		}
	}

	diags2 := diagnostics.NewBag("braceless2.kano")
	tokens2 := lexer.NewScanner(out, diags2).ScanTokens()
	parser.NewParser(tokens2, diags2).Parse()
	if diags2.HasErrors() {
		t.Fatalf("formatted output failed to reparse: %v\n%s", diags2.Strings(), out)
	}
}
