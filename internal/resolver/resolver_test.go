package resolver_test

import (
	"strings"
	"testing"

	"github.com/kr/pretty"

	"kano/internal/diagnostics"
	"kano/internal/ffi"
	"kano/internal/lexer"
	"kano/internal/parser"
	"kano/internal/resolver"
)

func resolveString(t *testing.T, source string) (*resolver.Program, *diagnostics.Bag) {
	t.Helper()
	diags := diagnostics.NewBag("test.kano")
	tokens := lexer.NewScanner(source, diags).ScanTokens()
	scope := parser.NewParser(tokens, diags).Parse()
	res := resolver.New(diags)
	ffi.Register(res)
	return res.Resolve(scope), diags
}

func TestResolveSimpleMain(t *testing.T) {
	prog, diags := resolveString(t, `
		proc main(): int {
			return 0;
		}
	`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}
	if prog.Main == nil {
		t.Fatalf("expected a resolved 'main' symbol")
	}
}

func TestResolveRejectsTypeMismatch(t *testing.T) {
	_, diags := resolveString(t, `
		proc main(): int {
			var x: *int = 1;
			return 0;
		}
	`)
	if !diags.HasErrors() {
		t.Fatalf("expected a type error assigning int to *int")
	}
}

func TestResolveRejectsRedeclaration(t *testing.T) {
	_, diags := resolveString(t, `
		proc main(): int {
			var x: int = 1;
			var x: int = 2;
			return 0;
		}
	`)
	if !diags.HasErrors() {
		t.Fatalf("expected a redeclaration error")
	}
}

func TestResolveStructMemberAccess(t *testing.T) {
	_, diags := resolveString(t, `
		struct Point { x: int; y: int; }
		proc main(): int {
			var p: Point;
			p.x = 1;
			return p.x;
		}
	`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}
}

// TestResolveStructLayoutMatchesExpectedOffsets diffs the resolved member
// layout of a struct mixing alignments against the offsets §3.1 mandates,
// using pretty.Diff instead of a field-by-field comparison so a layout
// regression shows exactly which member and offset moved.
func TestResolveStructLayoutMatchesExpectedOffsets(t *testing.T) {
	prog, diags := resolveString(t, `
		struct V {
			x: bool;
			y: int;
			z: float;
		}
		proc main(): int { return 0; }
	`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}

	sym, ok := prog.Globals.Lookup("V")
	if !ok {
		t.Fatalf("expected struct 'V' to be declared in the global scope")
	}

	type field struct {
		Name   string
		Offset uint32
		Size   uint32
	}
	got := make([]field, len(sym.Type.Members))
	for i, m := range sym.Type.Members {
		got[i] = field{Name: m.Name, Offset: m.Offset, Size: m.Type.Size}
	}

	// bool is 1-byte aligned, so y (8-byte aligned int) pads up to offset
	// 8; z (8-byte float) follows immediately with no further padding.
	want := []field{
		{Name: "x", Offset: 0, Size: 1},
		{Name: "y", Offset: 8, Size: 8},
		{Name: "z", Offset: 16, Size: 8},
	}

	if diff := pretty.Diff(want, got); len(diff) > 0 {
		t.Errorf("struct layout mismatch:\n%s", strings.Join(diff, "\n"))
	}
}

func TestResolveUsesRegisteredForeignProcedures(t *testing.T) {
	_, diags := resolveString(t, `
		proc main(): int {
			print("x = %\n", 1);
			return 0;
		}
	`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}
}
