package kano_test

import (
	"strings"
	"testing"

	"kano/internal/kano"
)

func TestCompileAndInterpretHelloWorld(t *testing.T) {
	source := `
		proc main(): int {
			print("hello, %\n", 42);
			return 0;
		}
	`
	prog, diags := kano.Compile(source, "hello.kano")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}

	var out strings.Builder
	if err := kano.Interpret(prog, &out, strings.NewReader(""), 0); err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if got, want := out.String(), "hello, 42\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestCompileReportsResolveErrors(t *testing.T) {
	source := `
		proc main(): int {
			return undeclared_name;
		}
	`
	_, diags := kano.Compile(source, "bad.kano")
	if !diags.HasErrors() {
		t.Fatalf("expected a resolve error for an undeclared identifier")
	}
}

// The following six tests each run one of the end-to-end scenarios
// verbatim, checking the exact stdout they mandate.

func runScenario(t *testing.T, source string) string {
	t.Helper()
	prog, diags := kano.Compile(source, "scenario.kano")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}
	var out strings.Builder
	if err := kano.Interpret(prog, &out, strings.NewReader(""), 0); err != nil {
		t.Fatalf("interpret: %v", err)
	}
	return out.String()
}

func TestScenarioArithmeticAndCasts(t *testing.T) {
	got := runScenario(t, `proc main() { var x : int = 7; var y : float = x + 1; print("%\n", y); }`)
	if want := "8.000000\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScenarioPointerArithmeticInBytes(t *testing.T) {
	got := runScenario(t, `proc main() { var a : [4]int; a[0]=10; a[1]=20; var p : *int = &a[0]; p = p + 8; print("%\n", *p); }`)
	if want := "20\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScenarioStructLayout(t *testing.T) {
	got := runScenario(t, `
		struct V { x:int; y:float; z:bool; }
		proc main() { var v:V; v.x=1; v.y=2.5; v.z=true; print("% % %\n", v.x, v.y, v.z); }
	`)
	if want := "1 2.500000 true\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScenarioVariadicPrint(t *testing.T) {
	got := runScenario(t, `proc main() { print("% + % = %\n", 2, 3, 2+3); }`)
	if want := "2 + 3 = 5\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScenarioControlFlowAndLoops(t *testing.T) {
	got := runScenario(t, `proc main() { var s:int = 0; for (var i:int=1; i<=5; i=i+1) s = s + i; print("%\n", s); }`)
	if want := "15\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScenarioHeapRoundTrip(t *testing.T) {
	got := runScenario(t, `proc main() { var p : *int = allocate(8); *p = 42; print("%\n", *p); free(p); }`)
	if want := "42\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInterpretTracedVisitsEveryStatement(t *testing.T) {
	source := `
		proc main(): int {
			var x: int = 0;
			x = x + 1;
			return x;
		}
	`
	prog, diags := kano.Compile(source, "trace.kano")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}

	var rows []int
	var out strings.Builder
	err := kano.InterpretTraced(prog, &out, strings.NewReader(""), 0, func(row int) {
		rows = append(rows, row)
	})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("expected 3 traced statements (decl, assign, return), got %d: %v", len(rows), rows)
	}
}
