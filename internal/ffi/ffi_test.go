package ffi_test

import (
	"strings"
	"testing"

	"kano/internal/kano"
)

func run(t *testing.T, source string) string {
	t.Helper()
	prog, diags := kano.Compile(source, "ffi.kano")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}
	var out strings.Builder
	if err := kano.Interpret(prog, &out, strings.NewReader(""), 0); err != nil {
		t.Fatalf("interpret: %v", err)
	}
	return out.String()
}

func TestPrintRendersMultipleVariadics(t *testing.T) {
	got := run(t, `
		proc main(): int {
			print("%, %\n", 1, 2);
			return 0;
		}
	`)
	if want := "1, 2\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAllocateAndFreeRoundTrip(t *testing.T) {
	got := run(t, `
		proc main(): int {
			var p: *int = allocate(sizeof(int)) as *int;
			*p = 7;
			print("%\n", *p);
			free(p as *void);
			return 0;
		}
	`)
	if want := "7\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMathBuiltins(t *testing.T) {
	got := run(t, `
		proc main(): int {
			print("%\n", sin(0.0));
			return 0;
		}
	`)
	if want := "0.000000\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
