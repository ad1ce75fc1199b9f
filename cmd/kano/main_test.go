package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain lets testscript re-exec this test binary as the `kano` command
// itself, so the *.txtar scripts under testdata/ drive the real CLI
// end-to-end instead of a mocked stand-in.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"kano": func() int {
			main()
			return 0
		},
	}))
}

func TestCLI(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
	})
}
