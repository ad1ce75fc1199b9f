// Package repl implements `kano repl`: a read-eval loop over one persistent
// source buffer.
//
// Grounded on the teacher's internal/repl/repl.go shape — each line causes a
// fresh compile-and-run pass rather than incremental interpretation state
// (there: a new compiler.StmtCompiler and a VM reset per line; here: the
// accumulated buffer is re-lexed, re-parsed, re-resolved and re-interpreted
// whole). A line that fails to parse/resolve is not folded into the buffer,
// so a typo doesn't poison every later attempt.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"kano/internal/kano"
)

// Start runs the loop, reading lines from in and writing prompts/output to
// out, until EOF or a line reading "exit".
func Start(in io.Reader, out io.Writer, stackSize uint64) {
	fmt.Fprintln(out, "Kano REPL | type 'exit' to quit")
	scanner := bufio.NewScanner(in)
	var buf strings.Builder

	for {
		fmt.Fprint(out, ">>> ")
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "exit" {
			return
		}

		candidate := buf.String() + line + "\n"
		prog, diags := kano.Compile(candidate, "<repl>")
		if diags.HasErrors() {
			for _, msg := range diags.Strings() {
				fmt.Fprintln(out, msg)
			}
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")

		if err := kano.Interpret(prog, out, in, stackSize); err != nil {
			fmt.Fprintln(out, err)
		}
	}
}
