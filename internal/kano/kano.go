// Package kano wires the front-to-back pipeline — lex, parse, resolve,
// interpret — that every entry point (cmd/kano, internal/repl,
// internal/debugserver) drives the same way, so none of them re-derive the
// "register the standard library before resolving" ordering by hand.
package kano

import (
	"io"

	"kano/internal/ast"
	"kano/internal/diagnostics"
	"kano/internal/ffi"
	"kano/internal/interp"
	"kano/internal/lexer"
	"kano/internal/parser"
	"kano/internal/resolver"
)

// Parse lexes and parses source, collecting diagnostics into one bag shared
// across both passes (§7).
func Parse(source, filename string) (*ast.GlobalScope, *diagnostics.Bag) {
	diags := diagnostics.NewBag(filename)
	scanner := lexer.NewScanner(source, diags)
	tokens := scanner.ScanTokens()
	p := parser.NewParser(tokens, diags)
	return p.Parse(), diags
}

// Resolve installs the standard library and resolves scope into a runnable
// Program. Returns a (possibly partial) Program even on error; callers must
// check diags.HasErrors() before interpreting it.
func Resolve(scope *ast.GlobalScope, diags *diagnostics.Bag) *resolver.Program {
	res := resolver.New(diags)
	ffi.Register(res)
	return res.Resolve(scope)
}

// Compile runs Parse then Resolve against one shared diagnostics bag, the
// usual entry point for a one-shot `kano run`.
func Compile(source, filename string) (*resolver.Program, *diagnostics.Bag) {
	scope, diags := Parse(source, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	prog := Resolve(scope, diags)
	return prog, diags
}

// Interpret builds a Machine for prog and runs it to completion.
func Interpret(prog *resolver.Program, stdout io.Writer, stdin io.Reader, stackSize uint64) error {
	m := interp.New(prog, stdout, stdin, stackSize)
	defer m.Close()
	return m.Run()
}

// InterpretTraced is Interpret with a per-statement trace hook installed
// (§12: internal/debugserver's step stream), called with each statement's
// source row immediately before it executes.
func InterpretTraced(prog *resolver.Program, stdout io.Writer, stdin io.Reader, stackSize uint64, trace func(sourceRow int)) error {
	m := interp.New(prog, stdout, stdin, stackSize)
	defer m.Close()
	m.Trace = trace
	return m.Run()
}
