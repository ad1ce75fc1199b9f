// Package diagnostics implements the error-collection policy of spec §7:
// lex, syntax and resolve errors are collected rather than thrown, each
// carrying a source location so the CLI can print `row:col: message` and a
// caret under the offending column.
//
// Grounded on the teacher's internal/errors package (SentraError/ErrorType/
// SourceLocation, caret rendering in Error()), narrowed to the four error
// kinds spec §7 actually defines.
package diagnostics

import (
	"fmt"
	"strings"
)

// Kind is one of the four error kinds enumerated in spec §7.
type Kind string

const (
	Lex      Kind = "lex"
	Syntax   Kind = "syntax"
	Resolve  Kind = "resolve"
	Runtime  Kind = "runtime"
)

// Diagnostic is one collected error.
type Diagnostic struct {
	Kind    Kind
	Message string
	File    string
	Row     int
	Col     int
	Source  string // the offending source line, if known
}

func (d *Diagnostic) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d:%d: %s", d.Row, d.Col, d.Message)
	if d.Source != "" {
		fmt.Fprintf(&sb, "\n  %d | %s\n  %s^", d.Row, d.Source, strings.Repeat(" ", len(fmt.Sprintf("%d | ", d.Row))+max(d.Col-1, 0)))
	}
	return sb.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Bag accumulates diagnostics across a pass (lex, parse, or resolve) so the
// caller can report as many problems as possible in one run instead of
// halting at the first one (§7).
type Bag struct {
	File  string
	items []*Diagnostic
}

func NewBag(file string) *Bag { return &Bag{File: file} }

func (b *Bag) Add(kind Kind, row, col int, format string, args ...interface{}) *Diagnostic {
	d := &Diagnostic{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		File:    b.File,
		Row:     row,
		Col:     col,
	}
	b.items = append(b.items, d)
	return d
}

func (b *Bag) Lex(row, col int, format string, args ...interface{}) *Diagnostic {
	return b.Add(Lex, row, col, format, args...)
}

func (b *Bag) Syntax(row, col int, format string, args ...interface{}) *Diagnostic {
	return b.Add(Syntax, row, col, format, args...)
}

func (b *Bag) Resolve(row, col int, format string, args ...interface{}) *Diagnostic {
	return b.Add(Resolve, row, col, format, args...)
}

func (b *Bag) HasErrors() bool { return len(b.items) > 0 }

func (b *Bag) Items() []*Diagnostic { return b.items }

// Strings renders every diagnostic as "row:col: message", the CLI line
// format required by spec §6.3.
func (b *Bag) Strings() []string {
	lines := make([]string, len(b.items))
	for i, d := range b.items {
		lines[i] = fmt.Sprintf("%d:%d: %s", d.Row, d.Col, d.Message)
	}
	return lines
}
