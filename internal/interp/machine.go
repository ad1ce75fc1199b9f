// Package interp implements the tree-walking interpreter of spec §4.5: a
// byte-stack machine that evaluates a resolved internal/ir program against
// three owned memory segments (stack, global, heap) and a foreign-function
// trampoline.
package interp

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"kano/internal/ir"
	"kano/internal/resolver"
	"kano/internal/symbols"
	"kano/internal/types"
)

// DefaultStackSize is §3.5's "fixed size, configurable, default 4 MiB".
const DefaultStackSize = 4 * 1024 * 1024

// RuntimeError is a trapped interpreter fault (§7 kind 4: invalid pointer,
// heap exhaustion, division by zero, stack overflow). It is raised as a Go
// panic from deep inside evaluation and recovered at Run's top level, per
// §5's "an interpreter runtime error is a trapped assertion".
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }

// frame is one entry of the interpreter's call stack: the current
// procedure's frame base (an absolute stack-segment address) and, if the
// procedure is variadic, the address its variadic tail begins at.
type frame struct {
	base         uint64
	variadicTail uint64      // 0 if this call passed no variadics
	returnOffset uint32      // frame-relative offset of the return slot
	returnType   *types.Type // nil if the procedure returns nothing
}

// Machine owns the three memory segments and the registers (§4.5) needed
// to run one resolved program to completion.
type Machine struct {
	prog *resolver.Program
	mem  *memory

	frames []frame

	returnDepth int

	Stdout io.Writer
	Stdin  *bufio.Reader

	rodata    map[string]uint64 // interned string literal -> global address
	typeDescs []*types.Type     // variadic type-descriptor table, index-addressed
	typeIdx   map[*types.Type]uint64

	// Trace, if set, is called before every statement executes (§12's debug
	// stream: internal/debugserver sets this to broadcast source_row steps
	// to attached clients). Left nil it costs one nil check
	// per statement.
	Trace func(sourceRow int)
}

// New builds a Machine for prog. stdout/stdin back the `print`/`read_*`
// built-ins (§5: "the core never touches stdio directly except via that
// context" — here, the caller-supplied Stdout/Stdin).
func New(prog *resolver.Program, stdout io.Writer, stdin io.Reader, stackSize uint64) *Machine {
	if stackSize == 0 {
		stackSize = DefaultStackSize
	}
	m := &Machine{
		prog:    prog,
		mem:     newMemory(prog.GlobalSize, stackSize),
		Stdout:  stdout,
		Stdin:   bufio.NewReader(stdin),
		rodata:  make(map[string]uint64),
		typeIdx: make(map[*types.Type]uint64),
	}
	return m
}

// Close releases host resources (mmapped heap regions).
func (m *Machine) Close() error { return m.mem.heap.Close() }

func (m *Machine) currentFrame() *frame { return &m.frames[len(m.frames)-1] }

// Run zeroes the global segment, evaluates global initialisers in
// declaration order, then calls `main` (§4.5, §6.3). Returns an error if
// `main` is missing (§6.3: exit code 1) or if a RuntimeError was trapped.
func (m *Machine) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(*RuntimeError); ok {
				err = errors.WithStack(re)
				return
			}
			panic(r)
		}
	}()

	m.internStrings()

	m.frames = append(m.frames, frame{base: stackBase})
	for _, stmt := range m.prog.GlobalInit {
		m.execStatement(stmt, m.returnDepth)
	}
	m.frames = m.frames[:0]

	if m.prog.Main == nil {
		return errors.New("no 'main' procedure declared")
	}
	m.callSymbol(m.prog.Main, nil, 0)
	return nil
}

// symbolAddr resolves a storage symbol's absolute address: stack symbols
// are relative to the current frame base, global symbols are absolute
// within the global segment.
func (m *Machine) symbolAddr(sym *symbols.Symbol) uint64 {
	switch sym.Address.Kind {
	case symbols.Stack:
		return m.currentFrame().base + sym.Address.Offset
	case symbols.Global:
		return globalBase + sym.Address.Offset
	default:
		panic(&RuntimeError{Message: fmt.Sprintf("symbol '%s' has no storage address", sym.Name)})
	}
}

// procOf recovers the resolved body of a Code symbol.
func procOf(sym *symbols.Symbol) *ir.Procedure {
	p, _ := sym.Address.Block.(*ir.Procedure)
	return p
}
