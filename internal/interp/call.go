package interp

import (
	"fmt"

	"kano/internal/ir"
	"kano/internal/symbols"
	"kano/internal/types"
)

// Handle is the Go-level shape of a CCall address (§6.4): invoked with the
// machine so it can read arguments and memory and write a return value.
// internal/ffi builds these and registers them via resolver.RegisterCCall.
type Handle func(m *Machine, args []Value, variadics []VariadicArg) Value

// VariadicArg is one (type, value) pair read from a call's variadic tail.
type VariadicArg struct {
	Type *types.Type
	Val  Value
}

func (m *Machine) evalCall(c *ir.ProcedureCall) Value {
	addr, ok := c.Callee.(*ir.Address)
	if !ok || addr.Symbol == nil {
		panic(&RuntimeError{Message: "interp: indirect procedure calls are not supported"})
	}
	sym := addr.Symbol
	switch sym.Address.Kind {
	case symbols.Code:
		return m.invoke(sym, c.Args, c.Variadics, c.FrameTop)
	case symbols.CCall:
		return m.invokeForeign(sym, c.Args, c.Variadics)
	default:
		panic(&RuntimeError{Message: fmt.Sprintf("interp: '%s' is not callable", sym.Name)})
	}
}

// callSymbol invokes a Code symbol directly, used by Run to start `main`.
func (m *Machine) callSymbol(sym *symbols.Symbol, args []ir.Node, frameTop uint32) Value {
	return m.invoke(sym, args, nil, frameTop)
}

// invoke implements §4.4's call protocol and §4.5's ProcedureCall/Code
// evaluation: push parameters and variadics onto the stack at
// stack_top+frame_top, run the callee's block, then copy the return slot
// out.
func (m *Machine) invoke(sym *symbols.Symbol, args, variadics []ir.Node, frameTop uint32) Value {
	proc := procOf(sym)
	if proc == nil {
		panic(&RuntimeError{Message: fmt.Sprintf("interp: '%s' has no resolved body", sym.Name)})
	}

	var callerBase uint64
	if len(m.frames) > 0 {
		callerBase = m.currentFrame().base
	} else {
		callerBase = stackBase
	}
	newBase := callerBase + uint64(frameTop)
	if newBase+uint64(proc.FrameSize) > stackBase+uint64(len(m.mem.stack)) {
		panic(&RuntimeError{Message: "interp: stack overflow"})
	}

	for i, param := range proc.Params {
		val := m.eval(args[i])
		m.mem.Write(newBase+param.Address.Offset, m.bytes(val)[:param.Type.Size])
	}

	var variadicTail uint64
	if len(variadics) > 0 {
		variadicTail = newBase + uint64(proc.FrameSize)
		cursor := variadicTail
		for _, v := range variadics {
			val := m.eval(v)
			t := v.Type()
			idx := m.internType(t)
			m.mem.Write(cursor, encodePointer(idx))
			cursor += 8
			m.mem.Write(cursor, m.bytes(val)[:t.Size])
			cursor += alignUp8(uint64(t.Size))
		}
	}

	f := frame{base: newBase, variadicTail: variadicTail}
	if proc.Return.Kind != types.Null {
		f.returnOffset = proc.ReturnOffset
		f.returnType = proc.Return
	}
	m.frames = append(m.frames, f)

	save := m.returnDepth
	m.execBlock(proc.Body, save)
	m.returnDepth = save

	m.frames = m.frames[:len(m.frames)-1]

	if proc.Return.Kind == types.Null {
		return Value{Type: proc.Return}
	}
	return addrValue(proc.Return, newBase+uint64(proc.ReturnOffset))
}

func alignUp8(n uint64) uint64 { return (n + 7) &^ 7 }

// internType assigns (or reuses) a stable index for t in the machine's
// variadic type-descriptor table (§6.2's "pointer to a runtime type
// descriptor").
func (m *Machine) internType(t *types.Type) uint64 {
	if idx, ok := m.typeIdx[t]; ok {
		return idx
	}
	idx := uint64(len(m.typeDescs))
	m.typeDescs = append(m.typeDescs, t)
	m.typeIdx[t] = idx
	return idx
}

func (m *Machine) typeAt(idx uint64) *types.Type {
	if idx >= uint64(len(m.typeDescs)) {
		panic(&RuntimeError{Message: "interp: invalid variadic type descriptor"})
	}
	return m.typeDescs[idx]
}

// invokeForeign marshals a CCall's arguments and variadics as plain Values
// (§4.5's "invoke the foreign trampoline"). Unlike a Code call, nothing is
// written to the interpreter's stack: the handle receives Go values
// directly, which is sufficient since handles never need to hand a raw
// stack address to further Kano code.
func (m *Machine) invokeForeign(sym *symbols.Symbol, args, variadics []ir.Node) Value {
	handle, ok := sym.Address.CCall.(Handle)
	if !ok {
		panic(&RuntimeError{Message: fmt.Sprintf("interp: '%s' has no registered foreign handle", sym.Name)})
	}
	argVals := make([]Value, len(args))
	for i, a := range args {
		argVals[i] = m.eval(a)
	}
	var vas []VariadicArg
	for _, v := range variadics {
		vas = append(vas, VariadicArg{Type: v.Type(), Val: m.eval(v)})
	}
	return handle(m, argVals, vas)
}

// VariadicTail returns the current frame's variadic-tail start address, or
// 0 if its call passed none (§6.2). A foreign built-in is invoked without
// pushing a new frame (see invokeForeign), so from inside one the current
// frame is still its caller's.
func (m *Machine) VariadicTail() uint64 { return m.currentFrame().variadicTail }

// VariadicNext advances past the (descriptor, value) pair at ptr and
// returns the address of the next pair (§6.2's va_arg_next).
func (m *Machine) VariadicNext(ptr uint64) uint64 {
	idx := decodePointer(m.mem.Read(ptr, 8))
	t := m.typeAt(idx)
	return ptr + 8 + alignUp8(uint64(t.Size))
}

// VariadicTypeAt returns the type descriptor stored at a variadic pair's
// address, and VariadicValueAt reads its value — for walking a
// stack-resident variadic tail generically. `print` does not use them: it
// receives its variadics as the []VariadicArg built by invokeForeign.
func (m *Machine) VariadicTypeAt(ptr uint64) *types.Type {
	idx := decodePointer(m.mem.Read(ptr, 8))
	return m.typeAt(idx)
}

func (m *Machine) VariadicValueAt(ptr uint64) Value {
	t := m.VariadicTypeAt(ptr)
	return immValue(t, m.mem.Read(ptr+8, uint64(t.Size)))
}
