package interp

import (
	"fmt"

	"kano/internal/heap"
	"kano/internal/types"
)

// The functions and methods below are the surface internal/ffi builds
// built-in handles against: constructing Values, reading/writing memory and
// the heap, and decoding scalars, without reaching into interp's unexported
// encode/decode helpers directly.

func NewInt(t *types.Type, v int64) Value     { return immValue(t, encodeInt(v)) }
func NewFloat(t *types.Type, v float64) Value { return immValue(t, encodeFloat(v)) }
func NewBool(t *types.Type, v bool) Value     { return immValue(t, encodeBool(v)) }
func NewPointer(t *types.Type, addr uint64) Value { return immValue(t, encodePointer(addr)) }
func NewVoid(t *types.Type) Value             { return Value{Type: t} }

func (m *Machine) Int(v Value) int64      { return m.asInt(v) }
func (m *Machine) Float(v Value) float64  { return m.asFloat(v) }
func (m *Machine) Bool(v Value) bool      { return m.asBool(v) }
func (m *Machine) Pointer(v Value) uint64 { return m.asPointer(v) }
func (m *Machine) Char(v Value) byte      { return m.asChar(v) }

// Bytes returns v's raw byte representation (reading through memory for an
// address-backed value), for built-ins that render or copy values generically.
func (m *Machine) Bytes(v Value) []byte { return m.bytes(v) }

// ReadMemory/WriteMemory expose the machine's unified address space (§4.5)
// to built-ins that need to walk raw bytes (e.g. `print`'s format string).
func (m *Machine) ReadMemory(addr, size uint64) []byte { return m.mem.Read(addr, size) }
func (m *Machine) WriteMemory(addr uint64, data []byte) { m.mem.Write(addr, data) }

// ReadCString reads a NUL-terminated byte run starting at addr, the layout
// every Kano string literal and char-pointer argument uses (§3.1).
func (m *Machine) ReadCString(addr uint64) string {
	var out []byte
	for {
		b := m.mem.Read(addr, 1)
		if b[0] == 0 {
			break
		}
		out = append(out, b[0])
		addr++
	}
	return string(out)
}

// AllocateHeap and FreeHeap back the `allocate`/`free` built-ins (§4.6).
func (m *Machine) AllocateHeap(n uint64) uint64 { return m.mem.heap.Allocate(n) }
func (m *Machine) FreeHeap(addr uint64) error   { return m.mem.heap.Free(addr) }

// IsValidPointer reports whether addr currently refers to live storage in
// one of the three segments (§8's heap-safety property): a non-null pointer
// into global/stack bounds, or a heap address the allocator still considers
// live (not freed).
func (m *Machine) IsValidPointer(addr uint64) bool {
	if addr == 0 {
		return false
	}
	if addr < stackBase {
		return addr-globalBase < uint64(len(m.mem.global))
	}
	if addr < heap.Base {
		return addr-stackBase < uint64(len(m.mem.stack))
	}
	return m.mem.heap.Live(addr)
}

// VariadicValueAddr returns the address of the value payload within a
// variadic pair at ptr, skipping the 8-byte type-descriptor index (§6.2's
// `va_arg`, which hands Kano code a raw pointer to the argument rather than
// a copy of it).
func (m *Machine) VariadicValueAddr(ptr uint64) uint64 { return ptr + 8 }

// Fault lets a built-in raise the same trapped RuntimeError interpretation
// uses for invalid pointers, division by zero, etc. (§7 kind 4).
func (m *Machine) Fault(format string, args ...interface{}) {
	panic(&RuntimeError{Message: fmt.Sprintf(format, args...)})
}
