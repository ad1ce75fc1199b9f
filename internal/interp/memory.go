package interp

import (
	"fmt"

	"kano/internal/heap"
)

// Address space layout: the three byte buffers of spec §4.5 (stack, global,
// heap) are given disjoint virtual address ranges so a pointer value is
// meaningful regardless of which segment it was taken from — required for
// scenario 2 (pointer arithmetic across a stack array) and scenario 6 (a
// heap pointer flowing through the same *int type as a stack pointer).
const (
	globalBase = uint64(0)
	stackBase  = uint64(1) << 32
	// heap.Base, defined in internal/heap, starts at 1<<40: comfortably
	// clear of a stack region many times larger than the 4 MiB default.
)

// memory is the interpreter's three owned byte buffers (§3.5).
type memory struct {
	global []byte
	stack  []byte
	heap   *heap.Allocator
}

func newMemory(globalSize, stackSize uint64) *memory {
	return &memory{
		global: make([]byte, globalSize),
		stack:  make([]byte, stackSize),
		heap:   heap.New(),
	}
}

// Read returns size bytes at addr, panicking with a *RuntimeError (trapped
// by the caller, §7's "interpreter runtime errors are fatal to the current
// run") if addr doesn't fall inside any segment.
func (m *memory) Read(addr, size uint64) []byte {
	if addr < stackBase {
		return readSlice(m.global, "global", addr-globalBase, size)
	}
	if addr < heap.Base {
		return readSlice(m.stack, "stack", addr-stackBase, size)
	}
	b, err := m.heap.Read(addr, size)
	if err != nil {
		panic(&RuntimeError{Message: err.Error()})
	}
	return b
}

func (m *memory) Write(addr uint64, data []byte) {
	if addr < stackBase {
		writeSlice(m.global, "global", addr-globalBase, data)
		return
	}
	if addr < heap.Base {
		writeSlice(m.stack, "stack", addr-stackBase, data)
		return
	}
	if err := m.heap.Write(addr, data); err != nil {
		panic(&RuntimeError{Message: err.Error()})
	}
}

func readSlice(buf []byte, segment string, offset, size uint64) []byte {
	if offset+size > uint64(len(buf)) {
		panic(&RuntimeError{Message: fmt.Sprintf("%s segment read out of bounds at offset %d (size %d)", segment, offset, size)})
	}
	out := make([]byte, size)
	copy(out, buf[offset:offset+size])
	return out
}

func writeSlice(buf []byte, segment string, offset uint64, data []byte) {
	if offset+uint64(len(data)) > uint64(len(buf)) {
		panic(&RuntimeError{Message: fmt.Sprintf("%s segment write out of bounds at offset %d (size %d)", segment, offset, len(data))})
	}
	copy(buf[offset:], data)
}

// heapPointer reports whether addr lies in the heap's address range (at or
// above heap.Base); it does not check that addr is a live allocation.
func (m *memory) heapPointer(addr uint64) bool { return addr >= heap.Base }
