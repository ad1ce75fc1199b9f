package heap

import "testing"

func TestAllocateZeroesPayload(t *testing.T) {
	h := New()
	addr := h.Allocate(16)
	data, err := h.Read(addr, 16)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %d", i, b)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	h := New()
	addr := h.Allocate(8)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := h.Write(addr, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := h.Read(addr, 8)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestContainsAndLiveAfterFree(t *testing.T) {
	h := New()
	addr := h.Allocate(8)
	if !h.Contains(addr) {
		t.Fatal("Contains should be true for a fresh allocation")
	}
	if !h.Live(addr) {
		t.Fatal("Live should be true for a fresh allocation")
	}
	if err := h.Free(addr); err != nil {
		t.Fatalf("Free: %v", err)
	}
	// §8 heap safety: still inside a backing region, but no longer live.
	if !h.Contains(addr) {
		t.Fatal("Contains should remain true after free (still inside a region)")
	}
	if h.Live(addr) {
		t.Fatal("Live should be false after free")
	}
}

func TestDoubleFreeReturnsError(t *testing.T) {
	h := New()
	addr := h.Allocate(8)
	if err := h.Free(addr); err != nil {
		t.Fatalf("first Free: %v", err)
	}
	if err := h.Free(addr); err == nil {
		t.Fatal("expected an error freeing an already-freed pointer")
	}
}

func TestAllocateGrowsAcrossRegions(t *testing.T) {
	h := New()
	addrs := make(map[uint64]bool)
	// Exceed the initial 1 MiB region with many mid-size allocations so the
	// allocator must request additional backing regions.
	for i := 0; i < 4000; i++ {
		addr := h.Allocate(512)
		if addrs[addr] {
			t.Fatalf("duplicate address %#x returned while a prior block is still live", addr)
		}
		addrs[addr] = true
	}
	if len(h.regions) < 2 {
		t.Fatalf("expected allocator to have grown past one region, got %d", len(h.regions))
	}
}

func TestInvalidPointerIsNotContained(t *testing.T) {
	h := New()
	h.Allocate(8)
	if h.Contains(0xdeadbeef) {
		t.Fatal("an address never handed out by Allocate should not be contained")
	}
}

func TestSplitReusesRemainder(t *testing.T) {
	h := New()
	big := h.Allocate(512)
	if err := h.Free(big); err != nil {
		t.Fatalf("Free: %v", err)
	}
	small := h.Allocate(16)
	if !h.Contains(small) {
		t.Fatal("split remainder should still be a valid heap address")
	}
}
