package vmm

import (
	"testing"

	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/pmm"
)

// fakeFrameSpace backs PageTable tests with ordinary Go-heap arrays instead
// of the direct physical map, which only exists once the real MMU is live.
// Each allocated frame gets its own zero-valued 512-entry array; frame
// numbers are assigned sequentially starting at 1 so that the zero Frame
// value is never confused with a real allocation.
type fakeFrameSpace struct {
	tables map[pmm.Frame]*[mem.Sv39EntryCount]PageTableEntry
	next   pmm.Frame
	freed  map[pmm.Frame]bool
}

func newFakeFrameSpace() *fakeFrameSpace {
	return &fakeFrameSpace{
		tables: make(map[pmm.Frame]*[mem.Sv39EntryCount]PageTableEntry),
		next:   1,
		freed:  make(map[pmm.Frame]bool),
	}
}

func (s *fakeFrameSpace) alloc() (pmm.Frame, *kernel.Error) {
	f := s.next
	s.next++
	s.tables[f] = &[mem.Sv39EntryCount]PageTableEntry{}
	return f, nil
}

func (s *fakeFrameSpace) free(f pmm.Frame) {
	s.freed[f] = true
	delete(s.tables, f)
}

func (s *fakeFrameSpace) ptr(f pmm.Frame) table {
	tbl, ok := s.tables[f]
	if !ok {
		panic("vmm test: dereference of a frame never allocated through the fake frame space")
	}
	return tbl
}

// withFakeFrameSpace installs a fake frame allocator/table-view pair for the
// duration of a test and returns a fresh root PageTable.
func withFakeFrameSpace(t *testing.T) (*fakeFrameSpace, PageTable) {
	t.Helper()
	space := newFakeFrameSpace()

	origAlloc, origFree, origPtr, origZero, origFlush := AllocFrameFn, FreeFrameFn, TablePtrFn, ZeroFrameFn, FlushTLBFn
	t.Cleanup(func() {
		AllocFrameFn, FreeFrameFn, TablePtrFn, ZeroFrameFn, FlushTLBFn = origAlloc, origFree, origPtr, origZero, origFlush
	})

	AllocFrameFn = space.alloc
	FreeFrameFn = space.free
	TablePtrFn = space.ptr
	ZeroFrameFn = func(pmm.Frame) {}
	FlushTLBFn = func(uintptr) {}

	root, err := NewPageTable()
	if err != nil {
		t.Fatalf("unexpected error creating root page table: %v", err)
	}
	return space, root
}

func TestMapThenTranslateRoundTrip(t *testing.T) {
	_, pt := withFakeFrameSpace(t)

	va := mem.VirtAddr(0x0000_0040_2010_3000)
	pa := pmm.Frame(0x555)

	if err := pt.Map(va, pa, FlagValid|FlagRead|FlagWrite); err != nil {
		t.Fatalf("unexpected error mapping: %v", err)
	}

	got, err := pt.Translate(va + 0x123)
	if err != nil {
		t.Fatalf("unexpected error translating: %v", err)
	}
	if exp := pa.Address() + 0x123; got != exp {
		t.Errorf("expected translate to return %#x; got %#x", exp, got)
	}
}

func TestMapOverwritesExistingLeaf(t *testing.T) {
	_, pt := withFakeFrameSpace(t)

	va := mem.VirtAddr(0x1000)
	if err := pt.Map(va, pmm.Frame(1000), FlagValid|FlagRead); err != nil {
		t.Fatalf("unexpected error on first map: %v", err)
	}
	if err := pt.Map(va, pmm.Frame(2000), FlagValid|FlagRead|FlagWrite); err != nil {
		t.Fatalf("unexpected error on second map: %v", err)
	}

	got, err := pt.Translate(va)
	if err != nil {
		t.Fatalf("unexpected error translating: %v", err)
	}
	if exp := pmm.Frame(2000).Address(); got != exp {
		t.Errorf("expected second map to win; expected %#x, got %#x", exp, got)
	}
}

func TestUnmapThenTranslateFails(t *testing.T) {
	_, pt := withFakeFrameSpace(t)

	va := mem.VirtAddr(0x2000)
	if err := pt.Map(va, pmm.Frame(7), FlagValid|FlagRead|FlagWrite); err != nil {
		t.Fatalf("unexpected error mapping: %v", err)
	}
	if err := pt.Unmap(va); err != nil {
		t.Fatalf("unexpected error unmapping: %v", err)
	}
	if _, err := pt.Translate(va); err != kernel.ErrNoMatchedAddr {
		t.Fatalf("expected ErrNoMatchedAddr after unmap; got %v", err)
	}
}

func TestTranslateUnmappedIsError(t *testing.T) {
	_, pt := withFakeFrameSpace(t)

	if _, err := pt.Translate(mem.VirtAddr(0xdead_b000)); err != kernel.ErrNoMatchedAddr {
		t.Fatalf("expected ErrNoMatchedAddr for an unmapped address; got %v", err)
	}
}

func TestUnmapUnmappedIsError(t *testing.T) {
	_, pt := withFakeFrameSpace(t)

	if err := pt.Unmap(mem.VirtAddr(0x3000)); err != kernel.ErrNoMatchedAddr {
		t.Fatalf("expected ErrNoMatchedAddr unmapping a never-mapped address; got %v", err)
	}
}

func TestMapDistinctPagesShareInteriorTables(t *testing.T) {
	space, pt := withFakeFrameSpace(t)

	// Same L2/L1 range, different L0 slot: two mappings 4 KiB apart.
	va1 := mem.VirtAddr(0x10_0000)
	va2 := va1 + mem.VirtAddr(mem.PageSize)

	if err := pt.Map(va1, pmm.Frame(10), FlagValid|FlagRead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pt.Map(va2, pmm.Frame(20), FlagValid|FlagRead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	framesAfterFirst := len(space.tables)
	if err := pt.Map(va2+mem.VirtAddr(mem.PageSize), pmm.Frame(30), FlagValid|FlagRead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(space.tables) != framesAfterFirst+0 {
		// Mapping a third page in the same L0 table must not allocate any
		// new interior tables.
		t.Errorf("expected no new frames allocated for a third leaf in the same L0 table; had %d, now %d", framesAfterFirst, len(space.tables))
	}

	got1, _ := pt.Translate(va1)
	got2, _ := pt.Translate(va2)
	if got1 == got2 {
		t.Errorf("expected distinct translations for distinct virtual pages")
	}
}

func TestDestroyFreesEveryFrame(t *testing.T) {
	space, pt := withFakeFrameSpace(t)

	if err := pt.Map(mem.VirtAddr(0x10_0000), pmm.Frame(1), FlagValid|FlagRead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pt.Map(mem.VirtAddr(0x40_0000_0000), pmm.Frame(2), FlagValid|FlagRead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	allocated := make([]pmm.Frame, 0, len(space.tables))
	for f := range space.tables {
		allocated = append(allocated, f)
	}

	pt.Destroy()

	for _, f := range allocated {
		if !space.freed[f] {
			t.Errorf("expected Destroy to free frame %d", f)
		}
	}
}
