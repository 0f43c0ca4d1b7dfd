package vmm

import (
	"testing"

	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
)

func TestMemSetRejectsOverlap(t *testing.T) {
	var set MemSet

	if err := set.Add(MemMap{VPN: mem.VirtAddr(0x1000), PageCount: 4}); err != nil {
		t.Fatalf("unexpected error on first Add: %v", err)
	}
	if err := set.Add(MemMap{VPN: mem.VirtAddr(0x1000) + mem.VirtAddr(2*mem.PageSize), PageCount: 2}); err != ErrOverlappingMemMap {
		t.Fatalf("expected ErrOverlappingMemMap for an overlapping range; got %v", err)
	}
	if err := set.Add(MemMap{VPN: mem.VirtAddr(0x1000) + mem.VirtAddr(4*mem.PageSize), PageCount: 2}); err != nil {
		t.Fatalf("unexpected error adding an adjacent, non-overlapping range: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 entries; got %d", set.Len())
	}
}

func TestMemSetFindAndRemove(t *testing.T) {
	withFakeContiguousAllocator(t)

	var set MemSet
	m, err := NewMemMap(mem.VirtAddr(0x4000_0000), 2, FlagValid|FlagRead|FlagWrite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := set.Add(m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := set.Find(m.VPN); !ok {
		t.Fatal("expected Find to locate the installed MemMap")
	}
	if _, ok := set.Find(m.VPN + mem.VirtAddr(100*mem.PageSize)); ok {
		t.Fatal("expected Find to miss an address far outside any MemMap")
	}

	set.Remove(m.VPN)
	if set.Len() != 0 {
		t.Fatalf("expected set to be empty after Remove; got %d entries", set.Len())
	}
}

func TestMemSetInstallIntoSatisfiesTranslateInvariant(t *testing.T) {
	withFakeContiguousAllocator(t)
	_, pt := withFakeFrameSpace(t)

	var set MemSet
	m1, err := NewMemMap(mem.VirtAddr(0x10_0000), 2, FlagValid|FlagUser|FlagRead|FlagWrite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m2, err := NewMemMap(mem.VirtAddr(0x40_0000_0000), 1, FlagValid|FlagUser|FlagRead|FlagExec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := set.Add(m1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := set.Add(m2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := set.InstallInto(&pt); err != nil {
		t.Fatalf("unexpected error installing: %v", err)
	}

	for _, m := range []MemMap{m1, m2} {
		got, err := pt.Translate(m.VPN)
		if err != nil {
			t.Fatalf("unexpected error translating %#x: %v", m.VPN, err)
		}
		if exp := m.PPN.Address(); got != exp {
			t.Errorf("expected translate(%#x) to return the MemMap's first physical page %#x; got %#x", m.VPN, exp, got)
		}
	}
}

func TestMemSetCloneWithDataProducesIndependentPages(t *testing.T) {
	_, copied := withFakeContiguousAllocator(t)

	var set MemSet
	m, err := NewMemMap(mem.VirtAddr(0x8000), 2, FlagValid|FlagRead|FlagWrite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := set.Add(m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clone, err := set.CloneWithData()
	if err != nil {
		t.Fatalf("unexpected error cloning: %v", err)
	}
	if clone.Len() != 1 {
		t.Fatalf("expected clone to carry 1 MemMap; got %d", clone.Len())
	}
	cloned, _ := clone.Find(m.VPN)
	if cloned.PPN == m.PPN {
		t.Fatal("expected clone to receive a fresh physical range, not share the original's")
	}
	if len(*copied) != 1 {
		t.Fatalf("expected exactly one memcopy call for the single MemMap; got %d", len(*copied))
	}
}
