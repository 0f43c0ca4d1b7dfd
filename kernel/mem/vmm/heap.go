package vmm

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
)

// DefaultHeapPages is the number of pages the heap bootstraps with on its
// first sbrk call (original_source/kernel/src/task/user_heap.rs's
// DEFAULT_HEAP_PAGE_NUM).
const DefaultHeapPages = 5

// scratchVPN is the fixed virtual page used for the heap's signal-delivery
// scratch mapping, matching original_source's hard-coded 0xe0000 temp page.
const scratchVPN = mem.VirtAddr(0xe0000 << mem.PageShift)

// UserHeap is the growable brk-style heap (C5) described by spec.md §4.4. It
// holds its own MemSet so a heap-owning Process can clone or release it as
// a unit, and provides a single scratch page used by signal delivery to
// materialize a SignalUserContext visible to the user-space handler.
type UserHeap struct {
	Start        mem.VirtAddr
	BreakPointer mem.VirtAddr
	End          mem.VirtAddr

	set        MemSet
	scratchSet bool
}

// Sbrk implements spec.md §4.4's three-way branch:
//   - uninitialized: accept base as the heap's bottom, map DefaultHeapPages
//     pages with U|R|W|X, and return base.
//   - newTop <= End: move the break pointer without touching any mapping.
//   - newTop > End: grow by adding MemMaps, page-aligned, until End >= newTop.
//
// A failed growth attempt leaves the heap unchanged and returns
// kernel.ErrNoEnoughPage.
func (h *UserHeap) Sbrk(pt *PageTable, newTop mem.VirtAddr) (mem.VirtAddr, *kernel.Error) {
	if h.Start == 0 && h.End == 0 {
		base := newTop
		m, err := NewMemMap(base, DefaultHeapPages, FlagValid|FlagUser|FlagRead|FlagWrite|FlagExec)
		if err != nil {
			return 0, err
		}
		if err := m.Install(pt); err != nil {
			return 0, err
		}
		if err := h.set.Add(m); err != nil {
			return 0, err
		}
		h.Start = base
		h.BreakPointer = base
		h.End = base + mem.VirtAddr(DefaultHeapPages)*mem.VirtAddr(mem.PageSize)
		return base, nil
	}

	if newTop <= h.End {
		h.BreakPointer = newTop
		return newTop, nil
	}

	growVPN := h.End
	neededBytes := uint64(newTop - h.End)
	pageCount := uint32((neededBytes + uint64(mem.PageSize) - 1) >> mem.PageShift)

	m, err := NewMemMap(growVPN, pageCount, FlagValid|FlagUser|FlagRead|FlagWrite|FlagExec)
	if err != nil {
		return 0, kernel.ErrNoEnoughPage
	}
	if err := m.Install(pt); err != nil {
		m.Release()
		return 0, err
	}
	if err := h.set.Add(m); err != nil {
		m.Release()
		return 0, err
	}

	h.End += mem.VirtAddr(pageCount) * mem.VirtAddr(mem.PageSize)
	h.BreakPointer = newTop
	return newTop, nil
}

// GetTemp installs (on first use) and returns the heap's scratch page,
// mapped U|R|W|X at a fixed virtual page so signal delivery always finds it
// at the same address (spec.md §4.4, original_source's get_temp).
func (h *UserHeap) GetTemp(pt *PageTable) (mem.VirtAddr, *kernel.Error) {
	if !h.scratchSet {
		m, err := NewMemMap(scratchVPN, 1, FlagValid|FlagUser|FlagRead|FlagWrite|FlagExec)
		if err != nil {
			return 0, err
		}
		if err := m.Install(pt); err != nil {
			return 0, err
		}
		if err := h.set.Add(m); err != nil {
			return 0, err
		}
		h.scratchSet = true
	}
	return scratchVPN, nil
}

// FindScratch returns the scratch page's MemMap, letting the signal
// subsystem reach its backing frame directly (to read/write a
// SignalUserContext) without duplicating the heap's own bookkeeping.
func (h *UserHeap) FindScratch(vpn mem.VirtAddr) (MemMap, bool) {
	if !h.scratchSet || vpn != scratchVPN {
		return MemMap{}, false
	}
	return h.set.Find(scratchVPN)
}

// ReleaseTemp zeroes the scratch page's contents. Called once a signal
// handler returns via sigreturn so the next delivery starts from a clean
// SignalUserContext.
func (h *UserHeap) ReleaseTemp(pt *PageTable) *kernel.Error {
	if !h.scratchSet {
		return nil
	}
	m, ok := h.set.Find(scratchVPN)
	if !ok {
		return kernel.ErrNoMatchedAddr
	}
	MemsetByteFn(m.PPN.DirectMapped(), 0, mem.PageSize)
	return nil
}

// CloneWithData deep-clones the heap's MemSet (fresh physical pages, copied
// contents) for a forked child process.
func (h *UserHeap) CloneWithData() (UserHeap, *kernel.Error) {
	clonedSet, err := h.set.CloneWithData()
	if err != nil {
		return UserHeap{}, err
	}
	return UserHeap{
		Start:        h.Start,
		BreakPointer: h.BreakPointer,
		End:          h.End,
		set:          clonedSet,
		scratchSet:   h.scratchSet,
	}, nil
}

// InstallInto maps every page the heap has grown into into pt, used when
// a cloned heap (CLONE_VM off) needs its own page table populated from an
// already-built MemSet.
func (h *UserHeap) InstallInto(pt *PageTable) *kernel.Error {
	return h.set.InstallInto(pt)
}

// Release returns every page owned by the heap to the allocator.
func (h *UserHeap) Release() {
	h.set.Release()
}
