package vmm

import (
	"unsafe"

	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/cpu"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/pmm"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/pmm/allocator"
)

// AllocFrameFn and FreeFrameFn are indirections over the system frame
// allocator so tests — in this package and others, such as
// kernel/syscall's clone tests — can run against a fake, fixed-size pool
// instead of the real allocator.Default singleton, which needs a live
// direct physical map no test process has. Exported rather than
// package-private for the same reason kernel/sched.Scheduler.SwitchSATP
// is a field: external packages need the seam too.
var (
	AllocFrameFn = allocator.Default.Alloc
	FreeFrameFn  = allocator.Default.Free
	FlushTLBFn   = cpu.FlushTLBEntry

	// TablePtrFn resolves a frame to the 512-entry table view stored in
	// it. Tests override this (together with AllocFrameFn/FreeFrameFn) to
	// run the walk against ordinary Go-heap-backed arrays instead of the
	// direct physical map, which only exists once the real MMU is live.
	TablePtrFn = tableAt

	// ZeroFrameFn clears a freshly allocated table frame. Tests override
	// this to a no-op since their fake frames are Go-zero-valued arrays
	// already.
	ZeroFrameFn = func(f pmm.Frame) { mem.Memset(f.DirectMapped(), 0, mem.PageSize) }
)

// table is a view of one page-table node's 512 entries, addressed through
// the kernel's direct physical map.
type table = *[mem.Sv39EntryCount]PageTableEntry

// PageTable is a Sv39 three-level page table (C3), rooted at a single
// physical frame allocated from the system frame allocator.
//
// Grounded on original_source/kernel/src/memory/page_table.rs's
// PageMappingManager: every level is dereferenced through the direct
// physical map (mem.DirectMapBase+frame.Address()) rather than the
// teacher's x86 recursive self-mapping trick — see DESIGN.md's Open
// Question resolutions for why the two targets can't share that design.
type PageTable struct {
	Root pmm.Frame
}

// tableAt returns the 512-entry view of the table node stored in frame.
func tableAt(frame pmm.Frame) table {
	return (table)(unsafe.Pointer(frame.DirectMapped()))
}

// NewPageTable allocates and zeroes a fresh root table.
func NewPageTable() (PageTable, *kernel.Error) {
	root, err := AllocFrameFn()
	if err != nil {
		return PageTable{}, err
	}
	ZeroFrameFn(root)
	return PageTable{Root: root}, nil
}

// indexForLevel returns the table index a virtual address selects at the
// given level (2 = root/L2, 1 = L1, 0 = L0/leaf).
func indexForLevel(va mem.VirtAddr, level uint) uint64 {
	switch level {
	case 2:
		return va.L2()
	case 1:
		return va.L1()
	default:
		return va.L0()
	}
}

// levelSpan returns the number of low address bits a leaf at level covers
// (12 for a 4 KiB L0 leaf, 21 for a 2 MiB L1 leaf, 30 for a 1 GiB L2 leaf).
func levelSpan(level uint) uint {
	return mem.PageShift + uint(mem.Sv39IndexBits)*level
}

// Map walks L2->L1->L0, creating zeroed interior tables on demand, and
// writes a leaf PTE at L0 for pa with the given flags. A map over an
// existing leaf overwrites it (spec.md §4.2).
//
// flags must include FlagValid and at least one of Read/Write/Exec —
// passing an all-interior flag set here would produce an entry
// indistinguishable from an interior node.
func (pt *PageTable) Map(va mem.VirtAddr, pa pmm.Frame, flags PTEFlag) *kernel.Error {
	cur := pt.Root
	for level := uint(2); level > 0; level-- {
		tbl := TablePtrFn(cur)
		idx := indexForLevel(va, level)
		entry := tbl[idx]

		if !entry.Valid() {
			childFrame, err := AllocFrameFn()
			if err != nil {
				return err
			}
			ZeroFrameFn(childFrame)
			tbl[idx] = NewInteriorEntry(childFrame)
			cur = childFrame
			continue
		}
		if entry.Leaf() {
			// A higher-level huge-page leaf already occupies this span;
			// map() only ever creates 4 KiB leaves so this would be a
			// caller error mixing huge and small mappings at the same VA.
			return kernel.ErrNoMatchedAddr
		}
		cur = entry.PPN()
	}

	tbl := TablePtrFn(cur)
	tbl[va.L0()] = NewLeafEntry(pa, flags)
	FlushTLBFn(uintptr(va))
	return nil
}

// Unmap overwrites the L0 leaf for va with the zero value. Interior tables
// created along the way are left in place: an empty interior table is a
// small, bounded leak that is acceptable under this design (spec.md §4.2).
func (pt *PageTable) Unmap(va mem.VirtAddr) *kernel.Error {
	cur := pt.Root
	for level := uint(2); level > 0; level-- {
		tbl := TablePtrFn(cur)
		entry := tbl[indexForLevel(va, level)]
		if !entry.Valid() || entry.Leaf() {
			return kernel.ErrNoMatchedAddr
		}
		cur = entry.PPN()
	}

	tbl := TablePtrFn(cur)
	idx := va.L0()
	if !tbl[idx].Valid() {
		return kernel.ErrNoMatchedAddr
	}
	tbl[idx] = PageTableEntry(0)
	FlushTLBFn(uintptr(va))
	return nil
}

// Translate walks the table for va and returns the physical address it
// resolves to. A leaf may be found at L0 (4 KiB), L1 (2 MiB) or L2 (1 GiB);
// only Map ever creates 4 KiB leaves, but a leaf at any level satisfies a
// read per spec.md §4.2.
func (pt *PageTable) Translate(va mem.VirtAddr) (uintptr, *kernel.Error) {
	cur := pt.Root
	for level := uint(2); level > 0; level-- {
		tbl := TablePtrFn(cur)
		entry := tbl[indexForLevel(va, level)]
		if !entry.Valid() {
			return 0, kernel.ErrNoMatchedAddr
		}
		if entry.Leaf() {
			span := levelSpan(level)
			lowMask := uintptr(1)<<span - 1
			return entry.PPN().Address()&^lowMask | (uintptr(va) & lowMask), nil
		}
		cur = entry.PPN()
	}

	tbl := TablePtrFn(cur)
	entry := tbl[va.L0()]
	if !entry.Valid() || !entry.Leaf() {
		return 0, kernel.ErrNoMatchedAddr
	}
	return entry.PPN().Address() | va.Offset(), nil
}

// Destroy releases every page-table frame reachable from the root (the
// root itself, the interior tables and the last-level tables) back to the
// frame allocator. The data frames that leaf entries point at are not
// freed here; they belong to the MemMaps that mapped them.
func (pt *PageTable) Destroy() {
	pt.destroyLevel(pt.Root, 2)
	pt.Root = pmm.InvalidFrame
}

func (pt *PageTable) destroyLevel(frame pmm.Frame, level uint) {
	if level > 0 {
		tbl := TablePtrFn(frame)
		for _, entry := range tbl {
			if entry.Valid() && !entry.Leaf() {
				pt.destroyLevel(entry.PPN(), level-1)
			}
		}
	}
	FreeFrameFn(frame)
}
