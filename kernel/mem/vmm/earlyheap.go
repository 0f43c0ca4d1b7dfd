package vmm

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
)

// KernelPageTable is the single page table backing supervisor-mode address
// space: the root the Go runtime's own allocator (kernel/goruntime) reserves
// and maps pages through before any Process exists. kmain installs it once
// pmm.Init has a working frame allocator.
var KernelPageTable *PageTable

// earlyHeapBase is the bottom of the virtual range the Go runtime allocator
// reserves from. It sits well above DirectMapBase so the two regions can
// never collide.
const earlyHeapBase = mem.VirtAddr(0xffff_ffe0_0000_0000)

var earlyHeapNext = earlyHeapBase

// KernelMapFlags are the flags ordinary kernel heap pages are mapped with:
// valid, readable, writable, and not user-accessible. Sv39 has no separate
// no-execute bit — a PTE is already non-executable unless X is set, so
// omitting FlagExec is the entire "NX" story on this target.
const KernelMapFlags = FlagValid | FlagRead | FlagWrite

// EarlyReserveRegion bumps the kernel heap's virtual watermark by size,
// rounded up to a page boundary, and returns the start of the reserved
// range. No physical frames are allocated or mapped; the caller (the Go
// runtime's sysReserve/sysAlloc hooks) is responsible for mapping the
// pages it actually touches.
func EarlyReserveRegion(size mem.Size) (uintptr, *kernel.Error) {
	aligned := mem.Size(mem.PageAlignUp(uintptr(size)))
	start := earlyHeapNext
	earlyHeapNext += mem.VirtAddr(aligned)
	return uintptr(start), nil
}

// MapRegion allocates one fresh physical frame per page in [base, base+size)
// and installs it in KernelPageTable with the given flags. There is no
// copy-on-write path here: spec.md §3's MemSet invariant rules out CoW
// entirely, so the Go runtime allocator's pages are always backed by real,
// eagerly allocated memory from the moment they are mapped.
func MapRegion(base uintptr, size mem.Size, flags PTEFlag) *kernel.Error {
	pageCount := size.Pages()
	for i := uint32(0); i < pageCount; i++ {
		frame, err := AllocFrameFn()
		if err != nil {
			return err
		}
		ZeroFrameFn(frame)
		va := mem.VirtAddr(base) + mem.VirtAddr(uint64(i)<<mem.PageShift)
		if err := KernelPageTable.Map(va, frame, flags); err != nil {
			return err
		}
	}
	return nil
}
