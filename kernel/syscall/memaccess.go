package syscall

import (
	"unsafe"

	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/vmm"
)

var memcopyFn = mem.Memcopy

// translatePageFn indirects through vmm.PageTable.Translate so tests can
// substitute a fake mapping without a real page table / physical memory
// (same mockable-fn-var idiom as kernel/mem/vmm's TablePtrFn).
var translatePageFn = func(pt *vmm.PageTable, va mem.VirtAddr) (uintptr, *kernel.Error) {
	return pt.Translate(va)
}

// CopyIn reads len(buf) bytes starting at the user virtual address uaddr
// into buf, translating through pt page by page (spec.md §6.2: "All
// arguments that are user pointers are translated through the current
// process's page table before the kernel dereferences them; failure to
// translate returns -EFAULT").
func CopyIn(pt *vmm.PageTable, uaddr uint64, buf []byte) *kernel.Error {
	return forEachUserPage(pt, uaddr, buf, func(phys uintptr, run []byte) {
		memcopyFn(phys, sliceAddr(run), mem.Size(len(run)))
	})
}

// CopyOut writes buf to the user virtual address uaddr, translating
// through pt page by page.
func CopyOut(pt *vmm.PageTable, uaddr uint64, buf []byte) *kernel.Error {
	return forEachUserPage(pt, uaddr, buf, func(phys uintptr, run []byte) {
		memcopyFn(sliceAddr(run), phys, mem.Size(len(run)))
	})
}

// forEachUserPage splits buf's span [uaddr, uaddr+len(buf)) into
// page-aligned runs, translating each run's page through pt, and invokes
// fn once per run with the run's physical address and the corresponding
// sub-slice of buf.
func forEachUserPage(pt *vmm.PageTable, uaddr uint64, buf []byte, fn func(phys uintptr, run []byte)) *kernel.Error {
	remaining := len(buf)
	off := 0
	for remaining > 0 {
		va := mem.VirtAddr(uaddr) + mem.VirtAddr(off)
		pageBase := mem.PageAlignDown(uintptr(va))
		pageOffset := uintptr(va) - pageBase
		runLen := int(uintptr(mem.PageSize) - pageOffset)
		if runLen > remaining {
			runLen = remaining
		}

		phys, err := translatePageFn(pt, mem.VirtAddr(pageBase))
		if err != nil {
			return err
		}
		fn(phys+pageOffset, buf[off:off+runLen])

		off += runLen
		remaining -= runLen
	}
	return nil
}

func sliceAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
