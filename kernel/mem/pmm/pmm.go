package pmm

import (
	"unsafe"

	"github.com/yfblock/oskernel2022-byte-os/kernel/kfmt/early"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/pmm/allocator"
)

// ptrFromFrame returns an unsafe.Pointer to a frame's direct-mapped address,
// used only to bootstrap the allocator's own bitmap storage before the
// allocator exists to hand out pages for it.
func ptrFromFrame(f Frame) unsafe.Pointer {
	return unsafe.Pointer(f.DirectMapped())
}

// Init bootstraps the system-wide physical page allocator (allocator.Default).
//
// kernelEnd is the first physical address past the kernel image (the `end`
// linker symbol in original_source/kernel/src/memory/page.rs's init()).
// memEnd is the first physical address past the machine's usable RAM range.
// Both are supplied by the boot collaborator; parsing a machine-specific
// memory map format (multiboot, a device tree blob, ...) is out of scope
// for this core (spec.md §1).
//
// The allocator's own bookkeeping bitmap is carved out of the managed range
// itself, immediately following the kernel image, and is reserved before
// Init returns so it is never handed back out by Alloc.
func Init(kernelEnd, memEnd uintptr) {
	rangeStart := FrameFromAddress(mem.PageAlignUp(kernelEnd))
	rangeEnd := FrameFromAddress(mem.PageAlignDown(memEnd))
	frameCount := uint32(rangeEnd - rangeStart)

	bitmapWords := allocator.RequiredBitmapWords(frameCount)
	bitmapBytes := mem.Size(bitmapWords) * 8
	bitmapFrames := bitmapBytes.Pages()

	storage := (*[1 << 30]uint64)(ptrFromFrame(rangeStart))[:bitmapWords:bitmapWords]

	allocator.Default.Init(rangeStart+Frame(bitmapFrames), rangeEnd, storage)

	early.Printf("[pmm] frame range [%d, %d): %d frames, %d reserved for the free bitmap\n",
		uint64(rangeStart), uint64(rangeEnd), frameCount, bitmapFrames)
}
