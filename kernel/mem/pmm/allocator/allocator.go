// Package allocator implements the physical page allocator (C1): a bitmap
// over a contiguous physical range, with single and multi-page allocation.
//
// Grounded on the teacher's kernel/mem/pmm/allocator/bitmap_allocator.go
// (bitmap layout, first-fit scan, freeCount bookkeeping) collapsed from
// the teacher's multi-pool-per-multiboot-region design down to the single
// contiguous range spec.md §3/§4.1 describes, and on
// original_source/kernel/src/memory/page.rs's MemoryPageAllocator
// (alloc/alloc_more/dealloc/dealloc_more over one []bool-shaped range).
package allocator

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/kfmt/early"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/pmm"
	"github.com/yfblock/oskernel2022-byte-os/kernel/sync"
)

// BitmapAllocator implements the physical frame allocator (C1) described by
// spec.md §4.1: a start/end physical range and a bitmap of
// (end-start)/PageSize bits, one bit per frame, set iff the frame is handed
// out. Policy is first-fit; the bitmap is never coalesced because it is
// itself the single source of truth for what is free.
type BitmapAllocator struct {
	mu sync.IRQLock

	startFrame pmm.Frame
	frameCount uint32
	freeCount  uint32

	// bitmap holds one bit per frame; bit i corresponds to frame
	// startFrame+i. A set bit means the frame is allocated.
	bitmap []uint64
}

// Init configures the allocator to manage the frames in [start, end), a
// range of frame numbers that the caller (kmain) must ensure is reserved
// RAM the allocator owns exclusively. bitmapStorage must contain at least
// ((end-start) + 63) / 64 uint64 words of backing storage — callers
// typically carve this out of a small bootstrap region since the allocator
// cannot allocate its own bookkeeping memory from itself.
func (alloc *BitmapAllocator) Init(start, end pmm.Frame, bitmapStorage []uint64) {
	alloc.mu.Acquire()
	defer alloc.mu.Release()

	alloc.startFrame = start
	alloc.frameCount = uint32(end - start)
	alloc.freeCount = alloc.frameCount

	requiredWords := (alloc.frameCount + 63) >> 6
	alloc.bitmap = bitmapStorage[:requiredWords]
	for i := range alloc.bitmap {
		alloc.bitmap[i] = 0
	}

	early.Printf("[bitmap_alloc] managing %d frames starting at frame %d\n", alloc.frameCount, uint64(start))
}

// bit returns the (word, mask) pair addressing the bitmap bit for frame.
func (alloc *BitmapAllocator) bit(frame pmm.Frame) (int, uint64) {
	rel := uint32(frame - alloc.startFrame)
	return int(rel >> 6), uint64(1) << (rel & 63)
}

func (alloc *BitmapAllocator) inRange(frame pmm.Frame) bool {
	return frame >= alloc.startFrame && uint32(frame-alloc.startFrame) < alloc.frameCount
}

// Alloc returns the lowest clear bit, setting it, or ErrNoEnoughPage if the
// bitmap is full.
func (alloc *BitmapAllocator) Alloc() (pmm.Frame, *kernel.Error) {
	alloc.mu.Acquire()
	defer alloc.mu.Release()

	for word := 0; word < len(alloc.bitmap); word++ {
		if alloc.bitmap[word] == ^uint64(0) {
			continue
		}
		for bitIndex := 0; bitIndex < 64; bitIndex++ {
			mask := uint64(1) << uint(bitIndex)
			if alloc.bitmap[word]&mask == 0 {
				rel := uint32(word*64 + bitIndex)
				if rel >= alloc.frameCount {
					return pmm.InvalidFrame, kernel.ErrNoEnoughPage
				}
				alloc.bitmap[word] |= mask
				alloc.freeCount--
				return alloc.startFrame + pmm.Frame(rel), nil
			}
		}
	}
	return pmm.InvalidFrame, kernel.ErrNoEnoughPage
}

// AllocContiguous scans for the first run of n consecutive clear bits
// starting at the lowest index and sets them all, returning the first frame
// of the run.
func (alloc *BitmapAllocator) AllocContiguous(n uint32) (pmm.Frame, *kernel.Error) {
	if n == 0 {
		return pmm.InvalidFrame, kernel.ErrNoEnoughPage
	}

	alloc.mu.Acquire()
	defer alloc.mu.Release()

	if alloc.freeCount < n {
		return pmm.InvalidFrame, kernel.ErrNoEnoughPage
	}

	runStart, runLen := uint32(0), uint32(0)
	for rel := uint32(0); rel < alloc.frameCount; rel++ {
		if alloc.bitIsSetRel(rel) {
			runLen = 0
			continue
		}
		if runLen == 0 {
			runStart = rel
		}
		runLen++
		if runLen == n {
			for i := uint32(0); i < n; i++ {
				alloc.setBitRel(runStart+i, true)
			}
			alloc.freeCount -= n
			return alloc.startFrame + pmm.Frame(runStart), nil
		}
	}
	return pmm.InvalidFrame, kernel.ErrNoEnoughPage
}

func (alloc *BitmapAllocator) bitIsSetRel(rel uint32) bool {
	word, bit := rel>>6, uint64(1)<<(rel&63)
	return alloc.bitmap[word]&bit != 0
}

func (alloc *BitmapAllocator) setBitRel(rel uint32, set bool) {
	word, bit := rel>>6, uint64(1)<<(rel&63)
	if set {
		alloc.bitmap[word] |= bit
	} else {
		alloc.bitmap[word] &^= bit
	}
}

// Free clears the bitmap entry for frame. Freeing a frame outside the
// managed range is a no-op; freeing a never-allocated frame is a caller bug
// (the spec leaves it fatal in debug builds — here it is surfaced as a
// panic since there is no recoverable action to take).
func (alloc *BitmapAllocator) Free(frame pmm.Frame) {
	alloc.mu.Acquire()
	defer alloc.mu.Release()
	alloc.free(frame)
}

func (alloc *BitmapAllocator) free(frame pmm.Frame) {
	if !alloc.inRange(frame) {
		return
	}
	word, mask := alloc.bit(frame)
	if alloc.bitmap[word]&mask == 0 {
		kernel.Panic(&kernel.Error{Module: "bitmap_alloc", Message: "double free or free of unallocated frame"})
		return
	}
	alloc.bitmap[word] &^= mask
	alloc.freeCount++
}

// FreeContiguous clears the bitmap entries for [frame, frame+n).
func (alloc *BitmapAllocator) FreeContiguous(frame pmm.Frame, n uint32) {
	alloc.mu.Acquire()
	defer alloc.mu.Release()
	for i := uint32(0); i < n; i++ {
		alloc.free(frame + pmm.Frame(i))
	}
}

// FreeFrames returns the number of currently unallocated frames.
func (alloc *BitmapAllocator) FreeFrames() uint32 {
	alloc.mu.Acquire()
	defer alloc.mu.Release()
	return alloc.freeCount
}

// TotalFrames returns the number of frames under management.
func (alloc *BitmapAllocator) TotalFrames() uint32 {
	return alloc.frameCount
}

// Default is the primary system-wide frame allocator instance, guarded by
// its own IRQLock. Bootstrapping calls Init once the kernel image's extent
// and the machine's available memory range are known.
var Default BitmapAllocator

// RequiredBitmapWords returns how many uint64 words of backing storage an
// allocator managing frameCount frames needs for its bitmap.
func RequiredBitmapWords(frameCount uint32) uint32 {
	return (frameCount + 63) >> 6
}
