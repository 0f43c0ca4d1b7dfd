// Package pmm contains code that manages physical memory frame allocations.
package pmm

import (
	"math"

	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
)

// Frame describes a physical memory page index.
type Frame uint64

const (
	// InvalidFrame is returned by page allocators when
	// they fail to reserve the requested frame.
	InvalidFrame = Frame(math.MaxUint64)
)

// IsValid returns true if this is a valid frame.
func (f Frame) IsValid() bool {
	return f != InvalidFrame
}

// Address returns the physical memory address pointed to by this Frame.
func (f Frame) Address() uintptr {
	return uintptr(f << mem.PageShift)
}

// DirectMapped returns the kernel virtual address at which this frame is
// always accessible via the direct physical map.
func (f Frame) DirectMapped() uintptr {
	return mem.DirectMapBase + f.Address()
}

// FrameFromAddress returns the Frame containing the given physical address,
// rounding down to the page that contains it.
func FrameFromAddress(physAddr uintptr) Frame {
	return Frame(physAddr >> mem.PageShift)
}
