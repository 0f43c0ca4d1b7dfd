// Package vmm implements the Sv39 page table (C3), the MemMap/MemSet address
// space layout (C4), and the per-process heap and stack (C5).
//
// Grounded on original_source/kernel/src/memory/page_table.rs (PTEFlags,
// PageTableEntry, PageMappingManager's direct physical-access walk) and, for
// package layout and mockable-fn testing idiom, the teacher's
// kernel/mem/vmm package.
package vmm

import "github.com/yfblock/oskernel2022-byte-os/kernel/mem/pmm"

// PTEFlag is a single bit in a PageTableEntry's low 8 flag bits.
type PTEFlag uint64

const (
	FlagValid    PTEFlag = 1 << 0 // V
	FlagRead     PTEFlag = 1 << 1 // R
	FlagWrite    PTEFlag = 1 << 2 // W
	FlagExec     PTEFlag = 1 << 3 // X
	FlagUser     PTEFlag = 1 << 4 // U
	FlagGlobal   PTEFlag = 1 << 5 // G
	FlagAccessed PTEFlag = 1 << 6 // A
	FlagDirty    PTEFlag = 1 << 7 // D

	flagMask = PTEFlag(0xff)

	// ppnShift is where the PPN field begins within a PTE word.
	ppnShift = 10
)

// PageTableEntry is a single 64-bit Sv39 page table slot: bits [10..54) hold
// the PPN, the low 8 bits hold the V/R/W/X/U/G/A/D flags.
type PageTableEntry uint64

// NewLeafEntry builds a leaf PTE pointing at frame with the given flags.
// flags must include FlagValid and at least one of Read/Write/Exec, or the
// resulting entry would be indistinguishable from an interior node.
func NewLeafEntry(frame pmm.Frame, flags PTEFlag) PageTableEntry {
	return PageTableEntry(uint64(frame)<<ppnShift | uint64(flags&flagMask))
}

// NewInteriorEntry builds an interior PTE pointing at the frame backing the
// next-level table. Only FlagValid is ever set on an interior entry.
func NewInteriorEntry(frame pmm.Frame) PageTableEntry {
	return PageTableEntry(uint64(frame)<<ppnShift | uint64(FlagValid))
}

// Flags returns the low 8 bits of the entry.
func (e PageTableEntry) Flags() PTEFlag {
	return PTEFlag(e) & flagMask
}

// Valid reports whether V is set.
func (e PageTableEntry) Valid() bool {
	return e.Flags()&FlagValid != 0
}

// Leaf reports whether this entry terminates the walk (any of R/W/X set).
// An entry with V set and R=W=X=0 is interior.
func (e PageTableEntry) Leaf() bool {
	return e.Flags()&(FlagRead|FlagWrite|FlagExec) != 0
}

// PPN returns the physical page number stored in the entry.
func (e PageTableEntry) PPN() pmm.Frame {
	return pmm.Frame(uint64(e) >> ppnShift)
}

// Zero reports whether the entry is the all-zero (unmapped, non-present)
// value.
func (e PageTableEntry) Zero() bool {
	return e == 0
}
