package vmm

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/pmm"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/pmm/allocator"
)

// AllocContiguousFn and FreeContiguousFn back MemMap's own frame lifecycle;
// kept as separate indirections from PageTable's so tests can swap one
// without disturbing the other. Exported for the same cross-package
// testing reason as PageTable's AllocFrameFn/FreeFrameFn.
var (
	AllocContiguousFn = allocator.Default.AllocContiguous
	FreeContiguousFn  = allocator.Default.FreeContiguous
	MemcopyFn         = mem.Memcopy
	MemsetByteFn      = mem.Memset
)

// MemMap is a contiguous virt-range -> phys-range binding with uniform
// flags (C4). It owns the physical pages in [PPN, PPN+PageCount) for as
// long as it is live: they are returned to the allocator exactly once, when
// its owning MemSet drops (spec.md §3).
type MemMap struct {
	PPN       pmm.Frame
	VPN       mem.VirtAddr
	PageCount uint32
	Flags     PTEFlag
}

// NewMemMap allocates PageCount contiguous physical pages, zeroes them, and
// returns the record describing the binding to [vpn, vpn+pageCount) (spec.md
// §4.3, MemMap::new).
func NewMemMap(vpn mem.VirtAddr, pageCount uint32, flags PTEFlag) (MemMap, *kernel.Error) {
	ppn, err := AllocContiguousFn(pageCount)
	if err != nil {
		return MemMap{}, err
	}
	for i := uint32(0); i < pageCount; i++ {
		MemsetByteFn((ppn+pmm.Frame(i)).DirectMapped(), 0, mem.PageSize)
	}
	return MemMap{PPN: ppn, VPN: vpn, PageCount: pageCount, Flags: flags}, nil
}

// CloneWithData allocates a fresh, equally sized run of physical pages and
// copies this MemMap's contents into it byte-for-byte (spec.md §4.3,
// MemMap::clone_with_data — an eager copy, never copy-on-write per the
// MemSet invariant in spec.md §3).
func (m MemMap) CloneWithData() (MemMap, *kernel.Error) {
	newPPN, err := AllocContiguousFn(m.PageCount)
	if err != nil {
		return MemMap{}, err
	}
	MemcopyFn(m.PPN.DirectMapped(), newPPN.DirectMapped(), mem.Size(m.PageCount)*mem.PageSize)
	return MemMap{PPN: newPPN, VPN: m.VPN, PageCount: m.PageCount, Flags: m.Flags}, nil
}

// Release returns every physical page this MemMap owns to the allocator.
// Callers must ensure the owning page table has already been unmapped or
// torn down; Release never touches page-table state itself.
func (m MemMap) Release() {
	FreeContiguousFn(m.PPN, m.PageCount)
}

// Install writes a page-table leaf for every page in this MemMap (spec.md
// §4.3, the per-MemMap half of MemSet::install_into).
func (m MemMap) Install(pt *PageTable) *kernel.Error {
	for i := uint32(0); i < m.PageCount; i++ {
		va := m.VPN + mem.VirtAddr(uint64(i)<<mem.PageShift)
		if err := pt.Map(va, m.PPN+pmm.Frame(i), m.Flags); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether vpn falls inside this MemMap's virtual range.
func (m MemMap) Contains(vpn mem.VirtAddr) bool {
	lo := uint64(m.VPN) >> mem.PageShift
	hi := lo + uint64(m.PageCount)
	probe := uint64(vpn) >> mem.PageShift
	return probe >= lo && probe < hi
}
