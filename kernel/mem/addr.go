package mem

// PhysAddr is an opaque 64-bit physical memory address.
type PhysAddr uintptr

// Frame returns the physical page number for this address (address shifted
// right by PageShift).
func (a PhysAddr) Frame() uint64 {
	return uint64(a) >> PageShift
}

// Offset returns the low PageShift bits of the address (the byte offset
// within its containing page).
func (a PhysAddr) Offset() uintptr {
	return uintptr(a) & uintptr(PageSize-1)
}

// DirectMapped returns the kernel virtual address that always maps to this
// physical address via the 1:1 direct map (DirectMapBase).
func (a PhysAddr) DirectMapped() uintptr {
	return DirectMapBase + uintptr(a)
}

// VirtAddr is an opaque 64-bit virtual memory address, interpreted according
// to the Sv39 three-level layout: a 12-bit page offset followed by three
// 9-bit table indices L0 (innermost), L1, L2 (outermost).
type VirtAddr uintptr

// VPN returns the virtual page number for this address (address shifted
// right by PageShift).
func (a VirtAddr) VPN() uint64 {
	return uint64(a) >> PageShift
}

// Offset returns the byte offset within the page containing this address.
func (a VirtAddr) Offset() uintptr {
	return uintptr(a) & uintptr(PageSize-1)
}

// sv39Index extracts the 9-bit table index for the given page table level
// (0 = L0/innermost, 1 = L1, 2 = L2/outermost) from a virtual page number.
func sv39Index(vpn uint64, level uint) uint64 {
	return (vpn >> (level * Sv39IndexBits)) & (Sv39EntryCount - 1)
}

// L2 returns the top-level (root) table index.
func (a VirtAddr) L2() uint64 { return sv39Index(a.VPN(), 2) }

// L1 returns the middle-level table index.
func (a VirtAddr) L1() uint64 { return sv39Index(a.VPN(), 1) }

// L0 returns the leaf-level table index.
func (a VirtAddr) L0() uint64 { return sv39Index(a.VPN(), 0) }

// VirtAddrFromVPN reconstructs the page-aligned virtual address for a
// virtual page number.
func VirtAddrFromVPN(vpn uint64) VirtAddr {
	return VirtAddr(uintptr(vpn) << PageShift)
}

// PageAlignDown rounds an address down to the start of its containing page.
func PageAlignDown(addr uintptr) uintptr {
	return addr &^ (uintptr(PageSize) - 1)
}

// PageAlignUp rounds an address up to the start of the next page unless it
// is already page-aligned.
func PageAlignUp(addr uintptr) uintptr {
	return PageAlignDown(addr+uintptr(PageSize)-1)
}
