package vmm

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
)

// MemSet is an ordered collection of MemMaps describing one address space
// (spec.md §3/§4.3). No two MemMaps in a set may cover the same virtual
// page; this is enforced by Add.
type MemSet struct {
	maps []MemMap
}

// ErrOverlappingMemMap is returned by Add when the new MemMap's virtual
// range intersects an existing entry.
var ErrOverlappingMemMap = &kernel.Error{Module: "vmm", Message: "overlapping MemMap in address space"}

// Add appends m to the set, rejecting it if its virtual range overlaps any
// existing MemMap (spec.md §3's no-overlapping-VPN invariant).
func (s *MemSet) Add(m MemMap) *kernel.Error {
	newLo := uint64(m.VPN) >> mem.PageShift
	newHi := newLo + uint64(m.PageCount)
	for _, existing := range s.maps {
		lo := uint64(existing.VPN) >> mem.PageShift
		hi := lo + uint64(existing.PageCount)
		if newLo < hi && lo < newHi {
			return ErrOverlappingMemMap
		}
	}
	s.maps = append(s.maps, m)
	return nil
}

// Remove drops the MemMap covering vpn, if any, releasing its pages. It
// does not touch any page table; callers must Unmap the affected range
// themselves first.
func (s *MemSet) Remove(vpn mem.VirtAddr) {
	for i, m := range s.maps {
		if m.Contains(vpn) {
			m.Release()
			s.maps = append(s.maps[:i], s.maps[i+1:]...)
			return
		}
	}
}

// Find returns the MemMap covering vpn, if any.
func (s *MemSet) Find(vpn mem.VirtAddr) (MemMap, bool) {
	for _, m := range s.maps {
		if m.Contains(vpn) {
			return m, true
		}
	}
	return MemMap{}, false
}

// InstallInto calls Install for every MemMap in the set (spec.md §4.3,
// MemSet::install_into). After InstallInto returns, Translate(vpn<<12)
// against pt must return each MemMap's first physical page.
func (s *MemSet) InstallInto(pt *PageTable) *kernel.Error {
	for _, m := range s.maps {
		if err := m.Install(pt); err != nil {
			return err
		}
	}
	return nil
}

// CloneWithData deep-clones every MemMap in the set, each receiving its own
// freshly allocated, content-copied physical range (spec.md §4.3,
// MemSet::clone_with_data — always an eager copy, never copy-on-write).
func (s *MemSet) CloneWithData() (MemSet, *kernel.Error) {
	clone := MemSet{maps: make([]MemMap, 0, len(s.maps))}
	for _, m := range s.maps {
		cloned, err := m.CloneWithData()
		if err != nil {
			// Unwind: release whatever the clone already allocated before
			// the failure so a partially cloned MemSet never leaks.
			for _, done := range clone.maps {
				done.Release()
			}
			return MemSet{}, err
		}
		clone.maps = append(clone.maps, cloned)
	}
	return clone, nil
}

// Release returns every MemMap's physical pages to the allocator and empties
// the set. Used when a Process's address space is torn down.
func (s *MemSet) Release() {
	for _, m := range s.maps {
		m.Release()
	}
	s.maps = nil
}

// Len reports how many MemMaps the set currently holds.
func (s *MemSet) Len() int {
	return len(s.maps)
}
