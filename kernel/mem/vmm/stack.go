package vmm

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
)

// UserStack is the on-demand-growable user stack (C5, spec.md §4.5). Unlike
// the heap, no pages are mapped until the first store fault inside the
// guard range; this mirrors a real process's stack, which may never touch
// most of the range reserved for it.
type UserStack struct {
	Lo mem.VirtAddr // STACK_LO: lowest address the stack may ever grow to
	Hi mem.VirtAddr // STACK_HI: one past the stack's top, the initial user SP

	set MemSet
}

// NewUserStack returns a stack covering the guard range [lo, hi); no pages
// are installed yet.
func NewUserStack(lo, hi mem.VirtAddr) UserStack {
	return UserStack{Lo: lo, Hi: hi}
}

// errOutsideGuardRange marks a store fault outside [Lo, Hi) as fatal for the
// process, per spec.md §4.5.
var errOutsideGuardRange = &kernel.Error{Module: "vmm", Message: "store fault outside stack guard range"}

// InGuardRange reports whether vpn falls inside [Lo, Hi).
func (s *UserStack) InGuardRange(vpn mem.VirtAddr) bool {
	return vpn >= s.Lo && vpn < s.Hi
}

// HandleStoreFault services a StorePageFault/StoreFault at faultVPN: if it
// falls in [Lo, Hi) a single page is allocated and mapped U|R|W at the
// faulting page and the caller should retry the faulting instruction; a
// fault outside the guard range is fatal (spec.md §4.5, §8.3 — a fault at
// Lo grows the stack, one byte below Lo does not).
func (s *UserStack) HandleStoreFault(pt *PageTable, faultVPN mem.VirtAddr) *kernel.Error {
	if !s.InGuardRange(faultVPN) {
		return errOutsideGuardRange
	}

	pageVPN := mem.VirtAddr(mem.PageAlignDown(uintptr(faultVPN)))
	if _, ok := s.set.Find(pageVPN); ok {
		// Already mapped: a concurrent fault on the same page, or the
		// caller retried after another task raced it in. Nothing to do.
		return nil
	}

	m, err := NewMemMap(pageVPN, 1, FlagValid|FlagUser|FlagRead|FlagWrite)
	if err != nil {
		return err
	}
	if err := m.Install(pt); err != nil {
		m.Release()
		return err
	}
	return s.set.Add(m)
}

// CloneWithData deep-clones every page the stack has grown so far for a
// forked child; the unmapped portion of the guard range is left unmapped
// and will fault the child in lazily on first touch, same as the parent.
func (s *UserStack) CloneWithData() (UserStack, *kernel.Error) {
	clonedSet, err := s.set.CloneWithData()
	if err != nil {
		return UserStack{}, err
	}
	return UserStack{Lo: s.Lo, Hi: s.Hi, set: clonedSet}, nil
}

// InstallInto maps every page the stack has grown into into pt, used when
// a cloned stack (CLONE_VM off) needs its own page table populated from an
// already-built MemSet.
func (s *UserStack) InstallInto(pt *PageTable) *kernel.Error {
	return s.set.InstallInto(pt)
}

// Release returns every page the stack grew into back to the allocator.
func (s *UserStack) Release() {
	s.set.Release()
}
