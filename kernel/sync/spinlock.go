// Package sync provides the single synchronization primitive (C11) used to
// guard the shared kernel singletons: the physical page allocator, the
// pid generator, the scheduler, and the boot task queue. The kernel
// page-table root (vmm.KernelPageTable) is not guarded by one.
package sync

import "github.com/yfblock/oskernel2022-byte-os/kernel/cpu"

var (
	// disableInterruptsFn/restoreInterruptsFn are mocked by tests and are
	// automatically inlined by the compiler when compiling the kernel.
	disableInterruptsFn = cpu.DisableInterrupts
	restoreInterruptsFn = cpu.RestoreInterrupts
)

// IRQLock is an interrupt-disabling spinlock. Unlike a conventional
// busy-wait spinlock, its job on a single-hart kernel is not contention but
// masking interrupts around a critical section: without it a timer
// interrupt landing mid-mutation of, say, the frame allocator's bitmap
// would re-enter the same lock from the scheduler's own bookkeeping and
// corrupt it.
//
// Acquire/Release calls do not nest: acquiring a held IRQLock from the same
// hart is a caller bug (a lock ordering violation per spec.md §4.9), not a
// deadlock recovery scenario.
type IRQLock struct {
	wasEnabled bool
	held       bool
}

// Acquire disables interrupts and marks the lock held, remembering whether
// interrupts were enabled so Release can restore the prior state exactly.
func (l *IRQLock) Acquire() {
	wasEnabled := disableInterruptsFn()
	l.wasEnabled = wasEnabled
	l.held = true
}

// Release restores the interrupt-enable state captured by Acquire. Calling
// Release while the lock is free has no effect.
func (l *IRQLock) Release() {
	if !l.held {
		return
	}
	l.held = false
	restoreInterruptsFn(l.wasEnabled)
}

// Held reports whether the lock is currently acquired. No kernel code
// calls it; spinlock_test.go uses it to check Acquire/Release.
func (l *IRQLock) Held() bool {
	return l.held
}
