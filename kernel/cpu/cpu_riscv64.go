// Package cpu declares the hart intrinsics the rest of the kernel needs.
// Their bodies live in the boot assembly (out of scope for this core, see
// spec.md §1); only the Go-visible signatures live here, matching the
// teacher's bodyless-function convention for arch-specific primitives.
package cpu

// EnableInterrupts sets sstatus.SIE, allowing supervisor-mode interrupts
// (principally the timer) to be taken again.
func EnableInterrupts()

// DisableInterrupts clears sstatus.SIE. Returns the previous state of the
// bit so callers can restore it rather than unconditionally re-enabling.
func DisableInterrupts() bool

// RestoreInterrupts sets sstatus.SIE back to the state returned by an
// earlier DisableInterrupts call.
func RestoreInterrupts(wasEnabled bool)

// Halt parks the hart (wfi) until the next interrupt.
func Halt()

// FlushTLBEntry flushes a single TLB entry for a particular virtual address
// (sfence.vma with an rs1 operand).
func FlushTLBEntry(virtAddr uintptr)

// SwitchSATP writes satp with Sv39 paging mode and the supplied root frame
// physical address, then flushes the entire TLB (sfence.vma with no
// operands).
func SwitchSATP(rootFrameAddr uintptr)

// ActiveSATP returns the physical address of the page table root currently
// installed in satp.
func ActiveSATP() uintptr

// ReadTime returns the value of the time CSR, the free-running mtime-backed
// counter used to schedule timer interrupts and service clock_gettime.
func ReadTime() uint64

// InstallTrapVector writes the trap trampoline's address into stvec
// (direct mode) so a subsequent ecall/exception/interrupt lands there
// instead of wherever the firmware left stvec pointed at boot. The
// trampoline itself — saving/restoring a trap.Context and calling into
// kernel/trap/dispatch.Handle — is assembly, out of scope for this core
// (spec.md §1); this intrinsic only points the hart at it.
func InstallTrapVector()

// SBICall issues an `ecall` into machine mode with the legacy SBI calling
// convention (which in a7, arg0/arg1/arg2 in a0/a1/a2, return value in a0).
// kernel/console builds every firmware-backed console/power operation on
// top of this one primitive rather than hand-rolling a separate asm stub
// per SBI extension.
func SBICall(which, arg0, arg1, arg2 uintptr) uintptr
