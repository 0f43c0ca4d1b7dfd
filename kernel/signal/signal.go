// Package signal implements per-task signal delivery (C10): rewriting a
// live trap.Context so the next return to user mode runs a handler
// instead of resuming where the trap happened, and restoring it again on
// sigreturn. Grounded on spec.md §4.8's five-step delivery procedure and
// original_source/kernel/src/task/signal.rs's SigAction/SigSet shapes
// (the bitmask types themselves live in kernel/proc/signal.go, alongside
// Process/Task since both own one).
package signal

import (
	"encoding/binary"
	"unsafe"

	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/vmm"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/trap"
)

// UserContext is the scratch-page record spec.md §4.8 step 3 describes:
// the embedded snapshot of the interrupted Context, with slot 0 doubling
// as both the resume PC and the re-entrancy guard ("if ucontext.x[0] != 0
// a handler is already active").
type UserContext struct {
	ResumePC uintptr
	Saved    trap.Context
}

// Deliver runs spec.md §4.8's five-step procedure for signal n against
// task/process, or returns false without touching anything if delivery
// does not apply (no handler installed, signal masked, or re-entrant).
//
// On success the live ctx has been rewritten to enter the handler; the
// caller (trap dispatch) resumes user mode with it unchanged afterwards.
func Deliver(task *proc.Task, process *proc.Process, ctx *trap.Context, n uint) (bool, *kernel.Error) {
	if n == 0 || n >= uint(proc.SigActionTableSize) {
		return false, nil
	}
	if task.SigMask.Has(n) {
		return false, nil
	}
	action := process.SigActions[n]
	if action.Handler == 0 {
		return false, nil
	}
	if !restorerIsEcall(&process.PageTable, action.Restorer) {
		return false, kernel.ErrNoMatchedAddr
	}

	scratchVA, err := process.Heap.GetTemp(&process.PageTable)
	if err != nil {
		return false, err
	}
	m, ok := process.Heap.FindScratch(scratchVA)
	if !ok {
		return false, kernel.ErrNoMatchedAddr
	}

	// Step 1: reentrancy guard.
	scratch := (*UserContext)(unsafe.Pointer(m.PPN.DirectMapped()))
	if scratch.ResumePC != 0 {
		return false, nil
	}

	// Step 2/3: snapshot the interrupted Context into the scratch page,
	// with slot 0 (ResumePC) holding the snapshot's sepc.
	snapshot := *ctx
	scratch.Saved = snapshot
	scratch.ResumePC = uintptr(snapshot.Sepc)

	// Step 4: rewrite the live Context to enter the handler.
	ctx.Sepc = uint64(action.Handler)
	ctx.X[trap.RegRA] = uint64(action.Restorer)
	ctx.X[trap.RegA0] = uint64(n)
	ctx.X[trap.RegA1] = 0
	ctx.X[trap.RegA2] = uint64(scratchVA)

	task.SigPending.Remove(n)
	return true, nil
}

// SigReturn implements the sigreturn syscall: restores ctx from the
// scratch page's saved snapshot and clears the re-entrancy guard so a
// later signal can be delivered again (spec.md §4.8's closing sentence).
func SigReturn(process *proc.Process, ctx *trap.Context) *kernel.Error {
	scratchVA, err := process.Heap.GetTemp(&process.PageTable)
	if err != nil {
		return err
	}
	m, ok := process.Heap.FindScratch(scratchVA)
	if !ok {
		return kernel.ErrNoMatchedAddr
	}

	scratch := (*UserContext)(unsafe.Pointer(m.PPN.DirectMapped()))
	*ctx = scratch.Saved
	scratch.ResumePC = 0
	return nil
}

// translateRestorerFn indirects through vmm.PageTable.Translate so tests
// can substitute a fake mapping (same mockable-fn-var idiom used by
// kernel/syscall's translatePageFn).
var translateRestorerFn = func(pt *vmm.PageTable, va mem.VirtAddr) (uintptr, *kernel.Error) {
	return pt.Translate(va)
}

// rawEcallEncoding is the fixed 32-bit RV64 encoding of a bare `ecall`
// (all fields zero except the ECALL/EBREAK major opcode 0x73 with
// funct12 0x000, the SYSTEM opcode with every other bit clear).
const rawEcallEncoding = 0x00000073

// restorerIsEcall reads the four bytes at the restorer's user virtual
// address and reports whether they are a bare `ecall`, the only
// instruction libc's sigreturn trampoline is allowed to hand back through
// (spec.md §4.8: the restorer re-enters the kernel via sigreturn, it does
// not run arbitrary handler epilogue). A SigAction whose Restorer was
// never set up this way, or that crosses a page boundary, is refused
// rather than blindly jumped to.
//
// Compares against the fixed encoding directly rather than through a
// disassembler: golang.org/x/arch, the pack's one disassembly candidate,
// ships x86/arm64/arm/ppc64 decoders but no riscv64 one, so there is
// nothing in the pack's dependency surface this single fixed-width
// comparison could delegate to (see DESIGN.md).
func restorerIsEcall(pt *vmm.PageTable, restorer uintptr) bool {
	if restorer == 0 || restorer%4 != 0 {
		return false
	}
	va := mem.VirtAddr(restorer)
	pageBase := mem.PageAlignDown(uintptr(va))
	pageOffset := uintptr(va) - pageBase
	if pageOffset+4 > uintptr(mem.PageSize) {
		return false
	}

	phys, err := translateRestorerFn(pt, mem.VirtAddr(pageBase))
	if err != nil {
		return false
	}

	var buf [4]byte
	memcopyFn(sliceAddr(buf[:]), phys+pageOffset, mem.Size(len(buf)))

	return binary.LittleEndian.Uint32(buf[:]) == rawEcallEncoding
}

var memcopyFn = mem.Memcopy

func sliceAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
