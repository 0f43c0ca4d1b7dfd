package syscall

import (
	"encoding/binary"

	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/signal"
	"github.com/yfblock/oskernel2022-byte-os/kernel/trap"
)

// sigActionSize is the on-the-wire byte size of a struct sigaction this
// core copies in/out: handler, sa_sigaction, mask, flags, restorer — five
// 8-byte fields, matching original_source/kernel/src/task/signal.rs's
// repr(C) SigAction layout.
const sigActionSize = 5 * 8

// sysSigaction implements rt_sigaction: reads the new action (if
// non-null), installs it, and writes the previous one back out (if
// requested).
func sysSigaction(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	n := uint(ctx.SyscallArg(0))
	newAddr := ctx.SyscallArg(1)
	oldAddr := ctx.SyscallArg(2)

	if n == 0 || n >= uint(proc.SigActionTableSize) {
		return 0, nil
	}

	if oldAddr != 0 {
		if err := CopyOut(&process.PageTable, oldAddr, encodeSigAction(process.SigActions[n])); err != nil {
			return 0, err
		}
	}
	if newAddr != 0 {
		buf := make([]byte, sigActionSize)
		if err := CopyIn(&process.PageTable, newAddr, buf); err != nil {
			return 0, err
		}
		process.SigActions[n] = decodeSigAction(buf)
	}
	return 0, nil
}

// sysSigprocmask implements rt_sigprocmask: how (0=BLOCK, 1=UNBLOCK,
// 2=SETMASK) combines *set into the task's blocking mask, old_set
// (if non-null) receives the mask beforehand.
func sysSigprocmask(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	const (
		sigBlock   = 0
		sigUnblock = 1
		sigSetmask = 2
	)
	how := ctx.SyscallArg(0)
	setAddr := ctx.SyscallArg(1)
	oldAddr := ctx.SyscallArg(2)

	if oldAddr != 0 {
		if err := CopyOut(&process.PageTable, oldAddr, encodeSigSet(task.SigMask)); err != nil {
			return 0, err
		}
	}
	if setAddr == 0 {
		return 0, nil
	}
	buf := make([]byte, 8)
	if err := CopyIn(&process.PageTable, setAddr, buf); err != nil {
		return 0, err
	}
	set := decodeSigSet(buf)
	switch how {
	case sigBlock:
		task.SigMask.Block(set)
	case sigUnblock:
		task.SigMask.Unblock(set)
	case sigSetmask:
		task.SigMask = set
	}
	return 0, nil
}

// sysSigtimedwait is not modeled (no pending-signal wait queue beyond
// the per-task bitmap this core already has); it reports "no signal
// pending" rather than ever blocking, matching the original's own
// commented-out stub for this call.
func sysSigtimedwait(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	return 0, nil
}

// sysSigreturnCall implements sigreturn: restores ctx from the scratch
// page and unwinds via ErrSigReturn, so Dispatch leaves the restored x10
// unwritten and kernel/trap/dispatch resumes the task with the restored
// context.
func sysSigreturnCall(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	if err := signal.SigReturn(process, ctx); err != nil {
		return 0, err
	}
	return 0, kernel.ErrSigReturn
}

// encodeSigAction/decodeSigAction serialize a proc.SigAction to/from the
// five-field byte layout user space expects (little-endian, RV64's
// native order).
func encodeSigAction(a proc.SigAction) []byte {
	buf := make([]byte, sigActionSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(a.Handler))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(a.SigAction))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(a.Mask))
	binary.LittleEndian.PutUint64(buf[24:32], a.Flags)
	binary.LittleEndian.PutUint64(buf[32:40], uint64(a.Restorer))
	return buf
}

func decodeSigAction(buf []byte) proc.SigAction {
	return proc.SigAction{
		Handler:   uintptr(binary.LittleEndian.Uint64(buf[0:8])),
		SigAction: uintptr(binary.LittleEndian.Uint64(buf[8:16])),
		Mask:      proc.SigSet(binary.LittleEndian.Uint64(buf[16:24])),
		Flags:     binary.LittleEndian.Uint64(buf[24:32]),
		Restorer:  uintptr(binary.LittleEndian.Uint64(buf[32:40])),
	}
}

func encodeSigSet(s proc.SigSet) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(s))
	return buf
}

func decodeSigSet(buf []byte) proc.SigSet {
	return proc.SigSet(binary.LittleEndian.Uint64(buf))
}
