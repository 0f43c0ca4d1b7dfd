// Package boot turns a boot-queue command string into a schedulable
// process: the collaborator kmain's idle loop calls into once
// sched.Scheduler.Idle() reports nothing runnable and
// sched.BootQueue.Pop() has a command waiting.
//
// Grounded on original_source/kernel/src/task/task_queue.rs's
// exec_by_str/load_next_task: split the command on whitespace, hand
// args[0] plus the full argv to exec (here, the loader.Loader
// collaborator), and install the result in the scheduler.
package boot

import (
	"strings"

	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/vmm"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/syscall"
	"github.com/yfblock/oskernel2022-byte-os/kernel/trap"
)

// errEmptyCommand is returned when a boot-queue entry is empty or blank,
// mirroring task_queue.rs's load_next_task silently skipping a missing
// entry rather than spawning garbage.
var errEmptyCommand = &kernel.Error{Module: "boot", Message: "empty boot command"}

// defaultStackPages bounds how far below the image's requested stack top
// the guard range (spec.md §4.5's [STACK_LO, STACK_HI)) extends for a
// freshly spawned process. Chosen to match UserHeap.DefaultHeapPages'
// order of magnitude; the original has no equivalent constant to ground
// this on since its stack is the host thread's own.
const defaultStackPages = 64

// Spawn resolves command (a path followed by whitespace-separated argv,
// the same shape BootQueue stores) through k.Loader, builds a fresh
// Process/Task around the resulting Image, and installs it as runnable
// in k.Sched. The new process is given its own pid via k.Pids and its
// first task's tid via k.TIDs (sysClone's fork branch, by contrast,
// reuses the child's new pid as its tid).
func Spawn(k *syscall.Kernel, command string) *kernel.Error {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return errEmptyCommand
	}
	if k.Loader == nil {
		return kernel.ErrFileNotFound
	}

	path := fields[0]
	image, err := k.Loader.Load(path, fields, nil)
	if err != nil {
		return err
	}

	pt, err := vmm.NewPageTable()
	if err != nil {
		return err
	}

	process := &proc.Process{
		PageTable: pt,
		FDs:       proc.NewFDTable(),
	}

	if err := syscall.MapSegments(process, image); err != nil {
		process.PageTable.Destroy()
		return err
	}

	stackHi := mem.VirtAddr(mem.PageAlignUp(image.StackTop))
	stackLo := stackHi - mem.VirtAddr(defaultStackPages)*mem.VirtAddr(mem.PageSize)
	process.Stack = vmm.NewUserStack(stackLo, stackHi)

	k.Pids.Insert(process)
	process.AddTask()

	tid := k.TIDs.Next()
	task := &proc.Task{
		TID:   tid,
		PID:   process.PID,
		State: proc.Ready,
	}
	task.Context.Sepc = uint64(image.EntryPC)
	task.Context.X[trap.RegSP] = uint64(image.StackTop)

	k.Sched.Add(task, process)
	return nil
}
