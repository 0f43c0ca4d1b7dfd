package proc

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel/fs"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/vmm"
)

// ExitStatus encodes a reaped child's wait4 status word: (code&0xff)<<8
// for a normal exit, or the killing signal number in the low byte (spec.md
// §7's "User-visible failure" wording).
type ExitStatus struct {
	Exited   bool
	Code     int32
	Signal   uint32
	HasState bool
}

// Encode returns the wait4 status word for this ExitStatus.
func (e ExitStatus) Encode() uint32 {
	if e.Exited {
		return (uint32(e.Code) & 0xff) << 8
	}
	return e.Signal & 0xff
}

// Process owns the address space, fd table, signal state, and children of
// a thread group (spec.md §3). Parent-child is a weak back-reference: only
// pids are stored, looked up on demand through the owning PidTable, so the
// relation can never form an ownership cycle (spec.md §9).
type Process struct {
	PID       int
	ParentPID int

	PageTable vmm.PageTable
	MemSet    vmm.MemSet
	Heap      vmm.UserHeap
	Stack     vmm.UserStack

	FDs        FDTable
	CWD        fs.Inode
	CWDPath    string
	Filesystem fs.Filesystem

	Children   []int
	ExitStatus ExitStatus

	SigActions [SigActionTableSize]SigAction

	TLSBase uintptr

	// taskCount tracks how many live Tasks share this Process's thread
	// group; the process becomes reapable once it reaches zero.
	taskCount int
}

// AddChild records childPID as one of this process's children.
func (p *Process) AddChild(childPID int) {
	p.Children = append(p.Children, childPID)
}

// RemoveChild drops childPID from the children list (used once a parent
// reaps it via wait4).
func (p *Process) RemoveChild(childPID int) {
	for i, pid := range p.Children {
		if pid == childPID {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			return
		}
	}
}

// Reapable reports whether every task in this process's thread group has
// exited, meaning the parent may now observe it via wait4 and the arena
// slot may be recycled once that happens.
func (p *Process) Reapable() bool {
	return p.taskCount == 0
}

// AddTask records one more live Task sharing this Process's thread group
// (clone with CLONE_THREAD, or the process's first task at creation).
func (p *Process) AddTask() {
	p.taskCount++
}

// RemoveTask records one fewer live Task, called when a task exits
// (sysExit) without taking the rest of the thread group down with it.
func (p *Process) RemoveTask() {
	if p.taskCount > 0 {
		p.taskCount--
	}
}

// KillAllTasks marks the whole thread group gone at once, for exit_group
// and fatal-fault teardown where every task terminates together.
func (p *Process) KillAllTasks() {
	p.taskCount = 0
}

// Teardown releases every resource the process owns: its address space,
// its heap/stack scratch pages (already folded into MemSet by the time
// this runs), and its fd table. Order matches spec.md §5's cancellation
// policy: MemSet, then fd-table entries, then the scratch page (implicitly
// part of the heap's MemSet).
func (p *Process) Teardown() {
	p.MemSet.Release()
	p.Heap.Release()
	p.Stack.Release()
	p.PageTable.Destroy()
	for fd := range p.FDs.entries {
		p.FDs.Close(fd, p.Filesystem)
	}
}
