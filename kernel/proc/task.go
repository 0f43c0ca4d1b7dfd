package proc

import "github.com/yfblock/oskernel2022-byte-os/kernel/trap"

// RunState is one of the states a Task's run_state invariant (spec.md §3)
// ranges over.
type RunState uint8

const (
	Ready RunState = iota
	Running
	Paused
	Stopped
	Exited
	Waiting
)

// Task is one schedulable execution context (spec.md §3). Multiple tasks
// may share a Process (a thread group); each still carries its own saved
// Context, run state, wake tick, and signal mask/pending set.
type Task struct {
	TID int
	PID int

	Context trap.Context

	State    RunState
	WakeTick uint64

	// SchedTicks counts every SupervisorTimer trap taken while this task
	// was the running task, independent of WakeTick's absolute-deadline
	// role; kernel/diag turns it into an approximate rusage/times(2)
	// accounting figure.
	SchedTicks uint64

	SigMask    SigSet
	SigPending SigSet

	// ClearChildTIDAddr is the user virtual address CLONE_CHILD_CLEARTID
	// (or set_tid_address) asked the kernel to zero and futex-wake on
	// exit; 0 means "none".
	ClearChildTIDAddr uint64

	// UContextSlot0 is not read or written anywhere in this core:
	// kernel/signal keeps its re-entrancy guard (spec.md §4.8 step 1) in
	// the scratch page's UserContext.ResumePC instead.
	UContextSlot0 uint64
}

// Runnable reports whether the task may be picked by the scheduler.
func (t *Task) Runnable() bool {
	return t.State == Ready
}
