// Package sched implements the single-hart cooperative scheduler (C7):
// a FIFO ready deque, a current-task slot, and the voluntary entry points
// (yield, sleep, exit, kill) spec.md §4.6 names. Switching the active page
// table on every dispatch is the scheduler's job, not the caller's.
//
// Grounded on original_source/kernel/src/task/task_scheduler.rs's
// TaskScheduler (current/queue/is_run, add_task/run_next/kill_current/
// suspend_current/kill_pid), adapted from Rc<Task>+RefCell sharing to a
// *proc.Task pointer plus the pid-table arena for Process lookups.
package sched

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel/cpu"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/sync"
)

// BootQueue is the boot-time task queue of shell-like command strings
// spec.md §4.6's idle behaviour consumes from when the ready deque is
// empty and nothing is current. Grounded on
// original_source/kernel/src/task/task_queue.rs's TASK_QUEUE: a plain
// FIFO of command strings, popped and spawned one at a time.
type BootQueue struct {
	mu      sync.IRQLock
	pending []string
}

// NewBootQueue returns a queue preloaded with commands, preserving order.
func NewBootQueue(commands ...string) *BootQueue {
	return &BootQueue{pending: append([]string(nil), commands...)}
}

// Push appends a command to the back of the queue.
func (q *BootQueue) Push(command string) {
	q.mu.Acquire()
	defer q.mu.Release()
	q.pending = append(q.pending, command)
}

// Pop removes and returns the front command, or ok=false if empty.
func (q *BootQueue) Pop() (string, bool) {
	q.mu.Acquire()
	defer q.mu.Release()
	if len(q.pending) == 0 {
		return "", false
	}
	command := q.pending[0]
	q.pending = q.pending[1:]
	return command, true
}

// entry pairs a schedulable Task with the Process owning its address
// space, so the scheduler can switch page tables without a second lookup
// through the pid table on every dispatch.
type entry struct {
	task    *proc.Task
	process *proc.Process
}

// Scheduler is the single-hart cooperative scheduler spec.md §4.6
// describes: one current slot, one FIFO ready deque, guarded throughout
// by its own IRQLock (spec.md §4.9: "Scheduler: mutated under its lock;
// never held across a page-table switch initiated outside the
// scheduler").
type Scheduler struct {
	mu      sync.IRQLock
	current *entry
	ready   []entry
	Boot    *BootQueue

	// SwitchSATP installs a process's page table as the active address
	// space on every dispatch. Exposed as a field (defaulting to
	// cpu.SwitchSATP) rather than a package-level var so callers outside
	// this package — kernel/boot and kernel/syscall's clone tests among
	// them — can substitute a recording fake per-instance without a real
	// MMU.
	SwitchSATP func(rootFrameAddr uintptr)
}

// New returns an idle scheduler backed by the given boot queue.
func New(boot *BootQueue) *Scheduler {
	return &Scheduler{Boot: boot, SwitchSATP: cpu.SwitchSATP}
}

// Current returns the task presently installed as current, or nil if the
// hart is idle.
func (s *Scheduler) Current() *proc.Task {
	s.mu.Acquire()
	defer s.mu.Release()
	if s.current == nil {
		return nil
	}
	return s.current.task
}

// Add installs task as current if the hart is idle, switching to its
// process's page table; otherwise appends it to the back of the ready
// deque with state Ready (spec.md §4.6's add(task)).
func (s *Scheduler) Add(task *proc.Task, process *proc.Process) {
	s.mu.Acquire()
	defer s.mu.Release()

	e := entry{task: task, process: process}
	if s.current == nil {
		task.State = proc.Running
		s.current = &e
		s.SwitchSATP(process.PageTable.Root.Address())
		return
	}
	task.State = proc.Ready
	s.ready = append(s.ready, e)
}

// dispatchNextLocked pops the first Ready entry from the front of the
// ready deque (skipping any stale non-Ready entries it finds along the
// way), installs it as current, and switches to its page table. Returns
// false if the deque holds nothing runnable. Caller must hold s.mu.
func (s *Scheduler) dispatchNextLocked() bool {
	for len(s.ready) > 0 {
		e := s.ready[0]
		s.ready = s.ready[1:]
		if e.task.State != proc.Ready {
			continue
		}
		e.task.State = proc.Running
		s.current = &e
		s.SwitchSATP(e.process.PageTable.Root.Address())
		return true
	}
	return false
}

// YieldCurrent moves the current task to the back of the ready deque
// with state Ready, then dispatches the next Ready task (spec.md §4.6's
// yield_current()). A no-op if nothing is current.
func (s *Scheduler) YieldCurrent() {
	s.mu.Acquire()
	defer s.mu.Release()

	if s.current != nil {
		s.current.task.State = proc.Ready
		s.ready = append(s.ready, *s.current)
		s.current = nil
	}
	s.dispatchNextLocked()
}

// ExitCurrent marks the current task Exited and dispatches the next
// Ready task, leaving the hart idle if none is runnable.
func (s *Scheduler) ExitCurrent() {
	s.mu.Acquire()
	defer s.mu.Release()

	if s.current != nil {
		s.current.task.State = proc.Exited
		s.current = nil
	}
	s.dispatchNextLocked()
}

// SleepUntil sets the current task's wake tick, marks it Waiting (not
// Ready, so it is skipped by dispatch until something explicitly wakes
// it), and dispatches the next Ready task.
func (s *Scheduler) SleepUntil(tick uint64) {
	s.mu.Acquire()
	defer s.mu.Release()

	if s.current != nil {
		s.current.task.WakeTick = tick
		s.current.task.State = proc.Waiting
		s.current = nil
	}
	s.dispatchNextLocked()
}

// Wake marks a Waiting task Ready and appends it to the back of the
// ready deque — spec.md §4.6's ordering guarantee ("tasks become Ready
// in the order they were woken").
func (s *Scheduler) Wake(task *proc.Task, process *proc.Process) {
	s.mu.Acquire()
	defer s.mu.Release()

	task.State = proc.Ready
	s.ready = append(s.ready, entry{task: task, process: process})
}

// KillPID removes every task belonging to pid from both the current slot
// and the ready deque (spec.md §4.6's kill_pid(pid)).
func (s *Scheduler) KillPID(pid int) {
	s.mu.Acquire()
	defer s.mu.Release()

	if s.current != nil && s.current.task.PID == pid {
		s.current.task.State = proc.Exited
		s.current = nil
	}

	survivors := s.ready[:0]
	for _, e := range s.ready {
		if e.task.PID == pid {
			e.task.State = proc.Exited
			continue
		}
		survivors = append(survivors, e)
	}
	s.ready = survivors

	if s.current == nil {
		s.dispatchNextLocked()
	}
}

// Idle reports whether nothing is current and the ready deque is empty —
// the condition spec.md §4.6's idle behaviour checks before consuming the
// boot queue.
func (s *Scheduler) Idle() bool {
	s.mu.Acquire()
	defer s.mu.Release()
	return s.current == nil && len(s.ready) == 0
}

// ReadyLen reports how many tasks are waiting in the ready deque
// (diagnostic/test use only).
func (s *Scheduler) ReadyLen() int {
	s.mu.Acquire()
	defer s.mu.Release()
	return len(s.ready)
}
