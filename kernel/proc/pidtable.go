package proc

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/sync"
)

// slot is one arena entry: a Process plus the generation it was created
// with. A stale Ref (one captured before the slot was recycled) is
// detected by comparing generations rather than dereferencing a freed
// Process, standing in for the Rc<RefCell<Process>> spec.md §9 describes.
type slot struct {
	process    *Process
	generation uint32
	live       bool
}

// Ref is a lightweight (pid, generation) handle returned by Insert;
// PidTable.Resolve fails for a Ref whose generation no longer matches its
// slot. Task does not hold a Ref: it stores only a plain PID int.
type Ref struct {
	PID        int
	generation uint32
}

// PidTable is the pid-indexed arena of every live Process, guarded by its
// own IRQLock per spec.md §4.9 ("the pid generator" is one of the named
// protected singletons; the table backing it shares the same lock since
// both mutate together on process creation/reaping).
type PidTable struct {
	mu    sync.IRQLock
	slots map[int]*slot
	next  int
}

// NewPidTable returns an empty table. Pid 1 is reserved (spec.md §4.10);
// the generator starts at 2.
func NewPidTable() *PidTable {
	return &PidTable{slots: make(map[int]*slot), next: 2}
}

// Insert allocates a fresh pid for p, stamps it into p.PID, and returns a
// Ref to it.
func (t *PidTable) Insert(p *Process) Ref {
	t.mu.Acquire()
	defer t.mu.Release()

	pid := t.next
	t.next++
	p.PID = pid
	t.slots[pid] = &slot{process: p, generation: 1, live: true}
	return Ref{PID: pid, generation: 1}
}

// Lookup returns the Process a pid currently names, or ErrNoMatchedProcess
// if no live process has that pid.
func (t *PidTable) Lookup(pid int) (*Process, *kernel.Error) {
	t.mu.Acquire()
	defer t.mu.Release()

	s, ok := t.slots[pid]
	if !ok || !s.live {
		return nil, kernel.ErrNoMatchedProcess
	}
	return s.process, nil
}

// Resolve returns the Process a Ref names, failing if the slot has since
// been recycled to a different generation (a stale reference).
func (t *PidTable) Resolve(ref Ref) (*Process, *kernel.Error) {
	t.mu.Acquire()
	defer t.mu.Release()

	s, ok := t.slots[ref.PID]
	if !ok || !s.live || s.generation != ref.generation {
		return nil, kernel.ErrNoMatchedProcess
	}
	return s.process, nil
}

// Remove retires pid's slot once its Process has been reaped. The slot
// itself is kept (not deleted from the map) so a later Resolve against a
// stale Ref reports "no matched process" rather than silently reusing the
// pid — pid reuse is out of scope per spec.md §4.10.
func (t *PidTable) Remove(pid int) {
	t.mu.Acquire()
	defer t.mu.Release()

	if s, ok := t.slots[pid]; ok {
		s.live = false
		s.process = nil
	}
}

// Len reports how many live processes the table currently holds.
func (t *PidTable) Len() int {
	t.mu.Acquire()
	defer t.mu.Release()

	count := 0
	for _, s := range t.slots {
		if s.live {
			count++
		}
	}
	return count
}
