package proc

import "github.com/yfblock/oskernel2022-byte-os/kernel/sync"

// TIDTable hands out fresh TIDs for clone(2) (spec.md §6.2): unlike
// PidTable it tracks no generation or liveness, since a Task's identity
// lives in the scheduler's ready deque/current slot rather than in an
// arena a Ref can go stale against.
type TIDTable struct {
	mu   sync.IRQLock
	next int
}

// NewTIDTable returns a table whose first allocation is 2, matching
// PidTable's reservation of 1 for the boot process/its first task.
func NewTIDTable() *TIDTable {
	return &TIDTable{next: 2}
}

// Next returns a fresh TID, never reused.
func (t *TIDTable) Next() int {
	t.mu.Acquire()
	defer t.mu.Release()
	tid := t.next
	t.next++
	return tid
}
