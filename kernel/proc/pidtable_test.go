package proc

import "testing"

func TestPidTableInsertStartsAtTwo(t *testing.T) {
	table := NewPidTable()
	p := &Process{}
	ref := table.Insert(p)

	if ref.PID != 2 {
		t.Fatalf("expected first pid to be 2 (pid 1 reserved); got %d", ref.PID)
	}
	if p.PID != 2 {
		t.Fatalf("expected Insert to stamp PID onto the process; got %d", p.PID)
	}
}

func TestPidTableLookupAndResolve(t *testing.T) {
	table := NewPidTable()
	p := &Process{}
	ref := table.Insert(p)

	got, err := table.Lookup(ref.PID)
	if err != nil || got != p {
		t.Fatalf("Lookup(%d) = (%v, %v); want (%v, nil)", ref.PID, got, err, p)
	}

	got, err = table.Resolve(ref)
	if err != nil || got != p {
		t.Fatalf("Resolve(%v) = (%v, %v); want (%v, nil)", ref, got, err, p)
	}
}

func TestPidTableLookupMissIsError(t *testing.T) {
	table := NewPidTable()
	if _, err := table.Lookup(42); err == nil {
		t.Fatal("expected lookup of an unused pid to fail")
	}
}

func TestPidTableRemoveInvalidatesStaleRef(t *testing.T) {
	table := NewPidTable()
	p := &Process{}
	ref := table.Insert(p)

	table.Remove(ref.PID)

	if _, err := table.Lookup(ref.PID); err == nil {
		t.Fatal("expected Lookup to fail once the pid has been removed")
	}
	if _, err := table.Resolve(ref); err == nil {
		t.Fatal("expected Resolve to fail against a stale Ref once the pid has been removed")
	}
}

func TestPidTableLen(t *testing.T) {
	table := NewPidTable()
	if table.Len() != 0 {
		t.Fatalf("expected empty table to have Len 0; got %d", table.Len())
	}

	ref1 := table.Insert(&Process{})
	table.Insert(&Process{})
	if table.Len() != 2 {
		t.Fatalf("expected Len 2 after two inserts; got %d", table.Len())
	}

	table.Remove(ref1.PID)
	if table.Len() != 1 {
		t.Fatalf("expected Len 1 after removing one; got %d", table.Len())
	}
}

func TestPidTableAssignsDistinctPids(t *testing.T) {
	table := NewPidTable()
	seen := make(map[int]bool)
	for i := 0; i < 5; i++ {
		ref := table.Insert(&Process{})
		if seen[ref.PID] {
			t.Fatalf("pid %d assigned twice", ref.PID)
		}
		seen[ref.PID] = true
	}
}
