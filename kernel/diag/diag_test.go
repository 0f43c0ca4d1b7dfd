package diag

import (
	"testing"

	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
)

func TestSnapshotMirrorsSchedTicksIntoBothFields(t *testing.T) {
	task := &proc.Task{SchedTicks: 42}
	r := Snapshot(task)
	if r.UtimeTicks != 42 || r.StimeTicks != 42 {
		t.Fatalf("got %+v, want both ticks 42", r)
	}
}

func TestBuildProfileOneSamplePerTask(t *testing.T) {
	tasks := []*proc.Task{
		{PID: 1, TID: 1, SchedTicks: 10},
		{PID: 2, TID: 2, SchedTicks: 20},
	}
	p := BuildProfile(tasks)
	if len(p.Sample) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(p.Sample))
	}
	if p.Sample[0].Value[0] != 10 || p.Sample[1].Value[0] != 20 {
		t.Fatalf("unexpected sample values: %+v, %+v", p.Sample[0].Value, p.Sample[1].Value)
	}
	if p.Sample[0].Label["pid"][0] != "1" || p.Sample[1].Label["pid"][0] != "2" {
		t.Fatalf("unexpected pid labels: %+v, %+v", p.Sample[0].Label, p.Sample[1].Label)
	}
}
