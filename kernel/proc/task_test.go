package proc

import (
	"testing"

	"github.com/yfblock/oskernel2022-byte-os/kernel/trap"
)

func TestTaskRunnableOnlyWhenReady(t *testing.T) {
	task := &Task{State: Ready}
	if !task.Runnable() {
		t.Fatal("expected a Ready task to be runnable")
	}

	for _, state := range []RunState{Running, Paused, Stopped, Exited, Waiting} {
		task.State = state
		if task.Runnable() {
			t.Fatalf("expected state %v to be non-runnable", state)
		}
	}
}

func TestTaskSyscallContextRoundTrip(t *testing.T) {
	var task Task
	task.Context.X[trap.RegA7] = 93 // exit
	task.Context.X[trap.RegA0] = 7

	if got := task.Context.SyscallNumber(); got != 93 {
		t.Fatalf("expected syscall number 93; got %d", got)
	}
	if got := task.Context.SyscallArg(0); got != 7 {
		t.Fatalf("expected arg0 7; got %d", got)
	}
}
