package syscall

import (
	"testing"

	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/trap"
)

func newTestKernel() *Kernel {
	return &Kernel{Pids: proc.NewPidTable(), TIDs: proc.NewTIDTable(), Sched: nil}
}

func TestDispatchUnknownSyscallReturnsZero(t *testing.T) {
	k := newTestKernel()
	task := &proc.Task{}
	process := &proc.Process{}
	ctx := &trap.Context{}
	ctx.X[trap.RegA7] = 999999

	if err := Dispatch(k, task, process, ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.X[trap.RegA0] != 0 {
		t.Fatalf("expected x10 = 0 for unknown syscall, got %d", ctx.X[trap.RegA0])
	}
}

func TestDispatchSuccessWritesReturnValue(t *testing.T) {
	k := newTestKernel()
	task := &proc.Task{}
	process := &proc.Process{PID: 42}
	ctx := &trap.Context{}
	ctx.X[trap.RegA7] = SysGetpid

	if err := Dispatch(k, task, process, ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.X[trap.RegA0] != 42 {
		t.Fatalf("expected x10 = 42, got %d", ctx.X[trap.RegA0])
	}
}

func TestDispatchTranslatesErrorToErrno(t *testing.T) {
	k := newTestKernel()
	task := &proc.Task{}
	process := &proc.Process{}
	ctx := &trap.Context{}
	ctx.X[trap.RegA7] = SysKill
	ctx.X[trap.RegA0] = 12345 // no such pid

	if err := Dispatch(k, task, process, ctx); err != nil {
		t.Fatalf("unexpected error propagated out of Dispatch: %v", err)
	}
	got := int64(ctx.X[trap.RegA0])
	if got >= 0 {
		t.Fatalf("expected a negative errno, got %d", got)
	}
}

func TestDispatchPropagatesControlFlowErrors(t *testing.T) {
	k := newTestKernel()
	task := &proc.Task{}
	process := &proc.Process{}
	ctx := &trap.Context{}
	ctx.X[trap.RegA7] = SysExit

	err := Dispatch(k, task, process, ctx)
	if err != kernel.ErrKillSelfTask {
		t.Fatalf("expected ErrKillSelfTask to propagate, got %v", err)
	}
	if !process.ExitStatus.Exited {
		t.Fatalf("expected ExitStatus.Exited to be set by sysExit")
	}
}
