package dispatch

import (
	"testing"

	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/sched"
	"github.com/yfblock/oskernel2022-byte-os/kernel/syscall"
	"github.com/yfblock/oskernel2022-byte-os/kernel/trap"
)

func withFakeSyscallDispatch(t *testing.T, err *kernel.Error) {
	t.Helper()
	prev := syscallDispatchFn
	syscallDispatchFn = func(k *syscall.Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) *kernel.Error {
		return err
	}
	t.Cleanup(func() { syscallDispatchFn = prev })
}

func withNoopSignalDelivery(t *testing.T) {
	t.Helper()
	prev := deliverFn
	deliverFn = func(task *proc.Task, process *proc.Process, ctx *trap.Context, n uint) (bool, *kernel.Error) {
		return false, nil
	}
	t.Cleanup(func() { deliverFn = prev })
}

func TestHandleBreakpointAdvancesSepcAndResumes(t *testing.T) {
	withNoopSignalDelivery(t)
	task := &proc.Task{}
	process := &proc.Process{}
	ctx := &trap.Context{Sepc: 0x1000}

	outcome := Handle(nil, nil, task, process, ctx, trap.CauseBreakpoint, 0)
	if outcome != Resume {
		t.Fatalf("expected Resume, got %v", outcome)
	}
	if ctx.Sepc != 0x1002 {
		t.Fatalf("expected sepc advanced by 2, got %#x", ctx.Sepc)
	}
}

func TestHandleUserEnvCallAdvancesSepcAndRunsSyscall(t *testing.T) {
	withNoopSignalDelivery(t)
	withFakeSyscallDispatch(t, nil)
	task := &proc.Task{}
	process := &proc.Process{}
	ctx := &trap.Context{Sepc: 0x2000}

	outcome := Handle(nil, nil, task, process, ctx, trap.CauseUserEnvCall, 0)
	if outcome != Resume {
		t.Fatalf("expected Resume, got %v", outcome)
	}
	if ctx.Sepc != 0x2004 {
		t.Fatalf("expected sepc advanced by 4, got %#x", ctx.Sepc)
	}
}

func TestHandleUserEnvCallKillSelfTaskKillsCurrent(t *testing.T) {
	withNoopSignalDelivery(t)
	withFakeSyscallDispatch(t, kernel.ErrKillSelfTask)
	task := &proc.Task{}
	process := &proc.Process{PID: 9}
	ctx := &trap.Context{}
	s := sched.New(sched.NewBootQueue())

	outcome := Handle(nil, s, task, process, ctx, trap.CauseUserEnvCall, 0)
	if outcome != TaskKilled {
		t.Fatalf("expected TaskKilled, got %v", outcome)
	}
}

func TestHandleUserEnvCallChangeTaskReschedules(t *testing.T) {
	withNoopSignalDelivery(t)
	withFakeSyscallDispatch(t, kernel.ErrChangeTask)
	task := &proc.Task{}
	process := &proc.Process{}
	ctx := &trap.Context{}

	outcome := Handle(nil, nil, task, process, ctx, trap.CauseUserEnvCall, 0)
	if outcome != Reschedule {
		t.Fatalf("expected Reschedule, got %v", outcome)
	}
}

func TestHandleIllegalInstructionKillsCurrent(t *testing.T) {
	withNoopSignalDelivery(t)
	task := &proc.Task{}
	process := &proc.Process{PID: 3}
	ctx := &trap.Context{}

	outcome := Handle(nil, nil, task, process, ctx, trap.CauseIllegalInstruction, 0)
	if outcome != TaskKilled {
		t.Fatalf("expected TaskKilled, got %v", outcome)
	}
}

func TestHandleStoreMisalignedLogsAndResumes(t *testing.T) {
	withNoopSignalDelivery(t)
	task := &proc.Task{}
	process := &proc.Process{}
	ctx := &trap.Context{}

	outcome := Handle(nil, nil, task, process, ctx, trap.CauseStoreMisaligned, 0)
	if outcome != Resume {
		t.Fatalf("expected Resume, got %v", outcome)
	}
}

func TestHandleSupervisorTimerTicksAndReschedules(t *testing.T) {
	withNoopSignalDelivery(t)
	task := &proc.Task{WakeTick: 5}
	process := &proc.Process{}
	ctx := &trap.Context{}

	outcome := Handle(nil, nil, task, process, ctx, trap.CauseSupervisorTimer, 0)
	if outcome != Reschedule {
		t.Fatalf("expected Reschedule, got %v", outcome)
	}
	if task.WakeTick != 6 {
		t.Fatalf("expected WakeTick incremented to 6, got %d", task.WakeTick)
	}
}

func TestHandleDeliversPendingUnmaskedSignal(t *testing.T) {
	task := &proc.Task{}
	task.SigPending.Add(5)
	process := &proc.Process{}
	ctx := &trap.Context{}

	var delivered uint
	prev := deliverFn
	deliverFn = func(tsk *proc.Task, proc2 *proc.Process, c *trap.Context, n uint) (bool, *kernel.Error) {
		delivered = n
		return true, nil
	}
	t.Cleanup(func() { deliverFn = prev })

	Handle(nil, nil, task, process, ctx, trap.CauseStoreMisaligned, 0)
	if delivered != 5 {
		t.Fatalf("expected signal 5 to be delivered, got %d", delivered)
	}
}

func TestHandleSkipsMaskedPendingSignal(t *testing.T) {
	task := &proc.Task{}
	task.SigPending.Add(5)
	task.SigMask.Add(5)
	process := &proc.Process{}
	ctx := &trap.Context{}

	called := false
	prev := deliverFn
	deliverFn = func(tsk *proc.Task, proc2 *proc.Process, c *trap.Context, n uint) (bool, *kernel.Error) {
		called = true
		return true, nil
	}
	t.Cleanup(func() { deliverFn = prev })

	Handle(nil, nil, task, process, ctx, trap.CauseStoreMisaligned, 0)
	if called {
		t.Fatalf("expected masked signal not to be delivered")
	}
}
