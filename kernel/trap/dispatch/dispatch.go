// Package dispatch implements TrapDispatch (C9): the classification and
// routing step that runs every time a trap trampoline hands control back
// to Go, per spec.md §4.7's table. It is the single place that decides
// whether a trap means "advance and return", "grow the stack", "run a
// syscall", or "kill the task".
//
// Grounded on original_source/kernel/src/interrupt/mod.rs's trap handler
// match over scause, adapted from its direct Rust match arms into a Go
// switch over kernel/trap.Cause, with the syscall and signal-delivery
// collaborators (kernel/syscall, kernel/signal) injected explicitly
// rather than reached through module-level statics.
package dispatch

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/sched"
	"github.com/yfblock/oskernel2022-byte-os/kernel/signal"
	"github.com/yfblock/oskernel2022-byte-os/kernel/syscall"
	"github.com/yfblock/oskernel2022-byte-os/kernel/trap"
)

// Outcome tells the trampoline what to do once Handle returns: resume the
// current task, or ask the scheduler for a different one.
type Outcome int

const (
	Resume Outcome = iota
	Reschedule
	TaskKilled
)

// syscallDispatchFn/deliverFn are mockable so dispatch_test.go can
// exercise every branch of the classification table without a real
// syscall surface or signal subsystem.
var syscallDispatchFn = syscall.Dispatch
var deliverFn = signal.Deliver

// Handle classifies ctx's trap cause (scause, already resolved to a
// trap.Cause by the caller) and routes it per spec.md §4.7's table. After
// the primary action, any unmasked pending signal on task is delivered
// before control returns to user mode (spec.md §4.7's closing sentence).
func Handle(k *syscall.Kernel, s *sched.Scheduler, task *proc.Task, process *proc.Process, ctx *trap.Context, cause trap.Cause, stval uint64) Outcome {
	outcome := dispatchCause(k, s, task, process, ctx, cause, stval)
	if outcome == TaskKilled {
		return outcome
	}
	deliverPendingSignals(task, process, ctx)
	return outcome
}

func dispatchCause(k *syscall.Kernel, s *sched.Scheduler, task *proc.Task, process *proc.Process, ctx *trap.Context, cause trap.Cause, stval uint64) Outcome {
	switch cause {
	case trap.CauseBreakpoint:
		ctx.AdvancePastBreakpoint()
		return Resume

	case trap.CauseSupervisorTimer:
		task.WakeTick++
		task.SchedTicks++
		if s != nil {
			s.YieldCurrent()
		}
		return Reschedule

	case trap.CauseUserEnvCall:
		ctx.AdvancePastEcall()
		return runSyscall(k, s, task, process, ctx)

	case trap.CauseStorePageFault, trap.CauseStoreFault:
		faultVPN := mem.VirtAddr(mem.PageAlignDown(uintptr(stval)))
		if err := process.Stack.HandleStoreFault(&process.PageTable, faultVPN); err != nil {
			return killCurrent(s, process)
		}
		return Resume

	case trap.CauseLoadPageFault, trap.CauseInstructionPageFault, trap.CauseIllegalInstruction:
		return killCurrent(s, process)

	case trap.CauseStoreMisaligned:
		// Emulation intentionally skipped (spec.md §4.7): return without
		// emulating. Nothing is logged.
		return Resume

	default:
		return killCurrent(s, process)
	}
}

// runSyscall invokes the syscall surface and translates its three
// control-flow errors into the outcomes the scheduler loop understands;
// everything else (a regular return value or errno) has already been
// written into ctx by syscall.Dispatch itself.
func runSyscall(k *syscall.Kernel, s *sched.Scheduler, task *proc.Task, process *proc.Process, ctx *trap.Context) Outcome {
	err := syscallDispatchFn(k, task, process, ctx)
	switch err {
	case nil:
		return Resume
	case kernel.ErrKillSelfTask:
		// Unwinds the calling task alone (sysExit's single-task case, and
		// sysExitGroup which has already KillPID'd the whole process
		// itself before returning this). Never routes through
		// killCurrent/KillPID here, or a plain exit() would take every
		// CLONE_THREAD sibling down with it.
		if s != nil {
			s.ExitCurrent()
		}
		return TaskKilled
	case kernel.ErrChangeTask:
		return Reschedule
	case kernel.ErrSigReturn:
		return Resume
	default:
		return Resume
	}
}

func killCurrent(s *sched.Scheduler, process *proc.Process) Outcome {
	if s != nil {
		s.KillPID(process.PID)
	}
	return TaskKilled
}

// deliverPendingSignals walks every pending, unmasked signal (lowest
// number first) and hands the first deliverable one to kernel/signal —
// spec.md §4.8's reentrancy guard (scratch slot non-zero) means at most
// one is ever actually delivered per trap, the rest wait for the next one.
func deliverPendingSignals(task *proc.Task, process *proc.Process, ctx *trap.Context) {
	for n := uint(1); n < uint(proc.SigActionTableSize); n++ {
		if !task.SigPending.Has(n) || task.SigMask.Has(n) {
			continue
		}
		delivered, err := deliverFn(task, process, ctx, n)
		if err != nil || !delivered {
			continue
		}
		return
	}
}
