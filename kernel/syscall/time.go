package syscall

import (
	"encoding/binary"

	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/cpu"
	"github.com/yfblock/oskernel2022-byte-os/kernel/diag"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/trap"
)

// timerFrequencyHz is the assumed frequency of the riscv `time` CSR on
// the QEMU virt platform this core targets; no timer driver file was
// retrieved from original_source to confirm the exact value, so this is
// recorded as an assumption in DESIGN.md rather than invented silently.
const timerFrequencyHz = 10_000_000

var readTimeFn = cpu.ReadTime

func nowNanoseconds() uint64 {
	return readTimeFn() * (1_000_000_000 / timerFrequencyHz)
}

// sysNanosleep implements nanosleep: converts the requested duration to
// an absolute wake tick and unwinds into the scheduler's sleep path.
func sysNanosleep(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	reqAddr := ctx.SyscallArg(0)
	buf := make([]byte, 16)
	if err := CopyIn(&process.PageTable, reqAddr, buf); err != nil {
		return 0, err
	}
	seconds := binary.LittleEndian.Uint64(buf[0:8])
	nanos := binary.LittleEndian.Uint64(buf[8:16])
	durationNS := seconds*1_000_000_000 + nanos

	wakeAt := nowNanoseconds() + durationNS
	wakeTick := wakeAt / (1_000_000_000 / timerFrequencyHz)

	if k.Sched != nil {
		k.Sched.SleepUntil(wakeTick)
	}
	return 0, kernel.ErrChangeTask
}

// sysClockGettime writes {seconds, nanoseconds} for CLOCK_MONOTONIC/
// CLOCK_REALTIME alike — this core has no wall-clock source, only the
// free-running timer, so both clock ids return the same monotonic value.
func sysClockGettime(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	tsAddr := ctx.SyscallArg(1)
	ns := nowNanoseconds()
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], ns/1_000_000_000)
	binary.LittleEndian.PutUint64(buf[8:16], ns%1_000_000_000)
	if err := CopyOut(&process.PageTable, tsAddr, buf); err != nil {
		return 0, err
	}
	return 0, nil
}

// sysGettimeofday writes {seconds, microseconds}.
func sysGettimeofday(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	tvAddr := ctx.SyscallArg(0)
	ns := nowNanoseconds()
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], ns/1_000_000_000)
	binary.LittleEndian.PutUint64(buf[8:16], (ns%1_000_000_000)/1000)
	if err := CopyOut(&process.PageTable, tvAddr, buf); err != nil {
		return 0, err
	}
	return 0, nil
}

// sysTimes writes a struct tms (utime/stime/cutime/cstime, four
// clock_t-sized fields). utime/stime come from kernel/diag's per-task
// scheduler tick accounting; cutime/cstime (children) report the same
// task's own figure, since this core does not reap per-child accounting
// separately (matching the original's similarly approximate sys_times).
func sysTimes(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	bufAddr := ctx.SyscallArg(0)
	if bufAddr != 0 {
		rusage := diag.Snapshot(task)
		buf := make([]byte, 32)
		binary.LittleEndian.PutUint64(buf[0:8], rusage.UtimeTicks)
		binary.LittleEndian.PutUint64(buf[8:16], rusage.StimeTicks)
		binary.LittleEndian.PutUint64(buf[16:24], rusage.UtimeTicks)
		binary.LittleEndian.PutUint64(buf[24:32], rusage.StimeTicks)
		if err := CopyOut(&process.PageTable, bufAddr, buf); err != nil {
			return 0, err
		}
	}
	return readTimeFn(), nil
}
