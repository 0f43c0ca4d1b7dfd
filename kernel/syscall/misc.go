package syscall

import (
	"encoding/binary"

	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/diag"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/trap"
)

// utsnameFieldLen is the fixed field width Linux's struct utsname uses for
// each of its six strings.
const utsnameFieldLen = 65

func utsField(value string) []byte {
	buf := make([]byte, utsnameFieldLen)
	copy(buf, value)
	return buf
}

// sysUname fills struct utsname with fixed identification strings, the
// way original_source's sys_uname reports a single hardcoded platform
// description rather than probing anything at runtime.
func sysUname(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	bufAddr := ctx.SyscallArg(0)

	out := make([]byte, 0, utsnameFieldLen*6)
	out = append(out, utsField("Linux")...)
	out = append(out, utsField("byte-os")...)
	out = append(out, utsField("0.1.0")...)
	out = append(out, utsField("#1")...)
	out = append(out, utsField("riscv64")...)
	out = append(out, utsField("byte-os")...)

	if err := CopyOut(&process.PageTable, bufAddr, out); err != nil {
		return 0, err
	}
	return 0, nil
}

// sysGetrusage reports ru_utime/ru_stime from kernel/diag's per-task
// scheduler tick accounting, converted to a timeval the same way
// sys_clock_gettime converts the time CSR; every other struct rusage
// field stays zero since this core tracks no page-fault/IO/memory
// counters (spec.md's Non-goals exclude fine-grained resource
// accounting beyond wall/scheduler time).
func sysGetrusage(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	bufAddr := ctx.SyscallArg(1)
	rusage := diag.Snapshot(task)
	utimeNS := rusage.UtimeTicks * (1_000_000_000 / timerFrequencyHz)
	stimeNS := rusage.StimeTicks * (1_000_000_000 / timerFrequencyHz)

	buf := make([]byte, 144)
	binary.LittleEndian.PutUint64(buf[0:8], utimeNS/1_000_000_000)
	binary.LittleEndian.PutUint64(buf[8:16], (utimeNS%1_000_000_000)/1000)
	binary.LittleEndian.PutUint64(buf[16:24], stimeNS/1_000_000_000)
	binary.LittleEndian.PutUint64(buf[24:32], (stimeNS%1_000_000_000)/1000)

	if err := CopyOut(&process.PageTable, bufAddr, buf); err != nil {
		return 0, err
	}
	return 0, nil
}

// sysGetuid/sysGetgid report the single fixed uid/gid this core runs every
// process under; there is no user-account model (spec.md's Non-goals
// exclude multi-user permission checking).
func sysGetuid(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	return 0, nil
}

func sysGetgid(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	return 0, nil
}
