// Package diag builds optional diagnostic snapshots of scheduler
// accounting: an approximate rusage/times(2) figure per task
// (kernel/syscall/misc.go's sys_getrusage, kernel/syscall/time.go's
// sys_times) and, on demand, a pprof-format profile of per-task tick
// counts an operator can pull off the running kernel the same way any
// other Go program's profile.Profile gets inspected.
//
// Grounded on github.com/google/pprof/profile, already named as a
// candidate dependency in the domain-stack survey for exactly this kind
// of accounting/export use, and on proc.Task.SchedTicks (kernel/trap/
// dispatch.Handle increments it once per SupervisorTimer trap).
package diag

import (
	"github.com/google/pprof/profile"

	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
)

// Rusage is the subset of struct rusage / struct tms this core can back
// with real numbers: every field is derived from SchedTicks, since there
// is no separate user/kernel-time split (spec.md's Non-goals exclude
// fine-grained CPU accounting beyond the scheduler's own tick count).
type Rusage struct {
	UtimeTicks uint64
	StimeTicks uint64
}

// Snapshot reports task's current scheduling accounting. Both fields
// report the same tick count: this core does not distinguish time spent
// in the kernel on task's behalf from time spent in its own user code.
func Snapshot(task *proc.Task) Rusage {
	return Rusage{UtimeTicks: task.SchedTicks, StimeTicks: task.SchedTicks}
}

// BuildProfile assembles a minimal pprof profile.Profile with one sample
// per task, valued by its SchedTicks. It is never wired to a syscall
// (there is no spec-named "read my own profile" operation) — it exists
// for an operator to pull over a debug channel, the way any other Go
// process's profile gets inspected, without requiring the full
// net/http/pprof machinery this freestanding kernel has no hope of
// hosting.
func BuildProfile(tasks []*proc.Task) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "sched_ticks", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "sched_ticks", Unit: "count"},
		Period:     1,
	}

	fn := &profile.Function{ID: 1, Name: "task", SystemName: "task"}
	p.Function = []*profile.Function{fn}

	loc := &profile.Location{ID: 1, Line: []profile.Line{{Function: fn}}}
	p.Location = []*profile.Location{loc}

	for i, task := range tasks {
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{int64(task.SchedTicks)},
			Label: map[string][]string{
				"pid": {itoa(task.PID)},
				"tid": {itoa(task.TID)},
			},
		})
		_ = i
	}

	return p
}

// itoa avoids pulling in strconv for two small non-negative integers;
// kernel packages elsewhere in this core favor the same hand-rolled
// approach for formatting in paths that run before any allocator-heavy
// package is safe to lean on (kernel/kfmt/early.fmtInt is the same idea
// at the byte-sink level).
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
