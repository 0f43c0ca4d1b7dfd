package syscall

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel/loader"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/sched"
)

// Kernel bundles the collaborators a syscall body may need beyond the
// calling task/process themselves: the pid arena (for wait4/kill/clone),
// the scheduler (for sched_yield/exit/sleep), and the Loader collaborator
// (for execve's image-loading step). Grounded on
// original_source/kernel/src/task/task_scheduler.rs's module-level
// TASK_SCHEDULER/NEXT_PID singletons, bundled here into an explicit
// value instead of package globals since nothing in this core's boot
// path needs them to be global state.
type Kernel struct {
	Pids   *proc.PidTable
	TIDs   *proc.TIDTable
	Sched  *sched.Scheduler
	Loader loader.Loader
}
