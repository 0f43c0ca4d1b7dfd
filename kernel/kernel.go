// Package kernel contains the error taxonomy and panic entrypoint shared
// by every other kernel package.
package kernel

// Error describes a kernel error. All kernel errors are defined as global
// variables that are pointers to the Error structure. This requirement stems
// from the fact that the Go allocator is not available during early boot so
// we cannot use errors.New.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// The error taxonomy from which every kernel package signals recoverable
// failures. Syscall dispatch (kernel/syscall) maps these to negative errno
// values; a handful are handled specially by the scheduler/signal layers
// instead of being surfaced to user-space.
var (
	// ErrNoEnoughPage is returned by the physical page allocator when no
	// run of the requested length is free.
	ErrNoEnoughPage = &Error{Module: "mem", Message: "no enough page"}

	// ErrNoMatchedAddr is returned by PageTable.Translate when the
	// supplied virtual address has no mapping.
	ErrNoMatchedAddr = &Error{Module: "vmm", Message: "no matched physical address"}

	// ErrFileNotFound is returned by the Filesystem collaborator when a
	// path cannot be resolved.
	ErrFileNotFound = &Error{Module: "fs", Message: "file not found"}

	// ErrNoMatchedFile is returned when an open file handle no longer
	// refers to a valid backing file.
	ErrNoMatchedFile = &Error{Module: "fs", Message: "no matched file"}

	// ErrNoMatchedFileDesc is returned when a file descriptor number does
	// not refer to an open entry in the process fd table. Surfaces to
	// user-space as -EBADF.
	ErrNoMatchedFileDesc = &Error{Module: "fs", Message: "no matched file descriptor"}

	// ErrKillSelfTask unwinds a syscall body back to the dispatcher to
	// request termination of the calling task. It never reaches
	// user-space as an errno.
	ErrKillSelfTask = &Error{Module: "sched", Message: "kill self task"}

	// ErrChangeTask signals that the scheduler must run a different task
	// next; used by blocking syscalls (futex, wait4, nanosleep) to unwind
	// out of the current dispatch pass.
	ErrChangeTask = &Error{Module: "sched", Message: "change task"}

	// ErrSigReturn unwinds the inner signal-delivery dispatch loop once
	// sigreturn has restored the pre-signal context.
	ErrSigReturn = &Error{Module: "signal", Message: "sigreturn"}

	// ErrNoMatchedProcess is returned by the pid table when a pid has no
	// live Process, or a (pid, generation) pair is stale — the Go
	// equivalent of a dangling Rc<RefCell<Process>> (spec.md §9).
	ErrNoMatchedProcess = &Error{Module: "proc", Message: "no matched process"}

	// ErrNoMatchedTask is returned when a (pid, tid) pair does not refer
	// to a live task within the named process's thread group.
	ErrNoMatchedTask = &Error{Module: "proc", Message: "no matched task"}
)
