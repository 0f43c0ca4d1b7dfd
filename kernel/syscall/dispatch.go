package syscall

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/trap"
)

// handler is the shape every syscall body follows: decode its own
// arguments off ctx, act, and return either a successful x10 value or an
// error. A returned kernel.ErrKillSelfTask/ErrChangeTask/ErrSigReturn is
// a control-flow signal the caller (kernel/trap/dispatch) must act on
// itself; any other error is translated to a negative errno by Dispatch.
type handler func(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error)

// Dispatch decodes the syscall number out of ctx, routes to the handler
// that owns it, and writes its result into x10 — except for the three
// control-flow errors (KillSelfTask, ChangeTask, SigReturn), which are
// returned to the caller unwritten so the trap dispatcher can act on them
// (end the task, switch to another, or resume with the context sigreturn
// restored) before anything resumes in user mode.
//
// Grounded on original_source/kernel/src/sys_call/mod.rs's Task::sys_call
// match statement; an unrecognized number returns 0 rather than an error.
// Nothing is logged for it.
func Dispatch(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) *kernel.Error {
	number := ctx.SyscallNumber()

	h, ok := handlers[number]
	if !ok {
		ctx.SetReturnValue(0)
		return nil
	}

	value, err := h(k, task, process, ctx)
	switch err {
	case nil:
		ctx.SetReturnValue(value)
		return nil
	case kernel.ErrKillSelfTask, kernel.ErrChangeTask, kernel.ErrSigReturn:
		return err
	default:
		ctx.SetReturnValue(errnoFor(err))
		return nil
	}
}

var handlers = map[uint64]handler{
	SysGetpid:    sysGetpid,
	SysGetppid:   sysGetppid,
	SysGettid:    sysGettid,
	SysExit:      sysExit,
	SysExitGroup: sysExitGroup,
	SysClone:     sysClone,
	SysExecve:    sysExecve,
	SysWait4:     sysWait4,
	SysSetTidAddress: sysSetTidAddress,
	SysFutex:         sysFutex,
	SysSchedYield:    sysSchedYield,
	SysKill:          sysKill,
	SysTkill:         sysTkill,
	SysTgkill:        sysTgkill,

	SysBrk:      sysBrk,
	SysMmap:     sysMmap,
	SysMunmap:   sysMunmap,
	SysMprotect: sysMprotect,

	SysSigaction:    sysSigaction,
	SysSigprocmask:  sysSigprocmask,
	SysSigtimedwait: sysSigtimedwait,
	SysSigreturn:    sysSigreturnCall,

	SysNanosleep:    sysNanosleep,
	SysClockGettime: sysClockGettime,
	SysGettimeofday: sysGettimeofday,
	SysTimes:        sysTimes,

	SysGetcwd:     sysGetcwd,
	SysDup:        sysDup,
	SysDup3:       sysDup3,
	SysFcntl:      sysFcntl,
	SysMkdirat:    sysMkdirat,
	SysUnlinkat:   sysUnlinkat,
	SysUmount2:    sysNoop,
	SysMount:      sysNoop,
	SysStatfs:     sysStatfs,
	SysChdir:      sysChdir,
	SysOpenat:     sysOpenat,
	SysClose:      sysClose,
	SysPipe2:      sysPipe2,
	SysGetdents:   sysGetdents,
	SysLseek:      sysLseek,
	SysRead:       sysRead,
	SysWrite:      sysWrite,
	SysReadv:      sysReadv,
	SysWritev:     sysWritev,
	SysPread:      sysPread,
	SysSendfile:   sysSendfile,
	SysPpoll:      sysPpoll,
	SysReadlinkat: sysReadlinkat,
	SysFstatat:    sysFstatat,
	SysFstat:      sysFstat,
	SysUtimensat:  sysNoop,

	SysUname:     sysUname,
	SysGetrusage: sysGetrusage,
	SysGetuid:    sysGetuid,
	SysGetgid:    sysGetgid,

	SysSocket:      sysSocket,
	SysBind:        sysBind,
	SysListen:      sysListen,
	SysConnect:     sysConnect,
	SysGetsockname: sysGetsockname,
	SysSendto:      sysSendto,
	SysRecvfrom:    sysRecvfrom,
	SysSetsockopt:  sysSetsockopt,
}

func sysNoop(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	return 0, nil
}
