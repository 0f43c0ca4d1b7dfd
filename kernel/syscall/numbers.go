// Package syscall implements the Linux RV64-numbered syscall surface
// (C12): argument decoding off a trap.Context, dispatch to the
// component that owns each operation, and errno translation of the
// kernel.Error taxonomy back into x10. Grounded throughout on
// original_source/kernel/src/sys_call/mod.rs's SYS_* constant list and
// its Task::sys_call dispatch switch.
package syscall

// Syscall numbers, matching the Linux RV64 ABI (spec.md §6.2).
const (
	SysGetcwd   = 17
	SysDup      = 23
	SysDup3     = 24
	SysFcntl    = 25
	SysMkdirat  = 34
	SysUnlinkat = 35
	SysUmount2  = 39
	SysMount    = 40
	SysStatfs   = 43
	SysChdir    = 49
	SysOpenat   = 56
	SysClose    = 57
	SysPipe2    = 59
	SysGetdents = 61
	SysLseek    = 62
	SysRead     = 63
	SysWrite    = 64
	SysReadv    = 65
	SysWritev   = 66
	SysPread    = 67
	SysSendfile = 71
	SysPpoll    = 73
	SysReadlinkat = 78
	SysFstatat  = 79
	SysFstat    = 80
	SysUtimensat = 88

	SysExit            = 93
	SysExitGroup       = 94
	SysSetTidAddress   = 96
	SysFutex           = 98
	SysNanosleep       = 101
	SysClockGettime    = 113
	SysSchedYield      = 124
	SysKill            = 129
	SysTkill           = 130
	SysTgkill          = 131
	SysSigaction       = 134
	SysSigprocmask     = 135
	SysSigtimedwait    = 137
	SysSigreturn       = 139
	SysTimes           = 153
	SysUname           = 160
	SysGetrusage       = 165
	SysGettimeofday    = 169
	SysGetuid          = 174
	SysGetpid          = 172
	SysGetppid         = 173
	SysGetgid          = 176
	SysGettid          = 178
	SysBrk             = 214
	SysMunmap          = 215
	SysClone           = 220
	SysExecve          = 221
	SysMmap            = 222
	SysMprotect        = 226
	SysWait4           = 260

	SysSocket      = 198
	SysBind        = 200
	SysListen      = 201
	SysConnect     = 203
	SysGetsockname = 204
	SysSendto      = 206
	SysRecvfrom    = 207
	SysSetsockopt  = 208
)
