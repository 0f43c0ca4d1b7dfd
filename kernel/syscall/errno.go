package syscall

import (
	"golang.org/x/sys/unix"

	"github.com/yfblock/oskernel2022-byte-os/kernel"
)

// errnoFor translates the kernel.Error taxonomy into the negative errno
// spec.md §7 names. The numeric values themselves come from
// golang.org/x/sys/unix rather than being hand-typed, so they track the
// Linux RV64 ABI this dispatcher targets instead of a guessed constant.
// Unrecognized errors default to EFAULT since they almost always originate
// from a bad user-supplied address or state this dispatcher doesn't
// otherwise model.
func errnoFor(err *kernel.Error) uint64 {
	switch err {
	case kernel.ErrNoMatchedFileDesc:
		return negErrno(unix.EBADF)
	case kernel.ErrNoEnoughPage:
		return negErrno(unix.ENOMEM)
	case kernel.ErrNoMatchedAddr:
		return negErrno(unix.EFAULT)
	case kernel.ErrFileNotFound, kernel.ErrNoMatchedFile:
		return negErrno(unix.ENOENT)
	case kernel.ErrNoMatchedProcess, kernel.ErrNoMatchedTask:
		return negErrno(unix.ESRCH)
	default:
		return negErrno(unix.EFAULT)
	}
}

// negErrno packs a positive unix.E* constant into the x10 return-value slot
// as -errno, per spec.md §7.
func negErrno(errno unix.Errno) uint64 {
	return uint64(int64(-int32(errno)))
}
