package syscall

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/fs"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/trap"
)

const maxPathLen = 256

func readPath(process *proc.Process, uaddr uint64) (string, *kernel.Error) {
	if uaddr == 0 {
		return "", nil
	}
	buf := make([]byte, maxPathLen)
	if err := CopyIn(&process.PageTable, uaddr, buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf), nil
}

// sysGetcwd writes the process's current working directory path into the
// caller's buffer, NUL-terminated, matching getcwd(2)'s contract.
func sysGetcwd(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	bufAddr := ctx.SyscallArg(0)
	size := ctx.SyscallArg(1)

	path := process.CWDPath
	if path == "" {
		path = "/"
	}
	out := append([]byte(path), 0)
	if uint64(len(out)) > size {
		return 0, kernel.ErrNoMatchedAddr
	}
	if err := CopyOut(&process.PageTable, bufAddr, out); err != nil {
		return 0, err
	}
	return bufAddr, nil
}

func sysChdir(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	path, err := readPath(process, ctx.SyscallArg(0))
	if err != nil {
		return 0, err
	}
	in, oerr := process.Filesystem.Open(process.CWD, path, 0)
	if oerr != nil {
		return 0, oerr
	}
	process.CWD = in
	process.CWDPath = path
	return 0, nil
}

func sysDup(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	newFD, err := process.FDs.Dup(int(ctx.SyscallArg(0)))
	if err != nil {
		return 0, err
	}
	return uint64(newFD), nil
}

func sysDup3(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	oldFD := int(ctx.SyscallArg(0))
	newFD := int(ctx.SyscallArg(1))
	if err := process.FDs.Dup2(oldFD, newFD); err != nil {
		return 0, err
	}
	return uint64(newFD), nil
}

// sysFcntl implements the F_DUPFD/F_GETFD/F_SETFD subset the catalogue
// needs; every other command reports success without side effects, since
// this core's fd table has no close-on-exec bit to track yet.
func sysFcntl(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	const fDupFD = 0
	fd := int(ctx.SyscallArg(0))
	cmd := ctx.SyscallArg(1)
	if cmd == fDupFD {
		newFD, err := process.FDs.Dup(fd)
		if err != nil {
			return 0, err
		}
		return uint64(newFD), nil
	}
	return 0, nil
}

func sysMkdirat(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	path, err := readPath(process, ctx.SyscallArg(1))
	if err != nil {
		return 0, err
	}
	if err := process.Filesystem.Mkdir(process.CWD, path); err != nil {
		return 0, err
	}
	return 0, nil
}

func sysUnlinkat(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	path, err := readPath(process, ctx.SyscallArg(1))
	if err != nil {
		return 0, err
	}
	if err := process.Filesystem.Unlink(process.CWD, path); err != nil {
		return 0, err
	}
	return 0, nil
}

// sysStatfs reports a minimal statfs buffer of zeroes; this core has no
// quota/free-space accounting to surface (spec.md's Non-goals exclude
// filesystem capacity planning).
func sysStatfs(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	bufAddr := ctx.SyscallArg(1)
	buf := make([]byte, 64)
	if err := CopyOut(&process.PageTable, bufAddr, buf); err != nil {
		return 0, err
	}
	return 0, nil
}

const (
	openatFlagCreat    = 0o100
	openatFlagDirectory = 0o200000
)

func sysOpenat(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	path, err := readPath(process, ctx.SyscallArg(1))
	if err != nil {
		return 0, err
	}
	flags := uint32(ctx.SyscallArg(2))

	in, operr := process.Filesystem.Open(process.CWD, path, flags)
	if operr != nil {
		return 0, operr
	}
	fd := process.FDs.Open(in, flags)
	return uint64(fd), nil
}

func sysClose(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	if err := process.FDs.Close(fd, process.Filesystem); err != nil {
		return 0, err
	}
	return 0, nil
}

// sysPipe2 is not modeled: this core has no in-kernel byte-pipe
// collaborator, only the Filesystem interface, so it reports ENOENT via
// ErrNoMatchedFile rather than fabricating a fake pipe Inode.
func sysPipe2(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	return 0, kernel.ErrNoMatchedFile
}

func sysGetdents(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	bufAddr := ctx.SyscallArg(1)
	size := int(ctx.SyscallArg(2))

	entry, err := process.FDs.Get(fd)
	if err != nil {
		return 0, err
	}
	dirents, derr := process.Filesystem.Readdir(entry.Inode)
	if derr != nil {
		return 0, derr
	}

	out := make([]byte, 0, size)
	for _, d := range dirents {
		name := append([]byte(d.Name), 0)
		if len(out)+len(name) > size {
			break
		}
		out = append(out, name...)
	}
	if err := CopyOut(&process.PageTable, bufAddr, out); err != nil {
		return 0, err
	}
	return uint64(len(out)), nil
}

const (
	seekSet = 0
	seekCur = 1
	seekEnd = 2
)

func sysLseek(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	offset := int64(ctx.SyscallArg(1))
	whence := ctx.SyscallArg(2)

	entry, err := process.FDs.Get(fd)
	if err != nil {
		return 0, err
	}
	var newCursor int64
	switch whence {
	case seekSet:
		newCursor = offset
	case seekCur:
		newCursor = entry.Cursor + offset
	case seekEnd:
		stat, serr := process.Filesystem.Stat(entry.Inode)
		if serr != nil {
			return 0, serr
		}
		newCursor = stat.Size + offset
	default:
		newCursor = entry.Cursor
	}
	process.FDs.SetCursor(fd, newCursor)
	return uint64(newCursor), nil
}

func sysRead(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	bufAddr := ctx.SyscallArg(1)
	count := int(ctx.SyscallArg(2))

	entry, err := process.FDs.Get(fd)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, count)
	n, rerr := process.Filesystem.Read(entry.Inode, buf, entry.Cursor)
	if rerr != nil {
		return 0, rerr
	}
	if err := CopyOut(&process.PageTable, bufAddr, buf[:n]); err != nil {
		return 0, err
	}
	process.FDs.SetCursor(fd, entry.Cursor+int64(n))
	return uint64(n), nil
}

func sysWrite(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	bufAddr := ctx.SyscallArg(1)
	count := int(ctx.SyscallArg(2))

	entry, err := process.FDs.Get(fd)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, count)
	if err := CopyIn(&process.PageTable, bufAddr, buf); err != nil {
		return 0, err
	}
	n, werr := process.Filesystem.Write(entry.Inode, buf, entry.Cursor)
	if werr != nil {
		return 0, werr
	}
	process.FDs.SetCursor(fd, entry.Cursor+int64(n))
	return uint64(n), nil
}

// iovec is the 16-byte {base, len} pair readv/writev work over.
type iovec struct {
	Base uint64
	Len  uint64
}

func readIovecs(process *proc.Process, addr uint64, count int) ([]iovec, *kernel.Error) {
	vecs := make([]iovec, count)
	buf := make([]byte, count*16)
	if err := CopyIn(&process.PageTable, addr, buf); err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		vecs[i].Base = leUint64(buf[i*16 : i*16+8])
		vecs[i].Len = leUint64(buf[i*16+8 : i*16+16])
	}
	return vecs, nil
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func sysReadv(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	iovAddr := ctx.SyscallArg(1)
	iovCount := int(ctx.SyscallArg(2))

	entry, err := process.FDs.Get(fd)
	if err != nil {
		return 0, err
	}
	vecs, verr := readIovecs(process, iovAddr, iovCount)
	if verr != nil {
		return 0, verr
	}
	var total int
	cursor := entry.Cursor
	for _, v := range vecs {
		buf := make([]byte, v.Len)
		n, rerr := process.Filesystem.Read(entry.Inode, buf, cursor)
		if rerr != nil {
			return 0, rerr
		}
		if err := CopyOut(&process.PageTable, v.Base, buf[:n]); err != nil {
			return 0, err
		}
		cursor += int64(n)
		total += n
	}
	process.FDs.SetCursor(fd, cursor)
	return uint64(total), nil
}

func sysWritev(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	iovAddr := ctx.SyscallArg(1)
	iovCount := int(ctx.SyscallArg(2))

	entry, err := process.FDs.Get(fd)
	if err != nil {
		return 0, err
	}
	vecs, verr := readIovecs(process, iovAddr, iovCount)
	if verr != nil {
		return 0, verr
	}
	var total int
	cursor := entry.Cursor
	for _, v := range vecs {
		buf := make([]byte, v.Len)
		if err := CopyIn(&process.PageTable, v.Base, buf); err != nil {
			return 0, err
		}
		n, werr := process.Filesystem.Write(entry.Inode, buf, cursor)
		if werr != nil {
			return 0, werr
		}
		cursor += int64(n)
		total += n
	}
	process.FDs.SetCursor(fd, cursor)
	return uint64(total), nil
}

func sysPread(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	bufAddr := ctx.SyscallArg(1)
	count := int(ctx.SyscallArg(2))
	offset := int64(ctx.SyscallArg(3))

	entry, err := process.FDs.Get(fd)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, count)
	n, rerr := process.Filesystem.Read(entry.Inode, buf, offset)
	if rerr != nil {
		return 0, rerr
	}
	if err := CopyOut(&process.PageTable, bufAddr, buf[:n]); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// sysSendfile copies up to count bytes from inFD's cursor into outFD's
// cursor directly through the Filesystem collaborator, without a
// user-space round trip.
func sysSendfile(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	outFD := int(ctx.SyscallArg(0))
	inFD := int(ctx.SyscallArg(1))
	count := int(ctx.SyscallArg(3))

	out, err := process.FDs.Get(outFD)
	if err != nil {
		return 0, err
	}
	in, err := process.FDs.Get(inFD)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, count)
	n, rerr := process.Filesystem.Read(in.Inode, buf, in.Cursor)
	if rerr != nil {
		return 0, rerr
	}
	written, werr := process.Filesystem.Write(out.Inode, buf[:n], out.Cursor)
	if werr != nil {
		return 0, werr
	}
	process.FDs.SetCursor(inFD, in.Cursor+int64(n))
	process.FDs.SetCursor(outFD, out.Cursor+int64(written))
	return uint64(written), nil
}

// sysPpoll reports every polled fd as immediately ready: this core has no
// blocking I/O readiness model (everything the Filesystem collaborator
// serves completes synchronously), so the wait is always a no-op success.
func sysPpoll(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	count := ctx.SyscallArg(1)
	return count, nil
}

// sysReadlinkat is not modeled: the Filesystem collaborator has no symlink
// concept, so this reports ErrFileNotFound rather than inventing one.
func sysReadlinkat(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	return 0, kernel.ErrFileNotFound
}

func encodeStat(s fs.Stat) []byte {
	buf := make([]byte, 128)
	putLE64(buf[48:56], uint64(s.Size))
	putLE32(buf[24:28], s.Mode)
	return buf
}

func putLE64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func putLE32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func sysFstatat(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	path, err := readPath(process, ctx.SyscallArg(1))
	if err != nil {
		return 0, err
	}
	statAddr := ctx.SyscallArg(2)

	in, operr := process.Filesystem.Open(process.CWD, path, 0)
	if operr != nil {
		return 0, operr
	}
	stat, serr := process.Filesystem.Stat(in)
	if serr != nil {
		return 0, serr
	}
	if err := CopyOut(&process.PageTable, statAddr, encodeStat(stat)); err != nil {
		return 0, err
	}
	return 0, nil
}

func sysFstat(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	statAddr := ctx.SyscallArg(1)

	entry, err := process.FDs.Get(fd)
	if err != nil {
		return 0, err
	}
	stat, serr := process.Filesystem.Stat(entry.Inode)
	if serr != nil {
		return 0, serr
	}
	if err := CopyOut(&process.PageTable, statAddr, encodeStat(stat)); err != nil {
		return 0, err
	}
	return 0, nil
}
