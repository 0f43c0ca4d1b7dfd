package syscall

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/sync"
	"github.com/yfblock/oskernel2022-byte-os/kernel/trap"
)

// Sockets in this core are a minimal AF_UNIX-style loopback: a pair of fds
// can connect() to each other and exchange datagrams through an in-memory
// queue. No real network stack is modeled (spec.md's Non-goals exclude a
// TCP/IP stack); this exists only so workloads that probe for socket(2)
// before falling back to files still get a coherent errno rather than a
// hang, matching the original's own placeholder sys_socket family.
type loopbackSocket struct {
	mu      sync.IRQLock
	peer    *loopbackSocket
	inbox   [][]byte
	bound   bool
	address string
}

var socketsMu sync.IRQLock
var sockets = map[int]*loopbackSocket{}
var nextSocketFD = 512 // sits well above ordinary fd range to avoid collisions

func newSocketFD() int {
	socketsMu.Acquire()
	defer socketsMu.Release()
	fd := nextSocketFD
	nextSocketFD++
	sockets[fd] = &loopbackSocket{}
	return fd
}

func lookupSocket(fd int) (*loopbackSocket, *kernel.Error) {
	socketsMu.Acquire()
	defer socketsMu.Release()
	s, ok := sockets[fd]
	if !ok {
		return nil, kernel.ErrNoMatchedFileDesc
	}
	return s, nil
}

func sysSocket(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	return uint64(newSocketFD()), nil
}

func sysBind(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	addrAddr := ctx.SyscallArg(1)
	addrLen := int(ctx.SyscallArg(2))

	s, err := lookupSocket(fd)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, addrLen)
	if err := CopyIn(&process.PageTable, addrAddr, buf); err != nil {
		return 0, err
	}
	s.mu.Acquire()
	s.bound = true
	s.address = string(buf)
	s.mu.Release()
	return 0, nil
}

// sysListen is a no-op success: every loopback socket is always ready to
// accept a connect(), there is no backlog to size.
func sysListen(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	if _, err := lookupSocket(fd); err != nil {
		return 0, err
	}
	return 0, nil
}

// sysConnect pairs this socket with whichever bound socket shares its
// target address; no match is a hard failure (no listening socket yet).
func sysConnect(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	addrAddr := ctx.SyscallArg(1)
	addrLen := int(ctx.SyscallArg(2))

	s, err := lookupSocket(fd)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, addrLen)
	if err := CopyIn(&process.PageTable, addrAddr, buf); err != nil {
		return 0, err
	}
	target := string(buf)

	socketsMu.Acquire()
	var peer *loopbackSocket
	for _, candidate := range sockets {
		candidate.mu.Acquire()
		if candidate.bound && candidate.address == target {
			peer = candidate
		}
		candidate.mu.Release()
		if peer != nil {
			break
		}
	}
	socketsMu.Release()
	if peer == nil {
		return 0, kernel.ErrNoMatchedFileDesc
	}

	s.mu.Acquire()
	s.peer = peer
	s.mu.Release()
	peer.mu.Acquire()
	peer.peer = s
	peer.mu.Release()
	return 0, nil
}

func sysGetsockname(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	addrAddr := ctx.SyscallArg(1)

	s, err := lookupSocket(fd)
	if err != nil {
		return 0, err
	}
	s.mu.Acquire()
	addr := []byte(s.address)
	s.mu.Release()
	if err := CopyOut(&process.PageTable, addrAddr, addr); err != nil {
		return 0, err
	}
	return 0, nil
}

func sysSendto(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	bufAddr := ctx.SyscallArg(1)
	length := int(ctx.SyscallArg(2))

	s, err := lookupSocket(fd)
	if err != nil {
		return 0, err
	}
	data := make([]byte, length)
	if err := CopyIn(&process.PageTable, bufAddr, data); err != nil {
		return 0, err
	}

	s.mu.Acquire()
	peer := s.peer
	s.mu.Release()
	if peer == nil {
		return 0, kernel.ErrNoMatchedFileDesc
	}
	peer.mu.Acquire()
	peer.inbox = append(peer.inbox, data)
	peer.mu.Release()
	return uint64(length), nil
}

func sysRecvfrom(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	bufAddr := ctx.SyscallArg(1)
	length := int(ctx.SyscallArg(2))

	s, err := lookupSocket(fd)
	if err != nil {
		return 0, err
	}

	s.mu.Acquire()
	if len(s.inbox) == 0 {
		s.mu.Release()
		if k.Sched != nil {
			k.Sched.YieldCurrent()
		}
		return 0, kernel.ErrChangeTask
	}
	datagram := s.inbox[0]
	s.inbox = s.inbox[1:]
	s.mu.Release()

	if len(datagram) > length {
		datagram = datagram[:length]
	}
	if err := CopyOut(&process.PageTable, bufAddr, datagram); err != nil {
		return 0, err
	}
	return uint64(len(datagram)), nil
}

// sysSetsockopt is a no-op success: no loopback socket option this core
// exposes changes observable behaviour.
func sysSetsockopt(k *Kernel, task *proc.Task, process *proc.Process, ctx *trap.Context) (uint64, *kernel.Error) {
	fd := int(ctx.SyscallArg(0))
	if _, err := lookupSocket(fd); err != nil {
		return 0, err
	}
	return 0, nil
}
