package kmain

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel"
	kboot "github.com/yfblock/oskernel2022-byte-os/kernel/boot"
	"github.com/yfblock/oskernel2022-byte-os/kernel/cpu"
	"github.com/yfblock/oskernel2022-byte-os/kernel/kfmt/early"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/pmm"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/vmm"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/sched"
	"github.com/yfblock/oskernel2022-byte-os/kernel/syscall"
)

// physMemBase/physMemEnd bound the QEMU virt machine's usable RAM window
// this core targets (spec.md §1): RAM starts at the platform's fixed
// 0x8000_0000 load address; physMemEnd is grounded on
// original_source/kernel/src/memory/page.rs's ADDR_END = 0x80800000.
const (
	physMemBase = uintptr(0x8000_0000)
	physMemEnd  = uintptr(0x8080_0000)
)

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. This function is invoked by the rt0 assembly code
// after setting up the trap stack, a minimal g0 struct that allows Go code
// to run on the 4K stack the assembly code allocated, and a bootstrap Sv39
// table that already covers the direct map and an identity range over
// physical RAM — paging is live by the time Kmain runs a single
// instruction. That bootstrap table is what lets pmm.Init below write its
// bookkeeping bitmap through mem.DirectMapBase before any PageTable
// exists, and it is why the dynamic PageTable this function builds can
// zero its own interior nodes through the same direct map. Kmain's job is
// to replace rt0's bootstrap table with a properly tracked one and switch
// satp to it.
//
// The rt0 code passes the physical addresses for the kernel image's start
// and end (the `end` linker symbol original_source/kernel/src/memory/
// page.rs's init() reads). Everything below — the frame allocator, the
// kernel page table, the trap vector, the pid/scheduler machinery — is
// built from those two values alone; parsing a machine-specific memory
// map (multiboot, a device tree blob, ...) stays out of scope (spec.md
// §1), so physMemEnd is a fixed constant rather than something Kmain
// discovers.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the
// CPU.
//
//go:noinline
func Kmain(kernelStart, kernelEnd uintptr) {
	early.Printf("[kmain] kernel image [%x, %x)\n", kernelStart, kernelEnd)

	pmm.Init(kernelEnd, physMemEnd)

	pt, err := vmm.NewPageTable()
	if err != nil {
		kernel.Panic(err)
	}
	vmm.KernelPageTable = &pt

	// Identity-map the RAM window so execution survives the satp switch
	// below (the PC is still fetching through physical addresses at this
	// point), and direct-map the same frames so DirectMapBase-relative
	// dereferences (every PageTable walk, pmm.Init's own bitmap storage)
	// keep working once paging is live.
	for pa := physMemBase; pa < physMemEnd; pa += uintptr(mem.PageSize) {
		frame := pmm.FrameFromAddress(pa)
		if err := pt.Map(mem.VirtAddr(pa), frame, vmm.KernelMapFlags|vmm.FlagExec); err != nil {
			kernel.Panic(err)
		}
		if err := pt.Map(mem.VirtAddr(mem.DirectMapBase+pa), frame, vmm.KernelMapFlags); err != nil {
			kernel.Panic(err)
		}
	}

	cpu.SwitchSATP(pt.Root.Address())
	cpu.InstallTrapVector()

	pids := proc.NewPidTable()
	tids := proc.NewTIDTable()
	scheduler := sched.New(sched.NewBootQueue())

	k := &syscall.Kernel{Pids: pids, TIDs: tids, Sched: scheduler}

	early.Printf("[kmain] boot complete, entering idle loop\n")
	for {
		if scheduler.Idle() {
			if command, ok := scheduler.Boot.Pop(); ok {
				if err := kboot.Spawn(k, command); err != nil {
					early.Printf("[kmain] spawn \"%s\" failed: %s\n", command, err.Message)
				}
				continue
			}
		}
		cpu.Halt()
	}
}
