package syscall

import (
	"testing"

	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/loader"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/pmm"
	"github.com/yfblock/oskernel2022-byte-os/kernel/mem/vmm"
	"github.com/yfblock/oskernel2022-byte-os/kernel/proc"
	"github.com/yfblock/oskernel2022-byte-os/kernel/sched"
	"github.com/yfblock/oskernel2022-byte-os/kernel/trap"
)

// withFakeVMM installs Go-heap-backed fakes over every vmm frame/contiguous
// allocation hook a fork-style clone touches, so sysClone's address-space
// copy never dereferences the direct physical map a test process doesn't
// have. Mirrors kernel/mem/vmm's own withFakeFrameSpace/
// withFakeContiguousAllocator test helpers, exposed here through vmm's
// exported Fn seams since this package can't reach its private test vars.
func withFakeVMM(t *testing.T) {
	t.Helper()

	origAllocFrame, origFreeFrame, origTablePtr, origZeroFrame, origFlush :=
		vmm.AllocFrameFn, vmm.FreeFrameFn, vmm.TablePtrFn, vmm.ZeroFrameFn, vmm.FlushTLBFn
	origAllocContig, origFreeContig, origMemset, origMemcopy :=
		vmm.AllocContiguousFn, vmm.FreeContiguousFn, vmm.MemsetByteFn, vmm.MemcopyFn
	t.Cleanup(func() {
		vmm.AllocFrameFn, vmm.FreeFrameFn, vmm.TablePtrFn, vmm.ZeroFrameFn, vmm.FlushTLBFn =
			origAllocFrame, origFreeFrame, origTablePtr, origZeroFrame, origFlush
		vmm.AllocContiguousFn, vmm.FreeContiguousFn, vmm.MemsetByteFn, vmm.MemcopyFn =
			origAllocContig, origFreeContig, origMemset, origMemcopy
	})

	tables := make(map[pmm.Frame]*[mem.Sv39EntryCount]vmm.PageTableEntry)
	var nextTable pmm.Frame = 1
	vmm.AllocFrameFn = func() (pmm.Frame, *kernel.Error) {
		f := nextTable
		nextTable++
		tables[f] = &[mem.Sv39EntryCount]vmm.PageTableEntry{}
		return f, nil
	}
	vmm.FreeFrameFn = func(f pmm.Frame) { delete(tables, f) }
	vmm.TablePtrFn = func(f pmm.Frame) *[mem.Sv39EntryCount]vmm.PageTableEntry {
		tbl, ok := tables[f]
		if !ok {
			panic("withFakeVMM: dereference of a frame never allocated through the fake")
		}
		return tbl
	}
	vmm.ZeroFrameFn = func(pmm.Frame) {}
	vmm.FlushTLBFn = func(uintptr) {}

	var nextData pmm.Frame = 1 << 16
	vmm.AllocContiguousFn = func(n uint32) (pmm.Frame, *kernel.Error) {
		start := nextData
		nextData += pmm.Frame(n)
		return start, nil
	}
	vmm.FreeContiguousFn = func(pmm.Frame, uint32) {}
	vmm.MemsetByteFn = func(uintptr, byte, mem.Size) {}
	vmm.MemcopyFn = func(uintptr, uintptr, mem.Size) {}
}

func TestSysGetpidGetppidGettid(t *testing.T) {
	k := newTestKernel()
	task := &proc.Task{TID: 7}
	process := &proc.Process{PID: 3, ParentPID: 1}
	ctx := &trap.Context{}

	if v, err := sysGetpid(k, task, process, ctx); err != nil || v != 3 {
		t.Fatalf("sysGetpid = %d, %v; want 3, nil", v, err)
	}
	if v, err := sysGetppid(k, task, process, ctx); err != nil || v != 1 {
		t.Fatalf("sysGetppid = %d, %v; want 1, nil", v, err)
	}
	if v, err := sysGettid(k, task, process, ctx); err != nil || v != 7 {
		t.Fatalf("sysGettid = %d, %v; want 7, nil", v, err)
	}
}

func TestSysExitSetsExitStatusAndUnwinds(t *testing.T) {
	k := newTestKernel()
	task := &proc.Task{}
	process := &proc.Process{}
	ctx := &trap.Context{}
	ctx.X[trap.RegA0] = 7

	_, err := sysExit(k, task, process, ctx)
	if err != kernel.ErrKillSelfTask {
		t.Fatalf("expected ErrKillSelfTask, got %v", err)
	}
	if !process.ExitStatus.Exited || process.ExitStatus.Code != 7 {
		t.Fatalf("exit status not recorded: %+v", process.ExitStatus)
	}
}

func TestSysSchedYieldAlwaysChangesTask(t *testing.T) {
	k := newTestKernel()
	task := &proc.Task{}
	process := &proc.Process{}
	ctx := &trap.Context{}

	if _, err := sysSchedYield(k, task, process, ctx); err != kernel.ErrChangeTask {
		t.Fatalf("expected ErrChangeTask, got %v", err)
	}
}

func TestSysKillUnknownPidIsError(t *testing.T) {
	k := newTestKernel()
	task := &proc.Task{}
	process := &proc.Process{}
	ctx := &trap.Context{}
	ctx.X[trap.RegA0] = 999

	if _, err := sysKill(k, task, process, ctx); err == nil {
		t.Fatalf("expected an error looking up an unknown pid")
	}
}

func TestSysSetTidAddressRecordsAddr(t *testing.T) {
	k := newTestKernel()
	task := &proc.Task{TID: 5}
	process := &proc.Process{}
	ctx := &trap.Context{}
	ctx.X[trap.RegA0] = 0xcafe

	v, err := sysSetTidAddress(k, task, process, ctx)
	if err != nil || v != 5 {
		t.Fatalf("sysSetTidAddress = %d, %v; want 5, nil", v, err)
	}
	if task.ClearChildTIDAddr != 0xcafe {
		t.Fatalf("expected ClearChildTIDAddr = 0xcafe, got %#x", task.ClearChildTIDAddr)
	}
}

func newCloneTestKernel() (*Kernel, *sched.Scheduler) {
	k := newTestKernel()
	s := sched.New(sched.NewBootQueue())
	s.SwitchSATP = func(uintptr) {}
	k.Sched = s
	return k, s
}

func TestSysCloneWithoutSchedulerIsError(t *testing.T) {
	k := newTestKernel()
	task := &proc.Task{}
	process := &proc.Process{}
	ctx := &trap.Context{}

	if _, err := sysClone(k, task, process, ctx); err == nil {
		t.Fatalf("expected sysClone to report an error without a scheduler")
	}
}

func TestSysCloneThreadSharesProcessAndDoesNotFreeMemSetOnChildExit(t *testing.T) {
	k, s := newCloneTestKernel()
	task := &proc.Task{TID: 1, PID: 5}
	process := &proc.Process{PID: 5}
	process.AddTask()
	s.Add(task, process)

	ctx := &trap.Context{}
	ctx.X[trap.RegA0] = cloneVM | cloneThread

	childTID, err := sysClone(k, task, process, ctx)
	if err != nil {
		t.Fatalf("sysClone failed: %v", err)
	}
	if childTID == uint64(task.TID) {
		t.Fatalf("expected a fresh TID for the cloned thread, got the parent's own %d", childTID)
	}

	if process.Reapable() {
		t.Fatalf("expected process to still have two live tasks after clone")
	}

	// The child thread exits; the process (and its MemSet) must survive
	// since the parent task is still running (spec.md §8.4 scenario 2).
	childProcess := process
	childProcess.RemoveTask()
	if childProcess.Reapable() {
		t.Fatalf("expected the process to remain unreaped with the parent task still alive")
	}
}

func TestSysCloneForkCopiesAddressSpaceAndAssignsFreshPid(t *testing.T) {
	withFakeVMM(t)
	k, s := newCloneTestKernel()
	task := &proc.Task{TID: 1, PID: 3}
	process := &proc.Process{PID: 3}
	process.AddTask()
	s.Add(task, process)

	ctx := &trap.Context{}
	ctx.X[trap.RegA0] = 0 // no CLONE_THREAD: fork-style

	childPID, err := sysClone(k, task, process, ctx)
	if err != nil {
		t.Fatalf("sysClone failed: %v", err)
	}
	if childPID == uint64(process.PID) {
		t.Fatalf("expected a distinct pid for the forked child")
	}

	child, lookupErr := k.Pids.Lookup(int(childPID))
	if lookupErr != nil {
		t.Fatalf("expected the forked child to be registered in the pid table: %v", lookupErr)
	}
	if child.ParentPID != process.PID {
		t.Fatalf("expected forked child's ParentPID %d to be the cloning process's pid %d", child.ParentPID, process.PID)
	}

	found := false
	for _, pid := range process.Children {
		if pid == int(childPID) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected parent to record the forked child as a Child")
	}
}

func TestSysCloneChildSettidWritesChildTID(t *testing.T) {
	withFakeTranslation(t)
	k, s := newCloneTestKernel()
	var pt vmm.PageTable
	task := &proc.Task{TID: 1, PID: 9}
	process := &proc.Process{PID: 9, PageTable: pt}
	process.AddTask()
	s.Add(task, process)

	ctx := &trap.Context{}
	ctx.X[trap.RegA0] = cloneVM | cloneThread | cloneChildSettid
	ctx.X[trap.RegA4] = 0x2000

	childTID, err := sysClone(k, task, process, ctx)
	if err != nil {
		t.Fatalf("sysClone failed: %v", err)
	}

	buf := make([]byte, 4)
	if err := CopyIn(&process.PageTable, 0x2000, buf); err != nil {
		t.Fatalf("CopyIn failed: %v", err)
	}
	got := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	if uint64(got) != childTID {
		t.Fatalf("expected child tid %d written at the CLONE_CHILD_SETTID address, got %d", childTID, got)
	}
}

func TestSysExecveWithoutLoaderIsError(t *testing.T) {
	k := newTestKernel()
	task := &proc.Task{}
	process := &proc.Process{}
	ctx := &trap.Context{}

	if _, err := sysExecve(k, task, process, ctx); err != kernel.ErrFileNotFound {
		t.Fatalf("expected ErrFileNotFound without a Loader, got %v", err)
	}
}

type fakeLoader struct {
	image loader.Image
	err   *kernel.Error
}

func (f fakeLoader) Load(path string, argv, envp []string) (loader.Image, *kernel.Error) {
	return f.image, f.err
}

func TestSysExecveResolvesPathAndPropagatesLoaderError(t *testing.T) {
	withFakeTranslation(t)
	var pt vmm.PageTable

	k := newTestKernel()
	k.Loader = fakeLoader{err: kernel.ErrFileNotFound}
	task := &proc.Task{}
	process := &proc.Process{PageTable: pt}
	ctx := &trap.Context{}

	pathBuf := make([]byte, 16)
	copy(pathBuf, "/bin/sh\x00")
	if err := CopyOut(&process.PageTable, 0, pathBuf); err != nil {
		t.Fatalf("CopyOut failed: %v", err)
	}
	ctx.X[trap.RegA0] = 0

	if _, err := sysExecve(k, task, process, ctx); err != kernel.ErrFileNotFound {
		t.Fatalf("expected the Loader's error to propagate, got %v", err)
	}
}

func TestSysExecveRewritesEntryAndStack(t *testing.T) {
	withFakeTranslation(t)
	var pt vmm.PageTable

	k := newTestKernel()
	k.Loader = fakeLoader{image: loader.Image{
		EntryPC:  0x1000,
		StackTop: 0x7ffff000,
	}}
	task := &proc.Task{}
	process := &proc.Process{PageTable: pt}
	ctx := &trap.Context{}

	pathBuf := make([]byte, 16)
	copy(pathBuf, "/bin/sh\x00")
	if err := CopyOut(&process.PageTable, 0, pathBuf); err != nil {
		t.Fatalf("CopyOut failed: %v", err)
	}
	ctx.X[trap.RegA0] = 0

	if _, err := sysExecve(k, task, process, ctx); err != nil {
		t.Fatalf("sysExecve failed: %v", err)
	}
	if ctx.Sepc != 0x1000 {
		t.Fatalf("expected Sepc rewritten to 0x1000, got %#x", ctx.Sepc)
	}
	if ctx.X[trap.RegSP] != 0x7ffff000 {
		t.Fatalf("expected SP rewritten to stack top, got %#x", ctx.X[trap.RegSP])
	}
}
