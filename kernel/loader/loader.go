// Package loader declares the Loader collaborator (spec.md §1): turning a
// path into a runnable image. Like kernel/fs.Filesystem, this core calls
// through the interface and never ships a concrete implementation —a
// real deployment supplies one wired to whatever executable format
// (ELF, a flat binary, anything else) its Filesystem collaborator
// actually stores.
//
// Grounded on original_source/kernel/src/task/task_queue.rs's exec/
// exec_by_str split: a path plus argv is all exec needs to hand back
// something schedulable, with the actual parsing (xmas-elf in the
// original) kept out of the scheduler/syscall layer entirely.
package loader

import "github.com/yfblock/oskernel2022-byte-os/kernel"

// Segment is one loadable span of an Image: Data is copied to VirtAddr,
// and the remainder up to MemSize (if MemSize > len(Data)) is left
// zero-filled, the same PT_LOAD semantics ELF's bss relies on.
type Segment struct {
	VirtAddr   uintptr
	Data       []byte
	MemSize    uintptr
	Writable   bool
	Executable bool
}

// Image is everything sysExecve/boot.Spawn need to materialize a runnable
// address space from: where each segment belongs, where the stack
// starts, and where execution begins.
type Image struct {
	EntryPC  uintptr
	StackTop uintptr
	Segments []Segment
}

// Loader resolves path (through whatever Filesystem collaborator the
// concrete implementation closes over) and argv/envp into an Image.
type Loader interface {
	Load(path string, argv, envp []string) (Image, *kernel.Error)
}
