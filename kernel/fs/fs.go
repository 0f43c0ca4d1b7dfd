// Package fs declares the Filesystem collaborator boundary (spec.md §1):
// the kernel core delegates every filesystem syscall to an implementation
// of this interface (a FAT32 driver over a block device, in the reference
// design) rather than embedding one. Only the contract lives here.
package fs

import "github.com/yfblock/oskernel2022-byte-os/kernel"

// Inode is an opaque handle to an open file or directory. The kernel core
// never inspects its contents; it only threads the value through
// FileDescriptor entries and back to the Filesystem that issued it.
type Inode interface{}

// DirEntry is one entry returned by Readdir.
type DirEntry struct {
	Name  string
	Inode Inode
	IsDir bool
}

// Stat is the subset of file metadata the syscall layer needs to answer
// fstat/fstatat/statfs.
type Stat struct {
	Size  int64
	IsDir bool
	Mode  uint32
}

// Filesystem is the external collaborator backing every filesystem
// syscall in spec.md §6.2's catalogue. A kernel build wires in one
// implementation (e.g. a FAT32 driver over a block device) at boot; this
// core only calls through the interface.
type Filesystem interface {
	// Open resolves path relative to cwd (the caller's Inode, or nil for
	// the filesystem root) and returns the resolved Inode. flags carries the OR of O_CREAT/O_DIRECTORY/... bits the
	// openat syscall was given.
	Open(cwd Inode, path string, flags uint32) (Inode, *kernel.Error)

	Close(in Inode) *kernel.Error

	Read(in Inode, buf []byte, offset int64) (int, *kernel.Error)
	Write(in Inode, buf []byte, offset int64) (int, *kernel.Error)

	Stat(in Inode) (Stat, *kernel.Error)
	Readdir(in Inode) ([]DirEntry, *kernel.Error)

	Mkdir(cwd Inode, path string) *kernel.Error
	Unlink(cwd Inode, path string) *kernel.Error

	// Root returns the Inode for the filesystem's root directory, used to
	// seed a new process's cwd.
	Root() Inode
}
