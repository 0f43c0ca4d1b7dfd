package proc

import (
	"github.com/yfblock/oskernel2022-byte-os/kernel"
	"github.com/yfblock/oskernel2022-byte-os/kernel/fs"
)

// FileDescriptor is a small-integer-indexed table entry: an owning handle
// to an opaque fs.Inode plus mode flags and a cursor (spec.md §3). dup
// clones the handle (shared ownership of the Inode via refCount); close
// drops one reference and only calls through to the Filesystem when the
// last reference goes away.
type FileDescriptor struct {
	Inode    fs.Inode
	Flags    uint32
	Cursor   int64
	refCount *int
}

// FDTable is a process-wide table of open file descriptors, indexed by the
// small integer the Filesystem/syscall layer hands back to user space.
type FDTable struct {
	entries map[int]FileDescriptor
	next    int
}

// NewFDTable returns an empty table. fd 0/1/2 (stdin/stdout/stderr) are
// left for the caller to install explicitly via InstallAt, since their
// backing Inode comes from the Console collaborator, not Filesystem.
func NewFDTable() FDTable {
	return FDTable{entries: make(map[int]FileDescriptor), next: 3}
}

// InstallAt inserts fd at a specific index, overwriting whatever was there.
// Used during process setup to wire stdin/stdout/stderr.
func (t *FDTable) InstallAt(fd int, in fs.Inode, flags uint32) {
	if t.entries == nil {
		t.entries = make(map[int]FileDescriptor)
	}
	rc := 1
	t.entries[fd] = FileDescriptor{Inode: in, Flags: flags, refCount: &rc}
	if fd >= t.next {
		t.next = fd + 1
	}
}

// Open allocates the next fd number for in (one past the highest number
// the table has handed out so far) and returns it. Numbers freed by Close
// are not reused.
func (t *FDTable) Open(in fs.Inode, flags uint32) int {
	if t.entries == nil {
		t.entries = make(map[int]FileDescriptor)
	}
	fd := t.next
	t.next++
	rc := 1
	t.entries[fd] = FileDescriptor{Inode: in, Flags: flags, refCount: &rc}
	return fd
}

// Get returns the entry at fd, or ErrNoMatchedFileDesc if fd is not open.
func (t *FDTable) Get(fd int) (FileDescriptor, *kernel.Error) {
	entry, ok := t.entries[fd]
	if !ok {
		return FileDescriptor{}, kernel.ErrNoMatchedFileDesc
	}
	return entry, nil
}

// SetCursor updates the stored cursor for fd, used after read/write/lseek.
func (t *FDTable) SetCursor(fd int, cursor int64) {
	if entry, ok := t.entries[fd]; ok {
		entry.Cursor = cursor
		t.entries[fd] = entry
	}
}

// Dup clones the handle at fd into a freshly allocated descriptor number,
// sharing ownership of the underlying Inode (spec.md §3's dup semantics).
func (t *FDTable) Dup(fd int) (int, *kernel.Error) {
	entry, err := t.Get(fd)
	if err != nil {
		return 0, err
	}
	*entry.refCount++
	newFD := t.next
	t.next++
	t.entries[newFD] = entry
	return newFD, nil
}

// Dup2 clones the handle at fd into newFD specifically, closing whatever
// newFD previously held first.
func (t *FDTable) Dup2(fd, newFD int) *kernel.Error {
	entry, err := t.Get(fd)
	if err != nil {
		return err
	}
	if fd == newFD {
		return nil
	}
	t.closeLocked(newFD, nil)
	*entry.refCount++
	t.entries[newFD] = entry
	if newFD >= t.next {
		t.next = newFD + 1
	}
	return nil
}

// Close drops one reference to fd's Inode, calling through to filesystem
// when the last reference is released.
func (t *FDTable) Close(fd int, filesystem fs.Filesystem) *kernel.Error {
	_, err := t.Get(fd)
	if err != nil {
		return err
	}
	return t.closeLocked(fd, filesystem)
}

func (t *FDTable) closeLocked(fd int, filesystem fs.Filesystem) *kernel.Error {
	entry, ok := t.entries[fd]
	if !ok {
		return nil
	}
	delete(t.entries, fd)
	*entry.refCount--
	if *entry.refCount <= 0 && filesystem != nil {
		return filesystem.Close(entry.Inode)
	}
	return nil
}

// Clone shares every entry in the table with a new FDTable backed by the
// same refCounts — used by clone(CLONE_FILES).
func (t *FDTable) Clone() FDTable {
	clone := FDTable{entries: make(map[int]FileDescriptor, len(t.entries)), next: t.next}
	for fd, entry := range t.entries {
		*entry.refCount++
		clone.entries[fd] = entry
	}
	return clone
}

// CloneWithData deep-clones the table structurally: new descriptor slots
// with fresh refCounts, but referring to the same Inodes (used by fork()-
// style clone without CLONE_FILES, where the child's descriptor table is
// independent but its initial Inode references are shared until closed).
func (t *FDTable) CloneWithData() FDTable {
	clone := FDTable{entries: make(map[int]FileDescriptor, len(t.entries)), next: t.next}
	for fd, entry := range t.entries {
		rc := 1
		clone.entries[fd] = FileDescriptor{Inode: entry.Inode, Flags: entry.Flags, Cursor: entry.Cursor, refCount: &rc}
	}
	return clone
}
