package vfs

import (
	"io"
	"os"
)

// OpenMode mirrors spec §3's redirection target open modes.
type OpenMode int

const (
	ReadOnly OpenMode = iota
	WriteTruncate
	WriteAppend
	ReadWrite
)

// Handle is a positioned, opened reference to a file inode. It is the
// primitive both the afero adapter and the file-backed Stream (core/stream)
// build on.
type Handle struct {
	fs     *Memory
	ctx    Context
	node   *inode
	path   string
	mode   OpenMode
	offset int64
	closed bool
}

// Open resolves path and returns a Handle, creating the file whenever
// create is true and the file is missing, whatever the mode.
func (m *Memory) Open(ctx Context, p string, mode OpenMode, create bool, perm uint32) (*Handle, Errno) {
	n, errno := m.Lookup(ctx, p)
	if errno == ENOENT && create {
		n, errno = m.Create(ctx, p, perm)
	}
	if errno != Success {
		return nil, errno
	}
	if n.isDir() && mode != ReadOnly {
		return nil, EISDIR
	}
	bit := uint32(0x4)
	if mode != ReadOnly {
		bit = 0x2
	}
	if !checkPerm(ctx, n, bit) {
		return nil, EACCES
	}
	h := &Handle{fs: m, ctx: ctx, node: n, path: p, mode: mode}
	if mode == WriteTruncate {
		m.setContentLocked(n, nil)
	}
	if mode == WriteAppend {
		h.offset = int64(len(n.content))
	}
	return h, Success
}

// Read implements io.Reader.
func (h *Handle) Read(p []byte) (int, error) {
	if h.closed {
		return 0, os.ErrClosed
	}
	n, errno := h.fs.ReadAt(h.node, p, h.offset)
	h.offset += int64(n)
	if n == 0 && errno == Success {
		return 0, io.EOF
	}
	return n, WrapErrno("read", h.path, errno)
}

// Write implements io.Writer.
func (h *Handle) Write(p []byte) (int, error) {
	if h.closed {
		return 0, os.ErrClosed
	}
	if h.mode == ReadOnly {
		return 0, WrapErrno("write", h.path, EACCES)
	}
	n, errno := h.fs.WriteAt(h.ctx, h.node, p, h.offset, h.mode == WriteAppend)
	if h.mode != WriteAppend {
		h.offset += int64(n)
	}
	return n, WrapErrno("write", h.path, errno)
}

// Seek implements io.Seeker.
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = h.offset
	case io.SeekEnd:
		base = int64(len(h.node.content))
	}
	h.offset = base + offset
	return h.offset, nil
}

// Close marks the handle unusable. The underlying inode is unaffected.
// Open handles are not counted anywhere: Memory.Unlink drops an inode
// from the tree as soon as its link count reaches zero, whether or not a
// handle is still open on it; such a handle keeps its own reference to
// the inode.
func (h *Handle) Close() error {
	h.closed = true
	return nil
}

// Truncate resizes the underlying file.
func (h *Handle) Truncate(size int64) error {
	return WrapErrno("truncate", h.path, h.fs.Truncate(h.ctx, h.path, size))
}

// Stat returns the handle's current metadata.
func (h *Handle) Stat() (Stat, error) {
	return statOf(h.node), nil
}

// Name returns the path the handle was opened with.
func (h *Handle) Name() string { return h.path }
