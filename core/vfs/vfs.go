// Package vfs implements the in-memory virtual filesystem the shell
// engine runs against. No call ever touches the host filesystem.
package vfs

import (
	wazerosys "github.com/tetratelabs/wazero/experimental/sys"
)

// Errno is the POSIX-style error vocabulary used throughout the VFS,
// reusing wazero's syscall errno type rather than inventing a parallel one.
type Errno = wazerosys.Errno

// Success is the zero Errno, meaning "no error".
const Success wazerosys.Errno = 0

var (
	ENOENT    = wazerosys.ENOENT
	ENOTDIR   = wazerosys.ENOTDIR
	EISDIR    = wazerosys.EISDIR
	EEXIST    = wazerosys.EEXIST
	ELOOP     = wazerosys.ELOOP
	EACCES    = wazerosys.EACCES
	EINVAL    = wazerosys.EINVAL
	ENOTEMPTY = wazerosys.ENOTEMPTY
	EPERM     = wazerosys.EPERM
)

// wazero's experimental/sys package models only the errno subset its own
// WASI host functions raise; it has no ENOSPC or EXDEV, since a WASI guest
// never sees "cross-device link" and wazero itself never rejects a write
// for being out of space. The VFS quota (spec §4.5) and any future
// cross-filesystem rename both need those codes, so they're synthesized
// here, well above wazero's own errno range, using the same Errno type.
const (
	ENOSPC Errno = 1 << 15
	EXDEV  Errno = 1<<15 + 1
)

// Context carries the identity and environment a VFS call is made under:
// the synthetic uid/gid, umask, and the path relative resolution starts
// from. It is passed explicitly rather than stored, matching the "no
// process-wide state" design note.
type Context struct {
	UID   int
	GID   int
	CWD   string
	Umask uint32
}

// IsRoot reports whether the context bypasses permission checks.
func (c Context) IsRoot() bool {
	return c.UID == 0
}

// Error adapts an Errno to the standard error interface with a path for
// context, in the same shape callers of os.PathError expect.
type Error struct {
	Op   string
	Path string
	Err  Errno
}

func (e *Error) Error() string {
	if e == nil || e.Err == Success {
		return ""
	}
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapErrno turns a non-zero Errno into an *Error, or nil for Success.
func WrapErrno(op, path string, errno Errno) error {
	if errno == Success {
		return nil
	}
	return &Error{Op: op, Path: path, Err: errno}
}
