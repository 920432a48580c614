package vfs

import (
	"io/fs"
	"os"
	"path"
	"sort"
	"time"

	"github.com/spf13/afero"
)

// AferoFS exposes a Memory tree through the afero.Fs interface so the
// rest of the ecosystem's afero-based tooling (afero.ReadFile,
// afero.WriteFile, test doubles, …) can drive the engine's VFS directly.
type AferoFS struct {
	fs  *Memory
	ctx Context
}

var _ afero.Fs = (*AferoFS)(nil)

// NewAferoFS wraps a Memory tree for the given identity/cwd context.
func NewAferoFS(m *Memory, ctx Context) *AferoFS {
	return &AferoFS{fs: m, ctx: ctx}
}

func toOpenMode(flags int) OpenMode {
	switch {
	case flags&os.O_RDWR != 0:
		return ReadWrite
	case flags&os.O_APPEND != 0:
		return WriteAppend
	case flags&(os.O_WRONLY|os.O_TRUNC|os.O_CREATE) != 0 && flags&os.O_RDONLY == 0:
		return WriteTruncate
	default:
		return ReadOnly
	}
}

func (a *AferoFS) Create(name string) (afero.File, error) {
	return a.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

func (a *AferoFS) Open(name string) (afero.File, error) {
	return a.OpenFile(name, os.O_RDONLY, 0)
}

func (a *AferoFS) OpenFile(name string, flags int, perm os.FileMode) (afero.File, error) {
	h, errno := a.fs.Open(a.ctx, name, toOpenMode(flags), flags&os.O_CREATE != 0, uint32(perm))
	if errno != Success {
		return nil, WrapErrno("open", name, errno)
	}
	return &aferoFile{h: h, fs: a.fs, ctx: a.ctx}, nil
}

func (a *AferoFS) Mkdir(name string, perm os.FileMode) error {
	return WrapErrno("mkdir", name, a.fs.Mkdir(a.ctx, name, uint32(perm)))
}

func (a *AferoFS) MkdirAll(name string, perm os.FileMode) error {
	return WrapErrno("mkdirall", name, a.fs.MkdirAll(a.ctx, name, uint32(perm)))
}

func (a *AferoFS) Remove(name string) error {
	st, errno := a.fs.Lstat(a.ctx, name)
	if errno != Success {
		return WrapErrno("remove", name, errno)
	}
	if st.IsDir {
		return WrapErrno("remove", name, a.fs.Rmdir(a.ctx, name))
	}
	return WrapErrno("remove", name, a.fs.Unlink(a.ctx, name))
}

func (a *AferoFS) RemoveAll(p string) error {
	st, errno := a.fs.Lstat(a.ctx, p)
	if errno == ENOENT {
		return nil
	}
	if errno != Success {
		return WrapErrno("removeall", p, errno)
	}
	if st.IsDir {
		entries, errno := a.fs.Listdir(a.ctx, p)
		if errno != Success && errno != ENOENT {
			return WrapErrno("removeall", p, errno)
		}
		for _, e := range entries {
			if err := a.RemoveAll(path.Join(p, e.Name)); err != nil {
				return err
			}
		}
		return WrapErrno("removeall", p, a.fs.Rmdir(a.ctx, p))
	}
	return WrapErrno("removeall", p, a.fs.Unlink(a.ctx, p))
}

func (a *AferoFS) Rename(oldname, newname string) error {
	return WrapErrno("rename", oldname, a.fs.Rename(a.ctx, oldname, newname))
}

func (a *AferoFS) Stat(name string) (os.FileInfo, error) {
	st, errno := a.fs.Stat(a.ctx, name)
	if errno != Success {
		return nil, WrapErrno("stat", name, errno)
	}
	return fileInfo{name: path.Base(name), st: st}, nil
}

func (a *AferoFS) Name() string { return "vshell.AferoFS" }

func (a *AferoFS) Chmod(name string, mode os.FileMode) error {
	return WrapErrno("chmod", name, a.fs.Chmod(a.ctx, name, uint32(mode)))
}

func (a *AferoFS) Chown(name string, uid, gid int) error {
	return WrapErrno("chown", name, a.fs.Chown(a.ctx, name, uid, gid))
}

func (a *AferoFS) Chtimes(name string, atime, mtime time.Time) error {
	return WrapErrno("chtimes", name, a.fs.Utimes(a.ctx, name, atime, mtime))
}

// SymlinkIfPossible implements afero.Linker.
func (a *AferoFS) SymlinkIfPossible(oldname, newname string) error {
	return WrapErrno("symlink", newname, a.fs.Symlink(a.ctx, oldname, newname))
}

// ReadlinkIfPossible implements afero.LinkReader.
func (a *AferoFS) ReadlinkIfPossible(name string) (string, error) {
	target, errno := a.fs.Readlink(a.ctx, name)
	return target, WrapErrno("readlink", name, errno)
}

type fileInfo struct {
	name string
	st   Stat
}

func (fi fileInfo) Name() string { return fi.name }
func (fi fileInfo) Size() int64  { return fi.st.Size }
func (fi fileInfo) Mode() fs.FileMode {
	m := fs.FileMode(fi.st.Mode)
	if fi.st.IsDir {
		m |= fs.ModeDir
	}
	if fi.st.IsSymlink {
		m |= fs.ModeSymlink
	}
	return m
}
func (fi fileInfo) ModTime() time.Time { return fi.st.Mtime }
func (fi fileInfo) IsDir() bool        { return fi.st.IsDir }
func (fi fileInfo) Sys() any           { return fi.st }

type aferoFile struct {
	h   *Handle
	fs  *Memory
	ctx Context
}

var _ afero.File = (*aferoFile)(nil)

func (f *aferoFile) Close() error                             { return f.h.Close() }
func (f *aferoFile) Read(p []byte) (int, error)                { return f.h.Read(p) }
func (f *aferoFile) Seek(offset int64, whence int) (int64, error) { return f.h.Seek(offset, whence) }
func (f *aferoFile) Write(p []byte) (int, error)               { return f.h.Write(p) }
func (f *aferoFile) Name() string                              { return f.h.Name() }
func (f *aferoFile) Truncate(size int64) error                 { return f.h.Truncate(size) }
func (f *aferoFile) Sync() error                                { return nil }

func (f *aferoFile) ReadAt(p []byte, off int64) (int, error) {
	n, errno := f.fs.ReadAt(f.h.node, p, off)
	return n, WrapErrno("readat", f.h.path, errno)
}

func (f *aferoFile) WriteAt(p []byte, off int64) (int, error) {
	n, errno := f.fs.WriteAt(f.ctx, f.h.node, p, off, false)
	return n, WrapErrno("writeat", f.h.path, errno)
}

func (f *aferoFile) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

func (f *aferoFile) Stat() (fs.FileInfo, error) {
	st, _ := f.h.Stat()
	return fileInfo{name: path.Base(f.h.path), st: st}, nil
}

func (f *aferoFile) Readdir(count int) ([]fs.FileInfo, error) {
	entries, errno := f.fs.Listdir(f.ctx, f.h.path)
	if errno != Success {
		return nil, WrapErrno("readdir", f.h.path, errno)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	if count > 0 && count < len(entries) {
		entries = entries[:count]
	}
	out := make([]fs.FileInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, fileInfo{name: e.Name, st: statOf(e.Ino)})
	}
	return out, nil
}

func (f *aferoFile) Readdirnames(n int) ([]string, error) {
	infos, err := f.Readdir(n)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	return names, nil
}
