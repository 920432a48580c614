package vfs

import (
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Ino identifies an inode within a Memory filesystem.
type Ino = int64

const maxSymlinkDepth = 40

type kind int

const (
	kindFile kind = iota
	kindDir
	kindSymlink
)

// inode is one node of the tree: a file's bytes, a directory's children,
// or a symlink's target. Directories preserve insertion order in
// childOrder so Listdir results are deterministic.
type inode struct {
	mu sync.Mutex

	ino   Ino
	kind  kind
	mode  uint32
	uid   int
	gid   int
	mtime int64
	atime int64
	ctime int64
	nlink int

	content     []byte
	children    map[string]Ino
	childOrder  []string
	destination string // symlink target
}

func (n *inode) isDir() bool     { return n.kind == kindDir }
func (n *inode) isFile() bool    { return n.kind == kindFile }
func (n *inode) isSymlink() bool { return n.kind == kindSymlink }

// Memory is the in-memory inode tree backing the VFS. All operations are
// synchronous and single-threaded per the engine's cooperative scheduling
// model (spec §5); the mutex only guards against concurrent access from a
// host embedding multiple sessions against shared quota accounting.
type Memory struct {
	mu       sync.Mutex
	inodes   map[Ino]*inode
	inoCtr   atomic.Int64
	now      func() time.Time
	maxBytes int64
	usedBytes int64
}

// NewMemory creates an empty filesystem with just a root directory.
func NewMemory(now func() time.Time, maxBytes int64) *Memory {
	if now == nil {
		now = time.Now
	}
	m := &Memory{
		inodes:   map[Ino]*inode{},
		now:      now,
		maxBytes: maxBytes,
	}
	root := &inode{
		kind:     kindDir,
		mode:     0755,
		children: map[string]Ino{},
		nlink:    2,
	}
	root.mtime = m.now().UnixNano()
	root.ctime = root.mtime
	m.inodes[0] = root
	m.inoCtr.Store(0)
	return m
}

func (m *Memory) insert(n *inode) Ino {
	id := m.inoCtr.Add(1)
	n.ino = id
	m.inodes[id] = n
	return id
}

func (m *Memory) root() *inode { return m.inodes[0] }

// splitClean splits an absolute, already-joined path into components,
// folding "." and ".." the way spec §3's Path resolution requires.
func splitClean(p string) []string {
	p = path.Clean("/" + p)
	if p == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

// resolve walks path components from root, following symlinks up to
// maxSymlinkDepth. If followLast is false, a symlink at the final
// component is returned unresolved (needed by lstat/readlink/unlink).
func (m *Memory) resolve(cwd, p string, followLast bool) (parent *inode, name string, target *inode, errno Errno) {
	if !path.IsAbs(p) {
		p = path.Join(cwd, p)
	}
	depth := 0

restart:
	depth++
	if depth > maxSymlinkDepth {
		return nil, "", nil, ELOOP
	}

	parts := splitClean(p)
	cur := m.root()
	if len(parts) == 0 {
		return nil, "", cur, Success
	}

	for i, part := range parts {
		last := i == len(parts)-1
		if !cur.isDir() {
			return nil, "", nil, ENOTDIR
		}
		childIno, ok := cur.children[part]
		if !ok {
			if last {
				return cur, part, nil, Success
			}
			return nil, "", nil, ENOENT
		}
		child := m.inodes[childIno]

		if child.isSymlink() && (!last || followLast) {
			rest := parts[i+1:]
			newPath := child.destination
			if !path.IsAbs(newPath) {
				newPath = "/" + strings.Join(parts[:i], "/") + "/" + newPath
			}
			if len(rest) > 0 {
				newPath = newPath + "/" + strings.Join(rest, "/")
			}
			p = newPath
			goto restart
		}

		if last {
			return cur, part, child, Success
		}
		cur = child
	}
	return nil, "", cur, Success
}

// Lookup finds the inode at p (following a trailing symlink).
func (m *Memory) Lookup(ctx Context, p string) (*inode, Errno) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _, target, errno := m.resolve(ctx.CWD, p, true)
	if errno != Success {
		return nil, errno
	}
	if target == nil {
		return nil, ENOENT
	}
	return target, Success
}

// Create makes a new regular file at p, failing with EEXIST if it
// already exists.
func (m *Memory) Create(ctx Context, p string, mode uint32) (*inode, Errno) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(ctx, p, mode, kindFile)
}

func (m *Memory) createLocked(ctx Context, p string, mode uint32, k kind) (*inode, Errno) {
	parent, name, existing, errno := m.resolve(ctx.CWD, p, true)
	if errno != Success {
		return nil, errno
	}
	if existing != nil {
		return nil, EEXIST
	}
	if parent == nil || !parent.isDir() {
		return nil, ENOTDIR
	}
	if !checkPerm(ctx, parent, 0x2) {
		return nil, EACCES
	}

	now := m.now().UnixNano()
	n := &inode{
		kind:  k,
		mode:  mode &^ ctx.Umask & 0777,
		uid:   ctx.UID,
		gid:   parent.gid,
		mtime: now,
		ctime: now,
		atime: now,
		nlink: 1,
	}
	if k == kindDir {
		n.children = map[string]Ino{}
		n.nlink = 2
	}
	id := m.insert(n)
	parent.children[name] = id
	parent.childOrder = append(parent.childOrder, name)
	parent.mtime = now
	return n, Success
}

// Mkdir creates a directory at p.
func (m *Memory) Mkdir(ctx Context, p string, mode uint32) Errno {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, errno := m.createLocked(ctx, p, mode, kindDir)
	return errno
}

// MkdirAll creates p and any missing parents.
func (m *Memory) MkdirAll(ctx Context, p string, mode uint32) Errno {
	if !path.IsAbs(p) {
		p = path.Join(ctx.CWD, p)
	}
	parts := splitClean(p)
	cur := "/"
	for _, part := range parts {
		cur = path.Join(cur, part)
		if n, errno := m.Lookup(ctx, cur); errno == Success {
			if !n.isDir() {
				return ENOTDIR
			}
			continue
		}
		if errno := m.Mkdir(ctx, cur, mode); errno != Success && errno != EEXIST {
			return errno
		}
	}
	return Success
}

// Symlink creates a symlink at p pointing to target.
func (m *Memory) Symlink(ctx Context, target, p string) Errno {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, errno := m.createLocked(ctx, p, 0777, kindSymlink)
	if errno != Success {
		return errno
	}
	n.destination = target
	return Success
}

// Readlink returns a symlink's target.
func (m *Memory) Readlink(ctx Context, p string) (string, Errno) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _, target, errno := m.resolve(ctx.CWD, p, false)
	if errno != Success {
		return "", errno
	}
	if target == nil {
		return "", ENOENT
	}
	if !target.isSymlink() {
		return "", EINVAL
	}
	return target.destination, Success
}

// Unlink removes a non-directory entry.
func (m *Memory) Unlink(ctx Context, p string) Errno {
	m.mu.Lock()
	defer m.mu.Unlock()
	parent, name, target, errno := m.resolve(ctx.CWD, p, false)
	if errno != Success {
		return errno
	}
	if target == nil {
		return ENOENT
	}
	if target.isDir() {
		return EISDIR
	}
	if !checkPerm(ctx, parent, 0x2) {
		return EACCES
	}
	m.detach(parent, name)
	target.nlink--
	if target.nlink <= 0 {
		delete(m.inodes, target.ino)
		m.usedBytes -= int64(len(target.content))
	}
	return Success
}

// Rmdir removes an empty directory.
func (m *Memory) Rmdir(ctx Context, p string) Errno {
	m.mu.Lock()
	defer m.mu.Unlock()
	parent, name, target, errno := m.resolve(ctx.CWD, p, false)
	if errno != Success {
		return errno
	}
	if target == nil {
		return ENOENT
	}
	if !target.isDir() {
		return ENOTDIR
	}
	if len(target.children) > 0 {
		return ENOTEMPTY
	}
	if !checkPerm(ctx, parent, 0x2) {
		return EACCES
	}
	m.detach(parent, name)
	delete(m.inodes, target.ino)
	return Success
}

func (m *Memory) detach(parent *inode, name string) {
	delete(parent.children, name)
	for i, n := range parent.childOrder {
		if n == name {
			parent.childOrder = append(parent.childOrder[:i], parent.childOrder[i+1:]...)
			break
		}
	}
	parent.mtime = m.now().UnixNano()
}

// Rename moves oldPath to newPath, atomically (single-threaded engine,
// spec §4.5 Atomicity).
func (m *Memory) Rename(ctx Context, oldPath, newPath string) Errno {
	m.mu.Lock()
	defer m.mu.Unlock()
	oldParent, oldName, target, errno := m.resolve(ctx.CWD, oldPath, false)
	if errno != Success {
		return errno
	}
	if target == nil {
		return ENOENT
	}
	newParent, newName, existing, errno := m.resolve(ctx.CWD, newPath, false)
	if errno != Success {
		return errno
	}
	if existing != nil {
		if existing.isDir() && len(existing.children) > 0 {
			return ENOTEMPTY
		}
		m.detach(newParent, newName)
		delete(m.inodes, existing.ino)
	}
	m.detach(oldParent, oldName)
	newParent.children[newName] = target.ino
	newParent.childOrder = append(newParent.childOrder, newName)
	newParent.mtime = m.now().UnixNano()
	return Success
}

// Truncate sets a file's length, zero-filling on grow.
func (m *Memory) Truncate(ctx Context, p string, size int64) Errno {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _, target, errno := m.resolve(ctx.CWD, p, true)
	if errno != Success {
		return errno
	}
	if target == nil {
		return ENOENT
	}
	if !target.isFile() {
		return EINVAL
	}
	return m.setContentLocked(target, resize(target.content, size))
}

func resize(b []byte, size int64) []byte {
	if int64(len(b)) == size {
		return b
	}
	if int64(len(b)) > size {
		return b[:size]
	}
	out := make([]byte, size)
	copy(out, b)
	return out
}

// WriteAt writes data at offset for the given file, honoring the append
// flag by ignoring offset and appending instead.
func (m *Memory) WriteAt(ctx Context, target *inode, data []byte, offset int64, appendMode bool) (int, Errno) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !target.isFile() {
		return 0, EINVAL
	}
	if appendMode {
		offset = int64(len(target.content))
	}
	end := offset + int64(len(data))
	newLen := end
	if int64(len(target.content)) > newLen {
		newLen = int64(len(target.content))
	}
	grown := newLen - int64(len(target.content))
	if grown > 0 && m.maxBytes > 0 && m.usedBytes+grown > m.maxBytes {
		return 0, ENOSPC
	}
	buf := resize(target.content, newLen)
	copy(buf[offset:], data)
	if errno := m.setContentLocked(target, buf); errno != Success {
		return 0, errno
	}
	return len(data), Success
}

func (m *Memory) setContentLocked(target *inode, content []byte) Errno {
	delta := int64(len(content)) - int64(len(target.content))
	if delta > 0 && m.maxBytes > 0 && m.usedBytes+delta > m.maxBytes {
		return ENOSPC
	}
	target.content = content
	target.mtime = m.now().UnixNano()
	m.usedBytes += delta
	return Success
}

// ReadAt reads up to len(buf) bytes from the file starting at offset.
func (m *Memory) ReadAt(target *inode, buf []byte, offset int64) (int, Errno) {
	if !target.isFile() {
		return 0, EINVAL
	}
	if offset >= int64(len(target.content)) {
		return 0, Success
	}
	n := copy(buf, target.content[offset:])
	return n, Success
}

// Chmod sets an inode's permission bits.
func (m *Memory) Chmod(ctx Context, p string, mode uint32) Errno {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _, target, errno := m.resolve(ctx.CWD, p, true)
	if errno != Success {
		return errno
	}
	if target == nil {
		return ENOENT
	}
	if !ctx.IsRoot() && ctx.UID != target.uid {
		return EPERM
	}
	target.mode = mode & 0777
	target.ctime = m.now().UnixNano()
	return Success
}

// Chown sets an inode's owner.
func (m *Memory) Chown(ctx Context, p string, uid, gid int) Errno {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _, target, errno := m.resolve(ctx.CWD, p, true)
	if errno != Success {
		return errno
	}
	if target == nil {
		return ENOENT
	}
	if !ctx.IsRoot() {
		return EPERM
	}
	target.uid, target.gid = uid, gid
	target.ctime = m.now().UnixNano()
	return Success
}

// Utimes sets an inode's mtime/atime.
func (m *Memory) Utimes(ctx Context, p string, atime, mtime time.Time) Errno {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _, target, errno := m.resolve(ctx.CWD, p, true)
	if errno != Success {
		return errno
	}
	if target == nil {
		return ENOENT
	}
	target.atime = atime.UnixNano()
	target.mtime = mtime.UnixNano()
	return Success
}

// DirEntry describes one entry returned by Listdir.
type DirEntry struct {
	Name  string
	Ino   *inode
}

// Listdir returns a directory's children in insertion order.
func (m *Memory) Listdir(ctx Context, p string) ([]DirEntry, Errno) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _, target, errno := m.resolve(ctx.CWD, p, true)
	if errno != Success {
		return nil, errno
	}
	if target == nil {
		return nil, ENOENT
	}
	if !target.isDir() {
		return nil, ENOTDIR
	}
	out := make([]DirEntry, 0, len(target.childOrder))
	for _, name := range target.childOrder {
		out = append(out, DirEntry{Name: name, Ino: m.inodes[target.children[name]]})
	}
	return out, Success
}

// ListdirSorted is Listdir with names sorted, for commands (e.g. `ls`)
// that want deterministic alphabetical output rather than insertion order.
func (m *Memory) ListdirSorted(ctx Context, p string) ([]DirEntry, Errno) {
	entries, errno := m.Listdir(ctx, p)
	if errno != Success {
		return nil, errno
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, Success
}

// checkPerm is a coarse rwx check against a synthetic uid/gid; root
// bypasses it entirely per spec §4.5.
func checkPerm(ctx Context, n *inode, bit uint32) bool {
	if ctx.IsRoot() || n == nil {
		return true
	}
	var shift uint32
	switch {
	case ctx.UID == n.uid:
		shift = 6
	case ctx.GID == n.gid:
		shift = 3
	default:
		shift = 0
	}
	return n.mode&(bit<<shift) != 0
}

// CheckPerm exposes checkPerm for the afero adapter and command layer.
func (m *Memory) CheckPerm(ctx Context, n *inode, bit uint32) bool {
	return checkPerm(ctx, n, bit)
}

// Stat metadata mirrors what spec §3's Inode carries.
type Stat struct {
	IsDir     bool
	IsSymlink bool
	Mode      uint32
	UID, GID  int
	Mtime     time.Time
	Atime     time.Time
	Ctime     int64
	Size      int64
	Nlink     int
}

func statOf(n *inode) Stat {
	size := int64(0)
	switch n.kind {
	case kindFile:
		size = int64(len(n.content))
	case kindSymlink:
		size = int64(len(n.destination))
	}
	return Stat{
		IsDir:     n.isDir(),
		IsSymlink: n.isSymlink(),
		Mode:      n.mode,
		UID:       n.uid,
		GID:       n.gid,
		Mtime:     time.Unix(0, n.mtime),
		Atime:     time.Unix(0, n.atime),
		Ctime:     n.ctime,
		Size:      size,
		Nlink:     n.nlink,
	}
}

// Stat looks up p (following a trailing symlink) and returns its metadata.
func (m *Memory) Stat(ctx Context, p string) (Stat, Errno) {
	n, errno := m.Lookup(ctx, p)
	if errno != Success {
		return Stat{}, errno
	}
	return statOf(n), Success
}

// Lstat is Stat without following a trailing symlink.
func (m *Memory) Lstat(ctx Context, p string) (Stat, Errno) {
	m.mu.Lock()
	_, _, target, errno := m.resolve(ctx.CWD, p, false)
	m.mu.Unlock()
	if errno != Success {
		return Stat{}, errno
	}
	if target == nil {
		return Stat{}, ENOENT
	}
	return statOf(target), Success
}

// UsedBytes reports current total content bytes, for quota reporting.
func (m *Memory) UsedBytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usedBytes
}
