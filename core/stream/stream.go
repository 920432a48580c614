// Package stream implements spec §4.6's StreamIO: byte sinks/sources for
// stdin/stdout/stderr, pipes, and here-docs, unified behind one Stream
// interface so the evaluator wires them into commands uniformly.
package stream

import (
	"bytes"
	"io"
	"sync"

	"github.com/mistvale/vshell/core/vfs"
)

// Stream is a byte sink or source: read(n), write(bytes), close(),
// is_closed, exactly as spec §4.6 describes it.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
	Closed() bool
}

// Memory is an in-memory buffer stream: captured stdout, here-doc bodies,
// here-strings. Reads drain what has been written so far and report
// io.EOF whenever the buffer is empty, whether or not Close has been
// called.
type Memory struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

// NewMemory returns an empty Memory stream.
func NewMemory() *Memory { return &Memory{} }

// NewMemoryString returns a Memory stream pre-loaded and closed for
// writing, the shape a here-doc or here-string body arrives in.
func NewMemoryString(s string) *Memory {
	m := &Memory{}
	m.buf.WriteString(s)
	m.closed = true
	return m
}

func (m *Memory) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.buf.Len() == 0 {
		return 0, io.EOF
	}
	return m.buf.Read(p)
}

func (m *Memory) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.ErrClosedPipe
	}
	return m.buf.Write(p)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Bytes returns a snapshot of everything written so far without
// consuming it, used to capture command-substitution output.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.buf.Bytes()...)
}

// Pipe is a bounded byte queue: writes block while the buffer is full,
// reads block while it is empty and not yet closed for writing (spec
// §4.6, §5's "bounded pipe" suspension point). Bash-shell pipelines are
// modeled here as goroutines rather than the spec's literal single
// cooperative thread — see core/eval's package doc for why — so this
// type uses a mutex/condvar instead of the spec's cooperative
// suspend/resume, while preserving the same blocking observable
// behavior.
type Pipe struct {
	mu      sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	buf     []byte
	max     int
	wClosed bool
	rClosed bool
}

// NewPipe returns a Pipe bounded at max bytes (spec §5's 1 MiB default
// pipe-buffer limit).
func NewPipe(max int) *Pipe {
	p := &Pipe{max: max}
	p.notEmpty = sync.NewCond(&p.mu)
	p.notFull = sync.NewCond(&p.mu)
	return p
}

func (p *Pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	written := 0
	for len(b) > 0 {
		if p.wClosed {
			return written, io.ErrClosedPipe
		}
		if p.rClosed {
			return written, io.ErrClosedPipe
		}
		space := p.max - len(p.buf)
		if space <= 0 {
			p.notFull.Wait()
			continue
		}
		n := space
		if n > len(b) {
			n = len(b)
		}
		p.buf = append(p.buf, b[:n]...)
		b = b[n:]
		written += n
		p.notEmpty.Broadcast()
	}
	return written, nil
}

func (p *Pipe) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.buf) == 0 {
		if p.wClosed {
			return 0, io.EOF
		}
		p.notEmpty.Wait()
	}
	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	p.notFull.Broadcast()
	return n, nil
}

// Close closes the write side, the conventional half-close for a
// pipeline stage that has finished producing output.
func (p *Pipe) Close() error {
	p.mu.Lock()
	p.wClosed = true
	p.notEmpty.Broadcast()
	p.mu.Unlock()
	return nil
}

// CloseRead closes the read side, unblocking any writer with
// io.ErrClosedPipe — used to unwind a cancelled downstream stage.
func (p *Pipe) CloseRead() error {
	p.mu.Lock()
	p.rClosed = true
	p.notFull.Broadcast()
	p.mu.Unlock()
	return nil
}

func (p *Pipe) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wClosed
}

// File is a Stream positioned over a VFS inode via a vfs.Handle (spec
// §4.6's "file" stream kind), used for `<`, `>`, `>>` redirection
// targets.
type File struct {
	h *vfs.Handle
}

// NewFile wraps an already-opened VFS handle as a Stream.
func NewFile(h *vfs.Handle) *File { return &File{h: h} }

func (f *File) Read(p []byte) (int, error)  { return f.h.Read(p) }
func (f *File) Write(p []byte) (int, error) { return f.h.Write(p) }
func (f *File) Close() error                { return f.h.Close() }
func (f *File) Closed() bool                { return false }

// Null discards all writes and yields EOF on read, standing in for
// `/dev/null`-style redirection without needing a VFS entry.
type Null struct{}

func (Null) Read([]byte) (int, error)  { return 0, io.EOF }
func (Null) Write(p []byte) (int, error) { return len(p), nil }
func (Null) Close() error              { return nil }
func (Null) Closed() bool              { return false }
