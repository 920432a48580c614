package eval

import (
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/mistvale/vshell/core/ast"
	"github.com/mistvale/vshell/core/lexer"
	"github.com/mistvale/vshell/core/vfs"
)

// resolvePath joins a possibly-relative path against the interpreter's
// current working directory, mirroring Chdir's own resolution.
func (it *Interp) resolvePath(p string) string {
	if strings.HasPrefix(p, "/") {
		return path.Clean(p)
	}
	return path.Clean(path.Join(it.fsCtx.CWD, p))
}

type savedFD struct {
	n   int
	had bool
	old fd
}

// applyRedirects opens each redirect's target in textual order against
// the current filesystem and fd table (spec §3), returning the ioSet a
// command body should read/write through and a restore func that closes
// anything opened here and undoes fd-table mutations. Redirects targeting
// fd 0/1/2 flow through the returned ioSet; any other fd is threaded
// through the interpreter's own descriptor table (dup2/dup3-style) so a
// later `>&5` inside the same command can see it.
func (it *Interp) applyRedirects(rs []*ast.Redirect, io_ ioSet) (ioSet, func(), error) {
	cur := io_
	var closers []io.Closer
	var saved []savedFD

	restore := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
		for i := len(saved) - 1; i >= 0; i-- {
			s := saved[i]
			if s.had {
				it.fds[s.n] = s.old
			} else {
				delete(it.fds, s.n)
			}
		}
	}

	set := func(n int, f fd) {
		switch n {
		case 0:
			cur.in = f.r
		case 1:
			cur.out = f.w
		case 2:
			cur.errW = f.w
		default:
			old, had := it.fds[n]
			saved = append(saved, savedFD{n: n, had: had, old: old})
			it.fds[n] = f
		}
	}

	get := func(n int) (io.Reader, io.Writer) {
		switch n {
		case 0:
			return cur.in, nil
		case 1:
			return nil, cur.out
		case 2:
			return nil, cur.errW
		default:
			if f, ok := it.fds[n]; ok {
				return f.r, f.w
			}
			return nil, nil
		}
	}

	for _, r := range rs {
		fdNum := r.FD
		if !r.HasFD {
			switch r.Op {
			case ast.RedirIn, ast.RedirHeredoc, ast.RedirHeredocStrip, ast.RedirHerestring, ast.RedirReadWrite:
				fdNum = 0
			default:
				fdNum = 1
			}
		}

		switch r.Op {
		case ast.RedirIn, ast.RedirReadWrite:
			target, err := it.ExpandWordText(r.Target)
			if err != nil {
				restore()
				return cur, func() {}, err
			}
			mode := vfs.ReadOnly
			if r.Op == ast.RedirReadWrite {
				mode = vfs.ReadWrite
			}
			h, errno := it.fsRoot.Open(it.fsCtx, it.resolvePath(target), mode, false, 0)
			if errno != vfs.Success {
				restore()
				return cur, func() {}, vfs.WrapErrno("open", target, errno)
			}
			closers = append(closers, h)
			set(fdNum, fd{r: h, c: h})

		case ast.RedirOut, ast.RedirAppend:
			target, err := it.ExpandWordText(r.Target)
			if err != nil {
				restore()
				return cur, func() {}, err
			}
			mode := vfs.WriteTruncate
			if r.Op == ast.RedirAppend {
				mode = vfs.WriteAppend
			}
			h, errno := it.fsRoot.Open(it.fsCtx, it.resolvePath(target), mode, true, 0644)
			if errno != vfs.Success {
				restore()
				return cur, func() {}, vfs.WrapErrno("open", target, errno)
			}
			closers = append(closers, h)
			set(fdNum, fd{w: h, c: h})

		case ast.RedirHeredoc, ast.RedirHeredocStrip:
			body := r.HeredocBody
			if r.Op == ast.RedirHeredocStrip {
				body = stripHeredocTabs(body)
			}
			if !r.HeredocQuoted {
				expanded, err := it.expandHeredocBody(body)
				if err != nil {
					restore()
					return cur, func() {}, err
				}
				body = expanded
			}
			set(fdNum, fd{r: strings.NewReader(body)})

		case ast.RedirHerestring:
			text, err := it.ExpandWordText(r.Target)
			if err != nil {
				restore()
				return cur, func() {}, err
			}
			set(fdNum, fd{r: strings.NewReader(text + "\n")})

		case ast.RedirDupIn, ast.RedirDupOut:
			text, err := it.ExpandWordText(r.Target)
			if err != nil {
				restore()
				return cur, func() {}, err
			}
			if text == "-" {
				set(fdNum, fd{})
				continue
			}
			srcFd, err := strconv.Atoi(text)
			if err != nil {
				restore()
				return cur, func() {}, err
			}
			rd, wr := get(srcFd)
			set(fdNum, fd{r: rd, w: wr})
		}
	}
	return cur, restore, nil
}

// expandHeredocBody re-lexes an unquoted here-document body for
// parameter/command/arithmetic expansion (spec §4.1) and runs it through
// the same expansion pipeline as a double-quoted word, so field splitting
// and globbing stay suppressed the way POSIX requires for here-doc text.
func (it *Interp) expandHeredocBody(body string) (string, error) {
	parts, err := lexer.LexHeredocBody(body)
	if err != nil {
		return "", err
	}
	w := &ast.Word{Parts: parts}
	return it.ExpandWordText(w)
}

func stripHeredocTabs(body string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimLeft(l, "\t")
	}
	return strings.Join(lines, "\n")
}
