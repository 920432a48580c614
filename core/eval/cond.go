package eval

import (
	"regexp"

	"github.com/mistvale/vshell/core/ast"
	"github.com/mistvale/vshell/core/expand"
	"github.com/mistvale/vshell/core/vfs"
)

// checkPermStat mirrors vfs's unexported checkPerm against a Stat
// snapshot, since [[ -r/-w/-x ]] only has the resolved Stat, not the
// inode CheckPerm needs.
func checkPermStat(ctx vfs.Context, st vfs.Stat, bit uint32) bool {
	if ctx.IsRoot() {
		return true
	}
	var shift uint32
	switch {
	case ctx.UID == st.UID:
		shift = 6
	case ctx.GID == st.GID:
		shift = 3
	default:
		shift = 0
	}
	return st.Mode&(bit<<shift) != 0
}

// evalCond evaluates a [[ ... ]] extended test expression (spec §3):
// operands are expanded without word splitting or globbing, matching
// bash's double-bracket semantics.
func (it *Interp) evalCond(e ast.CondExpr) (bool, error) {
	switch x := e.(type) {
	case ast.CondWord:
		s, err := it.ExpandWordText(x.W)
		if err != nil {
			return false, err
		}
		return s != "", nil
	case ast.CondNot:
		v, err := it.evalCond(x.X)
		if err != nil {
			return false, err
		}
		return !v, nil
	case ast.CondAnd:
		v, err := it.evalCond(x.X)
		if err != nil || !v {
			return false, err
		}
		return it.evalCond(x.Y)
	case ast.CondOr:
		v, err := it.evalCond(x.X)
		if err != nil {
			return false, err
		}
		if v {
			return true, nil
		}
		return it.evalCond(x.Y)
	case ast.CondUnary:
		return it.evalCondUnary(x)
	case ast.CondBinary:
		return it.evalCondBinary(x)
	}
	return false, nil
}

func (it *Interp) evalCondUnary(u ast.CondUnary) (bool, error) {
	arg, err := it.ExpandWordText(u.Arg)
	if err != nil {
		return false, err
	}
	switch u.Op {
	case "-z":
		return arg == "", nil
	case "-n":
		return arg != "", nil
	case "-v":
		return it.lookupValue(arg) != nil, nil
	case "-e", "-f", "-d", "-r", "-w", "-x", "-s", "-L", "-h", "-p", "-S", "-b", "-c":
		st, errno := it.fsRoot.Stat(it.fsCtx, it.resolvePath(arg))
		if errno != vfs.Success {
			return false, nil
		}
		switch u.Op {
		case "-e":
			return true, nil
		case "-f":
			return !st.IsDir && !st.IsSymlink, nil
		case "-d":
			return st.IsDir, nil
		case "-s":
			return st.Size > 0, nil
		case "-L", "-h":
			return st.IsSymlink, nil
		case "-r":
			return checkPermStat(it.fsCtx, st,0o4), nil
		case "-w":
			return checkPermStat(it.fsCtx, st,0o2), nil
		case "-x":
			return checkPermStat(it.fsCtx, st,0o1), nil
		default:
			return false, nil
		}
	}
	return false, nil
}

func (it *Interp) evalCondBinary(b ast.CondBinary) (bool, error) {
	left, err := it.ExpandWordText(b.Left)
	if err != nil {
		return false, err
	}
	switch b.Op {
	case "=", "==":
		right, err := it.ExpandWordText(b.Right)
		if err != nil {
			return false, err
		}
		return expand.GlobMatch(right, left), nil
	case "!=":
		right, err := it.ExpandWordText(b.Right)
		if err != nil {
			return false, err
		}
		return !expand.GlobMatch(right, left), nil
	case "<":
		right, err := it.ExpandWordText(b.Right)
		if err != nil {
			return false, err
		}
		return left < right, nil
	case ">":
		right, err := it.ExpandWordText(b.Right)
		if err != nil {
			return false, err
		}
		return left > right, nil
	case "=~":
		pattern, err := it.ExpandWordText(b.Right)
		if err != nil {
			return false, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(left), nil
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		right, err := it.ExpandWordText(b.Right)
		if err != nil {
			return false, err
		}
		ln, err := expand.EvalArith(it, left)
		if err != nil {
			return false, err
		}
		rn, err := expand.EvalArith(it, right)
		if err != nil {
			return false, err
		}
		switch b.Op {
		case "-eq":
			return ln == rn, nil
		case "-ne":
			return ln != rn, nil
		case "-lt":
			return ln < rn, nil
		case "-le":
			return ln <= rn, nil
		case "-gt":
			return ln > rn, nil
		case "-ge":
			return ln >= rn, nil
		}
	case "-nt", "-ot", "-ef":
		right, err := it.ExpandWordText(b.Right)
		if err != nil {
			return false, err
		}
		ls, lerr := it.fsRoot.Stat(it.fsCtx, it.resolvePath(left))
		rs, rerr := it.fsRoot.Stat(it.fsCtx, it.resolvePath(right))
		switch b.Op {
		case "-nt":
			return lerr == vfs.Success && (rerr != vfs.Success || ls.Mtime.After(rs.Mtime)), nil
		case "-ot":
			return rerr == vfs.Success && (lerr != vfs.Success || ls.Mtime.Before(rs.Mtime)), nil
		default:
			return lerr == vfs.Success && rerr == vfs.Success && ls.Ctime == rs.Ctime, nil
		}
	}
	return false, nil
}
