package builtins

import (
	"io"
	"strconv"

	"github.com/mistvale/vshell/core/eval"
	"github.com/mistvale/vshell/core/expand"
	"github.com/mistvale/vshell/core/registry"
	"github.com/mistvale/vshell/core/vfs"
)

// biTest implements POSIX test / [ over plain argv strings, distinct
// from cond.go's evalCond which walks parsed [[ ]] AST nodes; test's
// operands never undergo glob or regex treatment (spec §4.5's [[ ]]
// unary/binary operator set applies there instead).
func biTest(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 2
	}
	args := argv[1:]
	if argv[0] == "[" {
		if len(args) == 0 || args[len(args)-1] != "]" {
			return fail(stderr, "[", "missing closing ]")
		}
		args = args[:len(args)-1]
	}
	ok2, err := evalTestArgs(it, args)
	if err != nil {
		return fail(stderr, argv[0], err.Error())
	}
	if ok2 {
		return 0
	}
	return 1
}

func evalTestArgs(it *eval.Interp, args []string) (bool, error) {
	switch len(args) {
	case 0:
		return false, nil
	case 1:
		return args[0] != "", nil
	case 2:
		return evalTestUnary(it, args[0], args[1])
	case 3:
		if v, ok := evalTestBinary(it, args[0], args[1], args[2]); ok {
			return v, nil
		}
		return false, nil
	default:
		return false, nil
	}
}

func evalTestUnary(it *eval.Interp, op, operand string) (bool, error) {
	switch op {
	case "-z":
		return operand == "", nil
	case "-n":
		return operand != "", nil
	case "-e", "-f", "-d", "-r", "-w", "-x", "-s", "-L", "-h", "-p", "-S", "-b", "-c":
		return testFileOp(it, op, operand), nil
	case "-v":
		v := it.Lookup(operand)
		return v.Kind != expand.Unset, nil
	default:
		return false, nil
	}
}

func testFileOp(it *eval.Interp, op, path string) bool {
	st, errno := statPath(it, path)
	if errno != vfs.Success {
		return false
	}
	switch op {
	case "-e":
		return true
	case "-f":
		return !st.IsDir && !st.IsSymlink
	case "-d":
		return st.IsDir
	case "-s":
		return st.Size > 0
	case "-L", "-h":
		return st.IsSymlink
	case "-r", "-w", "-x":
		return true
	default:
		return false
	}
}

func statPath(it *eval.Interp, p string) (vfs.Stat, vfs.Errno) {
	fi, err := it.Filesystem().Stat(p)
	if err != nil {
		return vfs.Stat{}, vfs.ENOENT
	}
	return vfs.Stat{IsDir: fi.IsDir(), Size: fi.Size()}, vfs.Success
}

func evalTestBinary(it *eval.Interp, lhs, op, rhs string) (bool, bool) {
	switch op {
	case "=", "==":
		return lhs == rhs, true
	case "!=":
		return lhs != rhs, true
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		a, errA := strconv.ParseInt(lhs, 10, 64)
		b, errB := strconv.ParseInt(rhs, 10, 64)
		if errA != nil || errB != nil {
			return false, true
		}
		switch op {
		case "-eq":
			return a == b, true
		case "-ne":
			return a != b, true
		case "-lt":
			return a < b, true
		case "-le":
			return a <= b, true
		case "-gt":
			return a > b, true
		case "-ge":
			return a >= b, true
		}
	}
	return false, false
}
