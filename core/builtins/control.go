package builtins

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/mistvale/vshell/core/eval"
	"github.com/mistvale/vshell/core/registry"
)

func biColon(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	return 0
}

func biSource(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok || len(argv) < 2 {
		return fail(stderr, argv[0], "filename argument required")
	}
	data, err := afero.ReadFile(s.Filesystem(), argv[1])
	if err != nil {
		return fail(stderr, argv[0], err.Error())
	}
	sc, err := eval.ParseScript(string(data))
	if err != nil {
		return fail(stderr, argv[0], err.Error())
	}
	status, _ := it.ExecScript(sc, stdin, stdout, stderr)
	return status
}

func biBreak(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	n := parseLevel(argv)
	it.RaiseBreak(n)
	return 0
}

func biContinue(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	n := parseLevel(argv)
	it.RaiseContinue(n)
	return 0
}

func parseLevel(argv []string) int {
	if len(argv) < 2 {
		return 1
	}
	n, err := strconv.Atoi(argv[1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func biExit(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	status := it.Status()
	if len(argv) >= 2 {
		if n, err := strconv.Atoi(argv[1]); err == nil {
			status = n
		}
	}
	status = status & 0xff
	it.RaiseExit(status)
	return status
}

func biReturn(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	status := it.Status()
	if len(argv) >= 2 {
		if n, err := strconv.Atoi(argv[1]); err == nil {
			status = n
		}
	}
	it.RaiseReturn(status)
	return status
}

func biExec(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	if len(argv) < 2 {
		return 0
	}
	status, found := it.DispatchRegistered(argv[1:], stdin, stdout, stderr)
	if !found {
		fmt.Fprintf(stderr, "%s: %s: not found\n", argv[0], argv[1])
		it.RaiseExit(127)
		return 127
	}
	it.RaiseExit(status)
	return status
}

func biEval(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	src := strings.Join(argv[1:], " ")
	if src == "" {
		return 0
	}
	sc, err := eval.ParseScript(src)
	if err != nil {
		return fail(stderr, argv[0], err.Error())
	}
	status, _ := it.ExecScript(sc, stdin, stdout, stderr)
	return status
}

func biCommand(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok || len(argv) < 2 {
		return 0
	}
	rest := argv[1:]
	for len(rest) > 0 && rest[0] == "-p" {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return 0
	}
	status, found := it.DispatchRegistered(rest, stdin, stdout, stderr)
	if !found {
		fmt.Fprintf(stderr, "%s: %s: not found\n", argv[0], rest[0])
		return 127
	}
	return status
}

func biBuiltin(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok || len(argv) < 2 {
		return 0
	}
	status, found := it.DispatchRegistered(argv[1:], stdin, stdout, stderr)
	if !found {
		fmt.Fprintf(stderr, "%s: %s: not a shell builtin\n", argv[0], argv[1])
		return 1
	}
	return status
}

func biType(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	status := 0
	builtinSet := map[string]bool{}
	for _, n := range Names() {
		builtinSet[n] = true
	}
	for _, name := range argv[1:] {
		switch {
		case func() bool { _, ok := it.Function(name); return ok }():
			fmt.Fprintf(stdout, "%s is a function\n", name)
		case builtinSet[name]:
			fmt.Fprintf(stdout, "%s is a shell builtin\n", name)
		default:
			if it.IsRegistered(name) {
				fmt.Fprintf(stdout, "%s is %s\n", name, name)
			} else {
				fmt.Fprintf(stdout, "%s: not found\n", name)
				status = 1
			}
		}
	}
	return status
}
