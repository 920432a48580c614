package builtins

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mistvale/vshell/core/expand"
	"github.com/mistvale/vshell/core/registry"
)

func biCd(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	target := s.Getenv("HOME")
	if len(argv) > 1 {
		target = argv[1]
	}
	if target == "" {
		target = "/"
	}
	if err := s.Chdir(target); err != nil {
		return fail(stderr, argv[0], err.Error())
	}
	return 0
}

func biTrue(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	return 0
}

func biFalse(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	return 1
}

func biShift(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	n := 1
	if len(argv) >= 2 {
		if v, err := strconv.Atoi(argv[1]); err == nil {
			n = v
		}
	}
	if !it.Shift(n) {
		return 1
	}
	return 0
}

// biSet implements a fixed subset of bash's set: -e/+e, -u/+u, -x/+x,
// -o pipefail/+o pipefail, and `set -- args...` for positional
// reassignment (spec §4.3's errexit/nounset/xtrace/pipefail options).
func biSet(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	rest := argv[1:]
	i := 0
	for i < len(rest) {
		tok := rest[i]
		switch {
		case tok == "--":
			i++
			it.SetPositional(rest[i:])
			return 0
		case tok == "-o" || tok == "+o":
			if i+1 >= len(rest) {
				return fail(stderr, argv[0], "-o requires an argument")
			}
			it.SetOpt(rest[i+1], tok == "-o")
			i += 2
		case len(tok) >= 2 && (tok[0] == '-' || tok[0] == '+'):
			on := tok[0] == '-'
			for _, c := range tok[1:] {
				switch c {
				case 'e':
					it.SetOpt("errexit", on)
				case 'u':
					it.SetOpt("nounset", on)
				case 'x':
					it.SetOpt("xtrace", on)
				case 'f':
					it.SetOpt("noglob", on)
				}
			}
			i++
		default:
			it.SetPositional(rest[i:])
			return 0
		}
	}
	return 0
}

func biShopt(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	rest := argv[1:]
	set := true
	i := 0
	if len(rest) > 0 && (rest[0] == "-s" || rest[0] == "-u") {
		set = rest[0] == "-s"
		i = 1
	}
	if i >= len(rest) {
		for _, name := range []string{"nullglob", "extglob", "globstar", "nocaseglob"} {
			state := "off"
			if it.Opt(name) {
				state = "on"
			}
			fmt.Fprintf(stdout, "%s\t%s\n", name, state)
		}
		return 0
	}
	for _, name := range rest[i:] {
		it.SetOpt(name, set)
	}
	return 0
}

func biLet(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	if len(argv) < 2 {
		return fail(stderr, argv[0], "expression expected")
	}
	var last int64
	for _, expr := range argv[1:] {
		n, err := expand.EvalArith(it, expr)
		if err != nil {
			return fail(stderr, argv[0], err.Error())
		}
		last = n
	}
	if last == 0 {
		return 1
	}
	return 0
}

func biWait(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	if len(argv) < 2 {
		it.WaitAll()
		return 0
	}
	status := 0
	for _, a := range argv[1:] {
		pid, err := strconv.Atoi(a)
		if err != nil {
			status = 1
			continue
		}
		st, found := it.WaitJob(pid)
		if !found {
			status = 127
			continue
		}
		status = st
	}
	return status
}

// biMapfile implements mapfile/readarray -t, reading newline-delimited
// stdin into an indexed array (default name MAPFILE), grounded on the
// teacher's line-oriented stdin consumption in commands/wc.go.
func biMapfile(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	name := "MAPFILE"
	for _, a := range argv[1:] {
		if a == "-t" {
			continue
		}
		if !strings.HasPrefix(a, "-") {
			name = a
		}
	}
	sc := bufio.NewScanner(stdin)
	idx := 0
	for sc.Scan() {
		if err := it.SetIndexed(name, idx, sc.Text()); err != nil {
			return fail(stderr, argv[0], err.Error())
		}
		idx++
	}
	return 0
}
