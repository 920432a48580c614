package utilities

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pborman/getopt/v2"

	"github.com/mistvale/vshell/core/registry"
)

func openArgsOrStdin(argv []string, stdin io.Reader, s registry.Session, fn func(io.Reader)) {
	if len(argv) == 0 {
		fn(stdin)
		return
	}
	for _, path := range argv {
		f, err := s.Filesystem().Open(path)
		if err != nil {
			continue
		}
		fn(f)
		f.Close()
	}
}

// Head implements head [-n N] [FILE]..., grounded on the teacher's
// line-oriented stdin consumption pattern (commands/wc.go).
func Head(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	set := getopt.New()
	n := set.IntLong("lines", 'n', 10, "print the first N lines")
	if err := set.Getopt(argv[1:], nil); err != nil {
		return fail(stderr, argv[0], err)
	}
	args := set.Args()
	openArgsOrStdin(args, stdin, s, func(r io.Reader) {
		sc := bufio.NewScanner(r)
		for i := 0; i < *n && sc.Scan(); i++ {
			fmt.Fprintln(stdout, sc.Text())
		}
	})
	return 0
}

// Tail implements tail [-n N] [FILE]..., keeping only the last N lines
// seen in a fixed-size circular slice regardless of input size.
func Tail(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	set := getopt.New()
	n := set.IntLong("lines", 'n', 10, "print the last N lines")
	if err := set.Getopt(argv[1:], nil); err != nil {
		return fail(stderr, argv[0], err)
	}
	args := set.Args()
	openArgsOrStdin(args, stdin, s, func(r io.Reader) {
		if *n <= 0 {
			return
		}
		buf := make([]string, *n)
		count := 0
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			buf[count%*n] = sc.Text()
			count++
		}
		kept := *n
		if count < kept {
			kept = count
		}
		start := count - kept
		for i := 0; i < kept; i++ {
			fmt.Fprintln(stdout, buf[(start+i)%*n])
		}
	})
	return 0
}
