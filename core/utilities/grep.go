package utilities

import (
	"bufio"
	"fmt"
	"io"
	"regexp"

	"github.com/pborman/getopt/v2"

	"github.com/mistvale/vshell/core/registry"
)

// Grep implements grep [-inv] PATTERN [FILE]..., compiling PATTERN as a
// Go regular expression, grounded on commands/grep.go.
func Grep(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	set := getopt.New()
	invert := set.Bool('v', "select non-matching lines")
	ignoreCase := set.Bool('i', "ignore case")
	lineNumbers := set.Bool('n', "show line numbers")
	if err := set.Getopt(argv[1:], nil); err != nil {
		return fail(stderr, argv[0], err)
	}
	args := set.Args()
	if len(args) == 0 {
		return fail(stderr, argv[0], fmt.Errorf("missing argument PATTERN"))
	}
	pattern := args[0]
	if *ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fail(stderr, argv[0], err)
	}

	files := args[1:]
	showFileName := len(files) > 1
	scanOne := func(name string, r io.Reader) {
		sc := bufio.NewScanner(r)
		lineNo := 1
		for sc.Scan() {
			line := sc.Bytes()
			matches := re.Match(line)
			if matches != *invert {
				if showFileName {
					fmt.Fprintf(stdout, "%s:", name)
				}
				if *lineNumbers {
					fmt.Fprintf(stdout, "%d:", lineNo)
				}
				fmt.Fprintf(stdout, "%s\n", line)
			}
			lineNo++
		}
	}

	if len(files) == 0 {
		scanOne("", stdin)
		return 0
	}
	status := 0
	for _, path := range files {
		f, err := s.Filesystem().Open(path)
		if err != nil {
			fail(stderr, argv[0], err)
			status = 1
			continue
		}
		scanOne(path, f)
		f.Close()
	}
	return status
}
