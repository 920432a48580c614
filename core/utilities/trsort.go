package utilities

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pborman/getopt/v2"

	"github.com/mistvale/vshell/core/registry"
)

// Tr implements tr [-d] SET1 [SET2], character transliteration/deletion
// over stdin, the subset SPEC_FULL.md's reference set calls for.
func Tr(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	set := getopt.New()
	del := set.Bool('d', "delete characters in SET1")
	if err := set.Getopt(argv[1:], nil); err != nil {
		return fail(stderr, argv[0], err)
	}
	args := set.Args()
	if len(args) == 0 {
		return fail(stderr, argv[0], fmt.Errorf("usage: tr [-d] SET1 [SET2]"))
	}
	set1 := expandSet(unescapeTrSet(args[0]))

	data, err := io.ReadAll(stdin)
	if err != nil {
		return fail(stderr, argv[0], err)
	}

	if *del {
		toDelete := map[rune]bool{}
		for _, c := range set1 {
			toDelete[c] = true
		}
		var out strings.Builder
		for _, c := range string(data) {
			if !toDelete[c] {
				out.WriteRune(c)
			}
		}
		io.WriteString(stdout, out.String())
		return 0
	}

	if len(args) < 2 {
		return fail(stderr, argv[0], fmt.Errorf("tr: missing SET2"))
	}
	set2 := expandSet(unescapeTrSet(args[1]))
	mapping := map[rune]rune{}
	for i, c := range set1 {
		r := c
		if i < len(set2) {
			r = set2[i]
		} else if len(set2) > 0 {
			r = set2[len(set2)-1]
		}
		mapping[c] = r
	}
	var out strings.Builder
	for _, c := range string(data) {
		if r, ok := mapping[c]; ok {
			out.WriteRune(r)
		} else {
			out.WriteRune(c)
		}
	}
	io.WriteString(stdout, out.String())
	return 0
}

// unescapeTrSet interprets the backslash escapes POSIX tr recognizes
// within a SET operand (\n, \t, \\, and friends) ahead of expandSet's
// range expansion, the way real tr does — needed for `tr " " "\n"` to
// mean an actual newline rather than the two literal characters.
func unescapeTrSet(spec string) string {
	var out strings.Builder
	runes := []rune(spec)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '\\' || i+1 >= len(runes) {
			out.WriteRune(runes[i])
			continue
		}
		switch runes[i+1] {
		case 'n':
			out.WriteRune('\n')
		case 't':
			out.WriteRune('\t')
		case 'r':
			out.WriteRune('\r')
		case '\\':
			out.WriteRune('\\')
		case '0':
			out.WriteRune(0)
		default:
			out.WriteRune(runes[i+1])
		}
		i++
	}
	return out.String()
}

// expandSet interprets a-z style ranges within a tr SET operand.
func expandSet(spec string) []rune {
	runes := []rune(spec)
	var out []rune
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && runes[i+1] == '-' {
			for c := runes[i]; c <= runes[i+2]; c++ {
				out = append(out, c)
			}
			i += 2
			continue
		}
		out = append(out, runes[i])
	}
	return out
}

// Sort implements sort [-r] [-n] [FILE]..., grounded on the teacher's
// pattern of reading whole files then writing to stdout (commands/cat.go).
func Sort(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	set := getopt.New()
	reverse := set.Bool('r', "reverse the result of comparisons")
	numeric := set.Bool('n', "compare according to string numerical value")
	unique := set.Bool('u', "output only the first of an equal run")
	if err := set.Getopt(argv[1:], nil); err != nil {
		return fail(stderr, argv[0], err)
	}
	args := set.Args()

	var lines []string
	readLines := func(r io.Reader) {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
	}
	if len(args) == 0 {
		readLines(stdin)
	} else {
		for _, path := range args {
			f, err := s.Filesystem().Open(path)
			if err != nil {
				fail(stderr, argv[0], err)
				continue
			}
			readLines(f)
			f.Close()
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		less := lines[i] < lines[j]
		if *numeric {
			less = numericLess(lines[i], lines[j])
		}
		if *reverse {
			return !less
		}
		return less
	})

	if *unique {
		lines = dedupeAdjacent(lines)
	}

	for _, l := range lines {
		fmt.Fprintln(stdout, l)
	}
	return 0
}

func numericLess(a, b string) bool {
	na, oka := leadingNumber(a)
	nb, okb := leadingNumber(b)
	if oka && okb {
		return na < nb
	}
	return a < b
}

func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '-' || s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	var f float64
	if _, err := fmt.Sscanf(s[:end], "%g", &f); err != nil {
		return 0, false
	}
	return f, true
}

func dedupeAdjacent(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	out := lines[:1]
	for _, l := range lines[1:] {
		if l != out[len(out)-1] {
			out = append(out, l)
		}
	}
	return out
}
