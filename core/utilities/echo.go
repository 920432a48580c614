// Package utilities registers the minimal reference command set of
// spec.md §1's Command dispatch mention: echo, cat, printf, tr, sort,
// wc, head, tail, grep, pwd, sleep, curl. Grounded on the same-named
// files in the teacher's commands/ package, trimmed to what a
// registry.Command needs (argv/stdin/stdout/stderr/registry.Session)
// rather than the teacher's vos.VOS-shaped process ABI.
package utilities

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/mistvale/vshell/core/registry"
)

// All maps utility name to implementation.
var All = map[string]registry.CommandFunc{
	"echo":   Echo,
	"cat":    Cat,
	"printf": Printf,
	"tr":     Tr,
	"sort":   Sort,
	"wc":     Wc,
	"head":   Head,
	"tail":   Tail,
	"grep":   Grep,
	"pwd":    Pwd,
	"sleep":  Sleep,
	"curl":   Curl,
}

// Register installs every utility into r.
func Register(r *registry.Registry) {
	for name, f := range All {
		r.Register(name, f)
	}
}

func Names() []string {
	out := make([]string, 0, len(All))
	for k := range All {
		out = append(out, k)
	}
	return out
}

func fail(stderr io.Writer, name string, err error) int {
	fmt.Fprintf(stderr, "%s: %s\n", name, err)
	return 1
}

var (
	unescapeOctal = regexp.MustCompile(`\\0[0-7][0-7]?[0-7]?`)
	unescapeHex   = regexp.MustCompile(`\\x[0-9a-fA-F][0-9a-fA-F]?`)
	unescapeChars = strings.NewReplacer(
		`\n`, "\n",
		`\r`, "\r",
		`\t`, "\t",
		`\\`, `\`,
		`\b`, "\b",
		`\a`, "\a",
		`\f`, "\f",
		`\v`, "\v",
	)
)

// unescape interprets the backslash escapes echo -e and printf support,
// grounded on the teacher's commands/echo.go unescape helper.
func unescape(s string) string {
	s = unescapeChars.Replace(s)
	s = unescapeOctal.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.ParseInt(m[2:], 8, 32)
		if err != nil {
			return m
		}
		return string(rune(n))
	})
	s = unescapeHex.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.ParseInt(m[2:], 16, 32)
		if err != nil {
			return m
		}
		return string(rune(n))
	})
	return s
}

// Echo implements echo [-n] [-e] [ARG]..., grounded on commands/echo.go.
func Echo(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	args := argv[1:]
	escape := false
	suppressNewline := false
	for len(args) > 0 {
		switch args[0] {
		case "-e":
			escape = true
		case "-n":
			suppressNewline = true
		case "-E":
			escape = false
		default:
			goto printed
		}
		args = args[1:]
	}
printed:
	for i, a := range args {
		if i > 0 {
			fmt.Fprint(stdout, " ")
		}
		if escape {
			a = unescape(a)
		}
		fmt.Fprint(stdout, a)
	}
	if !suppressNewline {
		fmt.Fprintln(stdout)
	}
	return 0
}

// Printf implements a minimal printf FORMAT [ARG]..., supporting %s %d
// %% and \n-style escapes, grounded on commands/echo.go's unescape.
func Printf(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	if len(argv) < 2 {
		return fail(stderr, argv[0], fmt.Errorf("usage: printf FORMAT [ARGUMENT]..."))
	}
	format := unescape(argv[1])
	args := argv[2:]
	var out strings.Builder
	argi := 0
	nextArg := func() string {
		if argi < len(args) {
			v := args[argi]
			argi++
			return v
		}
		return ""
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			out.WriteByte(c)
			continue
		}
		i++
		switch format[i] {
		case '%':
			out.WriteByte('%')
		case 's':
			out.WriteString(nextArg())
		case 'd', 'i':
			v, _ := strconv.ParseInt(nextArg(), 10, 64)
			out.WriteString(strconv.FormatInt(v, 10))
		default:
			out.WriteByte('%')
			out.WriteByte(format[i])
		}
	}
	fmt.Fprint(stdout, out.String())
	return 0
}
