package utilities

import (
	"fmt"
	"io"
	"unicode"

	"github.com/pborman/getopt/v2"

	"github.com/mistvale/vshell/core/registry"
)

// wcCount tallies lines/words/bytes/chars the same way commands/wc.go's
// wcCount does, as an io.Writer sink fed by io.Copy.
type wcCount struct {
	bytes, lines, chars, words int
	name                       string
	inSpace                    bool
}

func (w *wcCount) Write(data []byte) (int, error) {
	for _, c := range data {
		isFirstByte := w.bytes == 0
		w.bytes++
		if c < 0b10000000 || c > 0b10111111 {
			w.chars++
		}
		if c == '\n' {
			w.lines++
		}
		if unicode.IsSpace(rune(c)) {
			w.inSpace = true
		} else {
			if w.inSpace || isFirstByte {
				w.words++
			}
			w.inSpace = false
		}
	}
	return len(data), nil
}

func (w *wcCount) add(o *wcCount) {
	w.bytes += o.bytes
	w.chars += o.chars
	w.lines += o.lines
	w.words += o.words
}

// Wc implements wc [-lwcm] [FILE...], grounded on commands/wc.go.
func Wc(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	set := getopt.New()
	lines := set.Bool('l', "print the newline count")
	words := set.Bool('w', "print the word count")
	bytesFlag := set.Bool('c', "print the byte count")
	chars := set.Bool('m', "print the character count")
	if err := set.Getopt(argv[1:], nil); err != nil {
		return fail(stderr, argv[0], err)
	}
	args := set.Args()

	anyPicked := *lines || *words || *bytesFlag || *chars
	nonePicked := !anyPicked

	var cols []func(*wcCount) string
	if *lines || nonePicked {
		cols = append(cols, func(c *wcCount) string { return fmt.Sprint(c.lines) })
	}
	if *words || nonePicked {
		cols = append(cols, func(c *wcCount) string { return fmt.Sprint(c.words) })
	}
	if *bytesFlag || nonePicked {
		cols = append(cols, func(c *wcCount) string { return fmt.Sprint(c.bytes) })
	}
	if *chars {
		cols = append(cols, func(c *wcCount) string { return fmt.Sprint(c.chars) })
	}

	display := func(c *wcCount) {
		for i, col := range cols {
			if i != 0 {
				fmt.Fprint(stdout, " ")
			}
			fmt.Fprint(stdout, col(c))
		}
		if c.name != "" {
			fmt.Fprintf(stdout, " %s", c.name)
		}
		fmt.Fprintln(stdout)
	}

	if len(args) == 0 {
		count := &wcCount{}
		if _, err := io.Copy(count, stdin); err != nil {
			return fail(stderr, argv[0], err)
		}
		display(count)
		return 0
	}

	var counts []*wcCount
	for _, path := range args {
		f, err := s.Filesystem().Open(path)
		if err != nil {
			fail(stderr, argv[0], err)
			continue
		}
		count := &wcCount{name: path}
		_, copyErr := io.Copy(count, f)
		f.Close()
		if copyErr != nil {
			fail(stderr, argv[0], copyErr)
			continue
		}
		counts = append(counts, count)
	}
	total := &wcCount{name: "total"}
	for _, c := range counts {
		total.add(c)
		display(c)
	}
	if len(counts) > 1 {
		display(total)
	}
	return 0
}
