package utilities

import (
	"fmt"
	"io"

	"github.com/mistvale/vshell/core/registry"
)

// Cat implements cat [FILE]..., grounded on commands/cat.go.
func Cat(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	args := argv[1:]
	if len(args) == 0 {
		io.Copy(stdout, stdin)
		return 0
	}
	status := 0
	for _, path := range args {
		if path == "-" {
			io.Copy(stdout, stdin)
			continue
		}
		f, err := s.Filesystem().Open(path)
		if err != nil {
			fail(stderr, "cat", err)
			status = 1
			continue
		}
		io.Copy(stdout, f)
		f.Close()
	}
	return status
}

// Pwd implements pwd, grounded on commands/pwd.go.
func Pwd(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	fmt.Fprintln(stdout, s.Cwd())
	return 0
}
