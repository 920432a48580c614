// Package registry defines the Command dispatch contract (spec §4.7) and
// a name -> Command lookup table. It deliberately knows nothing about
// the evaluator's internals: core/builtins needs deep session access and
// gets it by type-asserting the Session parameter back to *eval.Interp;
// core/utilities never needs more than what Session exposes here.
package registry

import (
	"io"

	"github.com/spf13/afero"
)

// Session is the narrow slice of shell-session state every Command sees,
// matching the "env/cwd via the passed handle" clause of spec §6.2.
type Session interface {
	Filesystem() afero.Fs
	Getenv(name string) string
	Setenv(name, value string)
	Environ() []string
	Cwd() string
	Chdir(path string) error
	NetworkEnabled() bool
	Cancelled() bool
}

// Command is the uniform contract of spec §4.7:
// invoke(argv, stdin, stdout, stderr, env, cwd, session) -> exit_code.
// argv[0] is the command name. Commands never panic to signal failure;
// internal errors become a nonzero code plus a stderr line.
type Command interface {
	Invoke(argv []string, stdin io.Reader, stdout, stderr io.Writer, session Session) int
}

// CommandFunc adapts a plain function to Command.
type CommandFunc func(argv []string, stdin io.Reader, stdout, stderr io.Writer, session Session) int

func (f CommandFunc) Invoke(argv []string, stdin io.Reader, stdout, stderr io.Writer, session Session) int {
	return f(argv, stdin, stdout, stderr, session)
}

// Registry maps command names to implementations. Builtins and utilities
// share one namespace; spec §4.4 resolves function, then this registry,
// then CommandNotFound — builtins and utilities are told apart only by
// which package registered them.
type Registry struct {
	cmds map[string]Command
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{cmds: map[string]Command{}}
}

// Register adds or replaces the Command bound to name.
func (r *Registry) Register(name string, c Command) {
	r.cmds[name] = c
}

// Lookup returns the Command bound to name, if any.
func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.cmds[name]
	return c, ok
}

// Names returns every registered command name, unordered.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.cmds))
	for n := range r.cmds {
		names = append(names, n)
	}
	return names
}
