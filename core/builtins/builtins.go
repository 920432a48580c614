// Package builtins implements the POSIX/bash builtins spec.md §4.7
// requires: `: . [ alias break builtin cd command continue declare eval
// exec exit export false let local mapfile readarray readonly return
// set shift shopt source test true type typeset unalias unset wait`.
//
// Grounded on the teacher's core/shell_builtins.go AllBuiltins/
// ShellBuiltinFunc registration pattern, adapted from that package's
// closed *Shell receiver to registry.Command's Session-parameterized
// contract: every builtin here type-asserts registry.Session back to
// *eval.Interp for the scope-frame/option-table access the narrow
// Session interface deliberately does not expose (spec §4.7's Command
// contract is intentionally minimal; core/eval.Interp is the
// implementation detail builtins alone are allowed to reach past it for).
package builtins

import (
	"fmt"
	"io"

	"github.com/mistvale/vshell/core/eval"
	"github.com/mistvale/vshell/core/registry"
)

// All maps builtin name to implementation, mirroring the teacher's
// AllBuiltins package-level table.
var All = map[string]registry.CommandFunc{}

func add(name string, f registry.CommandFunc) { All[name] = f }

// Register installs every builtin into r.
func Register(r *registry.Registry) {
	for name, f := range All {
		r.Register(name, f)
	}
}

// Names lists every builtin name, used by the `type` builtin to report
// "shell builtin" rather than "function" or "not found".
func Names() []string {
	out := make([]string, 0, len(All))
	for k := range All {
		out = append(out, k)
	}
	return out
}

// session type-asserts a registry.Session back to *eval.Interp, which
// every builtin here needs for scope/option/function-table access.
func session(s registry.Session) (*eval.Interp, bool) {
	it, ok := s.(*eval.Interp)
	return it, ok
}

func fail(stderr io.Writer, name, msg string) int {
	fmt.Fprintf(stderr, "%s: %s\n", name, msg)
	return 1
}

func init() {
	add(":", biColon)
	add(".", biSource)
	add("source", biSource)
	add("break", biBreak)
	add("continue", biContinue)
	add("exit", biExit)
	add("return", biReturn)
	add("exec", biExec)
	add("eval", biEval)
	add("command", biCommand)
	add("builtin", biBuiltin)
	add("type", biType)

	add("declare", biDeclare)
	add("typeset", biDeclare)
	add("local", biLocal)
	add("readonly", biReadonly)
	add("export", biExport)
	add("unset", biUnset)
	add("alias", biAlias)
	add("unalias", biUnalias)

	add("test", biTest)
	add("[", biTest)

	add("cd", biCd)
	add("true", biTrue)
	add("false", biFalse)
	add("shift", biShift)
	add("set", biSet)
	add("shopt", biShopt)
	add("let", biLet)
	add("wait", biWait)
	add("mapfile", biMapfile)
	add("readarray", biMapfile)
}
