// Package expand implements the word-expansion pipeline of spec §4.3:
// brace, tilde, parameter/variable, command substitution, arithmetic
// expansion, quote-aware field splitting, pathname expansion, and quote
// removal. It depends only on core/ast and afero (for globbing),
// never on core/eval — core/eval instead implements the Context
// interface below, which keeps the dependency edge one-directional.
package expand

import "github.com/mistvale/vshell/core/ast"

// VarKind distinguishes the three shapes a shell Value can take (spec §3).
type VarKind int

const (
	Unset VarKind = iota
	Scalar
	Indexed
	Assoc
)

// Var is the read view of one variable the expander needs. Indexed
// arrays are represented as a sparse map keyed by non-negative index,
// matching spec §3's "sparse, keyed by non-negative integer".
type Var struct {
	Kind  VarKind
	Str   string
	Idx   map[int]string
	Assoc map[string]string
}

// IndexedKeys returns the populated indices of an Indexed var, sorted.
func (v Var) IndexedKeys() []int {
	keys := make([]int, 0, len(v.Idx))
	for k := range v.Idx {
		keys = append(keys, k)
	}
	sortInts(keys)
	return keys
}

// IndexedValues returns the elements of an Indexed var in index order.
func (v Var) IndexedValues() []string {
	keys := v.IndexedKeys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = v.Idx[k]
	}
	return out
}

func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1] > a[j]; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}

// Context is the slice of evaluator/session state the expander needs.
// core/eval.Interp implements this structurally; core/expand never
// imports core/eval, avoiding an import cycle (SPEC_FULL.md Evaluator
// section).
type Context interface {
	// Lookup returns the current value of name, or a zero Var with
	// Kind==Unset if it is not set. Name resolution (nameref chains,
	// scope-frame walking) is entirely the Context's business.
	Lookup(name string) Var
	SetVar(name, value string) error
	SetIndexed(name string, index int, value string) error
	SetAssoc(name, key, value string) error
	Unset(name string) error

	// IFS returns the current field separator, defaulting to " \t\n".
	IFS() string
	// Opt reports a shell option (nounset, noglob, globstar, failglob,
	// nullglob, extglob, errexit, ...).
	Opt(name string) bool

	// HomeDir resolves ~ (user=="") or ~user to a home directory.
	HomeDir(user string) (string, bool)

	// RunCommandSubstitution parses+evaluates raw as a script in a
	// subshell and returns its captured, trailing-newline-stripped
	// stdout.
	RunCommandSubstitution(raw string) (string, error)

	// Glob expands pattern against the VFS, relative to the current cwd
	// for non-absolute patterns.
	Glob(pattern string) ([]string, error)

	// Pid returns the synthetic $$ for this session.
	Pid() int

	// NamesWithPrefix supports ${!prefix*}/${!prefix@}.
	NamesWithPrefix(prefix string) []string

	// ExpandWordText expands the parts of a *ast.Word without brace
	// expansion, field splitting, or pathname expansion and returns all
	// of the result joined into one string, used by
	// operators whose argument is itself expanded (${x:-default}, etc).
	ExpandWordText(w *ast.Word) (string, error)
}
