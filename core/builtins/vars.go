package builtins

import (
	"fmt"
	"io"
	"strings"

	getopt "github.com/pborman/getopt/v2"

	"github.com/mistvale/vshell/core/eval"
	"github.com/mistvale/vshell/core/registry"
)

// declareFlags mirrors the teacher's getopt-per-builtin idiom (see
// core/shell_builtins.go's Unset) for declare/typeset/local's attribute
// switches (spec §3's Integer/Lower/Upper/Exported/Readonly attributes).
type declareFlags struct {
	array   bool
	assoc   bool
	integer bool
	export  bool
	readonly bool
	lower   bool
	upper   bool
	print   bool
}

func parseDeclareFlags(argv []string) (declareFlags, []string, error) {
	set := getopt.New()
	array := set.Bool('a', "declare an indexed array")
	assoc := set.Bool('A', "declare an associative array")
	integer := set.Bool('i', "declare an integer")
	export := set.Bool('x', "export to environment")
	readonly := set.Bool('r', "mark readonly")
	lower := set.Bool('l', "convert to lowercase on assign")
	upper := set.Bool('u', "convert to uppercase on assign")
	print := set.Bool('p', "print attributes")
	if err := set.Getopt(argv, nil); err != nil {
		return declareFlags{}, nil, err
	}
	fl := declareFlags{
		array:    *array,
		assoc:    *assoc,
		integer:  *integer,
		export:   *export,
		readonly: *readonly,
		lower:    *lower,
		upper:    *upper,
		print:    *print,
	}
	return fl, set.Args(), nil
}

func applyDeclareFlags(it *eval.Interp, name string, fl declareFlags) error {
	return it.SetVarAttrs(name, func(a *eval.Attrs) {
		if fl.export {
			a.Exported = true
		}
		if fl.readonly {
			a.Readonly = true
		}
		if fl.integer {
			a.Integer = true
		}
		if fl.lower {
			a.Lower = true
		}
		if fl.upper {
			a.Upper = true
		}
	})
}

func declareLike(argv []string, stdout, stderr io.Writer, s registry.Session, local bool) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	fl, rest, err := parseDeclareFlags(argv[1:])
	if err != nil {
		return fail(stderr, argv[0], err.Error())
	}
	if len(rest) == 0 {
		for _, name := range it.NamesWithPrefix("") {
			fmt.Fprintf(stdout, "%s=%s\n", name, it.Getenv(name))
		}
		return 0
	}
	status := 0
	for _, operand := range rest {
		name, value, hasValue := strings.Cut(operand, "=")
		if local {
			if err := it.DeclareLocal(name, ""); err != nil {
				fmt.Fprintf(stderr, "%s: %s: %s\n", argv[0], name, err)
				status = 1
				continue
			}
		}
		if fl.array {
			if err := it.SetIndexed(name, 0, ""); err != nil {
				fmt.Fprintf(stderr, "%s: %s: %s\n", argv[0], name, err)
				status = 1
				continue
			}
		} else if fl.assoc {
			if err := it.SetAssoc(name, "", ""); err != nil {
				fmt.Fprintf(stderr, "%s: %s: %s\n", argv[0], name, err)
				status = 1
				continue
			}
		} else if hasValue {
			if err := it.SetVar(name, value); err != nil {
				fmt.Fprintf(stderr, "%s: %s: %s\n", argv[0], name, err)
				status = 1
				continue
			}
		} else if !local {
			if _, exists := attrsIfSet(it, name); !exists {
				it.SetVar(name, "")
			}
		}
		if err := applyDeclareFlags(it, name, fl); err != nil {
			fmt.Fprintf(stderr, "%s: %s: %s\n", argv[0], name, err)
			status = 1
		}
	}
	return status
}

func attrsIfSet(it *eval.Interp, name string) (eval.Attrs, bool) {
	a := it.VarAttrs(name)
	return a, a != (eval.Attrs{})
}

func biDeclare(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	return declareLike(argv, stdout, stderr, s, false)
}

func biLocal(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	return declareLike(argv, stdout, stderr, s, true)
}

func biReadonly(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	status := 0
	for _, operand := range argv[1:] {
		name, value, hasValue := strings.Cut(operand, "=")
		if hasValue {
			if err := it.SetVar(name, value); err != nil {
				fmt.Fprintf(stderr, "%s: %s: %s\n", argv[0], name, err)
				status = 1
				continue
			}
		}
		if err := it.SetVarAttrs(name, func(a *eval.Attrs) { a.Readonly = true }); err != nil {
			fmt.Fprintf(stderr, "%s: %s: %s\n", argv[0], name, err)
			status = 1
		}
	}
	return status
}

func biExport(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	rest := argv[1:]
	if len(rest) > 0 && rest[0] == "-p" {
		for _, kv := range it.Environ() {
			fmt.Fprintf(stdout, "export %s\n", kv)
		}
		return 0
	}
	status := 0
	for _, operand := range rest {
		name, value, hasValue := strings.Cut(operand, "=")
		if hasValue {
			if err := it.SetVar(name, value); err != nil {
				fmt.Fprintf(stderr, "%s: %s: %s\n", argv[0], name, err)
				status = 1
				continue
			}
		}
		if err := it.SetVarAttrs(name, func(a *eval.Attrs) { a.Exported = true }); err != nil {
			fmt.Fprintf(stderr, "%s: %s: %s\n", argv[0], name, err)
			status = 1
		}
	}
	return status
}

func biUnset(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	rest := argv[1:]
	funcMode := false
	for len(rest) > 0 && (rest[0] == "-f" || rest[0] == "-v") {
		funcMode = rest[0] == "-f"
		rest = rest[1:]
	}
	status := 0
	for _, name := range rest {
		if funcMode {
			it.UnsetFunction(name)
			continue
		}
		if err := it.Unset(name); err != nil {
			fmt.Fprintf(stderr, "%s: %s: %s\n", argv[0], name, err)
			status = 1
		}
	}
	return status
}

func biAlias(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	if len(argv) < 2 {
		for _, name := range it.AliasNames() {
			v, _ := it.Alias(name)
			fmt.Fprintf(stdout, "alias %s='%s'\n", name, v)
		}
		return 0
	}
	status := 0
	for _, operand := range argv[1:] {
		name, value, hasValue := strings.Cut(operand, "=")
		if !hasValue {
			v, ok := it.Alias(name)
			if !ok {
				fmt.Fprintf(stderr, "%s: %s: not found\n", argv[0], name)
				status = 1
				continue
			}
			fmt.Fprintf(stdout, "alias %s='%s'\n", name, v)
			continue
		}
		it.SetAlias(name, value)
	}
	return status
}

func biUnalias(argv []string, stdin io.Reader, stdout, stderr io.Writer, s registry.Session) int {
	it, ok := session(s)
	if !ok {
		return 1
	}
	rest := argv[1:]
	if len(rest) > 0 && rest[0] == "-a" {
		for _, name := range it.AliasNames() {
			it.UnAlias(name)
		}
		return 0
	}
	for _, name := range rest {
		it.UnAlias(name)
	}
	return 0
}
