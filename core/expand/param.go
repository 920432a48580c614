package expand

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mistvale/vshell/core/ast"
)

// paramResult is one WordPart's contribution to the running field
// buffer, or — for the "${arr[@]}" quoted-array case — a set of already
// final fields that must not be merged with surrounding text.
type paramResult struct {
	text        string
	quoted      bool
	finalFields []string
	isFinal     bool
}

// ExpansionError reports a parameter-expansion failure (spec §7):
// ${x:?msg} on unset, invalid substring, etc. It always terminates the
// enclosing simple command with a nonzero status; it never propagates
// past the command boundary.
type ExpansionError struct {
	Name   string
	Reason string
}

func (e *ExpansionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Reason)
}

func wordPlainText(w *ast.Word) string {
	if w == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range w.Parts {
		if lit, ok := p.(ast.Literal); ok {
			sb.WriteString(lit.Text)
		}
	}
	return sb.String()
}

func expandParamExp(ctx Context, pe ast.ParamExp) (paramResult, error) {
	// ${!prefix*} / ${!prefix@} / ${!arr[@]} / ${!name} indirection.
	if pe.Op == "!" {
		return expandIndirection(ctx, pe)
	}

	if pe.AtStar != 0 && (pe.Name == "@" || pe.Name == "*") {
		// bare $@/$* (no explicit array index syntax): positional params.
	}

	v := ctx.Lookup(pe.Name)
	if v.Kind == Unset && ctx.Opt("nounset") && pe.Op != ":-" && pe.Op != ":=" {
		return paramResult{}, &ExpansionError{Name: pe.Name, Reason: "unbound variable"}
	}

	if pe.Length {
		return lengthResult(ctx, pe, v)
	}

	if pe.AtStar == '@' || pe.AtStar == '*' {
		return expandArraySelector(ctx, pe, v)
	}

	if pe.Index != nil {
		v = indexInto(ctx, pe.Name, v, pe.Index)
	}

	scalar := v.Str
	if v.Kind == Indexed {
		vals := v.IndexedValues()
		if len(vals) > 0 {
			scalar = vals[0]
		} else {
			scalar = ""
		}
	}

	exists := v.Kind != Unset
	scalar, err := applyParamOp(ctx, pe, scalar, exists)
	if err != nil {
		return paramResult{}, err
	}
	return paramResult{text: scalar, quoted: pe.Quoted}, nil
}

func lengthResult(ctx Context, pe ast.ParamExp, v Var) (paramResult, error) {
	switch pe.Name {
	case "@", "*":
		return paramResult{text: strconv.Itoa(positionalCount(ctx))}, nil
	}
	n := 0
	switch v.Kind {
	case Scalar:
		n = len(v.Str)
	case Indexed:
		n = len(v.Idx)
	case Assoc:
		n = len(v.Assoc)
	}
	return paramResult{text: strconv.Itoa(n)}, nil
}

func positionalCount(ctx Context) int {
	v := ctx.Lookup("#")
	n, _ := strconv.Atoi(v.Str)
	return n
}

func expandArraySelector(ctx Context, pe ast.ParamExp, v Var) (paramResult, error) {
	var elems []string
	switch v.Kind {
	case Indexed:
		elems = v.IndexedValues()
	case Assoc:
		keys := make([]string, 0, len(v.Assoc))
		for k := range v.Assoc {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			elems = append(elems, v.Assoc[k])
		}
	case Scalar:
		if pe.Name == "@" || pe.Name == "*" {
			elems = positionalArgs(ctx)
		} else if v.Str != "" {
			elems = []string{v.Str}
		}
	}
	if pe.AtStar == '@' && pe.Quoted {
		return paramResult{finalFields: append([]string(nil), elems...), isFinal: true}, nil
	}
	sep := " "
	if ifs := ctx.IFS(); len(ifs) > 0 {
		sep = ifs[:1]
	} else if ctx.IFS() == "" {
		sep = ""
	}
	if pe.AtStar == '@' {
		sep = " "
	}
	return paramResult{text: strings.Join(elems, sep), quoted: pe.Quoted}, nil
}

func positionalArgs(ctx Context) []string {
	n := positionalCount(ctx)
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, ctx.Lookup(strconv.Itoa(i)).Str)
	}
	return out
}

func indexInto(ctx Context, name string, v Var, idx *ast.Word) Var {
	raw := wordPlainText(idx)
	if v.Kind == Assoc {
		key := raw
		val, ok := v.Assoc[key]
		if !ok {
			return Var{Kind: Unset}
		}
		return Var{Kind: Scalar, Str: val}
	}
	n, err := EvalArith(ctx, raw)
	if err != nil {
		return Var{Kind: Unset}
	}
	if v.Kind == Indexed {
		val, ok := v.Idx[int(n)]
		if !ok {
			return Var{Kind: Unset}
		}
		return Var{Kind: Scalar, Str: val}
	}
	if v.Kind == Scalar && n == 0 {
		return v
	}
	return Var{Kind: Unset}
}

func expandIndirection(ctx Context, pe ast.ParamExp) (paramResult, error) {
	tail := wordPlainText(pe.OpArg)
	if tail == "" {
		tail = pe.Name
	}
	if strings.HasSuffix(tail, "*") || strings.HasSuffix(tail, "@") {
		join := strings.HasSuffix(tail, "*")
		prefix := tail[:len(tail)-1]
		names := ctx.NamesWithPrefix(prefix)
		sort.Strings(names)
		if join {
			return paramResult{text: strings.Join(names, " ")}, nil
		}
		return paramResult{finalFields: names, isFinal: true}, nil
	}
	if idx := strings.IndexByte(tail, '['); idx > 0 && strings.HasSuffix(tail, "]") {
		arrName := tail[:idx]
		sel := tail[idx+1 : len(tail)-1]
		v := ctx.Lookup(arrName)
		if sel == "@" || sel == "*" {
			var keys []string
			switch v.Kind {
			case Indexed:
				for _, k := range v.IndexedKeys() {
					keys = append(keys, strconv.Itoa(k))
				}
			case Assoc:
				for k := range v.Assoc {
					keys = append(keys, k)
				}
				sort.Strings(keys)
			}
			if sel == "@" {
				return paramResult{finalFields: keys, isFinal: true}, nil
			}
			return paramResult{text: strings.Join(keys, " ")}, nil
		}
	}
	// plain indirection: ${!name} -> value of the variable named by $name's value.
	target := ctx.Lookup(tail).Str
	v := ctx.Lookup(target)
	return paramResult{text: v.Str, quoted: pe.Quoted}, nil
}
