package expand

import (
	"strings"
	"unicode"

	"github.com/mistvale/vshell/core/ast"
)

// applyParamOp implements the operator table of spec §4.3 item 3.
func applyParamOp(ctx Context, pe ast.ParamExp, scalar string, exists bool) (string, error) {
	switch pe.Op {
	case "":
		return scalar, nil
	case ":-":
		if !exists || scalar == "" {
			return ctx.ExpandWordText(pe.OpArg)
		}
		return scalar, nil
	case "-":
		if !exists {
			return ctx.ExpandWordText(pe.OpArg)
		}
		return scalar, nil
	case ":=":
		if !exists || scalar == "" {
			def, err := ctx.ExpandWordText(pe.OpArg)
			if err != nil {
				return "", err
			}
			if err := ctx.SetVar(pe.Name, def); err != nil {
				return "", err
			}
			return def, nil
		}
		return scalar, nil
	case "=":
		if !exists {
			def, err := ctx.ExpandWordText(pe.OpArg)
			if err != nil {
				return "", err
			}
			if err := ctx.SetVar(pe.Name, def); err != nil {
				return "", err
			}
			return def, nil
		}
		return scalar, nil
	case ":+":
		if exists && scalar != "" {
			return ctx.ExpandWordText(pe.OpArg)
		}
		return "", nil
	case "+":
		if exists {
			return ctx.ExpandWordText(pe.OpArg)
		}
		return "", nil
	case ":?":
		if !exists || scalar == "" {
			msg, _ := ctx.ExpandWordText(pe.OpArg)
			if msg == "" {
				msg = "parameter null or not set"
			}
			return "", &ExpansionError{Name: pe.Name, Reason: msg}
		}
		return scalar, nil
	case "?":
		if !exists {
			msg, _ := ctx.ExpandWordText(pe.OpArg)
			if msg == "" {
				msg = "parameter not set"
			}
			return "", &ExpansionError{Name: pe.Name, Reason: msg}
		}
		return scalar, nil
	case ":":
		return substringOp(ctx, pe, scalar)
	case "#":
		pat, err := ctx.ExpandWordText(pe.OpArg)
		if err != nil {
			return "", err
		}
		return trimPrefixGlob(scalar, pat, false), nil
	case "##":
		pat, err := ctx.ExpandWordText(pe.OpArg)
		if err != nil {
			return "", err
		}
		return trimPrefixGlob(scalar, pat, true), nil
	case "%":
		pat, err := ctx.ExpandWordText(pe.OpArg)
		if err != nil {
			return "", err
		}
		return trimSuffixGlob(scalar, pat, false), nil
	case "%%":
		pat, err := ctx.ExpandWordText(pe.OpArg)
		if err != nil {
			return "", err
		}
		return trimSuffixGlob(scalar, pat, true), nil
	case "/", "//", "/#", "/%":
		return replaceOp(ctx, pe, scalar)
	case "^":
		pat, _ := ctx.ExpandWordText(pe.OpArg)
		return caseOp(scalar, pat, true, false), nil
	case "^^":
		pat, _ := ctx.ExpandWordText(pe.OpArg)
		return caseOp(scalar, pat, true, true), nil
	case ",":
		pat, _ := ctx.ExpandWordText(pe.OpArg)
		return caseOp(scalar, pat, false, false), nil
	case ",,":
		pat, _ := ctx.ExpandWordText(pe.OpArg)
		return caseOp(scalar, pat, false, true), nil
	case "@":
		return transformOp(pe, scalar)
	}
	return scalar, nil
}

func substringOp(ctx Context, pe ast.ParamExp, scalar string) (string, error) {
	off, err := EvalArith(ctx, wordPlainText(pe.OpArg))
	if err != nil {
		return "", err
	}
	n := int64(len(scalar))
	if off < 0 {
		off = n + off
		if off < 0 {
			off = 0
		}
	}
	if off > n {
		off = n
	}
	if pe.OpArg2 == nil {
		return scalar[off:], nil
	}
	ln, err := EvalArith(ctx, wordPlainText(pe.OpArg2))
	if err != nil {
		return "", err
	}
	end := off + ln
	if ln < 0 {
		end = n + ln
	}
	if end < off {
		end = off
	}
	if end > n {
		end = n
	}
	return scalar[off:end], nil
}

func replaceOp(ctx Context, pe ast.ParamExp, scalar string) (string, error) {
	pat, err := ctx.ExpandWordText(pe.OpArg)
	if err != nil {
		return "", err
	}
	repl := ""
	if pe.OpArg2 != nil {
		repl, err = ctx.ExpandWordText(pe.OpArg2)
		if err != nil {
			return "", err
		}
	}
	all := pe.Op == "//"
	anchorStart := pe.Op == "/#"
	anchorEnd := pe.Op == "/%"
	return globReplace(scalar, pat, repl, all, anchorStart, anchorEnd), nil
}

func caseOp(s, pattern string, upper, all bool) string {
	if s == "" {
		return s
	}
	transform := func(r byte) byte {
		if upper {
			return byte(unicode.ToUpper(rune(r)))
		}
		return byte(unicode.ToLower(rune(r)))
	}
	b := []byte(s)
	if all {
		for i := range b {
			if pattern == "" || globMatch(pattern, string(b[i])) {
				b[i] = transform(b[i])
			}
		}
	} else if pattern == "" || globMatch(pattern, string(b[0])) {
		b[0] = transform(b[0])
	}
	return string(b)
}

func transformOp(pe ast.ParamExp, scalar string) (string, error) {
	switch wordPlainText(pe.OpArg) {
	case "Q":
		return shellQuote(scalar), nil
	case "E":
		return interpretBackslashEscapes(scalar), nil
	case "P":
		return scalar, nil
	case "A":
		return pe.Name + "=" + shellQuote(scalar), nil
	case "a":
		return "", nil
	}
	return scalar, nil
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// interpretBackslashEscapes implements the small ANSI-C subset $'...'
// and `@E` transforms rely on: \n \t \r \\ \' \" \a \b \f \v \e.
func interpretBackslashEscapes(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			out.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			out.WriteByte('\n')
		case 't':
			out.WriteByte('\t')
		case 'r':
			out.WriteByte('\r')
		case 'a':
			out.WriteByte(7)
		case 'b':
			out.WriteByte(8)
		case 'f':
			out.WriteByte(12)
		case 'v':
			out.WriteByte(11)
		case 'e':
			out.WriteByte(27)
		case '\\':
			out.WriteByte('\\')
		case '\'', '"':
			out.WriteByte(s[i])
		default:
			out.WriteByte('\\')
			out.WriteByte(s[i])
		}
	}
	return out.String()
}
