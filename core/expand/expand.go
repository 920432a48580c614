package expand

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mistvale/vshell/core/ast"
)

// segment is a run of a word's expansion that has not yet been field
// split, or a set of fields that must bypass splitting/globbing
// entirely because they were already final (spec §4.3's quoted
// "${arr[@]}" special case, and ${!prefix@}).
type segment struct {
	text    string
	quoted  []bool
	final   []string
	isFinal bool
}

// ExpandWord runs the full pipeline of spec §4.3 on w — brace expansion,
// tilde expansion, parameter/command/arithmetic expansion, field
// splitting, and pathname expansion — and returns the resulting argv
// fields.
func ExpandWord(ctx Context, w *ast.Word) ([]string, error) {
	variants := expandBraces(w)
	var out []string
	for _, v := range variants {
		fields, err := expandOneWord(ctx, v)
		if err != nil {
			return nil, err
		}
		out = append(out, fields...)
	}
	return out, nil
}

// ExpandWordText expands w and joins the result into a single value
// with no field splitting or globbing, the form used for assignment
// right-hand sides, case patterns, and here-doc delimiters.
func ExpandWordText(ctx Context, w *ast.Word) (string, error) {
	segs, err := expandParts(ctx, w)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, s := range segs {
		if s.isFinal {
			sb.WriteString(strings.Join(s.final, " "))
			continue
		}
		sb.WriteString(s.text)
	}
	return sb.String(), nil
}

func expandOneWord(ctx Context, w *ast.Word) ([]string, error) {
	segs, err := expandParts(ctx, w)
	if err != nil {
		return nil, err
	}

	var fields []Field
	var bufText strings.Builder
	var bufQuoted []bool
	haveBuf := false

	flushBuf := func(force bool) {
		fields = append(fields, splitFields(bufText.String(), bufQuoted, ctx.IFS(), force)...)
		bufText.Reset()
		bufQuoted = nil
		haveBuf = false
	}

	for _, s := range segs {
		if s.isFinal {
			flushBuf(false)
			for _, f := range s.final {
				mask := make([]bool, len(f))
				for i := range mask {
					mask[i] = true
				}
				fields = append(fields, Field{Text: f, Quoted: mask})
			}
			continue
		}
		bufText.WriteString(s.text)
		bufQuoted = append(bufQuoted, s.quoted...)
		if len(s.text) > 0 {
			haveBuf = true
		}
	}
	if haveBuf || len(fields) == 0 {
		flushBuf(len(fields) == 0)
	}

	var out []string
	for _, f := range fields {
		if ctx.Opt("noglob") || !f.AnyUnquotedGlobMeta() {
			out = append(out, f.Text)
			continue
		}
		matches, err := ctx.Glob(f.Text)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			if ctx.Opt("failglob") {
				return nil, &ExpansionError{Name: f.Text, Reason: "no match"}
			}
			if ctx.Opt("nullglob") {
				continue
			}
			out = append(out, f.Text)
			continue
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out, nil
}

// expandParts walks w's parts, resolving each into a segment, in order.
// It does not merge segments; its callers concatenate adjacent non-final
// segments so field splitting treats runs of concatenated text as one
// field the way `a"$b"c` does.
func expandParts(ctx Context, w *ast.Word) ([]segment, error) {
	var segs []segment
	leading := true
	for _, p := range w.Parts {
		s, err := expandPart(ctx, p, leading)
		if err != nil {
			return nil, err
		}
		leading = false
		segs = append(segs, s)
	}
	return segs, nil
}

func expandPart(ctx Context, p ast.WordPart, leading bool) (segment, error) {
	switch part := p.(type) {
	case ast.Literal:
		text := part.Text
		quoted := part.Quoted
		if len(quoted) != len(text) {
			quoted = make([]bool, len(text))
		}
		if leading && !ctx.Opt("notilde") && len(quoted) > 0 && !quoted[0] {
			expanded := expandTilde(ctx, text)
			if expanded != text {
				text = expanded
				quoted = make([]bool, len(text))
			}
		}
		return segment{text: text, quoted: quoted}, nil

	case ast.ParamExp:
		res, err := expandParamExp(ctx, part)
		if err != nil {
			return segment{}, err
		}
		if res.isFinal {
			return segment{final: res.finalFields, isFinal: true}, nil
		}
		return textSegment(res.text, res.quoted), nil

	case ast.ArithExp:
		exprText := wordPlainText(part.Expr)
		n, err := EvalArith(ctx, exprText)
		if err != nil {
			return segment{}, err
		}
		return textSegment(strconv.FormatInt(n, 10), part.Quoted), nil

	case ast.CmdSub:
		out, err := ctx.RunCommandSubstitution(part.Raw)
		if err != nil {
			return segment{}, err
		}
		return textSegment(out, part.Quoted), nil

	case ast.Glob:
		return segment{text: part.Pattern, quoted: make([]bool, len(part.Pattern))}, nil

	case ast.Brace:
		return segment{text: part.Raw, quoted: make([]bool, len(part.Raw))}, nil

	case ast.Tilde:
		dir, ok := ctx.HomeDir("")
		if !ok {
			return segment{text: "~"}, nil
		}
		return segment{text: dir, quoted: make([]bool, len(dir))}, nil
	}
	return segment{}, nil
}

func textSegment(text string, quotedAll bool) segment {
	mask := make([]bool, len(text))
	if quotedAll {
		for i := range mask {
			mask[i] = true
		}
	}
	return segment{text: text, quoted: mask}
}
