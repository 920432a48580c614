package expand

import (
	"strconv"
	"strings"

	"github.com/mistvale/vshell/core/ast"
)

// expandBraces performs spec §4.3 step 1: brace expansion, syntactic and
// first. It only expands brace groups sitting inside a wholly-unquoted
// Literal part; a literal run containing any quoted byte is left as-is,
// which covers ordinary usage ('{a,b}' inside quotes is not expanded in
// real bash either, since the braces themselves would need to be
// unquoted).
func expandBraces(w *ast.Word) []*ast.Word {
	variants := [][]ast.WordPart{{}}
	for _, part := range w.Parts {
		lit, ok := part.(ast.Literal)
		if !ok || anyQuoted(lit.Quoted) {
			for i := range variants {
				variants[i] = append(variants[i], part)
			}
			continue
		}
		alts := expandBraceString(lit.Text)
		if len(alts) <= 1 {
			for i := range variants {
				variants[i] = append(variants[i], part)
			}
			continue
		}
		var next [][]ast.WordPart
		for _, v := range variants {
			for _, alt := range alts {
				nv := append(append([]ast.WordPart{}, v...), ast.Literal{Text: alt})
				next = append(next, nv)
			}
		}
		variants = next
	}
	out := make([]*ast.Word, 0, len(variants))
	for _, v := range variants {
		out = append(out, &ast.Word{Parts: v})
	}
	return out
}

func anyQuoted(mask []bool) bool {
	for _, q := range mask {
		if q {
			return true
		}
	}
	return false
}

// expandBraceString expands every `{...}` group in s, left to right,
// recursively handling nesting and multiple groups. A `{...}` with
// neither a top-level comma nor a `..` range is left literal.
func expandBraceString(s string) []string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return []string{s}
	}
	depth := 0
	end := -1
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return []string{s}
	}
	prefix := s[:start]
	body := s[start+1 : end]
	suffix := s[end+1:]

	alts := splitBraceBody(body)
	if alts == nil {
		rest := expandBraceString(s[start+1:])
		out := make([]string, 0, len(rest))
		for _, r := range rest {
			out = append(out, s[:start+1]+r)
		}
		return out
	}

	suffixAlts := expandBraceString(suffix)
	var out []string
	for _, a := range alts {
		for _, av := range expandBraceString(a) {
			for _, sv := range suffixAlts {
				out = append(out, prefix+av+sv)
			}
		}
	}
	return out
}

func splitBraceBody(body string) []string {
	if r := expandBraceRange(body); r != nil {
		return r
	}
	parts := splitTopLevelCommas(body)
	if len(parts) < 2 {
		return nil
	}
	return parts
}

func splitTopLevelCommas(s string) []string {
	depth := 0
	var parts []string
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts
}

func expandBraceRange(body string) []string {
	segs := strings.Split(body, "..")
	if len(segs) < 2 || len(segs) > 3 {
		return nil
	}
	start, end := segs[0], segs[1]
	step := 1
	if len(segs) == 3 {
		s, err := strconv.Atoi(segs[2])
		if err != nil || s == 0 {
			return nil
		}
		step = s
	}
	if si, err1 := strconv.Atoi(start); err1 == nil {
		if ei, err2 := strconv.Atoi(end); err2 == nil {
			return numericBraceRange(start, si, ei, step)
		}
	}
	if len(start) == 1 && len(end) == 1 && isAsciiLetter(start[0]) && isAsciiLetter(end[0]) {
		return letterBraceRange(start[0], end[0], step)
	}
	return nil
}

func isAsciiLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func numericBraceRange(startStr string, start, end, step int) []string {
	if step < 0 {
		step = -step
	}
	if step == 0 {
		step = 1
	}
	width := 0
	digits := strings.TrimPrefix(startStr, "-")
	if len(digits) > 1 && digits[0] == '0' {
		width = len(digits)
	}
	var out []string
	if start <= end {
		for v := start; v <= end; v += step {
			out = append(out, formatBraceNum(v, width))
		}
	} else {
		for v := start; v >= end; v -= step {
			out = append(out, formatBraceNum(v, width))
		}
	}
	return out
}

func formatBraceNum(v, width int) string {
	if width == 0 {
		return strconv.Itoa(v)
	}
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.Itoa(v)
	for len(s) < width {
		s = "0" + s
	}
	if neg {
		s = "-" + s
	}
	return s
}

func letterBraceRange(start, end byte, step int) []string {
	if step < 0 {
		step = -step
	}
	if step == 0 {
		step = 1
	}
	var out []string
	if start <= end {
		for c := int(start); c <= int(end); c += step {
			out = append(out, string(byte(c)))
		}
	} else {
		for c := int(start); c >= int(end); c -= step {
			out = append(out, string(byte(c)))
		}
	}
	return out
}
