package expand

import "strings"

// Field is one field produced by splitFields, keeping the per-byte
// quoted mask so the pathname-expansion step can tell which glob
// metacharacters, if any, were unquoted.
type Field struct {
	Text   string
	Quoted []bool
}

// AnyUnquotedGlobMeta reports whether f contains a glob metacharacter
// at an unquoted position.
func (f Field) AnyUnquotedGlobMeta() bool {
	for i := 0; i < len(f.Text); i++ {
		c := f.Text[i]
		if (c == '*' || c == '?' || c == '[') && (i >= len(f.Quoted) || !f.Quoted[i]) {
			return true
		}
	}
	return false
}

// splitFields implements spec §4.3 step 6: split the unquoted portions
// of text on runs of IFS whitespace, then on single IFS non-whitespace
// characters; quoted bytes never split. force makes an all-empty,
// all-unquoted result still yield a single empty field, used when the
// word came from a wholly-quoted zero-length expansion (whose bytes
// carry no positions to mark quoted).
func splitFields(text string, quoted []bool, ifs string, force bool) []Field {
	if ifs == "" {
		if text == "" && !force {
			return nil
		}
		return []Field{{Text: text, Quoted: quoted}}
	}
	isBlank := func(b byte) bool { return b == ' ' || b == '\t' || b == '\n' }
	isDelim := func(i int) (blank, delim bool) {
		if quoted[i] {
			return false, false
		}
		c := text[i]
		if strings.IndexByte(ifs, c) < 0 {
			return false, false
		}
		return isBlank(c), true
	}

	n := len(text)
	var fields []Field
	var cur strings.Builder
	var curMask []bool
	haveField := false

	flush := func() {
		fields = append(fields, Field{Text: cur.String(), Quoted: curMask})
		cur.Reset()
		curMask = nil
		haveField = false
	}

	i := 0
	for i < n {
		blank, d := isDelim(i)
		if d && blank {
			i++
			continue
		}
		break
	}
	for i < n {
		blank, d := isDelim(i)
		if d {
			flush()
			if blank {
				for i < n {
					b2, d2 := isDelim(i)
					if d2 && b2 {
						i++
						continue
					}
					break
				}
			} else {
				i++
			}
			continue
		}
		cur.WriteByte(text[i])
		curMask = append(curMask, quoted[i])
		haveField = true
		i++
	}
	if cur.Len() > 0 || haveField {
		flush()
	}
	if len(fields) == 0 && force {
		return []Field{{Text: ""}}
	}
	return fields
}
