package expand

import "strings"

// expandTilde implements spec §4.3 step 2 on a Literal's raw text: a
// leading ~ or ~user, up to the first '/' or end of string, is replaced
// by the resolved home directory. Only the first unquoted leading tilde
// of a word is eligible; embedded ~ elsewhere is left alone.
func expandTilde(ctx Context, text string) string {
	if text == "" || text[0] != '~' {
		return text
	}
	end := strings.IndexByte(text, '/')
	var user, rest string
	if end < 0 {
		user, rest = text[1:], ""
	} else {
		user, rest = text[1:end], text[end:]
	}
	dir, ok := ctx.HomeDir(user)
	if !ok {
		return text
	}
	return dir + rest
}
