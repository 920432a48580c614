package expand

import "strings"

// GlobMatch reports whether s matches the shell glob pattern pattern in
// its entirety (anchored, whole-string), the matching rule spec §4.4
// uses for `case` clauses and this package uses for parameter-expansion
// prefix/suffix/replace operators. '*' matches any run including none;
// unlike path.Match it also matches '/', since these patterns are
// applied to arbitrary strings, not paths.
func GlobMatch(pattern, s string) bool {
	return globMatch(pattern, s)
}

func globMatch(pat, s string) bool {
	if pat == "" {
		return s == ""
	}
	switch pat[0] {
	case '*':
		if globMatch(pat[1:], s) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if globMatch(pat[1:], s[i+1:]) {
				return true
			}
		}
		return false
	case '?':
		if len(s) == 0 {
			return false
		}
		return globMatch(pat[1:], s[1:])
	case '[':
		end := strings.IndexByte(pat[1:], ']')
		if end < 0 {
			return len(s) > 0 && s[0] == '[' && globMatch(pat[1:], s[1:])
		}
		end++
		if len(s) == 0 {
			return false
		}
		cls := pat[1:end]
		neg := false
		if strings.HasPrefix(cls, "!") || strings.HasPrefix(cls, "^") {
			neg = true
			cls = cls[1:]
		}
		if matchClass(cls, s[0]) == neg {
			return false
		}
		return globMatch(pat[end+1:], s[1:])
	case '\\':
		if len(pat) > 1 && len(s) > 0 && s[0] == pat[1] {
			return globMatch(pat[2:], s[1:])
		}
		return false
	default:
		if len(s) == 0 || s[0] != pat[0] {
			return false
		}
		return globMatch(pat[1:], s[1:])
	}
}

func matchClass(cls string, c byte) bool {
	i := 0
	for i < len(cls) {
		if i+2 < len(cls) && cls[i+1] == '-' {
			if cls[i] <= c && c <= cls[i+2] {
				return true
			}
			i += 3
			continue
		}
		if cls[i] == c {
			return true
		}
		i++
	}
	return false
}

func trimPrefixGlob(s, pattern string, greedy bool) string {
	if pattern == "" {
		return s
	}
	if greedy {
		for i := len(s); i >= 0; i-- {
			if globMatch(pattern, s[:i]) {
				return s[i:]
			}
		}
	} else {
		for i := 0; i <= len(s); i++ {
			if globMatch(pattern, s[:i]) {
				return s[i:]
			}
		}
	}
	return s
}

func trimSuffixGlob(s, pattern string, greedy bool) string {
	if pattern == "" {
		return s
	}
	if greedy {
		for i := 0; i <= len(s); i++ {
			if globMatch(pattern, s[i:]) {
				return s[:i]
			}
		}
	} else {
		for i := len(s); i >= 0; i-- {
			if globMatch(pattern, s[i:]) {
				return s[:i]
			}
		}
	}
	return s
}

func globReplace(s, pattern, repl string, all, anchorStart, anchorEnd bool) string {
	if pattern == "" {
		return s
	}
	if anchorEnd {
		for i := 0; i <= len(s); i++ {
			if globMatch(pattern, s[i:]) {
				return s[:i] + repl
			}
		}
		return s
	}
	var out strings.Builder
	i := 0
	replacedOnce := false
	for i <= len(s) {
		if anchorStart && i > 0 {
			out.WriteString(s[i:])
			break
		}
		matchLen := -1
		for j := len(s); j >= i; j-- {
			if globMatch(pattern, s[i:j]) {
				matchLen = j - i
				break
			}
		}
		if matchLen >= 0 && (all || !replacedOnce) {
			out.WriteString(repl)
			replacedOnce = true
			if matchLen == 0 {
				if i < len(s) {
					out.WriteByte(s[i])
				}
				i++
			} else {
				i += matchLen
			}
			if !all {
				out.WriteString(s[i:])
				break
			}
			continue
		}
		if i < len(s) {
			out.WriteByte(s[i])
		}
		i++
	}
	return out.String()
}
