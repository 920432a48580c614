package expand

import (
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// GlobPath implements spec §4.3 step 7's pathname expansion against an
// afero.Fs (the VFS's public surface, core/vfs/afero.go), matching each
// path component independently so "**" can be special-cased for
// globstar. There is no ecosystem glob library in the retrieved
// example corpus (see DESIGN.md); component matching uses the standard
// library's path.Match, which already implements POSIX shell glob
// classes ([...], *, ?) and needs no third-party equivalent.
func GlobPath(fs afero.Fs, cwd, pattern string, globstar bool) ([]string, error) {
	abs := pattern
	if !strings.HasPrefix(pattern, "/") {
		abs = path.Join(cwd, pattern)
	}
	comps := strings.Split(strings.TrimPrefix(abs, "/"), "/")

	matches := []string{"/"}
	for _, c := range comps {
		if c == "" {
			continue
		}
		if c == "**" && globstar {
			var next []string
			for _, base := range matches {
				next = append(next, collectRecursive(fs, base)...)
			}
			matches = next
			continue
		}
		var next []string
		for _, base := range matches {
			entries, err := afero.ReadDir(fs, base)
			if err != nil {
				continue
			}
			literal := !strings.ContainsAny(c, "*?[")
			for _, e := range entries {
				name := e.Name()
				if strings.HasPrefix(name, ".") && !strings.HasPrefix(c, ".") {
					continue
				}
				if literal {
					if name == c {
						next = append(next, path.Join(base, name))
					}
					continue
				}
				if ok, _ := path.Match(c, name); ok {
					next = append(next, path.Join(base, name))
				}
			}
		}
		matches = next
	}

	sort.Strings(matches)
	if !strings.HasPrefix(pattern, "/") {
		for i, m := range matches {
			rel := strings.TrimPrefix(m, cwd)
			rel = strings.TrimPrefix(rel, "/")
			if rel == "" {
				rel = "."
			}
			matches[i] = rel
		}
	}
	return matches, nil
}

func collectRecursive(fs afero.Fs, base string) []string {
	out := []string{base}
	entries, err := afero.ReadDir(fs, base)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, collectRecursive(fs, path.Join(base, e.Name()))...)
		}
	}
	return out
}

// HasGlobMeta reports whether s contains a glob metacharacter; escaping
// backslashes are not taken into account.
func HasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}
