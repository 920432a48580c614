package vfs

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

// TestListdirSorted_golden snapshots a directory listing's shape (name and
// kind, not timestamps, which would make the fixture nondeterministic) the
// way ls/find render it, catching accidental ordering or kind regressions.
func TestListdirSorted_golden(t *testing.T) {
	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	m := NewMemory(fixedClock, 0)
	ctx := Context{UID: 0, GID: 0, CWD: "/"}
	require.Equal(t, Success, m.MkdirAll(ctx, "/a/b", 0755))
	_, errno := m.Create(ctx, "/a/f.txt", 0644)
	require.Equal(t, Success, errno)
	_, errno = m.Create(ctx, "/a/b/g.txt", 0644)
	require.Equal(t, Success, errno)

	entries, errno := m.ListdirSorted(ctx, "/a")
	require.Equal(t, Success, errno)

	var sb strings.Builder
	for _, e := range entries {
		kind := "file"
		if e.Ino.isDir() {
			kind = "dir"
		}
		fmt.Fprintf(&sb, "%s\t%s\n", e.Name, kind)
	}
	g.Assert(t, "listing", []byte(sb.String()))
}
