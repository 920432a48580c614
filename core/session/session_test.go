package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mistvale/vshell/core/eval"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	sess, err := New(Config{Cwd: "/"})
	require.NoError(t, err)
	return sess
}

// End-to-end scenario table, spec §8.
func TestEndToEndScenarios(t *testing.T) {
	cases := []struct {
		name   string
		script string
		stdout string
		exit   int
	}{
		{"echo", `echo "Hello, World!"`, "Hello, World!\n", 0},
		{"pipe-tr-sort", `echo "banana apple cherry" | tr " " "\n" | sort`, "apple\nbanana\ncherry\n", 0},
		{"arithmetic", `x=5; echo $((x * 2))`, "10\n", 0},
		{"array-expansion", `arr=(a b c); echo "${arr[@]}"`, "a b c\n", 0},
		{"vfs-round-trip", `echo test > /tmp/f.txt; cat /tmp/f.txt`, "test\n", 0},
		{"local-scoping", `f() { local x=1; echo $x; }; x=0; f; echo $x`, "1\n0\n", 0},
		{"set-e", `set -e; false; echo nope`, "", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := newTestSession(t)
			res, err := sess.Run(tc.script)
			require.NoError(t, err)
			require.Equal(t, tc.stdout, res.Stdout)
			require.Equal(t, tc.exit, res.ExitCode)
		})
	}
}

// Property 3: IFS field-splitting law.
func TestIFSFieldSplittingLaw(t *testing.T) {
	sess := newTestSession(t)
	res, err := sess.Run(`IFS=":"; x="a::b"; for w in $x; do echo "[$w]"; done`)
	require.NoError(t, err)
	require.Equal(t, "[a]\n[]\n[b]\n", res.Stdout)
}

// Property 4: subshell isolation.
func TestSubshellIsolation(t *testing.T) {
	sess := newTestSession(t)
	res, err := sess.Run(`v=0; (v=1); echo $v`)
	require.NoError(t, err)
	require.Equal(t, "0\n", res.Stdout)
}

// Property 5: exit-status propagation, including pipefail.
func TestExitStatusPropagation(t *testing.T) {
	sess := newTestSession(t)
	res, err := sess.Run(`true | false; echo $?`)
	require.NoError(t, err)
	require.Equal(t, "1\n", res.Stdout)

	sess2 := newTestSession(t)
	res2, err := sess2.Run(`set -o pipefail; false | true; echo $?`)
	require.NoError(t, err)
	require.Equal(t, "1\n", res2.Stdout)

	sess3 := newTestSession(t)
	res3, err := sess3.Run(`true | true; echo $?`)
	require.NoError(t, err)
	require.Equal(t, "0\n", res3.Stdout)
}

// Property 7: arithmetic division by zero fails rather than panicking.
func TestArithDivisionByZero(t *testing.T) {
	sess := newTestSession(t)
	res, err := sess.Run(`echo $((1 / 0))`)
	require.NoError(t, err)
	require.NotEqual(t, 0, res.ExitCode)
}

// Property 8: limit enforcement terminates a runaway loop with 124.
func TestLimitEnforcementTerminatesRunawayLoop(t *testing.T) {
	sess, err := New(Config{
		Cwd: "/",
		Limits: eval.LimitOverrides{
			MaxStatements: 1000,
			MaxWallClock:  time.Second,
		},
	})
	require.NoError(t, err)

	res, err := sess.Run(`while true; do :; done`)
	require.NoError(t, err)
	require.Equal(t, 124, res.ExitCode)
	require.NotEmpty(t, res.LimitHit)
}

// SPEC_FULL.md's Shell session section: "set -e inside $( ) ... this
// implementation chooses inherit — a command substitution subshell
// honors the caller's errexit state." The assignment is wrapped in an
// if-condition so the outer errexit exemption there (spec §7's
// "outside conditions" clause) isolates the assertion to the
// substitution's own subshell: if errexit is inherited, "echo after"
// never runs and x stays empty; if not, x becomes "after".
func TestSetEInheritsIntoCommandSubstitution(t *testing.T) {
	sess := newTestSession(t)
	res, err := sess.Run(`set -e; if x=$(false; echo after); then :; fi; echo "x=[$x]"`)
	require.NoError(t, err)
	require.Equal(t, "x=[]\n", res.Stdout)
	require.Equal(t, 0, res.ExitCode)
}

// Re-entrancy guard: a session rejects concurrent Run/Exec on itself.
func TestReentrancyRejected(t *testing.T) {
	sess := newTestSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = sess.Exec(ctx, `sleep 5`)
	}()
	// Exec's Run call has no external start signal to synchronize on;
	// give the goroutine a moment to set the busy flag before probing it.
	time.Sleep(20 * time.Millisecond)

	_, err := sess.Run(`echo hi`)
	require.ErrorIs(t, err, eval.ErrSessionBusy)

	cancel()
	<-done
}

func TestAliasesAndHistory(t *testing.T) {
	sess := newTestSession(t)
	sess.SetAlias("ll", "ls -l")
	v, ok := sess.Alias("ll")
	require.True(t, ok)
	require.Equal(t, "ls -l", v)

	_, err := sess.Run(`echo hi`)
	require.NoError(t, err)
	require.Len(t, sess.History, 1)

	sess.UnAlias("ll")
	_, ok = sess.Alias("ll")
	require.False(t, ok)
}
