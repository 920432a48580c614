package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mistvale/vshell/core/session"
)

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := session.New(session.Config{
		Cwd: "/root",
		Env: map[string]string{"HOME": "/root", "USER": "vshell", "HOSTNAME": "sandbox"},
	})
	require.NoError(t, err)
	return sess
}

func TestPromptSubstitution(t *testing.T) {
	sess := newTestSession(t)
	sess.Setenv("PS1", `\u@\h:\w\$ `)

	require.Equal(t, "vshell@sandbox:~$ ", prompt(sess))
}

func TestPromptFallsBackToDefault(t *testing.T) {
	sess := newTestSession(t)
	require.Equal(t, "vshell:~$ ", prompt(sess))
}

func TestIsInteractiveRejectsNonFile(t *testing.T) {
	require.False(t, isInteractive(nil))
}
