// Package session implements the Shell session of spec §6.1: the
// caller-facing constructor/run/exec surface wrapping core/eval.Interp,
// plus the session-scoped state spec.md's terse mention drops but the
// GLOSSARY's Session entry and just_bash both carry: aliases and
// command history. Grounded on the teacher's core/shell.go session
// loop and core/config's YAML+validator configuration loading.
package session

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/mistvale/vshell/core/builtins"
	"github.com/mistvale/vshell/core/eval"
	"github.com/mistvale/vshell/core/registry"
	"github.com/mistvale/vshell/core/utilities"
)

// Config is the constructor-time configuration of spec §6.1's table:
// files, env, cwd, network_enabled, limits, command_registry.
type Config struct {
	Files          map[string][]byte
	Env            map[string]string
	Cwd            string
	NetworkEnabled bool
	Limits         eval.LimitOverrides

	// Registry, if set, is used instead of the default builtins+utilities
	// registry — callers that want a different or restricted command
	// surface inject their own here (spec §6.1's command_registry option).
	Registry *registry.Registry

	// Fetcher backs the `curl` utility's network access; nil leaves
	// networking permanently unreachable even if NetworkEnabled is true
	// (spec.md §1's Non-goals: "the real host network adapter... calls
	// an injectable Fetcher interface that defaults to disabled").
	Fetcher eval.Fetcher

	// Now stamps VFS mtimes and seeds $SECONDS/$RANDOM; defaults to
	// time.Now.
	Now func() time.Time
}

// Result is the caller-facing outcome of spec §6.1: captured output
// plus the exit code, rather than the io.Writer-streaming signature
// core/eval.Interp.Run uses internally.
type Result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Cancelled bool
	LimitHit  string
}

// Session is the long-lived state container of the GLOSSARY's Session
// entry: env, cwd, VFS, flags, functions, aliases, history, and limits,
// all held by the wrapped *eval.Interp except History, which is
// session-level bookkeeping core/eval has no reason to know about.
type Session struct {
	it      *eval.Interp
	History []string
}

// New constructs a session over a fresh in-memory VFS seeded from cfg,
// registering the default builtins+utilities command set unless cfg
// supplies its own registry.
func New(cfg Config) (*Session, error) {
	it, err := eval.New(eval.SessionConfig{
		Files:          cfg.Files,
		Env:            cfg.Env,
		Cwd:            cfg.Cwd,
		NetworkEnabled: cfg.NetworkEnabled,
		Limits:         cfg.Limits,
	}, cfg.Now)
	if err != nil {
		return nil, err
	}

	reg := cfg.Registry
	if reg == nil {
		reg = registry.New()
		builtins.Register(reg)
		utilities.Register(reg)
	}
	it.SetRegistry(reg)

	if cfg.Fetcher != nil {
		it.SetFetcher(cfg.Fetcher)
	}

	return &Session{it: it}, nil
}

// Run executes script synchronously against the session's persistent
// state (spec §6.1: "variable, function, alias, cwd, and filesystem
// state persist between calls"), returning captured stdout/stderr
// rather than streaming to caller-supplied writers.
func (s *Session) Run(script string) (Result, error) {
	return s.RunWithStdin(script, strings.NewReader(""))
}

// RunWithStdin is Run with an explicit stdin, for scripts that read
// input (e.g. `mapfile`, `cat`, `wc` with no file operands).
func (s *Session) RunWithStdin(script string, stdin io.Reader) (Result, error) {
	var stdout, stderr bytes.Buffer
	res, err := s.it.Run(script, stdin, &stdout, &stderr)
	s.History = append(s.History, script)
	return Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ExitCode:  res.ExitCode,
		Cancelled: res.Cancelled,
		LimitHit:  res.LimitHit,
	}, err
}

// Exec is the suspendable counterpart of Run (spec §6.1): it runs the
// script on a separate goroutine and honors ctx cancellation by
// requesting cooperative interpreter cancellation (spec §5's checked
// suspension points), returning once the run observes it and unwinds.
func (s *Session) Exec(ctx context.Context, script string) (Result, error) {
	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.Run(script)
		done <- outcome{res, err}
	}()
	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		s.it.Cancel()
		o := <-done
		return o.res, o.err
	}
}

// Aliases and history

func (s *Session) SetAlias(name, value string) { s.it.SetAlias(name, value) }
func (s *Session) Alias(name string) (string, bool) { return s.it.Alias(name) }
func (s *Session) UnAlias(name string)         { s.it.UnAlias(name) }
func (s *Session) AliasNames() []string        { return s.it.AliasNames() }

// Cwd, Getenv, Filesystem expose the read-only session view spec §6.2
// says third-party commands see "via the passed handle" — useful to a
// host embedding a Session without going through a script.
func (s *Session) Cwd() string               { return s.it.Cwd() }
func (s *Session) Getenv(name string) string { return s.it.Getenv(name) }
func (s *Session) Setenv(name, value string) { s.it.Setenv(name, value) }
func (s *Session) Status() int               { return s.it.Status() }
func (s *Session) Interp() *eval.Interp      { return s.it }
