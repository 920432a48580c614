package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mistvale/vshell/core/session"
)

// Prompt strings, grounded on commands/shell.go's DefaultColorPrompt /
// DefaultPrompt: \u, \h, \w, \$ placeholders, substituted in prompt().
const (
	defaultColorPrompt = "\033[01;32mvshell\033[00m:\033[01;34m\\w\033[00m\\$ "
	defaultPrompt      = "vshell:\\w\\$ "
)

// runInteractive is a read-eval-print loop over a Session, grounded on
// commands/shell.go's Shell.runInteractive — but dispatching each line
// to core/session.Session.Run instead of mvdan.cc/sh/v3/syntax, since
// vshell carries its own parser and evaluator.
func runInteractive(cmd *cobra.Command, sess *session.Session) error {
	cfg := &readline.Config{
		Stdin:  readline.NewCancelableStdin(cmd.InOrStdin()),
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}
	if err := cfg.Init(); err != nil {
		return err
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return err
	}
	defer rl.Close()

	if !color.NoColor {
		sess.Setenv("PS1", defaultColorPrompt)
	}

	out, errw := cmd.OutOrStdout(), cmd.ErrOrStderr()
	for {
		rl.SetPrompt(prompt(sess))
		line, err := rl.Readline()
		switch {
		case err == io.EOF:
			return nil
		case err == readline.ErrInterrupt:
			continue
		case err != nil:
			return err
		case len(strings.TrimSpace(line)) == 0:
			continue
		}

		res, runErr := sess.Run(line)
		io.WriteString(out, res.Stdout)
		io.WriteString(errw, res.Stderr)
		if runErr != nil {
			fmt.Fprintf(errw, "vshell: %v\n", runErr)
		}
	}
}

// prompt renders $PS1 with \u \h \w \$ substitution the way
// commands/shell.go's Shell.prompt does, minus the real hostname/user
// since the sandbox has neither.
func prompt(sess *session.Session) string {
	ps1 := sess.Getenv("PS1")
	if ps1 == "" {
		ps1 = defaultPrompt
	}
	ps1 = strings.ReplaceAll(ps1, `\u`, envOr(sess, "USER", "vshell"))
	ps1 = strings.ReplaceAll(ps1, `\h`, envOr(sess, "HOSTNAME", "sandbox"))

	pwd := sess.Cwd()
	if home := sess.Getenv("HOME"); home != "" && strings.HasPrefix(pwd, home) {
		pwd = "~" + strings.TrimPrefix(pwd, home)
	}
	ps1 = strings.ReplaceAll(ps1, `\w`, pwd)
	ps1 = strings.ReplaceAll(ps1, `\$`, "$")
	return ps1
}

func envOr(sess *session.Session, name, fallback string) string {
	if v := sess.Getenv(name); v != "" {
		return v
	}
	return fallback
}
