// Package cmd is the spec §6.4 CLI surface: "out of scope for the
// core... if exposed, it accepts a script on stdin or via -c, returns
// exit code, writes captured stdout/stderr." Structured the way the
// teacher's cmd/root.go builds its root command, with an interactive
// mode grounded on commands/shell.go's RunShell/NewShell shape.
package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mistvale/vshell/core/session"
)

var commandFlag string

// rootCmd represents the vshell binary invoked without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "vshell",
	Short: "Sandboxed in-process POSIX/Bash shell interpreter",
	Long: `vshell parses and evaluates a POSIX/Bash-flavored script against
an in-memory virtual filesystem, with no access to the host beyond an
optional injectable network fetcher. It is a thin demonstration of the
core/session.Session API, not a production shell.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runVshell(cmd)
	},
}

// Execute adds all child commands to the root command and runs it.
// Called once from cmd/vshell/main.go.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.Flags().StringVarP(&commandFlag, "command", "c", "", "run COMMAND instead of reading a script from stdin")
}

func newSession() (*session.Session, error) {
	return session.New(session.Config{
		Cwd: "/root",
		Env: map[string]string{
			"HOME": "/root",
			"PATH": "/bin",
			"PS1":  defaultPrompt,
		},
		NetworkEnabled: false,
	})
}

func runVshell(cmd *cobra.Command) error {
	sess, err := newSession()
	if err != nil {
		return err
	}

	if commandFlag != "" {
		return runScript(cmd, sess, commandFlag)
	}

	in := cmd.InOrStdin()
	if isInteractive(in) {
		return runInteractive(cmd, sess)
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	return runScript(cmd, sess, string(data))
}

// runScript runs script to completion, writes its captured output, and
// exits the process with its exit code — spec §6.4's contract.
func runScript(cmd *cobra.Command, sess *session.Session, script string) error {
	res, err := sess.RunWithStdin(script, cmd.InOrStdin())
	if err != nil {
		return err
	}
	io.WriteString(cmd.OutOrStdout(), res.Stdout)
	io.WriteString(cmd.ErrOrStderr(), res.Stderr)
	os.Exit(res.ExitCode)
	return nil
}

// isInteractive reports whether r is a terminal, the way the teacher's
// shell decides between RunShell's -c mode and its readline loop.
func isInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
