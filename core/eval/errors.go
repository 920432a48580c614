package eval

import "fmt"

// controlSignal is the family of sentinel errors used to unwind the AST
// walk for non-local control flow, matching the design note that no
// process-wide state or goto-based interpreter loop is used (spec §9).
type controlSignal interface {
	error
	controlSignal()
}

type breakSignal struct{ n int }

func (b breakSignal) Error() string { return "break" }
func (breakSignal) controlSignal()  {}

type continueSignal struct{ n int }

func (c continueSignal) Error() string { return "continue" }
func (continueSignal) controlSignal()  {}

type returnSignal struct{ status int }

func (r returnSignal) Error() string { return "return" }
func (returnSignal) controlSignal()  {}

// ExitSignal unwinds all the way out of Run/Exec with the given status,
// raised by the `exit` builtin.
type ExitSignal struct{ Status int }

func (e ExitSignal) Error() string   { return fmt.Sprintf("exit %d", e.Status) }
func (ExitSignal) controlSignal()    {}

// LimitExceeded reports a §5 resource limit trip; it always exits 124
// and terminates the current run.
type LimitExceeded struct{ Kind string }

func (l *LimitExceeded) Error() string { return "limit exceeded: " + l.Kind }
func (*LimitExceeded) controlSignal()  {}

// Cancelled reports a session cancellation observed at a checked
// suspension point; it always exits 130.
type Cancelled struct{}

func (Cancelled) Error() string  { return "cancelled" }
func (Cancelled) controlSignal() {}

// CommandNotFound reports that name resolved to neither a function, a
// builtin, nor a registered utility (spec §7); exit 127.
type CommandNotFound struct{ Name string }

func (e *CommandNotFound) Error() string { return e.Name + ": command not found" }

// ErrSessionBusy is returned by Run/Exec on re-entrant invocation of the
// same session, per spec §9's open question.
var ErrSessionBusy = fmt.Errorf("session is already running a script")

// ErrNetworkDisabled is returned by Fetch when the session was
// constructed with NetworkEnabled false, or no Fetcher was installed.
var ErrNetworkDisabled = fmt.Errorf("network access is disabled for this session")
