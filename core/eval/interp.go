package eval

import (
	"io"
	"math/rand"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/mistvale/vshell/core/ast"
	"github.com/mistvale/vshell/core/expand"
	"github.com/mistvale/vshell/core/registry"
	"github.com/mistvale/vshell/core/stream"
	"github.com/mistvale/vshell/core/vfs"
)

// Limits mirrors the resource-limit table of spec §5.
type Limits struct {
	MaxStatements   int
	MaxCallDepth    int
	MaxLoopIter     int
	MaxWallClock    time.Duration
	MaxPipeBuffer   int
}

// DefaultLimits returns the spec §5 default limit table.
func DefaultLimits() Limits {
	return Limits{
		MaxStatements: 1_000_000,
		MaxCallDepth:  256,
		MaxLoopIter:   100_000,
		MaxWallClock:  30 * time.Second,
		MaxPipeBuffer: 1 << 20,
	}
}

// fd is one open file-descriptor slot in the interpreter's descriptor table.
type fd struct {
	r io.Reader
	w io.Writer
	c io.Closer
}

// Interp is the evaluator of spec §4.4: one instance per session,
// mutated in place as the AST is walked. It implements expand.Context
// (word expansion callbacks) and registry.Session (the Command
// contract's session handle) so callers of either never need to know
// about the concrete type — except core/builtins, which type-asserts
// registry.Session back to *Interp for state-mutating builtins that the
// narrow Session interface deliberately does not expose.
type Interp struct {
	fsRoot *vfs.Memory
	fsCtx  vfs.Context
	afs    *vfs.AferoFS

	frames    []*Frame
	functions map[string]*ast.FunctionDef
	aliases   map[string]string
	history   []string

	opts map[string]bool

	baseLimits Limits
	rs         *runState

	callDepth int

	pid        int
	startTime  time.Time
	secondsRef int64
	rng        *rand.Rand
	lastArg    string
	lastBgPid  int
	lineno     int

	fds map[int]fd

	network bool
	fetcher Fetcher

	reg *registry.Registry

	logger *SessionLogger

	running bool

	pending controlSignal

	pidCounter int
	bgJobs     map[int]chan int
}

// SetRegistry installs the builtin/utility dispatch table used by
// execSimple's command resolution (spec §4.7); core/session calls this
// once after New.
func (it *Interp) SetRegistry(r *registry.Registry) { it.reg = r }

// SetLogger installs the session activity logger; nil disables logging.
func (it *Interp) SetLogger(l *SessionLogger) { it.logger = l }

// The registry.Command contract (Invoke returns only an int status) has
// no room to unwind non-local control flow, so break/continue/return/exit
// builtins call these to register a pending signal that dispatch picks up
// once the builtin's Invoke call returns.

func (it *Interp) RaiseBreak(n int)      { it.pending = breakSignal{n: n} }
func (it *Interp) RaiseContinue(n int)   { it.pending = continueSignal{n: n} }
func (it *Interp) RaiseReturn(status int) { it.pending = returnSignal{status: status} }
func (it *Interp) RaiseExit(status int)  { it.pending = ExitSignal{Status: status} }

// nextPid mints a synthetic pid for a background job (spec §5's
// cooperative-task model has no real OS processes).
func (it *Interp) nextPid() int {
	it.pidCounter++
	return it.pidCounter
}

// LastBgPid returns $! — the most recently started background job's
// synthetic pid, or 0 if none has started.
func (it *Interp) LastBgPid() int { return it.lastBgPid }

// WaitJob blocks for pid's background job to finish and returns its exit
// status, or (-1, false) if pid names no known job.
func (it *Interp) WaitJob(pid int) (int, bool) {
	ch, ok := it.bgJobs[pid]
	if !ok {
		return -1, false
	}
	status := <-ch
	delete(it.bgJobs, pid)
	return status, true
}

// WaitAll blocks for every currently tracked background job to finish.
func (it *Interp) WaitAll() {
	for pid, ch := range it.bgJobs {
		<-ch
		delete(it.bgJobs, pid)
	}
}

// Aliases

func (it *Interp) SetAlias(name, value string) { it.aliases[name] = value }
func (it *Interp) Alias(name string) (string, bool) {
	v, ok := it.aliases[name]
	return v, ok
}
func (it *Interp) UnAlias(name string) { delete(it.aliases, name) }
func (it *Interp) AliasNames() []string {
	out := make([]string, 0, len(it.aliases))
	for k := range it.aliases {
		out = append(out, k)
	}
	return out
}

// Functions

func (it *Interp) Function(name string) (*ast.FunctionDef, bool) {
	f, ok := it.functions[name]
	return f, ok
}
func (it *Interp) UnsetFunction(name string) { delete(it.functions, name) }
func (it *Interp) FunctionNames() []string {
	out := make([]string, 0, len(it.functions))
	for k := range it.functions {
		out = append(out, k)
	}
	return out
}

// DeclareLocal creates name in the current innermost frame (spec §3's
// `local`/`declare` semantics), overriding whatever frame frameFor would
// otherwise have chosen.
func (it *Interp) DeclareLocal(name, value string) error {
	f := it.frames[len(it.frames)-1]
	if existing, ok := f.vars[name]; ok && existing.Attrs.Readonly {
		return &ReadonlyError{Name: name}
	}
	f.vars[name] = newScalar(value)
	return nil
}

// VarAttrs returns the attribute set of name, or a zero Attrs if unset.
func (it *Interp) VarAttrs(name string) Attrs {
	v := it.lookupValue(name)
	if v == nil {
		return Attrs{}
	}
	return v.Attrs
}

// SetVarAttrs mutates the attribute flags of name in place, creating it
// as an empty scalar in the global frame first if unset.
func (it *Interp) SetVarAttrs(name string, mutate func(*Attrs)) error {
	v := it.lookupValue(name)
	if v == nil {
		f := it.frameFor(name)
		v = newScalar("")
		f.vars[name] = v
	}
	if v.Attrs.Readonly {
		return &ReadonlyError{Name: name}
	}
	mutate(&v.Attrs)
	return nil
}

// ExecScript runs sc against the current scope (no fork) — used by the
// `source`/`.` and `eval` builtins, which run in the calling scope
// rather than a subshell.
func (it *Interp) ExecScript(sc *ast.Script, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	return it.execScript(sc, stdin, stdout, stderr)
}

// ParseScript exposes parseCached for the `source`/`eval` builtins.
func ParseScript(src string) (*ast.Script, error) { return parseCached(src) }

// DispatchRegistered invokes name directly against the registry,
// bypassing function-table lookup — used by the `command`/`builtin`
// builtins (spec §4.7's "command" bypasses shell function resolution).
func (it *Interp) DispatchRegistered(argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, bool) {
	if it.reg == nil || len(argv) == 0 {
		return 0, false
	}
	cmd, ok := it.reg.Lookup(argv[0])
	if !ok {
		return 0, false
	}
	status := cmd.Invoke(argv, stdin, stdout, stderr, it)
	it.logger.Command(argv, status)
	return status, true
}

// IsRegistered reports whether name resolves in the command registry,
// used by `type` to answer without actually invoking the command.
func (it *Interp) IsRegistered(name string) bool {
	if it.reg == nil {
		return false
	}
	_, ok := it.reg.Lookup(name)
	return ok
}

// SetPositional replaces $1.. and $# in the current frame (used by
// `set --` and `shift`).
func (it *Interp) SetPositional(args []string) {
	f := it.frames[len(it.frames)-1]
	for k := range f.vars {
		if _, err := strconv.Atoi(k); err == nil {
			delete(f.vars, k)
		}
	}
	f.vars["#"] = newScalar(strconv.Itoa(len(args)))
	for i, a := range args {
		f.vars[strconv.Itoa(i+1)] = newScalar(a)
	}
}

// Shift removes n positional parameters from the front (the `shift`
// builtin), returning false if fewer than n remain.
func (it *Interp) Shift(n int) bool {
	f := it.frames[len(it.frames)-1]
	count := 0
	if v, ok := f.vars["#"]; ok {
		count, _ = strconv.Atoi(v.Str)
	}
	if n > count {
		return false
	}
	args := make([]string, 0, count-n)
	for i := n + 1; i <= count; i++ {
		if v, ok := f.vars[strconv.Itoa(i)]; ok {
			args = append(args, v.Str)
		}
	}
	it.SetPositional(args)
	return true
}

// runState is the resource-limit and cancellation state shared by a
// session's root interpreter and every subshell/pipeline-stage fork of
// it, so a `while true; do :; done | cat` still counts against one
// statement budget. Guarded by mu since pipeline stages run their own
// goroutine (core/stream.Pipe wiring), even though the language model
// they implement is spec §5's single-threaded cooperative one.
type runState struct {
	mu        sync.Mutex
	limits    Limits
	stmtCount int
	deadline  time.Time
	cancelled bool
}

func newRunState(limits Limits, deadline time.Time) *runState {
	return &runState{limits: limits, deadline: deadline}
}

func (rs *runState) cancel() {
	rs.mu.Lock()
	rs.cancelled = true
	rs.mu.Unlock()
}

func (rs *runState) isCancelled() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.cancelled
}

// countStatement increments the shared statement counter and checks the
// statement and wall-clock limits, returning a *LimitExceeded if either
// is tripped (spec §5).
func (rs *runState) countStatement() error {
	rs.mu.Lock()
	rs.stmtCount++
	n := rs.stmtCount
	rs.mu.Unlock()
	if n > rs.limits.MaxStatements {
		return &LimitExceeded{Kind: "max_statements"}
	}
	if !rs.deadline.IsZero() && !time.Now().Before(rs.deadline) {
		return &LimitExceeded{Kind: "max_wall_clock"}
	}
	return nil
}

// Fetcher is the injectable network adapter the `curl`/`wget` utilities
// call, defaulting to disabled per spec.md §1's Non-goals.
type Fetcher interface {
	Fetch(url string) ([]byte, int, error)
}

// New builds an interpreter over a fresh in-memory filesystem seeded
// from cfg. now is used for all VFS mtimes and $SECONDS/$RANDOM seeding.
func New(cfg SessionConfig, now func() time.Time) (*Interp, error) {
	if now == nil {
		now = time.Now
	}
	maxBytes := cfg.Limits.MaxVFSBytes
	if maxBytes == 0 {
		maxBytes = 64 << 20
	}
	fsRoot := vfs.NewMemory(now, maxBytes)
	fsCtx := vfs.Context{UID: 1000, GID: 1000, CWD: "/", Umask: 022}

	it := &Interp{
		fsRoot:    fsRoot,
		fsCtx:     fsCtx,
		frames:    []*Frame{newFrame(false)},
		functions: map[string]*ast.FunctionDef{},
		aliases:   map[string]string{},
		opts:       map[string]bool{},
		baseLimits: DefaultLimits(),
		pid:       1000 + int(now().UnixNano()%9000),
		startTime: now(),
		rng:       rand.New(rand.NewSource(now().UnixNano())),
		fds:       map[int]fd{},
		network:   cfg.NetworkEnabled,
		bgJobs:    map[int]chan int{},
	}
	it.pidCounter = it.pid
	it.afs = vfs.NewAferoFS(fsRoot, fsCtx)

	if err := it.seedStandardDirs(); err != nil {
		return nil, err
	}
	if err := it.seedFilesystem(cfg); err != nil {
		return nil, err
	}
	for k, v := range cfg.Env {
		val := newScalar(v)
		val.Attrs.Exported = true
		it.frames[0].vars[k] = val
	}
	cwd := cfg.Cwd
	if cwd == "" {
		cwd = "/"
	}
	if err := it.Chdir(cwd); err != nil {
		return nil, err
	}
	if cfg.Limits.MaxStatements > 0 {
		it.baseLimits.MaxStatements = cfg.Limits.MaxStatements
	}
	if cfg.Limits.MaxCallDepth > 0 {
		it.baseLimits.MaxCallDepth = cfg.Limits.MaxCallDepth
	}
	if cfg.Limits.MaxLoopIterations > 0 {
		it.baseLimits.MaxLoopIter = cfg.Limits.MaxLoopIterations
	}
	if cfg.Limits.MaxWallClock > 0 {
		it.baseLimits.MaxWallClock = cfg.Limits.MaxWallClock
	}
	if cfg.Limits.MaxPipeBuffer > 0 {
		it.baseLimits.MaxPipeBuffer = cfg.Limits.MaxPipeBuffer
	}
	it.frames[0].vars["IFS"] = newScalar(" \t\n")
	it.frames[0].vars["#"] = newScalar("0")
	it.frames[0].vars["?"] = newScalar("0")
	return it, nil
}

// seedStandardDirs creates the baseline layout every real POSIX system
// ships pre-made — /tmp above all, since spec §8's VFS round-trip
// scenario redirects into it without first creating it, the way a real
// shell can rely on /tmp already existing.
func (it *Interp) seedStandardDirs() error {
	for _, d := range []string{"/tmp", "/root", "/home", "/bin", "/etc"} {
		if err := it.afs.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

func (it *Interp) seedFilesystem(cfg SessionConfig) error {
	for p, data := range cfg.Files {
		dir := path.Dir(p)
		if dir != "." && dir != "/" {
			if err := it.afs.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
		f, err := it.afs.OpenFile(p, osCreateTrunc, 0644)
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return err
		}
		f.Close()
	}
	return nil
}

// osCreateTrunc matches os.O_WRONLY|os.O_CREATE|os.O_TRUNC without
// importing the os package purely for these flag constants a second time.
const osCreateTrunc = 1<<1 | 0x40 | 0x200

// ---- registry.Session ----

var _ registry.Session = (*Interp)(nil)

func (it *Interp) Filesystem() afero.Fs { return it.afs }

func (it *Interp) Getenv(name string) string {
	v := it.lookupValue(name)
	if v == nil || !v.Attrs.Exported {
		return ""
	}
	return v.Str
}

func (it *Interp) Setenv(name, value string) {
	it.frames[0].vars[name] = &Value{Kind: expand.Scalar, Str: value, Attrs: Attrs{Exported: true}}
}

func (it *Interp) Environ() []string {
	seen := map[string]bool{}
	var out []string
	for i := len(it.frames) - 1; i >= 0; i-- {
		for name, v := range it.frames[i].vars {
			if seen[name] || !v.Attrs.Exported {
				continue
			}
			seen[name] = true
			out = append(out, name+"="+v.Str)
		}
	}
	return out
}

func (it *Interp) Cwd() string { return it.fsCtx.CWD }

func (it *Interp) Chdir(p string) error {
	resolved := p
	if !strings.HasPrefix(p, "/") {
		resolved = path.Join(it.fsCtx.CWD, p)
	}
	resolved = path.Clean(resolved)
	st, errno := it.fsRoot.Stat(it.fsCtx, resolved)
	if errno != vfs.Success {
		return vfs.WrapErrno("chdir", p, errno)
	}
	if !st.IsDir {
		return vfs.WrapErrno("chdir", p, vfs.ENOTDIR)
	}
	it.fsCtx.CWD = resolved
	it.afs = vfs.NewAferoFS(it.fsRoot, it.fsCtx)
	return nil
}

func (it *Interp) NetworkEnabled() bool { return it.network }

// SetFetcher installs the network adapter `curl`/`wget` call through.
func (it *Interp) SetFetcher(f Fetcher) { it.fetcher = f }

// Fetch runs the installed Fetcher, refusing when networking is
// disabled for this session (spec.md §1's Non-goals default) or no
// Fetcher was configured.
func (it *Interp) Fetch(url string) ([]byte, int, error) {
	if !it.network || it.fetcher == nil {
		return nil, 0, ErrNetworkDisabled
	}
	return it.fetcher.Fetch(url)
}

func (it *Interp) Cancelled() bool { return it.rs != nil && it.rs.isCancelled() }

// Cancel requests cooperative cancellation, observed at the next
// checked suspension point (spec §5).
func (it *Interp) Cancel() {
	if it.rs != nil {
		it.rs.cancel()
	}
}

// ---- expand.Context ----

var _ expand.Context = (*Interp)(nil)

func (it *Interp) Lookup(name string) expand.Var {
	switch name {
	case "?":
		return expand.Var{Kind: expand.Scalar, Str: it.frames[0].vars["?"].Str}
	case "$":
		return expand.Var{Kind: expand.Scalar, Str: strconv.Itoa(it.pid)}
	case "!":
		if it.lastBgPid == 0 {
			return expand.Var{Kind: expand.Unset}
		}
		return expand.Var{Kind: expand.Scalar, Str: strconv.Itoa(it.lastBgPid)}
	case "_":
		return expand.Var{Kind: expand.Scalar, Str: it.lastArg}
	case "RANDOM":
		return expand.Var{Kind: expand.Scalar, Str: strconv.Itoa(it.rng.Intn(32768))}
	case "SECONDS":
		elapsed := int64(time.Since(it.startTime).Seconds()) + it.secondsRef
		return expand.Var{Kind: expand.Scalar, Str: strconv.FormatInt(elapsed, 10)}
	case "LINENO":
		return expand.Var{Kind: expand.Scalar, Str: strconv.Itoa(it.lineno)}
	case "PWD":
		return expand.Var{Kind: expand.Scalar, Str: it.fsCtx.CWD}
	}
	v := it.lookupValue(name)
	return v.toVar()
}

func (it *Interp) lookupValue(name string) *Value {
	if name == "SECONDS" {
		elapsed := int64(time.Since(it.startTime).Seconds()) + it.secondsRef
		return newScalar(strconv.FormatInt(elapsed, 10))
	}
	for i := len(it.frames) - 1; i >= 0; i-- {
		if v, ok := it.frames[i].vars[name]; ok {
			if v.Attrs.Nameref && v.Str != name {
				return it.resolveNameref(v.Str, map[string]bool{name: true})
			}
			return v
		}
	}
	return nil
}

func (it *Interp) resolveNameref(target string, seen map[string]bool) *Value {
	if seen[target] || len(seen) > 10 {
		return nil
	}
	seen[target] = true
	for i := len(it.frames) - 1; i >= 0; i-- {
		if v, ok := it.frames[i].vars[target]; ok {
			if v.Attrs.Nameref && v.Str != target {
				return it.resolveNameref(v.Str, seen)
			}
			return v
		}
	}
	return nil
}

// frameFor returns the frame an assignment to name should land in:
// the nearest enclosing frame that already defines it, else the
// global (bottom) frame (spec §3).
func (it *Interp) frameFor(name string) *Frame {
	for i := len(it.frames) - 1; i >= 0; i-- {
		if _, ok := it.frames[i].vars[name]; ok {
			return it.frames[i]
		}
	}
	return it.frames[0]
}

func (it *Interp) SetVar(name, value string) error {
	f := it.frameFor(name)
	existing := f.vars[name]
	if existing != nil {
		if existing.Attrs.Readonly {
			return &ReadonlyError{Name: name}
		}
		if existing.Attrs.Nameref && existing.Str != name {
			return it.SetVar(existing.Str, value)
		}
		existing.Kind = expand.Scalar
		existing.Str = existing.applyCase(value)
		return nil
	}
	f.vars[name] = newScalar(value)
	return nil
}

func (it *Interp) appendVar(name, value string) error {
	f := it.frameFor(name)
	if existing, ok := f.vars[name]; ok {
		if existing.Attrs.Readonly {
			return &ReadonlyError{Name: name}
		}
		switch existing.Kind {
		case expand.Indexed:
			next := 0
			for k := range existing.Idx {
				if k >= next {
					next = k + 1
				}
			}
			existing.Idx[next] = value
			return nil
		default:
			existing.Str = existing.applyCase(existing.Str + value)
			return nil
		}
	}
	f.vars[name] = newScalar(value)
	return nil
}

func (it *Interp) SetIndexed(name string, index int, value string) error {
	f := it.frameFor(name)
	v, ok := f.vars[name]
	if !ok {
		v = &Value{Kind: expand.Indexed, Idx: map[int]string{}}
		f.vars[name] = v
	}
	if v.Attrs.Readonly {
		return &ReadonlyError{Name: name}
	}
	if v.Kind != expand.Indexed {
		v.Kind = expand.Indexed
		v.Idx = map[int]string{}
	}
	v.Idx[index] = v.applyCase(value)
	return nil
}

func (it *Interp) SetAssoc(name, key, value string) error {
	f := it.frameFor(name)
	v, ok := f.vars[name]
	if !ok {
		v = &Value{Kind: expand.Assoc, Assoc: map[string]string{}}
		f.vars[name] = v
	}
	if v.Attrs.Readonly {
		return &ReadonlyError{Name: name}
	}
	if v.Kind != expand.Assoc {
		v.Kind = expand.Assoc
		v.Assoc = map[string]string{}
	}
	v.Assoc[key] = v.applyCase(value)
	return nil
}

func (it *Interp) Unset(name string) error {
	for i := len(it.frames) - 1; i >= 0; i-- {
		if v, ok := it.frames[i].vars[name]; ok {
			if v.Attrs.Readonly {
				return &ReadonlyError{Name: name}
			}
			delete(it.frames[i].vars, name)
			return nil
		}
	}
	return nil
}

func (it *Interp) IFS() string {
	v := it.lookupValue("IFS")
	if v == nil {
		return " \t\n"
	}
	return v.Str
}

func (it *Interp) Opt(name string) bool { return it.opts[name] }

func (it *Interp) SetOpt(name string, on bool) { it.opts[name] = on }

func (it *Interp) HomeDir(user string) (string, bool) {
	if user == "" {
		v := it.lookupValue("HOME")
		if v == nil || v.Str == "" {
			return "", false
		}
		return v.Str, true
	}
	return "", false
}

func (it *Interp) Pid() int { return it.pid }

func (it *Interp) NamesWithPrefix(prefix string) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range it.frames {
		for name := range f.vars {
			if strings.HasPrefix(name, prefix) && !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

func (it *Interp) ExpandWordText(w *ast.Word) (string, error) {
	return expand.ExpandWordText(it, w)
}

func (it *Interp) Glob(pattern string) ([]string, error) {
	return expand.GlobPath(it.afs, it.fsCtx.CWD, pattern, it.Opt("globstar"))
}

func (it *Interp) RunCommandSubstitution(raw string) (string, error) {
	sc, err := parseCached(raw)
	if err != nil {
		return "", err
	}
	sub := it.forkSubshell()
	out := stream.NewMemory()
	status, err := sub.execScript(sc, sub.stdin(), out, io.Discard)
	it.setStatus(status)
	if err != nil {
		switch err.(type) {
		case *LimitExceeded, Cancelled:
			return "", err
		}
		if _, ok := err.(controlSignal); !ok {
			return "", err
		}
	}
	s := string(out.Bytes())
	return strings.TrimRight(s, "\n"), nil
}

func (it *Interp) stdin() io.Reader {
	if f, ok := it.fds[0]; ok && f.r != nil {
		return f.r
	}
	return strings.NewReader("")
}

// setStatus sets $?, which always lives in the global frame regardless
// of the current scope (bash never lets `local` shadow it).
func (it *Interp) setStatus(n int) {
	it.frames[0].vars["?"] = newScalar(strconv.Itoa(n))
}

func (it *Interp) status() int {
	n, _ := strconv.Atoi(it.frames[0].vars["?"].Str)
	return n
}

// Status returns the current $? for builtins that default to it (`exit`
// and `return` with no argument).
func (it *Interp) Status() int { return it.status() }

// ReadonlyError reports assignment to or unset of a readonly variable
// (spec §3's invariant).
type ReadonlyError struct{ Name string }

func (e *ReadonlyError) Error() string { return e.Name + ": readonly variable" }
