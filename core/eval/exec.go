package eval

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mistvale/vshell/core/ast"
	"github.com/mistvale/vshell/core/expand"
	"github.com/mistvale/vshell/core/registry"
	"github.com/mistvale/vshell/core/stream"
)

// ioSet is the (stdin, stdout, stderr) triple threaded through the AST
// walk, rebuilt at each redirection boundary.
type ioSet struct {
	in         io.Reader
	out, errW  io.Writer
}

// execScript runs sc to completion (or until a control signal escapes
// it) and returns the exit status of its last executed statement. It is
// the single entry point used for the top-level run, subshells,
// function bodies, and control-flow bodies alike.
func (it *Interp) execScript(sc *ast.Script, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	io_ := ioSet{in: stdin, out: stdout, errW: stderr}
	status := 0
	for _, st := range sc.Statements {
		it.lineno = st.Pos.Line
		s, err := it.execStatement(st, io_)
		status = s
		it.setStatus(status)
		if err != nil {
			return status, err
		}
		if status != 0 && it.Opt("errexit") && !st.Async {
			return status, &errexitUnwind{status: status}
		}
	}
	return status, nil
}

// errexitUnwind is raised internally to unwind a script/function body
// when `set -e` promotes a nonzero status; Run/Exec convert it back into
// a plain exit status rather than reporting it as a hard failure.
type errexitUnwind struct{ status int }

func (e *errexitUnwind) Error() string { return "errexit" }
func (*errexitUnwind) controlSignal()  {}

func (it *Interp) execStatement(st ast.Statement, io_ ioSet) (int, error) {
	if it.rs != nil {
		if err := it.rs.countStatement(); err != nil {
			return 124, err
		}
		if it.rs.isCancelled() {
			return 130, Cancelled{}
		}
	}
	if st.Async {
		child := it.forkSubshell()
		pid := it.nextPid()
		ch := make(chan int, 1)
		it.bgJobs[pid] = ch
		go func() {
			status, _ := child.execAndOr(st.Pipeline, io_)
			ch <- status
		}()
		it.lastBgPid = pid
		return 0, nil
	}
	return it.execAndOr(st.Pipeline, io_)
}

func (it *Interp) execAndOr(ao *ast.AndOr, io_ ioSet) (int, error) {
	status, err := it.execPipeline(ao.First, io_)
	if err != nil {
		return status, err
	}
	for _, tail := range ao.Rest {
		if tail.Op == ast.AndAnd && status != 0 {
			continue
		}
		if tail.Op == ast.OrOr && status == 0 {
			continue
		}
		status, err = it.execPipeline(tail.Pipeline, io_)
		if err != nil {
			return status, err
		}
		it.setStatus(status)
	}
	return status, nil
}

func (it *Interp) execPipeline(p *ast.Pipeline, io_ ioSet) (int, error) {
	var status int
	var err error
	if len(p.Commands) == 1 {
		status, err = it.execCommand(p.Commands[0], io_)
	} else {
		status, err = it.execMultiStage(p, io_)
	}
	if err != nil {
		return status, err
	}
	if p.Negate {
		if status == 0 {
			status = 1
		} else {
			status = 0
		}
	}
	return status, nil
}

// stageResult carries one pipeline stage's outcome back to the
// coordinating goroutine.
type stageResult struct {
	status int
	err    error
}

// execMultiStage wires N-1 core/stream.Pipe instances between N cooperative
// tasks, one goroutine per stage — the idiomatic-Go rendering of spec §5's
// single-threaded cooperative scheduling model (see core/stream.Pipe's
// doc comment for the same tradeoff at the byte-stream level). Each stage
// runs against its own forked Interp, giving it copy-not-alias scope
// semantics identical to a subshell.
func (it *Interp) execMultiStage(p *ast.Pipeline, io_ ioSet) (int, error) {
	n := len(p.Commands)
	pipes := make([]*stream.Pipe, n-1)
	bufSize := it.baseLimits.MaxPipeBuffer
	if it.rs != nil {
		bufSize = it.rs.limits.MaxPipeBuffer
	}
	for i := range pipes {
		pipes[i] = stream.NewPipe(bufSize)
	}

	results := make([]stageResult, n)
	done := make(chan int, n)

	for i := 0; i < n; i++ {
		stageIn := io_.in
		stageOut := io_.out
		if i > 0 {
			stageIn = pipes[i-1]
		}
		if i < n-1 {
			stageOut = pipes[i]
		}
		child := it.forkSubshell()
		cmd := p.Commands[i]
		idx := i
		go func() {
			st, err := child.execCommand(cmd, ioSet{in: stageIn, out: stageOut, errW: io_.errW})
			if i2 := idx; i2 < n-1 {
				pipes[i2].Close()
			}
			results[idx] = stageResult{status: st, err: err}
			done <- idx
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
	for _, r := range results {
		if r.err != nil {
			switch r.err.(type) {
			case *LimitExceeded, Cancelled:
				return r.status, r.err
			}
			if _, ok := r.err.(controlSignal); ok {
				continue
			}
			return r.status, r.err
		}
	}
	last := results[n-1].status
	if it.Opt("pipefail") {
		for _, r := range results {
			if r.status != 0 {
				last = r.status
			}
		}
	}
	return last, nil
}

func (it *Interp) execCommand(cmd ast.Command, io_ ioSet) (int, error) {
	switch c := cmd.(type) {
	case *ast.Simple:
		return it.execSimple(c, io_)
	case *ast.Compound:
		return it.execCompound(c, io_)
	}
	return 1, fmt.Errorf("eval: unknown command node %T", cmd)
}

func (it *Interp) execCompound(c *ast.Compound, io_ ioSet) (int, error) {
	fds, restore, err := it.applyRedirects(c.Redirects, io_)
	if err != nil {
		return 1, err
	}
	defer restore()

	switch b := c.Body.(type) {
	case *ast.If:
		return it.execIf(b, fds)
	case *ast.While:
		return it.execWhile(b, fds)
	case *ast.For:
		return it.execFor(b, fds)
	case *ast.CFor:
		return it.execCFor(b, fds)
	case *ast.Case:
		return it.execCase(b, fds)
	case *ast.Subshell:
		return it.execSubshell(b, fds)
	case *ast.Group:
		return it.execScript(b.Body, fds.in, fds.out, fds.errW)
	case *ast.FunctionDef:
		it.functions[b.Name] = b
		return 0, nil
	case *ast.Cond:
		v, err := it.evalCond(b.Expr)
		if err != nil {
			it.reportError(fds.errW, err)
			return 1, nil
		}
		if v {
			return 0, nil
		}
		return 1, nil
	case *ast.Arith:
		n, err := expand.EvalArith(it, b.Expr)
		if err != nil {
			it.reportError(fds.errW, err)
			return 1, nil
		}
		if n != 0 {
			return 0, nil
		}
		return 1, nil
	}
	return 1, fmt.Errorf("eval: unknown compound body %T", c.Body)
}

func (it *Interp) execIf(b *ast.If, io_ ioSet) (int, error) {
	status, err := it.execCond(b.Cond, io_)
	if err != nil {
		return status, err
	}
	if status == 0 {
		return it.execScript(b.Then, io_.in, io_.out, io_.errW)
	}
	for _, el := range b.Elifs {
		status, err = it.execCond(el.Cond, io_)
		if err != nil {
			return status, err
		}
		if status == 0 {
			return it.execScript(el.Then, io_.in, io_.out, io_.errW)
		}
	}
	if b.Else != nil {
		return it.execScript(b.Else, io_.in, io_.out, io_.errW)
	}
	return 0, nil
}

// execCond runs a condition list without applying `set -e` to its own
// failure (spec §7's "outside conditions" clause).
func (it *Interp) execCond(sc *ast.Script, io_ ioSet) (int, error) {
	status := 0
	for _, st := range sc.Statements {
		s, err := it.execStatement(st, io_)
		status = s
		it.setStatus(status)
		if err != nil {
			if _, ok := err.(*errexitUnwind); ok {
				continue
			}
			return status, err
		}
	}
	return status, nil
}

func (it *Interp) execWhile(b *ast.While, io_ ioSet) (int, error) {
	status := 0
	iters := 0
	maxIter := it.baseLimits.MaxLoopIter
	if it.rs != nil {
		maxIter = it.rs.limits.MaxLoopIter
	}
	for {
		condStatus, err := it.execCond(b.Cond, io_)
		if err != nil {
			return condStatus, err
		}
		truth := condStatus == 0
		if b.Until {
			truth = condStatus != 0
		}
		if !truth {
			break
		}
		iters++
		if iters > maxIter {
			return 124, &LimitExceeded{Kind: "max_loop_iterations"}
		}
		status, err = it.execScript(b.Body, io_.in, io_.out, io_.errW)
		if brk, ok := err.(breakSignal); ok {
			if brk.n > 1 {
				return status, breakSignal{n: brk.n - 1}
			}
			break
		}
		if cont, ok := err.(continueSignal); ok {
			if cont.n > 1 {
				return status, continueSignal{n: cont.n - 1}
			}
			continue
		}
		if err != nil {
			return status, err
		}
	}
	return status, nil
}

func (it *Interp) execFor(b *ast.For, io_ ioSet) (int, error) {
	status := 0
	var words []string
	for _, w := range b.Words {
		fs, err := expand.ExpandWord(it, w)
		if err != nil {
			return 1, err
		}
		words = append(words, fs...)
	}
	maxIter := it.baseLimits.MaxLoopIter
	if it.rs != nil {
		maxIter = it.rs.limits.MaxLoopIter
	}
	for i, w := range words {
		if i >= maxIter {
			return 124, &LimitExceeded{Kind: "max_loop_iterations"}
		}
		if err := it.SetVar(b.Var, w); err != nil {
			return 1, err
		}
		var err error
		status, err = it.execScript(b.Body, io_.in, io_.out, io_.errW)
		if brk, ok := err.(breakSignal); ok {
			if brk.n > 1 {
				return status, breakSignal{n: brk.n - 1}
			}
			break
		}
		if cont, ok := err.(continueSignal); ok {
			if cont.n > 1 {
				return status, continueSignal{n: cont.n - 1}
			}
			continue
		}
		if err != nil {
			return status, err
		}
	}
	return status, nil
}

func (it *Interp) execCFor(b *ast.CFor, io_ ioSet) (int, error) {
	status := 0
	if b.Init != "" {
		if _, err := expand.EvalArith(it, b.Init); err != nil {
			return 1, err
		}
	}
	maxIter := it.baseLimits.MaxLoopIter
	if it.rs != nil {
		maxIter = it.rs.limits.MaxLoopIter
	}
	iters := 0
	for {
		if b.Cond != "" {
			n, err := expand.EvalArith(it, b.Cond)
			if err != nil {
				return 1, err
			}
			if n == 0 {
				break
			}
		}
		iters++
		if iters > maxIter {
			return 124, &LimitExceeded{Kind: "max_loop_iterations"}
		}
		var err error
		status, err = it.execScript(b.Body, io_.in, io_.out, io_.errW)
		if brk, ok := err.(breakSignal); ok {
			if brk.n > 1 {
				return status, breakSignal{n: brk.n - 1}
			}
			break
		}
		if cont, ok := err.(continueSignal); !ok && err != nil {
			return status, err
		} else if ok && cont.n > 1 {
			return status, continueSignal{n: cont.n - 1}
		}
		if b.Step != "" {
			if _, err := expand.EvalArith(it, b.Step); err != nil {
				return 1, err
			}
		}
	}
	return status, nil
}

func (it *Interp) execCase(b *ast.Case, io_ ioSet) (int, error) {
	subject, err := it.ExpandWordText(b.Subject)
	if err != nil {
		return 1, err
	}
	status := 0
	for i, cl := range b.Clauses {
		matched := false
		for _, pw := range cl.Patterns {
			pat, err := it.ExpandWordText(pw)
			if err != nil {
				return 1, err
			}
			if expand.GlobMatch(pat, subject) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		status, err = it.execScript(cl.Body, io_.in, io_.out, io_.errW)
		if err != nil {
			return status, err
		}
		if cl.Fallthrough && i+1 < len(b.Clauses) {
			status, err = it.execScript(b.Clauses[i+1].Body, io_.in, io_.out, io_.errW)
			return status, err
		}
		return status, nil
	}
	return status, nil
}

func (it *Interp) execSubshell(b *ast.Subshell, io_ ioSet) (int, error) {
	child := it.forkSubshell()
	status, err := child.execScript(b.Body, io_.in, io_.out, io_.errW)
	if unwind, ok := err.(*errexitUnwind); ok {
		return unwind.status, nil
	}
	return status, err
}

func (it *Interp) reportError(w io.Writer, err error) {
	if w != nil {
		fmt.Fprintln(w, err.Error())
	}
}

// execSimple runs one simple command: apply redirects, apply
// assignments (permanently if there is no command word, transiently for
// the command's duration otherwise), expand argv, resolve and invoke.
func (it *Interp) execSimple(s *ast.Simple, io_ ioSet) (int, error) {
	fds, restore, err := it.applyRedirects(s.Redirects, io_)
	if err != nil {
		return 1, err
	}
	defer restore()

	if len(s.Words) == 0 {
		for _, a := range s.Assignments {
			if err := it.execAssignment(a); err != nil {
				it.reportError(fds.errW, err)
				return 1, nil
			}
		}
		return 0, nil
	}

	if len(s.Assignments) > 0 {
		top := newFrame(false)
		it.frames = append(it.frames, top)
		defer func() { it.frames = it.frames[:len(it.frames)-1] }()
		for _, a := range s.Assignments {
			if _, ok := top.vars[a.Name]; !ok {
				cp := Value{Kind: expand.Scalar}
				if v := it.lookupValue(a.Name); v != nil {
					cp = Value{Kind: expand.Scalar, Str: v.Str, Attrs: v.Attrs}
				}
				top.vars[a.Name] = &cp
			}
			if err := it.execAssignment(a); err != nil {
				it.reportError(fds.errW, err)
				return 1, nil
			}
		}
	}

	var argv []string
	for _, w := range s.Words {
		vals, err := expand.ExpandWord(it, w)
		if err != nil {
			if _, ok := err.(*expand.ExpansionError); ok {
				it.reportError(fds.errW, err)
				return 1, nil
			}
			return 1, err
		}
		argv = append(argv, vals...)
	}
	if len(argv) == 0 {
		return 0, nil
	}
	if len(argv) > 0 {
		it.lastArg = argv[len(argv)-1]
	}
	return it.dispatch(argv, fds)
}

func (it *Interp) execAssignment(a *ast.Assignment) error {
	if len(a.Elems) > 0 {
		for i, el := range a.Elems {
			val, err := it.ExpandWordText(el.Value)
			if err != nil {
				return err
			}
			idx := i
			if el.Index != nil {
				idxText, err := it.ExpandWordText(el.Index)
				if err != nil {
					return err
				}
				n, err := expand.EvalArith(it, idxText)
				if err != nil {
					return err
				}
				idx = int(n)
			}
			if err := it.SetIndexed(a.Name, idx, val); err != nil {
				return err
			}
		}
		return nil
	}
	val, err := it.ExpandWordText(a.Value)
	if err != nil {
		return err
	}
	if a.Index != nil {
		idxText, err := it.ExpandWordText(a.Index)
		if err != nil {
			return err
		}
		v := it.Lookup(a.Name)
		if v.Kind == expand.Assoc {
			return it.SetAssoc(a.Name, idxText, val)
		}
		n, err := expand.EvalArith(it, idxText)
		if err != nil {
			return err
		}
		return it.SetIndexed(a.Name, int(n), val)
	}
	if a.Append {
		return it.appendVar(a.Name, val)
	}
	return it.SetVar(a.Name, val)
}

// dispatch resolves argv[0] against functions, then the builtin/utility
// registry, then reports CommandNotFound — spec §4.4's ordering.
func (it *Interp) dispatch(argv []string, io_ ioSet) (int, error) {
	name := argv[0]
	if alias, ok := it.aliases[name]; ok && alias != name {
		expanded := strings.Fields(alias)
		argv = append(expanded, argv[1:]...)
		name = argv[0]
	}
	if fn, ok := it.functions[name]; ok {
		return it.callFunction(fn, argv, io_)
	}
	if it.reg != nil {
		if cmd, ok := it.reg.Lookup(name); ok {
			return it.invokeCommand(cmd, argv, io_)
		}
	}
	it.reportError(io_.errW, &CommandNotFound{Name: name})
	return 127, nil
}

func (it *Interp) invokeCommand(cmd registry.Command, argv []string, io_ ioSet) (int, error) {
	if it.rs != nil && it.rs.isCancelled() {
		return 130, Cancelled{}
	}
	status := cmd.Invoke(argv, io_.in, io_.out, io_.errW, it)
	it.logger.Command(argv, status)
	if it.pending != nil {
		sig := it.pending
		it.pending = nil
		return status, sig
	}
	return status, nil
}

func (it *Interp) callFunction(fn *ast.FunctionDef, argv []string, io_ ioSet) (int, error) {
	maxDepth := it.baseLimits.MaxCallDepth
	if it.rs != nil {
		maxDepth = it.rs.limits.MaxCallDepth
	}
	it.callDepth++
	defer func() { it.callDepth-- }()
	if it.callDepth > maxDepth {
		return 1, &LimitExceeded{Kind: "max_call_depth"}
	}

	it.frames = append(it.frames, newFrame(true))
	defer func() { it.frames = it.frames[:len(it.frames)-1] }()

	it.frames[len(it.frames)-1].vars["0"] = newScalar(argv[0])
	it.frames[len(it.frames)-1].vars["#"] = newScalar(strconv.Itoa(len(argv) - 1))
	for i, a := range argv[1:] {
		it.frames[len(it.frames)-1].vars[strconv.Itoa(i+1)] = newScalar(a)
	}

	group, ok := fn.Body.(*ast.Group)
	if !ok {
		return 1, fmt.Errorf("eval: function body must be a group")
	}
	status, err := it.execScript(group.Body, io_.in, io_.out, io_.errW)
	if ret, ok := err.(returnSignal); ok {
		return ret.status, nil
	}
	if unwind, ok := err.(*errexitUnwind); ok {
		return unwind.status, nil
	}
	return status, err
}
