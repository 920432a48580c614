package eval

import (
	"github.com/mistvale/vshell/core/ast"
	"github.com/mistvale/vshell/core/vfs"
)

// forkSubshell builds a child interpreter for `(...)`, command
// substitution, and pipeline stages: a fresh, single-frame copy of the
// visible variable table (spec §4.4's "copied, not aliased") plus copies
// of the function table, aliases, and options, sharing the VFS tree and
// the resource-limit/cancellation state with the parent so filesystem
// effects and limit accounting are session-wide while variable, cwd,
// function, and alias changes are discarded on exit (spec §8 property 4).
func (it *Interp) forkSubshell() *Interp {
	child := &Interp{
		fsRoot:     it.fsRoot,
		fsCtx:      it.fsCtx,
		frames:     []*Frame{copyFlattenedFrame(it.frames)},
		functions:  copyFuncs(it.functions),
		aliases:    copyStrMap(it.aliases),
		opts:       copyBoolMap(it.opts),
		baseLimits: it.baseLimits,
		rs:         it.rs,
		callDepth:  it.callDepth,
		pid:        it.pid,
		startTime:  it.startTime,
		secondsRef: it.secondsRef,
		rng:        it.rng,
		lastArg:    it.lastArg,
		lastBgPid:  it.lastBgPid,
		lineno:     it.lineno,
		fds:        map[int]fd{},
		network:    it.network,
		fetcher:    it.fetcher,
		reg:        it.reg,
		logger:     it.logger,
		pidCounter: it.pidCounter,
		bgJobs:     map[int]chan int{},
	}
	for k, v := range it.fds {
		child.fds[k] = v
	}
	// Rebuilt fresh rather than copying it.afs: AferoFS closes over the
	// ctx it was constructed with, and the child's fsCtx is a separate
	// copy that Chdir will mutate independently of the parent's.
	child.afs = vfs.NewAferoFS(child.fsRoot, child.fsCtx)
	return child
}

func copyFlattenedFrame(frames []*Frame) *Frame {
	f := newFrame(false)
	for _, src := range frames {
		for name, v := range src.vars {
			cp := *v
			if v.Idx != nil {
				cp.Idx = make(map[int]string, len(v.Idx))
				for k, s := range v.Idx {
					cp.Idx[k] = s
				}
			}
			if v.Assoc != nil {
				cp.Assoc = make(map[string]string, len(v.Assoc))
				for k, s := range v.Assoc {
					cp.Assoc[k] = s
				}
			}
			f.vars[name] = &cp
		}
	}
	return f
}

func copyFuncs(m map[string]*ast.FunctionDef) map[string]*ast.FunctionDef {
	out := make(map[string]*ast.FunctionDef, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStrMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
