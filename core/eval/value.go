// Package eval implements the evaluator of spec §4.4: the AST walker,
// scope-frame stack, control flow, pipelines, and resource limits.
// Scope frames and dynamic function scoping follow just_bash's
// InterpreterState.local_scopes stack model (SPEC_FULL.md Evaluator
// section).
package eval

import "github.com/mistvale/vshell/core/expand"

// Attrs are the per-variable attribute flags of spec §3.
type Attrs struct {
	Exported bool
	Readonly bool
	Integer  bool
	Lower    bool
	Upper    bool
	Nameref  bool
}

// Value is a shell variable: a scalar, an indexed array, or an
// associative array, plus its attributes. Unset is represented by the
// variable's absence from every frame, never by a zero Value sitting in
// a frame.
type Value struct {
	Kind  expand.VarKind
	Str   string
	Idx   map[int]string
	Assoc map[string]string
	Attrs Attrs
}

func newScalar(s string) *Value { return &Value{Kind: expand.Scalar, Str: s} }

func (v *Value) toVar() expand.Var {
	if v == nil {
		return expand.Var{Kind: expand.Unset}
	}
	return expand.Var{Kind: v.Kind, Str: v.Str, Idx: v.Idx, Assoc: v.Assoc}
}

// applyCase enforces the lowercase/uppercase attribute on assignment.
func (v *Value) applyCase(s string) string {
	if v.Attrs.Upper {
		return upperASCII(s)
	}
	if v.Attrs.Lower {
		return lowerASCII(s)
	}
	return s
}

func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Frame is one level of the scope stack (spec §3). vars holds the
// frame's own bindings; funcLocal marks a frame pushed for a function
// call. Nothing reads funcLocal: `local` binds in the innermost frame and
// the call-depth limit is counted by Interp.callDepth.
type Frame struct {
	vars      map[string]*Value
	funcLocal bool
}

func newFrame(funcLocal bool) *Frame {
	return &Frame{vars: map[string]*Value{}, funcLocal: funcLocal}
}
