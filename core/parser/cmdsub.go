package parser

import "github.com/mistvale/vshell/core/ast"

// resolveCmdSubs is the second parsing pass mentioned in ast.CmdSub's doc
// comment: it walks every Word reachable from sc and recursively parses
// the Raw source of each CmdSub/backtick substitution into a Body script,
// without the lexer package ever needing to import parser.
func resolveCmdSubs(sc *ast.Script) error {
	return walkScript(sc)
}

func walkScript(sc *ast.Script) error {
	if sc == nil {
		return nil
	}
	for _, stmt := range sc.Statements {
		if err := walkAndOr(stmt.Pipeline); err != nil {
			return err
		}
	}
	return nil
}

func walkAndOr(ao *ast.AndOr) error {
	if ao == nil {
		return nil
	}
	if err := walkPipeline(ao.First); err != nil {
		return err
	}
	for _, tail := range ao.Rest {
		if err := walkPipeline(tail.Pipeline); err != nil {
			return err
		}
	}
	return nil
}

func walkPipeline(pl *ast.Pipeline) error {
	if pl == nil {
		return nil
	}
	for _, cmd := range pl.Commands {
		if err := walkCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

func walkCommand(cmd ast.Command) error {
	switch n := cmd.(type) {
	case *ast.Simple:
		for _, a := range n.Assignments {
			if err := walkWord(a.Value); err != nil {
				return err
			}
			if err := walkWord(a.Index); err != nil {
				return err
			}
		}
		for _, w := range n.Words {
			if err := walkWord(w); err != nil {
				return err
			}
		}
		for _, r := range n.Redirects {
			if err := walkWord(r.Target); err != nil {
				return err
			}
		}
	case *ast.Compound:
		for _, r := range n.Redirects {
			if err := walkWord(r.Target); err != nil {
				return err
			}
		}
		return walkCommand(n.Body)
	case *ast.If:
		if err := walkScript(n.Cond); err != nil {
			return err
		}
		if err := walkScript(n.Then); err != nil {
			return err
		}
		for _, e := range n.Elifs {
			if err := walkScript(e.Cond); err != nil {
				return err
			}
			if err := walkScript(e.Then); err != nil {
				return err
			}
		}
		return walkScript(n.Else)
	case *ast.While:
		if err := walkScript(n.Cond); err != nil {
			return err
		}
		return walkScript(n.Body)
	case *ast.For:
		for _, w := range n.Words {
			if err := walkWord(w); err != nil {
				return err
			}
		}
		return walkScript(n.Body)
	case *ast.CFor:
		return walkScript(n.Body)
	case *ast.Case:
		if err := walkWord(n.Subject); err != nil {
			return err
		}
		for _, cl := range n.Clauses {
			for _, pat := range cl.Patterns {
				if err := walkWord(pat); err != nil {
					return err
				}
			}
			if err := walkScript(cl.Body); err != nil {
				return err
			}
		}
	case *ast.Subshell:
		return walkScript(n.Body)
	case *ast.Group:
		return walkScript(n.Body)
	case *ast.FunctionDef:
		return walkCommand(n.Body)
	case *ast.Cond:
		return walkCondExpr(n.Expr)
	case *ast.Arith:
		// Arith.Expr is raw arithmetic text, not a Word; command
		// substitutions inside `$(...)` nested in `((...))` are resolved
		// by core/expand at evaluation time, not here.
	}
	return nil
}

func walkCondExpr(e ast.CondExpr) error {
	switch n := e.(type) {
	case ast.CondUnary:
		return walkWord(n.Arg)
	case ast.CondBinary:
		if err := walkWord(n.Left); err != nil {
			return err
		}
		return walkWord(n.Right)
	case ast.CondNot:
		return walkCondExpr(n.X)
	case ast.CondAnd:
		if err := walkCondExpr(n.X); err != nil {
			return err
		}
		return walkCondExpr(n.Y)
	case ast.CondOr:
		if err := walkCondExpr(n.X); err != nil {
			return err
		}
		return walkCondExpr(n.Y)
	case ast.CondWord:
		return walkWord(n.W)
	}
	return nil
}

func walkWord(w *ast.Word) error {
	if w == nil {
		return nil
	}
	for i, part := range w.Parts {
		switch pt := part.(type) {
		case ast.CmdSub:
			body, err := Parse(pt.Raw)
			if err != nil {
				return err
			}
			pt.Body = body
			w.Parts[i] = pt
		case ast.ParamExp:
			if err := walkWord(pt.Index); err != nil {
				return err
			}
			if err := walkWord(pt.OpArg); err != nil {
				return err
			}
			if err := walkWord(pt.OpArg2); err != nil {
				return err
			}
		case ast.ArithExp:
			if err := walkWord(pt.Expr); err != nil {
				return err
			}
		}
	}
	return nil
}
