package parser

import (
	"strconv"
	"strings"

	"github.com/mistvale/vshell/core/ast"
)

// Print renders sc as shell source. It is canonical in the sense needed
// by the parse/print idempotence property: re-parsing its output yields
// an AST equivalent to sc, though it does not attempt to reproduce the
// original script's exact formatting. Here-document bodies and the
// elements of `name=(...)` array literals are not printed, so scripts
// that use them do not survive a print/re-parse round trip.
func Print(sc *ast.Script) string {
	var b strings.Builder
	printScript(&b, sc, 0)
	return b.String()
}

func indent(b *strings.Builder, n int) {
	for i := 0; i < n; i++ {
		b.WriteString("  ")
	}
}

func printScript(b *strings.Builder, sc *ast.Script, depth int) {
	if sc == nil {
		return
	}
	for _, stmt := range sc.Statements {
		indent(b, depth)
		printAndOr(b, stmt.Pipeline, depth)
		if stmt.Async {
			b.WriteString(" &")
		}
		b.WriteString("\n")
	}
}

func printAndOr(b *strings.Builder, ao *ast.AndOr, depth int) {
	printPipeline(b, ao.First, depth)
	for _, tail := range ao.Rest {
		if tail.Op == ast.AndAnd {
			b.WriteString(" && ")
		} else {
			b.WriteString(" || ")
		}
		printPipeline(b, tail.Pipeline, depth)
	}
}

func printPipeline(b *strings.Builder, pl *ast.Pipeline, depth int) {
	if pl.Negate {
		b.WriteString("! ")
	}
	for i, cmd := range pl.Commands {
		if i > 0 {
			b.WriteString(" | ")
		}
		printCommand(b, cmd, depth)
	}
}

func printCommand(b *strings.Builder, cmd ast.Command, depth int) {
	switch n := cmd.(type) {
	case *ast.Simple:
		printSimple(b, n)
	case *ast.Compound:
		printCommand(b, n.Body, depth)
		for _, r := range n.Redirects {
			b.WriteString(" ")
			printRedirect(b, r)
		}
	case *ast.If:
		b.WriteString("if ")
		printScript(b, n.Cond, 0)
		b.WriteString("then\n")
		printScript(b, n.Then, depth+1)
		for _, e := range n.Elifs {
			b.WriteString("elif ")
			printScript(b, e.Cond, 0)
			b.WriteString("then\n")
			printScript(b, e.Then, depth+1)
		}
		if n.Else != nil {
			b.WriteString("else\n")
			printScript(b, n.Else, depth+1)
		}
		b.WriteString("fi")
	case *ast.While:
		if n.Until {
			b.WriteString("until ")
		} else {
			b.WriteString("while ")
		}
		printScript(b, n.Cond, 0)
		b.WriteString("do\n")
		printScript(b, n.Body, depth+1)
		b.WriteString("done")
	case *ast.For:
		b.WriteString("for ")
		b.WriteString(n.Var)
		if len(n.Words) > 0 {
			b.WriteString(" in")
			for _, w := range n.Words {
				b.WriteString(" ")
				printWord(b, w)
			}
		}
		b.WriteString("\ndo\n")
		printScript(b, n.Body, depth+1)
		b.WriteString("done")
	case *ast.CFor:
		b.WriteString("for ((" + n.Init + "; " + n.Cond + "; " + n.Step + "))\ndo\n")
		printScript(b, n.Body, depth+1)
		b.WriteString("done")
	case *ast.Case:
		b.WriteString("case ")
		printWord(b, n.Subject)
		b.WriteString(" in\n")
		for _, cl := range n.Clauses {
			indent(b, depth+1)
			for i, pat := range cl.Patterns {
				if i > 0 {
					b.WriteString("|")
				}
				printWord(b, pat)
			}
			b.WriteString(")\n")
			printScript(b, cl.Body, depth+2)
			switch {
			case cl.TestNext:
				indent(b, depth+1)
				b.WriteString(";;&\n")
			case cl.Fallthrough:
				indent(b, depth+1)
				b.WriteString(";&\n")
			default:
				indent(b, depth+1)
				b.WriteString(";;\n")
			}
		}
		b.WriteString("esac")
	case *ast.Subshell:
		b.WriteString("(")
		printScript(b, n.Body, 0)
		b.WriteString(")")
	case *ast.Group:
		b.WriteString("{ ")
		printScript(b, n.Body, 0)
		b.WriteString("}")
	case *ast.FunctionDef:
		b.WriteString(n.Name + "() ")
		printCommand(b, n.Body, depth)
	case *ast.Cond:
		b.WriteString("[[ ")
		printCondExpr(b, n.Expr)
		b.WriteString(" ]]")
	case *ast.Arith:
		b.WriteString("((" + n.Expr + "))")
	}
}

func printSimple(b *strings.Builder, n *ast.Simple) {
	parts := make([]string, 0, len(n.Assignments)+len(n.Words))
	for _, a := range n.Assignments {
		parts = append(parts, printAssignment(a))
	}
	for _, w := range n.Words {
		var wb strings.Builder
		printWord(&wb, w)
		parts = append(parts, wb.String())
	}
	b.WriteString(strings.Join(parts, " "))
	for _, r := range n.Redirects {
		b.WriteString(" ")
		printRedirect(b, r)
	}
}

func printAssignment(a *ast.Assignment) string {
	var b strings.Builder
	b.WriteString(a.Name)
	if a.Index != nil {
		b.WriteString("[")
		printWord(&b, a.Index)
		b.WriteString("]")
	}
	if a.Append {
		b.WriteString("+=")
	} else {
		b.WriteString("=")
	}
	printWord(&b, a.Value)
	return b.String()
}

func printRedirect(b *strings.Builder, r *ast.Redirect) {
	if r.HasFD {
		b.WriteString(strconv.Itoa(r.FD))
	}
	b.WriteString(redirOpText(r.Op))
	if r.Target != nil {
		printWord(b, r.Target)
	}
}

func redirOpText(op ast.RedirectOp) string {
	switch op {
	case ast.RedirIn:
		return "<"
	case ast.RedirOut:
		return ">"
	case ast.RedirAppend:
		return ">>"
	case ast.RedirReadWrite:
		return "<>"
	case ast.RedirHeredoc:
		return "<<"
	case ast.RedirHeredocStrip:
		return "<<-"
	case ast.RedirHerestring:
		return "<<<"
	case ast.RedirDupIn:
		return "<&"
	case ast.RedirDupOut:
		return ">&"
	}
	return "?"
}

func printCondExpr(b *strings.Builder, e ast.CondExpr) {
	switch n := e.(type) {
	case ast.CondUnary:
		b.WriteString(n.Op + " ")
		printWord(b, n.Arg)
	case ast.CondBinary:
		printWord(b, n.Left)
		b.WriteString(" " + n.Op + " ")
		printWord(b, n.Right)
	case ast.CondNot:
		b.WriteString("! ")
		printCondExpr(b, n.X)
	case ast.CondAnd:
		printCondExpr(b, n.X)
		b.WriteString(" && ")
		printCondExpr(b, n.Y)
	case ast.CondOr:
		printCondExpr(b, n.X)
		b.WriteString(" || ")
		printCondExpr(b, n.Y)
	case ast.CondWord:
		printWord(b, n.W)
	}
}

func printWord(b *strings.Builder, w *ast.Word) {
	if w == nil {
		return
	}
	for _, part := range w.Parts {
		switch pt := part.(type) {
		case ast.Literal:
			printLiteral(b, pt)
		case ast.ParamExp:
			printParamExp(b, pt)
		case ast.ArithExp:
			b.WriteString("$((")
			printWord(b, pt.Expr)
			b.WriteString("))")
		case ast.CmdSub:
			b.WriteString("$(")
			b.WriteString(pt.Raw)
			b.WriteString(")")
		case ast.Glob:
			b.WriteString(pt.Pattern)
		case ast.Brace:
			b.WriteString(pt.Raw)
		case ast.Tilde:
			b.WriteString("~" + pt.User)
		}
	}
}

// printLiteral quotes any run of bytes whose Quoted flag is set, using
// single quotes unless the run itself contains one (then double quotes),
// so re-lexing produces the same Quoted mask on that run.
func printLiteral(b *strings.Builder, lit ast.Literal) {
	if len(lit.Quoted) == 0 {
		b.WriteString(lit.Text)
		return
	}
	i := 0
	for i < len(lit.Text) {
		q := lit.Quoted[i]
		j := i
		for j < len(lit.Text) && (j >= len(lit.Quoted) || lit.Quoted[j]) == q {
			j++
		}
		seg := lit.Text[i:j]
		if q {
			if strings.Contains(seg, "'") {
				b.WriteString("\"" + strings.ReplaceAll(seg, "\"", "\\\"") + "\"")
			} else {
				b.WriteString("'" + seg + "'")
			}
		} else {
			b.WriteString(seg)
		}
		i = j
	}
}

func printParamExp(b *strings.Builder, p ast.ParamExp) {
	b.WriteString("$")
	needsBrace := p.Braced || p.Op != "" || p.Length || p.Index != nil || p.Transform != ""
	if needsBrace {
		b.WriteString("{")
	}
	if p.Length {
		b.WriteString("#")
	}
	if p.Op == "!" {
		b.WriteString("!")
	}
	b.WriteString(p.Name)
	if p.Index != nil {
		b.WriteString("[")
		printWord(b, p.Index)
		b.WriteString("]")
	}
	if p.AtStar != 0 && p.Index == nil {
		b.WriteString("[")
		b.WriteByte(p.AtStar)
		b.WriteString("]")
	}
	if p.Op != "" && p.Op != "!" {
		b.WriteString(p.Op)
		if p.OpArg != nil {
			printWord(b, p.OpArg)
		}
		if p.OpArg2 != nil {
			if p.Op == ":" {
				b.WriteString(":")
			} else {
				b.WriteString("/")
			}
			printWord(b, p.OpArg2)
		}
	}
	if p.Transform != "" {
		b.WriteString(p.Transform)
	}
	if needsBrace {
		b.WriteString("}")
	}
}
