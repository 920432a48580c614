// Package parser turns a lexer.Token stream into an *ast.Script (spec §4.2).
package parser

import (
	"fmt"

	"github.com/mistvale/vshell/core/ast"
	"github.com/mistvale/vshell/core/lexer"
)

// ParseError wraps a syntax error with the offending token's position.
type ParseError struct {
	Pos    ast.Pos
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Pos.Line, e.Pos.Col, e.Reason)
}

type Parser struct {
	toks []lexer.Token
	pos  int
}

// Parse lexes and parses a complete script.
func Parse(src string) (*ast.Script, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	sc, err := p.parseScript(nil)
	if err != nil {
		return nil, err
	}
	if err := resolveCmdSubs(sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) at(off int) lexer.Token {
	i := p.pos + off
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}
func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) isOp(text string) bool {
	t := p.cur()
	return t.Type == lexer.OPERATOR && t.Text == text
}

func (p *Parser) isReserved(word string) bool {
	t := p.cur()
	return t.Type == lexer.WORD && t.Text == word && lexer.ReservedWords[word]
}

func (p *Parser) skipNewlines() {
	for p.cur().Type == lexer.NEWLINE || p.isOp(";") {
		p.advance()
	}
}

func (p *Parser) skipTerminators() {
	for p.cur().Type == lexer.NEWLINE {
		p.advance()
	}
}

// parseScript parses a list of statements until EOF or one of stopWords
// (reserved words that end an enclosing compound command) is seen.
func (p *Parser) parseScript(stopWords []string) (*ast.Script, error) {
	sc := ast.NewScript(p.cur().Pos)
	for {
		p.skipTerminators()
		if p.cur().Type == lexer.EOF {
			break
		}
		if p.matchesStop(stopWords) {
			break
		}
		stmt, err := p.parseStatement(stopWords)
		if err != nil {
			return nil, err
		}
		sc.Statements = append(sc.Statements, stmt)
	}
	return sc, nil
}

func (p *Parser) matchesStop(stopWords []string) bool {
	t := p.cur()
	if t.Type != lexer.WORD && !p.isOp(")") {
		return false
	}
	for _, w := range stopWords {
		if w == ")" && p.isOp(")") {
			return true
		}
		if t.Type == lexer.WORD && t.Text == w {
			return true
		}
	}
	return false
}

func (p *Parser) parseStatement(stopWords []string) (ast.Statement, error) {
	pos := p.cur().Pos
	andor, err := p.parseAndOr(stopWords)
	if err != nil {
		return ast.Statement{}, err
	}
	async := false
	switch {
	case p.isOp("&"):
		p.advance()
		async = true
	case p.isOp(";"):
		p.advance()
	case p.cur().Type == lexer.NEWLINE:
		p.advance()
	}
	stmt := ast.Statement{Pipeline: andor, Async: async}
	stmt.Pos = pos
	return stmt, nil
}

func (p *Parser) parseAndOr(stopWords []string) (*ast.AndOr, error) {
	pos := p.cur().Pos
	first, err := p.parsePipeline(stopWords)
	if err != nil {
		return nil, err
	}
	ao := ast.NewAndOr(pos)
	ao.First = first
	for p.isOp("&&") || p.isOp("||") {
		op := ast.AndAnd
		if p.isOp("||") {
			op = ast.OrOr
		}
		p.advance()
		p.skipTerminators()
		next, err := p.parsePipeline(stopWords)
		if err != nil {
			return nil, err
		}
		ao.Rest = append(ao.Rest, ast.AndOrTail{Op: op, Pipeline: next})
	}
	return ao, nil
}

func (p *Parser) parsePipeline(stopWords []string) (*ast.Pipeline, error) {
	pos := p.cur().Pos
	pl := ast.NewPipeline(pos)
	if p.cur().Type == lexer.WORD && p.cur().Text == "!" {
		pl.Negate = true
		p.advance()
	}
	cmd, err := p.parseCommand(stopWords)
	if err != nil {
		return nil, err
	}
	pl.Commands = append(pl.Commands, cmd)
	for p.isOp("|") || p.isOp("|&") {
		p.advance()
		p.skipTerminators()
		cmd, err := p.parseCommand(stopWords)
		if err != nil {
			return nil, err
		}
		pl.Commands = append(pl.Commands, cmd)
	}
	return pl, nil
}

func (p *Parser) parseCommand(stopWords []string) (ast.Command, error) {
	t := p.cur()
	if t.Type == lexer.WORD {
		switch t.Text {
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile(false)
		case "until":
			return p.parseWhile(true)
		case "for":
			return p.parseFor()
		case "case":
			return p.parseCase()
		case "function":
			return p.parseFunctionKeyword()
		}
	}
	if p.isOp("(") {
		return p.parseSubshell()
	}
	if p.isOp("{") {
		return p.parseGroup()
	}
	if t.Type == lexer.WORD && t.Text == "[[" {
		return p.parseCondCommand()
	}
	if t.Type == lexer.ARITH {
		return p.parseArithCommand()
	}
	// name() { ... } function definition shorthand.
	if t.Type == lexer.WORD && p.at(1).Type == lexer.OPERATOR && p.at(1).Text == "(" &&
		p.at(2).Type == lexer.OPERATOR && p.at(2).Text == ")" {
		return p.parseFunctionShorthand()
	}
	return p.parseSimple()
}

func (p *Parser) parseSimple() (ast.Command, error) {
	pos := p.cur().Pos
	s := ast.NewSimple(pos)
	// Leading assignments.
	for p.cur().Type == lexer.ASSIGN {
		a, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		s.Assignments = append(s.Assignments, a)
	}
	for {
		r, err := p.tryRedirect()
		if err != nil {
			return nil, err
		}
		if r != nil {
			s.Redirects = append(s.Redirects, r)
			continue
		}
		if p.cur().Type != lexer.WORD && p.cur().Type != lexer.ASSIGN {
			break
		}
		w := wordFromToken(p.cur())
		p.advance()
		s.Words = append(s.Words, w)
		for p.cur().Type == lexer.ASSIGN && len(s.Words) == 0 {
			a, err := p.parseAssignment()
			if err != nil {
				return nil, err
			}
			s.Assignments = append(s.Assignments, a)
		}
	}
	if len(s.Words) == 0 && len(s.Assignments) == 0 && len(s.Redirects) == 0 {
		return nil, &ParseError{Pos: pos, Reason: fmt.Sprintf("unexpected token %q", p.cur().Text)}
	}
	return s, nil
}

func (p *Parser) parseAssignment() (*ast.Assignment, error) {
	tok := p.advance()
	a := ast.NewAssignment(tok.Pos)
	text := tok.Text
	eq := indexByte(text, '=')
	name := text[:eq]
	if len(name) > 0 && name[len(name)-1] == '+' {
		a.Append = true
		name = name[:len(name)-1]
	}
	if idx := indexByte(name, '['); idx > 0 {
		a.Name = name[:idx]
		a.Index = &ast.Word{Parts: []ast.WordPart{ast.Literal{Text: name[idx+1 : len(name)-1]}}}
	} else {
		a.Name = name
	}
	// name=(word ...) array literal: the '=' is the last byte of this
	// token's text (nothing after it), and the next token is the '('
	// operator that lexWord stopped at.
	if eq == len(text)-1 && p.isOp("(") {
		p.advance()
		elems, err := p.parseArrayElems()
		if err != nil {
			return nil, err
		}
		a.Elems = elems
		return a, nil
	}
	// Recover the value's parts by locating where '=' fell among Parts.
	a.Value = valuePartsAfterEquals(tok, eq)
	return a, nil
}

// parseArrayElems parses the body of a name=(...) array literal after
// the opening '(' has already been consumed.
func (p *Parser) parseArrayElems() ([]ast.ArrayElem, error) {
	var elems []ast.ArrayElem
	for {
		for p.cur().Type == lexer.NEWLINE {
			p.advance()
		}
		if p.isOp(")") {
			p.advance()
			return elems, nil
		}
		if p.cur().Type != lexer.WORD && p.cur().Type != lexer.ASSIGN {
			if p.cur().Type == lexer.EOF {
				return nil, &ParseError{Pos: p.cur().Pos, Reason: "unterminated array literal"}
			}
			return nil, &ParseError{Pos: p.cur().Pos, Reason: fmt.Sprintf("unexpected token %q in array literal", p.cur().Text)}
		}
		tok := p.advance()
		w := wordFromToken(tok)
		var elem ast.ArrayElem
		text := tok.Text
		if len(text) > 2 && text[0] == '[' {
			if end := indexByte(text, ']'); end > 0 && end+1 < len(text) && text[end+1] == '=' {
				elem.Index = &ast.Word{Parts: []ast.WordPart{ast.Literal{Text: text[1:end]}}}
				elem.Value = valuePartsAfterEquals(tok, end+1)
				elems = append(elems, elem)
				continue
			}
		}
		elem.Value = w
		elems = append(elems, elem)
	}
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// valuePartsAfterEquals splits tok.Parts at the character offset eq+1
// (just past the '=') and returns the remaining parts as a Word. Since
// the name portion of an assignment is always a plain identifier, the
// split point always falls inside (or at the end of) a Literal part.
func valuePartsAfterEquals(tok lexer.Token, eq int) *ast.Word {
	w := ast.NewWord(tok.Pos)
	skip := eq + 1
	for _, part := range tok.Parts {
		if skip > 0 {
			lit, ok := part.(ast.Literal)
			if !ok {
				skip = 0
				continue
			}
			if skip >= len(lit.Text) {
				skip -= len(lit.Text)
				continue
			}
			w.Parts = append(w.Parts, ast.Literal{Text: lit.Text[skip:], Quoted: sliceBoolsFrom(lit.Quoted, skip)})
			skip = 0
			continue
		}
		w.Parts = append(w.Parts, part)
	}
	return w
}

func sliceBoolsFrom(b []bool, from int) []bool {
	if from >= len(b) {
		return nil
	}
	return b[from:]
}

func wordFromToken(tok lexer.Token) *ast.Word {
	w := ast.NewWord(tok.Pos)
	w.Parts = tok.Parts
	return w
}

// tryRedirect parses a single redirection if the current token begins
// one: an optional IO_NUMBER/fd digits, then a redirect operator, then a
// target word (or fd for dup forms).
func (p *Parser) tryRedirect() (*ast.Redirect, error) {
	pos := p.cur().Pos
	fd := -1
	if p.cur().Type == lexer.IO_NUMBER {
		fd = atoiSafe(p.cur().Text)
		p.advance()
	}
	if p.cur().Type != lexer.OPERATOR {
		if fd >= 0 {
			return nil, &ParseError{Pos: pos, Reason: "expected redirection after fd number"}
		}
		return nil, nil
	}
	op, ok := redirOpFor(p.cur().Text)
	if !ok {
		return nil, nil
	}
	p.advance()
	r := ast.NewRedirect(pos)
	r.Op = op
	if fd >= 0 {
		r.FD = fd
		r.HasFD = true
	}
	if p.cur().Type != lexer.WORD {
		return nil, &ParseError{Pos: pos, Reason: "expected word after redirection operator"}
	}
	r.Target = wordFromToken(p.cur())
	if op == ast.RedirHeredoc || op == ast.RedirHeredocStrip {
		r.HeredocBody = p.cur().HeredocBody
		r.HeredocQuoted = p.cur().HeredocQuoted
	}
	p.advance()
	return r, nil
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func redirOpFor(op string) (ast.RedirectOp, bool) {
	switch op {
	case "<":
		return ast.RedirIn, true
	case ">":
		return ast.RedirOut, true
	case ">>":
		return ast.RedirAppend, true
	case "<>":
		return ast.RedirReadWrite, true
	case "<<":
		return ast.RedirHeredoc, true
	case "<<-":
		return ast.RedirHeredocStrip, true
	case "<<<":
		return ast.RedirHerestring, true
	case "<&":
		return ast.RedirDupIn, true
	case ">&":
		return ast.RedirDupOut, true
	}
	return 0, false
}

func (p *Parser) parseIf() (ast.Command, error) {
	pos := p.advance().Pos // 'if'
	n := ast.NewIf(pos)
	cond, err := p.parseScript([]string{"then"})
	if err != nil {
		return nil, err
	}
	n.Cond = cond
	if !(p.cur().Type == lexer.WORD && p.cur().Text == "then") {
		return nil, &ParseError{Pos: p.cur().Pos, Reason: "expected 'then'"}
	}
	p.advance()
	then, err := p.parseScript([]string{"elif", "else", "fi"})
	if err != nil {
		return nil, err
	}
	n.Then = then
	for p.cur().Type == lexer.WORD && p.cur().Text == "elif" {
		p.advance()
		econd, err := p.parseScript([]string{"then"})
		if err != nil {
			return nil, err
		}
		p.advance() // then
		ethen, err := p.parseScript([]string{"elif", "else", "fi"})
		if err != nil {
			return nil, err
		}
		n.Elifs = append(n.Elifs, ast.ElifClause{Cond: econd, Then: ethen})
	}
	if p.cur().Type == lexer.WORD && p.cur().Text == "else" {
		p.advance()
		els, err := p.parseScript([]string{"fi"})
		if err != nil {
			return nil, err
		}
		n.Else = els
	}
	if !(p.cur().Type == lexer.WORD && p.cur().Text == "fi") {
		return nil, &ParseError{Pos: p.cur().Pos, Reason: "expected 'fi'"}
	}
	p.advance()
	return p.withRedirects(n)
}

func (p *Parser) parseWhile(until bool) (ast.Command, error) {
	pos := p.advance().Pos // 'while'/'until'
	n := ast.NewWhile(pos)
	n.Until = until
	cond, err := p.parseScript([]string{"do"})
	if err != nil {
		return nil, err
	}
	n.Cond = cond
	if !(p.cur().Type == lexer.WORD && p.cur().Text == "do") {
		return nil, &ParseError{Pos: p.cur().Pos, Reason: "expected 'do'"}
	}
	p.advance()
	body, err := p.parseScript([]string{"done"})
	if err != nil {
		return nil, err
	}
	n.Body = body
	if !(p.cur().Type == lexer.WORD && p.cur().Text == "done") {
		return nil, &ParseError{Pos: p.cur().Pos, Reason: "expected 'done'"}
	}
	p.advance()
	return p.withRedirects(n)
}

func (p *Parser) parseFor() (ast.Command, error) {
	pos := p.advance().Pos // 'for'
	if p.cur().Type == lexer.ARITH {
		return p.parseCFor(pos)
	}
	if p.cur().Type != lexer.WORD {
		return nil, &ParseError{Pos: p.cur().Pos, Reason: "expected loop variable"}
	}
	n := ast.NewFor(pos)
	n.Var = p.advance().Text
	p.skipTerminators()
	if p.cur().Type == lexer.WORD && p.cur().Text == "in" {
		p.advance()
		for p.cur().Type == lexer.WORD {
			n.Words = append(n.Words, wordFromToken(p.cur()))
			p.advance()
		}
		if p.isOp(";") || p.cur().Type == lexer.NEWLINE {
			p.advance()
		}
	} else if p.isOp(";") {
		p.advance()
	}
	p.skipTerminators()
	if !(p.cur().Type == lexer.WORD && p.cur().Text == "do") {
		return nil, &ParseError{Pos: p.cur().Pos, Reason: "expected 'do'"}
	}
	p.advance()
	body, err := p.parseScript([]string{"done"})
	if err != nil {
		return nil, err
	}
	n.Body = body
	p.advance() // done
	return p.withRedirects(n)
}

func (p *Parser) parseCFor(pos ast.Pos) (ast.Command, error) {
	raw := p.cur().Text
	p.advance()
	n := ast.NewCFor(pos)
	init, cond, step := splitCForHeader(raw)
	n.Init, n.Cond, n.Step = init, cond, step
	p.skipTerminators()
	if !(p.cur().Type == lexer.WORD && p.cur().Text == "do") {
		return nil, &ParseError{Pos: p.cur().Pos, Reason: "expected 'do'"}
	}
	p.advance()
	body, err := p.parseScript([]string{"done"})
	if err != nil {
		return nil, err
	}
	n.Body = body
	p.advance()
	return p.withRedirects(n)
}

func splitCForHeader(raw string) (init, cond, step string) {
	parts := make([]string, 0, 3)
	cur := ""
	for _, r := range raw {
		if r == ';' {
			parts = append(parts, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	parts = append(parts, cur)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}

func (p *Parser) parseCase() (ast.Command, error) {
	pos := p.advance().Pos // 'case'
	n := ast.NewCase(pos)
	if p.cur().Type != lexer.WORD {
		return nil, &ParseError{Pos: p.cur().Pos, Reason: "expected case subject"}
	}
	n.Subject = wordFromToken(p.cur())
	p.advance()
	p.skipTerminators()
	if !(p.cur().Type == lexer.WORD && p.cur().Text == "in") {
		return nil, &ParseError{Pos: p.cur().Pos, Reason: "expected 'in'"}
	}
	p.advance()
	p.skipTerminators()
	for !(p.cur().Type == lexer.WORD && p.cur().Text == "esac") {
		if p.isOp("(") {
			p.advance()
		}
		var clause ast.CaseClause
		for {
			if p.cur().Type != lexer.WORD {
				return nil, &ParseError{Pos: p.cur().Pos, Reason: "expected case pattern"}
			}
			clause.Patterns = append(clause.Patterns, wordFromToken(p.cur()))
			p.advance()
			if p.isOp("|") {
				p.advance()
				continue
			}
			break
		}
		if !p.isOp(")") {
			return nil, &ParseError{Pos: p.cur().Pos, Reason: "expected ')'"}
		}
		p.advance()
		body := ast.NewScript(p.cur().Pos)
		for {
			p.skipTerminators()
			if p.cur().Type == lexer.EOF || p.isOp(";;") || p.isOp(";&") || p.isOp(";;&") ||
				(p.cur().Type == lexer.WORD && p.cur().Text == "esac") {
				break
			}
			stmt, err := p.parseStatement(nil)
			if err != nil {
				return nil, err
			}
			body.Statements = append(body.Statements, stmt)
		}
		clause.Body = body
		switch {
		case p.isOp(";;&"):
			clause.TestNext = true
			p.advance()
		case p.isOp(";&"):
			clause.Fallthrough = true
			p.advance()
		case p.isOp(";;"):
			p.advance()
		}
		n.Clauses = append(n.Clauses, clause)
		p.skipTerminators()
	}
	p.advance() // esac
	return p.withRedirects(n)
}

func (p *Parser) parseSubshell() (ast.Command, error) {
	pos := p.advance().Pos // '('
	body, err := p.parseScriptUntilOp(")")
	if err != nil {
		return nil, err
	}
	p.advance() // ')'
	n := ast.NewSubshell(pos)
	n.Body = body
	return p.withRedirects(n)
}

func (p *Parser) parseGroup() (ast.Command, error) {
	pos := p.advance().Pos // '{'
	body, err := p.parseScriptUntilOp("}")
	if err != nil {
		return nil, err
	}
	p.advance() // '}'
	n := ast.NewGroup(pos)
	n.Body = body
	return p.withRedirects(n)
}

func (p *Parser) parseScriptUntilOp(op string) (*ast.Script, error) {
	sc := ast.NewScript(p.cur().Pos)
	for {
		p.skipTerminators()
		if p.isOp(op) {
			break
		}
		if p.cur().Type == lexer.EOF {
			return nil, &ParseError{Pos: p.cur().Pos, Reason: "expected '" + op + "'"}
		}
		stmt, err := p.parseStatement([]string{op})
		if err != nil {
			return nil, err
		}
		sc.Statements = append(sc.Statements, stmt)
	}
	return sc, nil
}

func (p *Parser) parseFunctionKeyword() (ast.Command, error) {
	pos := p.advance().Pos // 'function'
	if p.cur().Type != lexer.WORD {
		return nil, &ParseError{Pos: p.cur().Pos, Reason: "expected function name"}
	}
	name := p.advance().Text
	if p.isOp("(") {
		p.advance()
		if !p.isOp(")") {
			return nil, &ParseError{Pos: p.cur().Pos, Reason: "expected ')'"}
		}
		p.advance()
	}
	p.skipTerminators()
	body, err := p.parseCommand(nil)
	if err != nil {
		return nil, err
	}
	n := ast.NewFunctionDef(pos)
	n.Name = name
	n.Body = body
	return n, nil
}

func (p *Parser) parseFunctionShorthand() (ast.Command, error) {
	pos := p.cur().Pos
	name := p.advance().Text
	p.advance() // '('
	p.advance() // ')'
	p.skipTerminators()
	body, err := p.parseCommand(nil)
	if err != nil {
		return nil, err
	}
	n := ast.NewFunctionDef(pos)
	n.Name = name
	n.Body = body
	return n, nil
}

// parseCondCommand parses `[[ expr ]]` as a flat token run up to the
// matching ]] and hands it to a small expression parser.
func (p *Parser) parseCondCommand() (ast.Command, error) {
	pos := p.advance().Pos // '[['
	var toks []lexer.Token
	depth := 1
	for {
		t := p.cur()
		if t.Type == lexer.EOF {
			return nil, &ParseError{Pos: pos, Reason: "expected ']]'"}
		}
		if t.Type == lexer.WORD && t.Text == "[[" {
			depth++
		}
		if t.Type == lexer.WORD && t.Text == "]]" {
			depth--
			if depth == 0 {
				p.advance()
				break
			}
		}
		toks = append(toks, t)
		p.advance()
	}
	expr, err := parseCondExpr(toks)
	if err != nil {
		return nil, err
	}
	n := ast.NewCond(pos)
	n.Expr = expr
	return p.withRedirects(n)
}

// parseArithCommand parses `(( expr ))` used as a command.
func (p *Parser) parseArithCommand() (ast.Command, error) {
	pos := p.cur().Pos
	raw := p.cur().Text
	p.advance()
	n := ast.NewArith(pos)
	n.Expr = raw
	return p.withRedirects(n)
}

// withRedirects consumes any redirections trailing a compound command
// and wraps it in a Compound node, per the grammar's
// `compound (redirection)*`.
func (p *Parser) withRedirects(body ast.Command) (ast.Command, error) {
	c := ast.NewCompound(body.At())
	c.Body = body
	for {
		r, err := p.tryRedirect()
		if err != nil {
			return nil, err
		}
		if r == nil {
			break
		}
		c.Redirects = append(c.Redirects, r)
	}
	return c, nil
}
