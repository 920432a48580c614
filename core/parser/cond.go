package parser

import (
	"github.com/mistvale/vshell/core/ast"
	"github.com/mistvale/vshell/core/lexer"
)

// condParser parses the flat token run inside `[[ ... ]]` into an
// ast.CondExpr tree. Precedence, low to high: || , && , ! , primary.
// Word-splitting and globbing never apply to operands here (spec §4.6.2).
type condParser struct {
	toks []lexer.Token
	pos  int
}

func parseCondExpr(toks []lexer.Token) (ast.CondExpr, error) {
	cp := &condParser{toks: toks}
	if len(cp.toks) == 0 {
		return ast.CondWord{W: ast.NewWord(ast.Pos{})}, nil
	}
	expr, err := cp.parseOr()
	if err != nil {
		return nil, err
	}
	return expr, nil
}

func (c *condParser) eof() bool { return c.pos >= len(c.toks) }

func (c *condParser) cur() lexer.Token {
	if c.eof() {
		return lexer.Token{Type: lexer.EOF}
	}
	return c.toks[c.pos]
}

func (c *condParser) advance() lexer.Token {
	t := c.cur()
	c.pos++
	return t
}

// isWord matches a structural token by text regardless of whether the
// lexer classified it as WORD or OPERATOR — operators like "&&"/"("/"<"
// lex as OPERATOR even inside [[ ]], since the lexer has no notion of
// being inside a conditional expression.
func (c *condParser) isWord(s string) bool {
	t := c.cur()
	return (t.Type == lexer.WORD || t.Type == lexer.OPERATOR) && t.Text == s
}

func (c *condParser) isOperand() bool {
	t := c.cur()
	return t.Type == lexer.WORD || t.Type == lexer.OPERATOR
}

func (c *condParser) parseOr() (ast.CondExpr, error) {
	left, err := c.parseAnd()
	if err != nil {
		return nil, err
	}
	for c.isWord("||") || c.isWord("-o") {
		c.advance()
		right, err := c.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.CondOr{X: left, Y: right}
	}
	return left, nil
}

func (c *condParser) parseAnd() (ast.CondExpr, error) {
	left, err := c.parseNot()
	if err != nil {
		return nil, err
	}
	for c.isWord("&&") || c.isWord("-a") {
		c.advance()
		right, err := c.parseNot()
		if err != nil {
			return nil, err
		}
		left = ast.CondAnd{X: left, Y: right}
	}
	return left, nil
}

func (c *condParser) parseNot() (ast.CondExpr, error) {
	if c.isWord("!") {
		c.advance()
		x, err := c.parseNot()
		if err != nil {
			return nil, err
		}
		return ast.CondNot{X: x}, nil
	}
	return c.parsePrimary()
}

var unaryCondOps = map[string]bool{
	"-e": true, "-f": true, "-d": true, "-r": true, "-w": true, "-x": true,
	"-s": true, "-h": true, "-L": true, "-p": true, "-S": true, "-b": true,
	"-c": true, "-g": true, "-u": true, "-k": true, "-O": true, "-G": true,
	"-N": true, "-z": true, "-n": true, "-v": true, "-o": false,
}

var binaryCondOps = map[string]bool{
	"==": true, "=": true, "!=": true, "=~": true, "<": true, ">": true,
	"-eq": true, "-ne": true, "-lt": true, "-le": true, "-gt": true, "-ge": true,
	"-nt": true, "-ot": true, "-ef": true,
}

func (c *condParser) parsePrimary() (ast.CondExpr, error) {
	if c.isWord("(") {
		c.advance()
		expr, err := c.parseOr()
		if err != nil {
			return nil, err
		}
		if !c.isWord(")") {
			return nil, &ParseError{Reason: "expected ')' in [[ ]] expression"}
		}
		c.advance()
		return expr, nil
	}
	if c.isOperand() && unaryCondOps[c.cur().Text] {
		op := c.advance().Text
		if c.eof() {
			return nil, &ParseError{Reason: "expected operand after " + op}
		}
		arg := wordFromToken(c.advance())
		return ast.CondUnary{Op: op, Arg: arg}, nil
	}
	// Otherwise: WORD [binop WORD].
	if c.eof() {
		return nil, &ParseError{Reason: "expected expression in [[ ]]"}
	}
	left := wordFromToken(c.advance())
	if c.isOperand() && binaryCondOps[c.cur().Text] {
		op := c.advance().Text
		if c.eof() {
			return nil, &ParseError{Reason: "expected operand after " + op}
		}
		right := wordFromToken(c.advance())
		return ast.CondBinary{Op: op, Left: left, Right: right}, nil
	}
	return ast.CondWord{W: left}, nil
}
