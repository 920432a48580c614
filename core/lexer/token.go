// Package lexer tokenizes shell source text (spec §4.1). It does not
// evaluate anything; quoting state and reserved-word recognition are
// purely syntactic.
package lexer

import "github.com/mistvale/vshell/core/ast"

type TokenType int

const (
	EOF TokenType = iota
	WORD
	ASSIGN
	OPERATOR
	NEWLINE
	IO_NUMBER
	RESERVED
	// ARITH is the raw `expr` text of a `((expr))` arithmetic command or a
	// `for ((init; cond; step))` header, lexed as a single balanced-paren
	// unit since "((" would otherwise lex as two separate '(' operators.
	ARITH
)

// Token is one lexical unit. Word/Assign/Reserved tokens carry Parts,
// the same WordPart family the parser embeds directly into ast.Word —
// this is what lets quote/expansion structure survive from lexing all
// the way to the expander without being re-parsed out of a flat string.
type Token struct {
	Type  TokenType
	Text  string // literal text as it appeared in source (for OPERATOR/NEWLINE/RESERVED)
	Parts []ast.WordPart
	Pos   ast.Pos
	// HeredocBody holds the captured body text when this WORD token is the
	// delimiter of a `<<`/`<<-` redirection, filled in by the lexer once it
	// reaches the newline ending the command line (spec §4.1's two-phase
	// here-doc capture).
	HeredocBody string
	// HeredocQuoted records whether the delimiter word carried any quoting,
	// which per spec §4.1 suppresses expansion of the captured body.
	HeredocQuoted bool
}

// ReservedWords is exactly spec §4.1's list. Recognition is positional:
// the lexer never emits RESERVED tokens; the parser matches reserved
// words by the text of WORD tokens where its grammar expects them, so
// this set alone doesn't drive lexing.
var ReservedWords = map[string]bool{
	"if": true, "then": true, "else": true, "elif": true, "fi": true,
	"for": true, "while": true, "until": true, "do": true, "done": true,
	"case": true, "esac": true, "function": true, "select": true,
	"[[": true, "]]": true, "{": true, "}": true, "!": true, "in": true,
}

// IsValidName reports whether s is a valid shell identifier.
func IsValidName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
