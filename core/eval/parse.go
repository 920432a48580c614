package eval

import (
	"github.com/mistvale/vshell/core/ast"
	"github.com/mistvale/vshell/core/parser"
)

// parseCached parses raw shell source. parser.Parse already fills
// ast.CmdSub.Body, but command substitutions are run from their Raw text,
// which RunCommandSubstitution parses again at expansion time; there is
// no cross-call cache since scripts are typically evaluated once.
func parseCached(src string) (*ast.Script, error) {
	return parser.Parse(src)
}
