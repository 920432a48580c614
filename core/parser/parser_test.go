package parser

import (
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mistvale/vshell/core/ast"
)

func TestParse_simpleCommand(t *testing.T) {
	sc, err := Parse("echo hello world\n")
	require.NoError(t, err)
	require.Len(t, sc.Statements, 1)

	simple, ok := sc.Statements[0].Pipeline.First.Commands[0].(*ast.Simple)
	require.True(t, ok)
	require.Len(t, simple.Words, 3)
}

func TestParse_pipelineAndAndOr(t *testing.T) {
	sc, err := Parse("false && echo a || echo b | cat\n")
	require.NoError(t, err)
	require.Len(t, sc.Statements, 1)

	ao := sc.Statements[0].Pipeline
	require.Len(t, ao.Rest, 2)
	assert.Equal(t, ast.AndAnd, ao.Rest[0].Op)
	assert.Equal(t, ast.OrOr, ao.Rest[1].Op)
	assert.Len(t, ao.Rest[1].Pipeline.Commands, 2)
}

func TestParse_ifElifElse(t *testing.T) {
	src := "if true; then echo a; elif false; then echo b; else echo c; fi\n"
	sc, err := Parse(src)
	require.NoError(t, err)

	compound := sc.Statements[0].Pipeline.First.Commands[0].(*ast.Compound)
	ifNode := compound.Body.(*ast.If)
	assert.Len(t, ifNode.Elifs, 1)
	assert.NotNil(t, ifNode.Else)
}

func TestParse_forLoop(t *testing.T) {
	sc, err := Parse("for x in a b c; do echo $x; done\n")
	require.NoError(t, err)

	compound := sc.Statements[0].Pipeline.First.Commands[0].(*ast.Compound)
	forNode := compound.Body.(*ast.For)
	assert.Equal(t, "x", forNode.Var)
	assert.Len(t, forNode.Words, 3)
}

func TestParse_functionDef(t *testing.T) {
	sc, err := Parse("greet() { echo hi; }\n")
	require.NoError(t, err)

	fn := sc.Statements[0].Pipeline.First.Commands[0].(*ast.FunctionDef)
	assert.Equal(t, "greet", fn.Name)
}

func TestParse_condCommand(t *testing.T) {
	sc, err := Parse("[[ -f /etc/passwd && $x == a ]]\n")
	require.NoError(t, err)

	compound := sc.Statements[0].Pipeline.First.Commands[0].(*ast.Compound)
	cond := compound.Body.(*ast.Cond)
	_, ok := cond.Expr.(ast.CondAnd)
	assert.True(t, ok)
}

func TestParse_commandSubstitutionResolved(t *testing.T) {
	sc, err := Parse("echo $(echo inner)\n")
	require.NoError(t, err)

	simple := sc.Statements[0].Pipeline.First.Commands[0].(*ast.Simple)
	require.Len(t, simple.Words, 2)

	cmdsub, ok := simple.Words[1].Parts[0].(ast.CmdSub)
	require.True(t, ok)
	require.NotNil(t, cmdsub.Body, "resolveCmdSubs should have populated Body")
	require.Len(t, cmdsub.Body.Statements, 1)
}

func TestPrint_idempotent(t *testing.T) {
	srcs := []string{
		"echo hello world\n",
		"if true; then echo a; fi\n",
		"for x in a b c; do echo $x; done\n",
	}
	for _, src := range srcs {
		sc, err := Parse(src)
		require.NoError(t, err)

		printed := Print(sc)
		reparsed, err := Parse(printed)
		require.NoError(t, err, "reparsing printed output for %q", src)
		assert.Equal(t, len(sc.Statements), len(reparsed.Statements))
	}
}

// TestPrint_golden snapshots the canonical printer's exact output for a
// handful of representative scripts, catching formatting regressions
// TestPrint_idempotent's reparse-only check can't (a printer that emits
// different but still-parseable text would still pass idempotence).
func TestPrint_golden(t *testing.T) {
	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	cases := []struct {
		name string
		src  string
	}{
		{"simple", "echo hello world\n"},
		{"if", "if true; then echo a; fi\n"},
		{"forloop", "for x in a b c; do echo $x; done\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sc, err := Parse(tc.src)
			require.NoError(t, err)
			g.Assert(t, tc.name, []byte(Print(sc)))
		})
	}
}
