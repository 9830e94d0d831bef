package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunholo/camlc/internal/ast"
	"github.com/sunholo/camlc/internal/lexer"
	"github.com/sunholo/camlc/internal/parser"
)

func parseExpr(t *testing.T, src string) ast.Expr {
	t.Helper()
	p := parser.New(lexer.New(src, "test.ml"))
	expr, err := p.ParseExpr()
	require.NoError(t, err)
	return expr
}

func parseProgram(t *testing.T, src string) *ast.TopLevelStmts {
	t.Helper()
	p := parser.New(lexer.New(src, "test.ml"))
	program, err := p.Parse()
	require.NoError(t, err)
	return program
}

func TestIdentCapturesItself(t *testing.T) {
	expr := parseExpr(t, "x")
	assert.True(t, expr.Captures().Equal(ast.NewIdentSet("x")))
}

func TestConstCapturesNothing(t *testing.T) {
	expr := parseExpr(t, "1")
	assert.Empty(t, expr.Captures())
}

func TestTupleLiteralCaptures(t *testing.T) {
	expr := parseExpr(t, "(x, y, z)")
	assert.True(t, expr.Captures().Equal(ast.NewIdentSet("x", "y", "z")))
}

func TestIfCaptures(t *testing.T) {
	expr := parseExpr(t, "if x then y else z")
	assert.True(t, expr.Captures().Equal(ast.NewIdentSet("x", "y", "z")))
}

func TestLambdaBindsItsParameter(t *testing.T) {
	expr := parseExpr(t, "fun x -> y + x")

	// The desugared "+" is free too.
	assert.True(t, expr.Captures().Equal(ast.NewIdentSet("y", "+")))
}

func TestLetBindsItsName(t *testing.T) {
	expr := parseExpr(t, "let x = y in x + y + z")
	assert.True(t, expr.Captures().Equal(ast.NewIdentSet("y", "z", "+")))
}

func TestLetBindsItsNameInRhsToo(t *testing.T) {
	// The binding rule removes the bound name from the rhs captures as well,
	// which is what lets `let rec` bodies mention themselves.
	expr := parseExpr(t, "let x = x in x")
	assert.Empty(t, expr.Captures())

	rhs := expr.(*ast.Let).Rhs
	assert.True(t, rhs.Captures().Equal(ast.NewIdentSet("x")))
}

func TestLetStmtVariable(t *testing.T) {
	program := parseProgram(t, "let x = f 1;;")
	assert.True(t, program.Captures().Equal(ast.NewIdentSet("f")))
}

func TestLetStmtFunction(t *testing.T) {
	program := parseProgram(t, "let f x = g (y + x);;")
	assert.True(t, program.Captures().Equal(ast.NewIdentSet("g", "y", "+")))
}

func TestRecursiveFnDoesNotCaptureItsOwnName(t *testing.T) {
	program := parseProgram(t, `
		let rec fact n =
			if n = 0
			then 1
			else n * fact (n - 1)
		;;
	`)

	require.Len(t, program.Stmts, 1)
	stmt := program.Stmts[0].(*ast.LetStmt)

	assert.True(t, stmt.Captures().Equal(ast.NewIdentSet("=", "*", "-")))
	assert.False(t, stmt.Captures()["fact"])
	assert.False(t, stmt.Captures()["n"])
}

func TestSortedIsDeterministic(t *testing.T) {
	s := ast.NewIdentSet("zeta", "alpha", "mid")
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, s.Sorted())
	assert.Equal(t, s.Sorted(), s.Sorted())
}

func TestSetOperations(t *testing.T) {
	a := ast.NewIdentSet("x", "y")
	b := ast.NewIdentSet("y", "z")

	assert.True(t, a.Union(b).Equal(ast.NewIdentSet("x", "y", "z")))
	assert.True(t, a.Without("x").Equal(ast.NewIdentSet("y")))

	// Union and Without do not mutate their receivers.
	assert.True(t, a.Equal(ast.NewIdentSet("x", "y")))
}
