package ast_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kosuke-fujisawa/tsumugai/internal/ast"
)

func TestApply_IntOrdering(t *testing.T) {
	cases := []struct {
		op   ast.Cmp
		a, b ast.Int
		want bool
	}{
		{ast.Eq, 3, 3, true},
		{ast.Eq, 3, 4, false},
		{ast.Ne, 3, 4, true},
		{ast.Lt, 3, 4, true},
		{ast.Lt, 4, 3, false},
		{ast.Le, 4, 4, true},
		{ast.Gt, 5, 4, true},
		{ast.Ge, 4, 4, true},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ast.Apply(c.op, c.a, c.b), "%v %s %v", c.a, c.op, c.b)
	}
}

func TestApply_BoolOnlySupportsEquality(t *testing.T) {
	require.True(t, ast.Apply(ast.Eq, ast.Bool(true), ast.Bool(true)))
	require.False(t, ast.Apply(ast.Eq, ast.Bool(true), ast.Bool(false)))
	require.True(t, ast.Apply(ast.Ne, ast.Bool(true), ast.Bool(false)))
	require.False(t, ast.Apply(ast.Lt, ast.Bool(true), ast.Bool(false)))
}

func TestApply_TextOrdersLexically(t *testing.T) {
	require.True(t, ast.Apply(ast.Lt, ast.Text("a"), ast.Text("b")))
	require.True(t, ast.Apply(ast.Eq, ast.Text("x"), ast.Text("x")))
	require.False(t, ast.Apply(ast.Gt, ast.Text("a"), ast.Text("b")))
}

func TestApply_MismatchedKindsAreNeverEqual(t *testing.T) {
	require.False(t, ast.Apply(ast.Eq, ast.Int(1), ast.Text("1")))
	require.False(t, ast.Apply(ast.Eq, ast.Bool(true), ast.Int(1)))
}

func TestParseCmp_AcceptsSymbolAndWordForms(t *testing.T) {
	for _, s := range []string{"eq", "==", "ne", "!=", "lt", "<", "le", "<=", "gt", ">", "ge", ">="} {
		_, ok := ast.ParseCmp(s)
		require.True(t, ok, "expected %q to parse", s)
	}

	_, ok := ast.ParseCmp("nonsense")
	require.False(t, ok)
}

func TestValue_StringRendersUnderlyingLiteral(t *testing.T) {
	require.Equal(t, "42", ast.Int(42).String())
	require.Equal(t, "true", ast.Bool(true).String())
	require.Equal(t, "hi", ast.Text("hi").String())
}
