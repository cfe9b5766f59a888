package state_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kosuke-fujisawa/tsumugai/internal/ast"
	"github.com/kosuke-fujisawa/tsumugai/internal/state"
)

func TestVarStore_SortedIteration(t *testing.T) {
	vs := state.NewVarStore()
	vs.Set("zebra", ast.Int(1))
	vs.Set("apple", ast.Int(2))
	vs.Set("mango", ast.Int(3))

	var order []string
	vs.Each(func(name string, value ast.Value) {
		order = append(order, name)
	})
	require.Equal(t, []string{"apple", "mango", "zebra"}, order)
}

func TestState_CloneIsIndependent(t *testing.T) {
	s := state.New()
	s.Vars.Set("score", ast.Int(10))
	s.PC = 3

	clone := s.Clone()
	clone.Vars.Set("score", ast.Int(99))
	clone.PC = 7

	v, _ := s.Vars.Get("score")
	require.Equal(t, ast.Int(10), v)
	require.Equal(t, 3, s.PC)

	cv, _ := clone.Vars.Get("score")
	require.Equal(t, ast.Int(99), cv)
}

func TestState_CloneCopiesBranch(t *testing.T) {
	s := state.New()
	s.Branch = &state.BranchState{
		Choices: []ast.Choice{{Text: "A", Target: "a"}},
		Emitted: true,
	}
	clone := s.Clone()
	clone.Branch.Choices[0].Text = "changed"
	require.Equal(t, "A", s.Branch.Choices[0].Text)
}
