package interp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kosuke-fujisawa/tsumugai/internal/ast"
	"github.com/kosuke-fujisawa/tsumugai/internal/diag"
	"github.com/kosuke-fujisawa/tsumugai/internal/directive"
	"github.com/kosuke-fujisawa/tsumugai/internal/interp"
	"github.com/kosuke-fujisawa/tsumugai/internal/parser"
	"github.com/kosuke-fujisawa/tsumugai/internal/resolver"
	"github.com/kosuke-fujisawa/tsumugai/internal/state"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, _, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	return prog
}

// S1 — trivial dialogue.
func TestStep_TrivialDialogue(t *testing.T) {
	prog := mustParse(t, "[SAY speaker=A]\nhi")
	s0 := state.New()

	s1, res, err := interp.Step(s0, prog, nil, interp.Options{})
	require.NoError(t, err)
	require.Equal(t, directive.WaitUser, res.Next)
	require.Equal(t, []directive.Directive{directive.Say{Speaker: "A", Text: "hi"}}, res.Directives)

	s2, res2, err := interp.Step(s1, prog, nil, interp.Options{})
	require.NoError(t, err)
	require.Equal(t, directive.Halt, res2.Next)
	require.Empty(t, res2.Directives)
	require.True(t, s2.Halted)
}

// S2 — branch and resume.
func TestStep_BranchAndResume(t *testing.T) {
	src := `[BRANCH choice=L label=left, choice=R label=right]
[LABEL name=left]
[SAY speaker=A]
left
[JUMP label=end]
[LABEL name=right]
[SAY speaker=A]
right
[LABEL name=end]
`
	prog := mustParse(t, src)
	s0 := state.New()

	s1, res1, err := interp.Step(s0, prog, nil, interp.Options{})
	require.NoError(t, err)
	require.Equal(t, directive.WaitBranch, res1.Next)
	require.Equal(t, []directive.Directive{directive.Branch{Choices: []string{"L", "R"}}}, res1.Directives)
	require.NotNil(t, s1.Branch)

	s1b, res1b, err := interp.Step(s1, prog, nil, interp.Options{})
	require.NoError(t, err)
	require.Equal(t, directive.WaitBranch, res1b.Next)
	require.Empty(t, res1b.Directives)
	require.NotNil(t, s1b.Branch)

	s2, res2, err := interp.Choose(s1, prog, 1, interp.Options{})
	require.NoError(t, err)
	require.Equal(t, directive.WaitUser, res2.Next)
	require.Nil(t, s2.Branch)
	require.Equal(t, []directive.Directive{
		directive.ReachedLabel{Label: "right"},
		directive.Say{Speaker: "A", Text: "right"},
	}, res2.Directives)

	s3, res3, err := interp.Step(s2, prog, nil, interp.Options{})
	require.NoError(t, err)
	require.Equal(t, directive.Halt, res3.Next)
	require.True(t, s3.Halted)
}

// S3 — variables and conditional jump.
func TestStep_VariablesAndConditional(t *testing.T) {
	src := `[SET name=score value=0]
[MODIFY name=score op=add value=10]
[JUMP_IF var=score cmp=ge value=10 label=win]
[SAY speaker=N]
lose
[JUMP label=end]
[LABEL name=win]
[SAY speaker=N]
win
[LABEL name=end]
`
	prog := mustParse(t, src)
	s0 := state.New()

	s1, res1, err := interp.Step(s0, prog, nil, interp.Options{})
	require.NoError(t, err)
	require.Equal(t, directive.WaitUser, res1.Next)

	var sayDirectives []directive.Say
	for _, d := range res1.Directives {
		if say, ok := d.(directive.Say); ok {
			sayDirectives = append(sayDirectives, say)
		}
	}
	require.Len(t, sayDirectives, 1)
	require.Equal(t, "win", sayDirectives[0].Text)

	v, ok := s1.Vars.Get("score")
	require.True(t, ok)
	require.Equal(t, ast.Int(10), v)
}

// S4 — unresolved asset never errors, just warns.
func TestStep_UnresolvedAsset(t *testing.T) {
	prog := mustParse(t, "[PLAY_BGM name=missing]")
	sink := diag.NewCollectorSink()

	s1, res, err := interp.Step(state.New(), prog, nil, interp.Options{Sink: sink, Resolver: resolver.Default{}})
	require.NoError(t, err)
	require.Equal(t, []directive.Directive{directive.PlayBgm{Path: nil}}, res.Directives)
	require.True(t, s1.Halted)

	found := false
	for _, d := range sink.Diagnostics {
		if d.Code == diag.CodeUnresolvedAsset {
			found = true
		}
	}
	require.True(t, found)
}

// S5 — undefined label surfaces as a runtime error.
func TestStep_UndefinedLabel(t *testing.T) {
	prog := mustParse(t, "[JUMP label=nowhere]")
	in := state.New()

	out, _, err := interp.Step(in, prog, nil, interp.Options{})
	require.Error(t, err)
	var rerr *diag.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, diag.UndefinedLabel, rerr.Kind)
	require.Same(t, in, out) // no mutation on error
}

func TestStep_ChooseWithNoPendingBranch(t *testing.T) {
	prog := mustParse(t, "[SAY speaker=A]\nhi")
	in := state.New()
	out, _, err := interp.Step(in, prog, intPtr(0), interp.Options{})
	require.Error(t, err)
	require.Same(t, in, out)
}

func TestStep_ChooseOutOfRange(t *testing.T) {
	prog := mustParse(t, "[BRANCH choice=L label=left]\n[LABEL name=left]")
	s0 := state.New()
	s1, _, err := interp.Step(s0, prog, nil, interp.Options{})
	require.NoError(t, err)

	out, _, err := interp.Step(s1, prog, intPtr(5), interp.Options{})
	require.Error(t, err)
	require.Same(t, s1, out)
}

func TestStep_ModifyUnsetVariable(t *testing.T) {
	prog := mustParse(t, "[MODIFY name=score op=add value=1]")
	in := state.New()
	out, _, err := interp.Step(in, prog, nil, interp.Options{})
	require.Error(t, err)
	var rerr *diag.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, diag.TypeMismatch, rerr.Kind)
	require.Same(t, in, out)
}

func TestStep_EmptyProgramHalts(t *testing.T) {
	prog := mustParse(t, "")
	s0 := state.New()
	_, res, err := interp.Step(s0, prog, nil, interp.Options{})
	require.NoError(t, err)
	require.Equal(t, directive.Halt, res.Next)
	require.Empty(t, res.Directives)
}

func TestStep_RunawayExecution(t *testing.T) {
	src := `[LABEL name=loop]
[JUMP label=loop]
`
	prog := mustParse(t, src)
	s0 := state.New()
	out, _, err := interp.Step(s0, prog, nil, interp.Options{Budget: 100})
	require.Error(t, err)
	var rerr *diag.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, diag.RunawayExecution, rerr.Kind)
	require.Same(t, s0, out)
}

func intPtr(i int) *int { return &i }
