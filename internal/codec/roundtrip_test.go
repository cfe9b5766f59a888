package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kosuke-fujisawa/tsumugai/internal/ast"
	"github.com/kosuke-fujisawa/tsumugai/internal/codec"
	"github.com/kosuke-fujisawa/tsumugai/internal/directive"
	"github.com/kosuke-fujisawa/tsumugai/internal/interp"
	"github.com/kosuke-fujisawa/tsumugai/internal/parser"
	"github.com/kosuke-fujisawa/tsumugai/internal/state"
)

// TestStepSaveLoadChoose_MatchesNonPersistedPath exercises a full
// Step -> Save -> Load -> Choose round trip against a pending branch, and
// checks that resuming from a restored State produces the exact same
// directives and program counter as resuming from the live State.
func TestStepSaveLoadChoose_MatchesNonPersistedPath(t *testing.T) {
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
	prog, _, err := parser.Parse([]byte(src))
	require.NoError(t, err)

	live, res, err := interp.Step(state.New(), prog, nil, interp.Options{})
	require.NoError(t, err)
	require.Equal(t, directive.WaitBranch, res.Next)
	require.NotNil(t, live.Branch)

	data, err := codec.Save(live, prog)
	require.NoError(t, err)

	restored, err := codec.Load(data, prog, nil)
	require.NoError(t, err)
	require.Equal(t, live.PC, restored.PC)
	require.Equal(t, live.Branch, restored.Branch)

	liveNext, liveRes, err := interp.Choose(live, prog, 1, interp.Options{})
	require.NoError(t, err)

	restoredNext, restoredRes, err := interp.Choose(restored, prog, 1, interp.Options{})
	require.NoError(t, err)

	require.Equal(t, liveRes, restoredRes)
	require.Equal(t, liveNext.PC, restoredNext.PC)
	require.Equal(t, liveNext.Halted, restoredNext.Halted)
	require.Nil(t, restoredNext.Branch)

	var gotVars, wantVars []string
	liveNext.Vars.Each(func(name string, value ast.Value) { wantVars = append(wantVars, name+"="+value.String()) })
	restoredNext.Vars.Each(func(name string, value ast.Value) { gotVars = append(gotVars, name+"="+value.String()) })
	require.Equal(t, wantVars, gotVars)
}
