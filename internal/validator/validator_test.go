package validator_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kosuke-fujisawa/tsumugai/internal/diag"
	"github.com/kosuke-fujisawa/tsumugai/internal/parser"
	"github.com/kosuke-fujisawa/tsumugai/internal/validator"
)

func codes(diags []diag.Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func TestValidate_UndefinedLabelWithHint(t *testing.T) {
	prog, _, err := parser.Parse([]byte(`[LABEL name=ending]
[JUMP label=endign]
`))
	require.NoError(t, err)

	diags := validator.Validate(prog, validator.Options{})
	require.Contains(t, codes(diags), diag.CodeUndefinedLabel)

	for _, d := range diags {
		if d.Code == diag.CodeUndefinedLabel {
			require.Contains(t, d.Hint, "ending")
		}
	}
}

func TestValidate_Unreachable(t *testing.T) {
	prog, _, err := parser.Parse([]byte(`[JUMP label=end]
[SAY speaker=A]
unreachable
[LABEL name=end]
`))
	require.NoError(t, err)
	diags := validator.Validate(prog, validator.Options{})
	require.Contains(t, codes(diags), diag.CodeUnreachable)
}

func TestValidate_InfiniteLoop(t *testing.T) {
	prog, _, err := parser.Parse([]byte(`[LABEL name=loop]
[JUMP label=loop]
`))
	require.NoError(t, err)
	diags := validator.Validate(prog, validator.Options{})
	require.Contains(t, codes(diags), diag.CodeInfiniteLoop)
}

func TestValidate_InfiniteLoopThroughNonTerminatingCommands(t *testing.T) {
	prog, _, err := parser.Parse([]byte(`[LABEL name=loop]
[SET name=x value=1]
[PLAY_BGM name=theme]
[JUMP label=loop]
`))
	require.NoError(t, err)
	diags := validator.Validate(prog, validator.Options{})
	require.Contains(t, codes(diags), diag.CodeInfiniteLoop)
}

func TestValidate_InfiniteLoopAcrossTwoLabels(t *testing.T) {
	prog, _, err := parser.Parse([]byte(`[LABEL name=a]
[JUMP label=b]
[LABEL name=b]
[SET name=x value=1]
[JUMP label=a]
`))
	require.NoError(t, err)
	diags := validator.Validate(prog, validator.Options{})
	codeCount := 0
	for _, c := range codes(diags) {
		if c == diag.CodeInfiniteLoop {
			codeCount++
		}
	}
	require.Equal(t, 2, codeCount, "both labels in the mutual cycle should be flagged")
}

func TestValidate_NoInfiniteLoopWhenTerminatingCommandIntervenes(t *testing.T) {
	prog, _, err := parser.Parse([]byte(`[LABEL name=loop]
[SAY speaker=A]
hello
[JUMP label=loop]
`))
	require.NoError(t, err)
	diags := validator.Validate(prog, validator.Options{})
	require.NotContains(t, codes(diags), diag.CodeInfiniteLoop)
}

func TestValidate_ConsecutiveWait(t *testing.T) {
	prog, _, err := parser.Parse([]byte(`[WAIT 1s]
[WAIT 2s]
`))
	require.NoError(t, err)
	diags := validator.Validate(prog, validator.Options{})
	require.Contains(t, codes(diags), diag.CodeConsecutiveWait)
}

func TestValidate_DuplicateBgm(t *testing.T) {
	prog, _, err := parser.Parse([]byte(`[PLAY_BGM name=theme]
[PLAY_BGM name=theme]
`))
	require.NoError(t, err)
	diags := validator.Validate(prog, validator.Options{})
	require.Contains(t, codes(diags), diag.CodeDuplicateBgm)
}

func TestValidate_LongText(t *testing.T) {
	long := strings.Repeat("a", 400)
	prog, _, err := parser.Parse([]byte("[SAY speaker=A]\n" + long + "\n"))
	require.NoError(t, err)
	diags := validator.Validate(prog, validator.Options{LongTextThreshold: 300})
	require.Contains(t, codes(diags), diag.CodeLongText)
}

func TestValidate_UnusedLabel(t *testing.T) {
	prog, _, err := parser.Parse([]byte(`[LABEL name=orphan]
[SAY speaker=A]
hi
`))
	require.NoError(t, err)
	diags := validator.Validate(prog, validator.Options{})
	require.Contains(t, codes(diags), diag.CodeUnusedLabel)
}

func TestValidate_CleanProgramHasNoDiagnostics(t *testing.T) {
	prog, _, err := parser.Parse([]byte(`[LABEL name=start]
[SAY speaker=A]
hello
[JUMP label=start]
`))
	require.NoError(t, err)
	diags := validator.Validate(prog, validator.Options{})
	require.Empty(t, diags)
	for _, d := range diags {
		require.NotEqual(t, diag.CodeUndefinedLabel, d.Code)
		require.NotEqual(t, diag.CodeUnusedLabel, d.Code)
	}
}
