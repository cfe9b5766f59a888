package parser

import (
	"fmt"

	"github.com/kosuke-fujisawa/tsumugai/internal/ast"
	"github.com/kosuke-fujisawa/tsumugai/internal/diag"
	"github.com/kosuke-fujisawa/tsumugai/internal/token"
)

// parseCommand turns one bracket command's token stream into an ast.Command,
// using each command's argument table. The first token must be the command
// name; diagnostics are appended to out rather than returned, so a single
// malformed command never aborts the whole parse.
func parseCommand(toks []token.Token, bracketPos token.Position, out *[]diag.Diagnostic) (ast.Command, bool) {
	if len(toks) == 0 || toks[0].Type != token.IDENT {
		*out = append(*out, diag.New(diag.CodeUnknownCommand, bracketPos.Line, bracketPos.Column, "empty or malformed command"))
		return nil, false
	}
	name := toks[0].Value
	groups := splitArgs(toks[1:])
	g := groups[0]

	switch name {
	case "LABEL":
		v, ok := required(g, "name", bracketPos, out)
		if !ok {
			return nil, false
		}
		reportUnknown(g, bracketPos, out, "name")
		return ast.NewLabel(bracketPos, v), true

	case "SAY":
		speaker, ok := required(g, "speaker", bracketPos, out)
		if !ok {
			return nil, false
		}
		reportUnknown(g, bracketPos, out, "speaker")
		// Text is filled in by the caller as subsequent KindText lines are
		// accumulated; it starts empty here.
		return ast.NewSay(bracketPos, speaker, ""), true

	case "PLAY_BGM":
		v, ok := required(g, "name", bracketPos, out)
		if !ok {
			return nil, false
		}
		reportUnknown(g, bracketPos, out, "name")
		return ast.NewPlayBgm(bracketPos, v), true

	case "PLAY_SE":
		v, ok := required(g, "name", bracketPos, out)
		if !ok {
			return nil, false
		}
		reportUnknown(g, bracketPos, out, "name")
		return ast.NewPlaySe(bracketPos, v), true

	case "PLAY_MOVIE":
		v, ok := required(g, "name", bracketPos, out)
		if !ok {
			return nil, false
		}
		reportUnknown(g, bracketPos, out, "name")
		return ast.NewPlayMovie(bracketPos, v), true

	case "SHOW_IMAGE":
		v, ok := required(g, "name", bracketPos, out)
		if !ok {
			return nil, false
		}
		layer := ""
		if a, ok := g.find("layer"); ok {
			layer = a.Value.Value
		}
		reportUnknown(g, bracketPos, out, "name", "layer")
		return ast.NewShowImage(bracketPos, layer, v), true

	case "CLEAR_LAYER":
		v, ok := required(g, "layer", bracketPos, out)
		if !ok {
			return nil, false
		}
		reportUnknown(g, bracketPos, out, "layer")
		return ast.NewClearLayer(bracketPos, v), true

	case "WAIT":
		return parseWait(g, bracketPos, out)

	case "BRANCH":
		return parseBranch(groups, bracketPos, out)

	case "JUMP":
		v, ok := required(g, "label", bracketPos, out)
		if !ok {
			return nil, false
		}
		reportUnknown(g, bracketPos, out, "label")
		return ast.NewJump(bracketPos, v), true

	case "JUMP_IF":
		return parseJumpIf(g, bracketPos, out)

	case "SET":
		return parseSet(g, bracketPos, out)

	case "MODIFY":
		return parseModify(g, bracketPos, out)

	default:
		*out = append(*out, diag.New(diag.CodeUnknownCommand, bracketPos.Line, bracketPos.Column,
			fmt.Sprintf("unknown command %q", name)))
		return nil, false
	}
}

// required fetches key's value from g, emitting MISSING_PARAM if absent.
func required(g group, key string, pos token.Position, out *[]diag.Diagnostic) (string, bool) {
	a, ok := g.find(key)
	if !ok {
		*out = append(*out, diag.New(diag.CodeMissingParam, pos.Line, pos.Column,
			fmt.Sprintf("missing required parameter %q", key)))
		return "", false
	}
	return a.Value.Value, true
}

// reportUnknown emits an UNKNOWN_PARAM warning for every key in g not in allowed.
func reportUnknown(g group, pos token.Position, out *[]diag.Diagnostic, allowed ...string) {
	for _, a := range g.unknownKeys(allowed...) {
		*out = append(*out, diag.NewWarning(diag.CodeUnknownParam, pos.Line, pos.Column,
			fmt.Sprintf("unknown parameter %q", a.Key)))
	}
}

func parseWait(g group, pos token.Position, out *[]diag.Diagnostic) (ast.Command, bool) {
	var raw string
	if a, ok := g.find("seconds"); ok {
		raw = a.Value.Value
		reportUnknown(g, pos, out, "seconds")
	} else if a, ok := g.bareValue(); ok {
		raw = a.Value.Value
	} else {
		*out = append(*out, diag.New(diag.CodeMissingParam, pos.Line, pos.Column, "missing required parameter \"seconds\""))
		return nil, false
	}

	seconds, ok := parseWaitDuration(raw)
	if !ok || seconds < 0 {
		*out = append(*out, diag.New(diag.CodeMissingParam, pos.Line, pos.Column,
			fmt.Sprintf("invalid WAIT duration %q", raw)))
		return nil, false
	}
	return ast.NewWait(pos, seconds), true
}

// parseWaitDuration accepts both "1.5s" shorthand and a bare "1.5" (as
// produced by `seconds=1.5`).
func parseWaitDuration(raw string) (float32, bool) {
	s := raw
	if len(s) > 0 && (s[len(s)-1] == 's' || s[len(s)-1] == 'S') {
		s = s[:len(s)-1]
	}
	if s == "" {
		return 0, false
	}
	var whole, frac int64
	var fracDigits int
	seenDot := false
	neg := false
	i := 0
	if s[0] == '-' {
		neg = true
		i = 1
	}
	if i >= len(s) {
		return 0, false
	}
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '.' && !seenDot:
			seenDot = true
		case c >= '0' && c <= '9':
			if seenDot {
				frac = frac*10 + int64(c-'0')
				fracDigits++
			} else {
				whole = whole*10 + int64(c-'0')
			}
		default:
			return 0, false
		}
	}
	val := float32(whole)
	if fracDigits > 0 {
		div := float32(1)
		for i := 0; i < fracDigits; i++ {
			div *= 10
		}
		val += float32(frac) / div
	}
	if neg {
		val = -val
	}
	return val, true
}

func parseBranch(groups []group, pos token.Position, out *[]diag.Diagnostic) (ast.Command, bool) {
	var choices []ast.Choice
	for _, g := range groups {
		choiceArg, hasChoice := g.find("choice")
		labelArg, hasLabel := g.find("label")
		if !hasChoice {
			*out = append(*out, diag.New(diag.CodeMissingParam, g.Pos.Line, g.Pos.Column, "missing required parameter \"choice\""))
			continue
		}
		if !hasLabel {
			*out = append(*out, diag.New(diag.CodeMissingParam, g.Pos.Line, g.Pos.Column, "missing required parameter \"label\""))
			continue
		}
		reportUnknown(g, g.Pos, out, "choice", "label")
		choices = append(choices, ast.Choice{Text: choiceArg.Value.Value, Target: labelArg.Value.Value})
	}
	if len(choices) == 0 {
		*out = append(*out, diag.New(diag.CodeMissingParam, pos.Line, pos.Column, "BRANCH requires at least one choice"))
		return nil, false
	}
	return ast.NewBranch(pos, choices), true
}

func parseJumpIf(g group, pos token.Position, out *[]diag.Diagnostic) (ast.Command, bool) {
	variable, ok := required(g, "var", pos, out)
	if !ok {
		return nil, false
	}
	cmpRaw, ok := required(g, "cmp", pos, out)
	if !ok {
		return nil, false
	}
	valueRaw, ok := required(g, "value", pos, out)
	if !ok {
		return nil, false
	}
	label, ok := required(g, "label", pos, out)
	if !ok {
		return nil, false
	}
	reportUnknown(g, pos, out, "var", "cmp", "value", "label")

	cmp, ok := ast.ParseCmp(cmpRaw)
	if !ok {
		*out = append(*out, diag.New(diag.CodeMissingParam, pos.Line, pos.Column, fmt.Sprintf("invalid comparison operator %q", cmpRaw)))
		return nil, false
	}
	return ast.NewJumpIf(pos, variable, cmp, coerceValue(valueRaw), label), true
}

func parseSet(g group, pos token.Position, out *[]diag.Diagnostic) (ast.Command, bool) {
	name, ok := required(g, "name", pos, out)
	if !ok {
		return nil, false
	}
	valueRaw, ok := required(g, "value", pos, out)
	if !ok {
		return nil, false
	}
	reportUnknown(g, pos, out, "name", "value")
	return ast.NewSetVar(pos, name, coerceValue(valueRaw)), true
}

func parseModify(g group, pos token.Position, out *[]diag.Diagnostic) (ast.Command, bool) {
	name, ok := required(g, "name", pos, out)
	if !ok {
		return nil, false
	}
	opRaw, ok := required(g, "op", pos, out)
	if !ok {
		return nil, false
	}
	valueRaw, ok := required(g, "value", pos, out)
	if !ok {
		return nil, false
	}
	reportUnknown(g, pos, out, "name", "op", "value")

	var op ast.ArithOp
	switch opRaw {
	case "add":
		op = ast.Add
	case "sub":
		op = ast.Sub
	default:
		*out = append(*out, diag.New(diag.CodeMissingParam, pos.Line, pos.Column, fmt.Sprintf("invalid MODIFY op %q", opRaw)))
		return nil, false
	}

	delta := coerceValue(valueRaw)
	n, ok := delta.(ast.Int)
	if !ok {
		*out = append(*out, diag.New(diag.CodeMissingParam, pos.Line, pos.Column, fmt.Sprintf("MODIFY value %q is not an integer", valueRaw)))
		return nil, false
	}
	return ast.NewModifyVar(pos, name, op, int32(n)), true
}
