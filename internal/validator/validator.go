// Package validator implements the static validator: a single pass over an
// *ast.Program producing Diagnostics without executing anything.
package validator

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/kosuke-fujisawa/tsumugai/internal/ast"
	"github.com/kosuke-fujisawa/tsumugai/internal/diag"
	"github.com/kosuke-fujisawa/tsumugai/internal/lexer"
)

// DefaultLongTextThreshold is the default LONG_TEXT limit, in Unicode
// scalar values.
const DefaultLongTextThreshold = 300

// Options configures a validation pass. The zero value uses
// DefaultLongTextThreshold.
type Options struct {
	LongTextThreshold int
}

// Validate runs every check over prog and returns every Diagnostic found,
// grouped check by check; within each check they follow command order.
func Validate(prog *ast.Program, opts Options) []diag.Diagnostic {
	threshold := opts.LongTextThreshold
	if threshold <= 0 {
		threshold = DefaultLongTextThreshold
	}

	var diags []diag.Diagnostic
	diags = append(diags, checkLabelsAndTargets(prog)...)
	diags = append(diags, checkReachability(prog)...)
	diags = append(diags, checkInfiniteLoop(prog)...)
	diags = append(diags, checkConsecutiveWait(prog)...)
	diags = append(diags, checkDuplicateBgm(prog)...)
	diags = append(diags, checkLongText(prog, threshold)...)
	diags = append(diags, checkUnusedLabels(prog)...)
	return diags
}

// checkLabelsAndTargets reports UNDEFINED_LABEL for every Jump/JumpIf/Branch
// target absent from LabelIndex, with a fuzzy "did you mean" hint.
// DUPLICATE_LABEL is already caught during parsing; this re-derives it here
// too so Validate is usable standalone against a hand-built Program.
func checkLabelsAndTargets(prog *ast.Program) []diag.Diagnostic {
	var diags []diag.Diagnostic
	names := prog.LabelNames()
	seen := make(map[string]bool, len(prog.Commands))

	checkTarget := func(target string, pos ast.Command) {
		if _, ok := prog.ResolveLabel(target); ok {
			return
		}
		p := pos.Position()
		d := diag.New(diag.CodeUndefinedLabel, p.Line, p.Column, fmt.Sprintf("target %q is not a defined label", target))
		if hint := bestMatch(target, names); hint != "" {
			d = d.WithHint(fmt.Sprintf("did you mean %q?", hint))
		}
		diags = append(diags, d)
	}

	for _, cmd := range prog.Commands {
		switch c := cmd.(type) {
		case ast.Label:
			if seen[c.Name] {
				p := c.Position()
				diags = append(diags, diag.New(diag.CodeDuplicateLabel, p.Line, p.Column, fmt.Sprintf("label %q already defined", c.Name)))
			}
			seen[c.Name] = true
		case ast.Jump:
			checkTarget(c.Target, cmd)
		case ast.JumpIf:
			checkTarget(c.Target, cmd)
		case ast.Branch:
			for _, ch := range c.Choices {
				checkTarget(ch.Target, cmd)
			}
		}
	}
	return diags
}

// bestMatch returns the candidate with the smallest case-insensitive
// Levenshtein distance to target (ties broken by name), or "" if there are
// no candidates.
func bestMatch(target string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	best, bestDist := "", -1
	for _, c := range candidates {
		d := fuzzy.LevenshteinDistance(strings.ToLower(target), strings.ToLower(c))
		if bestDist < 0 || d < bestDist || (d == bestDist && c < best) {
			best, bestDist = c, d
		}
	}
	return best
}

// checkReachability walks the forward graph (fall-through plus jump edges)
// from command 0 and flags UNREACHABLE for any command never visited.
// Consecutive unreachable commands are reported as a single span starting
// at the first one, matching how a reader would describe "dead code" here.
func checkReachability(prog *ast.Program) []diag.Diagnostic {
	n := prog.Len()
	if n == 0 {
		return nil
	}
	reached := make([]bool, n)
	reachableFrom(prog, 0, reached)

	var diags []diag.Diagnostic
	i := 0
	for i < n {
		if reached[i] {
			i++
			continue
		}
		start := i
		for i < n && !reached[i] {
			i++
		}
		pos := prog.Commands[start].Position()
		diags = append(diags, diag.NewWarning(diag.CodeUnreachable, pos.Line, pos.Column,
			fmt.Sprintf("%d command(s) starting here are never reached", i-start)))
	}
	return diags
}

func reachableFrom(prog *ast.Program, start int, reached []bool) {
	stack := []int{start}
	for len(stack) > 0 {
		pos := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if pos < 0 || pos >= prog.Len() || reached[pos] {
			continue
		}
		reached[pos] = true

		switch c := prog.Commands[pos].(type) {
		case ast.Jump:
			if target, ok := prog.ResolveLabel(c.Target); ok {
				stack = append(stack, target)
			}
			// No fall-through: an unconditional Jump has exactly one edge.
		case ast.JumpIf:
			if target, ok := prog.ResolveLabel(c.Target); ok {
				stack = append(stack, target)
			}
			stack = append(stack, pos+1)
		case ast.Branch:
			for _, ch := range c.Choices {
				if target, ok := prog.ResolveLabel(ch.Target); ok {
					stack = append(stack, target)
				}
			}
			// No fall-through: a Branch never falls through to pos+1.
		default:
			stack = append(stack, pos+1)
		}
	}
}

// checkInfiniteLoop flags a Label → Jump → Label cycle with no intervening
// terminating command or Branch: starting at each Label, it walks forward
// over non-terminating commands (PlayBgm/PlaySe/ShowImage/ClearLayer/
// SetVar/ModifyVar) and through Jump chains, following other Labels'
// targets in turn, to see whether control can return to the starting Label
// without ever pausing for the host.
func checkInfiniteLoop(prog *ast.Program) []diag.Diagnostic {
	var diags []diag.Diagnostic
	for i, cmd := range prog.Commands {
		lbl, ok := cmd.(ast.Label)
		if !ok {
			continue
		}
		if loopsBackTo(prog, i) {
			p := lbl.Position()
			diags = append(diags, diag.NewWarning(diag.CodeInfiniteLoop, p.Line, p.Column,
				fmt.Sprintf("label %q reaches a jump back to itself with no intervening terminating command", lbl.Name)))
		}
	}
	return diags
}

// loopsBackTo reports whether control starting just after the Label at
// start can reach a Jump targeting start again, passing through only
// Labels and non-terminating commands along the way.
func loopsBackTo(prog *ast.Program, start int) bool {
	visited := make(map[int]bool)
	pos := start + 1
	for {
		if pos < 0 || pos >= prog.Len() || visited[pos] {
			return false
		}
		visited[pos] = true

		switch c := prog.Commands[pos].(type) {
		case ast.Label:
			pos++
		case ast.PlayBgm, ast.PlaySe, ast.ShowImage, ast.ClearLayer, ast.SetVar, ast.ModifyVar:
			pos++
		case ast.Jump:
			target, ok := prog.ResolveLabel(c.Target)
			if !ok {
				return false
			}
			if target == start {
				return true
			}
			pos = target + 1
		default:
			return false
		}
	}
}

// checkConsecutiveWait flags two or more Wait commands in immediate
// succession (no other command between them).
func checkConsecutiveWait(prog *ast.Program) []diag.Diagnostic {
	var diags []diag.Diagnostic
	for i := 1; i < prog.Len(); i++ {
		_, prevWait := prog.Commands[i-1].(ast.Wait)
		cur, curWait := prog.Commands[i].(ast.Wait)
		if prevWait && curWait {
			p := cur.Position()
			diags = append(diags, diag.NewWarning(diag.CodeConsecutiveWait, p.Line, p.Column, "consecutive WAIT commands"))
		}
	}
	return diags
}

// checkDuplicateBgm flags a PlayBgm whose name matches the most recent
// preceding PlayBgm with no intervening change.
func checkDuplicateBgm(prog *ast.Program) []diag.Diagnostic {
	var diags []diag.Diagnostic
	last := ""
	haveLast := false
	for _, cmd := range prog.Commands {
		bgm, ok := cmd.(ast.PlayBgm)
		if !ok {
			continue
		}
		if haveLast && bgm.Name == last {
			p := bgm.Position()
			diags = append(diags, diag.NewWarning(diag.CodeDuplicateBgm, p.Line, p.Column,
				fmt.Sprintf("PLAY_BGM %q repeats the currently playing track", bgm.Name)))
		}
		last = bgm.Name
		haveLast = true
	}
	return diags
}

// checkLongText flags Say commands whose text exceeds threshold Unicode
// scalar values.
func checkLongText(prog *ast.Program, threshold int) []diag.Diagnostic {
	var diags []diag.Diagnostic
	for _, cmd := range prog.Commands {
		say, ok := cmd.(ast.Say)
		if !ok {
			continue
		}
		if n := lexer.RuneLen(say.Text); n > threshold {
			p := say.Position()
			diags = append(diags, diag.NewWarning(diag.CodeLongText, p.Line, p.Column,
				fmt.Sprintf("dialogue text is %d runes, exceeding the %d-rune threshold", n, threshold)))
		}
	}
	return diags
}

// checkUnusedLabels flags a defined label that no Jump/JumpIf/Branch ever
// targets.
func checkUnusedLabels(prog *ast.Program) []diag.Diagnostic {
	used := make(map[string]bool)
	for _, cmd := range prog.Commands {
		switch c := cmd.(type) {
		case ast.Jump:
			used[c.Target] = true
		case ast.JumpIf:
			used[c.Target] = true
		case ast.Branch:
			for _, ch := range c.Choices {
				used[ch.Target] = true
			}
		}
	}

	var diags []diag.Diagnostic
	for _, cmd := range prog.Commands {
		lbl, ok := cmd.(ast.Label)
		if !ok || used[lbl.Name] {
			continue
		}
		p := lbl.Position()
		diags = append(diags, diag.NewWarning(diag.CodeUnusedLabel, p.Line, p.Column, fmt.Sprintf("label %q is never jumped to", lbl.Name)))
	}
	return diags
}
