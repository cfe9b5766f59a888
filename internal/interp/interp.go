// Package interp implements the step interpreter: a pure dispatch loop over
// (State, Program, event) that never retains state between calls and never
// mutates its input state on error.
package interp

import (
	"fmt"

	"github.com/kosuke-fujisawa/tsumugai/internal/ast"
	"github.com/kosuke-fujisawa/tsumugai/internal/diag"
	"github.com/kosuke-fujisawa/tsumugai/internal/directive"
	"github.com/kosuke-fujisawa/tsumugai/internal/resolver"
	"github.com/kosuke-fujisawa/tsumugai/internal/state"
	"github.com/kosuke-fujisawa/tsumugai/internal/token"
)

// DefaultBudget is the per-step command budget used when Options.Budget is
// zero: the maximum number of commands a single Step may execute without
// hitting a terminating directive before it's treated as a runaway loop.
const DefaultBudget = 10_000

// Options configures one Step call. The zero value is usable: no resolver
// (every asset is unresolved), no sink (warnings are dropped), default
// budget.
type Options struct {
	Resolver resolver.Resolver
	Sink     diag.Sink
	Budget   int
}

// Step advances st by executing commands from prog starting at st.PC,
// returning the resulting State and the accumulated StepResult. On error,
// the returned State is the original st, completely unmutated — callers may
// retry or inspect it as if Step had never been called.
//
// choose is nil for an ordinary step and non-nil exactly when the previous
// StepResult had Next == WaitBranch and the host is supplying the user's
// selection.
func Step(in *state.State, prog *ast.Program, choose *int, opts Options) (*state.State, directive.StepResult, error) {
	if in.Halted {
		return in, haltResult(), nil
	}

	st := in.Clone()

	if choose != nil {
		if st.Branch == nil {
			return in, directive.StepResult{}, &diag.InvalidError{Reason: "choose called with no pending branch"}
		}
		idx := *choose
		if idx < 0 || idx >= len(st.Branch.Choices) {
			return in, directive.StepResult{}, &diag.InvalidError{Reason: fmt.Sprintf("choice index %d out of range [0,%d)", idx, len(st.Branch.Choices))}
		}
		target := st.Branch.Choices[idx].Target
		pos, ok := prog.ResolveLabel(target)
		if !ok {
			return in, directive.StepResult{}, &diag.RuntimeError{Kind: diag.UndefinedLabel, Message: fmt.Sprintf("branch target %q is undefined", target)}
		}
		st.PC = pos
		st.Branch = nil
	} else if st.Branch != nil {
		// Idempotent repoll: the Branch directive was already emitted when
		// the branch was created, so a bare re-poll gets an empty list.
		return st, directive.StepResult{Next: directive.WaitBranch, Directives: []directive.Directive{}}, nil
	}

	budget := opts.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}
	res := opts.Resolver
	if res == nil {
		res = resolver.Default{}
	}

	var directives []directive.Directive
	var visited []int

	for executed := 0; ; executed++ {
		if st.PC >= prog.Len() {
			st.Halted = true
			return st, directive.StepResult{Next: directive.Halt, Directives: nonNil(directives)}, nil
		}
		if executed >= budget {
			return in, directive.StepResult{}, &diag.RuntimeError{
				Kind:      diag.RunawayExecution,
				Message:   fmt.Sprintf("exceeded budget of %d commands without a terminating directive", budget),
				Positions: lastN(visited, 8),
			}
		}
		visited = append(visited, st.PC)

		switch c := prog.Commands[st.PC].(type) {
		case ast.Say:
			directives = append(directives, directive.Say{Speaker: c.Speaker, Text: c.Text})
			st.PC++
			return st, directive.StepResult{Next: directive.WaitUser, Directives: directives}, nil

		case ast.Wait:
			directives = append(directives, directive.Wait{Seconds: c.Seconds})
			st.PC++
			return st, directive.StepResult{Next: directive.WaitUser, Directives: directives}, nil

		case ast.PlayMovie:
			path := resolveAsset(res.ResolveMovie, c.Name, diag.CodeUnresolvedAsset, "movie", c.Position(), opts.Sink)
			directives = append(directives, directive.PlayMovie{Path: path})
			st.PC++
			return st, directive.StepResult{Next: directive.WaitUser, Directives: directives}, nil

		case ast.PlayBgm:
			path := resolveAsset(res.ResolveBgm, c.Name, diag.CodeUnresolvedAsset, "bgm", c.Position(), opts.Sink)
			directives = append(directives, directive.PlayBgm{Path: path})
			st.PC++

		case ast.PlaySe:
			path := resolveAsset(res.ResolveSe, c.Name, diag.CodeUnresolvedAsset, "se", c.Position(), opts.Sink)
			directives = append(directives, directive.PlaySe{Path: path})
			st.PC++

		case ast.ShowImage:
			path := resolveAsset(res.ResolveImage, c.Name, diag.CodeUnresolvedAsset, "image", c.Position(), opts.Sink)
			directives = append(directives, directive.ShowImage{Layer: c.Layer, Path: path})
			st.PC++

		case ast.ClearLayer:
			directives = append(directives, directive.ClearLayer{Layer: c.Layer})
			st.PC++

		case ast.SetVar:
			st.Vars.Set(c.Name, c.Value)
			directives = append(directives, directive.SetVar{Name: c.Name, Value: c.Value.String()})
			st.PC++

		case ast.ModifyVar:
			next, err := applyModify(st, c)
			if err != nil {
				return in, directive.StepResult{}, err
			}
			directives = append(directives, directive.SetVar{Name: c.Name, Value: next.String()})
			st.PC++

		case ast.Label:
			directives = append(directives, directive.ReachedLabel{Label: c.Name})
			st.PC++

		case ast.Jump:
			pos, ok := prog.ResolveLabel(c.Target)
			if !ok {
				return in, directive.StepResult{}, &diag.RuntimeError{Kind: diag.UndefinedLabel, Message: fmt.Sprintf("jump target %q is undefined", c.Target)}
			}
			directives = append(directives, directive.JumpTo{Label: c.Target})
			st.PC = pos

		case ast.JumpIf:
			taken, pos, err := evalJumpIf(st, prog, c, opts.Sink)
			if err != nil {
				return in, directive.StepResult{}, err
			}
			if taken {
				directives = append(directives, directive.JumpTo{Label: c.Target})
				st.PC = pos
			} else {
				st.PC++
			}

		case ast.Branch:
			st.Branch = &state.BranchState{Choices: c.Choices, Emitted: true}
			texts := make([]string, len(c.Choices))
			for i, ch := range c.Choices {
				texts[i] = ch.Text
			}
			directives = append(directives, directive.Branch{Choices: texts})
			return st, directive.StepResult{Next: directive.WaitBranch, Directives: directives}, nil

		default:
			panic(fmt.Sprintf("interp: unhandled command type %T", c))
		}
	}
}

// Choose is a convenience wrapper equivalent to Step(st, prog, &index, opts).
func Choose(in *state.State, prog *ast.Program, index int, opts Options) (*state.State, directive.StepResult, error) {
	return Step(in, prog, &index, opts)
}

func haltResult() directive.StepResult {
	return directive.StepResult{Next: directive.Halt, Directives: []directive.Directive{}}
}

func nonNil(ds []directive.Directive) []directive.Directive {
	if ds == nil {
		return []directive.Directive{}
	}
	return ds
}

func lastN(positions []int, n int) []int {
	if len(positions) <= n {
		return positions
	}
	return positions[len(positions)-n:]
}

func applyModify(st *state.State, c ast.ModifyVar) (ast.Int, error) {
	cur, ok := st.Vars.Get(c.Name)
	if !ok {
		return 0, &diag.RuntimeError{Kind: diag.TypeMismatch, Message: fmt.Sprintf("variable %q is not set", c.Name)}
	}
	curInt, ok := cur.(ast.Int)
	if !ok {
		return 0, &diag.RuntimeError{Kind: diag.TypeMismatch, Message: fmt.Sprintf("variable %q is not an integer", c.Name)}
	}
	var next ast.Int
	switch c.Op {
	case ast.Add:
		next = curInt + ast.Int(c.Delta)
	case ast.Sub:
		next = curInt - ast.Int(c.Delta)
	}
	st.Vars.Set(c.Name, next)
	return next, nil
}

// evalJumpIf evaluates a JumpIf's comparison, substituting a type-appropriate
// zero value (with a JUMP_IF_UNSET_VAR warning) when the variable is unset.
func evalJumpIf(st *state.State, prog *ast.Program, c ast.JumpIf, sink diag.Sink) (taken bool, pos int, err error) {
	cur, ok := st.Vars.Get(c.Variable)
	if !ok {
		cur = zeroFor(c.Value)
		if sink != nil {
			p := c.Position()
			sink.Emit(diag.NewWarning(diag.CodeJumpIfUnsetVar, p.Line, p.Column,
				fmt.Sprintf("variable %q is unset; treated as %s", c.Variable, cur)))
		}
	}
	if !ast.Apply(c.Op, cur, c.Value) {
		return false, 0, nil
	}
	target, ok := prog.ResolveLabel(c.Target)
	if !ok {
		return false, 0, &diag.RuntimeError{Kind: diag.UndefinedLabel, Message: fmt.Sprintf("jump target %q is undefined", c.Target)}
	}
	return true, target, nil
}

func zeroFor(v ast.Value) ast.Value {
	switch v.(type) {
	case ast.Int:
		return ast.Int(0)
	case ast.Bool:
		return ast.Bool(false)
	default:
		return ast.Text("")
	}
}

// resolveAsset looks up name through resolveFn, emitting an UNRESOLVED_ASSET
// warning (never an error) when it fails.
func resolveAsset(resolveFn func(string) (string, bool), name, code, kind string, pos token.Position, sink diag.Sink) *string {
	path, ok := resolveFn(name)
	if !ok {
		if sink != nil {
			sink.Emit(diag.NewWarning(code, pos.Line, pos.Column, fmt.Sprintf("unresolved %s asset %q", kind, name)))
		}
		return nil
	}
	return &path
}
