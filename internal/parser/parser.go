// Package parser implements the command parser and program assembler: it
// turns classified lexer.Lines into ast.Commands and assembles them into an
// *ast.Program, collecting diag.Diagnostics as it goes rather than failing
// on the first malformed command.
package parser

import (
	"fmt"

	"github.com/kosuke-fujisawa/tsumugai/internal/ast"
	"github.com/kosuke-fujisawa/tsumugai/internal/diag"
	"github.com/kosuke-fujisawa/tsumugai/internal/lexer"
	"github.com/kosuke-fujisawa/tsumugai/internal/token"
)

type sceneMark struct {
	name string
	pos  int
}

// Parse compiles source into an *ast.Program. All diagnostics gathered
// during parsing (both warnings and errors) are returned alongside it; err
// is a non-nil *diag.ParseError exactly when diagnostics contains at least
// one error-severity entry, in which case the returned Program is nil.
func Parse(source []byte) (*ast.Program, []diag.Diagnostic, error) {
	scanner := lexer.NewScanner(source)

	var (
		commands       []ast.Command
		diagnostics    []diag.Diagnostic
		labelPositions = make(map[string]token.Position)
		sceneMarks     []sceneMark
		sayIdx         = -1
	)

	for {
		line, ok := scanner.Next()
		if !ok {
			break
		}

		switch line.Kind {
		case lexer.KindBlank:
			sayIdx = -1

		case lexer.KindSceneHeading:
			sayIdx = -1
			sceneMarks = append(sceneMarks, sceneMark{name: line.SceneName, pos: len(commands)})

		case lexer.KindCommand:
			toks := lexer.TokenizeBracket(line.Bracket, line.Pos.Line, line.Pos.Column)
			cmd, ok := parseCommand(toks, line.Pos, &diagnostics)
			if !ok {
				sayIdx = -1
				continue
			}

			if lbl, isLabel := cmd.(ast.Label); isLabel {
				if prevPos, dup := labelPositions[lbl.Name]; dup {
					diagnostics = append(diagnostics, diag.New(diag.CodeDuplicateLabel, line.Pos.Line, line.Pos.Column,
						fmt.Sprintf("label %q already defined at %s", lbl.Name, prevPos)))
				} else {
					labelPositions[lbl.Name] = line.Pos
				}
			}

			commands = append(commands, cmd)
			if _, isSay := cmd.(ast.Say); isSay {
				sayIdx = len(commands) - 1
			} else {
				sayIdx = -1
			}

		case lexer.KindText:
			if sayIdx < 0 {
				// Free text with no preceding SAY is prose around scenes; it
				// carries no runtime meaning and is dropped.
				continue
			}
			say := commands[sayIdx].(ast.Say)
			if say.Text == "" {
				say.Text = line.Body
			} else {
				say.Text += "\n" + line.Body
			}
			commands[sayIdx] = say
		}
	}

	for _, u := range scanner.Diagnostics() {
		diagnostics = append(diagnostics, diag.New(diag.CodeUnterminatedBrack, u.Pos.Line, u.Pos.Column, "unterminated bracket command"))
	}

	program := ast.NewProgram(commands)
	for _, m := range sceneMarks {
		program.SceneIndex[m.name] = m.pos
	}

	for _, d := range diagnostics {
		if d.Severity == diag.SeverityError {
			return nil, diagnostics, &diag.ParseError{Diagnostics: diagnostics}
		}
	}
	return program, diagnostics, nil
}
