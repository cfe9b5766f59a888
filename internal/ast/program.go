package ast

// Program is the ordered, immutable command sequence produced by the
// assembler. Once built it is never mutated, so it may be shared freely
// across interpreter instances and threads.
type Program struct {
	Commands []Command

	// LabelIndex maps a label name to the 0-based position of its Label
	// command. Every Jump/JumpIf/Branch target either resolves through this
	// map or is flagged by the validator/interpreter.
	LabelIndex map[string]int

	// SceneIndex maps a scene heading name to the position of the first
	// command following it. Scene headings are human-facing markers only;
	// they are never jump targets.
	SceneIndex map[string]int
}

// NewProgram builds a Program, indexing labels as it goes. SceneIndex starts
// empty; the parser fills it in. Commands is stored as given; callers (the assembler) are responsible for
// resolving duplicate labels before calling this, since NewProgram keeps the
// last occurrence rather than erroring.
func NewProgram(commands []Command) *Program {
	p := &Program{
		Commands:   commands,
		LabelIndex: make(map[string]int),
		SceneIndex: make(map[string]int),
	}
	for i, cmd := range commands {
		if l, ok := cmd.(Label); ok {
			p.LabelIndex[l.Name] = i
		}
	}
	return p
}

// Len returns the number of commands in the program.
func (p *Program) Len() int { return len(p.Commands) }

// ResolveLabel returns the position of name's Label command.
func (p *Program) ResolveLabel(name string) (int, bool) {
	pos, ok := p.LabelIndex[name]
	return pos, ok
}

// LabelNames returns every defined label name, used by the validator's
// fuzzy "did you mean" suggestions.
func (p *Program) LabelNames() []string {
	names := make([]string, 0, len(p.LabelIndex))
	for name := range p.LabelIndex {
		names = append(names, name)
	}
	return names
}
