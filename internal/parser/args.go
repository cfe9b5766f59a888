package parser

import (
	"strings"

	"github.com/kosuke-fujisawa/tsumugai/internal/ast"
	"github.com/kosuke-fujisawa/tsumugai/internal/token"
)

// arg is one key=value pair (or, for WAIT's shorthand form, a bare
// positional value) inside a command's bracket body.
type arg struct {
	Key      string // empty for a positional bare value
	Value    token.Token
	WasQuote bool
}

// group is one comma-separated cluster of args. Most commands have exactly
// one group; BRANCH has one group per choice.
type group struct {
	Args []arg
	Pos  token.Position
}

// splitArgs consumes tokens after the command name into comma-separated
// groups of key=value pairs: `(KEY=VALUE)*` with BRANCH's comma-separated
// `choice=... label=...` groups; commas inside quoted values were already
// consumed as part of the STRING token by the lexer, so any COMMA seen here
// is a real group separator.
func splitArgs(toks []token.Token) []group {
	var groups []group
	var cur group
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.Type == token.EOF {
			break
		}
		if t.Type == token.COMMA {
			groups = append(groups, cur)
			cur = group{}
			i++
			continue
		}
		if cur.Pos == (token.Position{}) {
			cur.Pos = t.Pos
		}

		// key=value
		if t.Type == token.IDENT && i+1 < len(toks) && toks[i+1].Type == token.EQUALS {
			valTok := token.Token{}
			if i+2 < len(toks) {
				valTok = toks[i+2]
			}
			cur.Args = append(cur.Args, arg{Key: t.Value, Value: valTok, WasQuote: valTok.Type == token.STRING})
			i += 3
			continue
		}

		// bare positional value (WAIT shorthand)
		cur.Args = append(cur.Args, arg{Value: t, WasQuote: t.Type == token.STRING})
		i++
	}
	if len(cur.Args) > 0 || len(groups) == 0 {
		groups = append(groups, cur)
	}
	return groups
}

// find returns the arg for key within a group, if present.
func (g group) find(key string) (arg, bool) {
	for _, a := range g.Args {
		if a.Key == key {
			return a, true
		}
	}
	return arg{}, false
}

// bareValue returns the single positional (keyless) arg in the group, if any.
func (g group) bareValue() (arg, bool) {
	for _, a := range g.Args {
		if a.Key == "" {
			return a, true
		}
	}
	return arg{}, false
}

// unknownKeys reports unknown keys in g against the allowed set, returning
// their positions for UNKNOWN_PARAM warnings.
func (g group) unknownKeys(allowed ...string) []arg {
	var out []arg
	for _, a := range g.Args {
		if a.Key == "" {
			continue
		}
		known := false
		for _, k := range allowed {
			if a.Key == k {
				known = true
				break
			}
		}
		if !known {
			out = append(out, a)
		}
	}
	return out
}

// coerceValue applies the type coercion rule: purely-digit (optional
// leading '-') becomes Int, "true"/"false" becomes Bool, anything else
// becomes Text.
func coerceValue(raw string) ast.Value {
	if isIntLiteral(raw) {
		n := int32(0)
		neg := false
		s := raw
		if strings.HasPrefix(s, "-") {
			neg = true
			s = s[1:]
		}
		for _, c := range s {
			n = n*10 + int32(c-'0')
		}
		if neg {
			n = -n
		}
		return ast.Int(n)
	}
	if raw == "true" {
		return ast.Bool(true)
	}
	if raw == "false" {
		return ast.Bool(false)
	}
	return ast.Text(raw)
}

func isIntLiteral(s string) bool {
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
