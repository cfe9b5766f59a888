// Package codec implements the save/load codec: canonical-JSON
// serialization of a state.State with a semver version tag, a migration
// table for older saves, and a non-contractual program fingerprint used
// only to warn on stale saves.
package codec

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/mod/semver"

	"github.com/kosuke-fujisawa/tsumugai/internal/ast"
	"github.com/kosuke-fujisawa/tsumugai/internal/diag"
	"github.com/kosuke-fujisawa/tsumugai/internal/state"
)

// CurrentVersion is the save format version this build writes and reads
// natively. Older versions are accepted only via the migrations table.
const CurrentVersion = "v0.2.0"

func init() {
	if !semver.IsValid(CurrentVersion) {
		panic("codec: CurrentVersion is not a valid semver string")
	}
}

// envelope is the canonical on-disk shape, field order fixed for stable
// byte-for-byte output.
type envelope struct {
	Version     string      `json:"version"`
	PC          int         `json:"pc"`
	Vars        []varEntry  `json:"vars"`
	Branch      *branchJSON `json:"branch,omitempty"`
	Halted      bool        `json:"halted"`
	Seed        *uint64     `json:"seed,omitempty"`
	Fingerprint string      `json:"fingerprint,omitempty"`
}

type varEntry struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type choiceJSON struct {
	Text   string `json:"text"`
	Target string `json:"target"`
}

type branchJSON struct {
	Choices []choiceJSON `json:"choices"`
	Emitted bool         `json:"emitted"`
}

// Save serializes st into the canonical JSON save format. prog may be nil,
// in which case no fingerprint is embedded and load will skip the
// staleness check.
func Save(st *state.State, prog *ast.Program) ([]byte, error) {
	env := envelope{
		Version: CurrentVersion,
		PC:      st.PC,
		Halted:  st.Halted,
		Seed:    st.Seed,
	}

	st.Vars.Each(func(name string, value ast.Value) {
		env.Vars = append(env.Vars, encodeVar(name, value))
	})
	if env.Vars == nil {
		env.Vars = []varEntry{}
	}

	if st.Branch != nil {
		choices := make([]choiceJSON, len(st.Branch.Choices))
		for i, c := range st.Branch.Choices {
			choices[i] = choiceJSON{Text: c.Text, Target: c.Target}
		}
		env.Branch = &branchJSON{Choices: choices, Emitted: st.Branch.Emitted}
	}

	if prog != nil {
		fp := Fingerprint(prog)
		env.Fingerprint = hex.EncodeToString(fp[:])
	}

	return json.Marshal(env)
}

// Load deserializes data into a State, applying any migrations needed to
// bring an older save up to CurrentVersion. Unknown fields are rejected
// (strict). If prog is non-nil and the save carries a fingerprint that does
// not match prog, a STALE_FINGERPRINT warning is routed to sink (if
// non-nil) — this never fails the load, since scripts are expected to
// evolve after a save was made.
func Load(data []byte, prog *ast.Program, sink diag.Sink) (*state.State, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &diag.InvalidError{Reason: "malformed save payload: " + err.Error()}
	}

	version, err := extractVersion(raw)
	if err != nil {
		return nil, err
	}

	for version != CurrentVersion {
		m, ok := migrations[version]
		if !ok {
			return nil, &diag.InvalidError{Reason: fmt.Sprintf("unsupported save version %q: no migration path to %s", version, CurrentVersion)}
		}
		raw, err = m.upgrade(raw)
		if err != nil {
			return nil, &diag.InvalidError{Reason: fmt.Sprintf("migrating save from %s to %s: %s", version, m.to, err)}
		}
		version = m.to
	}

	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(normalized))
	dec.DisallowUnknownFields()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, &diag.InvalidError{Reason: "unrecognized field in save payload: " + err.Error()}
	}

	st := state.New()
	st.PC = env.PC
	st.Halted = env.Halted
	st.Seed = env.Seed

	for _, ve := range env.Vars {
		val, err := decodeVar(ve)
		if err != nil {
			return nil, &diag.InvalidError{Reason: err.Error()}
		}
		st.Vars.Set(ve.Name, val)
	}

	if env.Branch != nil {
		choices := make([]ast.Choice, len(env.Branch.Choices))
		for i, c := range env.Branch.Choices {
			choices[i] = ast.Choice{Text: c.Text, Target: c.Target}
		}
		st.Branch = &state.BranchState{Choices: choices, Emitted: env.Branch.Emitted}
	}

	if prog != nil && env.Fingerprint != "" {
		fp := Fingerprint(prog)
		if hex.EncodeToString(fp[:]) != env.Fingerprint && sink != nil {
			sink.Emit(diag.NewWarning(diag.CodeStaleFingerprint, 0, 0,
				"save fingerprint does not match the loaded program; the script may have changed since this save was made"))
		}
	}

	return st, nil
}

func extractVersion(raw map[string]json.RawMessage) (string, error) {
	versionRaw, ok := raw["version"]
	if !ok {
		return "", &diag.InvalidError{Reason: "save payload is missing \"version\""}
	}
	var version string
	if err := json.Unmarshal(versionRaw, &version); err != nil {
		return "", &diag.InvalidError{Reason: "save payload has a non-string \"version\""}
	}
	if !semver.IsValid(version) {
		return "", &diag.InvalidError{Reason: fmt.Sprintf("save payload has an invalid version string %q", version)}
	}
	if semver.Compare(version, CurrentVersion) > 0 {
		return "", &diag.InvalidError{Reason: fmt.Sprintf("save version %q is newer than this build (%s)", version, CurrentVersion)}
	}
	return version, nil
}

func encodeVar(name string, value ast.Value) varEntry {
	switch v := value.(type) {
	case ast.Int:
		raw, _ := json.Marshal(int32(v))
		return varEntry{Name: name, Type: "int", Value: raw}
	case ast.Bool:
		raw, _ := json.Marshal(bool(v))
		return varEntry{Name: name, Type: "bool", Value: raw}
	default:
		raw, _ := json.Marshal(string(v.(ast.Text)))
		return varEntry{Name: name, Type: "text", Value: raw}
	}
}

func decodeVar(ve varEntry) (ast.Value, error) {
	switch ve.Type {
	case "int":
		var n int32
		if err := json.Unmarshal(ve.Value, &n); err != nil {
			return nil, fmt.Errorf("variable %q: invalid int value: %w", ve.Name, err)
		}
		return ast.Int(n), nil
	case "bool":
		var b bool
		if err := json.Unmarshal(ve.Value, &b); err != nil {
			return nil, fmt.Errorf("variable %q: invalid bool value: %w", ve.Name, err)
		}
		return ast.Bool(b), nil
	case "text":
		var s string
		if err := json.Unmarshal(ve.Value, &s); err != nil {
			return nil, fmt.Errorf("variable %q: invalid text value: %w", ve.Name, err)
		}
		return ast.Text(s), nil
	default:
		return nil, fmt.Errorf("variable %q: unknown value type %q", ve.Name, ve.Type)
	}
}

// Fingerprint hashes prog's ordered command stream with blake2b-256. It is
// not part of the save contract's identity (load never fails on mismatch)
// — only a best-effort "did the script change under this save" signal.
func Fingerprint(prog *ast.Program) [32]byte {
	h, _ := blake2b.New256(nil)
	for _, cmd := range prog.Commands {
		fmt.Fprintln(h, canonicalCommandText(cmd))
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func canonicalCommandText(cmd ast.Command) string {
	switch c := cmd.(type) {
	case ast.Label:
		return "LABEL " + c.Name
	case ast.Say:
		return fmt.Sprintf("SAY %s %q", c.Speaker, c.Text)
	case ast.PlayBgm:
		return "PLAY_BGM " + c.Name
	case ast.PlaySe:
		return "PLAY_SE " + c.Name
	case ast.PlayMovie:
		return "PLAY_MOVIE " + c.Name
	case ast.ShowImage:
		return fmt.Sprintf("SHOW_IMAGE %s %s", c.Layer, c.Name)
	case ast.ClearLayer:
		return "CLEAR_LAYER " + c.Layer
	case ast.Wait:
		return fmt.Sprintf("WAIT %f", c.Seconds)
	case ast.Branch:
		s := "BRANCH"
		for _, ch := range c.Choices {
			s += fmt.Sprintf(" %q->%s", ch.Text, ch.Target)
		}
		return s
	case ast.Jump:
		return "JUMP " + c.Target
	case ast.JumpIf:
		return fmt.Sprintf("JUMP_IF %s %s %s %s", c.Variable, c.Op, c.Value, c.Target)
	case ast.SetVar:
		return fmt.Sprintf("SET %s %s", c.Name, c.Value)
	case ast.ModifyVar:
		return fmt.Sprintf("MODIFY %s %s %d", c.Name, c.Op, c.Delta)
	default:
		return fmt.Sprintf("UNKNOWN %T", cmd)
	}
}

// migration upgrades a raw save payload from version `from` (the map key
// below) to version `to`.
type migration struct {
	to      string
	upgrade func(map[string]json.RawMessage) (map[string]json.RawMessage, error)
}

// migrations maps a save's declared version to the step that brings it one
// version forward; Load applies steps repeatedly until CurrentVersion is
// reached. v0.1.0 predates the fingerprint field introduced for component L
// (stale-save detection); migrating simply leaves it absent, which Save's
// own omitempty/zero-value already treats as "no fingerprint available".
var migrations = map[string]migration{
	"v0.1.0": {
		to: "v0.2.0",
		upgrade: func(raw map[string]json.RawMessage) (map[string]json.RawMessage, error) {
			raw["version"] = json.RawMessage(`"v0.2.0"`)
			return raw, nil
		},
	},
}
