// Package state defines the interpreter's mutable runtime state (spec
// component D): the program counter, the variable store, and any pending
// branch wait. A State is owned exclusively by its caller between step
// calls; internal/interp never retains one across calls.
package state

import (
	"sort"

	"github.com/kosuke-fujisawa/tsumugai/internal/ast"
)

// BranchState records a Branch command awaiting a Choose event. Emitted is
// set the first time the Branch directive is produced, so repeated polling
// with no event re-emits WaitBranch without duplicating the directive (spec
// §4.4's idempotence requirement).
type BranchState struct {
	Choices []ast.Choice
	Emitted bool
}

// State is the interpreter's mutable runtime state. The zero value is not
// valid; build one with New or NewWithSeed.
type State struct {
	PC      int
	Vars    *VarStore
	Branch  *BranchState // nil when no choice is pending
	Halted  bool
	Seed    *uint64 // reserved for future randomness; carried through save/load
}

// New creates a fresh State positioned at the start of a program.
func New() *State {
	return &State{Vars: NewVarStore()}
}

// NewWithSeed creates a fresh State carrying an explicit seed value.
func NewWithSeed(seed uint64) *State {
	s := New()
	s.Seed = &seed
	return s
}

// Clone returns a deep copy, so a caller can explore a Branch speculatively
// without disturbing the original playthrough.
func (s *State) Clone() *State {
	clone := &State{
		PC:     s.PC,
		Vars:   s.Vars.clone(),
		Halted: s.Halted,
	}
	if s.Branch != nil {
		choices := make([]ast.Choice, len(s.Branch.Choices))
		copy(choices, s.Branch.Choices)
		clone.Branch = &BranchState{Choices: choices, Emitted: s.Branch.Emitted}
	}
	if s.Seed != nil {
		seed := *s.Seed
		clone.Seed = &seed
	}
	return clone
}

// VarStore is an insertion-order-independent string-to-Value map whose
// iteration is always sorted by key, for deterministic output.
type VarStore struct {
	m map[string]ast.Value
}

// NewVarStore creates an empty VarStore.
func NewVarStore() *VarStore {
	return &VarStore{m: make(map[string]ast.Value)}
}

// Get returns the value bound to name, if any.
func (v *VarStore) Get(name string) (ast.Value, bool) {
	val, ok := v.m[name]
	return val, ok
}

// Set binds name to value, overwriting any previous binding.
func (v *VarStore) Set(name string, value ast.Value) {
	v.m[name] = value
}

// Len returns the number of bound variables.
func (v *VarStore) Len() int { return len(v.m) }

// Keys returns every bound variable name in sorted order.
func (v *VarStore) Keys() []string {
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Each calls fn for every variable in sorted-key order.
func (v *VarStore) Each(fn func(name string, value ast.Value)) {
	for _, k := range v.Keys() {
		fn(k, v.m[k])
	}
}

func (v *VarStore) clone() *VarStore {
	c := NewVarStore()
	for k, val := range v.m {
		c.m[k] = val
	}
	return c
}
