// Package ast defines the Command and Value tagged unions produced by the
// parser and consumed by the step interpreter. Value is a closed Int | Bool
// | Text union so that a new variant forces an exhaustive-switch compile
// error at every call site, rather than an open key/value bag.
package ast

import "fmt"

// Value is the closed set of typed literals a SetVar/JumpIf comparison can
// hold: Int(i32) | Bool(bool) | Text(string).
type Value interface {
	isValue()
	String() string
}

// Int is a 32-bit signed integer Value.
type Int int32

func (Int) isValue()        {}
func (v Int) String() string { return fmt.Sprintf("%d", int32(v)) }

// Bool is a boolean Value.
type Bool bool

func (Bool) isValue()        {}
func (v Bool) String() string { return fmt.Sprintf("%t", bool(v)) }

// Text is a string Value.
type Text string

func (Text) isValue()        {}
func (v Text) String() string { return string(v) }

// Cmp is a comparison operator for JumpIf.
type Cmp int

const (
	Eq Cmp = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

func (c Cmp) String() string {
	switch c {
	case Eq:
		return "eq"
	case Ne:
		return "ne"
	case Lt:
		return "lt"
	case Le:
		return "le"
	case Gt:
		return "gt"
	case Ge:
		return "ge"
	default:
		return "unknown"
	}
}

// ParseCmp resolves a textual operator to a Cmp, reporting ok=false for any
// spelling outside the closed set.
func ParseCmp(s string) (Cmp, bool) {
	switch s {
	case "eq", "==":
		return Eq, true
	case "ne", "!=":
		return Ne, true
	case "lt", "<":
		return Lt, true
	case "le", "<=":
		return Le, true
	case "gt", ">":
		return Gt, true
	case "ge", ">=":
		return Ge, true
	default:
		return Eq, false
	}
}

// Apply evaluates a op b for the given comparison operator. When a and b are
// different Value kinds the result is false for every operator, including Ne.
func Apply(op Cmp, a, b Value) bool {
	switch av := a.(type) {
	case Int:
		bv, ok := b.(Int)
		if !ok {
			return false
		}
		return applyOrdered(op, int64(av), int64(bv))
	case Bool:
		bv, ok := b.(Bool)
		if !ok {
			return false
		}
		return applyEquality(op, av == bv)
	case Text:
		bv, ok := b.(Text)
		if !ok {
			return false
		}
		switch op {
		case Eq:
			return av == bv
		case Ne:
			return av != bv
		default:
			return applyOrdered(op, int64(stringCompare(string(av), string(bv))), 0)
		}
	default:
		return false
	}
}

func applyOrdered(op Cmp, a, b int64) bool {
	switch op {
	case Eq:
		return a == b
	case Ne:
		return a != b
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	default:
		return false
	}
}

func applyEquality(op Cmp, equal bool) bool {
	switch op {
	case Eq:
		return equal
	case Ne:
		return !equal
	default:
		return false
	}
}

func stringCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
