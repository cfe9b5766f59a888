// Package directive defines the host-observable output of a step: the
// closed Directive union and the StepResult envelope that wraps it, with
// JSON marshaling producing a fixed "type"/"args" field order so
// golden-test byte comparisons are stable.
package directive

import "encoding/json"

// Kind is the closed set of directive types.
type Kind string

const (
	KindSay          Kind = "Say"
	KindShowImage    Kind = "ShowImage"
	KindPlayBgm      Kind = "PlayBgm"
	KindPlaySe       Kind = "PlaySe"
	KindPlayMovie    Kind = "PlayMovie"
	KindWait         Kind = "Wait"
	KindBranch       Kind = "Branch"
	KindClearLayer   Kind = "ClearLayer"
	KindSetVar       Kind = "SetVar"
	KindJumpTo       Kind = "JumpTo"
	KindReachedLabel Kind = "ReachedLabel"
)

// Directive is the closed set of host-observable effects a step can emit.
type Directive interface {
	Kind() Kind
	isDirective()
}

// envelope is the fixed wire shape: {"type": ..., "args": ...}.
type envelope struct {
	Type Kind        `json:"type"`
	Args interface{} `json:"args"`
}

func marshal(k Kind, args interface{}) ([]byte, error) {
	return json.Marshal(envelope{Type: k, Args: args})
}

// Say presents dialogue text.
type Say struct {
	Speaker string
	Text    string
}

func (Say) Kind() Kind        { return KindSay }
func (Say) isDirective()      {}
func (d Say) MarshalJSON() ([]byte, error) {
	return marshal(KindSay, struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
	}{d.Speaker, d.Text})
}

// ShowImage displays a resolved (or unresolved) image on a layer.
type ShowImage struct {
	Layer string
	Path  *string // nil when the logical name could not be resolved
}

func (ShowImage) Kind() Kind   { return KindShowImage }
func (ShowImage) isDirective() {}
func (d ShowImage) MarshalJSON() ([]byte, error) {
	return marshal(KindShowImage, struct {
		Layer string  `json:"layer"`
		Path  *string `json:"path"`
	}{d.Layer, d.Path})
}

// PlayBgm starts background music.
type PlayBgm struct{ Path *string }

func (PlayBgm) Kind() Kind   { return KindPlayBgm }
func (PlayBgm) isDirective() {}
func (d PlayBgm) MarshalJSON() ([]byte, error) {
	return marshal(KindPlayBgm, struct {
		Path *string `json:"path"`
	}{d.Path})
}

// PlaySe plays a one-shot sound effect.
type PlaySe struct{ Path *string }

func (PlaySe) Kind() Kind   { return KindPlaySe }
func (PlaySe) isDirective() {}
func (d PlaySe) MarshalJSON() ([]byte, error) {
	return marshal(KindPlaySe, struct {
		Path *string `json:"path"`
	}{d.Path})
}

// PlayMovie plays a full-screen movie.
type PlayMovie struct{ Path *string }

func (PlayMovie) Kind() Kind   { return KindPlayMovie }
func (PlayMovie) isDirective() {}
func (d PlayMovie) MarshalJSON() ([]byte, error) {
	return marshal(KindPlayMovie, struct {
		Path *string `json:"path"`
	}{d.Path})
}

// Wait pauses for a fixed duration.
type Wait struct{ Seconds float32 }

func (Wait) Kind() Kind   { return KindWait }
func (Wait) isDirective() {}
func (d Wait) MarshalJSON() ([]byte, error) {
	return marshal(KindWait, struct {
		Seconds float32 `json:"seconds"`
	}{d.Seconds})
}

// Branch presents choice text to the host; target labels are intentionally
// not part of the wire form (the host only needs to display text and later
// report an index back via Choose).
type Branch struct{ Choices []string }

func (Branch) Kind() Kind   { return KindBranch }
func (Branch) isDirective() {}
func (d Branch) MarshalJSON() ([]byte, error) {
	return marshal(KindBranch, struct {
		Choices []string `json:"choices"`
	}{d.Choices})
}

// ClearLayer removes whatever is shown on a layer.
type ClearLayer struct{ Layer string }

func (ClearLayer) Kind() Kind   { return KindClearLayer }
func (ClearLayer) isDirective() {}
func (d ClearLayer) MarshalJSON() ([]byte, error) {
	return marshal(KindClearLayer, struct {
		Layer string `json:"layer"`
	}{d.Layer})
}

// SetVar reports a variable write, stringified for host display/logging.
type SetVar struct {
	Name  string
	Value string
}

func (SetVar) Kind() Kind   { return KindSetVar }
func (SetVar) isDirective() {}
func (d SetVar) MarshalJSON() ([]byte, error) {
	return marshal(KindSetVar, struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}{d.Name, d.Value})
}

// JumpTo reports an unconditional or taken-conditional jump.
type JumpTo struct{ Label string }

func (JumpTo) Kind() Kind   { return KindJumpTo }
func (JumpTo) isDirective() {}
func (d JumpTo) MarshalJSON() ([]byte, error) {
	return marshal(KindJumpTo, struct {
		Label string `json:"label"`
	}{d.Label})
}

// ReachedLabel reports that control flow passed through a Label command.
type ReachedLabel struct{ Label string }

func (ReachedLabel) Kind() Kind   { return KindReachedLabel }
func (ReachedLabel) isDirective() {}
func (d ReachedLabel) MarshalJSON() ([]byte, error) {
	return marshal(KindReachedLabel, struct {
		Label string `json:"label"`
	}{d.Label})
}

// NextAction is the closed set of post-step host actions.
type NextAction string

const (
	Next        NextAction = "Next"
	WaitUser    NextAction = "WaitUser"
	WaitBranch  NextAction = "WaitBranch"
	Halt        NextAction = "Halt"
)

// StepResult is the full output of one step call.
type StepResult struct {
	Next       NextAction  `json:"next"`
	Directives []Directive `json:"directives"`
}
