package diag

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Sink receives diagnostics emitted during parsing, validation and step
// execution. The core never logs directly; it only ever appends here.
type Sink interface {
	Emit(d Diagnostic)
}

// NoopSink discards every diagnostic. It is the default when no sink is
// configured.
type NoopSink struct{}

func (NoopSink) Emit(Diagnostic) {}

// CollectorSink accumulates diagnostics in memory, in emission order. Tests
// and hosts that want to inspect everything a step produced use this instead
// of standing up a logger.
type CollectorSink struct {
	Diagnostics []Diagnostic
}

func NewCollectorSink() *CollectorSink {
	return &CollectorSink{}
}

func (c *CollectorSink) Emit(d Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
}

// ZerologSink routes diagnostics through a zerolog.Logger. Warnings log at
// zerolog's Warn level, errors at Error level; when TSUMUGAI_DEBUG is set to
// a nonempty value every diagnostic additionally logs at Debug level with
// its full position.
type ZerologSink struct {
	logger zerolog.Logger
	debug  bool
}

// NewZerologSink builds a sink writing to w (os.Stderr is the usual choice).
// TSUMUGAI_DEBUG is read once here, not on the interpreter hot path.
func NewZerologSink(w io.Writer) *ZerologSink {
	return &ZerologSink{
		logger: zerolog.New(w).With().Timestamp().Logger(),
		debug:  os.Getenv("TSUMUGAI_DEBUG") != "",
	}
}

func (z *ZerologSink) Emit(d Diagnostic) {
	var ev *zerolog.Event
	switch d.Severity {
	case SeverityError:
		ev = z.logger.Error()
	default:
		ev = z.logger.Warn()
	}
	ev = ev.Str("code", d.Code).Int("line", d.Line).Int("column", d.Column)
	if d.Hint != "" {
		ev = ev.Str("hint", d.Hint)
	}
	ev.Msg(d.Message)

	if z.debug {
		z.logger.Debug().Str("code", d.Code).Int("line", d.Line).Int("column", d.Column).Msg(d.Message)
	}
}
