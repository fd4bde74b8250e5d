package observability

import "github.com/rs/zerolog"

// Reporter receives exceptions that should reach the error collector
// without altering control flow.
type Reporter interface {
	CaptureException(err error)
}

// LogReporter reports exceptions to the structured log. It stands in for
// an external error collector in local and test setups.
type LogReporter struct {
	log zerolog.Logger
}

func NewLogReporter(log zerolog.Logger) *LogReporter {
	return &LogReporter{log: log}
}

func (r *LogReporter) CaptureException(err error) {
	if err == nil {
		return
	}
	r.log.Error().Err(err).Msg("captured exception")
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) CaptureException(error) {}
