package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/styleimpact/report"
)

// Router fans out to all configured sinks. One sink error does not block
// the others: errors are logged and the first one is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Add appends a sink.
func (r *Router) Add(s Sink) { r.sinks = append(r.sinks, s) }

// Len returns the number of sinks.
func (r *Router) Len() int { return len(r.sinks) }

func (r *Router) Send(ctx context.Context, res *report.Result) error {
	return r.each(func(s Sink) error { return s.Send(ctx, res) }, "sink: send result failed")
}

func (r *Router) SendFailure(ctx context.Context, f report.Failure) error {
	return r.each(func(s Sink) error { return s.SendFailure(ctx, f) }, "sink: send failure failed")
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) each(fn func(Sink) error, msg string) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := fn(s); err != nil {
			r.logger.Warn(msg, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
