// Package sink defines output backends for style impact results.
package sink

import (
	"context"

	"github.com/hazyhaar/styleimpact/report"
)

// Sink is the output interface. Implementations deliver job results to
// different backends (stdout, webhook, in-process callback).
type Sink interface {
	Send(ctx context.Context, res *report.Result) error
	SendFailure(ctx context.Context, f report.Failure) error
	Close() error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
