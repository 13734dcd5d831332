// CLAUDE:SUMMARY In-process callback sink delivering results via Go function calls with zero serialization.
package sink

import (
	"context"

	"github.com/hazyhaar/styleimpact/report"
)

// ResultFunc is called for each result.
type ResultFunc func(ctx context.Context, res *report.Result) error

// FailureFunc is called for each failed run.
type FailureFunc func(ctx context.Context, f report.Failure) error

// Callback delivers results as in-memory function calls, for embedding the
// engine in a larger binary.
type Callback struct {
	onResult  ResultFunc
	onFailure FailureFunc
}

// NewCallback creates a Callback sink. Either handler may be nil.
func NewCallback(onResult ResultFunc, onFailure FailureFunc) *Callback {
	return &Callback{onResult: onResult, onFailure: onFailure}
}

func (c *Callback) Send(ctx context.Context, res *report.Result) error {
	if c.onResult != nil {
		return c.onResult(ctx, res)
	}
	return nil
}

func (c *Callback) SendFailure(ctx context.Context, f report.Failure) error {
	if c.onFailure != nil {
		return c.onFailure(ctx, f)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
