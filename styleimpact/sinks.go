package styleimpact

import (
	"context"
	"io"
	"log/slog"

	"github.com/hazyhaar/styleimpact/report"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/sink"
)

// Sink is the output interface for job results.
type Sink = sink.Sink

// Result is emitted to sinks after each successful job run.
type Result = report.Result

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, retries int, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookRetries(retries), sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process callback sink.
func NewCallbackSink(
	onResult func(ctx context.Context, res *report.Result) error,
	onFailure func(ctx context.Context, f report.Failure) error,
) Sink {
	return sink.NewCallback(onResult, onFailure)
}

// SinksFromConfig builds the configured sinks. Unknown types are logged and
// skipped; with none configured, results go to stdout.
func SinksFromConfig(cfgs []SinkConfig, logger *slog.Logger) []Sink {
	if logger == nil {
		logger = slog.Default()
	}
	var out []Sink
	for _, sc := range cfgs {
		switch sc.Type {
		case "stdout":
			out = append(out, NewStdoutSink(nil))
		case "webhook":
			out = append(out, NewWebhookSink(sc.URL, sc.MaxRetries, logger))
		default:
			logger.Warn("styleimpact: unknown sink type", "type", sc.Type)
		}
	}
	if len(out) == 0 {
		out = append(out, NewStdoutSink(nil))
	}
	return out
}

// MarshalResult serialises a Result to JSON.
func MarshalResult(r *Result) ([]byte, error) {
	return report.MarshalResult(r)
}
