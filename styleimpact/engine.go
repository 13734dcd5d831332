// Package styleimpact measures the visual effect of style sources on a
// document: which computed properties of which elements change when a
// stylesheet is attached or detached, optionally across viewport widths.
//
// An Engine runs the measurement against one document.Document. A Service
// owns the browser, the sinks and the configuration, opens documents for
// jobs and exposes the engine over MCP and HTTP.
package styleimpact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/styleimpact/document"
	"github.com/hazyhaar/styleimpact/report"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/breakpoint"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/counter"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/cycle"
)

// ErrNoSources is returned when an operation is called without sources.
var ErrNoSources = errors.New("styleimpact: no sources")

// Options configures a diff. The zero value is a squashed diff over every
// element, not restricted to the rules' declared properties.
type Options struct {
	// RulePropertiesOnly keeps only the properties the matched rules declare.
	RulePropertiesOnly bool
	// Itemized reports one entry per rule instead of one per selector.
	Itemized bool
	// Scope is the selector of the candidate elements. Default: "*".
	Scope string
}

// DefaultOptions returns the zero Options with the scope spelled out.
func DefaultOptions() Options {
	return Options{Scope: cycle.DefaultScope}
}

func (o Options) cycleOptions() cycle.Options {
	return cycle.Options{
		RulePropertiesOnly: o.RulePropertiesOnly,
		Squash:             !o.Itemized,
		Scope:              o.Scope,
	}
}

// Engine runs style impact measurements against one document. Its public
// operations are serialised: they share the document and its sources.
type Engine struct {
	mu     sync.Mutex
	doc    document.Document
	runner *cycle.Runner
	logger *slog.Logger
}

// NewEngine binds an Engine to doc. A nil logger uses slog.Default().
func NewEngine(doc document.Document, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{doc: doc, runner: cycle.New(doc, logger), logger: logger}
}

// Diff flips every source and reports the computed style changes of the
// elements matched by the flipped rules. The sources stay flipped.
func (e *Engine) Diff(ctx context.Context, sources []document.SourceID, opts Options) (*report.Report, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runner.Run(ctx, sources, opts.cycleOptions())
}

// DiffBreakpoints runs Diff at each width in order, reverting the sources
// after each one. The first failure aborts the remaining widths.
func (e *Engine) DiffBreakpoints(ctx context.Context, sources []document.SourceID, widths []int, opts Options) (*report.BreakpointReport, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	run := func(ctx context.Context) (*report.Report, error) {
		return e.runner.Run(ctx, sources, opts.cycleOptions())
	}
	revert := func(ctx context.Context) error {
		return e.runner.Toggler().Flip(ctx, sources)
	}
	bp, err := breakpoint.Run(ctx, e.doc, widths, run, revert, e.logger)
	if err != nil {
		return nil, fmt.Errorf("styleimpact: %w", err)
	}
	return bp, nil
}

// Toggle flips every source without measuring.
func (e *Engine) Toggle(ctx context.Context, sources []document.SourceID) error {
	if len(sources) == 0 {
		return ErrNoSources
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runner.Toggler().Flip(ctx, sources)
}

// CounterCSS runs a squashed diff and renders CSS that sets every changed
// property back to its value before the flip.
func (e *Engine) CounterCSS(ctx context.Context, sources []document.SourceID) (string, error) {
	rep, err := e.Diff(ctx, sources, DefaultOptions())
	if err != nil {
		return "", err
	}
	return counter.Render(rep), nil
}

// RenderCounterCSS renders an existing report as counter CSS.
func RenderCounterCSS(r *report.Report) string { return counter.Render(r) }

// SourceIDs converts plain strings to source identifiers.
func SourceIDs(ss []string) []document.SourceID {
	out := make([]document.SourceID, len(ss))
	for i, s := range ss {
		out[i] = document.SourceID(s)
	}
	return out
}

// Active reports the state of each source.
func (e *Engine) Active(ctx context.Context, sources []document.SourceID) (map[document.SourceID]bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[document.SourceID]bool, len(sources))
	for _, id := range sources {
		ok, err := e.doc.SourceActive(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("styleimpact: %s: state: %w", id, err)
		}
		out[id] = ok
	}
	return out, nil
}
