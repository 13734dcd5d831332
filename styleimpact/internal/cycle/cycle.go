// Package cycle runs one toggle/snapshot/diff/aggregate cycle against a
// document.
package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/styleimpact/document"
	"github.com/hazyhaar/styleimpact/report"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/aggregate"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/matcher"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/snapshot"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/toggle"
)

// DefaultScope selects every element of the document.
const DefaultScope = "*"

// Options configures one cycle.
type Options struct {
	RulePropertiesOnly bool
	Squash             bool
	// Scope is the selector of the candidate elements. Default: "*".
	Scope string
}

// Runner runs diff cycles against one document.
type Runner struct {
	doc     document.Document
	toggler *toggle.Toggler
	logger  *slog.Logger
}

// New creates a Runner. A nil logger uses slog.Default().
func New(doc document.Document, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		doc:     doc,
		toggler: toggle.New(doc, logger),
		logger:  logger,
	}
}

// Toggler returns the toggler bound to the runner's document.
func (r *Runner) Toggler() *toggle.Toggler { return r.toggler }

// Run captures the candidate elements, flips every source, captures them
// again and folds the diffs of the elements matched by the toggled rules.
// The sources stay flipped when Run returns. The element arena is released
// before returning, on success and on failure.
func (r *Runner) Run(ctx context.Context, sources []document.SourceID, opts Options) (rep *report.Report, err error) {
	if opts.Scope == "" {
		opts.Scope = DefaultScope
	}
	start := time.Now()

	defer func() {
		if relErr := r.doc.Release(ctx); relErr != nil && err == nil {
			err = fmt.Errorf("cycle: release: %w", relErr)
			rep = nil
		}
	}()

	els, err := r.doc.QuerySelectorAll(ctx, opts.Scope)
	if err != nil {
		return nil, fmt.Errorf("cycle: candidates: %w", err)
	}

	before, err := snapshot.Capture(ctx, r.doc, els)
	if err != nil {
		return nil, fmt.Errorf("cycle: before: %w", err)
	}
	defer before.Clear()

	rules, err := r.toggler.Batch(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("cycle: %w", err)
	}

	after, err := snapshot.Capture(ctx, r.doc, els)
	if err != nil {
		return nil, fmt.Errorf("cycle: after: %w", err)
	}
	defer after.Clear()

	matches, err := matcher.Resolve(ctx, r.doc, rules)
	if err != nil {
		return nil, fmt.Errorf("cycle: %w", err)
	}

	rep = aggregate.Fold(matches, before, after, aggregate.Options{
		RulePropertiesOnly: opts.RulePropertiesOnly,
		Squash:             opts.Squash,
	})

	if err := r.describe(ctx, rep); err != nil {
		return nil, fmt.Errorf("cycle: describe: %w", err)
	}

	r.logger.Info("cycle: complete",
		"sources", len(sources),
		"candidates", len(els),
		"rules", len(rules),
		"matched", len(matches),
		"selectors", rep.Len(),
		"duration", time.Since(start))
	return rep, nil
}

// describe attaches element paths while the handles are still valid.
func (r *Runner) describe(ctx context.Context, rep *report.Report) error {
	handles := rep.Handles()
	if len(handles) == 0 {
		return nil
	}
	paths := make(map[document.Element]string, len(handles))
	for _, h := range handles {
		p, err := r.doc.Describe(ctx, h)
		if err != nil {
			return err
		}
		paths[h] = p
	}
	rep.SetPaths(paths)
	return nil
}
