// Package toggle flips style sources on a document and reports the CSS rules
// that became active or inactive.
package toggle

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/styleimpact/document"
)

// Toggler flips style sources on one document.
type Toggler struct {
	doc    document.Document
	logger *slog.Logger
}

// New creates a Toggler. A nil logger uses slog.Default().
func New(doc document.Document, logger *slog.Logger) *Toggler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toggler{doc: doc, logger: logger}
}

// One flips a single source: an active source is deactivated, an inactive
// one activated. It returns once the next frame was rendered, with the
// source's sheets as seen before and after the flip, deduplicated by key.
// A source whose sheet cannot be located yields no sheets.
func (t *Toggler) One(ctx context.Context, id document.SourceID) ([]document.Stylesheet, error) {
	active, err := t.doc.SourceActive(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("toggle: %s: state: %w", id, err)
	}

	before, okBefore, err := t.doc.SourceSheet(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("toggle: %s: sheet before: %w", id, err)
	}

	if active {
		if err := t.doc.DeactivateSource(ctx, id); err != nil {
			return nil, fmt.Errorf("toggle: %s: deactivate: %w", id, err)
		}
	} else {
		if err := t.doc.ActivateSource(ctx, id); err != nil {
			return nil, fmt.Errorf("toggle: %s: activate: %w", id, err)
		}
	}
	// Removal has no load event: the next frame is the only signal that
	// the browser applied it.
	if err := t.doc.NextFrame(ctx); err != nil {
		return nil, fmt.Errorf("toggle: %s: next frame: %w", id, err)
	}

	after, okAfter, err := t.doc.SourceSheet(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("toggle: %s: sheet after: %w", id, err)
	}

	var sheets []document.Stylesheet
	if okBefore {
		sheets = append(sheets, before)
	}
	if okAfter && (!okBefore || after.Key != before.Key) {
		sheets = append(sheets, after)
	}
	if len(sheets) == 0 {
		t.logger.Debug("toggle: no stylesheet located", "source", id)
	}

	t.logger.Debug("toggle: flipped", "source", id, "was_active", active, "sheets", len(sheets))
	return sheets, nil
}

// Batch flips every source concurrently and returns once all of them
// completed. A source listed twice is flipped once. Rules are returned in
// source order; a sheet reached through several sources contributes its
// rules once.
func (t *Toggler) Batch(ctx context.Context, ids []document.SourceID) ([]document.Rule, error) {
	ids = unique(ids)
	results := make([][]document.Stylesheet, len(ids))

	// No derived context: a failing toggle must not cut the others short,
	// the barrier waits for every one of them.
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			sheets, err := t.One(ctx, id)
			if err != nil {
				return err
			}
			results[i] = sheets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var rules []document.Rule
	for _, sheets := range results {
		for _, sh := range sheets {
			if seen[sh.Key] {
				continue
			}
			seen[sh.Key] = true
			rules = append(rules, sh.Rules...)
		}
	}
	return rules, nil
}

func unique(ids []document.SourceID) []document.SourceID {
	seen := make(map[document.SourceID]bool, len(ids))
	out := make([]document.SourceID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Flip toggles every source without collecting rules.
func (t *Toggler) Flip(ctx context.Context, ids []document.SourceID) error {
	_, err := t.Batch(ctx, ids)
	return err
}
