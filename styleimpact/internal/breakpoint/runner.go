// Package breakpoint repeats a diff cycle at a list of viewport widths.
package breakpoint

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/styleimpact/document"
	"github.com/hazyhaar/styleimpact/report"
)

// CycleFunc runs one full toggle and diff cycle at the current viewport.
type CycleFunc func(ctx context.Context) (*report.Report, error)

// RevertFunc undoes the toggle a cycle left in place.
type RevertFunc func(ctx context.Context) error

// Run visits each width in order: resize, wait a frame, run the cycle,
// record its report, revert. Breakpoints never overlap. The first failure
// aborts the remaining widths and no partial report is returned.
func Run(ctx context.Context, doc document.Document, widths []int, cycle CycleFunc, revert RevertFunc, logger *slog.Logger) (*report.BreakpointReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	out := report.NewBreakpointReport()
	for _, w := range widths {
		if err := doc.Resize(ctx, w); err != nil {
			return nil, fmt.Errorf("breakpoint %d: resize: %w", w, err)
		}
		if err := doc.NextFrame(ctx); err != nil {
			return nil, fmt.Errorf("breakpoint %d: next frame: %w", w, err)
		}

		r, err := cycle(ctx)
		if err != nil {
			return nil, fmt.Errorf("breakpoint %d: %w", w, err)
		}
		if err := revert(ctx); err != nil {
			return nil, fmt.Errorf("breakpoint %d: revert: %w", w, err)
		}

		out.Set(w, r)
		logger.Info("breakpoint: cycle complete", "width", w, "selectors", r.Len())
	}
	return out, nil
}
