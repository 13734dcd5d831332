// Package aggregate joins per-element style diffs back to the rules that
// matched them and folds them into a selector-keyed report.
package aggregate

import (
	"github.com/hazyhaar/styleimpact/report"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/matcher"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/objdiff"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/snapshot"
)

// Options selects how diffs are computed and folded.
type Options struct {
	// RulePropertiesOnly restricts each element diff to the properties the
	// matching rule declares (prefix match).
	RulePropertiesOnly bool
	// Squash folds all elements of a selector into one entry. When false,
	// one entry per element and rule is kept.
	Squash bool
}

// DefaultOptions returns the default fold: squashed, all properties.
func DefaultOptions() Options {
	return Options{Squash: true}
}

// Diffs computes the non-empty element diffs in discovery order: rule
// order, then element order within the rule. Elements absent from either
// snapshot are skipped.
func Diffs(matches []matcher.Match, before, after *snapshot.Map, opts Options) []report.ElementDiff {
	var out []report.ElementDiff
	for _, m := range matches {
		var props []string
		if opts.RulePropertiesOnly {
			// A rule declaring nothing cannot have caused a change.
			if len(m.Rule.Properties) == 0 {
				continue
			}
			props = m.Rule.Properties
		}
		for _, el := range m.Elements {
			a, okA := before.Get(el)
			b, okB := after.Get(el)
			if !okA || !okB {
				continue
			}
			changes := objdiff.Diff(a, b, props)
			if changes == nil {
				continue
			}
			out = append(out, report.ElementDiff{
				Element:  report.ElementRef{Handle: el},
				Selector: m.Rule.Selector,
				CSSText:  m.Rule.CSSText,
				Changes:  changes,
			})
		}
	}
	return out
}

// Fold computes the element diffs and folds them into a report.
//
// In squashed form changes of different elements under one selector are
// merged with the last writer winning on property collisions: the entry
// records which properties changed, not a per-element history.
func Fold(matches []matcher.Match, before, after *snapshot.Map, opts Options) *report.Report {
	diffs := Diffs(matches, before, after, opts)

	var r *report.Report
	if opts.Squash {
		r = report.NewSquashed()
	} else {
		r = report.NewItemized()
	}
	for _, d := range diffs {
		if opts.Squash {
			r.AddSquashed(d.Selector, d.Element, d.CSSText, d.Changes)
		} else {
			r.AddItemized(d.Selector, d.Element, d.CSSText, d.Changes)
		}
	}
	return r
}
