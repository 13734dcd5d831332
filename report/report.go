// Package report defines the structured results of a style impact diff.
// These types are the public API contract: sinks, the HTTP API and MCP tools
// all emit them as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/hazyhaar/styleimpact/document"
)

// PropertyChange is a [before, after] pair for one computed property.
// Before and After always differ.
type PropertyChange [2]string

// Before returns the value captured before the toggle.
func (c PropertyChange) Before() string { return c[0] }

// After returns the value captured after the toggle.
func (c PropertyChange) After() string { return c[1] }

// Changes maps a computed property name to its change. Its ordering is
// lexical by property name.
type Changes map[string]PropertyChange

// Properties returns the changed property names in report order.
func (c Changes) Properties() []string {
	props := make([]string, 0, len(c))
	for p := range c {
		props = append(props, p)
	}
	slices.Sort(props)
	return props
}

// Merge copies every change of other into c. Keys already present are
// overwritten.
func (c Changes) Merge(other Changes) {
	for p, ch := range other {
		c[p] = ch
	}
}

// ElementRef identifies an element in a report. Handle is only meaningful
// during the cycle that produced it; Path survives it.
type ElementRef struct {
	Handle document.Element `json:"handle"`
	Path   string           `json:"path,omitempty"`
}

// ElementDiff is the non-empty diff of one element under one rule.
type ElementDiff struct {
	Element  ElementRef `json:"element"`
	Selector string     `json:"selector"`
	CSSText  string     `json:"css_text"`
	Changes  Changes    `json:"changes"`
}

// SquashedEntry aggregates every element diff of one selector.
type SquashedEntry struct {
	Elements []ElementRef `json:"elements"`
	CSSTexts []string     `json:"css_texts"`
	Changes  Changes      `json:"changes"`
}

// ItemizedEntry is one element diff under its selector key.
type ItemizedEntry struct {
	Element ElementRef `json:"element"`
	CSSText string     `json:"css_text"`
	Changes Changes    `json:"changes"`
}

// Kind selects the active variant of a Report.
type Kind string

const (
	KindSquashed Kind = "squashed"
	KindItemized Kind = "itemized"
)

// Report is the selector-keyed result of one diff cycle. Exactly one of
// Squashed or Itemized is populated, according to Kind. Order lists the
// selectors in discovery order.
type Report struct {
	Kind     Kind
	Order    []string
	Squashed map[string]*SquashedEntry
	Itemized map[string][]ItemizedEntry
}

// NewSquashed returns an empty squashed report.
func NewSquashed() *Report {
	return &Report{Kind: KindSquashed, Squashed: make(map[string]*SquashedEntry)}
}

// NewItemized returns an empty itemized report.
func NewItemized() *Report {
	return &Report{Kind: KindItemized, Itemized: make(map[string][]ItemizedEntry)}
}

// Len returns the number of selector keys.
func (r *Report) Len() int { return len(r.Order) }

// Empty reports whether no selector produced a diff.
func (r *Report) Empty() bool { return len(r.Order) == 0 }

// Selectors returns the selector keys in discovery order.
func (r *Report) Selectors() []string { return slices.Clone(r.Order) }

// Squash returns r in squashed form. A squashed report is returned as is;
// an itemized one is folded with the same rules the aggregator applies.
func (r *Report) Squash() *Report {
	if r.Kind == KindSquashed {
		return r
	}
	out := NewSquashed()
	for _, sel := range r.Order {
		for _, it := range r.Itemized[sel] {
			out.AddSquashed(sel, it.Element, it.CSSText, it.Changes)
		}
	}
	return out
}

// AddSquashed folds one element diff into a squashed report: elements are
// deduplicated by handle, CSS texts by value, and changes merged with the
// last writer winning on property collisions.
func (r *Report) AddSquashed(selector string, el ElementRef, cssText string, changes Changes) {
	e, ok := r.Squashed[selector]
	if !ok {
		e = &SquashedEntry{Changes: make(Changes)}
		r.Squashed[selector] = e
		r.Order = append(r.Order, selector)
	}
	if !slices.ContainsFunc(e.Elements, func(x ElementRef) bool { return x.Handle == el.Handle }) {
		e.Elements = append(e.Elements, el)
	}
	if !slices.Contains(e.CSSTexts, cssText) {
		e.CSSTexts = append(e.CSSTexts, cssText)
	}
	e.Changes.Merge(changes)
}

// AddItemized appends one element diff to an itemized report.
func (r *Report) AddItemized(selector string, el ElementRef, cssText string, changes Changes) {
	if _, ok := r.Itemized[selector]; !ok {
		r.Order = append(r.Order, selector)
	}
	r.Itemized[selector] = append(r.Itemized[selector], ItemizedEntry{
		Element: el,
		CSSText: cssText,
		Changes: changes,
	})
}

// Handles returns every element handle referenced by the report, once each.
func (r *Report) Handles() []document.Element {
	seen := make(map[document.Element]bool)
	var out []document.Element
	add := func(h document.Element) {
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	for _, sel := range r.Order {
		switch r.Kind {
		case KindSquashed:
			for _, el := range r.Squashed[sel].Elements {
				add(el.Handle)
			}
		case KindItemized:
			for _, it := range r.Itemized[sel] {
				add(it.Element.Handle)
			}
		}
	}
	return out
}

// SetPaths fills ElementRef.Path from paths, keyed by handle.
func (r *Report) SetPaths(paths map[document.Element]string) {
	for _, sel := range r.Order {
		switch r.Kind {
		case KindSquashed:
			els := r.Squashed[sel].Elements
			for i := range els {
				els[i].Path = paths[els[i].Handle]
			}
		case KindItemized:
			items := r.Itemized[sel]
			for i := range items {
				items[i].Element.Path = paths[items[i].Element.Handle]
			}
		}
	}
}

// BreakpointReport holds one Report per viewport width. Widths lists the
// breakpoints in run order.
type BreakpointReport struct {
	Widths  []int           `json:"widths"`
	Reports map[int]*Report `json:"reports"`
}

// NewBreakpointReport returns an empty BreakpointReport.
func NewBreakpointReport() *BreakpointReport {
	return &BreakpointReport{Reports: make(map[int]*Report)}
}

// Set records the report of one breakpoint.
func (b *BreakpointReport) Set(width int, r *Report) {
	if _, ok := b.Reports[width]; !ok {
		b.Widths = append(b.Widths, width)
	}
	b.Reports[width] = r
}

// wireReport is the JSON envelope of a Report.
type wireReport struct {
	Kind      Kind                       `json:"kind"`
	Selectors []string                   `json:"selectors"`
	Squashed  map[string]*SquashedEntry  `json:"squashed,omitempty"`
	Itemized  map[string][]ItemizedEntry `json:"itemized,omitempty"`
}

// MarshalJSON emits the active variant only.
func (r *Report) MarshalJSON() ([]byte, error) {
	w := wireReport{Kind: r.Kind, Selectors: r.Order}
	if w.Selectors == nil {
		w.Selectors = []string{}
	}
	switch r.Kind {
	case KindSquashed:
		w.Squashed = r.Squashed
	case KindItemized:
		w.Itemized = r.Itemized
	default:
		return nil, fmt.Errorf("report: unknown kind %q", r.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the envelope produced by MarshalJSON.
func (r *Report) UnmarshalJSON(data []byte) error {
	var w wireReport
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Kind {
	case KindSquashed:
		*r = Report{Kind: w.Kind, Order: w.Selectors, Squashed: w.Squashed}
		if r.Squashed == nil {
			r.Squashed = make(map[string]*SquashedEntry)
		}
	case KindItemized:
		*r = Report{Kind: w.Kind, Order: w.Selectors, Itemized: w.Itemized}
		if r.Itemized == nil {
			r.Itemized = make(map[string][]ItemizedEntry)
		}
	default:
		return fmt.Errorf("report: unknown kind %q", w.Kind)
	}
	return nil
}
