// Package document defines the contract between the style impact pipeline and
// the live document it measures. Any rendering backend (Chrome over CDP, the
// in-memory HTML document, a test fake) implements Document.
//
// All operations read or mutate one shared document: only one diff cycle may
// run against a Document at a time.
package document

import "context"

// Element is an opaque handle to a node in the document. Handles come from a
// per-cycle arena owned by the Document: the same node always yields the same
// handle until Release is called.
type Element uint64

// SourceID identifies a style source (a stylesheet URL for Chrome, a
// registered name for the in-memory document).
type SourceID string

// StyleObject is the full computed style of one element at one instant,
// keyed by computed property name. Treat as read-only once captured.
type StyleObject map[string]string

// Rule is a CSS style rule as exposed by the rendering engine.
type Rule struct {
	Selector   string   `json:"selector"`
	CSSText    string   `json:"css_text"`
	Properties []string `json:"properties"` // declared property names, in declaration order
}

// Stylesheet is the resolved sheet of a style source. Key identifies the
// underlying sheet object, so the same sheet observed before and after a
// toggle can be deduplicated.
type Stylesheet struct {
	Key   string
	Rules []Rule
}

// Document is the handle on one live document and its style sources.
type Document interface {
	// QuerySelectorAll returns the live elements matching selector, in
	// document order.
	QuerySelectorAll(ctx context.Context, selector string) ([]Element, error)

	// ComputedStyle returns the resolved style of el.
	ComputedStyle(ctx context.Context, el Element) (StyleObject, error)

	// SourceActive reports whether the style source is attached.
	SourceActive(ctx context.Context, id SourceID) (bool, error)

	// ActivateSource attaches the style source and returns once the
	// source signalled load completion. A source that never loads blocks
	// until ctx is done.
	ActivateSource(ctx context.Context, id SourceID) error

	// DeactivateSource detaches the style source. It returns as soon as the
	// mutation is issued: callers wait for NextFrame to observe its effect.
	DeactivateSource(ctx context.Context, id SourceID) error

	// SourceSheet resolves the stylesheet currently associated with the
	// source. ok is false when no sheet can be located.
	SourceSheet(ctx context.Context, id SourceID) (sheet Stylesheet, ok bool, err error)

	// NextFrame returns after the next rendered frame.
	NextFrame(ctx context.Context) error

	// Resize sets the viewport width, preserving the current height.
	Resize(ctx context.Context, width int) error

	// Describe returns a human-readable CSS path for el.
	Describe(ctx context.Context, el Element) (string, error)

	// Release clears the element arena. Handles issued before the call are
	// invalid afterwards.
	Release(ctx context.Context) error
}

// BatchStyler is implemented by documents that can resolve many computed
// styles in one round-trip. The result is index-aligned with els.
type BatchStyler interface {
	ComputedStyles(ctx context.Context, els []Element) ([]StyleObject, error)
}
