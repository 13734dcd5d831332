// Package snapshot captures the computed style of a set of elements at one
// instant.
package snapshot

import (
	"context"
	"fmt"

	"github.com/hazyhaar/styleimpact/document"
)

// Map is the computed style of every captured element. It covers exactly
// the elements passed to Capture and is scoped to one diff cycle.
type Map struct {
	elements []document.Element
	styles   map[document.Element]document.StyleObject
}

// Capture reads the computed style of every element now. Styles are read
// in one round-trip when doc implements document.BatchStyler.
func Capture(ctx context.Context, doc document.Document, els []document.Element) (*Map, error) {
	m := &Map{
		elements: make([]document.Element, 0, len(els)),
		styles:   make(map[document.Element]document.StyleObject, len(els)),
	}

	if bs, ok := doc.(document.BatchStyler); ok {
		styles, err := bs.ComputedStyles(ctx, els)
		if err != nil {
			return nil, fmt.Errorf("snapshot: computed styles: %w", err)
		}
		if len(styles) != len(els) {
			return nil, fmt.Errorf("snapshot: computed styles: got %d styles for %d elements", len(styles), len(els))
		}
		for i, el := range els {
			m.put(el, styles[i])
		}
		return m, nil
	}

	for _, el := range els {
		st, err := doc.ComputedStyle(ctx, el)
		if err != nil {
			return nil, fmt.Errorf("snapshot: computed style of element %d: %w", el, err)
		}
		m.put(el, st)
	}
	return m, nil
}

func (m *Map) put(el document.Element, st document.StyleObject) {
	if _, dup := m.styles[el]; !dup {
		m.elements = append(m.elements, el)
	}
	m.styles[el] = st
}

// Get returns the captured style of el.
func (m *Map) Get(el document.Element) (document.StyleObject, bool) {
	st, ok := m.styles[el]
	return st, ok
}

// Elements returns the captured elements in capture order.
func (m *Map) Elements() []document.Element { return m.elements }

// Len returns the number of captured elements.
func (m *Map) Len() int { return len(m.elements) }

// Clear drops every captured style.
func (m *Map) Clear() {
	m.elements = nil
	clear(m.styles)
}
