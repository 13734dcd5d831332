// Package counter renders a diff report as CSS that reverts the observed
// changes.
package counter

import (
	"strings"

	"github.com/hazyhaar/styleimpact/report"
)

// Render returns one rule block per selector, in discovery order, setting
// every changed property back to its before value. Blocks are separated by
// a blank line. Itemized reports are squashed first.
func Render(r *report.Report) string {
	if r == nil {
		return ""
	}
	sq := r.Squash()

	blocks := make([]string, 0, sq.Len())
	for _, sel := range sq.Order {
		e := sq.Squashed[sel]
		var b strings.Builder
		b.WriteString(sel)
		b.WriteString(" {\n")
		for _, prop := range e.Changes.Properties() {
			b.WriteString("  ")
			b.WriteString(prop)
			b.WriteString(": ")
			b.WriteString(e.Changes[prop].Before())
			b.WriteString(";\n")
		}
		b.WriteString("}")
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}
