// Package objdiff compares two computed style objects.
package objdiff

import (
	"strings"

	"github.com/hazyhaar/styleimpact/document"
	"github.com/hazyhaar/styleimpact/report"
)

// Diff returns every property present in a or b whose value differs, as
// [a-value, b-value] pairs. A missing property compares as "".
//
// A nil props keeps every property. Otherwise only properties having one of
// props as a prefix are kept, so a rule declaring "margin" keeps
// "margin-top" and "margin-left"; an empty non-nil props keeps nothing.
//
// Diff returns nil when nothing changed.
func Diff(a, b document.StyleObject, props []string) report.Changes {
	if props != nil && len(props) == 0 {
		return nil
	}
	var out report.Changes
	add := func(name, before, after string) {
		if before == after || !allowed(name, props) {
			return
		}
		if out == nil {
			out = make(report.Changes)
		}
		out[name] = report.PropertyChange{before, after}
	}

	for name, av := range a {
		add(name, av, b[name])
	}
	for name, bv := range b {
		if _, seen := a[name]; seen {
			continue
		}
		add(name, "", bv)
	}
	return out
}

func allowed(name string, props []string) bool {
	if props == nil {
		return true
	}
	for _, p := range props {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
