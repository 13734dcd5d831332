// Package matcher resolves the live elements each toggled rule applies to.
package matcher

import (
	"context"
	"fmt"

	"github.com/hazyhaar/styleimpact/document"
)

// Match is a rule and the elements its selector currently matches.
type Match struct {
	Rule     document.Rule
	Elements []document.Element
}

// Resolve queries the document for every rule's selector. Rules matching no
// element are dropped. Selector evaluation is left to the document.
func Resolve(ctx context.Context, doc document.Document, rules []document.Rule) ([]Match, error) {
	var out []Match
	for _, r := range rules {
		els, err := doc.QuerySelectorAll(ctx, r.Selector)
		if err != nil {
			return nil, fmt.Errorf("matcher: %q: %w", r.Selector, err)
		}
		if len(els) == 0 {
			continue
		}
		out = append(out, Match{Rule: r, Elements: els})
	}
	return out, nil
}
