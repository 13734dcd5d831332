package htmldoc

import (
	"math"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"

	"github.com/hazyhaar/styleimpact/document"
)

// candidate is one declaration competing in the cascade for a property.
type candidate struct {
	value     string
	important bool
	inline    bool
	layer     []int
	spec      cascadia.Specificity
	order     int
}

// beats reports whether c wins over o: importance, then the style
// attribute, then cascade layers, then specificity, then order.
func (c candidate) beats(o candidate) bool {
	if c.important != o.important {
		return c.important
	}
	if c.inline != o.inline {
		return c.inline
	}
	if k := compareLayers(c.layer, o.layer); k != 0 {
		if c.important {
			return k < 0
		}
		return k > 0
	}
	if c.spec != o.spec {
		return o.spec.Less(c.spec)
	}
	return c.order > o.order
}

// compareLayers orders two layer positions. A missing level ranks after
// every named sub-layer, so unlayered (nil) rules come last.
func compareLayers(a, b []int) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		x, y := math.MaxInt, math.MaxInt
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

// layerOrder ranks layer names by first appearance among their siblings.
type layerOrder struct {
	rank     map[string]int
	children map[string]int
}

func newLayerOrder(rules []*rule) *layerOrder {
	lo := &layerOrder{rank: make(map[string]int), children: make(map[string]int)}
	for _, r := range rules {
		for _, name := range r.layers {
			lo.declare(name)
		}
		if r.layer != "" {
			lo.declare(r.layer)
		}
	}
	return lo
}

func (lo *layerOrder) declare(name string) {
	parent := ""
	for _, part := range strings.Split(name, ".") {
		full := joinLayer(parent, part)
		if _, ok := lo.rank[full]; !ok {
			lo.rank[full] = lo.children[parent]
			lo.children[parent]++
		}
		parent = full
	}
}

// position returns the rank path of a layer, nil when unlayered.
func (lo *layerOrder) position(name string) []int {
	if name == "" {
		return nil
	}
	var out []int
	parent := ""
	for _, part := range strings.Split(name, ".") {
		parent = joinLayer(parent, part)
		out = append(out, lo.rank[parent])
	}
	return out
}

// activeRules returns the rules in cascade order: page <style> elements,
// then attached sources in attach order, with @import rules replaced by the
// imported sheet.
func (d *Document) activeRules() []*rule {
	var out []*rule
	for _, sh := range d.inline {
		out = append(out, d.expandImports(sh, scope{}, map[*sheet]bool{})...)
	}
	for _, id := range d.attached {
		out = append(out, d.expandImports(d.sources[id], scope{}, map[*sheet]bool{})...)
	}
	return out
}

// expandImports inlines the registered sheets a sheet imports. The import's
// media list and layer wrap the imported rules. Import cycles stop at the
// first repeat.
func (d *Document) expandImports(sh *sheet, sc scope, seen map[*sheet]bool) []*rule {
	if sh == nil || seen[sh] {
		return nil
	}
	seen[sh] = true
	defer delete(seen, sh)

	var out []*rule
	for _, r := range sh.rules {
		if r.importID != "" {
			inner := scope{
				media:     combineMedia(sc.media, r.media),
				container: combineMedia(sc.container, r.container),
				layer:     sc.layer,
			}
			out = append(out, d.expandImports(d.sources[r.importID], inner, seen)...)
			continue
		}
		if sc == (scope{}) {
			out = append(out, r)
			continue
		}
		cp := *r
		cp.media = combineMedia(sc.media, r.media)
		cp.container = combineMedia(sc.container, r.container)
		if r.layer != "" {
			cp.layer = joinLayer(sc.layer, r.layer)
		} else {
			cp.layer = sc.layer
		}
		if len(r.layers) > 0 && sc.layer != "" {
			cp.layers = make([]string, len(r.layers))
			for i, name := range r.layers {
				cp.layers[i] = joinLayer(sc.layer, name)
			}
		}
		out = append(out, &cp)
	}
	return out
}

// cascaded returns the winning declared value per longhand property.
func (d *Document) cascaded(n *html.Node, rules []*rule, layers *layerOrder) map[string]string {
	win := make(map[string]candidate)
	order := 0
	offer := func(prop, value string, important, inline bool, layer []int, spec cascadia.Specificity) {
		if strings.TrimSpace(value) == "" {
			return
		}
		for _, kv := range expand(prop, value) {
			order++
			c := candidate{value: kv[1], important: important, inline: inline, layer: layer, spec: spec, order: order}
			if cur, ok := win[kv[0]]; !ok || c.beats(cur) {
				win[kv[0]] = c
			}
		}
	}

	for _, r := range rules {
		if !r.style() || !r.applies(d.width) {
			continue
		}
		spec, ok := matchSpecificity(r.group, n)
		if !ok {
			continue
		}
		layer := layers.position(r.layer)
		for _, decl := range r.decls {
			offer(decl.Property, decl.Value, decl.Important, false, layer, spec)
		}
	}

	if style := strings.TrimSpace(attr(n, "style")); style != "" {
		// The closing brace ends the last declaration even without a
		// trailing semicolon. Declarations before a parse error are kept.
		decls, _ := parser.ParseDeclarations(style + "}")
		for _, decl := range decls {
			offer(decl.Property, decl.Value, decl.Important, true, nil, cascadia.Specificity{})
		}
	}

	out := make(map[string]string, len(win))
	for p, c := range win {
		out[p] = c.value
	}
	return out
}

// matchSpecificity returns the highest specificity among the selectors of
// group that match n.
func matchSpecificity(group []cascadia.Sel, n *html.Node) (cascadia.Specificity, bool) {
	var best cascadia.Specificity
	found := false
	for _, s := range group {
		if !s.Match(n) {
			continue
		}
		sp := s.Specificity()
		if !found || best.Less(sp) {
			best = sp
		}
		found = true
	}
	return best, found
}

// compute resolves the style of n given its parent's computed style.
func (d *Document) compute(n *html.Node, parent document.StyleObject, rules []*rule, layers *layerOrder) document.StyleObject {
	decl := d.cascaded(n, rules, layers)
	out := make(document.StyleObject, len(properties)+len(decl))

	for _, p := range properties {
		initial := p.initial
		if p.name == "display" {
			initial = defaultDisplay(n)
		}
		out[p.name] = resolve(decl[p.name], p.inherited, initial, parent, p.name)
	}

	// Custom properties inherit and have no initial value.
	for name, v := range parent {
		if strings.HasPrefix(name, "--") {
			out[name] = v
		}
	}
	for name, v := range decl {
		if !strings.HasPrefix(name, "--") {
			continue
		}
		if r := resolve(v, true, "", parent, name); r != "" {
			out[name] = r
		} else {
			delete(out, name)
		}
	}
	return out
}

func resolve(value string, inherited bool, initial string, parent document.StyleObject, name string) string {
	fromParent := func() string {
		if parent == nil {
			return initial
		}
		return parent[name]
	}
	switch strings.ToLower(value) {
	case "":
		if inherited {
			return fromParent()
		}
		return initial
	case "inherit":
		return fromParent()
	case "initial":
		return initial
	case "unset":
		if inherited {
			return fromParent()
		}
		return initial
	}
	return value
}

// styler computes styles against one snapshot of the active rules,
// memoising ancestors.
type styler struct {
	d      *Document
	rules  []*rule
	layers *layerOrder
	memo   map[*html.Node]document.StyleObject
}

func (d *Document) newStyler() *styler {
	rules := d.activeRules()
	return &styler{d: d, rules: rules, layers: newLayerOrder(rules), memo: make(map[*html.Node]document.StyleObject)}
}

// style resolves n by walking down from its root ancestor.
func (s *styler) style(n *html.Node) document.StyleObject {
	if st, ok := s.memo[n]; ok {
		return st
	}
	var parent document.StyleObject
	if p := elementParent(n); p != nil {
		parent = s.style(p)
	}
	st := s.d.compute(n, parent, s.rules, s.layers)
	s.memo[n] = st
	return st
}
