// Package htmldoc is an in-memory document.Document: an HTML parse tree
// styled by a small cascade over author stylesheets. It resolves specified
// values (no unit or color normalisation) and is used for offline diffs and
// for exercising the pipeline without a browser.
package htmldoc

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/styleimpact/document"
)

// Default viewport.
const (
	DefaultWidth  = 1280
	DefaultHeight = 800
)

// Document is an in-memory document with registered style sources.
// Safe for concurrent use.
type Document struct {
	mu   sync.Mutex
	root *html.Node

	// inline holds the <style> elements of the page, always applied first.
	inline []*sheet
	// sources holds every registered source; attached lists the active ones
	// in attach order.
	sources  map[document.SourceID]*sheet
	attached []document.SourceID

	width, height int
	frames        int
	loadDelay     time.Duration

	arena   []*html.Node
	handles map[*html.Node]document.Element
}

// Option configures a Document.
type Option func(*Document)

// WithViewport sets the initial viewport size.
func WithViewport(width, height int) Option {
	return func(d *Document) { d.width, d.height = width, height }
}

// WithLoadDelay delays every source activation, like a stylesheet fetched
// over the network.
func WithLoadDelay(dt time.Duration) Option {
	return func(d *Document) { d.loadDelay = dt }
}

// New parses an HTML document.
func New(src string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(src), opts...)
}

// Parse reads an HTML document from r.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	d := &Document{
		root:    root,
		sources: make(map[document.SourceID]*sheet),
		width:   DefaultWidth,
		height:  DefaultHeight,
		handles: make(map[*html.Node]document.Element),
	}
	for _, o := range opts {
		o(d)
	}

	for i, n := range elementsByAtom(root, atom.Style) {
		if n.FirstChild == nil {
			continue
		}
		sh, err := parseSheet(fmt.Sprintf("style[%d]", i), n.FirstChild.Data)
		if err != nil {
			return nil, fmt.Errorf("htmldoc: <style> %d: %w", i, err)
		}
		d.inline = append(d.inline, sh)
	}
	return d, nil
}

// AddSource registers a style source. The source starts attached when the
// page links it (<link rel="stylesheet" href="id">).
func (d *Document) AddSource(id document.SourceID, cssText string) error {
	sh, err := parseSheet(string(id), cssText)
	if err != nil {
		return fmt.Errorf("htmldoc: source %s: %w", id, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.sources[id]; dup {
		return fmt.Errorf("htmldoc: source %s already registered", id)
	}
	d.sources[id] = sh
	if d.linked(id) {
		d.attached = append(d.attached, id)
	}
	return nil
}

func (d *Document) linked(id document.SourceID) bool {
	for _, n := range elementsByAtom(d.root, atom.Link) {
		if strings.EqualFold(attr(n, "rel"), "stylesheet") && attr(n, "href") == string(id) {
			return true
		}
	}
	return false
}

// Width returns the current viewport width.
func (d *Document) Width() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width
}

// Height returns the current viewport height.
func (d *Document) Height() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.height
}

// Frames returns the number of frames waited for.
func (d *Document) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// Attached returns the active sources in attach order.
func (d *Document) Attached() []document.SourceID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.attached)
}

// ArenaSize returns the number of live element handles.
func (d *Document) ArenaSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.arena)
}

// --- document.Document ---

func (d *Document) QuerySelectorAll(_ context.Context, selector string) ([]document.Element, error) {
	// Pseudo-element selectors never match elements.
	if strings.Contains(selector, "::") {
		return nil, nil
	}
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: selector %q: %w", selector, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	var out []document.Element
	for _, n := range cascadia.QueryAll(d.root, group) {
		if n.Type != html.ElementNode {
			continue
		}
		out = append(out, d.handle(n))
	}
	return out, nil
}

func (d *Document) ComputedStyle(_ context.Context, el document.Element) (document.StyleObject, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(el)
	if err != nil {
		return nil, err
	}
	return d.newStyler().style(n), nil
}

// ComputedStyles implements document.BatchStyler.
func (d *Document) ComputedStyles(_ context.Context, els []document.Element) ([]document.StyleObject, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.newStyler()
	out := make([]document.StyleObject, len(els))
	for i, el := range els {
		n, err := d.node(el)
		if err != nil {
			return nil, err
		}
		out[i] = st.style(n)
	}
	return out, nil
}

func (d *Document) SourceActive(_ context.Context, id document.SourceID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Contains(d.attached, id), nil
}

// ActivateSource attaches the source after the configured load delay. An
// unknown source "fails to load": nothing is attached and no sheet will be
// found for it.
func (d *Document) ActivateSource(ctx context.Context, id document.SourceID) error {
	if d.loadDelay > 0 {
		t := time.NewTimer(d.loadDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sources[id]; !ok {
		return nil
	}
	if !slices.Contains(d.attached, id) {
		d.attached = append(d.attached, id)
	}
	return nil
}

func (d *Document) DeactivateSource(_ context.Context, id document.SourceID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attached = slices.DeleteFunc(d.attached, func(x document.SourceID) bool { return x == id })
	return nil
}

// SourceSheet returns the sheet of an attached source, with imported
// sheets inlined. Style rules under @media or @container conditions are
// included when the condition matches the viewport; @supports blocks and
// cascade layers were resolved at parse time.
func (d *Document) SourceSheet(_ context.Context, id document.SourceID) (document.Stylesheet, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sh, ok := d.sources[id]
	if !ok || !slices.Contains(d.attached, id) {
		return document.Stylesheet{}, false, nil
	}
	out := document.Stylesheet{Key: sh.key}
	for _, r := range d.expandImports(sh, scope{}, map[*sheet]bool{}) {
		if !r.style() || !r.applies(d.width) {
			continue
		}
		out.Rules = append(out.Rules, document.Rule{
			Selector:   r.selector,
			CSSText:    r.cssText,
			Properties: slices.Clone(r.props),
		})
	}
	return out, true, nil
}

func (d *Document) NextFrame(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	d.frames++
	d.mu.Unlock()
	return nil
}

func (d *Document) Resize(_ context.Context, width int) error {
	if width <= 0 {
		return fmt.Errorf("htmldoc: invalid width %d", width)
	}
	d.mu.Lock()
	d.width = width
	d.mu.Unlock()
	return nil
}

func (d *Document) Describe(_ context.Context, el document.Element) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(el)
	if err != nil {
		return "", err
	}
	return cssPath(n), nil
}

func (d *Document) Release(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.arena = nil
	clear(d.handles)
	return nil
}

// --- arena ---

func (d *Document) handle(n *html.Node) document.Element {
	if h, ok := d.handles[n]; ok {
		return h
	}
	d.arena = append(d.arena, n)
	h := document.Element(len(d.arena))
	d.handles[n] = h
	return h
}

func (d *Document) node(el document.Element) (*html.Node, error) {
	if el == 0 || int(el) > len(d.arena) {
		return nil, fmt.Errorf("htmldoc: stale element handle %d", el)
	}
	return d.arena[el-1], nil
}

// --- tree helpers ---

func elementsByAtom(root *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func elementParent(n *html.Node) *html.Node {
	p := n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return p
}

// cssPath renders "html > body > div#main.box:nth-child(2)". The position
// is only added when a sibling shares the tag.
func cssPath(n *html.Node) string {
	var parts []string
	for ; n != nil && n.Type == html.ElementNode; n = elementParent(n) {
		var b strings.Builder
		b.WriteString(n.Data)
		if id := attr(n, "id"); id != "" {
			b.WriteString("#" + id)
		}
		for _, c := range strings.Fields(attr(n, "class")) {
			b.WriteString("." + c)
		}
		idx, shared := 0, false
		if n.Parent != nil {
			i := 0
			for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.ElementNode {
					continue
				}
				i++
				if c == n {
					idx = i
				} else if c.Data == n.Data {
					shared = true
				}
			}
		}
		if shared {
			fmt.Fprintf(&b, ":nth-child(%d)", idx)
		}
		parts = append(parts, b.String())
	}
	slices.Reverse(parts)
	return strings.Join(parts, " > ")
}
