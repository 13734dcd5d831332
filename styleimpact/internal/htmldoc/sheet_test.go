package htmldoc

import (
	"context"
	"slices"
	"testing"

	"github.com/hazyhaar/styleimpact/document"
)

func attach(t *testing.T, d *Document, id, css string) {
	t.Helper()
	if err := d.AddSource(document.SourceID(id), css); err != nil {
		t.Fatalf("AddSource(%s): %v", id, err)
	}
	if err := d.ActivateSource(context.Background(), document.SourceID(id)); err != nil {
		t.Fatalf("ActivateSource(%s): %v", id, err)
	}
}

func selectors(t *testing.T, d *Document, id string) []string {
	t.Helper()
	sh, ok, err := d.SourceSheet(context.Background(), document.SourceID(id))
	if err != nil || !ok {
		t.Fatalf("SourceSheet(%s): ok=%v err=%v", id, ok, err)
	}
	var out []string
	for _, r := range sh.Rules {
		out = append(out, r.Selector)
	}
	return out
}

func TestInlineStyleDeclarations(t *testing.T) {
	tests := []struct {
		name, style string
		want        map[string]string
	}{
		{"no trailing semicolon", "color: green", map[string]string{"color": "green"}},
		{"trailing semicolon", "color: green;", map[string]string{"color": "green"}},
		{"several", "color: green; width: 10px", map[string]string{"color": "green", "width": "10px"}},
		{"shorthand last", "color: green; margin: 1px 2px", map[string]string{"margin-left": "2px", "margin-top": "1px"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(`<html><body><div id="a" style="` + tt.style + `"></div></body></html>`)
			if err != nil {
				t.Fatal(err)
			}
			attach(t, d, "t.css", `#a { color: red; width: 99px; height: 5px }`)
			st := styleOf(t, d, "#a")
			for prop, want := range tt.want {
				if st[prop] != want {
					t.Errorf("%s: got %q, want %q", prop, st[prop], want)
				}
			}
			if st["height"] != "5px" {
				t.Errorf("height from the stylesheet: got %q, want 5px", st["height"])
			}
		})
	}
}

func TestSupportsBlocks(t *testing.T) {
	d := newDoc(t)
	attach(t, d, "s.css", `
@supports (display: grid) { .box { width: 10px } }
@supports (frobnicate: yes) { .box { height: 10px } }
@supports not (frobnicate: yes) { p { color: red } }
@supports (color: red) and selector(.box > p) { .box { margin-top: 1px } }`)

	if got, want := selectors(t, d, "s.css"), []string{".box", "p", ".box"}; !slices.Equal(got, want) {
		t.Errorf("selectors: got %v, want %v", got, want)
	}
	st := styleOf(t, d, ".box")
	if st["width"] != "10px" || st["height"] != "auto" || st["margin-top"] != "1px" {
		t.Errorf("box: width=%q height=%q margin-top=%q", st["width"], st["height"], st["margin-top"])
	}
}

func TestLayers(t *testing.T) {
	tests := []struct {
		name, css, want string
	}{
		{"unlayered beats layered", `#a { color: red } @layer base { .box { color: blue } }`, "red"},
		{"unlayered beats higher specificity in a layer", `@layer base { #a#a { color: blue } } .box { color: red }`, "red"},
		{"later layer wins", `@layer base { #a { color: blue } } @layer theme { .box { color: green } }`, "green"},
		{"statement sets order", `@layer theme, base; @layer base { .box { color: blue } } @layer theme { #a { color: green } }`, "blue"},
		{"important reverses layers", `@layer base { .box { color: blue !important } } @layer theme { .box { color: green !important } }`, "blue"},
		{"important layered beats normal unlayered", `#a { color: red } @layer base { .box { color: blue !important } }`, "blue"},
		{"own rules beat sub-layers", `@layer base { .box { color: blue } @layer inner { #a { color: green } } }`, "blue"},
		{"anonymous layer", `@layer { #a { color: blue } } .box { color: red }`, "red"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDoc(t)
			attach(t, d, "l.css", tt.css)
			if got := styleOf(t, d, "#a")["color"]; got != tt.want {
				t.Errorf("color: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLayerRulesInSourceSheet(t *testing.T) {
	d := newDoc(t)
	attach(t, d, "l.css", `@layer reset, base;
@layer base { .box { color: blue } @media (max-width: 100px) { p { color: red } } }
@container card (min-width: 200px) { .box { width: 1px } }`)

	if got, want := selectors(t, d, "l.css"), []string{".box", ".box"}; !slices.Equal(got, want) {
		t.Errorf("selectors: got %v, want %v", got, want)
	}
	if got := styleOf(t, d, "#a")["width"]; got != "1px" {
		t.Errorf("container rule: width got %q, want 1px", got)
	}
}

func TestImports(t *testing.T) {
	ctx := context.Background()
	d := newDoc(t)
	if err := d.AddSource("inner.css", `.box { width: 3px }`); err != nil {
		t.Fatal(err)
	}
	if err := d.AddSource("narrow.css", `.box { height: 4px }`); err != nil {
		t.Fatal(err)
	}
	attach(t, d, "outer.css", `@import url("inner.css");
@import "narrow.css" (max-width: 500px);
@import "outer.css";
p { color: red }`)

	if got, want := selectors(t, d, "outer.css"), []string{".box", "p"}; !slices.Equal(got, want) {
		t.Errorf("selectors: got %v, want %v", got, want)
	}
	st := styleOf(t, d, ".box")
	if st["width"] != "3px" || st["height"] != "auto" {
		t.Errorf("wide: width=%q height=%q", st["width"], st["height"])
	}

	if err := d.Resize(ctx, 400); err != nil {
		t.Fatal(err)
	}
	if got := styleOf(t, d, ".box")["height"]; got != "4px" {
		t.Errorf("narrow: height got %q, want 4px", got)
	}
}

func TestNestedMediaLists(t *testing.T) {
	ctx := context.Background()
	d := newDoc(t)
	attach(t, d, "n.css", `@media print, (max-width: 500px) { @media (min-width: 300px) { .box { width: 7px } } }`)

	for _, tt := range []struct {
		width int
		want  string
	}{{200, "auto"}, {400, "7px"}, {800, "auto"}} {
		if err := d.Resize(ctx, tt.width); err != nil {
			t.Fatal(err)
		}
		if got := styleOf(t, d, ".box")["width"]; got != tt.want {
			t.Errorf("width at %d: got %q, want %q", tt.width, got, tt.want)
		}
	}
}

func TestCombineMedia(t *testing.T) {
	tests := []struct{ outer, inner, want string }{
		{"", "screen", "screen"},
		{"screen", "", "screen"},
		{"a, b", "c", "a and c, b and c"},
		{"a", "b, c", "a and b, a and c"},
	}
	for _, tt := range tests {
		if got := combineMedia(tt.outer, tt.inner); got != tt.want {
			t.Errorf("combineMedia(%q, %q) = %q, want %q", tt.outer, tt.inner, got, tt.want)
		}
	}
}

func TestSupportsMatches(t *testing.T) {
	tests := []struct {
		cond string
		want bool
	}{
		{"(display: grid)", true},
		{"(--brand: red)", true},
		{"(frobnicate: 1)", false},
		{"not (frobnicate: 1)", true},
		{"(display: grid) and (frobnicate: 1)", false},
		{"(display: grid) or (frobnicate: 1)", true},
		{"((display: grid) and (color: red))", true},
		{"selector(div > p)", true},
		{"selector(::-nope(()", false},
		{"font-tech(color-COLRv1)", false},
	}
	for _, tt := range tests {
		if got := supportsMatches(tt.cond); got != tt.want {
			t.Errorf("supportsMatches(%q) = %v, want %v", tt.cond, got, tt.want)
		}
	}
}

func TestSplitBlocksSkipsStringsAndComments(t *testing.T) {
	css := `a::after { content: "@media x {" } /* @layer y { */ @layer z { b { color: red } } c { color: blue }`
	blocks := splitBlocks(css)
	var names []string
	for _, b := range blocks {
		names = append(names, b.name)
	}
	if want := []string{"", "layer", ""}; !slices.Equal(names, want) {
		t.Fatalf("blocks: got %q, want %q", names, want)
	}
	if blocks[1].prelude != "z" || blocks[1].text != " b { color: red } " {
		t.Errorf("layer block: %+v", blocks[1])
	}
}
