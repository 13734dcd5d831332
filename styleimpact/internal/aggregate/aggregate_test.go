package aggregate

import (
	"context"
	"testing"

	"github.com/hazyhaar/styleimpact/document"
	"github.com/hazyhaar/styleimpact/report"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/matcher"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/snapshot"
)

type mapDoc struct {
	document.Document
	styles map[document.Element]document.StyleObject
}

func (d *mapDoc) ComputedStyle(_ context.Context, el document.Element) (document.StyleObject, error) {
	return d.styles[el], nil
}

func capture(t *testing.T, styles map[document.Element]document.StyleObject) *snapshot.Map {
	t.Helper()
	els := make([]document.Element, 0, len(styles))
	for el := range styles {
		els = append(els, el)
	}
	m, err := snapshot.Capture(context.Background(), &mapDoc{styles: styles}, els)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	return m
}

func boxRule() document.Rule {
	return document.Rule{Selector: ".box", CSSText: ".box { color: red; }", Properties: []string{"color"}}
}

func TestFold_UnchangedElementsNotEmitted(t *testing.T) {
	before := capture(t, map[document.Element]document.StyleObject{
		1: {"color": "black"},
		2: {"color": "red"},
	})
	after := capture(t, map[document.Element]document.StyleObject{
		1: {"color": "red"},
		2: {"color": "red"},
	})
	matches := []matcher.Match{{Rule: boxRule(), Elements: []document.Element{1, 2}}}

	r := Fold(matches, before, after, DefaultOptions())
	e := r.Squashed[".box"]
	if e == nil {
		t.Fatal("missing .box entry")
	}
	if len(e.Elements) != 1 || e.Elements[0].Handle != 1 {
		t.Errorf("Elements: got %+v, want only element 1", e.Elements)
	}
	if e.Changes["color"] != (report.PropertyChange{"black", "red"}) {
		t.Errorf("color: got %v", e.Changes["color"])
	}
}

func TestFold_NoDiffNoKey(t *testing.T) {
	same := map[document.Element]document.StyleObject{1: {"color": "red"}}
	matches := []matcher.Match{{Rule: boxRule(), Elements: []document.Element{1}}}

	r := Fold(matches, capture(t, same), capture(t, same), DefaultOptions())
	if !r.Empty() {
		t.Errorf("report: got %v selectors, want none", r.Selectors())
	}
}

func TestFold_SquashMergesLastWriterWins(t *testing.T) {
	before := capture(t, map[document.Element]document.StyleObject{
		1: {"color": "black", "width": "1px"},
		2: {"color": "blue", "height": "1px"},
		3: {"color": "green"},
	})
	after := capture(t, map[document.Element]document.StyleObject{
		1: {"color": "red", "width": "2px"},
		2: {"color": "red", "height": "2px"},
		3: {"color": "red"},
	})
	matches := []matcher.Match{{Rule: boxRule(), Elements: []document.Element{1, 2, 3}}}

	r := Fold(matches, before, after, DefaultOptions())
	e := r.Squashed[".box"]
	if len(e.Elements) != 3 {
		t.Errorf("Elements: got %d, want 3", len(e.Elements))
	}
	if len(e.CSSTexts) != 1 {
		t.Errorf("CSSTexts: got %d, want 1", len(e.CSSTexts))
	}
	// color appears once; element 3 was folded last so its before value wins.
	if e.Changes["color"] != (report.PropertyChange{"green", "red"}) {
		t.Errorf("color: got %v, want last writer [green red]", e.Changes["color"])
	}
	if len(e.Changes) != 3 {
		t.Errorf("Changes: got %d keys, want color, width, height", len(e.Changes))
	}
}

func TestFold_SameElementUnderTwoRules(t *testing.T) {
	before := capture(t, map[document.Element]document.StyleObject{1: {"color": "black"}})
	after := capture(t, map[document.Element]document.StyleObject{1: {"color": "red"}})
	r1 := document.Rule{Selector: ".box", CSSText: ".box { color: red; }"}
	r2 := document.Rule{Selector: ".box", CSSText: ".box { color: red !important; }"}
	matches := []matcher.Match{
		{Rule: r1, Elements: []document.Element{1}},
		{Rule: r2, Elements: []document.Element{1}},
	}

	sq := Fold(matches, before, after, DefaultOptions())
	if e := sq.Squashed[".box"]; len(e.Elements) != 1 || len(e.CSSTexts) != 2 {
		t.Errorf("squashed: got %d elements, %d texts, want 1 and 2", len(e.Elements), len(e.CSSTexts))
	}

	it := Fold(matches, before, after, Options{Squash: false})
	if n := len(it.Itemized[".box"]); n != 2 {
		t.Errorf("itemized: got %d entries, want 2", n)
	}
}

func TestFold_ItemizedCountAndOrder(t *testing.T) {
	before := capture(t, map[document.Element]document.StyleObject{
		1: {"color": "black"}, 2: {"color": "red"}, 3: {"color": "black"}, 4: {"margin-top": "0px"},
	})
	after := capture(t, map[document.Element]document.StyleObject{
		1: {"color": "red"}, 2: {"color": "red"}, 3: {"color": "red"}, 4: {"margin-top": "4px"},
	})
	matches := []matcher.Match{
		{Rule: document.Rule{Selector: "p", CSSText: "p{margin:4px}"}, Elements: []document.Element{4}},
		{Rule: boxRule(), Elements: []document.Element{3, 2, 1}},
	}

	r := Fold(matches, before, after, Options{Squash: false})
	if r.Kind != report.KindItemized {
		t.Fatalf("Kind: got %q", r.Kind)
	}
	if sels := r.Selectors(); len(sels) != 2 || sels[0] != "p" || sels[1] != ".box" {
		t.Errorf("Selectors: got %v, want [p .box]", sels)
	}
	items := r.Itemized[".box"]
	if len(items) != 2 {
		t.Fatalf(".box entries: got %d, want 2 (element 2 unchanged)", len(items))
	}
	if items[0].Element.Handle != 3 || items[1].Element.Handle != 1 {
		t.Errorf(".box order: got %d, %d, want 3, 1", items[0].Element.Handle, items[1].Element.Handle)
	}
}

func TestFold_RulePropertiesOnly(t *testing.T) {
	before := capture(t, map[document.Element]document.StyleObject{
		1: {"margin-top": "0px", "padding-top": "0px"},
		2: {"margin-top": "4px", "padding-top": "0px"},
	})
	after := capture(t, map[document.Element]document.StyleObject{
		1: {"margin-top": "4px", "padding-top": "2px"},
		2: {"margin-top": "4px", "padding-top": "2px"},
	})
	rule := document.Rule{Selector: ".m", CSSText: ".m { margin: 4px; }", Properties: []string{"margin"}}
	matches := []matcher.Match{{Rule: rule, Elements: []document.Element{1, 2}}}

	r := Fold(matches, before, after, Options{RulePropertiesOnly: true, Squash: true})
	e := r.Squashed[".m"]
	if e == nil {
		t.Fatal("missing .m entry")
	}
	if len(e.Elements) != 1 || e.Elements[0].Handle != 1 {
		t.Errorf("Elements: got %+v, want only element 1", e.Elements)
	}
	if _, ok := e.Changes["padding-top"]; ok {
		t.Error("padding-top reported under a margin-only rule")
	}

	full := Fold(matches, before, after, DefaultOptions())
	if len(full.Squashed[".m"].Elements) != 2 {
		t.Errorf("unrestricted: got %d elements, want 2", len(full.Squashed[".m"].Elements))
	}
}

func TestDiffs_SkipsElementsOutsideSnapshot(t *testing.T) {
	before := capture(t, map[document.Element]document.StyleObject{1: {"color": "black"}})
	after := capture(t, map[document.Element]document.StyleObject{1: {"color": "red"}})
	matches := []matcher.Match{{Rule: boxRule(), Elements: []document.Element{1, 99}}}

	if n := len(Diffs(matches, before, after, DefaultOptions())); n != 1 {
		t.Errorf("Diffs: got %d, want 1", n)
	}
}

func TestFold_RulePropertiesOnlyEmptyRule(t *testing.T) {
	before := capture(t, map[document.Element]document.StyleObject{1: {"color": "black"}})
	after := capture(t, map[document.Element]document.StyleObject{1: {"color": "red"}})
	matches := []matcher.Match{
		{Rule: document.Rule{Selector: ".box", CSSText: ".box { }"}, Elements: []document.Element{1}},
		{Rule: document.Rule{Selector: "body", CSSText: "body { color: red; }", Properties: []string{"color"}}, Elements: []document.Element{1}},
	}

	r := Fold(matches, before, after, Options{RulePropertiesOnly: true, Squash: true})
	if _, ok := r.Squashed[".box"]; ok {
		t.Errorf(".box declares nothing but was reported: %+v", r.Squashed[".box"])
	}
	if r.Squashed["body"] == nil {
		t.Error("missing body entry")
	}

	full := Fold(matches, before, after, DefaultOptions())
	if full.Squashed[".box"] == nil {
		t.Error("unrestricted fold should keep .box")
	}
}
