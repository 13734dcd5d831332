package counter

import (
	"testing"

	"github.com/hazyhaar/styleimpact/report"
)

func TestRender(t *testing.T) {
	r := report.NewSquashed()
	r.AddSquashed(".box", report.ElementRef{Handle: 1}, ".box{}", report.Changes{
		"color":      {"rgb(0, 0, 0)", "rgb(255, 0, 0)"},
		"margin-top": {"0px", "8px"},
	})
	r.AddSquashed("p", report.ElementRef{Handle: 2}, "p{}", report.Changes{
		"font-size": {"16px", "18px"},
	})

	want := ".box {\n  color: rgb(0, 0, 0);\n  margin-top: 0px;\n}\n\np {\n  font-size: 16px;\n}"
	if got := Render(r); got != want {
		t.Errorf("Render:\ngot  %q\nwant %q", got, want)
	}
}

func TestRender_Empty(t *testing.T) {
	if got := Render(report.NewSquashed()); got != "" {
		t.Errorf("Render(empty): got %q", got)
	}
	if got := Render(nil); got != "" {
		t.Errorf("Render(nil): got %q", got)
	}
}

func TestRender_ItemizedIsSquashed(t *testing.T) {
	r := report.NewItemized()
	r.AddItemized("a", report.ElementRef{Handle: 1}, "a{}", report.Changes{"color": {"blue", "red"}})
	r.AddItemized("a", report.ElementRef{Handle: 2}, "a{}", report.Changes{"color": {"blue", "red"}})

	want := "a {\n  color: blue;\n}"
	if got := Render(r); got != want {
		t.Errorf("Render:\ngot  %q\nwant %q", got, want)
	}
}
