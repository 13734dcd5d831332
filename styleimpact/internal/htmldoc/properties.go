package htmldoc

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type property struct {
	name      string
	initial   string
	inherited bool
}

// properties is the computed style surface of the document.
var properties = []property{
	{"background-color", "transparent", false},
	{"border-bottom-color", "currentcolor", false},
	{"border-bottom-style", "none", false},
	{"border-bottom-width", "0px", false},
	{"border-left-color", "currentcolor", false},
	{"border-left-style", "none", false},
	{"border-left-width", "0px", false},
	{"border-right-color", "currentcolor", false},
	{"border-right-style", "none", false},
	{"border-right-width", "0px", false},
	{"border-top-color", "currentcolor", false},
	{"border-top-style", "none", false},
	{"border-top-width", "0px", false},
	{"bottom", "auto", false},
	{"box-sizing", "content-box", false},
	{"color", "black", true},
	{"cursor", "auto", true},
	{"display", "inline", false},
	{"float", "none", false},
	{"font-family", "serif", true},
	{"font-size", "16px", true},
	{"font-style", "normal", true},
	{"font-weight", "400", true},
	{"height", "auto", false},
	{"left", "auto", false},
	{"letter-spacing", "normal", true},
	{"line-height", "normal", true},
	{"list-style-type", "disc", true},
	{"margin-bottom", "0px", false},
	{"margin-left", "0px", false},
	{"margin-right", "0px", false},
	{"margin-top", "0px", false},
	{"max-height", "none", false},
	{"max-width", "none", false},
	{"min-height", "auto", false},
	{"min-width", "auto", false},
	{"opacity", "1", false},
	{"overflow", "visible", false},
	{"padding-bottom", "0px", false},
	{"padding-left", "0px", false},
	{"padding-right", "0px", false},
	{"padding-top", "0px", false},
	{"position", "static", false},
	{"right", "auto", false},
	{"text-align", "start", true},
	{"text-decoration-line", "none", false},
	{"top", "auto", false},
	{"visibility", "visible", true},
	{"white-space", "normal", true},
	{"width", "auto", false},
	{"z-index", "auto", false},
}

var sides = [4]string{"top", "right", "bottom", "left"}

var borderStyles = map[string]bool{
	"none": true, "hidden": true, "dotted": true, "dashed": true, "solid": true,
	"double": true, "groove": true, "ridge": true, "inset": true, "outset": true,
}

// expand splits a declaration into longhand [name, value] pairs.
func expand(prop, value string) [][2]string {
	prop = strings.ToLower(strings.TrimSpace(prop))
	value = strings.TrimSpace(value)

	switch prop {
	case "margin", "padding":
		return boxSides(prop+"-%s", value)
	case "border-width", "border-style", "border-color":
		kind := strings.TrimPrefix(prop, "border-")
		return boxSides("border-%s-"+kind, value)
	case "border", "border-top", "border-right", "border-bottom", "border-left":
		which := sides[:]
		if prop != "border" {
			which = []string{strings.TrimPrefix(prop, "border-")}
		}
		return borderShorthand(which, value)
	case "background":
		if f := strings.Fields(value); len(f) == 1 {
			return [][2]string{{"background-color", f[0]}}
		}
		return nil
	case "text-decoration":
		if f := strings.Fields(value); len(f) > 0 {
			return [][2]string{{"text-decoration-line", f[0]}}
		}
		return nil
	}
	return [][2]string{{prop, value}}
}

// boxSides applies the 1-to-4 value rule of box shorthands.
func boxSides(pattern, value string) [][2]string {
	v := strings.Fields(value)
	var top, right, bottom, left string
	switch len(v) {
	case 1:
		top, right, bottom, left = v[0], v[0], v[0], v[0]
	case 2:
		top, right, bottom, left = v[0], v[1], v[0], v[1]
	case 3:
		top, right, bottom, left = v[0], v[1], v[2], v[1]
	case 4:
		top, right, bottom, left = v[0], v[1], v[2], v[3]
	default:
		return nil
	}
	name := func(side string) string { return strings.Replace(pattern, "%s", side, 1) }
	return [][2]string{
		{name("top"), top},
		{name("right"), right},
		{name("bottom"), bottom},
		{name("left"), left},
	}
}

func borderShorthand(which []string, value string) [][2]string {
	width, style, color := "medium", "none", "currentcolor"
	for _, tok := range strings.Fields(value) {
		switch {
		case borderStyles[strings.ToLower(tok)]:
			style = tok
		case tok[0] >= '0' && tok[0] <= '9' || tok[0] == '.' ||
			tok == "thin" || tok == "medium" || tok == "thick":
			width = tok
		default:
			color = tok
		}
	}
	var out [][2]string
	for _, s := range which {
		out = append(out,
			[2]string{"border-" + s + "-width", width},
			[2]string{"border-" + s + "-style", style},
			[2]string{"border-" + s + "-color", color},
		)
	}
	return out
}

var blockElements = map[atom.Atom]bool{
	atom.Html: true, atom.Body: true, atom.Div: true, atom.P: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Dl: true, atom.Dd: true, atom.Dt: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Nav: true, atom.Main: true, atom.Aside: true, atom.Form: true,
	atom.Blockquote: true, atom.Pre: true, atom.Figure: true, atom.Figcaption: true,
	atom.Fieldset: true, atom.Hr: true, atom.Address: true, atom.Details: true,
}

var hiddenElements = map[atom.Atom]bool{
	atom.Head: true, atom.Style: true, atom.Script: true, atom.Title: true,
	atom.Meta: true, atom.Link: true, atom.Template: true, atom.Noscript: true,
}

// defaultDisplay is the user-agent display of an element.
func defaultDisplay(n *html.Node) string {
	switch {
	case hiddenElements[n.DataAtom]:
		return "none"
	case n.DataAtom == atom.Li:
		return "list-item"
	case n.DataAtom == atom.Table:
		return "table"
	case n.DataAtom == atom.Tr:
		return "table-row"
	case n.DataAtom == atom.Td || n.DataAtom == atom.Th:
		return "table-cell"
	case blockElements[n.DataAtom]:
		return "block"
	}
	return "inline"
}

var shorthands = map[string]bool{
	"margin": true, "padding": true, "border": true, "border-top": true, "border-right": true,
	"border-bottom": true, "border-left": true, "border-width": true, "border-style": true,
	"border-color": true, "background": true, "text-decoration": true,
}

// knownProperty reports whether the cascade computes or expands name.
func knownProperty(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(name, "--") || shorthands[name] {
		return true
	}
	for _, p := range properties {
		if p.name == name {
			return true
		}
	}
	return false
}
