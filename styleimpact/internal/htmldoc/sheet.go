package htmldoc

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"

	"github.com/hazyhaar/styleimpact/document"
)

// sheet is a parsed stylesheet. The pointer is kept across attach/detach,
// so its key identifies the same sheet object every time.
type sheet struct {
	key   string
	rules []*rule
}

// rule is one entry of a flattened sheet, in source order. It is a style
// rule (group set), an @import placeholder (importID set) or an @layer
// statement (layers set).
type rule struct {
	selector string
	group    []cascadia.Sel
	decls    []*css.Declaration
	props    []string
	cssText  string

	// media and container are the enclosing conditions, empty at top level.
	media     string
	container string
	// layer is the dotted cascade layer name, empty when unlayered.
	layer string

	importID document.SourceID
	layers   []string
}

func (r *rule) style() bool { return r.group != nil }

// applies reports whether the enclosing conditions hold at width. Container
// queries are evaluated against the viewport: htmldoc has no layout.
func (r *rule) applies(width int) bool {
	if r.media != "" && !mediaMatches(r.media, width) {
		return false
	}
	return r.container == "" || mediaMatches(r.container, width)
}

// scope is the context a block of rules is parsed in.
type scope struct {
	media, container, layer string
}

var anonLayers atomic.Int64

func parseSheet(key, text string) (*sheet, error) {
	rules, err := parseRules(text, scope{})
	if err != nil {
		return nil, err
	}
	return &sheet{key: key, rules: rules}, nil
}

// parseRules flattens text into rules. Conditional group rules are split
// out here; douceur parses the plain runs between them.
func parseRules(text string, sc scope) ([]*rule, error) {
	var out []*rule
	for _, c := range splitBlocks(text) {
		if c.name == "" {
			rs, err := parsePlain(c.text, sc)
			if err != nil {
				return nil, err
			}
			out = append(out, rs...)
			continue
		}

		inner := sc
		switch c.name {
		case "media":
			inner.media = combineMedia(sc.media, c.prelude)
		case "supports":
			if !supportsMatches(c.prelude) {
				continue
			}
		case "container":
			inner.container = combineMedia(sc.container, containerCondition(c.prelude))
		case "layer":
			if !c.block {
				st := &rule{}
				for _, name := range strings.Split(c.prelude, ",") {
					if name = strings.TrimSpace(name); name != "" {
						st.layers = append(st.layers, joinLayer(sc.layer, name))
					}
				}
				out = append(out, st)
				continue
			}
			name := strings.TrimSpace(c.prelude)
			if name == "" {
				name = "~anon" + strconv.FormatInt(anonLayers.Add(1), 10)
			}
			inner.layer = joinLayer(sc.layer, name)
		}
		if !c.block {
			continue
		}
		rs, err := parseRules(c.text, inner)
		if err != nil {
			return nil, err
		}
		out = append(out, rs...)
	}
	return out, nil
}

// parsePlain parses a run of style rules and @import statements. Other
// at-rules and unparsable selectors are dropped, as a browser would.
func parsePlain(text string, sc scope) ([]*rule, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	ss, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}
	var out []*rule
	for _, r := range ss.Rules {
		switch {
		case r.Kind == css.QualifiedRule:
			sel := strings.TrimSpace(r.Prelude)
			group, err := cascadia.ParseGroup(sel)
			if err != nil {
				continue
			}
			props := make([]string, 0, len(r.Declarations))
			for _, d := range r.Declarations {
				props = append(props, d.Property)
			}
			out = append(out, &rule{
				selector:  sel,
				group:     group,
				decls:     r.Declarations,
				props:     props,
				cssText:   r.String(),
				media:     sc.media,
				container: sc.container,
				layer:     sc.layer,
			})
		case r.Name == "@import":
			id, media := parseImport(r.Prelude)
			if id == "" {
				continue
			}
			out = append(out, &rule{
				importID:  document.SourceID(id),
				media:     combineMedia(sc.media, media),
				container: sc.container,
				layer:     sc.layer,
			})
		}
	}
	return out, nil
}

func joinLayer(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// block is a top-level chunk of a stylesheet: a plain run of rules
// (name empty) or a group at-rule with its prelude and, when block is set,
// its body in text.
type block struct {
	name    string
	prelude string
	text    string
	block   bool
}

var groupRules = map[string]bool{"media": true, "supports": true, "layer": true, "container": true}

// splitBlocks cuts text at top-level @media, @supports, @layer and
// @container rules, skipping comments and strings.
func splitBlocks(text string) []block {
	var out []block
	plainStart := 0
	depth := 0
	for i := 0; i < len(text); {
		switch c := text[i]; {
		case c == '/' && strings.HasPrefix(text[i:], "/*"):
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				i = len(text)
			} else {
				i += end + 4
			}
		case c == '"' || c == '\'':
			i = skipString(text, i)
		case c == '{':
			depth++
			i++
		case c == '}':
			if depth > 0 {
				depth--
			}
			i++
		case c == '@' && depth == 0:
			name := atName(text[i+1:])
			if !groupRules[strings.ToLower(name)] {
				i++
				continue
			}
			if i > plainStart {
				out = append(out, block{text: text[plainStart:i]})
			}
			b, next := readGroup(text, i+1+len(name))
			b.name = strings.ToLower(name)
			out = append(out, b)
			i, plainStart = next, next
		default:
			i++
		}
	}
	if plainStart < len(text) {
		out = append(out, block{text: text[plainStart:]})
	}
	return out
}

func atName(s string) string {
	n := 0
	for n < len(s) && (s[n] == '-' || s[n] >= 'a' && s[n] <= 'z' || s[n] >= 'A' && s[n] <= 'Z') {
		n++
	}
	return s[:n]
}

// readGroup reads a prelude up to ';' or '{' and, for '{', the body up to
// the matching '}'. It returns the index after the rule.
func readGroup(text string, i int) (block, int) {
	start := i
	for i < len(text) {
		switch text[i] {
		case '"', '\'':
			i = skipString(text, i)
			continue
		case ';':
			return block{prelude: strings.TrimSpace(text[start:i])}, i + 1
		case '{':
			b := block{prelude: strings.TrimSpace(text[start:i]), block: true}
			body := i + 1
			depth := 1
			for i = body; i < len(text); {
				switch c := text[i]; {
				case c == '"' || c == '\'':
					i = skipString(text, i)
					continue
				case c == '/' && strings.HasPrefix(text[i:], "/*"):
					end := strings.Index(text[i+2:], "*/")
					if end < 0 {
						i = len(text)
						continue
					}
					i += end + 4
					continue
				case c == '{':
					depth++
				case c == '}':
					depth--
					if depth == 0 {
						b.text = text[body:i]
						return b, i + 1
					}
				}
				i++
			}
			b.text = text[body:]
			return b, len(text)
		}
		i++
	}
	return block{prelude: strings.TrimSpace(text[start:])}, len(text)
}

func skipString(text string, i int) int {
	q := text[i]
	for i++; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case q:
			return i + 1
		}
	}
	return len(text)
}

// parseImport extracts the source ID and media list of an @import prelude:
// url("a.css") screen, or "a.css".
func parseImport(prelude string) (id, media string) {
	p := strings.TrimSpace(prelude)
	switch {
	case strings.HasPrefix(strings.ToLower(p), "url("):
		end := strings.IndexByte(p, ')')
		if end < 0 {
			return "", ""
		}
		id, media = p[4:end], p[end+1:]
	case strings.HasPrefix(p, `"`) || strings.HasPrefix(p, "'"):
		end := strings.IndexByte(p[1:], p[0])
		if end < 0 {
			return "", ""
		}
		id, media = p[:end+2], p[end+2:]
	default:
		return "", ""
	}
	return strings.Trim(strings.TrimSpace(id), `"'`), strings.TrimSpace(media)
}

// combineMedia conjoins two media query lists. Each query of inner is
// anded with each query of outer, so "a, b" inside "c" is "c and a, c and b".
func combineMedia(outer, inner string) string {
	outer, inner = strings.TrimSpace(outer), strings.TrimSpace(inner)
	if outer == "" {
		return inner
	}
	if inner == "" {
		return outer
	}
	var out []string
	for _, o := range strings.Split(outer, ",") {
		for _, in := range strings.Split(inner, ",") {
			out = append(out, strings.TrimSpace(o)+" and "+strings.TrimSpace(in))
		}
	}
	return strings.Join(out, ", ")
}

// containerCondition drops the optional container name of a prelude.
func containerCondition(prelude string) string {
	if i := strings.IndexByte(prelude, '('); i > 0 {
		return strings.TrimSpace(prelude[i:])
	}
	return strings.TrimSpace(prelude)
}

// supportsMatches evaluates an @supports condition: (property: value)
// tests, selector(...), not, and, or, and parentheses. A declaration is
// supported when htmldoc computes or expands the property.
func supportsMatches(cond string) bool {
	cond = strings.TrimSpace(cond)
	lower := strings.ToLower(cond)
	if terms := splitTopLevel(cond, " or "); len(terms) > 1 {
		for _, t := range terms {
			if supportsMatches(t) {
				return true
			}
		}
		return false
	}
	if terms := splitTopLevel(cond, " and "); len(terms) > 1 {
		for _, t := range terms {
			if !supportsMatches(t) {
				return false
			}
		}
		return true
	}
	switch {
	case strings.HasPrefix(lower, "not "):
		return !supportsMatches(cond[4:])
	case strings.HasPrefix(lower, "selector(") && strings.HasSuffix(cond, ")"):
		_, err := cascadia.ParseGroup(cond[len("selector(") : len(cond)-1])
		return err == nil
	case strings.HasPrefix(cond, "(") && strings.HasSuffix(cond, ")"):
		inner := strings.TrimSpace(cond[1 : len(cond)-1])
		if strings.HasPrefix(inner, "(") || strings.HasPrefix(strings.ToLower(inner), "not ") ||
			strings.HasPrefix(strings.ToLower(inner), "selector(") {
			return supportsMatches(inner)
		}
		name, value, ok := strings.Cut(inner, ":")
		if !ok {
			return false
		}
		return knownProperty(name) && strings.TrimSpace(value) != ""
	}
	return false
}

// splitTopLevel splits s on sep outside parentheses, case-insensitively.
func splitTopLevel(s, sep string) []string {
	var out []string
	lower := strings.ToLower(s)
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		default:
			if depth == 0 && strings.HasPrefix(lower[i:], sep) {
				out = append(out, s[start:i])
				start = i + len(sep)
				i = start - 1
			}
		}
	}
	return append(out, s[start:])
}
