package htmldoc

import (
	"strconv"
	"strings"
)

// mediaMatches evaluates a media query list against the viewport width.
// Supported: all, screen, only screen, (min-width: Npx), (max-width: Npx),
// joined with "and"; comma-separated lists match if any query matches.
// Anything else does not match.
func mediaMatches(query string, width int) bool {
	for _, q := range strings.Split(query, ",") {
		if queryMatches(strings.TrimSpace(q), width) {
			return true
		}
	}
	return false
}

func queryMatches(q string, width int) bool {
	if q == "" {
		return false
	}
	for _, part := range strings.Split(strings.ToLower(q), " and ") {
		part = strings.TrimSpace(part)
		switch part {
		case "all", "screen", "only screen":
			continue
		}
		if !strings.HasPrefix(part, "(") || !strings.HasSuffix(part, ")") {
			return false
		}
		name, val, ok := strings.Cut(part[1:len(part)-1], ":")
		if !ok {
			return false
		}
		px, ok := parsePx(strings.TrimSpace(val))
		if !ok {
			return false
		}
		switch strings.TrimSpace(name) {
		case "min-width":
			if float64(width) < px {
				return false
			}
		case "max-width":
			if float64(width) > px {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func parsePx(v string) (float64, bool) {
	v = strings.TrimSuffix(v, "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
