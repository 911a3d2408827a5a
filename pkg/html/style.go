package html

import (
	"sort"
	"strconv"
	"strings"
)

// ParseInlineStyle parses a CSS inline style string into a map.
func ParseInlineStyle(s string) map[string]string {
	result := make(map[string]string)
	for _, decl := range strings.Split(s, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		idx := strings.IndexByte(decl, ':')
		if idx < 0 {
			continue
		}
		prop := strings.ToLower(strings.TrimSpace(decl[:idx]))
		val := strings.TrimSpace(decl[idx+1:])
		result[prop] = val
	}
	return result
}

// SerializeInlineStyle converts a declaration map back to a style string.
// Properties are sorted so the output is stable.
func SerializeInlineStyle(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+m[k])
	}
	return strings.Join(parts, "; ")
}

// ResolveLength resolves a CSS length against the containing size.
// Supported forms: "12px", "12", "50%", and "calc(50% - 7px)" with a
// single + or - term. ok is false for anything else (auto, em, ...).
func ResolveLength(value string, base float64) (float64, bool) {
	v := strings.TrimSpace(strings.ToLower(value))
	if v == "" {
		return 0, false
	}
	if strings.HasPrefix(v, "calc(") && strings.HasSuffix(v, ")") {
		return resolveCalc(v[len("calc("):len(v)-1], base)
	}
	switch {
	case strings.HasSuffix(v, "px"):
		f, err := strconv.ParseFloat(strings.TrimSpace(v[:len(v)-2]), 64)
		return f, err == nil
	case strings.HasSuffix(v, "%"):
		f, err := strconv.ParseFloat(strings.TrimSpace(v[:len(v)-1]), 64)
		return f / 100 * base, err == nil
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

// resolveCalc handles "<a> - <b>" and "<a> + <b>". CSS requires the
// operator to be surrounded by whitespace, which keeps negative numbers
// unambiguous.
func resolveCalc(expr string, base float64) (float64, bool) {
	for _, op := range []string{" - ", " + "} {
		idx := strings.Index(expr, op)
		if idx < 0 {
			continue
		}
		a, okA := ResolveLength(expr[:idx], base)
		b, okB := ResolveLength(expr[idx+len(op):], base)
		if !okA || !okB {
			return 0, false
		}
		if op == " - " {
			return a - b, true
		}
		return a + b, true
	}
	return ResolveLength(expr, base)
}

// FormatPx renders a pixel length the way the engine writes inline styles.
func FormatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
