package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Context maps placeholder names to renderable values. Values may be strings,
// booleans (for conditional blocks) or numbers; anything else is stringified
// with fmt. Keys referenced by a template but absent from the context render
// as empty text rather than failing the document.
type Context map[string]any

var (
	ifBlockRe     = regexp.MustCompile(`(?s)\{\{#if\s+([\w.-]+)\s*\}\}(.*?)\{\{/if\}\}`)
	unlessBlockRe = regexp.MustCompile(`(?s)\{\{#unless\s+([\w.-]+)\s*\}\}(.*?)\{\{/unless\}\}`)
	eqBlockRe     = regexp.MustCompile(`(?s)\{\{#eq\s+([\w.-]+)\s+"([^"]*)"\s*\}\}(.*?)\{\{/eq\}\}`)
	fieldRe       = regexp.MustCompile(`\{\{\s*([\w.-]+)\s*\}\}`)
	leftoverRe    = regexp.MustCompile(`(?s)\{\{.*?\}\}`)
)

// Populate substitutes the context into a raw HTML template.
//
// Block constructs are resolved first, one linear pass per construct
// (nested blocks are not reprocessed), then plain {{field}} tokens are
// replaced, and finally any token whose name was never in the context is
// deleted so no literal {{...}} ever reaches the finished document.
//
// Populate is pure: it never fails and does not mutate ctx. Missing data
// degrades to blank fields, which keeps cover sheets available even when the
// upstream record is only partially filled in.
func Populate(tpl string, ctx Context) string {
	out := ifBlockRe.ReplaceAllStringFunc(tpl, func(m string) string {
		sub := ifBlockRe.FindStringSubmatch(m)
		if isTruthy(ctx[sub[1]]) {
			return sub[2]
		}
		return ""
	})

	out = unlessBlockRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := unlessBlockRe.FindStringSubmatch(m)
		if isTruthy(ctx[sub[1]]) {
			return ""
		}
		return sub[2]
	})

	out = eqBlockRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := eqBlockRe.FindStringSubmatch(m)
		if Stringify(ctx[sub[1]]) == sub[2] {
			return sub[3]
		}
		return ""
	})

	out = fieldRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := fieldRe.FindStringSubmatch(m)
		v, ok := ctx[sub[1]]
		if !ok {
			return ""
		}
		return Stringify(v)
	})

	// Anything still wearing braces was never in the context.
	return leftoverRe.ReplaceAllString(out, "")
}

// Stringify renders a context value the way it should appear in a document.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// isTruthy decides whether a conditional block keeps its content. Form and
// Airtable payloads carry booleans as real bools or as strings ("true",
// "Yes", "0"), so string falsiness is normalized here.
func isTruthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		return s != "" && s != "false" && s != "no" && s != "0"
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	default:
		return true
	}
}
