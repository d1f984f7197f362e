// Package macro resolves the %a|b|'literal'% templates used for artifact
// names and email text.
//
// A literal '%' cannot be escaped. A lone '%' simply never opens a span.
package macro

import (
	"regexp"
	"strings"
)

var spanPattern = regexp.MustCompile(`%.+?%`)

// Lookup returns a parameter value and whether it is present.
// models.Params satisfies it.
type Lookup interface {
	Get(name string) (string, bool)
}

// Resolve replaces every macro span in template with its first matching
// alternative. Unmatched spans resolve to the empty string.
func Resolve(template string, params Lookup) string {
	result := template
	for _, span := range spanPattern.FindAllString(template, -1) {
		result = strings.ReplaceAll(result, span, resolveSpan(span, params))
	}
	return result
}

func resolveSpan(span string, params Lookup) string {
	inner := span[1 : len(span)-1]
	for _, alt := range strings.Split(inner, "|") {
		if params != nil {
			if v, ok := params.Get(alt); ok {
				return v
			}
		}
		if strings.HasPrefix(alt, "'") {
			return unquote(alt)
		}
	}
	return ""
}

func unquote(alt string) string {
	if len(alt) < 2 {
		return ""
	}
	return alt[1 : len(alt)-1]
}

// Spans lists the distinct macro spans of template in order of appearance.
func Spans(template string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, span := range spanPattern.FindAllString(template, -1) {
		if _, ok := seen[span]; ok {
			continue
		}
		seen[span] = struct{}{}
		out = append(out, span)
	}
	return out
}

// Names returns the parameter names a template may read, in order, without
// duplicates. Literals are skipped.
func Names(template string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, span := range Spans(template) {
		for _, alt := range strings.Split(span[1:len(span)-1], "|") {
			if alt == "" || strings.HasPrefix(alt, "'") {
				continue
			}
			if _, ok := seen[alt]; ok {
				continue
			}
			seen[alt] = struct{}{}
			out = append(out, alt)
		}
	}
	return out
}
