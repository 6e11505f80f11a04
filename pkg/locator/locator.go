// Package locator turns node metadata into an XPath-style query that can
// find the same element again in a later hierarchy dump.
package locator

import (
	"strings"

	"github.com/devicelab-dev/tapresolver/pkg/hierarchy"
)

// clause maps one metadata field to an XPath attribute test.
type clause struct {
	attr  string
	value func(m *hierarchy.Metadata) string
}

var classClause = clause{attr: "class", value: func(m *hierarchy.Metadata) string { return m.Class }}

// identifyingClauses in priority order; the first non-empty one is used.
var identifyingClauses = []clause{
	{attr: "resource-id", value: func(m *hierarchy.Metadata) string { return m.ResourceID }},
	{attr: "content-desc", value: func(m *hierarchy.Metadata) string { return m.ContentDesc }},
	{attr: "text", value: func(m *hierarchy.Metadata) string { return m.Text }},
}

// Build returns `//*[@class=... and @<id-attr>=...]`, or "" when the
// metadata has no class.
func Build(m *hierarchy.Metadata) string {
	if m == nil || m.Class == "" {
		return ""
	}

	parts := []string{render(classClause, m)}
	for _, c := range identifyingClauses {
		if c.value(m) != "" {
			parts = append(parts, render(c, m))
			break
		}
	}
	return "//*[" + strings.Join(parts, " and ") + "]"
}

func render(c clause, m *hierarchy.Metadata) string {
	return "@" + c.attr + "=" + Literal(c.value(m))
}

// Literal quotes s as an XPath string literal.
func Literal(s string) string {
	hasDouble := strings.Contains(s, `"`)
	hasSingle := strings.Contains(s, "'")

	switch {
	case !hasDouble && !hasSingle:
		return `"` + s + `"`
	case hasSingle && !hasDouble:
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	case hasDouble && !hasSingle:
		return "'" + s + "'"
	}

	segments := strings.Split(s, `"`)
	quoted := make([]string, len(segments))
	for i, seg := range segments {
		quoted[i] = `"` + seg + `"`
	}
	return "concat(" + strings.Join(quoted, `, '"', `) + ")"
}
