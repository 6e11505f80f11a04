// Package hierarchy parses Android accessibility dumps into a read-only node
// tree and flattens node attributes into metadata records.
package hierarchy

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/devicelab-dev/tapresolver/pkg/core"
)

// RootMarker must appear in a dump for it to be treated as a hierarchy.
const RootMarker = "<hierarchy"

// Node is one element of the accessibility tree.
// Attrs is nil for elements that carried no attributes at all.
type Node struct {
	Tag      string
	Attrs    map[string]string
	Children []*Node
}

// Attr returns the first non-empty value among the given attribute names.
func (n *Node) Attr(names ...string) string {
	for _, name := range names {
		if v := n.Attrs[name]; v != "" {
			return v
		}
	}
	return ""
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// HasRootMarker reports whether the payload looks like a hierarchy dump.
func HasRootMarker(xmlData string) bool {
	return strings.Contains(xmlData, RootMarker)
}

// Clean strips shell noise around a dump: anything before the XML prolog
// (or the root element when there is no prolog) and anything after the last '>'.
func Clean(raw string) string {
	start := strings.Index(raw, "<?xml")
	if start == -1 {
		start = strings.Index(raw, RootMarker)
	}
	if start == -1 {
		return ""
	}
	out := raw[start:]
	if end := strings.LastIndex(out, ">"); end != -1 {
		out = out[:end+1]
	}
	return out
}

// Parse decodes a dump into a tree rooted at the <hierarchy> element.
// Supports both formats:
// - UIAutomator dump: <node class="..."> elements
// - Appium/UIA2 source: class name as element tag (e.g., <android.widget.FrameLayout>)
func Parse(xmlData string) (*Node, error) {
	if !HasRootMarker(xmlData) {
		return nil, core.ErrInvalidHierarchy.WithMessage("invalid page source: no hierarchy element found")
	}

	decoder := xml.NewDecoder(strings.NewReader(escapeBareAmpersands(xmlData)))
	decoder.Strict = false

	var parseElement func(start xml.StartElement) (*Node, error)
	parseElement = func(start xml.StartElement) (*Node, error) {
		n := &Node{Tag: start.Name.Local}
		if len(start.Attr) > 0 {
			n.Attrs = make(map[string]string, len(start.Attr))
			for _, a := range start.Attr {
				n.Attrs[a.Name.Local] = a.Value
			}
		}
		for {
			token, err := decoder.Token()
			if err != nil {
				return n, err
			}
			switch t := token.(type) {
			case xml.StartElement:
				child, err := parseElement(t)
				if child != nil {
					n.Children = append(n.Children, child)
				}
				if err != nil {
					return n, err
				}
			case xml.EndElement:
				return n, nil
			}
		}
	}

	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, core.ErrInvalidHierarchy.WithMessage("invalid page source: no hierarchy element found")
			}
			return nil, core.ErrInvalidHierarchy.WithCause(err)
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "hierarchy" {
			// Skip wrappers until the root element shows up
			continue
		}
		root, err := parseElement(start)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, core.ErrInvalidHierarchy.WithCause(err)
		}
		if err != nil && len(root.Children) == 0 {
			return nil, core.ErrInvalidHierarchy.WithCause(err)
		}
		return root, nil
	}
}

// escapeBareAmpersands rewrites '&' that does not start an entity reference.
// uiautomator dumps occasionally contain raw '&' inside text attributes.
func escapeBareAmpersands(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		if s[i] == '&' && !isEntityAt(s, i) {
			b.WriteString("&amp;")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isEntityAt(s string, i int) bool {
	end := strings.IndexByte(s[i:], ';')
	if end < 2 || end > 10 {
		return false
	}
	name := s[i+1 : i+end]
	if name[0] == '#' {
		digits := name[1:]
		if strings.HasPrefix(digits, "x") || strings.HasPrefix(digits, "X") {
			digits = digits[1:]
			return digits != "" && strings.Trim(digits, "0123456789abcdefABCDEF") == ""
		}
		return digits != "" && strings.Trim(digits, "0123456789") == ""
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}
