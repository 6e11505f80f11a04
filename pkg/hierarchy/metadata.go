package hierarchy

// Metadata is the flat attribute record of a single node.
// Boolean attributes keep their wire form ("true"/"false"/"").
type Metadata struct {
	ResourceID    string `json:"resourceId,omitempty"`
	Text          string `json:"text,omitempty"`
	Class         string `json:"class,omitempty"`
	ContentDesc   string `json:"contentDesc,omitempty"`
	Bounds        string `json:"bounds,omitempty"`
	Clickable     string `json:"clickable,omitempty"`
	Enabled       string `json:"enabled,omitempty"`
	Focusable     string `json:"focusable,omitempty"`
	Focused       string `json:"focused,omitempty"`
	Editable      string `json:"editable,omitempty"`
	Scrollable    string `json:"scrollable,omitempty"`
	VisibleToUser string `json:"visibleToUser,omitempty"`
	Package       string `json:"package,omitempty"`
}

// Extract flattens a node's attribute bag. Nodes without attributes
// (synthetic wrappers) yield nil.
func Extract(n *Node) *Metadata {
	if n == nil || n.Attrs == nil {
		return nil
	}

	class := n.Attr("class", "className")
	if class == "" && n.Tag != "node" && n.Tag != "hierarchy" {
		// Appium source: the class name is the element tag
		class = n.Tag
	}

	return &Metadata{
		ResourceID:    n.Attr("resource-id", "resourceId"),
		Text:          n.Attr("text"),
		Class:         class,
		ContentDesc:   n.Attr("content-desc", "contentDesc"),
		Bounds:        n.Attr("bounds"),
		Clickable:     n.Attr("clickable"),
		Enabled:       n.Attr("enabled"),
		Focusable:     n.Attr("focusable"),
		Focused:       n.Attr("focused"),
		Editable:      n.Attr("editable"),
		Scrollable:    n.Attr("scrollable"),
		VisibleToUser: n.Attr("visible-to-user", "visibleToUser", "displayed"),
		Package:       n.Attr("package"),
	}
}

// IsVisible reports whether the node is flagged visible to the user.
func (m *Metadata) IsVisible() bool {
	return m.VisibleToUser == "true"
}

// IsInteractive reports whether the node accepts clicks, focus or text input.
func (m *Metadata) IsInteractive() bool {
	return m.Clickable == "true" || m.Focusable == "true" || m.Editable == "true"
}

// QualityScore ranks how identifiable the node is:
// 3 for a resource id, 2 for a content description, 1 for text.
func (m *Metadata) QualityScore() int {
	score := 0
	if m.ResourceID != "" {
		score += 3
	}
	if m.ContentDesc != "" {
		score += 2
	}
	if m.Text != "" {
		score++
	}
	return score
}
