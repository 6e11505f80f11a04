package resolver

import "github.com/rs/zerolog"

// Diagnostic is the record logged when an attempt finds no candidate.
type Diagnostic struct {
	DeviceID   string `json:"deviceId"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	NodeCount  int    `json:"nodeCount"`
	FromCache  bool   `json:"fromCache"`
	Label      string `json:"label"`
	XMLSnippet string `json:"xmlSnippet,omitempty"`
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (d Diagnostic) MarshalZerologObject(e *zerolog.Event) {
	e.Str("deviceId", d.DeviceID).
		Int("x", d.X).
		Int("y", d.Y).
		Int("nodeCount", d.NodeCount).
		Bool("fromCache", d.FromCache).
		Str("label", d.Label)
	if d.XMLSnippet != "" {
		e.Str("xmlSnippet", d.XMLSnippet)
	}
}
