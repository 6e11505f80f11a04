// Package uiautomator2 provides HTTP client for UIAutomator2 server.
package uiautomator2

// Capabilities for session creation.
type Capabilities struct {
	PlatformName   string `json:"platformName,omitempty"`
	DeviceName     string `json:"deviceName,omitempty"`
	AutomationName string `json:"automationName,omitempty"`
}

// SessionRequest for creating a session.
type SessionRequest struct {
	Capabilities Capabilities `json:"capabilities"`
}
