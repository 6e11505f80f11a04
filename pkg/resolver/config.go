package resolver

import "time"

// Config holds the resolution policy knobs.
type Config struct {
	Attempts        int           // Total attempts, first one included (default: 2)
	RetryDelay      time.Duration // Pause before each retry (default: 120ms)
	Tolerance       int           // Containment slack in px (default: 8)
	ProximityRadius float64       // Near-miss radius in px (default: 28)
	SnippetLength   int           // XML chars kept in the no-match log (default: 2000, 0 disables)
	DebugDump       bool          // Write the raw XML of unmatched taps to DumpDir
	DumpDir         string
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Attempts:        2,
		RetryDelay:      120 * time.Millisecond,
		Tolerance:       8,
		ProximityRadius: 28,
		SnippetLength:   2000,
	}
}

// withDefaults replaces out-of-range values with the defaults.
// Zero tolerance and zero delay are valid.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Attempts <= 0 {
		c.Attempts = d.Attempts
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.Tolerance < 0 {
		c.Tolerance = d.Tolerance
	}
	if c.ProximityRadius <= 0 {
		c.ProximityRadius = d.ProximityRadius
	}
	if c.SnippetLength < 0 {
		c.SnippetLength = 0
	}
	return c
}

