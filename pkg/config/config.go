// Package config handles configuration for tapresolver.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/tapresolver/pkg/core"
)

// Bridge kinds.
const (
	BridgeADB          = "adb"
	BridgeUIAutomator2 = "uiautomator2"
)

// Config represents the workspace configuration (tapresolver.yaml).
type Config struct {
	Resolver ResolverConfig `yaml:"resolver"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Log      LogConfig      `yaml:"log"`
}

// ResolverConfig tunes hierarchy caching and tap resolution.
type ResolverConfig struct {
	FreshnessWindow time.Duration `yaml:"freshnessWindow"` // Snapshot reuse window (default: 1500ms)
	StaleFactor     int           `yaml:"staleFactor"`     // Stale fallback limit, in windows (default: 2)
	Attempts        int           `yaml:"attempts"`        // Capture attempts per tap (default: 2)
	RetryDelay      time.Duration `yaml:"retryDelay"`      // Pause before a retry (default: 120ms)
	Tolerance       int           `yaml:"tolerance"`       // Containment slack in px (default: 8)
	ProximityRadius float64       `yaml:"proximityRadius"` // Near-miss radius in px (default: 28)
	SnippetLength   int           `yaml:"snippetLength"`   // XML chars kept in no-match logs (default: 2000)
	DebugDump       bool          `yaml:"debugDump"`       // Save raw XML of unmatched taps
	DumpDir         string        `yaml:"dumpDir"`         // Default: <home>/dumps
}

// BridgeConfig selects how hierarchies are captured.
type BridgeConfig struct {
	Kind       string `yaml:"kind"`       // adb or uiautomator2
	ADBPath    string `yaml:"adbPath"`    // Default: adb from PATH
	SocketPath string `yaml:"socketPath"` // UIAutomator2 unix socket (Linux/Mac)
	Port       int    `yaml:"port"`       // UIAutomator2 local TCP port (Windows)
	DevicePort int    `yaml:"devicePort"` // UIAutomator2 port on device (default: 6790)
}

// LogConfig controls log output.
type LogConfig struct {
	File    string `yaml:"file"`
	Verbose bool   `yaml:"verbose"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Resolver: ResolverConfig{
			FreshnessWindow: 1500 * time.Millisecond,
			StaleFactor:     2,
			Attempts:        2,
			RetryDelay:      120 * time.Millisecond,
			Tolerance:       8,
			ProximityRadius: 28,
			SnippetLength:   2000,
		},
		Bridge: BridgeConfig{
			Kind:       BridgeADB,
			DevicePort: 6790,
		},
	}
}

// Load loads configuration from a file. Keys missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, core.ErrInvalidConfig.WithCause(fmt.Errorf("%s: %w", path, err))
	}

	return cfg, nil
}

// LoadFromDir looks for tapresolver.yaml or tapresolver.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"tapresolver.yaml", "tapresolver.yml"} {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}

	// No config file found
	return Default(), nil
}

// ApplyEnv overlays TAPRESOLVER_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := envDuration("TAPRESOLVER_FRESHNESS_WINDOW", &c.Resolver.FreshnessWindow); err != nil {
		return err
	}
	if err := envInt("TAPRESOLVER_ATTEMPTS", &c.Resolver.Attempts); err != nil {
		return err
	}
	if err := envDuration("TAPRESOLVER_RETRY_DELAY", &c.Resolver.RetryDelay); err != nil {
		return err
	}
	if err := envInt("TAPRESOLVER_TOLERANCE", &c.Resolver.Tolerance); err != nil {
		return err
	}
	if v := os.Getenv("TAPRESOLVER_PROXIMITY_RADIUS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError("TAPRESOLVER_PROXIMITY_RADIUS", err)
		}
		c.Resolver.ProximityRadius = f
	}
	if v := os.Getenv("TAPRESOLVER_DEBUG_DUMP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("TAPRESOLVER_DEBUG_DUMP", err)
		}
		c.Resolver.DebugDump = b
	}
	envString("TAPRESOLVER_DUMP_DIR", &c.Resolver.DumpDir)
	envString("TAPRESOLVER_BRIDGE", &c.Bridge.Kind)
	envString("TAPRESOLVER_ADB_PATH", &c.Bridge.ADBPath)
	envString("TAPRESOLVER_LOG_FILE", &c.Log.File)
	return nil
}

// Validate rejects values the resolver cannot run with.
func (c *Config) Validate() error {
	r := c.Resolver
	switch {
	case r.FreshnessWindow <= 0:
		return invalid("resolver.freshnessWindow must be positive, got %v", r.FreshnessWindow)
	case r.StaleFactor < 1:
		return invalid("resolver.staleFactor must be at least 1, got %d", r.StaleFactor)
	case r.Attempts < 1:
		return invalid("resolver.attempts must be at least 1, got %d", r.Attempts)
	case r.RetryDelay < 0:
		return invalid("resolver.retryDelay must not be negative, got %v", r.RetryDelay)
	case r.Tolerance < 0:
		return invalid("resolver.tolerance must not be negative, got %d", r.Tolerance)
	case r.ProximityRadius <= 0:
		return invalid("resolver.proximityRadius must be positive, got %v", r.ProximityRadius)
	case r.SnippetLength < 0:
		return invalid("resolver.snippetLength must not be negative, got %d", r.SnippetLength)
	}

	switch c.Bridge.Kind {
	case BridgeADB, BridgeUIAutomator2:
	default:
		return invalid("bridge.kind must be %q or %q, got %q", BridgeADB, BridgeUIAutomator2, c.Bridge.Kind)
	}
	if c.Bridge.Port < 0 || c.Bridge.DevicePort < 0 {
		return invalid("bridge ports must not be negative")
	}
	return nil
}

// DumpDir returns the configured dump directory or <home>/dumps.
func (c *Config) DumpDir() string {
	if c.Resolver.DumpDir != "" {
		return c.Resolver.DumpDir
	}
	return GetDumpDir()
}

func invalid(format string, args ...interface{}) error {
	return core.ErrInvalidConfig.WithMessage("invalid configuration: " + fmt.Sprintf(format, args...))
}

func envError(name string, err error) error {
	return core.ErrInvalidConfig.WithCause(fmt.Errorf("%s: %w", name, err))
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return envError(name, err)
	}
	*dst = n
	return nil
}

func envDuration(name string, dst *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return envError(name, err)
	}
	*dst = d
	return nil
}
