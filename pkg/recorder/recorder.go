// Package recorder turns taps into replayable steps.
package recorder

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/tapresolver/pkg/hierarchy"
	"github.com/devicelab-dev/tapresolver/pkg/logger"
	"github.com/devicelab-dev/tapresolver/pkg/resolver"
)

// Locator types.
const (
	LocatorXPath       = "xpath"
	LocatorCoordinates = "coordinates"
)

// Step is one recorded tap.
type Step struct {
	Action      string              `json:"action" yaml:"action"`
	X           int                 `json:"x" yaml:"x"`
	Y           int                 `json:"y" yaml:"y"`
	Locator     string              `json:"locator" yaml:"locator"`
	LocatorType string              `json:"locatorType" yaml:"locatorType"`
	Label       string              `json:"label,omitempty" yaml:"label,omitempty"`
	Element     *hierarchy.Metadata `json:"element,omitempty" yaml:"-"`
	Timestamp   time.Time           `json:"timestamp" yaml:"timestamp"`
}

// BuildTapStep records a tap. Without a match the step falls back to the
// coordinate locator "x,y".
func BuildTapStep(x, y int, m *resolver.ElementMatch) Step {
	step := Step{
		Action:    "tap",
		X:         x,
		Y:         y,
		Timestamp: time.Now(),
	}
	if m == nil || m.Locator == "" {
		step.Locator = fmt.Sprintf("%d,%d", x, y)
		step.LocatorType = LocatorCoordinates
		return step
	}

	meta := m.Metadata
	step.Locator = m.Locator
	step.LocatorType = LocatorXPath
	step.Element = &meta
	step.Label = meta.Text
	if step.Label == "" {
		step.Label = meta.ContentDesc
	}
	return step
}

// TapResolver resolves a tap to an element.
type TapResolver interface {
	Resolve(ctx context.Context, x, y int, deviceID string) *resolver.ElementMatch
}

// Invalidator drops cached state for a device.
type Invalidator interface {
	Invalidate(deviceID string)
}

// Session records the taps of one device.
type Session struct {
	ID       string
	DeviceID string

	resolver TapResolver
	cache    Invalidator
	log      zerolog.Logger

	mu      sync.Mutex
	steps   []Step
	stopped bool
}

// NewSession starts a recording session. cache may be nil.
func NewSession(deviceID string, r TapResolver, cache Invalidator) *Session {
	id := uuid.NewString()
	return &Session{
		ID:       id,
		DeviceID: deviceID,
		resolver: r,
		cache:    cache,
		log:      logger.Module("recorder").With().Str("session", id).Logger(),
	}
}

// Tap resolves and records a tap.
func (s *Session) Tap(ctx context.Context, x, y int) (Step, error) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return Step{}, fmt.Errorf("recording session %s is stopped", s.ID)
	}

	step := BuildTapStep(x, y, s.resolver.Resolve(ctx, x, y, s.DeviceID))

	s.mu.Lock()
	s.steps = append(s.steps, step)
	s.mu.Unlock()

	s.log.Info().
		Int("x", x).
		Int("y", y).
		Str("locatorType", step.LocatorType).
		Str("locator", step.Locator).
		Msg("tap recorded")
	return step, nil
}

// Steps returns a copy of the recorded steps.
func (s *Session) Steps() []Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Step, len(s.steps))
	copy(out, s.steps)
	return out
}

// Stop ends the session and drops the device's cached hierarchy.
func (s *Session) Stop() []Step {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	if s.cache != nil {
		s.cache.Invalidate(s.DeviceID)
	}
	steps := s.Steps()
	s.log.Info().Int("steps", len(steps)).Msg("recording stopped")
	return steps
}

type script struct {
	Session string `yaml:"session"`
	Device  string `yaml:"device"`
	Steps   []Step `yaml:"steps"`
}

// WriteYAML writes the recorded steps as a YAML script.
func (s *Session) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(script{Session: s.ID, Device: s.DeviceID, Steps: s.Steps()}); err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	return enc.Close()
}
