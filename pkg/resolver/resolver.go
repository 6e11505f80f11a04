// Package resolver maps a tap coordinate on a device to the element under it
// and a locator that finds that element again.
package resolver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/devicelab-dev/tapresolver/pkg/hierarchy"
	"github.com/devicelab-dev/tapresolver/pkg/locator"
	"github.com/devicelab-dev/tapresolver/pkg/logger"
	"github.com/devicelab-dev/tapresolver/pkg/match"
	"github.com/devicelab-dev/tapresolver/pkg/snapshot"
)

// ElementMatch is a resolved element. The caller owns it.
type ElementMatch struct {
	Metadata hierarchy.Metadata `json:"metadata"`
	Locator  string             `json:"locator"`
}

// SnapshotFetcher is the slice of snapshot.Cache the resolver depends on.
type SnapshotFetcher interface {
	Fetch(ctx context.Context, deviceID string, forceFresh bool) snapshot.Result
}

// DeviceSelector picks the device to resolve against.
// It returns core.ErrNoDevice when nothing is connected.
type DeviceSelector interface {
	Active() (string, error)
}

// Resolver runs the two-attempt resolution policy.
type Resolver struct {
	snapshots SnapshotFetcher
	cfg       Config
	log       zerolog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for attempt and diagnostic records.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// New creates a Resolver.
func New(snapshots SnapshotFetcher, cfg Config, opts ...Option) *Resolver {
	r := &Resolver{
		snapshots: snapshots,
		cfg:       cfg.withDefaults(),
		log:       logger.Module("resolver"),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds the element at (x, y) on the device. It never fails: any
// device or parsing problem is logged and yields nil.
func (r *Resolver) Resolve(ctx context.Context, x, y int, deviceID string) *ElementMatch {
	for i := 0; i < r.cfg.Attempts; i++ {
		label := "fresh"
		if i > 0 {
			label = "retry"
			// The UI may still be settling after the tap
			if err := r.sleep(ctx, r.cfg.RetryDelay); err != nil {
				r.log.Warn().Err(err).Str("deviceId", deviceID).Msg("resolution cancelled before retry")
				return nil
			}
		}
		if m := r.attempt(ctx, x, y, deviceID, label); m != nil {
			return m
		}
	}

	r.log.Warn().
		Str("deviceId", deviceID).
		Int("x", x).
		Int("y", y).
		Int("attempts", r.cfg.Attempts).
		Msg("no element resolved at tap point")
	return nil
}

// ResolveActive asks the selector for the device first. The selector's error
// is returned unchanged; resolution itself still never fails.
func (r *Resolver) ResolveActive(ctx context.Context, sel DeviceSelector, x, y int) (*ElementMatch, error) {
	deviceID, err := sel.Active()
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, x, y, deviceID), nil
}

// ResolveXML resolves against an already captured dump. Used for offline
// inspection of saved dumps; no retry.
func (r *Resolver) ResolveXML(xmlData string, x, y int) *ElementMatch {
	root, err := hierarchy.Parse(xmlData)
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to parse hierarchy")
		return nil
	}
	return r.pick(match.Flatten(root), x, y)
}

func (r *Resolver) attempt(ctx context.Context, x, y int, deviceID, label string) *ElementMatch {
	res := r.snapshots.Fetch(ctx, deviceID, true)
	if res.XML == "" {
		r.log.Warn().Str("deviceId", deviceID).Str("label", label).Msg("no hierarchy available")
		return nil
	}

	root, err := hierarchy.Parse(res.XML)
	if err != nil {
		r.log.Warn().Err(err).Str("deviceId", deviceID).Str("label", label).Msg("failed to parse hierarchy")
		return nil
	}

	entries := match.Flatten(root)
	if m := r.pick(entries, x, y); m != nil {
		r.log.Debug().
			Str("deviceId", deviceID).
			Str("label", label).
			Bool("fromCache", res.FromCache).
			Str("locator", m.Locator).
			Msg("element resolved")
		return m
	}

	diag := Diagnostic{
		DeviceID:   deviceID,
		X:          x,
		Y:          y,
		NodeCount:  root.Count(),
		FromCache:  res.FromCache,
		Label:      label,
		XMLSnippet: truncate(res.XML, r.cfg.SnippetLength),
	}
	r.log.Warn().EmbedObject(diag).Msg("no candidate at tap point")

	if r.cfg.DebugDump {
		if path, err := r.dump(res.XML, deviceID, label); err != nil {
			r.log.Warn().Err(err).Msg("failed to save hierarchy dump")
		} else {
			r.log.Info().Str("path", path).Msg("saved hierarchy dump")
		}
	}
	return nil
}

func (r *Resolver) pick(entries []match.Entry, x, y int) *ElementMatch {
	c := match.Containment(entries, x, y, r.cfg.Tolerance)
	if c == nil {
		c = match.Proximity(entries, x, y, r.cfg.ProximityRadius)
	}
	if c == nil {
		return nil
	}
	return &ElementMatch{
		Metadata: *c.Meta,
		Locator:  locator.Build(c.Meta),
	}
}

func (r *Resolver) dump(xmlData, deviceID, label string) (string, error) {
	dir := r.cfg.DumpDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	name := "hierarchy-" + sanitize(deviceID) + "-" + label + "-" + uuid.NewString() + ".xml"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(xmlData), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// sanitize keeps device serials like "192.168.1.5:5555" filesystem-safe.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
