// Package snapshot keeps the most recent accessibility dump per device and
// decides when it is still fresh enough to reuse.
package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/tapresolver/pkg/hierarchy"
	"github.com/devicelab-dev/tapresolver/pkg/logger"
)

// Defaults for the freshness policy.
const (
	DefaultWindow      = 1500 * time.Millisecond
	DefaultStaleFactor = 2
)

// Source fetches a live hierarchy dump for a device.
// Implementations: device.Bridge (adb), uiautomator2.Source (HTTP).
type Source interface {
	Hierarchy(ctx context.Context, deviceID string) (string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, deviceID string) (string, error)

// Hierarchy calls f.
func (f SourceFunc) Hierarchy(ctx context.Context, deviceID string) (string, error) {
	return f(ctx, deviceID)
}

// Snapshot is one captured dump.
type Snapshot struct {
	XML        string
	CapturedAt time.Time
}

// Result is what Fetch hands back. XML is empty when nothing usable exists.
type Result struct {
	XML       string
	FromCache bool
	Age       time.Duration
}

// Options configures a Cache. Zero values fall back to the defaults.
type Options struct {
	Window      time.Duration
	StaleFactor int
	Now         func() time.Time
	Logger      *zerolog.Logger // Defaults to the "snapshot" module logger
}

// Cache holds at most one snapshot per device.
// Concurrent fetches for the same device are not serialized; the last
// successful one wins the slot.
type Cache struct {
	source      Source
	window      time.Duration
	staleFactor int
	now         func() time.Time
	log         zerolog.Logger

	mu      sync.Mutex
	entries map[string]Snapshot
}

// New creates a Cache backed by src.
func New(src Source, opts Options) *Cache {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.StaleFactor <= 0 {
		opts.StaleFactor = DefaultStaleFactor
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := logger.Module("snapshot")
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Cache{
		source:      src,
		window:      opts.Window,
		staleFactor: opts.StaleFactor,
		now:         opts.Now,
		log:         log,
		entries:     make(map[string]Snapshot),
	}
}

// Fetch returns a dump for the device.
//
// Without forceFresh a snapshot younger than the window is served as is.
// Otherwise a live fetch is made; if it fails or lacks the root marker,
// a snapshot younger than StaleFactor windows is served instead.
func (c *Cache) Fetch(ctx context.Context, deviceID string, forceFresh bool) Result {
	cached, ok := c.Peek(deviceID)
	now := c.now()

	if ok && !forceFresh {
		if age := now.Sub(cached.CapturedAt); age < c.window {
			return Result{XML: cached.XML, FromCache: true, Age: age}
		}
	}

	xmlData, err := c.source.Hierarchy(ctx, deviceID)
	if err == nil && xmlData != "" && hierarchy.HasRootMarker(xmlData) {
		c.store(deviceID, Snapshot{XML: xmlData, CapturedAt: c.now()})
		return Result{XML: xmlData}
	}

	c.log.Debug().
		Str("deviceId", deviceID).
		Err(err).
		Int("length", len(xmlData)).
		Msg("live hierarchy fetch unusable, trying cached snapshot")

	if ok {
		age := c.now().Sub(cached.CapturedAt)
		if age < time.Duration(c.staleFactor)*c.window {
			return Result{XML: cached.XML, FromCache: true, Age: age}
		}
	}
	return Result{}
}

// Peek returns the current snapshot for the device without fetching.
func (c *Cache) Peek(deviceID string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[deviceID]
	return s, ok
}

// Invalidate drops the device's snapshot.
func (c *Cache) Invalidate(deviceID string) {
	c.mu.Lock()
	delete(c.entries, deviceID)
	c.mu.Unlock()
}

func (c *Cache) store(deviceID string, s Snapshot) {
	c.mu.Lock()
	c.entries[deviceID] = s
	c.mu.Unlock()
}
