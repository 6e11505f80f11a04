package uiautomator2

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/tapresolver/pkg/core"
	"github.com/devicelab-dev/tapresolver/pkg/hierarchy"
	"github.com/devicelab-dev/tapresolver/pkg/logger"
)

// ConnectFunc returns a client for a device, with transport already forwarded.
type ConnectFunc func(ctx context.Context, deviceID string) (*Client, error)

// Source serves hierarchies from a running UIAutomator2 server. Clients are
// created lazily, one per device, and dropped after a failed request so the
// next capture reconnects.
type Source struct {
	connect ConnectFunc
	caps    Capabilities
	log     zerolog.Logger

	mu      sync.Mutex
	clients map[string]*Client
}

// NewSource returns a Source that connects through connect.
func NewSource(connect ConnectFunc) *Source {
	return &Source{
		connect: connect,
		caps:    Capabilities{PlatformName: "Android", AutomationName: "UiAutomator2"},
		log:     logger.Module("uia2"),
		clients: make(map[string]*Client),
	}
}

// Hierarchy returns the page source for the device.
func (s *Source) Hierarchy(ctx context.Context, deviceID string) (string, error) {
	client, err := s.client(ctx, deviceID)
	if err != nil {
		return "", err
	}

	xmlData, err := client.Source(ctx)
	if err != nil {
		s.drop(deviceID)
		s.log.Debug().Str("deviceId", deviceID).Err(err).Msg("source request failed")
		return "", core.ErrServerUnreachable.WithCause(err)
	}
	if !hierarchy.HasRootMarker(xmlData) {
		return "", core.ErrHierarchyUnavailable
	}
	return xmlData, nil
}

// Close ends every open session.
func (s *Source) Close() error {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[string]*Client)
	s.mu.Unlock()

	var firstErr error
	for _, c := range clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Source) client(ctx context.Context, deviceID string) (*Client, error) {
	s.mu.Lock()
	c, ok := s.clients[deviceID]
	s.mu.Unlock()
	if ok {
		return c, nil
	}

	c, err := s.connect(ctx, deviceID)
	if err != nil {
		return nil, core.ErrServerUnreachable.WithCause(err)
	}
	if !c.HasSession() {
		caps := s.caps
		caps.DeviceName = deviceID
		if err := c.CreateSession(ctx, caps); err != nil {
			return nil, core.ErrServerUnreachable.WithCause(err)
		}
	}

	s.mu.Lock()
	s.clients[deviceID] = c
	s.mu.Unlock()
	return c, nil
}

func (s *Source) drop(deviceID string) {
	s.mu.Lock()
	delete(s.clients, deviceID)
	s.mu.Unlock()
}
