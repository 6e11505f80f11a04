package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devicelab-dev/tapresolver/pkg/core"
)

// Selector picks the device a resolution runs against.
type Selector struct {
	adb     *ADB
	serial  string
	timeout time.Duration
}

// NewSelector returns a selector. An empty serial means the first online device.
func NewSelector(adb *ADB, serial string) *Selector {
	return &Selector{adb: adb, serial: serial, timeout: 10 * time.Second}
}

// Active returns the selected device serial, or core.ErrNoDevice.
func (s *Selector) Active() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	devices, err := s.adb.ListDevices(ctx)
	if err != nil {
		return "", core.ErrNoDevice.WithCause(err)
	}

	if s.serial == "" {
		for _, d := range devices {
			if d.Online() {
				return d.Serial, nil
			}
		}
		return "", noDevicesError(devices)
	}

	for _, d := range devices {
		if d.Serial != s.serial {
			continue
		}
		if !d.Online() {
			return "", core.ErrNoDevice.WithMessage(fmt.Sprintf("device %s is %s", d.Serial, d.State))
		}
		return d.Serial, nil
	}
	return "", core.ErrNoDevice.WithMessage(fmt.Sprintf("device %s not found", s.serial))
}

// noDevicesError explains why none of the listed devices is usable.
func noDevicesError(devices []Entry) error {
	if len(devices) == 0 {
		return core.ErrNoDevice
	}
	states := make([]string, 0, len(devices))
	for _, d := range devices {
		states = append(states, d.Serial+" ("+d.State+")")
	}
	return core.ErrNoDevice.WithDetails(map[string]interface{}{
		"devices": strings.Join(states, ", "),
	})
}
