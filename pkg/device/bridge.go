package device

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/tapresolver/pkg/core"
	"github.com/devicelab-dev/tapresolver/pkg/hierarchy"
	"github.com/devicelab-dev/tapresolver/pkg/logger"
)

// DumpFile is where uiautomator writes the dump on the device.
const DumpFile = "/data/local/tmp/view.xml"

// Bridge captures hierarchies with `uiautomator dump`.
type Bridge struct {
	adb *ADB
	log zerolog.Logger
}

// NewBridge returns a Bridge over adb.
func NewBridge(adb *ADB) *Bridge {
	return &Bridge{adb: adb, log: logger.Module("bridge")}
}

// Hierarchy dumps and reads back the accessibility tree in one adb round trip.
func (b *Bridge) Hierarchy(ctx context.Context, deviceID string) (string, error) {
	cmd := fmt.Sprintf("uiautomator dump %s && cat %s", DumpFile, DumpFile)
	out, err := b.adb.Shell(ctx, deviceID, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", core.ErrDeviceDisconnected.WithCause(err)
	}

	xmlData := hierarchy.Clean(out)
	if xmlData == "" || !hierarchy.HasRootMarker(xmlData) {
		b.log.Debug().Str("deviceId", deviceID).Int("bytes", len(out)).Msg("dump produced no hierarchy")
		return "", core.ErrHierarchyUnavailable
	}
	return xmlData, nil
}
