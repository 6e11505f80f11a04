package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/tapresolver/pkg/config"
	"github.com/devicelab-dev/tapresolver/pkg/device"
	"github.com/devicelab-dev/tapresolver/pkg/logger"
	"github.com/devicelab-dev/tapresolver/pkg/resolver"
	"github.com/devicelab-dev/tapresolver/pkg/snapshot"
	"github.com/devicelab-dev/tapresolver/pkg/uiautomator2"
)

// engine bundles the components a device-backed command needs.
type engine struct {
	cfg      *config.Config
	adb      *device.ADB
	selector *device.Selector
	cache    *snapshot.Cache
	resolver *resolver.Resolver
	close    func()
}

// loadConfig resolves configuration: file, then TAPRESOLVER_* env, then flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if c.IsSet("bridge") {
		cfg.Bridge.Kind = c.String("bridge")
	}
	if c.IsSet("adb-path") {
		cfg.Bridge.ADBPath = c.String("adb-path")
	}
	if c.Bool("debug-dump") {
		cfg.Resolver.DebugDump = true
	}
	if c.Bool("verbose") {
		cfg.Log.Verbose = true
	}
	if c.IsSet("log-file") {
		cfg.Log.File = c.String("log-file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogging sends warnings (verbose: everything) to stderr and, when
// configured, JSON lines to the log file.
func initLogging(cfg *config.Config) error {
	level := zerolog.WarnLevel
	if cfg.Log.Verbose {
		level = zerolog.DebugLevel
	}
	return logger.Init(logger.Config{
		FilePath: cfg.Log.File,
		Console:  true,
		Level:    level,
	})
}

// resolverConfig maps file settings onto the resolver's policy.
func resolverConfig(cfg *config.Config) resolver.Config {
	r := cfg.Resolver
	return resolver.Config{
		Attempts:        r.Attempts,
		RetryDelay:      r.RetryDelay,
		Tolerance:       r.Tolerance,
		ProximityRadius: r.ProximityRadius,
		SnippetLength:   r.SnippetLength,
		DebugDump:       r.DebugDump,
		DumpDir:         cfg.DumpDir(),
	}
}

func newEngine(c *cli.Context) (*engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if err := initLogging(cfg); err != nil {
		return nil, err
	}

	adb, err := device.NewADB(cfg.Bridge.ADBPath)
	if err != nil {
		logger.Close()
		return nil, err
	}

	e := &engine{
		cfg:      cfg,
		adb:      adb,
		selector: device.NewSelector(adb, c.String("device")),
		close:    logger.Close,
	}

	var src snapshot.Source
	switch cfg.Bridge.Kind {
	case config.BridgeUIAutomator2:
		uia2 := uiautomator2.NewSource(uia2Connect(adb, cfg.Bridge))
		src = uia2
		e.close = func() {
			uia2.Close()
			logger.Close()
		}
	default:
		src = device.NewBridge(adb)
	}

	e.cache = snapshot.New(src, snapshot.Options{
		Window:      cfg.Resolver.FreshnessWindow,
		StaleFactor: cfg.Resolver.StaleFactor,
	})
	e.resolver = resolver.New(e.cache, resolverConfig(cfg))
	return e, nil
}

// uia2Connect forwards the server port of a running UIAutomator2 instance
// and waits for it to report ready.
func uia2Connect(adb *device.ADB, bc config.BridgeConfig) uiautomator2.ConnectFunc {
	return func(ctx context.Context, deviceID string) (*uiautomator2.Client, error) {
		var client *uiautomator2.Client
		if bc.Port != 0 {
			if err := adb.Forward(ctx, deviceID, bc.Port, bc.DevicePort); err != nil {
				return nil, fmt.Errorf("port forward failed: %w", err)
			}
			client = uiautomator2.NewClientTCP(bc.Port)
		} else {
			socketPath := bc.SocketPath
			if socketPath == "" {
				socketPath = fmt.Sprintf("/tmp/uia2-%s.sock", deviceID)
			}
			// Remove stale socket file
			os.Remove(socketPath)
			if err := adb.ForwardSocket(ctx, deviceID, socketPath, bc.DevicePort); err != nil {
				return nil, fmt.Errorf("socket forward failed: %w", err)
			}
			client = uiautomator2.NewClient(socketPath)
		}

		statusCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		ready, err := client.Status(statusCtx)
		if err != nil {
			return nil, fmt.Errorf("UIAutomator2 server not reachable: %w", err)
		}
		if !ready {
			return nil, fmt.Errorf("UIAutomator2 server not ready")
		}
		return client, nil
	}
}
