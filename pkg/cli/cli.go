// Package cli provides the command-line interface for tapresolver.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Usage:   "Device serial (default: first online device)",
		EnvVars: []string{"TAPRESOLVER_DEVICE", "ANDROID_SERIAL"},
	},
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Config file (default: ./tapresolver.yaml if present)",
		EnvVars: []string{"TAPRESOLVER_CONFIG"},
	},
	&cli.StringFlag{
		Name:  "bridge",
		Usage: "Hierarchy source: adb or uiautomator2",
	},
	&cli.StringFlag{
		Name:  "adb-path",
		Usage: "Path to the adb binary",
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable verbose logging",
		EnvVars: []string{"TAPRESOLVER_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "debug-dump",
		Usage: "Save the raw hierarchy of taps that resolve to nothing",
	},
	&cli.StringFlag{
		Name:  "log-file",
		Usage: "Append JSON logs to this file",
	},
}

// NewApp builds the CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "tapresolver",
		Usage:   "Resolve screen taps on Android devices to stable element locators",
		Version: Version,
		Description: `tapresolver captures the accessibility hierarchy of a connected Android
device and maps a tap coordinate to the element under it, with an XPath
locator that finds the element again.

Examples:
  tapresolver resolve --x 540 --y 1210
  tapresolver locate --file dumps/hierarchy-emulator-5554-retry-1f0c.xml --x 540 --y 1210
  tapresolver --bridge uiautomator2 hierarchy --compact
  tapresolver devices`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			resolveCommand,
			locateCommand,
			recordCommand,
			hierarchyCommand,
			devicesCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	// .env is optional
	_ = godotenv.Load()

	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
