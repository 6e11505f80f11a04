package cli

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/tapresolver/pkg/core"
	"github.com/devicelab-dev/tapresolver/pkg/device"
	"github.com/devicelab-dev/tapresolver/pkg/hierarchy"
	"github.com/devicelab-dev/tapresolver/pkg/logger"
	"github.com/devicelab-dev/tapresolver/pkg/recorder"
	"github.com/devicelab-dev/tapresolver/pkg/resolver"
)

var pointFlags = []cli.Flag{
	&cli.IntFlag{Name: "x", Usage: "Tap X coordinate in screen pixels", Required: true},
	&cli.IntFlag{Name: "y", Usage: "Tap Y coordinate in screen pixels", Required: true},
}

var resolveCommand = &cli.Command{
	Name:  "resolve",
	Usage: "Resolve a tap on the live device to an element",
	Description: `Capture the current hierarchy and print the tap step as JSON. When no
element is found the step falls back to the "x,y" coordinate locator.

Examples:
  tapresolver resolve --x 540 --y 1210
  tapresolver --device emulator-5554 --debug-dump resolve --x 12 --y 90`,
	Flags:  pointFlags,
	Action: runResolve,
}

var locateCommand = &cli.Command{
	Name:  "locate",
	Usage: "Resolve a tap against a saved hierarchy dump",
	Description: `Resolve offline against an XML dump, such as one written by --debug-dump.

Examples:
  tapresolver locate --file view.xml --x 540 --y 1210`,
	Flags: append([]cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Hierarchy XML file", Required: true},
	}, pointFlags...),
	Action: runLocate,
}

var recordCommand = &cli.Command{
	Name:  "record",
	Usage: "Record taps read from stdin as a YAML script",
	Description: `Read one tap per line ("x,y" or "x y") and resolve each against the
live device. The script is written when input ends.

Examples:
  printf '540,1210\n100 300\n' | tapresolver record
  tapresolver record --output login.yaml`,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the script here instead of stdout"},
	},
	Action: runRecord,
}

var hierarchyCommand = &cli.Command{
	Name:  "hierarchy",
	Usage: "Print the view hierarchy of the connected device",
	Description: `Print out the view hierarchy of the connected device as XML or CSV.

Examples:
  tapresolver hierarchy
  tapresolver hierarchy --compact
  tapresolver hierarchy --device emulator-5554`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "compact",
			Usage: "Output in CSV format",
		},
	},
	Action: runHierarchy,
}

var devicesCommand = &cli.Command{
	Name:   "devices",
	Usage:  "List devices known to adb",
	Action: runDevices,
}

func runResolve(c *cli.Context) error {
	e, err := newEngine(c)
	if err != nil {
		return err
	}
	defer e.close()

	x, y := c.Int("x"), c.Int("y")
	m, err := e.resolver.ResolveActive(c.Context, e.selector, x, y)
	if err != nil {
		logger.Error("cli").Err(err).Msg("device selection failed")
		return err
	}
	logger.Info("cli").Int("x", x).Int("y", y).Bool("resolved", m != nil).Msg("resolve finished")
	return writeJSON(c.App.Writer, recorder.BuildTapStep(x, y, m))
}

func runLocate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}

	data, err := os.ReadFile(c.String("file")) //#nosec G304 -- user-provided dump file
	if err != nil {
		return fmt.Errorf("read hierarchy: %w", err)
	}

	x, y := c.Int("x"), c.Int("y")
	r := resolver.New(nil, resolverConfig(cfg))
	m := r.ResolveXML(hierarchy.Clean(string(data)), x, y)
	return writeJSON(c.App.Writer, recorder.BuildTapStep(x, y, m))
}

func runRecord(c *cli.Context) error {
	e, err := newEngine(c)
	if err != nil {
		return err
	}
	defer e.close()

	serial, err := e.selector.Active()
	if err != nil {
		return err
	}

	session := recorder.NewSession(serial, e.resolver, e.cache)
	scanner := bufio.NewScanner(c.App.Reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		x, y, err := parseTap(line)
		if err != nil {
			return err
		}
		if _, err := session.Tap(c.Context, x, y); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read taps: %w", err)
	}
	steps := session.Stop()
	logger.Info("cli").Int("steps", len(steps)).Str("session", session.ID).Msg("recording finished")

	out := c.App.Writer
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	return session.WriteYAML(out)
}

func runHierarchy(c *cli.Context) error {
	e, err := newEngine(c)
	if err != nil {
		return err
	}
	defer e.close()

	serial, err := e.selector.Active()
	if err != nil {
		return err
	}

	res := e.cache.Fetch(c.Context, serial, true)
	logger.Debug("cli").Str("deviceId", serial).Bool("fromCache", res.FromCache).Int("bytes", len(res.XML)).Msg("hierarchy captured")
	if res.XML == "" {
		return core.ErrHierarchyUnavailable.WithDetails(map[string]interface{}{"device": serial})
	}

	if !c.Bool("compact") {
		_, err := fmt.Fprintln(c.App.Writer, res.XML)
		return err
	}
	root, err := hierarchy.Parse(res.XML)
	if err != nil {
		return err
	}
	return writeCompact(c.App.Writer, root)
}

func runDevices(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	adb, err := device.NewADB(cfg.Bridge.ADBPath)
	if err != nil {
		return err
	}
	devices, err := adb.ListDevices(c.Context)
	if err != nil {
		return err
	}
	return writeDevices(c.App.Writer, devices)
}

// parseTap reads "x,y" or "x y".
func parseTap(line string) (int, int, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("invalid tap %q: expected \"x,y\"", line)
	}
	x, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid tap %q: %w", line, err)
	}
	y, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid tap %q: %w", line, err)
	}
	return x, y, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeCompact prints one CSV row per node that carries attributes.
func writeCompact(w io.Writer, root *hierarchy.Node) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"depth", "class", "resource-id", "content-desc", "text", "bounds", "clickable"}); err != nil {
		return err
	}

	var walk func(n *hierarchy.Node, depth int) error
	walk = func(n *hierarchy.Node, depth int) error {
		if meta := hierarchy.Extract(n); meta != nil && meta.Bounds != "" {
			row := []string{strconv.Itoa(depth), meta.Class, meta.ResourceID, meta.ContentDesc, meta.Text, meta.Bounds, meta.Clickable}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		for _, child := range n.Children {
			if err := walk(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, 0); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func writeDevices(w io.Writer, devices []device.Entry) error {
	if len(devices) == 0 {
		_, err := fmt.Fprintln(w, "No devices attached")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIAL\tSTATE\tMODEL")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Serial, d.State, d.Model)
	}
	return tw.Flush()
}
