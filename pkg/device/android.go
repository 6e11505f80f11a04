// Package device provides Android device access via ADB.
package device

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/devicelab-dev/tapresolver/pkg/logger"
)

// Entry is one line of `adb devices -l`.
type Entry struct {
	Serial string `json:"serial"`
	State  string `json:"state"` // device, offline, unauthorized
	Model  string `json:"model,omitempty"`
}

// Online reports whether adb can talk to the device.
func (e Entry) Online() bool {
	return e.State == "device"
}

// runFunc executes a binary and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) (string, error)

// ADB wraps the adb binary.
type ADB struct {
	path string
	run  runFunc
}

// NewADB locates adb. An explicit path wins over PATH lookup.
func NewADB(path string) (*ADB, error) {
	if path == "" {
		var err error
		path, err = findADB()
		if err != nil {
			return nil, err
		}
	}
	return &ADB{path: path, run: execRun}, nil
}

// Path returns the adb binary in use.
func (a *ADB) Path() string {
	return a.path
}

// ListDevices returns every device adb knows about, including offline ones.
func (a *ADB) ListDevices(ctx context.Context) ([]Entry, error) {
	out, err := a.run(ctx, a.path, "devices", "-l")
	if err != nil {
		return nil, fmt.Errorf("adb devices: %w", err)
	}
	return parseDevices(out), nil
}

// FirstAvailable returns the first online device.
func (a *ADB) FirstAvailable(ctx context.Context) (Entry, error) {
	devices, err := a.ListDevices(ctx)
	if err != nil {
		return Entry{}, err
	}
	for _, d := range devices {
		if d.Online() {
			return d, nil
		}
	}
	return Entry{}, noDevicesError(devices)
}

// Shell executes a shell command on the device.
func (a *ADB) Shell(ctx context.Context, serial, cmd string) (string, error) {
	return a.exec(ctx, serial, "shell", cmd)
}

// ForwardSocket forwards a Unix socket to a device TCP port.
func (a *ADB) ForwardSocket(ctx context.Context, serial, socketPath string, remotePort int) error {
	_, err := a.exec(ctx, serial, "forward", fmt.Sprintf("localfilesystem:%s", socketPath), fmt.Sprintf("tcp:%d", remotePort))
	return err
}

// Forward creates a port forward from local to device.
func (a *ADB) Forward(ctx context.Context, serial string, localPort, remotePort int) error {
	_, err := a.exec(ctx, serial, "forward", fmt.Sprintf("tcp:%d", localPort), fmt.Sprintf("tcp:%d", remotePort))
	return err
}

// exec runs an adb command scoped to a device.
func (a *ADB) exec(ctx context.Context, serial string, args ...string) (string, error) {
	cmdArgs := make([]string, 0, len(args)+2)
	if serial != "" {
		if err := ValidateSerial(serial); err != nil {
			return "", err
		}
		cmdArgs = append(cmdArgs, "-s", serial)
	}
	cmdArgs = append(cmdArgs, args...)

	out, err := a.run(ctx, a.path, cmdArgs...)
	if err != nil {
		return "", fmt.Errorf("adb %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// ValidateSerial rejects serials that could break out of the shell command.
func ValidateSerial(serial string) error {
	if serial == "" {
		return fmt.Errorf("device serial is empty")
	}
	for _, p := range []string{";", "&", "|", "`", "$", "(", ")", "<", ">", "'", "\"", "\\", " "} {
		if strings.Contains(serial, p) {
			return fmt.Errorf("invalid device serial %q: contains %q", serial, p)
		}
	}
	return nil
}

func parseDevices(out string) []Entry {
	var devices []Entry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") || strings.HasPrefix(line, "*") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		e := Entry{Serial: parts[0], State: parts[1]}
		for _, p := range parts[2:] {
			if k, v, ok := strings.Cut(p, ":"); ok && k == "model" {
				e.Model = v
			}
		}
		devices = append(devices, e)
	}
	return devices
}

func execRun(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.MultiWriter(&stderr, logger.GetWriter())

	if err := cmd.Run(); err != nil {
		errMsg := stderr.String()
		if errMsg == "" {
			errMsg = stdout.String()
		}
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(errMsg))
	}
	return stdout.String(), nil
}

// findADB locates the ADB binary.
func findADB() (string, error) {
	if path, err := exec.LookPath("adb"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("adb not found in PATH; ensure Android SDK is installed")
}
