// Package adb reads an installed application's runtime permission state from
// a connected Android device.
package adb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrPackageNotFound is returned when the application is not installed on
// the device.
var ErrPackageNotFound = errors.New("package not installed on device")

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return out, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// Client runs adb against one device.
type Client struct {
	// Path is the adb executable.
	Path string
	// Serial selects the device. Empty means the only connected device.
	Serial string

	run Runner
}

// NewClient returns a client for the device with the given serial, locating
// adb under ANDROID_SDK_ROOT or ANDROID_HOME before falling back to PATH.
func NewClient(serial string) *Client {
	return &Client{
		Path:   findADB(),
		Serial: serial,
		run:    execRunner,
	}
}

// NewClientWithRunner returns a client that executes commands through run.
func NewClientWithRunner(serial string, run Runner) *Client {
	return &Client{Path: "adb", Serial: serial, run: run}
}

func findADB() string {
	if sdkRoot := os.Getenv("ANDROID_SDK_ROOT"); sdkRoot != "" {
		return filepath.Join(sdkRoot, "platform-tools", "adb")
	}
	if androidHome := os.Getenv("ANDROID_HOME"); androidHome != "" {
		return filepath.Join(androidHome, "platform-tools", "adb")
	}
	return "adb"
}

func (c *Client) shell(ctx context.Context, args ...string) (string, error) {
	full := make([]string, 0, len(args)+3)
	if c.Serial != "" {
		full = append(full, "-s", c.Serial)
	}
	full = append(full, "shell")
	full = append(full, args...)
	out, err := c.run(ctx, c.Path, full...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// SDKVersion returns the device's API level.
func (c *Client) SDKVersion(ctx context.Context) (int, error) {
	out, err := c.shell(ctx, "getprop", "ro.build.version.sdk")
	if err != nil {
		return 0, err
	}
	sdk, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("unexpected sdk version %q", strings.TrimSpace(out))
	}
	return sdk, nil
}

// Snapshot reads the device's API level and the application's permission
// state.
func (c *Client) Snapshot(ctx context.Context, appID string) (*Snapshot, error) {
	sdk, err := c.SDKVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sdk version: %w", err)
	}
	out, err := c.shell(ctx, "dumpsys", "package", appID)
	if err != nil {
		return nil, fmt.Errorf("dump package %s: %w", appID, err)
	}
	states, err := ParseDumpsys(out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", appID, err)
	}
	return &Snapshot{
		AppID:  appID,
		SDKInt: sdk,
		States: states,
	}, nil
}

// Reverse forwards the device's TCP port to the same port on this machine,
// so an application streaming to localhost reaches a local listener.
func (c *Client) Reverse(ctx context.Context, port int) error {
	forward := "tcp:" + strconv.Itoa(port)
	args := make([]string, 0, 5)
	if c.Serial != "" {
		args = append(args, "-s", c.Serial)
	}
	args = append(args, "reverse", forward, forward)
	if _, err := c.run(ctx, c.Path, args...); err != nil {
		return fmt.Errorf("reverse %s: %w", forward, err)
	}
	return nil
}
