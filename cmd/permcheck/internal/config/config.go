// Package config loads the optional permcheck.yaml project file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/permissions/pkg/permissions"
)

// FileName is the project configuration file looked up in the project root.
const FileName = "permcheck.yaml"

// DefaultFlow names the flow used when none is configured or requested.
const DefaultFlow = "default"

// Config represents permcheck.yaml.
type Config struct {
	App    AppConfig           `yaml:"app"`
	Device DeviceConfig        `yaml:"device"`
	Flows  map[string][]string `yaml:"flows"`
}

// AppConfig identifies the application whose permissions are inspected.
type AppConfig struct {
	ID string `yaml:"id,omitempty"`
}

// DeviceConfig selects the device to query.
type DeviceConfig struct {
	Serial string `yaml:"serial,omitempty"`
}

// Resolved contains configuration with defaults applied.
type Resolved struct {
	Root       string
	ModulePath string
	AppID      string
	Serial     string
	Flows      map[string][]string
}

// LoadOptional reads permcheck.yaml if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return &cfg, nil
}

// Resolve loads permcheck.yaml (if present) and resolves defaults. The app ID
// defaults to one derived from the module path in go.mod.
func Resolve(dir string) (*Resolved, error) {
	modulePath, err := modulePath(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	appID := strings.TrimSpace(cfg.App.ID)
	if appID == "" {
		appID = defaultAppID(modulePath)
	}
	if err := validateAppID(appID); err != nil {
		return nil, err
	}

	flows, err := resolveFlows(cfg.Flows)
	if err != nil {
		return nil, err
	}

	return &Resolved{
		Root:       dir,
		ModulePath: modulePath,
		AppID:      appID,
		Serial:     strings.TrimSpace(cfg.Device.Serial),
		Flows:      flows,
	}, nil
}

// Flow returns the permissions of the named flow. An empty name selects
// DefaultFlow, or the only flow when exactly one is configured.
func (r *Resolved) Flow(name string) (string, []string, error) {
	if name == "" {
		if _, ok := r.Flows[DefaultFlow]; ok || len(r.Flows) != 1 {
			name = DefaultFlow
		} else {
			name = r.FlowNames()[0]
		}
	}
	perms, ok := r.Flows[name]
	if !ok {
		return "", nil, fmt.Errorf("unknown flow %q (configured: %s)", name, strings.Join(r.FlowNames(), ", "))
	}
	return name, perms, nil
}

// FlowNames returns the configured flow names in sorted order.
func (r *Resolved) FlowNames() []string {
	names := make([]string, 0, len(r.Flows))
	for name := range r.Flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindProjectRoot walks up from the current directory to find go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go module (no go.mod found)")
		}
		dir = parent
	}
}

func resolveFlows(flows map[string][]string) (map[string][]string, error) {
	if len(flows) == 0 {
		return map[string][]string{DefaultFlow: {permissions.Camera}}, nil
	}
	resolved := make(map[string][]string, len(flows))
	for name, perms := range flows {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("flows: empty flow name")
		}
		if len(perms) == 0 {
			return nil, fmt.Errorf("flows.%s: no permissions listed", name)
		}
		out := make([]string, 0, len(perms))
		for _, p := range perms {
			p = strings.TrimSpace(p)
			if p == "" {
				return nil, fmt.Errorf("flows.%s: empty permission name", name)
			}
			out = append(out, p)
		}
		resolved[name] = out
	}
	return resolved, nil
}

func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

// defaultAppID turns a module path like github.com/acme/capture/v2 into
// com.github.acme.capture.
func defaultAppID(modulePath string) string {
	if prefix, _, ok := module.SplitPathVersion(modulePath); ok {
		modulePath = prefix
	}
	parts := strings.Split(modulePath, "/")
	if len(parts) < 2 || !strings.Contains(parts[0], ".") {
		return "com.example." + sanitizeSegment(parts[len(parts)-1])
	}

	host := strings.Split(parts[0], ".")
	for i, j := 0, len(host)-1; i < j; i, j = i+1, j-1 {
		host[i], host[j] = host[j], host[i]
	}

	segments := host
	for _, p := range parts[1:] {
		if p != "" {
			segments = append(segments, p)
		}
	}
	for i, segment := range segments {
		segments[i] = sanitizeSegment(segment)
	}
	return strings.Join(segments, ".")
}

// sanitizeSegment lowercases a segment and keeps only characters valid in an
// application ID, prefixing segments that would start with a digit.
func sanitizeSegment(segment string) string {
	var out []rune
	for _, r := range strings.TrimSpace(segment) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		}
	}
	if len(out) == 0 {
		return "app"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = append([]rune{'a'}, out...)
	}
	return string(out)
}

func validateAppID(appID string) error {
	if !strings.Contains(appID, ".") {
		return fmt.Errorf("app.id must contain at least one '.' (got %q)", appID)
	}
	for _, segment := range strings.Split(appID, ".") {
		if segment == "" {
			return fmt.Errorf("app.id contains an empty segment (%q)", appID)
		}
		if segment[0] >= '0' && segment[0] <= '9' || segment[0] == '_' {
			return fmt.Errorf("app.id segments must start with a letter (%q)", appID)
		}
		for _, r := range segment {
			if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				return fmt.Errorf("app.id contains invalid character %q in %q", r, appID)
			}
		}
	}
	return nil
}
