// Package config loads and persists the launcher configuration.
//
// DESIGN: The persisted store is a plain KEY="value" file, parsed against
// a fixed allow-list of keys. Nothing in the file is ever evaluated or
// executed; lines that do not match the allow-list pattern are skipped.
//
// FILES:
//   - config.go: Config struct, Load(), Save(), precedence resolution
//   - proxy.go:  proxy tunables (YAML), env var expansion, Validate()
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Defaults applied when the store is absent or a key is missing.
const (
	DefaultProxyPort   = 8082
	DefaultRuntimeHost = "http://localhost:11434"
)

// Config holds the launcher settings. Constructed once per session and
// passed by value to every component that needs it.
type Config struct {
	Model       string // model identifier; empty means auto-select by memory
	ProxyPort   int    // port the translation proxy listens on
	RuntimeHost string // base URL of the model runtime service
}

// Overrides carries explicit command-line values. A zero field means
// "not given"; a set field always wins over the persisted value.
type Overrides struct {
	Model       string
	ProxyPort   int
	RuntimeHost string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Model:       "",
		ProxyPort:   DefaultProxyPort,
		RuntimeHost: DefaultRuntimeHost,
	}
}

// keyValueLine matches KEY="value" or KEY=value with optional surrounding
// whitespace. Only lines in this exact shape are considered at all.
var keyValueLine = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9_]*)\s*=\s*(.*?)\s*$`)

// Path returns the per-user config file location:
// $XDG_CONFIG_HOME/vibe-local/config, falling back to ~/.config.
func Path() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "vibe-local", "config")
}

// Load reads the persisted store at path. A missing file is not an
// error: the defaults are returned. Unrecognized keys and malformed
// lines are silently skipped.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		m := keyValueLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key, value := m[1], unquote(m[2])

		// Exact key match against the allow-list; anything else is a
		// comment as far as this parser is concerned.
		switch key {
		case "model":
			if value != "" {
				cfg.Model = value
			}
		case "proxyPort":
			if port, err := strconv.Atoi(value); err == nil && port > 0 && port <= 65535 {
				cfg.ProxyPort = port
			}
		case "runtimeHost":
			if value != "" {
				cfg.RuntimeHost = strings.TrimRight(value, "/")
			}
		}
	}

	return cfg, nil
}

// Save writes the canonical KEY="value" form of cfg to path, creating
// the parent directory if needed. Used by the installer.
func Save(path string, cfg Config) error {
	if path == "" {
		return fmt.Errorf("config file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# vibe-local configuration\n")
	fmt.Fprintf(&b, "model=%q\n", cfg.Model)
	fmt.Fprintf(&b, "proxyPort=\"%d\"\n", cfg.ProxyPort)
	fmt.Fprintf(&b, "runtimeHost=%q\n", cfg.RuntimeHost)

	return os.WriteFile(path, []byte(b.String()), 0o600)
}

// Resolve applies explicit overrides on top of cfg and returns the final
// immutable configuration for the session.
func (c Config) Resolve(ov Overrides) Config {
	out := c
	if ov.Model != "" {
		out.Model = ov.Model
	}
	if ov.ProxyPort != 0 {
		out.ProxyPort = ov.ProxyPort
	}
	if ov.RuntimeHost != "" {
		out.RuntimeHost = strings.TrimRight(ov.RuntimeHost, "/")
	}
	return out
}

// ProxyURL returns the local proxy base URL for this configuration.
func (c Config) ProxyURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", c.ProxyPort)
}

// unquote strips one level of surrounding single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
