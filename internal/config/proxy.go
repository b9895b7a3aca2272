package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// ProxySettings tunes the translation proxy for local models. Claude Code
// sends requests sized for cloud models; these limits keep a 30B-class
// local model from being overwhelmed.
type ProxySettings struct {
	MaxTokensCap         int           `yaml:"max_tokens_cap"`          // ceiling applied to max_tokens
	SystemPromptMaxChars int           `yaml:"system_prompt_max_chars"` // system prompt truncation point
	AllowedTools         []string      `yaml:"allowed_tools"`           // nil disables tool filtering
	UpstreamTimeout      time.Duration `yaml:"upstream_timeout"`        // per-request runtime timeout
}

// DefaultProxySettings returns the tunables used when no proxy.yaml exists.
func DefaultProxySettings() ProxySettings {
	return ProxySettings{
		MaxTokensCap:         4096,
		SystemPromptMaxChars: 4000,
		AllowedTools: []string{
			"Bash", "Read", "Write", "Edit", "Glob", "Grep",
			"WebFetch", "WebSearch", "NotebookEdit",
		},
		UpstreamTimeout: 300 * time.Second,
	}
}

// ProxySettingsPath returns the optional per-user proxy tunables file.
func ProxySettingsPath() string {
	p := Path()
	if p == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(p), "proxy.yaml")
}

// LoadProxySettings reads proxy tunables from path. A missing file yields
// the defaults without error.
func LoadProxySettings(path string) (ProxySettings, error) {
	settings := DefaultProxySettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read proxy settings '%s': %w", path, err)
	}

	return LoadProxySettingsFromBytes(data)
}

// LoadProxySettingsFromBytes parses proxy tunables from raw YAML bytes.
// Supports ${VAR:-default} env var expansion.
func LoadProxySettingsFromBytes(data []byte) (ProxySettings, error) {
	settings := DefaultProxySettings()

	expanded := expandEnvWithDefaults(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &settings); err != nil {
		return settings, fmt.Errorf("failed to parse proxy settings: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("invalid proxy settings: %w", err)
	}
	return settings, nil
}

// Validate checks the proxy tunables.
func (s ProxySettings) Validate() error {
	if s.MaxTokensCap < 1 {
		return fmt.Errorf("max_tokens_cap must be positive, got %d", s.MaxTokensCap)
	}
	if s.SystemPromptMaxChars < 1 {
		return fmt.Errorf("system_prompt_max_chars must be positive, got %d", s.SystemPromptMaxChars)
	}
	if s.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream_timeout must be positive, got %s", s.UpstreamTimeout)
	}
	return nil
}

// ToolAllowed reports whether name passes the tool filter. An empty
// allow-list disables filtering entirely.
func (s ProxySettings) ToolAllowed(name string) bool {
	if len(s.AllowedTools) == 0 {
		return true
	}
	for _, t := range s.AllowedTools {
		if t == name {
			return true
		}
	}
	return false
}

// expandEnvWithDefaults expands environment variables with support for
// default values. Supports both ${VAR} and ${VAR:-default} syntax.
func expandEnvWithDefaults(s string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// ExpandEnvWithDefaults expands environment variables with support for
// default values. Exported for reuse outside this package.
func ExpandEnvWithDefaults(s string) string {
	return expandEnvWithDefaults(s)
}
