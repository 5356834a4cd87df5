// Package config holds the launcher's tunable settings and resolves the
// on-disk locations a run depends on.
//
// Every setting has a built-in default, so a settings file is optional. When
// one is present it only needs to name the values it overrides; it is decoded
// on top of Defaults().
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shinji-kodama/viewer-launcher/internal/model"
)

// DefaultPage is the entry page appended to the printed URL.
const DefaultPage = "timeline_viewer.html"

// Settings is the full set of tunables for one run.
type Settings struct {
	// Page is the path, relative to the content root, opened in the companion.
	Page string `json:"page" yaml:"page" toml:"page"`

	// DefaultPort is where the port search starts when no --port is given.
	DefaultPort int `json:"default_port" yaml:"default_port" toml:"default_port"`

	// PortRange is how many consecutive ports the search tries.
	PortRange int `json:"port_range" yaml:"port_range" toml:"port_range"`

	ServerStartTimeout    Duration `json:"server_start_timeout" yaml:"server_start_timeout" toml:"server_start_timeout"`
	FallbackTimeout       Duration `json:"fallback_timeout" yaml:"fallback_timeout" toml:"fallback_timeout"`
	HealthPollInterval    Duration `json:"health_poll_interval" yaml:"health_poll_interval" toml:"health_poll_interval"`
	HealthRequestTimeout  Duration `json:"health_request_timeout" yaml:"health_request_timeout" toml:"health_request_timeout"`
	CompanionPollInterval Duration `json:"companion_poll_interval" yaml:"companion_poll_interval" toml:"companion_poll_interval"`
	TerminateGrace        Duration `json:"terminate_grace" yaml:"terminate_grace" toml:"terminate_grace"`

	CleanupRetries int      `json:"cleanup_retries" yaml:"cleanup_retries" toml:"cleanup_retries"`
	CleanupDelay   Duration `json:"cleanup_delay" yaml:"cleanup_delay" toml:"cleanup_delay"`

	// Companions are extra browser executables tried before the built-in
	// candidate list, in order.
	Companions []string `json:"companions" yaml:"companions" toml:"companions"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Page:                  DefaultPage,
		DefaultPort:           8080,
		PortRange:             200,
		ServerStartTimeout:    Duration(3 * time.Second),
		FallbackTimeout:       Duration(300 * time.Second),
		HealthPollInterval:    Duration(500 * time.Millisecond),
		HealthRequestTimeout:  Duration(time.Second),
		CompanionPollInterval: Duration(100 * time.Millisecond),
		TerminateGrace:        Duration(5 * time.Second),
		CleanupRetries:        3,
		CleanupDelay:          Duration(200 * time.Millisecond),
		LogLevel:              "info",
	}
}

// Validate rejects settings no run could use. Errors wrap
// model.ErrConfiguration.
func (s Settings) Validate() error {
	var problems []string

	if strings.TrimSpace(s.Page) == "" {
		problems = append(problems, "page must not be empty")
	}
	if s.DefaultPort < 1 || s.DefaultPort > 65535 {
		problems = append(problems, fmt.Sprintf("default_port %d out of range 1-65535", s.DefaultPort))
	}
	if s.PortRange < 1 {
		problems = append(problems, fmt.Sprintf("port_range must be positive, got %d", s.PortRange))
	}
	if s.CleanupRetries < 1 {
		problems = append(problems, fmt.Sprintf("cleanup_retries must be at least 1, got %d", s.CleanupRetries))
	}

	positive := []struct {
		name string
		d    Duration
	}{
		{"server_start_timeout", s.ServerStartTimeout},
		{"fallback_timeout", s.FallbackTimeout},
		{"health_poll_interval", s.HealthPollInterval},
		{"health_request_timeout", s.HealthRequestTimeout},
		{"companion_poll_interval", s.CompanionPollInterval},
		{"terminate_grace", s.TerminateGrace},
	}
	for _, p := range positive {
		if p.d <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %s", p.name, p.d))
		}
	}
	if s.CleanupDelay < 0 {
		problems = append(problems, fmt.Sprintf("cleanup_delay must not be negative, got %s", s.CleanupDelay))
	}

	switch strings.ToLower(s.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level %q is not one of debug, info, warn, error", s.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid settings: %s: %w", strings.Join(problems, "; "), model.ErrConfiguration)
	}
	return nil
}
