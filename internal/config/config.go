package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	cortexErrors "github.com/harunnryd/cortex/internal/errors"
	"github.com/harunnryd/cortex/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Stream     StreamConfig     `koanf:"stream"`
	Polling    PollingConfig    `koanf:"polling"`
	Confirm    ConfirmConfig    `koanf:"confirm"`
	Council    CouncilConfig    `koanf:"council"`
	Governance GovernanceConfig `koanf:"governance"`
	Daemon     DaemonConfig     `koanf:"daemon"`
	Status     StatusConfig     `koanf:"status"`
}

type ServerConfig struct {
	BaseURL        string `koanf:"base_url"`
	LogLevel       string `koanf:"log_level"`
	RequestTimeout string `koanf:"request_timeout"`
}

type StreamConfig struct {
	Path           string `koanf:"path"`
	InitialBackoff string `koanf:"initial_backoff"`
	MaxBackoff     string `koanf:"max_backoff"`
	BufferSize     int    `koanf:"buffer_size"`
}

// PollingConfig holds per-resource intervals for resources without push delivery.
type PollingConfig struct {
	Roster    string `koanf:"roster"`
	Sensors   string `koanf:"sensors"`
	Missions  string `koanf:"missions"`
	RunEvents string `koanf:"run_events"`
	Services  string `koanf:"services"`
	Approvals string `koanf:"approvals"`
}

type ConfirmConfig struct {
	Window string `koanf:"window"`
}

type CouncilConfig struct {
	DefaultTarget string `koanf:"default_target"`
	HistoryWindow int    `koanf:"history_window"`
}

type GovernanceConfig struct {
	Mode string `koanf:"mode"`
}

type DaemonConfig struct {
	ShutdownTimeout     string `koanf:"shutdown_timeout"`
	HealthCheckInterval string `koanf:"health_check_interval"`
}

// StatusConfig controls the optional local endpoint that reports console state.
type StatusConfig struct {
	Enabled         bool   `koanf:"enabled"`
	Addr            string `koanf:"addr"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

const (
	DefaultServerBaseURL         = "http://localhost:8081"
	DefaultServerLogLevel        = "info"
	DefaultServerRequestTimeout  = "15s"
	DefaultStreamPath            = "/api/v1/stream"
	DefaultStreamInitialBackoff  = "500ms"
	DefaultStreamMaxBackoff      = "15s"
	DefaultStreamBufferSize      = 50
	DefaultPollingRoster         = "10s"
	DefaultPollingSensors        = "60s"
	DefaultPollingMissions       = "15s"
	DefaultPollingRunEvents      = "5s"
	DefaultPollingServices       = "10s"
	DefaultPollingApprovals      = "10s"
	DefaultConfirmWindow         = "3s"
	DefaultCouncilTarget         = "admin"
	DefaultCouncilHistoryWindow  = 20
	DefaultGovernanceMode        = "passive"
	DefaultDaemonShutdownTimeout = "10s"
	DefaultDaemonHealthInterval  = "30s"
	DefaultStatusAddr            = "127.0.0.1:8790"
	DefaultStatusShutdownTimeout = "5s"
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.base_url":              DefaultServerBaseURL,
		"server.log_level":             DefaultServerLogLevel,
		"server.request_timeout":       DefaultServerRequestTimeout,
		"stream.path":                  DefaultStreamPath,
		"stream.initial_backoff":       DefaultStreamInitialBackoff,
		"stream.max_backoff":           DefaultStreamMaxBackoff,
		"stream.buffer_size":           DefaultStreamBufferSize,
		"polling.roster":               DefaultPollingRoster,
		"polling.sensors":              DefaultPollingSensors,
		"polling.missions":             DefaultPollingMissions,
		"polling.run_events":           DefaultPollingRunEvents,
		"polling.services":             DefaultPollingServices,
		"polling.approvals":            DefaultPollingApprovals,
		"confirm.window":               DefaultConfirmWindow,
		"council.default_target":       DefaultCouncilTarget,
		"council.history_window":       DefaultCouncilHistoryWindow,
		"governance.mode":              DefaultGovernanceMode,
		"daemon.shutdown_timeout":      DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval": DefaultDaemonHealthInterval,
		"status.enabled":               false,
		"status.addr":                  DefaultStatusAddr,
		"status.shutdown_timeout":      DefaultStatusShutdownTimeout,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		resolved, err := pathutil.Expand(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(resolved), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		dir, err := pathutil.ConfigDir()
		if err == nil {
			globalPath := filepath.Join(dir, "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// CORTEX_POLLING_RUN_EVENTS would split into polling.run.events, so only
	// the first underscore after the prefix separates section from key.
	k.Load(env.Provider("CORTEX_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "CORTEX_"))
		return strings.Replace(key, "_", ".", 1)
	}), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Server.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Server.BaseURL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail late inside a component.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return cortexErrors.InvalidInput("server.base_url is empty")
	}
	if _, err := url.ParseRequestURI(c.Server.BaseURL); err != nil {
		return cortexErrors.InvalidInput(fmt.Sprintf("server.base_url %q is not a url", c.Server.BaseURL))
	}
	if c.Stream.BufferSize <= 0 {
		return cortexErrors.InvalidInput(fmt.Sprintf("stream.buffer_size must be positive, got %d", c.Stream.BufferSize))
	}
	if c.Status.Enabled && strings.TrimSpace(c.Status.Addr) == "" {
		return cortexErrors.InvalidInput("status.addr is empty while status.enabled is set")
	}
	if c.Council.HistoryWindow <= 0 {
		return cortexErrors.InvalidInput(fmt.Sprintf("council.history_window must be positive, got %d", c.Council.HistoryWindow))
	}

	durations := []struct {
		key, value, fallback string
	}{
		{"server.request_timeout", c.Server.RequestTimeout, DefaultServerRequestTimeout},
		{"stream.initial_backoff", c.Stream.InitialBackoff, DefaultStreamInitialBackoff},
		{"stream.max_backoff", c.Stream.MaxBackoff, DefaultStreamMaxBackoff},
		{"polling.roster", c.Polling.Roster, DefaultPollingRoster},
		{"polling.sensors", c.Polling.Sensors, DefaultPollingSensors},
		{"polling.missions", c.Polling.Missions, DefaultPollingMissions},
		{"polling.run_events", c.Polling.RunEvents, DefaultPollingRunEvents},
		{"polling.services", c.Polling.Services, DefaultPollingServices},
		{"polling.approvals", c.Polling.Approvals, DefaultPollingApprovals},
		{"confirm.window", c.Confirm.Window, DefaultConfirmWindow},
		{"daemon.shutdown_timeout", c.Daemon.ShutdownTimeout, DefaultDaemonShutdownTimeout},
		{"daemon.health_check_interval", c.Daemon.HealthCheckInterval, DefaultDaemonHealthInterval},
		{"status.shutdown_timeout", c.Status.ShutdownTimeout, DefaultStatusShutdownTimeout},
	}
	for _, d := range durations {
		parsed, err := DurationOrDefault(d.value, d.fallback)
		if err != nil {
			return cortexErrors.InvalidInput(fmt.Sprintf("%s: %v", d.key, err))
		}
		if parsed <= 0 {
			return cortexErrors.InvalidInput(fmt.Sprintf("%s must be positive, got %s", d.key, parsed))
		}
	}

	return nil
}

// Default returns a configuration populated only from the Default* constants.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:        DefaultServerBaseURL,
			LogLevel:       DefaultServerLogLevel,
			RequestTimeout: DefaultServerRequestTimeout,
		},
		Stream: StreamConfig{
			Path:           DefaultStreamPath,
			InitialBackoff: DefaultStreamInitialBackoff,
			MaxBackoff:     DefaultStreamMaxBackoff,
			BufferSize:     DefaultStreamBufferSize,
		},
		Polling: PollingConfig{
			Roster:    DefaultPollingRoster,
			Sensors:   DefaultPollingSensors,
			Missions:  DefaultPollingMissions,
			RunEvents: DefaultPollingRunEvents,
			Services:  DefaultPollingServices,
			Approvals: DefaultPollingApprovals,
		},
		Confirm:    ConfirmConfig{Window: DefaultConfirmWindow},
		Council:    CouncilConfig{DefaultTarget: DefaultCouncilTarget, HistoryWindow: DefaultCouncilHistoryWindow},
		Governance: GovernanceConfig{Mode: DefaultGovernanceMode},
		Daemon: DaemonConfig{
			ShutdownTimeout:     DefaultDaemonShutdownTimeout,
			HealthCheckInterval: DefaultDaemonHealthInterval,
		},
		Status: StatusConfig{Addr: DefaultStatusAddr, ShutdownTimeout: DefaultStatusShutdownTimeout},
	}
}
