package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"mt5-bridge/src/models"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// BRIDGE_TRANSPORT_SUB_ENDPOINT.
const EnvPrefix = "BRIDGE_"

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file, then applies .env and
// environment overrides and fills defaults for anything left unset.
func NewConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	return finish(&modelConfig)
}

// -----------------------------------------------------------------------------

// NewDefaultConfig builds a Config from defaults and environment only.
func NewDefaultConfig() (*Config, error) {
	return finish(&models.MConfig{})
}

// -----------------------------------------------------------------------------

func finish(modelConfig *models.MConfig) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := env.ParseWithOptions(modelConfig, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	config := &Config{MConfig: modelConfig}
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills every zero value with its documented default.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "mt5-bridge"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.GrpcHost == "" {
		c.GrpcHost = "127.0.0.1"
	}

	t := &c.Transport
	if t.SubEndpoint == "" {
		t.SubEndpoint = "tcp://127.0.0.1:5555"
	}
	if t.ReqEndpoint == "" {
		t.ReqEndpoint = "tcp://127.0.0.1:5556"
	}
	if t.RetryBackoffMs == 0 {
		t.RetryBackoffMs = 1000
	}

	b := &c.Buffers
	defaultInt(&b.TickHistory, 1000)
	defaultInt(&b.VolumeHistory, 100)
	defaultInt(&b.Breaklines, 100)
	defaultInt(&b.TickQueue, 100)
	defaultInt(&b.CommandQueue, 10)
	defaultInt(&b.ReplyQueue, 10)
	defaultInt(&b.IntentQueue, 64)
	defaultInt(&b.RefreshIntervalMs, 50)

	if c.Recording.Dir == "" {
		c.Recording.Dir = "."
	}
	if c.Recording.ExportDir == "" {
		c.Recording.ExportDir = c.Recording.Dir
	}

	defaultInt(&c.Market.StaleAfterSeconds, 30)
	defaultInt(&c.Market.CheckIntervalSeconds, 5)

	if c.API.OrderRatePerSec == 0 {
		c.API.OrderRatePerSec = 5
	}
	defaultInt(&c.API.OrderBurst, 5)
}

func defaultInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	// 0 disables the gRPC health endpoint
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	if c.Transport.SubEndpoint == "" {
		return fmt.Errorf("transport sub endpoint cannot be empty")
	}
	if c.Transport.ReqEndpoint == "" {
		return fmt.Errorf("transport req endpoint cannot be empty")
	}
	if c.Transport.RetryBackoffMs < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}

	capacities := map[string]int{
		"tick_history":        c.Buffers.TickHistory,
		"volume_history":      c.Buffers.VolumeHistory,
		"breaklines":          c.Buffers.Breaklines,
		"tick_queue":          c.Buffers.TickQueue,
		"command_queue":       c.Buffers.CommandQueue,
		"reply_queue":         c.Buffers.ReplyQueue,
		"intent_queue":        c.Buffers.IntentQueue,
		"refresh_interval_ms": c.Buffers.RefreshIntervalMs,
	}
	for name, v := range capacities {
		if v <= 0 {
			return fmt.Errorf("buffers.%s must be greater than 0", name)
		}
	}

	if c.Market.StaleAfterSeconds <= 0 {
		return fmt.Errorf("stale after seconds must be greater than 0")
	}
	if c.Market.CheckIntervalSeconds <= 0 {
		return fmt.Errorf("check interval seconds must be greater than 0")
	}

	if c.API.OrderRatePerSec <= 0 {
		return fmt.Errorf("order rate must be greater than 0")
	}
	if c.API.OrderBurst <= 0 {
		return fmt.Errorf("order burst must be greater than 0")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
