// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/rsvp/lib/backoff"
	"github.com/bureau-foundation/rsvp/lib/guest"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Broker drivers.
const (
	DriverNATS   = "nats"
	DriverMemory = "memory"
)

// Config is the configuration shared by the coordinator, host, and
// guest commands.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Coordinator CoordinatorConfig `yaml:"coordinator"`

	// Guests is the registered guest list. Ignored when GuestFile is
	// set.
	Guests []guest.Guest `yaml:"guests"`

	// GuestFile names a YAML file holding the guest list. It is
	// re-read for every invitation, so guests added there take part
	// in later events without a restart.
	GuestFile string `yaml:"guest_file"`

	Topics  TopicsConfig  `yaml:"topics"`
	Broker  BrokerConfig  `yaml:"broker"`
	Control ControlConfig `yaml:"control"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// CoordinatorConfig configures event collection.
type CoordinatorConfig struct {
	// CollectionWindow is how long each event collects responses.
	// Default: 30s
	CollectionWindow time.Duration `yaml:"collection_window"`

	// CompleteWhenAllResponded closes an event as soon as every
	// invited guest has answered.
	// Default: false
	CompleteWhenAllResponded bool `yaml:"complete_when_all_responded"`

	// SummaryRetry bounds summary delivery to the host.
	SummaryRetry backoff.Policy `yaml:"summary_retry"`

	// RetiredCapacity is how many closed event ids are remembered for
	// late-response and duplicate detection.
	// Default: 1024
	RetiredCapacity int `yaml:"retired_capacity"`
}

// TopicsConfig configures topic naming.
type TopicsConfig struct {
	// Prefix is prepended to every topic name.
	// Default: rsvp
	Prefix string `yaml:"prefix"`
}

// BrokerConfig configures the message broker connection.
type BrokerConfig struct {
	// Driver selects the Port implementation: "nats" or "memory".
	// Default: nats
	Driver string `yaml:"driver"`

	// URL is the NATS server URL.
	// Default: nats://127.0.0.1:4222
	URL string `yaml:"url"`

	// Stream is the JetStream stream holding every RSVP topic.
	// Default: RSVP
	Stream string `yaml:"stream"`

	// ConnectAttempts and ConnectBackoff bound the initial
	// connection: ConnectAttempts tries, ConnectBackoff apart.
	// Default: 5 attempts, 2s
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectBackoff  time.Duration `yaml:"connect_backoff"`

	// ReconnectWait is the pause between reconnect attempts after a
	// lost connection.
	// Default: 2s
	ReconnectWait time.Duration `yaml:"reconnect_wait"`

	// MaxDeliver bounds redeliveries of an unacknowledged message.
	// Default: 5
	MaxDeliver int `yaml:"max_deliver"`

	// MaxAckPending bounds in-flight messages per consumer. 1 gives
	// strictly serial intake.
	// Default: 1
	MaxAckPending int `yaml:"max_ack_pending"`

	// AckWait is how long the broker waits for an acknowledgement
	// before redelivering.
	// Default: 30s
	AckWait time.Duration `yaml:"ack_wait"`

	// Retention bounds how long the stream keeps messages.
	// Default: 24h
	Retention time.Duration `yaml:"retention"`
}

// ControlConfig configures the coordinator's local admin surfaces.
type ControlConfig struct {
	// SocketPath is the Unix socket for the CBOR control protocol.
	// Empty disables it.
	// Default: /run/rsvp/coordinator.sock
	SocketPath string `yaml:"socket_path"`

	// HTTPAddress is where /metrics, /healthz, and /events are
	// served. Empty disables it.
	// Default: 127.0.0.1:9464
	HTTPAddress string `yaml:"http_address"`
}

// ConfigOverrides contains fields that can be overridden per
// environment. Zero values leave the base value alone.
type ConfigOverrides struct {
	LogLevel    string             `yaml:"log_level,omitempty"`
	Coordinator *CoordinatorConfig `yaml:"coordinator,omitempty"`
	Broker      *BrokerConfig      `yaml:"broker,omitempty"`
	Control     *ControlConfig     `yaml:"control,omitempty"`
}

// DefaultGuests is the guest list used when the configuration names
// none.
func DefaultGuests() []guest.Guest {
	return []guest.Guest{
		{ID: "guest_alice", Name: "Alice"},
		{ID: "guest_bob", Name: "Bob"},
		{ID: "guest_charlie", Name: "Charlie"},
		{ID: "guest_diana", Name: "Diana"},
		{ID: "guest_eve", Name: "Eve"},
	}
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
func Default() *Config {
	return &Config{
		Environment: Development,
		LogLevel:    "info",
		Coordinator: CoordinatorConfig{
			CollectionWindow: 30 * time.Second,
			SummaryRetry: backoff.Policy{
				MaxAttempts:  5,
				InitialDelay: time.Second,
				Multiplier:   2,
				MaxDelay:     30 * time.Second,
			},
			RetiredCapacity: 1024,
		},
		Guests: DefaultGuests(),
		Topics: TopicsConfig{Prefix: rsvp.DefaultTopicPrefix},
		Broker: BrokerConfig{
			Driver:          DriverNATS,
			URL:             "nats://127.0.0.1:4222",
			Stream:          "RSVP",
			ConnectAttempts: 5,
			ConnectBackoff:  2 * time.Second,
			ReconnectWait:   2 * time.Second,
			MaxDeliver:      5,
			MaxAckPending:   1,
			AckWait:         30 * time.Second,
			Retention:       24 * time.Hour,
		},
		Control: ControlConfig{
			SocketPath:  "/run/rsvp/coordinator.sock",
			HTTPAddress: "127.0.0.1:9464",
		},
	}
}

// Load loads configuration from the RSVP_CONFIG environment variable.
//
// There are no fallbacks: if RSVP_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("RSVP_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("RSVP_CONFIG environment variable not set; " +
			"set it to the path of your rsvp.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path on top of
// Default and applies the matching environment section.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.LogLevel != "" {
		c.LogLevel = overrides.LogLevel
	}

	if overrides.Coordinator != nil {
		if overrides.Coordinator.CollectionWindow != 0 {
			c.Coordinator.CollectionWindow = overrides.Coordinator.CollectionWindow
		}
		if overrides.Coordinator.CompleteWhenAllResponded {
			c.Coordinator.CompleteWhenAllResponded = true
		}
		if overrides.Coordinator.SummaryRetry != (backoff.Policy{}) {
			c.Coordinator.SummaryRetry = overrides.Coordinator.SummaryRetry
		}
		if overrides.Coordinator.RetiredCapacity != 0 {
			c.Coordinator.RetiredCapacity = overrides.Coordinator.RetiredCapacity
		}
	}

	if overrides.Broker != nil {
		if overrides.Broker.Driver != "" {
			c.Broker.Driver = overrides.Broker.Driver
		}
		if overrides.Broker.URL != "" {
			c.Broker.URL = overrides.Broker.URL
		}
		if overrides.Broker.Stream != "" {
			c.Broker.Stream = overrides.Broker.Stream
		}
		if overrides.Broker.ConnectAttempts != 0 {
			c.Broker.ConnectAttempts = overrides.Broker.ConnectAttempts
		}
		if overrides.Broker.ConnectBackoff != 0 {
			c.Broker.ConnectBackoff = overrides.Broker.ConnectBackoff
		}
		if overrides.Broker.MaxDeliver != 0 {
			c.Broker.MaxDeliver = overrides.Broker.MaxDeliver
		}
		if overrides.Broker.MaxAckPending != 0 {
			c.Broker.MaxAckPending = overrides.Broker.MaxAckPending
		}
		if overrides.Broker.ReconnectWait != 0 {
			c.Broker.ReconnectWait = overrides.Broker.ReconnectWait
		}
		if overrides.Broker.AckWait != 0 {
			c.Broker.AckWait = overrides.Broker.AckWait
		}
		if overrides.Broker.Retention != 0 {
			c.Broker.Retention = overrides.Broker.Retention
		}
	}

	if overrides.Control != nil {
		if overrides.Control.SocketPath != "" {
			c.Control.SocketPath = overrides.Control.SocketPath
		}
		if overrides.Control.HTTPAddress != "" {
			c.Control.HTTPAddress = overrides.Control.HTTPAddress
		}
	}
}

// LoadDotEnv reads KEY=value pairs from path into the process
// environment. Variables that are already set keep their values. A
// missing file is not an error, so commands can always pass ".env".
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// EnvOverrides lists the environment variables ApplyEnv honours. A
// nil field means the variable is unset.
type EnvOverrides struct {
	Environment              *string        `env:"RSVP_ENVIRONMENT"`
	LogLevel                 *string        `env:"RSVP_LOG_LEVEL"`
	CollectionWindow         *time.Duration `env:"RSVP_COLLECTION_WINDOW"`
	CompleteWhenAllResponded *bool          `env:"RSVP_COMPLETE_WHEN_ALL_RESPONDED"`
	GuestFile                *string        `env:"RSVP_GUEST_FILE"`
	TopicPrefix              *string        `env:"RSVP_TOPIC_PREFIX"`
	BrokerDriver             *string        `env:"RSVP_BROKER"`
	BrokerURL                *string        `env:"RSVP_BROKER_URL"`
	BrokerStream             *string        `env:"RSVP_BROKER_STREAM"`
	ControlSocket            *string        `env:"RSVP_CONTROL_SOCKET"`
	HTTPAddress              *string        `env:"RSVP_HTTP_ADDRESS"`
}

// ApplyEnv copies RSVP_* variables onto c. environ supplies the
// variables; nil reads the process environment.
func (c *Config) ApplyEnv(environ map[string]string) error {
	var overrides EnvOverrides
	options := env.Options{Environment: environ}
	if err := env.ParseWithOptions(&overrides, options); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}

	setString(&c.LogLevel, overrides.LogLevel)
	setString(&c.GuestFile, overrides.GuestFile)
	setString(&c.Topics.Prefix, overrides.TopicPrefix)
	setString(&c.Broker.Driver, overrides.BrokerDriver)
	setString(&c.Broker.URL, overrides.BrokerURL)
	setString(&c.Broker.Stream, overrides.BrokerStream)
	setString(&c.Control.SocketPath, overrides.ControlSocket)
	setString(&c.Control.HTTPAddress, overrides.HTTPAddress)
	if overrides.Environment != nil {
		c.Environment = Environment(*overrides.Environment)
	}
	if overrides.CollectionWindow != nil {
		c.Coordinator.CollectionWindow = *overrides.CollectionWindow
	}
	if overrides.CompleteWhenAllResponded != nil {
		c.Coordinator.CompleteWhenAllResponded = *overrides.CompleteWhenAllResponded
	}
	return nil
}

func setString(target *string, value *string) {
	if value != nil {
		*target = *value
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if c.Coordinator.CollectionWindow <= 0 {
		errs = append(errs, fmt.Errorf("coordinator.collection_window must be positive, got %s", c.Coordinator.CollectionWindow))
	}
	if err := c.Coordinator.SummaryRetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("coordinator.summary_retry: %w", err))
	}
	if c.Coordinator.RetiredCapacity < 0 {
		errs = append(errs, fmt.Errorf("coordinator.retired_capacity must not be negative"))
	}

	if c.GuestFile == "" {
		if err := guest.Validate(c.Guests); err != nil {
			errs = append(errs, fmt.Errorf("guests: %w", err))
		}
	}

	if err := rsvp.ValidatePrefix(c.Topics.Prefix); err != nil {
		errs = append(errs, fmt.Errorf("topics.prefix: %w", err))
	}

	switch c.Broker.Driver {
	case DriverNATS:
		if c.Broker.URL == "" {
			errs = append(errs, fmt.Errorf("broker.url is required for the nats driver"))
		}
		if c.Broker.Stream == "" || strings.ContainsAny(c.Broker.Stream, ".*> ") {
			errs = append(errs, fmt.Errorf("broker.stream %q is not a valid stream name", c.Broker.Stream))
		}
	case DriverMemory:
		if c.Environment == Production {
			errs = append(errs, fmt.Errorf("broker.driver memory is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("broker.driver must be one of: %s, %s", DriverNATS, DriverMemory))
	}
	if c.Broker.ConnectAttempts < 1 {
		errs = append(errs, fmt.Errorf("broker.connect_attempts must be at least 1"))
	}
	if c.Broker.MaxAckPending < 0 || c.Broker.MaxDeliver < 0 {
		errs = append(errs, fmt.Errorf("broker.max_ack_pending and broker.max_deliver must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ParseLogLevel maps a log_level value to a slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be one of: debug, info, warn, error (got %q)", level)
	}
}

// GuestDirectory returns the directory the coordinator reads guests
// from: the guest file when one is configured, otherwise the inline
// list.
func (c *Config) GuestDirectory() (guest.Directory, error) {
	if c.GuestFile != "" {
		return guest.NewFileDirectory(c.GuestFile), nil
	}
	return guest.NewStatic(c.Guests)
}

// ConnectPolicy is the initial broker connection policy: a fixed
// delay between ConnectAttempts tries.
func (c *Config) ConnectPolicy() backoff.Policy {
	return backoff.Policy{
		MaxAttempts:  c.Broker.ConnectAttempts,
		InitialDelay: c.Broker.ConnectBackoff,
		Multiplier:   1,
	}
}
