// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/rsvp/lib/clock"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
	"github.com/bureau-foundation/rsvp/transport"
)

// Resolve builds the configuration a command runs with. The file at
// path is loaded when path is set, then the file named by RSVP_CONFIG,
// and Default otherwise. A .env file in the working directory and the
// RSVP_* variables are applied on top, and the result is validated.
func Resolve(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	var cfg *Config
	var err error
	switch {
	case path != "":
		cfg, err = LoadFile(path)
	case os.Getenv("RSVP_CONFIG") != "":
		cfg, err = Load()
	default:
		cfg = Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// TopicNames returns the topic layout under the configured prefix.
func (c *Config) TopicNames() rsvp.Topics {
	return rsvp.Topics{Prefix: c.Topics.Prefix}
}

// Broker is a transport port that can report its connection state.
type Broker interface {
	transport.Port
	Connected() bool
}

// NATS returns the JetStream settings for a client identified as
// clientName.
func (c *Config) NATS(clientName string) transport.NATSConfig {
	return transport.NATSConfig{
		URL:           c.Broker.URL,
		ClientName:    clientName,
		Stream:        c.Broker.Stream,
		Subjects:      []string{c.TopicNames().All()},
		MaxAge:        c.Broker.Retention,
		Connect:       c.ConnectPolicy(),
		ReconnectWait: c.Broker.ReconnectWait,
		MaxDeliver:    c.Broker.MaxDeliver,
		AckWait:       c.Broker.AckWait,
		MaxAckPending: c.Broker.MaxAckPending,
	}
}

// OpenBroker connects to the configured broker. The memory driver
// gives a private in-process broker, so it only serves a command that
// also hosts its own publishers and subscribers.
func (c *Config) OpenBroker(ctx context.Context, clientName string, clk clock.Clock, logger *slog.Logger) (Broker, error) {
	switch c.Broker.Driver {
	case DriverMemory:
		logger.Warn("using in-process memory broker; messages do not leave this process")
		return transport.NewMemoryBroker(), nil
	case DriverNATS:
		port, err := transport.DialNATS(ctx, c.NATS(clientName), clk, logger)
		if err != nil {
			return nil, err
		}
		return port, nil
	default:
		return nil, fmt.Errorf("unknown broker driver %q", c.Broker.Driver)
	}
}
