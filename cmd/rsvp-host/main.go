// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/rsvp/lib/cli"
	"github.com/bureau-foundation/rsvp/lib/config"
	"github.com/bureau-foundation/rsvp/lib/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCommand().Execute(ctx, os.Args[1:])
	stop()

	code, report := cli.ExitCode(err)
	if report {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(code)
}

// globalParams are the flags every subcommand accepts.
type globalParams struct {
	ConfigPath string
	SocketPath string
	Verbose    bool
}

func (g *globalParams) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&g.ConfigPath, "config", "", "path to rsvp.yaml (default: $RSVP_CONFIG, then built-in defaults)")
	flagSet.StringVar(&g.SocketPath, "socket", "", "coordinator control socket (default: control.socket_path from config)")
	flagSet.BoolVarP(&g.Verbose, "verbose", "v", false, "log broker activity to stderr")
}

// load resolves the configuration and builds the command logger.
func (g *globalParams) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Resolve(g.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	level := slog.LevelWarn
	if g.Verbose {
		level = slog.LevelDebug
	}
	return cfg, cli.NewLogger(level), nil
}

// socketPath is the control socket to dial, from --socket or config.
func (g *globalParams) socketPath() (string, error) {
	if g.SocketPath != "" {
		return g.SocketPath, nil
	}
	cfg, _, err := g.load()
	if err != nil {
		return "", err
	}
	if cfg.Control.SocketPath == "" {
		return "", fmt.Errorf("control socket is disabled in config; pass --socket")
	}
	return cfg.Control.SocketPath, nil
}

func rootCommand() *cli.Command {
	global := &globalParams{}
	return &cli.Command{
		Name:    "rsvp-host",
		Summary: "Send invitations and inspect the RSVP coordinator",
		Description: `rsvp-host sends invitations through the RSVP coordinator and prints
the summary it returns. It also queries a running coordinator over its
control socket.`,
		Subcommands: []*cli.Command{
			inviteCommand(global),
			statusCommand(global),
			eventsCommand(global),
			eventCommand(global),
			watchCommand(global),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(ctx context.Context, args []string) error {
					version.Print("rsvp-host")
					return nil
				},
			},
		},
	}
}
