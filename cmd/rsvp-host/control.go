// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/rsvp/lib/cli"
	"github.com/bureau-foundation/rsvp/lib/registry"
	"github.com/bureau-foundation/rsvp/lib/service"
)

// controlCallTimeout bounds one request to the control socket.
const controlCallTimeout = 10 * time.Second

// controlClient dials the socket named by --socket or the config.
func controlClient(global *globalParams) (*service.ServiceClient, error) {
	path, err := global.socketPath()
	if err != nil {
		return nil, err
	}
	return service.NewServiceClient(path), nil
}

func fetchStatus(ctx context.Context, client *service.ServiceClient) (service.StatusResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, controlCallTimeout)
	defer cancel()
	var status service.StatusResponse
	err := client.Call(ctx, service.ActionStatus, nil, &status)
	return status, err
}

func fetchEvents(ctx context.Context, client *service.ServiceClient) ([]registry.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, controlCallTimeout)
	defer cancel()
	var response service.EventsResponse
	if err := client.Call(ctx, service.ActionEvents, nil, &response); err != nil {
		return nil, err
	}
	return response.Events, nil
}

func fetchEvent(ctx context.Context, client *service.ServiceClient, eventID string) (registry.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, controlCallTimeout)
	defer cancel()
	var snapshot registry.Snapshot
	err := client.Call(ctx, service.ActionEvent, map[string]any{"event_id": eventID}, &snapshot)
	return snapshot, err
}

func statusCommand(global *globalParams) *cli.Command {
	var jsonOutput bool
	return &cli.Command{
		Name:    "status",
		Summary: "Show coordinator health and event counts",
		Usage:   "rsvp-host status [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			global.addFlags(flagSet)
			flagSet.BoolVar(&jsonOutput, "json", false, "print as JSON")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return errors.New("status takes no arguments")
			}
			client, err := controlClient(global)
			if err != nil {
				return err
			}
			status, err := fetchStatus(ctx, client)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(os.Stdout, status)
			}
			return renderStatus(os.Stdout, status)
		},
	}
}

func eventsCommand(global *globalParams) *cli.Command {
	var jsonOutput bool
	return &cli.Command{
		Name:    "events",
		Summary: "List events the coordinator is collecting or summarizing",
		Usage:   "rsvp-host events [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("events", pflag.ContinueOnError)
			global.addFlags(flagSet)
			flagSet.BoolVar(&jsonOutput, "json", false, "print as JSON")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return errors.New("events takes no arguments")
			}
			client, err := controlClient(global)
			if err != nil {
				return err
			}
			events, err := fetchEvents(ctx, client)
			if err != nil {
				return err
			}
			if jsonOutput {
				if events == nil {
					events = []registry.Snapshot{}
				}
				return writeJSON(os.Stdout, events)
			}
			return renderEventTable(os.Stdout, events, time.Now())
		},
	}
}

func eventCommand(global *globalParams) *cli.Command {
	var jsonOutput bool
	return &cli.Command{
		Name:    "event",
		Summary: "Show one active event and its responses",
		Usage:   "rsvp-host event [flags] <event id>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("event", pflag.ContinueOnError)
			global.addFlags(flagSet)
			flagSet.BoolVar(&jsonOutput, "json", false, "print as JSON")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errors.New("exactly one event id is required")
			}
			client, err := controlClient(global)
			if err != nil {
				return err
			}
			event, err := fetchEvent(ctx, client, args[0])
			if service.IsServiceError(err) {
				// Retired events are gone from the registry; the
				// summary already reached the host.
				fmt.Fprintf(os.Stderr, "%s\n", err)
				return &cli.ExitError{Code: 2}
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(os.Stdout, event)
			}
			return renderEvent(os.Stdout, event, time.Now())
		},
	}
}
