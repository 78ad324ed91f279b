// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string
	root := &Command{
		Name: "rsvp-host",
		Subcommands: []*Command{
			{Name: "status", Run: func(ctx context.Context, args []string) error { called = "status"; return nil }},
			{Name: "invite", Run: func(ctx context.Context, args []string) error { called = "invite"; return nil }},
		},
	}

	if err := root.Execute(context.Background(), []string{"invite"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if called != "invite" {
		t.Errorf("dispatched to %q, want invite", called)
	}
}

func TestCommand_Execute_PassesContextAndArgs(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")

	var got []string
	var value any
	root := &Command{
		Name: "rsvp-host",
		Subcommands: []*Command{{
			Name: "event",
			Run: func(ctx context.Context, args []string) error {
				got = args
				value = ctx.Value(key{})
				return nil
			},
		}},
	}

	if err := root.Execute(ctx, []string{"event", "party"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(got) != 1 || got[0] != "party" {
		t.Errorf("args: got %v, want [party]", got)
	}
	if value != "marker" {
		t.Errorf("context value: got %v, want marker", value)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var socket string
	var capacity int
	command := &Command{
		Name: "invite",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("invite", pflag.ContinueOnError)
			flagSet.StringVar(&socket, "socket", "", "control socket")
			flagSet.IntVar(&capacity, "capacity", 0, "max capacity")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 || args[0] != "Dinner" {
				t.Errorf("args: got %v, want [Dinner]", args)
			}
			return nil
		},
	}

	if err := command.Execute(context.Background(), []string{"--socket", "/tmp/c.sock", "--capacity=12", "Dinner"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if socket != "/tmp/c.sock" || capacity != 12 {
		t.Errorf("flags: got socket=%q capacity=%d", socket, capacity)
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "invite",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("invite", pflag.ContinueOnError)
			flagSet.String("location", "", "where")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--locaton", "Park"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --location?") {
		t.Errorf("error %q does not suggest --location", err)
	}
}

func TestCommand_Execute_UnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "rsvp-host",
		Subcommands: []*Command{
			{Name: "status", Run: func(ctx context.Context, args []string) error { return nil }},
			{Name: "events", Run: func(ctx context.Context, args []string) error { return nil }},
		},
	}

	err := root.Execute(context.Background(), []string{"evnets"})
	if err == nil {
		t.Fatal("expected error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), `did you mean "events"?`) {
		t.Errorf("error %q does not suggest events", err)
	}

	err = root.Execute(context.Background(), []string{"zzzzzzzzzz"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("expected unknown command without suggestion, got %v", err)
	}
}

func TestCommand_Execute_HelpAndMissingSubcommand(t *testing.T) {
	var output bytes.Buffer
	root := &Command{
		Name:    "rsvp-host",
		Summary: "Send invitations and inspect the coordinator",
		Output:  &output,
		Subcommands: []*Command{
			{Name: "status", Summary: "Show coordinator status"},
		},
	}

	if err := root.Execute(context.Background(), []string{"--help"}); err != nil {
		t.Fatalf("--help returned error: %v", err)
	}
	if !strings.Contains(output.String(), "Show coordinator status") {
		t.Errorf("help output missing subcommand summary:\n%s", output.String())
	}

	output.Reset()
	if err := root.Execute(context.Background(), nil); err == nil {
		t.Error("expected error when no subcommand is given")
	}
	if !strings.Contains(output.String(), "Usage:") {
		t.Errorf("missing-subcommand output lacks usage:\n%s", output.String())
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	parent := &Command{Name: "rsvp-host"}
	command := &Command{
		Name:        "invite",
		Description: "Send an invitation and wait for its summary.",
		Examples: []Example{
			{Description: "Invite everyone to dinner", Command: "rsvp-host invite Dinner"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("invite", pflag.ContinueOnError)
			flagSet.String("location", "", "where the event takes place")
			return flagSet
		},
		parent: parent,
	}

	var output bytes.Buffer
	command.PrintHelp(&output)
	help := output.String()
	for _, want := range []string{
		"Send an invitation and wait for its summary.",
		"rsvp-host invite [flags]",
		"--location",
		"# Invite everyone to dinner",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"status", "status", 0},
		{"evnets", "events", 2},
		{"kitten", "sitting", 3},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q): got %d, want %d", test.a, test.b, got, test.want)
		}
	}
}

func TestExitCode(t *testing.T) {
	if code, report := ExitCode(nil); code != 0 || report {
		t.Errorf("nil: got (%d, %v), want (0, false)", code, report)
	}
	if code, report := ExitCode(errors.New("boom")); code != 1 || !report {
		t.Errorf("plain error: got (%d, %v), want (1, true)", code, report)
	}
	wrapped := errors.Join(errors.New("context"), &ExitError{Code: 2})
	if code, report := ExitCode(wrapped); code != 2 || report {
		t.Errorf("ExitError: got (%d, %v), want (2, false)", code, report)
	}
}

func TestNewLoggerFormat(t *testing.T) {
	var text, structured bytes.Buffer
	newLogger(&text, true, 0).Info("hello", "guest_id", "guest_alice")
	newLogger(&structured, false, 0).Info("hello", "guest_id", "guest_alice")

	if !strings.Contains(text.String(), "guest_id=guest_alice") {
		t.Errorf("terminal output is not text: %q", text.String())
	}
	if !strings.HasPrefix(structured.String(), "{") || !strings.Contains(structured.String(), `"guest_id":"guest_alice"`) {
		t.Errorf("piped output is not JSON: %q", structured.String())
	}
}
