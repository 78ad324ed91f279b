// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/rsvp/lib/cli"
	"github.com/bureau-foundation/rsvp/lib/registry"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
	"github.com/bureau-foundation/rsvp/lib/service"
)

const defaultWatchInterval = time.Second

func watchCommand(global *globalParams) *cli.Command {
	var interval time.Duration
	return &cli.Command{
		Name:    "watch",
		Summary: "Live view of active events",
		Description: `Poll the coordinator control socket and redraw the active events with
their running tally. Press r to refresh now and q to quit.`,
		Usage: "rsvp-host watch [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
			global.addFlags(flagSet)
			flagSet.DurationVar(&interval, "interval", defaultWatchInterval, "poll interval")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return errors.New("watch takes no arguments")
			}
			if interval <= 0 {
				return errors.New("--interval must be positive")
			}
			client, err := controlClient(global)
			if err != nil {
				return err
			}
			model := newWatchModel(pollControl(ctx, client), interval, time.Now)
			program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			_, err = program.Run()
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}

// watchKeys are the bindings the watch view responds to.
type watchKeys struct {
	Refresh key.Binding
	Quit    key.Binding
}

var defaultWatchKeys = watchKeys{
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

// pollResult is one round trip to the control socket.
type pollResult struct {
	status service.StatusResponse
	events []registry.Snapshot
	err    error
}

// pollFunc fetches the current coordinator state.
type pollFunc func() pollResult

func pollControl(ctx context.Context, client *service.ServiceClient) pollFunc {
	return func() pollResult {
		status, err := fetchStatus(ctx, client)
		if err != nil {
			return pollResult{err: err}
		}
		events, err := fetchEvents(ctx, client)
		if err != nil {
			return pollResult{err: err}
		}
		return pollResult{status: status, events: events}
	}
}

type pollMsg pollResult

type tickMsg time.Time

// watchModel is the bubbletea model for "rsvp-host watch".
type watchModel struct {
	poll     pollFunc
	interval time.Duration
	now      func() time.Time
	keys     watchKeys
	palette  palette

	last     pollResult
	received bool
	polledAt time.Time
	width    int
}

func newWatchModel(poll pollFunc, interval time.Duration, now func() time.Time) watchModel {
	return watchModel{
		poll:     poll,
		interval: interval,
		now:      now,
		keys:     defaultWatchKeys,
		palette:  ansiPalette(os.Stdout),
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.pollCmd(), m.tickCmd())
}

func (m watchModel) pollCmd() tea.Cmd {
	poll := m.poll
	return func() tea.Msg {
		return pollMsg(poll())
	}
}

func (m watchModel) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m watchModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(message, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(message, m.keys.Refresh):
			return m, m.pollCmd()
		}

	case tea.WindowSizeMsg:
		m.width = message.Width

	case tickMsg:
		return m, tea.Batch(m.pollCmd(), m.tickCmd())

	case pollMsg:
		result := pollResult(message)
		if result.err != nil {
			// Keep the last good listing on screen under the error.
			m.last.err = result.err
		} else {
			m.last = result
		}
		m.received = true
		m.polledAt = m.now()
	}
	return m, nil
}

func (m watchModel) View() string {
	p := m.palette
	var b strings.Builder

	if !m.received {
		b.WriteString(p.dim.Render("connecting to coordinator..."))
		b.WriteByte('\n')
		return b.String()
	}

	status := m.last.status
	broker := p.yes.Render("broker connected")
	if !status.BrokerConnected {
		broker = p.alert.Render("broker disconnected")
	}
	fmt.Fprintf(&b, "%s %s  %s  %s\n",
		p.title.Render("rsvp-coordinator"), status.Version, broker,
		p.dim.Render(fmt.Sprintf("up %s", time.Duration(status.UptimeSeconds)*time.Second)))
	fmt.Fprintf(&b, "%s %d  %s %d  %s %d\n\n",
		p.label.Render("collecting"), status.Events.Collecting,
		p.label.Render("summarizing"), status.Events.Summarizing,
		p.label.Render("retired"), status.Events.Retired)

	if len(m.last.events) == 0 {
		b.WriteString(p.dim.Render("no active events"))
		b.WriteByte('\n')
	}
	now := m.now()
	for _, event := range m.last.events {
		b.WriteString(m.eventLine(event, now))
		b.WriteByte('\n')
	}

	if m.last.err != nil {
		fmt.Fprintf(&b, "\n%s\n", p.alert.Render(m.truncate("poll failed: "+m.last.err.Error())))
	}
	fmt.Fprintf(&b, "\n%s\n", p.dim.Render(fmt.Sprintf("updated %s  r refresh  q quit",
		m.polledAt.Format(time.TimeOnly))))
	return b.String()
}

// eventLine renders one event as its name, state, and tally bar.
func (m watchModel) eventLine(event registry.Snapshot, now time.Time) string {
	p := m.palette
	var tally rsvp.Tally
	for _, response := range event.Responses {
		switch response.Decision {
		case rsvp.DecisionYes:
			tally.Attending++
		case rsvp.DecisionMaybe:
			tally.Maybe++
		case rsvp.DecisionNo:
			tally.NotAttending++
		}
	}
	tally.NoResponse = len(event.Invited) - len(event.Responses)

	name := m.truncate(event.Invitation.EventName)
	return fmt.Sprintf("%-28s %s  %s %s %s %s  %s",
		name,
		p.state(event.State),
		p.yes.Render(strings.Repeat("█", tally.Attending)),
		p.maybe.Render(strings.Repeat("█", tally.Maybe)),
		p.no.Render(strings.Repeat("█", tally.NotAttending)),
		p.pending.Render(strings.Repeat("░", max(tally.NoResponse, 0))),
		p.dim.Render("closes in "+closesIn(event, now)),
	)
}

func (m watchModel) truncate(text string) string {
	if m.width <= 0 || len(text) <= m.width {
		return text
	}
	if m.width < 2 {
		return text[:m.width]
	}
	return text[:m.width-1] + "…"
}
