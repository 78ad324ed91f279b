// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/rsvp/lib/registry"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
	"github.com/bureau-foundation/rsvp/lib/service"
)

// palette holds the styles shared by the plain renderers and the
// watch view.
type palette struct {
	title   lipgloss.Style
	label   lipgloss.Style
	dim     lipgloss.Style
	yes     lipgloss.Style
	maybe   lipgloss.Style
	no      lipgloss.Style
	pending lipgloss.Style
	alert   lipgloss.Style
}

func newPalette(renderer *lipgloss.Renderer) palette {
	return palette{
		title:   renderer.NewStyle().Bold(true),
		label:   renderer.NewStyle().Foreground(lipgloss.Color("245")),
		dim:     renderer.NewStyle().Faint(true),
		yes:     renderer.NewStyle().Foreground(lipgloss.Color("2")),
		maybe:   renderer.NewStyle().Foreground(lipgloss.Color("3")),
		no:      renderer.NewStyle().Foreground(lipgloss.Color("1")),
		pending: renderer.NewStyle().Foreground(lipgloss.Color("8")),
		alert:   renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

// writerPalette detects color support from w. Pipes and buffers get
// plain text.
func writerPalette(w io.Writer) palette {
	return newPalette(lipgloss.NewRenderer(w))
}

// ansiPalette always emits 256-color escapes. The watch view owns the
// terminal, so detection is skipped.
func ansiPalette(w io.Writer) palette {
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(termenv.ANSI256))
	renderer.SetColorProfile(termenv.ANSI256)
	return newPalette(renderer)
}

func (p palette) decision(decision rsvp.Decision) string {
	switch decision {
	case rsvp.DecisionYes:
		return p.yes.Render(string(decision))
	case rsvp.DecisionMaybe:
		return p.maybe.Render(string(decision))
	case rsvp.DecisionNo:
		return p.no.Render(string(decision))
	}
	return p.pending.Render("no response")
}

func (p palette) state(state registry.State) string {
	switch state {
	case registry.Collecting:
		return p.yes.Render(state.String())
	case registry.Summarizing:
		return p.maybe.Render(state.String())
	}
	return p.dim.Render(state.String())
}

// renderSummary prints a summary report to w, colored when w is a
// terminal.
func renderSummary(w io.Writer, s rsvp.Summary) error {
	p := writerPalette(w)
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", p.title.Render(s.EventName), p.dim.Render("("+s.EventID+")"))
	fmt.Fprintf(&b, "%s %s   %s %s   %s %s   %s %s   %s %d\n",
		p.yes.Render("attending"), countOf(s.Attending),
		p.maybe.Render("maybe"), countOf(s.Maybe),
		p.no.Render("not attending"), countOf(s.NotAttending),
		p.pending.Render("no response"), countOf(s.NoResponse),
		p.label.Render("invited"), s.TotalInvited)
	fmt.Fprintf(&b, "%s %s at %s\n", p.label.Render("closed by"), s.Trigger,
		s.CompiledAt.Local().Format(time.DateTime))

	if len(s.Responses) > 0 {
		b.WriteByte('\n')
	}
	for _, response := range s.Responses {
		name := response.GuestName
		if name == "" {
			name = response.GuestID
		}
		fmt.Fprintf(&b, "  %-16s %s", name, p.decision(response.Decision))
		if response.Message != "" {
			fmt.Fprintf(&b, "  %s", p.dim.Render(fmt.Sprintf("%q", response.Message)))
		}
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func countOf(n int) string { return fmt.Sprintf("%d", n) }

// renderStatus prints the coordinator status block.
func renderStatus(w io.Writer, status service.StatusResponse) error {
	p := writerPalette(w)
	broker := p.yes.Render("connected")
	if !status.BrokerConnected {
		broker = p.alert.Render("disconnected")
	}
	uptime := time.Duration(status.UptimeSeconds) * time.Second

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", p.title.Render("rsvp-coordinator"), status.Version)
	fmt.Fprintf(&b, "  %s %s (since %s)\n", p.label.Render("uptime:     "), uptime,
		status.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(&b, "  %s %s\n", p.label.Render("broker:     "), broker)
	fmt.Fprintf(&b, "  %s %d\n", p.label.Render("collecting: "), status.Events.Collecting)
	fmt.Fprintf(&b, "  %s %d\n", p.label.Render("summarizing:"), status.Events.Summarizing)
	fmt.Fprintf(&b, "  %s %d\n", p.label.Render("retired:    "), status.Events.Retired)
	_, err := io.WriteString(w, b.String())
	return err
}

// renderEventTable prints one row per active event. The table is left
// uncolored so tabwriter can align it.
func renderEventTable(w io.Writer, events []registry.Snapshot, now time.Time) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "no active events")
		return err
	}
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "EVENT ID\tNAME\tHOST\tSTATE\tRESPONDED\tCLOSES IN")
	for _, event := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			event.EventID(),
			event.Invitation.EventName,
			event.Invitation.HostID,
			event.State,
			len(event.Responses), len(event.Invited),
			closesIn(event, now),
		)
	}
	return tw.Flush()
}

// renderEvent prints one event with the answer of every invited guest.
func renderEvent(w io.Writer, event registry.Snapshot, now time.Time) error {
	p := writerPalette(w)
	invitation := event.Invitation

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", p.title.Render(invitation.EventName), p.dim.Render("("+invitation.EventID+")"))
	fmt.Fprintf(&b, "  %s %s\n", p.label.Render("host:     "), invitation.HostID)
	if invitation.DateTime != "" {
		fmt.Fprintf(&b, "  %s %s\n", p.label.Render("when:     "), invitation.DateTime)
	}
	if invitation.Location != "" {
		fmt.Fprintf(&b, "  %s %s\n", p.label.Render("where:    "), invitation.Location)
	}
	if invitation.MaxCapacity != nil {
		fmt.Fprintf(&b, "  %s %d\n", p.label.Render("capacity: "), *invitation.MaxCapacity)
	}
	fmt.Fprintf(&b, "  %s %s, closes in %s\n", p.label.Render("state:    "), p.state(event.State), closesIn(event, now))
	b.WriteByte('\n')

	answers := make(map[string]rsvp.Response, len(event.Responses))
	for _, response := range event.Responses {
		answers[response.GuestID] = response
	}
	for _, invited := range event.Invited {
		name := invited.Name
		if name == "" {
			name = invited.ID
		}
		response, answered := answers[invited.ID]
		if !answered {
			fmt.Fprintf(&b, "  %-16s %s\n", name, p.decision(""))
			continue
		}
		fmt.Fprintf(&b, "  %-16s %s", name, p.decision(response.Decision))
		if response.Message != "" {
			fmt.Fprintf(&b, "  %s", p.dim.Render(fmt.Sprintf("%q", response.Message)))
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// closesIn is the time left in the collection window, rounded to the
// second.
func closesIn(event registry.Snapshot, now time.Time) string {
	if event.State != registry.Collecting {
		return "-"
	}
	remaining := event.Deadline.Sub(now).Round(time.Second)
	if remaining <= 0 {
		return "now"
	}
	return remaining.String()
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
