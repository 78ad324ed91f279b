// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package observe

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/rsvp/lib/registry"
)

const namespace = "rsvp"

// Response outcome labels beyond the registry's merge outcomes.
const (
	OutcomeLate      = "late"
	OutcomeUnknown   = "unknown_event"
	OutcomeUninvited = "uninvited"
	OutcomeInvalid   = "invalid"
)

// Metrics holds the coordinator's Prometheus collectors.
type Metrics struct {
	invitations    *prometheus.CounterVec
	responses      *prometheus.CounterVec
	malformed      prometheus.Counter
	fanoutFailures prometheus.Counter
	summaries      *prometheus.CounterVec
	publishRetries prometheus.Counter
	events         *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on registerer.
// It panics if any is already registered there, as
// prometheus.MustRegister does.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		invitations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "coordinator",
				Name:      "invitations_total",
				Help:      "Invitations taken in, by result.",
			},
			[]string{"result"},
		),
		responses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "coordinator",
				Name:      "responses_total",
				Help:      "Guest responses taken in, by outcome.",
			},
			[]string{"outcome"},
		),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "malformed_messages_total",
			Help:      "Intake payloads that could not be decoded and were dead-lettered.",
		}),
		fanoutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "fanout_failures_total",
			Help:      "Invitation deliveries to individual guests that failed.",
		}),
		summaries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "coordinator",
				Name:      "summaries_total",
				Help:      "Compiled summaries, by trigger and delivery result.",
			},
			[]string{"trigger", "result"},
		),
		publishRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "summary_publish_retries_total",
			Help:      "Failed summary publish attempts that were retried.",
		}),
		events: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "events",
				Help:      "In-flight events, by state.",
			},
			[]string{"state"},
		),
	}
	registerer.MustRegister(
		m.invitations,
		m.responses,
		m.malformed,
		m.fanoutFailures,
		m.summaries,
		m.publishRetries,
		m.events,
	)
	return m
}

// InvitationAccepted counts an invitation that opened an event.
func (m *Metrics) InvitationAccepted() {
	if m == nil {
		return
	}
	m.invitations.WithLabelValues("accepted").Inc()
}

// InvitationRejected counts an invitation that was refused (duplicate
// id, invalid fields, unusable directory).
func (m *Metrics) InvitationRejected() {
	if m == nil {
		return
	}
	m.invitations.WithLabelValues("rejected").Inc()
}

// Response counts one response under outcome: a registry.MergeOutcome
// name or one of the Outcome constants.
func (m *Metrics) Response(outcome string) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(outcome).Inc()
}

// Malformed counts a dead-lettered intake payload.
func (m *Metrics) Malformed() {
	if m == nil {
		return
	}
	m.malformed.Inc()
}

// FanoutFailed counts one failed per-guest invitation publish.
func (m *Metrics) FanoutFailed() {
	if m == nil {
		return
	}
	m.fanoutFailures.Inc()
}

// SummaryPublished counts a summary delivered to its host.
func (m *Metrics) SummaryPublished(trigger string) {
	if m == nil {
		return
	}
	m.summaries.WithLabelValues(trigger, "published").Inc()
}

// SummaryFailed counts a summary abandoned after its retries ran out.
func (m *Metrics) SummaryFailed(trigger string) {
	if m == nil {
		return
	}
	m.summaries.WithLabelValues(trigger, "failed").Inc()
}

// PublishRetried counts one failed summary publish attempt that will
// be retried.
func (m *Metrics) PublishRetried() {
	if m == nil {
		return
	}
	m.publishRetries.Inc()
}

// SetEvents publishes the registry's per-state counts.
func (m *Metrics) SetEvents(stats registry.Stats) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(registry.Collecting.String()).Set(float64(stats.Collecting))
	m.events.WithLabelValues(registry.Summarizing.String()).Set(float64(stats.Summarizing))
	m.events.WithLabelValues("retired").Set(float64(stats.Retired))
}
