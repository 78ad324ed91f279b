// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Rsvp-coordinator is the RSVP coordinator service. It consumes
// invitations and guest responses from the shared intake topic, fans
// each invitation out to every registered guest, collects responses
// for the collection window, and publishes one summary per event to
// the host's topic.
//
// # Configuration
//
// Settings come from the YAML file named by --config or RSVP_CONFIG,
// falling back to built-in defaults. A .env file in the working
// directory and RSVP_* environment variables override the file. See
// package config for the full list.
//
// # Broker
//
// In normal operation the coordinator talks to NATS JetStream. Every
// coordinator replica shares the durable "coordinator" consumer on the
// intake subject, so each message is processed once. With
// broker.driver set to "memory" the broker lives inside the process
// and the configured guests are simulated in process too; --demo then
// sends one invitation at startup and prints its summary.
//
// # Operations
//
// The admin HTTP listener serves /healthz, Prometheus /metrics, and
// JSON event listings under /events. The control socket answers the
// "status", "events", and "event" actions used by rsvp-host.
//
// On SIGINT or SIGTERM the coordinator stops consuming, cancels every
// pending deadline, lets summaries already being published finish,
// and exits. Events still collecting are abandoned without a summary.
package main
