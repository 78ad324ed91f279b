// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads configuration for the RSVP binaries.
//
// Configuration is read from a single YAML file named by either the
// RSVP_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no search path and no ~/.config
// discovery. A command started with neither runs on [Default].
//
// The file may carry environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches. Production is stricter: [Config.Validate]
// refuses the in-memory broker there.
//
// After the file, two explicit override layers apply, in order:
//
//   - [LoadDotEnv] reads a .env file into the process environment
//     without replacing variables that are already set.
//   - [Config.ApplyEnv] copies the RSVP_* variables listed on
//     [EnvOverrides] onto the config.
//
// Durations are written the way time.ParseDuration reads them
// ("30s", "2m").
package config
