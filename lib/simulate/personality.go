// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package simulate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bureau-foundation/rsvp/lib/rsvp"
)

// Personality sets how likely a simulated guest is to accept. Yes and
// Maybe are probabilities in [0, 1] whose sum is at most 1; the rest
// of the mass is No.
type Personality struct {
	Name  string
	Yes   float64
	Maybe float64
}

var personalities = []Personality{
	{Name: "enthusiastic", Yes: 0.8, Maybe: 0.15},
	{Name: "busy", Yes: 0.3, Maybe: 0.4},
	{Name: "social", Yes: 0.7, Maybe: 0.2},
	{Name: "introverted", Yes: 0.2, Maybe: 0.3},
	{Name: "spontaneous", Yes: 0.6, Maybe: 0.3},
}

// Personalities returns the built-in personalities.
func Personalities() []Personality {
	return append([]Personality(nil), personalities...)
}

// PersonalityNames lists the built-in personality names, sorted.
func PersonalityNames() []string {
	names := make([]string, 0, len(personalities))
	for _, personality := range personalities {
		names = append(names, personality.Name)
	}
	sort.Strings(names)
	return names
}

// LookupPersonality finds a built-in personality by name,
// case-insensitively.
func LookupPersonality(name string) (Personality, error) {
	for _, personality := range personalities {
		if strings.EqualFold(personality.Name, strings.TrimSpace(name)) {
			return personality, nil
		}
	}
	return Personality{}, fmt.Errorf("unknown personality %q (want one of %s)",
		name, strings.Join(PersonalityNames(), ", "))
}

// Validate checks that the probabilities form a distribution.
func (p Personality) Validate() error {
	if p.Yes < 0 || p.Maybe < 0 {
		return fmt.Errorf("personality %q: probabilities must not be negative", p.Name)
	}
	if p.Yes+p.Maybe > 1 {
		return fmt.Errorf("personality %q: yes (%.2f) + maybe (%.2f) exceeds 1", p.Name, p.Yes, p.Maybe)
	}
	return nil
}

// Decide maps roll, uniform in [0, 1), to a decision.
func (p Personality) Decide(roll float64) rsvp.Decision {
	switch {
	case roll < p.Yes:
		return rsvp.DecisionYes
	case roll < p.Yes+p.Maybe:
		return rsvp.DecisionMaybe
	default:
		return rsvp.DecisionNo
	}
}

var messages = map[rsvp.Decision][]string{
	rsvp.DecisionYes: {
		"Can't wait!",
		"Absolutely! Count me in!",
		"Sounds amazing! I'll be there!",
		"Looking forward to it!",
		"Wouldn't miss it for the world!",
	},
	rsvp.DecisionMaybe: {
		"I'll try to make it!",
		"Sounds fun, but I need to check my schedule",
		"Put me down as a maybe",
		"I'll let you know closer to the date",
		"Depends on work, but I'll try!",
	},
	rsvp.DecisionNo: {
		"Sorry, can't make it",
		"Already have plans that day",
		"Unfortunately I'll be out of town",
		"Can't attend, but have fun!",
		"Sorry, won't be able to join",
	},
}

// Message picks the note that accompanies decision. pick is an index
// source such as rand.IntN.
func Message(decision rsvp.Decision, pick func(n int) int) string {
	options := messages[decision]
	if len(options) == 0 {
		return ""
	}
	return options[pick(len(options))]
}
