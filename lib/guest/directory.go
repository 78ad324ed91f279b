// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package guest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/rsvp/lib/rsvp"
)

// Guest is a registered guest identity.
type Guest struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// DisplayName returns Name, or ID when no name is registered.
func (g Guest) DisplayName() string {
	if g.Name != "" {
		return g.Name
	}
	return g.ID
}

// Directory looks up the guests an invitation is sent to.
type Directory interface {
	// Guests returns the current guest list. The caller owns the
	// returned slice.
	Guests(ctx context.Context) ([]Guest, error)
}

// Validate checks that every guest id is usable as a topic segment and
// that no id appears twice.
func Validate(guests []Guest) error {
	seen := make(map[string]bool, len(guests))
	for _, guest := range guests {
		if err := rsvp.ValidateToken("guest id", guest.ID); err != nil {
			return err
		}
		if seen[guest.ID] {
			return fmt.Errorf("duplicate guest id %q", guest.ID)
		}
		seen[guest.ID] = true
	}
	return nil
}

// Static is a Directory over a fixed guest list.
type Static struct {
	guests []Guest
}

// NewStatic validates guests and returns a Directory serving a copy of
// them.
func NewStatic(guests []Guest) (*Static, error) {
	if err := Validate(guests); err != nil {
		return nil, err
	}
	return &Static{guests: append([]Guest(nil), guests...)}, nil
}

func (s *Static) Guests(context.Context) ([]Guest, error) {
	return append([]Guest(nil), s.guests...), nil
}

// FileDirectory reads the guest list from a file on every lookup.
//
// The file holds a top-level "guests" list:
//
//	guests:
//	  - id: guest_alice
//	    name: Alice
//	  - id: guest_bob
//	    name: Bob
//
// Files ending in .json or .jsonc are read as JSON, where // and /* */
// comments and trailing commas are allowed. Anything else is YAML.
type FileDirectory struct {
	path string
}

// NewFileDirectory returns a FileDirectory for path. The file is not
// read until the first lookup.
func NewFileDirectory(path string) *FileDirectory {
	return &FileDirectory{path: path}
}

type guestFile struct {
	Guests []Guest `yaml:"guests" json:"guests"`
}

func (d *FileDirectory) Guests(context.Context) ([]Guest, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("reading guest directory %s: %w", d.path, err)
	}
	var file guestFile
	switch strings.ToLower(filepath.Ext(d.path)) {
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), &file)
	default:
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing guest directory %s: %w", d.path, err)
	}
	if err := Validate(file.Guests); err != nil {
		return nil, fmt.Errorf("guest directory %s: %w", d.path, err)
	}
	return file.Guests, nil
}

// IDs returns the guest ids in sorted order.
func IDs(guests []Guest) []string {
	ids := make([]string, len(guests))
	for i, guest := range guests {
		ids[i] = guest.ID
	}
	sort.Strings(ids)
	return ids
}
