// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

// retiredRing remembers the most recent closed event ids, evicting the
// oldest once full. Not safe for concurrent use; the Registry lock
// guards it.
type retiredRing struct {
	ids   []string
	index map[string]bool
	next  int
}

func newRetiredRing(capacity int) *retiredRing {
	return &retiredRing{
		ids:   make([]string, 0, capacity),
		index: make(map[string]bool, capacity),
	}
}

func (r *retiredRing) add(id string) {
	if r.index[id] {
		return
	}
	if len(r.ids) < cap(r.ids) {
		r.ids = append(r.ids, id)
	} else {
		delete(r.index, r.ids[r.next])
		r.ids[r.next] = id
		r.next = (r.next + 1) % len(r.ids)
	}
	r.index[id] = true
}

func (r *retiredRing) contains(id string) bool { return r.index[id] }

func (r *retiredRing) len() int { return len(r.ids) }
