// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package kernel

import "sync"

// LiveInteractant is the subset of Interactant/MultiInteractant behavior
// needed for census reporting and for the done-with-today check.
type LiveInteractant interface {
	Name() string
	IsLocked() bool
	WaitQueueLen() int
	// HasNonTimelessWaiter reports whether any agent parked in this
	// interactant's wait queue is a non-timeless agent — one whose
	// business for today is not actually finished just because it is off
	// the sequencer.
	HasNonTimelessWaiter() bool
}

// InteractantRegistry tracks every interactant registered with it (a
// Patch registers the gate interactants it creates; others must be
// passed to Register explicitly) so
// that a census can enumerate wait-queue depths without the patch having
// to thread a fixed list through every constructor call.
//
// The original kernel keeps this as a weak reference list so interactants
// fall out of the census the instant nothing else holds them. A patch's
// interactants live exactly as long as the patch itself, so that
// lifetime is already bounded; Register/Unregister give the same
// census behavior with explicit lifetime management instead of runtime
// weak references.
type InteractantRegistry struct {
	mu      sync.Mutex
	entries []LiveInteractant
}

// NewInteractantRegistry returns an empty registry.
func NewInteractantRegistry() *InteractantRegistry {
	return &InteractantRegistry{}
}

// Register adds i to the registry.
func (r *InteractantRegistry) Register(i LiveInteractant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, i)
}

// Unregister removes i from the registry, e.g. when its owning patch is
// torn down.
func (r *InteractantRegistry) Unregister(i LiveInteractant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for idx, e := range r.entries {
		if e == i {
			r.entries = append(r.entries[:idx:idx], r.entries[idx+1:]...)
			return
		}
	}
}

// Census returns, for every registered interactant, its current
// wait-queue depth keyed by name.
func (r *InteractantRegistry) Census() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.entries))
	for _, e := range r.entries {
		out[e.Name()] = e.WaitQueueLen()
	}
	return out
}

// AnyNonTimelessWaiting reports whether any registered interactant holds a
// non-timeless agent in its wait queue — e.g. an agent parked on an
// inbound gate, waiting for a cross-rank message that will arrive later in
// this same communication cycle. MainLoop consults this to decide whether
// a day is truly done, not merely locally drained.
func (r *InteractantRegistry) AnyNonTimelessWaiting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.HasNonTimelessWaiter() {
			return true
		}
	}
	return false
}
