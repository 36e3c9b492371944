// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package kernel

import (
	"fmt"
	"sync"
)

// Sequencer holds the time-indexed FIFO queues of agents waiting to run.
// Exactly one rank-local Sequencer backs a MainLoop; agents enqueue
// themselves on it when they sleep, and the MainLoop drains it one time
// bucket at a time.
type Sequencer struct {
	mu         sync.Mutex
	timeQueues map[int][]*Agent
	timeNow    int
}

// NewSequencer returns an empty sequencer with the clock at zero.
func NewSequencer() *Sequencer {
	return &Sequencer{timeQueues: make(map[int][]*Agent)}
}

// TimeNow returns the sequencer's current simulated day.
func (s *Sequencer) TimeNow() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeNow
}

// Enqueue schedules agent a to wake at wakeTime. wakeTime must not precede
// the current day — an agent cannot be scheduled into the past — and
// Enqueue panics with a KernelError rather than silently clamping it up,
// since a past wake time almost always means a caller computed an absolute
// time where a relative one was required.
func (s *Sequencer) Enqueue(a *Agent, wakeTime int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wakeTime < s.timeNow {
		panic(newKernelError(ErrPastEnqueue, a.Name(),
			fmt.Sprintf("enqueue at day %d precedes current day %d", wakeTime, s.timeNow)))
	}
	a.wakeTime = wakeTime
	s.timeQueues[wakeTime] = append(s.timeQueues[wakeTime], a)
}

// Unenqueue removes agent a from whatever time bucket it is waiting in, if
// any. It reports whether the agent was found.
func (s *Sequencer) Unenqueue(a *Agent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.timeQueues[a.wakeTime]
	for i, x := range q {
		if x == a {
			s.timeQueues[a.wakeTime] = append(q[:i:i], q[i+1:]...)
			return true
		}
	}
	return false
}

// GetAgentWakeTime returns the time at which a is next due to run.
func (s *Sequencer) GetAgentWakeTime(a *Agent) int {
	return a.wakeTime
}

// NWaitingNow returns the number of agents still scheduled at timeNow.
func (s *Sequencer) NWaitingNow() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timeQueues[s.timeNow])
}

// WaitingCensus tallies, across every pending time bucket, how many agents
// of each name are waiting to run. Useful for diagnosing a stalled rank.
func (s *Sequencer) WaitingCensus() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	census := make(map[string]int)
	for _, agents := range s.timeQueues {
		for _, a := range agents {
			census[a.Name()]++
		}
	}
	return census
}

// DoneWithToday reports whether every agent still scheduled at timeNow is
// timeless — a background agent like the clock that never counts toward
// the day being "finished." A non-timeless agent left in today's bucket
// (one that legitimately has more to do today) means today is not done,
// even though the full definition of done-with-today also depends on
// whether any non-timeless agent is parked in a live interactant; that
// half is the caller's (MainLoop's) responsibility via the registry.
func (s *Sequencer) DoneWithToday() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.timeQueues[s.timeNow] {
		if !a.Timeless() {
			return false
		}
	}
	return true
}

// BumpTime advances timeNow to the earliest future bucket holding at least
// one agent, reporting false when no such bucket exists.
func (s *Sequencer) BumpTime() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := -1
	for t, q := range s.timeQueues {
		if len(q) == 0 {
			continue
		}
		if t > s.timeNow && (best == -1 || t < best) {
			best = t
		}
	}
	if best == -1 {
		return s.timeNow, false
	}
	s.timeNow = best
	return s.timeNow, true
}

// Next pops the next agent due to run at timeNow, if any. Agents enqueued
// for timeNow by another agent's run step while this method is being
// called repeatedly in a drain loop are still observed, matching the
// original kernel's iterate-while-growing semantics.
func (s *Sequencer) Next() (*Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.timeQueues[s.timeNow]
	if len(q) == 0 {
		return nil, false
	}
	a := q[0]
	s.timeQueues[s.timeNow] = q[1:]
	return a, true
}
