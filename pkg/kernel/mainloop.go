// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package kernel

// MainLoop drives a rank's Sequencer one simulated day at a time. It owns
// no network concerns of its own; a PatchGroup calls RunDay once per
// cross-rank communication cycle and performs its transport exchange in
// between calls.
type MainLoop struct {
	seq      *Sequencer
	registry *InteractantRegistry

	everyEventCB func(timeNow int, a *Agent)
	everyDayCB   func(timeNow int)
	everyTickCB  func(oldTime, newTime int)

	safety     int
	eventCount int

	frozen        bool
	stopRequested bool
}

// NewMainLoop returns a MainLoop over seq. safety bounds the total number
// of agent-run events across the loop's lifetime; zero disables the
// check.
func NewMainLoop(seq *Sequencer, registry *InteractantRegistry, safety int) *MainLoop {
	return &MainLoop{seq: seq, registry: registry, safety: safety}
}

// Sequencer returns the underlying sequencer.
func (m *MainLoop) Sequencer() *Sequencer { return m.seq }

// TimeNow returns the simulated day the loop is currently draining.
func (m *MainLoop) TimeNow() int { return m.seq.TimeNow() }

// SetEveryEventCB installs a hook invoked after each agent's run step.
func (m *MainLoop) SetEveryEventCB(cb func(timeNow int, a *Agent)) { m.everyEventCB = cb }

// SetEveryDayCB installs a hook invoked once, after every agent scheduled
// for the current day has run, before the clock advances.
func (m *MainLoop) SetEveryDayCB(cb func(timeNow int)) { m.everyDayCB = cb }

// SetEveryTickCB installs a hook invoked once per RunDay call, reporting
// the day the loop was on before this call (oldTime) and the day it is on
// after (newTime) — equal unless the day was actually advanced this call.
func (m *MainLoop) SetEveryTickCB(cb func(oldTime, newTime int)) { m.everyTickCB = cb }

// FreezeDate prevents RunDay from advancing the clock past the current
// day, even once doneWithToday would otherwise allow it. Agents already
// scheduled for today still run; the day simply never ends.
func (m *MainLoop) FreezeDate() { m.frozen = true }

// UnfreezeDate reverses FreezeDate, letting RunDay advance the clock again
// once the current day is actually done.
func (m *MainLoop) UnfreezeDate() { m.frozen = false }

// StopRunning asks the loop to stop at the next safe point: the drain loop
// currently in progress (if any) exits without finishing today's bucket,
// and RunDay returns (false, nil) from then on until the caller recreates
// the loop.
func (m *MainLoop) StopRunning() { m.stopRequested = true }

// Stopped reports whether StopRunning has been called.
func (m *MainLoop) Stopped() bool { return m.stopRequested }

// doneWithToday reports the full done-with-today condition: every agent
// still scheduled for today is timeless, and no non-timeless agent is
// parked waiting inside any interactant registered with this loop — the
// second half matters for a rank mid cross-rank cycle, where an agent
// waiting on an inbound gate is still logically in play for today even
// though it has been removed from the sequencer entirely.
func (m *MainLoop) doneWithToday() bool {
	if !m.seq.DoneWithToday() {
		return false
	}
	return m.registry == nil || !m.registry.AnyNonTimelessWaiting()
}

// RunDay drains every agent scheduled at the sequencer's current time,
// fires the end-of-day hook once today is actually done, and advances the
// clock to the next populated bucket. It returns false once no further
// days are scheduled locally — the caller (typically a PatchGroup) must
// still check for inbound cross-rank work before concluding the whole run
// has terminated.
func (m *MainLoop) RunDay() (bool, error) {
	if m.stopRequested {
		return false, nil
	}
	for {
		a, ok := m.seq.Next()
		if !ok {
			break
		}
		if a.Finished() {
			continue
		}
		m.eventCount++
		if m.safety > 0 && m.eventCount > m.safety {
			return false, newKernelError(ErrSafetyExceeded, a.Name(), "event safety counter exceeded")
		}
		a.Resume()
		if m.everyEventCB != nil {
			m.everyEventCB(m.seq.TimeNow(), a)
		}
		if m.stopRequested {
			return false, nil
		}
	}

	oldTime := m.seq.TimeNow()
	if m.frozen || !m.doneWithToday() {
		if m.everyTickCB != nil {
			m.everyTickCB(oldTime, oldTime)
		}
		return true, nil
	}

	if m.everyDayCB != nil {
		m.everyDayCB(oldTime)
	}
	_, more := m.seq.BumpTime()
	if m.everyTickCB != nil {
		m.everyTickCB(oldTime, m.seq.TimeNow())
	}
	return more, nil
}

// Census reports the current waiting-agent and interactant-wait-queue
// counts, for diagnosing a stalled rank.
func (m *MainLoop) Census() (agents map[string]int, interactants map[string]int) {
	agents = m.seq.WaitingCensus()
	if m.registry != nil {
		interactants = m.registry.Census()
	} else {
		interactants = map[string]int{}
	}
	return agents, interactants
}
