// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package patch

import (
	"quiltkernel/pkg/kernel"
	"quiltkernel/pkg/transport"
)

// Mailbox delivers inbound envelopes to the agent waiting on a given
// destination tag, keyed the way peopleplaces.py's HoldQueue keys waiters
// by a unique arrival key. Exactly one agent (or none) waits on a given
// tag at a time in every scenario this kernel schedules, so pending
// envelopes for a tag queue up FIFO the same as the wait queue itself.
//
// Like the rest of the kernel's interactants, Mailbox carries no mutex:
// the cooperative scheduler guarantees only one agent's logic, or the
// PatchGroup's own dispatch step, ever runs at a time within a rank.
type Mailbox struct {
	hold    *kernel.KeyedInteractant[int]
	pending map[int][]transport.Envelope
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{
		hold:    kernel.NewKeyedInteractant[int]("mailbox"),
		pending: make(map[int][]transport.Envelope),
	}
}

// Deliver queues env under its destination tag and wakes any agent
// waiting for that tag, in FIFO order of arrival. Called by the
// PatchGroup once per cycle, after FinishRecv returns this cycle's
// inbound envelopes.
func (m *Mailbox) Deliver(env transport.Envelope) {
	tag := env.DestTag
	m.pending[tag] = append(m.pending[tag], env)
	m.hold.Awaken(tag)
}

// Receive blocks ctx's agent until an envelope tagged tag has arrived,
// then returns it. If one is already pending it returns immediately
// without suspending.
func (m *Mailbox) Receive(ctx *kernel.AgentContext, tag int) transport.Envelope {
	if len(m.pending[tag]) == 0 {
		m.hold.Suspend(ctx, tag)
	}
	env := m.pending[tag][0]
	m.pending[tag] = m.pending[tag][1:]
	return env
}

// Pending reports how many envelopes are queued for tag without
// consuming them, used by agents that want to drain a burst in one run
// step.
func (m *Mailbox) Pending(tag int) int {
	return len(m.pending[tag])
}
