// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiltkernel/pkg/kernel"
	"quiltkernel/pkg/transport"
)

func TestMailbox_DeliverBeforeReceive(t *testing.T) {
	mb := NewMailbox()
	mb.Deliver(transport.Envelope{DestTag: 7, Payload: "hello"})

	seq := kernel.NewSequencer()
	var got transport.Envelope
	a := kernel.NewAgent("a", seq, false, func(ctx *kernel.AgentContext) {
		got = mb.Receive(ctx, 7)
	})
	seq.Enqueue(a, 0)
	a.Resume()

	require.True(t, a.Finished())
	assert.Equal(t, "hello", got.Payload)
}

func TestMailbox_ReceiveBlocksUntilDeliver(t *testing.T) {
	mb := NewMailbox()
	seq := kernel.NewSequencer()
	var got transport.Envelope
	a := kernel.NewAgent("waiter", seq, false, func(ctx *kernel.AgentContext) {
		got = mb.Receive(ctx, 3)
	})
	seq.Enqueue(a, 0)
	a.Resume()
	assert.False(t, a.Finished())
	assert.Equal(t, 0, mb.Pending(3))

	mb.Deliver(transport.Envelope{DestTag: 3, Payload: 42})
	assert.True(t, a.Finished())
	assert.Equal(t, 42, got.Payload)
}

func TestMailbox_FIFOAmongMultipleArrivals(t *testing.T) {
	mb := NewMailbox()
	mb.Deliver(transport.Envelope{DestTag: 1, Payload: "first"})
	mb.Deliver(transport.Envelope{DestTag: 1, Payload: "second"})

	seq := kernel.NewSequencer()
	var order []string
	mk := func(name string) *kernel.Agent {
		return kernel.NewAgent(name, seq, false, func(ctx *kernel.AgentContext) {
			env := mb.Receive(ctx, 1)
			order = append(order, env.Payload.(string))
		})
	}
	a, b := mk("a"), mk("b")
	seq.Enqueue(a, 0)
	seq.Enqueue(b, 0)
	a.Resume()
	b.Resume()

	assert.Equal(t, []string{"first", "second"}, order)
}
