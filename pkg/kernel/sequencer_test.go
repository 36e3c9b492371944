// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencer_EnqueuePastTimeNowPanics(t *testing.T) {
	seq := NewSequencer()
	seq.BumpTime() // no-op, stays at 0
	a := NewAgent("a", seq, false, func(ctx *AgentContext) {})
	assert.Panics(t, func() { seq.Enqueue(a, -5) })
}

func TestSequencer_BumpTimePicksEarliestFuture(t *testing.T) {
	seq := NewSequencer()
	a := NewAgent("a", seq, false, nil)
	b := NewAgent("b", seq, false, nil)
	seq.Enqueue(a, 5)
	seq.Enqueue(b, 2)

	day, more := seq.BumpTime()
	require.True(t, more)
	assert.Equal(t, 2, day)

	_, ok := seq.Next()
	require.True(t, ok)
	assert.True(t, seq.DoneWithToday())

	day, more = seq.BumpTime()
	require.True(t, more)
	assert.Equal(t, 5, day)
}

func TestSequencer_BumpTimeNoMoreWork(t *testing.T) {
	seq := NewSequencer()
	_, more := seq.BumpTime()
	assert.False(t, more)
}

func TestSequencer_UnenqueueRemovesAgent(t *testing.T) {
	seq := NewSequencer()
	a := NewAgent("a", seq, false, nil)
	b := NewAgent("b", seq, false, nil)
	seq.Enqueue(a, 3)
	seq.Enqueue(b, 3)

	assert.True(t, seq.Unenqueue(a))
	assert.False(t, seq.Unenqueue(a))

	seq.BumpTime()
	next, ok := seq.Next()
	require.True(t, ok)
	assert.Same(t, b, next)
	_, ok = seq.Next()
	assert.False(t, ok)
}

func TestSequencer_WaitingCensus(t *testing.T) {
	seq := NewSequencer()
	a := NewAgent("Person", seq, false, nil)
	b := NewAgent("Person", seq, false, nil)
	c := NewAgent("Manager", seq, false, nil)
	seq.Enqueue(a, 1)
	seq.Enqueue(b, 2)
	seq.Enqueue(c, 1)

	census := seq.WaitingCensus()
	assert.Equal(t, 2, census["Person"])
	assert.Equal(t, 1, census["Manager"])
}

func TestSequencer_NextObservesGrowthDuringDrain(t *testing.T) {
	seq := NewSequencer()
	var spawned *Agent
	a := NewAgent("a", seq, false, func(ctx *AgentContext) {
		spawned = NewAgent("b", seq, false, nil)
		seq.Enqueue(spawned, ctx.TimeNow())
	})
	seq.Enqueue(a, 1)
	seq.BumpTime()

	first, ok := seq.Next()
	require.True(t, ok)
	first.Resume()

	second, ok := seq.Next()
	require.True(t, ok)
	assert.Same(t, spawned, second)
}
