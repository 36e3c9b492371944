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

func TestMainLoop_RunDayDrainsAndAdvances(t *testing.T) {
	seq := NewSequencer()
	loop := NewMainLoop(seq, NewInteractantRegistry(), 0)

	var ran []int
	mk := func(wake int) *Agent {
		return NewAgent("a", seq, false, func(ctx *AgentContext) {
			ran = append(ran, ctx.TimeNow())
		})
	}
	a := mk(0)
	b := mk(0)
	seq.Enqueue(a, 0)
	seq.Enqueue(b, 0)

	var dayEnds []int
	loop.SetEveryDayCB(func(day int) { dayEnds = append(dayEnds, day) })

	more, err := loop.RunDay()
	require.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, []int{0, 0}, ran)
	assert.Equal(t, []int{0}, dayEnds)
}

func TestMainLoop_RunDayMultipleDays(t *testing.T) {
	seq := NewSequencer()
	loop := NewMainLoop(seq, NewInteractantRegistry(), 0)

	a := NewAgent("a", seq, false, func(ctx *AgentContext) {
		ctx.Sleep(3)
	})
	seq.Enqueue(a, 0)

	more, err := loop.RunDay()
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, 3, loop.TimeNow())

	more, err = loop.RunDay()
	require.NoError(t, err)
	assert.False(t, more)
	assert.True(t, a.Finished())
}

func TestMainLoop_SafetyCounter(t *testing.T) {
	seq := NewSequencer()
	loop := NewMainLoop(seq, NewInteractantRegistry(), 2)

	mk := func() *Agent {
		return NewAgent("a", seq, false, func(ctx *AgentContext) {})
	}
	seq.Enqueue(mk(), 0)
	seq.Enqueue(mk(), 0)
	seq.Enqueue(mk(), 0)

	_, err := loop.RunDay()
	require.Error(t, err)
	var kerr *KernelError
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, ErrSafetyExceeded, kerr.Kind)
}

func TestMainLoop_FreezeDateHoldsClock(t *testing.T) {
	seq := NewSequencer()
	loop := NewMainLoop(seq, NewInteractantRegistry(), 0)
	a := NewAgent("a", seq, false, func(ctx *AgentContext) {})
	seq.Enqueue(a, 0)

	loop.FreezeDate()
	more, err := loop.RunDay()
	require.NoError(t, err)
	assert.True(t, more, "a frozen day never reports itself done, even with nothing left to drain")
	assert.Equal(t, 0, loop.TimeNow())

	loop.UnfreezeDate()
	more, err = loop.RunDay()
	require.NoError(t, err)
	assert.False(t, more)
}

func TestMainLoop_StopRunningHaltsDrain(t *testing.T) {
	seq := NewSequencer()
	loop := NewMainLoop(seq, NewInteractantRegistry(), 0)
	var ran []string
	mk := func(name string) *Agent {
		return NewAgent(name, seq, false, func(ctx *AgentContext) {
			ran = append(ran, name)
		})
	}
	a, b := mk("a"), mk("b")
	seq.Enqueue(a, 0)
	seq.Enqueue(b, 0)

	loop.SetEveryEventCB(func(timeNow int, ag *Agent) { loop.StopRunning() })

	more, err := loop.RunDay()
	require.NoError(t, err)
	assert.False(t, more)
	assert.True(t, loop.Stopped())
	assert.Equal(t, []string{"a"}, ran, "the second agent must never run once StopRunning fires after the first")
}

func TestMainLoop_EveryTickCBFiresPerCall(t *testing.T) {
	seq := NewSequencer()
	loop := NewMainLoop(seq, NewInteractantRegistry(), 0)
	a := NewAgent("a", seq, false, func(ctx *AgentContext) { ctx.Sleep(2) })
	seq.Enqueue(a, 0)

	type tick struct{ old, new int }
	var ticks []tick
	loop.SetEveryTickCB(func(oldTime, newTime int) { ticks = append(ticks, tick{oldTime, newTime}) })

	_, err := loop.RunDay()
	require.NoError(t, err)
	assert.Equal(t, []tick{{0, 2}}, ticks)
}

func TestMainLoop_Census(t *testing.T) {
	seq := NewSequencer()
	registry := NewInteractantRegistry()
	lock := NewInteractant("door")
	registry.Register(lock)
	loop := NewMainLoop(seq, registry, 0)

	holder := NewAgent("Person", seq, false, func(ctx *AgentContext) {
		lock.Lock(ctx)
		ctx.Sleep(5)
	})
	waiter := NewAgent("Person", seq, false, func(ctx *AgentContext) {
		lock.Lock(ctx)
	})
	seq.Enqueue(holder, 0)
	seq.Enqueue(waiter, 0)

	_, err := loop.RunDay()
	require.NoError(t, err)

	agents, interactants := loop.Census()
	assert.Equal(t, 1, agents["Person"])
	assert.Equal(t, 1, interactants["door"])
}
