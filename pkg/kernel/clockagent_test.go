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

func TestClockAgent_FiresDailyAndCheckpointHooks(t *testing.T) {
	seq := NewSequencer()
	loop := NewMainLoop(seq, NewInteractantRegistry(), 0)

	var days []int
	var checkpoints []int
	clock := NewClockAgent("clock", seq, 2, func(d int) {
		days = append(days, d)
	}, func(d int) {
		checkpoints = append(checkpoints, d)
	})
	seq.Enqueue(clock, 0)

	for i := 0; i < 4; i++ {
		_, err := loop.RunDay()
		require.NoError(t, err)
	}

	assert.Equal(t, []int{0, 1, 2, 3}, days)
	assert.Equal(t, []int{0, 2}, checkpoints)
	assert.True(t, clock.Timeless())
}
