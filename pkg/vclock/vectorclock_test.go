// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package vclock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_IncrMerge(t *testing.T) {
	a := New(3)
	b := New(3)

	a.Incr(0)
	a.Incr(0)
	b.Incr(1)

	assert.Equal(t, int64(2), a.At(0))
	assert.Equal(t, int64(0), a.At(1))

	a.Merge(b)
	assert.Equal(t, int64(2), a.At(0))
	assert.Equal(t, int64(1), a.At(1))
}

func TestClock_BeforeAfter(t *testing.T) {
	a := New(2)
	b := a.Copy()
	b.Incr(0)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, b.Before(a))
}

func TestClock_Simultaneous(t *testing.T) {
	a := New(2)
	a.Incr(0)
	b := New(2)
	b.Incr(1)

	assert.True(t, a.Simultaneous(b))
	assert.False(t, a.Before(b))
	assert.False(t, b.Before(a))
}

func TestClock_EqualNotSimultaneous(t *testing.T) {
	a := New(2)
	b := New(2)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Simultaneous(b))
}

func TestMaxMin(t *testing.T) {
	a := New(2)
	a.Incr(0)
	b := New(2)
	b.Incr(1)

	max := Max(a, b)
	assert.Equal(t, int64(1), max.At(0))
	assert.Equal(t, int64(1), max.At(1))

	min := Min(a, b)
	assert.Equal(t, int64(0), min.At(0))
	assert.Equal(t, int64(0), min.At(1))
}

func TestClock_SnapshotRestore(t *testing.T) {
	a := New(3)
	a.Incr(0)
	a.Incr(1)
	a.Incr(1)

	snap := a.Snapshot()
	b := New(3)
	b.Restore(snap)

	assert.True(t, a.Equal(b))

	snap[0] = 99
	assert.Equal(t, int64(1), a.At(0), "mutating the snapshot must not affect the clock")
}

func TestClock_Copy_Independent(t *testing.T) {
	a := New(1)
	b := a.Copy()
	b.Incr(0)
	assert.Equal(t, int64(0), a.At(0))
	assert.Equal(t, int64(1), b.At(0))
}
