// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiltkernel/pkg/addr"
	"quiltkernel/pkg/kernel"
)

func TestBuildStartupOrder_RespectsDependencies(t *testing.T) {
	reg := kernel.NewInteractantRegistry()
	a := NewPatch("A", addr.New(0, 0), reg)
	b := NewPatch("B", addr.New(0, 1), reg, "A")
	c := NewPatch("C", addr.New(0, 2), reg, "B")

	order, err := buildStartupOrder([]*Patch{c, a, b})
	require.NoError(t, err)

	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	assert.Less(t, pos["A"], pos["B"])
	assert.Less(t, pos["B"], pos["C"])
}

func TestBuildStartupOrder_NoDependenciesKeepsAll(t *testing.T) {
	reg := kernel.NewInteractantRegistry()
	a := NewPatch("A", addr.New(0, 0), reg)
	b := NewPatch("B", addr.New(0, 1), reg)

	order, err := buildStartupOrder([]*Patch{a, b})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, order)
}

func TestBuildStartupOrder_CycleIsError(t *testing.T) {
	reg := kernel.NewInteractantRegistry()
	a := NewPatch("A", addr.New(0, 0), reg, "B")
	b := NewPatch("B", addr.New(0, 1), reg, "A")

	_, err := buildStartupOrder([]*Patch{a, b})
	assert.Error(t, err)
}
