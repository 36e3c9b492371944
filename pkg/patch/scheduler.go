// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package patch

import (
	"fmt"

	"github.com/gammazero/toposort"
)

// buildStartupOrder topologically sorts patches by their dependsOn lists
// so that a patch is only started after every patch it depends on (e.g.
// one that owns a service directory entry it looks up at startup) is
// already running. Adapted from the teacher's DAG task scheduler, with
// tasks replaced by patches and deps replaced by intra-rank patch names.
func buildStartupOrder(patches []*Patch) ([]string, error) {
	if len(patches) == 0 {
		return []string{}, nil
	}

	edges := make([]toposort.Edge, 0)
	for _, p := range patches {
		for _, dep := range p.dependsOn {
			edges = append(edges, toposort.Edge{dep, p.Name})
		}
	}

	if len(edges) == 0 {
		flatOrder := make([]string, 0, len(patches))
		for _, p := range patches {
			flatOrder = append(flatOrder, p.Name)
		}
		return flatOrder, nil
	}

	sortedNodes, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("patch: cycle detected among patch dependencies: %w", err)
	}

	inSorted := make(map[string]bool, len(sortedNodes))
	flatOrder := make([]string, 0, len(patches))
	for _, node := range sortedNodes {
		name := node.(string)
		inSorted[name] = true
		flatOrder = append(flatOrder, name)
	}

	for _, p := range patches {
		if !inSorted[p.Name] {
			flatOrder = append([]string{p.Name}, flatOrder...)
		}
	}

	return flatOrder, nil
}
