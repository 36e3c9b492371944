// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package patch

import (
	"fmt"

	"quiltkernel/pkg/addr"
	"quiltkernel/pkg/kernel"
	"quiltkernel/pkg/transport"
)

// PatchGroup owns every patch running on one rank and drives the
// per-simulated-day cross-rank communication cycle: drain the local
// sequencer for the day, exchange chunks with every other rank, dispatch
// what arrived into the owning patches' mailboxes, and decide whether the
// whole distributed run has terminated.
//
// Grounded on the original kernel's PatchGroup/MainLoop pairing
// (agent.py) plus netinterface_mpi.py's per-cycle
// startRecv/run/startSend/finishSend/finishRecv/sendDoneSignal sequence.
type PatchGroup struct {
	rank    int
	patches map[string]*Patch
	order   []string

	loop *kernel.MainLoop
	net  *transport.NetworkInterface
}

// NewPatchGroup creates an empty patch group for rank, driven by loop and
// exchanging cross-rank traffic over net.
func NewPatchGroup(rank int, loop *kernel.MainLoop, net *transport.NetworkInterface) *PatchGroup {
	return &PatchGroup{
		rank:    rank,
		patches: make(map[string]*Patch),
		loop:    loop,
		net:     net,
	}
}

// AddPatch registers p with the group. Start must be called again (or
// for the first time) after all patches are added, to recompute the
// dependency-respecting startup order.
func (g *PatchGroup) AddPatch(p *Patch) {
	g.patches[p.Name] = p
}

// Patch looks up a previously added patch by name.
func (g *PatchGroup) Patch(name string) (*Patch, bool) {
	p, ok := g.patches[name]
	return p, ok
}

// Start computes the dependency-respecting order patches should be
// brought up in. It must be called once after every AddPatch call and
// before the first RunCycle.
func (g *PatchGroup) Start() error {
	patches := make([]*Patch, 0, len(g.patches))
	for _, p := range g.patches {
		patches = append(patches, p)
	}
	order, err := buildStartupOrder(patches)
	if err != nil {
		return err
	}
	g.order = order
	return nil
}

// StartupOrder returns the patch names in the order Start computed.
func (g *PatchGroup) StartupOrder() []string { return g.order }

// RunCycle advances the simulation by one cross-rank communication
// cycle: it drains every agent scheduled at the sequencer's current
// local day, exchanges chunks with every other rank, delivers what
// arrived into the destination patches' mailboxes, and reports whether
// the run should continue.
//
// The cycle follows the original kernel's fixed order: startRecv opens the
// receive phase; the local day runs to completion, during
// which agents may stage outbound envelopes via the NetworkInterface; once
// the local day has no more work, sendDoneSignal is consulted so the
// marker it arms rides out with this very cycle's outbound chunks;
// startSend/finishSend ship them; finishRecv blocks until every peer has
// signaled end-of-cycle, merging vector clocks as replies arrive.
func (g *PatchGroup) RunCycle() (bool, error) {
	g.net.StartRecv()

	localMore, err := g.loop.RunDay()
	if err != nil {
		return false, fmt.Errorf("patch: rank %d: %w", g.rank, err)
	}

	done := false
	if !localMore {
		done = g.net.SendDoneSignal()
	}

	if err := g.net.StartSend(); err != nil {
		return false, fmt.Errorf("patch: rank %d: %w", g.rank, err)
	}
	if err := g.net.FinishSend(); err != nil {
		return false, fmt.Errorf("patch: rank %d: %w", g.rank, err)
	}

	delivered, err := g.net.FinishRecv()
	if err != nil {
		return false, fmt.Errorf("patch: rank %d: %w", g.rank, err)
	}
	for _, env := range delivered {
		p := g.patchForAddr(env.Dest.GetPatchAddr())
		if p == nil {
			continue
		}
		p.Mailbox().Deliver(env)
	}

	return !done, nil
}

// patchForAddr finds which patch owns a patch-level address. Patches are
// few per rank, so a linear scan is simpler and plenty fast compared to
// maintaining a second address-keyed index in step with patches.
func (g *PatchGroup) patchForAddr(patchAddr addr.GblAddr) *Patch {
	for _, p := range g.patches {
		if p.Addr.Equal(patchAddr) {
			return p
		}
	}
	return nil
}

// PatchByAddr looks up the same-rank patch owning patchAddr, if any. It is
// the resolver a traveling message agent uses to switch its notion of
// "home" to the patch on the far side of a gate it just crossed, so the
// next GetPathTo call is asked of the patch that actually owns the next
// hop rather than the one the message departed from.
func (g *PatchGroup) PatchByAddr(patchAddr addr.GblAddr) (*Patch, bool) {
	p := g.patchForAddr(patchAddr)
	return p, p != nil
}
