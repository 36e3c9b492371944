// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package patch assembles the kernel and transport primitives into the
// unit a simulation actually runs: a Patch owns a set of interactants,
// agents, and services, and a PatchGroup runs every patch on a rank
// through one cross-rank communication cycle per simulated day.
package patch

import (
	"fmt"

	"quiltkernel/pkg/addr"
	"quiltkernel/pkg/kernel"
)

// gatePair is the two interactants that carry traffic across one gate: Out
// is what a local agent locks to send itself toward the neighbor patch; In
// is what an agent arriving from that neighbor is injected into and
// unlocked from. Grounded on the original kernel's addGateTo/addGateFrom,
// which install exactly this pair rather than a single bare destination.
type gatePair struct {
	Out *kernel.Interactant
	In  *kernel.Interactant
}

// Patch is a rank-local container: a named region of the simulation with
// its own gate table (outbound/inbound interactant pairs keyed by
// neighbor patch address, local or cross-rank), a table of locally
// addressed terminal interactants, a service directory (named objects
// other patches' agents look up, e.g. a shared Manager), and a mailbox for
// inbound cross-gate traffic.
type Patch struct {
	Name string
	Addr addr.GblAddr

	gates     map[addr.GblAddr]gatePair
	locals    map[addr.GblAddr]*kernel.Interactant
	services  map[string]any
	dependsOn []string
	mailbox   *Mailbox
	registry  *kernel.InteractantRegistry
}

// NewPatch creates a patch named name at the given address, backed by
// registry for interactant census reporting. dependsOn lists the names
// of sibling patches (on the same rank) that must start before this one,
// typically because this patch's startup looks up a service one of them
// registers in its own service directory.
func NewPatch(name string, a addr.GblAddr, registry *kernel.InteractantRegistry, dependsOn ...string) *Patch {
	return &Patch{
		Name:      name,
		Addr:      a,
		gates:     make(map[addr.GblAddr]gatePair),
		locals:    make(map[addr.GblAddr]*kernel.Interactant),
		services:  make(map[string]any),
		dependsOn: dependsOn,
		mailbox:   NewMailbox(),
		registry:  registry,
	}
}

// AddGateTo installs (if not already present) the outbound half of the
// gate pair toward the patch at neighborAddr and returns it: the
// interactant a local agent locks to travel toward that neighbor.
func (p *Patch) AddGateTo(neighborAddr addr.GblAddr) *kernel.Interactant {
	pair := p.gates[neighborAddr]
	if pair.Out == nil {
		pair.Out = kernel.NewInteractant(fmt.Sprintf("%s->%s.out", p.Name, neighborAddr))
		p.RegisterInteractant(pair.Out)
		p.gates[neighborAddr] = pair
	}
	return pair.Out
}

// AddGateFrom installs (if not already present) the inbound half of the
// gate pair with the patch at neighborAddr and returns it: the interactant
// an agent arriving from that neighbor is injected into and unlocked from.
func (p *Patch) AddGateFrom(neighborAddr addr.GblAddr) *kernel.Interactant {
	pair := p.gates[neighborAddr]
	if pair.In == nil {
		pair.In = kernel.NewInteractant(fmt.Sprintf("%s->%s.in", p.Name, neighborAddr))
		p.RegisterInteractant(pair.In)
		p.gates[neighborAddr] = pair
	}
	return pair.In
}

// RegisterLocal names it as the terminal interactant for a within this
// patch — e.g. a specific location's door — so GetPathTo can resolve a
// message addressed there directly.
func (p *Patch) RegisterLocal(a addr.GblAddr, it *kernel.Interactant) {
	p.locals[a] = it
}

// GetPathTo returns the next interactant a message bound for destAddr must
// lock, and whether locking it completes the journey. If destAddr names an
// object registered within this patch, it returns that terminal
// interactant with final true; otherwise it returns the outbound gate
// toward destAddr's owning patch with final false. It errors if destAddr
// is local but was never registered with RegisterLocal, or if no gate
// toward destAddr's patch has been installed.
func (p *Patch) GetPathTo(destAddr addr.GblAddr) (next *kernel.Interactant, final bool, err error) {
	if destAddr.GetPatchAddr().Equal(p.Addr) {
		it, ok := p.locals[destAddr]
		if !ok {
			return nil, false, fmt.Errorf("patch %s: no local interactant registered for %s", p.Name, destAddr)
		}
		return it, true, nil
	}
	pair, ok := p.gates[destAddr.GetPatchAddr()]
	if !ok || pair.Out == nil {
		return nil, false, fmt.Errorf("patch %s: no gate toward %s", p.Name, destAddr.GetPatchAddr())
	}
	return pair.Out, false, nil
}

// RegisterService publishes svc under name in this patch's service
// directory, e.g. a Manager agent other patches' agents need to find.
func (p *Patch) RegisterService(name string, svc any) {
	p.services[name] = svc
}

// Service looks up a previously registered service by name.
func (p *Patch) Service(name string) (any, bool) {
	svc, ok := p.services[name]
	return svc, ok
}

// Mailbox returns the patch's inbound message queue.
func (p *Patch) Mailbox() *Mailbox { return p.mailbox }

// RegisterInteractant adds i to the census registry shared across the
// owning PatchGroup.
func (p *Patch) RegisterInteractant(i kernel.LiveInteractant) {
	if p.registry != nil {
		p.registry.Register(i)
	}
}
