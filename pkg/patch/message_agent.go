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

// MsgState is a message agent's position in its travel state machine.
type MsgState int

const (
	// MsgMoving is a message agent's state while it is still in transit.
	MsgMoving MsgState = iota
	// MsgArrived is a message agent's state once it has locked its
	// terminal interactant; the payload is delivered to the destination
	// mailbox after that (for a FutureMsg, not before its ArrivalTime).
	MsgArrived
)

func (s MsgState) String() string {
	if s == MsgArrived {
		return "arrived"
	}
	return "moving"
}

// PatchResolver maps a patch-level address to the Patch object that owns
// it, letting a traveling message agent cross from one patch's gate table
// into the neighbor's. PatchGroup.PatchByAddr is the usual resolver for a
// single rank; it is nil for a message that never needs to leave its home
// patch (destAddr registered there via RegisterLocal).
type PatchResolver func(addr.GblAddr) (*Patch, bool)

// SimpleMsg models a message that is itself an agent traveling through
// simulated time and through a patch's gate table before it delivers
// itself — the MOVING-then-ARRIVED state machine peopleplaces.py gives
// its SimpleMsg/ArrivalMsg/DepartureMsg agents. At every simulated day it
// asks its current patch for the next interactant on the path to destAddr
// and locks it; a non-final hop is released immediately, the message
// crosses into the neighbor patch via resolve, and the agent sleeps a day
// before asking again; the final hop transitions the message to ARRIVED
// and is left locked, marking the message's continued presence there.
type SimpleMsg struct {
	*kernel.Agent
	State MsgState

	patch    *Patch
	destAddr addr.GblAddr
	destTag  int
	resolve  PatchResolver
}

// NewSimpleMsg creates a message agent named name carrying payload,
// starting out at home and bound for destAddr. It delivers itself into
// dest under destTag once its path reports arrival; msgType labels the
// envelope for the receiver's dispatch logic. resolve is consulted every
// time the message crosses a gate to a different patch; it may be nil if
// destAddr is always reachable from home without leaving it.
func NewSimpleMsg(name string, seq *kernel.Sequencer, home *Patch, destAddr addr.GblAddr, resolve PatchResolver, msgType string, payload any, dest *Mailbox, destTag int) *SimpleMsg {
	msg := &SimpleMsg{State: MsgMoving, patch: home, destAddr: destAddr, destTag: destTag, resolve: resolve}
	msg.Agent = kernel.NewAgent(name, seq, true, func(ctx *kernel.AgentContext) {
		msg.travel(ctx, func() {
			dest.Deliver(transport.Envelope{DestTag: destTag, MsgType: msgType, Payload: payload})
		})
	})
	return msg
}

// travel drives the MOVING -> ARRIVED state machine described above,
// invoking onArrive once the path reports the final hop, with that hop's
// interactant still held.
func (msg *SimpleMsg) travel(ctx *kernel.AgentContext, onArrive func()) {
	for {
		next, final, err := msg.patch.GetPathTo(msg.destAddr)
		if err != nil {
			panic(fmt.Sprintf("patch: message %q has no path to %s: %v", msg.Name(), msg.destAddr, err))
		}
		next.Lock(ctx)
		if final {
			msg.State = MsgArrived
			onArrive()
			return
		}
		next.Unlock(ctx)
		if msg.resolve != nil {
			if p, ok := msg.resolve(msg.destAddr.GetPatchAddr()); ok {
				msg.patch = p
			}
		}
		ctx.Sleep(1)
	}
}

// NewArrivalMsg is a SimpleMsg labeled as an arrival notification —
// e.g. a person showing up at a new location.
func NewArrivalMsg(name string, seq *kernel.Sequencer, home *Patch, destAddr addr.GblAddr, resolve PatchResolver, payload any, dest *Mailbox, destTag int) *SimpleMsg {
	return NewSimpleMsg(name, seq, home, destAddr, resolve, "Arrival", payload, dest, destTag)
}

// NewDepartureMsg is a SimpleMsg labeled as a departure notification —
// e.g. a person leaving their current location, sent before the matching
// ArrivalMsg at the destination.
func NewDepartureMsg(name string, seq *kernel.Sequencer, home *Patch, destAddr addr.GblAddr, resolve PatchResolver, payload any, dest *Mailbox, destTag int) *SimpleMsg {
	return NewSimpleMsg(name, seq, home, destAddr, resolve, "Departure", payload, dest, destTag)
}

// FutureMsg is a message that must arrive on a specific simulated day
// known in advance — e.g. a scheduled appointment rather than an
// immediate trip. It never delivers before ArrivalTime: if it reaches its
// terminal interactant early, it sleeps the remainder locally, already
// holding that interactant, before delivering its payload.
type FutureMsg struct {
	*SimpleMsg
	ArrivalTime int
}

// NewFutureMsg creates a FutureMsg due to arrive on arrivalTime. now is
// the simulated day the message is being created; arrivalTime must not
// precede now, or NewFutureMsg returns an error rather than silently
// scheduling a message that can never honor its own invariant.
func NewFutureMsg(name string, seq *kernel.Sequencer, now, arrivalTime int, home *Patch, destAddr addr.GblAddr, resolve PatchResolver, msgType string, payload any, dest *Mailbox, destTag int) (*FutureMsg, error) {
	if arrivalTime < now {
		return nil, fmt.Errorf("patch: future message %q arrival time %d precedes creation time %d", name, arrivalTime, now)
	}

	msg := &SimpleMsg{State: MsgMoving, patch: home, destAddr: destAddr, destTag: destTag, resolve: resolve}
	fm := &FutureMsg{SimpleMsg: msg, ArrivalTime: arrivalTime}
	msg.Agent = kernel.NewAgent(name, seq, true, func(ctx *kernel.AgentContext) {
		msg.travel(ctx, func() {
			if remaining := arrivalTime - ctx.TimeNow(); remaining > 0 {
				ctx.Sleep(remaining)
			}
			dest.Deliver(transport.Envelope{DestTag: destTag, MsgType: msgType, Payload: payload})
		})
	})
	return fm, nil
}
