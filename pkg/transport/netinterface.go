// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package transport

import (
	"encoding/gob"
	"fmt"
	"sort"

	"quiltkernel/pkg/addr"
	"quiltkernel/pkg/vclock"
)

// RegisterPayloadType tells the gob wire codec about a concrete type that
// will travel inside an Envelope's Payload field. Call it once per
// message payload type before dialing a TCPCommunicator.
func RegisterPayloadType(v any) {
	gob.Register(v)
}

// NetworkInterface layers the per-cycle chunking protocol, vector-clock
// stamping, and termination handshake on top of a Communicator. One
// NetworkInterface backs one rank's PatchGroup.
//
// Grounded on the original kernel's netinterface_mpi.py NetworkInterface:
// Enqueue/StartSend stage and chunk outbound envelopes (<=MaxChunksPerMsg
// per chunk, tagged MORE until the last chunk to a given destination,
// which is tagged END); StartRecv/FinishRecv drain inbound chunks,
// merging the sender's vector clock into this rank's and delivering local
// messages first; SendDoneSignal implements the same two-condition check
// the original calls before a rank declares itself quiescent.
type NetworkInterface struct {
	comm          Communicator
	rank          int
	deterministic bool
	clock         *vclock.Clock

	outbox map[int][]Envelope // staged per destination rank, cleared by StartSend
	inbox  []Envelope         // delivered this cycle, cleared by StartRecv

	peers           []int // every rank this rank exchanges end-of-cycle markers with
	expectFrom      []int
	doneSignalsSeen int
	doneMaxCycle    int64 // highest cycle in which a done signal was (re)armed

	doneSignalSent   bool  // a done signal has been raised at least once
	pendingDone      bool  // the next outgoing batch must carry the done marker
	pendingDoneCycle int64 // cycle number to stamp on that marker
}

// NewNetworkInterface wraps comm. peers lists every rank this rank
// exchanges chunks with each cycle — for a fully connected mesh, every
// other rank. expectFrom lists the ranks this rank must hear an
// end-of-cycle signal from before it may declare itself done; it is
// usually equal to peers, but a rank group with asymmetric fan-in/fan-out
// (e.g. a hub rank) may differ.
func NewNetworkInterface(comm Communicator, deterministic bool, peers []int, expectFrom []int) *NetworkInterface {
	return &NetworkInterface{
		comm:          comm,
		rank:          comm.Rank(),
		deterministic: deterministic,
		clock:         vclock.New(comm.Size()),
		outbox:        make(map[int][]Envelope),
		peers:         peers,
		expectFrom:    expectFrom,
	}
}

// IsLocal reports whether a names an object on this rank.
func (n *NetworkInterface) IsLocal(a addr.GblAddr) bool {
	return a.Rank == n.rank
}

// Clock returns the rank's current vector clock.
func (n *NetworkInterface) Clock() *vclock.Clock { return n.clock }

// Barrier blocks until every rank reaches the same point.
func (n *NetworkInterface) Barrier() error { return n.comm.Barrier() }

// Enqueue stages env for delivery. Local envelopes are queued straight
// into this cycle's inbox, exactly as the original kernel delivers
// same-rank messages without touching the network at all; cross-rank
// envelopes are staged per destination for the next StartSend.
func (n *NetworkInterface) Enqueue(env Envelope) {
	if n.IsLocal(env.Dest) {
		n.inbox = append(n.inbox, env)
		return
	}
	n.outbox[env.Dest.Rank] = append(n.outbox[env.Dest.Rank], env)
}

// StartSend chunks every destination's staged envelopes into batches of
// at most MaxChunksPerMsg, tags all but the last MORE and the last END,
// and hands them to the communicator. In deterministic mode, envelopes
// are sorted by (SrcTag, DestTag, MsgType) before chunking so two runs
// over the same logical traffic produce byte-identical chunk sequences;
// the Src and Dest addresses take no part in that order.
func (n *NetworkInterface) StartSend() error {
	for _, destRank := range n.peers {
		envs := n.outbox[destRank]
		if n.deterministic {
			sort.SliceStable(envs, func(i, j int) bool {
				ai, aj, am := sortKey(envs[i])
				bi, bj, bm := sortKey(envs[j])
				if ai != bi {
					return ai < bi
				}
				if aj != bj {
					return aj < bj
				}
				return am < bm
			})
		}
		if err := n.sendChunked(destRank, envs); err != nil {
			return err
		}
	}
	n.outbox = make(map[int][]Envelope)
	n.pendingDone = false
	n.pendingDoneCycle = 0
	return nil
}

// sendChunked sends envs to destRank in batches of at most MaxChunksPerMsg,
// tagging every chunk but the last MORE and the last END. The done-signal
// marker — if SendDoneSignal armed one for this cycle — rides only on the
// final chunk sent to destRank; an ordinary cycle with nothing pending
// never sets Done, so an empty comm cycle alone can never be mistaken for
// the one-shot distributed termination signal.
func (n *NetworkInterface) sendChunked(destRank int, envs []Envelope) error {
	if len(envs) == 0 {
		return n.comm.Send(destRank, Chunk{
			Tag:       TagEnd,
			VClock:    n.clock.Snapshot(),
			Done:      n.pendingDone,
			DoneCycle: n.pendingDoneCycle,
		})
	}
	for start := 0; start < len(envs); start += MaxChunksPerMsg {
		end := start + MaxChunksPerMsg
		if end > len(envs) {
			end = len(envs)
		}
		tag := TagMore
		done := false
		var doneCycle int64
		if end == len(envs) {
			tag = TagEnd
			done = n.pendingDone
			doneCycle = n.pendingDoneCycle
		}
		chunk := Chunk{
			Tag:       tag,
			Envelopes: envs[start:end],
			VClock:    n.clock.Snapshot(),
			Done:      done,
			DoneCycle: doneCycle,
		}
		if err := n.comm.Send(destRank, chunk); err != nil {
			return fmt.Errorf("transport: send to rank %d: %w", destRank, err)
		}
	}
	return nil
}

// FinishSend waits for any asynchronous send work to complete. The
// TCPCommunicator's Send is synchronous, so this is currently a no-op;
// it exists so a future non-blocking Communicator has a natural seam,
// matching the original kernel's separate startSend/finishSend split.
func (n *NetworkInterface) FinishSend() error { return nil }

// StartRecv opens a cycle's receive phase. The communicators here need no
// receives posted in advance, so there is nothing to prepare, and the
// done-signal markers FinishRecv counts are kept across cycles: each peer
// sends its marker only once, so SendDoneSignal must still see it in any
// later cycle.
func (n *NetworkInterface) StartRecv() {}

// FinishRecv blocks receiving chunks from every rank in expectFrom until
// each has sent an END chunk for this cycle, merges every sender's vector
// clock into this rank's, and returns the envelopes delivered (local
// deliveries from Enqueue plus everything received this cycle). The
// rank's own vector-clock entry is incremented once per cycle before
// delivery, exactly as the original increments before dispatching to
// local callbacks.
func (n *NetworkInterface) FinishRecv() ([]Envelope, error) {
	n.clock.Incr(n.rank)

	delivered := make([]Envelope, len(n.inbox))
	copy(delivered, n.inbox)
	n.inbox = nil

	if len(n.expectFrom) == 0 {
		return delivered, nil
	}

	endSeenFrom := make(map[int]bool, len(n.expectFrom))
	for len(endSeenFrom) < len(n.expectFrom) {
		srcRank, chunk, err := n.comm.Recv()
		if err != nil {
			return delivered, fmt.Errorf("transport: recv: %w", err)
		}
		remote := vclock.New(n.clock.Size())
		remote.Restore(chunk.VClock)
		n.clock.Merge(remote)

		delivered = append(delivered, chunk.Envelopes...)
		if chunk.Tag == TagEnd {
			endSeenFrom[srcRank] = true
			if chunk.Done {
				n.doneSignalsSeen++
				if chunk.DoneCycle > n.doneMaxCycle {
					n.doneMaxCycle = chunk.DoneCycle
				}
			}
		}
	}
	return delivered, nil
}

// SendDoneSignal arms this cycle's outbound END chunks to carry the
// distributed done-signal the first time this rank has no local work left,
// then reports whether every expected peer has also signaled done and at
// least one full cycle has passed since the signal was last (re)armed —
// the same two-condition check the original kernel's sendDoneSignal
// performs, grounded on netinterface_mpi.py: a signal already sent degrades
// to a no-op marker on the wire (so it is never resent), while the first
// call raises it and remembers the cycle it was raised in.
func (n *NetworkInterface) SendDoneSignal() bool {
	cycleNow := n.clock.At(n.rank)
	if n.doneSignalSent {
		n.pendingDone = false
		n.pendingDoneCycle = 0
	} else {
		n.pendingDone = true
		n.pendingDoneCycle = cycleNow
		n.doneSignalSent = true
		if cycleNow > n.doneMaxCycle {
			n.doneMaxCycle = cycleNow
		}
	}
	return n.doneSignalsSeen == len(n.expectFrom) && cycleNow >= n.doneMaxCycle+1
}
