// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package addr provides the globally unique address scheme used to name
// every kernel object across rank boundaries.
package addr

import "fmt"

// GblAddr is a 2-tuple (rank, localID) identity. LocalID addresses a
// rank-local object directly; SubID, when HasSub is true, identifies a child
// slot (e.g. a gate) within the patch named by LocalID.
type GblAddr struct {
	Rank    int
	LocalID int
	SubID   int
	HasSub  bool
}

// New builds a top-level address (rank, localID).
func New(rank, localID int) GblAddr {
	return GblAddr{Rank: rank, LocalID: localID}
}

// NewChild builds a child-slot address (rank, (localID, subID)).
func NewChild(rank, localID, subID int) GblAddr {
	return GblAddr{Rank: rank, LocalID: localID, SubID: subID, HasSub: true}
}

// GetPatchAddr projects a (possibly child) address down to its parent
// patch address.
func (a GblAddr) GetPatchAddr() GblAddr {
	if !a.HasSub {
		return a
	}
	return GblAddr{Rank: a.Rank, LocalID: a.LocalID}
}

// Equal reports whether two addresses name the same object.
func (a GblAddr) Equal(b GblAddr) bool {
	return a.Rank == b.Rank && a.LocalID == b.LocalID && a.HasSub == b.HasSub && a.SubID == b.SubID
}

// Less implements the total order (rank, localID, subID); a top-level
// address sorts before its own child slots. The network interface's
// deterministic chunk order does not use it: it sorts by envelope tags.
func (a GblAddr) Less(b GblAddr) bool {
	if a.Rank != b.Rank {
		return a.Rank < b.Rank
	}
	if a.LocalID != b.LocalID {
		return a.LocalID < b.LocalID
	}
	if a.HasSub != b.HasSub {
		return !a.HasSub
	}
	return a.SubID < b.SubID
}

// String renders the address the way the original kernel does:
// "rank_localId" or "rank_localId_subId".
func (a GblAddr) String() string {
	if a.HasSub {
		return fmt.Sprintf("%d_%d_%d", a.Rank, a.LocalID, a.SubID)
	}
	return fmt.Sprintf("%d_%d", a.Rank, a.LocalID)
}
