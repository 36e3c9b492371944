// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package transport

// chanCommunicator is an in-process Communicator used only by this
// package's tests, avoiding the cost and flakiness of binding real TCP
// sockets to exercise NetworkInterface's chunking and done-signal logic.
type chanCommunicator struct {
	rank  int
	size  int
	in    chan recvResult
	peers map[int]chan recvResult
}

func newChanMesh(size int) []*chanCommunicator {
	chans := make([]chan recvResult, size)
	for i := range chans {
		chans[i] = make(chan recvResult, 256)
	}
	comms := make([]*chanCommunicator, size)
	for r := 0; r < size; r++ {
		peers := make(map[int]chan recvResult, size)
		for p := 0; p < size; p++ {
			if p != r {
				peers[p] = chans[p]
			}
		}
		comms[r] = &chanCommunicator{rank: r, size: size, in: chans[r], peers: peers}
	}
	return comms
}

func (c *chanCommunicator) Rank() int { return c.rank }
func (c *chanCommunicator) Size() int { return c.size }

func (c *chanCommunicator) Send(destRank int, chunk Chunk) error {
	c.peers[destRank] <- recvResult{rank: c.rank, chunk: chunk}
	return nil
}

func (c *chanCommunicator) Recv() (int, Chunk, error) {
	r := <-c.in
	return r.rank, r.chunk, r.err
}

func (c *chanCommunicator) Barrier() error { return nil }
func (c *chanCommunicator) Close() error   { return nil }
