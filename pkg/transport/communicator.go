// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package transport implements the cross-rank message exchange that lets
// patches on different ranks run as one simulation: a Communicator moves
// opaque chunks between ranks, and a NetworkInterface layers the
// MORE/END chunking protocol, vector-clock stamping, and the two-condition
// termination handshake on top of it.
package transport

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"net"
	"sync"
)

// MaxChunksPerMsg bounds how many envelopes travel in a single chunk
// before the sender starts a new one, keeping any single chunk small
// enough to pipeline across a slow link.
const MaxChunksPerMsg = 24

// RecvBufferSize sizes the buffered reader each inbound connection uses.
const RecvBufferSize = 1 << 20 // 1 MiB

// Chunk-tag values, carried alongside every chunk so the receiver knows
// whether more chunks from this sender are coming this cycle.
const (
	TagMore = 1
	TagEnd  = 2
)

// Chunk is the unit exchanged between ranks: a batch of envelopes, the
// sender's vector clock at the moment the chunk was built, and a tag
// telling the receiver whether the sender has more chunks queued this
// cycle. Done and DoneCycle carry the one-shot distributed done-signal:
// apart from TCPCommunicator.Barrier's own empty marker chunks, Done is
// only true on a chunk sent in response to an explicit
// SendDoneSignal call that has not yet been superseded, never merely
// because a cycle's outbound traffic happened to end. DoneCycle names the
// cycle the signal was raised in, mirroring the original kernel's
// (sent, cycle) pair.
type Chunk struct {
	Tag       int
	Envelopes []Envelope
	VClock    []int64
	Done      bool
	DoneCycle int64
}

// Communicator moves Chunks between ranks. It is the seam between the
// kernel's own chunking/termination protocol and the underlying
// transport — a single-rank process never sends a chunk at all (the
// DummyCommunicator rejects any Send); a real multi-rank run exchanges
// them over TCP.
type Communicator interface {
	Rank() int
	Size() int
	// Send delivers chunk to destRank. It may block until the chunk has
	// been handed to the transport, but need not wait for the peer to
	// process it.
	Send(destRank int, chunk Chunk) error
	// Recv blocks until a chunk arrives from any rank and returns its
	// source.
	Recv() (srcRank int, chunk Chunk, err error)
	// Barrier blocks until every rank has called Barrier.
	Barrier() error
	Close() error
}

// DummyCommunicator is the single-rank Communicator: there is no other
// rank to talk to, so Send is never expected to be called with a
// destination other than this rank, and Recv blocks forever — a single
// rank's NetworkInterface never calls it, since IsLocal is always true.
// Grounded on the original kernel's netinterface_dummy.py DummyComm.
type DummyCommunicator struct{}

// NewDummyCommunicator returns the trivial single-rank communicator.
func NewDummyCommunicator() *DummyCommunicator { return &DummyCommunicator{} }

func (d *DummyCommunicator) Rank() int { return 0 }
func (d *DummyCommunicator) Size() int { return 1 }

func (d *DummyCommunicator) Send(destRank int, chunk Chunk) error {
	return fmt.Errorf("transport: dummy communicator has no peers, cannot send to rank %d", destRank)
}

func (d *DummyCommunicator) Recv() (int, Chunk, error) {
	select {}
}

func (d *DummyCommunicator) Barrier() error { return nil }
func (d *DummyCommunicator) Close() error   { return nil }

// TCPCommunicator connects a fixed-size rank group over plain TCP, one
// persistent connection per pair of ranks, used in both directions. There is no
// MPI-equivalent library anywhere in the example pack this module was
// grounded on, so this uses the standard library directly: net for
// connection setup and encoding/gob for the wire format, which is the
// same pairing the Go standard toolchain itself favors for a private,
// same-binary wire protocol.
type TCPCommunicator struct {
	rank int
	size int

	mu    sync.Mutex
	enc   map[int]*gob.Encoder
	dec   map[int]*gob.Decoder
	conns map[int]net.Conn

	recvCh chan recvResult
}

type recvResult struct {
	rank  int
	chunk Chunk
	err   error
}

// DialTCPCommunicator establishes a full-mesh TCP connection among the
// ranks named in addrs (indexed by rank), acting as rank `rank`. Every
// rank listens on its own address; toward each higher rank it dials out,
// and from each lower rank it accepts, so every pair connects exactly
// once regardless of ordering.
func DialTCPCommunicator(rank int, addrs []string) (*TCPCommunicator, error) {
	size := len(addrs)
	c := &TCPCommunicator{
		rank:   rank,
		size:   size,
		enc:    make(map[int]*gob.Encoder),
		dec:    make(map[int]*gob.Decoder),
		conns:  make(map[int]net.Conn),
		recvCh: make(chan recvResult, size),
	}

	ln, err := net.Listen("tcp", addrs[rank])
	if err != nil {
		return nil, fmt.Errorf("transport: rank %d failed to listen on %s: %w", rank, addrs[rank], err)
	}
	defer ln.Close()

	var wg sync.WaitGroup
	errCh := make(chan error, size)

	for peer := 0; peer < size; peer++ {
		if peer == rank {
			continue
		}
		wg.Add(1)
		if peer < rank {
			go func(peer int) {
				defer wg.Done()
				conn, err := ln.Accept()
				if err != nil {
					errCh <- fmt.Errorf("transport: rank %d failed to accept peer %d: %w", rank, peer, err)
					return
				}
				c.registerConn(peer, conn)
			}(peer)
		} else {
			go func(peer int) {
				defer wg.Done()
				conn, err := net.Dial("tcp", addrs[peer])
				if err != nil {
					errCh <- fmt.Errorf("transport: rank %d failed to dial peer %d at %s: %w", rank, peer, addrs[peer], err)
					return
				}
				c.registerConn(peer, conn)
			}(peer)
		}
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}

	for peer, dec := range c.dec {
		go c.recvLoop(peer, dec)
	}

	return c, nil
}

func (c *TCPCommunicator) registerConn(peer int, conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[peer] = conn
	c.enc[peer] = gob.NewEncoder(conn)
	c.dec[peer] = gob.NewDecoder(bufio.NewReaderSize(conn, RecvBufferSize))
}

func (c *TCPCommunicator) recvLoop(peer int, dec *gob.Decoder) {
	for {
		var chunk Chunk
		if err := dec.Decode(&chunk); err != nil {
			c.recvCh <- recvResult{rank: peer, err: fmt.Errorf("transport: decode from rank %d: %w", peer, err)}
			return
		}
		c.recvCh <- recvResult{rank: peer, chunk: chunk}
	}
}

func (c *TCPCommunicator) Rank() int { return c.rank }
func (c *TCPCommunicator) Size() int { return c.size }

func (c *TCPCommunicator) Send(destRank int, chunk Chunk) error {
	c.mu.Lock()
	enc := c.enc[destRank]
	c.mu.Unlock()
	if enc == nil {
		return fmt.Errorf("transport: no connection to rank %d", destRank)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return enc.Encode(chunk)
}

func (c *TCPCommunicator) Recv() (int, Chunk, error) {
	r := <-c.recvCh
	return r.rank, r.chunk, r.err
}

func (c *TCPCommunicator) Barrier() error {
	for peer := 0; peer < c.size; peer++ {
		if peer == c.rank {
			continue
		}
		if err := c.Send(peer, Chunk{Tag: TagEnd, Done: true}); err != nil {
			return err
		}
	}
	seen := 0
	for seen < c.size-1 {
		_, chunk, err := c.Recv()
		if err != nil {
			return err
		}
		if chunk.Done && chunk.Tag == TagEnd && len(chunk.Envelopes) == 0 {
			seen++
		}
	}
	return nil
}

func (c *TCPCommunicator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, conn := range c.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
