/*
Copyright © 2026 the HRemap authors.
This file is part of HRemap.

HRemap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

HRemap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with HRemap.  If not, see <http://www.gnu.org/licenses/>.
*/

package comms

import (
	"fmt"
	"log"
	"net"
	"net/rpc"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
)

// CollectiveArgs is the contribution of one rank to one collective
// operation. It is exported to meet RPC requirements and should not be
// used directly.
type CollectiveArgs struct {
	Seq  uint64
	Rank int
	Op   string
	Data []int
}

// CollectiveReply is the combined result of a collective operation.
// It is exported to meet RPC requirements and should not be used
// directly.
type CollectiveReply struct {
	Slots [][]int
}

// collective accumulates the per-rank contributions to one collective
// call and holds the result until every rank has fetched it.
type collective struct {
	op      string
	slots   [][]int
	arrived int
	done    bool
	served  int
	err     error
}

// Hub coordinates the collective operations of a Cluster. One Hub runs
// on rank 0 of each cluster; the other ranks contribute over RPC. It is
// exported to meet RPC requirements and should not be interacted with
// directly.
type Hub struct {
	size    int
	mu      sync.Mutex
	cond    *sync.Cond
	pending map[uint64]*collective
}

func newHub(size int) *Hub {
	h := &Hub{
		size:    size,
		pending: make(map[uint64]*collective),
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Collective deposits one rank's contribution to the collective call
// identified by args.Seq and blocks until all ranks have contributed.
// It meets the requirements for use with rpc.Call.
func (h *Hub) Collective(args *CollectiveArgs, reply *CollectiveReply) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.pending[args.Seq]
	if !ok {
		c = &collective{op: args.Op, slots: make([][]int, h.size)}
		h.pending[args.Seq] = c
	}
	if c.op != args.Op {
		// The ranks have diverged: collective calls must be issued in
		// the same order on every rank.
		c.err = fmt.Errorf("comms: collective %d is %q on rank %d but %q on an earlier rank", args.Seq, args.Op, args.Rank, c.op)
		h.cond.Broadcast()
		return c.err
	}
	if args.Rank < 0 || args.Rank >= h.size {
		return fmt.Errorf("comms: invalid rank %d in a cluster of size %d", args.Rank, h.size)
	}
	if c.slots[args.Rank] != nil {
		return fmt.Errorf("comms: rank %d contributed twice to collective %d", args.Rank, args.Seq)
	}
	data := args.Data
	if data == nil { // gob turns empty slices into nil.
		data = []int{}
	}
	c.slots[args.Rank] = data
	c.arrived++
	if c.arrived == h.size {
		c.done = true
		h.cond.Broadcast()
	}
	for !c.done && c.err == nil {
		h.cond.Wait()
	}
	if c.err != nil {
		return c.err
	}
	reply.Slots = c.slots
	c.served++
	if c.served == h.size {
		delete(h.pending, args.Seq)
	}
	return nil
}

// A Cluster is a communicator connecting the ranks of a multi-process
// run over TCP. Rank 0 listens on rootAddr and coordinates the
// collectives; the remaining ranks dial it. All ranks must create their
// Cluster with the same size and root address.
type Cluster struct {
	rank, size int
	seq        uint64

	hub    *Hub        // rank 0 only
	ln     net.Listener // rank 0 only
	client *rpc.Client // ranks > 0 only
}

// NewCluster creates a communicator for one rank of a size-rank
// cluster whose rank 0 listens on rootAddr. Dialing the root is retried
// with exponential backoff, so the ranks may be started in any order.
func NewCluster(rank, size int, rootAddr string) (*Cluster, error) {
	if size < 1 || rank < 0 || rank >= size {
		return nil, fmt.Errorf("comms: invalid rank %d for cluster of size %d", rank, size)
	}
	c := &Cluster{rank: rank, size: size}
	if rank == 0 {
		c.hub = newHub(size)
		srv := rpc.NewServer()
		if err := srv.RegisterName("Hub", c.hub); err != nil {
			return nil, fmt.Errorf("comms: registering collective hub: %v", err)
		}
		ln, err := net.Listen("tcp", rootAddr)
		if err != nil {
			return nil, fmt.Errorf("comms: rank 0 listening on %s: %v", rootAddr, err)
		}
		c.ln = ln
		go func() {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return // listener closed
				}
				go srv.ServeConn(conn)
			}
		}()
		return c, nil
	}
	err := backoff.RetryNotify(
		func() error {
			var err error
			c.client, err = rpc.Dial("tcp", rootAddr)
			return err
		},
		backoff.NewExponentialBackOff(),
		func(err error, d time.Duration) {
			log.Printf("comms: rank %d connecting to root %s: %v: retrying in %v", rank, rootAddr, err, d)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("comms: rank %d connecting to root %s: %v", rank, rootAddr, err)
	}
	return c, nil
}

// Close releases the cluster's network resources. It does not
// synchronize with the other ranks.
func (c *Cluster) Close() error {
	if c.ln != nil {
		return c.ln.Close()
	}
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Rank returns the identity of the local process in the cluster.
func (c *Cluster) Rank() int { return c.rank }

// Size returns the number of ranks in the cluster.
func (c *Cluster) Size() int { return c.size }

func (c *Cluster) collective(op string, data []int) ([][]int, error) {
	args := &CollectiveArgs{Seq: c.seq, Rank: c.rank, Op: op, Data: data}
	c.seq++
	reply := new(CollectiveReply)
	if c.hub != nil {
		if err := c.hub.Collective(args, reply); err != nil {
			return nil, err
		}
		return reply.Slots, nil
	}
	if err := c.client.Call("Hub.Collective", args, reply); err != nil {
		return nil, fmt.Errorf("comms: rank %d in collective %q: %v", c.rank, op, err)
	}
	return reply.Slots, nil
}

// AllGather collects one value from every rank in the cluster.
func (c *Cluster) AllGather(local int) ([]int, error) {
	slots, err := c.collective("allgather", []int{local})
	if err != nil {
		return nil, err
	}
	out := make([]int, c.size)
	for i, s := range slots {
		if len(s) != 1 {
			return nil, errCountMismatch(i, len(s), 1)
		}
		out[i] = s[0]
	}
	return out, nil
}

// AllGatherV collects a variable-length contribution from every rank
// and concatenates them in rank order.
func (c *Cluster) AllGatherV(local []int, counts []int) ([]int, error) {
	if len(counts) != c.size {
		return nil, fmt.Errorf("comms: variable-length gather needs %d counts, got %d", c.size, len(counts))
	}
	if len(local) != counts[c.rank] {
		return nil, errCountMismatch(c.rank, len(local), counts[c.rank])
	}
	slots, err := c.collective("allgatherv", local)
	if err != nil {
		return nil, err
	}
	return concatenate(slots, counts)
}

// AllReduceMin returns the minimum value contributed by any rank.
func (c *Cluster) AllReduceMin(local int) (int, error) {
	slots, err := c.collective("allreducemin", []int{local})
	if err != nil {
		return 0, err
	}
	var min int
	for i, s := range slots {
		if len(s) != 1 {
			return 0, errCountMismatch(i, len(s), 1)
		}
		if i == 0 || s[0] < min {
			min = s[0]
		}
	}
	return min, nil
}
