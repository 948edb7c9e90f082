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
	"sync"
)

func errCountMismatch(rank, got, want int) error {
	return fmt.Errorf("comms: rank %d contributed %d values to a variable-length gather but the agreed count is %d", rank, got, want)
}

// group is the shared state of an in-process communicator: a rendezvous
// point where every rank deposits its contribution to the current
// collective and the last arrival publishes the combined result.
type group struct {
	n    int
	mu   sync.Mutex
	cond *sync.Cond

	slots     [][]int
	arrived   int
	gen       int
	published [][]int
}

// groupComm is one rank's handle on an in-process communicator.
type groupComm struct {
	g    *group
	rank int
}

// NewGroup returns a set of n communicators sharing an in-process
// rendezvous, one per participating goroutine. Each returned Comm must
// be used by a single goroutine; the goroutines must issue the same
// sequence of collective calls.
func NewGroup(n int) []Comm {
	g := &group{
		n:     n,
		slots: make([][]int, n),
	}
	g.cond = sync.NewCond(&g.mu)
	comms := make([]Comm, n)
	for i := range comms {
		comms[i] = &groupComm{g: g, rank: i}
	}
	return comms
}

// exchange deposits this rank's contribution and blocks until all ranks
// have contributed to the current collective. The returned slice holds
// rank i's contribution at index i and must not be modified.
func (g *group) exchange(rank int, data []int) [][]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.slots[rank] = data
	g.arrived++
	if g.arrived == g.n {
		g.published = g.slots
		g.slots = make([][]int, g.n)
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()
		return g.published
	}
	gen := g.gen
	for gen == g.gen {
		g.cond.Wait()
	}
	return g.published
}

// Rank returns this handle's rank within the group.
func (c *groupComm) Rank() int { return c.rank }

// Size returns the number of ranks in the group.
func (c *groupComm) Size() int { return c.g.n }

// AllGather collects one value from every rank in the group.
func (c *groupComm) AllGather(local int) ([]int, error) {
	slots := c.g.exchange(c.rank, []int{local})
	out := make([]int, c.g.n)
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
func (c *groupComm) AllGatherV(local []int, counts []int) ([]int, error) {
	if len(counts) != c.g.n {
		return nil, fmt.Errorf("comms: variable-length gather needs %d counts, got %d", c.g.n, len(counts))
	}
	if len(local) != counts[c.rank] {
		return nil, errCountMismatch(c.rank, len(local), counts[c.rank])
	}
	cp := make([]int, len(local))
	copy(cp, local)
	return concatenate(c.g.exchange(c.rank, cp), counts)
}

// AllReduceMin returns the minimum value contributed by any rank.
func (c *groupComm) AllReduceMin(local int) (int, error) {
	vals, err := c.AllGather(local)
	if err != nil {
		return 0, err
	}
	min := vals[0]
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
	}
	return min, nil
}
