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

// Package comms provides the collective communication operations used to
// coordinate the ranks of a distributed simulation. All collectives are
// blocking: every rank in a communicator must reach the same collective
// call, in the same order, or the program will deadlock. There is no
// asynchronous messaging and no partial-failure recovery; a failed
// collective is reported as an error and the run is expected to be
// abandoned and restarted from a checkpoint.
package comms

// A Comm connects one rank to the other ranks participating in a
// computation. Implementations in this package include an in-process
// communicator for testing and single-process runs (NewGroup), a
// communicator for a cluster of cooperating processes (NewCluster), and
// a trivial single-rank communicator (Self).
type Comm interface {
	// Rank returns the identity of the local process,
	// 0 <= Rank() < Size().
	Rank() int

	// Size returns the number of ranks in the communicator.
	Size() int

	// AllGather collects one value from every rank. The result holds
	// rank i's contribution at index i and is identical on all ranks.
	AllGather(local int) ([]int, error)

	// AllGatherV collects a variable-length slice from every rank,
	// where counts[i] gives the length of rank i's contribution.
	// The result is the rank-order concatenation of all contributions
	// (displacements are the exclusive prefix sums of counts) and is
	// identical on all ranks.
	AllGatherV(local []int, counts []int) ([]int, error)

	// AllReduceMin returns the minimum of the values contributed by
	// all ranks.
	AllReduceMin(local int) (int, error)
}

// Self is a single-rank communicator for serial use, such as
// command-line tools that construct a remap operator without
// distributing the work.
type Self struct{}

// Rank always returns 0.
func (Self) Rank() int { return 0 }

// Size always returns 1.
func (Self) Size() int { return 1 }

// AllGather returns the local value.
func (Self) AllGather(local int) ([]int, error) { return []int{local}, nil }

// AllGatherV returns a copy of the local slice.
func (Self) AllGatherV(local []int, counts []int) ([]int, error) {
	out := make([]int, len(local))
	copy(out, local)
	return out, nil
}

// AllReduceMin returns the local value.
func (Self) AllReduceMin(local int) (int, error) { return local, nil }

// concatenate checks contributions gathered from all ranks against the
// expected per-rank counts and joins them in rank order.
func concatenate(slots [][]int, counts []int) ([]int, error) {
	var total int
	for i, c := range counts {
		if got := len(slots[i]); got != c {
			return nil, errCountMismatch(i, got, c)
		}
		total += c
	}
	out := make([]int, 0, total)
	for _, s := range slots {
		out = append(out, s...)
	}
	return out, nil
}
