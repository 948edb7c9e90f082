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

package hremap

import "math"

// chunkSize returns the number of remap file records rank reads when
// nRecords records are divided among nRanks: every rank gets
// floor(nRecords/nRanks), and the first nRecords mod nRanks ranks get
// one extra. The resulting chunks are contiguous, non-overlapping and
// cover every record exactly once.
func chunkSize(nRecords, nRanks, rank int) int {
	size := nRecords / nRanks
	if rem := nRecords - size*nRanks; rank < rem {
		size++
	}
	return size
}

// SegmentsFromFile builds this rank's share of the remap operator from
// an offline-computed remap file. Rather than every rank reading the
// whole file, responsibility for reading is divided evenly:
//
//  1. Each rank reads a contiguous chunk of the target-DOF ("row")
//     variable and run-length compresses it into (DOF, file offset,
//     length) descriptors, exploiting the file's sort-by-target
//     convention.
//  2. The descriptors, and the minimum DOF seen, are exchanged among
//     all ranks, giving every rank a global view of where each target
//     DOF's records live in the file.
//  3. Each rank then reads only the col/S records for the target DOFs
//     it owns, builds segments from them, and adds them to the map.
//
// Aggregate I/O is one pass over the file split across the ranks, plus
// descriptor metadata proportional to the number of distinct target
// DOFs. Every rank in the communicator must call SegmentsFromFile
// together; the collective exchanges are blocking.
func (m *Map) SegmentsFromFile(filename string) error {
	if !m.dofsSet {
		return m.errf("DOF IDs must be set before reading remap segments from %s", filename)
	}
	f, err := openRemapFile(filename)
	if err != nil {
		return err
	}
	nRecords, err := f.dimLen("n_s")
	if err != nil {
		f.close()
		return err
	}

	// Step 1: divide responsibility for reading the file evenly among
	// the ranks.
	myRank := m.comm.Rank()
	numRanks := m.comm.Size()
	myChunk := chunkSize(nRecords, numRanks, myRank)
	chunksGlob, err := m.comm.AllGather(myChunk)
	if err != nil {
		f.close()
		return m.errf("gathering chunk sizes: %v", err)
	}
	myStart := 0
	for i := 0; i < myRank; i++ {
		myStart += chunksGlob[i]
	}
	chunkCheck := 0
	for _, c := range chunksGlob {
		chunkCheck += c
	}
	if chunkCheck != nRecords {
		f.close()
		return m.errf("remap data was not fully distributed among the ranks: %d of %d records assigned", chunkCheck, nRecords)
	}

	// Step 2: read this rank's slice of the target-DOF variable and
	// group contiguous equal values into (DOF, start, length)
	// descriptors. Records are sorted by target DOF, so adjacency
	// implies the same target.
	rows, err := f.readInts("row", myStart, myChunk)
	f.close()
	if err != nil {
		return err
	}
	var chunkDof, chunkStart, chunkLen []int
	minDof := math.MaxInt // identity for the min reduction when this rank's chunk is empty
	for i, row := range rows {
		if row < minDof {
			minDof = row
		}
		if n := len(chunkDof); n > 0 && row == chunkDof[n-1] {
			chunkLen[n-1]++
		} else {
			chunkDof = append(chunkDof, row)
			chunkStart = append(chunkStart, myStart+i)
			chunkLen = append(chunkLen, 1)
		}
	}

	// Step 3: share the descriptors among all ranks so each can find
	// the file locations of the target DOFs it owns, and agree on the
	// global minimum DOF used to rebase all IDs to zero.
	counts, err := m.comm.AllGather(len(chunkDof))
	if err != nil {
		return m.errf("gathering descriptor counts: %v", err)
	}
	globalMinDof, err := m.comm.AllReduceMin(minDof)
	if err != nil {
		return m.errf("reducing minimum DOF: %v", err)
	}
	allDof, err := m.comm.AllGatherV(chunkDof, counts)
	if err != nil {
		return m.errf("gathering descriptor DOFs: %v", err)
	}
	allStart, err := m.comm.AllGatherV(chunkStart, counts)
	if err != nil {
		return m.errf("gathering descriptor offsets: %v", err)
	}
	allLen, err := m.comm.AllGatherV(chunkLen, counts)
	if err != nil {
		return m.errf("gathering descriptor lengths: %v", err)
	}

	// Step 4: keep the descriptors whose target DOF this rank owns,
	// recording for each the file range to fetch and its position in
	// the concatenated fetch buffer.
	owned := make(map[int]struct{}, len(m.dofs))
	for _, d := range m.dofs {
		owned[d] = struct{}{}
	}
	var segDof, segStart, segLen, fetchStart []int
	total := 0
	for i := range allDof {
		if _, ok := owned[allDof[i]-globalMinDof]; !ok {
			continue
		}
		segDof = append(segDof, allDof[i])
		segStart = append(segStart, total)
		segLen = append(segLen, allLen[i])
		fetchStart = append(fetchStart, allStart[i])
		total += allLen[i]
	}

	// Step 5: read exactly the col/S records this rank needs, one
	// contiguous range per kept descriptor.
	cols := make([]int, total)
	weights := make([]float64, total)
	if total > 0 {
		f, err = openRemapFile(filename)
		if err != nil {
			return err
		}
		for i := range segDof {
			c, err := f.readInts("col", fetchStart[i], segLen[i])
			if err != nil {
				f.close()
				return err
			}
			copy(cols[segStart[i]:], c)
			s, err := f.readFloats("S", fetchStart[i], segLen[i])
			if err != nil {
				f.close()
				return err
			}
			copy(weights[segStart[i]:], s)
		}
		f.close()
	}

	// Step 6: build a segment from each kept descriptor's slice of the
	// fetched data, rebasing source DOFs to zero, and add it to the
	// map. Descriptors for the same target DOF (a run that straddled a
	// chunk boundary) are combined by AddSegment in discovery order.
	for i := range segDof {
		sourceDofs := make([]int, segLen[i])
		segWeights := make([]float64, segLen[i])
		for j := 0; j < segLen[i]; j++ {
			sourceDofs[j] = cols[segStart[i]+j] - globalMinDof
			segWeights[j] = weights[segStart[i]+j]
		}
		seg := NewSegmentData(segDof[i]-globalMinDof, sourceDofs, segWeights)
		if err := m.AddSegment(seg); err != nil {
			return err
		}
	}
	return nil
}
