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

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/floats"
)

// weightTol is the allowable difference between the sum of a segment's
// weights and 1.
var weightTol = 100 * (math.Nextafter(1, 2) - 1)

// A Segment holds one sparse row of a remap operator: the list of
// source degrees of freedom (DOFs) that contribute to a single target
// DOF, and the weight of each contribution. A valid segment represents
// the complete remapping for its target DOF, so its weights sum to 1.
type Segment struct {
	// Dof is the global ID of the target DOF this segment populates,
	// zero-based after normalization.
	Dof int

	// DofIdx is the position of Dof within the owning map's local
	// DOF list. It is -1 until the map resolves it during Finalize.
	DofIdx int

	// SourceDofs holds the global IDs of the contributing source DOFs.
	SourceDofs []int

	// SourceIdx maps each source DOF to its position within the
	// owning map's unique source DOF set. It is only meaningful
	// after the map's Finalize pass.
	SourceIdx []int

	// Weights holds the remap weight for each source DOF.
	Weights []float64
}

// NewSegment allocates an empty segment for target DOF dof with room
// for length source contributions.
func NewSegment(dof, length int) *Segment {
	return &Segment{
		Dof:        dof,
		DofIdx:     -1,
		SourceDofs: make([]int, length),
		SourceIdx:  make([]int, length),
		Weights:    make([]float64, length),
	}
}

// NewSegmentData creates a segment for target DOF dof from the given
// source DOFs and weights, copying both. The source index entries start
// unresolved.
func NewSegmentData(dof int, sourceDofs []int, weights []float64) *Segment {
	s := NewSegment(dof, len(sourceDofs))
	copy(s.SourceDofs, sourceDofs)
	copy(s.Weights, weights)
	return s
}

// Len returns the number of source DOFs contributing to this segment.
func (s *Segment) Len() int { return len(s.SourceDofs) }

// Apply computes the weighted sum of the source data contributing to
// this segment's target DOF. src must be indexed by unique-source-DOF
// position; the owning map's Finalize must have resolved s.SourceIdx
// first.
func (s *Segment) Apply(src []float64) float64 {
	var sum float64
	for i, idx := range s.SourceIdx {
		sum += src[idx] * s.Weights[i]
	}
	return sum
}

// Check verifies that the segment's parallel arrays have consistent
// lengths and that its weights sum to 1 within tolerance. A failure is
// a problem with the remap operator itself, not with its use, so the
// returned error names the target DOF and the offending quantity.
func (s *Segment) Check() error {
	if len(s.SourceIdx) != len(s.SourceDofs) {
		return fmt.Errorf("remap segment for DOF %d: source index length %d does not match source DOF length %d",
			s.Dof, len(s.SourceIdx), len(s.SourceDofs))
	}
	if len(s.Weights) != len(s.SourceDofs) {
		return fmt.Errorf("remap segment for DOF %d: weight length %d does not match source DOF length %d",
			s.Dof, len(s.Weights), len(s.SourceDofs))
	}
	if wgt := floats.Sum(s.Weights); math.Abs(wgt-1) >= weightTol {
		return fmt.Errorf("remap segment for DOF %d: total weight = %e", s.Dof, wgt)
	}
	return nil
}

// merge creates a new segment for the same target DOF holding the
// contributions of s followed by those of other. The concatenation
// order fixes the floating-point summation order during Apply, so it
// must match discovery order: the existing segment's data comes first.
func (s *Segment) merge(other *Segment) *Segment {
	n := s.Len()
	m := NewSegment(s.Dof, n+other.Len())
	copy(m.SourceDofs, s.SourceDofs)
	copy(m.SourceIdx, s.SourceIdx)
	copy(m.Weights, s.Weights)
	copy(m.SourceDofs[n:], other.SourceDofs)
	copy(m.SourceIdx[n:], other.SourceIdx)
	copy(m.Weights[n:], other.Weights)
	return m
}

// dump writes a human-readable listing of the segment to w.
func (s *Segment) dump(w io.Writer) {
	fmt.Fprintf(w, "segment DOF = %d, local index = %d, length = %d\n", s.Dof, s.DofIdx, s.Len())
	fmt.Fprintf(w, "%10s: %10s %10s %s\n", "i", "source dof", "source idx", "weight")
	var total float64
	for i := range s.SourceDofs {
		fmt.Fprintf(w, "%10d: %10d %10d %e\n", i, s.SourceDofs[i], s.SourceIdx[i], s.Weights[i])
		total += s.Weights[i]
	}
	fmt.Fprintf(w, "%34s %e\n", "total weight =", total)
}
