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

// Package hremap implements a distributed sparse remap engine for
// interpolating fields between the horizontal grids of a geophysical
// simulation. Each rank of a multi-process run owns the subset of the
// global sparse operator whose target degrees of freedom (DOFs) it is
// responsible for, built either directly or from an offline-computed
// remap file read cooperatively by all ranks.
package hremap

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spatialmodel/hremap/comms"
)

// A Map holds one rank's share of a distributed sparse remap operator:
// one Segment per locally owned target DOF that receives data, plus the
// deduplicated set of source DOFs those segments reference. The unique
// source set is what makes it possible to gather only the needed part
// of the source field before applying the operator.
type Map struct {
	// Name is a diagnostic label for the map.
	Name string

	comm comms.Comm

	dofs    []int // owned target DOFs, rebased to zero
	dofsSet bool

	segments []*Segment

	uniqueDofs     []int // sorted, deduplicated source DOFs
	uniqueSet      bool
	srcMin, srcMax int // observed source DOF range, for diagnostics
}

// NewMap creates an empty remap map for this rank. name is a
// diagnostic label. DOF IDs must be assigned with SetDofGIDs before
// segments can be added.
func NewMap(comm comms.Comm, name string) *Map {
	return &Map{Name: name, comm: comm}
}

// NewMapDofs creates a remap map and assigns its owned DOF IDs in one
// step; see SetDofGIDs.
func NewMapDofs(comm comms.Comm, name string, gids []int, minDof int) (*Map, error) {
	m := NewMap(comm, name)
	if err := m.SetDofGIDs(gids, minDof); err != nil {
		return nil, err
	}
	return m, nil
}

// errf wraps an error message with the map name and rank, which
// otherwise are indistinguishable across the processes of a run.
func (m *Map) errf(format string, args ...interface{}) error {
	return fmt.Errorf("hremap: map %s on rank %d: %s", m.Name, m.comm.Rank(), fmt.Sprintf(format, args...))
}

// SetDofGIDs assigns the global IDs of the target DOFs this rank is
// responsible for. The IDs are rebased to zero by subtracting minDof:
// depending on the tool that produced a remap file its DOFs may be 0-
// or 1-based, and working zero-based throughout avoids a class of
// off-by-one bugs. SetDofGIDs must be called exactly once, before any
// segments are added.
func (m *Map) SetDofGIDs(gids []int, minDof int) error {
	if len(gids) == 0 {
		return m.errf("no DOF IDs provided")
	}
	if m.dofsSet {
		return m.errf("DOF IDs have already been set")
	}
	m.dofs = make([]int, len(gids))
	for i, g := range gids {
		m.dofs[i] = g - minDof
	}
	m.dofsSet = true
	return nil
}

// NumDofs returns the number of target DOFs owned by this rank.
func (m *Map) NumDofs() int { return len(m.dofs) }

// NumSegments returns the number of populated segments.
func (m *Map) NumSegments() int { return len(m.segments) }

// UniqueSourceDofs returns the sorted, deduplicated list of source
// DOFs referenced by this rank's segments, or nil if Finalize has not
// been run. Source data passed to Apply must correspond to exactly
// these DOFs, in this order.
func (m *Map) UniqueSourceDofs() []int {
	if !m.uniqueSet {
		return nil
	}
	return m.uniqueDofs
}

// AddSegment adds a segment to the map. Each segment must represent a
// full remapping for its target DOF, so if a segment for the same
// target already exists the two are combined, with the existing
// segment's contributions kept first to preserve the discovery order
// of the data. If the unique source set has already been computed,
// adding a segment recomputes it immediately; bulk construction should
// therefore add all segments before calling Finalize.
func (m *Map) AddSegment(seg *Segment) error {
	if !m.dofsSet {
		return m.errf("DOF IDs must be set before adding segments")
	}
	match := -1
	for i, s := range m.segments {
		if s.Dof == seg.Dof {
			match = i
			break
		}
	}
	if match < 0 {
		m.segments = append(m.segments, seg)
	} else {
		m.segments[match] = m.segments[match].merge(seg)
	}
	if m.uniqueSet {
		return m.finalize()
	}
	return nil
}

// Finalize computes the unique source DOF set and resolves every
// segment's local indices: the target DOF's position within the owned
// DOF list and each source DOF's position within the unique source
// set. It must be called after construction and before Apply, and
// re-called if segments are later added directly (AddSegment does this
// automatically once the map has been finalized). Finalize is
// idempotent.
func (m *Map) Finalize() error {
	if !m.dofsSet {
		return m.errf("DOF IDs must be set before finalizing")
	}
	return m.finalize()
}

// finalize recomputes the unique source set and local index mappings
// from the current segments. This is a host-side pass that runs once
// per map lifetime in ordinary use, so it favors clarity over speed.
func (m *Map) finalize() error {
	// Deduplicate the source DOFs across all segments.
	seen := make(map[int]struct{})
	m.uniqueDofs = m.uniqueDofs[:0]
	first := true
	for _, seg := range m.segments {
		for _, d := range seg.SourceDofs {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			m.uniqueDofs = append(m.uniqueDofs, d)
			if first || d < m.srcMin {
				m.srcMin = d
			}
			if first || d > m.srcMax {
				m.srcMax = d
			}
			first = false
		}
	}
	sort.Ints(m.uniqueDofs)
	m.uniqueSet = true

	// Resolve each segment's target DOF against the owned DOF list.
	dofIdx := make(map[int]int, len(m.dofs))
	for i, d := range m.dofs {
		if _, ok := dofIdx[d]; !ok {
			dofIdx[d] = i
		}
	}
	for _, seg := range m.segments {
		idx, ok := dofIdx[seg.Dof]
		if !ok {
			// A segment was constructed for a DOF this rank does not
			// own; construction and ownership have diverged.
			return m.errf("segment target DOF %d is not among the %d DOFs owned by this rank", seg.Dof, len(m.dofs))
		}
		seg.DofIdx = idx
		for i, d := range seg.SourceDofs {
			seg.SourceIdx[i] = sort.SearchInts(m.uniqueDofs, d)
		}
	}
	return nil
}

// Check verifies the map's invariants: DOF IDs must have been set, and
// every segment's weights must sum to 1. All broken segments are
// enumerated in the returned error rather than stopping at the first,
// to aid debugging of the offline tool that produced the operator.
func (m *Map) Check() error {
	if !m.dofsSet {
		return m.errf("global DOFs not yet set; call SetDofGIDs first")
	}
	var problems []string
	for _, seg := range m.segments {
		if err := seg.Check(); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return m.errf("%d of %d segments failed validation:\n\t%s",
			len(problems), len(m.segments), strings.Join(problems, "\n\t"))
	}
	return nil
}

// Apply applies the remap operator to one level of source data.
// src must hold the source field gathered down to exactly the unique
// source DOF set, in that order; performing that gather is the
// caller's responsibility (see GatherUnique). dst must be indexed by
// owned-DOF position. Owned DOFs with no populated segment are left
// untouched. A rank that owns no DOFs returns immediately.
func (m *Map) Apply(src, dst []float64) error {
	if len(m.dofs) == 0 {
		return nil
	}
	if len(src) < len(m.uniqueDofs) {
		return m.errf("source data has %d values but the unique source set has %d", len(src), len(m.uniqueDofs))
	}
	if len(dst) < len(m.dofs) {
		return m.errf("target data has %d values but this rank owns %d DOFs", len(dst), len(m.dofs))
	}
	for _, seg := range m.segments {
		if seg.DofIdx < 0 {
			return m.errf("segment for DOF %d has an unresolved local index; call Finalize first", seg.Dof)
		}
		dst[seg.DofIdx] = seg.Apply(src)
	}
	return nil
}

// Dump writes a deterministic textual listing of the operator to w:
// every segment with its resolved indices and weights, the unique
// source DOF table, and the owned DOF list. The output is stable for a
// given construction order, so it is suitable for golden-file
// comparison in tests.
func (m *Map) Dump(w io.Writer) {
	fmt.Fprintf(w, "=============================================\n")
	fmt.Fprintf(w, "map %s (rank %d of %d)\n", m.Name, m.comm.Rank(), m.comm.Size())
	for _, seg := range m.segments {
		fmt.Fprintf(w, "---------------------\n")
		seg.dump(w)
	}
	fmt.Fprintf(w, "unique source DOFs\n")
	if m.uniqueSet {
		fmt.Fprintf(w, "  source DOF range: [%d, %d]\n", m.srcMin, m.srcMax)
		for i, d := range m.uniqueDofs {
			fmt.Fprintf(w, "%10d: %10d\n", i, d)
		}
	} else {
		fmt.Fprintf(w, "  WARNING - unique source DOFs have not been set yet\n")
	}
	fmt.Fprintf(w, "owned DOFs\n")
	for i, d := range m.dofs {
		fmt.Fprintf(w, "%10d: %10d\n", i, d)
	}
	fmt.Fprintf(w, "=============================================\n")
}
