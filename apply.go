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
	"github.com/ctessum/sparse"
)

// GatherUnique extracts from a global source field the values for the
// DOFs in uniqueDofs, in order. It is the serial form of the gather
// that callers must perform before Apply: the remap operator indexes
// source data by unique-source-DOF position, not by global DOF.
func GatherUnique(uniqueDofs []int, global []float64) []float64 {
	out := make([]float64, len(uniqueDofs))
	for i, d := range uniqueDofs {
		out[i] = global[d]
	}
	return out
}

// ApplyDense applies the remap operator to multi-level data, running
// the 1-D kernel independently on each level. src and dst must have
// shape [levels, columns] or [columns], where src columns correspond
// to the unique source DOF set (see Apply) and dst columns to the
// owned DOF list. The level counts must match.
func (m *Map) ApplyDense(src, dst *sparse.DenseArray) error {
	if len(m.dofs) == 0 {
		return nil
	}
	srcLevs, srcCols, err := m.levelShape(src)
	if err != nil {
		return err
	}
	dstLevs, dstCols, err := m.levelShape(dst)
	if err != nil {
		return err
	}
	if srcLevs != dstLevs {
		return m.errf("source data has %d levels but target data has %d", srcLevs, dstLevs)
	}
	for lev := 0; lev < srcLevs; lev++ {
		err := m.Apply(src.Elements[lev*srcCols:(lev+1)*srcCols],
			dst.Elements[lev*dstCols:(lev+1)*dstCols])
		if err != nil {
			return err
		}
	}
	return nil
}

// levelShape interprets an array as [levels, columns], treating a 1-D
// array as a single level.
func (m *Map) levelShape(a *sparse.DenseArray) (levels, columns int, err error) {
	switch len(a.Shape) {
	case 1:
		return 1, a.Shape[0], nil
	case 2:
		return a.Shape[0], a.Shape[1], nil
	}
	return 0, 0, m.errf("data must be 1-D or 2-D, not %d-D", len(a.Shape))
}
