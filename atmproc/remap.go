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

package atmproc

import (
	"fmt"

	"github.com/spatialmodel/hremap"
	"github.com/spatialmodel/hremap/fieldbuf"
)

// Remap is a diagnostic process that applies a finalized remap
// operator to one field every step. The source field holds the
// gathered unique source values of the operator; the target field
// holds one column per owned target degree of freedom. Both fields
// must have the same number of levels.
type Remap struct {
	m        *hremap.Map
	srcField string
	dstField string

	levels int
	arena  *fieldbuf.Arena
}

// NewRemap creates a remap diagnostic reading srcField and writing
// dstField. The map must be finalized before the process initializes.
func NewRemap(m *hremap.Map, srcField, dstField string) *Remap {
	return &Remap{m: m, srcField: srcField, dstField: dstField}
}

// Name implements Process.
func (r *Remap) Name() string { return "horiz_remap(" + r.srcField + "->" + r.dstField + ")" }

// Type implements Process.
func (r *Remap) Type() Type { return Diagnostic }

// RequiredFields implements Process.
func (r *Remap) RequiredFields() []string { return []string{r.srcField} }

// ComputedFields implements Process.
func (r *Remap) ComputedFields() []string { return []string{r.dstField} }

// Initialize checks the field extents against the operator.
func (r *Remap) Initialize(a *fieldbuf.Arena) error {
	unique := r.m.UniqueSourceDofs()
	if unique == nil {
		return fmt.Errorf("atmproc: %s: map %s is not finalized", r.Name(), r.m.Name)
	}
	srcSpec, err := a.Spec(r.srcField)
	if err != nil {
		return fmt.Errorf("atmproc: %s: %v", r.Name(), err)
	}
	dstSpec, err := a.Spec(r.dstField)
	if err != nil {
		return fmt.Errorf("atmproc: %s: %v", r.Name(), err)
	}
	if srcSpec.Cols != len(unique) {
		return fmt.Errorf("atmproc: %s: source field has %d columns, map references %d unique source DOFs", r.Name(), srcSpec.Cols, len(unique))
	}
	if dstSpec.Cols != r.m.NumDofs() {
		return fmt.Errorf("atmproc: %s: target field has %d columns, map owns %d DOFs", r.Name(), dstSpec.Cols, r.m.NumDofs())
	}
	if srcSpec.Levels != dstSpec.Levels {
		return fmt.Errorf("atmproc: %s: source field has %d levels, target has %d", r.Name(), srcSpec.Levels, dstSpec.Levels)
	}
	r.levels = srcSpec.Levels
	if r.levels == 0 {
		r.levels = 1
	}
	r.arena = a
	return nil
}

// Run applies the operator level by level.
func (r *Remap) Run(dt float64) error {
	for lev := 0; lev < r.levels; lev++ {
		src, err := r.arena.Level(r.srcField, lev)
		if err != nil {
			return fmt.Errorf("atmproc: %s: %v", r.Name(), err)
		}
		dst, err := r.arena.Level(r.dstField, lev)
		if err != nil {
			return fmt.Errorf("atmproc: %s: %v", r.Name(), err)
		}
		if err := r.m.Apply(src, dst); err != nil {
			return fmt.Errorf("atmproc: %s: %v", r.Name(), err)
		}
	}
	return nil
}

// Finalize implements Process.
func (r *Remap) Finalize() error { return nil }
