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

// Package fieldbuf manages the working storage for simulation fields.
// All fields live in one contiguous allocation; each field is a named
// view (an offset and an extent) into that allocation. The field list
// is declared as a single table, and the same table drives both the
// total-size calculation and the offset assignment, so the two cannot
// drift apart.
package fieldbuf

import (
	"fmt"
	"sort"
)

// Spec declares one field in an arena. Cols is the number of columns
// (horizontal degrees of freedom); Levels is the number of vertical
// levels, with 0 meaning a surface field stored as a single level.
type Spec struct {
	Name   string
	Cols   int
	Levels int
}

// size returns the number of values the field occupies.
func (s Spec) size() int {
	if s.Levels == 0 {
		return s.Cols
	}
	return s.Cols * s.Levels
}

// view locates one field inside the arena's buffer.
type view struct {
	spec   Spec
	offset int
}

// An Arena owns the storage for a fixed set of fields. Fields are laid
// out back to back in the order their specs were given, so the layout
// is deterministic for a given spec table.
type Arena struct {
	buf   []float64
	views map[string]view
	names []string
}

// NewArena allocates storage for the given field table. Field names
// must be unique and dimensions positive.
func NewArena(specs []Spec) (*Arena, error) {
	a := &Arena{views: make(map[string]view, len(specs))}
	total := 0
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("fieldbuf: field with empty name")
		}
		if s.Cols <= 0 || s.Levels < 0 {
			return nil, fmt.Errorf("fieldbuf: field %s has invalid dimensions %d columns, %d levels", s.Name, s.Cols, s.Levels)
		}
		if _, ok := a.views[s.Name]; ok {
			return nil, fmt.Errorf("fieldbuf: duplicate field %s", s.Name)
		}
		a.views[s.Name] = view{spec: s, offset: total}
		a.names = append(a.names, s.Name)
		total += s.size()
	}
	a.buf = make([]float64, total)
	return a, nil
}

// Len returns the total number of values in the arena.
func (a *Arena) Len() int { return len(a.buf) }

// Names returns the field names in declaration order.
func (a *Arena) Names() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Has reports whether the arena holds a field with the given name.
func (a *Arena) Has(name string) bool {
	_, ok := a.views[name]
	return ok
}

// Field returns the storage for a whole field. The returned slice
// aliases the arena's buffer; writes through it are visible to every
// holder of the same view.
func (a *Arena) Field(name string) ([]float64, error) {
	v, ok := a.views[name]
	if !ok {
		return nil, fmt.Errorf("fieldbuf: no field %s; have %v", name, a.sortedNames())
	}
	return a.buf[v.offset : v.offset+v.spec.size() : v.offset+v.spec.size()], nil
}

// Level returns the storage for one vertical level of a field. For a
// surface field only level 0 is valid.
func (a *Arena) Level(name string, lev int) ([]float64, error) {
	v, ok := a.views[name]
	if !ok {
		return nil, fmt.Errorf("fieldbuf: no field %s; have %v", name, a.sortedNames())
	}
	nlev := v.spec.Levels
	if nlev == 0 {
		nlev = 1
	}
	if lev < 0 || lev >= nlev {
		return nil, fmt.Errorf("fieldbuf: field %s has %d levels, requested level %d", name, nlev, lev)
	}
	begin := v.offset + lev*v.spec.Cols
	end := begin + v.spec.Cols
	return a.buf[begin:end:end], nil
}

// Spec returns the declaration of a field.
func (a *Arena) Spec(name string) (Spec, error) {
	v, ok := a.views[name]
	if !ok {
		return Spec{}, fmt.Errorf("fieldbuf: no field %s; have %v", name, a.sortedNames())
	}
	return v.spec, nil
}

func (a *Arena) sortedNames() []string {
	names := a.Names()
	sort.Strings(names)
	return names
}
