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
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/spatialmodel/hremap"
	"github.com/spatialmodel/hremap/comms"
	"github.com/spatialmodel/hremap/fieldbuf"
)

// testMap builds a finalized two-target-DOF operator:
//
//	target 0 = 0.5*src(0) + 0.5*src(1)
//	target 1 = 0.25*src(1) + 0.75*src(2)
func testMap(t *testing.T) *hremap.Map {
	t.Helper()
	m, err := hremap.NewMapDofs(comms.Self{}, "test", []int{0, 1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.AddSegment(hremap.NewSegmentData(0, []int{0, 1}, []float64{0.5, 0.5})); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSegment(hremap.NewSegmentData(1, []int{1, 2}, []float64{0.25, 0.75})); err != nil {
		t.Fatal(err)
	}
	if err := m.Finalize(); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRemapProcess(t *testing.T) {
	m := testMap(t)
	arena, err := fieldbuf.NewArena([]fieldbuf.Spec{
		{Name: "T_src", Cols: 3, Levels: 2},
		{Name: "T_dst", Cols: 2, Levels: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	src, err := arena.Field("T_src")
	if err != nil {
		t.Fatal(err)
	}
	copy(src, []float64{2, 4, 8, 20, 40, 80})

	r := NewRemap(m, "T_src", "T_dst")
	d, err := NewDriver(arena, []Process{r})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if err := d.Run(1, 300); err != nil {
		t.Fatal(err)
	}
	dst, err := arena.Field("T_dst")
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{3, 7, 30, 70}
	if !floats.EqualApprox(dst, want, 1e-14) {
		t.Errorf("T_dst = %v, want %v", dst, want)
	}
	if r.Type() != Diagnostic {
		t.Errorf("Type() = %s, want diagnostic", r.Type())
	}
}

func TestRemapProcessExtentErrors(t *testing.T) {
	m := testMap(t)
	badCols, err := fieldbuf.NewArena([]fieldbuf.Spec{
		{Name: "T_src", Cols: 5, Levels: 1},
		{Name: "T_dst", Cols: 2, Levels: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := NewRemap(m, "T_src", "T_dst").Initialize(badCols); err == nil {
		t.Error("expected an error for a source column mismatch")
	}
	badLevels, err := fieldbuf.NewArena([]fieldbuf.Spec{
		{Name: "T_src", Cols: 3, Levels: 2},
		{Name: "T_dst", Cols: 2, Levels: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := NewRemap(m, "T_src", "T_dst").Initialize(badLevels); err == nil {
		t.Error("expected an error for a level-count mismatch")
	}
}

func TestRemapProcessUnfinalized(t *testing.T) {
	m, err := hremap.NewMapDofs(comms.Self{}, "test", []int{0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	arena, err := fieldbuf.NewArena([]fieldbuf.Spec{
		{Name: "s", Cols: 1},
		{Name: "d", Cols: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := NewRemap(m, "s", "d").Initialize(arena); err == nil {
		t.Error("expected an error for an unfinalized map")
	}
}
