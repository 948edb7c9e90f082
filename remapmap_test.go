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
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/spatialmodel/hremap/comms"
)

func TestSetDofGIDs(t *testing.T) {
	m := NewMap(comms.Self{}, "test")
	if err := m.SetDofGIDs(nil, 0); err == nil {
		t.Error("expected an error for an empty DOF set")
	}
	if err := m.SetDofGIDs([]int{10, 20, 30}, 10); err != nil {
		t.Fatal(err)
	}
	if want := []int{0, 10, 20}; !reflect.DeepEqual(m.dofs, want) {
		t.Errorf("rebased DOFs = %v, want %v", m.dofs, want)
	}
	if err := m.SetDofGIDs([]int{1}, 0); err == nil {
		t.Error("expected an error for setting DOF IDs twice")
	}
}

func TestAddSegmentRequiresDofs(t *testing.T) {
	m := NewMap(comms.Self{}, "test")
	if err := m.AddSegment(NewSegmentData(0, []int{0}, []float64{1})); err == nil {
		t.Error("expected an error for adding a segment before setting DOF IDs")
	}
}

func TestTargetIndexResolution(t *testing.T) {
	m := NewMap(comms.Self{}, "test")
	if err := m.SetDofGIDs([]int{10, 20, 30}, 10); err != nil {
		t.Fatal(err)
	}
	// Global target 20 rebases to 10, which sits at position 1 of the
	// owned DOF list.
	if err := m.AddSegment(NewSegmentData(10, []int{3}, []float64{1})); err != nil {
		t.Fatal(err)
	}
	if err := m.Finalize(); err != nil {
		t.Fatal(err)
	}
	if got := m.segments[0].DofIdx; got != 1 {
		t.Errorf("resolved target local index = %d, want 1", got)
	}
}

func TestFinalizeUnownedDof(t *testing.T) {
	m := NewMap(comms.Self{}, "test")
	if err := m.SetDofGIDs([]int{0, 1}, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSegment(NewSegmentData(5, []int{0}, []float64{1})); err != nil {
		t.Fatal(err)
	}
	if err := m.Finalize(); err == nil {
		t.Error("expected an error for a segment targeting an unowned DOF")
	}
}

func TestUniqueSourceDofs(t *testing.T) {
	m := NewMap(comms.Self{}, "test")
	if err := m.SetDofGIDs([]int{0, 1}, 0); err != nil {
		t.Fatal(err)
	}
	// Both segments reference source DOF 5; it must appear once in the
	// unique set and resolve to the same index in both segments.
	if err := m.AddSegment(NewSegmentData(0, []int{9, 5}, []float64{0.5, 0.5})); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSegment(NewSegmentData(1, []int{5, 2}, []float64{0.5, 0.5})); err != nil {
		t.Fatal(err)
	}
	if err := m.Finalize(); err != nil {
		t.Fatal(err)
	}
	if want := []int{2, 5, 9}; !reflect.DeepEqual(m.UniqueSourceDofs(), want) {
		t.Errorf("unique source DOFs = %v, want %v", m.UniqueSourceDofs(), want)
	}
	if i, j := m.segments[0].SourceIdx[1], m.segments[1].SourceIdx[0]; i != j || i != 1 {
		t.Errorf("shared source DOF resolved to indices %d and %d, want 1 and 1", i, j)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	m := NewMap(comms.Self{}, "test")
	if err := m.SetDofGIDs([]int{0, 1}, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSegment(NewSegmentData(0, []int{4, 2}, []float64{0.5, 0.5})); err != nil {
		t.Fatal(err)
	}
	if err := m.Finalize(); err != nil {
		t.Fatal(err)
	}
	unique := append([]int{}, m.UniqueSourceDofs()...)
	idx := append([]int{}, m.segments[0].SourceIdx...)
	if err := m.Finalize(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m.UniqueSourceDofs(), unique) {
		t.Errorf("second Finalize changed the unique source set: %v != %v", m.UniqueSourceDofs(), unique)
	}
	if !reflect.DeepEqual(m.segments[0].SourceIdx, idx) {
		t.Errorf("second Finalize changed resolved indices: %v != %v", m.segments[0].SourceIdx, idx)
	}
}

func TestAddSegmentAfterFinalize(t *testing.T) {
	m := NewMap(comms.Self{}, "test")
	if err := m.SetDofGIDs([]int{0, 1}, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSegment(NewSegmentData(0, []int{3}, []float64{1})); err != nil {
		t.Fatal(err)
	}
	if err := m.Finalize(); err != nil {
		t.Fatal(err)
	}
	// Adding after finalization recomputes the unique set immediately.
	if err := m.AddSegment(NewSegmentData(1, []int{1}, []float64{1})); err != nil {
		t.Fatal(err)
	}
	if want := []int{1, 3}; !reflect.DeepEqual(m.UniqueSourceDofs(), want) {
		t.Errorf("unique source DOFs after incremental add = %v, want %v", m.UniqueSourceDofs(), want)
	}
	if got := m.segments[1].DofIdx; got != 1 {
		t.Errorf("incrementally added segment has local index %d, want 1", got)
	}
}

func TestAddSegmentMerges(t *testing.T) {
	m := NewMap(comms.Self{}, "test")
	if err := m.SetDofGIDs([]int{0}, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSegment(NewSegmentData(0, []int{1, 2}, []float64{0.25, 0.25})); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSegment(NewSegmentData(0, []int{3}, []float64{0.5})); err != nil {
		t.Fatal(err)
	}
	if m.NumSegments() != 1 {
		t.Fatalf("got %d segments, want 1 merged segment", m.NumSegments())
	}
	if want := []int{1, 2, 3}; !reflect.DeepEqual(m.segments[0].SourceDofs, want) {
		t.Errorf("merged source DOFs = %v, want %v", m.segments[0].SourceDofs, want)
	}
	if err := m.Check(); err != nil {
		t.Errorf("merged segment should sum to 1: %v", err)
	}
}

func TestCheckEnumeratesFailures(t *testing.T) {
	m := NewMap(comms.Self{}, "broken")
	if err := m.Check(); err == nil {
		t.Error("expected a failure when DOF IDs are not set")
	}
	if err := m.SetDofGIDs([]int{0, 1, 2}, 0); err != nil {
		t.Fatal(err)
	}
	m.AddSegment(NewSegmentData(0, []int{0}, []float64{1}))
	m.AddSegment(NewSegmentData(1, []int{0}, []float64{0.5}))
	m.AddSegment(NewSegmentData(2, []int{0}, []float64{2}))
	err := m.Check()
	if err == nil {
		t.Fatal("expected validation failures")
	}
	// Both broken segments must be enumerated, not just the first.
	for _, want := range []string{"DOF 1", "DOF 2"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("check error does not mention %s: %v", want, err)
		}
	}
}

func TestApplyZeroDofNoOp(t *testing.T) {
	m := NewMap(comms.Self{}, "empty")
	dst := []float64{-1, -1}
	if err := m.Apply([]float64{1, 2}, dst); err != nil {
		t.Fatal(err)
	}
	if want := []float64{-1, -1}; !reflect.DeepEqual(dst, want) {
		t.Errorf("apply on a rank with no DOFs modified the target data: %v", dst)
	}
}

func TestApply(t *testing.T) {
	m := NewMap(comms.Self{}, "test")
	if err := m.SetDofGIDs([]int{0, 1}, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSegment(NewSegmentData(0, []int{0, 1}, []float64{0.25, 0.75})); err != nil {
		t.Fatal(err)
	}
	if err := m.Finalize(); err != nil {
		t.Fatal(err)
	}
	dst := []float64{0, -5}
	if err := m.Apply([]float64{4, 8}, dst); err != nil {
		t.Fatal(err)
	}
	if dst[0] != 7 {
		t.Errorf("target value = %g, want 7", dst[0])
	}
	// DOF 1 has no segment and must be left untouched.
	if dst[1] != -5 {
		t.Errorf("unpopulated target DOF was modified: %g", dst[1])
	}
}

func TestDumpDeterministic(t *testing.T) {
	build := func() *Map {
		m := NewMap(comms.Self{}, "dump")
		if err := m.SetDofGIDs([]int{2, 3}, 2); err != nil {
			t.Fatal(err)
		}
		m.AddSegment(NewSegmentData(0, []int{4, 1}, []float64{0.5, 0.5}))
		m.AddSegment(NewSegmentData(1, []int{1}, []float64{1}))
		if err := m.Finalize(); err != nil {
			t.Fatal(err)
		}
		return m
	}
	var a, b bytes.Buffer
	build().Dump(&a)
	build().Dump(&b)
	if a.String() != b.String() {
		t.Error("two dumps of identically constructed maps differ")
	}
	for _, want := range []string{
		"map dump (rank 0 of 1)",
		"segment DOF = 0, local index = 0, length = 2",
		"unique source DOFs",
		"source DOF range: [1, 4]",
		"owned DOFs",
	} {
		if !strings.Contains(a.String(), want) {
			t.Errorf("dump is missing %q:\n%s", want, a.String())
		}
	}
}
