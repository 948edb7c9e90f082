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

package hremaputil

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spatialmodel/hremap"
)

// writeTestMap writes a small well-formed map file with four target
// DOFs and returns its path.
func writeTestMap(t *testing.T) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "map.nc")
	err := hremap.WriteRemapFile(filename,
		[]int{1, 1, 2, 2, 3, 3, 4, 4},
		[]int{1, 2, 2, 3, 3, 4, 4, 5},
		[]float64{0.5, 0.5, 0.25, 0.75, 0.5, 0.5, 0.125, 0.875},
		6, 4)
	if err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestLoadMapSerial(t *testing.T) {
	m, err := loadMapSerial(writeTestMap(t))
	if err != nil {
		t.Fatal(err)
	}
	if m.NumSegments() != 4 {
		t.Errorf("NumSegments() = %d, want 4", m.NumSegments())
	}
	if got := len(m.UniqueSourceDofs()); got != 5 {
		t.Errorf("len(UniqueSourceDofs()) = %d, want 5", got)
	}
	if err := m.Check(); err != nil {
		t.Error(err)
	}
}

func TestCheckCommand(t *testing.T) {
	out := new(bytes.Buffer)
	Root.SetOut(out)
	Root.SetErr(out)
	Root.SetArgs([]string{"check", writeTestMap(t)})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "4 segments") {
		t.Errorf("check output %q does not report the segment count", out.String())
	}
}

func TestCheckCommandBadWeights(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "bad.nc")
	err := hremap.WriteRemapFile(filename,
		[]int{1, 1, 2},
		[]int{1, 2, 2},
		[]float64{0.5, 0.4, 1}, // first segment sums to 0.9
		3, 2)
	if err != nil {
		t.Fatal(err)
	}
	out := new(bytes.Buffer)
	Root.SetOut(out)
	Root.SetErr(out)
	Root.SetArgs([]string{"check", filename})
	if err := Root.Execute(); err == nil {
		t.Fatal("expected check to fail for non-conservative weights")
	}
}

func TestDumpCommand(t *testing.T) {
	out := new(bytes.Buffer)
	Root.SetOut(out)
	Root.SetErr(out)
	Root.SetArgs([]string{"dump", writeTestMap(t)})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"map ", "unique source DOFs", "owned DOFs", "source DOF range: [0, 4]"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("dump output does not contain %q:\n%s", want, out.String())
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out := new(bytes.Buffer)
	Root.SetOut(out)
	Root.SetErr(out)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), Version) {
		t.Errorf("version output %q does not contain %q", out.String(), Version)
	}
}

func TestOwnedBlock(t *testing.T) {
	dofs := []int{10, 20, 30, 40, 50, 60, 70}
	for _, size := range []int{1, 2, 3, 7} {
		var got []int
		prev := -1
		for rank := 0; rank < size; rank++ {
			block := ownedBlock(dofs, size, rank)
			if len(block) == 0 {
				t.Errorf("size %d rank %d: empty block", size, rank)
			}
			if prev >= 0 && len(block) > prev {
				t.Errorf("size %d rank %d: block grows from %d to %d", size, rank, prev, len(block))
			}
			prev = len(block)
			got = append(got, block...)
		}
		if len(got) != len(dofs) {
			t.Errorf("size %d: blocks cover %d DOFs, want %d", size, len(got), len(dofs))
			continue
		}
		for i := range got {
			if got[i] != dofs[i] {
				t.Errorf("size %d: blocks reorder the DOF list: %v", size, got)
				break
			}
		}
	}
}
