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
	"os"
	"sort"

	"github.com/ctessum/cdf"
)

// A remap file is a NetCDF file produced offline by a separate
// map-generation tool. It follows the convention:
//
//	n_s - dimension: the number of source -> target mappings.
//	col - the source DOF of each mapping.
//	row - the target DOF of each mapping; records are sorted by row.
//	S   - the weight of each mapping.
//
// n_a and n_b (the source and target grid sizes) may also be present.
// DOF IDs in the file may be 0- or 1-based; the construction algorithm
// normalizes them by subtracting the global minimum observed value.

// remapFile reads slices of the integer and real variables of a remap
// file.
type remapFile struct {
	name string
	f    *os.File
	cf   *cdf.File
}

// openRemapFile opens a remap file for reading.
func openRemapFile(filename string) (*remapFile, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("hremap: opening remap file: %v", err)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("hremap: reading remap file header %s: %v", filename, err)
	}
	return &remapFile{name: filename, f: f, cf: cf}, nil
}

func (r *remapFile) close() error { return r.f.Close() }

// dimLen returns the length of the named dimension.
func (r *remapFile) dimLen(dim string) (int, error) {
	names := r.cf.Header.Dimensions("")
	lengths := r.cf.Header.Lengths("")
	for i, n := range names {
		if n == dim {
			return lengths[i], nil
		}
	}
	return 0, fmt.Errorf("hremap: remap file %s has no dimension %s", r.name, dim)
}

// readInts reads count values of the integer variable v starting at
// offset.
func (r *remapFile) readInts(v string, offset, count int) ([]int, error) {
	if count == 0 {
		return nil, nil
	}
	rdr := r.cf.Reader(v, []int{offset}, []int{offset + count})
	if rdr == nil {
		return nil, fmt.Errorf("hremap: remap file %s has no variable %s", r.name, v)
	}
	buf := rdr.Zero(count)
	if _, err := rdr.Read(buf); err != nil {
		return nil, fmt.Errorf("hremap: reading %s[%d:%d] from %s: %v", v, offset, offset+count, r.name, err)
	}
	out := make([]int, count)
	switch b := buf.(type) {
	case []int32:
		for i, val := range b {
			out[i] = int(val)
		}
	case []int16:
		for i, val := range b {
			out[i] = int(val)
		}
	case []int8:
		for i, val := range b {
			out[i] = int(val)
		}
	default:
		return nil, fmt.Errorf("hremap: variable %s in %s is not an integer type", v, r.name)
	}
	return out, nil
}

// readFloats reads count values of the real variable v starting at
// offset.
func (r *remapFile) readFloats(v string, offset, count int) ([]float64, error) {
	if count == 0 {
		return nil, nil
	}
	rdr := r.cf.Reader(v, []int{offset}, []int{offset + count})
	if rdr == nil {
		return nil, fmt.Errorf("hremap: remap file %s has no variable %s", r.name, v)
	}
	buf := rdr.Zero(count)
	if _, err := rdr.Read(buf); err != nil {
		return nil, fmt.Errorf("hremap: reading %s[%d:%d] from %s: %v", v, offset, offset+count, r.name, err)
	}
	out := make([]float64, count)
	switch b := buf.(type) {
	case []float64:
		copy(out, b)
	case []float32:
		for i, val := range b {
			out[i] = float64(val)
		}
	default:
		return nil, fmt.Errorf("hremap: variable %s in %s is not a floating-point type", v, r.name)
	}
	return out, nil
}

// ReadTargetDofs reads the full row variable of a remap file and
// returns the distinct target DOFs it references, sorted, along with
// the minimum value observed. Serial tools use it to claim ownership
// of every target DOF before construction.
func ReadTargetDofs(filename string) (dofs []int, minDof int, err error) {
	r, err := openRemapFile(filename)
	if err != nil {
		return nil, 0, err
	}
	defer r.close()
	n, err := r.dimLen("n_s")
	if err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return nil, 0, fmt.Errorf("hremap: remap file %s has no mappings", filename)
	}
	rows, err := r.readInts("row", 0, n)
	if err != nil {
		return nil, 0, err
	}
	seen := make(map[int]bool)
	minDof = rows[0]
	for _, dof := range rows {
		seen[dof] = true
		if dof < minDof {
			minDof = dof
		}
	}
	dofs = make([]int, 0, len(seen))
	for dof := range seen {
		dofs = append(dofs, dof)
	}
	sort.Ints(dofs)
	return dofs, minDof, nil
}

// WriteRemapFile writes a remap file in the standard col/row/S format.
// rows, cols and weights are parallel; records should be sorted by
// target DOF, which is the convention the construction algorithm's
// run-length pass relies on. nSrc and nDst are the source and target
// grid sizes, recorded as the n_a and n_b dimensions.
// It is mainly useful for building test fixtures and for writing out
// programmatically constructed operators.
func WriteRemapFile(filename string, rows, cols []int, weights []float64, nSrc, nDst int) error {
	if len(rows) != len(cols) || len(rows) != len(weights) {
		return fmt.Errorf("hremap: writing %s: row, col and S must have equal lengths (%d, %d, %d)",
			filename, len(rows), len(cols), len(weights))
	}
	h := cdf.NewHeader([]string{"n_s", "n_a", "n_b"}, []int{len(rows), nSrc, nDst})
	h.AddVariable("row", []string{"n_s"}, []int32{0})
	h.AddAttribute("row", "description", "target DOF of each mapping")
	h.AddVariable("col", []string{"n_s"}, []int32{0})
	h.AddAttribute("col", "description", "source DOF of each mapping")
	h.AddVariable("S", []string{"n_s"}, []float64{0})
	h.AddAttribute("S", "description", "weight of each mapping")
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("hremap: creating remap file header: %v", err)
	}
	ff, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("hremap: creating remap file: %v", err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("hremap: creating remap file %s: %v", filename, err)
	}
	rowData := make([]int32, len(rows))
	colData := make([]int32, len(cols))
	for i := range rows {
		rowData[i] = int32(rows[i])
		colData[i] = int32(cols[i])
	}
	for _, v := range []struct {
		name string
		data interface{}
	}{{"row", rowData}, {"col", colData}, {"S", weights}} {
		w := f.Writer(v.name, []int{0}, []int{len(rows)})
		if _, err := w.Write(v.data); err != nil {
			return fmt.Errorf("hremap: writing %s to remap file %s: %v", v.name, filename, err)
		}
	}
	return nil
}
