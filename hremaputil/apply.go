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
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/spatialmodel/hremap"
)

// ApplyConfig configures the apply command.
type ApplyConfig struct {
	// RemapFile is the path to the NetCDF map file holding the remap
	// operator.
	RemapFile string

	// SourceFile is the path to the NetCDF file holding the field to
	// be remapped.
	SourceFile string

	// SourceVar is the name of the field variable in SourceFile. Its
	// trailing dimension must be the source grid; an optional leading
	// dimension is treated as vertical levels.
	SourceVar string

	// OutputFile is the path the remapped field is written to.
	OutputFile string

	// OutputVar is the name the remapped field is written under. If
	// empty, SourceVar is used.
	OutputVar string
}

// ReadApplyConfig reads an apply-command configuration from a TOML
// file.
func ReadApplyConfig(filename string) (*ApplyConfig, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("hremap: opening configuration file: %v", err)
	}
	defer f.Close()
	cfg := new(ApplyConfig)
	if _, err := toml.DecodeReader(f, cfg); err != nil {
		return nil, fmt.Errorf("hremap: reading configuration file %s: %v", filename, err)
	}
	if cfg.RemapFile == "" || cfg.SourceFile == "" || cfg.SourceVar == "" || cfg.OutputFile == "" {
		return nil, fmt.Errorf("hremap: configuration file %s must set RemapFile, SourceFile, SourceVar, and OutputFile", filename)
	}
	if cfg.OutputVar == "" {
		cfg.OutputVar = cfg.SourceVar
	}
	return cfg, nil
}

// Apply remaps one field variable according to the configuration.
func Apply(cfg *ApplyConfig) error {
	m, err := loadMapSerial(cfg.RemapFile)
	if err != nil {
		return err
	}
	src, err := readNCF(cfg.SourceFile, cfg.SourceVar)
	if err != nil {
		return err
	}

	// Gather the unique-source subset of each level, then apply.
	unique := m.UniqueSourceDofs()
	levels := 1
	cols := src.Shape[0]
	if len(src.Shape) == 2 {
		levels = src.Shape[0]
		cols = src.Shape[1]
	} else if len(src.Shape) != 1 {
		return fmt.Errorf("hremap: source variable %s has %d dimensions; want 1 or 2", cfg.SourceVar, len(src.Shape))
	}
	if len(unique) > 0 && unique[len(unique)-1] >= cols {
		return fmt.Errorf("hremap: operator references source DOF %d but %s has only %d columns",
			unique[len(unique)-1], cfg.SourceVar, cols)
	}
	gathered := sparse.ZerosDense(levels, len(unique))
	for lev := 0; lev < levels; lev++ {
		global := src.Elements[lev*cols : (lev+1)*cols]
		copy(gathered.Elements[lev*len(unique):(lev+1)*len(unique)], hremap.GatherUnique(unique, global))
	}
	dst := sparse.ZerosDense(levels, m.NumDofs())
	if err := m.ApplyDense(gathered, dst); err != nil {
		return err
	}
	return writeNCF(cfg.OutputFile, cfg.OutputVar, dst)
}

// readNCF reads a NetCDF variable into a dense array.
func readNCF(filename, varName string) (*sparse.DenseArray, error) {
	ff, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("hremap: opening source file: %v", err)
	}
	defer ff.Close()
	f, err := cdf.Open(ff)
	if err != nil {
		return nil, fmt.Errorf("hremap: reading source file %s: %v", filename, err)
	}
	dims := f.Header.Lengths(varName)
	if len(dims) == 0 {
		return nil, fmt.Errorf("hremap: source file %s has no variable %s", filename, varName)
	}
	nread := 1
	for _, dim := range dims {
		nread *= dim
	}
	out := sparse.ZerosDense(dims...)
	r := f.Reader(varName, nil, nil)
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("hremap: reading %s from %s: %v", varName, filename, err)
	}
	switch b := buf.(type) {
	case []float64:
		copy(out.Elements, b)
	case []float32:
		for i, v := range b {
			out.Elements[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("hremap: variable %s in %s is not a floating-point type", varName, filename)
	}
	return out, nil
}

// writeNCF writes a dense array out to NetCDF.
func writeNCF(filename, varName string, data *sparse.DenseArray) error {
	dims := []string{"ncol"}
	if len(data.Shape) == 2 {
		dims = []string{"lev", "ncol"}
	}
	h := cdf.NewHeader(dims, data.Shape)
	h.AddVariable(varName, dims, []float64{0})
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("hremap: creating output file header: %v", err)
	}
	ff, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("hremap: creating output file: %v", err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("hremap: creating output file %s: %v", filename, err)
	}
	w := f.Writer(varName, make([]int, len(data.Shape)), data.Shape)
	if _, err := w.Write(data.Elements); err != nil {
		return fmt.Errorf("hremap: writing %s to %s: %v", varName, filename, err)
	}
	return nil
}
