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
	"log"

	"github.com/spatialmodel/hremap/fieldbuf"
)

// A Driver runs an ordered list of processes over a shared field
// arena. The order is fixed at construction; each step runs every
// process once, in order.
type Driver struct {
	arena *fieldbuf.Arena
	procs []Process

	initialized bool
	step        int
}

// NewDriver validates the field dependencies of the given process
// sequence against the arena. Every field a process reads or writes
// must exist in the arena, and a field computed by one process may not
// be required by an earlier one.
func NewDriver(arena *fieldbuf.Arena, procs []Process) (*Driver, error) {
	computedBy := make(map[string]int)
	for i, p := range procs {
		for _, f := range p.ComputedFields() {
			if !arena.Has(f) {
				return nil, fmt.Errorf("atmproc: process %s computes field %s, which is not in the arena", p.Name(), f)
			}
			computedBy[f] = i
		}
	}
	for i, p := range procs {
		for _, f := range p.RequiredFields() {
			if !arena.Has(f) {
				return nil, fmt.Errorf("atmproc: process %s requires field %s, which is not in the arena", p.Name(), f)
			}
			if j, ok := computedBy[f]; ok && j >= i {
				return nil, fmt.Errorf("atmproc: process %s requires field %s, which is only computed later by %s", p.Name(), f, procs[j].Name())
			}
		}
	}
	return &Driver{arena: arena, procs: procs}, nil
}

// Arena returns the driver's field arena.
func (d *Driver) Arena() *fieldbuf.Arena { return d.arena }

// Init initializes every process, in order.
func (d *Driver) Init() error {
	if d.initialized {
		return fmt.Errorf("atmproc: driver initialized twice")
	}
	for _, p := range d.procs {
		if err := p.Initialize(d.arena); err != nil {
			return fmt.Errorf("atmproc: initializing %s: %v", p.Name(), err)
		}
	}
	d.initialized = true
	return nil
}

// Run advances the simulation by nsteps steps of dt seconds each.
func (d *Driver) Run(nsteps int, dt float64) error {
	if !d.initialized {
		return fmt.Errorf("atmproc: driver run before initialization")
	}
	for n := 0; n < nsteps; n++ {
		for _, p := range d.procs {
			if err := p.Run(dt); err != nil {
				return fmt.Errorf("atmproc: step %d, process %s: %v", d.step, p.Name(), err)
			}
		}
		d.step++
	}
	return nil
}

// Step returns the number of completed time steps.
func (d *Driver) Step() int { return d.step }

// Finalize finalizes every process, in order. All processes are
// finalized even if some fail; the first error is returned and the
// rest are logged.
func (d *Driver) Finalize() error {
	var first error
	for _, p := range d.procs {
		if err := p.Finalize(); err != nil {
			if first == nil {
				first = fmt.Errorf("atmproc: finalizing %s: %v", p.Name(), err)
			} else {
				log.Printf("atmproc: finalizing %s: %v", p.Name(), err)
			}
		}
	}
	return first
}
