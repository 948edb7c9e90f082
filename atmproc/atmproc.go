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

// Package atmproc defines the atmosphere-process component model: the
// Process interface each component implements, a registry of named
// process factories, and a Driver that sequences the processes of one
// simulation. The registry holds factory functions only; process
// instances are created on demand and owned by their Driver.
package atmproc

import (
	"fmt"
	"sort"

	"github.com/spatialmodel/hremap/comms"
	"github.com/spatialmodel/hremap/fieldbuf"
)

// Type classifies an atmosphere process.
type Type int

const (
	// Physics processes operate column by column.
	Physics Type = iota
	// Dynamics processes couple columns.
	Dynamics
	// Diagnostic processes compute derived fields without advancing
	// the model state.
	Diagnostic
)

func (t Type) String() string {
	switch t {
	case Physics:
		return "physics"
	case Dynamics:
		return "dynamics"
	case Diagnostic:
		return "diagnostic"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// A Process is one component of an atmosphere simulation. Its required
// fields must exist in the arena before it runs; it writes its computed
// fields every step.
type Process interface {
	// Name identifies the process in logs and errors.
	Name() string
	// Type classifies the process.
	Type() Type
	// RequiredFields lists the fields the process reads.
	RequiredFields() []string
	// ComputedFields lists the fields the process writes.
	ComputedFields() []string
	// Initialize resolves the process's field views in the arena.
	Initialize(a *fieldbuf.Arena) error
	// Run advances the process by one time step of dt seconds.
	Run(dt float64) error
	// Finalize releases any resources held by the process.
	Finalize() error
}

// A Factory creates one process instance for one rank.
type Factory func(comm comms.Comm) (Process, error)

var factories = make(map[string]Factory)

// Register makes a process factory available under the given name.
// It is intended to be called from init functions and panics if the
// name is already taken.
func Register(name string, f Factory) {
	if name == "" {
		panic("atmproc: Register with empty name")
	}
	if f == nil {
		panic(fmt.Sprintf("atmproc: Register(%q) with nil factory", name))
	}
	if _, ok := factories[name]; ok {
		panic(fmt.Sprintf("atmproc: process %q registered twice", name))
	}
	factories[name] = f
}

// New creates the registered process with the given name.
func New(name string, comm comms.Comm) (Process, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("atmproc: no process %q; registered: %v", name, Registered())
	}
	p, err := f(comm)
	if err != nil {
		return nil, fmt.Errorf("atmproc: creating process %q: %v", name, err)
	}
	return p, nil
}

// Registered returns the names of all registered processes, sorted.
func Registered() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
