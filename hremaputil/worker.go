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

	log "github.com/sirupsen/logrus"

	"github.com/spatialmodel/hremap"
	"github.com/spatialmodel/hremap/comms"
)

// ownedBlock returns the contiguous block of the target DOF list owned
// by one rank, splitting the list as evenly as possible with the
// leading ranks taking the remainder.
func ownedBlock(dofs []int, size, rank int) []int {
	n := len(dofs) / size
	rem := len(dofs) % size
	start := n*rank + rem
	if rank < rem {
		n++
		start = n * rank
	}
	return dofs[start : start+n]
}

// RunWorker joins a distributed construction of the remap operator in
// mapFile as one rank of a size-rank cluster, validates the
// constructed segments, and logs a summary. Every rank must run with
// the same map file, size, and root address.
func RunWorker(rank, size int, rootAddr, mapFile string) error {
	logger := log.WithFields(log.Fields{
		"rank": rank,
		"size": size,
		"map":  mapFile,
	})
	logger.Info("joining remap construction cluster")

	// Each rank reads the target DOF list itself and claims a
	// contiguous block of it; a driving model would supply its own
	// decomposition here instead.
	dofs, minDof, err := hremap.ReadTargetDofs(mapFile)
	if err != nil {
		return err
	}
	if size > len(dofs) {
		return fmt.Errorf("hremap: %d ranks but only %d target DOFs in %s", size, len(dofs), mapFile)
	}
	owned := ownedBlock(dofs, size, rank)

	c, err := comms.NewCluster(rank, size, rootAddr)
	if err != nil {
		return err
	}
	defer c.Close()
	logger.WithField("dofs", len(owned)).Info("connected; constructing segments")

	m, err := hremap.NewMapDofs(c, mapFile, owned, minDof)
	if err != nil {
		return err
	}
	if err := m.SegmentsFromFile(mapFile); err != nil {
		return err
	}
	if err := m.Finalize(); err != nil {
		return err
	}
	if err := m.Check(); err != nil {
		return err
	}
	logger.WithFields(log.Fields{
		"segments":       m.NumSegments(),
		"unique_sources": len(m.UniqueSourceDofs()),
	}).Info("construction complete")
	return nil
}
