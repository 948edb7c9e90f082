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

// Package coupling holds the aerosol naming conventions shared between
// atmosphere processes. The mode, species, and gas tables are fixed
// configuration data: they are defined once here and never mutated, and
// every field name involving an aerosol tracer is derived from them so
// processes agree on spelling.
package coupling

import "fmt"

// Tracer-table dimensions.
const (
	NumModes   = 4
	NumSpecies = 7
	NumGases   = 6
)

var modeNames = [NumModes]string{"1", "2", "3", "4"}

var speciesNames = [NumSpecies]string{"soa", "so4", "pom", "bc", "nacl", "dst", "mom"}

var gasNames = [NumGases]string{"O3", "H2O2", "H2SO4", "SO2", "DMS", "SOAG"}

// modeSpecies marks which aerosol species are carried by each mode.
// Modes 1 (accumulation) and 3 (coarse) carry every species, mode 2
// (Aitken) carries soa, so4, nacl, and mom, and mode 4 (primary carbon)
// carries pom, bc, and mom.
var modeSpecies = [NumModes][NumSpecies]bool{
	{true, true, true, true, true, true, true},
	{true, true, false, false, true, false, true},
	{true, true, true, true, true, true, true},
	{false, false, true, true, false, false, true},
}

// NumTracers is the number of valid mode-species pairs.
const NumTracers = 7 + 4 + 7 + 3

// ModeName returns the symbolic name of an aerosol mode.
func ModeName(mode int) (string, error) {
	if mode < 0 || mode >= NumModes {
		return "", fmt.Errorf("coupling: mode %d out of range [0, %d)", mode, NumModes)
	}
	return modeNames[mode], nil
}

// SpeciesName returns the symbolic name of an aerosol species.
func SpeciesName(species int) (string, error) {
	if species < 0 || species >= NumSpecies {
		return "", fmt.Errorf("coupling: species %d out of range [0, %d)", species, NumSpecies)
	}
	return speciesNames[species], nil
}

// GasName returns the symbolic name of an aerosol-related gas.
func GasName(gas int) (string, error) {
	if gas < 0 || gas >= NumGases {
		return "", fmt.Errorf("coupling: gas %d out of range [0, %d)", gas, NumGases)
	}
	return gasNames[gas], nil
}

// SpeciesIndex returns the table index of a species name.
func SpeciesIndex(name string) (int, error) {
	for i, n := range speciesNames {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("coupling: unknown aerosol species %q", name)
}

// GasIndex returns the table index of a gas name.
func GasIndex(name string) (int, error) {
	for i, n := range gasNames {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("coupling: unknown gas %q", name)
}

// ModeHasSpecies reports whether the given mode carries the given
// species.
func ModeHasSpecies(mode, species int) bool {
	if mode < 0 || mode >= NumModes || species < 0 || species >= NumSpecies {
		return false
	}
	return modeSpecies[mode][species]
}

// InterstitialNumberName returns the field name of the interstitial
// aerosol number mixing ratio of a mode, e.g. "num_a1".
func InterstitialNumberName(mode int) (string, error) {
	n, err := ModeName(mode)
	if err != nil {
		return "", err
	}
	return "num_a" + n, nil
}

// CloudborneNumberName returns the field name of the cloudborne aerosol
// number mixing ratio of a mode, e.g. "num_c1".
func CloudborneNumberName(mode int) (string, error) {
	n, err := ModeName(mode)
	if err != nil {
		return "", err
	}
	return "num_c" + n, nil
}

// InterstitialMassName returns the field name of the interstitial mass
// mixing ratio of a mode-species pair, e.g. "so4_a2". The pair must be
// valid per ModeHasSpecies.
func InterstitialMassName(mode, species int) (string, error) {
	return massName(mode, species, "_a")
}

// CloudborneMassName returns the field name of the cloudborne mass
// mixing ratio of a mode-species pair, e.g. "so4_c2".
func CloudborneMassName(mode, species int) (string, error) {
	return massName(mode, species, "_c")
}

func massName(mode, species int, sep string) (string, error) {
	m, err := ModeName(mode)
	if err != nil {
		return "", err
	}
	s, err := SpeciesName(species)
	if err != nil {
		return "", err
	}
	if !modeSpecies[mode][species] {
		return "", fmt.Errorf("coupling: mode %s does not carry species %s", m, s)
	}
	return s + sep + m, nil
}

// TracerNames returns the field names of every interstitial aerosol
// tracer: one number mixing ratio per mode followed by the mass mixing
// ratios of every valid mode-species pair, in table order.
func TracerNames() []string {
	names := make([]string, 0, NumModes+NumTracers)
	for mode := 0; mode < NumModes; mode++ {
		n, _ := InterstitialNumberName(mode)
		names = append(names, n)
	}
	for mode := 0; mode < NumModes; mode++ {
		for species := 0; species < NumSpecies; species++ {
			if !modeSpecies[mode][species] {
				continue
			}
			n, _ := InterstitialMassName(mode, species)
			names = append(names, n)
		}
	}
	return names
}

func init() {
	// The species table and the declared tracer count must agree.
	n := 0
	for mode := range modeSpecies {
		for _, ok := range modeSpecies[mode] {
			if ok {
				n++
			}
		}
	}
	if n != NumTracers {
		panic(fmt.Sprintf("coupling: species table has %d valid mode-species pairs, declared %d", n, NumTracers))
	}
}
