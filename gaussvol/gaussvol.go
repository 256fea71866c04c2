/*
 * gaussvol.go, part of goFFX
 *
 * Copyright 2024 Rhea Corrigan <rcorriganatgmaildotcom>
 *
    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU Lesser General Public License as published by
    the Free Software Foundation, either version 2.1 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU Lesser General Public License
    along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 *
*/

/*Package gaussvol computes molecular volumes, and volume-based
energies with analytic Cartesian gradients, from the Gaussian
description of molecular shape of Grant and Pickup.

Each atom is a spherical Gaussian; the volume of the molecule is the
inclusion-exclusion sum over the overlaps of 2, 3, ... atoms, each of
which is itself a Gaussian and is found recursively. The overlaps form
a tree, stored in a flat arena with the root at slot 0 and the atoms at
slots 1..N, which can be rebuilt from scratch or rescanned in place
when only positions or parameters change.

Overlaps below a volume threshold are pruned, with a smooth switching
function so the energy stays differentiable at the cutoff. Distances
are in Angstrom, volumes in Angstrom^3 and surface tensions (gammas) in
kcal/mol/Angstrom^2.*/
package gaussvol

import (
	"math"

	ffx "github.com/rcorrigan/forcefieldx"
	"gonum.org/v1/gonum/mat"
)

const (
	//kfc sets the Gaussian exponent a = kfc/r^2 so the Gaussian sphere
	//reproduces the hard-sphere volume.
	kfc = 2.2269859253

	//switching thresholds for overlap volumes, in Angstrom^3.
	defVolMinA = 0.01
	defVolMinB = 0.1

	//largest overlap order considered.
	defMaxOrder = 8
)

// Options holds the tunables of the overlap tree.
type Options struct {
	volMinA   float64
	volMinB   float64
	minVolume float64
	maxOrder  int
}

// DefaultOptions returns an Options with the default values.
func DefaultOptions() *Options {
	ret := new(Options)
	ret.volMinA = defVolMinA
	ret.volMinB = defVolMinB
	ret.minVolume = math.SmallestNonzeroFloat64
	ret.maxOrder = defMaxOrder
	return ret
}

// Returns the lower switching threshold, in Angstrom^3, below which an
// overlap volume is taken as zero, and sets it, if a valid value is
// given.
func (r *Options) VolMinA(v ...float64) float64 {
	ret := r.volMinA
	if len(v) > 0 && v[0] > 0 {
		r.volMinA = v[0]
	}
	return ret
}

// Returns the upper switching threshold, in Angstrom^3, above which an
// overlap volume is unswitched, and sets it, if a valid value is given.
func (r *Options) VolMinB(v ...float64) float64 {
	ret := r.volMinB
	if len(v) > 0 && v[0] > 0 {
		r.volMinB = v[0]
	}
	return ret
}

// Returns the pruning threshold: overlaps with a switched volume at or
// below it get no tree node. Sets it, if a non-negative value is
// given. The default keeps every overlap that is not exactly zero.
func (r *Options) MinVolume(v ...float64) float64 {
	ret := r.minVolume
	if len(v) > 0 && v[0] >= 0 {
		r.minVolume = v[0]
	}
	return ret
}

// Returns the largest overlap order considered, and sets it, if a
// valid value is given.
func (r *Options) MaxOrder(n ...int) int {
	ret := r.maxOrder
	if len(n) > 0 && n[0] >= 2 {
		r.maxOrder = n[0]
	}
	return ret
}

// GaussVol evaluates the volume, and the volume-based energy with its
// gradients, of a set of atoms.
type GaussVol struct {
	nAtoms     int
	radii      []float64
	volumes    []float64
	gammas     []float64
	ishydrogen []bool
	tree       *overlapTree
}

// New returns a GaussVol for nAtoms atoms, with unit radii and zero
// volumes and gammas until the setters are called. Atoms flagged in
// ishydrogen are given zero volume, so they do not contribute.
func New(nAtoms int, ishydrogen []bool, options ...*Options) (*GaussVol, error) {
	if len(ishydrogen) != nAtoms {
		return nil, Error{"gaussvol: length of ishydrogen does not match the number of atoms", []string{"New"}, true}
	}
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	g := new(GaussVol)
	g.nAtoms = nAtoms
	g.radii = make([]float64, nAtoms)
	for i := range g.radii {
		g.radii[i] = 1.0
	}
	g.volumes = make([]float64, nAtoms)
	g.gammas = make([]float64, nAtoms)
	g.ishydrogen = ishydrogen
	g.tree = newOverlapTree(nAtoms, o)
	return g, nil
}

// SetRadii sets the atomic radii, in Angstrom.
func (g *GaussVol) SetRadii(radii []float64) error {
	if len(radii) != g.nAtoms {
		return Error{"gaussvol: number of radii does not match the number of atoms", []string{"SetRadii"}, true}
	}
	copy(g.radii, radii)
	return nil
}

// SetVolumes sets the atomic volumes, in Angstrom^3.
func (g *GaussVol) SetVolumes(volumes []float64) error {
	if len(volumes) != g.nAtoms {
		return Error{"gaussvol: number of volumes does not match the number of atoms", []string{"SetVolumes"}, true}
	}
	copy(g.volumes, volumes)
	return nil
}

// SetGammas sets the atomic surface tensions, in kcal/mol/Angstrom^2.
func (g *GaussVol) SetGammas(gammas []float64) error {
	if len(gammas) != g.nAtoms {
		return Error{"gaussvol: number of gammas does not match the number of atoms", []string{"SetGammas"}, true}
	}
	copy(g.gammas, gammas)
	return nil
}

// ComputeTree builds the overlap tree from scratch at the given
// positions (an nAtoms x 3 matrix).
func (g *GaussVol) ComputeTree(positions *mat.Dense) error {
	if err := g.checkPositions(positions); err != nil {
		return errDecorate(err, "ComputeTree")
	}
	g.tree.build(positions, g.radii, g.volumes, g.gammas, g.ishydrogen)
	return nil
}

// ComputeVolume traverses the current tree and returns the total
// volume, in Angstrom^3, and the volume-based energy, in kcal/mol. It
// fills force with the negative Cartesian energy gradient, gradV with
// the derivative of the energy with respect to each atomic volume, and
// the per-atom free and self volumes. ComputeTree (or a rescan) must
// have been called first.
func (g *GaussVol) ComputeVolume(force *mat.Dense, gradV, freeVolume, selfVolume []float64) (volume, energy float64, err error) {
	r, c := force.Dims()
	if r != g.nAtoms || c != 3 {
		return 0, 0, Error{"gaussvol: force must be an nAtoms x 3 matrix", []string{"ComputeVolume"}, true}
	}
	if len(gradV) != g.nAtoms || len(freeVolume) != g.nAtoms || len(selfVolume) != g.nAtoms {
		return 0, 0, Error{"gaussvol: output slice length does not match the number of atoms", []string{"ComputeVolume"}, true}
	}
	volume, energy = g.tree.computeVolume(force, gradV, freeVolume, selfVolume)
	//turn the gradient into a force.
	force.Scale(-1, force)
	for i := 0; i < g.nAtoms; i++ {
		if g.volumes[i] > 0 {
			gradV[i] /= g.volumes[i]
		}
	}
	return volume, energy, nil
}

// RescanTreeVolumes refreshes the tree from new positions and the
// current radii, volumes and gammas, without rebuilding the topology.
// It is much cheaper than ComputeTree and is correct as long as no
// overlap appeared or vanished.
func (g *GaussVol) RescanTreeVolumes(positions *mat.Dense) error {
	if err := g.checkPositions(positions); err != nil {
		return errDecorate(err, "RescanTreeVolumes")
	}
	if len(g.tree.overlaps) == 0 {
		return Error{"gaussvol: no tree to rescan, call ComputeTree first", []string{"RescanTreeVolumes"}, true}
	}
	g.tree.rescanVolumes(positions, g.radii, g.volumes, g.gammas, g.ishydrogen)
	return nil
}

// RescanTreeGammas refreshes only the surface tensions in the tree.
func (g *GaussVol) RescanTreeGammas() error {
	if len(g.tree.overlaps) == 0 {
		return Error{"gaussvol: no tree to rescan, call ComputeTree first", []string{"RescanTreeGammas"}, true}
	}
	g.tree.rescanGammas(g.gammas)
	return nil
}

// Stats returns the number of overlaps rooted at each atom.
func (g *GaussVol) Stats() []int {
	nov := make([]int, g.nAtoms)
	if len(g.tree.overlaps) == 0 {
		return nov
	}
	for atom := 0; atom < g.nAtoms; atom++ {
		nov[atom] = g.tree.nchildrenUnderSlot(atom + 1)
	}
	return nov
}

// TotalOverlaps returns the number of nodes in the tree, the root and
// the atoms excluded.
func (g *GaussVol) TotalOverlaps() int {
	n := len(g.tree.overlaps) - 1 - g.nAtoms
	if n < 0 {
		return 0
	}
	return n
}

func (g *GaussVol) checkPositions(positions *mat.Dense) error {
	r, c := positions.Dims()
	if r != g.nAtoms || c != 3 {
		return Error{"gaussvol: positions must be an nAtoms x 3 matrix", []string{"checkPositions"}, true}
	}
	return nil
}

// SphereVolumes is a convenience that returns the hard-sphere volumes,
// 4/3 pi r^3, for the given radii.
func SphereVolumes(radii []float64) []float64 {
	ret := make([]float64, len(radii))
	for i, r := range radii {
		ret[i] = 4.0 * math.Pi * r * r * r / 3.0
	}
	return ret
}

//Errors

// Error is the concrete gaussvol error. It implements ffx.Error.
type Error struct {
	message  string
	deco     []string
	critical bool
}

// Error returns a string with an error message.
func (err Error) Error() string {
	return err.message
}

// Decorate will add the dec string to the decoration slice of strings
// of the error, and return the resulting slice.
func (err Error) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

// Critical returns whether the error is critical or can be ignored.
func (err Error) Critical() bool { return err.critical }

func errDecorate(err error, caller string) error {
	err2, ok := err.(ffx.Error)
	if !ok {
		return Error{err.Error(), []string{caller}, true}
	}
	err2.Decorate(caller)
	return err2
}
