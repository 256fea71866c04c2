/*
 * tree.go, part of goFFX
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

package gaussvol

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// gaussian is a 3-D Gaussian in the (v,c,a) representation:
// g(x) = v (a/pi)^(3/2) exp(-a(x-c)^2).
type gaussian struct {
	v float64 //volume
	a float64 //exponent
	c [3]float64
}

// overlap is one node of the overlap tree: the Gaussian product of the
// atoms in its overlap list, plus the quantities needed to propagate
// derivatives back down the tree.
type overlap struct {
	//0=root, 1=atoms, 2=2-body, 3=3-body...
	level  int
	g      gaussian
	volume float64
	//derivative of the overlap volume wrt the volume of the parent
	dvv1 float64
	//derivative of the overlap volume wrt the position of the parent
	dv1     [3]float64
	gamma1i float64
	//switching function and its gvol derivative, s + s'*gvol
	sfp float64
	//index of the last atom of the overlap list
	atom          int
	parent        int
	childrenStart int
	childrenCount int
}

// overlapTree holds the nodes in a single slice: the root at slot 0,
// the atoms at slots 1..nAtoms, higher orders appended as they are
// found. Children of a node are contiguous and sorted by descending
// volume, so the tree builds and traverses deterministically.
type overlapTree struct {
	nAtoms   int
	overlaps []overlap

	volMinA   float64
	volMinB   float64
	minVolume float64
	maxOrder  int
}

// acc carries the subtree accumulators of the volume recursion: psi/f/p
// for free volumes, psip/fp/pp for self volumes and energy/fenergy/
// penergy for the volume-based energy.
type acc struct {
	psi, f  float64
	p       [3]float64
	psip    float64
	fp      float64
	pp      [3]float64
	energy  float64
	fenergy float64
	penergy [3]float64
}

func newOverlapTree(nAtoms int, o *Options) *overlapTree {
	t := new(overlapTree)
	t.nAtoms = nAtoms
	t.volMinA = o.volMinA
	t.volMinB = o.volMinB
	t.minVolume = o.minVolume
	t.maxOrder = o.maxOrder
	return t
}

// initAtoms fills slot 0 (root) and slots 1..nAtoms (atoms). Hydrogens
// get zero volume, so they never overlap with anything.
func (t *overlapTree) initAtoms(pos *mat.Dense, radii, volumes, gammas []float64, ishydrogen []bool) {
	t.overlaps = t.overlaps[:0]
	t.overlaps = append(t.overlaps, overlap{
		level:         0,
		dvv1:          0,
		sfp:           1.0,
		parent:        -1,
		atom:          -1,
		childrenStart: 1,
		childrenCount: t.nAtoms,
	})
	for iat := 0; iat < t.nAtoms; iat++ {
		a := kfc / (radii[iat] * radii[iat])
		vol := volumes[iat]
		if ishydrogen[iat] {
			vol = 0.0
		}
		ov := overlap{
			level:         1,
			volume:        vol,
			dvv1:          1.0, //dVi/dVi
			sfp:           1.0,
			gamma1i:       gammas[iat],
			parent:        0,
			atom:          iat,
			childrenStart: -1,
			childrenCount: -1,
		}
		ov.g = gaussian{v: vol, a: a, c: [3]float64{pos.At(iat, 0), pos.At(iat, 1), pos.At(iat, 2)}}
		t.overlaps = append(t.overlaps, ov)
	}
}

// computeChildren scans the younger siblings of the overlap at
// rootIndex and returns, in buf, the non-negligible overlaps obtained
// by adding each sibling's atom: (root) + (atom) -> (root, atom).
func (t *overlapTree) computeChildren(rootIndex int, buf []overlap) []overlap {
	buf = buf[:0]
	root := t.overlaps[rootIndex]
	//the master root has no siblings.
	if root.parent < 0 {
		return buf
	}
	if root.level >= t.maxOrder {
		return buf
	}
	parent := t.overlaps[root.parent]
	start := parent.childrenStart
	count := parent.childrenCount
	if start < 0 || count < 0 {
		return buf
	}
	for slotj := rootIndex + 1; slotj < start+count; slotj++ {
		sibling := t.overlaps[slotj]
		atom2 := sibling.atom
		g1 := root.g
		//atoms are stored in the tree at slots 1..nAtoms.
		g2 := t.overlaps[atom2+1].g
		g12, gvol, dVdr, dVdV, sfp := t.ogaussAlpha(g1, g2)
		if gvol <= t.minVolume {
			continue
		}
		ov := overlap{
			g:             g12,
			volume:        gvol,
			atom:          atom2,
			dvv1:          dVdV,
			sfp:           sfp,
			gamma1i:       root.gamma1i + t.overlaps[atom2+1].gamma1i,
			childrenStart: -1,
			childrenCount: -1,
		}
		//dv1 is the gradient of the overlap volume with respect to the
		//position of the parent overlap.
		for k := 0; k < 3; k++ {
			ov.dv1[k] = (g2.c[k] - g1.c[k]) * -dVdr
		}
		buf = append(buf, ov)
	}
	//larger volumes first, so sibling enumeration prunes early.
	sort.SliceStable(buf, func(i, j int) bool { return buf[i].volume > buf[j].volume })
	return buf
}

// addChildren appends the children to the arena and registers them
// with their parent.
func (t *overlapTree) addChildren(parentIndex int, children []overlap) int {
	start := len(t.overlaps)
	t.overlaps[parentIndex].childrenStart = start
	t.overlaps[parentIndex].childrenCount = len(children)
	level := t.overlaps[parentIndex].level + 1
	for _, c := range children {
		c.level = level
		c.parent = parentIndex
		t.overlaps = append(t.overlaps, c)
	}
	return start
}

func (t *overlapTree) computeAndAddChildrenR(root int) {
	children := t.computeChildren(root, nil)
	if len(children) == 0 {
		return
	}
	start := t.addChildren(root, children)
	for ichild := start; ichild < start+len(children); ichild++ {
		t.computeAndAddChildrenR(ichild)
	}
}

// build constructs the whole overlap tree from scratch.
func (t *overlapTree) build(pos *mat.Dense, radii, volumes, gammas []float64, ishydrogen []bool) {
	t.initAtoms(pos, radii, volumes, gammas, ishydrogen)
	for slot := 1; slot <= t.nAtoms; slot++ {
		t.computeAndAddChildrenR(slot)
	}
}

// volumeUnderSlot computes the volume and energy contributions of the
// subtree rooted at slot, accumulating per-atom free volumes, self
// volumes, the position gradient and the volume gradient, and returns
// the subtree accumulators for the parent.
func (t *overlapTree) volumeUnderSlot(slot int, grad *mat.Dense, dv, freeVolume, selfVolume []float64) acc {
	ov := &t.overlaps[slot]
	//alternating signs of the inclusion-exclusion expansion.
	cf := 1.0
	if ov.level%2 == 0 {
		cf = -1.0
	}
	volcoeff := 0.0
	volcoeffp := 0.0
	if ov.level > 0 {
		volcoeff = cf
		volcoeffp = cf / float64(ov.level)
	}

	var a acc
	a.psi = volcoeff * ov.volume
	a.f = volcoeff * ov.sfp
	a.psip = volcoeffp * ov.volume
	a.fp = volcoeffp * ov.sfp
	a.energy = volcoeffp * ov.gamma1i * ov.volume
	a.fenergy = volcoeffp * ov.sfp * ov.gamma1i

	if ov.childrenStart >= 0 {
		for sloti := ov.childrenStart; sloti < ov.childrenStart+ov.childrenCount; sloti++ {
			ch := t.volumeUnderSlot(sloti, grad, dv, freeVolume, selfVolume)
			a.psi += ch.psi
			a.f += ch.f
			a.psip += ch.psip
			a.fp += ch.fp
			a.energy += ch.energy
			a.fenergy += ch.fenergy
			for k := 0; k < 3; k++ {
				a.p[k] += ch.p[k]
				a.pp[k] += ch.pp[k]
				a.penergy[k] += ch.penergy[k]
			}
		}
	}

	if ov.level > 0 {
		atom := ov.atom
		ai := t.overlaps[atom+1].g.a
		a1i := ov.g.a
		a1 := a1i - ai

		freeVolume[atom] += a.psi
		selfVolume[atom] += a.psip

		//contribution to the energy gradient of the last atom.
		c2 := ai / a1i
		row := grad.RawRowView(atom)
		for k := 0; k < 3; k++ {
			row[k] += -ov.dv1[k]*a.fenergy + a.penergy[k]*c2
		}
		//ov.g.v is the unswitched volume; divided by the atom volume
		//at the end.
		dv[atom] += ov.g.v * a.fenergy

		//update the subtree P1..i accumulators for the parent.
		c2 = a1 / a1i
		for k := 0; k < 3; k++ {
			a.p[k] = ov.dv1[k]*a.f + a.p[k]*c2
			a.pp[k] = ov.dv1[k]*a.fp + a.pp[k]*c2
			a.penergy[k] = ov.dv1[k]*a.fenergy + a.penergy[k]*c2
		}
		//update the subtree F1..i accumulators for the parent.
		a.f *= ov.dvv1
		a.fp *= ov.dvv1
		a.fenergy *= ov.dvv1
	}
	return a
}

// computeVolume traverses the tree and returns the total volume and
// the volume-based energy, filling the per-atom outputs.
func (t *overlapTree) computeVolume(grad *mat.Dense, dv, freeVolume, selfVolume []float64) (volume, energy float64) {
	grad.Zero()
	for i := range dv {
		dv[i] = 0.0
		freeVolume[i] = 0.0
		selfVolume[i] = 0.0
	}
	a := t.volumeUnderSlot(0, grad, dv, freeVolume, selfVolume)
	return a.psi, a.energy
}

// rescanR recomputes the volumes of the subtree at slot from the
// current atomic Gaussians without modifying the tree topology.
func (t *overlapTree) rescanR(slot int) {
	ov := &t.overlaps[slot]
	//atoms (parent 0) and the root are reset by the caller.
	if ov.parent > 0 {
		atom := ov.atom
		g1 := t.overlaps[ov.parent].g
		g2 := t.overlaps[atom+1].g
		g12, gvol, dVdr, dVdV, sfp := t.ogaussAlpha(g1, g2)
		ov.g = g12
		ov.volume = gvol
		for k := 0; k < 3; k++ {
			ov.dv1[k] = (g2.c[k] - g1.c[k]) * -dVdr
		}
		ov.dvv1 = dVdV
		ov.sfp = sfp
		ov.gamma1i = t.overlaps[ov.parent].gamma1i + t.overlaps[atom+1].gamma1i
	}
	if ov.childrenStart >= 0 {
		start := ov.childrenStart
		count := ov.childrenCount
		for child := start; child < start+count; child++ {
			t.rescanR(child)
		}
	}
}

// rescanVolumes refreshes the whole tree from new positions, radii,
// volumes and gammas, keeping the topology.
func (t *overlapTree) rescanVolumes(pos *mat.Dense, radii, volumes, gammas []float64, ishydrogen []bool) {
	root := &t.overlaps[0]
	root.volume = 0
	root.dv1 = [3]float64{}
	root.dvv1 = 0
	root.sfp = 1.0
	root.gamma1i = 0

	for iat := 0; iat < t.nAtoms; iat++ {
		ov := &t.overlaps[iat+1]
		a := kfc / (radii[iat] * radii[iat])
		vol := volumes[iat]
		if ishydrogen[iat] {
			vol = 0.0
		}
		ov.g = gaussian{v: vol, a: a, c: [3]float64{pos.At(iat, 0), pos.At(iat, 1), pos.At(iat, 2)}}
		ov.volume = vol
		ov.dv1 = [3]float64{}
		ov.dvv1 = 1.0
		ov.sfp = 1.0
		ov.gamma1i = gammas[iat]
	}
	t.rescanR(0)
}

func (t *overlapTree) rescanGammaR(slot int) {
	ov := &t.overlaps[slot]
	if ov.parent > 0 {
		ov.gamma1i = t.overlaps[ov.parent].gamma1i + t.overlaps[ov.atom+1].gamma1i
	}
	if ov.childrenStart >= 0 {
		start := ov.childrenStart
		count := ov.childrenCount
		for child := start; child < start+count; child++ {
			t.rescanGammaR(child)
		}
	}
}

// rescanGammas refreshes only the surface tensions, leaving volumes
// and topology untouched.
func (t *overlapTree) rescanGammas(gammas []float64) {
	t.overlaps[0].gamma1i = 0
	for iat := 0; iat < t.nAtoms; iat++ {
		t.overlaps[iat+1].gamma1i = gammas[iat]
	}
	t.rescanGammaR(0)
}

func (t *overlapTree) nchildrenUnderSlot(slot int) int {
	n := 0
	if t.overlaps[slot].childrenCount > 0 {
		n += t.overlaps[slot].childrenCount
		for i := 0; i < t.overlaps[slot].childrenCount; i++ {
			n += t.nchildrenUnderSlot(t.overlaps[slot].childrenStart + i)
		}
	}
	return n
}

// ogaussAlpha computes the Gaussian overlap of g1 and g2:
// the product Gaussian g12, the switched overlap volume, (1/r)dV/dr,
// dV/dV1, and the switching factor s + s'*gvol.
func (t *overlapTree) ogaussAlpha(g1, g2 gaussian) (g12 gaussian, sgvol, dVdr, dVdV, sfp float64) {
	var dist [3]float64
	for k := 0; k < 3; k++ {
		dist[k] = g2.c[k] - g1.c[k]
	}
	d2 := dist[0]*dist[0] + dist[1]*dist[1] + dist[2]*dist[2]

	a12 := g1.a + g2.a
	deltai := 1.0 / a12
	df := g1.a * g2.a * deltai //1/alpha

	ef := math.Exp(-df * d2)
	gvol := (g1.v * g2.v / math.Pow(math.Pi/df, 1.5)) * ef

	//(1/r)*(dV/dr) without the switching function.
	dgvol := -2.0 * df * gvol
	dgvolv := 0.0
	if g1.v > 0 {
		dgvolv = gvol / g1.v
	}

	for k := 0; k < 3; k++ {
		g12.c[k] = (g1.c[k]*g1.a + g2.c[k]*g2.a) * deltai
	}
	g12.a = a12
	g12.v = gvol

	s, sp := polSwitchFunction(gvol, t.volMinA, t.volMinB)
	return g12, s * gvol, dgvol, dgvolv, sp*gvol + s
}

// polSwitchFunction is the quintic switch that takes overlap volumes
// smoothly to zero between volminb and volmina, with its derivative.
func polSwitchFunction(gvol, volmina, volminb float64) (s, sp float64) {
	swf := 0.0
	swfp := 1.0
	if gvol > volminb {
		swf = 1.0
		swfp = 0.0
	} else if gvol < volmina {
		swf = 0.0
		swfp = 0.0
	}
	swd := 1.0 / (volminb - volmina)
	swu := (gvol - volmina) * swd
	swu2 := swu * swu
	swu3 := swu * swu2
	s = swf + swfp*swu3*(10.0-15.0*swu+6.0*swu2)
	sp = swfp * swd * 30.0 * swu2 * (1.0 - 2.0*swu + swu2)
	return s, sp
}
