/*
 * bias.go, part of goFFX
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

package osrw

import "math"

// mirrorBin folds a lambda-bin index that fell outside the axis back
// into it, reflecting about the end bins. The end bins themselves are
// half width, so their counts enter twice.
func (h *Histogram) mirrorBin(lcenter int) (int, float64) {
	lcount := lcenter
	mirrorFactor := 1.0
	if lcount == 0 || lcount == h.lambdaBins-1 {
		mirrorFactor = 2.0
	} else if lcount < 0 {
		lcount = -lcount
	} else if lcount > h.lambdaBins-1 {
		//number of bins past the last bin
		lcount -= h.lambdaBins - 1
		//mirror bin
		lcount = h.lambdaBins - 1 - lcount
	}
	return lcount, mirrorFactor
}

// BiasEnergy evaluates the deposited 2-D bias at the given point, in
// kcal/mol, together with its partial derivatives with respect to
// lambda and to dU/dL. Only counts within the bias cutoff of the point
// contribute.
func (h *Histogram) BiasEnergy(lambda, dUdL float64) (bias, dGdL, dGdFL float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.biasEnergy(lambda, dUdL)
}

func (h *Histogram) biasEnergy(lambda, dUdL float64) (bias, dGdL, dGdFL float64) {
	lambdaBin := h.binForLambda(lambda)
	flBin := h.binForFLambda(dUdL)
	//the deposited Gaussians are two bins wide in each dimension.
	ls2 := (2.0 * h.dL) * (2.0 * h.dL)
	fls2 := (2.0 * h.dFL) * (2.0 * h.dFL)
	for iL := -h.biasCutoff; iL <= h.biasCutoff; iL++ {
		lcenter := lambdaBin + iL
		deltaL := lambda - float64(lcenter)*h.dL
		deltaL2 := deltaL * deltaL
		lcount, mirrorFactor := h.mirrorBin(lcenter)
		for iFL := -h.biasCutoff; iFL <= h.biasCutoff; iFL++ {
			flcenter := flBin + iFL
			//outside the count matrix the weight is 0.
			if flcenter < 0 || flcenter >= h.flBins {
				continue
			}
			deltaFL := dUdL - (h.minFLambda + float64(flcenter)*h.dFL + h.dFL2)
			deltaFL2 := deltaFL * deltaFL
			weight := mirrorFactor * h.counts.At(lcount, flcenter)
			if weight <= 0 {
				continue
			}
			e := weight * h.biasMag * math.Exp(-deltaL2/(2.0*ls2)) * math.Exp(-deltaFL2/(2.0*fls2))
			bias += e
			dGdL -= deltaL / ls2 * e
			dGdFL -= deltaFL / fls2 * e
		}
	}
	return bias, dGdL, dGdFL
}

// EvaluateKernel evaluates the deposited bias at the center of the bin
// (cLambda, cFLambda).
func (h *Histogram) EvaluateKernel(cLambda, cFLambda int) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.evaluateKernel(cLambda, cFLambda)
}

func (h *Histogram) evaluateKernel(cLambda, cFLambda int) float64 {
	vL := float64(cLambda) * h.dL
	vFL := h.minFLambda + float64(cFLambda)*h.dFL + h.dFL2

	ls2 := 2.0 * h.dL * 2.0 * h.dL
	fls2 := 2.0 * h.dFL * 2.0 * h.dFL
	invLs2 := 0.5 / ls2
	invFLs2 := 0.5 / fls2

	sum := 0.0
	for iL := -h.biasCutoff; iL <= h.biasCutoff; iL++ {
		lcenter := cLambda + iL
		deltaL := vL - float64(lcenter)*h.dL
		l2exp := math.Exp(-deltaL * deltaL * invLs2)
		lcount, mirrorFactor := h.mirrorBin(lcenter)
		for jFL := -h.biasCutoff; jFL <= h.biasCutoff; jFL++ {
			flcenter := cFLambda + jFL
			if flcenter < 0 || flcenter >= h.flBins {
				continue
			}
			deltaFL := vFL - (h.minFLambda + float64(flcenter)*h.dFL + h.dFL2)
			weight := mirrorFactor * h.counts.At(lcount, flcenter)
			if weight > 0 {
				sum += weight * h.biasMag * l2exp * math.Exp(-deltaFL*deltaFL*invFLs2)
			}
		}
	}
	return sum
}
