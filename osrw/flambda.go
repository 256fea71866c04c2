/*
 * flambda.go, part of goFFX
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

import (
	"fmt"
	"log"
	"math"
	"strings"

	ffx "github.com/rcorrigan/forcefieldx"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// FLambda returns a copy of the current free-energy profile: the
// ensemble average of dU/dL at the center of each lambda bin.
func (h *Histogram) FLambda() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	ret := make([]float64, len(h.flambda))
	copy(ret, h.flambda)
	return ret
}

// UpdateFLambda recomputes the free-energy profile from the histogram
// and returns the current free-energy difference between the end
// states, in kcal/mol, from the bin sum. If print is true, the
// per-bin breakdown is logged.
//
// The update also refreshes the tempering weight from the minimum of
// the deposited bias over the visited region.
func (h *Histogram) UpdateFLambda(print bool) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.updateFLambda(print)
}

func (h *Histogram) updateFLambda(print bool) float64 {
	var freeEnergy, minFL, totalWeight float64
	var table string
	for {
		var ok bool
		freeEnergy, minFL, totalWeight, table, ok = h.scanFLambda(print)
		if ok {
			break
		}
		//an offset was adjusted, scan again with the new value.
	}

	if h.tempering {
		temperEnergy := 0.0
		if minFL > h.temperOffset {
			temperEnergy = h.temperOffset - minFL
		}
		h.temperingWeight = math.Exp(temperEnergy / h.deltaT)
	}

	if print || math.Abs(freeEnergy-h.previousFreeEnergy) > 0.001 {
		if table != "" {
			log.Print(table)
		}
		log.Printf("goFFX/osrw: minimum bias %8.3f", minFL)
		numeric := h.integrateNumeric(h.flambda)
		log.Printf("goFFX/osrw: free energy from %s rule: %12.4f", h.integration, numeric)
		h.previousFreeEnergy = freeEnergy
	}
	if print {
		log.Printf("goFFX/osrw: the free energy is %12.4f kcal/mol (counts: %6.2e, weight: %6.4f)",
			freeEnergy, totalWeight, h.temperingWeight)
	}
	return freeEnergy
}

// scanFLambda performs one pass over the histogram. It reports ok as
// false, without finishing the pass, if a Boltzmann weight overflowed
// and the offset of the affected lambda bin had to be adjusted.
func (h *Histogram) scanFLambda(print bool) (freeEnergy, minFL, totalWeight float64, table string, ok bool) {
	minFL = math.MaxFloat64
	beta := 1.0 / (ffx.R * h.temperature)
	var sb strings.Builder
	if print {
		sb.WriteString("  Weight    Lambda Bins     F_Lambda Bins   <   F_L  >  Max F_L     dG        G\n")
	}
	for iL := 0; iL < h.lambdaBins; iL++ {
		llFL := -1
		ulFL := -1
		//smallest and largest occupied dU/dL bin at this lambda.
		for jFL := 0; jFL < h.flBins; jFL++ {
			if h.counts.At(iL, jFL) > 0 {
				llFL = jFL
				break
			}
		}
		for jFL := h.flBins - 1; jFL >= 0; jFL-- {
			if h.counts.At(iL, jFL) > 0 {
				ulFL = jFL
				break
			}
		}

		lambdaCount := 0.0
		lla := 0.0
		ula := 0.0
		maxBias := 0.0
		if llFL == -1 || ulFL == -1 {
			h.flambda[iL] = 0.0
			minFL = 0.0
		} else {
			ensembleAverage := 0.0
			partition := 0.0
			for jFL := llFL; jFL <= ulFL; jFL++ {
				currentFL := h.minFLambda + float64(jFL)*h.dFL + h.dFL2
				kernel := h.evaluateKernel(iL, jFL)
				if kernel > maxBias {
					maxBias = kernel
				}
				kernel += h.offset[iL]
				weight := math.Exp(kernel * beta)
				if math.IsInf(weight, 0) || math.IsNaN(weight) {
					log.Printf("goFFX/osrw: %8.6f weight for (L=%5.3f FL=%7.1f) due to kernel %8.3f",
						weight, float64(iL)*h.dL, currentFL, kernel)
					h.offset[iL] = -(kernel - h.offset[iL])
					log.Printf("goFFX/osrw: setting recursion kernel offset for L=%5.3f to %8.3f",
						float64(iL)*h.dL, h.offset[iL])
					return 0, 0, 0, "", false
				}
				ensembleAverage += currentFL * weight
				partition += weight
				lambdaCount += h.counts.At(iL, jFL)
			}
			if minFL > maxBias {
				minFL = maxBias
			}
			h.flambda[iL] = ensembleAverage / partition
			lla = h.minFLambda + float64(llFL)*h.dFL
			ula = h.minFLambda + float64(ulFL+1)*h.dFL
		}

		//the first and last lambda bins are half size.
		delta := h.dL
		if iL == 0 || iL == h.lambdaBins-1 {
			delta = h.dL2
		}
		deltaFreeEnergy := h.flambda[iL] * delta
		freeEnergy += deltaFreeEnergy
		totalWeight += lambdaCount

		if print {
			llL := float64(iL)*h.dL - h.dL2
			ulL := llL + h.dL
			if llL < 0.0 {
				llL = 0.0
			}
			if ulL > 1.0 {
				ulL = 1.0
			}
			sb.WriteString(fmt.Sprintf(" %6.2e  %6.4f %6.4f   %7.1f %7.1f   %8.2f  %8.2f  %8.3f %8.3f\n",
				lambdaCount, llL, ulL, lla, ula, h.flambda[iL], maxBias, deltaFreeEnergy, freeEnergy))
		}
	}
	return freeEnergy, minFL, totalWeight, sb.String(), true
}

// IntegrateDUDL integrates the current free-energy profile over lambda
// with the configured quadrature rule, returning the free-energy
// difference between the end states in kcal/mol.
func (h *Histogram) IntegrateDUDL() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.integrateNumeric(h.flambda)
}

// integrateNumeric integrates dUdL (one value per lambda bin center)
// from 0 to 1. The interior bin centers, from dL to 1-dL, are handled
// by the configured rule; the two half bins at each end are handled
// with trapezoids. If dU/dL is not known to vanish at the end states,
// its end values are extrapolated from the two nearest bin centers.
func (h *Histogram) integrateNumeric(dUdL []float64) float64 {
	n := h.lambdaBins
	mid := make([]float64, n-2)
	floats.Span(mid, h.dL, 1.0-h.dL)
	var val float64
	switch h.integration {
	case Trapezoidal:
		val = integrate.Trapezoidal(mid, dUdL[1:n-1])
	default:
		val = integrate.Simpsons(mid, dUdL[1:n-1])
	}

	dL4 := h.dL2 * 0.5
	val0 := 0.0
	val1 := 0.0
	if !h.zeroAtEnds {
		recipSlopeLen := 1.0 / (h.dL * 0.75)
		slope := (dUdL[0] - dUdL[1]) * recipSlopeLen
		val0 = dUdL[0] + slope*dL4
		slope = (dUdL[n-1] - dUdL[n-2]) * recipSlopeLen
		val1 = dUdL[n-1] + slope*dL4
	}

	val += trapezoid(0, dL4, val0, dUdL[0])
	val += trapezoid(dL4, h.dL, dUdL[0], dUdL[1])
	val += trapezoid(1.0-h.dL, 1.0-dL4, dUdL[n-2], dUdL[n-1])
	val += trapezoid(1.0-dL4, 1.0, dUdL[n-1], val1)
	return val
}

func trapezoid(x0, x1, fx0, fx1 float64) float64 {
	return 0.5 * (fx0 + fx1) * (x1 - x0)
}

// Current1DBias returns the 1-D bias at the given lambda, in kcal/mol,
// obtained by integrating the piecewise-linear free-energy profile
// from 0 to lambda, together with its derivative with respect to
// lambda. Both carry the sign with which they enter the total biasing
// potential.
func (h *Histogram) Current1DBias(lambda float64) (bias, dBiasdL float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current1DBias(lambda)
}

func (h *Histogram) current1DBias(currentLambda float64) (float64, float64) {
	biasEnergy := 0.0
	dBiasdL := 0.0
	for iL0 := 0; iL0 < h.lambdaBins-1; iL0++ {
		iL1 := iL0 + 1
		//bin centers and values for the interpolation points.
		l0 := float64(iL0) * h.dL
		l1 := l0 + h.dL
		fl0 := h.flambda[iL0]
		fl1 := h.flambda[iL1]
		deltaFL := fl1 - fl0
		//if lambda is within this interval, it becomes the upper
		//integration limit and the scan ends here.
		done := false
		if currentLambda <= l1 {
			done = true
			l1 = currentLambda
		}
		biasEnergy += fl0*l1 + deltaFL*l1*(0.5*l1-l0)/h.dL
		biasEnergy -= fl0*l0 + deltaFL*l0*(-0.5*l0)/h.dL
		if done {
			dBiasdL = -(fl0 + (l1-l0)*deltaFL/h.dL)
			break
		}
	}
	return -biasEnergy, dBiasdL
}
