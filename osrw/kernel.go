/*
 * kernel.go, part of goFFX
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
	"log"
	"math"
	"sync"

	ffx "github.com/rcorrigan/forcefieldx"
	"gonum.org/v1/gonum/mat"
)

// Histogram is the 2-D recursion kernel of the random walk: a count
// matrix over (lambda, dU/dL) plus the derived free-energy profile and
// the tempering state. The lambda axis is fixed, with an odd number of
// bins so the centers of the first and last bin sit exactly at the
// lambda=0 and lambda=1 end states. The dU/dL axis grows on demand.
//
// A single mutex guards all of it. One histogram may be shared by the
// sampling loop and by the receiver goroutine that folds in counts
// from other walkers.
type Histogram struct {
	mu     sync.Mutex
	counts *mat.Dense //lambdaBins x flBins

	lambdaBins int
	flBins     int

	dL, dL2    float64
	dFL, dFL2  float64
	minLambda  float64
	minFLambda float64
	maxFLambda float64

	biasMag    float64
	biasCutoff int

	temperature float64

	//offset[iL] shifts the argument of the Boltzmann exponentials in
	//the F(L) update, so they stay finite as the bias accumulates.
	offset  []float64
	flambda []float64

	tempering       bool
	temperingWeight float64
	temperOffset    float64
	deltaT          float64

	zeroAtEnds         bool
	integration        IntegrationMethod
	previousFreeEnergy float64
}

// NewHistogram allocates an empty histogram with the geometry and bias
// parameters taken from the given options (or the defaults, if none
// are given).
func NewHistogram(options ...*Options) *Histogram {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	h := new(Histogram)
	//An odd number of lambda bins puts the center of the first and
	//last bin at 0 and 1. The requested width rarely divides 1.0
	//evenly, so the width actually used is re-derived from the count.
	h.lambdaBins = int(1.0 / o.lambdaBinWidth)
	if h.lambdaBins%2 == 0 {
		h.lambdaBins++
	}
	h.dL = 1.0 / float64(h.lambdaBins-1)
	h.dL2 = h.dL / 2.0
	h.minLambda = -h.dL2

	h.flBins = o.flBins
	h.dFL = o.flBinWidth
	h.dFL2 = h.dFL / 2.0
	//The center of the central dU/dL bin is at 0.
	h.minFLambda = -(h.dFL * float64(h.flBins)) / 2.0
	h.maxFLambda = h.minFLambda + float64(h.flBins)*h.dFL

	h.biasMag = o.biasMag
	h.biasCutoff = clampBiasCutoff(o.biasCutoff, h.lambdaBins)
	h.temperature = o.temperature
	h.temperOffset = o.temperOffset
	if o.temperingFactor > 0 {
		h.deltaT = o.temperingFactor * ffx.R * o.temperature
	} else {
		h.deltaT = math.MaxFloat64
	}
	//tempering is on from the start; the temperOffset keeps the weight
	//at 1.0 until the minimum deposited bias exceeds it.
	h.tempering = true
	h.temperingWeight = 1.0
	h.integration = o.integration

	h.counts = mat.NewDense(h.lambdaBins, h.flBins, nil)
	h.offset = make([]float64, h.lambdaBins)
	h.flambda = make([]float64, h.lambdaBins)
	return h
}

// LambdaBins returns the number of bins of the lambda axis.
func (h *Histogram) LambdaBins() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lambdaBins
}

// FLambdaBins returns the current number of bins of the dU/dL axis.
func (h *Histogram) FLambdaBins() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.flBins
}

// MinFLambda returns the current lower edge, in kcal/mol, of the dU/dL
// axis.
func (h *Histogram) MinFLambda() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.minFLambda
}

// LambdaBinWidth returns the width of the lambda bins actually in use.
func (h *Histogram) LambdaBinWidth() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dL
}

// FLambdaBinWidth returns the width, in kcal/mol, of the dU/dL bins.
func (h *Histogram) FLambdaBinWidth() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dFL
}

// Counts returns a copy of the count matrix.
func (h *Histogram) Counts() *mat.Dense {
	h.mu.Lock()
	defer h.mu.Unlock()
	return mat.DenseCopyOf(h.counts)
}

// BinForLambda returns the bin whose center is nearest to the given
// lambda. Values outside [0,1] are clamped to the end bins.
func (h *Histogram) BinForLambda(lambda float64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.binForLambda(lambda)
}

// BinForFLambda returns the bin holding the given dU/dL. The index is
// not clamped at the low end: callers that mean to write to the bin
// must call Ensure first.
func (h *Histogram) BinForFLambda(dEdL float64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.binForFLambda(dEdL)
}

// Ensure grows the dU/dL axis, if needed, until the given value falls
// within it. Growth happens in blocks of 100 bins. Counts and offsets
// keep their positions relative to the bin edges.
func (h *Histogram) Ensure(dEdL float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensure(dEdL)
}

// AddWeight merges one count of the given weight into the histogram,
// growing the dU/dL axis first if needed.
func (h *Histogram) AddWeight(lambda, dEdL, weight float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensure(dEdL)
	h.addWeight(lambda, dEdL, weight)
}

// TotalWeight returns the sum of all accumulated weights.
func (h *Histogram) TotalWeight() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return mat.Sum(h.counts)
}

// Reset zeroes all counts. The geometry, the offsets and the tempering
// state are kept.
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts.Zero()
}

// Tempering returns whether the transition-tempering phase has begun.
func (h *Histogram) Tempering() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tempering
}

// SetTempering sets the tempering latch. It is on unless a restart
// file turned it off; once a run begins the latch only moves one way,
// back on, and stays there.
func (h *Histogram) SetTempering(t bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tempering = t
}

// TemperingWeight returns the weight that will be attached to the next
// deposited count. It is 1.0 until the minimum deposited bias exceeds
// the temper offset, then decays towards 0 as the histogram flattens.
func (h *Histogram) TemperingWeight() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.temperingWeight
}

// A cutoff past lambdaBins-1 would fold, after one reflection, to an
// index outside the lambda axis. Bins that far away contribute nothing
// anyway, so the cutoff is cut down to the axis length.
func clampBiasCutoff(cutoff, lambdaBins int) int {
	if cutoff > lambdaBins-1 {
		log.Printf("goFFX/osrw: bias cutoff %d wider than the lambda axis, using %d", cutoff, lambdaBins-1)
		return lambdaBins - 1
	}
	return cutoff
}

func (h *Histogram) binForLambda(lambda float64) int {
	bin := int(math.Floor((lambda - h.minLambda) / h.dL))
	if bin < 0 {
		bin = 0
	}
	if bin >= h.lambdaBins {
		bin = h.lambdaBins - 1
	}
	return bin
}

func (h *Histogram) binForFLambda(dEdL float64) int {
	bin := int(math.Floor((dEdL - h.minFLambda) / h.dFL))
	if bin == h.flBins {
		bin = h.flBins - 1
	}
	return bin
}

func (h *Histogram) addWeight(lambda, dEdL, weight float64) {
	iL := h.binForLambda(lambda)
	jFL := h.binForFLambda(dEdL)
	if jFL < 0 || jFL >= h.flBins {
		panic(ErrFLambdaRange)
	}
	h.counts.Set(iL, jFL, h.counts.At(iL, jFL)+weight)
}

func (h *Histogram) ensure(dEdL float64) {
	if dEdL > h.maxFLambda {
		log.Printf("goFFX/osrw: current F_lambda %8.2f > maximum histogram size %8.2f", dEdL, h.maxFLambda)
		newBins := h.flBins
		for h.minFLambda+float64(newBins)*h.dFL < dEdL {
			newBins += 100
		}
		//bins were added above the current counts, which keep their
		//indexes.
		grown := mat.NewDense(h.lambdaBins, newBins, nil)
		grown.Slice(0, h.lambdaBins, 0, h.flBins).(*mat.Dense).Copy(h.counts)
		h.counts = grown
		h.flBins = newBins
		h.maxFLambda = h.minFLambda + h.dFL*float64(h.flBins)
		log.Printf("goFFX/osrw: new histogram %8.2f to %8.2f with %d bins", h.minFLambda, h.maxFLambda, h.flBins)
	}
	if dEdL < h.minFLambda {
		log.Printf("goFFX/osrw: current F_lambda %8.2f < minimum histogram size %8.2f", dEdL, h.minFLambda)
		offset := 100
		for dEdL < h.minFLambda-float64(offset)*h.dFL {
			offset += 100
		}
		newBins := h.flBins + offset
		//bins were added below the current counts, whose indexes all
		//shift up by the offset.
		grown := mat.NewDense(h.lambdaBins, newBins, nil)
		grown.Slice(0, h.lambdaBins, offset, offset+h.flBins).(*mat.Dense).Copy(h.counts)
		h.counts = grown
		h.minFLambda -= float64(offset) * h.dFL
		h.flBins = newBins
		log.Printf("goFFX/osrw: new histogram %8.2f to %8.2f with %d bins", h.minFLambda, h.maxFLambda, h.flBins)
	}
}
