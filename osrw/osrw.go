/*
 * osrw.go, part of goFFX
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
	"os"

	ffx "github.com/rcorrigan/forcefieldx"
	"gonum.org/v1/gonum/stat"
)

// Bias is the contract of a bias-accumulation strategy over the
// (lambda, dU/dL) plane. The walker synchronizer and the restart codec
// only ever go through these operations, so an alternative strategy
// can be swapped in without touching either.
type Bias interface {

	//AddBias deposits one count at the current lambda and the given
	//unbiased dU/dL.
	AddBias(dEdU float64)

	//BiasEnergy evaluates the deposited 2-D bias and its two partial
	//derivatives at the given point.
	BiasEnergy(lambda, dUdL float64) (bias, dGdL, dGdFL float64)

	//EnsureKernelSize grows the dU/dL axis of the kernel, if needed,
	//until the given value falls within it.
	EnsureKernelSize(dEdL float64)

	//EvaluateKernel evaluates the deposited bias at the center of the
	//given bin.
	EvaluateKernel(cLambda, cFLambda int) float64

	//UpdateFLambda recomputes the free-energy profile and returns the
	//free-energy difference between the end states.
	UpdateFLambda(print bool) float64

	//Destroy shuts the strategy down. Idempotent.
	Destroy() error
}

// TransitionTemperedOSRW wraps a LambdaPotential with the
// transition-tempered OSRW bias. It is itself a LambdaPotential, so it
// can be handed to any integrator in place of the bare potential.
//
// Between energy evaluations the alchemical variable is propagated by
// the internal lambda particle, a count is deposited in the histogram
// every countInterval evaluations, and restart files are written
// periodically.
type TransitionTemperedOSRW struct {
	pot ffx.LambdaPotential

	hist     *Histogram
	particle *LambdaParticle
	walkers  *WalkerSynchronizer

	lambda      float64
	dUdXdL      []float64
	gradScratch []float64

	forceFieldEnergy    float64
	dForceFieldEnergydL float64
	dUdLambda           float64
	biasEnergy          float64
	totalEnergy         float64
	totalFreeEnergy     float64

	propagateLambda bool
	energyCount     int
	biasCount       int
	fLambdaUpdates  int

	countInterval        int
	printFrequency       int
	saveFrequency        int
	fLambdaPrintInterval int

	histogramFile string
	lambdaFile    string

	window     []float64
	windowSize int
}

// New wraps the given potential. The transport connects this walker to
// the others; nil means a single walker. The restart file names may be
// empty to disable checkpointing; if the files exist, the run is
// continued from them. A malformed restart file is reported and
// skipped, the run then starts from scratch.
func New(pot ffx.LambdaPotential, t Transport, histogramFile, lambdaFile string, options ...*Options) *TransitionTemperedOSRW {
	if pot == nil {
		panic(ErrNilPotential)
	}
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	e := new(TransitionTemperedOSRW)
	e.pot = pot
	e.hist = NewHistogram(o)
	e.hist.zeroAtEnds = pot.DEDLZeroAtEnds()
	e.particle = NewLambdaParticle(o)
	e.walkers = NewWalkerSynchronizer(t, e.hist, o)
	e.dUdXdL = make([]float64, pot.NVariables())
	e.gradScratch = make([]float64, pot.NVariables())
	e.countInterval = o.countInterval
	e.printFrequency = int(o.printInterval / o.dt)
	if e.printFrequency < 1 {
		e.printFrequency = 100
	}
	e.saveFrequency = int(o.saveInterval / o.dt)
	if e.saveFrequency < 1 {
		e.saveFrequency = 1000
	}
	e.fLambdaPrintInterval = 25
	e.energyCount = -1
	e.windowSize = o.window
	e.window = make([]float64, 0, e.windowSize)
	e.propagateLambda = true
	e.histogramFile = histogramFile
	e.lambdaFile = lambdaFile

	e.lambda = pot.Lambda()
	e.particle.SetLambda(e.lambda)

	if histogramFile != "" {
		if _, err := os.Stat(histogramFile); err == nil {
			if err := e.LoadHistogram(histogramFile); err != nil {
				log.Printf("goFFX/osrw: invalid histogram restart file %s: %v", histogramFile, err)
			} else {
				log.Printf("goFFX/osrw: continuing histogram from %s", histogramFile)
				e.hist.UpdateFLambda(true)
			}
		}
	}
	if lambdaFile != "" {
		if _, err := os.Stat(lambdaFile); err == nil {
			if err := e.LoadLambda(lambdaFile, true); err != nil {
				log.Printf("goFFX/osrw: invalid lambda restart file %s: %v", lambdaFile, err)
			} else {
				log.Printf("goFFX/osrw: continuing lambda (%6.4f) from %s", e.lambda, lambdaFile)
			}
		}
	}
	e.walkers.Start()
	return e
}

// EnergyAndGradient returns the biased energy at x and fills gradient
// with its Cartesian derivatives. If lambda propagation is on, it also
// advances the lambda particle by one step and, every count interval,
// deposits a count in the histogram.
func (e *TransitionTemperedOSRW) EnergyAndGradient(x, gradient []float64) (float64, error) {
	if len(gradient) != e.pot.NVariables() {
		panic(ErrGradientShape)
	}
	var err error
	e.forceFieldEnergy, err = e.pot.EnergyAndGradient(x, gradient)
	if err != nil {
		return 0, errDecorate(err, "EnergyAndGradient")
	}
	e.dForceFieldEnergydL = e.pot.DEDL()
	e.dUdLambda = e.dForceFieldEnergydL

	d2UdL2, derr := e.pot.D2EDL2()
	if derr != nil {
		if !ffx.IsUnsupported(derr) {
			return 0, errDecorate(derr, "EnergyAndGradient")
		}
		d2UdL2 = 0.0
	}

	//2-D bias G(L, dU/dL) and its derivatives.
	gLdEdL, dGdL, dGdFL := e.hist.BiasEnergy(e.lambda, e.dUdLambda)
	e.dUdLambda += dGdL + dGdFL*d2UdL2

	//Cartesian gradient of the bias through the dU/dL axis.
	gerr := e.pot.DEDXDL(e.dUdXdL)
	if gerr == nil {
		for i := range gradient {
			gradient[i] += dGdFL * e.dUdXdL[i]
		}
	} else if !ffx.IsUnsupported(gerr) {
		return 0, errDecorate(gerr, "EnergyAndGradient")
	}

	//1-D bias from the free-energy profile.
	bias1D, dBiasdL := e.hist.Current1DBias(e.lambda)
	e.dUdLambda += dBiasdL
	e.biasEnergy = bias1D + gLdEdL

	if e.propagateLambda {
		e.energyCount++
		if e.energyCount%e.printFrequency == 0 {
			dBdL := e.dUdLambda - e.dForceFieldEnergydL
			log.Printf("goFFX/osrw: L=%6.4f (%3d) F_LU=%10.4f F_LB=%10.4f F_L=%10.4f V_L=%10.4f",
				e.lambda, e.hist.BinForLambda(e.lambda), e.dForceFieldEnergydL,
				dBdL, e.dUdLambda, e.particle.HalfThetaVelocity())
		}
		if e.energyCount%e.countInterval == 0 {
			e.AddBias(e.dForceFieldEnergydL)
		}
		e.langevin()
	}

	e.totalEnergy = e.forceFieldEnergy + e.biasEnergy
	return e.totalEnergy, nil
}

// Energy returns the biased energy at x without propagating lambda.
func (e *TransitionTemperedOSRW) Energy(x []float64) (float64, error) {
	prop := e.propagateLambda
	e.propagateLambda = false
	defer func() { e.propagateLambda = prop }()
	return e.EnergyAndGradient(x, e.gradScratch)
}

// AddBias deposits one count at the current lambda and the given
// unbiased dU/dL, exchanging it with the other walkers, and refreshes
// the free-energy profile.
func (e *TransitionTemperedOSRW) AddBias(dEdU float64) {
	e.walkers.Count(e.lambda, dEdU)
	e.biasCount++
	e.fLambdaUpdates++
	print := e.fLambdaUpdates%e.fLambdaPrintInterval == 0
	e.totalFreeEnergy = e.hist.UpdateFLambda(print)

	//running average and spread of the free-energy estimate.
	e.window = append(e.window, e.totalFreeEnergy)
	if len(e.window) == e.windowSize {
		avg := stat.Mean(e.window, nil)
		sd := stat.StdDev(e.window, nil)
		log.Printf("goFFX/osrw: the running average is %12.4f kcal/mol and the stdev is %8.4f kcal/mol", avg, sd)
		e.window = e.window[:0]
	}

	if e.energyCount > 0 && e.energyCount%e.saveFrequency == 0 {
		//only walker 0 owns the histogram restart file.
		if e.walkers.Rank() == 0 && e.histogramFile != "" {
			if err := e.SaveHistogram(e.histogramFile); err != nil {
				log.Printf("goFFX/osrw: failed writing histogram restart file: %v", err)
			} else {
				log.Printf("goFFX/osrw: wrote histogram restart file to %s", e.histogramFile)
			}
		}
		//every walker owns a lambda restart file.
		if e.lambdaFile != "" {
			if err := e.SaveLambda(e.lambdaFile); err != nil {
				log.Printf("goFFX/osrw: failed writing lambda restart file: %v", err)
			} else {
				log.Printf("goFFX/osrw: wrote lambda restart file to %s", e.lambdaFile)
			}
		}
	}
}

func (e *TransitionTemperedOSRW) langevin() {
	e.lambda = e.particle.Propagate(e.dUdLambda)
	e.pot.SetLambda(e.lambda)
}

// NVariables returns the number of degrees of freedom of the wrapped
// potential.
func (e *TransitionTemperedOSRW) NVariables() int {
	return e.pot.NVariables()
}

// SetLambda moves both the lambda particle and the wrapped potential
// to the given lambda.
func (e *TransitionTemperedOSRW) SetLambda(lambda float64) {
	e.lambda = lambda
	e.particle.SetLambda(lambda)
	e.pot.SetLambda(lambda)
}

// Lambda returns the current alchemical state.
func (e *TransitionTemperedOSRW) Lambda() float64 {
	return e.lambda
}

// DEDL returns the total lambda derivative, bias included, at the last
// energy evaluation.
func (e *TransitionTemperedOSRW) DEDL() float64 {
	return e.dUdLambda
}

// D2EDL2 is not available for the biased potential, as it would need
// third derivatives of the wrapped one.
func (e *TransitionTemperedOSRW) D2EDL2() (float64, error) {
	return 0, ffx.UnsupportedError("osrw: second lambda derivatives of the bias are not implemented")
}

// DEDXDL is not available for the biased potential, as it would need
// third derivatives of the wrapped one.
func (e *TransitionTemperedOSRW) DEDXDL(gradient []float64) error {
	return ffx.UnsupportedError("osrw: mixed second derivatives of the bias are not implemented")
}

// DEDLZeroAtEnds reports false: the bias does not vanish at the end
// states.
func (e *TransitionTemperedOSRW) DEDLZeroAtEnds() bool {
	return false
}

// PropagateLambda turns the propagation of the lambda particle on or
// off. With propagation off the engine is a plain biased potential,
// which is what Monte Carlo drivers want.
func (e *TransitionTemperedOSRW) PropagateLambda(b bool) {
	e.propagateLambda = b
}

// BiasEnergy evaluates the deposited 2-D bias and its two partial
// derivatives at the given point.
func (e *TransitionTemperedOSRW) BiasEnergy(lambda, dUdL float64) (bias, dGdL, dGdFL float64) {
	return e.hist.BiasEnergy(lambda, dUdL)
}

// EnsureKernelSize grows the dU/dL axis of the histogram, if needed,
// until the given value falls within it.
func (e *TransitionTemperedOSRW) EnsureKernelSize(dEdL float64) {
	e.hist.Ensure(dEdL)
}

// EvaluateKernel evaluates the deposited bias at the center of the bin
// (cLambda, cFLambda).
func (e *TransitionTemperedOSRW) EvaluateKernel(cLambda, cFLambda int) float64 {
	return e.hist.EvaluateKernel(cLambda, cFLambda)
}

// UpdateFLambda recomputes the free-energy profile from the histogram
// and returns the current free-energy difference between the end
// states, in kcal/mol.
func (e *TransitionTemperedOSRW) UpdateFLambda(print bool) float64 {
	return e.hist.UpdateFLambda(print)
}

// Histogram exposes the shared histogram.
func (e *TransitionTemperedOSRW) Histogram() *Histogram {
	return e.hist
}

// Particle exposes the lambda particle.
func (e *TransitionTemperedOSRW) Particle() *LambdaParticle {
	return e.particle
}

// ForceFieldEnergy returns the unbiased energy of the last evaluation.
func (e *TransitionTemperedOSRW) ForceFieldEnergy() float64 {
	return e.forceFieldEnergy
}

// LastBiasEnergy returns the bias energy of the last evaluation.
func (e *TransitionTemperedOSRW) LastBiasEnergy() float64 {
	return e.biasEnergy
}

// LastFreeEnergy returns the most recent free-energy estimate.
func (e *TransitionTemperedOSRW) LastFreeEnergy() float64 {
	return e.totalFreeEnergy
}

// EnergyCount returns the number of propagated energy evaluations.
func (e *TransitionTemperedOSRW) EnergyCount() int {
	return e.energyCount
}

// Destroy shuts down the multi-walker machinery. Safe to call more
// than once.
func (e *TransitionTemperedOSRW) Destroy() error {
	return e.walkers.Destroy()
}

var (
	_ Bias                = (*TransitionTemperedOSRW)(nil)
	_ ffx.LambdaPotential = (*TransitionTemperedOSRW)(nil)
)

//Errors

// Error is the concrete osrw error. It implements ffx.Error.
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

// errDecorate wraps err into an osrw Error, if it is not already an
// ffx.Error, and decorates it with the caller's name.
func errDecorate(err error, caller string) error {
	err2, ok := err.(ffx.Error)
	if !ok {
		return Error{err.Error(), []string{caller}, true}
	}
	err2.Decorate(caller)
	return err2
}

// Messages for the panics raised on programming errors.
const (
	ErrNilPotential  = ffx.PanicMsg("goFFX/osrw: nil LambdaPotential given to New")
	ErrMeshSize      = ffx.PanicMsg("goFFX/osrw: a channel mesh needs at least one walker")
	ErrFLambdaRange  = ffx.PanicMsg("goFFX/osrw: dU/dL outside histogram, Ensure must be called before adding a count")
	ErrGradientShape = ffx.PanicMsg("goFFX/osrw: gradient slice length does not match NVariables")
)
