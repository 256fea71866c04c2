/*
 * options.go, part of goFFX
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
	"strings"

	"github.com/caarlos0/env/v11"
)

// IntegrationMethod selects the quadrature rule used for the
// thermodynamic integration of the interior lambda bins.
type IntegrationMethod int

const (
	Simpsons IntegrationMethod = iota
	Trapezoidal
)

func (m IntegrationMethod) String() string {
	if m == Trapezoidal {
		return "trapezoidal"
	}
	return "Simpsons"
}

// Options holds the tunables of a TT-OSRW run.
type Options struct {
	temperature     float64
	dt              float64
	lambdaBinWidth  float64
	flBinWidth      float64
	flBins          int
	biasMag         float64
	biasCutoff      int
	countInterval   int
	printInterval   float64
	saveInterval    float64
	temperingFactor float64
	temperOffset    float64
	thetaMass       float64
	thetaFriction   float64
	window          int
	asynchronous    bool
	resetStatistics bool
	integration     IntegrationMethod
}

// DefaultOptions returns an Options with the default values.
func DefaultOptions() *Options {
	ret := new(Options)
	ret.temperature = 298.15
	ret.dt = 0.001 //ps
	ret.lambdaBinWidth = 0.005
	ret.flBinWidth = 2.0 //kcal/mol
	ret.flBins = 401
	ret.biasMag = 0.05 //kcal/mol
	ret.biasCutoff = 5
	ret.countInterval = 10
	ret.printInterval = 0.1 //ps
	ret.saveInterval = 1.0  //ps
	ret.temperingFactor = 8.0
	ret.temperOffset = 1.0 //kcal/mol
	ret.thetaMass = 1.0e-18
	ret.thetaFriction = 1.0e-19
	ret.window = 1000
	ret.asynchronous = false
	ret.resetStatistics = false
	ret.integration = Simpsons
	return ret
}

// envOptions mirrors the subset of Options that can be overridden from
// the environment. Pointer fields stay nil when the variable is unset.
type envOptions struct {
	Temperature     *float64 `env:"FFX_OSRW_TEMPERATURE"`
	TimeStep        *float64 `env:"FFX_OSRW_TIMESTEP"`
	LambdaBinWidth  *float64 `env:"FFX_OSRW_LAMBDA_BIN_WIDTH"`
	FLambdaBinWidth *float64 `env:"FFX_OSRW_FLAMBDA_BIN_WIDTH"`
	BiasMag         *float64 `env:"FFX_OSRW_BIAS_MAG"`
	BiasCutoff      *int     `env:"FFX_OSRW_BIAS_CUTOFF"`
	CountInterval   *int     `env:"FFX_OSRW_COUNT_INTERVAL"`
	TemperingFactor *float64 `env:"FFX_OSRW_TEMPERING_FACTOR"`
	TemperOffset    *float64 `env:"FFX_OSRW_TEMPER_OFFSET"`
	Asynchronous    *bool    `env:"FFX_OSRW_ASYNCHRONOUS"`
	Integration     *string  `env:"FFX_OSRW_INTEGRATION"`
}

// DefaultOptionsFromEnv returns the default options with any overrides
// found in the environment applied on top.
func DefaultOptionsFromEnv() (*Options, error) {
	ret := DefaultOptions()
	var e envOptions
	if err := env.Parse(&e); err != nil {
		return ret, Error{"options: " + err.Error(), []string{"DefaultOptionsFromEnv"}, false}
	}
	if e.Temperature != nil {
		ret.Temperature(*e.Temperature)
	}
	if e.TimeStep != nil {
		ret.Dt(*e.TimeStep)
	}
	if e.LambdaBinWidth != nil {
		//widths from the environment are capped at 0.1 so a stray
		//variable cannot leave the lambda path unresolved.
		w := *e.LambdaBinWidth
		if w > 0.1 {
			log.Printf("goFFX/osrw: lambda bin width %f from the environment, using 0.1", w)
			w = 0.1
		}
		ret.LambdaBinWidth(w)
	}
	if e.FLambdaBinWidth != nil {
		ret.FLambdaBinWidth(*e.FLambdaBinWidth)
	}
	if e.BiasMag != nil {
		ret.BiasMag(*e.BiasMag)
	}
	if e.BiasCutoff != nil {
		ret.BiasCutoff(*e.BiasCutoff)
	}
	if e.CountInterval != nil {
		ret.CountInterval(*e.CountInterval)
	}
	if e.TemperingFactor != nil {
		ret.TemperingFactor(*e.TemperingFactor)
	}
	if e.TemperOffset != nil {
		ret.TemperOffset(*e.TemperOffset)
	}
	if e.Asynchronous != nil {
		ret.Asynchronous(*e.Asynchronous)
	}
	if e.Integration != nil {
		ret.Integration(parseIntegration(*e.Integration))
	}
	return ret, nil
}

func parseIntegration(s string) IntegrationMethod {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trapezoid", "trapezoidal":
		return Trapezoidal
	case "simpson", "simpsons":
		return Simpsons
	default:
		log.Printf("goFFX/osrw: unknown integration rule %q, using Simpsons", s)
		return Simpsons
	}
}

// Returns the simulation temperature in K and sets it, if a valid
// value is given.
func (r *Options) Temperature(t ...float64) float64 {
	ret := r.temperature
	if len(t) > 0 && t[0] > 0 {
		r.temperature = t[0]
	}
	return ret
}

// Returns the time step, in ps, between energy evaluations, and sets
// it, if a valid value is given.
func (r *Options) Dt(dt ...float64) float64 {
	ret := r.dt
	if len(dt) > 0 && dt[0] > 0 {
		r.dt = dt[0]
	}
	return ret
}

// Returns the requested width of the lambda bins and sets it, if a
// valid value is given. Widths over 0.5 are ignored: the lambda axis
// needs at least three bins. The actual width in use is re-derived
// from the (odd) bin count, see NewHistogram.
func (r *Options) LambdaBinWidth(w ...float64) float64 {
	ret := r.lambdaBinWidth
	if len(w) > 0 && w[0] > 0 && w[0] <= 0.5 {
		r.lambdaBinWidth = w[0]
	}
	return ret
}

// Returns the width, in kcal/mol, of the dU/dL bins, and sets it, if a
// valid value is given.
func (r *Options) FLambdaBinWidth(w ...float64) float64 {
	ret := r.flBinWidth
	if len(w) > 0 && w[0] > 0 {
		r.flBinWidth = w[0]
	}
	return ret
}

// Returns the initial number of dU/dL bins and sets it, if a valid
// value is given. The histogram grows on demand, so this mostly
// matters for restart-file compatibility.
func (r *Options) FLambdaBins(n ...int) int {
	ret := r.flBins
	if len(n) > 0 && n[0] > 0 {
		r.flBins = n[0]
	}
	return ret
}

// Returns the height, in kcal/mol, of the Gaussian bias deposited with
// each count, and sets it, if a valid value is given.
func (r *Options) BiasMag(b ...float64) float64 {
	ret := r.biasMag
	if len(b) > 0 && b[0] > 0 {
		r.biasMag = b[0]
	}
	return ret
}

// Returns the bias cutoff, in bins, of the deposited Gaussians, and
// sets it, if a valid value is given.
func (r *Options) BiasCutoff(c ...int) int {
	ret := r.biasCutoff
	if len(c) > 0 && c[0] >= 0 {
		r.biasCutoff = c[0]
	}
	return ret
}

// Returns the number of energy evaluations between histogram counts,
// and sets it, if a valid value is given.
func (r *Options) CountInterval(c ...int) int {
	ret := r.countInterval
	if len(c) > 0 && c[0] > 0 {
		r.countInterval = c[0]
	}
	return ret
}

// Returns the interval, in ps, between lambda-state log lines, and
// sets it, if a valid value is given.
func (r *Options) PrintInterval(p ...float64) float64 {
	ret := r.printInterval
	if len(p) > 0 && p[0] > 0 {
		r.printInterval = p[0]
	}
	return ret
}

// Returns the interval, in ps, between restart-file writes, and sets
// it, if a valid value is given.
func (r *Options) SaveInterval(s ...float64) float64 {
	ret := r.saveInterval
	if len(s) > 0 && s[0] > 0 {
		r.saveInterval = s[0]
	}
	return ret
}

// Returns the Dama tempering parameter, as a multiple of R*T, and sets
// it, if any value is given. Non-positive values disable the decay of
// the tempering weight (deltaT becomes effectively infinite).
func (r *Options) TemperingFactor(t ...float64) float64 {
	ret := r.temperingFactor
	if len(t) > 0 {
		r.temperingFactor = t[0]
	}
	return ret
}

// Returns the tempering threshold, in kcal/mol, that the minimum bias
// must exceed before tempering kicks in, and sets it, if any value is
// given. Negative values are clamped to zero.
func (r *Options) TemperOffset(t ...float64) float64 {
	ret := r.temperOffset
	if len(t) > 0 {
		r.temperOffset = t[0]
		if r.temperOffset < 0 {
			r.temperOffset = 0
		}
	}
	return ret
}

// Returns the mass of the theta particle, and sets it, if a valid
// value is given.
func (r *Options) ThetaMass(m ...float64) float64 {
	ret := r.thetaMass
	if len(m) > 0 && m[0] > 0 {
		r.thetaMass = m[0]
	}
	return ret
}

// Returns the friction on the theta particle, and sets it, if a valid
// value is given.
func (r *Options) ThetaFriction(f ...float64) float64 {
	ret := r.thetaFriction
	if len(f) > 0 && f[0] > 0 {
		r.thetaFriction = f[0]
	}
	return ret
}

// Returns the window, in counts, over which the running average of the
// free energy is reported, and sets it, if a valid value is given.
func (r *Options) Window(w ...int) int {
	ret := r.window
	if len(w) > 0 && w[0] > 1 {
		r.window = w[0]
	}
	return ret
}

// Returns whether multi-walker counts are exchanged asynchronously,
// and sets it, if any value is given.
func (r *Options) Asynchronous(a ...bool) bool {
	ret := r.asynchronous
	if len(a) > 0 {
		r.asynchronous = a[0]
	}
	return ret
}

// Returns whether the histogram will be cleared the next time a walker
// reaches the lambda=1 end state, and sets it, if any value is given.
func (r *Options) ResetStatistics(b ...bool) bool {
	ret := r.resetStatistics
	if len(b) > 0 {
		r.resetStatistics = b[0]
	}
	return ret
}

// Returns the quadrature rule used for thermodynamic integration, and
// sets it, if any value is given.
func (r *Options) Integration(m ...IntegrationMethod) IntegrationMethod {
	ret := r.integration
	if len(m) > 0 {
		r.integration = m[0]
	}
	return ret
}
