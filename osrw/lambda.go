/*
 * lambda.go, part of goFFX
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
	"math"

	ffx "github.com/rcorrigan/forcefieldx"
	"gonum.org/v1/gonum/stat/distuv"
)

// randomConvert converts the units of the random force on theta.
var (
	randomConvert  = math.Sqrt(ffx.KCalToKJ) / 10e9
	randomConvert2 = randomConvert * randomConvert
)

// LambdaParticle propagates the alchemical variable with Langevin
// dynamics. Lambda is mapped to sin(theta)^2, so the dynamics of the
// unbounded angle theta keep lambda within [0,1] without walls at the
// end states.
type LambdaParticle struct {
	theta             float64
	halfThetaVelocity float64 //ps^-1
	lambda            float64

	mass        float64
	friction    float64
	dt          float64
	temperature float64
}

// NewLambdaParticle returns a lambda particle at lambda=0 with zero
// velocity, taking its mass, friction, temperature and time step from
// the given options (or the defaults, if none are given).
func NewLambdaParticle(options ...*Options) *LambdaParticle {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	p := new(LambdaParticle)
	p.mass = o.thetaMass
	p.friction = o.thetaFriction
	p.dt = o.dt
	p.temperature = o.temperature
	return p
}

// Lambda returns the current lambda.
func (p *LambdaParticle) Lambda() float64 {
	return p.lambda
}

// SetLambda moves the particle to the given lambda, keeping its
// velocity.
func (p *LambdaParticle) SetLambda(lambda float64) {
	p.lambda = lambda
	p.theta = math.Asin(math.Sqrt(lambda))
}

// Theta returns the current angle.
func (p *LambdaParticle) Theta() float64 {
	return p.theta
}

// HalfThetaVelocity returns the half-step velocity of theta, in ps^-1.
func (p *LambdaParticle) HalfThetaVelocity() float64 {
	return p.halfThetaVelocity
}

// SetHalfThetaVelocity sets the half-step velocity of theta. It is
// used when restoring the particle from a restart file.
func (p *LambdaParticle) SetHalfThetaVelocity(v float64) {
	p.halfThetaVelocity = v
}

// Propagate advances theta by one time step under the total lambda
// force dUdLambda (in kcal/mol) plus friction and a random force, and
// returns the new lambda.
func (p *LambdaParticle) Propagate(dUdLambda float64) float64 {
	//random force pre-factor (kcal/mol * ps^-2).
	rt2 := 2.0 * ffx.R * p.temperature * p.friction / p.dt
	randomForce := math.Sqrt(rt2) * distuv.UnitNormal.Rand() / randomConvert
	//chain rule from lambda to theta.
	dEdL := -dUdLambda * math.Sin(2.0*p.theta)
	p.halfThetaVelocity = (p.halfThetaVelocity*(2.0*p.mass-p.friction*p.dt) +
		randomConvert2*2.0*p.dt*(dEdL+randomForce)) /
		(2.0*p.mass + p.friction*p.dt)
	p.theta += p.dt * p.halfThetaVelocity

	//keep theta in (-PI,PI].
	if p.theta > math.Pi {
		p.theta -= 2.0 * math.Pi
	} else if p.theta <= -math.Pi {
		p.theta += 2.0 * math.Pi
	}

	sinTheta := math.Sin(p.theta)
	p.lambda = sinTheta * sinTheta
	return p.lambda
}
