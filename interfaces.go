/*
 * interfaces.go, part of goFFX.
 *
 *
 * Copyright 2024 Rhea Corrigan <rcorriganatgmaildotcom>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

package ffx

// Potential is the basic contract for an energy function over Cartesian
// coordinates. Implementations are free to keep whatever internal state
// they need between calls.
type Potential interface {

	//Energy returns the potential energy, in kcal/mol, at the
	//coordinates x (a flat slice, 3 values per particle).
	Energy(x []float64) (float64, error)

	//EnergyAndGradient returns the energy and fills gradient with the
	//Cartesian derivatives of the energy at x. gradient must have
	//the same length as x.
	EnergyAndGradient(x, gradient []float64) (float64, error)

	//NVariables returns the number of degrees of freedom, i.e. the
	//expected length of the coordinate slices.
	NVariables() int
}

// LambdaPotential is a Potential coupled to an alchemical state
// variable lambda in [0,1]. The osrw engine drives the simulation
// through this interface.
type LambdaPotential interface {
	Potential

	//SetLambda sets the current alchemical state. Implementations
	//should accept any value in [0,1].
	SetLambda(lambda float64)

	//Lambda returns the current alchemical state.
	Lambda() float64

	//DEDL returns the first derivative of the energy with respect to
	//lambda at the coordinates of the last energy evaluation.
	DEDL() float64

	//D2EDL2 returns the second lambda derivative. Implementations
	//that do not provide it return an UnsupportedError, in which case
	//the caller should treat the term as zero.
	D2EDL2() (float64, error)

	//DEDXDL fills gradient with the mixed lambda/Cartesian second
	//derivatives at the coordinates of the last energy evaluation.
	//Implementations that do not provide it return an
	//UnsupportedError.
	DEDXDL(gradient []float64) error

	//DEDLZeroAtEnds reports whether dE/dL vanishes at lambda=0 and
	//lambda=1. Thermodynamic integration uses this to decide whether
	//the end-point derivatives need to be extrapolated.
	DEDLZeroAtEnds() bool
}

//Errors

// Error is the interface for errors that all packages in this library implement. The Decorate method allows to add and retrieve info from the
// error, without changing it's type or wrapping it around something else.
type Error interface {
	Error() string
	Decorate(string) []string //Decorate allows adding information when passing the error up the call stack. Each call also returns the current "decoration" slice of strings. If passed an empty string, it should just return the current value, not add the empty string to the slice.
	//The decorate slice should contain a list of functions in the calling stack, plus, for each function, any relevant information, or nothing.
	//If information is to be added to an element of the slice, it should be in this format: "FunctionName: Extra info"
}
