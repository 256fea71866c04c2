/*
 * doc.go, part of goFFX.
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

/*Package ffx is a library for alchemical free-energy simulation in Go.
The root package holds the contracts shared by the rest of the library:
the lambda-coupled potential interface that the biasing engines consume,
the error conventions every subpackage follows, and a few physical
constants.

The interesting machinery lives in the subpackages: osrw implements the
transition-tempered orthogonal space random walk bias, and gaussvol
computes molecular volumes and volume-based energies from Gaussian
overlaps, with analytic derivatives.

Energies are in kcal/mol, distances in Angstrom and temperatures in
Kelvin throughout the library.*/
package ffx
