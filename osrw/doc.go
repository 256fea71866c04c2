/*
 * doc.go, part of goFFX
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

/*Package osrw implements the transition-tempered orthogonal space random
walk (TT-OSRW) for alchemical free-energy estimation.

The method samples a 2-D histogram over the alchemical variable lambda
and the partial derivative dU/dL of the potential with respect to it.
Each histogram count deposits a 2-D Gaussian repulsive bias, so the
simulation is progressively pushed out of free-energy minima and lambda
performs a random walk between the two end states. Once the walk has
crossed between the end states, tempering reduces the rate at which new
bias is added, and the estimate converges.

The free energy difference is obtained by thermodynamic integration of
the ensemble average of dU/dL over lambda, updated on the fly from the
histogram.

Lambda itself is treated as a dynamic variable: it is mapped to
lambda = sin(theta)^2 and theta is propagated with Langevin dynamics
between energy evaluations.

Several concurrent walkers can share one histogram. Counts travel
through the Transport interface, either synchronously (all walkers
exchange counts at every count interval) or asynchronously (counts are
sent fire-and-forget and folded in by a receiver goroutine).*/
package osrw
