/*
 * units.go, part of goFFX.
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

// Physical constants, in the internal units of the library
// (kcal/mol, Angstrom, Kelvin).
const (
	//R is the gas constant in kcal/(mol*K).
	R = 1.9872066e-3

	//KCalToKJ converts kcal to kJ.
	KCalToKJ = 4.184
)
