/*
 * errors.go, part of goFFX.
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

// UnsupportedError reports that a LambdaPotential does not implement
// one of the optional higher derivatives. It is not a failure: callers
// are expected to test for it and fall back to a zero term.
type UnsupportedError string

func (e UnsupportedError) Error() string {
	return string(e)
}

func (e UnsupportedError) Decorate(deco string) []string {
	if deco == "" {
		return nil
	}
	return []string{deco}
}

// IsUnsupported returns whether err marks an optional capability that
// the potential at hand simply lacks.
func IsUnsupported(err error) bool {
	_, ok := err.(UnsupportedError)
	return ok
}

// PanicMsg is the type used for the text of panics raised by the
// library on programming errors (as opposed to conditions of the
// system studied, which are reported as regular errors).
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }
