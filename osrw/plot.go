/*
 * plot.go, part of goFFX
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
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotFLambda writes a plot of the current free-energy profile, the
// ensemble average of dU/dL against lambda, to the named file. The
// format follows the file extension (png, pdf, svg...).
func (h *Histogram) PlotFLambda(name string) error {
	flambda := h.FLambda()
	dL := h.LambdaBinWidth()

	pts := make(plotter.XYs, len(flambda))
	for i := range flambda {
		pts[i].X = float64(i) * dL
		pts[i].Y = flambda[i]
	}

	p := plot.New()
	p.Title.Text = "TT-OSRW"
	p.Title.Padding = 3 * vg.Millimeter
	p.X.Label.Text = "lambda"
	p.Y.Label.Text = "<dU/dL> (kcal/mol)"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return Error{"plot: " + err.Error(), []string{"PlotFLambda"}, false}
	}
	p.Add(line)

	if err := p.Save(15*vg.Centimeter, 10*vg.Centimeter, name); err != nil {
		return Error{"plot: " + err.Error(), []string{"PlotFLambda"}, false}
	}
	return nil
}
