/*
 * restart.go, part of goFFX
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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/mat"
)

//The restart files are plain text. Names ending in .gz or .zst are
//compressed transparently.

// WriteHistogram writes the histogram restart data to w: a fixed-order
// header of keyword lines followed by one line of counts per lambda
// bin.
func (e *TransitionTemperedOSRW) WriteHistogram(w io.Writer) error {
	h := e.hist
	h.mu.Lock()
	defer h.mu.Unlock()
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Temperature     %15.3f\n", h.temperature)
	fmt.Fprintf(bw, "Lambda-Mass     %15.8e\n", e.particle.mass)
	fmt.Fprintf(bw, "Lambda-Friction %15.8e\n", e.particle.friction)
	fmt.Fprintf(bw, "Bias-Mag        %15.8e\n", h.biasMag)
	fmt.Fprintf(bw, "Bias-Cutoff     %15d\n", h.biasCutoff)
	fmt.Fprintf(bw, "Count-Interval  %15d\n", e.countInterval)
	fmt.Fprintf(bw, "Lambda-Bins     %15d\n", h.lambdaBins)
	fmt.Fprintf(bw, "FLambda-Bins    %15d\n", h.flBins)
	fmt.Fprintf(bw, "Flambda-Min     %15.8e\n", h.minFLambda)
	fmt.Fprintf(bw, "Flambda-Width   %15.8e\n", h.dFL)
	flag := 0
	if h.tempering {
		flag = 1
	}
	fmt.Fprintf(bw, "Tempering       %15d\n", flag)
	for i := 0; i < h.lambdaBins; i++ {
		fmt.Fprintf(bw, "%g", h.counts.At(i, 0))
		for j := 1; j < h.flBins; j++ {
			fmt.Fprintf(bw, " %g", h.counts.At(i, j))
		}
		fmt.Fprintln(bw)
	}
	if err := bw.Flush(); err != nil {
		return Error{"restart: " + err.Error(), []string{"WriteHistogram"}, true}
	}
	return nil
}

// SaveHistogram writes the histogram restart data to the named file.
func (e *TransitionTemperedOSRW) SaveHistogram(name string) error {
	w, closer, err := openRestartWriter(name)
	if err != nil {
		return errDecorate(err, "SaveHistogram")
	}
	if err := e.WriteHistogram(w); err != nil {
		closer()
		return errDecorate(err, "SaveHistogram")
	}
	if err := closer(); err != nil {
		return Error{"restart: " + err.Error(), []string{"SaveHistogram"}, true}
	}
	return nil
}

// ReadHistogram replaces the histogram state of the engine with the
// one read from r. The histogram geometry, the counts, the tempering
// flag, and the bias and lambda-particle parameters all come from the
// file.
func (e *TransitionTemperedOSRW) ReadHistogram(r io.Reader) error {
	br := bufio.NewReader(r)

	temperature, err := readFloatLine(br, "Temperature")
	if err != nil {
		return errDecorate(err, "ReadHistogram")
	}
	mass, err := readFloatLine(br, "Lambda-Mass")
	if err != nil {
		return errDecorate(err, "ReadHistogram")
	}
	friction, err := readFloatLine(br, "Lambda-Friction")
	if err != nil {
		return errDecorate(err, "ReadHistogram")
	}
	biasMag, err := readFloatLine(br, "Bias-Mag")
	if err != nil {
		return errDecorate(err, "ReadHistogram")
	}
	biasCutoff, err := readIntLine(br, "Bias-Cutoff")
	if err != nil {
		return errDecorate(err, "ReadHistogram")
	}
	countInterval, err := readIntLine(br, "Count-Interval")
	if err != nil {
		return errDecorate(err, "ReadHistogram")
	}
	lambdaBins, err := readIntLine(br, "Lambda-Bins")
	if err != nil {
		return errDecorate(err, "ReadHistogram")
	}
	flBins, err := readIntLine(br, "FLambda-Bins")
	if err != nil {
		return errDecorate(err, "ReadHistogram")
	}
	minFLambda, err := readFloatLine(br, "Flambda-Min")
	if err != nil {
		return errDecorate(err, "ReadHistogram")
	}
	dFL, err := readFloatLine(br, "Flambda-Width")
	if err != nil {
		return errDecorate(err, "ReadHistogram")
	}
	temperFlag, err := readIntLine(br, "Tempering")
	if err != nil {
		return errDecorate(err, "ReadHistogram")
	}
	if lambdaBins < 2 || flBins < 1 {
		return Error{"restart: nonsensical bin counts in histogram file", []string{"ReadHistogram"}, true}
	}

	counts := mat.NewDense(lambdaBins, flBins, nil)
	for i := 0; i < lambdaBins; i++ {
		line, rerr := br.ReadString('\n')
		if rerr != nil && line == "" {
			return Error{"restart: truncated histogram file", []string{"ReadHistogram"}, true}
		}
		fields := strings.Fields(line)
		if len(fields) < flBins {
			return Error{fmt.Sprintf("restart: row %d has %d counts, want %d", i, len(fields), flBins), []string{"ReadHistogram"}, true}
		}
		for j := 0; j < flBins; j++ {
			v, perr := strconv.ParseFloat(fields[j], 64)
			if perr != nil {
				return Error{"restart: " + perr.Error(), []string{"ReadHistogram"}, true}
			}
			counts.Set(i, j, v)
		}
	}

	e.hist.restore(temperature, biasMag, biasCutoff, lambdaBins, flBins, minFLambda, dFL, temperFlag != 0, counts)
	e.particle.mass = mass
	e.particle.friction = friction
	e.particle.temperature = temperature
	e.countInterval = countInterval
	return nil
}

// LoadHistogram reads the histogram restart data from the named file.
func (e *TransitionTemperedOSRW) LoadHistogram(name string) error {
	r, closer, err := openRestartReader(name)
	if err != nil {
		return errDecorate(err, "LoadHistogram")
	}
	defer closer()
	return e.ReadHistogram(r)
}

// restore swaps in a histogram state read from a restart file.
func (h *Histogram) restore(temperature, biasMag float64, biasCutoff, lambdaBins, flBins int, minFLambda, dFL float64, tempering bool, counts *mat.Dense) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.temperature = temperature
	h.biasMag = biasMag
	h.biasCutoff = clampBiasCutoff(biasCutoff, lambdaBins)
	h.lambdaBins = lambdaBins
	h.dL = 1.0 / float64(lambdaBins-1)
	h.dL2 = h.dL / 2.0
	h.minLambda = -h.dL2
	h.flBins = flBins
	h.dFL = dFL
	h.dFL2 = dFL / 2.0
	h.minFLambda = minFLambda
	h.maxFLambda = minFLambda + float64(flBins)*dFL
	h.tempering = tempering
	h.counts = counts
	h.offset = make([]float64, lambdaBins)
	h.flambda = make([]float64, lambdaBins)
}

// WriteLambda writes the lambda restart data of this walker to w.
func (e *TransitionTemperedOSRW) WriteLambda(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Lambda          %15.8f\n", e.lambda)
	fmt.Fprintf(bw, "Lambda-Velocity %15.8e\n", e.particle.HalfThetaVelocity())
	fmt.Fprintf(bw, "Steps-Taken     %15d\n", e.energyCount)
	if err := bw.Flush(); err != nil {
		return Error{"restart: " + err.Error(), []string{"WriteLambda"}, true}
	}
	return nil
}

// SaveLambda writes the lambda restart data to the named file.
func (e *TransitionTemperedOSRW) SaveLambda(name string) error {
	w, closer, err := openRestartWriter(name)
	if err != nil {
		return errDecorate(err, "SaveLambda")
	}
	if err := e.WriteLambda(w); err != nil {
		closer()
		return errDecorate(err, "SaveLambda")
	}
	if err := closer(); err != nil {
		return Error{"restart: " + err.Error(), []string{"SaveLambda"}, true}
	}
	return nil
}

// ReadLambda restores lambda and the particle velocity from r. With
// resetEnergyCount false, the step counter is restored as well, so
// checkpoint cadence continues where it left off.
func (e *TransitionTemperedOSRW) ReadLambda(r io.Reader, resetEnergyCount bool) error {
	br := bufio.NewReader(r)
	lambda, err := readFloatLine(br, "Lambda")
	if err != nil {
		return errDecorate(err, "ReadLambda")
	}
	velocity, err := readFloatLine(br, "Lambda-Velocity")
	if err != nil {
		return errDecorate(err, "ReadLambda")
	}
	e.SetLambda(lambda)
	e.particle.SetHalfThetaVelocity(velocity)
	if !resetEnergyCount {
		steps, serr := readIntLine(br, "Steps-Taken")
		if serr != nil {
			return errDecorate(serr, "ReadLambda")
		}
		e.energyCount = steps
	}
	return nil
}

// LoadLambda reads the lambda restart data from the named file.
func (e *TransitionTemperedOSRW) LoadLambda(name string, resetEnergyCount bool) error {
	r, closer, err := openRestartReader(name)
	if err != nil {
		return errDecorate(err, "LoadLambda")
	}
	defer closer()
	return e.ReadLambda(r, resetEnergyCount)
}

func readKeyLine(br *bufio.Reader, key string) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		return "", Error{"restart: missing " + key + " line", []string{"readKeyLine"}, true}
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", Error{"restart: malformed " + key + " line", []string{"readKeyLine"}, true}
	}
	if fields[0] != key {
		return "", Error{fmt.Sprintf("restart: expected keyword %s, got %s", key, fields[0]), []string{"readKeyLine"}, true}
	}
	return fields[1], nil
}

func readFloatLine(br *bufio.Reader, key string) (float64, error) {
	s, err := readKeyLine(br, key)
	if err != nil {
		return 0, err
	}
	v, perr := strconv.ParseFloat(s, 64)
	if perr != nil {
		return 0, Error{"restart: " + perr.Error(), []string{"readFloatLine"}, true}
	}
	return v, nil
}

func readIntLine(br *bufio.Reader, key string) (int, error) {
	s, err := readKeyLine(br, key)
	if err != nil {
		return 0, err
	}
	v, perr := strconv.Atoi(s)
	if perr != nil {
		return 0, Error{"restart: " + perr.Error(), []string{"readIntLine"}, true}
	}
	return v, nil
}

func openRestartWriter(name string) (io.Writer, func() error, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, nil, Error{"restart: " + err.Error(), []string{"openRestartWriter"}, true}
	}
	switch {
	case strings.HasSuffix(name, ".gz"):
		zw := gzip.NewWriter(f)
		return zw, func() error {
			if err := zw.Close(); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		}, nil
	case strings.HasSuffix(name, ".zst"):
		zw, zerr := zstd.NewWriter(f)
		if zerr != nil {
			f.Close()
			return nil, nil, Error{"restart: " + zerr.Error(), []string{"openRestartWriter"}, true}
		}
		return zw, func() error {
			if err := zw.Close(); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		}, nil
	default:
		return f, f.Close, nil
	}
}

func openRestartReader(name string) (io.Reader, func() error, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, Error{"restart: " + err.Error(), []string{"openRestartReader"}, true}
	}
	switch {
	case strings.HasSuffix(name, ".gz"):
		zr, zerr := gzip.NewReader(f)
		if zerr != nil {
			f.Close()
			return nil, nil, Error{"restart: " + zerr.Error(), []string{"openRestartReader"}, true}
		}
		return zr, func() error {
			zr.Close()
			return f.Close()
		}, nil
	case strings.HasSuffix(name, ".zst"):
		zr, zerr := zstd.NewReader(f)
		if zerr != nil {
			f.Close()
			return nil, nil, Error{"restart: " + zerr.Error(), []string{"openRestartReader"}, true}
		}
		return zr.IOReadCloser(), func() error {
			zr.Close()
			return f.Close()
		}, nil
	default:
		return f, f.Close, nil
	}
}
