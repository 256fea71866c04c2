package osrw

import (
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// a small 5x5 histogram: lambda bins at 0, 0.25, 0.5, 0.75, 1 and
// dU/dL bins covering [-5,5) in steps of 2.
func smallOptions() *Options {
	o := DefaultOptions()
	o.LambdaBinWidth(0.25)
	o.FLambdaBinWidth(2.0)
	o.FLambdaBins(5)
	return o
}

func TestHistogramGeometry(Te *testing.T) {
	fmt.Println("Histogram geometry test!")
	h := NewHistogram(smallOptions())
	if h.LambdaBins() != 5 {
		Te.Fatalf("expected 5 lambda bins, got %d", h.LambdaBins())
	}
	if h.FLambdaBins() != 5 {
		Te.Fatalf("expected 5 dU/dL bins, got %d", h.FLambdaBins())
	}
	if h.MinFLambda() != -5.0 {
		Te.Fatalf("expected minFLambda -5.0, got %f", h.MinFLambda())
	}
	//lambda=0.5 is the center of bin 2, dU/dL=0 the center of bin 2.
	if b := h.BinForLambda(0.5); b != 2 {
		Te.Fatalf("expected lambda bin 2, got %d", b)
	}
	if b := h.BinForFLambda(0.0); b != 2 {
		Te.Fatalf("expected dU/dL bin 2, got %d", b)
	}
	//out of range lambdas clamp to the end bins.
	if b := h.BinForLambda(-0.3); b != 0 {
		Te.Fatalf("expected clamped lambda bin 0, got %d", b)
	}
	if b := h.BinForLambda(1.3); b != 4 {
		Te.Fatalf("expected clamped lambda bin 4, got %d", b)
	}
	h.AddWeight(0.5, 0.0, 1.0)
	if v := h.Counts().At(2, 2); v != 1.0 {
		Te.Fatalf("expected count 1.0 at (2,2), got %f", v)
	}
}

func TestHistogramGrowUp(Te *testing.T) {
	fmt.Println("Histogram growth (upper edge) test!")
	h := NewHistogram(smallOptions())
	h.AddWeight(0.5, 0.0, 1.0)
	//6.0 is above the upper edge (5.0), the axis must grow by 100
	//bins without touching existing counts.
	h.AddWeight(0.5, 6.0, 1.0)
	if h.FLambdaBins() != 105 {
		Te.Fatalf("expected 105 bins after growth, got %d", h.FLambdaBins())
	}
	if h.MinFLambda() != -5.0 {
		Te.Fatalf("growing up must not move the lower edge, got %f", h.MinFLambda())
	}
	c := h.Counts()
	if c.At(2, 2) != 1.0 {
		Te.Fatalf("count at (2,2) was not preserved")
	}
	if c.At(2, h.BinForFLambda(6.0)) != 1.0 {
		Te.Fatalf("new count not in the bin for 6.0")
	}
}

func TestHistogramGrowDown(Te *testing.T) {
	fmt.Println("Histogram growth (lower edge) test!")
	h := NewHistogram(smallOptions())
	h.AddWeight(0.5, 0.0, 1.0)
	h.AddWeight(0.25, -300.0, 1.0)
	//-300 needs 200 extra bins below: counts shift up by the offset.
	if h.FLambdaBins() != 205 {
		Te.Fatalf("expected 205 bins after growth, got %d", h.FLambdaBins())
	}
	if h.MinFLambda() != -405.0 {
		Te.Fatalf("expected lower edge -405, got %f", h.MinFLambda())
	}
	c := h.Counts()
	if c.At(2, h.BinForFLambda(0.0)) != 1.0 {
		Te.Fatalf("old count did not follow the shift of the lower edge")
	}
	if c.At(1, h.BinForFLambda(-300.0)) != 1.0 {
		Te.Fatalf("new count not in the bin for -300")
	}
}

func TestHistogramOrderIndependence(Te *testing.T) {
	fmt.Println("Histogram merge-order independence test!")
	type sample struct{ l, f, w float64 }
	samples := []sample{
		{0.1, 3.0, 1.0},
		{0.9, -250.0, 1.0},
		{0.5, 12.0, 0.5},
		{0.0, 0.0, 1.0},
		{1.0, -3.0, 0.25},
	}
	a := NewHistogram(smallOptions())
	b := NewHistogram(smallOptions())
	for _, s := range samples {
		a.AddWeight(s.l, s.f, s.w)
	}
	for i := len(samples) - 1; i >= 0; i-- {
		b.AddWeight(samples[i].l, samples[i].f, samples[i].w)
	}
	if a.MinFLambda() != b.MinFLambda() || a.FLambdaBins() != b.FLambdaBins() {
		Te.Fatalf("geometries diverged: (%f,%d) vs (%f,%d)",
			a.MinFLambda(), a.FLambdaBins(), b.MinFLambda(), b.FLambdaBins())
	}
	if !mat.Equal(a.Counts(), b.Counts()) {
		Te.Fatalf("counts depend on the merge order")
	}
	//the accumulated weight is the sum of the sample weights.
	if w := a.TotalWeight(); w != 3.75 {
		Te.Fatalf("expected total weight 3.75, got %f", w)
	}
}

func TestBiasCutoffClamp(Te *testing.T) {
	fmt.Println("Wide bias cutoff test!")
	//a cutoff wider than the lambda axis would fold past the mirror
	//images of the end bins; it is cut down to lambdaBins-1, which
	//already reaches every bin.
	wide := smallOptions()
	wide.BiasCutoff(50)
	a := NewHistogram(wide)
	exact := smallOptions()
	exact.BiasCutoff(4)
	b := NewHistogram(exact)
	for _, h := range []*Histogram{a, b} {
		h.AddWeight(0.0, 0.0, 1.0)
		h.AddWeight(1.0, -3.0, 1.0)
	}
	c := a.BinForFLambda(0.0)
	for iL := 0; iL < a.LambdaBins(); iL++ {
		if ka, kb := a.EvaluateKernel(iL, c), b.EvaluateKernel(iL, c); ka != kb {
			Te.Fatalf("bin %d: wide cutoff changed the kernel: %g vs %g", iL, ka, kb)
		}
	}
	ba, _, _ := a.BiasEnergy(1.0, 0.0)
	bb, _, _ := b.BiasEnergy(1.0, 0.0)
	if ba != bb || math.IsNaN(ba) {
		Te.Fatalf("wide cutoff changed the bias: %g vs %g", ba, bb)
	}
}

func TestMirrorFactor(Te *testing.T) {
	fmt.Println("Lambda end-bin mirror test!")
	//one count at the lambda=0 end bin: the end bin is half width, so
	//its count weighs double, and no mirror image of it reaches back.
	biasMag := DefaultOptions().BiasMag()
	edge := NewHistogram(smallOptions())
	edge.AddWeight(0.0, 0.0, 1.0)
	c := edge.BinForFLambda(0.0)
	if got, want := edge.EvaluateKernel(0, c), 2.0*biasMag; math.Abs(got-want) > 1e-14 {
		Te.Fatalf("end bin: expected kernel %g, got %g", want, got)
	}
	//an interior count weighs once, plus its two mirror images at a
	//lambda distance of 1.0 (exp(-2) each with these bin widths).
	inner := NewHistogram(smallOptions())
	inner.AddWeight(0.5, 0.0, 1.0)
	want := biasMag * (1.0 + 2.0*math.Exp(-2.0))
	if got := inner.EvaluateKernel(2, c); math.Abs(got-want) > 1e-14 {
		Te.Fatalf("interior bin: expected kernel %g, got %g", want, got)
	}
	//the bias and its derivatives are finite and symmetric about the
	//end state.
	bPlus, _, _ := edge.BiasEnergy(0.05, 0.0)
	bMinus, _, _ := edge.BiasEnergy(-0.05, 0.0)
	if diff := bPlus - bMinus; diff > 1e-12 || diff < -1e-12 {
		Te.Fatalf("bias not symmetric about lambda=0: %g vs %g", bPlus, bMinus)
	}
}

func TestBiasEnergyGradientConsistency(Te *testing.T) {
	fmt.Println("2-D bias finite-difference test!")
	h := NewHistogram(smallOptions())
	h.AddWeight(0.5, 0.0, 1.0)
	h.AddWeight(0.25, 2.0, 0.7)
	lambda, dudl := 0.4, 1.0
	_, dGdL, dGdFL := h.BiasEnergy(lambda, dudl)
	const hh = 1e-6
	ep, _, _ := h.BiasEnergy(lambda+hh, dudl)
	em, _, _ := h.BiasEnergy(lambda-hh, dudl)
	fd := (ep - em) / (2 * hh)
	if d := fd - dGdL; d > 1e-6 || d < -1e-6 {
		Te.Fatalf("dG/dL mismatch: analytic %g, finite difference %g", dGdL, fd)
	}
	ep, _, _ = h.BiasEnergy(lambda, dudl+hh)
	em, _, _ = h.BiasEnergy(lambda, dudl-hh)
	fd = (ep - em) / (2 * hh)
	if d := fd - dGdFL; d > 1e-6 || d < -1e-6 {
		Te.Fatalf("dG/dFL mismatch: analytic %g, finite difference %g", dGdFL, fd)
	}
}
