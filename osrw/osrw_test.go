package osrw

import (
	"fmt"
	"math"
	"testing"

	ffx "github.com/rcorrigan/forcefieldx"
	"gonum.org/v1/gonum/mat"
)

// softSprings is a toy alchemical potential: harmonic springs whose
// strength is scaled by lambda, E = lambda * k/2 * sum(x^2). All the
// lambda derivatives are analytic, which makes it a convenient probe
// for the engine.
type softSprings struct {
	lambda float64
	k      float64
	x      []float64
}

func newSoftSprings(n int, k float64) *softSprings {
	return &softSprings{k: k, x: make([]float64, n)}
}

func (p *softSprings) sum2() float64 {
	s := 0.0
	for _, v := range p.x {
		s += v * v
	}
	return s
}

func (p *softSprings) Energy(x []float64) (float64, error) {
	copy(p.x, x)
	return p.lambda * 0.5 * p.k * p.sum2(), nil
}

func (p *softSprings) EnergyAndGradient(x, gradient []float64) (float64, error) {
	copy(p.x, x)
	for i := range gradient {
		gradient[i] = p.lambda * p.k * x[i]
	}
	return p.lambda * 0.5 * p.k * p.sum2(), nil
}

func (p *softSprings) NVariables() int { return len(p.x) }

func (p *softSprings) SetLambda(lambda float64) { p.lambda = lambda }

func (p *softSprings) Lambda() float64 { return p.lambda }

func (p *softSprings) DEDL() float64 { return 0.5 * p.k * p.sum2() }

// the energy is linear in lambda.
func (p *softSprings) D2EDL2() (float64, error) { return 0.0, nil }

func (p *softSprings) DEDXDL(gradient []float64) error {
	for i := range gradient {
		gradient[i] = p.k * p.x[i]
	}
	return nil
}

func (p *softSprings) DEDLZeroAtEnds() bool { return false }

// hardSprings hides its second derivatives, to probe the fallback
// paths of the engine.
type hardSprings struct {
	softSprings
}

func (p *hardSprings) D2EDL2() (float64, error) {
	return 0, ffx.UnsupportedError("no second lambda derivatives here")
}

func (p *hardSprings) DEDXDL(gradient []float64) error {
	return ffx.UnsupportedError("no mixed second derivatives here")
}

func engineOptions() *Options {
	o := smallOptions()
	o.CountInterval(1)
	o.TemperOffset(100.0) //keep all deposited weights at exactly 1
	return o
}

func TestEnergyAndGradientUnbiased(Te *testing.T) {
	fmt.Println("Engine energy test, empty histogram!")
	pot := newSoftSprings(3, 1.0)
	e := New(pot, nil, "", "", engineOptions())
	e.PropagateLambda(false)
	e.SetLambda(0.5)
	x := []float64{1.0, 2.0, 3.0}
	grad := make([]float64, 3)
	//with no counts and a zero free-energy profile there is no bias:
	//the engine must return the bare potential.
	got, err := e.EnergyAndGradient(x, grad)
	if err != nil {
		Te.Fatal(err.Error())
	}
	want := 0.5 * 0.5 * 14.0
	if math.Abs(got-want) > 1e-12 {
		Te.Fatalf("expected energy %f, got %f", want, got)
	}
	for i := range grad {
		if math.Abs(grad[i]-0.5*x[i]) > 1e-12 {
			Te.Fatalf("gradient component %d: expected %f, got %f", i, 0.5*x[i], grad[i])
		}
	}
	if math.Abs(e.DEDL()-7.0) > 1e-12 {
		Te.Fatalf("expected dU/dL 7.0, got %f", e.DEDL())
	}
	if e.LastBiasEnergy() != 0.0 {
		Te.Fatalf("expected zero bias energy, got %f", e.LastBiasEnergy())
	}
}

func TestEnergyAndGradientBiased(Te *testing.T) {
	fmt.Println("Engine energy test, biased!")
	pot := newSoftSprings(3, 1.0)
	e := New(pot, nil, "", "", engineOptions())
	e.PropagateLambda(false)
	e.SetLambda(0.5)
	x := []float64{1.0, 2.0, 3.0}
	grad := make([]float64, 3)
	//deposit a count right at the current state, so the 2-D bias is
	//felt at full height.
	e.AddBias(7.0)
	got, err := e.EnergyAndGradient(x, grad)
	if err != nil {
		Te.Fatal(err.Error())
	}
	if e.LastBiasEnergy() == 0.0 {
		Te.Fatalf("expected a nonzero bias energy after a deposit")
	}
	total := e.ForceFieldEnergy() + e.LastBiasEnergy()
	if math.Abs(got-total) > 1e-12 {
		Te.Fatalf("total energy %f does not split into force field %f plus bias %f",
			got, e.ForceFieldEnergy(), e.LastBiasEnergy())
	}
	//the bias shifts the lambda force away from the bare 7.0.
	if e.DEDL() == 7.0 {
		Te.Fatalf("expected the bias to perturb dU/dL")
	}
}

func TestEnergyMatchesEnergyAndGradient(Te *testing.T) {
	fmt.Println("Engine Energy/EnergyAndGradient consistency test!")
	pot := newSoftSprings(3, 2.0)
	e := New(pot, nil, "", "", engineOptions())
	e.PropagateLambda(false)
	e.SetLambda(0.3)
	x := []float64{0.5, -1.0, 2.0}
	grad := make([]float64, 3)
	e.AddBias(e.pot.DEDL())
	want, err := e.EnergyAndGradient(x, grad)
	if err != nil {
		Te.Fatal(err.Error())
	}
	got, err := e.Energy(x)
	if err != nil {
		Te.Fatal(err.Error())
	}
	if math.Abs(got-want) > 1e-12 {
		Te.Fatalf("Energy gave %f, EnergyAndGradient %f", got, want)
	}
}

func TestUnsupportedDerivatives(Te *testing.T) {
	fmt.Println("Engine fallback test, no second derivatives!")
	pot := &hardSprings{*newSoftSprings(3, 1.0)}
	e := New(pot, nil, "", "", engineOptions())
	e.PropagateLambda(false)
	e.SetLambda(0.5)
	e.AddBias(7.0)
	x := []float64{1.0, 2.0, 3.0}
	grad := make([]float64, 3)
	//the engine must treat the missing terms as zero, not fail.
	if _, err := e.EnergyAndGradient(x, grad); err != nil {
		Te.Fatal(err.Error())
	}
	//and its own second derivatives are unsupported as well.
	if _, err := e.D2EDL2(); !ffx.IsUnsupported(err) {
		Te.Fatalf("expected an unsupported-operation error from D2EDL2")
	}
	if err := e.DEDXDL(grad); !ffx.IsUnsupported(err) {
		Te.Fatalf("expected an unsupported-operation error from DEDXDL")
	}
}

func TestPropagationDepositsCounts(Te *testing.T) {
	fmt.Println("Engine propagation test!")
	pot := newSoftSprings(3, 1.0)
	e := New(pot, nil, "", "", engineOptions())
	e.SetLambda(0.5)
	x := []float64{0.1, 0.2, 0.3}
	grad := make([]float64, 3)
	const steps = 20
	for i := 0; i < steps; i++ {
		if _, err := e.EnergyAndGradient(x, grad); err != nil {
			Te.Fatal(err.Error())
		}
	}
	if e.EnergyCount() != steps-1 {
		Te.Fatalf("expected energy count %d, got %d", steps-1, e.EnergyCount())
	}
	//count interval 1: every propagated evaluation deposits one count
	//of weight 1.
	if total := mat.Sum(e.Histogram().Counts()); total != float64(steps) {
		Te.Fatalf("expected %d histogram counts, got %f", steps, total)
	}
	//propagation moved lambda through the particle.
	if e.Lambda() != pot.Lambda() {
		Te.Fatalf("engine and potential disagree on lambda")
	}
	if err := e.Destroy(); err != nil {
		Te.Fatal(err.Error())
	}
}

func TestNilPotentialPanics(Te *testing.T) {
	fmt.Println("Engine nil potential test!")
	defer func() {
		if recover() == nil {
			Te.Fatalf("expected a panic on a nil potential")
		}
	}()
	New(nil, nil, "", "")
}
