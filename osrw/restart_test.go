package osrw

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestHistogramRestartRoundTrip(Te *testing.T) {
	fmt.Println("Histogram restart round-trip test!")
	for _, name := range []string{"hist.his", "hist.his.gz", "hist.his.zst"} {
		full := filepath.Join(Te.TempDir(), name)
		pot := newSoftSprings(3, 1.0)
		e1 := New(pot, nil, "", "", engineOptions())
		h1 := e1.Histogram()
		h1.AddWeight(0.5, 0.0, 1.0)
		h1.AddWeight(0.25, 7.0, 0.5)
		h1.AddWeight(1.0, -300.0, 1.0)
		h1.SetTempering(false)
		if err := e1.SaveHistogram(full); err != nil {
			Te.Fatal(err.Error())
		}

		e2 := New(newSoftSprings(3, 1.0), nil, "", "")
		if err := e2.LoadHistogram(full); err != nil {
			Te.Fatal(err.Error())
		}
		h2 := e2.Histogram()
		if h2.LambdaBins() != h1.LambdaBins() || h2.FLambdaBins() != h1.FLambdaBins() {
			Te.Fatalf("%s: geometry not restored: %dx%d vs %dx%d", name,
				h2.LambdaBins(), h2.FLambdaBins(), h1.LambdaBins(), h1.FLambdaBins())
		}
		if h2.MinFLambda() != h1.MinFLambda() {
			Te.Fatalf("%s: lower edge not restored: %g vs %g", name, h2.MinFLambda(), h1.MinFLambda())
		}
		if h2.Tempering() {
			Te.Fatalf("%s: tempering flag not restored", name)
		}
		if !mat.Equal(h1.Counts(), h2.Counts()) {
			Te.Fatalf("%s: counts not restored", name)
		}
	}
}

func TestLambdaRestartRoundTrip(Te *testing.T) {
	fmt.Println("Lambda restart round-trip test!")
	full := filepath.Join(Te.TempDir(), "walker.lam")
	pot := newSoftSprings(3, 1.0)
	e1 := New(pot, nil, "", "", engineOptions())
	e1.SetLambda(0.37)
	e1.Particle().SetHalfThetaVelocity(3.25e-4)
	e1.energyCount = 123
	if err := e1.SaveLambda(full); err != nil {
		Te.Fatal(err.Error())
	}

	e2 := New(newSoftSprings(3, 1.0), nil, "", "", engineOptions())
	if err := e2.LoadLambda(full, false); err != nil {
		Te.Fatal(err.Error())
	}
	if math.Abs(e2.Lambda()-0.37) > 1e-8 {
		Te.Fatalf("lambda not restored: %g", e2.Lambda())
	}
	if math.Abs(e2.Particle().HalfThetaVelocity()-3.25e-4) > 1e-11 {
		Te.Fatalf("velocity not restored: %g", e2.Particle().HalfThetaVelocity())
	}
	if e2.energyCount != 123 {
		Te.Fatalf("step counter not restored: %d", e2.energyCount)
	}

	//with resetEnergyCount the counter starts over.
	e3 := New(newSoftSprings(3, 1.0), nil, "", "", engineOptions())
	if err := e3.LoadLambda(full, true); err != nil {
		Te.Fatal(err.Error())
	}
	if e3.energyCount != -1 {
		Te.Fatalf("step counter should not have been restored, got %d", e3.energyCount)
	}
}

func TestRestartThroughNew(Te *testing.T) {
	fmt.Println("Restart continuation test!")
	dir := Te.TempDir()
	his := filepath.Join(dir, "run.his")
	lam := filepath.Join(dir, "run.lam")
	e1 := New(newSoftSprings(3, 1.0), nil, "", "", engineOptions())
	e1.Histogram().AddWeight(0.5, 0.0, 1.0)
	e1.SetLambda(0.62)
	if err := e1.SaveHistogram(his); err != nil {
		Te.Fatal(err.Error())
	}
	if err := e1.SaveLambda(lam); err != nil {
		Te.Fatal(err.Error())
	}
	//a new engine pointed at the same files picks up where e1 left off.
	e2 := New(newSoftSprings(3, 1.0), nil, his, lam, engineOptions())
	if total := mat.Sum(e2.Histogram().Counts()); total != 1.0 {
		Te.Fatalf("expected the saved count in the restored histogram, got %f", total)
	}
	if math.Abs(e2.Lambda()-0.62) > 1e-8 {
		Te.Fatalf("lambda not continued: %g", e2.Lambda())
	}
}

func TestMalformedRestart(Te *testing.T) {
	fmt.Println("Malformed restart file test!")
	full := filepath.Join(Te.TempDir(), "garbage.his")
	if err := os.WriteFile(full, []byte("not a restart file\nat all\n"), 0644); err != nil {
		Te.Fatal(err.Error())
	}
	e := New(newSoftSprings(3, 1.0), nil, "", "", engineOptions())
	if err := e.LoadHistogram(full); err == nil {
		Te.Fatalf("expected an error on a malformed histogram file")
	}
	//the engine must stay usable.
	e.PropagateLambda(false)
	if _, err := e.Energy([]float64{0, 0, 0}); err != nil {
		Te.Fatal(err.Error())
	}
}
