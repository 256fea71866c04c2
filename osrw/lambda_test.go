package osrw

import (
	"fmt"
	"math"
	"testing"
)

func TestLambdaThetaMapping(Te *testing.T) {
	fmt.Println("Lambda particle mapping test!")
	p := NewLambdaParticle()
	for _, l := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		p.SetLambda(l)
		if got := p.Lambda(); got != l {
			Te.Fatalf("SetLambda(%f) followed by Lambda() gave %f", l, got)
		}
		//lambda = sin(theta)^2 must hold.
		s := math.Sin(p.Theta())
		if math.Abs(s*s-l) > 1e-12 {
			Te.Fatalf("theta inconsistent with lambda %f: sin^2 = %f", l, s*s)
		}
	}
	p.SetLambda(0.25)
	if math.Abs(p.Theta()-math.Pi/6.0) > 1e-12 {
		Te.Fatalf("expected theta pi/6 for lambda 0.25, got %f", p.Theta())
	}
}

func TestLambdaPropagation(Te *testing.T) {
	fmt.Println("Lambda particle propagation test!")
	p := NewLambdaParticle()
	p.SetLambda(0.5)
	//whatever the force, lambda must stay in [0,1] and theta in
	//(-pi,pi].
	for i := 0; i < 5000; i++ {
		force := 50.0
		if i%2 == 1 {
			force = -50.0
		}
		l := p.Propagate(force)
		if l < 0.0 || l > 1.0 {
			Te.Fatalf("lambda escaped [0,1]: %f at step %d", l, i)
		}
		if p.Theta() > math.Pi || p.Theta() <= -math.Pi {
			Te.Fatalf("theta escaped (-pi,pi]: %f at step %d", p.Theta(), i)
		}
	}
	s := math.Sin(p.Theta())
	if p.Lambda() != s*s {
		Te.Fatalf("lambda and theta out of sync after propagation")
	}
}

func TestHalfThetaVelocityRestore(Te *testing.T) {
	fmt.Println("Lambda particle velocity restore test!")
	p := NewLambdaParticle()
	p.SetHalfThetaVelocity(3.25e-4)
	if p.HalfThetaVelocity() != 3.25e-4 {
		Te.Fatalf("velocity not restored")
	}
}
