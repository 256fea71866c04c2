package osrw

import (
	"fmt"
	"sync"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestSynchronousWalkers(Te *testing.T) {
	fmt.Println("Synchronous multi-walker test!")
	const n = 3
	mesh := NewChannelMesh(n)
	hists := make([]*Histogram, n)
	syncs := make([]*WalkerSynchronizer, n)
	for i := 0; i < n; i++ {
		hists[i] = NewHistogram(smallOptions())
		syncs[i] = NewWalkerSynchronizer(mesh[i], hists[i], smallOptions())
	}
	lambdas := []float64{0.0, 0.5, 1.0}
	var wg sync.WaitGroup
	for round := 0; round < 2; round++ {
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				syncs[i].Count(lambdas[i], 0.0)
			}(i)
		}
		wg.Wait()
	}
	//every walker folded the same batch in the same rank order, so all
	//histograms must be identical, with one count per walker per round.
	total := mat.Sum(hists[0].Counts())
	if total != float64(2*n) {
		Te.Fatalf("expected %d counts, got %f", 2*n, total)
	}
	for i := 1; i < n; i++ {
		if !mat.Equal(hists[0].Counts(), hists[i].Counts()) {
			Te.Fatalf("histograms of walkers 0 and %d diverged", i)
		}
	}
}

func TestAsynchronousWalker(Te *testing.T) {
	fmt.Println("Asynchronous walker test!")
	o := smallOptions()
	o.Asynchronous(true)
	h := NewHistogram(o)
	w := NewWalkerSynchronizer(nil, h, o)
	w.Start()
	for i := 0; i < 5; i++ {
		w.Count(0.5, 0.0)
	}
	//the poison sample queues behind the counts, so once Destroy
	//returns everything has been folded.
	if err := w.Destroy(); err != nil {
		Te.Fatal(err.Error())
	}
	if total := mat.Sum(h.Counts()); total != 5.0 {
		Te.Fatalf("expected 5 counts after shutdown, got %f", total)
	}
	//Destroy must be idempotent.
	if err := w.Destroy(); err != nil {
		Te.Fatal(err.Error())
	}
}

func TestReceivedTemperingLatch(Te *testing.T) {
	fmt.Println("Received tempering weight latch test!")
	o := smallOptions()
	o.Asynchronous(true)
	tr := NewChannelMesh(1)[0]
	h := NewHistogram(o)
	h.SetTempering(false) //as if restored from an untempered restart
	w := NewWalkerSynchronizer(tr, h, o)
	w.Start()
	//a tempered count from another walker must flip the latch back on.
	if err := tr.Send(0, Sample{Lambda: 0.5, DUDL: 0.0, Weight: 0.5}); err != nil {
		Te.Fatal(err.Error())
	}
	if err := w.Destroy(); err != nil {
		Te.Fatal(err.Error())
	}
	if !h.Tempering() {
		Te.Fatalf("tempering latch did not flip on a received weight < 1")
	}
	if total := mat.Sum(h.Counts()); total != 0.5 {
		Te.Fatalf("expected the tempered count folded with weight 0.5, got %f", total)
	}
}

func TestResetStatistics(Te *testing.T) {
	fmt.Println("Histogram reset at the end state test!")
	o := smallOptions()
	o.ResetStatistics(true)
	h := NewHistogram(o)
	w := NewWalkerSynchronizer(nil, h, o)
	for i := 0; i < 10; i++ {
		w.Count(0.25, 0.0)
	}
	//reaching lambda=1 clears the counts piled up on the way there,
	//keeping only the triggering count.
	w.Count(0.995, 0.0)
	if total := mat.Sum(h.Counts()); total != 1.0 {
		Te.Fatalf("expected 1 count after the reset, got %f", total)
	}
	//the reset only fires once.
	w.Count(0.995, 0.0)
	if total := mat.Sum(h.Counts()); total != 2.0 {
		Te.Fatalf("expected 2 counts, got %f", total)
	}
}
