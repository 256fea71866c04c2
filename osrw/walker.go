/*
 * walker.go, part of goFFX
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
	"log"
	"math"
	"sync"
	"time"
)

// Sample is one histogram count from a walker: the lambda and dU/dL at
// which it was taken, and the tempering weight it carries.
type Sample struct {
	Lambda float64
	DUDL   float64
	Weight float64
}

// poisonSample is the shutdown message for receiver goroutines. Three
// NaNs cannot be produced by a real count.
func poisonSample() Sample {
	nan := math.NaN()
	return Sample{nan, nan, nan}
}

func (s Sample) poison() bool {
	return math.IsNaN(s.Lambda) && math.IsNaN(s.DUDL) && math.IsNaN(s.Weight)
}

// Transport moves samples between walkers. Rank 0..Size-1 identifies
// each walker. Implementations must allow a walker to send to itself.
type Transport interface {

	//Rank returns the index of this walker.
	Rank() int

	//Size returns the number of walkers.
	Size() int

	//AllGather exchanges one sample with every walker, blocking until
	//all walkers have contributed, and returns the samples ordered by
	//rank.
	AllGather(s Sample) ([]Sample, error)

	//Send delivers a sample to the inbox of the given rank without
	//waiting for it to be read.
	Send(rank int, s Sample) error

	//Recv blocks until a sample arrives in this walker's inbox. The
	//second return is false if the transport has been torn down.
	Recv() (Sample, bool)
}

// ChannelTransport connects walkers living in the same process through
// buffered channels.
type ChannelTransport struct {
	rank    int
	inboxes []chan Sample
	//gather[receiver][sender], each buffered for one sample, so an
	//all-gather cannot deadlock whatever the order of arrival.
	gather [][]chan Sample
}

// NewChannelMesh returns n connected transports, one per walker.
func NewChannelMesh(n int) []*ChannelTransport {
	if n < 1 {
		panic(ErrMeshSize)
	}
	inboxes := make([]chan Sample, n)
	for i := range inboxes {
		inboxes[i] = make(chan Sample, 64*n)
	}
	gather := make([][]chan Sample, n)
	for i := range gather {
		gather[i] = make([]chan Sample, n)
		for j := range gather[i] {
			gather[i][j] = make(chan Sample, 1)
		}
	}
	ret := make([]*ChannelTransport, n)
	for i := range ret {
		ret[i] = &ChannelTransport{rank: i, inboxes: inboxes, gather: gather}
	}
	return ret
}

func (t *ChannelTransport) Rank() int {
	return t.rank
}

func (t *ChannelTransport) Size() int {
	return len(t.inboxes)
}

func (t *ChannelTransport) AllGather(s Sample) ([]Sample, error) {
	for r := range t.gather {
		t.gather[r][t.rank] <- s
	}
	ret := make([]Sample, len(t.inboxes))
	for i := range ret {
		ret[i] = <-t.gather[t.rank][i]
	}
	return ret, nil
}

func (t *ChannelTransport) Send(rank int, s Sample) error {
	select {
	case t.inboxes[rank] <- s:
		return nil
	default:
		return Error{"walker: inbox of rank full, dropping count", []string{"Send"}, false}
	}
}

func (t *ChannelTransport) Recv() (Sample, bool) {
	s, ok := <-t.inboxes[t.rank]
	return s, ok
}

// WalkerSynchronizer merges the counts of several walkers into one
// shared histogram. In synchronous mode every walker blocks at each
// count until all walkers have contributed, and the batch is folded in
// rank order, so all walkers see identical histograms. In asynchronous
// mode counts are sent to every rank (this one included) without
// waiting, and a receiver goroutine folds them in arrival order.
type WalkerSynchronizer struct {
	t Transport
	h *Histogram

	asynchronous bool

	//when reset is on, the histogram is cleared the first time any
	//walker reports a lambda beyond lambdaResetValue, so the counts
	//accumulated while dragging the system to the end state are
	//discarded.
	reset            bool
	lambdaResetValue float64

	receiving bool
	done      chan struct{}
	destroy   sync.Once
}

// lambdaResetValue is fixed: statistics can only be reset at the
// lambda=1 end state.
const lambdaResetValue = 0.99

// NewWalkerSynchronizer ties a transport to a histogram. If t is nil,
// a single-walker mesh is created.
func NewWalkerSynchronizer(t Transport, h *Histogram, options ...*Options) *WalkerSynchronizer {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	if t == nil {
		t = NewChannelMesh(1)[0]
	}
	w := new(WalkerSynchronizer)
	w.t = t
	w.h = h
	w.asynchronous = o.asynchronous
	w.reset = o.resetStatistics
	w.lambdaResetValue = lambdaResetValue
	w.done = make(chan struct{})
	return w
}

// Rank returns the rank of this walker.
func (w *WalkerSynchronizer) Rank() int {
	return w.t.Rank()
}

// Start launches the receiver goroutine. It is only needed in
// asynchronous mode and does nothing otherwise.
func (w *WalkerSynchronizer) Start() {
	if !w.asynchronous || w.receiving {
		return
	}
	w.receiving = true
	go w.receive()
}

// Count merges one count from this walker into the shared histogram,
// sending it to all other walkers through the transport. The weight
// attached is the current tempering weight of the local histogram.
func (w *WalkerSynchronizer) Count(lambda, dEdU float64) {
	s := Sample{Lambda: lambda, DUDL: dEdU, Weight: w.h.TemperingWeight()}
	if w.asynchronous {
		for i := 0; i < w.t.Size(); i++ {
			if err := w.t.Send(i, s); err != nil {
				log.Printf("goFFX/osrw: asynchronous multi-walker send to rank %d failed: %v", i, err)
			}
		}
		return
	}
	samples, err := w.t.AllGather(s)
	if err != nil {
		log.Printf("goFFX/osrw: multi-walker all-gather failed: %v", err)
		return
	}
	for _, got := range samples {
		w.fold(got)
	}
}

// receive folds in counts sent by other walkers until the transport is
// torn down or a poison sample arrives.
func (w *WalkerSynchronizer) receive() {
	for {
		s, ok := w.t.Recv()
		if !ok || s.poison() {
			close(w.done)
			return
		}
		w.fold(s)
	}
}

// fold merges a single sample under the histogram lock: the dU/dL axis
// is grown if needed, tempering is activated if the sample carries a
// tempered weight, and the pending statistics reset is honored.
func (w *WalkerSynchronizer) fold(s Sample) {
	w.h.mu.Lock()
	defer w.h.mu.Unlock()
	w.h.ensure(s.DUDL)
	if !w.h.tempering && s.Weight < 1.0 {
		w.h.tempering = true
		log.Printf("goFFX/osrw: tempering activated due to received weight of (%8.6f)", s.Weight)
	}
	if w.reset && s.Lambda > w.lambdaResetValue {
		w.h.counts.Zero()
		w.reset = false
		log.Printf("goFFX/osrw: cleared histogram (lambda = %6.4f)", s.Lambda)
	}
	w.h.addWeight(s.Lambda, s.DUDL, s.Weight)
}

// Destroy shuts the receiver goroutine down by sending the poison
// sample to this walker's own inbox. It is safe to call more than
// once, and from any walker state.
func (w *WalkerSynchronizer) Destroy() error {
	var err error
	w.destroy.Do(func() {
		if !w.receiving {
			return
		}
		if serr := w.t.Send(w.t.Rank(), poisonSample()); serr != nil {
			err = errDecorate(serr, "Destroy")
			return
		}
		select {
		case <-w.done:
		case <-time.After(5 * time.Second):
			err = Error{"walker: receiver did not acknowledge termination", []string{"Destroy"}, false}
		}
	})
	return err
}
