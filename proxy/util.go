package proxy

import (
	"container/heap"
	"sync"
)

// WaitGroupWrapper runs a function in its own goroutine under a shared
// sync.WaitGroup, so a caller can fan out several loops and Wait for all of
// them to return without hand-rolling the Add/go/Done boilerplate at every
// call site.
type WaitGroupWrapper struct {
	sync.WaitGroup
}

func (w *WaitGroupWrapper) Wrap(fn func()) {
	w.Add(1)
	go func() {
		defer w.Done()
		fn()
	}()
}

// PipelineResponseHeap reorders PipelineResponses that arrive out of
// request order (different backends, different latencies) back into
// ascending request-sequence order, spec invariant S1: the client's
// pending-reply FIFO is honored strictly in arrival order regardless of
// which backend answered first.
type PipelineResponseHeap []*PipelineResponse

func (h PipelineResponseHeap) Len() int { return len(h) }

func (h PipelineResponseHeap) Less(i, j int) bool {
	return h[i].req.seq < h[j].req.seq
}

func (h PipelineResponseHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *PipelineResponseHeap) Push(x interface{}) {
	*h = append(*h, x.(*PipelineResponse))
}

func (h *PipelineResponseHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Top returns the lowest-sequence response without popping it, or nil if
// the heap is empty.
func (h *PipelineResponseHeap) Top() *PipelineResponse {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

var _ heap.Interface = (*PipelineResponseHeap)(nil)
