package harness

import (
	"slices"
	"sync"

	"github.com/roach88/stopover/internal/ordinate"
)

// firing is a raw observation from a scheduled function, before ordering.
type firing struct {
	clock    string
	order    int // clock's declaration index
	label    string
	position ordinate.Ordinate
	instant  ordinate.Ordinate
}

// recorder buffers firings reported from batch goroutines until the step
// that caused them has finished.
//
// Thread-safety: record is safe from any goroutine.
type recorder struct {
	mu      sync.Mutex
	pending []firing
}

func newRecorder() *recorder {
	return &recorder{}
}

func (r *recorder) record(f firing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, f)
}

// drain removes every buffered firing and returns them in trace order:
// by group instant, then clock declaration order, then label.
//
// Functions of one batch, and members of one group step, run concurrently,
// so arrival order alone is not reproducible.
func (r *recorder) drain() []firing {
	r.mu.Lock()
	out := r.pending
	r.pending = nil
	r.mu.Unlock()

	slices.SortStableFunc(out, func(a, b firing) int {
		if c := a.instant.Cmp(b.instant); c != 0 {
			return c
		}
		if a.order != b.order {
			return a.order - b.order
		}
		if a.label < b.label {
			return -1
		}
		if a.label > b.label {
			return 1
		}
		return 0
	})
	return out
}
