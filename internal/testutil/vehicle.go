package testutil

import (
	"context"
	"sync"

	"github.com/roach88/stopover/internal/ordinate"
	"github.com/roach88/stopover/internal/vclock"
)

// RecordingVehicle wraps a clock and records every Travel and Reset it
// receives. It satisfies platoon.Vehicle.
//
// Thread-safety: safe for concurrent use; the group travels members from
// separate goroutines.
type RecordingVehicle struct {
	*vclock.Clock

	mu      sync.Mutex
	travels []string
	resets  int
}

// NewRecordingVehicle wraps clock. A nil clock gets a fresh vclock.Clock.
func NewRecordingVehicle(clock *vclock.Clock) *RecordingVehicle {
	if clock == nil {
		clock = vclock.New()
	}
	return &RecordingVehicle{Clock: clock}
}

// Travel records distance, then travels the wrapped clock.
func (v *RecordingVehicle) Travel(ctx context.Context, distance ordinate.Ordinate) error {
	v.mu.Lock()
	v.travels = append(v.travels, distance.String())
	v.mu.Unlock()

	return v.Clock.Travel(ctx, distance)
}

// Reset records the call, then resets the wrapped clock.
func (v *RecordingVehicle) Reset() {
	v.mu.Lock()
	v.resets++
	v.mu.Unlock()

	v.Clock.Reset()
}

// Travels returns the recorded distances as decimal strings, in call order.
func (v *RecordingVehicle) Travels() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.travels...)
}

// Resets returns how many times Reset was called.
func (v *RecordingVehicle) Resets() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.resets
}
