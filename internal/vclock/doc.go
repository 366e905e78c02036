// Package vclock implements a deterministic, manually advanced virtual
// clock.
//
// Callers Schedule functions at positions along an abstract ordinate and
// then Travel the clock forward by an explicit distance. Every pending event
// whose position is at or before the travel target fires, in position
// order, before Travel returns.
//
// # Journeys
//
// A journey is one Travel call. At most one journey is in flight per clock:
// a second Travel, including one made from inside a scheduled function,
// fails with a CONCURRENT_JOURNEY JourneyError and changes nothing. Reset
// invalidates the in-flight journey; it stops advancing after the batch it
// is currently running.
//
// # Batches and turns
//
// Events sharing a position form a batch. All functions of a batch are
// started before any is awaited, each on its own goroutine, and each must
// complete within the clock's turn (see WithTurn). A function that outlives
// its turn abandons the journey with a SCHEDULED_ASYNC JourneyError. Batches
// at distinct positions never overlap.
//
// The clock's lock is never held while a scheduled function runs, so
// functions may Schedule, Cancel, Reset or read the clock they run on.
//
// # Positions
//
// Positions and distances are ordinate.Ordinate values: exact decimals, so
// repeated fractional travels never drift.
package vclock
