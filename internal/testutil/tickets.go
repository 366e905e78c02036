package testutil

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/stopover/internal/vclock"
)

// SequenceTickets mints tickets from a counter for reproducible tests.
//
// The first ticket is 00000000-0000-0000-0000-000000000001, the second ends
// in 2, and so on. Unlike vclock.FixedTickets it never runs out, and it can
// be Reset so the same scenario mints the same tickets on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceTickets struct {
	mu  sync.Mutex
	seq uint64
}

// NewSequenceTickets creates a generator starting at 0.
//
// The first call to Generate() returns ticket 1.
func NewSequenceTickets() *SequenceTickets {
	return &SequenceTickets{}
}

// Generate returns the next ticket.
//
// Implements vclock.TicketGenerator.
func (g *SequenceTickets) Generate() vclock.Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++

	var id uuid.UUID
	binary.BigEndian.PutUint64(id[8:], g.seq)
	return vclock.Ticket(id)
}

// Minted returns how many tickets were generated since the last Reset.
func (g *SequenceTickets) Minted() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence. The next call to Generate() returns ticket 1.
func (g *SequenceTickets) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
