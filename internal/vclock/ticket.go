package vclock

import (
	"sync"

	"github.com/google/uuid"
)

// Ticket is the opaque handle returned by Schedule. Its only use is Cancel.
type Ticket uuid.UUID

// String returns the hyphenated form.
func (t Ticket) String() string {
	return uuid.UUID(t).String()
}

// TicketGenerator mints tickets for newly scheduled events.
// Implemented by RandomTickets (production) and FixedTickets (tests).
//
// A generator need not guarantee uniqueness: the clock retries while the
// candidate collides with a currently pending ticket.
type TicketGenerator interface {
	Generate() Ticket
}

// RandomTickets draws version 4 UUIDs. The 122 random bits make a retry
// practically unreachable.
//
// Thread-safety: RandomTickets is stateless and safe for concurrent use.
type RandomTickets struct{}

// Generate returns a random ticket. Panics if the system randomness source
// fails.
func (RandomTickets) Generate() Ticket {
	return Ticket(uuid.New())
}

// FixedTickets returns predetermined tickets in order, then falls back to
// random ones. Tests use it to force collisions.
//
// Thread-safety: FixedTickets is safe for concurrent use via internal mutex.
type FixedTickets struct {
	mu      sync.Mutex
	tickets []Ticket
	idx     int
}

// NewFixedTickets creates a generator that replays tickets in order.
func NewFixedTickets(tickets ...Ticket) *FixedTickets {
	return &FixedTickets{tickets: tickets}
}

// Generate returns the next predetermined ticket.
func (g *FixedTickets) Generate() Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tickets) {
		return RandomTickets{}.Generate()
	}
	t := g.tickets[g.idx]
	g.idx++
	return t
}
