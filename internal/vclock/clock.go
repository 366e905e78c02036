package vclock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/stopover/internal/ordinate"
)

// Func is a unit of work scheduled on a Clock. It receives the context of
// the Travel that fires it. Returning an error abandons that journey.
type Func func(ctx context.Context) error

// journey marks one in-flight Travel. Identity is the pointer; id is for
// logs and errors only.
type journey struct {
	id string
}

// Clock is a manually advanced virtual clock.
//
// Thread-safety: all methods are safe for concurrent use. Travel is
// single-flight per clock (see package documentation).
type Clock struct {
	mu       sync.Mutex
	position ordinate.Ordinate
	queue    queue
	pending  map[Ticket]*event
	arrivals uint64
	journey  *journey

	name    string
	turn    time.Duration
	tickets TicketGenerator
	logger  *slog.Logger
}

// New creates an empty clock at position 0.
func New(opts ...Option) *Clock {
	c := &Clock{
		pending: make(map[Ticket]*event),
		turn:    DefaultTurn,
		tickets: RandomTickets{},
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the label set with WithName.
func (c *Clock) Name() string {
	return c.name
}

// Position returns the committed position.
func (c *Clock) Position() ordinate.Ordinate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// NextStopover returns the position of the earliest pending event, or
// ordinate.Infinity() if nothing is pending.
func (c *Clock) NextStopover() ordinate.Ordinate {
	c.mu.Lock()
	defer c.mu.Unlock()

	if next := c.queue.peek(); next != nil {
		return next.position
	}
	return ordinate.Infinity()
}

// Pending returns the number of scheduled events that have neither fired
// nor been cancelled.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Traveling reports whether a journey is in flight.
func (c *Clock) Traveling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.journey != nil
}

// Schedule registers fn to fire when the clock reaches position. Positions
// at or before the current one are legal; they fire on the next Travel.
//
// The returned ticket is unique among currently pending events. Tickets of
// fired or cancelled events may be minted again.
func (c *Clock) Schedule(position ordinate.Ordinate, fn Func) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()

	ticket := c.tickets.Generate()
	for {
		if _, taken := c.pending[ticket]; !taken {
			break
		}
		ticket = c.tickets.Generate()
	}

	c.arrivals++
	ev := &event{
		position: position,
		fn:       fn,
		ticket:   ticket,
		seq:      c.arrivals,
	}
	c.queue.insert(ev)
	c.pending[ticket] = ev

	c.logger.Debug("event scheduled",
		"clock", c.name,
		"ticket", ticket.String(),
		"at", position.String(),
	)

	return ticket
}

// Cancel removes the pending event for ticket. Unknown, fired and already
// cancelled tickets are ignored.
func (c *Clock) Cancel(ticket Ticket) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, ok := c.pending[ticket]
	if !ok {
		return
	}
	c.queue.remove(ev)
	delete(c.pending, ticket)

	c.logger.Debug("event cancelled",
		"clock", c.name,
		"ticket", ticket.String(),
	)
}

// Reset drops every pending event, invalidates the in-flight journey and
// returns the clock to position 0. Safe to call in any state, including
// from a scheduled function.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ev := range c.queue {
		ev.index = -1
	}
	c.queue = nil
	c.pending = make(map[Ticket]*event)
	c.journey = nil
	c.position = ordinate.Zero()

	c.logger.Debug("clock reset", "clock", c.name)
}

// Travel advances the clock by distance, firing every pending event whose
// position is at or before the target in position order.
//
// Travel fails without side effects if another journey is in flight. It
// returns early with an error if a batch fails or outlives its turn, or if
// ctx is cancelled between batches; positions reached before that stay
// committed. If Reset is called mid-journey, Travel stops advancing and
// returns nil once its running batch completes.
func (c *Clock) Travel(ctx context.Context, distance ordinate.Ordinate) error {
	c.mu.Lock()
	if c.journey != nil {
		current := c.journey.id
		c.mu.Unlock()
		return NewConcurrentJourneyError(current)
	}
	j := &journey{id: uuid.Must(uuid.NewV7()).String()}
	target := c.position.Add(distance)
	c.journey = j
	from := c.position
	c.mu.Unlock()

	c.logger.Debug("journey started",
		"clock", c.name,
		"journey", j.id,
		"from", from.String(),
		"target", target.String(),
	)

	for {
		if err := ctx.Err(); err != nil {
			c.abandon(j, err)
			return err
		}

		at, batch := c.nextBatch(j, target)
		if len(batch) == 0 {
			break
		}

		if err := c.dispatch(ctx, j, batch); err != nil {
			c.abandon(j, err)
			return fmt.Errorf("travel to %s: %w", target, err)
		}

		c.logger.Debug("batch fired",
			"clock", c.name,
			"journey", j.id,
			"position", at.String(),
			"count", len(batch),
		)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.journey != j {
		c.logger.Debug("journey invalidated by reset", "clock", c.name, "journey", j.id)
		return nil
	}
	c.journey = nil
	c.position = target

	return nil
}

// nextBatch removes the earliest due events sharing one position and
// commits the clock to that position. Returns an empty batch once the
// journey is no longer current or nothing is due.
func (c *Clock) nextBatch(j *journey, target ordinate.Ordinate) (ordinate.Ordinate, []*event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.journey != j {
		return ordinate.Ordinate{}, nil
	}
	first := c.queue.peek()
	if first == nil || target.Less(first.position) {
		return ordinate.Ordinate{}, nil
	}

	at := first.position
	var batch []*event
	for next := c.queue.peek(); next != nil && next.position.Equal(at); next = c.queue.peek() {
		ev := c.queue.popMin()
		delete(c.pending, ev.ticket)
		batch = append(batch, ev)
	}

	// An event scheduled in the past fires without moving the clock back.
	c.position = ordinate.Max(c.position, at)

	return at, batch
}

// dispatch starts every function of the batch, then waits for all of them.
// Each function is raced against its own turn timer; the first failure is
// returned once every function has completed or timed out.
func (c *Clock) dispatch(ctx context.Context, j *journey, batch []*event) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, ev := range batch {
		done := run(gctx, ev.fn)
		var expired <-chan time.Time
		if c.turn > 0 {
			timer := time.NewTimer(c.turn)
			expired = timer.C
			defer timer.Stop()
		}

		g.Go(func() error {
			select {
			case err := <-done:
				if err != nil {
					return newCallbackError(j.id, ev, err)
				}
				return nil
			case <-expired:
				c.logger.Warn("scheduled function outlived its turn",
					"clock", c.name,
					"journey", j.id,
					"ticket", ev.ticket.String(),
					"position", ev.position.String(),
					"turn", c.turn,
				)
				return newScheduledAsyncError(j.id, ev)
			}
		})
	}

	return g.Wait()
}

// run starts fn on its own goroutine. The returned channel receives exactly
// one value. A panic is reported as an error.
func run(ctx context.Context, fn Func) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- fn(ctx)
	}()
	return done
}

// abandon ends j after a failure, if it is still the clock's journey.
func (c *Clock) abandon(j *journey, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.journey == j {
		c.journey = nil
	}
	c.logger.Debug("journey abandoned",
		"clock", c.name,
		"journey", j.id,
		"position", c.position.String(),
		"error", err,
	)
}
