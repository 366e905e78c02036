package vclock

import (
	"log/slog"
	"time"
)

// DefaultTurn is how long a scheduled function may run before the journey
// is abandoned with a SCHEDULED_ASYNC error.
const DefaultTurn = 100 * time.Millisecond

// Option allows configuration of clock parameters.
type Option func(*Clock)

// WithTurn sets the per-function completion budget.
//
// Default: 100ms (DefaultTurn).
// A zero or negative turn disables the guard: functions may take as long as
// they like.
func WithTurn(turn time.Duration) Option {
	return func(c *Clock) {
		c.turn = turn
	}
}

// WithTicketGenerator replaces the default RandomTickets generator.
func WithTicketGenerator(gen TicketGenerator) Option {
	return func(c *Clock) {
		c.tickets = gen
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Clock) {
		c.logger = logger
	}
}

// WithName labels the clock in log output.
func WithName(name string) Option {
	return func(c *Clock) {
		c.name = name
	}
}
