package platoon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/stopover/internal/ordinate"
	"github.com/roach88/stopover/internal/vclock"
)

var (
	// ErrInvalidScale is returned when a member joins with a scale that is
	// not a finite positive number.
	ErrInvalidScale = errors.New("scale must be a finite positive number")

	// ErrInvalidDistance is returned when a group travel is asked to cover
	// an infinite distance.
	ErrInvalidDistance = errors.New("distance must be finite")
)

// Vehicle is the part of a clock the group drives.
//
// Implementations must be comparable (typically a pointer): membership is
// keyed by identity.
type Vehicle interface {
	Position() ordinate.Ordinate
	NextStopover() ordinate.Ordinate
	Travel(ctx context.Context, distance ordinate.Ordinate) error
	Reset()
}

var _ Vehicle = (*vclock.Clock)(nil)

// Member is a vehicle and its distance multiplier.
type Member struct {
	Vehicle Vehicle
	Scale   ordinate.Ordinate
}

type journey struct {
	id string
}

// Platoon is a group of scaled vehicles travelled in lockstep.
//
// Thread-safety: all methods are safe for concurrent use. Travel is
// single-flight per group, independent of each member's own guard.
type Platoon struct {
	mu      sync.Mutex
	members []Member // join order
	journey *journey

	name   string
	logger *slog.Logger
}

// Option allows configuration of group parameters.
type Option func(*Platoon)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Platoon) {
		p.logger = logger
	}
}

// WithName labels the group in log output.
func WithName(name string) Option {
	return func(p *Platoon) {
		p.name = name
	}
}

// New creates a group with the given initial members.
//
// Returns ErrInvalidScale (wrapped) if any member's scale is invalid.
func New(members []Member, opts ...Option) (*Platoon, error) {
	p := &Platoon{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	for i, m := range members {
		if err := p.Join(m.Vehicle, m.Scale); err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
	}

	return p, nil
}

// Join adds v with the given scale. Joining a vehicle that is already a
// member updates its scale.
func (p *Platoon) Join(v Vehicle, scale ordinate.Ordinate) error {
	if scale.Sign() <= 0 || scale.IsInf() {
		return fmt.Errorf("join with scale %s: %w", scale, ErrInvalidScale)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if i := p.indexOf(v); i >= 0 {
		p.members[i].Scale = scale
		return nil
	}
	p.members = append(p.members, Member{Vehicle: v, Scale: scale})

	p.logger.Debug("member joined",
		"group", p.name,
		"members", len(p.members),
		"scale", scale.String(),
	)
	return nil
}

// Leave removes v. Vehicles that are not members are ignored.
func (p *Platoon) Leave(v Vehicle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.indexOf(v)
	if i < 0 {
		return
	}
	p.members = append(p.members[:i], p.members[i+1:]...)

	p.logger.Debug("member left", "group", p.name, "members", len(p.members))
}

// Members returns a snapshot of the members in join order.
func (p *Platoon) Members() []Member {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Member(nil), p.members...)
}

// Reset resets every member and invalidates the group's in-flight journey.
func (p *Platoon) Reset() {
	p.mu.Lock()
	p.journey = nil
	members := append([]Member(nil), p.members...)
	p.mu.Unlock()

	for _, m := range members {
		m.Vehicle.Reset()
	}

	p.logger.Debug("group reset", "group", p.name, "members", len(members))
}

// Travel advances every member by distance × scale, stopping the whole group
// at each member's stopovers on the way.
//
// At least one step is always taken, so a zero distance still fires events
// that are already due. A completed journey leaves every member exactly
// distance × scale past where it started (or where it was first seen, for a
// member that joined mid-journey), however the steps were rounded.
//
// Travel fails with a CONCURRENT_JOURNEY vclock.JourneyError if the group is
// already travelling, and with ErrInvalidDistance for an infinite distance.
// The first member error abandons the journey; steps completed before it
// stay travelled.
func (p *Platoon) Travel(ctx context.Context, distance ordinate.Ordinate) error {
	if distance.IsInf() {
		return fmt.Errorf("group travel: %w", ErrInvalidDistance)
	}

	p.mu.Lock()
	if p.journey != nil {
		current := p.journey.id
		p.mu.Unlock()
		return vclock.NewConcurrentJourneyError(current)
	}
	j := &journey{id: uuid.Must(uuid.NewV7()).String()}
	p.journey = j
	p.mu.Unlock()

	p.logger.Debug("group journey started",
		"group", p.name,
		"journey", j.id,
		"distance", distance.String(),
	)

	remaining := distance
	targets := make(map[Vehicle]ordinate.Ordinate)
	steps := 0
	for {
		if err := ctx.Err(); err != nil {
			p.abandon(j, err)
			return err
		}

		members, current := p.snapshot(j)
		if !current {
			p.logger.Debug("group journey invalidated by reset", "group", p.name, "journey", j.id)
			return nil
		}

		for _, m := range members {
			if _, seen := targets[m.Vehicle]; !seen {
				targets[m.Vehicle] = m.Vehicle.Position().Add(remaining.Mul(m.Scale))
			}
		}

		step, legs := plan(members, remaining)
		last := step.Equal(remaining)
		for i, m := range members {
			// Legs are bounded by what is left to the member's target, and
			// the last step lands on it exactly, so rounded quotients never
			// accumulate into the final position.
			left := targets[m.Vehicle].Sub(m.Vehicle.Position())
			if last {
				legs[i] = left
			} else {
				legs[i] = ordinate.Min(legs[i], left)
			}
		}

		if err := travelAll(ctx, members, legs); err != nil {
			p.abandon(j, err)
			return fmt.Errorf("group step %d: %w", steps, err)
		}
		steps++

		remaining = remaining.Sub(step)
		if remaining.Sign() <= 0 {
			break
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.journey == j {
		p.journey = nil
	}

	p.logger.Debug("group journey finished",
		"group", p.name,
		"journey", j.id,
		"steps", steps,
	)
	return nil
}

// plan picks the next group step and each member's share of it.
//
// The step is the smallest group distance to any member's next stopover,
// capped by remaining. Overdue stopovers count as zero. A member whose
// stopover defines the step travels its exact gap, so it lands on the
// stopover even when gap / scale had to be rounded.
func plan(members []Member, remaining ordinate.Ordinate) (ordinate.Ordinate, []ordinate.Ordinate) {
	step := remaining
	gaps := make([]ordinate.Ordinate, len(members))
	due := make([]ordinate.Ordinate, len(members))

	for i, m := range members {
		next := m.Vehicle.NextStopover()
		if next.IsInf() {
			due[i] = ordinate.Infinity()
			continue
		}
		gaps[i] = ordinate.Max(next.Sub(m.Vehicle.Position()), ordinate.Zero())
		due[i] = gaps[i].Quo(m.Scale)
		step = ordinate.Min(step, due[i])
	}

	legs := make([]ordinate.Ordinate, len(members))
	for i, m := range members {
		if due[i].Equal(step) {
			legs[i] = gaps[i]
			continue
		}
		legs[i] = step.Mul(m.Scale)
	}

	return step, legs
}

// travelAll starts every member's leg before awaiting any.
func travelAll(ctx context.Context, members []Member, legs []ordinate.Ordinate) error {
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range members {
		g.Go(func() error {
			return m.Vehicle.Travel(gctx, legs[i])
		})
	}
	return g.Wait()
}

// snapshot returns the members to drive in the next step, and whether j is
// still the group's journey.
func (p *Platoon) snapshot(j *journey) ([]Member, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.journey != j {
		return nil, false
	}
	return append([]Member(nil), p.members...), true
}

func (p *Platoon) abandon(j *journey, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.journey == j {
		p.journey = nil
	}
	p.logger.Debug("group journey abandoned",
		"group", p.name,
		"journey", j.id,
		"error", err,
	)
}

func (p *Platoon) indexOf(v Vehicle) int {
	for i, m := range p.members {
		if m.Vehicle == v {
			return i
		}
	}
	return -1
}
