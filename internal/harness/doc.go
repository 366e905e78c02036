// Package harness runs scenarios against virtual clocks and their group,
// and checks the resulting trace.
//
// # Scenario Format
//
// Scenarios are YAML or CUE files with the following structure:
//
//	name: two_vehicles
//	description: "group stops at each member's stopover"
//	turn: 20ms                      # optional, see vclock.WithTurn
//	clocks:
//	  - {name: fast, scale: 1000}   # scaled clocks form the group
//	  - {name: solo}
//	events:
//	  - {clock: fast, at: 1000, label: fast-1}
//	  - {clock: solo, at: 2, label: boom, fail: "boom"}
//	steps:
//	  - {travel: 8}                 # group travel
//	  - {clock: solo, travel: 3, expect_error: callback_failed}
//	  - {reset: true}               # group reset
//	assertions:
//	  - {type: trace_order, labels: [fast-1]}
//	  - {type: trace_count, label: boom, count: 1}
//	  - {type: final_position, clock: fast, position: 8000}
//
// Event functions can fail (fail), outlive their turn (block) or attempt a
// nested travel of their own clock (reenter).
//
// # Assertion Types
//
//   - trace_order: labels first appear in the given order
//   - trace_count: a label fires exactly N times
//   - final_position: a clock ends at a position
//
// # Deterministic Traces
//
// Functions of one batch, and members of one group step, run concurrently.
// The harness buffers what fires during a step and orders it by group
// instant (position / scale), clock declaration order and label before
// numbering it. Tickets come from testutil.SequenceTickets. The same
// scenario therefore yields the same trace, byte for byte, which makes
// golden comparison possible.
package harness
