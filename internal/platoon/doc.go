// Package platoon drives several virtual clocks as one group.
//
// Each member joins with a scale: travelling the group by d travels the
// member by d × scale. A group Travel never hands a member its whole share
// at once. It cuts the distance at the nearest upcoming stopover across all
// members (measured in group distance, (NextStopover − Position) / scale),
// travels every member to that instant, and repeats. Whenever an event
// fires, every member therefore sits at the same group-relative instant, so
// events of different members fire in one global order.
//
// Members are reached through the Vehicle interface only; *vclock.Clock
// satisfies it. The group does not own its members: driving a member
// directly while the group travels is the caller's problem.
package platoon
