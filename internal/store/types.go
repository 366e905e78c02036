package store

import "errors"

// ErrRunNotFound is returned when a run id is not in the store.
var ErrRunNotFound = errors.New("run not found")

// Run is one stored execution of a scenario.
type Run struct {
	ID         string
	Scenario   string
	CreatedSeq int64
}

// Firing is one event observed during a run.
//
// Position is the ordinate of the firing clock; Instant is the group
// relative ordinate (position / scale). Both are decimal strings.
type Firing struct {
	ID       string
	RunID    string
	Seq      int64
	Clock    string
	Label    string
	Position string
	Instant  string
}
