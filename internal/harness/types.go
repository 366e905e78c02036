package harness

// TraceEvent is one fired event as observed by the harness.
type TraceEvent struct {
	Seq      int64  `json:"seq"`
	Clock    string `json:"clock"`
	Label    string `json:"label"`
	Position string `json:"position"` // clock position when it fired
	Instant  string `json:"instant"`  // position / scale
	ID       string `json:"id"`       // content-addressed, see canon.FiringID
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// RunID is the content-addressed id of this run (see canon.RunID).
	RunID string `json:"run_id"`

	// Trace contains all firings in order.
	Trace []TraceEvent `json:"trace"`

	// Positions holds every clock's final position, keyed by clock name.
	Positions map[string]string `json:"positions"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Failures describes each step that did not end the way it was
	// expected to, in step order.
	Failures []StepFailure `json:"failures,omitempty"`
}

// StepFailure is a step whose outcome disagreed with its expect_error.
type StepFailure struct {
	Step   int    `json:"step"`
	Target string `json:"target"` // clock name, or "group"

	// Code is the vclock.ErrorCode the travel failed with. Empty when the
	// travel succeeded or failed with something other than a journey error.
	Code string `json:"code,omitempty"`

	// Expect is the step's expect_error, if any.
	Expect string `json:"expect,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Positions: make(map[string]string),
		Errors:    []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Labels returns the trace labels in order.
func (r *Result) Labels() []string {
	labels := make([]string, len(r.Trace))
	for i, ev := range r.Trace {
		labels[i] = ev.Label
	}
	return labels
}
