package harness

// TraceEvent records one scenario step: the action invoked, its arguments,
// and what the journal answered.
type TraceEvent struct {
	Seq     int            `json:"seq"`
	Phase   string         `json:"phase"` // "setup" or "flow"
	Action  string         `json:"action"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome"` // see Outcome* constants
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Step outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeNotFound   = "not_found"
	OutcomeError      = "error"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every setup and flow step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addTrace appends ev with the next sequence number and returns it.
func (r *Result) addTrace(ev TraceEvent) TraceEvent {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
	return ev
}
