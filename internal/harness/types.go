package harness

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Step string `json:"step"` // apply, resolve or delete

	// Record and RecordType identify the applied record, or the deleted
	// object by its local id.
	Record     string `json:"record,omitempty"`
	RecordType string `json:"record_type,omitempty"`

	Created  bool     `json:"created,omitempty"`
	Changed  bool     `json:"changed,omitempty"`
	Linked   []string `json:"linked,omitempty"`
	Pending  []string `json:"pending,omitempty"`
	Resolved []string `json:"resolved,omitempty"` // source.relationship

	// Error is the mapping error code, or the message of any other error.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step met its expectation and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failed expectations and assertions.
	// Empty if Pass is true.
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

// AddTrace appends ev, numbering it after the previous event.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}
