package harness

import (
	"github.com/roach88/chronotree/internal/chrono"
	"github.com/roach88/chronotree/internal/ir"
)

// Step outcomes recorded on StepResult.Outcome besides error codes.
const (
	OutcomeApplied  = "applied"
	OutcomeNoop     = "noop"
	OutcomeSnapshot = "snapshot"
)

// StepResult records what one scenario step did.
type StepResult struct {
	Index   int    `json:"index"`
	Replica string `json:"replica"`
	Op      string `json:"op"`     // "add", "merge" or "snapshot"
	Target  string `json:"target"` // add label, merge reference or snapshot label

	// Outcome is "applied" or "noop" (head changed or not), "snapshot", or
	// the error code the step failed with.
	Outcome string `json:"outcome"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step met its expectation and every assertion held.
	Pass bool `json:"pass"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Steps lists per-step outcomes in execution order.
	Steps []StepResult `json:"steps"`

	// Replicas holds the final replicas by name, in scenario order.
	Replicas []*chrono.Replica `json:"-"`

	labels    map[string]ir.Hash
	names     map[ir.Hash]string
	snapshots map[string]ir.Hash
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Errors:    []string{},
		Steps:     []StepResult{},
		labels:    make(map[string]ir.Hash),
		names:     make(map[ir.Hash]string),
		snapshots: make(map[string]ir.Hash),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Replica returns the final replica with the given name, or nil.
func (r *Result) Replica(name string) *chrono.Replica {
	for _, rep := range r.Replicas {
		if rep.Name() == name {
			return rep
		}
	}
	return nil
}

// Hash returns the record hash bound to a label.
func (r *Result) Hash(label string) (ir.Hash, bool) {
	h, ok := r.labels[label]
	return h, ok
}

// Label returns the first label bound to h, or the short hash if none.
func (r *Result) Label(h ir.Hash) string {
	if name, ok := r.names[h]; ok {
		return name
	}
	return h.Short()
}

func (r *Result) bind(label string, h ir.Hash) {
	r.labels[label] = h
	if _, ok := r.names[h]; !ok {
		r.names[h] = label
	}
}
