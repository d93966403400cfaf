package costing

import (
	"github.com/shopspring/decimal"
	"github.com/textileplan/backend/internal/domain/shared"
)

// Status is the outcome of recomputing one entity
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// EntityResult is the outcome of recomputing one entity. A failed entity
// keeps its old value.
type EntityResult struct {
	Node     NodeRef         `json:"node"`
	Name     string          `json:"name,omitempty"`
	Status   Status          `json:"status"`
	OldValue decimal.Decimal `json:"old_value"`
	NewValue decimal.Decimal `json:"new_value"`
	Message  string          `json:"message,omitempty"`
	Err      error           `json:"-"`
}

// Difference returns new minus old
func (r EntityResult) Difference() decimal.Decimal {
	return r.NewValue.Sub(r.OldValue)
}

// Changed reports whether the stored value moved
func (r EntityResult) Changed() bool {
	return !r.NewValue.Equal(r.OldValue)
}

// Report collects per-entity results of a multi-entity run
type Report struct {
	DryRun  bool           `json:"dry_run"`
	Results []EntityResult `json:"results"`
}

func (r *Report) succeed(node NodeRef, c change) {
	r.Results = append(r.Results, EntityResult{
		Node:     node,
		Name:     c.name,
		Status:   StatusSucceeded,
		OldValue: c.old,
		NewValue: c.new,
	})
}

func (r *Report) fail(node NodeRef, c change, err error) {
	r.Results = append(r.Results, EntityResult{
		Node:     node,
		Name:     c.name,
		Status:   StatusFailed,
		OldValue: c.old,
		NewValue: c.old,
		Message:  shared.PublicMessage(err),
		Err:      err,
	})
}

// Succeeded counts successful results, restricted to kinds when given
func (r *Report) Succeeded(kinds ...NodeKind) int {
	return r.count(StatusSucceeded, kinds)
}

// Failed counts failed results, restricted to kinds when given
func (r *Report) Failed(kinds ...NodeKind) int {
	return r.count(StatusFailed, kinds)
}

// Failures returns the failed results
func (r *Report) Failures() []EntityResult {
	var out []EntityResult
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

// Of returns the results of one kind
func (r *Report) Of(kind NodeKind) []EntityResult {
	var out []EntityResult
	for _, res := range r.Results {
		if res.Node.Kind == kind {
			out = append(out, res)
		}
	}
	return out
}

// TotalChange sums the differences of the successful results of one kind
func (r *Report) TotalChange(kind NodeKind) decimal.Decimal {
	total := decimal.Zero
	for _, res := range r.Results {
		if res.Node.Kind == kind && res.Status == StatusSucceeded {
			total = total.Add(res.Difference())
		}
	}
	return total
}

func (r *Report) count(status Status, kinds []NodeKind) int {
	n := 0
	for _, res := range r.Results {
		if res.Status != status {
			continue
		}
		if len(kinds) == 0 || containsKind(kinds, res.Node.Kind) {
			n++
		}
	}
	return n
}

func containsKind(kinds []NodeKind, k NodeKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
