// Package engine holds the review logic of the dashboard: version
// grouping, draft lifecycle transitions and engagement aggregation.
// Everything here talks to storage through the store interfaces and
// performs no network I/O.
package engine

import "fmt"

// NotFoundError reports a referenced document id that did not resolve.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ValidationError reports rejected input: a blank required field, a
// malformed address, or a transition that the draft's state forbids.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// AggregationError wraps a failed lookup while computing engagement
// stats. Aggregation produces no partial results.
type AggregationError struct {
	Stage string
	Err   error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed at %s: %v", e.Stage, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}
