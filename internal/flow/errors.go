package flow

import (
	"errors"
	"fmt"
)

// ComputeError reports a structural failure that makes the whole flow map
// untrustworthy. When Compute returns one, callers keep the previous
// derived values instead of applying a partial update.
type ComputeError struct {
	// Code identifies the error category.
	Code ComputeErrorCode

	// Message is a human-readable description.
	Message string

	// NodeID identifies the offending node, when there is one.
	NodeID string
}

// ComputeErrorCode categorizes compute errors.
type ComputeErrorCode string

const (
	// ErrCodeNilGraph indicates Compute was called without a graph.
	ErrCodeNilGraph ComputeErrorCode = "NIL_GRAPH"

	// ErrCodeDanglingEdge indicates a graph edge points at a node the graph
	// does not contain. Build never produces one; a hand-made graph might.
	ErrCodeDanglingEdge ComputeErrorCode = "DANGLING_EDGE"

	// ErrCodeNonFinite indicates an accumulated flow overflowed.
	ErrCodeNonFinite ComputeErrorCode = "NON_FINITE"
)

// Error implements the error interface.
func (e *ComputeError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsComputeError returns true if err is or wraps a ComputeError.
func IsComputeError(err error) bool {
	var ce *ComputeError
	return errors.As(err, &ce)
}

// CodeOf returns the ComputeErrorCode carried by err, or "" if none.
func CodeOf(err error) ComputeErrorCode {
	var ce *ComputeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
