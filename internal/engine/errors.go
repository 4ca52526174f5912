// Package engine holds the matching algorithm, the guest lifecycle
// state machine and the statistics aggregator. Everything around it
// (HTTP, queue, photo storage) is a thin shell over these three.
package engine

import "errors"

// The closed error set callers branch on with errors.Is. Anything
// else coming out of an operation is a wrapped storage failure; those
// are safe to retry because operations never partially commit.
var (
	// ErrEncodingShapeMismatch means the probe vector's dimensionality
	// does not match the registry's. Rejected before any storage access.
	ErrEncodingShapeMismatch = errors.New("encoding shape mismatch")

	// ErrDuplicateFace means an enroll was attempted for a face that
	// already matches an enrolled guest, present or departed.
	ErrDuplicateFace = errors.New("face already enrolled")

	// ErrAlreadyPresent means a check-in was attempted for a guest who
	// has not checked out yet.
	ErrAlreadyPresent = errors.New("guest already present")

	// ErrNotPresent means a check-out was attempted for a guest who is
	// not currently present.
	ErrNotPresent = errors.New("guest not present")

	ErrGuestNotFound = errors.New("guest not found")
)
