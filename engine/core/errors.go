package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by every backend entry point when no
	// operation set could be bound at init time and the caller opted out of
	// panicking on init failure.
	ErrNotInitialized = errors.New("renderer backend is not initialized")

	// ErrWrongThread is the panic value of the render-thread affinity check.
	ErrWrongThread = errors.New("call issued off the render thread")
)

// InitializationFailureError reports that no operation set could be bound, or
// that the chosen tier is missing a required operation.
type InitializationFailureError struct {
	Reason string
}

func (e *InitializationFailureError) Error() string {
	return fmt.Sprintf("renderer initialization failed: %s", e.Reason)
}

// UnsupportedCapabilityError is returned when an optional operation is invoked
// on a tier/hardware combination that lacks it and strict mode is on. In
// lenient mode the operation is a silent no-op instead.
type UnsupportedCapabilityError struct {
	Op string
}

func (e *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("operation '%s' is not supported by the active tier", e.Op)
}

// CapacityExceededError is returned when a GPU-driven batch outgrows its
// preallocated maximum. Batches never silently truncate or grow.
type CapacityExceededError struct {
	What  string
	Limit uint32
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("%s capacity exceeded (max %d)", e.What, e.Limit)
}

// ResourceNotFoundError reports an operation against an unknown or stale
// handle. Lifetime bugs fail loudly rather than silently no-op.
type ResourceNotFoundError struct {
	Kind   string
	Handle uint64
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s handle %d not found", e.Kind, e.Handle)
}

// IsUnsupported reports whether err wraps an UnsupportedCapabilityError.
func IsUnsupported(err error) bool {
	var uc *UnsupportedCapabilityError
	return errors.As(err, &uc)
}

// IsCapacityExceeded reports whether err wraps a CapacityExceededError.
func IsCapacityExceeded(err error) bool {
	var ce *CapacityExceededError
	return errors.As(err, &ce)
}
