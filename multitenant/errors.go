package multitenant

import (
	"errors"
	"strings"
)

var (
	// ErrContextMissing is returned when an operation requires a bound tenant and none is bound.
	ErrContextMissing = errors.New("tenant context missing")
	// ErrTenantResolutionFailed is returned when a resolver cannot determine the caller's identity.
	ErrTenantResolutionFailed = errors.New("tenant resolution failed")
	// ErrTenantNotFound indicates the tenant is unknown to the directory.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrPropagationFailed is returned by a propagated task whose submitted identity could
	// not be applied on the executing worker. The work itself is not run.
	ErrPropagationFailed = errors.New("tenant identity propagation failed")
)

// ContextMissingError is the fail-closed guard for writes: it reports which operation
// needed a tenant. It matches ErrContextMissing with errors.Is.
type ContextMissingError struct {
	Op string
}

func (e *ContextMissingError) Error() string {
	if e.Op == "" {
		return ErrContextMissing.Error()
	}
	return e.Op + ": " + ErrContextMissing.Error()
}

// Is reports whether target is ErrContextMissing.
func (e *ContextMissingError) Is(target error) bool {
	return target == ErrContextMissing
}

// SuppressedError is a task failure that additionally carries errors raised while
// restoring the worker's identity afterwards. It unwraps to the task failure only, so
// errors.Is and errors.As observe the original error.
type SuppressedError struct {
	err        error
	suppressed []error
}

func withSuppressed(primary error, suppressed ...error) error {
	if primary == nil || len(suppressed) == 0 {
		return primary
	}
	if existing, ok := primary.(*SuppressedError); ok {
		merged := make([]error, 0, len(existing.suppressed)+len(suppressed))
		merged = append(merged, existing.suppressed...)
		return &SuppressedError{err: existing.err, suppressed: append(merged, suppressed...)}
	}
	return &SuppressedError{err: primary, suppressed: suppressed}
}

func (e *SuppressedError) Error() string {
	if len(e.suppressed) == 0 {
		return e.err.Error()
	}
	msgs := make([]string, 0, len(e.suppressed))
	for _, s := range e.suppressed {
		msgs = append(msgs, s.Error())
	}
	return e.err.Error() + " (suppressed: " + strings.Join(msgs, "; ") + ")"
}

// Unwrap returns the task failure.
func (e *SuppressedError) Unwrap() error {
	return e.err
}

// Suppressed returns the secondary errors.
func (e *SuppressedError) Suppressed() []error {
	out := make([]error, len(e.suppressed))
	copy(out, e.suppressed)
	return out
}
