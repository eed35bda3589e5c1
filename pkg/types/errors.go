package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error classes. Handlers map these onto transport status codes; everything
// that wraps an engine or network failure carries the underlying message.
var (
	// ErrConflict reports a user-correctable collision, e.g. a requested
	// host port that is already bound. Not retryable as-is.
	ErrConflict = errors.New("conflict")

	// ErrNotFound reports an operation against a container that does not
	// exist on this node.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized reports a missing or incorrect credential. It is
	// deliberately opaque: callers never learn why authorization failed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal wraps engine and transport failures. The agent never
	// retries these; retry policy belongs to the caller.
	ErrInternal = errors.New("internal error")

	// ErrPrecondition reports malformed protocol usage, e.g. a console
	// session whose first message carries no descriptor.
	ErrPrecondition = errors.New("precondition failed")
)

// PortConflictError lists every requested host port that was occupied at
// creation time. The create is rejected before the engine is touched.
type PortConflictError struct {
	Ports []int
}

func (e *PortConflictError) Error() string {
	ports := make([]string, len(e.Ports))
	for i, p := range e.Ports {
		ports[i] = fmt.Sprintf("%d", p)
	}
	return fmt.Sprintf("ports already in use: %s", strings.Join(ports, ", "))
}

// Unwrap makes errors.Is(err, ErrConflict) hold.
func (e *PortConflictError) Unwrap() error { return ErrConflict }

// NewPortConflictError builds a PortConflictError with the ports sorted for
// stable output.
func NewPortConflictError(ports []int) *PortConflictError {
	sorted := make([]int, len(ports))
	copy(sorted, ports)
	sort.Ints(sorted)
	return &PortConflictError{Ports: sorted}
}

// Internal wraps err as an internal-class error with operation context.
func Internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}

// NotFound builds a not-found error for a descriptor.
func NotFound(descriptor Descriptor) error {
	return fmt.Errorf("%w: no container for descriptor %s", ErrNotFound, descriptor)
}

// Precondition builds a precondition-class error.
func Precondition(msg string) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, msg)
}
