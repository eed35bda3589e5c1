package engine

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/nodegrid/nodegrid/pkg/types"
)

// ErrNoSuchContainer is returned by engine operations that target a
// container the engine does not know about.
var ErrNoSuchContainer = errors.New("no such container")

// CreateSpec describes a container to create. The lifecycle manager fills
// it in from the panel's request; the engine translates it one-to-one.
type CreateSpec struct {
	Name       string
	Image      string
	Labels     map[string]string
	Env        []string
	Entrypoint []string
	Limits     types.ResourceLimits
	Ports      []types.PortBinding

	// TTY and OpenStdin keep the container attachable for later console
	// sessions.
	TTY       bool
	OpenStdin bool
}

// Summary is one entry of an engine container listing.
type Summary struct {
	ID     string
	Name   string
	State  string
	Status string
	Image  string
	Labels map[string]string
}

// Detail is the subset of an engine inspect the agent cares about.
type Detail struct {
	ID      string
	Name    string
	Running bool
}

// RawStats carries the engine's raw resource counters for one container.
// Derived values (CPU percentage) are computed by the caller so they stay
// testable without an engine.
type RawStats struct {
	CPUTotal     uint64
	PreCPUTotal  uint64
	SystemCPU    uint64
	PreSystemCPU uint64
	OnlineCPUs   uint32

	MemUsage uint64
	MemLimit uint64

	NetRx uint64
	NetTx uint64
}

// AttachStream is a live attachment to a container's stdio. Reader carries
// container output; Writer feeds container stdin. Close tears the
// attachment down and unblocks any pending read.
type AttachStream struct {
	Reader io.Reader
	Writer io.Writer

	closeFn func() error
}

// NewAttachStream wraps a reader/writer pair and a close hook. closeFn may
// be nil when there is nothing to release.
func NewAttachStream(r io.Reader, w io.Writer, closeFn func() error) *AttachStream {
	return &AttachStream{Reader: r, Writer: w, closeFn: closeFn}
}

// Close releases the attachment.
func (s *AttachStream) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// Engine is the container engine capability the agent depends on. The
// production implementation talks to a local Docker daemon; tests use an
// in-memory fake.
type Engine interface {
	// List returns all containers (running or not) matching the label
	// filter, formatted "key=value".
	List(ctx context.Context, labelFilter string) ([]Summary, error)

	// Create creates a container and returns its engine ID.
	Create(ctx context.Context, spec CreateSpec) (string, error)

	// Start starts a created container by name or ID.
	Start(ctx context.Context, name string) error

	// Stop gracefully stops a container, escalating to a kill after the
	// grace period.
	Stop(ctx context.Context, name string, grace time.Duration) error

	// Remove deletes a container, optionally forcing and removing its
	// anonymous volumes.
	Remove(ctx context.Context, name string, force, volumes bool) error

	// Inspect looks a container up by name or ID.
	Inspect(ctx context.Context, name string) (Detail, error)

	// Attach opens a live stdio attachment.
	Attach(ctx context.Context, name string) (*AttachStream, error)

	// Stats takes a one-shot stats reading.
	Stats(ctx context.Context, name string) (RawStats, error)
}
