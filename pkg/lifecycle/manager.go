package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nodegrid/nodegrid/pkg/engine"
	"github.com/nodegrid/nodegrid/pkg/network"
	"github.com/nodegrid/nodegrid/pkg/types"
)

// DefaultStopGrace bounds how long a container gets to stop on its own
// before the engine kills it during deletion.
const DefaultStopGrace = 10 * time.Second

// managedFilter selects agent-owned containers in engine listings.
var managedFilter = types.ManagedLabel + "=" + types.ManagedLabelValue

// CreateRequest carries everything needed to create and start a workload
// container.
type CreateRequest struct {
	Descriptor     types.Descriptor
	Image          string
	StartupCommand string
	Environment    map[string]string
	Limits         types.ResourceLimits
	Ports          []types.PortBinding
}

// Manager orchestrates container create/start/stop/delete workflows against
// the engine. It performs no retries: engine failures surface to the caller
// as internal errors with the underlying message attached, and retry policy
// stays with the caller.
//
// Concurrent operations on different descriptors proceed independently.
// Operations on the same descriptor are assumed to be serialized by the
// panel, which issues at most one lifecycle operation per workload at a time.
type Manager struct {
	engine  engine.Engine
	ports   *network.PortChecker
	stopGrc time.Duration
	log     zerolog.Logger
}

// NewManager creates a lifecycle manager.
func NewManager(eng engine.Engine, ports *network.PortChecker, logger zerolog.Logger) *Manager {
	return &Manager{
		engine:  eng,
		ports:   ports,
		stopGrc: DefaultStopGrace,
		log:     logger,
	}
}

// List returns every container bearing the management label. Partial engine
// data never fails the caller: missing fields degrade to "unknown".
func (m *Manager) List(ctx context.Context) ([]types.ContainerInfo, error) {
	summaries, err := m.engine.List(ctx, managedFilter)
	if err != nil {
		return nil, types.Internal("list containers", err)
	}

	infos := make([]types.ContainerInfo, 0, len(summaries))
	for _, s := range summaries {
		info := types.ContainerInfo{
			ID:     s.ID,
			Name:   orUnknown(s.Name),
			State:  orUnknown(s.State),
			Status: orUnknown(s.Status),
			Image:  orUnknown(s.Image),
		}
		if d, ok := s.Labels[types.DescriptorLabel]; ok {
			info.Descriptor = types.Descriptor(d)
		}
		infos = append(infos, info)
	}

	return infos, nil
}

// Create creates and starts a container for the request.
//
// Every requested host port is probed first; if any is occupied the whole
// operation fails with a conflict error listing all occupied ports, before
// the engine is touched. If the container is created but fails to start,
// it is force-removed (best effort) and the original start error surfaces.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (types.CreateResult, error) {
	if err := validateDescriptor(req.Descriptor); err != nil {
		return types.CreateResult{}, err
	}
	for _, p := range req.Ports {
		if err := p.Validate(); err != nil {
			return types.CreateResult{}, types.Precondition(err.Error())
		}
	}

	if occupied := m.ports.Occupied(req.Ports); len(occupied) > 0 {
		return types.CreateResult{}, types.NewPortConflictError(occupied)
	}

	name := req.Descriptor.ContainerName()
	spec := engine.CreateSpec{
		Name:  name,
		Image: req.Image,
		Labels: map[string]string{
			types.ManagedLabel:    types.ManagedLabelValue,
			types.DescriptorLabel: string(req.Descriptor),
		},
		Env:       envList(req.Environment),
		Limits:    req.Limits,
		Ports:     req.Ports,
		TTY:       true,
		OpenStdin: true,
	}

	// Run the startup command under a shell so environment variable
	// references in it expand inside the container.
	if req.StartupCommand != "" {
		spec.Entrypoint = []string{"/bin/sh", "-c", req.StartupCommand}
	}

	id, err := m.engine.Create(ctx, spec)
	if err != nil {
		return types.CreateResult{}, types.Internal("create container", err)
	}

	if err := m.engine.Start(ctx, id); err != nil {
		// Roll back the creation so a failed start leaves nothing behind.
		// A rollback failure is logged but never masks the start error.
		if rmErr := m.engine.Remove(ctx, id, true, true); rmErr != nil {
			m.log.Error().Err(rmErr).
				Str("descriptor", string(req.Descriptor)).
				Msg("rollback after failed start did not remove container")
		}
		return types.CreateResult{}, types.Internal("start container", err)
	}

	m.log.Info().
		Str("descriptor", string(req.Descriptor)).
		Str("container_id", id).
		Str("image", req.Image).
		Msg("container created and started")

	return types.CreateResult{ContainerID: id, ContainerName: name}, nil
}

// Delete removes the container for a descriptor along with its volumes.
//
// A running container gets a graceful stop bounded by the grace period; a
// stop failure is logged and does not block the removal. The result reports
// whether the container had been running.
func (m *Manager) Delete(ctx context.Context, descriptor types.Descriptor) (types.DeleteResult, error) {
	name := descriptor.ContainerName()

	detail, err := m.engine.Inspect(ctx, name)
	if err != nil {
		if errors.Is(err, engine.ErrNoSuchContainer) {
			return types.DeleteResult{}, types.NotFound(descriptor)
		}
		return types.DeleteResult{}, types.Internal("inspect container", err)
	}

	wasRunning := detail.Running
	if wasRunning {
		if err := m.engine.Stop(ctx, name, m.stopGrc); err != nil {
			m.log.Warn().Err(err).
				Str("descriptor", string(descriptor)).
				Msg("graceful stop failed, removing anyway")
		}
	}

	if err := m.engine.Remove(ctx, name, true, true); err != nil {
		return types.DeleteResult{}, types.Internal("remove container", err)
	}

	m.log.Info().
		Str("descriptor", string(descriptor)).
		Bool("was_running", wasRunning).
		Msg("container deleted")

	return types.DeleteResult{WasRunning: wasRunning}, nil
}

// Start starts the container for a descriptor.
func (m *Manager) Start(ctx context.Context, descriptor types.Descriptor) error {
	if err := m.engine.Start(ctx, descriptor.ContainerName()); err != nil {
		return types.Internal("start container", err)
	}
	return nil
}

// Stop gracefully stops the container for a descriptor.
func (m *Manager) Stop(ctx context.Context, descriptor types.Descriptor) error {
	if err := m.engine.Stop(ctx, descriptor.ContainerName(), m.stopGrc); err != nil {
		return types.Internal("stop container", err)
	}
	return nil
}

// Stats returns a point-in-time resource reading for a descriptor.
func (m *Manager) Stats(ctx context.Context, descriptor types.Descriptor) (types.ContainerStats, error) {
	raw, err := m.engine.Stats(ctx, descriptor.ContainerName())
	if err != nil {
		if errors.Is(err, engine.ErrNoSuchContainer) {
			return types.ContainerStats{}, types.NotFound(descriptor)
		}
		return types.ContainerStats{}, types.Internal("container stats", err)
	}

	return types.ContainerStats{
		CPUPct:   cpuPercent(raw),
		RAMUsed:  raw.MemUsage,
		RAMTotal: raw.MemLimit,
		NetRx:    raw.NetRx,
		NetTx:    raw.NetTx,
	}, nil
}

// cpuPercent derives CPU utilization from two successive counter readings
// embedded in an engine stats response.
func cpuPercent(raw engine.RawStats) float64 {
	cpuDelta := float64(raw.CPUTotal) - float64(raw.PreCPUTotal)
	sysDelta := float64(raw.SystemCPU) - float64(raw.PreSystemCPU)

	online := float64(raw.OnlineCPUs)
	if online == 0 {
		online = 1
	}

	if sysDelta > 0 && cpuDelta > 0 {
		return cpuDelta / sysDelta * online * 100
	}
	return 0
}

func validateDescriptor(d types.Descriptor) error {
	if d == "" {
		return types.Precondition("descriptor must not be empty")
	}
	if _, err := uuid.Parse(string(d)); err != nil {
		return types.Precondition(fmt.Sprintf("descriptor %q is not a valid UUID", d))
	}
	return nil
}

// envList flattens an environment map into the engine's K=V form, sorted
// for deterministic container specs.
func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}

	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	sort.Strings(list)
	return list
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
