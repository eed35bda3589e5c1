package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"

	"github.com/nodegrid/nodegrid/pkg/types"
)

// cpuPeriod is the scheduling period used when translating a CPU
// percentage into a quota. 100000us is the Docker default.
const cpuPeriod = 100000

// DockerEngine implements Engine against a local Docker daemon.
type DockerEngine struct {
	cli *client.Client
}

// NewDockerEngine connects to the local Docker daemon using the standard
// environment configuration (DOCKER_HOST etc.) with API version negotiation.
func NewDockerEngine() (*DockerEngine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to docker: %w", err)
	}
	return &DockerEngine{cli: cli}, nil
}

// Close releases the daemon connection.
func (e *DockerEngine) Close() error {
	return e.cli.Close()
}

// List returns all containers matching the label filter.
func (e *DockerEngine) List(ctx context.Context, labelFilter string) ([]Summary, error) {
	containers, err := e.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", labelFilter)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	summaries := make([]Summary, 0, len(containers))
	for _, c := range containers {
		s := Summary{
			ID:     c.ID,
			State:  c.State,
			Status: c.Status,
			Image:  c.Image,
			Labels: c.Labels,
		}
		if len(c.Names) > 0 {
			// Docker reports names with a leading slash.
			s.Name = trimSlash(c.Names[0])
		}
		summaries = append(summaries, s)
	}

	return summaries, nil
}

// Create creates a container from the spec.
func (e *DockerEngine) Create(ctx context.Context, spec CreateSpec) (string, error) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range spec.Ports {
		port := nat.Port(fmt.Sprintf("%d/%s", p.ContainerPort, p.Proto()))
		exposed[port] = struct{}{}
		bindings[port] = append(bindings[port], nat.PortBinding{
			HostIP:   "0.0.0.0",
			HostPort: strconv.Itoa(p.HostPort),
		})
	}

	cfg := &container.Config{
		Image:        spec.Image,
		Labels:       spec.Labels,
		Env:          spec.Env,
		Entrypoint:   spec.Entrypoint,
		Tty:          spec.TTY,
		OpenStdin:    spec.OpenStdin,
		ExposedPorts: exposed,
	}

	hostCfg := &container.HostConfig{
		PortBindings: bindings,
		Resources:    toResources(spec.Limits),
	}

	resp, err := e.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container %s: %w", spec.Name, err)
	}

	return resp.ID, nil
}

// Start starts a container.
func (e *DockerEngine) Start(ctx context.Context, name string) error {
	if err := e.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return wrapNotFound(fmt.Errorf("failed to start container %s: %w", name, err), err)
	}
	return nil
}

// Stop stops a container, killing it after the grace period.
func (e *DockerEngine) Stop(ctx context.Context, name string, grace time.Duration) error {
	seconds := int(grace.Seconds())
	if err := e.cli.ContainerStop(ctx, name, container.StopOptions{Timeout: &seconds}); err != nil {
		return wrapNotFound(fmt.Errorf("failed to stop container %s: %w", name, err), err)
	}
	return nil
}

// Remove deletes a container.
func (e *DockerEngine) Remove(ctx context.Context, name string, force, volumes bool) error {
	err := e.cli.ContainerRemove(ctx, name, container.RemoveOptions{
		Force:         force,
		RemoveVolumes: volumes,
	})
	if err != nil {
		return wrapNotFound(fmt.Errorf("failed to remove container %s: %w", name, err), err)
	}
	return nil
}

// Inspect looks a container up.
func (e *DockerEngine) Inspect(ctx context.Context, name string) (Detail, error) {
	info, err := e.cli.ContainerInspect(ctx, name)
	if err != nil {
		return Detail{}, wrapNotFound(fmt.Errorf("failed to inspect container %s: %w", name, err), err)
	}

	detail := Detail{
		ID:   info.ID,
		Name: trimSlash(info.Name),
	}
	if info.State != nil {
		detail.Running = info.State.Running
	}

	return detail, nil
}

// Attach opens a hijacked stdio connection to a container. The container
// must have been created with TTY and OpenStdin, which makes the output a
// single raw byte stream rather than a multiplexed one.
func (e *DockerEngine) Attach(ctx context.Context, name string) (*AttachStream, error) {
	resp, err := e.cli.ContainerAttach(ctx, name, container.AttachOptions{
		Stream: true,
		Stdin:  true,
		Stdout: true,
		Stderr: true,
		Logs:   true,
	})
	if err != nil {
		return nil, wrapNotFound(fmt.Errorf("failed to attach to container %s: %w", name, err), err)
	}

	return NewAttachStream(resp.Reader, resp.Conn, func() error {
		resp.Close()
		return nil
	}), nil
}

// Stats takes a one-shot stats reading and extracts the raw counters.
func (e *DockerEngine) Stats(ctx context.Context, name string) (RawStats, error) {
	resp, err := e.cli.ContainerStatsOneShot(ctx, name)
	if err != nil {
		return RawStats{}, wrapNotFound(fmt.Errorf("failed to read stats for %s: %w", name, err), err)
	}
	defer resp.Body.Close()

	var stats container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return RawStats{}, fmt.Errorf("failed to decode stats for %s: %w", name, err)
	}

	raw := RawStats{
		CPUTotal:     stats.CPUStats.CPUUsage.TotalUsage,
		PreCPUTotal:  stats.PreCPUStats.CPUUsage.TotalUsage,
		SystemCPU:    stats.CPUStats.SystemUsage,
		PreSystemCPU: stats.PreCPUStats.SystemUsage,
		OnlineCPUs:   stats.CPUStats.OnlineCPUs,
		MemUsage:     stats.MemoryStats.Usage,
		MemLimit:     stats.MemoryStats.Limit,
	}

	// The agent reports the first interface only; managed containers get a
	// single bridge interface.
	for _, netStats := range stats.Networks {
		raw.NetRx = netStats.RxBytes
		raw.NetTx = netStats.TxBytes
		break
	}

	return raw, nil
}

// toResources maps the limit set onto the engine's resource knobs. Memory
// and swap are given in MB; docker wants bytes, with MemorySwap holding
// memory+swap combined.
func toResources(limits types.ResourceLimits) container.Resources {
	res := container.Resources{}

	if limits.MemoryMB > 0 {
		res.Memory = limits.MemoryMB * 1024 * 1024
		res.MemorySwap = (limits.MemoryMB + limits.SwapMB) * 1024 * 1024
	}
	if limits.CPUPercent > 0 {
		res.CPUPeriod = cpuPeriod
		res.CPUQuota = limits.CPUPercent * cpuPeriod / 100
	}
	if limits.IOWeight > 0 {
		res.BlkioWeight = limits.IOWeight
	}

	return res
}

// wrapNotFound folds the daemon's not-found class into ErrNoSuchContainer
// so callers can distinguish it without importing docker types.
func wrapNotFound(wrapped, original error) error {
	if errdefs.IsNotFound(original) {
		return fmt.Errorf("%w: %v", ErrNoSuchContainer, wrapped)
	}
	return wrapped
}

func trimSlash(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name[1:]
	}
	return name
}

var _ Engine = (*DockerEngine)(nil)
