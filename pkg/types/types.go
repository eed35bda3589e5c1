package types

import "fmt"

const (
	// ManagedLabel marks a container as owned by the nodegrid agent. It is
	// the sole discriminator used when listing managed containers and must
	// never change between releases.
	ManagedLabel = "nodegrid.managed"

	// ManagedLabelValue is the value stored under ManagedLabel.
	ManagedLabelValue = "true"

	// DescriptorLabel stores the workload descriptor on the container so it
	// can be recovered from an engine listing.
	DescriptorLabel = "nodegrid.descriptor"

	// ContainerNamePrefix prefixes every engine-level container name.
	ContainerNamePrefix = "nodegrid-"
)

// Descriptor is the stable external identifier of a managed workload,
// assigned by the panel (a workload UUID). It maps deterministically to an
// engine-level container name.
type Descriptor string

// ContainerName returns the engine-level container name for the descriptor.
func (d Descriptor) ContainerName() string {
	return ContainerNamePrefix + string(d)
}

// String implements fmt.Stringer.
func (d Descriptor) String() string { return string(d) }

// ResourceLimits is the resource limit set applied to a container at
// creation time. Limits are immutable after creation; changing them requires
// recreating the container.
type ResourceLimits struct {
	// MemoryMB is the memory limit in megabytes. Zero means unlimited.
	MemoryMB int64 `json:"memory_mb"`

	// SwapMB is the additional swap allowance in megabytes. Zero means no
	// swap beyond the memory limit.
	SwapMB int64 `json:"swap_mb"`

	// CPUPercent is the CPU limit as a percentage of a single core
	// (100 = one full core, 200 = two cores). Zero means unlimited.
	CPUPercent int64 `json:"cpu_percent"`

	// IOWeight is the relative block I/O weight (10-1000). Zero leaves the
	// engine default in place.
	IOWeight uint16 `json:"io_weight"`
}

// PortBinding maps a container port to a host port. A workload may have any
// number of bindings, including none (images that do not require a port).
type PortBinding struct {
	ContainerPort int    `json:"container_port"`
	HostPort      int    `json:"host_port"`
	Protocol      string `json:"protocol,omitempty"` // "tcp" (default) or "udp"
}

// Proto returns the binding protocol, defaulting to tcp.
func (p PortBinding) Proto() string {
	if p.Protocol == "" {
		return "tcp"
	}
	return p.Protocol
}

// ContainerInfo is the agent's view of a managed container, translated from
// the engine's representation. Fields the engine did not report degrade to
// "unknown" rather than failing the listing.
type ContainerInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	State      string     `json:"state"`
	Status     string     `json:"status"`
	Image      string     `json:"image"`
	Descriptor Descriptor `json:"descriptor,omitempty"`
}

// ContainerStats is a point-in-time resource reading for one container.
type ContainerStats struct {
	CPUPct   float64 `json:"cpu_pct"`
	RAMUsed  uint64  `json:"ram_used"`
	RAMTotal uint64  `json:"ram_total"`
	NetRx    uint64  `json:"net_rx"`
	NetTx    uint64  `json:"net_tx"`
}

// CreateResult identifies a freshly created container.
type CreateResult struct {
	ContainerID   string `json:"container_id"`
	ContainerName string `json:"container_name"`
}

// DeleteResult reports the outcome of a container deletion.
type DeleteResult struct {
	// WasRunning is true when the container was running at deletion time.
	WasRunning bool `json:"was_running"`
}

// Validate rejects bindings with out-of-range ports.
func (p PortBinding) Validate() error {
	if p.HostPort < 1 || p.HostPort > 65535 {
		return fmt.Errorf("host port %d out of range", p.HostPort)
	}
	if p.ContainerPort < 1 || p.ContainerPort > 65535 {
		return fmt.Errorf("container port %d out of range", p.ContainerPort)
	}
	return nil
}
