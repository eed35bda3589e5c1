/*
Package types defines the core data structures and error classes shared by
every nodegrid agent package.

# Domain model

  - Descriptor: stable workload identifier assigned by the panel, mapped
    deterministically to an engine container name (nodegrid-<uuid>)
  - ResourceLimits: CPU/memory/swap/IO-weight bundle, immutable after create
  - PortBinding: container-port to host-port pair; a workload may have zero
  - ContainerInfo: translated engine listing entry (fields degrade to
    "unknown" on partial data)
  - ContainerStats: point-in-time CPU/RAM/network reading

# Labels

Containers created by the agent carry two labels:

	nodegrid.managed=true        ownership marker (listing discriminator)
	nodegrid.descriptor=<uuid>   reverse mapping to the workload

The managed label is a system invariant. Nothing else on the host is allowed
to carry it, and the agent never lists or touches containers without it.

# Error classes

Five sentinel errors partition every failure the agent surfaces:

	ErrConflict      requested host port already bound (user-correctable)
	ErrNotFound      no container for the descriptor
	ErrUnauthorized  bad credential (always opaque)
	ErrInternal      engine/transport failure, underlying message attached
	ErrPrecondition  malformed protocol usage

Use errors.Is against the sentinels; PortConflictError additionally carries
the full list of occupied ports.
*/
package types
