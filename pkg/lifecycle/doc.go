/*
Package lifecycle orchestrates workload container create/start/stop/delete
workflows on top of the engine adapter.

# Create

Creation is fail-fast: every requested host port is probed before the
engine is touched, and a single conflict rejects the whole request with the
full list of occupied ports. The container is created with the management
and descriptor labels, the startup command wrapped under /bin/sh -c, TTY
and stdin enabled for later console attachment, and the resource limit set
applied. If the subsequent start fails, the fresh container is force-removed
(best effort, logged) and the original start error is returned. A failed
create leaves no partial state behind.

# Delete

Deletion stops a running container with a bounded grace period (10s); a
stop failure is logged but never blocks the force-removal of the container
and its volumes. The result reports whether the container had been running.

# Failure semantics

Engine failures are classed as internal errors with the underlying message
attached. The manager never retries; a missing container surfaces as a
not-found error where the contract defines one (Delete, Stats).
*/
package lifecycle
