/*
Package engine is the thin adapter between the agent and the local
container engine.

The Engine interface exposes exactly the capabilities the orchestration
layer needs: list by label, create, start, stop with a grace period,
force-remove, inspect, stdio attach, and one-shot stats. Nothing else.
The agent does not re-specify a container runtime; it layers an
orchestration contract on top of one.

DockerEngine is the production implementation, talking to the local Docker
daemon through the official client with API version negotiation. Containers
are created with TTY and open stdin so console sessions can attach later,
which also means attached output arrives as a single raw byte stream.

Engine errors are wrapped with their underlying message; the daemon's
not-found class is folded into ErrNoSuchContainer so callers can map it to
their own not-found semantics without importing docker types.

Stats returns raw counters (cpu totals, system cpu, memory, first-interface
network bytes); percentage math lives in the lifecycle manager where it can
be unit-tested.
*/
package engine
