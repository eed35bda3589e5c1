/*
Package network provides the host port availability checker used by
container creation.

A port is considered free when a TCP listener can be bound to it at probe
time. The check is inherently racy against other processes on the host; it
exists to fail fast on the common case (a port the operator already gave to
another workload), not to arbitrate ownership; that is the panel's job.

	checker := network.NewPortChecker()
	if occupied := checker.Occupied(bindings); len(occupied) > 0 {
		return types.NewPortConflictError(occupied)
	}
*/
package network
