/*
Package metrics exposes the agent's Prometheus instrumentation: lifecycle
operation counters, heartbeat push outcomes, rotation outcomes, console
session counts and API request totals.

Metrics are registered at init and served by Handler(), which the API
mounts at /metrics behind bearer authentication; the health check is the
agent's only unauthenticated endpoint.
*/
package metrics
