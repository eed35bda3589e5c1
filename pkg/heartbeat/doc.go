/*
Package heartbeat samples the node's resource state and pushes it to the
panel on a fixed 5 second interval.

Each sample carries CPU utilization, memory usage, per-disk usage and I/O
rates, network RX/TX rates, uptime and the agent version. Rate fields are
deltas between successive raw counters via gopsutil: exactly zero on the
first tick, (counter delta / elapsed seconds) afterwards. Counter resets
read as zero rather than going negative.

Delivery is best-effort by design. A failed push is logged and forgotten;
each tick represents only the current instantaneous state, so there is
nothing worth queueing or replaying.

The Push helper is also used by the rotation protocol, which verifies a
proposed token by sending a dummy heartbeat with it before committing.
*/
package heartbeat
