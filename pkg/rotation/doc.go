/*
Package rotation implements the two-phase credential rotation protocol run
jointly by the panel and the agent, designed so a node is never left
unreachable by a half-applied rotation.

# Protocol

Controller side (Coordinator):

 1. Generate a random 32-character alphanumeric token.
 2. Record it as a pending token with a ~60s TTL.
 3. POST it to the agent's token-update endpoint under the old token.
 4. On success, persist the new token as canonical and drop the pending
    record; otherwise the old token stays canonical.

Agent side (Rotator):

 1. Tentatively swap the in-memory credential so the verification probe
    can authenticate as the new identity.
 2. Send a dummy heartbeat to the panel with the new token.
 3. On probe success, persist the new token into the local config file;
    a persistence failure reverts and reports failure.
 4. On probe failure, revert immediately and report failure.

The window where the candidate is live for outbound verification but not
yet accepted inbound is bounded to the single probe round-trip. During the
rotation window the controller's Authorize helper also honors the pending
token, covering the race between its own checks and the agent's commit.

Concurrent rotations against one agent are not guarded here: the panel
serializes rotations per node.
*/
package rotation
