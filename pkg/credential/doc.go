/*
Package credential holds the agent's bearer token and the controller-side
pending tokens used during rotation.

Store is the single source of truth for the current credential. It is an
explicitly owned read/write-locked cell passed into every component at
construction, not a singleton, and all access goes through accessors that
bound the lock to the string swap, never across I/O.

PendingStore records the short-lived candidate token the controller
proposes during a rotation (default TTL 60s). It exists so authorization
can accept the candidate while the two-phase handshake is still in flight;
expired entries never match, independent of any sweep schedule.

GenerateToken produces the 32-character alphanumeric tokens both sides of
the protocol exchange.
*/
package credential
