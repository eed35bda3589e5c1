package network

import (
	"fmt"
	"net"

	"github.com/nodegrid/nodegrid/pkg/types"
)

// PortChecker probes whether host TCP ports are currently bindable. The
// probe is local to this node: cluster-wide allocation is the panel's job,
// the agent only verifies that nothing on this host already holds the port.
type PortChecker struct {
	// listen is swappable in tests.
	listen func(network, address string) (net.Listener, error)
}

// NewPortChecker creates a checker using the real network stack.
func NewPortChecker() *PortChecker {
	return &PortChecker{listen: net.Listen}
}

// IsFree reports whether the given TCP port can be bound right now.
func (c *PortChecker) IsFree(port int) bool {
	l, err := c.listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	l.Close()
	return true
}

// Occupied returns every host port from the requested bindings that is
// already bound, deduplicated. An empty result means all ports are free.
func (c *PortChecker) Occupied(bindings []types.PortBinding) []int {
	seen := make(map[int]bool)
	var occupied []int

	for _, b := range bindings {
		if seen[b.HostPort] {
			continue
		}
		seen[b.HostPort] = true

		if !c.IsFree(b.HostPort) {
			occupied = append(occupied, b.HostPort)
		}
	}

	return occupied
}
