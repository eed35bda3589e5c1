package rotation

// State names the phases of the two-phase token rotation protocol. Both
// sides walk the same machine:
//
//	Stable -> Proposed -> Committed
//	                   -> RolledBack
//
// Stable means one token is canonical and no rotation is in flight.
// Proposed means a candidate token exists (pending on the controller,
// tentatively live for outbound verification on the agent). Committed and
// RolledBack are terminal for that rotation; both collapse back to Stable
// with the winning token.
type State string

const (
	StateStable     State = "stable"
	StateProposed   State = "proposed"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

// UpdateRequest is the token-update message the controller POSTs to the
// agent.
type UpdateRequest struct {
	Token string `json:"token"`
}
