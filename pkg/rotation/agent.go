package rotation

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/nodegrid/nodegrid/pkg/config"
	"github.com/nodegrid/nodegrid/pkg/credential"
	"github.com/nodegrid/nodegrid/pkg/heartbeat"
	"github.com/nodegrid/nodegrid/pkg/types"
)

// ProbeFunc verifies a candidate token against the panel. The default
// implementation sends a dummy heartbeat authenticated with it.
type ProbeFunc func(ctx context.Context, token string) error

// Rotator executes the agent side of a token rotation.
//
// The agent never accepts inbound requests under an unverified token: the
// candidate is made current only so the outbound verification probe can
// run as the new identity, and that window is bounded to the single probe
// round-trip. Any failure on the way to durable persistence reverts the
// in-memory credential to the old value before the handler returns.
type Rotator struct {
	creds   *credential.Store
	cfg     *config.Config
	cfgPath string
	probe   ProbeFunc
	log     zerolog.Logger

	state atomic.Value // State
}

// NewRotator creates an agent-side rotator. probe may be nil, in which
// case a dummy-heartbeat probe against the configured panel is used.
func NewRotator(creds *credential.Store, cfg *config.Config, cfgPath string, probe ProbeFunc, logger zerolog.Logger) *Rotator {
	r := &Rotator{
		creds:   creds,
		cfg:     cfg,
		cfgPath: cfgPath,
		probe:   probe,
		log:     logger,
	}
	r.state.Store(StateStable)

	if r.probe == nil {
		client := &http.Client{Timeout: 10 * time.Second}
		r.probe = func(ctx context.Context, token string) error {
			sample := heartbeat.Sample{
				NodeID:    cfg.NodeID,
				Timestamp: time.Now().UnixMilli(),
			}
			return heartbeat.Push(ctx, client, cfg.PanelURL, cfg.NodeID, token, sample)
		}
	}

	return r
}

// State returns the phase of the most recent rotation. Concurrent
// rotations against the same agent are not guarded here; the panel
// serializes rotations per node.
func (r *Rotator) State() State {
	return r.state.Load().(State)
}

// Apply runs the agent-side protocol for a proposed token: optimistic
// in-memory switch, verification probe, durable persistence. Any failure
// reverts to the old token and reports the failure to the caller.
func (r *Rotator) Apply(ctx context.Context, newToken string) error {
	if newToken == "" {
		return types.Precondition("token must not be empty")
	}

	old := r.creds.Get()

	// Optimistic switch so the probe authenticates as the new identity.
	r.creds.Set(newToken)
	r.state.Store(StateProposed)
	r.log.Info().Msg("token rotation proposed, verifying against panel")

	if err := r.probe(ctx, newToken); err != nil {
		r.creds.Set(old)
		r.state.Store(StateRolledBack)
		r.log.Warn().Err(err).Msg("token verification failed, reverted to previous token")
		return fmt.Errorf("%w: token verification failed: %v", types.ErrUnauthorized, err)
	}

	r.cfg.Token = newToken
	if err := r.cfg.Save(r.cfgPath); err != nil {
		// The new token verified but cannot be made durable; a restart
		// would come back with the old token, so revert now.
		r.cfg.Token = old
		r.creds.Set(old)
		r.state.Store(StateRolledBack)
		r.log.Error().Err(err).Msg("failed to persist rotated token, reverted")
		return types.Internal("persist rotated token", err)
	}

	r.state.Store(StateCommitted)
	r.log.Info().Msg("token rotation committed")
	return nil
}
