package rotation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nodegrid/nodegrid/pkg/credential"
)

// NodeRef identifies a node to the controller-side coordinator.
type NodeRef struct {
	ID      string // node identity
	Address string // agent base address, e.g. "http://10.0.0.5:8080"
	Token   string // current canonical token
}

// TokenSink persists a committed token as the node's canonical credential
// (the panel's database, in production).
type TokenSink interface {
	PersistToken(ctx context.Context, nodeID, token string) error
}

// Coordinator executes the controller side of a token rotation: generate a
// candidate, record it as pending with a short TTL, propose it to the agent
// under the old token, and commit or abandon based on the agent's answer.
type Coordinator struct {
	pending *credential.PendingStore
	sink    TokenSink
	client  *http.Client
	ttl     time.Duration
	log     zerolog.Logger
}

// NewCoordinator creates a controller-side rotation coordinator.
func NewCoordinator(pending *credential.PendingStore, sink TokenSink, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		pending: pending,
		sink:    sink,
		client:  &http.Client{Timeout: 15 * time.Second},
		ttl:     credential.DefaultPendingTTL,
		log:     logger,
	}
}

// Rotate runs one rotation against a node and returns the new token on
// commit. On any failure the old token stays canonical; the agent is
// expected to have already reverted on its side. The pending record is
// deleted on commit and otherwise left to expire.
func (c *Coordinator) Rotate(ctx context.Context, node NodeRef) (string, error) {
	newToken, err := credential.GenerateToken()
	if err != nil {
		return "", err
	}

	c.pending.Put(node.ID, newToken, c.ttl)
	c.log.Info().Str("node_id", node.ID).Msg("rotation proposed")

	if err := c.propose(ctx, node, newToken); err != nil {
		c.log.Warn().Err(err).Str("node_id", node.ID).Msg("rotation not confirmed, keeping old token")
		return "", fmt.Errorf("rotation rejected by node %s: %w", node.ID, err)
	}

	if err := c.sink.PersistToken(ctx, node.ID, newToken); err != nil {
		// The agent has already committed the new token. Keep the pending
		// record alive so the node stays authorized until the operator
		// resolves the persistence failure.
		c.log.Error().Err(err).Str("node_id", node.ID).Msg("rotation confirmed but not persisted")
		return "", fmt.Errorf("failed to persist rotated token for node %s: %w", node.ID, err)
	}

	c.pending.Delete(node.ID)
	c.log.Info().Str("node_id", node.ID).Msg("rotation committed")
	return newToken, nil
}

// propose POSTs the candidate token to the agent's token-update endpoint,
// authenticated with the old token.
func (c *Coordinator) propose(ctx context.Context, node NodeRef, newToken string) error {
	body, err := json.Marshal(UpdateRequest{Token: newToken})
	if err != nil {
		return fmt.Errorf("failed to encode token update: %w", err)
	}

	url := strings.TrimRight(node.Address, "/") + "/v1/update-token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build token update request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+node.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("agent answered status %d", resp.StatusCode)
	}

	return nil
}

// Authorize is the controller-side credential check for node-originated
// requests: the presented token must equal the node's canonical token or
// its unexpired pending token. The pending fallback covers the window where
// the agent already runs the new token but the controller has not yet made
// it canonical.
func Authorize(nodeID, canonical, presented string, pending *credential.PendingStore) bool {
	if presented != "" && presented == canonical {
		return true
	}
	return pending.Match(nodeID, presented)
}
