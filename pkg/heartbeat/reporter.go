package heartbeat

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

// DefaultInterval is how often the reporter pushes a sample.
const DefaultInterval = 5 * time.Second

// IngestURL builds the panel's heartbeat-ingest endpoint for a node.
func IngestURL(panelURL, nodeID string) string {
	return fmt.Sprintf("%s/api/nodes/%s/heartbeat", strings.TrimRight(panelURL, "/"), nodeID)
}

// Push sends one sample to the panel authenticated with the given token.
// A non-2xx response is an error; the caller decides whether that matters.
func Push(ctx context.Context, client *http.Client, panelURL, nodeID, token string, sample Sample) error {
	body, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to encode heartbeat: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, IngestURL(panelURL, nodeID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build heartbeat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send heartbeat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("heartbeat rejected with status %d", resp.StatusCode)
	}

	return nil
}

// Reporter pushes periodic samples to the panel for the lifetime of the
// process. Delivery is best-effort: a failed push is logged and the loop
// simply continues at the next tick with no retry, backoff or queueing.
type Reporter struct {
	sampler  Sampler
	creds    *credential.Store
	client   *http.Client
	panelURL string
	nodeID   string
	interval time.Duration
	log      zerolog.Logger
	onPush   func(err error)
}

// NewReporter creates a heartbeat reporter.
func NewReporter(sampler Sampler, creds *credential.Store, panelURL, nodeID string, logger zerolog.Logger) *Reporter {
	return &Reporter{
		sampler:  sampler,
		creds:    creds,
		client:   &http.Client{Timeout: 10 * time.Second},
		panelURL: panelURL,
		nodeID:   nodeID,
		interval: DefaultInterval,
		log:      logger,
	}
}

// SetOnPush installs a hook invoked after every push attempt, used for
// metrics.
func (r *Reporter) SetOnPush(fn func(err error)) { r.onPush = fn }

// Run ticks until the context is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Msg("heartbeat reporter started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("heartbeat reporter stopped")
			return
		case now := <-ticker.C:
			r.tick(ctx, now)
		}
	}
}

func (r *Reporter) tick(ctx context.Context, now time.Time) {
	sample, err := r.sampler.Sample(now)
	if err != nil {
		r.log.Error().Err(err).Msg("heartbeat sampling failed")
		return
	}

	err = Push(ctx, r.client, r.panelURL, r.nodeID, r.creds.Get(), sample)
	if err != nil {
		r.log.Warn().Err(err).Msg("heartbeat push failed")
	}
	if r.onPush != nil {
		r.onPush(err)
	}
}
