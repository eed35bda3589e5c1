package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// downloadPath is where the panel publishes the agent binary.
const downloadPath = "/public/nodegrid-agent"

// Updater downloads a new agent binary and swaps it into place with an
// OS-level atomic rename sequence. No in-process hot-swap is attempted:
// on success the process exits so a supervisor relaunches the new binary.
type Updater struct {
	panelURL string
	client   *http.Client
	log      zerolog.Logger

	// Swappable in tests.
	executable func() (string, error)
	rename     func(oldpath, newpath string) error
	exit       func(code int)
}

// NewUpdater creates a self-update executor. The HTTP client carries no
// request timeout: a stalled download blocks only the one detached update
// goroutine, never request handling.
func NewUpdater(panelURL string, logger zerolog.Logger) *Updater {
	return &Updater{
		panelURL:   panelURL,
		client:     &http.Client{},
		log:        logger,
		executable: os.Executable,
		rename:     os.Rename,
		exit:       os.Exit,
	}
}

// Trigger schedules the update in a detached goroutine so the triggering
// request can return immediately.
func (u *Updater) Trigger() {
	go func() {
		// Give the triggering response time to flush before a potential
		// process exit.
		time.Sleep(time.Second)

		if err := u.Apply(context.Background()); err != nil {
			u.log.Error().Err(err).Msg("self-update failed")
			return
		}

		u.log.Info().Msg("self-update installed, exiting for supervisor relaunch")
		u.exit(0)
	}()
}

// Apply performs the update: fetch, stage, back up, swap.
//
// Any failure before the final rename leaves the running process and its
// binary untouched. A failure at the final rename restores the backup to
// the live path and reports the failure; if the filesystem itself is
// faulty that restore can fail too, which is logged, not retried.
func (u *Updater) Apply(ctx context.Context) error {
	data, err := u.download(ctx)
	if err != nil {
		return err
	}

	exe, err := u.executable()
	if err != nil {
		return fmt.Errorf("failed to locate current executable: %w", err)
	}
	tmp := exe + ".tmp"
	backup := exe + ".bak"

	if err := os.WriteFile(tmp, data, 0o755); err != nil {
		return fmt.Errorf("failed to stage new binary: %w", err)
	}
	// WriteFile only applies the mode on create; force it in case the
	// staging path already existed.
	if err := os.Chmod(tmp, 0o755); err != nil {
		return fmt.Errorf("failed to mark new binary executable: %w", err)
	}

	// Retiring the old binary to the backup path is the commit point.
	if _, err := os.Stat(exe); err == nil {
		if err := u.rename(exe, backup); err != nil {
			return fmt.Errorf("failed to back up current binary: %w", err)
		}
	}

	if err := u.rename(tmp, exe); err != nil {
		if _, statErr := os.Stat(backup); statErr == nil {
			if rbErr := u.rename(backup, exe); rbErr != nil {
				u.log.Error().Err(rbErr).Msg("rollback of previous binary failed")
			}
		}
		return fmt.Errorf("failed to install new binary: %w", err)
	}

	// The backup stays in place for manual rollback; it is not pruned here.
	return nil
}

func (u *Updater) download(ctx context.Context) ([]byte, error) {
	url := strings.TrimRight(u.panelURL, "/") + downloadPath
	u.log.Info().Str("url", url).Msg("downloading agent update")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("update download rejected with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read update body: %w", err)
	}

	return data, nil
}
