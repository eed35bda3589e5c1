package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodegrid/nodegrid/pkg/config"
	"github.com/nodegrid/nodegrid/pkg/console"
	"github.com/nodegrid/nodegrid/pkg/credential"
	"github.com/nodegrid/nodegrid/pkg/engine"
	"github.com/nodegrid/nodegrid/pkg/lifecycle"
	"github.com/nodegrid/nodegrid/pkg/network"
	"github.com/nodegrid/nodegrid/pkg/rotation"
	"github.com/nodegrid/nodegrid/pkg/types"
	"github.com/nodegrid/nodegrid/pkg/update"
)

const (
	testToken      = "test-token-abcdefghijklmnopqrstuv"
	testDescriptor = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
)

// fakeEngine is the minimal engine the handler tests need.
type fakeEngine struct {
	listOut    []engine.Summary
	listErr    error
	createErr  error
	startErr   error
	stopErr    error
	removeErr  error
	inspectOut engine.Detail
	inspectErr error
	statsOut   engine.RawStats
	statsErr   error
	attachErr  error
}

func (f *fakeEngine) List(ctx context.Context, labelFilter string) ([]engine.Summary, error) {
	return f.listOut, f.listErr
}

func (f *fakeEngine) Create(ctx context.Context, spec engine.CreateSpec) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return "cid-" + spec.Name, nil
}

func (f *fakeEngine) Start(ctx context.Context, name string) error { return f.startErr }

func (f *fakeEngine) Stop(ctx context.Context, name string, grace time.Duration) error {
	return f.stopErr
}

func (f *fakeEngine) Remove(ctx context.Context, name string, force, volumes bool) error {
	return f.removeErr
}

func (f *fakeEngine) Inspect(ctx context.Context, name string) (engine.Detail, error) {
	return f.inspectOut, f.inspectErr
}

func (f *fakeEngine) Attach(ctx context.Context, name string) (*engine.AttachStream, error) {
	if f.attachErr != nil {
		return nil, f.attachErr
	}
	// Echo container: everything written to stdin comes back as output.
	r, w := io.Pipe()
	return engine.NewAttachStream(r, w, func() error {
		r.Close()
		w.Close()
		return nil
	}), nil
}

func (f *fakeEngine) Stats(ctx context.Context, name string) (engine.RawStats, error) {
	return f.statsOut, f.statsErr
}

var _ engine.Engine = (*fakeEngine)(nil)

type fixture struct {
	server *Server
	ts     *httptest.Server
	creds  *credential.Store
	cfg    *config.Config
}

func newFixture(t *testing.T, eng engine.Engine, pending PendingMatcher) *fixture {
	t.Helper()

	creds := credential.NewStore(testToken)
	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	cfg := &config.Config{Token: testToken, NodeID: "node-1", PanelURL: "https://panel", Port: 8080}
	require.NoError(t, cfg.Save(cfgPath))

	probe := func(ctx context.Context, token string) error { return nil }

	s := NewServer(Config{
		Manager: lifecycle.NewManager(eng, network.NewPortChecker(), zerolog.Nop()),
		Bridge:  console.NewBridge(eng, zerolog.Nop()),
		Rotator: rotation.NewRotator(creds, cfg, cfgPath, probe, zerolog.Nop()),
		Updater: update.NewUpdater("http://127.0.0.1:1", zerolog.Nop()),
		Creds:   creds,
		Pending: pending,
		Version: "test",
		Logger:  zerolog.Nop(),
	})

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return &fixture{server: s, ts: ts, creds: creds, cfg: cfg}
}

func (f *fixture) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, f.ts.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthIsPublic(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, nil)

	resp := f.request(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[healthResponse](t, resp)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.Version)
}

func TestAuthenticationIsOpaque(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, nil)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"wrong token", "wrong"},
		{"empty bearer", " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.request(t, http.MethodGet, "/v1/containers", tt.token, nil)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			body := decodeBody[errorResponse](t, resp)
			assert.Equal(t, "unauthorized", body.Error,
				"auth failures never explain themselves")
		})
	}
}

func TestPendingTokenAccepted(t *testing.T) {
	pending := func(token string) bool { return token == "pending-tok" }
	f := newFixture(t, &fakeEngine{}, pending)

	resp := f.request(t, http.MethodGet, "/v1/containers", "pending-tok", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/v1/containers", "other", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListContainers(t *testing.T) {
	eng := &fakeEngine{listOut: []engine.Summary{{
		ID:    "cid-1",
		Name:  "nodegrid-" + testDescriptor,
		State: "running",
		Image: "nginx:latest",
		Labels: map[string]string{
			types.ManagedLabel:    types.ManagedLabelValue,
			types.DescriptorLabel: testDescriptor,
		},
	}}}
	f := newFixture(t, eng, nil)

	resp := f.request(t, http.MethodGet, "/v1/containers", testToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	infos := decodeBody[[]types.ContainerInfo](t, resp)
	require.Len(t, infos, 1)
	assert.Equal(t, types.Descriptor(testDescriptor), infos[0].Descriptor)
}

func TestCreateContainer(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, nil)

	resp := f.request(t, http.MethodPost, "/v1/containers", testToken, CreateContainerRequest{
		Descriptor: testDescriptor,
		Image:      "nginx:latest",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	result := decodeBody[types.CreateResult](t, resp)
	assert.Equal(t, "nodegrid-"+testDescriptor, result.ContainerName)
}

func TestCreateContainerBadDescriptor(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, nil)

	resp := f.request(t, http.MethodPost, "/v1/containers", testToken, CreateContainerRequest{
		Descriptor: "not-a-uuid",
		Image:      "nginx:latest",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateContainerMalformedBody(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, nil)

	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/v1/containers", strings.NewReader("{broken"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)

	resp, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateContainerPortConflict(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	f := newFixture(t, &fakeEngine{}, nil)

	resp := f.request(t, http.MethodPost, "/v1/containers", testToken, CreateContainerRequest{
		Descriptor: testDescriptor,
		Image:      "nginx:latest",
		Ports:      []types.PortBinding{{ContainerPort: 80, HostPort: port}},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	body := decodeBody[errorResponse](t, resp)
	assert.Equal(t, []int{port}, body.OccupiedPorts)
}

func TestCreateContainerEngineFailure(t *testing.T) {
	f := newFixture(t, &fakeEngine{createErr: errors.New("image not found locally")}, nil)

	resp := f.request(t, http.MethodPost, "/v1/containers", testToken, CreateContainerRequest{
		Descriptor: testDescriptor,
		Image:      "nope:latest",
	})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeBody[errorResponse](t, resp)
	assert.Contains(t, body.Error, "image not found locally",
		"the panel needs the engine's words")
}

func TestDeleteContainer(t *testing.T) {
	eng := &fakeEngine{inspectOut: engine.Detail{ID: "cid", Running: true}}
	f := newFixture(t, eng, nil)

	resp := f.request(t, http.MethodDelete, "/v1/containers/"+testDescriptor, testToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody[types.DeleteResult](t, resp)
	assert.True(t, result.WasRunning)
}

func TestDeleteMissingContainer(t *testing.T) {
	eng := &fakeEngine{inspectErr: engine.ErrNoSuchContainer}
	f := newFixture(t, eng, nil)

	resp := f.request(t, http.MethodDelete, "/v1/containers/"+testDescriptor, testToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartAndStop(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, nil)

	resp := f.request(t, http.MethodPost, "/v1/containers/"+testDescriptor+"/start", testToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.request(t, http.MethodPost, "/v1/containers/"+testDescriptor+"/stop", testToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStartFailureIsInternal(t *testing.T) {
	f := newFixture(t, &fakeEngine{startErr: errors.New("no such container")}, nil)

	resp := f.request(t, http.MethodPost, "/v1/containers/"+testDescriptor+"/start", testToken, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestStatsMissingContainer(t *testing.T) {
	f := newFixture(t, &fakeEngine{statsErr: engine.ErrNoSuchContainer}, nil)

	resp := f.request(t, http.MethodGet, "/v1/containers/"+testDescriptor+"/stats", testToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateTokenRotatesCredential(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, nil)

	resp := f.request(t, http.MethodPost, "/v1/update-token", testToken,
		rotation.UpdateRequest{Token: "rotated-token"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The old token is dead, the new one works.
	resp = f.request(t, http.MethodGet, "/v1/containers", testToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/v1/containers", "rotated-token", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdateTokenEmpty(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, nil)

	resp := f.request(t, http.MethodPost, "/v1/update-token", testToken,
		rotation.UpdateRequest{Token: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The original token still authenticates.
	resp = f.request(t, http.MethodGet, "/v1/containers", testToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSelfUpdateSchedules(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, nil)

	resp := f.request(t, http.MethodPost, "/v1/self-update", testToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[statusResponse](t, resp)
	assert.Equal(t, "success", body.Status)
}

func TestMetricsRequiresCredential(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, nil)

	resp := f.request(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/metrics", testToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
