package main

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livecap/livecap/internal/capture"
	"github.com/livecap/livecap/internal/engine"
	"github.com/livecap/livecap/internal/model"
	"github.com/livecap/livecap/internal/registry"
	"github.com/livecap/livecap/internal/server"
	"github.com/livecap/livecap/internal/store"
)

func init() { gin.SetMode(gin.TestMode) }

type cliHandle struct{ path string }

func (h *cliHandle) Alive() bool              { return true }
func (h *cliHandle) Terminate() error         { return nil }
func (h *cliHandle) Wait(time.Duration) error { return nil }
func (h *cliHandle) StderrTail() string       { return "" }
func (h *cliHandle) OutputPath() string       { return h.path }
func (h *cliHandle) StartTime() int64         { return time.Now().UnixMilli() }

type cliLauncher struct{}

func (cliLauncher) Launch(spec capture.Spec) (registry.Handle, error) {
	return &cliHandle{path: spec.OutputPath}, nil
}

type cliResolver struct{}

func (cliResolver) Resolve(_ context.Context, url string) (*model.LiveDescriptor, error) {
	return &model.LiveDescriptor{
		URL:          url,
		AnchorName:   "anchor",
		Status:       model.LiveStatusLive,
		PlatformKind: model.PlatformKindOf(url),
		Streams:      []model.Stream{{URL: "http://cdn.example.com/s.flv", Protocol: model.ProtocolFlv}},
	}, nil
}

func startTestDaemon(t *testing.T) string {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "livecap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	eng := engine.New(st, registry.New(), cliLauncher{}, cliResolver{})
	srv := httptest.NewServer(server.NewRouter(eng, st, cliResolver{}, "").Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func runCLI(t *testing.T, apiURL string, args ...string) error {
	t.Helper()
	root := buildRoot()
	root.SetArgs(append(args, "--api-url="+apiURL))
	return root.Execute()
}

func TestCLIRecordLifecycle(t *testing.T) {
	api := startTestDaemon(t)
	url := "https://live.douyin.com/123"

	require.NoError(t, runCLI(t, api, "start", url))
	require.NoError(t, runCLI(t, api, "status", url))
	assert.Error(t, runCLI(t, api, "start", url), "second start conflicts")
	require.NoError(t, runCLI(t, api, "stop", url))
	require.NoError(t, runCLI(t, api, "history", "list"))
}

func TestCLIPlanCommands(t *testing.T) {
	api := startTestDaemon(t)
	url := "https://live.douyin.com/123"

	require.NoError(t, runCLI(t, api, "plan", "add", url, "--protocol=Hls"))
	require.NoError(t, runCLI(t, api, "plan", "list"))
	require.NoError(t, runCLI(t, api, "plan", "disable", url))
	require.NoError(t, runCLI(t, api, "plan", "enable", url))
	require.NoError(t, runCLI(t, api, "plan", "polling-time"))
	require.NoError(t, runCLI(t, api, "plan", "remove", url))
	assert.Error(t, runCLI(t, api, "plan", "enable", url), "plan is gone")
}

func TestCLIConfigCommands(t *testing.T) {
	api := startTestDaemon(t)

	require.NoError(t, runCLI(t, api, "config", "get"))
	require.NoError(t, runCLI(t, api, "config", "set", "--save-path=/srv/recordings", "--interval=30"))
}

func TestCLIResolve(t *testing.T) {
	api := startTestDaemon(t)
	require.NoError(t, runCLI(t, api, "resolve", "https://live.douyin.com/123"))
}

func TestCLIUnreachableDaemon(t *testing.T) {
	err := runCLI(t, "http://127.0.0.1:1", "status", "https://live.douyin.com/123", "--api-timeout=200ms")
	assert.Error(t, err)
}
