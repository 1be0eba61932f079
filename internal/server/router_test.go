package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livecap/livecap/internal/capture"
	"github.com/livecap/livecap/internal/engine"
	"github.com/livecap/livecap/internal/model"
	"github.com/livecap/livecap/internal/registry"
	"github.com/livecap/livecap/internal/store"
)

func init() { gin.SetMode(gin.TestMode) }

type stubHandle struct {
	mu    sync.Mutex
	alive bool
	path  string
	start int64
}

func (h *stubHandle) Alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alive
}

func (h *stubHandle) Terminate() error {
	h.mu.Lock()
	h.alive = false
	h.mu.Unlock()
	return nil
}

func (h *stubHandle) Wait(time.Duration) error { return nil }
func (h *stubHandle) StderrTail() string       { return "" }
func (h *stubHandle) OutputPath() string       { return h.path }
func (h *stubHandle) StartTime() int64         { return h.start }

type stubLauncher struct{}

func (stubLauncher) Launch(spec capture.Spec) (registry.Handle, error) {
	return &stubHandle{alive: true, path: spec.OutputPath, start: time.Now().UnixMilli()}, nil
}

type stubResolver struct {
	live *model.LiveDescriptor
	err  error
}

func (r *stubResolver) Resolve(context.Context, string) (*model.LiveDescriptor, error) {
	return r.live, r.err
}

type routerEnv struct {
	handler  http.Handler
	st       *store.Store
	resolver *stubResolver
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "livecap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	resolver := &stubResolver{}
	eng := engine.New(st, registry.New(), stubLauncher{}, resolver)
	r := NewRouter(eng, st, resolver, "")
	return &routerEnv{handler: r.Handler(), st: st, resolver: resolver}
}

func (e *routerEnv) do(t *testing.T, method, target string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestRecordStartStopStatus(t *testing.T) {
	env := newRouterEnv(t)
	url := "https://live.douyin.com/123"

	w, resp := env.do(t, http.MethodPost, "/record/start", map[string]any{
		"url":        url,
		"streamUrl":  "http://cdn.example.com/s.flv",
		"anchorName": "anchor",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)

	w, resp = env.do(t, http.MethodGet, "/record/status?url="+url, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"status": "Recording"}, resp.Data)

	// second start conflicts
	w, _ = env.do(t, http.MethodPost, "/record/start", map[string]any{
		"url":       url,
		"streamUrl": "http://cdn.example.com/s.flv",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, resp = env.do(t, http.MethodPost, "/record/stop?url="+url, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"status": "NotRecording"}, resp.Data)

	w, resp = env.do(t, http.MethodGet, "/record/status?url="+url, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"status": "NotRecording"}, resp.Data)
}

func TestRecordStartResolvesMissingStreamURL(t *testing.T) {
	env := newRouterEnv(t)
	url := "https://live.douyin.com/123"
	env.resolver.live = &model.LiveDescriptor{
		URL:          url,
		AnchorName:   "anchor",
		Status:       model.LiveStatusLive,
		PlatformKind: model.PlatformDouyin,
		Streams:      []model.Stream{{URL: "http://cdn.example.com/r.flv", Protocol: model.ProtocolFlv, Resolution: "origin"}},
	}

	w, _ := env.do(t, http.MethodPost, "/record/start", map[string]any{"url": url})
	require.Equal(t, http.StatusOK, w.Code)

	recording, err := env.st.IsRecording(context.Background(), url)
	require.NoError(t, err)
	assert.True(t, recording)
}

func TestRecordStartOfflineChannel(t *testing.T) {
	env := newRouterEnv(t)
	env.resolver.live = &model.LiveDescriptor{Status: model.LiveStatusNotLive}

	w, resp := env.do(t, http.MethodPost, "/record/start", map[string]any{"url": "https://live.douyin.com/1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, resp.Message, "not live")
}

func TestRecordStartResolveFailure(t *testing.T) {
	env := newRouterEnv(t)
	env.resolver.err = errors.New("blocked by captcha")

	w, _ := env.do(t, http.MethodPost, "/record/start", map[string]any{"url": "https://live.douyin.com/1"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRecordStartValidation(t *testing.T) {
	env := newRouterEnv(t)
	w, _ := env.do(t, http.MethodPost, "/record/start", map[string]any{"streamUrl": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = env.do(t, http.MethodPost, "/record/stop", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = env.do(t, http.MethodGet, "/record/status", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlanCRUD(t *testing.T) {
	env := newRouterEnv(t)
	url := "https://live.douyin.com/123"

	w, _ := env.do(t, http.MethodPost, "/plans", map[string]any{
		"url":            url,
		"streamProtocol": "Flv",
		"enabled":        true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := env.do(t, http.MethodGet, "/plans", nil)
	require.Equal(t, http.StatusOK, w.Code)
	plans, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, plans, 1)

	w, _ = env.do(t, http.MethodPost, "/plans/enabled?url="+url+"&enabled=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	plan, err := env.st.GetPlan(context.Background(), url)
	require.NoError(t, err)
	assert.False(t, plan.Enabled)

	w, _ = env.do(t, http.MethodDelete, "/plans?url="+url, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, err = env.st.GetPlan(context.Background(), url)
	assert.ErrorIs(t, err, store.ErrPlanNotFound)
}

func TestPlanSaveRejectsUnknownPlatform(t *testing.T) {
	env := newRouterEnv(t)

	w, resp := env.do(t, http.MethodPost, "/plans", map[string]any{
		"url":     "https://example.com/not-a-live-site",
		"enabled": true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Message, "unsupported platform")

	plans, err := env.st.Plans(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestPlanEnabledUnknownPlan(t *testing.T) {
	env := newRouterEnv(t)
	w, _ := env.do(t, http.MethodPost, "/plans/enabled?url=https://live.douyin.com/none", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPollingTimeEndpoint(t *testing.T) {
	env := newRouterEnv(t)
	require.NoError(t, env.st.MarkPollingTime(context.Background(), time.UnixMilli(123456)))

	w, resp := env.do(t, http.MethodGet, "/plans/polling-time", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"lastPollingTime": float64(123456)}, resp.Data)
}

func TestLiveResolveEndpoint(t *testing.T) {
	env := newRouterEnv(t)
	url := "https://live.douyin.com/123"
	env.resolver.live = &model.LiveDescriptor{URL: url, AnchorName: "anchor", Status: model.LiveStatusLive}

	w, resp := env.do(t, http.MethodGet, "/live?url="+url, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "anchor", data["anchorName"])

	// resolved state is cached
	live, err := env.st.GetLive(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, model.LiveStatusLive, live.Status)
}

func TestHistoryEndpoints(t *testing.T) {
	env := newRouterEnv(t)
	ctx := context.Background()
	url := "https://live.douyin.com/123"

	row := model.NewRecordingHistory(url, "/tmp/rec.ts")
	row.StartTime = 5000
	require.NoError(t, env.st.OpenHistory(ctx, row))
	_, err := env.st.CloseHistory(ctx, url)
	require.NoError(t, err)

	w, resp := env.do(t, http.MethodGet, "/histories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)

	w, _ = env.do(t, http.MethodDelete, "/histories?url="+url+"&start=5000", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/histories?url="+url+"&start=5000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/histories?url="+url, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfigEndpoints(t *testing.T) {
	env := newRouterEnv(t)

	w, resp := env.do(t, http.MethodGet, "/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ffmpeg", data["ffmpegPath"])
	assert.Contains(t, data, "ffmpegVersion")

	w, _ = env.do(t, http.MethodPut, "/config", model.AppConfig{
		FFmpegPath:        "/usr/bin/ffmpeg",
		SavePath:          "/srv/recordings",
		LiveCheckInterval: 30,
	})
	require.Equal(t, http.StatusOK, w.Code)

	cfg, err := env.st.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, uint64(30), cfg.LiveCheckInterval)
}

func TestConfigSetValidation(t *testing.T) {
	env := newRouterEnv(t)

	w, _ := env.do(t, http.MethodPut, "/config", model.AppConfig{SavePath: "/x", LiveCheckInterval: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodPut, "/config", model.AppConfig{
		FFmpegPath: "ffmpeg", SavePath: "../escape", LiveCheckInterval: 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodPut, "/config", model.AppConfig{
		FFmpegPath: "ffmpeg", SavePath: "/srv/recordings",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfigGetProbesFFmpegVersion(t *testing.T) {
	env := newRouterEnv(t)

	// /bin/echo stands in for ffmpeg and echoes the -version flag back
	w, _ := env.do(t, http.MethodPut, "/config", model.AppConfig{
		FFmpegPath:        "/bin/echo",
		SavePath:          "/srv/recordings",
		LiveCheckInterval: 30,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := env.do(t, http.MethodGet, "/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "-version", data["ffmpegVersion"])
}

func TestHealthEndpoint(t *testing.T) {
	env := newRouterEnv(t)
	w, resp := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"status": "ok"}, resp.Data)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newRouterEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestSanitizeBase(t *testing.T) {
	assert.Equal(t, "", sanitizeBase(""))
	assert.Equal(t, "", sanitizeBase("/"))
	assert.Equal(t, "/api", sanitizeBase("api"))
	assert.Equal(t, "/api", sanitizeBase("/api/"))
}

func TestIsSafePath(t *testing.T) {
	assert.True(t, isSafePath("/srv/recordings"))
	assert.True(t, isSafePath("./recordings"))
	assert.False(t, isSafePath(""))
	assert.False(t, isSafePath("../escape"))
	assert.False(t, isSafePath("/srv/../etc"))
}
