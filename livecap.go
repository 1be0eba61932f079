// Package livecap is the embedding facade: open a store, build an
// engine with the default ffmpeg launcher and platform resolvers, and
// run the recording loops inside another program.
package livecap

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/livecap/livecap/internal/capture"
	"github.com/livecap/livecap/internal/engine"
	"github.com/livecap/livecap/internal/history"
	"github.com/livecap/livecap/internal/logger"
	"github.com/livecap/livecap/internal/metrics"
	"github.com/livecap/livecap/internal/model"
	"github.com/livecap/livecap/internal/platform"
	"github.com/livecap/livecap/internal/registry"
	"github.com/livecap/livecap/internal/server"
	"github.com/livecap/livecap/internal/store"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type LiveDescriptor = model.LiveDescriptor

type Stream = model.Stream

type RecordingPlan = model.RecordingPlan

type RecordingHistory = model.RecordingHistory

type AppConfig = model.AppConfig

type RecordStatus = model.RecordStatus

type StartRequest = engine.StartRequest

type HistorySink = history.Sink

type CaptureLogConfig = logger.Config

const (
	StatusRecording    = model.StatusRecording
	StatusNotRecording = model.StatusNotRecording
)

// Recorder is a thin facade over the internal engine and store.
type Recorder struct {
	eng *engine.Engine
	st  *store.Store
	set *platform.Set
}

// New opens the store at dbPath and builds a recorder with the default
// ffmpeg launcher and the built-in platform resolvers.
func New(dbPath string) (*Recorder, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	set := platform.DefaultSet()
	eng := engine.New(st, registry.New(), engine.NewFFmpegLauncher(), set)
	return &Recorder{eng: eng, st: st, set: set}, nil
}

// Close stops the loops, terminates all captures, and closes the store.
func (r *Recorder) Close() error {
	r.eng.StopPoller()
	r.eng.StopMonitor()
	r.eng.StopAll(context.Background())
	return r.st.Close()
}

func (r *Recorder) SetHistorySinks(sinks ...HistorySink) { r.eng.SetHistorySinks(sinks...) }
func (r *Recorder) SetCaptureLog(cfg CaptureLogConfig)   { r.eng.SetCaptureLog(cfg) }

func (r *Recorder) Start(ctx context.Context, req StartRequest) (RecordStatus, error) {
	return r.eng.StartRecording(ctx, req)
}

func (r *Recorder) Stop(ctx context.Context, url string) (RecordStatus, error) {
	return r.eng.StopRecording(ctx, url)
}

func (r *Recorder) Status(ctx context.Context, url string) (RecordStatus, error) {
	return r.eng.RecordingStatus(ctx, url)
}

func (r *Recorder) StopAll(ctx context.Context) { r.eng.StopAll(ctx) }

// Recover closes history rows orphaned by a previous crash. Call it
// once before starting the loops.
func (r *Recorder) Recover(ctx context.Context) error { return r.eng.Recover(ctx) }

func (r *Recorder) StartLoops() {
	r.eng.StartMonitor()
	r.eng.StartPoller()
}

func (r *Recorder) StopLoops() {
	r.eng.StopPoller()
	r.eng.StopMonitor()
}

// Resolve fetches the current live state of a channel URL.
func (r *Recorder) Resolve(ctx context.Context, url string) (*LiveDescriptor, error) {
	return r.set.Resolve(ctx, url)
}

// Store-backed accessors.

func (r *Recorder) Plans(ctx context.Context) ([]RecordingPlan, error) { return r.st.Plans(ctx) }
func (r *Recorder) SavePlan(ctx context.Context, p *RecordingPlan) error {
	return r.st.SavePlan(ctx, p)
}
func (r *Recorder) DeletePlan(ctx context.Context, url string) error { return r.st.DeletePlan(ctx, url) }
func (r *Recorder) SetPlanEnabled(ctx context.Context, url string, enabled bool) error {
	return r.st.SetPlanEnabled(ctx, url, enabled)
}
func (r *Recorder) Histories(ctx context.Context) ([]RecordingHistory, error) {
	return r.st.Histories(ctx)
}
func (r *Recorder) GetConfig(ctx context.Context) (AppConfig, error) { return r.st.GetConfig(ctx) }
func (r *Recorder) SetConfig(ctx context.Context, cfg AppConfig) error {
	return r.st.SetConfig(ctx, cfg)
}

// FFmpegVersion reports the version line of the configured ffmpeg binary.
func (r *Recorder) FFmpegVersion(ctx context.Context) (string, error) {
	cfg, err := r.st.GetConfig(ctx)
	if err != nil {
		return "", err
	}
	return capture.Version(cfg.FFmpegPath)
}

// NewHTTPServer starts an HTTP server exposing the recorder's API.
func NewHTTPServer(addr, basePath string, r *Recorder) (*http.Server, error) {
	return server.NewServer(addr, basePath, r.eng, r.st, r.set)
}

// Metrics helpers (public facade)

func RegisterMetrics(reg prometheus.Registerer) error { return metrics.Register(reg) }
func RegisterMetricsDefault() error                   { return metrics.Register(prometheus.DefaultRegisterer) }
