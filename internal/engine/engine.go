// Package engine orchestrates recordings: it is the single writer of
// recording locks and the owner of the background loops.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/livecap/livecap/internal/capture"
	"github.com/livecap/livecap/internal/history"
	"github.com/livecap/livecap/internal/logger"
	"github.com/livecap/livecap/internal/metrics"
	"github.com/livecap/livecap/internal/model"
	"github.com/livecap/livecap/internal/registry"
	"github.com/livecap/livecap/internal/store"
)

const stopWait = 10 * time.Second

// Launcher starts capture processes. capture.FFmpeg is the production
// implementation; tests substitute fakes.
type Launcher interface {
	Launch(spec capture.Spec) (registry.Handle, error)
}

// Resolver resolves live metadata for a channel URL. *platform.Set is
// the production implementation.
type Resolver interface {
	Resolve(ctx context.Context, roomURL string) (*model.LiveDescriptor, error)
}

// Engine ties the store, registry, launcher, and resolver together.
// The store is authoritative for recording state; the registry only
// caches OS handles so stop signals can be delivered.
type Engine struct {
	mu        sync.Mutex
	st        *store.Store
	reg       *registry.Registry
	launcher  Launcher
	resolver  Resolver
	histSinks []history.Sink
	capLog    logger.Config

	monitorStop chan struct{}
	pollerStop  chan struct{}
}

func New(st *store.Store, reg *registry.Registry, launcher Launcher, resolver Resolver) *Engine {
	return &Engine{st: st, reg: reg, launcher: launcher, resolver: resolver}
}

// NewFFmpegLauncher adapts capture.FFmpeg to the Launcher interface.
func NewFFmpegLauncher() Launcher { return ffmpegLauncher{} }

type ffmpegLauncher struct{ f capture.FFmpeg }

func (l ffmpegLauncher) Launch(spec capture.Spec) (registry.Handle, error) {
	h, err := l.f.Launch(spec)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// SetHistorySinks configures external history sinks (SQLite, Postgres,
// ClickHouse, OpenSearch). Passing no sinks clears the list.
func (e *Engine) SetHistorySinks(sinks ...history.Sink) {
	e.mu.Lock()
	e.histSinks = append([]history.Sink(nil), sinks...)
	e.mu.Unlock()
}

// SetCaptureLog configures where ffmpeg diagnostics are written.
func (e *Engine) SetCaptureLog(cfg logger.Config) {
	e.mu.Lock()
	e.capLog = cfg
	e.mu.Unlock()
}

// StartRequest describes one recording to start.
type StartRequest struct {
	URL        string
	StreamURL  string
	Platform   model.PlatformKind
	AnchorName string
	// AutoRecord additionally upserts a plan so the poller restarts
	// the capture whenever the channel goes live again.
	AutoRecord bool
	Protocol   model.StreamingProtocol
	Resolution string
	Option     model.RecordingOption
	LiveInfo   *model.LiveDescriptor
}

// StartRecording launches a capture for req and records the lock and
// history row in one transaction. Exactly one concurrent start per URL
// wins; losers get store.ErrAlreadyRecording.
func (e *Engine) StartRecording(ctx context.Context, req StartRequest) (model.RecordStatus, error) {
	if req.URL == "" || req.StreamURL == "" {
		return model.StatusNotRecording, errors.New("url and stream url are required")
	}

	if req.AutoRecord {
		if err := e.ensurePlan(ctx, req); err != nil {
			return model.StatusNotRecording, err
		}
	}
	if req.LiveInfo != nil {
		if err := e.st.SaveLive(ctx, req.LiveInfo); err != nil {
			slog.Warn("save live info", "url", req.URL, "error", err)
		}
	}

	// cheap pre-check before any side effect; the open-history
	// transaction below is the authoritative gate
	recording, err := e.st.IsRecording(ctx, req.URL)
	if err != nil {
		return model.StatusNotRecording, err
	}
	if recording {
		return model.StatusNotRecording, fmt.Errorf("%w: %s", store.ErrAlreadyRecording, req.URL)
	}

	cfg, err := e.st.GetConfig(ctx)
	if err != nil {
		return model.StatusNotRecording, err
	}
	outputPath := capture.OutputPath(cfg.SavePath, req.Platform, req.AnchorName, time.Now())

	e.mu.Lock()
	capLog := e.capLog
	e.mu.Unlock()
	h, err := e.launcher.Launch(capture.Spec{
		FFmpegPath: cfg.FFmpegPath,
		StreamURL:  req.StreamURL,
		OutputPath: outputPath,
		Proxy:      req.Option.UseProxy,
		Name:       capture.SanitizeName(req.AnchorName),
		Log:        capLog,
	})
	if err != nil {
		return model.StatusNotRecording, fmt.Errorf("launch capture for %s: %w", req.URL, err)
	}

	if !e.reg.Insert(req.URL, h) {
		// a concurrent start already owns this URL; release ours
		_ = h.Terminate()
		_ = h.Wait(stopWait)
		return model.StatusNotRecording, fmt.Errorf("%w: %s", store.ErrAlreadyRecording, req.URL)
	}

	hist := model.NewRecordingHistory(req.URL, h.OutputPath())
	hist.StartTime = h.StartTime()
	hist.LiveInfo = req.LiveInfo
	if err := e.st.OpenHistory(ctx, hist); err != nil {
		// lost the lock race after registering; the handle stays in
		// the registry so the monitor reaps it when the process dies
		return model.StatusNotRecording, err
	}

	metrics.IncStart(string(req.Platform))
	metrics.SetActiveCaptures(e.reg.Len())
	e.emit(history.Event{
		Type:       history.EventStart,
		OccurredAt: time.Now().UTC(),
		URL:        req.URL,
		Platform:   string(req.Platform),
		Anchor:     req.AnchorName,
		Path:       h.OutputPath(),
		StartMs:    hist.StartTime,
	})
	slog.Info("recording started", "url", req.URL, "path", h.OutputPath())
	return model.StatusRecording, nil
}

// StopRecording terminates the capture for url, waits for the process
// to exit, and closes the lock and history row. Stopping a URL that is
// not recording is a no-op.
func (e *Engine) StopRecording(ctx context.Context, url string) (model.RecordStatus, error) {
	if h, ok := e.reg.Remove(url); ok {
		if err := h.Terminate(); err != nil {
			slog.Warn("terminate capture", "url", url, "error", err)
		}
		if err := h.Wait(stopWait); err != nil {
			slog.Warn("wait capture exit", "url", url, "error", err)
		}
	}

	startTime, err := e.st.CloseHistory(ctx, url)
	if err != nil {
		if errors.Is(err, store.ErrNotRecording) {
			return model.StatusNotRecording, nil
		}
		return model.StatusNotRecording, err
	}

	metrics.IncStop(string(model.PlatformKindOf(url)))
	metrics.SetActiveCaptures(e.reg.Len())
	e.emit(history.Event{
		Type:       history.EventStop,
		OccurredAt: time.Now().UTC(),
		URL:        url,
		Platform:   string(model.PlatformKindOf(url)),
		StartMs:    startTime,
		EndMs:      time.Now().UnixMilli(),
	})
	slog.Info("recording stopped", "url", url)
	return model.StatusNotRecording, nil
}

// RecordingStatus reads the lock table only. The registry is never
// consulted: after a crash the store may still say Recording while the
// registry is empty, and that staleness belongs to Recover.
func (e *Engine) RecordingStatus(ctx context.Context, url string) (model.RecordStatus, error) {
	recording, err := e.st.IsRecording(ctx, url)
	if err != nil {
		return model.StatusNotRecording, err
	}
	if recording {
		return model.StatusRecording, nil
	}
	return model.StatusNotRecording, nil
}

// StopAll stops every registered capture. Failures are logged and do
// not stop the sweep.
func (e *Engine) StopAll(ctx context.Context) {
	for _, url := range e.reg.URLs() {
		if _, err := e.StopRecording(ctx, url); err != nil {
			slog.Error("stop recording", "url", url, "error", err)
		}
	}
}

func (e *Engine) ensurePlan(ctx context.Context, req StartRequest) error {
	_, err := e.st.GetPlan(ctx, req.URL)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrPlanNotFound) {
		return err
	}
	plan := model.NewRecordingPlan(req.URL, req.Protocol, req.Resolution, req.Option)
	plan.LiveInfo = req.LiveInfo
	return e.st.SavePlan(ctx, plan)
}

func (e *Engine) emit(evt history.Event) {
	e.mu.Lock()
	sinks := append([]history.Sink(nil), e.histSinks...)
	e.mu.Unlock()
	for _, s := range sinks {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.Send(ctx, evt); err != nil {
			slog.Warn("history sink send", "type", evt.Type, "url", evt.URL, "error", err)
		}
		cancel()
	}
}
