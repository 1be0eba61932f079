package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/livecap/livecap/internal/history"
	"github.com/livecap/livecap/internal/metrics"
	"github.com/livecap/livecap/internal/model"
	"github.com/livecap/livecap/internal/store"
)

const monitorInterval = time.Second

// StartMonitor launches the health loop that reaps captures whose
// process has exited.
func (e *Engine) StartMonitor() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.monitorStop != nil {
		return
	}
	stop := make(chan struct{})
	e.monitorStop = stop
	go func() {
		ticker := time.NewTicker(monitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.monitorOnce(context.Background())
			}
		}
	}()
}

func (e *Engine) StopMonitor() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.monitorStop != nil {
		close(e.monitorStop)
		e.monitorStop = nil
	}
}

func (e *Engine) monitorOnce(ctx context.Context) {
	for url, h := range e.reg.Snapshot() {
		if h.Alive() {
			continue
		}
		e.reg.Remove(url)
		startTime, err := e.st.CloseHistory(ctx, url)
		if err != nil {
			if !errors.Is(err, store.ErrNotRecording) {
				// leave the row for the next sweep or for Recover
				slog.Error("close history for exited capture", "url", url, "error", err)
			}
			continue
		}
		metrics.IncReap(string(model.PlatformKindOf(url)))
		metrics.SetActiveCaptures(e.reg.Len())
		e.emit(history.Event{
			Type:       history.EventStop,
			OccurredAt: time.Now().UTC(),
			URL:        url,
			Platform:   string(model.PlatformKindOf(url)),
			Path:       h.OutputPath(),
			StartMs:    startTime,
			EndMs:      time.Now().UnixMilli(),
		})
		slog.Info("capture exited, history closed", "url", url, "stderr_tail", h.StderrTail())
	}
}

// StartPoller launches the plan loop. The interval is read from the
// stored config at the top of every cycle, so config changes take
// effect without a restart.
func (e *Engine) StartPoller() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pollerStop != nil {
		return
	}
	stop := make(chan struct{})
	e.pollerStop = stop
	go func() {
		for {
			interval := e.pollInterval(context.Background())
			select {
			case <-stop:
				return
			case <-time.After(interval):
				e.PollOnce(context.Background())
			}
		}
	}()
}

func (e *Engine) StopPoller() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pollerStop != nil {
		close(e.pollerStop)
		e.pollerStop = nil
	}
}

func (e *Engine) pollInterval(ctx context.Context) time.Duration {
	cfg, err := e.st.GetConfig(ctx)
	if err != nil || cfg.LiveCheckInterval == 0 {
		return time.Duration(model.DefaultAppConfig().LiveCheckInterval) * time.Second
	}
	return time.Duration(cfg.LiveCheckInterval) * time.Second
}

// PollOnce runs one poller cycle: for every enabled plan whose channel
// is not already being captured, resolve the live state and start a
// recording if the channel is live. Failures are per-plan; one bad
// channel never blocks the rest.
func (e *Engine) PollOnce(ctx context.Context) {
	if err := e.st.MarkPollingTime(ctx, time.Now()); err != nil {
		slog.Warn("mark polling time", "error", err)
	}
	metrics.IncPollTick()

	plans, err := e.st.EnabledPlans(ctx)
	if err != nil {
		slog.Error("list enabled plans", "error", err)
		return
	}
	for i := range plans {
		e.pollPlan(ctx, &plans[i])
	}
}

func (e *Engine) pollPlan(ctx context.Context, plan *model.RecordingPlan) {
	if e.reg.Contains(plan.URL) {
		return
	}
	live, err := e.resolver.Resolve(ctx, plan.URL)
	if err != nil {
		metrics.IncResolveFailure(string(model.PlatformKindOf(plan.URL)))
		slog.Warn("resolve live info", "url", plan.URL, "error", err)
		return
	}
	if err := e.st.SaveLive(ctx, live); err != nil {
		slog.Warn("save live info", "url", plan.URL, "error", err)
	}
	if live.Status != model.LiveStatusLive || len(live.Streams) == 0 {
		return
	}

	stream := PickStream(live.Streams, plan.StreamProtocol, plan.StreamResolution)
	_, err = e.StartRecording(ctx, StartRequest{
		URL:        plan.URL,
		StreamURL:  stream.URL,
		Platform:   live.PlatformKind,
		AnchorName: live.AnchorName,
		Protocol:   plan.StreamProtocol,
		Resolution: plan.StreamResolution,
		Option:     plan.Option,
		LiveInfo:   live,
	})
	if err != nil && !errors.Is(err, store.ErrAlreadyRecording) {
		slog.Error("start planned recording", "url", plan.URL, "error", err)
	}
}

// PickStream prefers an exact protocol and resolution match, then a
// protocol match, then the first candidate.
func PickStream(streams []model.Stream, protocol model.StreamingProtocol, resolution string) model.Stream {
	for _, s := range streams {
		if s.Protocol == protocol && s.Resolution == resolution {
			return s
		}
	}
	for _, s := range streams {
		if s.Protocol == protocol {
			return s
		}
	}
	return streams[0]
}
