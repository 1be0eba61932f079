// Package server exposes the recording engine over HTTP.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/livecap/livecap/internal/capture"
	"github.com/livecap/livecap/internal/engine"
	"github.com/livecap/livecap/internal/metrics"
	"github.com/livecap/livecap/internal/model"
	"github.com/livecap/livecap/internal/store"
)

// Router provides embeddable HTTP handlers for the recording engine.
// Endpoints (under basePath):
//
//	POST   /record/start      body: start request JSON
//	POST   /record/stop       query: url=...
//	GET    /record/status     query: url=...
//	POST   /record/stop-all
//	GET    /plans
//	POST   /plans             body: plan JSON (upsert)
//	DELETE /plans             query: url=...
//	POST   /plans/enabled     query: url=...&enabled=true|false
//	GET    /plans/polling-time
//	GET    /live              query: url=... (resolve now)
//	GET    /histories
//	DELETE /histories         query: url=...&start=...&delete_file=true|false
//	GET    /config            (includes the probed ffmpeg version)
//	PUT    /config            body: AppConfig JSON
//	GET    /healthz
//	GET    /metrics
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	eng      *engine.Engine
	st       *store.Store
	resolver engine.Resolver
	basePath string
}

func NewRouter(eng *engine.Engine, st *store.Store, resolver engine.Resolver, basePath string) *Router {
	return &Router{eng: eng, st: st, resolver: resolver, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted
// in any server or mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/record/start", r.handleStart)
	group.POST("/record/stop", r.handleStop)
	group.GET("/record/status", r.handleStatus)
	group.POST("/record/stop-all", r.handleStopAll)
	group.GET("/plans", r.handlePlanList)
	group.POST("/plans", r.handlePlanSave)
	group.DELETE("/plans", r.handlePlanDelete)
	group.POST("/plans/enabled", r.handlePlanEnabled)
	group.GET("/plans/polling-time", r.handlePollingTime)
	group.GET("/live", r.handleLiveResolve)
	group.GET("/histories", r.handleHistoryList)
	group.DELETE("/histories", r.handleHistoryDelete)
	group.GET("/config", r.handleConfigGet)
	group.PUT("/config", r.handleConfigSet)
	group.GET("/healthz", r.handleHealth)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, eng *engine.Engine, st *store.Store, resolver engine.Resolver) (*http.Server, error) {
	r := NewRouter(eng, st, resolver, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type startRequest struct {
	URL        string                  `json:"url"`
	StreamURL  string                  `json:"streamUrl"`
	AnchorName string                  `json:"anchorName"`
	AutoRecord bool                    `json:"autoRecord"`
	Protocol   model.StreamingProtocol `json:"streamProtocol"`
	Resolution string                  `json:"streamResolution"`
	Option     model.RecordingOption   `json:"option"`
}

func (r *Router) handleStart(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.URL == "" {
		writeError(c, http.StatusBadRequest, "url required")
		return
	}

	start := engine.StartRequest{
		URL:        req.URL,
		StreamURL:  req.StreamURL,
		Platform:   model.PlatformKindOf(req.URL),
		AnchorName: req.AnchorName,
		AutoRecord: req.AutoRecord,
		Protocol:   req.Protocol,
		Resolution: req.Resolution,
		Option:     req.Option,
	}
	// no explicit stream url: resolve the channel and pick one
	if start.StreamURL == "" {
		live, err := r.resolver.Resolve(c.Request.Context(), req.URL)
		if err != nil {
			writeError(c, http.StatusBadGateway, "resolve "+req.URL+": "+err.Error())
			return
		}
		if live.Status != model.LiveStatusLive || len(live.Streams) == 0 {
			writeError(c, http.StatusConflict, "channel is not live")
			return
		}
		stream := engine.PickStream(live.Streams, req.Protocol, req.Resolution)
		start.StreamURL = stream.URL
		start.AnchorName = live.AnchorName
		start.LiveInfo = live
	}

	status, err := r.eng.StartRecording(c.Request.Context(), start)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyRecording) {
			writeError(c, http.StatusConflict, err.Error())
			return
		}
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(c, gin.H{"status": status})
}

func (r *Router) handleStop(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		writeError(c, http.StatusBadRequest, "url query param required")
		return
	}
	status, err := r.eng.StopRecording(c.Request.Context(), url)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(c, gin.H{"status": status})
}

func (r *Router) handleStatus(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		writeError(c, http.StatusBadRequest, "url query param required")
		return
	}
	status, err := r.eng.RecordingStatus(c.Request.Context(), url)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(c, gin.H{"status": status})
}

func (r *Router) handleStopAll(c *gin.Context) {
	r.eng.StopAll(c.Request.Context())
	writeData(c, nil)
}

func (r *Router) handlePlanList(c *gin.Context) {
	plans, err := r.st.Plans(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(c, plans)
}

func (r *Router) handlePlanSave(c *gin.Context) {
	var plan model.RecordingPlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		writeError(c, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if plan.URL == "" {
		writeError(c, http.StatusBadRequest, "url required")
		return
	}
	if model.PlatformKindOf(plan.URL) == model.PlatformUnknown {
		writeError(c, http.StatusBadRequest, "unsupported platform: "+plan.URL)
		return
	}
	if plan.CreatedAt == 0 {
		plan.CreatedAt = time.Now().UnixMilli()
	}
	if err := r.st.SavePlan(c.Request.Context(), &plan); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(c, plan)
}

func (r *Router) handlePlanDelete(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		writeError(c, http.StatusBadRequest, "url query param required")
		return
	}
	if err := r.st.DeletePlan(c.Request.Context(), url); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(c, nil)
}

func (r *Router) handlePlanEnabled(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		writeError(c, http.StatusBadRequest, "url query param required")
		return
	}
	enabled, err := strconv.ParseBool(c.DefaultQuery("enabled", "true"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "enabled must be true or false")
		return
	}
	if err := r.st.SetPlanEnabled(c.Request.Context(), url, enabled); err != nil {
		if errors.Is(err, store.ErrPlanNotFound) {
			writeError(c, http.StatusNotFound, err.Error())
			return
		}
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(c, nil)
}

func (r *Router) handlePollingTime(c *gin.Context) {
	at, err := r.st.LastPollingTime(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(c, gin.H{"lastPollingTime": at})
}

func (r *Router) handleLiveResolve(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		writeError(c, http.StatusBadRequest, "url query param required")
		return
	}
	live, err := r.resolver.Resolve(c.Request.Context(), url)
	if err != nil {
		writeError(c, http.StatusBadGateway, err.Error())
		return
	}
	if err := r.st.SaveLive(c.Request.Context(), live); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(c, live)
}

func (r *Router) handleHistoryList(c *gin.Context) {
	rows, err := r.st.Histories(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(c, rows)
}

func (r *Router) handleHistoryDelete(c *gin.Context) {
	url := c.Query("url")
	startStr := c.Query("start")
	if url == "" || startStr == "" {
		writeError(c, http.StatusBadRequest, "url and start query params required")
		return
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "start must be unix milliseconds")
		return
	}
	deleteFile, _ := strconv.ParseBool(c.DefaultQuery("delete_file", "false"))
	if err := r.st.DeleteHistory(c.Request.Context(), url, start, deleteFile); err != nil {
		if errors.Is(err, store.ErrHistoryNotFound) {
			writeError(c, http.StatusNotFound, err.Error())
			return
		}
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(c, nil)
}

// configData is the GET /config payload: the stored config plus the
// probed ffmpeg version, empty when the binary cannot be run.
type configData struct {
	model.AppConfig
	FFmpegVersion string `json:"ffmpegVersion"`
}

func (r *Router) handleConfigGet(c *gin.Context) {
	cfg, err := r.st.GetConfig(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	data := configData{AppConfig: cfg}
	if v, err := capture.Version(cfg.FFmpegPath); err == nil {
		data.FFmpegVersion = v
	}
	writeData(c, data)
}

func (r *Router) handleHealth(c *gin.Context) {
	if err := r.st.Ping(c.Request.Context()); err != nil {
		writeError(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeData(c, gin.H{"status": "ok"})
}

func (r *Router) handleConfigSet(c *gin.Context) {
	var cfg model.AppConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		writeError(c, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if cfg.FFmpegPath == "" || cfg.SavePath == "" {
		writeError(c, http.StatusBadRequest, "ffmpegPath and savePath required")
		return
	}
	if !isSafePath(cfg.SavePath) {
		writeError(c, http.StatusBadRequest, "invalid savePath: no traversal segments allowed")
		return
	}
	if cfg.LiveCheckInterval == 0 {
		writeError(c, http.StatusBadRequest, "liveCheckInterval must be positive")
		return
	}
	if err := r.st.SetConfig(c.Request.Context(), cfg); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(c, cfg)
}
