package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ruteri/validator-provisioning/monitor"
)

// Intervals are the push cadences of the event stream endpoints. They are
// independent of the refresher's own cadence.
type Intervals struct {
	Check      time.Duration
	ChainLive  time.Duration
	Account    time.Duration
	Validators time.Duration
}

// DefaultIntervals push checks and chain state every 10s, validator and
// account views every minute.
var DefaultIntervals = Intervals{
	Check:      10 * time.Second,
	ChainLive:  10 * time.Second,
	Account:    60 * time.Second,
	Validators: 60 * time.Second,
}

// StreamRecorder tracks connected event stream clients.
type StreamRecorder interface {
	StreamOpened(endpoint string)
	StreamClosed(endpoint string)
}

type HandlerConfig struct {
	// ManifestPath is served verbatim at /account.json.
	ManifestPath string
	// StaticDir is served at /. Empty disables static files.
	StaticDir string
	Intervals Intervals
	Recorder  StreamRecorder
}

// Handler serves the check cache. It only ever reads the cache.
type Handler struct {
	cache *monitor.Cache
	cfg   HandlerConfig
	log   *slog.Logger
}

func NewHandler(cache *monitor.Cache, cfg HandlerConfig, log *slog.Logger) *Handler {
	if cfg.Intervals.Check <= 0 {
		cfg.Intervals.Check = DefaultIntervals.Check
	}
	if cfg.Intervals.ChainLive <= 0 {
		cfg.Intervals.ChainLive = DefaultIntervals.ChainLive
	}
	if cfg.Intervals.Account <= 0 {
		cfg.Intervals.Account = DefaultIntervals.Account
	}
	if cfg.Intervals.Validators <= 0 {
		cfg.Intervals.Validators = DefaultIntervals.Validators
	}
	return &Handler{cache: cache, cfg: cfg, log: log}
}

func items(s *monitor.Snapshot) any      { return s.Items }
func chainView(s *monitor.Snapshot) any  { return s.Chain }
func validators(s *monitor.Snapshot) any { return s.Validators }
func account(s *monitor.Snapshot) any    { return s.Account }

func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "/check", h.cfg.Intervals.Check, items)
}

func (h *Handler) HandleChainLive(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "/chain_live", h.cfg.Intervals.ChainLive, chainView)
}

func (h *Handler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "/account", h.cfg.Intervals.Account, account)
}

func (h *Handler) HandleValidators(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "/validators", h.cfg.Intervals.Validators, validators)
}

func (h *Handler) HandleVals(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.cache.Load().Validators)
}

func (h *Handler) HandleChain(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.cache.Load().Chain)
}

func (h *Handler) HandleEpoch(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.cache.Load().Epoch())
}

// HandleAccountManifest passes the persisted account manifest through unchanged.
func (h *Handler) HandleAccountManifest(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(h.cfg.ManifestPath)
	if errors.Is(err, fs.ErrNotExist) {
		http.Error(w, "account manifest not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("Failed to read account manifest", "err", err, slog.String("path", h.cfg.ManifestPath))
		http.Error(w, "failed to read account manifest", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// StaticHandler serves the monitor's web assets, or nil if none are configured.
func (h *Handler) StaticHandler() http.Handler {
	if h.cfg.StaticDir == "" {
		return nil
	}
	return http.FileServer(http.Dir(h.cfg.StaticDir))
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// stream pushes the selected part of the current snapshot as a server-sent
// event right away and then once per interval, until the client goes away.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, endpoint string, interval time.Duration, view func(*monitor.Snapshot) any) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if h.cfg.Recorder != nil {
		h.cfg.Recorder.StreamOpened(endpoint)
		defer h.cfg.Recorder.StreamClosed(endpoint)
	}
	h.log.Debug("Event stream opened", slog.String("endpoint", endpoint), slog.String("remote", r.RemoteAddr))
	defer h.log.Debug("Event stream closed", slog.String("endpoint", endpoint), slog.String("remote", r.RemoteAddr))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := writeEvent(w, view(h.cache.Load())); err != nil {
			h.log.Debug("Event stream write failed", slog.String("endpoint", endpoint), "err", err)
			return
		}
		flusher.Flush()

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writeEvent(w http.ResponseWriter, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
