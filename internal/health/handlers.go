package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// ready gates readiness during graceful shutdown so load balancers drain
// traffic before the listener closes.
var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips the readiness gate.
func SetReady(v bool) { ready.Store(v) }

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

type readiness struct {
	DB    string `json:"db"`
	Redis string `json:"redis"`
}

func (s readiness) healthy() bool { return s.DB == "ok" && s.Redis == "ok" }

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes the database and Redis, reporting 503 with per-dependency
// detail when either fails or when the shutdown gate is closed.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	status := readiness{DB: "ok", Redis: "ok"}
	if err := h.Checker.PingDB(r.Context(), timeoutOrDefault(h.DBTimeout, 500*time.Millisecond)); err != nil {
		status.DB = err.Error()
	}
	if err := h.Checker.PingRedis(r.Context(), timeoutOrDefault(h.RedisTimeout, 300*time.Millisecond)); err != nil {
		status.Redis = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	if status.healthy() {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func timeoutOrDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
