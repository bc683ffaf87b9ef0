package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Handler serves liveness and readiness probes for the gateway.
type Handler struct {
	ready atomic.Bool
	nodes func() int
}

type readiness struct {
	Status string `json:"status"`
	Nodes  int    `json:"nodes"`
}

// New returns a health handler. nodes reports how many cluster nodes are configured.
func New(nodes func() int) *Handler {
	return &Handler{nodes: nodes}
}

// SetReady marks the handler as ready.
func (h *Handler) SetReady() {
	h.ready.Store(true)
}

// SetNotReady marks the handler as not ready.
func (h *Handler) SetNotReady() {
	h.ready.Store(false)
}

// Healthz handles liveness probes.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz handles readiness probes. A gateway without nodes is never ready.
func (h *Handler) Readyz(w http.ResponseWriter, _ *http.Request) {
	body := readiness{Status: "not ready"}
	if h.nodes != nil {
		body.Nodes = h.nodes()
	}
	code := http.StatusServiceUnavailable
	if h.ready.Load() && body.Nodes > 0 {
		body.Status = "ready"
		code = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
