package health

import (
	"net/http"

	"student-registry/internal/httputil"

	"github.com/go-chi/chi/v5"
)

// Checker is a dependency that can report whether it is usable.
type Checker interface {
	HealthCheck() error
}

type Handler struct {
	checks map[string]Checker
}

func NewHandler() *Handler {
	return &Handler{checks: make(map[string]Checker)}
}

// AddCheck registers a dependency that must be healthy for /ready to pass.
func (h *Handler) AddCheck(name string, c Checker) {
	h.checks[name] = c
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ready"}
	code := http.StatusOK

	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for name, c := range h.checks {
		if err := c.HealthCheck(); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "not ready"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	httputil.RespondWithJSON(w, code, resp)
}
