package handlers

import (
	"net/http"

	"github.com/cloo-solutions/vdoc/internal/api"
)

// HealthInfo describes the loaded pipeline for GET /health.
type HealthInfo struct {
	Status    string `json:"status"`
	Backend   string `json:"backend,omitempty"`
	Chunks    int    `json:"chunks"`
	Dimension int    `json:"dimension"`
	Embedder  string `json:"embedder,omitempty"`
	Generator string `json:"generator,omitempty"`
}

type HealthHandler struct {
	info HealthInfo
}

func NewHealthHandler(info HealthInfo) *HealthHandler {
	if info.Status == "" {
		info.Status = "ok"
	}
	return &HealthHandler{info: info}
}

func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.info)
}
