package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/vdoc/internal/api"
	"github.com/cloo-solutions/vdoc/internal/domain"
	"github.com/cloo-solutions/vdoc/internal/service"
)

type RAGService interface {
	Answer(ctx context.Context, query string) service.Result
}

type RAGHandler struct {
	svc RAGService
}

func NewRAGHandler(svc RAGService) *RAGHandler {
	return &RAGHandler{svc: svc}
}

type RAGRequest struct {
	Query string `json:"query"`
}

// Query handles POST /rag. The body is always either the success envelope or
// the error envelope.
func (h *RAGHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req RAGRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.ErrorWithCode(w, http.StatusRequestEntityTooLarge, domain.ErrCodeValidation, "request body too large")
			return
		}
		api.HandleError(w, domain.Wrap(domain.ErrInvalidRequest, err))
		return
	}

	res := h.svc.Answer(r.Context(), req.Query)
	api.WriteResult(w, &res)
}
