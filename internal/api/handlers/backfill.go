package handlers

import (
	"context"
	"net/http"

	"github.com/harborcrm/harborai/internal/api"
	"github.com/harborcrm/harborai/internal/service"
)

type BackfillService interface {
	Run(ctx context.Context) (*service.BackfillResult, error)
}

type BackfillHandler struct {
	svc BackfillService
}

func NewBackfillHandler(svc BackfillService) *BackfillHandler {
	return &BackfillHandler{svc: svc}
}

// Run triggers one bounded reconciliation pass on demand.
func (h *BackfillHandler) Run(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Run(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}
