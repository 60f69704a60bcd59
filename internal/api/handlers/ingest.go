package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/harborcrm/harborai/internal/api"
	"github.com/harborcrm/harborai/internal/domain"
	"github.com/harborcrm/harborai/internal/service"
)

type IngestService interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestionResult, error)
}

type IngestHandler struct {
	svc IngestService
}

func NewIngestHandler(svc IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

type IngestRequest struct {
	SourceType string         `json:"source_type"`
	SourceID   string         `json:"source_id"`
	UserID     string         `json:"user_id,omitempty"`
	TeamID     string         `json:"team_id,omitempty"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type IngestResponse struct {
	ChunksTotal     int `json:"chunks_total"`
	ChunksSucceeded int `json:"chunks_succeeded"`
	ChunksFailed    int `json:"chunks_failed"`
}

// Ingest runs one content item through chunking, embedding and persistence.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SourceID == "" {
		api.Error(w, http.StatusBadRequest, "source_id is required")
		return
	}

	sourceType, err := domain.ParseContentType(req.SourceType)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.svc.Ingest(r.Context(), service.IngestInput{
		SourceType: sourceType,
		SourceID:   req.SourceID,
		Scope:      domain.Scope{UserID: req.UserID, TeamID: req.TeamID},
		Text:       req.Text,
		Metadata:   req.Metadata,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, IngestResponse{
		ChunksTotal:     result.ChunksTotal,
		ChunksSucceeded: result.ChunksSucceeded,
		ChunksFailed:    result.ChunksFailed,
	})
}
