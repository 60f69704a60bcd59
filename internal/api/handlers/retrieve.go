package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/harborcrm/harborai/internal/api"
	"github.com/harborcrm/harborai/internal/domain"
	"github.com/harborcrm/harborai/internal/service"
)

type RetrieveService interface {
	Retrieve(ctx context.Context, input service.RetrieveInput) ([]service.ScoredFragment, error)
}

type Assembler interface {
	Assemble(fragments []service.ScoredFragment) string
}

type RetrieveHandler struct {
	svc       RetrieveService
	assembler Assembler
}

func NewRetrieveHandler(svc RetrieveService, assembler Assembler) *RetrieveHandler {
	return &RetrieveHandler{svc: svc, assembler: assembler}
}

type RetrieveRequest struct {
	Query        string   `json:"query"`
	UserID       string   `json:"user_id,omitempty"`
	TeamID       string   `json:"team_id,omitempty"`
	ContentTypes []string `json:"content_types,omitempty"`
	TopK         int      `json:"top_k,omitempty"`
	Threshold    float64  `json:"threshold,omitempty"`
}

type RetrievedFragmentResponse struct {
	ID          string         `json:"id"`
	ContentType string         `json:"content_type"`
	SourceTable string         `json:"source_table"`
	SourceID    string         `json:"source_id"`
	ChunkIndex  int            `json:"chunk_index"`
	TotalChunks int            `json:"total_chunks"`
	Text        string         `json:"text"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Similarity  float64        `json:"similarity"`
	CreatedAt   string         `json:"created_at,omitempty"`
}

type RetrieveResponse struct {
	Results []*RetrievedFragmentResponse `json:"results"`
	Context string                       `json:"context,omitempty"`
}

// Retrieve embeds the query and returns the most similar fragments in scope,
// plus a prompt-ready context block assembled from them.
func (h *RetrieveHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	contentTypes := make([]domain.ContentType, 0, len(req.ContentTypes))
	for _, raw := range req.ContentTypes {
		contentType, err := domain.ParseContentType(raw)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		contentTypes = append(contentTypes, contentType)
	}

	results, err := h.svc.Retrieve(r.Context(), service.RetrieveInput{
		Query:        req.Query,
		Scope:        domain.Scope{UserID: req.UserID, TeamID: req.TeamID},
		ContentTypes: contentTypes,
		TopK:         req.TopK,
		Threshold:    req.Threshold,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*RetrievedFragmentResponse, len(results))
	for i, result := range results {
		createdAt := ""
		if !result.Fragment.CreatedAt.IsZero() {
			createdAt = result.Fragment.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		responses[i] = &RetrievedFragmentResponse{
			ID:          result.Fragment.ID,
			ContentType: string(result.Fragment.ContentType),
			SourceTable: result.Fragment.Source.Table,
			SourceID:    result.Fragment.Source.RecordID,
			ChunkIndex:  result.Fragment.ChunkIndex,
			TotalChunks: result.Fragment.TotalChunks,
			Text:        result.Fragment.Text,
			Metadata:    result.Fragment.Metadata,
			Similarity:  result.Similarity,
			CreatedAt:   createdAt,
		}
	}

	resp := RetrieveResponse{Results: responses}
	if h.assembler != nil {
		resp.Context = h.assembler.Assemble(results)
	}

	api.Success(w, http.StatusOK, resp)
}
