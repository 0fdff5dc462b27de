// Package handler holds the transport-agnostic request handlers behind
// the HTTP routes. Handlers take plain request structs and return
// response structs so they stay testable without a running server.
package handler

import (
	"context"
	"fmt"

	"career-copilot-go/internal/config"
	"career-copilot-go/internal/matcher"
	"career-copilot-go/internal/processor"
	"career-copilot-go/internal/types"
)

// DocumentHandler coordinates document ingestion and lifecycle.
type DocumentHandler struct {
	cfg      *config.Config
	ingestor *processor.Ingestor
	funnel   *matcher.Funnel
}

// NewDocumentHandler creates a document handler. The funnel is optional
// and only used to invalidate merged-resume cache entries when the
// document pool changes.
func NewDocumentHandler(cfg *config.Config, ingestor *processor.Ingestor, funnel *matcher.Funnel) *DocumentHandler {
	return &DocumentHandler{
		cfg:      cfg,
		ingestor: ingestor,
		funnel:   funnel,
	}
}

// IngestRequest is the body of POST /documents.
type IngestRequest struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	RawText string `json:"raw_text"`
}

// HandleIngest runs the full ingestion pipeline for one document.
func (h *DocumentHandler) HandleIngest(ctx context.Context, req *IngestRequest) (*processor.IngestResult, error) {
	docType := types.DocumentType(req.Type)
	switch docType {
	case types.DocumentTypeResume, types.DocumentTypeJobDescription:
	default:
		return nil, fmt.Errorf("unknown document type %q, expected %q or %q",
			req.Type, types.DocumentTypeResume, types.DocumentTypeJobDescription)
	}

	result, err := h.ingestor.IngestDocument(ctx, docType, req.ID, req.RawText)
	if err != nil {
		return nil, err
	}

	// Merged resume texts cached by the funnel may now be stale.
	if h.funnel != nil && docType == types.DocumentTypeResume {
		h.funnel.ClearCache()
	}
	return result, nil
}

// HandleGet returns one document with its fragments.
func (h *DocumentHandler) HandleGet(ctx context.Context, id string) (*processor.DocumentView, error) {
	if id == "" {
		return nil, fmt.Errorf("document id is required")
	}
	return h.ingestor.GetDocument(ctx, id)
}

// HandleDelete removes one document everywhere.
func (h *DocumentHandler) HandleDelete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("document id is required")
	}
	if err := h.ingestor.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if h.funnel != nil {
		h.funnel.ClearCache()
	}
	return nil
}

// ListRequest holds the query parameters of GET /documents.
type ListRequest struct {
	Type   string `query:"type"`
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
}

// HandleList returns document summaries of one type, newest first.
func (h *DocumentHandler) HandleList(ctx context.Context, req *ListRequest) ([]processor.DocumentSummary, error) {
	docType := types.DocumentType(req.Type)
	switch docType {
	case types.DocumentTypeResume, types.DocumentTypeJobDescription:
	default:
		return nil, fmt.Errorf("unknown document type %q, expected %q or %q",
			req.Type, types.DocumentTypeResume, types.DocumentTypeJobDescription)
	}
	return h.ingestor.ListDocuments(ctx, docType, req.Limit, req.Offset)
}

// PoolCounts is the body of GET /documents/counts.
type PoolCounts struct {
	Resumes         int `json:"resumes"`
	JobDescriptions int `json:"job_descriptions"`
}

// HandleCounts reports how many documents of each type are registered.
func (h *DocumentHandler) HandleCounts(ctx context.Context) (*PoolCounts, error) {
	resumes, err := h.ingestor.CountDocuments(ctx, types.DocumentTypeResume)
	if err != nil {
		return nil, err
	}
	jds, err := h.ingestor.CountDocuments(ctx, types.DocumentTypeJobDescription)
	if err != nil {
		return nil, err
	}
	return &PoolCounts{Resumes: resumes, JobDescriptions: jds}, nil
}
