// Package processor runs the ingestion pipeline: extraction, chunking,
// size normalization and persistence of one document.
package processor

import (
	"context"

	"career-copilot-go/internal/storage/models"
	"career-copilot-go/internal/types"
)

// FieldExtractor produces structured fields from raw document text.
type FieldExtractor interface {
	ExtractResume(ctx context.Context, rawText string) (*types.ResumeFields, error)
	ExtractJob(ctx context.Context, rawText string) (*types.JobFields, error)
}

// DocumentRegistry is the relational registry view the pipeline needs.
type DocumentRegistry interface {
	CreateDocument(ctx context.Context, record *models.DocumentRecord) error
	GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error)
	DeleteDocument(ctx context.Context, id string) error
	UpdateFragmentCount(ctx context.Context, id string, count int) error
	UpdateObjectKey(ctx context.Context, id, key string) error
	CountDocuments(ctx context.Context, docType types.DocumentType) (int, error)
	ListDocuments(ctx context.Context, docType types.DocumentType, limit, offset int) ([]models.DocumentRecord, error)
}

// FragmentStore is the vector-store view the pipeline needs.
type FragmentStore interface {
	UpsertFragments(ctx context.Context, fragments []types.Fragment) ([]string, error)
	GetFragmentsByDocument(ctx context.Context, documentID string) ([]types.Fragment, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// RawArchive keeps the raw bytes of ingested documents. Optional.
type RawArchive interface {
	PutRawDocument(ctx context.Context, docType types.DocumentType, documentID, rawText string) (string, error)
	DeleteRawDocument(ctx context.Context, key string) error
}
