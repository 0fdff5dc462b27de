package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"career-copilot-go/internal/chunker"
	"career-copilot-go/internal/logger"
	"career-copilot-go/internal/storage/models"
	"career-copilot-go/internal/textutil"
	"career-copilot-go/internal/types"
)

// IngestResult summarizes one ingested document.
type IngestResult struct {
	DocumentID    string             `json:"document_id"`
	DocumentType  types.DocumentType `json:"document_type"`
	FragmentCount int                `json:"fragment_count"`
	SplitCount    int                `json:"split_count"`
	Stats         chunker.Stats      `json:"stats"`
}

// DocumentView is a registered document with its stored fragments.
type DocumentView struct {
	ID            string             `json:"id"`
	Type          types.DocumentType `json:"type"`
	RawText       string             `json:"raw_text"`
	FragmentCount int                `json:"fragment_count"`
	Fragments     []types.Fragment   `json:"fragments"`
}

// Ingestor drives a document through extraction, chunking,
// normalization and persistence.
type Ingestor struct {
	extractor  FieldExtractor
	registry   DocumentRegistry
	fragments  FragmentStore
	archive    RawArchive
	resumes    *chunker.ResumeChunker
	jds        *chunker.JDChunker
	normalizer *chunker.Normalizer
	logger     zerolog.Logger
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithRawArchive attaches the optional raw-bytes archive.
func WithRawArchive(archive RawArchive) IngestorOption {
	return func(p *Ingestor) {
		p.archive = archive
	}
}

// WithNormalizer overrides the size normalizer.
func WithNormalizer(n *chunker.Normalizer) IngestorOption {
	return func(p *Ingestor) {
		p.normalizer = n
	}
}

// WithIngestorLogger sets the pipeline logger.
func WithIngestorLogger(l zerolog.Logger) IngestorOption {
	return func(p *Ingestor) {
		p.logger = l
	}
}

// NewIngestor creates the ingestion pipeline.
func NewIngestor(extractor FieldExtractor, registry DocumentRegistry, fragments FragmentStore, options ...IngestorOption) *Ingestor {
	p := &Ingestor{
		extractor:  extractor,
		registry:   registry,
		fragments:  fragments,
		resumes:    chunker.NewResumeChunker(),
		jds:        chunker.NewJDChunker(),
		normalizer: chunker.NewNormalizer(),
		logger:     logger.Logger,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// IngestDocument registers a document, extracts and chunks it, and
// stores its fragments. An empty requestedID derives the id from the
// candidate name for résumés, falling back to a random one. A duplicate
// id aborts before anything is stored.
func (p *Ingestor) IngestDocument(ctx context.Context, docType types.DocumentType, requestedID, rawText string) (*IngestResult, error) {
	if rawText == "" {
		return nil, fmt.Errorf("document text is empty")
	}

	var fragments []types.Fragment
	var structured interface{}
	documentID := requestedID

	switch docType {
	case types.DocumentTypeResume:
		fields, err := p.extractor.ExtractResume(ctx, rawText)
		if err != nil {
			return nil, fmt.Errorf("extract resume: %w", err)
		}
		if documentID == "" {
			documentID = textutil.CleanNameForID(fields.Name)
		}
		if documentID == "" {
			documentID = uuid.NewString()
		}
		fragments = p.resumes.Chunk(fields, documentID)
		structured = fields

	case types.DocumentTypeJobDescription:
		fields, err := p.extractor.ExtractJob(ctx, rawText)
		if err != nil {
			return nil, fmt.Errorf("extract job description: %w", err)
		}
		if documentID == "" {
			documentID = uuid.NewString()
		}
		fragments = p.jds.Chunk(fields, documentID)
		structured = fields

	default:
		return nil, fmt.Errorf("unsupported document type %q", docType)
	}

	if err := chunker.ValidateVocabulary(fragments); err != nil {
		return nil, err
	}

	normalized, reports := p.normalizer.NormalizeAll(fragments)
	splitCount := 0
	for _, report := range reports {
		if report.Status == types.SizeTooLarge {
			splitCount++
		}
	}

	structuredJSON, err := json.Marshal(structured)
	if err != nil {
		return nil, fmt.Errorf("marshal structured fields: %w", err)
	}

	record := &models.DocumentRecord{
		ID:               documentID,
		Type:             string(docType),
		RawText:          rawText,
		StructuredFields: datatypes.JSON(structuredJSON),
	}

	// The registry create is the duplicate gate. Nothing else may be
	// written before it, or a rejected duplicate would clobber the
	// existing document's data.
	if err := p.registry.CreateDocument(ctx, record); err != nil {
		return nil, err
	}

	if p.archive != nil {
		key, err := p.archive.PutRawDocument(ctx, docType, documentID, rawText)
		if err != nil {
			p.logger.Warn().Err(err).Str("document_id", documentID).Msg("raw archive write failed")
		} else {
			record.ObjectKey = key
			if err := p.registry.UpdateObjectKey(ctx, documentID, key); err != nil {
				p.logger.Warn().Err(err).Str("document_id", documentID).Msg("object key update failed")
			}
		}
	}

	if _, err := p.fragments.UpsertFragments(ctx, normalized); err != nil {
		// Vectors failed; take the registry row and archived bytes back
		// out so the document does not exist half-stored.
		if record.ObjectKey != "" {
			if delErr := p.archive.DeleteRawDocument(ctx, record.ObjectKey); delErr != nil {
				p.logger.Error().Err(delErr).Str("document_id", documentID).
					Msg("rollback of archived raw bytes failed after vector store error")
			}
		}
		if delErr := p.registry.DeleteDocument(ctx, documentID); delErr != nil {
			p.logger.Error().Err(delErr).Str("document_id", documentID).
				Msg("rollback of registry row failed after vector store error")
		}
		return nil, fmt.Errorf("store fragments of %s: %w", documentID, err)
	}

	// The fragment count is recorded only once the vectors are in.
	if err := p.registry.UpdateFragmentCount(ctx, documentID, len(normalized)); err != nil {
		p.logger.Warn().Err(err).Str("document_id", documentID).Msg("fragment count update failed")
	}

	stats := p.normalizer.Statistics(normalized)
	p.logger.Info().
		Str("document_id", documentID).
		Str("document_type", string(docType)).
		Int("fragments", len(normalized)).
		Int("split", splitCount).
		Msg("document ingested")

	return &IngestResult{
		DocumentID:    documentID,
		DocumentType:  docType,
		FragmentCount: len(normalized),
		SplitCount:    splitCount,
		Stats:         stats,
	}, nil
}

// GetDocument loads a registered document together with its fragments.
func (p *Ingestor) GetDocument(ctx context.Context, id string) (*DocumentView, error) {
	record, err := p.registry.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	fragments, err := p.fragments.GetFragmentsByDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load fragments of %s: %w", id, err)
	}
	return &DocumentView{
		ID:            record.ID,
		Type:          types.DocumentType(record.Type),
		RawText:       record.RawText,
		FragmentCount: record.FragmentCount,
		Fragments:     fragments,
	}, nil
}

// DeleteDocument removes a document everywhere: vectors, registry row
// and archived raw bytes.
func (p *Ingestor) DeleteDocument(ctx context.Context, id string) error {
	record, err := p.registry.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	if err := p.fragments.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("delete fragments of %s: %w", id, err)
	}
	if err := p.registry.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if p.archive != nil && record.ObjectKey != "" {
		if err := p.archive.DeleteRawDocument(ctx, record.ObjectKey); err != nil {
			p.logger.Warn().Err(err).Str("document_id", id).Msg("raw archive delete failed")
		}
	}

	p.logger.Info().Str("document_id", id).Msg("document deleted")
	return nil
}

// CountDocuments exposes the registry count for the API surface.
func (p *Ingestor) CountDocuments(ctx context.Context, docType types.DocumentType) (int, error) {
	return p.registry.CountDocuments(ctx, docType)
}

// DocumentSummary is one row of a document listing. Raw text and
// fragments are left out; GetDocument serves those.
type DocumentSummary struct {
	ID            string             `json:"id"`
	Type          types.DocumentType `json:"type"`
	FragmentCount int                `json:"fragment_count"`
	CreatedAt     time.Time          `json:"created_at"`
}

// ListDocuments returns registered documents of one type, newest first.
func (p *Ingestor) ListDocuments(ctx context.Context, docType types.DocumentType, limit, offset int) ([]DocumentSummary, error) {
	records, err := p.registry.ListDocuments(ctx, docType, limit, offset)
	if err != nil {
		return nil, err
	}
	summaries := make([]DocumentSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, DocumentSummary{
			ID:            record.ID,
			Type:          types.DocumentType(record.Type),
			FragmentCount: record.FragmentCount,
			CreatedAt:     record.CreatedAt,
		})
	}
	return summaries, nil
}
