package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"career-copilot-go/internal/config"
	"career-copilot-go/internal/matcher"
	"career-copilot-go/internal/tracing"
	"career-copilot-go/internal/types"
)

var qdrantTracer = otel.Tracer("career-copilot-go/storage/qdrant")

// scrollPageSize is how many points one scroll request fetches; the
// cursor keeps paging until next_page_offset runs out.
const scrollPageSize = 256

// fragmentPointNamespace makes point IDs a pure function of the
// fragment id, so re-upserting the same fragment overwrites its point
// instead of duplicating it.
var fragmentPointNamespace = uuid.Must(uuid.FromString("5f2d9a41-7c1e-4b8a-9f36-d2c04c6be9aa"))

// Qdrant stores fragment vectors and serves similarity search. Queries
// arrive as text; the adapter owns the embedding step so callers only
// deal in fragments and hits.
type Qdrant struct {
	endpoint       string
	apiKey         string
	collectionName string
	dimension      int
	distanceMetric string
	searchLimit    int
	embedder       embedding.Embedder
	httpClient     *http.Client
}

// QdrantOption configures the adapter.
type QdrantOption func(*Qdrant)

// WithDistanceMetric overrides the collection distance metric.
func WithDistanceMetric(metric string) QdrantOption {
	return func(q *Qdrant) {
		q.distanceMetric = metric
	}
}

// WithHTTPTimeout overrides the per-request timeout.
func WithHTTPTimeout(timeout time.Duration) QdrantOption {
	return func(q *Qdrant) {
		q.httpClient.Timeout = timeout
	}
}

// NewQdrant connects to Qdrant and ensures the fragment collection
// exists with the configured dimension.
func NewQdrant(cfg *config.QdrantConfig, embedder embedding.Embedder, opts ...QdrantOption) (*Qdrant, error) {
	if cfg == nil {
		return nil, fmt.Errorf("qdrant config cannot be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("qdrant adapter requires an embedder")
	}

	q := &Qdrant{
		endpoint:       cfg.Endpoint,
		apiKey:         cfg.APIKey,
		collectionName: cfg.Collection,
		dimension:      cfg.Dimension,
		distanceMetric: "Cosine",
		searchLimit:    cfg.DefaultSearchLimit,
		embedder:       embedder,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(q)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := q.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

// ensureCollection creates the fragment collection when missing.
func (q *Qdrant) ensureCollection(ctx context.Context) error {
	var info struct {
		Result struct {
			Status string `json:"status"`
		} `json:"result"`
	}
	err := q.doRequest(ctx, http.MethodGet, "/collections/"+q.collectionName, nil, &info)
	if err == nil {
		return nil
	}

	createBody := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     q.dimension,
			"distance": q.distanceMetric,
		},
	}
	if err := q.doRequest(ctx, http.MethodPut, "/collections/"+q.collectionName, createBody, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", q.collectionName, err)
	}

	// Payload indexes for the filterable keys.
	for _, field := range []string{"document_type", "field", "document_id"} {
		indexBody := map[string]interface{}{
			"field_name":   field,
			"field_schema": "keyword",
		}
		if err := q.doRequest(ctx, http.MethodPut,
			fmt.Sprintf("/collections/%s/index", q.collectionName), indexBody, nil); err != nil {
			return fmt.Errorf("create payload index %s: %w", field, err)
		}
	}
	return nil
}

// PointID derives the deterministic point id for a fragment.
func PointID(fragmentID string) string {
	return uuid.NewV5(fragmentPointNamespace, fragmentID).String()
}

// fragmentPayload is the stored payload of a fragment point.
func fragmentPayload(fragment types.Fragment) map[string]interface{} {
	payload := map[string]interface{}{
		"fragment_id":   fragment.FragmentID,
		"field":         fragment.Field,
		"content":       fragment.Content,
		"document_id":   fragment.DocumentID,
		"document_type": string(fragment.DocumentType),
	}
	if fragment.IsSplit {
		payload["is_split"] = true
		payload["original_fragment_id"] = fragment.OriginalFragmentID
		payload["part_number"] = fragment.PartNumber
		payload["total_parts"] = fragment.TotalParts
	}
	return payload
}

// UpsertFragments embeds and stores fragments, returning the point ids
// in input order.
func (q *Qdrant) UpsertFragments(ctx context.Context, fragments []types.Fragment) ([]string, error) {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.UpsertFragments",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "qdrant"),
			attribute.String("db.collection", q.collectionName),
			attribute.Int("fragment.count", len(fragments)),
		))
	defer span.End()

	if len(fragments) == 0 {
		return nil, nil
	}

	texts := make([]string, len(fragments))
	for i, fragment := range fragments {
		texts[i] = fragment.Content
	}

	vectors, err := q.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("embed %d fragments: %w", len(fragments), err)
	}
	if len(vectors) != len(fragments) {
		err = fmt.Errorf("embedder returned %d vectors for %d fragments", len(vectors), len(fragments))
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, err
	}

	pointIDs := make([]string, len(fragments))
	points := make([]map[string]interface{}, len(fragments))
	for i, fragment := range fragments {
		pointIDs[i] = PointID(fragment.FragmentID)
		points[i] = map[string]interface{}{
			"id":      pointIDs[i],
			"vector":  vectors[i],
			"payload": fragmentPayload(fragment),
		}
	}

	upsertBody := map[string]interface{}{"points": points}
	path := fmt.Sprintf("/collections/%s/points?wait=true", q.collectionName)
	if err := q.doRequest(ctx, http.MethodPut, path, upsertBody, nil); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, fmt.Errorf("upsert %d points: %w", len(points), err)
	}

	span.SetStatus(codes.Ok, "")
	return pointIDs, nil
}

// searchFilter builds the must-clause for a fragment search.
func searchFilter(opts matcher.SearchOptions) map[string]interface{} {
	var must []map[string]interface{}
	if opts.DocumentType != "" {
		must = append(must, map[string]interface{}{
			"key":   "document_type",
			"match": map[string]interface{}{"value": string(opts.DocumentType)},
		})
	}
	if opts.Field != "" {
		must = append(must, map[string]interface{}{
			"key":   "field",
			"match": map[string]interface{}{"value": opts.Field},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return map[string]interface{}{"must": must}
}

// SearchSimilarFragments embeds the query text and returns the nearest
// fragments, implementing the matcher's searcher contract.
func (q *Qdrant) SearchSimilarFragments(ctx context.Context, queryText string, opts matcher.SearchOptions) ([]matcher.SearchHit, error) {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.SearchSimilarFragments",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "qdrant"),
			attribute.String("db.collection", q.collectionName),
			attribute.String("query.preview", tracing.SafeQuery(queryText)),
			attribute.Int("search.top_k", opts.TopK),
		))
	defer span.End()

	vectors, err := q.embedder.EmbedStrings(ctx, []string{queryText})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		err = fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, err
	}

	limit := opts.TopK
	if limit <= 0 {
		limit = q.searchLimit
	}

	searchBody := map[string]interface{}{
		"vector":       vectors[0],
		"limit":        limit,
		"with_payload": true,
	}
	if filter := searchFilter(opts); filter != nil {
		searchBody["filter"] = filter
	}

	var searchResp struct {
		Result []struct {
			ID      string                 `json:"id"`
			Score   float64                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", q.collectionName)
	if err := q.doRequest(ctx, http.MethodPost, path, searchBody, &searchResp); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, fmt.Errorf("search fragments: %w", err)
	}

	hits := make([]matcher.SearchHit, 0, len(searchResp.Result))
	for _, point := range searchResp.Result {
		hits = append(hits, matcher.SearchHit{
			FragmentID: payloadString(point.Payload, "fragment_id"),
			DocumentID: payloadString(point.Payload, "document_id"),
			Field:      payloadString(point.Payload, "field"),
			Content:    payloadString(point.Payload, "content"),
			Similarity: point.Score,
		})
	}

	span.SetAttributes(attribute.Int("search.hits", len(hits)))
	span.SetStatus(codes.Ok, "")
	return hits, nil
}

// GetFragmentsByDocument scrolls every stored fragment of a document.
func (q *Qdrant) GetFragmentsByDocument(ctx context.Context, documentID string) ([]types.Fragment, error) {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.GetFragmentsByDocument",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "qdrant"),
			attribute.String("db.collection", q.collectionName),
			attribute.String("document.id", documentID),
		))
	defer span.End()

	filter := map[string]interface{}{
		"must": []map[string]interface{}{
			{
				"key":   "document_id",
				"match": map[string]interface{}{"value": documentID},
			},
		},
	}

	path := fmt.Sprintf("/collections/%s/points/scroll", q.collectionName)
	var fragments []types.Fragment
	var offset interface{}
	for {
		scrollBody := map[string]interface{}{
			"filter":       filter,
			"with_payload": true,
			"limit":        scrollPageSize,
		}
		if offset != nil {
			scrollBody["offset"] = offset
		}

		var scrollResp struct {
			Result struct {
				Points []struct {
					ID      string                 `json:"id"`
					Payload map[string]interface{} `json:"payload"`
				} `json:"points"`
				NextPageOffset interface{} `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := q.doRequest(ctx, http.MethodPost, path, scrollBody, &scrollResp); err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
			return nil, fmt.Errorf("scroll fragments of %s: %w", documentID, err)
		}

		for _, point := range scrollResp.Result.Points {
			fragments = append(fragments, fragmentFromPayload(point.Payload))
		}
		if scrollResp.Result.NextPageOffset == nil || len(scrollResp.Result.Points) == 0 {
			break
		}
		offset = scrollResp.Result.NextPageOffset
	}

	span.SetAttributes(attribute.Int("fragment.count", len(fragments)))
	span.SetStatus(codes.Ok, "")
	return fragments, nil
}

// DeleteByDocument removes every fragment point of a document.
func (q *Qdrant) DeleteByDocument(ctx context.Context, documentID string) error {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.DeleteByDocument",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "qdrant"),
			attribute.String("db.collection", q.collectionName),
			attribute.String("document.id", documentID),
		))
	defer span.End()

	deleteBody := map[string]interface{}{
		"filter": map[string]interface{}{
			"must": []map[string]interface{}{
				{
					"key":   "document_id",
					"match": map[string]interface{}{"value": documentID},
				},
			},
		},
	}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", q.collectionName)
	if err := q.doRequest(ctx, http.MethodPost, path, deleteBody, nil); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return fmt.Errorf("delete fragments of %s: %w", documentID, err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// CountFragments returns the exact number of stored fragment points.
func (q *Qdrant) CountFragments(ctx context.Context) (int64, error) {
	var countResp struct {
		Result struct {
			Count int64 `json:"count"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/count", q.collectionName)
	body := map[string]interface{}{"exact": true}
	if err := q.doRequest(ctx, http.MethodPost, path, body, &countResp); err != nil {
		return 0, fmt.Errorf("count fragments: %w", err)
	}
	return countResp.Result.Count, nil
}

// fragmentFromPayload rebuilds a fragment from its stored payload.
func fragmentFromPayload(payload map[string]interface{}) types.Fragment {
	fragment := types.Fragment{
		FragmentID:   payloadString(payload, "fragment_id"),
		Field:        payloadString(payload, "field"),
		Content:      payloadString(payload, "content"),
		DocumentID:   payloadString(payload, "document_id"),
		DocumentType: types.DocumentType(payloadString(payload, "document_type")),
	}
	if isSplit, ok := payload["is_split"].(bool); ok && isSplit {
		fragment.IsSplit = true
		fragment.OriginalFragmentID = payloadString(payload, "original_fragment_id")
		fragment.PartNumber = payloadInt(payload, "part_number")
		fragment.TotalParts = payloadInt(payload, "total_parts")
	}
	return fragment
}

func payloadString(payload map[string]interface{}, key string) string {
	if value, ok := payload[key].(string); ok {
		return value
	}
	return ""
}

func payloadInt(payload map[string]interface{}, key string) int {
	// JSON numbers decode as float64.
	if value, ok := payload[key].(float64); ok {
		return int(value)
	}
	return 0
}

// doRequest performs one Qdrant HTTP call with tracing and context
// propagation.
func (q *Qdrant) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	ctx, span := qdrantTracer.Start(ctx, fmt.Sprintf("%s %s", method, path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("net.peer.name", q.endpoint),
			attribute.String("db.system", "qdrant"),
			attribute.String("db.operation", path),
		))
	defer span.End()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
			return err
		}
		reqBody = bytes.NewBuffer(payload)
		span.SetAttributes(attribute.Int("http.request.body.size", len(payload)))
	}

	req, err := http.NewRequestWithContext(ctx, method, q.endpoint+path, reqBody)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := q.httpClient.Do(req)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeHTTP)
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeHTTP)
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err = fmt.Errorf("qdrant API error: status=%d body=%.200s", resp.StatusCode, string(respBody))
		tracing.RecordHTTPError(span, err, resp.StatusCode)
		return err
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
			return err
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
