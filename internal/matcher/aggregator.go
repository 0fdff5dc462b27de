package matcher

import (
	"context"
	"math"
	"sort"

	"career-copilot-go/internal/types"
)

// topHitsPerCandidate caps how many fragment hits are retained per
// candidate for explainability.
const topHitsPerCandidate = 5

// SearchOptions narrows a fragment search.
type SearchOptions struct {
	DocumentType types.DocumentType
	Field        string
	TopK         int
}

// SearchHit is one fragment returned by vector search, scored by
// similarity in [0, 1] for cosine-normalized embeddings.
type SearchHit struct {
	FragmentID string
	DocumentID string
	Field      string
	Content    string
	Similarity float64
}

// FragmentSearcher is the vector-store view the matcher depends on.
type FragmentSearcher interface {
	// SearchSimilarFragments embeds queryText and returns the nearest
	// stored fragments under the given options.
	SearchSimilarFragments(ctx context.Context, queryText string, opts SearchOptions) ([]SearchHit, error)
	// GetFragmentsByDocument returns every stored fragment of a document.
	GetFragmentsByDocument(ctx context.Context, documentID string) ([]types.Fragment, error)
	// CountDocuments returns how many documents of the given type exist.
	CountDocuments(ctx context.Context, docType types.DocumentType) (int, error)
}

// Aggregator turns fragment-level search hits into per-candidate
// similarity statistics.
type Aggregator struct {
	searcher      FragmentSearcher
	previewLength int
}

// NewAggregator creates an Aggregator over the given searcher.
// previewLength caps the stored content of each retained hit.
func NewAggregator(searcher FragmentSearcher, previewLength int) *Aggregator {
	return &Aggregator{searcher: searcher, previewLength: previewLength}
}

// AggregateText runs one search with the whole query text and groups the
// hits by candidate. This is the rough-match path.
func (a *Aggregator) AggregateText(ctx context.Context, queryText string, topK int) (map[string]*types.AggregateStats, error) {
	hits, err := a.searcher.SearchSimilarFragments(ctx, queryText, SearchOptions{
		DocumentType: types.DocumentTypeResume,
		TopK:         topK,
	})
	if err != nil {
		return nil, err
	}

	stats := make(map[string]*types.AggregateStats)
	a.accumulate(stats, hits)
	finalize(stats)
	return stats, nil
}

// Aggregate searches once per JD fragment and accumulates all hits by
// candidate. When scopeByField is set each search is restricted to the
// fragment's own field, so a skills requirement only scores against
// skills fragments.
func (a *Aggregator) Aggregate(ctx context.Context, jdFragments []types.Fragment, topK int, scopeByField bool) (map[string]*types.AggregateStats, error) {
	stats := make(map[string]*types.AggregateStats)

	for _, fragment := range jdFragments {
		opts := SearchOptions{
			DocumentType: types.DocumentTypeResume,
			TopK:         topK,
		}
		if scopeByField {
			opts.Field = fragment.Field
		}
		hits, err := a.searcher.SearchSimilarFragments(ctx, fragment.Content, opts)
		if err != nil {
			return nil, err
		}
		a.accumulate(stats, hits)
	}

	finalize(stats)
	return stats, nil
}

// accumulate folds hits into the per-candidate stats, preserving first
// encounter order so later sorting can break score ties stably. TopHits
// keeps the highest-similarity hits up to the cap, whichever search
// they arrived from.
func (a *Aggregator) accumulate(stats map[string]*types.AggregateStats, hits []SearchHit) {
	for _, hit := range hits {
		entry, ok := stats[hit.DocumentID]
		if !ok {
			entry = &types.AggregateStats{
				ResumeID:  hit.DocumentID,
				FirstSeen: len(stats),
			}
			stats[hit.DocumentID] = entry
		}
		entry.TotalSimilarity += hit.Similarity
		entry.ChunkCount++

		content := hit.Content
		if a.previewLength > 0 && len(content) > a.previewLength {
			content = content[:a.previewLength]
		}
		entry.TopHits = append(entry.TopHits, types.FragmentHit{
			FragmentID: hit.FragmentID,
			Field:      hit.Field,
			Content:    content,
			Similarity: hit.Similarity,
		})
		if len(entry.TopHits) > topHitsPerCandidate {
			weakest := 0
			for i, kept := range entry.TopHits {
				if kept.Similarity < entry.TopHits[weakest].Similarity {
					weakest = i
				}
			}
			entry.TopHits = append(entry.TopHits[:weakest], entry.TopHits[weakest+1:]...)
		}
	}
}

func finalize(stats map[string]*types.AggregateStats) {
	for _, entry := range stats {
		if entry.ChunkCount > 0 {
			entry.AverageSimilarity = entry.TotalSimilarity / float64(entry.ChunkCount)
		}
		sort.SliceStable(entry.TopHits, func(i, j int) bool {
			return entry.TopHits[i].Similarity > entry.TopHits[j].Similarity
		})
	}
}

// Ranked returns the candidates ordered by average similarity
// descending, ties broken by encounter order.
func Ranked(stats map[string]*types.AggregateStats) []*types.AggregateStats {
	ranked := make([]*types.AggregateStats, 0, len(stats))
	for _, entry := range stats {
		ranked = append(ranked, entry)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].AverageSimilarity != ranked[j].AverageSimilarity {
			return ranked[i].AverageSimilarity > ranked[j].AverageSimilarity
		}
		return ranked[i].FirstSeen < ranked[j].FirstSeen
	})
	return ranked
}

// CalibrateScore maps an average similarity to a 0-100 match score. The
// usual cosine range [0, 1] maps piecewise so that high-similarity
// candidates spread over the 80-100 band instead of bunching up; scores
// outside [0, 1] (dot-product or signed metrics) fall back to a linear
// clamp. Rounded to 2 decimals.
func CalibrateScore(avg float64) float64 {
	var score float64
	switch {
	case avg >= 0 && avg <= 1:
		if avg >= 0.8 {
			score = 80 + (avg-0.8)*100
		} else {
			score = avg * 100
		}
	default:
		score = (avg + 1) * 50
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
	}
	return math.Round(score*100) / 100
}

// Thresholds hold the score cutoffs for qualification and
// recommendation buckets.
type Thresholds struct {
	MinMatchScore float64
	Strong        float64
	Good          float64
	Partial       float64
}

// DefaultThresholds returns the standard cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{MinMatchScore: 60, Strong: 80, Good: 65, Partial: 50}
}

// Qualified reports whether a score clears the qualification bar.
func (t Thresholds) Qualified(score float64) bool {
	return score >= t.MinMatchScore
}

// Recommend buckets a score into a recommendation.
func (t Thresholds) Recommend(score float64) types.Recommendation {
	switch {
	case score >= t.Strong:
		return types.StrongMatch
	case score >= t.Good:
		return types.GoodMatch
	case score >= t.Partial:
		return types.PartialMatch
	default:
		return types.NotMatch
	}
}
