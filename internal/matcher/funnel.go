package matcher

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"career-copilot-go/internal/logger"
	"career-copilot-go/internal/types"
)

// Default funnel parameters.
const (
	DefaultRoughTopK         = 50
	DefaultHybridPreciseTopN = 10
)

// roughOnlyNote annotates hybrid candidates that never reached precise
// analysis.
const roughOnlyNote = "Filtered out after rough matching - did not qualify for precise analysis"

// CandidateFragments pairs a candidate id with its stored fragments for
// a precise-match batch.
type CandidateFragments struct {
	ResumeID  string
	Fragments []types.Fragment
}

// Funnel runs the three matching tiers over one vector store. It owns a
// merge cache whose lifetime matches its own; callers reset it through
// ClearCache when the underlying documents change.
type Funnel struct {
	searcher   FragmentSearcher
	evaluator  DeepEvaluator
	aggregator *Aggregator
	cache      *MergeCache
	thresholds Thresholds

	roughTopK         int
	hybridPreciseTopN int

	logger zerolog.Logger
}

// FunnelOption configures a Funnel.
type FunnelOption func(*Funnel)

// WithThresholds overrides the score cutoffs.
func WithThresholds(t Thresholds) FunnelOption {
	return func(f *Funnel) {
		f.thresholds = t
	}
}

// WithRoughTopK sets the default fragment search width for rough runs.
func WithRoughTopK(topK int) FunnelOption {
	return func(f *Funnel) {
		if topK > 0 {
			f.roughTopK = topK
		}
	}
}

// WithHybridPreciseTopN sets how many rough survivors are promoted to
// precise analysis in hybrid runs.
func WithHybridPreciseTopN(topN int) FunnelOption {
	return func(f *Funnel) {
		if topN > 0 {
			f.hybridPreciseTopN = topN
		}
	}
}

// WithFunnelLogger sets the funnel's logger.
func WithFunnelLogger(l zerolog.Logger) FunnelOption {
	return func(f *Funnel) {
		f.logger = l
	}
}

// NewFunnel creates a Funnel. previewLength caps retained hit content
// for explainability; pass 0 to keep hits whole.
func NewFunnel(searcher FragmentSearcher, evaluator DeepEvaluator, previewLength int, options ...FunnelOption) *Funnel {
	f := &Funnel{
		searcher:          searcher,
		evaluator:         evaluator,
		aggregator:        NewAggregator(searcher, previewLength),
		cache:             NewMergeCache(),
		thresholds:        DefaultThresholds(),
		roughTopK:         DefaultRoughTopK,
		hybridPreciseTopN: DefaultHybridPreciseTopN,
		logger:            logger.Logger,
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// ClearCache drops all memoized fragment merges. Call after documents
// are re-ingested or deleted.
func (f *Funnel) ClearCache() {
	f.cache.Clear()
}

// CacheStats exposes merge-cache usage.
func (f *Funnel) CacheStats() CacheStats {
	return f.cache.Stats()
}

// RoughMatch scores candidates by embedding similarity alone, no LLM
// involved. topK <= 0 uses the funnel default. Results come back sorted
// by score descending, ties in aggregation encounter order.
func (f *Funnel) RoughMatch(ctx context.Context, jdText string, topK int) ([]types.MatchResult, error) {
	if f.searcher == nil {
		return nil, ErrNoSearcher
	}
	if jdText == "" {
		return nil, ErrEmptyJDText
	}
	if topK <= 0 {
		topK = f.roughTopK
	}

	stats, err := f.aggregator.AggregateText(ctx, jdText, topK)
	if err != nil {
		return nil, fmt.Errorf("rough match search: %w", err)
	}

	results := make([]types.MatchResult, 0, len(stats))
	for _, entry := range Ranked(stats) {
		results = append(results, f.roughResult(entry, types.ModeRough))
	}
	sortByScore(results)

	f.logger.Info().
		Int("candidates", len(results)).
		Int("top_k", topK).
		Msg("rough match complete")
	return results, nil
}

// roughResult builds a similarity-only result from aggregate stats.
func (f *Funnel) roughResult(entry *types.AggregateStats, mode types.MatchingMode) types.MatchResult {
	score := CalibrateScore(entry.AverageSimilarity)
	result := types.MatchResult{
		ResumeID:       entry.ResumeID,
		MatchScore:     score,
		Qualified:      f.thresholds.Qualified(score),
		Recommendation: f.thresholds.Recommend(score),
		MatchingMode:   mode,
		Summary: fmt.Sprintf("Found %d matching chunks with average similarity %.3f",
			entry.ChunkCount, entry.AverageSimilarity),
		Rough: &types.RoughDetail{
			MatchingChunks:    entry.ChunkCount,
			TotalSimilarity:   entry.TotalSimilarity,
			AverageSimilarity: entry.AverageSimilarity,
			TopMatchingChunks: entry.TopHits,
		},
	}
	if mode == types.ModeHybridRoughOnly {
		result.Note = roughOnlyNote
	}
	return result
}

// PreciseMatchOne merges one candidate's fragments, runs deep evaluation
// against the merged JD text and returns the verdict as a result. Any
// failure degrades into a score-zero error result instead of an error
// return; only empty inputs abort.
func (f *Funnel) PreciseMatchOne(ctx context.Context, candidate CandidateFragments, jdText string) (types.MatchResult, error) {
	if f.evaluator == nil {
		return types.MatchResult{}, ErrNoEvaluator
	}
	if jdText == "" {
		return types.MatchResult{}, ErrEmptyJDText
	}
	if len(candidate.Fragments) == 0 {
		return types.MatchResult{}, newMatchError(candidate.ResumeID, "precise", ErrEmptyResume, "")
	}

	resumeText := f.cache.GetOrCompute(candidate.ResumeID, candidate.Fragments, MergeFragments)

	verdict, err := f.evaluator.Evaluate(ctx, resumeText, jdText)
	if err != nil {
		f.logger.Error().
			Err(err).
			Str("resume_id", candidate.ResumeID).
			Msg("deep evaluation failed, degrading to error result")
		verdict = degradedVerdict("deep evaluation failed: "+err.Error(), "")
	}

	return f.preciseResult(candidate.ResumeID, verdict), nil
}

// preciseResult wraps a deep verdict as a result, filling in the
// recommendation from the thresholds when the LLM omitted it. The
// qualified flag is the evaluator's call and passes through untouched.
func (f *Funnel) preciseResult(resumeID string, verdict *types.DeepVerdict) types.MatchResult {
	recommendation := verdict.Recommendation
	if recommendation == "" {
		recommendation = f.thresholds.Recommend(verdict.MatchScore)
	}
	return types.MatchResult{
		ResumeID:       resumeID,
		MatchScore:     verdict.MatchScore,
		Qualified:      verdict.Qualified,
		Recommendation: recommendation,
		MatchingMode:   types.ModePrecise,
		Summary:        verdict.Summary,
		Deep:           verdict,
	}
}

// PreciseMatch runs deep evaluation for every candidate in the batch.
// Missing ids, duplicate ids or an empty JD abort the whole call;
// per-candidate evaluation failures degrade into error results so one
// bad candidate cannot sink the batch. Results are sorted by score
// descending, input order breaking ties.
func (f *Funnel) PreciseMatch(ctx context.Context, candidates []CandidateFragments, jdFragments []types.Fragment) ([]types.MatchResult, error) {
	if f.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	if len(jdFragments) == 0 {
		return nil, ErrEmptyJDFragments
	}

	seen := make(map[string]bool, len(candidates))
	for _, candidate := range candidates {
		if candidate.ResumeID == "" {
			return nil, newMatchError("", "precise", ErrEmptyResume, "candidate without id")
		}
		if seen[candidate.ResumeID] {
			return nil, newMatchError(candidate.ResumeID, "precise", ErrDuplicateCandidate, "")
		}
		seen[candidate.ResumeID] = true
	}

	jdText := MergeFragments(jdFragments)
	if jdText == "" {
		return nil, ErrEmptyJDText
	}

	results := make([]types.MatchResult, 0, len(candidates))
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := f.PreciseMatchOne(ctx, candidate, jdText)
		if err != nil {
			f.logger.Error().
				Err(err).
				Str("resume_id", candidate.ResumeID).
				Msg("candidate skipped input validation, degrading")
			verdict := degradedVerdict(err.Error(), "")
			result = f.preciseResult(candidate.ResumeID, verdict)
		}
		results = append(results, result)
	}

	sortByScore(results)
	return results, nil
}

// HybridMatch filters by similarity first, then deep-evaluates only the
// top survivors. Promoted candidates carry their rough signal alongside
// the verdict; the remainder is returned as hybrid_rough_only with an
// explanatory note. roughTopK and preciseTopN <= 0 use funnel defaults.
func (f *Funnel) HybridMatch(ctx context.Context, jdText string, roughTopK, preciseTopN int) ([]types.MatchResult, error) {
	if f.searcher == nil {
		return nil, ErrNoSearcher
	}
	if f.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	if preciseTopN <= 0 {
		preciseTopN = f.hybridPreciseTopN
	}

	rough, err := f.RoughMatch(ctx, jdText, roughTopK)
	if err != nil {
		return nil, err
	}
	f.logger.Debug().
		Int("candidates", len(rough)).
		Str("state", string(types.StateRoughFiltered)).
		Msg("hybrid rough stage complete")

	promoted := len(rough)
	if promoted > preciseTopN {
		promoted = preciseTopN
	}

	results := make([]types.MatchResult, 0, len(rough))
	for i, roughResult := range rough {
		if i >= promoted {
			tail := roughResult
			tail.MatchingMode = types.ModeHybridRoughOnly
			tail.Note = roughOnlyNote
			results = append(results, tail)
			continue
		}

		fragments, err := f.searcher.GetFragmentsByDocument(ctx, roughResult.ResumeID)
		if err != nil || len(fragments) == 0 {
			if err == nil {
				err = ErrEmptyResume
			}
			f.logger.Error().
				Err(err).
				Str("resume_id", roughResult.ResumeID).
				Msg("fragment fetch failed for promoted candidate, degrading")
			verdict := degradedVerdict("failed to load candidate fragments: "+err.Error(), "")
			results = append(results, f.hybridResult(roughResult, f.preciseResult(roughResult.ResumeID, verdict)))
			continue
		}

		precise, err := f.PreciseMatchOne(ctx, CandidateFragments{
			ResumeID:  roughResult.ResumeID,
			Fragments: fragments,
		}, jdText)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			verdict := degradedVerdict(err.Error(), "")
			precise = f.preciseResult(roughResult.ResumeID, verdict)
		}
		results = append(results, f.hybridResult(roughResult, precise))
	}

	sortByScore(results)

	f.logger.Info().
		Int("total", len(results)).
		Int("precise_analyzed", promoted).
		Int("rough_only", len(results)-promoted).
		Str("state", string(types.StateDone)).
		Msg("hybrid match complete")
	return results, nil
}

// hybridResult upgrades a precise result to hybrid mode, attaching the
// rough-stage signal it was promoted on.
func (f *Funnel) hybridResult(rough types.MatchResult, precise types.MatchResult) types.MatchResult {
	precise.MatchingMode = types.ModeHybrid
	carry := &types.RoughCarry{RoughMatchScore: rough.MatchScore}
	if rough.Rough != nil {
		carry.RoughSimilarity = rough.Rough.AverageSimilarity
		carry.RoughMatchingChunks = rough.Rough.MatchingChunks
	}
	precise.RoughCarry = carry
	return precise
}

// AdaptiveParams derives funnel parameters from the current résumé pool
// size, widening the rough net and tightening the precise stage as the
// pool grows.
func (f *Funnel) AdaptiveParams(ctx context.Context) (types.AdaptiveParams, error) {
	if f.searcher == nil {
		return types.AdaptiveParams{}, ErrNoSearcher
	}
	total, err := f.searcher.CountDocuments(ctx, types.DocumentTypeResume)
	if err != nil {
		return types.AdaptiveParams{}, fmt.Errorf("count resumes: %w", err)
	}

	params := adaptiveParamsFor(total)
	if total > 0 {
		params.PrecisePercentage = float64(params.PreciseTopN) / float64(total) * 100
	}
	return params, nil
}

// adaptiveParamsFor maps a résumé pool size to (rough_top_k,
// precise_top_n) bands.
func adaptiveParamsFor(total int) types.AdaptiveParams {
	var roughTopK, preciseTopN int
	switch {
	case total <= 0:
		roughTopK, preciseTopN = DefaultRoughTopK, DefaultHybridPreciseTopN
	case total <= 10:
		roughTopK, preciseTopN = total*5, total
	case total <= 50:
		roughTopK, preciseTopN = total*3, maxInt(5, total/2)
	case total <= 200:
		roughTopK, preciseTopN = minInt(100, total), maxInt(10, total/5)
	case total <= 1000:
		roughTopK, preciseTopN = 200, maxInt(15, total/20)
	default:
		roughTopK, preciseTopN = 300, 20
	}
	return types.AdaptiveParams{
		RoughTopK:    roughTopK,
		PreciseTopN:  preciseTopN,
		TotalResumes: total,
	}
}

// AdaptiveHybridMatch runs a hybrid match with parameters derived from
// the résumé pool size.
func (f *Funnel) AdaptiveHybridMatch(ctx context.Context, jdText string) ([]types.MatchResult, error) {
	params, err := f.AdaptiveParams(ctx)
	if err != nil {
		return nil, err
	}
	f.logger.Info().
		Int("total_resumes", params.TotalResumes).
		Int("rough_top_k", params.RoughTopK).
		Int("precise_top_n", params.PreciseTopN).
		Msg("adaptive hybrid parameters selected")
	return f.HybridMatch(ctx, jdText, params.RoughTopK, params.PreciseTopN)
}

// sortByScore orders results by score descending, keeping the incoming
// order for equal scores.
func sortByScore(results []types.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
