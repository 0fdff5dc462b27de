package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-copilot-go/internal/types"
)

// fakeEvaluator returns canned verdicts per candidate resume text.
type fakeEvaluator struct {
	verdict    *types.DeepVerdict
	err        error
	failOnText string
	calls      int
}

func (e *fakeEvaluator) Evaluate(ctx context.Context, resumeText, jdText string) (*types.DeepVerdict, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if e.failOnText != "" && strings.Contains(resumeText, e.failOnText) {
		return nil, errors.New("evaluation blew up for this candidate")
	}
	verdict := *e.verdict
	return &verdict, nil
}

func goodVerdict(score float64) *types.DeepVerdict {
	return &types.DeepVerdict{
		Qualified:      score >= 60,
		MatchScore:     score,
		Summary:        "Solid candidate.",
		Strengths:      []string{"Strong Go background"},
		Weaknesses:     []string{"Limited cloud experience"},
		Recommendation: types.GoodMatch,
	}
}

func resumeFragments(id string) []types.Fragment {
	return []types.Fragment{
		{FragmentID: id + "_summary", Field: types.FieldSummary, Content: "Engineer " + id, DocumentID: id},
		{FragmentID: id + "_skills", Field: types.FieldSkills, Content: "Skills: Go", DocumentID: id},
	}
}

func jdFragmentsFixture() []types.Fragment {
	return []types.Fragment{
		{FragmentID: "jd_skills", Field: types.FieldSkills, Content: "Skills: Go, SQL", DocumentID: "jd"},
	}
}

func TestRoughMatchOrdersAndCalibrates(t *testing.T) {
	searcher := &fakeSearcher{
		hits: []SearchHit{
			{FragmentID: "b_skills", DocumentID: "b", Field: types.FieldSkills, Similarity: 0.4},
			{FragmentID: "a_skills", DocumentID: "a", Field: types.FieldSkills, Similarity: 0.9},
			{FragmentID: "a_summary", DocumentID: "a", Field: types.FieldSummary, Similarity: 0.8},
		},
	}
	funnel := NewFunnel(searcher, nil, 0)

	results, err := funnel.RoughMatch(context.Background(), "backend engineer", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	top := results[0]
	assert.Equal(t, "a", top.ResumeID)
	assert.InDelta(t, 85, top.MatchScore, 0.001)
	assert.True(t, top.Qualified)
	assert.Equal(t, types.StrongMatch, top.Recommendation)
	assert.Equal(t, types.ModeRough, top.MatchingMode)
	assert.Equal(t, "Found 2 matching chunks with average similarity 0.850", top.Summary)
	require.NotNil(t, top.Rough)
	assert.Nil(t, top.Deep)

	low := results[1]
	assert.Equal(t, "b", low.ResumeID)
	assert.InDelta(t, 40, low.MatchScore, 0.001)
	assert.False(t, low.Qualified)
	assert.Equal(t, types.NotMatch, low.Recommendation)
}

func TestRoughMatchEmptyJD(t *testing.T) {
	funnel := NewFunnel(&fakeSearcher{}, nil, 0)
	_, err := funnel.RoughMatch(context.Background(), "", 10)
	assert.ErrorIs(t, err, ErrEmptyJDText)
}

func TestRoughMatchNoCandidates(t *testing.T) {
	funnel := NewFunnel(&fakeSearcher{}, nil, 0)
	results, err := funnel.RoughMatch(context.Background(), "jd", 10)
	require.NoError(t, err)
	assert.Empty(t, results, "an empty pool is a result, not an error")
}

func TestPreciseMatchBatch(t *testing.T) {
	evaluator := &fakeEvaluator{verdict: goodVerdict(72)}
	funnel := NewFunnel(&fakeSearcher{}, evaluator, 0)

	candidates := []CandidateFragments{
		{ResumeID: "a", Fragments: resumeFragments("a")},
		{ResumeID: "b", Fragments: resumeFragments("b")},
	}

	results, err := funnel.PreciseMatch(context.Background(), candidates, jdFragmentsFixture())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, evaluator.calls)

	for _, result := range results {
		assert.Equal(t, types.ModePrecise, result.MatchingMode)
		assert.InDelta(t, 72, result.MatchScore, 0.001)
		assert.True(t, result.Qualified)
		require.NotNil(t, result.Deep)
		assert.Nil(t, result.Rough)
	}
}

func TestPreciseMatchKeepsEvaluatorQualifiedDecision(t *testing.T) {
	verdict := goodVerdict(70)
	verdict.Qualified = false
	funnel := NewFunnel(&fakeSearcher{}, &fakeEvaluator{verdict: verdict}, 0)

	result, err := funnel.PreciseMatchOne(context.Background(), CandidateFragments{
		ResumeID:  "a",
		Fragments: resumeFragments("a"),
	}, "jd text")
	require.NoError(t, err)

	assert.False(t, result.Qualified,
		"the evaluator said no; a passing score must not overrule it")
	assert.InDelta(t, 70, result.MatchScore, 0.001)
}

func TestPreciseMatchRejectsDuplicates(t *testing.T) {
	funnel := NewFunnel(&fakeSearcher{}, &fakeEvaluator{verdict: goodVerdict(70)}, 0)

	candidates := []CandidateFragments{
		{ResumeID: "a", Fragments: resumeFragments("a")},
		{ResumeID: "a", Fragments: resumeFragments("a")},
	}

	_, err := funnel.PreciseMatch(context.Background(), candidates, jdFragmentsFixture())
	assert.ErrorIs(t, err, ErrDuplicateCandidate)
}

func TestPreciseMatchRejectsEmptyJD(t *testing.T) {
	funnel := NewFunnel(&fakeSearcher{}, &fakeEvaluator{verdict: goodVerdict(70)}, 0)
	_, err := funnel.PreciseMatch(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrEmptyJDFragments)
}

func TestPreciseMatchDegradesPerCandidate(t *testing.T) {
	evaluator := &fakeEvaluator{verdict: goodVerdict(70), failOnText: "Engineer bad"}
	funnel := NewFunnel(&fakeSearcher{}, evaluator, 0)

	candidates := []CandidateFragments{
		{ResumeID: "good", Fragments: resumeFragments("good")},
		{ResumeID: "bad", Fragments: resumeFragments("bad")},
	}

	results, err := funnel.PreciseMatch(context.Background(), candidates, jdFragmentsFixture())
	require.NoError(t, err, "one failing candidate must not sink the batch")
	require.Len(t, results, 2)

	byID := make(map[string]types.MatchResult)
	for _, result := range results {
		byID[result.ResumeID] = result
	}

	good := byID["good"]
	assert.True(t, good.Qualified)
	assert.Empty(t, good.Deep.Error)

	bad := byID["bad"]
	assert.Zero(t, bad.MatchScore)
	assert.False(t, bad.Qualified)
	require.NotNil(t, bad.Deep)
	assert.NotEmpty(t, bad.Deep.Error)

	assert.Equal(t, "good", results[0].ResumeID, "degraded result sorts below the healthy one")
}

func TestHybridMatchCoversAllRoughCandidates(t *testing.T) {
	searcher := &fakeSearcher{
		hits: []SearchHit{
			{FragmentID: "a_skills", DocumentID: "a", Field: types.FieldSkills, Similarity: 0.9},
			{FragmentID: "b_skills", DocumentID: "b", Field: types.FieldSkills, Similarity: 0.7},
			{FragmentID: "c_skills", DocumentID: "c", Field: types.FieldSkills, Similarity: 0.5},
		},
		fragments: map[string][]types.Fragment{
			"a": resumeFragments("a"),
			"b": resumeFragments("b"),
			"c": resumeFragments("c"),
		},
	}
	evaluator := &fakeEvaluator{verdict: goodVerdict(82)}
	funnel := NewFunnel(searcher, evaluator, 0)

	results, err := funnel.HybridMatch(context.Background(), "jd text", 50, 2)
	require.NoError(t, err)
	require.Len(t, results, 3, "hybrid returns precise plus rough-only candidates")
	assert.Equal(t, 2, evaluator.calls)

	var preciseCount, roughOnlyCount int
	for _, result := range results {
		switch result.MatchingMode {
		case types.ModeHybrid:
			preciseCount++
			require.NotNil(t, result.Deep)
			require.NotNil(t, result.RoughCarry)
			assert.Positive(t, result.RoughCarry.RoughSimilarity)
			assert.Empty(t, result.Note)
		case types.ModeHybridRoughOnly:
			roughOnlyCount++
			require.NotNil(t, result.Rough)
			assert.Nil(t, result.Deep)
			assert.Equal(t, roughOnlyNote, result.Note)
		default:
			t.Fatalf("unexpected matching mode %q", result.MatchingMode)
		}
	}
	assert.Equal(t, 2, preciseCount)
	assert.Equal(t, 1, roughOnlyCount)
}

func TestHybridMatchDegradesFragmentFetchFailure(t *testing.T) {
	searcher := &fakeSearcher{
		hits: []SearchHit{
			{FragmentID: "a_skills", DocumentID: "a", Field: types.FieldSkills, Similarity: 0.9},
		},
		fetchErr: errors.New("store unavailable"),
	}
	funnel := NewFunnel(searcher, &fakeEvaluator{verdict: goodVerdict(80)}, 0)

	results, err := funnel.HybridMatch(context.Background(), "jd text", 10, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	result := results[0]
	assert.Equal(t, types.ModeHybrid, result.MatchingMode)
	assert.Zero(t, result.MatchScore)
	require.NotNil(t, result.Deep)
	assert.NotEmpty(t, result.Deep.Error)
}

func TestAdaptiveParamsBands(t *testing.T) {
	cases := []struct {
		total       int
		roughTopK   int
		preciseTopN int
	}{
		{0, DefaultRoughTopK, DefaultHybridPreciseTopN},
		{4, 20, 4},
		{10, 50, 10},
		{30, 90, 15},
		{50, 150, 25},
		{120, 100, 24},
		{200, 100, 40},
		{600, 200, 30},
		{1000, 200, 50},
		{5000, 300, 20},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("total=%d", tc.total), func(t *testing.T) {
			params := adaptiveParamsFor(tc.total)
			assert.Equal(t, tc.roughTopK, params.RoughTopK)
			assert.Equal(t, tc.preciseTopN, params.PreciseTopN)
		})
	}
}

func TestAdaptiveHybridMatchUsesPoolSize(t *testing.T) {
	searcher := &fakeSearcher{
		hits: []SearchHit{
			{FragmentID: "a_skills", DocumentID: "a", Field: types.FieldSkills, Similarity: 0.85},
		},
		fragments:   map[string][]types.Fragment{"a": resumeFragments("a")},
		resumeCount: 3,
	}
	evaluator := &fakeEvaluator{verdict: goodVerdict(75)}
	funnel := NewFunnel(searcher, evaluator, 0)

	results, err := funnel.AdaptiveHybridMatch(context.Background(), "jd text")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 15, searcher.lastOpts.TopK, "pool of 3 widens rough search to 15")
	assert.Equal(t, types.ModeHybrid, results[0].MatchingMode)
}

func TestFunnelCacheReuseAcrossBatches(t *testing.T) {
	evaluator := &fakeEvaluator{verdict: goodVerdict(70)}
	funnel := NewFunnel(&fakeSearcher{}, evaluator, 0)

	candidates := []CandidateFragments{{ResumeID: "a", Fragments: resumeFragments("a")}}
	jd := jdFragmentsFixture()

	_, err := funnel.PreciseMatch(context.Background(), candidates, jd)
	require.NoError(t, err)
	_, err = funnel.PreciseMatch(context.Background(), candidates, jd)
	require.NoError(t, err)

	stats := funnel.CacheStats()
	assert.Equal(t, uint64(1), stats.Hits, "second batch reuses the merged resume")

	funnel.ClearCache()
	assert.Equal(t, 0, funnel.CacheStats().CachedItems)
}
