package matcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-copilot-go/internal/types"
)

// fakeSearcher serves canned hits and fragments for funnel tests.
type fakeSearcher struct {
	hits        []SearchHit
	hitsByQuery map[string][]SearchHit
	fragments   map[string][]types.Fragment
	resumeCount int
	searchErr   error
	fetchErr    error

	searchCalls int
	lastOpts    SearchOptions
}

func (s *fakeSearcher) SearchSimilarFragments(ctx context.Context, queryText string, opts SearchOptions) ([]SearchHit, error) {
	s.searchCalls++
	s.lastOpts = opts
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if s.hitsByQuery != nil {
		return s.hitsByQuery[queryText], nil
	}
	return s.hits, nil
}

func (s *fakeSearcher) GetFragmentsByDocument(ctx context.Context, documentID string) ([]types.Fragment, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.fragments[documentID], nil
}

func (s *fakeSearcher) CountDocuments(ctx context.Context, docType types.DocumentType) (int, error) {
	return s.resumeCount, nil
}

func TestCalibrateScore(t *testing.T) {
	cases := []struct {
		name string
		avg  float64
		want float64
	}{
		{"low cosine maps linearly", 0.4, 40},
		{"breakpoint boundary", 0.8, 80},
		{"high cosine spreads over top band", 0.9, 90},
		{"perfect similarity", 1.0, 100},
		{"zero", 0, 0},
		{"signed metric rescaled", -0.5, 25},
		{"signed metric clamped high", 1.5, 100},
		{"signed metric clamped low", -2.0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, CalibrateScore(tc.avg), 0.001)
		})
	}
}

func TestCalibrateScoreMonotonicInUnitRange(t *testing.T) {
	prev := CalibrateScore(0)
	for avg := 0.01; avg <= 1.0; avg += 0.01 {
		score := CalibrateScore(avg)
		assert.GreaterOrEqual(t, score, prev, "score must not decrease as similarity grows (avg=%.2f)", avg)
		prev = score
	}
}

func TestThresholdsRecommend(t *testing.T) {
	thresholds := DefaultThresholds()

	assert.Equal(t, types.StrongMatch, thresholds.Recommend(90))
	assert.Equal(t, types.StrongMatch, thresholds.Recommend(80))
	assert.Equal(t, types.GoodMatch, thresholds.Recommend(70))
	assert.Equal(t, types.PartialMatch, thresholds.Recommend(55))
	assert.Equal(t, types.NotMatch, thresholds.Recommend(40))

	assert.True(t, thresholds.Qualified(60))
	assert.False(t, thresholds.Qualified(59.99))
}

func TestAggregateTextGroupsByCandidate(t *testing.T) {
	searcher := &fakeSearcher{
		hits: []SearchHit{
			{FragmentID: "a_skills", DocumentID: "a", Field: types.FieldSkills, Content: "Go, SQL", Similarity: 0.9},
			{FragmentID: "b_skills", DocumentID: "b", Field: types.FieldSkills, Content: "Java", Similarity: 0.4},
			{FragmentID: "a_summary", DocumentID: "a", Field: types.FieldSummary, Content: "Engineer", Similarity: 0.8},
		},
	}
	aggregator := NewAggregator(searcher, 0)

	stats, err := aggregator.AggregateText(context.Background(), "backend engineer", 50)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	a := stats["a"]
	require.NotNil(t, a)
	assert.Equal(t, 2, a.ChunkCount)
	assert.InDelta(t, 1.7, a.TotalSimilarity, 0.001)
	assert.InDelta(t, 0.85, a.AverageSimilarity, 0.001)
	assert.Len(t, a.TopHits, 2)

	b := stats["b"]
	require.NotNil(t, b)
	assert.Equal(t, 1, b.ChunkCount)
	assert.InDelta(t, 0.4, b.AverageSimilarity, 0.001)

	assert.Equal(t, types.DocumentTypeResume, searcher.lastOpts.DocumentType)
	assert.Equal(t, 50, searcher.lastOpts.TopK)
}

func TestAggregateScopesByField(t *testing.T) {
	searcher := &fakeSearcher{
		hitsByQuery: map[string][]SearchHit{
			"Skills: Go": {
				{FragmentID: "a_skills", DocumentID: "a", Field: types.FieldSkills, Similarity: 0.7},
			},
		},
	}
	aggregator := NewAggregator(searcher, 0)

	jdFragments := []types.Fragment{
		{FragmentID: "jd_skills", Field: types.FieldSkills, Content: "Skills: Go"},
	}
	stats, err := aggregator.Aggregate(context.Background(), jdFragments, 10, true)
	require.NoError(t, err)

	assert.Equal(t, types.FieldSkills, searcher.lastOpts.Field, "field-scoped search must pass the JD fragment's field")
	require.Contains(t, stats, "a")
	assert.InDelta(t, 0.7, stats["a"].AverageSimilarity, 0.001)
}

func TestAggregatorHitRetentionCap(t *testing.T) {
	var hits []SearchHit
	for i := 0; i < 8; i++ {
		hits = append(hits, SearchHit{
			FragmentID: "a_part",
			DocumentID: "a",
			Field:      types.FieldExperience,
			Content:    "content that should be truncated to the preview length for storage",
			Similarity: 0.5,
		})
	}
	aggregator := NewAggregator(&fakeSearcher{hits: hits}, 20)

	stats, err := aggregator.AggregateText(context.Background(), "query", 50)
	require.NoError(t, err)

	a := stats["a"]
	require.NotNil(t, a)
	assert.Equal(t, 8, a.ChunkCount, "every hit counts toward the aggregate")
	assert.Len(t, a.TopHits, topHitsPerCandidate, "only the cap is retained for explainability")
	assert.LessOrEqual(t, len(a.TopHits[0].Content), 20)
}

func TestTopHitsKeepHighestAcrossQueries(t *testing.T) {
	weakHits := make([]SearchHit, 0, 5)
	for i := 0; i < 5; i++ {
		weakHits = append(weakHits, SearchHit{
			FragmentID: fmt.Sprintf("a_skills_part%d", i),
			DocumentID: "a",
			Field:      types.FieldSkills,
			Similarity: 0.30 + float64(i)*0.01,
		})
	}
	searcher := &fakeSearcher{
		hitsByQuery: map[string][]SearchHit{
			"Skills: Go": weakHits,
			"Role: Staff Engineer": {
				{FragmentID: "a_experience", DocumentID: "a", Field: types.FieldExperience, Similarity: 0.95},
			},
		},
	}
	aggregator := NewAggregator(searcher, 0)

	jdFragments := []types.Fragment{
		{FragmentID: "jd_skills", Field: types.FieldSkills, Content: "Skills: Go"},
		{FragmentID: "jd_experience", Field: types.FieldExperience, Content: "Role: Staff Engineer"},
	}
	stats, err := aggregator.Aggregate(context.Background(), jdFragments, 10, false)
	require.NoError(t, err)

	a := stats["a"]
	require.NotNil(t, a)
	assert.Equal(t, 6, a.ChunkCount)
	require.Len(t, a.TopHits, topHitsPerCandidate)
	assert.InDelta(t, 0.95, a.TopHits[0].Similarity, 0.001,
		"a later strong hit must displace an earlier weak one")
	assert.InDelta(t, 0.31, a.TopHits[len(a.TopHits)-1].Similarity, 0.001,
		"the weakest of the six hits is the one dropped")
}

func TestRankedBreaksTiesByEncounterOrder(t *testing.T) {
	stats := map[string]*types.AggregateStats{
		"second": {ResumeID: "second", AverageSimilarity: 0.5, FirstSeen: 1},
		"first":  {ResumeID: "first", AverageSimilarity: 0.5, FirstSeen: 0},
		"best":   {ResumeID: "best", AverageSimilarity: 0.9, FirstSeen: 2},
	}

	ranked := Ranked(stats)
	require.Len(t, ranked, 3)
	assert.Equal(t, "best", ranked[0].ResumeID)
	assert.Equal(t, "first", ranked[1].ResumeID)
	assert.Equal(t, "second", ranked[2].ResumeID)
}
