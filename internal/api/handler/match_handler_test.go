package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-copilot-go/internal/config"
	"career-copilot-go/internal/matcher"
	"career-copilot-go/internal/types"
)

type stubSearcher struct {
	hits      []matcher.SearchHit
	fragments map[string][]types.Fragment
	resumes   int
}

func (s *stubSearcher) SearchSimilarFragments(ctx context.Context, queryText string, opts matcher.SearchOptions) ([]matcher.SearchHit, error) {
	return s.hits, nil
}

func (s *stubSearcher) GetFragmentsByDocument(ctx context.Context, documentID string) ([]types.Fragment, error) {
	return s.fragments[documentID], nil
}

func (s *stubSearcher) CountDocuments(ctx context.Context, docType types.DocumentType) (int, error) {
	return s.resumes, nil
}

type stubEvaluator struct {
	score float64
}

func (e *stubEvaluator) Evaluate(ctx context.Context, resumeText, jdText string) (*types.DeepVerdict, error) {
	return &types.DeepVerdict{
		Qualified:  e.score >= 60,
		MatchScore: e.score,
		Summary:    "stub verdict",
	}, nil
}

func testFragments(documentID string, docType types.DocumentType) []types.Fragment {
	return []types.Fragment{
		{FragmentID: documentID + "_skills_0", Field: types.FieldSkills, Content: "Go, Kafka, PostgreSQL", DocumentID: documentID, DocumentType: docType},
		{FragmentID: documentID + "_experience_0", Field: types.FieldExperience, Content: "Five years building backend services", DocumentID: documentID, DocumentType: docType},
	}
}

func newTestMatchHandler(searcher *stubSearcher, score float64) *MatchHandler {
	funnel := matcher.NewFunnel(searcher, &stubEvaluator{score: score}, 200)
	return NewMatchHandler(&config.Config{}, funnel, searcher)
}

func TestHandleRoughMatchInlineText(t *testing.T) {
	searcher := &stubSearcher{
		hits: []matcher.SearchHit{
			{FragmentID: "a_skills_0", DocumentID: "a", Field: types.FieldSkills, Content: "Go", Similarity: 0.9},
			{FragmentID: "b_skills_0", DocumentID: "b", Field: types.FieldSkills, Content: "Java", Similarity: 0.4},
		},
	}
	h := newTestMatchHandler(searcher, 80)

	resp, err := h.HandleRoughMatch(context.Background(), &RoughMatchRequest{JDText: "Go backend role"})
	require.NoError(t, err)

	assert.Equal(t, string(types.ModeRough), resp.Mode)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "a", resp.Results[0].ResumeID)
}

func TestHandleRoughMatchRequiresJD(t *testing.T) {
	h := newTestMatchHandler(&stubSearcher{}, 80)
	_, err := h.HandleRoughMatch(context.Background(), &RoughMatchRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jd_id or jd_text")
}

func TestHandlePreciseMatchWithStoredJD(t *testing.T) {
	searcher := &stubSearcher{
		fragments: map[string][]types.Fragment{
			"jd-1":       testFragments("jd-1", types.DocumentTypeJobDescription),
			"jane_smith": testFragments("jane_smith", types.DocumentTypeResume),
		},
	}
	h := newTestMatchHandler(searcher, 85)

	resp, err := h.HandlePreciseMatch(context.Background(), &PreciseMatchRequest{
		JDID:      "jd-1",
		ResumeIDs: []string{"jane_smith"},
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "jane_smith", resp.Results[0].ResumeID)
	assert.Equal(t, types.ModePrecise, resp.Results[0].MatchingMode)
	assert.True(t, resp.Results[0].Qualified)
}

func TestHandlePreciseMatchUnknownResume(t *testing.T) {
	searcher := &stubSearcher{
		fragments: map[string][]types.Fragment{
			"jd-1": testFragments("jd-1", types.DocumentTypeJobDescription),
		},
	}
	h := newTestMatchHandler(searcher, 85)

	_, err := h.HandlePreciseMatch(context.Background(), &PreciseMatchRequest{
		JDID:      "jd-1",
		ResumeIDs: []string{"ghost"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestHandlePreciseMatchRequiresResumeIDs(t *testing.T) {
	h := newTestMatchHandler(&stubSearcher{}, 85)
	_, err := h.HandlePreciseMatch(context.Background(), &PreciseMatchRequest{JDText: "some role"})
	require.Error(t, err)
}

func TestHandlePreciseMatchWithExplanations(t *testing.T) {
	searcher := &stubSearcher{
		fragments: map[string][]types.Fragment{
			"jd-1":       testFragments("jd-1", types.DocumentTypeJobDescription),
			"jane_smith": testFragments("jane_smith", types.DocumentTypeResume),
		},
	}
	h := newTestMatchHandler(searcher, 85)

	resp, err := h.HandlePreciseMatch(context.Background(), &PreciseMatchRequest{
		JDID:      "jd-1",
		ResumeIDs: []string{"jane_smith"},
		Explain:   true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Explanations, 1)
	assert.Equal(t, "jane_smith", resp.Explanations[0].ResumeID)
}

func TestHandleHybridMatchAdaptive(t *testing.T) {
	searcher := &stubSearcher{
		resumes: 30,
		hits: []matcher.SearchHit{
			{FragmentID: "a_skills_0", DocumentID: "a", Field: types.FieldSkills, Content: "Go", Similarity: 0.9},
		},
		fragments: map[string][]types.Fragment{
			"a": testFragments("a", types.DocumentTypeResume),
		},
	}
	h := newTestMatchHandler(searcher, 75)

	resp, err := h.HandleHybridMatch(context.Background(), &HybridMatchRequest{
		JDText:   "Go backend role",
		Adaptive: true,
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Params)
	assert.Equal(t, 30, resp.Params.TotalResumes)
	assert.Equal(t, 90, resp.Params.RoughTopK)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, types.ModeHybrid, resp.Results[0].MatchingMode)
}
