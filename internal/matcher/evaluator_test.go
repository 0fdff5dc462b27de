package matcher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-copilot-go/internal/types"
)

// MockLLMModel implements model.ToolCallingChatModel with canned output.
type MockLLMModel struct {
	mockResponse string
	err          error
	callCount    int
	failUntil    int
}

func (m *MockLLMModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	m.callCount++
	if m.err != nil && m.callCount <= m.failUntil {
		return nil, m.err
	}
	if m.err != nil && m.failUntil == 0 {
		return nil, m.err
	}
	return &schema.Message{Role: schema.Assistant, Content: m.mockResponse}, nil
}

func (m *MockLLMModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func (m *MockLLMModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

func (m *MockLLMModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

const wellFormedVerdict = `{
	"qualified": true,
	"match_score": 87.5,
	"summary": "Strong backend candidate with direct domain experience.",
	"strengths": ["Extensive Go experience", "Led a similar migration project"],
	"weaknesses": ["No Kubernetes exposure"],
	"recommendation": "STRONG_MATCH",
	"detailed_analysis": {
		"skills_match": 90,
		"experience_match": 88,
		"education_match": 80,
		"cultural_fit": 85
	},
	"next_steps": "Schedule a technical interview."
}`

func TestEvaluateParsesWellFormedVerdict(t *testing.T) {
	evaluator := NewLLMDeepEvaluator(&MockLLMModel{mockResponse: wellFormedVerdict})

	verdict, err := evaluator.Evaluate(context.Background(), "resume text", "jd text")
	require.NoError(t, err)
	require.NotNil(t, verdict)

	assert.True(t, verdict.Qualified)
	assert.InDelta(t, 87.5, verdict.MatchScore, 0.001)
	assert.Equal(t, types.StrongMatch, verdict.Recommendation)
	assert.Len(t, verdict.Strengths, 2)
	assert.Empty(t, verdict.Error)
	require.NotNil(t, verdict.DetailedAnalysis)
	assert.InDelta(t, 90, verdict.DetailedAnalysis.SkillsMatch, 0.001)
}

func TestEvaluateStripsMarkdownFences(t *testing.T) {
	evaluator := NewLLMDeepEvaluator(&MockLLMModel{
		mockResponse: "```json\n" + wellFormedVerdict + "\n```",
	})

	verdict, err := evaluator.Evaluate(context.Background(), "resume", "jd")
	require.NoError(t, err)
	assert.Empty(t, verdict.Error)
	assert.InDelta(t, 87.5, verdict.MatchScore, 0.001)
}

func TestEvaluateDegradesMalformedResponse(t *testing.T) {
	raw := "I think this candidate is great, around 90 points, but here is no JSON."
	evaluator := NewLLMDeepEvaluator(&MockLLMModel{mockResponse: raw})

	verdict, err := evaluator.Evaluate(context.Background(), "resume", "jd")
	require.NoError(t, err, "unparseable output degrades, it does not fail")
	require.NotNil(t, verdict)

	assert.False(t, verdict.Qualified)
	assert.Zero(t, verdict.MatchScore)
	assert.Equal(t, types.NotMatch, verdict.Recommendation)
	assert.NotEmpty(t, verdict.Error)
	assert.Contains(t, verdict.RawResponse, "around 90 points")
}

func TestEvaluateTruncatesRawPreview(t *testing.T) {
	raw := "no json here " + strings.Repeat("x", 2000)
	evaluator := NewLLMDeepEvaluator(&MockLLMModel{mockResponse: raw})

	verdict, err := evaluator.Evaluate(context.Background(), "resume", "jd")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(verdict.RawResponse), rawPreviewLength)
}

func TestEvaluateDegradesScoreOutOfRange(t *testing.T) {
	evaluator := NewLLMDeepEvaluator(&MockLLMModel{
		mockResponse: `{"qualified": true, "match_score": 130, "summary": "too good"}`,
	})

	verdict, err := evaluator.Evaluate(context.Background(), "resume", "jd")
	require.NoError(t, err)
	assert.NotEmpty(t, verdict.Error)
	assert.Zero(t, verdict.MatchScore)
}

func TestEvaluateRetriesTransportFailure(t *testing.T) {
	mock := &MockLLMModel{
		mockResponse: wellFormedVerdict,
		err:          errors.New("connection reset"),
		failUntil:    1,
	}
	evaluator := NewLLMDeepEvaluator(mock, WithEvaluatorMaxAttempts(2))

	verdict, err := evaluator.Evaluate(context.Background(), "resume", "jd")
	require.NoError(t, err)
	assert.Equal(t, 2, mock.callCount)
	assert.Empty(t, verdict.Error)
}

func TestEvaluateReturnsErrorWhenAllAttemptsFail(t *testing.T) {
	mock := &MockLLMModel{err: errors.New("service unavailable")}
	evaluator := NewLLMDeepEvaluator(mock, WithEvaluatorMaxAttempts(2))

	verdict, err := evaluator.Evaluate(context.Background(), "resume", "jd")
	require.Error(t, err)
	assert.Nil(t, verdict)
	assert.Equal(t, 2, mock.callCount)
}

func TestEvaluateRepairsUnescapedQuotes(t *testing.T) {
	broken := `{"qualified": true, "match_score": 75, "summary": "led the "atlas" project", "strengths": [], "weaknesses": []}`
	evaluator := NewLLMDeepEvaluator(&MockLLMModel{mockResponse: broken})

	verdict, err := evaluator.Evaluate(context.Background(), "resume", "jd")
	require.NoError(t, err)
	assert.Empty(t, verdict.Error, "sanitizer should repair the inner quotes")
	assert.InDelta(t, 75, verdict.MatchScore, 0.001)
	assert.Contains(t, verdict.Summary, "atlas")
}
