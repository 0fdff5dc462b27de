package matcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-copilot-go/internal/types"
)

func TestExplainMatchFieldBreakdown(t *testing.T) {
	resume := []types.Fragment{
		{FragmentID: "r_skills", Field: types.FieldSkills, Content: "Skills: Go, SQL"},
		{FragmentID: "r_0_projects", Field: types.FieldProjects, Content: "Project: CLI tool"},
	}
	jd := []types.Fragment{
		{FragmentID: "j_skills", Field: types.FieldSkills, Content: "Skills: Go"},
		{FragmentID: "j_0_education", Field: types.FieldEducation, Content: "Degree: BSc"},
	}
	result := types.MatchResult{
		ResumeID:       "r",
		MatchScore:     70,
		Qualified:      true,
		Recommendation: types.GoodMatch,
		MatchingMode:   types.ModeRough,
		Summary:        "rough summary",
	}

	explanation := ExplainMatch(result, resume, jd)

	assert.Equal(t, "r", explanation.ResumeID)
	assert.InDelta(t, 70, explanation.OverallScore, 0.001)

	skills, ok := explanation.FieldBreakdown[types.FieldSkills]
	require.True(t, ok)
	assert.Equal(t, "covered", skills.MatchStatus)
	assert.True(t, skills.ResumeHas)
	assert.True(t, skills.JDRequires)

	education := explanation.FieldBreakdown[types.FieldEducation]
	assert.Equal(t, "gap", education.MatchStatus)

	projects := explanation.FieldBreakdown[types.FieldProjects]
	assert.Equal(t, "extra", projects.MatchStatus)

	assert.Equal(t, "rough summary", explanation.Summary)
	assert.Empty(t, explanation.TopStrengths)
}

func TestExplainMatchMinesVerdictText(t *testing.T) {
	result := types.MatchResult{
		ResumeID:     "r",
		MatchScore:   82,
		MatchingMode: types.ModePrecise,
		Deep: &types.DeepVerdict{
			Summary: "Deep summary.",
			Strengths: []string{
				"Extensive Go experience across three companies",
				"Good communicator",
			},
			Weaknesses: []string{
				"Missing Kubernetes experience",
				"Could document code more",
			},
			DetailedAnalysis: &types.DimensionScores{SkillsMatch: 90},
			NextSteps:        "Proceed to interview.",
		},
	}

	explanation := ExplainMatch(result, nil, nil)

	assert.Equal(t, []string{"Missing Kubernetes experience"}, explanation.MissingSkills)
	assert.Equal(t, []string{"Extensive Go experience across three companies"}, explanation.StandoutQualities)
	assert.Len(t, explanation.TopStrengths, 2)
	assert.Equal(t, "Deep summary.", explanation.Summary)
	assert.Equal(t, "Proceed to interview.", explanation.NextSteps)
	require.NotNil(t, explanation.DetailedScores)
	assert.InDelta(t, 90, explanation.DetailedScores.SkillsMatch, 0.001)
}

func TestBatchExplainLimitsToTopN(t *testing.T) {
	searcher := &fakeSearcher{
		fragments: map[string][]types.Fragment{
			"a": resumeFragments("a"),
			"b": resumeFragments("b"),
		},
	}
	funnel := NewFunnel(searcher, nil, 0)

	results := []types.MatchResult{
		{ResumeID: "a", MatchScore: 80},
		{ResumeID: "b", MatchScore: 60},
		{ResumeID: "c", MatchScore: 40},
	}

	explanations := funnel.BatchExplain(context.Background(), results, jdFragmentsFixture(), 2)
	require.Len(t, explanations, 2)
	assert.Equal(t, "a", explanations[0].ResumeID)
	assert.Equal(t, "b", explanations[1].ResumeID)
	assert.NotEmpty(t, explanations[0].FieldBreakdown)
}
