package matcher

import (
	"context"
	"strings"

	"career-copilot-go/internal/textutil"
	"career-copilot-go/internal/types"
)

// explainPreviewLength caps field previews in an explanation.
const explainPreviewLength = 150

// gapMarkers flag a weakness sentence as describing something absent.
var gapMarkers = []string{"lack", "missing", "no ", "limited", "insufficient"}

// strengthMarkers flag a strength sentence as a standout quality.
var strengthMarkers = []string{"strong", "excellent", "extensive", "proven", "expert"}

// ExplainMatch builds a human-readable breakdown of one result from the
// two fragment sets it was computed over. Works for any matching mode;
// deep details appear only when the result carries a verdict.
func ExplainMatch(result types.MatchResult, resumeFragments, jdFragments []types.Fragment) types.MatchExplanation {
	explanation := types.MatchExplanation{
		ResumeID:          result.ResumeID,
		OverallScore:      result.MatchScore,
		Qualified:         result.Qualified,
		Recommendation:    result.Recommendation,
		FieldBreakdown:    fieldBreakdown(resumeFragments, jdFragments),
		TopStrengths:      []string{},
		TopWeaknesses:     []string{},
		MissingSkills:     []string{},
		StandoutQualities: []string{},
		Summary:           result.Summary,
	}

	if result.Deep != nil {
		verdict := result.Deep
		explanation.TopStrengths = topItems(verdict.Strengths, 3)
		explanation.TopWeaknesses = topItems(verdict.Weaknesses, 3)
		explanation.MissingSkills = markedItems(verdict.Weaknesses, gapMarkers)
		explanation.StandoutQualities = markedItems(verdict.Strengths, strengthMarkers)
		explanation.DetailedScores = verdict.DetailedAnalysis
		explanation.NextSteps = verdict.NextSteps
		if verdict.Summary != "" {
			explanation.Summary = verdict.Summary
		}
	}

	return explanation
}

// BatchExplain explains the top results of a funnel run, loading each
// candidate's fragments through the searcher. Candidates whose fragments
// cannot be loaded are explained without a field breakdown rather than
// dropped.
func (f *Funnel) BatchExplain(ctx context.Context, results []types.MatchResult, jdFragments []types.Fragment, topN int) []types.MatchExplanation {
	if topN <= 0 || topN > len(results) {
		topN = len(results)
	}

	explanations := make([]types.MatchExplanation, 0, topN)
	for _, result := range results[:topN] {
		var resumeFragments []types.Fragment
		if f.searcher != nil {
			fragments, err := f.searcher.GetFragmentsByDocument(ctx, result.ResumeID)
			if err != nil {
				f.logger.Warn().
					Err(err).
					Str("resume_id", result.ResumeID).
					Msg("fragment fetch failed during explanation")
			} else {
				resumeFragments = fragments
			}
		}
		explanations = append(explanations, ExplainMatch(result, resumeFragments, jdFragments))
	}
	return explanations
}

// fieldBreakdown compares field presence across the two fragment sets.
func fieldBreakdown(resumeFragments, jdFragments []types.Fragment) map[string]types.FieldCoverage {
	resumeByField := contentByField(resumeFragments)
	jdByField := contentByField(jdFragments)

	fields := make(map[string]bool)
	for field := range resumeByField {
		fields[field] = true
	}
	for field := range jdByField {
		fields[field] = true
	}

	breakdown := make(map[string]types.FieldCoverage, len(fields))
	for field := range fields {
		resumeContent, resumeHas := resumeByField[field]
		jdContent, jdRequires := jdByField[field]

		status := "not_applicable"
		switch {
		case resumeHas && jdRequires:
			status = "covered"
		case jdRequires:
			status = "gap"
		case resumeHas:
			status = "extra"
		}

		breakdown[field] = types.FieldCoverage{
			ResumeHas:            resumeHas,
			JDRequires:           jdRequires,
			MatchStatus:          status,
			ResumeContentPreview: textutil.TruncateString(resumeContent, explainPreviewLength),
			JDRequirementPreview: textutil.TruncateString(jdContent, explainPreviewLength),
		}
	}
	return breakdown
}

func contentByField(fragments []types.Fragment) map[string]string {
	byField := make(map[string]string)
	for _, fragment := range fragments {
		if existing, ok := byField[fragment.Field]; ok {
			byField[fragment.Field] = existing + " " + fragment.Content
		} else {
			byField[fragment.Field] = fragment.Content
		}
	}
	return byField
}

func topItems(items []string, limit int) []string {
	if len(items) <= limit {
		out := make([]string, len(items))
		copy(out, items)
		return out
	}
	out := make([]string, limit)
	copy(out, items[:limit])
	return out
}

// markedItems returns the items containing any of the markers,
// case-insensitively.
func markedItems(items []string, markers []string) []string {
	matched := []string{}
	for _, item := range items {
		lowered := strings.ToLower(item)
		for _, marker := range markers {
			if strings.Contains(lowered, marker) {
				matched = append(matched, item)
				break
			}
		}
	}
	return matched
}
