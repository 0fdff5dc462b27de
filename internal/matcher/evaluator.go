package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"career-copilot-go/internal/logger"
	"career-copilot-go/internal/textutil"
	"career-copilot-go/internal/types"
)

// rawPreviewLength caps the raw LLM output preserved on a degraded
// verdict.
const rawPreviewLength = 500

// DeepEvaluator is the deep-evaluation collaborator: given one merged
// résumé and one JD text it returns a structured verdict. A non-nil
// verdict with Error set means the LLM answered but the answer could not
// be parsed; a nil verdict with an error means the call itself failed.
type DeepEvaluator interface {
	Evaluate(ctx context.Context, resumeText, jdText string) (*types.DeepVerdict, error)
}

// LLMDeepEvaluator runs deep evaluation through a chat model.
type LLMDeepEvaluator struct {
	llmModel       model.ToolCallingChatModel
	promptTemplate string
	timeout        time.Duration
	maxAttempts    int
	logger         zerolog.Logger
}

// LLMDeepEvaluatorOption configures an LLMDeepEvaluator.
type LLMDeepEvaluatorOption func(*LLMDeepEvaluator)

// WithEvaluatorPrompt overrides the default prompt template. The
// template must contain two %s slots: job description first, résumé
// second.
func WithEvaluatorPrompt(template string) LLMDeepEvaluatorOption {
	return func(e *LLMDeepEvaluator) {
		e.promptTemplate = template
	}
}

// WithEvaluatorTimeout bounds each LLM call.
func WithEvaluatorTimeout(timeout time.Duration) LLMDeepEvaluatorOption {
	return func(e *LLMDeepEvaluator) {
		e.timeout = timeout
	}
}

// WithEvaluatorMaxAttempts sets how many times a failed LLM call is
// retried before giving up.
func WithEvaluatorMaxAttempts(attempts int) LLMDeepEvaluatorOption {
	return func(e *LLMDeepEvaluator) {
		if attempts > 0 {
			e.maxAttempts = attempts
		}
	}
}

// WithEvaluatorLogger sets the evaluator's logger.
func WithEvaluatorLogger(l zerolog.Logger) LLMDeepEvaluatorOption {
	return func(e *LLMDeepEvaluator) {
		e.logger = l
	}
}

// NewLLMDeepEvaluator creates an evaluator over the given chat model.
func NewLLMDeepEvaluator(llmModel model.ToolCallingChatModel, options ...LLMDeepEvaluatorOption) *LLMDeepEvaluator {
	e := &LLMDeepEvaluator{
		llmModel:    llmModel,
		timeout:     60 * time.Second,
		maxAttempts: 2,
		logger:      logger.Logger,
	}
	e.promptTemplate = defaultEvaluatorPrompt
	for _, opt := range options {
		opt(e)
	}
	return e
}

const evaluatorSystemMessage = "You are a senior technical recruiter. You compare a job description " +
	"against a candidate resume and return a rigorous, well-calibrated assessment as strict JSON."

const defaultEvaluatorPrompt = `Analyze how well the candidate below fits the job. Respond with a single JSON object and nothing else, using exactly this schema:

{
  "qualified": boolean,
  "match_score": number between 0 and 100,
  "summary": "two or three sentences on overall fit",
  "strengths": ["specific, evidence-based strengths"],
  "weaknesses": ["specific gaps relative to the job requirements"],
  "recommendation": "STRONG_MATCH" | "GOOD_MATCH" | "PARTIAL_MATCH" | "NOT_MATCH",
  "detailed_analysis": {
    "skills_match": number between 0 and 100,
    "experience_match": number between 0 and 100,
    "education_match": number between 0 and 100,
    "cultural_fit": number between 0 and 100
  },
  "next_steps": "suggested next action for the recruiter"
}

Scoring guidance:
- A hard requirement the candidate clearly fails (mandatory degree, mandatory years of experience, a must-have core skill that is absent) caps match_score below 40.
- 80-100 means the candidate meets every core requirement with clear evidence.
- 50-79 means partial fit with concrete gaps worth listing in weaknesses.
- Below 50 means the core requirements are not met.
- Every string value must use double quotes, with inner quotes escaped as \".
- Do not wrap the JSON in markdown fences or add commentary.

Job description:
"""
%s
"""

Candidate resume:
"""
%s
"""`

// Evaluate calls the LLM and parses its verdict. Transport failures are
// retried up to maxAttempts with the per-call timeout; a response that
// arrives but cannot be parsed is degraded into a verdict carrying the
// parse error and a truncated raw preview.
func (e *LLMDeepEvaluator) Evaluate(ctx context.Context, resumeText, jdText string) (*types.DeepVerdict, error) {
	if e.llmModel == nil {
		return nil, ErrNoEvaluator
	}

	messages := []*einoschema.Message{
		einoschema.SystemMessage(evaluatorSystemMessage),
		einoschema.UserMessage(fmt.Sprintf(e.promptTemplate, jdText, resumeText)),
	}

	var response *einoschema.Message
	var err error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		response, err = e.llmModel.Generate(callCtx, messages)
		cancel()
		if err == nil {
			break
		}
		e.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", e.maxAttempts).
			Msg("deep evaluation LLM call failed")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("deep evaluation LLM call: %w", err)
	}
	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("deep evaluation LLM returned empty response")
	}

	return e.parseVerdict(response.Content), nil
}

// parseVerdict turns raw LLM output into a verdict, repairing common
// JSON damage once before degrading.
func (e *LLMDeepEvaluator) parseVerdict(raw string) *types.DeepVerdict {
	jsonStr := textutil.ExtractJSON(raw)
	if jsonStr == "" {
		return degradedVerdict("no JSON object found in LLM response", raw)
	}
	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	var verdict types.DeepVerdict
	if err := json.Unmarshal([]byte(jsonStr), &verdict); err != nil {
		fixed := textutil.SanitizeJSON(jsonStr)
		if fixErr := json.Unmarshal([]byte(fixed), &verdict); fixErr != nil {
			e.logger.Warn().
				Err(err).
				Msg("deep evaluation response unparseable after sanitization")
			return degradedVerdict("failed to parse LLM response: "+err.Error(), raw)
		}
	}

	if verdict.MatchScore < 0 || verdict.MatchScore > 100 {
		return degradedVerdict(
			fmt.Sprintf("match_score %.2f outside [0, 100]", verdict.MatchScore), raw)
	}
	if verdict.Strengths == nil {
		verdict.Strengths = []string{}
	}
	if verdict.Weaknesses == nil {
		verdict.Weaknesses = []string{}
	}
	return &verdict
}

// degradedVerdict is the score-zero verdict produced when the LLM
// answered but the answer is unusable.
func degradedVerdict(reason, raw string) *types.DeepVerdict {
	return &types.DeepVerdict{
		Qualified:      false,
		MatchScore:     0,
		Summary:        "Evaluation failed: " + reason,
		Strengths:      []string{},
		Weaknesses:     []string{},
		Recommendation: types.NotMatch,
		Error:          reason,
		RawResponse:    textutil.TruncateString(raw, rawPreviewLength),
	}
}
