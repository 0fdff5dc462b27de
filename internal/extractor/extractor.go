// Package extractor turns raw document text into structured fields
// through a chat model, with a response cache in front of the LLM.
package extractor

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

// ResponseCache stores raw extraction responses keyed by input text.
// *storage.Redis satisfies it; a nil cache disables caching.
type ResponseCache interface {
	GetResumeExtraction(ctx context.Context, rawText string) (string, error)
	SetResumeExtraction(ctx context.Context, rawText, payload string) error
	GetJDExtraction(ctx context.Context, rawText string) (string, error)
	SetJDExtraction(ctx context.Context, rawText, payload string) error
}

// LLMExtractor extracts structured fields from résumés and job
// descriptions.
type LLMExtractor struct {
	llmModel    model.ToolCallingChatModel
	cache       ResponseCache
	timeout     time.Duration
	maxAttempts int
	logger      zerolog.Logger
}

// ExtractorOption configures an LLMExtractor.
type ExtractorOption func(*LLMExtractor)

// WithResponseCache attaches an extraction-response cache.
func WithResponseCache(cache ResponseCache) ExtractorOption {
	return func(e *LLMExtractor) {
		e.cache = cache
	}
}

// WithExtractorTimeout bounds each LLM call.
func WithExtractorTimeout(timeout time.Duration) ExtractorOption {
	return func(e *LLMExtractor) {
		e.timeout = timeout
	}
}

// WithExtractorMaxAttempts sets the retry ceiling per LLM call.
func WithExtractorMaxAttempts(attempts int) ExtractorOption {
	return func(e *LLMExtractor) {
		if attempts > 0 {
			e.maxAttempts = attempts
		}
	}
}

// WithExtractorLogger sets the extractor's logger.
func WithExtractorLogger(l zerolog.Logger) ExtractorOption {
	return func(e *LLMExtractor) {
		e.logger = l
	}
}

// NewLLMExtractor creates an extractor over the given chat model.
func NewLLMExtractor(llmModel model.ToolCallingChatModel, options ...ExtractorOption) *LLMExtractor {
	e := &LLMExtractor{
		llmModel:    llmModel,
		timeout:     60 * time.Second,
		maxAttempts: 2,
		logger:      logger.Logger,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

const extractorSystemMessage = "You are a document parsing assistant. You read recruiting documents " +
	"and return their content as strict JSON, inventing nothing that is not in the text."

const resumePrompt = `Extract the structured content of the resume below. Respond with a single JSON object and nothing else:

{
  "name": "candidate name",
  "summary": "professional summary or objective",
  "skills": ["skill", ...],
  "experience": [{"role": "", "company": "", "period": "", "location": "", "achievements": ["", ...]}],
  "education": [{"degree": "", "school": "", "period": "", "details": ""}],
  "projects": [{"name": "", "description": ""}],
  "certifications": ["", ...],
  "achievements": ["", ...]
}

Omit any key whose section is absent from the resume. Never invent content. Every string must use double quotes, inner quotes escaped as \". No markdown fences, no commentary.

Resume:
"""
%s
"""`

const jdPrompt = `Extract the structured content of the job description below. Respond with a single JSON object and nothing else:

{
  "title": "job title",
  "company": "company name",
  "skills": ["required or preferred skill", ...],
  "experience": [{"years_required": "", "level": "", "description": ""}],
  "education": [{"degree": "", "field": "", "requirements": ""}],
  "certifications": ["", ...],
  "responsibilities": ["", ...],
  "location": "",
  "salary": "",
  "employment_type": "",
  "benefits": ["", ...],
  "about_company": ""
}

Omit any key whose section is absent from the posting. Never invent content. Every string must use double quotes, inner quotes escaped as \". No markdown fences, no commentary.

Job description:
"""
%s
"""`

// ExtractResume parses a résumé into structured fields. The raw input
// is normalized first so formatting noise does not split the cache.
func (e *LLMExtractor) ExtractResume(ctx context.Context, rawText string) (*types.ResumeFields, error) {
	text := textutil.NormalizeText(rawText)
	if text == "" {
		return nil, fmt.Errorf("resume text is empty")
	}

	if e.cache != nil {
		if cached, err := e.cache.GetResumeExtraction(ctx, text); err == nil {
			var fields types.ResumeFields
			if jsonErr := json.Unmarshal([]byte(cached), &fields); jsonErr == nil {
				e.logger.Debug().Msg("resume extraction served from cache")
				return &fields, nil
			}
		}
	}

	payload, err := e.callModel(ctx, fmt.Sprintf(resumePrompt, text))
	if err != nil {
		return nil, fmt.Errorf("resume extraction: %w", err)
	}

	var fields types.ResumeFields
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, fmt.Errorf("parse resume extraction response: %w", err)
	}

	if e.cache != nil {
		if err := e.cache.SetResumeExtraction(ctx, text, payload); err != nil {
			e.logger.Warn().Err(err).Msg("failed to cache resume extraction")
		}
	}
	return &fields, nil
}

// ExtractJob parses a job description into structured fields.
func (e *LLMExtractor) ExtractJob(ctx context.Context, rawText string) (*types.JobFields, error) {
	text := textutil.NormalizeText(rawText)
	if text == "" {
		return nil, fmt.Errorf("job description text is empty")
	}

	if e.cache != nil {
		if cached, err := e.cache.GetJDExtraction(ctx, text); err == nil {
			var fields types.JobFields
			if jsonErr := json.Unmarshal([]byte(cached), &fields); jsonErr == nil {
				e.logger.Debug().Msg("jd extraction served from cache")
				return &fields, nil
			}
		}
	}

	payload, err := e.callModel(ctx, fmt.Sprintf(jdPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("jd extraction: %w", err)
	}

	var fields types.JobFields
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, fmt.Errorf("parse jd extraction response: %w", err)
	}

	if e.cache != nil {
		if err := e.cache.SetJDExtraction(ctx, text, payload); err != nil {
			e.logger.Warn().Err(err).Msg("failed to cache jd extraction")
		}
	}
	return &fields, nil
}

// callModel runs one prompt with retries and returns the extracted,
// repaired JSON payload.
func (e *LLMExtractor) callModel(ctx context.Context, prompt string) (string, error) {
	if e.llmModel == nil {
		return "", fmt.Errorf("llm model is not configured")
	}

	messages := []*einoschema.Message{
		einoschema.SystemMessage(extractorSystemMessage),
		einoschema.UserMessage(prompt),
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
			Msg("extraction LLM call failed")
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", fmt.Errorf("LLM call: %w", err)
	}
	if response == nil || response.Content == "" {
		return "", fmt.Errorf("LLM returned empty response")
	}

	jsonStr := textutil.ExtractJSON(response.Content)
	if jsonStr == "" {
		return "", fmt.Errorf("no JSON object in LLM response: %.200s", response.Content)
	}
	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	// Validate once, repairing quote damage if the first parse fails.
	var probe map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &probe); err != nil {
		fixed := textutil.SanitizeJSON(jsonStr)
		if fixErr := json.Unmarshal([]byte(fixed), &probe); fixErr != nil {
			return "", fmt.Errorf("unparseable LLM response: %w", err)
		}
		jsonStr = fixed
	}
	return jsonStr, nil
}
