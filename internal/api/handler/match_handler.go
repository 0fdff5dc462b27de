package handler

import (
	"context"
	"fmt"

	"career-copilot-go/internal/config"
	"career-copilot-go/internal/matcher"
	"career-copilot-go/internal/types"
)

// FragmentLoader resolves stored fragments by document id.
type FragmentLoader interface {
	GetFragmentsByDocument(ctx context.Context, documentID string) ([]types.Fragment, error)
}

// MatchHandler serves the three matching tiers.
type MatchHandler struct {
	cfg       *config.Config
	funnel    *matcher.Funnel
	fragments FragmentLoader
}

// NewMatchHandler creates a match handler.
func NewMatchHandler(cfg *config.Config, funnel *matcher.Funnel, fragments FragmentLoader) *MatchHandler {
	return &MatchHandler{
		cfg:       cfg,
		funnel:    funnel,
		fragments: fragments,
	}
}

// MatchResponse is the shared response shape of the match endpoints.
type MatchResponse struct {
	Mode         string                   `json:"mode"`
	Results      []types.MatchResult      `json:"results"`
	Explanations []types.MatchExplanation `json:"explanations,omitempty"`
	Params       *types.AdaptiveParams    `json:"params,omitempty"`
}

// RoughMatchRequest is the body of POST /match/rough. Either a stored
// jd_id or inline jd_text identifies the job description.
type RoughMatchRequest struct {
	JDID   string `json:"jd_id,omitempty"`
	JDText string `json:"jd_text,omitempty"`
	TopK   int    `json:"top_k,omitempty"`
}

// HandleRoughMatch runs similarity-only matching over the resume pool.
func (h *MatchHandler) HandleRoughMatch(ctx context.Context, req *RoughMatchRequest) (*MatchResponse, error) {
	jdText, _, err := h.resolveJD(ctx, req.JDID, req.JDText)
	if err != nil {
		return nil, err
	}

	results, err := h.funnel.RoughMatch(ctx, jdText, req.TopK)
	if err != nil {
		return nil, err
	}
	return &MatchResponse{Mode: string(types.ModeRough), Results: results}, nil
}

// PreciseMatchRequest is the body of POST /match/precise.
type PreciseMatchRequest struct {
	JDID        string   `json:"jd_id,omitempty"`
	JDText      string   `json:"jd_text,omitempty"`
	ResumeIDs   []string `json:"resume_ids"`
	Explain     bool     `json:"explain,omitempty"`
	ExplainTopN int      `json:"explain_top_n,omitempty"`
}

// HandlePreciseMatch runs the deep evaluator over an explicit candidate
// list.
func (h *MatchHandler) HandlePreciseMatch(ctx context.Context, req *PreciseMatchRequest) (*MatchResponse, error) {
	if len(req.ResumeIDs) == 0 {
		return nil, fmt.Errorf("resume_ids is required")
	}
	_, jdFragments, err := h.resolveJD(ctx, req.JDID, req.JDText)
	if err != nil {
		return nil, err
	}

	candidates := make([]matcher.CandidateFragments, 0, len(req.ResumeIDs))
	for _, resumeID := range req.ResumeIDs {
		fragments, err := h.fragments.GetFragmentsByDocument(ctx, resumeID)
		if err != nil {
			return nil, fmt.Errorf("load fragments of resume %s: %w", resumeID, err)
		}
		if len(fragments) == 0 {
			return nil, fmt.Errorf("resume %s has no stored fragments", resumeID)
		}
		candidates = append(candidates, matcher.CandidateFragments{
			ResumeID:  resumeID,
			Fragments: fragments,
		})
	}

	results, err := h.funnel.PreciseMatch(ctx, candidates, jdFragments)
	if err != nil {
		return nil, err
	}

	resp := &MatchResponse{Mode: string(types.ModePrecise), Results: results}
	if req.Explain {
		topN := req.ExplainTopN
		if topN <= 0 {
			topN = len(results)
		}
		resp.Explanations = h.funnel.BatchExplain(ctx, results, jdFragments, topN)
	}
	return resp, nil
}

// HybridMatchRequest is the body of POST /match/hybrid. When Adaptive
// is set, rough_top_k and precise_top_n are derived from the pool size
// and the explicit values are ignored.
type HybridMatchRequest struct {
	JDID        string `json:"jd_id,omitempty"`
	JDText      string `json:"jd_text,omitempty"`
	RoughTopK   int    `json:"rough_top_k,omitempty"`
	PreciseTopN int    `json:"precise_top_n,omitempty"`
	Adaptive    bool   `json:"adaptive,omitempty"`
}

// HandleHybridMatch runs the two-stage funnel.
func (h *MatchHandler) HandleHybridMatch(ctx context.Context, req *HybridMatchRequest) (*MatchResponse, error) {
	jdText, _, err := h.resolveJD(ctx, req.JDID, req.JDText)
	if err != nil {
		return nil, err
	}

	if req.Adaptive {
		params, err := h.funnel.AdaptiveParams(ctx)
		if err != nil {
			return nil, err
		}
		results, err := h.funnel.HybridMatch(ctx, jdText, params.RoughTopK, params.PreciseTopN)
		if err != nil {
			return nil, err
		}
		return &MatchResponse{Mode: string(types.ModeHybrid), Results: results, Params: &params}, nil
	}

	results, err := h.funnel.HybridMatch(ctx, jdText, req.RoughTopK, req.PreciseTopN)
	if err != nil {
		return nil, err
	}
	return &MatchResponse{Mode: string(types.ModeHybrid), Results: results}, nil
}

// resolveJD turns either a stored jd id or inline text into the merged
// text and fragment list the funnel works with. Inline text becomes a
// single summary-scoped fragment.
func (h *MatchHandler) resolveJD(ctx context.Context, jdID, jdText string) (string, []types.Fragment, error) {
	if jdID != "" {
		fragments, err := h.fragments.GetFragmentsByDocument(ctx, jdID)
		if err != nil {
			return "", nil, fmt.Errorf("load fragments of jd %s: %w", jdID, err)
		}
		if len(fragments) == 0 {
			return "", nil, fmt.Errorf("jd %s has no stored fragments", jdID)
		}
		return matcher.MergeFragments(fragments), fragments, nil
	}
	if jdText != "" {
		fragment := types.Fragment{
			FragmentID:   "inline_jd_summary_0",
			Field:        types.FieldSummary,
			Content:      jdText,
			DocumentID:   "inline_jd",
			DocumentType: types.DocumentTypeJobDescription,
		}
		return jdText, []types.Fragment{fragment}, nil
	}
	return "", nil, fmt.Errorf("either jd_id or jd_text is required")
}
