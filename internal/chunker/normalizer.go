package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"career-copilot-go/internal/logger"
	"career-copilot-go/internal/types"
)

// Default token band for stored fragments. Embedding quality degrades on
// both sides of the band: oversized fragments dilute the embedding,
// undersized ones lack context. Token counts are whitespace-delimited
// word estimates, not tokenizer output.
const (
	DefaultMinTokens   = 50
	DefaultIdealTokens = 256
	DefaultMaxTokens   = 512
)

// sentenceEndRe marks a sentence boundary: terminal punctuation followed
// by whitespace.
var sentenceEndRe = regexp.MustCompile(`([.!?]+)\s+`)

// clauseSplitRe breaks a single overlong sentence on clause boundaries.
var clauseSplitRe = regexp.MustCompile(`[,;]`)

// Normalizer enforces the fragment size band. Oversized fragments are
// split along sentence (then clause) boundaries; undersized fragments are
// reported but never merged or dropped, since merging needs cross-fragment
// context the normalizer does not have.
type Normalizer struct {
	minTokens   int
	idealTokens int
	maxTokens   int
	logger      zerolog.Logger
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithTokenBand overrides the min/ideal/max token thresholds.
func WithTokenBand(minTokens, idealTokens, maxTokens int) NormalizerOption {
	return func(n *Normalizer) {
		n.minTokens = minTokens
		n.idealTokens = idealTokens
		n.maxTokens = maxTokens
	}
}

// WithNormalizerLogger sets the logger used for size advisories.
func WithNormalizerLogger(l zerolog.Logger) NormalizerOption {
	return func(n *Normalizer) {
		n.logger = l
	}
}

// NewNormalizer creates a Normalizer with the default token band.
func NewNormalizer(options ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		minTokens:   DefaultMinTokens,
		idealTokens: DefaultIdealTokens,
		maxTokens:   DefaultMaxTokens,
		logger:      logger.Logger,
	}
	for _, opt := range options {
		opt(n)
	}
	return n
}

// EstimateTokens approximates the token count of text by word count.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}

// Validate classifies content against the token band without changing it.
func (n *Normalizer) Validate(content string) types.SizeReport {
	tokens := EstimateTokens(content)
	chars := len(content)

	switch {
	case tokens > n.maxTokens:
		return types.SizeReport{
			Status:         types.SizeTooLarge,
			Tokens:         tokens,
			Chars:          chars,
			Recommendation: fmt.Sprintf("split into %d fragments", tokens/n.idealTokens+1),
			ActionRequired: true,
		}
	case tokens < n.minTokens:
		return types.SizeReport{
			Status:         types.SizeTooSmall,
			Tokens:         tokens,
			Chars:          chars,
			Recommendation: "consider merging with adjacent fragments",
			ActionRequired: true,
		}
	case tokens > n.idealTokens:
		return types.SizeReport{
			Status:         types.SizeLarge,
			Tokens:         tokens,
			Chars:          chars,
			Recommendation: "acceptable, could be split for better precision",
		}
	default:
		return types.SizeReport{
			Status:         types.SizeOptimal,
			Tokens:         tokens,
			Chars:          chars,
			Recommendation: "good size for embeddings",
		}
	}
}

// Normalize applies the size policy to one fragment. Oversized fragments
// come back as split parts; everything else passes through unchanged with
// its size report. Undersized fragments are an advisory, not an error.
func (n *Normalizer) Normalize(fragment types.Fragment) ([]types.Fragment, types.SizeReport) {
	report := n.Validate(fragment.Content)
	if report.Status != types.SizeTooLarge {
		return []types.Fragment{fragment}, report
	}

	parts := n.splitOversized(fragment)
	if len(parts) == 1 {
		// No usable sentence or clause boundary; emit the fragment
		// oversized rather than truncate it.
		n.logger.Warn().
			Str("fragment_id", fragment.FragmentID).
			Int("tokens", report.Tokens).
			Msg("oversized fragment has no split boundary, stored as-is")
		return []types.Fragment{fragment}, report
	}

	n.logger.Debug().
		Str("fragment_id", fragment.FragmentID).
		Int("tokens", report.Tokens).
		Int("parts", len(parts)).
		Msg("split oversized fragment")
	return parts, report
}

// NormalizeAll applies Normalize to a batch, returning the flattened
// fragment list and one report per input fragment.
func (n *Normalizer) NormalizeAll(fragments []types.Fragment) ([]types.Fragment, []types.SizeReport) {
	normalized := make([]types.Fragment, 0, len(fragments))
	reports := make([]types.SizeReport, 0, len(fragments))

	for _, fragment := range fragments {
		parts, report := n.Normalize(fragment)
		normalized = append(normalized, parts...)
		reports = append(reports, report)
	}
	return normalized, reports
}

// splitOversized breaks a fragment into parts by greedily packing
// sentences up to the ideal token count. A single sentence longer than
// the hard limit falls back to clause boundaries.
func (n *Normalizer) splitOversized(fragment types.Fragment) []types.Fragment {
	sentences := SplitIntoSentences(fragment.Content)

	var pieces []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			pieces = append(pieces, strings.Join(current, " "))
			current = nil
			currentTokens = 0
		}
	}

	for _, sentence := range sentences {
		sentenceTokens := EstimateTokens(sentence)

		if sentenceTokens > n.maxTokens {
			flush()
			for _, part := range clauseSplitRe.Split(sentence, -1) {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				partTokens := EstimateTokens(part)
				if currentTokens+partTokens > n.idealTokens && len(current) > 0 {
					flush()
				}
				current = append(current, part)
				currentTokens += partTokens
			}
			continue
		}

		if currentTokens+sentenceTokens > n.idealTokens && len(current) > 0 {
			flush()
		}
		current = append(current, sentence)
		currentTokens += sentenceTokens
	}
	flush()

	if len(pieces) <= 1 {
		return []types.Fragment{fragment}
	}

	parts := make([]types.Fragment, 0, len(pieces))
	for i, text := range pieces {
		parts = append(parts, types.Fragment{
			FragmentID:         fmt.Sprintf("%s_part%d", fragment.FragmentID, i),
			Field:              fragment.Field,
			Content:            text,
			DocumentID:         fragment.DocumentID,
			DocumentType:       fragment.DocumentType,
			IsSplit:            true,
			OriginalFragmentID: fragment.FragmentID,
			PartNumber:         i,
			TotalParts:         len(pieces),
		})
	}
	return parts
}

// SplitIntoSentences splits text after terminal punctuation followed by
// whitespace, keeping the punctuation with its sentence.
func SplitIntoSentences(text string) []string {
	var sentences []string
	start := 0
	for _, idx := range sentenceEndRe.FindAllStringSubmatchIndex(text, -1) {
		// idx[3] is the end of the punctuation group.
		sentence := strings.TrimSpace(text[start:idx[3]])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = idx[1]
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// Stats summarizes fragment sizes across a batch.
type Stats struct {
	TotalFragments    int     `json:"total_fragments"`
	AvgTokens         int     `json:"avg_tokens"`
	MinTokens         int     `json:"min_tokens"`
	MaxTokens         int     `json:"max_tokens"`
	OversizedCount    int     `json:"oversized_count"`
	UndersizedCount   int     `json:"undersized_count"`
	OptimalCount      int     `json:"optimal_count"`
	OptimalPercentage float64 `json:"optimal_percentage"`
}

// Statistics computes size statistics for a fragment batch.
func (n *Normalizer) Statistics(fragments []types.Fragment) Stats {
	if len(fragments) == 0 {
		return Stats{}
	}

	stats := Stats{
		TotalFragments: len(fragments),
		MinTokens:      EstimateTokens(fragments[0].Content),
	}
	total := 0
	for _, fragment := range fragments {
		tokens := EstimateTokens(fragment.Content)
		total += tokens
		if tokens < stats.MinTokens {
			stats.MinTokens = tokens
		}
		if tokens > stats.MaxTokens {
			stats.MaxTokens = tokens
		}
		switch {
		case tokens > n.maxTokens:
			stats.OversizedCount++
		case tokens < n.minTokens:
			stats.UndersizedCount++
		case tokens <= n.idealTokens:
			stats.OptimalCount++
		}
	}
	stats.AvgTokens = total / len(fragments)
	stats.OptimalPercentage = float64(stats.OptimalCount) / float64(len(fragments)) * 100
	return stats
}
