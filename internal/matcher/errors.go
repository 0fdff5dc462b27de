package matcher

import (
	"errors"
	"fmt"
)

// Sentinel errors for funnel input validation. These abort the whole
// operation; per-candidate failures inside a batch degrade into error
// results instead.
var (
	ErrEmptyJDText        = errors.New("matcher: job description text is empty")
	ErrEmptyJDFragments   = errors.New("matcher: job description fragment list is empty")
	ErrEmptyResume        = errors.New("matcher: resume fragment list is empty")
	ErrDuplicateCandidate = errors.New("matcher: duplicate candidate id in batch")
	ErrNoSearcher         = errors.New("matcher: fragment searcher is not configured")
	ErrNoEvaluator        = errors.New("matcher: deep evaluator is not configured")
)

// MatchError wraps a failure with the candidate and funnel stage it
// occurred in.
type MatchError struct {
	ResumeID string
	Stage    string
	Err      error
	Detail   string
}

func (e *MatchError) Error() string {
	msg := fmt.Sprintf("match %s stage %s: %v", e.ResumeID, e.Stage, e.Err)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *MatchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match both wrapped sentinels and other MatchErrors
// for the same candidate and stage.
func (e *MatchError) Is(target error) bool {
	var other *MatchError
	if errors.As(target, &other) {
		return e.ResumeID == other.ResumeID && e.Stage == other.Stage
	}
	return errors.Is(e.Err, target)
}

func newMatchError(resumeID, stage string, err error, detail string) *MatchError {
	return &MatchError{ResumeID: resumeID, Stage: stage, Err: err, Detail: detail}
}
