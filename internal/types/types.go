package types

import "time"

// DocumentType distinguishes the two document kinds handled by the pipeline.
type DocumentType string

const (
	// DocumentTypeResume marks a candidate résumé.
	DocumentTypeResume DocumentType = "resume"
	// DocumentTypeJobDescription marks a job posting.
	DocumentTypeJobDescription DocumentType = "job_description"
)

// Field names shared by the résumé and JD chunkers. The similarity
// aggregator scopes field-aware searches by name equality, so both
// chunkers must emit fragments from this vocabulary only.
const (
	FieldSummary          = "summary"
	FieldSkills           = "skills"
	FieldExperience       = "experience"
	FieldEducation        = "education"
	FieldProjects         = "projects"
	FieldCertifications   = "certifications"
	FieldAchievements     = "achievements"
	FieldResponsibilities = "responsibilities"
	FieldAdditionalInfo   = "additional_info"
)

// Document is one stored résumé or job posting. RawText is immutable once
// the document is registered; fragments reference the document by ID only.
type Document struct {
	ID        string       `json:"id"`
	Type      DocumentType `json:"type"`
	RawText   string       `json:"raw_text"`
	CreatedAt time.Time    `json:"created_at"`
}

// Fragment is one field-scoped slice of a document, the unit of vector
// storage and search. FragmentID is derived deterministically from
// (document id, field, ordinal) so re-chunking the same input yields the
// same IDs.
type Fragment struct {
	FragmentID   string       `json:"fragment_id"`
	Field        string       `json:"field"`
	Content      string       `json:"content"`
	DocumentID   string       `json:"document_id"`
	DocumentType DocumentType `json:"document_type"`

	// Split lineage, set by the size normalizer when an oversized
	// fragment is broken into parts.
	IsSplit            bool   `json:"is_split,omitempty"`
	OriginalFragmentID string `json:"original_fragment_id,omitempty"`
	PartNumber         int    `json:"part_number,omitempty"`
	TotalParts         int    `json:"total_parts,omitempty"`
}

// SizeStatus classifies a fragment against the token band.
type SizeStatus string

const (
	SizeTooLarge SizeStatus = "TOO_LARGE"
	SizeTooSmall SizeStatus = "TOO_SMALL"
	SizeLarge    SizeStatus = "LARGE"
	SizeOptimal  SizeStatus = "OPTIMAL"
)

// SizeReport is the normalizer's verdict on a single fragment.
type SizeReport struct {
	Status         SizeStatus `json:"status"`
	Tokens         int        `json:"tokens"`
	Chars          int        `json:"chars"`
	Recommendation string     `json:"recommendation"`
	ActionRequired bool       `json:"action_required"`
}

// ExperienceEntry is one work-history item in a structured résumé.
type ExperienceEntry struct {
	Role         string   `json:"role,omitempty"`
	Company      string   `json:"company,omitempty"`
	Period       string   `json:"period,omitempty"`
	Location     string   `json:"location,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
}

// EducationEntry is one education item in a structured résumé.
type EducationEntry struct {
	Degree  string `json:"degree,omitempty"`
	School  string `json:"school,omitempty"`
	Period  string `json:"period,omitempty"`
	Details string `json:"details,omitempty"`
}

// ProjectEntry is one project item in a structured résumé.
type ProjectEntry struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// ResumeFields is the structured representation produced by the
// extraction collaborator for a résumé. Missing sections stay empty and
// are simply omitted by the chunker, never invented.
type ResumeFields struct {
	Name           string            `json:"name,omitempty"`
	Summary        string            `json:"summary,omitempty"`
	Skills         []string          `json:"skills,omitempty"`
	Experience     []ExperienceEntry `json:"experience,omitempty"`
	Education      []EducationEntry  `json:"education,omitempty"`
	Projects       []ProjectEntry    `json:"projects,omitempty"`
	Certifications []string          `json:"certifications,omitempty"`
	Achievements   []string          `json:"achievements,omitempty"`
}

// ExperienceRequirement is one experience requirement in a structured JD.
type ExperienceRequirement struct {
	YearsRequired string `json:"years_required,omitempty"`
	Level         string `json:"level,omitempty"`
	Description   string `json:"description,omitempty"`
}

// EducationRequirement is one education requirement in a structured JD.
type EducationRequirement struct {
	Degree       string `json:"degree,omitempty"`
	Field        string `json:"field,omitempty"`
	Requirements string `json:"requirements,omitempty"`
}

// JobFields is the structured representation of a job description. Its
// chunked output uses the same field vocabulary as the résumé chunker;
// title, company, location, salary, benefits and employment type fold
// into the additional_info catch-all fragment.
type JobFields struct {
	Title            string                  `json:"title,omitempty"`
	Company          string                  `json:"company,omitempty"`
	Skills           []string                `json:"skills,omitempty"`
	Experience       []ExperienceRequirement `json:"experience,omitempty"`
	Education        []EducationRequirement  `json:"education,omitempty"`
	Certifications   []string                `json:"certifications,omitempty"`
	Responsibilities []string                `json:"responsibilities,omitempty"`
	Location         string                  `json:"location,omitempty"`
	Salary           string                  `json:"salary,omitempty"`
	EmploymentType   string                  `json:"employment_type,omitempty"`
	Benefits         []string                `json:"benefits,omitempty"`
	AboutCompany     string                  `json:"about_company,omitempty"`
}

// FragmentHit is one vector-search hit attributed to a candidate, kept
// verbatim (truncated content) for explainability.
type FragmentHit struct {
	FragmentID string  `json:"fragment_id"`
	Field      string  `json:"field"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// AggregateStats accumulates fragment-level similarity per candidate.
type AggregateStats struct {
	ResumeID          string        `json:"resume_id"`
	TotalSimilarity   float64       `json:"total_similarity"`
	ChunkCount        int           `json:"chunk_count"`
	AverageSimilarity float64       `json:"average_similarity"`
	TopHits           []FragmentHit `json:"top_hits"`

	// FirstSeen is the candidate's position in aggregation encounter
	// order, used to keep sorting stable among equal scores.
	FirstSeen int `json:"-"`
}

// MatchingMode is the discriminant of the MatchResult variant.
type MatchingMode string

const (
	ModeRough           MatchingMode = "rough"
	ModePrecise         MatchingMode = "precise"
	ModeHybrid          MatchingMode = "hybrid"
	ModeHybridRoughOnly MatchingMode = "hybrid_rough_only"
)

// Recommendation buckets a calibrated match score.
type Recommendation string

const (
	StrongMatch  Recommendation = "STRONG_MATCH"
	GoodMatch    Recommendation = "GOOD_MATCH"
	PartialMatch Recommendation = "PARTIAL_MATCH"
	NotMatch     Recommendation = "NOT_MATCH"
)

// RoughDetail is the mode-specific payload of a rough (similarity-only)
// result.
type RoughDetail struct {
	MatchingChunks    int           `json:"matching_chunks_count"`
	TotalSimilarity   float64       `json:"total_similarity"`
	AverageSimilarity float64       `json:"average_similarity"`
	TopMatchingChunks []FragmentHit `json:"top_matching_chunks"`
}

// RoughCarry is the rough-stage signal carried into a hybrid result that
// was promoted to precise analysis.
type RoughCarry struct {
	RoughMatchScore     float64 `json:"rough_match_score"`
	RoughSimilarity     float64 `json:"rough_similarity"`
	RoughMatchingChunks int     `json:"rough_matching_chunks"`
}

// DimensionScores is the deep evaluator's per-dimension breakdown.
type DimensionScores struct {
	SkillsMatch     float64 `json:"skills_match"`
	ExperienceMatch float64 `json:"experience_match"`
	EducationMatch  float64 `json:"education_match"`
	CulturalFit     float64 `json:"cultural_fit"`
}

// DeepVerdict is the structured response of the deep-evaluation
// collaborator. A malformed LLM response is degraded into a verdict with
// Error set and a truncated RawResponse preview, never into a failure of
// the whole batch.
type DeepVerdict struct {
	Qualified        bool             `json:"qualified"`
	MatchScore       float64          `json:"match_score"`
	Summary          string           `json:"summary"`
	Strengths        []string         `json:"strengths"`
	Weaknesses       []string         `json:"weaknesses"`
	Recommendation   Recommendation   `json:"recommendation,omitempty"`
	DetailedAnalysis *DimensionScores `json:"detailed_analysis,omitempty"`
	NextSteps        string           `json:"next_steps,omitempty"`
	Error            string           `json:"error,omitempty"`
	RawResponse      string           `json:"raw_response,omitempty"`
}

// MatchResult is the per-(JD, candidate) outcome of a funnel run. Exactly
// one mode-appropriate payload is populated: Rough for rough and
// hybrid_rough_only results, Deep (plus RoughCarry in hybrid) for precise
// analysis. Consumers switch on MatchingMode instead of probing fields.
type MatchResult struct {
	ResumeID       string         `json:"resume_id"`
	MatchScore     float64        `json:"match_score"`
	Qualified      bool           `json:"qualified"`
	Recommendation Recommendation `json:"recommendation"`
	MatchingMode   MatchingMode   `json:"matching_mode"`
	Summary        string         `json:"summary,omitempty"`
	Note           string         `json:"note,omitempty"`

	Rough      *RoughDetail `json:"rough,omitempty"`
	Deep       *DeepVerdict `json:"deep,omitempty"`
	RoughCarry *RoughCarry  `json:"rough_carry,omitempty"`
}

// MatchState tracks a candidate through one funnel run.
type MatchState string

const (
	StatePending         MatchState = "PENDING"
	StateRoughFiltered   MatchState = "ROUGH_FILTERED"
	StatePreciseAnalyzed MatchState = "PRECISE_ANALYZED"
	StateRoughOnly       MatchState = "ROUGH_ONLY"
	StateDone            MatchState = "DONE"
)

// FieldCoverage compares one field's presence across a résumé and a JD.
type FieldCoverage struct {
	ResumeHas            bool   `json:"resume_has"`
	JDRequires           bool   `json:"jd_requires"`
	MatchStatus          string `json:"match_status"`
	ResumeContentPreview string `json:"resume_content_preview,omitempty"`
	JDRequirementPreview string `json:"jd_requirement_preview,omitempty"`
}

// MatchExplanation is the human-readable breakdown of one match result.
type MatchExplanation struct {
	ResumeID          string                   `json:"resume_id"`
	OverallScore      float64                  `json:"overall_score"`
	Qualified         bool                     `json:"qualified"`
	Recommendation    Recommendation           `json:"recommendation"`
	FieldBreakdown    map[string]FieldCoverage `json:"field_breakdown"`
	TopStrengths      []string                 `json:"top_strengths"`
	TopWeaknesses     []string                 `json:"top_weaknesses"`
	MissingSkills     []string                 `json:"missing_skills"`
	StandoutQualities []string                 `json:"standout_qualities"`
	DetailedScores    *DimensionScores         `json:"detailed_scores,omitempty"`
	Summary           string                   `json:"summary"`
	NextSteps         string                   `json:"next_steps"`
}

// AdaptiveParams holds funnel parameters derived from the current size
// of the résumé pool.
type AdaptiveParams struct {
	RoughTopK         int     `json:"rough_top_k"`
	PreciseTopN       int     `json:"precise_top_n"`
	TotalResumes      int     `json:"total_resumes"`
	PrecisePercentage float64 `json:"precise_percentage,omitempty"`
}
