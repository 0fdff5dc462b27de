package chunker

import (
	"fmt"

	"career-copilot-go/internal/types"
)

// fieldVocabulary is the closed set of fragment field names both
// chunkers may emit. Field-scoped search relies on résumé and JD
// fragments agreeing on these names, so emitting anything outside the
// set is a programming error surfaced by ValidateVocabulary.
var fieldVocabulary = map[string]struct{}{
	types.FieldSummary:          {},
	types.FieldSkills:           {},
	types.FieldExperience:       {},
	types.FieldEducation:        {},
	types.FieldProjects:         {},
	types.FieldCertifications:   {},
	types.FieldAchievements:     {},
	types.FieldResponsibilities: {},
	types.FieldAdditionalInfo:   {},
}

// Vocabulary returns the shared field vocabulary.
func Vocabulary() []string {
	fields := make([]string, 0, len(fieldVocabulary))
	for field := range fieldVocabulary {
		fields = append(fields, field)
	}
	return fields
}

// ValidateVocabulary checks that every fragment's field belongs to the
// shared vocabulary. Called after chunking, before persistence.
func ValidateVocabulary(fragments []types.Fragment) error {
	for _, fragment := range fragments {
		if _, ok := fieldVocabulary[fragment.Field]; !ok {
			return fmt.Errorf("fragment %s uses field %q outside the shared vocabulary",
				fragment.FragmentID, fragment.Field)
		}
	}
	return nil
}
