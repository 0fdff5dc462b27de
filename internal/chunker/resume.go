// Package chunker converts structured documents into field-tagged,
// size-normalized fragments ready for vector storage.
package chunker

import (
	"fmt"
	"strings"

	"career-copilot-go/internal/types"
)

// ResumeChunker renders a structured résumé into fragments. Rendering is
// deterministic: field order inside a fragment is fixed, so identical
// inputs always produce byte-identical fragment lists.
type ResumeChunker struct{}

// NewResumeChunker creates a résumé chunker.
func NewResumeChunker() *ResumeChunker {
	return &ResumeChunker{}
}

// Chunk produces one fragment per scalar-list field and one per entry of
// each structured-list field. Sections absent from the input are omitted,
// never invented; fragments that render empty are dropped.
func (c *ResumeChunker) Chunk(fields *types.ResumeFields, documentID string) []types.Fragment {
	if fields == nil {
		return nil
	}

	var fragments []types.Fragment
	add := func(fragmentID, field, content string) {
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		fragments = append(fragments, types.Fragment{
			FragmentID:   fragmentID,
			Field:        field,
			Content:      content,
			DocumentID:   documentID,
			DocumentType: types.DocumentTypeResume,
		})
	}

	add(fmt.Sprintf("%s_%s", documentID, types.FieldSummary), types.FieldSummary, fields.Summary)

	if len(fields.Skills) > 0 {
		add(fmt.Sprintf("%s_%s", documentID, types.FieldSkills), types.FieldSkills,
			"Skills: "+strings.Join(fields.Skills, ", "))
	}

	for i, exp := range fields.Experience {
		add(fmt.Sprintf("%s_%d_%s", documentID, i, types.FieldExperience), types.FieldExperience,
			renderExperience(exp))
	}

	for i, edu := range fields.Education {
		add(fmt.Sprintf("%s_%d_%s", documentID, i, types.FieldEducation), types.FieldEducation,
			renderEducation(edu))
	}

	for i, project := range fields.Projects {
		add(fmt.Sprintf("%s_%d_%s", documentID, i, types.FieldProjects), types.FieldProjects,
			renderProject(project))
	}

	if len(fields.Certifications) > 0 {
		add(fmt.Sprintf("%s_%s", documentID, types.FieldCertifications), types.FieldCertifications,
			"Certifications: "+strings.Join(fields.Certifications, ", "))
	}

	if len(fields.Achievements) > 0 {
		add(fmt.Sprintf("%s_%s", documentID, types.FieldAchievements), types.FieldAchievements,
			"Achievements: "+strings.Join(fields.Achievements, " "))
	}

	return fragments
}

func renderExperience(exp types.ExperienceEntry) string {
	if exp.Role == "" && exp.Company == "" && len(exp.Achievements) == 0 {
		return ""
	}
	parts := []string{
		"Role: " + exp.Role,
		"Company: " + exp.Company,
	}
	if exp.Period != "" {
		parts = append(parts, "Period: "+exp.Period)
	}
	if exp.Location != "" {
		parts = append(parts, "Location: "+exp.Location)
	}
	if len(exp.Achievements) > 0 {
		parts = append(parts, "Achievements: "+strings.Join(exp.Achievements, " "))
	}
	return strings.Join(parts, " | ")
}

func renderEducation(edu types.EducationEntry) string {
	if edu.Degree == "" && edu.School == "" {
		return ""
	}
	parts := []string{fmt.Sprintf("%s at %s", edu.Degree, edu.School)}
	if edu.Period != "" {
		parts = append(parts, "Period: "+edu.Period)
	}
	if edu.Details != "" {
		parts = append(parts, edu.Details)
	}
	return strings.Join(parts, " | ")
}

func renderProject(project types.ProjectEntry) string {
	if project.Name == "" && project.Description == "" {
		return ""
	}
	parts := []string{"Project: " + project.Name}
	if project.Description != "" {
		parts = append(parts, "Description: "+project.Description)
	}
	return strings.Join(parts, " | ")
}
