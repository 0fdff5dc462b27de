package chunker

import (
	"fmt"
	"strings"

	"career-copilot-go/internal/types"
)

// JDChunker renders a structured job description into fragments. It uses
// the same field vocabulary as the résumé chunker so field-scoped vector
// search lines up across the two document types; title, company,
// location, salary, benefits and employment type fold into one
// additional_info catch-all fragment.
type JDChunker struct{}

// NewJDChunker creates a job-description chunker.
func NewJDChunker() *JDChunker {
	return &JDChunker{}
}

// Chunk produces the JD fragment set. Missing sections are omitted and
// empty renderings dropped, mirroring the résumé chunker.
func (c *JDChunker) Chunk(fields *types.JobFields, documentID string) []types.Fragment {
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
			DocumentType: types.DocumentTypeJobDescription,
		})
	}

	if len(fields.Skills) > 0 {
		add(fmt.Sprintf("%s_%s", documentID, types.FieldSkills), types.FieldSkills,
			"Skills: "+strings.Join(fields.Skills, ", "))
	}

	for i, exp := range fields.Experience {
		add(fmt.Sprintf("%s_%d_%s", documentID, i, types.FieldExperience), types.FieldExperience,
			renderExperienceRequirement(exp))
	}

	for i, edu := range fields.Education {
		add(fmt.Sprintf("%s_%d_%s", documentID, i, types.FieldEducation), types.FieldEducation,
			renderEducationRequirement(edu))
	}

	if len(fields.Certifications) > 0 {
		add(fmt.Sprintf("%s_%s", documentID, types.FieldCertifications), types.FieldCertifications,
			"Certifications: "+strings.Join(fields.Certifications, ", "))
	}

	if len(fields.Responsibilities) > 0 {
		var sb strings.Builder
		sb.WriteString("Responsibilities:")
		for _, r := range fields.Responsibilities {
			sb.WriteString("\n- ")
			sb.WriteString(r)
		}
		add(fmt.Sprintf("%s_%s", documentID, types.FieldResponsibilities), types.FieldResponsibilities,
			sb.String())
	}

	add(fmt.Sprintf("%s_%s", documentID, types.FieldAdditionalInfo), types.FieldAdditionalInfo,
		renderAdditionalInfo(fields))

	return fragments
}

func renderExperienceRequirement(exp types.ExperienceRequirement) string {
	var parts []string
	if exp.YearsRequired != "" {
		parts = append(parts, "Years Required: "+exp.YearsRequired)
	}
	if exp.Level != "" {
		parts = append(parts, "Level: "+exp.Level)
	}
	if exp.Description != "" {
		parts = append(parts, "Description: "+exp.Description)
	}
	return strings.Join(parts, " | ")
}

func renderEducationRequirement(edu types.EducationRequirement) string {
	var parts []string
	if edu.Degree != "" {
		parts = append(parts, "Degree: "+edu.Degree)
	}
	if edu.Field != "" {
		parts = append(parts, "Field: "+edu.Field)
	}
	if edu.Requirements != "" {
		parts = append(parts, "Requirements: "+edu.Requirements)
	}
	return strings.Join(parts, " | ")
}

func renderAdditionalInfo(fields *types.JobFields) string {
	var parts []string
	if fields.Title != "" {
		parts = append(parts, "Title: "+fields.Title)
	}
	if fields.Company != "" {
		parts = append(parts, "Company: "+fields.Company)
	}
	if fields.Location != "" {
		parts = append(parts, "Location: "+fields.Location)
	}
	if fields.Salary != "" {
		parts = append(parts, "Salary: "+fields.Salary)
	}
	if fields.EmploymentType != "" {
		parts = append(parts, "Employment Type: "+fields.EmploymentType)
	}
	if len(fields.Benefits) > 0 {
		parts = append(parts, "Benefits: "+strings.Join(fields.Benefits, ", "))
	}
	if fields.AboutCompany != "" {
		parts = append(parts, "About Company: "+fields.AboutCompany)
	}
	return strings.Join(parts, " | ")
}
