package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength bounds generic attribute values.
	DefaultMaxLength = 200

	// MaxQueryLength bounds recorded search query text.
	MaxQueryLength = 100

	// MaxFragmentLength bounds recorded fragment content. Fragments hold
	// candidate material, so only a short slice ever reaches a span.
	MaxFragmentLength = 150
)

// maskPIILookup lists attribute-name keywords whose values carry
// personal data and must be masked.
var maskPIILookup = map[string]bool{
	"email":    true,
	"phone":    true,
	"password": true,
	"address":  true,
	"name":     true,
	"secret":   true,
	"token":    true,
}

// SafeAttributeValue masks values of PII-named attributes and truncates
// everything else to maxLength.
func SafeAttributeValue(name string, value string, maxLength int) string {
	lowerName := strings.ToLower(name)
	for keyword := range maskPIILookup {
		if strings.Contains(lowerName, keyword) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII hides the middle of a value, keeping just enough of the edges
// to correlate traces.
func MaskPII(value string) string {
	if value == "" {
		return ""
	}

	runes := []rune(value)
	length := len(runes)

	switch {
	case length <= 1:
		return "*"
	case length == 2:
		return string(runes[0:1]) + "*"
	case length <= 4:
		return string(runes[0:1]) + strings.Repeat("*", length-2) + string(runes[length-1:])
	default:
		return string(runes[0:2]) + strings.Repeat("*", length-4) + string(runes[length-2:])
	}
}

// TruncateString keeps the head and tail of an overlong value with an
// ellipsis in between.
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeQuery bounds recorded search query text.
func SafeQuery(query string) string {
	return TruncateString(query, MaxQueryLength)
}

// SafeFragmentContent bounds recorded fragment content.
func SafeFragmentContent(content string) string {
	return TruncateString(content, MaxFragmentLength)
}
