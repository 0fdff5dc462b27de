// Package textutil holds shared text processing helpers used across the
// chunking and matching pipeline.
package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	urlRe        = regexp.MustCompile(`http[s]?://\S+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	nonIDCharRe  = regexp.MustCompile(`[^\w\s-]`)
)

// NormalizeText strips HTML tags, replaces URLs with a placeholder and
// collapses runs of whitespace to a single space.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	text = htmlTagRe.ReplaceAllString(text, "")
	text = urlRe.ReplaceAllString(text, "[URL]")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// CleanNameForID lowercases a person's name and replaces whitespace with
// underscores so it can serve as a document id. Returns "" when the name
// is empty or the literal "unknown".
func CleanNameForID(name string) string {
	if name == "" || strings.EqualFold(name, "unknown") {
		return ""
	}
	clean := nonIDCharRe.ReplaceAllString(name, "")
	clean = whitespaceRe.ReplaceAllString(strings.TrimSpace(clean), "_")
	return strings.ToLower(clean)
}

// TruncateString shortens s to at most maxLength runes, appending "..."
// when anything was cut.
func TruncateString(s string, maxLength int) string {
	if s == "" || maxLength <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	const suffix = "..."
	cut := maxLength - len(suffix)
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + suffix
}

// ExtractJSON pulls the first balanced JSON object out of text that may
// be wrapped in markdown code fences or surrounded by prose. Returns ""
// when no object is found.
func ExtractJSON(text string) string {
	if text == "" {
		return ""
	}
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "\uFEFF")
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			level++
		case !inString && c == '}':
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// SanitizeJSON rewrites unescaped double quotes that appear inside string
// literals as \" so that slightly malformed LLM output still
// unmarshals. A quote counts as a real string terminator only when the
// next non-whitespace byte is JSON syntax (: , ] or }).
func SanitizeJSON(src string) string {
	var b strings.Builder
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		switch {
		case c == '"' && !escaped:
			if !inStr {
				inStr = true
				b.WriteByte(c)
				break
			}
			j := i + 1
			for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
				j++
			}
			if j < len(src) && (src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}') {
				inStr = false
				b.WriteByte(c)
			} else if j >= len(src) {
				inStr = false
				b.WriteByte(c)
			} else {
				b.WriteString(`\"`)
			}
			escaped = false
		case c == '\\' && !escaped:
			escaped = true
			b.WriteByte(c)
		default:
			b.WriteByte(c)
			escaped = false
		}
	}

	return b.String()
}

// FormatList joins items with a separator, showing at most maxItems and a
// "(+N more)" suffix for the rest. maxItems <= 0 means no limit.
func FormatList(items []string, maxItems int, separator string) string {
	if len(items) == 0 {
		return ""
	}
	if maxItems > 0 && len(items) > maxItems {
		shown := strings.Join(items[:maxItems], separator)
		return shown + " ... (+" + strconv.Itoa(len(items)-maxItems) + " more)"
	}
	return strings.Join(items, separator)
}
