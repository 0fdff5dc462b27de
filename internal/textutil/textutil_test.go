package textutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"strips html tags", "<p>Backend <b>engineer</b></p>", "Backend engineer"},
		{"replaces urls", "see https://example.com/profile for details", "see [URL] for details"},
		{"collapses whitespace", "one   two\t\tthree\n\nfour", "one two three four"},
		{"trims", "  padded  ", "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.in))
		})
	}
}

func TestCleanNameForID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple name", "Jane Smith", "jane_smith"},
		{"punctuation stripped", "O'Brien, Patrick Jr.", "obrien_patrick_jr"},
		{"unknown sentinel", "Unknown", ""},
		{"empty", "", ""},
		{"inner runs collapse", "Jane   van  Dyke", "jane_van_dyke"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanNameForID(tt.in))
		})
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "", TruncateString("", 10))
	assert.Equal(t, "", TruncateString("anything", 0))
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "exact", TruncateString("exact", 5))
	assert.Equal(t, "abcdefg...", TruncateString("abcdefghijk", 10))
	assert.Len(t, []rune(TruncateString("abcdefghijk", 10)), 10)
}

func TestExtractJSONPlainObject(t *testing.T) {
	src := `{"a": 1, "b": {"c": 2}}`
	assert.Equal(t, src, ExtractJSON(src))
}

func TestExtractJSONFromFencedBlock(t *testing.T) {
	src := "```json\n{\"score\": 85}\n```"
	assert.Equal(t, `{"score": 85}`, ExtractJSON(src))
}

func TestExtractJSONFromSurroundingProse(t *testing.T) {
	src := `Here is the result you asked for: {"score": 85, "ok": true}. Let me know.`
	assert.Equal(t, `{"score": 85, "ok": true}`, ExtractJSON(src))
}

func TestExtractJSONIgnoresBracesInsideStrings(t *testing.T) {
	src := `{"note": "uses {placeholders} inside"}`
	assert.Equal(t, src, ExtractJSON(src))
}

func TestExtractJSONNoObject(t *testing.T) {
	assert.Equal(t, "", ExtractJSON("no json here"))
	assert.Equal(t, "", ExtractJSON(""))
	assert.Equal(t, "", ExtractJSON(`{"unterminated": true`))
}

func TestSanitizeJSONRepairsInnerQuotes(t *testing.T) {
	src := `{"summary": "worked on the "atlas" project"}`
	fixed := SanitizeJSON(src)

	var probe map[string]string
	require.NoError(t, json.Unmarshal([]byte(fixed), &probe))
	assert.Equal(t, `worked on the "atlas" project`, probe["summary"])
}

func TestSanitizeJSONLeavesValidJSONAlone(t *testing.T) {
	src := `{"a": "plain", "b": ["x", "y"], "c": {"d": "already \"escaped\""}}`
	fixed := SanitizeJSON(src)

	var probe map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(fixed), &probe))
	assert.Equal(t, "plain", probe["a"])
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "", FormatList(nil, 3, ", "))
	assert.Equal(t, "a, b", FormatList([]string{"a", "b"}, 3, ", "))
	assert.Equal(t, "a, b, c", FormatList([]string{"a", "b", "c"}, 0, ", "))
	assert.Equal(t, "a, b ... (+2 more)", FormatList([]string{"a", "b", "c", "d"}, 2, ", "))
}
