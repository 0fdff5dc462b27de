package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-copilot-go/internal/config"
)

// fixedEmbedder returns a constant vector per text; the adapter only
// needs the embedding contract satisfied.
type fixedEmbedder struct{}

func (fixedEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = []float64{0.1, 0.2}
	}
	return vectors, nil
}

func scrollPoint(fragmentID, field string) string {
	return fmt.Sprintf(`{"id": %q, "payload": {"fragment_id": %q, "field": %q, "content": "text", "document_id": "doc", "document_type": "resume"}}`,
		fragmentID, fragmentID, field)
}

func TestGetFragmentsByDocumentFollowsScrollCursor(t *testing.T) {
	var scrollCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/fragments":
			fmt.Fprint(w, `{"result": {"status": "green"}}`)
		case r.Method == http.MethodPost && r.URL.Path == "/collections/fragments/points/scroll":
			scrollCalls++
			var body map[string]interface{}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if scrollCalls == 1 {
				assert.Nil(t, body["offset"], "first page carries no cursor")
				fmt.Fprintf(w, `{"result": {"points": [%s, %s], "next_page_offset": "cursor-1"}}`,
					scrollPoint("doc_summary", "summary"), scrollPoint("doc_skills", "skills"))
				return
			}
			assert.Equal(t, "cursor-1", body["offset"], "second page must resume from the cursor")
			fmt.Fprintf(w, `{"result": {"points": [%s], "next_page_offset": null}}`,
				scrollPoint("doc_experience_0", "experience"))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	q, err := NewQdrant(&config.QdrantConfig{
		Endpoint:   server.URL,
		Collection: "fragments",
		Dimension:  2,
	}, fixedEmbedder{})
	require.NoError(t, err)

	fragments, err := q.GetFragmentsByDocument(context.Background(), "doc")
	require.NoError(t, err)
	require.Len(t, fragments, 3, "every page of the scroll contributes fragments")
	assert.Equal(t, 2, scrollCalls)
	assert.Equal(t, "doc_experience_0", fragments[2].FragmentID)
}
