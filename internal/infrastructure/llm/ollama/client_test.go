package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newGenerateServer(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"response": response})
	}))
}

func TestExtractPropositionsParsesJSONResponse(t *testing.T) {
	server := newGenerateServer(t, `{"propositions":["Chè Bốn Mùa có không gian nhỏ.","  ","Chè Bốn Mùa bán chè thập cẩm."]}`)
	defer server.Close()

	splitter := NewPropositionSplitter(New(server.URL, "gen", "embed"))
	props, err := splitter.ExtractPropositions(context.Background(), "Chè Bốn Mùa", strings.Repeat("mô tả ", 100))
	if err != nil {
		t.Fatalf("ExtractPropositions() error = %v", err)
	}
	if len(props) != 2 {
		t.Fatalf("props = %v", props)
	}
	if props[1] != "Chè Bốn Mùa bán chè thập cẩm." {
		t.Fatalf("props[1] = %q", props[1])
	}
}

func TestExtractPropositionsToleratesSurroundingText(t *testing.T) {
	server := newGenerateServer(t, "Đây là kết quả: {\"propositions\":[\"A có view đẹp.\"]} xong.")
	defer server.Close()

	splitter := NewPropositionSplitter(New(server.URL, "gen", "embed"))
	props, err := splitter.ExtractPropositions(context.Background(), "A", "mô tả")
	if err != nil {
		t.Fatalf("ExtractPropositions() error = %v", err)
	}
	if len(props) != 1 || props[0] != "A có view đẹp." {
		t.Fatalf("props = %v", props)
	}
}

func TestExtractPropositionsReturnsParseError(t *testing.T) {
	server := newGenerateServer(t, "not json at all")
	defer server.Close()

	splitter := NewPropositionSplitter(New(server.URL, "gen", "embed"))
	_, err := splitter.ExtractPropositions(context.Background(), "A", "mô tả")
	if err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEmbedChecksVectorCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))

	vec, err := embedder.EmbedQuery(context.Background(), "quán chè ngon")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("vec = %v", vec)
	}

	if _, err := embedder.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected count mismatch error")
	}
}
