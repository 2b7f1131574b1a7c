package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestEmbedDocumentsBatchesAndOrders(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		type item struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		// reply in reverse order to check reordering by index
		var data []item
		for i := len(body.Input) - 1; i >= 0; i-- {
			data = append(data, item{Index: i, Embedding: []float64{float64(len(body.Input[i])), 1}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	t.Setenv("TEST_EMBED_KEY", "secret")
	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_EMBED_KEY", BatchSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := c.EmbedDocuments(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 batched calls, got %d", calls.Load())
	}
	for i, want := range []float64{1, 2, 3} {
		if vecs[i][0] != want {
			t.Fatalf("vector %d out of order: %v", i, vecs[i])
		}
	}
	if c.Dimension() != 2 {
		t.Fatalf("expected dimension 2, got %d", c.Dimension())
	}
}

func TestEmbedQueryClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.EmbedQuery(context.Background(), "q"); err == nil {
		t.Fatal("expected error on 400")
	}
}

func TestNewClientMissingKey(t *testing.T) {
	t.Setenv("TEST_EMBED_MISSING", "")
	if _, err := NewClient(Config{APIKeyEnv: "TEST_EMBED_MISSING"}); err == nil {
		t.Fatal("expected missing key error")
	}
}
