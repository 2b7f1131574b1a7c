package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docsum/internal/domain"
)

func TestCompleteInlinesDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body request
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Model != "m" {
			t.Errorf("unexpected model %q", body.Model)
		}
		if len(body.Messages) != 2 || !strings.Contains(body.Messages[1].Content, "[2]\nsecond") {
			t.Errorf("documents not inlined: %+v", body.Messages)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"answer"}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Complete(context.Background(), "sys", "user", []string{"first", "second"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "answer" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCompleteMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[]}`},
		{"blank content", `{"choices":[{"message":{"content":"  "}}]}`},
		{"not json", `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			c, _ := NewClient(Config{BaseURL: srv.URL})
			_, err := c.Complete(context.Background(), "s", "u", nil)
			if !errors.Is(err, domain.ErrMalformedResponse) {
				t.Fatalf("expected malformed response, got %v", err)
			}
		})
	}
}
