// Package cohere is a small client for the Cohere v2 REST API. One Client
// serves as embedder, reranker and language model.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"docsum/internal/domain"
)

// maxEmbedTexts is the API limit on texts per embed request.
const maxEmbedTexts = 96

// Config configures the Cohere client.
type Config struct {
	BaseURL        string
	APIKeyEnv      string
	EmbeddingModel string
	RerankModel    string
	ChatModel      string
	Timeout        time.Duration
}

// Client talks to the Cohere v2 API.
type Client struct {
	baseURL        string
	apiKey         string
	embeddingModel string
	rerankModel    string
	chatModel      string
	client         *http.Client

	mu        sync.RWMutex
	dimension int
}

// APIError is a non-2xx reply from the API.
type APIError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cohere %s: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("cohere %s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

// NewClient reads the API key from the configured environment variable.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "COHERE_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cohere.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         key,
		embeddingModel: cfg.EmbeddingModel,
		rerankModel:    cfg.RerankModel,
		chatModel:      cfg.ChatModel,
		client:         &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "cohere" }

// Prepare is a no-op for a hosted embedder.
func (c *Client) Prepare(corpus []string) error { return nil }

// Dimension is known after the first embed call.
func (c *Client) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dimension
}

// EmbedDocuments embeds chunk texts as search documents.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedTexts {
		end := start + maxEmbedTexts
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embed(ctx, texts[start:end], "search_document")
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// EmbedQuery embeds a retrieval query.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.embed(ctx, []string{text}, "search_query")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *Client) embed(ctx context.Context, texts []string, inputType string) ([][]float64, error) {
	req := map[string]any{
		"model":           c.embeddingModel,
		"texts":           texts,
		"input_type":      inputType,
		"embedding_types": []string{"float"},
	}
	var resp struct {
		Embeddings struct {
			Float [][]float64 `json:"float"`
		} `json:"embeddings"`
	}
	if err := c.post(ctx, "embed", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings.Float) != len(texts) {
		return nil, fmt.Errorf("cohere embed: got %d vectors for %d texts", len(resp.Embeddings.Float), len(texts))
	}
	c.mu.Lock()
	if c.dimension == 0 && len(resp.Embeddings.Float[0]) > 0 {
		c.dimension = len(resp.Embeddings.Float[0])
	}
	c.mu.Unlock()
	return resp.Embeddings.Float, nil
}

// Rerank orders docs by relevance to query and keeps the best topN.
func (c *Client) Rerank(ctx context.Context, query string, docs []string, topN int) ([]int, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if topN <= 0 || topN > len(docs) {
		topN = len(docs)
	}
	req := map[string]any{
		"model":     c.rerankModel,
		"query":     query,
		"documents": docs,
		"top_n":     topN,
	}
	var resp struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := c.post(ctx, "rerank", req, &resp); err != nil {
		return nil, err
	}
	out := make([]int, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(docs) {
			return nil, fmt.Errorf("cohere rerank: index %d out of range", r.Index)
		}
		out = append(out, r.Index)
	}
	return out, nil
}

// Complete runs a chat request grounded on docs. A reply without text is
// reported as domain.ErrMalformedResponse.
func (c *Client) Complete(ctx context.Context, system, user string, docs []string) (string, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := map[string]any{
		"model": c.chatModel,
		"messages": []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	if len(docs) > 0 {
		req["documents"] = docs
	}
	var resp struct {
		Message *struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"message"`
	}
	if err := c.post(ctx, "chat", req, &resp); err != nil {
		return "", err
	}
	if resp.Message == nil || len(resp.Message.Content) == 0 {
		return "", domain.ErrMalformedResponse
	}
	text := strings.TrimSpace(resp.Message.Content[0].Text)
	if text == "" {
		return "", domain.ErrMalformedResponse
	}
	return text, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("cohere %s: marshal: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/"+endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("cohere %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("cohere %s: read: %w", endpoint, err)
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(payload, &e)
		return &APIError{Endpoint: endpoint, Status: resp.StatusCode, Message: e.Message}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		if endpoint == "chat" {
			return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
		}
		return fmt.Errorf("cohere %s: decode: %w", endpoint, err)
	}
	return nil
}
