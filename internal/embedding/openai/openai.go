package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

// Client is an OpenAI-compatible embeddings client implementing the Embedder interface.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	client     *http.Client
	maxRetries int

	dimension atomic.Int64
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	BatchSize int
}

// NewClient creates a new embeddings client using the provided configuration.
// Local servers (Ollama, vLLM) usually need no key, so an empty APIKeyEnv is
// accepted; a named but unset variable is an error.
func NewClient(cfg Config) (*Client, error) {
	var key string
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: 5,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Prepare is a no-op; the dimension is learned from the first response.
func (c *Client) Prepare(corpus []string) error { return nil }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int {
	return int(c.dimension.Load())
}

// EmbedDocuments embeds texts in batches of the configured size.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		vecs, err := c.embed(ctx, texts[start:min(start+c.batchSize, len(texts))])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// EmbedQuery returns an embedding vector for the given query text.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// retryable marks a failure worth another attempt. after overrides the
// backoff delay when the server sent Retry-After.
type retryable struct {
	err   error
	after time.Duration
}

func (r *retryable) Error() string { return r.err.Error() }
func (r *retryable) Unwrap() error { return r.err }

func (c *Client) embed(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}{texts, c.model})
	if err != nil {
		return nil, err
	}
	for attempt := 0; ; attempt++ {
		vecs, err := c.post(ctx, body, len(texts))
		var retry *retryable
		if err == nil || !errors.As(err, &retry) || attempt >= c.maxRetries || ctx.Err() != nil {
			if err == nil {
				c.dimension.CompareAndSwap(0, int64(len(vecs[0])))
			}
			return vecs, err
		}
		delay := retryDelay(attempt)
		if retry.after > 0 {
			delay = retry.after
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// post runs one embeddings request and returns the vectors in input order.
func (c *Client) post(ctx context.Context, body []byte, want int) ([][]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &retryable{err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		r := &retryable{err: fmt.Errorf("openai embeddings: %s", resp.Status)}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			r.after = time.Duration(secs) * time.Second
		}
		return nil, r
	case resp.StatusCode >= http.StatusMultipleChoices:
		return nil, fmt.Errorf("openai embeddings: %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("openai embeddings: decode: %w", err)
	}
	if len(out.Data) != want {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(out.Data), want)
	}
	vecs := make([][]float64, want)
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= want || len(d.Embedding) == 0 {
			return nil, fmt.Errorf("openai embeddings: bad vector at index %d", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryDelay(attempt int) time.Duration {
	// exponential from 200ms, capped at 5s
	return min(200*time.Millisecond<<max(attempt, 0), 5*time.Second)
}
