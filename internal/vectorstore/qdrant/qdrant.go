package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"docsum/internal/domain"
)

// Config holds the connection details of a Qdrant collection.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Storage talks to Qdrant over its REST API. The collection uses cosine
// distance and is recreated on every Init.
type Storage struct {
	base   string
	apiKey string
	client *http.Client
}

func NewStorage(cfg Config) *Storage {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Collection == "" {
		cfg.Collection = "docsum"
	}
	return &Storage{
		base:   strings.TrimRight(cfg.URL, "/") + "/collections/" + cfg.Collection,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type payload struct {
	Filename string `json:"filename"`
	ChunkID  string `json:"chunk_id"`
	Index    int    `json:"index"`
	Text     string `json:"text"`
}

type point struct {
	ID      string    `json:"id"`
	Vector  []float64 `json:"vector"`
	Payload payload   `json:"payload"`
}

type matchValue struct {
	Value string `json:"value"`
}

type condition struct {
	Key   string     `json:"key"`
	Match matchValue `json:"match"`
}

type filterClause struct {
	Must []condition `json:"must"`
}

type searchRequest struct {
	Vector      []float64     `json:"vector"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
	Filter      *filterClause `json:"filter,omitempty"`
}

type searchResponse struct {
	Result []struct {
		Score   float64 `json:"score"`
		Payload payload `json:"payload"`
	} `json:"result"`
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("qdrant: invalid dimension %d", dimension)
	}
	create := map[string]any{"vectors": map[string]any{"size": dimension, "distance": "Cosine"}}
	if err := s.call(ctx, http.MethodPut, "", create, nil); err != nil {
		return err
	}
	// filename filters hit a keyword index
	index := map[string]string{"field_name": "filename", "field_schema": "keyword"}
	return s.call(ctx, http.MethodPut, "/index?wait=true", index, nil)
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("qdrant: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	points := make([]point, 0, len(chunks))
	for i, c := range chunks {
		points = append(points, point{
			ID:     pointID(c.ChunkID),
			Vector: vectors[i],
			Payload: payload{
				Filename: c.Filename,
				ChunkID:  c.ChunkID,
				Index:    c.Index,
				Text:     c.Text,
			},
		})
	}
	return s.call(ctx, http.MethodPut, "/points?wait=true", struct {
		Points []point `json:"points"`
	}{points}, nil)
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int, filter domain.Filter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, errors.New("qdrant: topK must be positive")
	}
	req := searchRequest{Vector: vector, Limit: topK, WithPayload: true}
	if filter.Filename != "" {
		req.Filter = &filterClause{Must: []condition{{Key: "filename", Match: matchValue{Value: filter.Filename}}}}
	}
	var resp searchResponse
	if err := s.call(ctx, http.MethodPost, "/points/search", req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, len(resp.Result))
	for i, r := range resp.Result {
		results[i] = domain.SearchResult{
			Chunk: domain.Chunk{
				Filename: r.Payload.Filename,
				ChunkID:  r.Payload.ChunkID,
				Index:    r.Payload.Index,
				Text:     r.Payload.Text,
			},
			Score: r.Score,
		}
	}
	return results, nil
}

// Clear drops the collection. A missing collection is not an error.
func (s *Storage) Clear(ctx context.Context) error {
	err := s.call(ctx, http.MethodDelete, "", nil, nil)
	if se := (*statusError)(nil); errors.As(err, &se) && se.code == http.StatusNotFound {
		return nil
	}
	return err
}

// pointID maps a chunk id to a stable UUID; Qdrant accepts only unsigned
// integers or UUIDs as point ids.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

type statusError struct {
	op     string
	code   int
	detail string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant: %s: status %d: %s", e.op, e.code, e.detail)
}

func (s *Storage) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("qdrant: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{op: method + " " + s.base + path, code: resp.StatusCode, detail: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
