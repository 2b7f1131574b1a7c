package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Chunker.Type != "window" || cfg.Chunker.Size != 1000 || cfg.Chunker.Overlap != 100 {
		t.Fatalf("unexpected chunker defaults: %+v", cfg.Chunker)
	}
	if cfg.Retrieval.TopKDense != 100 || cfg.Retrieval.TopKRerank != 100 {
		t.Fatalf("unexpected retrieval defaults: %+v", cfg.Retrieval)
	}
	if cfg.LLM.Type != "extractive" {
		t.Fatalf("expected extractive llm by default, got %q", cfg.LLM.Type)
	}
	if cfg.Summarizer.DocumentWorkers <= 0 || cfg.Summarizer.SectionWorkers <= 0 {
		t.Fatalf("expected positive pool sizes, got %+v", cfg.Summarizer)
	}
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
chunker:
  type: window
  size: 400
llm:
  type: openai
  openai:
    model: local-model
progress:
  type: redis
  redis: {}
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Chunker.Size != 400 {
		t.Fatalf("expected size 400, got %d", cfg.Chunker.Size)
	}
	if cfg.Chunker.Overlap != 100 {
		t.Fatalf("expected default overlap, got %d", cfg.Chunker.Overlap)
	}
	if cfg.LLM.OpenAI.Model != "local-model" || cfg.LLM.OpenAI.BaseURL != "https://api.openai.com/v1" {
		t.Fatalf("unexpected openai llm config: %+v", cfg.LLM.OpenAI)
	}
	if cfg.Progress.Redis.Key != "docsum:progress" || cfg.Progress.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected redis defaults: %+v", cfg.Progress.Redis)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "250")
	t.Setenv("COHERERANK_TOPN", "7")
	t.Setenv("LLM_MODEL", "command-r")
	t.Setenv("CHUNK_OVERLAP", "not-a-number")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chunker.Size != 250 {
		t.Fatalf("expected CHUNK_SIZE override, got %d", cfg.Chunker.Size)
	}
	if cfg.Chunker.Overlap != 100 {
		t.Fatalf("expected invalid override to be ignored, got %d", cfg.Chunker.Overlap)
	}
	if cfg.Retrieval.TopKRerank != 7 {
		t.Fatalf("expected COHERERANK_TOPN override, got %d", cfg.Retrieval.TopKRerank)
	}
	if cfg.Cohere.ChatModel != "command-r" {
		t.Fatalf("expected LLM_MODEL override, got %q", cfg.Cohere.ChatModel)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Output.Dir = "out"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Output.Dir != "out" {
		t.Fatalf("expected output dir to survive save, got %q", loaded.Output.Dir)
	}
}
