package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"docsum/internal/logger"
)

// OpenAIConfig holds configuration for OpenAI-compatible HTTP backends.
type OpenAIConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	BatchSize   int     `yaml:"batch_size"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// CohereConfig holds configuration for the Cohere v2 API.
type CohereConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	EmbeddingModel string `yaml:"embedding_model"`
	RerankModel    string `yaml:"rerank_model"`
	ChatModel      string `yaml:"chat_model"`
	TimeoutSecs    int    `yaml:"timeout_secs"`
}

// ExtractionConfig configures the extraction collaborator.
type ExtractionConfig struct {
	Workers      int      `yaml:"workers"`
	OCRLanguages []string `yaml:"ocr_languages"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string        `yaml:"type"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	Size              int    `yaml:"size"`
	Overlap           int    `yaml:"overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RerankerConfig selects the precision reranking pass.
type RerankerConfig struct {
	Type string `yaml:"type"`
}

// RetrievalConfig caps the two retrieval stages.
type RetrievalConfig struct {
	TopKDense  int `yaml:"top_k_dense"`
	TopKRerank int `yaml:"top_k_rerank"`
}

// LLMConfig selects the language model.
type LLMConfig struct {
	Type             string        `yaml:"type"`
	OpenAI           *OpenAIConfig `yaml:"openai,omitempty"`
	ExtractSentences int           `yaml:"extract_sentences"`
}

// SummarizerConfig sizes the worker pools and the per-call timeout.
type SummarizerConfig struct {
	DocumentWorkers int `yaml:"document_workers"`
	SectionWorkers  int `yaml:"section_workers"`
	CallTimeoutSecs int `yaml:"call_timeout_secs"`
}

// ProgressConfig selects the progress channel backend.
type ProgressConfig struct {
	Type  string       `yaml:"type"`
	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig contains connection details for the Redis progress channel.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// OutputConfig configures summary export.
type OutputConfig struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Extraction  ExtractionConfig  `yaml:"extraction"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Reranker    RerankerConfig    `yaml:"reranker"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	LLM         LLMConfig         `yaml:"llm"`
	Cohere      CohereConfig      `yaml:"cohere"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Progress    ProgressConfig    `yaml:"progress"`
	Output      OutputConfig      `yaml:"output"`
	Log         logger.Config     `yaml:"log"`
}

// CallTimeout is the deadline applied to every external call.
func (c *AppConfig) CallTimeout() time.Duration {
	return time.Duration(c.Summarizer.CallTimeoutSecs) * time.Second
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docsum/config.yaml.
// If neither exists, it writes defaults to ~/.config/docsum/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docsum", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Chunker:     ChunkerConfig{Type: "window"},
		Embedder:    EmbedderConfig{Type: "tfidf"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Reranker:    RerankerConfig{Type: "lexical"},
		LLM:         LLMConfig{Type: "extractive"},
		Progress:    ProgressConfig{Type: "memory"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Extraction.Workers <= 0 {
		cfg.Extraction.Workers = runtime.NumCPU()
	}
	if len(cfg.Extraction.OCRLanguages) == 0 {
		cfg.Extraction.OCRLanguages = []string{"eng", "fra", "hin", "spa", "chi_sim"}
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = 1000
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = 100
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Retrieval.TopKDense == 0 {
		cfg.Retrieval.TopKDense = 100
	}
	if cfg.Retrieval.TopKRerank == 0 {
		cfg.Retrieval.TopKRerank = 100
	}
	if cfg.LLM.ExtractSentences == 0 {
		cfg.LLM.ExtractSentences = 5
	}
	if cfg.Summarizer.DocumentWorkers <= 0 {
		cfg.Summarizer.DocumentWorkers = runtime.NumCPU() * 2
	}
	if cfg.Summarizer.SectionWorkers <= 0 {
		cfg.Summarizer.SectionWorkers = runtime.NumCPU() * 4
	}
	if cfg.Summarizer.CallTimeoutSecs == 0 {
		cfg.Summarizer.CallTimeoutSecs = 120
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "summaries"
	}
	if len(cfg.Output.Formats) == 0 {
		cfg.Output.Formats = []string{"markdown"}
	}

	co := &cfg.Cohere
	if co.BaseURL == "" {
		co.BaseURL = "https://api.cohere.com"
	}
	if co.APIKeyEnv == "" {
		co.APIKeyEnv = "COHERE_API_KEY"
	}
	if co.EmbeddingModel == "" {
		co.EmbeddingModel = "embed-v4.0"
	}
	if co.RerankModel == "" {
		co.RerankModel = "rerank-v3.5"
	}
	if co.ChatModel == "" {
		co.ChatModel = "command-a-03-2025"
	}
	if co.TimeoutSecs == 0 {
		co.TimeoutSecs = 60
	}

	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		applyOpenAIDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small")
	}
	if cfg.LLM.Type == "openai" && cfg.LLM.OpenAI != nil {
		applyOpenAIDefaults(cfg.LLM.OpenAI, "gpt-4o-mini")
	}
	if cfg.Progress.Type == "redis" && cfg.Progress.Redis != nil {
		if cfg.Progress.Redis.Addr == "" {
			cfg.Progress.Redis.Addr = "localhost:6379"
		}
		if cfg.Progress.Redis.Key == "" {
			cfg.Progress.Redis.Key = "docsum:progress"
		}
	}
}

func applyOpenAIDefaults(o *OpenAIConfig, model string) {
	if o.BaseURL == "" {
		o.BaseURL = "https://api.openai.com/v1"
	}
	if o.APIKeyEnv == "" {
		o.APIKeyEnv = "OPENAI_API_KEY"
	}
	if o.Model == "" {
		o.Model = model
	}
	if o.TimeoutSecs == 0 {
		o.TimeoutSecs = 30
	}
	if o.BatchSize == 0 {
		o.BatchSize = 32
	}
}

// applyEnvOverrides lets the usual deployment knobs be set without a config
// file. Unparseable numbers are ignored.
func applyEnvOverrides(cfg *AppConfig) {
	envInt := func(name string, dst *int) {
		if v, err := strconv.Atoi(os.Getenv(name)); err == nil && v > 0 {
			*dst = v
		}
	}
	envStr := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	envInt("CHUNK_SIZE", &cfg.Chunker.Size)
	envInt("CHUNK_OVERLAP", &cfg.Chunker.Overlap)
	envInt("VECTORSTORE_TOPK", &cfg.Retrieval.TopKDense)
	envInt("COHERERANK_TOPN", &cfg.Retrieval.TopKRerank)
	envStr("EMBEDDING_MODEL", &cfg.Cohere.EmbeddingModel)
	envStr("COHERERANK_MODEL", &cfg.Cohere.RerankModel)
	envStr("LLM_MODEL", &cfg.Cohere.ChatModel)
	envStr("SUMMARIES_OUTPUT_DIR", &cfg.Output.Dir)
}
