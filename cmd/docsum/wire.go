package main

import (
	"fmt"
	"time"

	"docsum/internal/batch"
	"docsum/internal/chunker"
	"docsum/internal/cohere"
	"docsum/internal/config"
	"docsum/internal/domain"
	"docsum/internal/embedding/openai"
	"docsum/internal/embedding/tfidf"
	"docsum/internal/extract"
	"docsum/internal/extract/ocr"
	"docsum/internal/llm/extractive"
	openaillm "docsum/internal/llm/openai"
	"docsum/internal/logger"
	"docsum/internal/metrics"
	"docsum/internal/output"
	"docsum/internal/progress"
	"docsum/internal/rerank"
	"docsum/internal/retriever"
	"docsum/internal/service"
	"docsum/internal/summarizer"
	"docsum/internal/vectorstore"
	"docsum/internal/vectorstore/memory"
	"docsum/internal/vectorstore/qdrant"
	"docsum/internal/workerpool"
)

// app holds the process-wide components of one command run.
type app struct {
	cfg      *config.AppConfig
	log      logger.Logger
	metrics  *metrics.Metrics
	docPool  *workerpool.Pool
	secPool  *workerpool.Pool
	service  *service.SummaryService
	progress *progress.RedisChannel
}

// Close releases the pools and the progress channel. Document tasks wait on
// section tasks, so the document pool is closed first.
func (a *app) Close() {
	a.docPool.Close()
	a.secPool.Close()
	if a.progress != nil {
		if err := a.progress.Close(); err != nil {
			a.log.Warn("close progress channel", logger.Error(err))
		}
	}
	_ = a.log.Sync()
}

func newLogger(cfg *config.AppConfig, fileOnly bool) (logger.Logger, error) {
	opts := []logger.Option{logger.FromConfig(cfg.Log)}
	if fileOnly {
		// the terminal belongs to the TUI
		var files []string
		for _, p := range cfg.Log.OutputPaths {
			if p != "stdout" && p != "stderr" {
				files = append(files, p)
			}
		}
		if len(files) == 0 {
			files = []string{"docsum.log"}
		}
		opts = append(opts, logger.WithOutputPaths(files))
	}
	return logger.New(opts...)
}

func buildApp(cfg *config.AppConfig, log logger.Logger, outDir string) (*app, error) {
	var co *cohere.Client
	cohereClient := func() (*cohere.Client, error) {
		if co != nil {
			return co, nil
		}
		var err error
		co, err = cohere.NewClient(cohere.Config{
			BaseURL:        cfg.Cohere.BaseURL,
			APIKeyEnv:      cfg.Cohere.APIKeyEnv,
			EmbeddingModel: cfg.Cohere.EmbeddingModel,
			RerankModel:    cfg.Cohere.RerankModel,
			ChatModel:      cfg.Cohere.ChatModel,
			Timeout:        time.Duration(cfg.Cohere.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("cohere client init failed: %w", err)
		}
		return co, nil
	}

	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			BatchSize: cfg.Embedder.OpenAI.BatchSize,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	case "cohere":
		client, err := cohereClient()
		if err != nil {
			return nil, err
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "window", "":
		ch = chunker.NewWindowChunker(cfg.Chunker.Size, cfg.Chunker.Overlap)
	case "sentence":
		ch = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}

	var st vectorstore.Storage
	switch cfg.VectorStore.Type {
	case "memory", "":
		st = memory.NewStorage()
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		st = qdrant.NewStorage(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	var rr domain.Reranker
	switch cfg.Reranker.Type {
	case "lexical", "":
		rr = rerank.NewLexical()
	case "cohere":
		client, err := cohereClient()
		if err != nil {
			return nil, err
		}
		rr = client
	case "none":
	default:
		return nil, fmt.Errorf("unknown reranker: %s", cfg.Reranker.Type)
	}

	var lm domain.LanguageModel
	switch cfg.LLM.Type {
	case "extractive", "":
		lm = extractive.New(cfg.LLM.ExtractSentences)
	case "openai":
		if cfg.LLM.OpenAI == nil {
			return nil, fmt.Errorf("openai llm config missing")
		}
		client, err := openaillm.NewClient(openaillm.Config{
			BaseURL:     cfg.LLM.OpenAI.BaseURL,
			APIKeyEnv:   cfg.LLM.OpenAI.APIKeyEnv,
			Model:       cfg.LLM.OpenAI.Model,
			Temperature: cfg.LLM.OpenAI.Temperature,
			MaxTokens:   cfg.LLM.OpenAI.MaxTokens,
			Timeout:     time.Duration(cfg.LLM.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai llm init failed: %w", err)
		}
		lm = client
	case "cohere":
		client, err := cohereClient()
		if err != nil {
			return nil, err
		}
		lm = client
	default:
		return nil, fmt.Errorf("unknown llm: %s", cfg.LLM.Type)
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}
	if cfg.Progress.Type == "redis" {
		if cfg.Progress.Redis == nil {
			return nil, fmt.Errorf("redis progress config missing")
		}
		a.progress = newRedisChannel(cfg, log)
	}

	extractor := extract.NewExtractor([]extract.Processor{
		extract.TextProcessor{},
		extract.NewPDFProcessor(0),
		ocr.NewProcessor(cfg.Extraction.OCRLanguages),
	}, extract.NewLinguaDetector(), cfg.Extraction.Workers, log.Named("extract"))

	r := retriever.New(ch, emb, st, rr, retriever.Options{
		TopKDense:   cfg.Retrieval.TopKDense,
		TopKRerank:  cfg.Retrieval.TopKRerank,
		CallTimeout: cfg.CallTimeout(),
		Logger:      log.Named("retriever"),
	})

	a.docPool = workerpool.New("documents", cfg.Summarizer.DocumentWorkers, log)
	a.secPool = workerpool.New("sections", cfg.Summarizer.SectionWorkers, log)
	sum := summarizer.New(summarizer.NewGenerator(r, lm, cfg.CallTimeout()), a.secPool, summarizer.Options{
		Metrics: a.metrics,
		Logger:  log.Named("summarizer"),
	})
	orch := batch.NewOrchestrator(sum, a.docPool, a.metrics, log.Named("batch"))

	a.service = service.NewSummaryService(extractor, r, orch, log.Named("service"))
	if outDir != "" {
		a.service.WithExport(output.NewManager(outDir, log.Named("output")), cfg.Output.Formats)
	}
	log.Info("pipeline ready",
		logger.String("embedder", emb.Name()),
		logger.String("llm", cfg.LLM.Type),
		logger.String("vector_store", cfg.VectorStore.Type),
		logger.Int("document_workers", a.docPool.Size()),
		logger.Int("section_workers", a.secPool.Size()))
	return a, nil
}

func newRedisChannel(cfg *config.AppConfig, log logger.Logger) *progress.RedisChannel {
	rc := cfg.Progress.Redis
	return progress.NewRedisChannel(progress.RedisOptions{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
		Key:      rc.Key,
	}, log.Named("progress"))
}

// publisher returns where events go: local plus the shared Redis list when
// one is configured.
func (a *app) publisher(local domain.Publisher) domain.Publisher {
	if a.progress == nil {
		return local
	}
	return progress.Fanout{local, a.progress}
}
