package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/vdoc/internal/api/handlers"
	"github.com/cloo-solutions/vdoc/internal/config"
	"github.com/cloo-solutions/vdoc/internal/corpus"
	"github.com/cloo-solutions/vdoc/internal/database"
	"github.com/cloo-solutions/vdoc/internal/domain"
	"github.com/cloo-solutions/vdoc/internal/embedding"
	"github.com/cloo-solutions/vdoc/internal/gemini"
	"github.com/cloo-solutions/vdoc/internal/metrics"
	"github.com/cloo-solutions/vdoc/internal/openai"
	"github.com/cloo-solutions/vdoc/internal/repository"
	"github.com/cloo-solutions/vdoc/internal/service"
	"github.com/cloo-solutions/vdoc/internal/storage"
)

// App is the fully wired pipeline shared by serve, ask and check.
type App struct {
	RAG    *service.RAGService
	Health handlers.HealthInfo

	closers []func()
}

// Close releases the database pool, if any.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type embedder interface {
	service.Embedder
	ModelInfo() string
}

// Bootstrap validates cfg and builds the embedder, corpus and generator. Any
// mismatch between them is returned as a CONFIGURATION_ERROR before the first
// request is served.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	emb, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	index, store, corpusModel, err := app.openCorpus(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if corpusModel != "" && corpusModel != emb.ModelInfo() {
		log.Printf("warning: corpus was embedded with %q, query embedder is %q", corpusModel, emb.ModelInfo())
	}

	gen, genModel, err := newGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rag, err := service.NewRAGService(service.RAGConfig{
		TopK:             cfg.TopK,
		MaxQueryChars:    cfg.MaxQueryChars,
		GeneratorTimeout: cfg.GeneratorTimeout,
	}, emb, index, store, gen)
	if err != nil {
		return nil, err
	}

	metrics.SetCorpusChunks(index.Len())
	log.Printf("corpus ready: backend=%s chunks=%d dimension=%d embedder=%s generator=%s",
		cfg.CorpusBackend, index.Len(), index.Dimension(), emb.ModelInfo(), genModel)

	app.RAG = rag
	app.Health = handlers.HealthInfo{
		Status:    "ok",
		Backend:   cfg.CorpusBackend,
		Chunks:    index.Len(),
		Dimension: index.Dimension(),
		Embedder:  emb.ModelInfo(),
		Generator: genModel,
	}
	ok = true
	return app, nil
}

func newEmbedder(cfg *config.Config) (embedder, error) {
	switch cfg.Embedder {
	case config.EmbedderOpenAI:
		return openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.OpenAIBaseURL,
			EmbeddingModel:      cfg.OpenAIEmbeddingModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		}), nil
	default:
		return embedding.NewHashEmbedder(cfg.EmbeddingDimensions)
	}
}

func (a *App) openCorpus(ctx context.Context, cfg *config.Config) (service.VectorIndex, service.CorpusStore, string, error) {
	if cfg.CorpusBackend == config.CorpusBackendPgvector {
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, nil, "", domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "failed to connect to database", err)
		}
		a.closers = append(a.closers, pool.Close)

		repo, err := repository.OpenChunkRepository(ctx, pool)
		if err != nil {
			return nil, nil, "", err
		}
		return repo, repo, repo.Meta().ModelInfo, nil
	}

	fetcher, err := newFetcher(ctx, cfg)
	if err != nil {
		return nil, nil, "", err
	}
	c, err := corpus.Load(ctx, cfg.CorpusPath, fetcher)
	if err != nil {
		return nil, nil, "", err
	}
	return c.Index, c.Store, c.ModelInfo, nil
}

// newFetcher returns nil when no object storage is configured; local paths
// never need one.
func newFetcher(ctx context.Context, cfg *config.Config) (corpus.Fetcher, error) {
	s3Client, err := newS3Client(ctx, cfg)
	if err != nil || s3Client == nil {
		return nil, err
	}
	return s3Client, nil
}

func newS3Client(ctx context.Context, cfg *config.Config) (*storage.S3Client, error) {
	if !cfg.HasS3() {
		return nil, nil
	}
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		UsePathStyle:    cfg.S3Endpoint != "",
	})
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "failed to create S3 client", err)
	}
	return client, nil
}

func newGenerator(ctx context.Context, cfg *config.Config) (service.Generator, string, error) {
	switch cfg.Generator {
	case config.GeneratorOpenAI:
		gen, err := openai.NewChatGenerator(openai.Config{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			ChatModel: cfg.OpenAIChatModel,
		})
		if err != nil {
			return nil, "", err
		}
		return gen, gen.Model(), nil
	case config.GeneratorGemini:
		gen, err := gemini.New(ctx, gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
			Timeout: cfg.GeneratorTimeout,
		})
		if err != nil {
			return nil, "", err
		}
		return gen, gen.Model(), nil
	default:
		return nil, "", domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "unknown generator", fmt.Errorf("%q", cfg.Generator))
	}
}
