package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/vdoc/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Corpus backends
const (
	CorpusBackendFile     = "file"
	CorpusBackendPgvector = "pgvector"
)

// Embedder backends
const (
	EmbedderHash   = "hash"
	EmbedderOpenAI = "openai"
)

// Generator backends
const (
	GeneratorGemini = "gemini"
	GeneratorOpenAI = "openai"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	TopK             int           `envconfig:"TOP_K" default:"10"`
	MaxQueryChars    int           `envconfig:"MAX_QUERY_CHARS" default:"0"`
	MaxBodyBytes     int64         `envconfig:"MAX_BODY_BYTES" default:"1048576"`
	GeneratorTimeout time.Duration `envconfig:"GENERATOR_TIMEOUT" default:"60s"`

	CorpusBackend  string `envconfig:"CORPUS_BACKEND" default:"file"`
	CorpusPath     string `envconfig:"CORPUS_PATH" default:"corpus/index.gob"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"migrations"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	Embedder             string `envconfig:"EMBEDDER" default:"hash"`
	EmbeddingDimensions  int    `envconfig:"EMBEDDING_DIMENSIONS" default:"384"`
	OpenAIEmbeddingModel string `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`

	Generator       string `envconfig:"GENERATOR" default:"gemini"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	GeminiModel     string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	GeminiBaseURL   string `envconfig:"GEMINI_BASE_URL"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `envconfig:"OPENAI_BASE_URL"`
	OpenAIChatModel string `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-4o-mini"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("VDOC", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

// Validate checks everything that would otherwise fail on the first request.
func (c *Config) Validate() error {
	var problems []string

	if c.TopK <= 0 {
		problems = append(problems, fmt.Sprintf("TOP_K must be positive, got %d", c.TopK))
	}
	if c.MaxQueryChars < 0 {
		problems = append(problems, "MAX_QUERY_CHARS must not be negative")
	}
	if c.GeneratorTimeout <= 0 {
		problems = append(problems, "GENERATOR_TIMEOUT must be positive")
	}
	if c.EmbeddingDimensions <= 0 {
		problems = append(problems, "EMBEDDING_DIMENSIONS must be positive")
	}

	switch c.CorpusBackend {
	case CorpusBackendFile:
		if c.CorpusPath == "" {
			problems = append(problems, "CORPUS_PATH is required for the file backend")
		}
		if c.IsRemoteCorpus() && !c.HasS3() {
			problems = append(problems, "S3 credentials are required for an s3:// CORPUS_PATH")
		}
	case CorpusBackendPgvector:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for the pgvector backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown CORPUS_BACKEND %q", c.CorpusBackend))
	}

	switch c.Embedder {
	case EmbedderHash:
	case EmbedderOpenAI:
		if !c.HasOpenAI() {
			problems = append(problems, "OPENAI_API_KEY is required for the openai embedder")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown EMBEDDER %q", c.Embedder))
	}

	switch c.Generator {
	case GeneratorGemini:
		if c.GeminiAPIKey == "" {
			problems = append(problems, "GEMINI_API_KEY is required for the gemini generator")
		}
	case GeneratorOpenAI:
		if !c.HasOpenAI() {
			problems = append(problems, "OPENAI_API_KEY is required for the openai generator")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown GENERATOR %q", c.Generator))
	}

	if len(problems) > 0 {
		return domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "invalid configuration",
			fmt.Errorf("%s", strings.Join(problems, "; ")))
	}
	return nil
}

// IsRemoteCorpus reports whether the corpus artifact lives in object storage.
func (c *Config) IsRemoteCorpus() bool {
	return strings.HasPrefix(c.CorpusPath, "s3://")
}

func (c *Config) HasS3() bool {
	return c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
