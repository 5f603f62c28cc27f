package config

import (
	"testing"
	"time"

	"github.com/cloo-solutions/vdoc/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                "8080",
		TopK:                10,
		GeneratorTimeout:    60 * time.Second,
		CorpusBackend:       CorpusBackendFile,
		CorpusPath:          "corpus/index.gob",
		Embedder:            EmbedderHash,
		EmbeddingDimensions: 384,
		Generator:           GeneratorGemini,
		GeminiAPIKey:        "gm-test",
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("VDOC_PORT", "9090")
	t.Setenv("VDOC_DEBUG", "true")
	t.Setenv("VDOC_TOP_K", "5")
	t.Setenv("VDOC_CORPUS_BACKEND", "pgvector")
	t.Setenv("VDOC_DATABASE_URL", "postgres://localhost:5432/vdoc")
	t.Setenv("VDOC_GENERATOR", "openai")
	t.Setenv("VDOC_OPENAI_API_KEY", "sk-test")
	t.Setenv("VDOC_GENERATOR_TIMEOUT", "15s")
	t.Setenv("VDOC_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, CorpusBackendPgvector, cfg.CorpusBackend)
	assert.Equal(t, "postgres://localhost:5432/vdoc", cfg.DatabaseURL)
	assert.Equal(t, GeneratorOpenAI, cfg.Generator)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, 15*time.Second, cfg.GeneratorTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VDOC_GEMINI_API_KEY", "gm-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.TopK)
	assert.Equal(t, 0, cfg.MaxQueryChars)
	assert.Equal(t, CorpusBackendFile, cfg.CorpusBackend)
	assert.Equal(t, "corpus/index.gob", cfg.CorpusPath)
	assert.Equal(t, EmbedderHash, cfg.Embedder)
	assert.Equal(t, 384, cfg.EmbeddingDimensions)
	assert.Equal(t, GeneratorGemini, cfg.Generator)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, 60*time.Second, cfg.GeneratorTimeout)
	assert.Equal(t, "us-east-1", cfg.S3Region)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("VDOC_GENERATOR_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "GENERATOR_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero top-k", func(c *Config) { c.TopK = 0 }, "TOP_K"},
		{"negative query limit", func(c *Config) { c.MaxQueryChars = -1 }, "MAX_QUERY_CHARS"},
		{"no timeout", func(c *Config) { c.GeneratorTimeout = 0 }, "GENERATOR_TIMEOUT"},
		{"unknown backend", func(c *Config) { c.CorpusBackend = "faiss" }, "CORPUS_BACKEND"},
		{"pgvector without database", func(c *Config) { c.CorpusBackend = CorpusBackendPgvector }, "DATABASE_URL"},
		{"s3 corpus without credentials", func(c *Config) { c.CorpusPath = "s3://corpora/index.gob" }, "S3"},
		{"s3 corpus with credentials", func(c *Config) {
			c.CorpusPath = "s3://corpora/index.gob"
			c.S3AccessKey = "key"
			c.S3SecretKey = "secret"
		}, ""},
		{"openai embedder without key", func(c *Config) { c.Embedder = EmbedderOpenAI }, "OPENAI_API_KEY"},
		{"unknown embedder", func(c *Config) { c.Embedder = "bert" }, "EMBEDDER"},
		{"gemini without key", func(c *Config) { c.GeminiAPIKey = "" }, "GEMINI_API_KEY"},
		{"openai generator with key", func(c *Config) {
			c.Generator = GeneratorOpenAI
			c.OpenAIAPIKey = "sk-test"
		}, ""},
		{"unknown generator", func(c *Config) { c.Generator = "llama" }, "GENERATOR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			de := domain.AsDomainError(err)
			assert.Equal(t, domain.ErrCodeConfiguration, de.Code)
			assert.True(t, de.IsFatal())
		})
	}
}

func TestIsRemoteCorpus(t *testing.T) {
	cfg := &Config{CorpusPath: "s3://corpora/index.gob"}
	assert.True(t, cfg.IsRemoteCorpus())

	cfg.CorpusPath = "file:///srv/index.gob"
	assert.False(t, cfg.IsRemoteCorpus())
}

func TestHasS3(t *testing.T) {
	cfg := &Config{
		S3Endpoint:  "http://localhost:9000",
		S3AccessKey: "key",
		S3SecretKey: "secret",
	}
	assert.True(t, cfg.HasS3())

	cfg.S3SecretKey = ""
	assert.False(t, cfg.HasS3())
}

func TestHasOpenAI(t *testing.T) {
	cfg := &Config{OpenAIAPIKey: "sk-test"}
	assert.True(t, cfg.HasOpenAI())

	cfg.OpenAIAPIKey = ""
	assert.False(t, cfg.HasOpenAI())
}
