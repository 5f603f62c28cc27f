package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloo-solutions/vdoc/internal/api"
	"github.com/cloo-solutions/vdoc/internal/config"
	"github.com/cloo-solutions/vdoc/internal/corpus"
	"github.com/cloo-solutions/vdoc/internal/domain"
	"github.com/cloo-solutions/vdoc/internal/embedding"
	"github.com/cloo-solutions/vdoc/internal/service"
	"github.com/cloo-solutions/vdoc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func writeMedicalArtifact(t *testing.T) string {
	t.Helper()
	emb, err := embedding.NewHashEmbedder(embedding.DefaultDimension)
	require.NoError(t, err)

	chunks := testutil.MedicalChunks()
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		vectors[i], err = emb.Embed(context.Background(), c)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, corpus.WriteArtifact(&buf, &corpus.Artifact{
		ModelInfo: emb.ModelInfo(),
		Dimension: emb.Dimension(),
		Metric:    string(domain.MetricL2),
		Chunks:    chunks,
		Vectors:   vectors,
	}))

	path := filepath.Join(t.TempDir(), "index.gob")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func geminiServer(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": answer}}},
				"finishReason": "STOP",
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, corpusPath, geminiURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Port:                "0",
		TopK:                10,
		GeneratorTimeout:    5 * time.Second,
		CorpusBackend:       config.CorpusBackendFile,
		CorpusPath:          corpusPath,
		Embedder:            config.EmbedderHash,
		EmbeddingDimensions: embedding.DefaultDimension,
		Generator:           config.GeneratorGemini,
		GeminiAPIKey:        "test-key",
		GeminiModel:         "gemini-2.0-flash",
		GeminiBaseURL:       geminiURL,
	}
}

func TestBootstrap_FileCorpus_Ask(t *testing.T) {
	srv := geminiServer(t, "- Fever\n- Cough\n- Fatigue")
	cfg := testConfig(t, writeMedicalArtifact(t), srv.URL)

	app, err := Bootstrap(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, len(testutil.MedicalChunks()), app.Health.Chunks)
	assert.Equal(t, embedding.DefaultDimension, app.Health.Dimension)
	assert.Equal(t, "gemini-2.0-flash", app.Health.Generator)
	assert.Equal(t, config.CorpusBackendFile, app.Health.Backend)

	var out bytes.Buffer
	require.NoError(t, ask(context.Background(), app.RAG, DefaultQuestion, true, &out))

	dec := json.NewDecoder(&out)
	var resp api.RAGResponse
	require.NoError(t, dec.Decode(&resp))
	assert.Equal(t, DefaultQuestion, resp.Query)
	assert.Equal(t, "- Fever\n- Cough\n- Fatigue", resp.Response)
	assert.Len(t, resp.RetrievedChunks, 10)
	assert.Contains(t, resp.RetrievedChunks, testutil.FluChunk)
	assert.Contains(t, out.String(), "received -> embedded -> retrieved")
}

func TestBootstrap_OpenAIGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Rest and fluids."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	cfg := testConfig(t, writeMedicalArtifact(t), "")
	cfg.Generator = config.GeneratorOpenAI
	cfg.OpenAIAPIKey = "sk-test"
	cfg.OpenAIBaseURL = srv.URL
	cfg.OpenAIChatModel = "gpt-4o-mini"

	app, err := Bootstrap(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()

	res := app.RAG.Answer(context.Background(), "How do I treat the flu?")
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, "Rest and fluids.", res.Answer)
	assert.Equal(t, "gpt-4o-mini", app.Health.Generator)
}

func TestBootstrap_DimensionMismatch(t *testing.T) {
	cfg := testConfig(t, writeMedicalArtifact(t), "")
	cfg.EmbeddingDimensions = 128

	app, err := Bootstrap(context.Background(), cfg)

	assert.Nil(t, app)
	require.Error(t, err)
	de := domain.AsDomainError(err)
	assert.Equal(t, domain.ErrCodeConfiguration, de.Code)
	assert.True(t, de.IsFatal())
}

func TestBootstrap_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing generator credential", func(c *config.Config) { c.GeminiAPIKey = "" }},
		{"missing artifact", func(c *config.Config) { c.CorpusPath = filepath.Join(c.CorpusPath, "..", "missing.gob") }},
		{"remote corpus without storage", func(c *config.Config) { c.CorpusPath = "s3://corpora/index.gob" }},
		{"zero top-k", func(c *config.Config) { c.TopK = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, writeMedicalArtifact(t), "")
			tt.mutate(cfg)

			app, err := Bootstrap(context.Background(), cfg)

			assert.Nil(t, app)
			require.Error(t, err)
			assert.Equal(t, domain.ErrCodeConfiguration, domain.AsDomainError(err).Code)
		})
	}
}

type MockAnswerer struct {
	mock.Mock
}

func (m *MockAnswerer) Answer(ctx context.Context, query string) service.Result {
	args := m.Called(ctx, query)
	return args.Get(0).(service.Result)
}

func TestAsk_FailurePrintsErrorEnvelope(t *testing.T) {
	rag := new(MockAnswerer)
	rag.On("Answer", mock.Anything, "flu?").Return(service.Result{
		Query:       "flu?",
		Stage:       service.StageFailed,
		FailedStage: service.StageGenerated,
		Err:         domain.ErrGeneratorUnavailable,
		Trace:       []service.Stage{service.StageReceived, service.StageFailed},
	})

	var out bytes.Buffer
	err := ask(context.Background(), rag, "flu?", false, &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrCodeGeneratorUnavailable)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, domain.ErrCodeGeneratorUnavailable, resp.Code)
	assert.Contains(t, resp.Error, "could not be reached")
	assert.NotContains(t, out.String(), "stages:")
}
