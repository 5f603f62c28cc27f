//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/vdoc/internal/api/handlers"
	"github.com/cloo-solutions/vdoc/internal/cli/admin"
	"github.com/cloo-solutions/vdoc/internal/config"
	"github.com/cloo-solutions/vdoc/internal/corpus"
	"github.com/cloo-solutions/vdoc/internal/domain"
	"github.com/cloo-solutions/vdoc/internal/embedding"
	"github.com/cloo-solutions/vdoc/internal/server"
	"github.com/cloo-solutions/vdoc/internal/service"
	"github.com/cloo-solutions/vdoc/internal/storage"
	"github.com/cloo-solutions/vdoc/internal/testutil"
)

const (
	rustfsUser   = "rustfsadmin"
	rustfsSecret = "rustfsadmin"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	S3Client     *storage.S3Client
	ArtifactPath string
	Generator    *FakeGemini
	HTTPClient   *http.Client
}

// SetupE2EEnv starts Postgres and RustFS, writes the medical artifact and a
// fake Gemini endpoint.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     rustfsUser,
		SecretAccessKey: rustfsSecret,
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}

	env := &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		S3Client:     s3Client,
		ArtifactPath: writeArtifact(t),
		Generator:    NewFakeGemini(t),
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
	t.Cleanup(env.Cleanup)
	return env
}

// Cleanup terminates containers.
func (e *E2ETestEnv) Cleanup() {
	if e.PostgresC != nil {
		_ = e.PostgresC.Terminate(e.Ctx)
	}
	if e.RustFSC != nil {
		_ = e.RustFSC.Terminate(e.Ctx)
	}
}

// Config returns a configuration pointing at the test containers.
func (e *E2ETestEnv) Config() *config.Config {
	return &config.Config{
		Port:                "0",
		TopK:                10,
		MaxBodyBytes:        1 << 20,
		GeneratorTimeout:    10 * time.Second,
		CorpusBackend:       config.CorpusBackendFile,
		CorpusPath:          e.ArtifactPath,
		DatabaseURL:         e.PostgresC.ConnectionString(),
		MigrationsPath:      "../../migrations",
		S3Endpoint:          e.RustFSC.Endpoint(),
		S3AccessKey:         rustfsUser,
		S3SecretKey:         rustfsSecret,
		S3Region:            "us-east-1",
		Embedder:            config.EmbedderHash,
		EmbeddingDimensions: embedding.DefaultDimension,
		Generator:           config.GeneratorGemini,
		GeminiAPIKey:        "e2e-key",
		GeminiModel:         "gemini-2.0-flash",
		GeminiBaseURL:       e.Generator.URL(),
		CORSOrigins:         []string{"*"},
	}
}

// StartServer bootstraps the pipeline from cfg and serves it on a free port.
func (e *E2ETestEnv) StartServer(cfg *config.Config) string {
	e.T.Helper()

	app, err := admin.Bootstrap(e.Ctx, cfg)
	if err != nil {
		e.T.Fatalf("bootstrap failed: %v", err)
	}

	router := server.NewRouter(server.RouterConfig{
		RAGHandler:    handlers.NewRAGHandler(app.RAG),
		HealthHandler: handlers.NewHealthHandler(app.Health),
		CORSOrigins:   cfg.CORSOrigins,
		MaxBodyBytes:  cfg.MaxBodyBytes,
	})

	port, err := getFreePort()
	if err != nil {
		e.T.Fatalf("failed to get free port: %v", err)
	}
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: router}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, serverURL, 10*time.Second)

	e.T.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		app.Close()
	})
	return serverURL
}

// Ask posts a query and returns the status code and decoded body.
func (e *E2ETestEnv) Ask(serverURL, query string) (int, map[string]any) {
	e.T.Helper()

	body, _ := json.Marshal(map[string]string{"query": query})
	resp, err := e.HTTPClient.Post(serverURL+"/rag", "application/json", bytes.NewReader(body))
	if err != nil {
		e.T.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read body: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		e.T.Fatalf("response is not JSON: %s", raw)
	}
	return resp.StatusCode, out
}

// FakeGemini answers generateContent calls. It refuses prompts whose question
// mentions nothing medical and can be switched into quota-exceeded mode.
type FakeGemini struct {
	srv        *httptest.Server
	calls      atomic.Int32
	exhausted  atomic.Bool
	lastPrompt atomic.Value
}

func NewFakeGemini(t *testing.T) *FakeGemini {
	f := &FakeGemini{}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *FakeGemini) URL() string { return f.srv.URL }

func (f *FakeGemini) Calls() int { return int(f.calls.Load()) }

func (f *FakeGemini) SetExhausted(v bool) { f.exhausted.Store(v) }

func (f *FakeGemini) LastPrompt() string {
	p, _ := f.lastPrompt.Load().(string)
	return p
}

func (f *FakeGemini) handle(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	w.Header().Set("Content-Type", "application/json")

	if f.exhausted.Load() {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
		return
	}

	var req struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	var prompt string
	if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
		prompt = req.Contents[0].Parts[0].Text
	}
	f.lastPrompt.Store(prompt)

	answer := "- Fever\n- Cough\n- Fatigue"
	if strings.Contains(prompt, "Question: What is the capital of France?") {
		answer = service.RefusalSentence
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": answer}}},
			"finishReason": "STOP",
		}},
	})
}

func writeArtifact(t *testing.T) string {
	t.Helper()
	emb, err := embedding.NewHashEmbedder(embedding.DefaultDimension)
	if err != nil {
		t.Fatalf("embedder: %v", err)
	}

	chunks := testutil.MedicalChunks()
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		if vectors[i], err = emb.Embed(context.Background(), c); err != nil {
			t.Fatalf("embed: %v", err)
		}
	}

	var buf bytes.Buffer
	err = corpus.WriteArtifact(&buf, &corpus.Artifact{
		Version:   corpus.ArtifactVersion,
		ModelInfo: emb.ModelInfo(),
		Dimension: emb.Dimension(),
		Metric:    string(domain.MetricL2),
		Chunks:    chunks,
		Vectors:   vectors,
	})
	if err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	path := filepath.Join(t.TempDir(), "index.gob")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
