package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/vdoc/internal/domain"
	"github.com/cloo-solutions/vdoc/internal/metrics"
	"github.com/cloo-solutions/vdoc/internal/telemetry"
)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 10

// DefaultGeneratorTimeout bounds a single generator call.
const DefaultGeneratorTimeout = 60 * time.Second

// Embedder maps query text to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// VectorIndex returns the k nearest rows to a vector.
type VectorIndex interface {
	Search(ctx context.Context, vec []float32, k int) ([]domain.SearchHit, error)
	Dimension() int
	Len() int
}

// CorpusStore resolves row ids to chunk texts in the order given.
type CorpusStore interface {
	Lookup(ctx context.Context, ids []int) ([]string, error)
	Len() int
}

// Generator produces an answer from a prompt. One call, no retries.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Stage is a step of a single pipeline run.
type Stage string

const (
	StageReceived         Stage = "received"
	StageEmbedded         Stage = "embedded"
	StageRetrieved        Stage = "retrieved"
	StageContextAssembled Stage = "context_assembled"
	StagePromptBuilt      Stage = "prompt_built"
	StageGenerated        Stage = "generated"
	StageCompleted        Stage = "completed"
	StageFailed           Stage = "failed"
)

// Result is the outcome of one run: either a completed answer or a failure,
// never both. Err is nil exactly when Stage is StageCompleted.
type Result struct {
	Query           string
	Answer          string
	RetrievedChunks []string
	Hits            []domain.SearchHit

	Stage       Stage
	FailedStage Stage
	Err         *domain.DomainError

	// Trace lists the stages reached, in order.
	Trace []Stage
}

// OK reports whether the run completed.
func (r *Result) OK() bool {
	return r.Stage == StageCompleted && r.Err == nil
}

// RAGConfig holds pipeline tuning.
type RAGConfig struct {
	TopK             int
	MaxQueryChars    int
	GeneratorTimeout time.Duration
}

// RAGService runs the retrieval-augmented generation pipeline. The embedder,
// index and store are shared read-only across concurrent calls.
type RAGService struct {
	cfg       RAGConfig
	embedder  Embedder
	index     VectorIndex
	store     CorpusStore
	generator Generator
}

// NewRAGService checks that the collaborators belong together and returns a
// ready pipeline. A dimension or row-count mismatch is a configuration error.
func NewRAGService(cfg RAGConfig, embedder Embedder, index VectorIndex, store CorpusStore, generator Generator) (*RAGService, error) {
	if embedder == nil || index == nil || store == nil || generator == nil {
		return nil, domain.NewDomainError(domain.ErrCodeConfiguration, "rag pipeline is missing a component")
	}
	if cfg.TopK == 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.TopK < 0 {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "invalid top-k", fmt.Errorf("top-k %d", cfg.TopK))
	}
	if cfg.GeneratorTimeout <= 0 {
		cfg.GeneratorTimeout = DefaultGeneratorTimeout
	}
	if embedder.Dimension() != index.Dimension() {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "embedder and index dimensions differ",
			fmt.Errorf("embedder %d, index %d", embedder.Dimension(), index.Dimension()))
	}
	if index.Len() != store.Len() {
		return nil, domain.Wrap(domain.ErrCorpusMisaligned, fmt.Errorf("index has %d rows, store has %d", index.Len(), store.Len()))
	}
	if index.Len() == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	return &RAGService{
		cfg:       cfg,
		embedder:  embedder,
		index:     index,
		store:     store,
		generator: generator,
	}, nil
}

// TopK returns the configured retrieval depth.
func (s *RAGService) TopK() int {
	return s.cfg.TopK
}

// Answer runs one query through the pipeline. Every failure, including a
// panic in a collaborator, is returned as a failed Result.
func (s *RAGService) Answer(ctx context.Context, query string) (res Result) {
	ctx, span := telemetry.StartSpan(ctx, "rag.answer", telemetry.SpanAttributes{TopK: s.cfg.TopK, Operation: "answer"})
	defer span.End()

	res = Result{Query: query, Stage: StageReceived, Trace: []Stage{StageReceived}}
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res.fail(domain.Wrap(domain.ErrInternal, fmt.Errorf("panic: %v", r)))
		}
		if res.OK() {
			metrics.ObserveRequest(metrics.OutcomeCompleted, "")
			return
		}
		metrics.ObserveRequest(metrics.OutcomeFailed, res.Err.Code)
		log.Printf("rag: failed at %s after %s: %s", res.FailedStage, time.Since(started).Round(time.Millisecond), res.Err.Error())
		span.SetStatus(telemetry.SpanStatusFor(res.Err))
		telemetry.CaptureError(ctx, res.Err)
	}()

	if err := s.validate(query); err != nil {
		res.FailedStage = StageReceived
		res.fail(err)
		return res
	}

	var vec []float32
	err := s.step(ctx, &res, StageEmbedded, func(ctx context.Context) error {
		var err error
		vec, err = s.embedder.Embed(ctx, query)
		if err != nil {
			return asStageError(err, domain.ErrEmbeddingFailure)
		}
		if len(vec) != s.index.Dimension() {
			return domain.Wrap(domain.ErrDimensionMismatch, fmt.Errorf("got %d, index has %d", len(vec), s.index.Dimension()))
		}
		return nil
	})
	if err != nil {
		return res
	}

	err = s.step(ctx, &res, StageRetrieved, func(ctx context.Context) error {
		hits, err := s.index.Search(ctx, vec, s.cfg.TopK)
		if err != nil {
			return asStageError(err, domain.ErrIndexUnavailable)
		}
		// Stores that can fail transiently (pgvector) report ErrIndexUnavailable
		// themselves; anything else is a broken chunk table.
		texts, err := s.store.Lookup(ctx, domain.HitIDs(hits))
		if err != nil {
			return asStageError(err, domain.ErrLookupFailure)
		}
		res.Hits = hits
		res.RetrievedChunks = texts
		return nil
	})
	if err != nil {
		return res
	}

	var contextText string
	_ = s.step(ctx, &res, StageContextAssembled, func(context.Context) error {
		contextText = BuildContext(res.RetrievedChunks)
		return nil
	})

	var prompt string
	_ = s.step(ctx, &res, StagePromptBuilt, func(context.Context) error {
		prompt = promptFromContext(query, contextText)
		return nil
	})

	var answer string
	err = s.step(ctx, &res, StageGenerated, func(ctx context.Context) error {
		genCtx, cancel := context.WithTimeout(ctx, s.cfg.GeneratorTimeout)
		defer cancel()

		var err error
		answer, err = s.generator.Generate(genCtx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return domain.Wrap(domain.ErrCanceled, err)
			}
			return domain.ClassifyGeneratorError(0, err)
		}
		if strings.TrimSpace(answer) == "" {
			return domain.Wrap(domain.ErrGeneratorMalformed, errors.New("empty answer"))
		}
		return nil
	})
	if err != nil {
		return res
	}

	res.Answer = answer
	res.Stage = StageCompleted
	res.Trace = append(res.Trace, StageCompleted)
	return res
}

func (s *RAGService) validate(query string) *domain.DomainError {
	if strings.TrimSpace(query) == "" {
		return domain.ErrEmptyQuery
	}
	if s.cfg.MaxQueryChars > 0 && utf8.RuneCountInString(query) > s.cfg.MaxQueryChars {
		return domain.Wrap(domain.ErrQueryTooLong, fmt.Errorf("%d characters, limit %d", utf8.RuneCountInString(query), s.cfg.MaxQueryChars))
	}
	return nil
}

// step runs fn as the transition into stage, recording its span and duration.
// On error the result is moved to StageFailed.
func (s *RAGService) step(ctx context.Context, res *Result, stage Stage, fn func(context.Context) error) *domain.DomainError {
	ctx, span := telemetry.StartSpan(ctx, "rag."+string(stage), telemetry.SpanAttributes{Stage: string(stage)})
	defer span.End()

	telemetry.AddBreadcrumb(ctx, "rag", "entering "+string(stage))

	start := time.Now()
	err := fn(ctx)
	metrics.ObserveStage(string(stage), time.Since(start))

	if err != nil {
		de := domain.AsDomainError(err)
		res.FailedStage = stage
		res.fail(de)
		return de
	}
	res.Stage = stage
	res.Trace = append(res.Trace, stage)
	return nil
}

func (r *Result) fail(err *domain.DomainError) {
	if r.FailedStage == "" {
		r.FailedStage = r.nextStage()
	}
	r.Stage = StageFailed
	r.Err = err
	r.Answer = ""
	r.Trace = append(r.Trace, StageFailed)
}

// nextStage is the stage a run was attempting when it failed.
func (r *Result) nextStage() Stage {
	order := []Stage{StageReceived, StageEmbedded, StageRetrieved, StageContextAssembled, StagePromptBuilt, StageGenerated, StageCompleted}
	for i, st := range order {
		if st == r.Stage && i+1 < len(order) {
			return order[i+1]
		}
	}
	return r.Stage
}

// asStageError keeps domain errors and cancellation as they are and files
// anything else under fallback.
func asStageError(err error, fallback *domain.DomainError) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return de
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.Wrap(domain.ErrCanceled, err)
	}
	return domain.Wrap(fallback, err)
}
