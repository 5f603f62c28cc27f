package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/vdoc/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbedder is a mock implementation of Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func newTestWorker(e Embedder, concurrency int) *EmbeddingWorker {
	w := NewEmbeddingWorker(e, concurrency)
	w.backoff = time.Millisecond
	return w
}

func TestEmbedAll_PreservesRowOrder(t *testing.T) {
	m := new(MockEmbedder)
	m.On("Embed", mock.Anything, "a").Return([]float32{1}, nil)
	m.On("Embed", mock.Anything, "b").Return([]float32{2}, nil)
	m.On("Embed", mock.Anything, "c").Return([]float32{3}, nil)

	vectors, err := newTestWorker(m, 3).EmbedAll(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}, {3}}, vectors)
	m.AssertExpectations(t)
}

func TestEmbedAll_Empty(t *testing.T) {
	vectors, err := newTestWorker(new(MockEmbedder), 2).EmbedAll(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbedAll_RetriesTransientFailure(t *testing.T) {
	m := new(MockEmbedder)
	m.On("Embed", mock.Anything, "flu").Return(nil, domain.Wrap(domain.ErrEmbeddingFailure, errors.New("502"))).Once()
	m.On("Embed", mock.Anything, "flu").Return([]float32{0.5}, nil).Once()

	vectors, err := newTestWorker(m, 1).EmbedAll(context.Background(), []string{"flu"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5}}, vectors)
	m.AssertNumberOfCalls(t, "Embed", 2)
}

func TestEmbedAll_GivesUpAfterMaxRetries(t *testing.T) {
	m := new(MockEmbedder)
	m.On("Embed", mock.Anything, "flu").Return(nil, errors.New("connection reset"))

	_, err := newTestWorker(m, 1).EmbedAll(context.Background(), []string{"flu"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk 0")
	m.AssertNumberOfCalls(t, "Embed", MaxRetries)
}

func TestEmbedAll_PermanentFailureNotRetried(t *testing.T) {
	m := new(MockEmbedder)
	m.On("Embed", mock.Anything, "").Return(nil, domain.ErrEmptyText)

	_, err := newTestWorker(m, 1).EmbedAll(context.Background(), []string{""})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyText)
	m.AssertNumberOfCalls(t, "Embed", 1)
}

type countingEmbedder struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (c *countingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return []float32{1}, nil
}

func TestEmbedAll_BoundsConcurrency(t *testing.T) {
	e := &countingEmbedder{}
	chunks := make([]string, 20)

	vectors, err := newTestWorker(e, 2).EmbedAll(context.Background(), chunks)

	require.NoError(t, err)
	assert.Len(t, vectors, 20)
	assert.LessOrEqual(t, e.peak.Load(), int32(2))
}

func TestNewEmbeddingWorker_DefaultConcurrency(t *testing.T) {
	w := NewEmbeddingWorker(new(MockEmbedder), 0)
	assert.Equal(t, DefaultConcurrency, w.concurrency)
}
