package corpus

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/cloo-solutions/vdoc/internal/domain"
)

// cancelCheckInterval is how many rows are scanned between context checks.
const cancelCheckInterval = 4096

// Index is an exact nearest-neighbour index over row-aligned vectors. It is
// read-only after construction and safe for concurrent use.
type Index struct {
	dim    int
	metric domain.Metric
	n      int
	data   []float32 // row-major, n*dim
}

// NewIndex copies vectors into a flat buffer. Cosine indexes store
// unit-length rows so a search is a single dot product per row.
func NewIndex(vectors [][]float32, dim int, metric domain.Metric) (*Index, error) {
	if dim <= 0 {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "invalid index dimension", fmt.Errorf("dimension %d", dim))
	}
	data := make([]float32, 0, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, domain.Wrap(domain.ErrCorpusMisaligned, fmt.Errorf("row %d has dimension %d, expected %d", i, len(v), dim))
		}
		start := len(data)
		data = append(data, v...)
		if metric == domain.MetricCosine {
			normalize(data[start:])
		}
	}
	return &Index{dim: dim, metric: metric, n: len(vectors), data: data}, nil
}

// Search returns the k rows nearest to vec, ascending by distance with ties
// broken by lower row id. k larger than the index returns every row.
func (x *Index) Search(ctx context.Context, vec []float32, k int) ([]domain.SearchHit, error) {
	if k <= 0 {
		return nil, domain.ErrInvalidTopK
	}
	if len(vec) != x.dim {
		return nil, domain.Wrap(domain.ErrDimensionMismatch, fmt.Errorf("got %d, index has %d", len(vec), x.dim))
	}
	if k > x.n {
		k = x.n
	}

	query := vec
	if x.metric == domain.MetricCosine {
		query = append([]float32(nil), vec...)
		normalize(query)
	}

	h := make(hitHeap, 0, k+1)
	for row := 0; row < x.n; row++ {
		if row%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, domain.Wrap(domain.ErrCanceled, err)
			}
		}
		hit := domain.SearchHit{ChunkID: row, Distance: x.score(query, row)}
		if len(h) < k {
			heap.Push(&h, hit)
			continue
		}
		if worse(h[0], hit) {
			h[0] = hit
			heap.Fix(&h, 0)
		}
	}

	hits := []domain.SearchHit(h)
	sort.Slice(hits, func(i, j int) bool { return worse(hits[j], hits[i]) })
	if x.metric == domain.MetricL2 {
		for i := range hits {
			hits[i].Distance = float32(math.Sqrt(float64(hits[i].Distance)))
		}
	}
	return hits, nil
}

// score is squared Euclidean distance for L2 and 1-cos for cosine.
func (x *Index) score(q []float32, row int) float32 {
	v := x.data[row*x.dim : (row+1)*x.dim]
	var s float32
	if x.metric == domain.MetricCosine {
		for i := range q {
			s += q[i] * v[i]
		}
		return 1 - s
	}
	for i := range q {
		d := q[i] - v[i]
		s += d * d
	}
	return s
}

// Vector returns a copy of a stored row.
func (x *Index) Vector(row int) ([]float32, bool) {
	if row < 0 || row >= x.n {
		return nil, false
	}
	return append([]float32(nil), x.data[row*x.dim:(row+1)*x.dim]...), true
}

// Len returns the number of indexed rows.
func (x *Index) Len() int { return x.n }

// Dimension returns the vector dimension.
func (x *Index) Dimension() int { return x.dim }

// Metric returns the distance metric.
func (x *Index) Metric() domain.Metric { return x.metric }

// worse reports whether a ranks after b.
func worse(a, b domain.SearchHit) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.ChunkID > b.ChunkID
}

// hitHeap is a max-heap on rank: the root is the worst hit kept so far.
type hitHeap []domain.SearchHit

func (h hitHeap) Len() int            { return len(h) }
func (h hitHeap) Less(i, j int) bool  { return worse(h[i], h[j]) }
func (h hitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x interface{}) { *h = append(*h, x.(domain.SearchHit)) }
func (h *hitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
