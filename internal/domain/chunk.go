package domain

import "fmt"

// Chunk is one row of the pre-built corpus. ID is the row index shared by the
// vector index and the chunk table.
type Chunk struct {
	ID   int
	Text string
}

// SearchHit is one nearest-neighbour match, ordered by ascending Distance.
type SearchHit struct {
	ChunkID  int
	Distance float32
}

// Metric is the distance function an index was built with.
type Metric string

const (
	MetricL2     Metric = "l2"
	MetricCosine Metric = "cosine"
)

// ParseMetric normalises corpus metadata; an empty value means L2.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricL2:
		return MetricL2, nil
	case MetricCosine:
		return MetricCosine, nil
	}
	return "", fmt.Errorf("unsupported distance metric: %q", s)
}

// HitIDs returns the chunk ids of hits in order.
func HitIDs(hits []SearchHit) []int {
	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	return ids
}
