package corpus

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/vdoc/internal/domain"
)

// Fetcher opens artifacts that do not live on the local filesystem.
type Fetcher interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Corpus bundles the aligned index and chunk table built from one artifact.
type Corpus struct {
	Index     *Index
	Store     *Store
	ModelInfo string
}

// FromArtifact builds the in-memory index and store.
func FromArtifact(a *Artifact) (*Corpus, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	metric, _ := domain.ParseMetric(a.Metric)
	idx, err := NewIndex(a.Vectors, a.Dimension, metric)
	if err != nil {
		return nil, err
	}
	return &Corpus{
		Index:     idx,
		Store:     NewStore(a.Chunks),
		ModelInfo: a.ModelInfo,
	}, nil
}

// Load reads the artifact at location, which is either a local path or a
// remote URI (s3://bucket/key) resolved through fetcher.
func Load(ctx context.Context, location string, fetcher Fetcher) (*Corpus, error) {
	a, err := Open(ctx, location, fetcher)
	if err != nil {
		return nil, err
	}
	return FromArtifact(a)
}

// Open reads and validates the artifact at location without building an index.
func Open(ctx context.Context, location string, fetcher Fetcher) (*Artifact, error) {
	if location == "" {
		return nil, domain.NewDomainError(domain.ErrCodeConfiguration, "corpus location is not set")
	}

	if !IsRemote(location) {
		return ReadArtifactFile(strings.TrimPrefix(location, "file://"))
	}

	if fetcher == nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "no fetcher configured for remote corpus",
			fmt.Errorf("location %s", location))
	}
	rc, err := fetcher.Open(ctx, location)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "failed to fetch corpus artifact", err)
	}
	defer rc.Close()
	return ReadArtifact(rc)
}

// IsRemote reports whether location must be resolved through a Fetcher.
func IsRemote(location string) bool {
	return strings.Contains(location, "://") && !strings.HasPrefix(location, "file://")
}
