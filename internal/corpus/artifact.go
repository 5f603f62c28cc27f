// Package corpus loads the pre-built chunk table and vector index and serves
// read-only lookups and nearest-neighbour search over them.
package corpus

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/cloo-solutions/vdoc/internal/domain"
)

// ArtifactVersion is the only on-disk layout this package reads.
const ArtifactVersion = 1

// Artifact is the gob-encoded output of the offline corpus build: a chunk
// table and its embeddings, row-aligned (Chunks[i] <-> Vectors[i]).
type Artifact struct {
	Version   int
	ModelInfo string
	Dimension int
	Metric    string
	Chunks    []string
	Vectors   [][]float32
}

// Validate checks the row-alignment and dimension invariants. Any violation is
// a configuration error: the index and chunk table did not come from the same
// build.
func (a *Artifact) Validate() error {
	if a.Version != ArtifactVersion {
		return domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "unsupported corpus artifact",
			fmt.Errorf("version %d, expected %d", a.Version, ArtifactVersion))
	}
	if _, err := domain.ParseMetric(a.Metric); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "unsupported corpus artifact", err)
	}
	if a.Dimension <= 0 {
		return domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "unsupported corpus artifact",
			fmt.Errorf("dimension %d", a.Dimension))
	}
	if len(a.Chunks) == 0 {
		return domain.ErrEmptyCorpus
	}
	if len(a.Chunks) != len(a.Vectors) {
		return domain.Wrap(domain.ErrCorpusMisaligned,
			fmt.Errorf("%d chunks, %d vectors", len(a.Chunks), len(a.Vectors)))
	}
	for i, v := range a.Vectors {
		if len(v) != a.Dimension {
			return domain.Wrap(domain.ErrCorpusMisaligned,
				fmt.Errorf("row %d has dimension %d, expected %d", i, len(v), a.Dimension))
		}
	}
	return nil
}

// ReadArtifact decodes and validates an artifact.
func ReadArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := gob.NewDecoder(r).Decode(&a); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "failed to decode corpus artifact", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// ReadArtifactFile reads an artifact from a local path.
func ReadArtifactFile(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "failed to open corpus artifact", err)
	}
	defer f.Close()
	return ReadArtifact(f)
}

// WriteArtifact encodes an artifact. The offline build owns artifact
// production; this exists so fixtures can be produced in the same format.
func WriteArtifact(w io.Writer, a *Artifact) error {
	if a.Version == 0 {
		a.Version = ArtifactVersion
	}
	if err := a.Validate(); err != nil {
		return err
	}
	return gob.NewEncoder(w).Encode(a)
}
