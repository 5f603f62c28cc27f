package corpus

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/vdoc/internal/domain"
)

// Store is the immutable chunk table, indexed by row.
type Store struct {
	chunks []string
}

// NewStore wraps chunk texts; the slice must not be modified afterwards.
func NewStore(chunks []string) *Store {
	return &Store{chunks: chunks}
}

// Lookup resolves ids to chunk texts, preserving the order of ids. An id that
// does not resolve means the index and table are misaligned.
func (s *Store) Lookup(_ context.Context, ids []int) ([]string, error) {
	texts := make([]string, len(ids))
	for i, id := range ids {
		if id < 0 || id >= len(s.chunks) {
			return nil, domain.Wrap(domain.ErrChunkNotFound, fmt.Errorf("id %d outside [0, %d)", id, len(s.chunks)))
		}
		texts[i] = s.chunks[id]
	}
	return texts, nil
}

// Chunk returns a single row.
func (s *Store) Chunk(id int) (domain.Chunk, bool) {
	if id < 0 || id >= len(s.chunks) {
		return domain.Chunk{}, false
	}
	return domain.Chunk{ID: id, Text: s.chunks[id]}, true
}

// Len returns the number of rows.
func (s *Store) Len() int {
	return len(s.chunks)
}
