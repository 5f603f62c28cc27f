package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/vdoc/internal/corpus"
	"github.com/cloo-solutions/vdoc/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// importBatchSize is the number of rows sent per round trip on import.
const importBatchSize = 500

// CorpusMeta describes the corpus currently held in the database.
type CorpusMeta struct {
	ModelInfo string
	Dimension int
	Metric    domain.Metric
}

// ChunkRepository serves the corpus from Postgres: it is both the vector
// index (exact search with pgvector operators) and the chunk table.
type ChunkRepository struct {
	db   dbtx
	meta CorpusMeta
	n    int
}

// OpenChunkRepository reads the corpus metadata and verifies that row ids are
// contiguous from zero, so ids returned by Search always resolve in Lookup.
func OpenChunkRepository(ctx context.Context, pool *pgxpool.Pool) (*ChunkRepository, error) {
	r := &ChunkRepository{db: pool}

	var metric string
	err := pool.QueryRow(ctx,
		`SELECT model_info, dimension, metric FROM corpus_meta WHERE singleton`,
	).Scan(&r.meta.ModelInfo, &r.meta.Dimension, &metric)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Wrap(domain.ErrEmptyCorpus, errors.New("corpus_meta has no row, import a corpus first"))
	}
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "failed to read corpus metadata", err)
	}
	r.meta.Metric, err = domain.ParseMetric(metric)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "unsupported corpus metric", err)
	}

	var count int
	var minID, maxID *int64
	err = pool.QueryRow(ctx,
		`SELECT COUNT(*), MIN(id), MAX(id) FROM corpus_chunks`,
	).Scan(&count, &minID, &maxID)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "failed to count corpus rows", err)
	}
	if count == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	if *minID != 0 || *maxID != int64(count-1) {
		return nil, domain.Wrap(domain.ErrCorpusMisaligned,
			fmt.Errorf("ids span [%d, %d] over %d rows", *minID, *maxID, count))
	}
	r.n = count

	return r, nil
}

// ImportArtifact replaces the stored corpus with the artifact's rows in one
// transaction.
func ImportArtifact(ctx context.Context, pool *pgxpool.Pool, a *corpus.Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}

	metric, _ := domain.ParseMetric(a.Metric)

	return NewTxRunner(pool).WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM corpus_chunks`); err != nil {
			return fmt.Errorf("failed to clear corpus_chunks: %w", err)
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO corpus_meta (singleton, model_info, dimension, metric, loaded_at)
			 VALUES (TRUE, $1, $2, $3, NOW())
			 ON CONFLICT (singleton) DO UPDATE
			 SET model_info = EXCLUDED.model_info, dimension = EXCLUDED.dimension,
			     metric = EXCLUDED.metric, loaded_at = EXCLUDED.loaded_at`,
			a.ModelInfo, a.Dimension, string(metric),
		)
		if err != nil {
			return fmt.Errorf("failed to write corpus_meta: %w", err)
		}

		for start := 0; start < len(a.Chunks); start += importBatchSize {
			end := min(start+importBatchSize, len(a.Chunks))

			batch := &pgx.Batch{}
			for id := start; id < end; id++ {
				batch.Queue(
					`INSERT INTO corpus_chunks (id, text, embedding) VALUES ($1, $2, $3)`,
					int64(id), a.Chunks[id], pgvector.NewVector(a.Vectors[id]),
				)
			}
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("failed to insert rows %d-%d: %w", start, end-1, err)
			}
		}
		return nil
	})
}

// Search returns the k rows nearest to vec, ascending by distance with ties
// broken by lower id.
func (r *ChunkRepository) Search(ctx context.Context, vec []float32, k int) ([]domain.SearchHit, error) {
	if k <= 0 {
		return nil, domain.ErrInvalidTopK
	}
	if len(vec) != r.meta.Dimension {
		return nil, domain.Wrap(domain.ErrDimensionMismatch, fmt.Errorf("got %d, index has %d", len(vec), r.meta.Dimension))
	}

	op := "<->"
	if r.meta.Metric == domain.MetricCosine {
		op = "<=>"
	}
	query := `
		SELECT id, embedding ` + op + ` $1::vector AS distance
		FROM corpus_chunks
		ORDER BY distance, id
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, r.queryError(ctx, err)
	}
	defer rows.Close()

	hits := make([]domain.SearchHit, 0, min(k, r.n))
	for rows.Next() {
		var id int64
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, r.queryError(ctx, err)
		}
		hits = append(hits, domain.SearchHit{ChunkID: int(id), Distance: float32(distance)})
	}
	if err := rows.Err(); err != nil {
		return nil, r.queryError(ctx, err)
	}

	return hits, nil
}

// Lookup resolves ids to chunk texts in the order given.
func (r *ChunkRepository) Lookup(ctx context.Context, ids []int) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	keys := make([]int64, len(ids))
	for i, id := range ids {
		keys[i] = int64(id)
	}

	rows, err := r.db.Query(ctx, `SELECT id, text FROM corpus_chunks WHERE id = ANY($1)`, keys)
	if err != nil {
		return nil, r.queryError(ctx, err)
	}
	defer rows.Close()

	byID := make(map[int64]string, len(ids))
	for rows.Next() {
		var id int64
		var text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, r.queryError(ctx, err)
		}
		byID[id] = text
	}
	if err := rows.Err(); err != nil {
		return nil, r.queryError(ctx, err)
	}

	texts := make([]string, len(ids))
	for i, key := range keys {
		text, ok := byID[key]
		if !ok {
			return nil, domain.Wrap(domain.ErrChunkNotFound, fmt.Errorf("id %d", key))
		}
		texts[i] = text
	}
	return texts, nil
}

// Len returns the number of rows seen at open.
func (r *ChunkRepository) Len() int { return r.n }

// Dimension returns the stored vector dimension.
func (r *ChunkRepository) Dimension() int { return r.meta.Dimension }

// Meta returns the corpus metadata.
func (r *ChunkRepository) Meta() CorpusMeta { return r.meta }

func (r *ChunkRepository) queryError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.Wrap(domain.ErrCanceled, ctxErr)
	}
	return domain.Wrap(domain.ErrIndexUnavailable, err)
}
