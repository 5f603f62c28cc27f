package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/vdoc/internal/domain"
)

// SourceExtensions are the document types picked up when a build input is a
// directory.
var SourceExtensions = []string{".txt", ".md"}

// Document is one source file of an offline corpus build.
type Document struct {
	Name string
	Text string
}

// BatchEmbedder embeds a whole chunk table, keeping row order.
type BatchEmbedder interface {
	EmbedAll(ctx context.Context, chunks []string) ([][]float32, error)
}

// BuildOptions describes the embedding model the artifact is built with.
type BuildOptions struct {
	ModelInfo string
	Dimension int
	Metric    domain.Metric
	Chunking  ChunkConfig
}

// ReadDocuments reads files and walks directories, in lexical order.
func ReadDocuments(paths []string) ([]Document, error) {
	var docs []Document
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			doc, err := readDocument(root)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !hasSourceExtension(path) {
				return nil
			}
			doc, err := readDocument(path)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// Build chunks the documents, embeds every chunk and returns a validated
// artifact.
func Build(ctx context.Context, docs []Document, embedder BatchEmbedder, opts BuildOptions) (*Artifact, error) {
	var chunks []string
	for _, doc := range docs {
		chunks = append(chunks, ChunkText(doc.Text, opts.Chunking)...)
	}
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	vectors, err := embedder.EmbedAll(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding corpus: %w", err)
	}

	metric := opts.Metric
	if metric == "" {
		metric = domain.MetricL2
	}

	a := &Artifact{
		Version:   ArtifactVersion,
		ModelInfo: opts.ModelInfo,
		Dimension: opts.Dimension,
		Metric:    string(metric),
		Chunks:    chunks,
		Vectors:   vectors,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func readDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	return Document{Name: path, Text: string(data)}, nil
}

func hasSourceExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
