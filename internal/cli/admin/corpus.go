package admin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloo-solutions/vdoc/internal/corpus"
	"github.com/cloo-solutions/vdoc/internal/database"
	"github.com/cloo-solutions/vdoc/internal/domain"
	"github.com/cloo-solutions/vdoc/internal/jobs"
	"github.com/cloo-solutions/vdoc/internal/repository"
	"github.com/cloo-solutions/vdoc/internal/storage"
	"github.com/spf13/cobra"
)

// CorpusCmd groups offline operations on pre-built corpus artifacts. None of
// them touch a running server.
func CorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Build, inspect and distribute corpus artifacts",
	}

	cmd.AddCommand(corpusBuildCmd())
	cmd.AddCommand(corpusInspectCmd())
	cmd.AddCommand(corpusImportCmd())
	cmd.AddCommand(corpusPushCmd())

	return cmd
}

// ArtifactInfo summarises an artifact without its rows.
type ArtifactInfo struct {
	Location  string `json:"location"`
	Version   int    `json:"version"`
	ModelInfo string `json:"model_info"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Chunks    int    `json:"chunks"`
}

func corpusBuildCmd() *cobra.Command {
	var (
		out         string
		metric      string
		concurrency int
		chunking    = corpus.DefaultChunkConfig()
	)

	cmd := &cobra.Command{
		Use:   "build <path>...",
		Short: "Chunk and embed source documents into an artifact",
		Long: "Reads .txt and .md files (directories are walked), splits them into chunks and embeds " +
			"every chunk with the configured embedder. The artifact is written to --out.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m, err := domain.ParseMetric(metric)
			if err != nil {
				return err
			}

			docs, err := corpus.ReadDocuments(args)
			if err != nil {
				return err
			}
			emb, err := newEmbedder(cfg)
			if err != nil {
				return err
			}

			a, err := corpus.Build(ctx, docs, jobs.NewEmbeddingWorker(emb, concurrency), corpus.BuildOptions{
				ModelInfo: emb.ModelInfo(),
				Dimension: emb.Dimension(),
				Metric:    m,
				Chunking:  chunking,
			})
			if err != nil {
				return err
			}

			if err := writeArtifactFile(out, a); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d documents, %d chunks (%s)\n", out, len(docs), len(a.Chunks), a.ModelInfo)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "corpus/index.gob", "Artifact output path")
	cmd.Flags().StringVar(&metric, "metric", string(domain.MetricL2), "Distance metric (l2 or cosine)")
	cmd.Flags().IntVar(&concurrency, "concurrency", jobs.DefaultConcurrency, "Concurrent embedding calls")
	cmd.Flags().IntVar(&chunking.MaxChars, "max-chars", chunking.MaxChars, "Maximum characters per chunk")
	cmd.Flags().IntVar(&chunking.Overlap, "overlap", chunking.Overlap, "Characters shared between adjacent chunks")

	return cmd
}

// writeArtifactFile replaces path atomically.
func writeArtifactFile(path string, a *corpus.Artifact) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := corpus.WriteArtifact(tmp, a); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func corpusInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <location>",
		Short: "Validate an artifact and print its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fetcher, err := newFetcher(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			a, err := corpus.Open(cmd.Context(), args[0], fetcher)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(infoFor(args[0], a), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func corpusImportCmd() *cobra.Command {
	var noMigrate bool

	cmd := &cobra.Command{
		Use:   "import <location>",
		Short: "Load an artifact into the pgvector corpus table",
		Long:  "Replaces the rows of corpus_chunks with the artifact's chunks and vectors in a single transaction.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadDatabaseConfig()
			if err != nil {
				return err
			}
			fetcher, err := newFetcher(ctx, cfg)
			if err != nil {
				return err
			}

			a, err := corpus.Open(ctx, args[0], fetcher)
			if err != nil {
				return err
			}

			if !noMigrate {
				if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
					return err
				}
			}

			pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := repository.ImportArtifact(ctx, pool, a); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d chunks (dimension %d, %s)\n", len(a.Chunks), a.Dimension, a.ModelInfo)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noMigrate, "no-migrate", false, "Skip applying migrations before import")

	return cmd
}

func corpusPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push <file> <s3-uri>",
		Short: "Upload a local artifact to object storage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, dst := args[0], args[1]

			bucket, _, err := storage.ParseURI(dst)
			if err != nil {
				return err
			}

			// Refuse to publish something the server would reject on load.
			if _, err := corpus.ReadArtifactFile(src); err != nil {
				return err
			}
			data, err := os.ReadFile(src)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newS3Client(ctx, cfg)
			if err != nil {
				return err
			}
			if client == nil {
				return fmt.Errorf("VDOC_S3_ACCESS_KEY_ID and VDOC_S3_SECRET_ACCESS_KEY are required")
			}

			if err := client.EnsureBucket(ctx, bucket); err != nil {
				return err
			}
			if err := client.Put(ctx, dst, data, "application/octet-stream"); err != nil {
				return err
			}

			meta, err := client.HeadObject(ctx, dst)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%d bytes, etag %s)\n", dst, meta.ContentLength, meta.ETag)
			return nil
		},
	}
}

func infoFor(location string, a *corpus.Artifact) ArtifactInfo {
	metric := a.Metric
	if metric == "" {
		metric = "l2"
	}
	return ArtifactInfo{
		Location:  location,
		Version:   a.Version,
		ModelInfo: a.ModelInfo,
		Dimension: a.Dimension,
		Metric:    metric,
		Chunks:    len(a.Chunks),
	}
}
