package admin

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloo-solutions/vdoc/internal/corpus"
	"github.com/cloo-solutions/vdoc/internal/embedding"
	"github.com/cloo-solutions/vdoc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCorpusCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := CorpusCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCorpusBuild_ThenInspect(t *testing.T) {
	t.Setenv("VDOC_EMBEDDER", "hash")
	t.Setenv("VDOC_EMBEDDING_DIMENSIONS", "64")

	src := t.TempDir()
	for i, chunk := range testutil.MedicalChunks() {
		name := filepath.Join(src, "doc"+string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(name, []byte(chunk), 0o644))
	}
	out := filepath.Join(t.TempDir(), "nested", "index.gob")

	stdout, err := runCorpusCmd(t, "build", src, "--out", out, "--metric", "cosine", "--concurrency", "3")
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote "+out)

	a, err := corpus.ReadArtifactFile(out)
	require.NoError(t, err)
	assert.Equal(t, testutil.MedicalChunks(), a.Chunks)
	assert.Equal(t, 64, a.Dimension)
	assert.Equal(t, "cosine", a.Metric)

	stdout, err = runCorpusCmd(t, "inspect", out)
	require.NoError(t, err)

	var info ArtifactInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Equal(t, len(testutil.MedicalChunks()), info.Chunks)
	assert.Equal(t, "cosine", info.Metric)
	assert.Equal(t, 64, info.Dimension)
}

func TestCorpusBuild_InvalidMetric(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "flu.txt"), []byte(testutil.FluChunk), 0o644))

	_, err := runCorpusCmd(t, "build", src, "--out", filepath.Join(t.TempDir(), "x.gob"), "--metric", "manhattan")
	assert.Error(t, err)
}

func TestCorpusBuild_NoDocuments(t *testing.T) {
	out := filepath.Join(t.TempDir(), "x.gob")

	_, err := runCorpusCmd(t, "build", t.TempDir(), "--out", out)

	assert.Error(t, err)
	assert.NoFileExists(t, out)
}

func TestInfoFor(t *testing.T) {
	info := infoFor("s3://corpora/index.gob", &corpus.Artifact{
		Version:   corpus.ArtifactVersion,
		ModelInfo: "hash",
		Dimension: embedding.DefaultDimension,
		Chunks:    []string{"a", "b"},
	})

	assert.Equal(t, "l2", info.Metric)
	assert.Equal(t, 2, info.Chunks)
	assert.Equal(t, "s3://corpora/index.gob", info.Location)
}
