package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"s3://corpora/index.gob", "corpora", "index.gob", false},
		{"s3://corpora/medical/v2/index.gob", "corpora", "medical/v2/index.gob", false},
		{"s3://corpora", "", "", true},
		{"s3://corpora/", "", "", true},
		{"s3:///index.gob", "", "", true},
		{"/srv/index.gob", "", "", true},
		{"gs://corpora/index.gob", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func newTestClient(t *testing.T, srv *httptest.Server) *S3Client {
	t.Helper()
	client, err := NewS3Client(context.Background(), S3ClientConfig{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	return client
}

func TestS3Client_Open(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if r.URL.Path != "/corpora/index.gob" {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("artifact-bytes"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	rc, err := client.Open(context.Background(), "s3://corpora/index.gob")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "artifact-bytes", string(data))

	_, err = client.Open(context.Background(), "s3://corpora/missing.gob")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestS3Client_Open_InvalidURI(t *testing.T) {
	client := &S3Client{}

	rc, err := client.Open(context.Background(), "s3://only-bucket")

	assert.Nil(t, rc)
	assert.Error(t, err)
}
