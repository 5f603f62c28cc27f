package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/health":
			_, _ = w.Write([]byte(`{"data":{"status":"ok","backend":"file","chunks":16,"dimension":384,"embedder":"hash-bow-v1-384","generator":"gemini-2.0-flash"}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/rag":
			var req AskRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Query == "" {
				w.Header().Set(errorCodeHeader, "VALIDATION_ERROR")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"query is required","code":"VALIDATION_ERROR"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(AskResponse{
				Query:           req.Query,
				Response:        "- Fever\n- Cough",
				RetrievedChunks: []string{"Common flu symptoms include fever, cough, and fatigue."},
			})
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAPIClient_Post(t *testing.T) {
	srv := newTestServer(t)
	c := NewAPIClientWithConfig(srv.URL+"/", 5*time.Second)

	var resp AskResponse
	err := c.Post(context.Background(), "/rag", AskRequest{Query: "flu symptoms"}, &resp)

	require.NoError(t, err)
	assert.Equal(t, "flu symptoms", resp.Query)
	assert.Len(t, resp.RetrievedChunks, 1)
}

func TestAPIClient_ErrorEnvelope(t *testing.T) {
	srv := newTestServer(t)
	c := NewAPIClientWithConfig(srv.URL, 5*time.Second)

	err := c.Post(context.Background(), "/rag", AskRequest{}, &AskResponse{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Equal(t, "query is required", apiErr.Message)
}

func TestAPIClient_NonJSONError(t *testing.T) {
	srv := newTestServer(t)
	c := NewAPIClientWithConfig(srv.URL, 5*time.Second)

	err := c.Get(context.Background(), "/elsewhere", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.Empty(t, apiErr.Code)
}

func TestNewAPIClientWithCmd_URLCascade(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{}
		cmd.Flags().String("api-url", "", "")
		cmd.Flags().Duration("timeout", 0, "")
		return cmd
	}

	t.Setenv(envAPIURL, "")
	assert.Equal(t, defaultAPIURL, NewAPIClientWithCmd(newCmd()).baseURL)

	t.Setenv(envAPIURL, "http://env:9000")
	assert.Equal(t, "http://env:9000", NewAPIClientWithCmd(newCmd()).baseURL)

	cmd := newCmd()
	require.NoError(t, cmd.Flags().Set("api-url", "http://flag:7000"))
	require.NoError(t, cmd.Flags().Set("timeout", "3s"))
	c := NewAPIClientWithCmd(cmd)
	assert.Equal(t, "http://flag:7000", c.baseURL)
	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
}

func runCmd(t *testing.T, cmd *cobra.Command, url string, args ...string) (string, error) {
	t.Helper()
	cmd.Flags().Bool("output", false, "")
	cmd.Flags().String("api-url", url, "")
	cmd.Flags().Duration("timeout", 5*time.Second, "")

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAskCmd(t *testing.T) {
	srv := newTestServer(t)

	out, err := runCmd(t, AskCmd(), srv.URL, "what", "are", "flu", "symptoms?", "--chunks")

	require.NoError(t, err)
	assert.Contains(t, out, "- Fever\n- Cough")
	assert.Contains(t, out, "Context (1 chunks):")
	assert.Contains(t, out, "1. Common flu symptoms")
}

func TestAskCmd_JSON(t *testing.T) {
	srv := newTestServer(t)

	out, err := runCmd(t, AskCmd(), srv.URL, "flu", "--output")
	require.NoError(t, err)

	var resp AskResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "flu", resp.Query)
}

func TestHealthCmd(t *testing.T) {
	srv := newTestServer(t)

	out, err := runCmd(t, HealthCmd(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, out, "status:    ok")
	assert.Contains(t, out, "chunks:    16")
	assert.Contains(t, out, "generator: gemini-2.0-flash")
}
