package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed_LLMMCPHappyPath(t *testing.T) {
	jobsServed := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/llm/request":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"job_id": "job-1"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/jobs/job-1":
			jobsServed++
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "done",
				"result": map[string]interface{}{
					"data": map[string]interface{}{
						"embedding": []float64{0.1, 0.2, 0.3},
					},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	b := NewBackend(BackendConfig{
		Backend:           "llm_mcp",
		LLMMCPBaseURL:     srv.URL,
		LLMMCPProvider:    "auto",
		BackendTimeoutSec: 5,
	}, srv.Client())

	vec, err := b.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 1, jobsServed)
}

func TestEmbed_FallsBackToOllamaOnLLMMCPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/llm/request":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		case "/api/embeddings":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"embedding": []float64{0.5}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	b := NewBackend(BackendConfig{
		Backend:           "llm_mcp",
		LLMMCPBaseURL:     srv.URL,
		LLMMCPProvider:    "auto",
		BackendTimeoutSec: 5,
		FallbackToOllama:  true,
		OllamaBaseURL:     srv.URL,
		OllamaEmbedModel:  "nomic-embed-text",
	}, srv.Client())

	vec, err := b.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, vec)
}

func TestEmbed_NoFallbackPropagatesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	b := NewBackend(BackendConfig{
		Backend:           "llm_mcp",
		LLMMCPBaseURL:     srv.URL,
		BackendTimeoutSec: 5,
		FallbackToOllama:  false,
	}, srv.Client())

	_, err := b.Embed(context.Background(), "some text")
	require.Error(t, err)
}

func TestEmbed_LLMMCPSkipsNonNumericElements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/llm/request":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"job_id": "job-2"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/jobs/job-2":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "done",
				"result": map[string]interface{}{
					"data": map[string]interface{}{
						"embedding": []interface{}{0.1, "not-a-number", 0.3, nil},
					},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	b := NewBackend(BackendConfig{
		Backend:           "llm_mcp",
		LLMMCPBaseURL:     srv.URL,
		LLMMCPProvider:    "auto",
		BackendTimeoutSec: 5,
	}, srv.Client())

	vec, err := b.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.3}, vec)
}

func TestEmbed_OllamaDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"embedding": []float64{1, 2}})
	}))
	defer srv.Close()

	b := NewBackend(BackendConfig{
		Backend:          "ollama",
		OllamaBaseURL:    srv.URL,
		OllamaEmbedModel: "nomic-embed-text",
	}, srv.Client())

	vec, err := b.Embed(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, vec)
}
