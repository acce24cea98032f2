// Package embedding turns queued text into vectors: a dual-protocol backend
// adapter (job-oriented llm_mcp, or direct ollama), the pump that leases rows
// off embedding_queue, and a janitor that reclaims stuck leases.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bcsmcp/ingestion-worker/internal/domain"
)

// BackendConfig configures Backend's two protocols and the fallback policy
// between them.
type BackendConfig struct {
	Backend           string // "llm_mcp" or "ollama"
	LLMMCPBaseURL     string
	LLMMCPProvider    string // "auto" or "ollama"
	FallbackToOllama  bool
	BackendTimeoutSec int
	OllamaBaseURL     string
	OllamaEmbedModel  string
}

// Backend implements domain.EmbeddingBackend, speaking either the job-queue
// protocol (llm_mcp: POST + poll) or a direct POST to ollama's embeddings
// endpoint.
type Backend struct {
	cfg        BackendConfig
	httpClient *http.Client
}

// NewBackend builds a Backend. httpClient may be nil, in which case a client
// with a 10s timeout is used (job polling is additionally bounded by its own
// max(3, BackendTimeoutSec) wall-clock deadline).
func NewBackend(cfg BackendConfig, httpClient *http.Client) *Backend {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Backend{cfg: cfg, httpClient: httpClient}
}

// Embed converts text to a vector, preferring the configured backend and
// falling back to ollama on any failure when FallbackToOllama is set.
func (b *Backend) Embed(ctx context.Context, text string) ([]float64, error) {
	backend := normalizeBackend(b.cfg.Backend)

	if backend == "llm_mcp" {
		vec, err := b.embedViaLLMMCP(ctx, text)
		if err == nil {
			return vec, nil
		}
		if !b.cfg.FallbackToOllama {
			return nil, err
		}
	}
	return b.embedViaOllama(ctx, text)
}

func normalizeBackend(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "llm_mcp" || v == "ollama" {
		return v
	}
	return "llm_mcp"
}

type enqueueJobResponse struct {
	JobID string `json:"job_id"`
}

func (b *Backend) embedViaLLMMCP(ctx context.Context, text string) ([]float64, error) {
	provider := b.cfg.LLMMCPProvider
	if provider != "auto" && provider != "ollama" {
		provider = "auto"
	}

	payload := map[string]interface{}{
		"task":         "embed",
		"provider":     provider,
		"prompt":       text,
		"source":       "bcs-mcp",
		"priority":     2,
		"max_attempts": 2,
	}
	if b.cfg.OllamaEmbedModel != "" {
		payload["model"] = b.cfg.OllamaEmbedModel
	}

	jobID, err := b.enqueueJob(ctx, payload)
	if err != nil {
		return nil, err
	}
	return b.waitJobResult(ctx, jobID)
}

func (b *Backend) enqueueJob(ctx context.Context, payload map[string]interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	url := strings.TrimRight(b.cfg.LLMMCPBaseURL, "/") + "/v1/llm/request"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", &domain.BackendError{Op: "enqueue", Reason: err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", &domain.BackendError{Op: "enqueue", Status: fmt.Sprintf("%d", resp.StatusCode), Reason: truncate(string(respBody), 280)}
	}

	var decoded enqueueJobResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", &domain.BackendError{Op: "enqueue", Reason: "invalid json"}
	}
	if decoded.JobID == "" {
		return "", &domain.BackendError{Op: "enqueue", Reason: "missing job_id"}
	}
	return decoded.JobID, nil
}

type jobStatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Result struct {
		Data struct {
			Embedding []interface{} `json:"embedding"`
		} `json:"data"`
	} `json:"result"`
}

// coerceFloats converts each element to float64, silently skipping elements
// that cannot be converted (per the adapter's documented behavior for a
// non-numeric embedding element).
func coerceFloats(values []interface{}) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		switch n := v.(type) {
		case float64:
			out = append(out, n)
		case json.Number:
			f, err := n.Float64()
			if err == nil {
				out = append(out, f)
			}
		case string:
			var f float64
			if _, err := fmt.Sscanf(n, "%g", &f); err == nil {
				out = append(out, f)
			}
		}
	}
	return out
}

func (b *Backend) waitJobResult(ctx context.Context, jobID string) ([]float64, error) {
	url := fmt.Sprintf("%s/v1/jobs/%s", strings.TrimRight(b.cfg.LLMMCPBaseURL, "/"), jobID)
	timeout := b.cfg.BackendTimeoutSec
	if timeout < 3 {
		timeout = 3
	}
	deadline := time.Now().Add(time.Duration(timeout) * time.Second)

	for {
		if time.Now().After(deadline) {
			return nil, &domain.BackendError{Op: "poll", Reason: fmt.Sprintf("job %s timed out after %ds", jobID, timeout)}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := b.httpClient.Do(req)
		if err != nil {
			return nil, &domain.BackendError{Op: "poll", Reason: err.Error()}
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, &domain.BackendError{Op: "poll", Status: fmt.Sprintf("%d", resp.StatusCode), Reason: truncate(string(body), 280)}
		}

		var job jobStatusResponse
		if err := json.Unmarshal(body, &job); err != nil {
			return nil, &domain.BackendError{Op: "poll", Reason: "invalid json"}
		}

		status := strings.ToLower(job.Status)
		switch status {
		case "done":
			vec := coerceFloats(job.Result.Data.Embedding)
			if len(vec) == 0 {
				return nil, &domain.BackendError{Op: "poll", Reason: "job done without embedding"}
			}
			return vec, nil
		case "failed", "error", "cancelled", "canceled":
			reason := job.Error
			if reason == "" {
				reason = "unknown"
			}
			return nil, &domain.BackendError{Op: "poll", Status: status, Reason: reason}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

type ollamaEmbedResponse struct {
	Embedding []interface{} `json:"embedding"`
}

func (b *Backend) embedViaOllama(ctx context.Context, text string) ([]float64, error) {
	url := strings.TrimRight(b.cfg.OllamaBaseURL, "/") + "/api/embeddings"
	payload, err := json.Marshal(map[string]string{
		"model":  b.cfg.OllamaEmbedModel,
		"prompt": text,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &domain.BackendError{Op: "ollama", Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.BackendError{Op: "ollama", Status: fmt.Sprintf("%d", resp.StatusCode), Reason: truncate(string(body), 500)}
	}

	var decoded ollamaEmbedResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &domain.BackendError{Op: "ollama", Reason: "invalid json"}
	}
	return coerceFloats(decoded.Embedding), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
