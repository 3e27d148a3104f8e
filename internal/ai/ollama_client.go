package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// OllamaClient is a minimal HTTP client for a local Ollama runtime.
type OllamaClient struct {
	httpClient *http.Client
	host       string
	model      string
}

// NewOllamaClient creates a new client targeting the given host (e.g., http://127.0.0.1:11434).
// headerTimeout bounds the wait for the first response byte; the streamed
// body itself is bounded only by the caller's context.
func NewOllamaClient(host, model string, headerTimeout time.Duration) *OllamaClient {
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	if model == "" {
		model = "gemma:2b"
	}
	if headerTimeout <= 0 {
		headerTimeout = 60 * time.Second
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		ResponseHeaderTimeout: headerTimeout,
		IdleConnTimeout:       90 * time.Second,
	}
	return &OllamaClient{
		httpClient: &http.Client{Transport: tr},
		host:       strings.TrimRight(host, "/"),
		model:      model,
	}
}

// Model returns the model prompts are sent to.
func (c *OllamaClient) Model() string { return c.model }

// Structures aligned with Ollama /api/generate
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// GenerateStream starts a streaming completion of prompt. The returned Stream
// must be closed; cancelling ctx aborts the upstream read.
func (c *OllamaClient) GenerateStream(ctx context.Context, prompt string) (*Stream, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt cannot be empty")
	}
	payload, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &UnreachableError{Host: c.host, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, apiErrorFrom(resp)
	}
	return NewStream(resp.Body), nil
}
