// Package httpprovider implements providers.EmbeddingProvider and
// providers.LLMProvider against an Ollama-compatible HTTP endpoint,
// adapted from the teacher's Ollama client (internal/ai/ollama.go).
package httpprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mycelicmemory/core/internal/logging"
)

var log = logging.GetLogger("httpprovider")

// Config configures a Provider.
type Config struct {
	BaseURL        string
	EmbeddingModel string
	ChatModel      string
	Dimensions     int
	Timeout        time.Duration
}

// Provider is an HTTP client against an Ollama-compatible API. It
// implements both providers.EmbeddingProvider and providers.LLMProvider.
type Provider struct {
	baseURL        string
	embeddingModel string
	chatModel      string
	dimensions     int
	httpClient     *http.Client
}

// New returns a Provider, applying the teacher's Ollama defaults for any
// zero-valued field in cfg.
func New(cfg Config) *Provider {
	p := &Provider{
		baseURL:        cfg.BaseURL,
		embeddingModel: cfg.EmbeddingModel,
		chatModel:      cfg.ChatModel,
		dimensions:     cfg.Dimensions,
	}
	if p.baseURL == "" {
		p.baseURL = "http://localhost:11434"
	}
	if p.embeddingModel == "" {
		p.embeddingModel = "nomic-embed-text"
	}
	if p.chatModel == "" {
		p.chatModel = "qwen2.5:3b"
	}
	if p.dimensions == 0 {
		p.dimensions = 768
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	p.httpClient = &http.Client{Timeout: timeout}
	return p
}

// Dimensions reports the embedding vector length this provider returns.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed requests an embedding from the /api/embeddings endpoint.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: p.embeddingModel, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding request failed: %s: %s", resp.Status, string(data))
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(out.Embedding) != p.dimensions {
		log.Warn("embedding dimension mismatch", "expected", p.dimensions, "got", len(out.Embedding))
	}
	return out.Embedding, nil
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Complete requests a non-streaming completion from /api/generate.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: p.chatModel, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generate request failed: %s: %s", resp.Status, string(data))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return out.Response, nil
}

// IsAvailable reports whether the endpoint responds, mirroring the
// teacher's Ollama availability check.
func (p *Provider) IsAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
