// Package openai implements pkg/embeddings' Embedder against the OpenAI
// embeddings API.
//
// Requests are batched at the provider's hard limit of 100 inputs, batches
// are submitted sequentially in input order, and each batch is retried with
// exponential backoff plus jitter. Result vectors are re-sorted by the
// provider's per-item index, so output order matches input order even if the
// provider reorders internally.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/papercomputeco/engram/pkg/embeddings"
)

const (
	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is the default embedding model.
	DefaultModel = "text-embedding-3-large"

	// DefaultDimensions is the output dimension of DefaultModel.
	DefaultDimensions = 3072

	// MaxBatchSize is the provider's hard limit on inputs per request.
	MaxBatchSize = 100

	maxAttempts = 3
	baseDelay   = time.Second
	maxDelay    = 60 * time.Second
)

// Config holds configuration for the OpenAI embedder.
type Config struct {
	// APIKey authenticates against the OpenAI API. Required.
	APIKey string

	// BaseURL overrides the API URL, e.g. for a compatible gateway.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the embedding model to use. Defaults to DefaultModel.
	Model string

	// Dimensions is the requested output dimension.
	// Defaults to DefaultDimensions.
	Dimensions uint

	// Sleep waits between retry attempts. Defaults to a context-aware
	// timer sleep; tests inject a recording stub.
	Sleep func(ctx context.Context, d time.Duration) error

	// Jitter returns a uniform random value in [0,1), added in seconds to
	// each backoff delay. Defaults to math/rand; tests pin it.
	Jitter func() float64
}

// Embedder wraps the OpenAI embeddings API.
type Embedder struct {
	apiKey     string
	baseURL    string
	model      string
	dimensions uint
	httpClient *http.Client
	logger     *slog.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// embedRequest is the request body for the embeddings endpoint.
type embedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions uint     `json:"dimensions,omitempty"`
}

// embedResponse is the response from the embeddings endpoint. Data items
// carry an index identifying which input each vector belongs to.
type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewEmbedder creates a new embedder using the OpenAI embeddings API.
// Construction fails fast when no API key is configured.
func NewEmbedder(cfg Config, logger *slog.Logger) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, embeddings.ErrNoCredential
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := &Embedder{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
		sleep:  cfg.Sleep,
		jitter: cfg.Jitter,
	}

	if e.baseURL == "" {
		e.baseURL = DefaultBaseURL
	}
	if e.model == "" {
		e.model = DefaultModel
	}
	if e.dimensions == 0 {
		e.dimensions = DefaultDimensions
	}
	if e.sleep == nil {
		e.sleep = timerSleep
	}
	if e.jitter == nil {
		e.jitter = rand.Float64
	}

	return e, nil
}

// Embed converts a single text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch converts texts into vector embeddings, preserving input order.
// All inputs are validated before any network call; a single invalid entry
// fails the whole call identifying the offending index. Inputs are split
// into batches of at most MaxBatchSize, submitted sequentially.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: text at index %d is empty or whitespace-only",
				embeddings.ErrInvalidInput, i)
		}
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.embedBatchWithRetry(ctx, texts[start:end], start)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// embedBatchWithRetry submits one batch, retrying transient failures up to
// maxAttempts with exponential backoff and jitter. Exhausting the attempts
// returns the last underlying error unchanged.
func (e *Embedder) embedBatchWithRetry(ctx context.Context, batch []string, batchStart int) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := baseDelay << (attempt - 1)
			if delay > maxDelay {
				delay = maxDelay
			}
			wait := delay + time.Duration(e.jitter()*float64(time.Second))

			e.logger.Warn("embedding attempt failed, retrying",
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"batch_start", batchStart,
				"wait", wait,
				"error", lastErr,
			)

			if err := e.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		vectors, err := e.embedBatch(ctx, batch)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
	}

	e.logger.Error("embedding failed after retries",
		"attempts", maxAttempts,
		"batch_start", batchStart,
		"error", lastErr,
	)

	return nil, lastErr
}

// embedBatch performs a single embeddings request.
func (e *Embedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	reqBody := embedRequest{
		Model:      e.model,
		Input:      batch,
		Dimensions: e.dimensions,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", embeddings.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", embeddings.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", embeddings.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: openai returned status %d: %s",
			embeddings.ErrEmbedding, resp.StatusCode, string(body))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", embeddings.ErrEmbedding, err)
	}

	if len(embedResp.Data) != len(batch) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
			embeddings.ErrEmbedding, len(batch), len(embedResp.Data))
	}

	// Re-sort by the provider's per-item index so results line up with
	// inputs even if the provider reorders internally.
	sort.Slice(embedResp.Data, func(i, j int) bool {
		return embedResp.Data[i].Index < embedResp.Data[j].Index
	})

	vectors := make([][]float32, len(embedResp.Data))
	for i, item := range embedResp.Data {
		vectors[i] = item.Embedding
	}

	return vectors, nil
}

// Dimensions reports the configured output dimension.
func (e *Embedder) Dimensions() uint {
	return e.dimensions
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

// timerSleep waits for d or until ctx is canceled.
func timerSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ embeddings.Embedder = (*Embedder)(nil)
