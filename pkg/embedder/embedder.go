// Package embedder turns text into vector embeddings by calling an external
// inference endpoint, with retries, validation, and cost accounting.
// Generate never returns an error: every outcome, including total failure,
// is a models.EmbeddingResult value.
package embedder

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/veloce-ai/veloce/pkg/models"
)

// Error kinds reported on failed results. invalid_input and
// missing_credential fail on first encounter; transient call failures are
// retried before becoming exhausted_retries.
const (
	ErrKindInvalidInput      = "invalid_input"
	ErrKindMissingCredential = "missing_credential"
	ErrKindExhaustedRetries  = "exhausted_retries"
	ErrKindUnknown           = "unknown"
)

const (
	DefaultModel         = "text-embedding-3-small"
	DefaultDimensions    = 1536
	DefaultTimeout       = 30 * time.Second
	DefaultMaxRetries    = 3
	DefaultMaxTextLength = 8192

	// Base of the exponential retry delay: 2^attempt seconds.
	retryBaseInterval = 2 * time.Second
)

// Config configures an Embedder. Zero values take defaults.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Dimensions      int
	Timeout         time.Duration
	MaxRetries      int
	MaxTextLength   int // advisory; longer inputs proceed but are flagged
	CostPer1KTokens float64
}

// GenerateOptions override per-call model and dimensions.
type GenerateOptions struct {
	Model      string
	Dimensions int
}

// embeddingClient is the slice of the OpenAI client Generate needs.
type embeddingClient interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Embedder generates embeddings via the OpenAI embeddings API.
type Embedder struct {
	cfg    Config
	client embeddingClient

	// Retry policy factory, replaced in tests to avoid multi-second waits.
	newBackOff func() backoff.BackOff

	mu                 sync.Mutex
	totalRequests      int64
	successfulRequests int64
	failedRequests     int64
	totalTokens        int64
	totalCost          float64
}

// New creates an Embedder. A missing API key is not an error here; Generate
// reports it as a missing_credential failure without attempting a call.
func New(cfg Config) *Embedder {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = DefaultMaxTextLength
	}

	e := &Embedder{cfg: cfg}
	if cfg.APIKey != "" {
		oc := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		e.client = openai.NewClientWithConfig(oc)
	}
	e.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = retryBaseInterval
		b.Multiplier = 2
		b.RandomizationFactor = 0
		b.MaxInterval = time.Minute
		b.MaxElapsedTime = 0
		return b
	}
	return e
}

// Generate produces an embedding for text, retrying transient failures with
// exponential backoff up to MaxRetries attempts.
func (e *Embedder) Generate(ctx context.Context, text string, opts GenerateOptions) models.EmbeddingResult {
	if strings.TrimSpace(text) == "" {
		return e.failure(text, ErrKindInvalidInput, "text is empty or whitespace-only")
	}
	if e.client == nil {
		return e.failure(text, ErrKindMissingCredential, "no API key configured")
	}

	model := e.cfg.Model
	if opts.Model != "" {
		model = opts.Model
	}
	dimensions := e.cfg.Dimensions
	if opts.Dimensions > 0 {
		dimensions = opts.Dimensions
	}
	overLength := len(text) > e.cfg.MaxTextLength

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(model),
		Dimensions:     dimensions,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	start := time.Now()
	bo := e.newBackOff()
	var resp openai.EmbeddingResponse
	var lastErr error
	attempt := 0

	for attempt < e.cfg.MaxRetries {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		resp, lastErr = e.client.CreateEmbeddings(callCtx, req)
		cancel()
		if lastErr == nil {
			break
		}
		if attempt >= e.cfg.MaxRetries {
			break
		}
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			break
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return e.failure(text, ErrKindUnknown, "canceled while waiting to retry: "+ctx.Err().Error())
		}
	}

	if lastErr != nil {
		return e.failure(text, ErrKindExhaustedRetries, lastErr.Error())
	}
	if len(resp.Data) == 0 {
		return e.failure(text, ErrKindUnknown, "empty embedding response data")
	}

	raw := resp.Data[0].Embedding
	vector := make([]float64, len(raw))
	for i, f := range raw {
		vector[i] = float64(f)
	}

	usage := models.Usage{
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
	cost := e.Cost(usage.TotalTokens)
	e.recordSuccess(usage.TotalTokens, cost)

	return models.EmbeddingResult{
		Success:    true,
		Vector:     vector,
		Dimensions: len(vector),
		Model:      model,
		Usage:      usage,
		DurationMs: time.Since(start).Milliseconds(),
		Attempt:    attempt,
		Cost:       cost,
		OverLength: overLength,
	}
}

// Model returns the configured default model.
func (e *Embedder) Model() string { return e.cfg.Model }

// Dimensions returns the configured default dimensions.
func (e *Embedder) Dimensions() int { return e.cfg.Dimensions }

// Cost returns the price of a request, linear in token count.
func (e *Embedder) Cost(tokens int) float64 {
	return float64(tokens) / 1000 * e.cfg.CostPer1KTokens
}

func (e *Embedder) failure(text, kind, msg string) models.EmbeddingResult {
	e.recordFailure()
	return models.EmbeddingResult{
		ErrorKind:  kind,
		Error:      msg,
		Text:       text,
		TextLength: len(text),
	}
}
