// Package pipeline composes the embedding cache and generator: look up the
// cache first, generate on miss, write the result back, and record usage.
//
// There is no cross-request deduplication: two concurrent misses for the
// same text both generate, and the last write wins. Eliminating that would
// need a per-key in-flight marker and changes observable latency ordering,
// so the gap is deliberate.
package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/veloce-ai/veloce/pkg/audit"
	"github.com/veloce-ai/veloce/pkg/cache"
	"github.com/veloce-ai/veloce/pkg/embedder"
	"github.com/veloce-ai/veloce/pkg/models"
	"github.com/veloce-ai/veloce/pkg/tracker"
)

// SourceGenerated marks results that came from the generator, not a cache
// tier.
const SourceGenerated = "generated"

// Result is an embedding plus where it came from.
type Result struct {
	models.EmbeddingResult
	Cached bool
	Source string // cache.SourceMemory, cache.SourceFile, or SourceGenerated
	Key    string
}

// Pipeline owns explicitly constructed dependencies; there is no shared
// process-wide instance. Tracker and auditor may be nil.
type Pipeline struct {
	cache    *cache.Cache
	embedder *embedder.Embedder
	tracker  tracker.Tracker
	auditor  *audit.Logger
}

// New wires a Pipeline.
func New(c *cache.Cache, e *embedder.Embedder, t tracker.Tracker, a *audit.Logger) *Pipeline {
	return &Pipeline{cache: c, embedder: e, tracker: t, auditor: a}
}

// Cache exposes the underlying cache for stats and management surfaces.
func (p *Pipeline) Cache() *cache.Cache { return p.cache }

// Embedder exposes the underlying generator.
func (p *Pipeline) Embedder() *embedder.Embedder { return p.embedder }

// Embed returns the embedding for text, from cache when possible.
func (p *Pipeline) Embed(ctx context.Context, text string, opts embedder.GenerateOptions) Result {
	model := opts.Model
	if model == "" {
		model = p.embedder.Model()
	}
	dimensions := opts.Dimensions
	if dimensions <= 0 {
		dimensions = p.embedder.Dimensions()
	}
	cacheOpts := cache.EmbedOptions{Model: model, Dimensions: dimensions}
	start := time.Now()

	if look := p.cache.Get(text, cacheOpts); look.Hit {
		res := Result{
			EmbeddingResult: models.EmbeddingResult{
				Success:    true,
				Vector:     look.Vector,
				Dimensions: look.Dimensions,
				Model:      model,
				DurationMs: time.Since(start).Milliseconds(),
			},
			Cached: true,
			Source: look.Source,
			Key:    cache.Key(text, cacheOpts),
		}
		p.record(ctx, text, res)
		return res
	}

	gen := p.embedder.Generate(ctx, text, opts)
	res := Result{EmbeddingResult: gen, Source: SourceGenerated, Key: cache.Key(text, cacheOpts)}

	if gen.Success {
		if v := embedder.ValidateEmbedding(gen.Vector, dimensions); !v.Valid {
			log.Printf("embedding validation failed for model %s: %v", model, v.Issues)
		} else if len(v.Warnings) > 0 {
			log.Printf("embedding validation warning for model %s: %v", model, v.Warnings)
		}
		if w := p.cache.Set(text, gen.Vector, cacheOpts); w.PersistErr != nil {
			log.Printf("cache persist failed for key %s: %v", w.Key, w.PersistErr)
		}
	}

	p.record(ctx, text, res)
	return res
}

// record writes usage and audit entries. Both are best-effort; a failing
// store must not fail the embedding call.
func (p *Pipeline) record(ctx context.Context, text string, res Result) {
	now := time.Now().UTC()

	if p.tracker != nil {
		rec := models.UsageRecord{
			Model:      res.Model,
			TextLength: len(text),
			Tokens:     res.Usage.TotalTokens,
			Cost:       res.Cost,
			DurationMs: res.DurationMs,
			Attempts:   res.Attempt,
			Cached:     res.Cached,
			ErrorKind:  res.ErrorKind,
			CreatedAt:  now,
		}
		if err := p.tracker.Record(ctx, rec); err != nil {
			log.Printf("usage record failed: %v", err)
		}
	}

	if p.auditor != nil {
		hash, prefix := audit.HashText(text)
		status := "ok"
		if !res.Success {
			status = res.ErrorKind
		}
		entry := models.AuditEntry{
			RequestID:  generateRequestID(),
			TextHash:   hash,
			TextPrefix: prefix,
			Text:       text,
			Model:      res.Model,
			Dimensions: res.Dimensions,
			CacheKey:   res.Key,
			Source:     res.Source,
			Status:     status,
			Tokens:     res.Usage.TotalTokens,
			LatencyMs:  res.DurationMs,
			CreatedAt:  now,
		}
		if err := p.auditor.Log(ctx, entry); err != nil {
			log.Printf("audit log failed: %v", err)
		}
	}
}

// generateRequestID creates an ID like req_20260830_a3f9c2.
func generateRequestID() string {
	b := make([]byte, 3)
	rand.Read(b)
	return fmt.Sprintf("req_%s_%s", time.Now().UTC().Format("20060102"), hex.EncodeToString(b))
}
