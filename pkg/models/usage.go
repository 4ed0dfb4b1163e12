package models

import "time"

// UsageRecord tracks a single embedding request.
type UsageRecord struct {
	ID         int64     `json:"id"`
	Model      string    `json:"model"`
	TextLength int       `json:"text_length"`
	Tokens     int       `json:"tokens"`
	Cost       float64   `json:"cost"`
	DurationMs int64     `json:"duration_ms"`
	Attempts   int       `json:"attempts"`
	Cached     bool      `json:"cached"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// UsageSummary aggregates embedding usage per model.
type UsageSummary struct {
	Model        string  `json:"model"`
	RequestCount int     `json:"request_count"`
	CacheHits    int     `json:"cache_hits"`
	Failures     int     `json:"failures"`
	TotalTokens  int64   `json:"total_tokens"`
	TotalCost    float64 `json:"total_cost"`
}
