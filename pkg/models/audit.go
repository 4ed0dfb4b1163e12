package models

import "time"

// AuditEntry represents a single audited embedding request.
type AuditEntry struct {
	RequestID  string    `json:"request_id"`
	TextHash   string    `json:"text_hash"`
	TextPrefix string    `json:"text_prefix"`
	Text       string    `json:"text,omitempty"`
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	CacheKey   string    `json:"cache_key"`
	Source     string    `json:"source"` // "memory", "file", or "generated"
	Status     string    `json:"status"` // "ok" or the generator error kind
	Tokens     int       `json:"tokens"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditConfig controls the audit logging subsystem.
type AuditConfig struct {
	Enabled       bool     `yaml:"enabled"`
	DBPath        string   `yaml:"db_path"`
	RetentionDays int      `yaml:"retention_days"`
	Include       []string `yaml:"include"` // "text"
	MaxTextSize   int      `yaml:"max_text_size"`
}

// AuditQueryOpts specifies filters for querying audit entries.
type AuditQueryOpts struct {
	Model      string
	Source     string
	Since      time.Time
	TextPrefix string
	RequestID  string
	Limit      int
}

// AuditStat holds aggregate audit counts for a model/day combination.
type AuditStat struct {
	Model string
	Day   string
	Count int
}
