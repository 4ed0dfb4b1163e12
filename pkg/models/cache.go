package models

import "time"

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Entries        int       `json:"entries"`
	Hits           int64     `json:"hits"`
	Misses         int64     `json:"misses"`
	Sets           int64     `json:"sets"`
	Deletes        int64     `json:"deletes"`
	Evictions      int64     `json:"evictions"`
	TotalSizeBytes int64     `json:"total_size_bytes"`
	HitRate        float64   `json:"hit_rate"`
	AvgEntrySize   float64   `json:"avg_entry_size_bytes"`
	LastCleanupAt  time.Time `json:"last_cleanup_at,omitempty"`
}
