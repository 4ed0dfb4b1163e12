package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// record is the persistent-tier file format: one JSON file per cache key.
// Timestamps are epoch milliseconds.
type record struct {
	Vector     []float64    `json:"vector"`
	Dimensions int          `json:"dimensions"`
	Text       string       `json:"text"`
	Options    EmbedOptions `json:"options"`
	CachedAt   int64        `json:"cached_at"`
	ExpiresAt  int64        `json:"expires_at"`
}

func (r record) cachedAt() time.Time  { return time.UnixMilli(r.CachedAt) }
func (r record) expiresAt() time.Time { return time.UnixMilli(r.ExpiresAt) }

func (c *Cache) recordPath(key string) string {
	return filepath.Join(c.opts.Dir, key+".json")
}

func (c *Cache) writeRecord(key string, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal cache record: %w", err)
	}
	if err := os.WriteFile(c.recordPath(key), data, 0o644); err != nil {
		return fmt.Errorf("write cache record: %w", err)
	}
	return nil
}

func (c *Cache) readRecord(key string) (record, error) {
	data, err := os.ReadFile(c.recordPath(key))
	if err != nil {
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record{}, fmt.Errorf("parse cache record: %w", err)
	}
	if rec.Dimensions != len(rec.Vector) {
		return record{}, fmt.Errorf("cache record dimension mismatch: %d != %d", rec.Dimensions, len(rec.Vector))
	}
	return rec, nil
}

// loadPersisted rebuilds the volatile tier from the persistent tier at
// startup. Expired records are deleted instead of loaded; unreadable files
// are left for the next cleanup pass.
func (c *Cache) loadPersisted() error {
	dirEntries, err := os.ReadDir(c.opts.Dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}

	now := time.Now()
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		rec, err := c.readRecord(key)
		if err != nil {
			continue
		}
		if now.After(rec.expiresAt()) {
			_ = os.Remove(c.recordPath(key))
			continue
		}
		c.entries[key] = &entry{
			vector:     rec.Vector,
			dimensions: rec.Dimensions,
			cachedAt:   rec.cachedAt(),
			expiresAt:  rec.expiresAt(),
		}
		c.meta[key] = metadata{
			cachedAt:   rec.cachedAt(),
			expiresAt:  rec.expiresAt(),
			sizeBytes:  entrySizeBytes(rec.Dimensions),
			textLength: len(rec.Text),
		}
		c.totalSize += entrySizeBytes(rec.Dimensions)
	}
	return nil
}

// cleanupPersisted removes expired and corrupt files from the cache
// directory. A corrupt file is treated as expired, not retried.
func (c *Cache) cleanupPersisted(now time.Time) {
	dirEntries, err := os.ReadDir(c.opts.Dir)
	if err != nil {
		return
	}
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		rec, err := c.readRecord(key)
		if err != nil || now.After(rec.expiresAt()) {
			_ = os.Remove(c.recordPath(key))
		}
	}
}
