// Package cache provides a TTL-bounded embedding cache with a volatile
// in-memory tier and an optional per-key file tier. Lookups are fail-open:
// any internal error degrades to a cache miss, never an error to the caller.
package cache

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/veloce-ai/veloce/pkg/models"
)

// Backend selects which storage tiers are active.
type Backend string

const (
	// BackendMemory keeps entries in the volatile tier only.
	BackendMemory Backend = "memory"
	// BackendFile persists entries to per-key files, read through the
	// volatile tier for hot entries.
	BackendFile Backend = "file"
	// BackendHybrid keeps both tiers active simultaneously.
	BackendHybrid Backend = "hybrid"
)

// Lookup sources reported by Get.
const (
	SourceMemory = "memory"
	SourceFile   = "file"
)

// evictFraction is the share of MaxSize removed per eviction pass, oldest
// first by insertion time.
const evictFraction = 0.2

// Options configures a Cache. Zero values take defaults.
type Options struct {
	Backend         Backend
	TTL             time.Duration // default 24h
	MaxSize         int           // default 10000 entries
	Dir             string        // required for file/hybrid
	CleanupInterval time.Duration // default 1h
}

// LookupResult is the outcome of a Get. A miss carries no vector.
type LookupResult struct {
	Hit        bool
	Vector     []float64
	Dimensions int
	Source     string
}

// WriteResult is the outcome of a Set. A persistence failure does not roll
// back the volatile write; it is reported via PersistErr.
type WriteResult struct {
	Key        string
	Stored     bool
	Persisted  bool
	PersistErr error
}

type entry struct {
	vector     []float64
	dimensions int
	cachedAt   time.Time
	expiresAt  time.Time
}

// metadata mirrors entry presence so expiry and eviction decisions never
// touch the vector itself. meta[k] exists iff entries[k] exists.
type metadata struct {
	cachedAt   time.Time
	expiresAt  time.Time
	sizeBytes  int64
	textLength int
}

// Cache is a single-process embedding cache. All tiers and counters are
// guarded by one mutex; the cleanup goroutine serializes against
// foreground operations under the same lock.
type Cache struct {
	opts Options

	mu      sync.Mutex
	entries map[string]*entry
	meta    map[string]metadata

	hits        int64
	misses      int64
	sets        int64
	deletes     int64
	evictions   int64
	totalSize   int64
	lastCleanup time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Cache. For file and hybrid backends the directory is
// created if absent, persisted records are loaded, and expired files are
// deleted before the cleanup loop starts.
func New(opts Options) (*Cache, error) {
	if opts.Backend == "" {
		opts.Backend = BackendMemory
	}
	switch opts.Backend {
	case BackendMemory, BackendFile, BackendHybrid:
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 10000
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Hour
	}

	c := &Cache{
		opts:    opts,
		entries: make(map[string]*entry),
		meta:    make(map[string]metadata),
		done:    make(chan struct{}),
	}

	if c.persistent() {
		if opts.Dir == "" {
			return nil, fmt.Errorf("cache backend %q requires a directory", opts.Backend)
		}
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		if err := c.loadPersisted(); err != nil {
			return nil, err
		}
	}

	c.CleanupExpired()

	c.wg.Add(1)
	go c.cleanupLoop()

	return c, nil
}

func (c *Cache) persistent() bool {
	return c.opts.Backend == BackendFile || c.opts.Backend == BackendHybrid
}

// Get looks up the vector for a (text, options) pair. Expired entries are
// removed from both tiers and counted as misses. Valid persistent-tier
// records are promoted into the volatile tier. Get never returns an error.
func (c *Cache) Get(text string, opts EmbedOptions) LookupResult {
	key := Key(text, opts)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		if now.After(e.expiresAt) {
			c.removeLocked(key)
			c.misses++
			return LookupResult{}
		}
		c.hits++
		return LookupResult{
			Hit:        true,
			Vector:     cloneVector(e.vector),
			Dimensions: e.dimensions,
			Source:     SourceMemory,
		}
	}

	if c.persistent() {
		rec, err := c.readRecord(key)
		if err == nil {
			if now.After(rec.expiresAt()) {
				_ = os.Remove(c.recordPath(key))
				c.misses++
				return LookupResult{}
			}
			c.promoteLocked(key, rec)
			c.hits++
			return LookupResult{
				Hit:        true,
				Vector:     cloneVector(rec.Vector),
				Dimensions: rec.Dimensions,
				Source:     SourceFile,
			}
		}
	}

	c.misses++
	return LookupResult{}
}

// Set stores a vector under the key derived from (text, options). The size
// limit is enforced before insertion, so the volatile tier never exceeds
// MaxSize after a Set returns.
func (c *Cache) Set(text string, vector []float64, opts EmbedOptions) WriteResult {
	key := Key(text, opts)
	now := time.Now()
	size := entrySizeBytes(len(vector))

	c.mu.Lock()
	defer c.mu.Unlock()

	c.enforceSizeLimitLocked()

	// Overwriting an existing key replaces its recorded size.
	if old, ok := c.meta[key]; ok {
		c.totalSize -= old.sizeBytes
	}

	c.entries[key] = &entry{
		vector:     cloneVector(vector),
		dimensions: len(vector),
		cachedAt:   now,
		expiresAt:  now.Add(c.opts.TTL),
	}
	c.meta[key] = metadata{
		cachedAt:   now,
		expiresAt:  now.Add(c.opts.TTL),
		sizeBytes:  size,
		textLength: len(text),
	}
	c.sets++
	c.totalSize += size

	res := WriteResult{Key: key, Stored: true}
	if c.persistent() {
		rec := record{
			Vector:     vector,
			Dimensions: len(vector),
			Text:       text,
			Options:    opts,
			CachedAt:   now.UnixMilli(),
			ExpiresAt:  now.Add(c.opts.TTL).UnixMilli(),
		}
		if err := c.writeRecord(key, rec); err != nil {
			res.PersistErr = err
		} else {
			res.Persisted = true
		}
	}
	return res
}

// Delete removes a key from both tiers. It reports whether anything was
// removed; deleting an absent key is a no-op.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(key)
}

// Clear empties both tiers and resets the size gauge.
func (c *Cache) Clear() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := len(c.entries)
	if c.persistent() {
		for key := range c.meta {
			_ = os.Remove(c.recordPath(key))
		}
	}
	c.entries = make(map[string]*entry)
	c.meta = make(map[string]metadata)
	c.deletes += int64(removed)
	c.totalSize = 0
	return true
}

// CleanupExpired deletes every expired entry from the volatile tier and,
// for file/hybrid backends, every expired or corrupt persisted file.
func (c *Cache) CleanupExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, m := range c.meta {
		if now.After(m.expiresAt) {
			c.removeLocked(key)
		}
	}
	if c.persistent() {
		c.cleanupPersisted(now)
	}
	c.lastCleanup = now
}

// Stats returns a snapshot of the cache counters with derived rates.
func (c *Cache) Stats() models.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := models.CacheStats{
		Entries:        len(c.entries),
		Hits:           c.hits,
		Misses:         c.misses,
		Sets:           c.sets,
		Deletes:        c.deletes,
		Evictions:      c.evictions,
		TotalSizeBytes: c.totalSize,
		LastCleanupAt:  c.lastCleanup,
	}
	if lookups := c.hits + c.misses; lookups > 0 {
		s.HitRate = float64(c.hits) / float64(lookups)
	}
	if len(c.entries) > 0 {
		s.AvgEntrySize = float64(c.totalSize) / float64(len(c.entries))
	}
	return s
}

// ResetStats zeroes the counters. The size gauge is left alone since it
// tracks live entries, not history.
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits, c.misses, c.sets, c.deletes, c.evictions = 0, 0, 0, 0, 0
	c.lastCleanup = time.Time{}
}

// Close stops the background cleanup goroutine.
func (c *Cache) Close() {
	close(c.done)
	c.wg.Wait()
}

func (c *Cache) cleanupLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opts.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.CleanupExpired()
		}
	}
}

// enforceSizeLimitLocked evicts the oldest entries by insertion time when
// the volatile tier is at capacity. FIFO rather than LRU: hot texts are
// re-inserted after eviction and refresh their position naturally.
func (c *Cache) enforceSizeLimitLocked() {
	if len(c.entries) < c.opts.MaxSize {
		return
	}

	keys := make([]string, 0, len(c.meta))
	for key := range c.meta {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.meta[keys[i]].cachedAt.Before(c.meta[keys[j]].cachedAt)
	})

	evictCount := int(float64(c.opts.MaxSize) * evictFraction)
	if evictCount > len(keys) {
		evictCount = len(keys)
	}
	for _, key := range keys[:evictCount] {
		if c.removeLocked(key) {
			c.evictions++
		}
	}
}

// removeLocked deletes a key from both tiers and keeps the counters
// consistent. Returns false if the key was absent.
func (c *Cache) removeLocked(key string) bool {
	m, ok := c.meta[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	delete(c.meta, key)
	c.totalSize -= m.sizeBytes
	c.deletes++
	if c.persistent() {
		_ = os.Remove(c.recordPath(key))
	}
	return true
}

// promoteLocked copies a persisted record into the volatile tier so
// subsequent lookups hit memory.
func (c *Cache) promoteLocked(key string, rec record) {
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

// entrySizeBytes estimates storage for capacity accounting: 8 bytes per
// float64 component. Not a byte-exact measure.
func entrySizeBytes(dimensions int) int64 {
	return int64(dimensions) * 8
}

func cloneVector(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
