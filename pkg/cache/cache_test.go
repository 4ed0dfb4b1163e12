package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var testOpts = EmbedOptions{Model: "text-embedding-3-small", Dimensions: 3}

func newTestCache(t *testing.T, opts Options) *Cache {
	t.Helper()
	c, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestSetGetRoundTrip(t *testing.T) {
	c := newTestCache(t, Options{Backend: BackendMemory, TTL: time.Hour})

	vec := []float64{0.1, 0.2, 0.3}
	w := c.Set("hello world", vec, testOpts)
	if !w.Stored {
		t.Fatal("expected entry to be stored")
	}

	res := c.Get("hello world", testOpts)
	if !res.Hit {
		t.Fatal("expected cache hit")
	}
	if res.Source != SourceMemory {
		t.Errorf("expected memory source, got %s", res.Source)
	}
	if len(res.Vector) != 3 || res.Vector[1] != 0.2 {
		t.Errorf("unexpected vector: %v", res.Vector)
	}
	if res.Dimensions != 3 {
		t.Errorf("expected 3 dimensions, got %d", res.Dimensions)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	c := newTestCache(t, Options{Backend: BackendMemory, TTL: time.Hour})
	c.Set("text", []float64{1, 2, 3}, testOpts)

	res := c.Get("text", testOpts)
	res.Vector[0] = 99

	again := c.Get("text", testOpts)
	if again.Vector[0] != 1 {
		t.Error("caller mutation should not reach cache storage")
	}
}

func TestTTLExpiration(t *testing.T) {
	c := newTestCache(t, Options{Backend: BackendMemory, TTL: 10 * time.Millisecond})

	c.Set("text", []float64{0.1}, testOpts)
	time.Sleep(30 * time.Millisecond)

	res := c.Get("text", testOpts)
	if res.Hit {
		t.Error("expected miss after TTL expiration")
	}
	if n := c.Stats().Entries; n != 0 {
		t.Errorf("expired entry should be removed, %d entries left", n)
	}
}

func TestDelete(t *testing.T) {
	c := newTestCache(t, Options{Backend: BackendMemory, TTL: time.Hour})

	w := c.Set("text", []float64{0.1, 0.2}, testOpts)
	if !c.Delete(w.Key) {
		t.Error("expected delete to remove the entry")
	}
	if c.Delete(w.Key) {
		t.Error("deleting an absent key should return false")
	}
	if c.Get("text", testOpts).Hit {
		t.Error("expected miss after delete")
	}
	if size := c.Stats().TotalSizeBytes; size != 0 {
		t.Errorf("expected size 0 after delete, got %d", size)
	}
}

func TestClear(t *testing.T) {
	c := newTestCache(t, Options{Backend: BackendMemory, TTL: time.Hour})

	for i := range 3 {
		c.Set(fmt.Sprintf("text-%d", i), []float64{float64(i)}, testOpts)
	}
	if !c.Clear() {
		t.Fatal("expected clear to succeed")
	}

	stats := c.Stats()
	if stats.Entries != 0 {
		t.Errorf("expected 0 entries, got %d", stats.Entries)
	}
	if stats.Deletes != 3 {
		t.Errorf("expected 3 deletes, got %d", stats.Deletes)
	}
	if stats.TotalSizeBytes != 0 {
		t.Errorf("expected size 0, got %d", stats.TotalSizeBytes)
	}
}

func TestSizeBound(t *testing.T) {
	c := newTestCache(t, Options{Backend: BackendMemory, TTL: time.Hour, MaxSize: 5})

	for i := range 20 {
		c.Set(fmt.Sprintf("text-%d", i), []float64{float64(i)}, testOpts)
		if n := c.Stats().Entries; n > 5 {
			t.Fatalf("entry count %d exceeds max size after set %d", n, i)
		}
	}
}

func TestEvictionOrder(t *testing.T) {
	c := newTestCache(t, Options{Backend: BackendMemory, TTL: time.Hour, MaxSize: 10})

	// Distinct cachedAt values, oldest first.
	for i := range 10 {
		c.Set(fmt.Sprintf("text-%d", i), []float64{float64(i)}, testOpts)
		time.Sleep(2 * time.Millisecond)
	}

	// The insert at capacity evicts the oldest 20% (2 entries).
	c.Set("text-10", []float64{10}, testOpts)

	stats := c.Stats()
	if stats.Evictions != 2 {
		t.Fatalf("expected 2 evictions, got %d", stats.Evictions)
	}
	for i := range 2 {
		if c.Get(fmt.Sprintf("text-%d", i), testOpts).Hit {
			t.Errorf("expected text-%d to be evicted", i)
		}
	}
	for i := 2; i <= 10; i++ {
		if !c.Get(fmt.Sprintf("text-%d", i), testOpts).Hit {
			t.Errorf("expected text-%d to survive eviction", i)
		}
	}
}

func TestStatsHitRate(t *testing.T) {
	c := newTestCache(t, Options{Backend: BackendMemory, TTL: time.Hour})

	c.Set("text", []float64{0.1}, testOpts)
	for range 3 {
		c.Get("text", testOpts)
	}
	c.Get("absent", testOpts)

	stats := c.Stats()
	if stats.Hits != 3 || stats.Misses != 1 {
		t.Fatalf("expected 3 hits / 1 miss, got %d / %d", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.75 {
		t.Errorf("expected hit rate 0.75, got %v", stats.HitRate)
	}
	if stats.AvgEntrySize != 8 {
		t.Errorf("expected avg entry size 8, got %v", stats.AvgEntrySize)
	}
}

func TestResetStats(t *testing.T) {
	c := newTestCache(t, Options{Backend: BackendMemory, TTL: time.Hour})

	c.Set("text", []float64{0.1}, testOpts)
	c.Get("text", testOpts)
	c.ResetStats()

	stats := c.Stats()
	if stats.Hits != 0 || stats.Sets != 0 {
		t.Error("expected counters to be zeroed")
	}
	if stats.Entries != 1 {
		t.Error("reset should not drop entries")
	}
}

func TestPersistenceSurvival(t *testing.T) {
	dir := t.TempDir()

	c1, err := New(Options{Backend: BackendHybrid, TTL: time.Hour, Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	w := c1.Set("persist me", []float64{0.5, 0.6}, testOpts)
	if !w.Persisted {
		t.Fatalf("expected persisted write: %v", w.PersistErr)
	}
	c1.Close()

	c2 := newTestCache(t, Options{Backend: BackendHybrid, TTL: time.Hour, Dir: dir})
	res := c2.Get("persist me", testOpts)
	if !res.Hit {
		t.Fatal("expected hit after restart")
	}
	if res.Vector[1] != 0.6 {
		t.Errorf("unexpected vector after restart: %v", res.Vector)
	}
}

func TestExpiredFileNotLoaded(t *testing.T) {
	dir := t.TempDir()

	c1, err := New(Options{Backend: BackendFile, TTL: 10 * time.Millisecond, Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	w := c1.Set("stale", []float64{0.1}, testOpts)
	c1.Close()

	time.Sleep(30 * time.Millisecond)

	c2 := newTestCache(t, Options{Backend: BackendFile, TTL: 10 * time.Millisecond, Dir: dir})
	if c2.Get("stale", testOpts).Hit {
		t.Error("expected miss for expired persisted record")
	}
	if _, err := os.Stat(filepath.Join(dir, w.Key+".json")); !os.IsNotExist(err) {
		t.Error("expected expired record file to be deleted at startup")
	}
}

func TestFileTierPromotion(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, Options{Backend: BackendFile, TTL: time.Hour, Dir: dir})

	// Simulate a record written by another run that is absent from the
	// volatile tier.
	key := Key("cold entry", testOpts)
	now := time.Now()
	rec := record{
		Vector:     []float64{0.7, 0.8},
		Dimensions: 2,
		Text:       "cold entry",
		Options:    testOpts,
		CachedAt:   now.UnixMilli(),
		ExpiresAt:  now.Add(time.Hour).UnixMilli(),
	}
	data, _ := json.Marshal(rec)
	if err := os.WriteFile(filepath.Join(dir, key+".json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	res := c.Get("cold entry", testOpts)
	if !res.Hit {
		t.Fatal("expected hit from persistent tier")
	}
	if res.Source != SourceFile {
		t.Errorf("expected file source, got %s", res.Source)
	}

	// Promotion makes the next lookup a memory hit.
	if again := c.Get("cold entry", testOpts); again.Source != SourceMemory {
		t.Errorf("expected memory source after promotion, got %s", again.Source)
	}
}

func TestCleanupExpiredRemovesCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, Options{Backend: BackendHybrid, TTL: time.Hour, Dir: dir})

	corrupt := filepath.Join(dir, "bogus.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	c.CleanupExpired()

	if _, err := os.Stat(corrupt); !os.IsNotExist(err) {
		t.Error("expected corrupt file to be removed")
	}
	if c.Stats().LastCleanupAt.IsZero() {
		t.Error("expected last cleanup timestamp to be set")
	}
}

func TestSetPersistFailureDegrades(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, Options{Backend: BackendFile, TTL: time.Hour, Dir: dir})

	// Removing the directory makes the file-tier write fail.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	w := c.Set("text", []float64{0.1}, testOpts)
	if !w.Stored {
		t.Error("volatile write should survive a persistence failure")
	}
	if w.Persisted || w.PersistErr == nil {
		t.Error("expected persistence failure to be reported")
	}
	if !c.Get("text", testOpts).Hit {
		t.Error("entry should still be served from memory")
	}
}

func TestDeleteRemovesPersistedFile(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, Options{Backend: BackendHybrid, TTL: time.Hour, Dir: dir})

	w := c.Set("text", []float64{0.1}, testOpts)
	c.Delete(w.Key)

	if _, err := os.Stat(filepath.Join(dir, w.Key+".json")); !os.IsNotExist(err) {
		t.Error("expected record file to be removed with the entry")
	}
}

func TestUnknownBackend(t *testing.T) {
	if _, err := New(Options{Backend: "redis"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestFileBackendRequiresDir(t *testing.T) {
	if _, err := New(Options{Backend: BackendFile}); err == nil {
		t.Error("expected error for file backend without directory")
	}
}
