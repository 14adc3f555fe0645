package tablebase

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/kagechess/kage/internal/board"
)

// cacheShards sizes CachedProber's striped map: enough to keep lock
// contention low under concurrent search threads without the bookkeeping
// of a full LRU per shard.
const cacheShards = 16

type cacheShard struct {
	mu    sync.RWMutex
	items map[uint64]ProbeResult
}

// CachedProber wraps another prober with a sharded position cache. Shard
// selection hashes the position key with xxhash rather than using it
// directly, so probes against positions that happen to share low bits
// (successive positions along one game line often do) don't pile into a
// single shard.
type CachedProber struct {
	inner   Prober
	shards  [cacheShards]cacheShard
	perSize int

	hits   uint64
	misses uint64
}

// NewCachedProber creates a cached prober wrapping the given prober.
func NewCachedProber(inner Prober, cacheSize int) *CachedProber {
	cp := &CachedProber{inner: inner, perSize: cacheSize / cacheShards}
	if cp.perSize < 64 {
		cp.perSize = 64
	}
	for i := range cp.shards {
		cp.shards[i].items = make(map[uint64]ProbeResult, cp.perSize)
	}
	return cp
}

// NewCachedLichessProber creates a cached Lichess prober with default cache size.
func NewCachedLichessProber() *CachedProber {
	return NewCachedProber(NewLichessProber(), 100000)
}

func shardIndex(key uint64) int {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return int(xxhash.Sum64(buf[:]) % cacheShards)
}

func (cp *CachedProber) Probe(pos *board.Position) ProbeResult {
	shard := &cp.shards[shardIndex(pos.Hash)]

	shard.mu.RLock()
	if result, ok := shard.items[pos.Hash]; ok {
		shard.mu.RUnlock()
		atomic.AddUint64(&cp.hits, 1)
		return result
	}
	shard.mu.RUnlock()

	result := cp.inner.Probe(pos)
	atomic.AddUint64(&cp.misses, 1)

	shard.mu.Lock()
	if len(shard.items) >= cp.perSize {
		i := 0
		for k := range shard.items {
			if i >= cp.perSize/2 {
				break
			}
			delete(shard.items, k)
			i++
		}
	}
	shard.items[pos.Hash] = result
	shard.mu.Unlock()

	return result
}

func (cp *CachedProber) ProbeRoot(pos *board.Position) RootResult {
	// Root probing is not cached (needs move info).
	return cp.inner.ProbeRoot(pos)
}

func (cp *CachedProber) MaxPieces() int {
	return cp.inner.MaxPieces()
}

func (cp *CachedProber) Available() bool {
	return cp.inner.Available()
}

// HitRate returns the cache hit rate as a percentage.
func (cp *CachedProber) HitRate() float64 {
	hits := atomic.LoadUint64(&cp.hits)
	misses := atomic.LoadUint64(&cp.misses)
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// CacheSize returns the current number of cached entries across all shards.
func (cp *CachedProber) CacheSize() int {
	n := 0
	for i := range cp.shards {
		cp.shards[i].mu.RLock()
		n += len(cp.shards[i].items)
		cp.shards[i].mu.RUnlock()
	}
	return n
}

// Clear empties every shard and resets hit/miss counters.
func (cp *CachedProber) Clear() {
	for i := range cp.shards {
		cp.shards[i].mu.Lock()
		cp.shards[i].items = make(map[uint64]ProbeResult, cp.perSize)
		cp.shards[i].mu.Unlock()
	}
	atomic.StoreUint64(&cp.hits, 0)
	atomic.StoreUint64(&cp.misses, 0)
}
