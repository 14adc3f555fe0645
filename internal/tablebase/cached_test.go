package tablebase

import (
	"testing"

	"github.com/kagechess/kage/internal/board"
)

func TestCachedProberHitsAfterFirstProbe(t *testing.T) {
	cp := NewCachedProber(NoopProber{}, 1024)
	pos := board.NewPosition()

	cp.Probe(pos)
	cp.Probe(pos)

	if cp.CacheSize() != 1 {
		t.Errorf("CacheSize() = %d, want 1", cp.CacheSize())
	}
	if rate := cp.HitRate(); rate <= 0 {
		t.Errorf("HitRate() = %f, want > 0 after a repeat probe", rate)
	}
}

func TestCachedProberClear(t *testing.T) {
	cp := NewCachedProber(NoopProber{}, 1024)
	cp.Probe(board.NewPosition())
	cp.Clear()

	if cp.CacheSize() != 0 {
		t.Errorf("CacheSize() after Clear() = %d, want 0", cp.CacheSize())
	}
	if rate := cp.HitRate(); rate != 0 {
		t.Errorf("HitRate() after Clear() = %f, want 0", rate)
	}
}

func TestShardIndexWithinRange(t *testing.T) {
	for _, key := range []uint64{0, 1, 0xffffffffffffffff, 12345} {
		idx := shardIndex(key)
		if idx < 0 || idx >= cacheShards {
			t.Errorf("shardIndex(%d) = %d out of range [0,%d)", key, idx, cacheShards)
		}
	}
}
