package storage

import (
	"os"
	"testing"
)

func newTestCache(t *testing.T) *HeaderCache {
	t.Helper()
	c, err := NewHeaderCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("NewHeaderCacheAt failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestHeaderCache(t *testing.T) {
	c := newTestCache(t)

	t.Run("MissOnEmpty", func(t *testing.T) {
		_, ok := c.Get("/tb/KQvK.rtbw", 1024, 12345)
		if ok {
			t.Errorf("expected miss on empty cache")
		}
	})

	t.Run("PutThenGet", func(t *testing.T) {
		rec := HeaderRecord{
			Path: "/tb/KQvK.rtbw", Size: 1024, ModTimeNS: 12345, Invalid: true,
		}
		if err := c.Put(rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, ok := c.Get("/tb/KQvK.rtbw", 1024, 12345)
		if !ok {
			t.Fatalf("expected hit after Put")
		}
		if got.Invalid != rec.Invalid {
			t.Errorf("got %+v, want %+v", got, rec)
		}
	})

	t.Run("StaleOnSizeMismatch", func(t *testing.T) {
		rec := HeaderRecord{Path: "/tb/KRvK.rtbw", Size: 2048, ModTimeNS: 99}
		if err := c.Put(rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if _, ok := c.Get("/tb/KRvK.rtbw", 2049, 99); ok {
			t.Errorf("expected miss when file size changed")
		}
	})
}

func TestDataPaths(t *testing.T) {
	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if dataDir == "" {
		t.Error("GetDataDir returned empty path")
	}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("Data directory was not created: %s", dataDir)
	}
}
