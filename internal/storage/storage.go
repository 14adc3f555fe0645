// Package storage persists a denylist of tablebase files known to be
// corrupt, in a small embedded BadgerDB database, so a process restart does
// not repeat a doomed mmap-and-parse attempt on a file already found
// unreadable — spec.md §7's "marked invalid so subsequent probes are not
// re-attempted" extended across process lifetimes, not just within one.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// HeaderRecord is the cached verdict for one table file, keyed by identity
// (path, size, modification time) so a changed file is always treated as a
// cache miss rather than served a stale verdict.
type HeaderRecord struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	ModTimeNS int64  `json:"mod_time_ns"`
	Invalid   bool   `json:"invalid"`
}

// cacheKey identifies a header record by file path. The record's own
// Size/ModTimeNS fields double as the freshness check: a match on path with
// mismatched size or mtime is treated as a miss.
func cacheKey(path string) []byte {
	return []byte("hdr:" + path)
}

// HeaderCache wraps BadgerDB as a non-authoritative accelerator for table
// loading: a miss or a corrupt entry always falls back to re-parsing
// the file from disk, never to a correctness failure.
type HeaderCache struct {
	db *badger.DB
}

// NewHeaderCache opens (creating if necessary) the header cache database
// in the platform data directory.
func NewHeaderCache() (*HeaderCache, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return NewHeaderCacheAt(dbDir)
}

// NewHeaderCacheAt opens the header cache database at an explicit directory,
// bypassing the platform data directory — used by tests (in this package and
// by tablebase's loader tests) that need an isolated, disposable database.
func NewHeaderCacheAt(dir string) (*HeaderCache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &HeaderCache{db: db}, nil
}

// Close closes the underlying database.
func (c *HeaderCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the cached record for path if present and fresh (matching
// size and modTimeNS); a cache miss or any read error returns ok == false
// and the caller re-parses the file.
func (c *HeaderCache) Get(path string, size, modTimeNS int64) (rec HeaderRecord, ok bool) {
	if c == nil || c.db == nil {
		return rec, false
	}

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return HeaderRecord{}, false
	}
	if rec.Size != size || rec.ModTimeNS != modTimeNS {
		return HeaderRecord{}, false
	}
	return rec, true
}

// Put stores rec, overwriting any prior entry for the same path. Errors are
// non-fatal to the caller (the cache is an accelerator, not a dependency),
// so callers may ignore them beyond logging.
func (c *HeaderCache) Put(rec HeaderRecord) error {
	if c == nil || c.db == nil {
		return fmt.Errorf("storage: header cache not open")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(rec.Path), data)
	})
}
