package tablebase

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kagechess/kage/internal/board"
	"github.com/kagechess/kage/internal/storage"
)

// tbHashBits sizes the registry's open-addressed hash table: 1<<tbHashBits
// buckets, each holding up to hshMax slots, matching spec.md §4.D.
const (
	tbHashBits = 12
	hshMax     = 5
)

// hashSlot is one (key, entry) slot in a registry bucket.
type hashSlot struct {
	key   uint64
	entry *TableEntry
}

// Registry enumerates every installed material combination once at
// InitTables and is read-only afterward; a separate DTZ LRU (loader.go)
// tracks which DTZ payloads are currently resident. WDL and DTZ tables for
// the same material are distinct TableEntrys (distinct files, distinct
// lifecycle: WDL stays resident once loaded, DTZ is LRU-bounded).
type Registry struct {
	wdlBuckets [1 << tbHashBits][hshMax]hashSlot
	dtzBuckets [1 << tbHashBits][hshMax]hashSlot

	mu             sync.Mutex // serializes WDL lazy-load and DTZ LRU mutation
	dirs           []string
	maxCardinality int
	headerCache    *storage.HeaderCache

	dtzLRU *dtzLRU
}

// NewRegistry creates an empty registry. headerCache may be nil, in which
// case no corrupt-file denylist is consulted or recorded when tables load;
// it is never required for correctness, only for skipping known-corrupt
// files across process restarts.
func NewRegistry(headerCache *storage.HeaderCache, dtzCapacity int) *Registry {
	return &Registry{
		headerCache: headerCache,
		dtzLRU:      newDTZLRU(dtzCapacity),
	}
}

// bucketIndex hashes a material key to its bucket by taking the top
// tbHashBits, as spec.md §4.D specifies.
func bucketIndex(key uint64) uint64 {
	return key >> (64 - tbHashBits)
}

// lookup finds the WDL entry for key, or nil if no table was enumerated
// for it.
func (r *Registry) lookup(key uint64) *TableEntry {
	return lookupIn(&r.wdlBuckets, key)
}

// lookupDTZ finds the DTZ entry for key, or nil.
func (r *Registry) lookupDTZ(key uint64) *TableEntry {
	return lookupIn(&r.dtzBuckets, key)
}

func lookupIn(buckets *[1 << tbHashBits][hshMax]hashSlot, key uint64) *TableEntry {
	bucket := &buckets[bucketIndex(key)]
	for i := 0; i < hshMax; i++ {
		if bucket[i].entry != nil && bucket[i].key == key {
			return bucket[i].entry
		}
	}
	return nil
}

// insertIn places entry under key in its bucket, growing into the first free
// or matching slot. Silently drops the insertion if the bucket is full
// (hshMax collisions on the same top bits is not expected in practice for
// the real tablebase cardinality range).
func insertIn(buckets *[1 << tbHashBits][hshMax]hashSlot, key uint64, entry *TableEntry) {
	bucket := &buckets[bucketIndex(key)]
	for i := 0; i < hshMax; i++ {
		if bucket[i].entry == nil || bucket[i].key == key {
			bucket[i] = hashSlot{key: key, entry: entry}
			return
		}
	}
	log.Printf("[Tablebase] registry bucket full for key %x, dropping table", key)
}

// MaxCardinality is the largest piece count of any successfully enumerated
// table.
func (r *Registry) MaxCardinality() int {
	return r.maxCardinality
}

// touchDTZ moves a resident DTZ entry to the front of the LRU on a cache
// hit, so admit()'s eviction favors recently probed endgames.
func (r *Registry) touchDTZ(e *TableEntry) {
	r.mu.Lock()
	r.dtzLRU.touch(e)
	r.mu.Unlock()
}

// InitTables enumerates every *.rtbw file in dirs (DTZ files are discovered
// lazily alongside their WDL sibling), computes each file's canonical and
// mirror material keys from its name, and populates the registry. It does
// not load any payload; that happens on first probe via the DCL loader.
func (r *Registry) InitTables(dirs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dirs = append([]string(nil), dirs...)
	r.maxCardinality = 0

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // missing/unreadable directory: not fatal, just contributes nothing
		}
		for _, de := range entries {
			if de.IsDir() || !strings.HasSuffix(de.Name(), wdlExt) {
				continue
			}
			name := strings.TrimSuffix(de.Name(), wdlExt)
			if err := r.registerTable(dir, name); err != nil {
				log.Printf("[Tablebase] skipping %s: %v", name, err)
			}
		}
	}

	return nil
}

func (r *Registry) registerTable(dir, name string) error {
	counts, err := parseMaterialName(name)
	if err != nil {
		return err
	}

	key := board.MaterialKeyPCS([2][6]int(counts), false)
	mirrorKey := board.MaterialKeyPCS([2][6]int(counts), true)

	wdl := &TableEntry{
		Key:       key,
		MirrorKey: mirrorKey,
		Counts:    counts,
		HasPawns:  counts.hasPawns(),
		Symmetric: counts.symmetric(),
		NumPieces: counts.totalPieces(),
	}
	dtz := &TableEntry{
		Key:       key,
		MirrorKey: mirrorKey,
		Counts:    counts,
		HasPawns:  wdl.HasPawns,
		Symmetric: wdl.Symmetric,
		NumPieces: wdl.NumPieces,
		IsDTZ:     true,
	}

	insertIn(&r.wdlBuckets, key, wdl)
	insertIn(&r.dtzBuckets, key, dtz)
	if mirrorKey != key {
		insertIn(&r.wdlBuckets, mirrorKey, wdl)
		insertIn(&r.dtzBuckets, mirrorKey, dtz)
	}

	if wdl.NumPieces > r.maxCardinality {
		r.maxCardinality = wdl.NumPieces
	}

	_ = filepath.Join(dir, name) // path resolution happens at load time via locateTable
	return nil
}
