package tablebase

import (
	"fmt"
	"log"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/kagechess/kage/internal/storage"
)

// dtzLRU is a bounded, fixed-capacity move-to-front cache of resident DTZ
// TableEntrys. A successful load moves its entry to the front; a miss
// evicts the tail. Capacity defaults to 64 (spec.md §4.E's DTZ_ENTRIES) and
// is a tuning knob, not part of the contract.
type dtzLRU struct {
	capacity int
	entries  []*TableEntry // entries[0] is most-recently-used
}

func newDTZLRU(capacity int) *dtzLRU {
	if capacity <= 0 {
		capacity = 64
	}
	return &dtzLRU{capacity: capacity}
}

// touch moves e to the front if present.
func (l *dtzLRU) touch(e *TableEntry) {
	for i, cur := range l.entries {
		if cur == e {
			copy(l.entries[1:i+1], l.entries[:i])
			l.entries[0] = e
			return
		}
	}
}

// admit inserts a freshly loaded entry at the front, evicting and
// unmapping the tail if the LRU is at capacity.
func (l *dtzLRU) admit(e *TableEntry) {
	if len(l.entries) >= l.capacity {
		tail := l.entries[len(l.entries)-1]
		tail.reset()
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append([]*TableEntry{e}, l.entries...)
}

// fileIdentity hashes a file's path together with its size and modification
// time into a short id for the log line written when a table is marked
// invalid.
func fileIdentity(path string, size, modTimeNS int64) uint64 {
	h := xxhash.New()
	h.WriteString(path)
	var buf [16]byte
	putUint64(buf[0:8], uint64(size))
	putUint64(buf[8:16], uint64(modTimeNS))
	h.Write(buf[:])
	return h.Sum64()
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// ensureLoaded implements the double-checked lazy init of spec.md §4.E/§9:
// acquire-read of ready; if false, take the registry mutex, relaxed
// re-read, and on a still-false result, map + parse + publish with release
// ordering. DTZ entries additionally participate in the bounded LRU.
func (r *Registry) ensureLoaded(e *TableEntry) error {
	if e.Ready() {
		return nil
	}
	if e.Invalid() {
		return fmt.Errorf("tablebase: table marked invalid, not retrying")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Ready() {
		return nil
	}
	if e.Invalid() {
		return fmt.Errorf("tablebase: table marked invalid, not retrying")
	}

	ext := wdlExt
	if e.IsDTZ {
		ext = dtzExt
	}
	name := e.Counts.materialName()
	path := locateTable(r.dirs, name, ext)
	if path == "" {
		return fmt.Errorf("tablebase: table absent: %s%s", name, ext)
	}

	if err := r.loadAndPublish(e, path); err != nil {
		e.invalid.Store(true)
		if info, statErr := os.Stat(path); statErr == nil {
			log.Printf("[Tablebase] marking %s invalid (id %x): %v", path, fileIdentity(path, info.Size(), info.ModTime().UnixNano()), err)
			if r.headerCache != nil {
				rec := storage.HeaderRecord{Path: path, Size: info.Size(), ModTimeNS: info.ModTime().UnixNano(), Invalid: true}
				if cacheErr := r.headerCache.Put(rec); cacheErr != nil {
					log.Printf("[Tablebase] header cache write failed for %s: %v", path, cacheErr)
				}
			}
		}
		return err
	}

	if e.IsDTZ {
		r.dtzLRU.admit(e)
	}

	return nil
}

// loadAndPublish maps path, parses its header, and publishes the entry. A
// file already denylisted as corrupt by a previous process (same path,
// size, and modification time) fails immediately without ever touching the
// mmap. A malformed file unmaps cleanly on every exit path.
func (r *Registry) loadAndPublish(e *TableEntry, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("tablebase: stat %s: %w", path, err)
	}

	if r.headerCache != nil {
		if rec, ok := r.headerCache.Get(path, info.Size(), info.ModTime().UnixNano()); ok && rec.Invalid {
			return fmt.Errorf("tablebase: %s denylisted as corrupt by a previous run", path)
		}
	}

	f, err := openMMap(path)
	if err != nil {
		return err
	}

	payload, err := parseTableHeader(f.bytes(), e.Key, e.Counts, e.IsDTZ)
	if err != nil {
		f.close()
		return err
	}

	e.publish(f, payload)
	return nil
}
