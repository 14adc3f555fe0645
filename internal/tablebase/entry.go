package tablebase

import (
	"sync/atomic"
)

// tablePayload is the parsed, format-specific body of a table file: either
// two (or one, if symmetric) pawnless perspectives, or four pawn file
// buckets each with one or two perspectives. DTZ payloads additionally
// carry the flags byte and value-folding map described in spec.md §3.
type tablePayload struct {
	hasPawns  bool
	symmetric bool
	isDTZ     bool

	pieces []*perspective    // pawnless: len 1 (symmetric) or 2
	pawns  [4][]*perspective // pawn file buckets a..d

	dtzFlags byte
	dtzMap   []byte
}

// dtzFlag bits, mirroring the "flags byte controlling perspective / map /
// doubling" of spec.md §3's DTZ entry.
const (
	dtzFlagPerspective byte = 1 << 0 // set if the table's single stored perspective was built for Black to move, clear for White
	dtzFlagMapped      byte = 1 << 1 // apply dtzMap[] value folding
	dtzFlagDouble      byte = 1 << 2 // double the decompressed value
)

// TableEntry is one installed material combination in the registry: an
// atomic readiness flag, its mapped file, and the parsed payload once
// loaded. ready transitions false->true exactly once for WDL tables;
// DTZ entries may be evicted and reloaded by the bounded LRU, resetting
// both ready and mmap together under the registry mutex.
type TableEntry struct {
	Key       uint64
	MirrorKey uint64
	Counts    pieceCounts
	HasPawns  bool
	Symmetric bool
	NumPieces int
	IsDTZ     bool

	ready atomic.Bool
	mmap  *mmapFile
	data  *tablePayload

	// invalid marks a slot whose file failed to parse, so subsequent
	// probes don't re-attempt loading it (spec.md §7: "a slot found
	// corrupt is marked invalid so subsequent probes are not
	// re-attempted").
	invalid atomic.Bool
}

// Ready reports whether the payload is loaded and safe to read without
// holding the registry mutex (acquire semantics via atomic.Bool).
func (e *TableEntry) Ready() bool {
	return e.ready.Load()
}

// Invalid reports whether a previous load attempt failed permanently.
func (e *TableEntry) Invalid() bool {
	return e.invalid.Load()
}

// publish installs a freshly parsed payload and file, then releases ready
// so concurrent readers observe a fully initialized entry (spec.md §5/§9:
// release store happens-after every store to the payload).
func (e *TableEntry) publish(f *mmapFile, data *tablePayload) {
	e.mmap = f
	e.data = data
	e.ready.Store(true)
}

// reset clears a loaded entry back to not-ready, unmapping its file. Used
// both for corrupt-load cleanup and DTZ LRU eviction.
func (e *TableEntry) reset() {
	e.ready.Store(false)
	if e.mmap != nil {
		e.mmap.close()
		e.mmap = nil
	}
	e.data = nil
}
