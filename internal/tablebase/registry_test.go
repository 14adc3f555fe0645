package tablebase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kagechess/kage/internal/board"
)

func TestRegistryInitTablesSkipsMissingDir(t *testing.T) {
	reg := NewRegistry(nil, 8)
	if err := reg.InitTables([]string{"/nonexistent/path/for/kage/tests"}); err != nil {
		t.Fatalf("InitTables should tolerate a missing directory, got %v", err)
	}
	if reg.MaxCardinality() != 0 {
		t.Errorf("MaxCardinality() = %d, want 0 on empty registry", reg.MaxCardinality())
	}
}

func TestRegistryRegistersWDLAndDTZEntries(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"KQvKR.rtbw", "KQvKR.rtbz"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte{0}, 0644); err != nil {
			t.Fatal(err)
		}
	}

	reg := NewRegistry(nil, 8)
	if err := reg.InitTables([]string{dir}); err != nil {
		t.Fatalf("InitTables: %v", err)
	}

	counts, _ := parseMaterialName("KQvKR")
	key := board.MaterialKeyPCS([2][6]int(counts), false)

	wdlEntry := reg.lookup(key)
	if wdlEntry == nil {
		t.Fatal("expected a registered WDL entry for KQvKR")
	}
	if wdlEntry.IsDTZ {
		t.Error("WDL lookup returned an entry marked IsDTZ")
	}

	dtzEntry := reg.lookupDTZ(key)
	if dtzEntry == nil {
		t.Fatal("expected a registered DTZ entry for KQvKR")
	}
	if !dtzEntry.IsDTZ {
		t.Error("DTZ lookup returned an entry not marked IsDTZ")
	}

	if reg.MaxCardinality() != 3 {
		t.Errorf("MaxCardinality() = %d, want 3 (K+Q+R vs K)", reg.MaxCardinality())
	}
}

func TestDTZLRUEvictsTail(t *testing.T) {
	lru := newDTZLRU(2)
	a := &TableEntry{IsDTZ: true}
	b := &TableEntry{IsDTZ: true}
	c := &TableEntry{IsDTZ: true}

	lru.admit(a)
	lru.admit(b)
	if len(lru.entries) != 2 {
		t.Fatalf("expected 2 resident entries, got %d", len(lru.entries))
	}

	lru.admit(c)
	if len(lru.entries) != 2 {
		t.Fatalf("expected eviction to keep capacity at 2, got %d", len(lru.entries))
	}
	if lru.entries[0] != c {
		t.Error("most recently admitted entry should be at the front")
	}
	for _, e := range lru.entries {
		if e == a {
			t.Error("oldest entry should have been evicted")
		}
	}
}

func TestDTZLRUTouchMovesToFront(t *testing.T) {
	lru := newDTZLRU(3)
	a := &TableEntry{IsDTZ: true}
	b := &TableEntry{IsDTZ: true}
	lru.admit(a)
	lru.admit(b)

	lru.touch(a)
	if lru.entries[0] != a {
		t.Error("touch should move entry to front")
	}
}
