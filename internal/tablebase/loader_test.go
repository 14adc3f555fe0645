package tablebase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kagechess/kage/internal/board"
	"github.com/kagechess/kage/internal/storage"
)

func krvkKeyAndCounts(t *testing.T) (uint64, pieceCounts) {
	t.Helper()
	counts, err := parseMaterialName("KRvK")
	if err != nil {
		t.Fatalf("parseMaterialName: %v", err)
	}
	return board.MaterialKeyPCS([2][6]int(counts), false), counts
}

func writeKRvKFiles(t *testing.T, dir string) {
	t.Helper()
	wdl := buildPawnlessTable(false, false, krvkPieces, []byte{4, 2}, 0, nil)
	dtz := buildPawnlessTable(false, true, krvkPieces, []byte{1}, 0, nil)
	if err := os.WriteFile(filepath.Join(dir, "KRvK.rtbw"), wdl, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "KRvK.rtbz"), dtz, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestEnsureLoadedParsesAndPublishesWDL(t *testing.T) {
	dir := t.TempDir()
	writeKRvKFiles(t, dir)

	reg := NewRegistry(nil, 8)
	if err := reg.InitTables([]string{dir}); err != nil {
		t.Fatalf("InitTables: %v", err)
	}

	key, _ := krvkKeyAndCounts(t)
	entry := reg.lookup(key)
	if entry == nil {
		t.Fatal("expected a registered WDL entry")
	}

	if err := reg.ensureLoaded(entry); err != nil {
		t.Fatalf("ensureLoaded: %v", err)
	}
	if !entry.Ready() {
		t.Error("entry should be marked ready after a successful load")
	}
	if len(entry.data.pieces) != 2 {
		t.Errorf("expected 2 stored perspectives, got %d", len(entry.data.pieces))
	}
}

func TestEnsureLoadedAdmitsDTZEntryToLRU(t *testing.T) {
	dir := t.TempDir()
	writeKRvKFiles(t, dir)

	reg := NewRegistry(nil, 8)
	if err := reg.InitTables([]string{dir}); err != nil {
		t.Fatalf("InitTables: %v", err)
	}

	key, _ := krvkKeyAndCounts(t)
	entry := reg.lookupDTZ(key)
	if entry == nil {
		t.Fatal("expected a registered DTZ entry")
	}
	if err := reg.ensureLoaded(entry); err != nil {
		t.Fatalf("ensureLoaded: %v", err)
	}
	if len(reg.dtzLRU.entries) != 1 || reg.dtzLRU.entries[0] != entry {
		t.Error("a freshly loaded DTZ entry should be admitted to the front of the LRU")
	}
}

func TestEnsureLoadedMarksInvalidOnCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "KRvK.rtbw"), []byte("not a table"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "KRvK.rtbz"), []byte("not a table"), 0644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry(nil, 8)
	if err := reg.InitTables([]string{dir}); err != nil {
		t.Fatalf("InitTables: %v", err)
	}

	key, _ := krvkKeyAndCounts(t)
	entry := reg.lookup(key)
	if err := reg.ensureLoaded(entry); err == nil {
		t.Fatal("expected ensureLoaded to fail on a corrupt file")
	}
	if !entry.Invalid() {
		t.Error("entry should be marked invalid after a failed load")
	}

	if err := reg.ensureLoaded(entry); err == nil {
		t.Error("a second ensureLoaded on an invalid entry should fail fast without retrying")
	}
}

func TestLoadAndPublishConsultsDenylistAcrossRegistries(t *testing.T) {
	tbDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tbDir, "KRvK.rtbw"), []byte("not a table"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tbDir, "KRvK.rtbz"), []byte("not a table"), 0644); err != nil {
		t.Fatal(err)
	}

	cache, err := storage.NewHeaderCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("NewHeaderCacheAt: %v", err)
	}
	defer cache.Close()

	key, _ := krvkKeyAndCounts(t)

	first := NewRegistry(cache, 8)
	if err := first.InitTables([]string{tbDir}); err != nil {
		t.Fatalf("InitTables: %v", err)
	}
	entry := first.lookup(key)
	if err := first.ensureLoaded(entry); err == nil {
		t.Fatal("expected the first load to fail on a corrupt file")
	}

	info, err := os.Stat(filepath.Join(tbDir, "KRvK.rtbw"))
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := cache.Get(filepath.Join(tbDir, "KRvK.rtbw"), info.Size(), info.ModTime().UnixNano())
	if !ok || !rec.Invalid {
		t.Fatal("expected the denylist to record this file as invalid")
	}

	// A fresh registry (simulating a process restart) sharing the same
	// denylist should fail fast via loadAndPublish's denylist consult,
	// without depending on openMMap/parseTableHeader running again.
	second := NewRegistry(cache, 8)
	if err := second.InitTables([]string{tbDir}); err != nil {
		t.Fatalf("InitTables: %v", err)
	}
	entry2 := second.lookup(key)
	path := filepath.Join(tbDir, "KRvK.rtbw")
	if err := second.loadAndPublish(entry2, path); err == nil {
		t.Fatal("expected loadAndPublish to fail fast against a denylisted file")
	}
}
