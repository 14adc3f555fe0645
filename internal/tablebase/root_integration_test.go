package tablebase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kagechess/kage/internal/board"
)

// TestRootProbeDTZFailsWhenANonZeroingCandidateHasNoTable exercises
// RootProbeDTZ end to end against real WDL fixtures with no DTZ file
// installed. The root move itself (Qxa8) resolves via the zeroing-move WDL
// shortcut with no DTZ table needed, but every quiet king move reaching a
// fifty-move-clock-nonzero position requires a genuine DTZ probe — which
// fails (no KQvKR.rtbz on disk). RootProbeDTZ must propagate that failure
// rather than return a move list built from only the candidates that
// happened to resolve.
func TestRootProbeDTZFailsWhenANonZeroingCandidateHasNoTable(t *testing.T) {
	dir := t.TempDir()
	kqvkr := buildPawnlessTable(false, false, kqvkrPieces, []byte{4, 0}, 0, nil)
	kqvk := buildPawnlessTable(false, false, kqvkPieces, []byte{4, 0}, 0, nil)
	if err := os.WriteFile(filepath.Join(dir, "KQvKR.rtbw"), kqvkr, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "KQvK.rtbw"), kqvk, 0644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry(nil, 8)
	if err := reg.InitTables([]string{dir}); err != nil {
		t.Fatalf("InitTables: %v", err)
	}
	wdl := NewLocalProber(reg)
	dtz := NewDTZProber(reg, wdl)
	rp := NewRootProber(wdl, dtz)

	pos, err := board.ParseFEN("r6k/8/8/8/Q7/8/8/7K w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	if _, _, ok := rp.RootProbeDTZ(pos, nil); ok {
		t.Error("RootProbeDTZ should fail rather than silently drop an unresolved quiet candidate")
	}
}

// TestRootProbeDTZResolvesWhenEveryCandidateIsZeroing confirms the positive
// case: if every legal root move zeroes the fifty-move counter, the root
// probe never needs a DTZ table at all and RootProbeDTZ succeeds using only
// the WDL fixtures' zeroing-move shortcut.
func TestRootProbeDTZResolvesWhenEveryCandidateIsZeroing(t *testing.T) {
	dir := t.TempDir()
	pieces := []pieceSpec{
		{color: board.White, ptype: board.King},
		{color: board.Black, ptype: board.King},
		{color: board.Black, ptype: board.Queen},
	}
	kvkq := buildPawnlessTable(false, false, pieces, []byte{1, 3}, 0, nil)
	if err := os.WriteFile(filepath.Join(dir, "KvKQ.rtbw"), kvkq, 0644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry(nil, 8)
	if err := reg.InitTables([]string{dir}); err != nil {
		t.Fatalf("InitTables: %v", err)
	}
	wdl := NewLocalProber(reg)
	dtz := NewDTZProber(reg, wdl)
	rp := NewRootProber(wdl, dtz)

	// White king a1 is in check from the black queen on b2 (adjacent
	// diagonally) and boxed into a corner: a2 and b1 are both covered by
	// the same queen, leaving Kxb2 the only legal move. The black king sits
	// on h8, too far to contest the capture square.
	pos, err := board.ParseFEN("7k/8/8/8/8/8/1q6/K7 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if !pos.InCheck() {
		t.Fatal("test position should have White in check from the queen")
	}

	moves := pos.GenerateLegalMoves()
	if moves.Len() != 1 || !moves.Get(0).IsCapture(pos) {
		t.Fatalf("expected exactly one legal move, a capture; got %d moves", moves.Len())
	}

	filtered, _, ok := rp.RootProbeDTZ(pos, nil)
	if !ok {
		t.Fatal("RootProbeDTZ should succeed when every legal move is zeroing")
	}
	if len(filtered) == 0 {
		t.Error("expected at least one surviving root move")
	}
}
