package tablebase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kagechess/kage/internal/board"
)

func TestWdlToDTZTable(t *testing.T) {
	cases := []struct {
		wdl, want int
	}{{-2, -1}, {-1, -101}, {0, 0}, {1, 101}, {2, 1}}
	for _, c := range cases {
		if got := wdlToDTZ[c.wdl+2]; got != c.want {
			t.Errorf("wdlToDTZ[%d+2] = %d, want %d", c.wdl, got, c.want)
		}
	}
}

func TestIsZeroingMoveCapture(t *testing.T) {
	pos, err := board.ParseFEN("4k3/8/8/3r4/3Q4/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	moves := pos.GenerateLegalMoves()
	var capture board.Move
	found := false
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.IsCapture(pos) {
			capture, found = m, true
			break
		}
	}
	if !found {
		t.Fatal("expected a legal capture in this position")
	}
	if !isZeroingMove(pos, capture) {
		t.Error("a capture should be a zeroing move")
	}
}

func TestIsZeroingMoveFalseForQuietKingMove(t *testing.T) {
	pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	moves := pos.GenerateLegalMoves()
	m := moves.Get(0)
	if isZeroingMove(pos, m) {
		t.Error("a quiet king move should not be zeroing")
	}
}

func newDTZProberWithFixtures(t *testing.T, files map[string][]byte) (*Registry, *DTZProber) {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	reg := NewRegistry(nil, 8)
	if err := reg.InitTables([]string{dir}); err != nil {
		t.Fatalf("InitTables: %v", err)
	}
	wdl := NewLocalProber(reg)
	return reg, NewDTZProber(reg, wdl)
}

func TestProbeDTZTableAbsentFailsFast(t *testing.T) {
	// Only the WDL file exists; the DTZ entry is registered but its .rtbz
	// file is missing, so ensureLoaded can't find it.
	_, dp := newDTZProberWithFixtures(t, map[string][]byte{"KQvK.rtbw": []byte{0}})

	pos, err := board.ParseFEN("4k3/8/8/3Q4/8/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	_, succ := dp.probeDTZTable(pos, 2)
	if succ != 0 {
		t.Errorf("probeDTZTable success = %d, want 0 for an absent table", succ)
	}
}

func TestProbeDTZTableMatchingPerspectiveSucceeds(t *testing.T) {
	dtz := buildPawnlessTable(false, true, kqvkPieces, []byte{5}, 0, nil)
	_, dp := newDTZProberWithFixtures(t, map[string][]byte{
		"KQvK.rtbw": []byte{0},
		"KQvK.rtbz": dtz,
	})

	pos, err := board.ParseFEN("4k3/8/8/3Q4/8/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	v, succ := dp.probeDTZTable(pos, 2)
	if succ != 1 {
		t.Fatalf("probeDTZTable success = %d, want 1 (White to move matches a White-built table)", succ)
	}
	if v != 5 {
		t.Errorf("probeDTZTable value = %d, want 5", v)
	}
}

func TestProbeDTZTableWrongPerspectiveReportsMismatch(t *testing.T) {
	dtz := buildPawnlessTable(false, true, kqvkPieces, []byte{5}, 0, nil)
	_, dp := newDTZProberWithFixtures(t, map[string][]byte{
		"KQvK.rtbw": []byte{0},
		"KQvK.rtbz": dtz,
	})

	// Same material, Black to move this time: the table was built with
	// dtzFlagPerspective clear (White), so this must report a mismatch
	// (success 2) rather than either silently decoding the wrong side's
	// value or failing as if the table were absent (success 0).
	pos, err := board.ParseFEN("4k3/8/8/3Q4/8/8/8/4K3 b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	_, succ := dp.probeDTZTable(pos, -2)
	if succ != 2 {
		t.Errorf("probeDTZTable success = %d, want 2 for a stored-side mismatch", succ)
	}
}

func TestProbeDTZDrawShortCircuitsOnWDL(t *testing.T) {
	wdl := buildPawnlessTable(false, false, kqvkPieces, []byte{2, 2}, 0, nil)
	_, dp := newDTZProberWithFixtures(t, map[string][]byte{"KQvK.rtbw": wdl})

	pos, err := board.ParseFEN("4k3/8/8/3Q4/8/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	d, succ := dp.ProbeDTZ(pos)
	if succ == 0 {
		t.Fatal("ProbeDTZ should succeed")
	}
	if d != 0 {
		t.Errorf("ProbeDTZ on a WDL draw should report dtz=0, got %d", d)
	}
}

func TestProbeDTZFindsZeroingWinWithoutConsultingDTZTable(t *testing.T) {
	kqvkr := buildPawnlessTable(false, false, kqvkrPieces, []byte{4, 0}, 0, nil)
	kqvk := buildPawnlessTable(false, false, kqvkPieces, []byte{4, 0}, 0, nil)
	_, dp := newDTZProberWithFixtures(t, map[string][]byte{
		"KQvKR.rtbw": kqvkr,
		"KQvK.rtbw":  kqvk,
		// Deliberately no .rtbz files: the winning capture Qxa8 must resolve
		// this purely from WDL, never touching the (absent) DTZ table.
	})

	pos, err := board.ParseFEN("r6k/8/8/8/Q7/8/8/7K w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	d, succ := dp.ProbeDTZ(pos)
	if succ == 0 {
		t.Fatal("ProbeDTZ should succeed via the zeroing-move WDL fallback")
	}
	if d != 1 {
		t.Errorf("ProbeDTZ = %d, want 1 (wdlToDTZ of a genuine win)", d)
	}
}
