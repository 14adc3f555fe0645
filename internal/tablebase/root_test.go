package tablebase

import (
	"testing"

	"github.com/kagechess/kage/internal/board"
)

func TestHasRepeated(t *testing.T) {
	pos := board.NewPosition()
	if hasRepeated(pos, nil) {
		t.Error("empty history should never repeat")
	}
	if !hasRepeated(pos, []uint64{pos.Hash}) {
		t.Error("history containing the current hash should repeat")
	}
	if hasRepeated(pos, []uint64{pos.Hash + 1}) {
		t.Error("history without the current hash should not repeat")
	}
}

func TestFilterRootCandidatesWinningKeepsOnlyDTZOptimalWhenBudgetTight(t *testing.T) {
	m1 := board.Move(1)
	m2 := board.Move(2)
	m3 := board.Move(3)

	// rootDTZ > 0 (winning); cnt50 high enough and repeated=true so the
	// 99-cnt50 relaxation never kicks in: only the DTZ-optimal move (m2,
	// dtz=1) survives, not m1's dtz=5 or the non-winning m3.
	candidates := []rootCandidate{
		{move: m1, dtz: 5},
		{move: m2, dtz: 1},
		{move: m3, dtz: -1},
	}

	filtered := filterRootCandidates(candidates, 1, 90, true)
	if len(filtered) != 1 || filtered[0] != m2 {
		t.Errorf("expected only [m2] at tight budget, got %v", filtered)
	}
}

func TestFilterRootCandidatesWinningRelaxesBudgetWithoutRepetition(t *testing.T) {
	m1 := board.Move(1)
	m2 := board.Move(2)

	// best=1, cnt50=0, not repeated: 99-cnt50=99 relaxes maxAllowed well
	// past best, so both dtz=1 and dtz=5 moves are kept.
	candidates := []rootCandidate{
		{move: m1, dtz: 5},
		{move: m2, dtz: 1},
	}

	filtered := filterRootCandidates(candidates, 1, 0, false)
	if len(filtered) != 2 {
		t.Fatalf("expected both moves kept under a relaxed budget, got %v", filtered)
	}
	if filtered[0] != m2 || filtered[1] != m1 {
		t.Errorf("expected ascending dtz order [m2, m1], got %v", filtered)
	}
}

func TestFilterRootCandidatesLosingPlaysOnWhenBudgetFar(t *testing.T) {
	m1 := board.Move(1)
	m2 := board.Move(2)

	candidates := []rootCandidate{
		{move: m1, dtz: -3},
		{move: m2, dtz: -20},
	}

	// rootDTZ < 0 (losing); best=-20, -best*2+cnt50 = 40+0 = 40 < 100, so
	// every move is kept regardless of its individual dtz.
	filtered := filterRootCandidates(candidates, -1, 0, false)
	if len(filtered) != 2 {
		t.Errorf("expected all losing moves kept far from the fifty-move limit, got %v", filtered)
	}
}

func TestFilterRootCandidatesLosingPlaysOptimalNearBudget(t *testing.T) {
	m1 := board.Move(1)
	m2 := board.Move(2)

	candidates := []rootCandidate{
		{move: m1, dtz: -3},
		{move: m2, dtz: -20},
	}

	// best=-20; -best*2+cnt50 = 40+140 = 180 >= 100, which forces the
	// DTZ-optimal (longest defense) branch.
	filtered := filterRootCandidates(candidates, -1, 140, false)
	if len(filtered) != 1 || filtered[0] != m2 {
		t.Errorf("expected only the longest defense [m2] near the fifty-move limit, got %v", filtered)
	}
}

func TestFilterRootCandidatesDrawingKeepsOnlyZeroDTZ(t *testing.T) {
	m1 := board.Move(1)
	m2 := board.Move(2)

	candidates := []rootCandidate{
		{move: m1, dtz: 0},
		{move: m2, dtz: 3},
	}

	filtered := filterRootCandidates(candidates, 0, 0, false)
	if len(filtered) != 1 || filtered[0] != m1 {
		t.Errorf("expected only the draw-preserving move [m1], got %v", filtered)
	}
}

func TestWdlFromDTZAndCnt50(t *testing.T) {
	cases := []struct {
		dtz, cnt50, want int
	}{
		{10, 0, 2},    // comfortably winning
		{60, 50, 1},   // won but too slow: cursed win
		{-10, 0, -2},  // comfortably losing
		{-60, 50, -1}, // lost but opponent too slow: blessed loss
		{0, 0, 0},
	}
	for _, c := range cases {
		if got := wdlFromDTZAndCnt50(c.dtz, c.cnt50); got != c.want {
			t.Errorf("wdlFromDTZAndCnt50(%d,%d) = %d, want %d", c.dtz, c.cnt50, got, c.want)
		}
	}
}

func TestAbsInt(t *testing.T) {
	if absInt(-5) != 5 || absInt(5) != 5 || absInt(0) != 0 {
		t.Error("absInt returned wrong magnitude")
	}
}

func TestWdlFromByte(t *testing.T) {
	cases := map[byte]int{0: -2, 1: -1, 2: 0, 3: 1, 4: 2}
	for b, want := range cases {
		if got := wdlFromByte(b); got != want {
			t.Errorf("wdlFromByte(%d) = %d, want %d", b, got, want)
		}
	}
}

func TestIsZeroingMovePawnMove(t *testing.T) {
	pos, err := board.ParseFEN("8/8/8/8/8/8/P7/K6k w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	moves := pos.GenerateLegalMoves()
	foundPawnMove := false
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if pos.PieceAt(m.From()).Type() == board.Pawn {
			if !isZeroingMove(pos, m) {
				t.Errorf("pawn move %v should be zeroing", m)
			}
			foundPawnMove = true
		}
	}
	if !foundPawnMove {
		t.Fatal("expected at least one pawn move in this position")
	}
}
