package tablebase

import (
	"testing"

	"github.com/kagechess/kage/internal/board"
)

func TestCanonicalDihedralFundamentalDomain(t *testing.T) {
	// Every square on the board must map into the pawnless fundamental
	// domain (file<=3, rank<=file) under some dihedral transform.
	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			sq := board.NewSquare(f, r)
			tr := canonicalDihedral(sq)
			out := transformSquare(tr, sq)
			if out.File() > 3 || out.Rank() > out.File() {
				t.Fatalf("square %v (f=%d,r=%d) canonicalized to out-of-domain %v via transform %d", sq, f, r, out, tr)
			}
		}
	}
}

func TestCombinadicRankInjective(t *testing.T) {
	// Rank every 2-subset of {0..9} and verify no collisions, matching the
	// pawnless 10-square fundamental domain's combinatorics.
	seen := make(map[uint64][2]int)
	for a := 0; a < 10; a++ {
		for b := a + 1; b < 10; b++ {
			rank := combinadicRank([]int{a, b})
			if prev, ok := seen[rank]; ok {
				t.Fatalf("collision: (%d,%d) and %v both rank to %d", a, b, prev, rank)
			}
			seen[rank] = [2]int{a, b}
		}
	}
}

func TestFreeIndexSkipsUsedSquares(t *testing.T) {
	var used board.Bitboard
	used = used.Set(board.Square(2))
	used = used.Set(board.Square(5))

	// Square 0,1 are free and come before both used squares.
	if got := freeIndex(board.Square(1), used); got != 1 {
		t.Errorf("freeIndex(1) = %d, want 1", got)
	}
	// Square 6 has squares 0,1,3,4 free before it (2 and 5 are used).
	if got := freeIndex(board.Square(6), used); got != 4 {
		t.Errorf("freeIndex(6) = %d, want 4", got)
	}
}

func TestMirrorFileSquareInvolution(t *testing.T) {
	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			sq := board.NewSquare(f, r)
			back := mirrorFileSquare(mirrorFileSquare(sq))
			if back != sq {
				t.Errorf("mirrorFileSquare not an involution for %v: got %v", sq, back)
			}
		}
	}
}

func TestMirrorColorsFlipsSideAndKeepsSymmetricKey(t *testing.T) {
	pos := board.NewPosition()
	mirrored := pos.MirrorColors()

	if mirrored.SideToMove == pos.SideToMove {
		t.Errorf("MirrorColors should flip side to move")
	}
	// Starting position is symmetric, so its mirror shares the material key.
	if mirrored.MaterialKey() != pos.MaterialKey() {
		t.Errorf("symmetric position's mirror should share a material key")
	}
}

func TestKvKKeyMatchesMaterialKey(t *testing.T) {
	pos := board.NewPosition()
	// Strip everything but the two kings to build a bare KvK position.
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt < board.King; pt++ {
			pos.Pieces[c][pt] = 0
		}
	}
	pos.Occupied[board.White] = pos.Pieces[board.White][board.King]
	pos.Occupied[board.Black] = pos.Pieces[board.Black][board.King]
	pos.AllOccupied = pos.Occupied[board.White] | pos.Occupied[board.Black]

	if pos.MaterialKey() != board.KvKKey() {
		t.Errorf("bare KvK position's MaterialKey() = %x, want KvKKey() = %x", pos.MaterialKey(), board.KvKKey())
	}
}
