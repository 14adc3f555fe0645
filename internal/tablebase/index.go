package tablebase

import (
	"github.com/kagechess/kage/internal/board"
)

// binomial[n][k] precomputes C(n,k) for the combinadic ranking used by
// combinadicRank, up to groups of 8 identical pieces.
var binomial [65][9]uint64

func init() {
	for n := 0; n <= 64; n++ {
		binomial[n][0] = 1
		for k := 1; k <= 8 && k <= n; k++ {
			binomial[n][k] = binomial[n-1][k-1] + prevBinomial(n, k)
		}
	}
}

func prevBinomial(n, k int) uint64 {
	if k > n-1 {
		return 0
	}
	return binomial[n-1][k]
}

// dihedral transforms applied to (file, rank) to search for the
// canonicalizing image of a pawnless leading piece.
func applyDihedral(t, file, rank int) (int, int) {
	switch t {
	case 0:
		return file, rank
	case 1:
		return 7 - file, rank
	case 2:
		return file, 7 - rank
	case 3:
		return 7 - file, 7 - rank
	case 4:
		return rank, file
	case 5:
		return 7 - rank, file
	case 6:
		return rank, 7 - file
	default:
		return 7 - rank, 7 - file
	}
}

// canonicalDihedral returns the transform index that brings sq into the
// pawnless fundamental domain (file <= 3, rank <= file), choosing the
// lexicographically smallest resulting square when more than one transform
// qualifies (squares on a symmetry axis).
func canonicalDihedral(sq board.Square) int {
	f, r := sq.File(), sq.Rank()
	best, bestSq := -1, 65
	for t := 0; t < 8; t++ {
		nf, nr := applyDihedral(t, f, r)
		if nf <= 3 && nr <= nf {
			idx := nr*8 + nf
			if idx < bestSq {
				bestSq, best = idx, t
			}
		}
	}
	return best
}

func transformSquare(t int, sq board.Square) board.Square {
	nf, nr := applyDihedral(t, sq.File(), sq.Rank())
	return board.NewSquare(nf, nr)
}

// mirrorFileSquare flips only the file (a<->h), the symmetry used to
// canonicalize pawn material into the a-d file buckets.
func mirrorFileSquare(sq board.Square) board.Square {
	return board.NewSquare(7-sq.File(), sq.Rank())
}

// perspective describes one stored (possibly file-bucketed) block: the
// declared piece order, each piece's group id for sorting/indexing (norm),
// and the mixed-radix weight assigned to each group (factor).
type perspective struct {
	pieceColor []board.Color
	pieceType  []board.PieceType
	groupOf    []int   // groupOf[i] = index into groups[] that piece i belongs to
	groupSize  []int   // size of each group
	factor     []uint64
	pawnFile   int // -1 for pawnless; 0..3 for the pawn file bucket this perspective serves
	decoder    *pairDecoder
}

// freeIndex counts squares below sq that are not present in used — the
// "rank among free squares" transform of spec 4.C step 4.
func freeIndex(sq board.Square, used board.Bitboard) int {
	n := 0
	for s := board.Square(0); s < sq; s++ {
		if !used.IsSet(s) {
			n++
		}
	}
	return n
}

// combinadicRank ranks a sorted, distinct tuple of free-square indices
// (each already relative to the domain with earlier groups' squares
// removed) using the combinatorial number system: encoding an unordered
// k-subset of an n-element domain as a single integer via binomial
// coefficients.
func combinadicRank(freeIdx []int) uint64 {
	var rank uint64
	for j, v := range freeIdx {
		if v >= j+1 {
			rank += binomial[v][j+1]
		}
	}
	return rank
}

// gatherSquares reads, in declared order, the square each of persp's
// pieces occupies in work. Repeated (color, type) slots walk successive
// set bits of the same bitboard.
func gatherSquares(persp *perspective, work *board.Position) []board.Square {
	n := len(persp.pieceType)
	squares := make([]board.Square, n)
	for i := 0; i < n; i++ {
		bb := work.Pieces[persp.pieceColor[i]][persp.pieceType[i]]
		squares[i] = nthSquare(bb, countPriorSameKind(persp, i))
	}
	return squares
}

// canonicalizeSquares applies the pawnless dihedral or pawn file-mirror symmetry
// to squares in place, using squares[0] (the leading piece, by
// construction the declared first piece of the perspective) to pick the
// transform.
func canonicalizeSquares(squares []board.Square, hasPawns bool) {
	if hasPawns {
		if squares[0].File() >= 4 {
			for i := range squares {
				squares[i] = mirrorFileSquare(squares[i])
			}
		}
		return
	}
	t := canonicalDihedral(squares[0])
	for i := range squares {
		squares[i] = transformSquare(t, squares[i])
	}
}

// index computes the table index for work under persp. It performs symmetry
// canonicalization, group-sorting, and the mixed-radix combination
// described in spec 4.C; it does no color-mirroring, so work must already
// be color-mirrored to match the table's key (see selectPerspective).
func (persp *perspective) index(work *board.Position, hasPawns bool) uint64 {
	squares := gatherSquares(persp, work)
	canonicalizeSquares(squares, hasPawns)
	return persp.combine(squares)
}

// mirrorIfNeeded returns pos, or its color-mirror if pos's material key
// doesn't match tableKey.
func mirrorIfNeeded(pos *board.Position, tableKey uint64) *board.Position {
	if pos.MaterialKey() == tableKey {
		return pos
	}
	return pos.MirrorColors()
}

// selectPerspective picks the stored perspective (and, for pawn material,
// file bucket) that applies to pos against a table with the given key and
// payload, per spec 4.C step 5 (pawn file selects the sub-table before
// group-sorting). Returns the color-mirrored working position alongside
// the chosen perspective, since both are needed by the caller's index()
// call.
func selectPerspective(payload *tablePayload, pos *board.Position, tableKey uint64) (*perspective, *board.Position) {
	work := mirrorIfNeeded(pos, tableKey)

	sideIdx := 0
	if !payload.symmetric && work.SideToMove == board.Black {
		sideIdx = 1
	}

	if !payload.hasPawns {
		return payload.pieces[sideIdx], work
	}

	// Peek at file-bucket 0's declared piece order (identical across
	// buckets) to find the leading pawn's file and pick the real bucket.
	probe := payload.pawns[0][sideIdx]
	squares := gatherSquares(probe, work)
	bucket := squares[0].File()
	if bucket >= 4 {
		bucket = 7 - bucket
	}
	return payload.pawns[bucket][sideIdx], work
}

// selectDTZPerspective picks the single stored perspective for a DTZ table
// and reports whether it was actually built for work's side to move. DTZ
// tables store exactly one perspective per (pawn-file-bucket,) unlike
// WDL's two — dtzFlagPerspective records which side it was built from —
// so a side mismatch means this table can't directly answer the query and
// the caller must fall back to search (spec.md §4.G). Symmetric material
// has no mismatch case: its single perspective serves either side by
// construction, the same as WDL's symmetric handling.
func selectDTZPerspective(payload *tablePayload, pos *board.Position, tableKey uint64) (persp *perspective, work *board.Position, matches bool) {
	work = mirrorIfNeeded(pos, tableKey)

	wantBlack := payload.dtzFlags&dtzFlagPerspective != 0
	matches = payload.symmetric || (work.SideToMove == board.Black) == wantBlack

	if !payload.hasPawns {
		return payload.pieces[0], work, matches
	}

	// Peek at file-bucket 0's declared piece order (identical across
	// buckets) to find the leading pawn's file and pick the real bucket.
	probe := payload.pawns[0][0]
	squares := gatherSquares(probe, work)
	bucket := squares[0].File()
	if bucket >= 4 {
		bucket = 7 - bucket
	}
	return payload.pawns[bucket][0], work, matches
}

// countPriorSameKind returns how many earlier declared slots share the same
// (color, type) as slot i, so repeated pieces of a kind walk successive set
// bits of the same bitboard rather than all mapping to the lowest square.
func countPriorSameKind(persp *perspective, i int) int {
	count := 0
	for j := 0; j < i; j++ {
		if persp.pieceColor[j] == persp.pieceColor[i] && persp.pieceType[j] == persp.pieceType[i] {
			count++
		}
	}
	return count
}

// nthSquare returns the (n+1)th set square of bb in ascending order.
func nthSquare(bb board.Bitboard, n int) board.Square {
	for bb != 0 {
		sq := bb.PopLSB()
		if n == 0 {
			return sq
		}
		n--
	}
	return board.NoSquare
}

// combine performs the group-sort and mixed-radix combination of step 3-4.
func (persp *perspective) combine(squares []board.Square) uint64 {
	numGroups := 0
	for _, g := range persp.groupOf {
		if g+1 > numGroups {
			numGroups = g + 1
		}
	}

	var idx uint64
	var used board.Bitboard

	for g := 0; g < numGroups; g++ {
		var members []board.Square
		for i, gg := range persp.groupOf {
			if gg == g {
				members = append(members, squares[i])
			}
		}
		sortSquares(members)

		freeIdx := make([]int, len(members))
		for j, sq := range members {
			freeIdx[j] = freeIndex(sq, used)
		}

		if len(members) == 1 {
			idx += persp.factor[g] * uint64(freeIdx[0])
		} else {
			idx += persp.factor[g] * combinadicRank(freeIdx)
		}

		for _, sq := range members {
			used = used.Set(sq)
		}
	}

	return idx
}

func sortSquares(s []board.Square) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
