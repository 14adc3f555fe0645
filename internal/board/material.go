package board

// matKeyWeight assigns each (color, piece type) a distinct per-piece
// contribution to the material key, mirroring the mat_key[16] table used by
// Cfish's calc_key/calc_key_from_pcs. Values are arbitrary but fixed and
// distinct so that the key uniquely identifies a multiset of pieces and so
// that mirroring colors produces a predictable, swapped key.
var matKeyWeight = [2][6]uint64{
	White: {
		Pawn:   0x0000000000000001,
		Knight: 0x0000000000000040,
		Bishop: 0x0000000000001000,
		Rook:   0x0000000000040000,
		Queen:  0x0000000001000000,
		King:   0x0000000040000000,
	},
	Black: {
		Pawn:   0x0000000400000000,
		Knight: 0x0000010000000000,
		Bishop: 0x0000400000000000,
		Rook:   0x0010000000000000,
		Queen:  0x0400000000000000,
		King:   0x1000000000000000,
	},
}

// MaterialKey returns a 64-bit signature identifying the multiset of pieces
// on the board, independent of square placement. Two positions with the same
// pieces (by color and type) but different squares share a key; a position
// and its color-mirror produce the key computed with colors swapped, which
// is exactly MaterialKeyPCS(counts, true) below.
func (p *Position) MaterialKey() uint64 {
	var key uint64
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			key += matKeyWeight[c][pt] * uint64(p.Pieces[c][pt].PopCount())
		}
	}
	return key
}

// MaterialKeyPCS computes the same key from explicit per-color piece counts,
// as used when parsing a tablebase file name (e.g. "KQPvKRP") into a key
// without needing a live Position. counts is indexed [color][pieceType].
// If mirror is true, white and black counts are swapped before summing,
// producing the key of the color-mirrored material.
func MaterialKeyPCS(counts [2][6]int, mirror bool) uint64 {
	white, black := White, Black
	if mirror {
		white, black = Black, White
	}
	var key uint64
	for pt := Pawn; pt <= King; pt++ {
		key += matKeyWeight[White][pt] * uint64(counts[white][pt])
		key += matKeyWeight[Black][pt] * uint64(counts[black][pt])
	}
	return key
}

// KvKKey is the material key of the trivial king-versus-king material,
// used by probers to short-circuit without any file lookup.
func KvKKey() uint64 {
	return matKeyWeight[White][King] + matKeyWeight[Black][King]
}

// MirrorColors returns a copy of the position with white and black pieces
// swapped and the board flipped vertically (rank r -> 7-r), side to move
// flipped, and castling/en-passant state mirrored along with it. This is the
// color-mirror used to canonicalize a position against a table stored for
// the opposite-colored material signature.
func (p *Position) MirrorColors() *Position {
	m := &Position{
		SideToMove:     p.SideToMove.Other(),
		HalfMoveClock:  p.HalfMoveClock,
		FullMoveNumber: p.FullMoveNumber,
	}

	for c := White; c <= Black; c++ {
		oc := c.Other()
		for pt := Pawn; pt <= King; pt++ {
			m.Pieces[oc][pt] = mirrorBitboard(p.Pieces[c][pt])
		}
		m.Occupied[oc] = mirrorBitboard(p.Occupied[c])
	}
	m.AllOccupied = mirrorBitboard(p.AllOccupied)

	m.KingSquare[White] = p.KingSquare[Black].Mirror()
	m.KingSquare[Black] = p.KingSquare[White].Mirror()
	m.Checkers = mirrorBitboard(p.Checkers)

	if p.EnPassant != NoSquare {
		m.EnPassant = p.EnPassant.Mirror()
	} else {
		m.EnPassant = NoSquare
	}

	var cr CastlingRights
	if p.CastlingRights&BlackKingSideCastle != 0 {
		cr |= WhiteKingSideCastle
	}
	if p.CastlingRights&BlackQueenSideCastle != 0 {
		cr |= WhiteQueenSideCastle
	}
	if p.CastlingRights&WhiteKingSideCastle != 0 {
		cr |= BlackKingSideCastle
	}
	if p.CastlingRights&WhiteQueenSideCastle != 0 {
		cr |= BlackQueenSideCastle
	}
	m.CastlingRights = cr

	m.Hash = m.ComputeHash()
	m.PawnKey = m.ComputePawnKey()

	return m
}

// mirrorBitboard flips a bitboard vertically (rank r -> 7-r), matching the
// 0x38 square mirror used throughout the probing code to canonicalize
// positions before table lookup.
func mirrorBitboard(b Bitboard) Bitboard {
	var out Bitboard
	for b != 0 {
		sq := b.PopLSB()
		out = out.Set(sq.Mirror())
	}
	return out
}
