package tablebase

import (
	"fmt"
	"strings"

	"github.com/kagechess/kage/internal/board"
)

// pieceCounts holds per-color, per-type piece counts parsed from a material
// signature string such as "KQPvKRP". Index [color][pieceType]; kings are
// always exactly 1 on each side for a well-formed signature.
type pieceCounts [2][6]int

// parseMaterialName parses a table base name of the form "KQPvKRP" into
// piece counts for white (before the 'v') and black (after it).
func parseMaterialName(name string) (pieceCounts, error) {
	var counts pieceCounts

	parts := strings.SplitN(name, "v", 2)
	if len(parts) != 2 {
		return counts, fmt.Errorf("tablebase: malformed material name %q", name)
	}

	if err := countSide(parts[0], board.White, &counts); err != nil {
		return counts, err
	}
	if err := countSide(parts[1], board.Black, &counts); err != nil {
		return counts, err
	}

	if counts[board.White][board.King] != 1 || counts[board.Black][board.King] != 1 {
		return counts, fmt.Errorf("tablebase: material name %q missing exactly one king per side", name)
	}

	return counts, nil
}

func countSide(s string, c board.Color, counts *pieceCounts) error {
	for _, ch := range s {
		pt, err := pieceTypeFromChar(byte(ch))
		if err != nil {
			return err
		}
		counts[c][pt]++
	}
	return nil
}

func pieceTypeFromChar(ch byte) (board.PieceType, error) {
	switch ch {
	case 'K':
		return board.King, nil
	case 'Q':
		return board.Queen, nil
	case 'R':
		return board.Rook, nil
	case 'B':
		return board.Bishop, nil
	case 'N':
		return board.Knight, nil
	case 'P':
		return board.Pawn, nil
	default:
		return 0, fmt.Errorf("tablebase: unrecognized piece letter %q", string(ch))
	}
}

// totalPieces sums every piece (including both kings) in counts.
func (c pieceCounts) totalPieces() int {
	n := 0
	for color := board.White; color <= board.Black; color++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			n += c[color][pt]
		}
	}
	return n
}

// hasPawns reports whether either side has a pawn.
func (c pieceCounts) hasPawns() bool {
	return c[board.White][board.Pawn] > 0 || c[board.Black][board.Pawn] > 0
}

// symmetric reports whether white and black carry identical material,
// meaning a single stored perspective block suffices.
func (c pieceCounts) symmetric() bool {
	return c[board.White] == c[board.Black]
}

// materialName reconstructs the canonical "KQPvKRP" form from counts.
func (c pieceCounts) materialName() string {
	var sb strings.Builder
	order := []board.PieceType{board.King, board.Queen, board.Rook, board.Bishop, board.Knight, board.Pawn}
	letters := map[board.PieceType]byte{
		board.King: 'K', board.Queen: 'Q', board.Rook: 'R',
		board.Bishop: 'B', board.Knight: 'N', board.Pawn: 'P',
	}
	for _, pt := range order {
		for i := 0; i < c[board.White][pt]; i++ {
			sb.WriteByte(letters[pt])
		}
	}
	sb.WriteByte('v')
	for _, pt := range order {
		for i := 0; i < c[board.Black][pt]; i++ {
			sb.WriteByte(letters[pt])
		}
	}
	return sb.String()
}
