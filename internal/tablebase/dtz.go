package tablebase

import (
	"github.com/kagechess/kage/internal/board"
)

// wdlToDTZ folds a WDL value (index wdl+2) to the DTZ distance assigned to
// a zeroing (capture or pawn) move that immediately realizes it: a cursed
// win/loss folds to +-101 (outside the fifty-move counter's reach), a
// genuine win/loss to +-1, a draw to 0.
var wdlToDTZ = [5]int{-1, -101, 0, 101, 1}

// DTZProber layers distance-to-zero probing on top of a LocalProber's WDL
// resolution, per spec.md §4.G.
type DTZProber struct {
	reg *Registry
	wdl *LocalProber
}

// NewDTZProber builds a DTZ prober sharing reg and wdl with the caller's
// WDL prober, so both draw from the same loaded tables.
func NewDTZProber(reg *Registry, wdl *LocalProber) *DTZProber {
	return &DTZProber{reg: reg, wdl: wdl}
}

// isZeroingMove reports whether m resets the fifty-move counter: a capture
// or a pawn move.
func isZeroingMove(pos *board.Position, m board.Move) bool {
	if m.IsCapture(pos) {
		return true
	}
	return pos.PieceAt(m.From()).Type() == board.Pawn
}

// ProbeDTZ returns the distance to zeroing for pos, per spec.md §4.G:
// a draw always has dtz 0; a value reached via a zeroing capture/pawn move
// already resolved by WDL's capture search has dtz 1 (or 101 if cursed);
// otherwise the position's own DTZ table is consulted, recursing over
// non-zeroing moves when the table reports the wrong perspective.
func (dp *DTZProber) ProbeDTZ(pos *board.Position) (dtz, success int) {
	wdl, succ := dp.wdl.ProbeWDL(pos)
	if succ == 0 {
		return 0, 0
	}
	if wdl == 0 {
		return 0, 1
	}
	if succ == 2 {
		return wdlToDTZ[wdl+2], 1
	}

	if wdl > 0 {
		if d, ok := dp.findZeroingWin(pos, wdl); ok {
			return d, 1
		}
	}

	v, s := dp.probeDTZTable(pos, wdl)
	switch s {
	case 1:
		return v, 1
	case 2: // table present but stored from the other side — fall back to search
		return dp.recurseWrongPerspective(pos, wdl)
	default: // table absent or corrupt: fail fast per spec.md §7, no recursion
		return 0, 0
	}
}

// findZeroingWin looks for a zeroing move that preserves the side-to-move's
// win for the opponent as a loss, letting the caller short-circuit to
// dtz=1 (or 101 if cursed) without consulting the DTZ table at all.
func (dp *DTZProber) findZeroingWin(pos *board.Position, wdl int) (int, bool) {
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if !isZeroingMove(pos, m) {
			continue
		}
		undo := pos.MakeMove(m)
		v, s := dp.wdl.ProbeWDL(pos)
		pos.UnmakeMove(m, undo)
		if s != 0 && v == -wdl {
			return wdlToDTZ[wdl+2], true
		}
	}
	return 0, false
}

// probeDTZTable reads the raw stored DTZ value for pos, applying the
// table's map/double flags and the sign implied by wdl. Unlike WDL tables,
// a DTZ table stores exactly one perspective (dtzFlagPerspective records
// which); success is 0 when the table itself is absent or corrupt (fail
// fast, no recursion — spec.md §7), and 2 when the table is present but was
// built from the other side, so the caller must fall back to search.
func (dp *DTZProber) probeDTZTable(pos *board.Position, wdl int) (dtz, success int) {
	key := pos.MaterialKey()
	entry := dp.reg.lookupDTZ(key)
	if entry == nil {
		return 0, 0
	}
	if err := dp.reg.ensureLoaded(entry); err != nil {
		return 0, 0
	}
	dp.reg.touchDTZ(entry)

	payload := entry.data
	persp, work, matches := selectDTZPerspective(payload, pos, entry.Key)
	if !matches {
		return 0, 2
	}
	idx := persp.index(work, entry.HasPawns)

	raw, err := persp.decoder.decode(idx)
	if err != nil {
		entry.invalid.Store(true)
		entry.reset()
		return 0, 0
	}

	v := int(raw)
	if payload.dtzFlags&dtzFlagMapped != 0 {
		if v >= len(payload.dtzMap) {
			entry.invalid.Store(true)
			entry.reset()
			return 0, 0
		}
		v = int(payload.dtzMap[v])
	}
	if payload.dtzFlags&dtzFlagDouble != 0 {
		v *= 2
	}

	if wdl < 0 {
		v = -v
	}
	return v, 1
}

// recurseWrongPerspective handles the case where the stored table was
// built from the other side's perspective: the real distance is one more
// than the best continuation's distance, searched over non-zeroing moves
// (zeroing moves reset distance to zero and were already ruled out above).
func (dp *DTZProber) recurseWrongPerspective(pos *board.Position, wdl int) (dtz, success int) {
	moves := pos.GenerateLegalMoves()
	best := 0
	found := false

	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if isZeroingMove(pos, m) {
			continue
		}

		undo := pos.MakeMove(m)
		v, s := dp.ProbeDTZ(pos)
		pos.UnmakeMove(m, undo)
		if s == 0 {
			continue
		}
		v = -v

		if wdl > 0 {
			if v <= 0 {
				continue
			}
			cand := v + 1
			if !found || cand < best {
				best, found = cand, true
			}
		} else {
			if v >= 0 {
				continue
			}
			cand := v - 1
			if !found || cand > best {
				best, found = cand, true
			}
		}
	}

	if !found {
		return 0, 0
	}
	return best, 1
}
