package tablebase

import (
	"log"

	"github.com/kagechess/kage/internal/board"
)

// wdlFromByte maps a decompressed table byte (stored 0..4) to the signed
// WDL domain {-2,-1,0,1,2}.
func wdlFromByte(b byte) int {
	return int(b) - 2
}

// LocalProber probes local Syzygy-shaped tablebase files via the registry,
// loader, indexer and pair decoder. It implements the Prober interface.
type LocalProber struct {
	reg *Registry
}

// NewLocalProber wraps an already-initialized registry.
func NewLocalProber(reg *Registry) *LocalProber {
	return &LocalProber{reg: reg}
}

// probeWDLTable looks up the stored WDL value for pos with no consideration
// of en passant or captures — the "v" of spec.md §4.F step 4. success is 0
// (absent/corrupt), or 1 (found).
func (lp *LocalProber) probeWDLTable(pos *board.Position) (wdl, success int) {
	key := pos.MaterialKey()
	if key == board.KvKKey() {
		return 0, 1
	}

	entry := lp.reg.lookup(key)
	if entry == nil {
		return 0, 0
	}
	if err := lp.reg.ensureLoaded(entry); err != nil {
		return 0, 0
	}

	persp, work := selectPerspective(entry.data, pos, entry.Key)
	idx := persp.index(work, entry.HasPawns)

	b, err := persp.decoder.decode(idx)
	if err != nil {
		log.Printf("[Tablebase] corrupt WDL table for key %x: %v", key, err)
		entry.invalid.Store(true)
		entry.reset()
		return 0, 0
	}

	return wdlFromByte(b), 1
}

// ProbeWDL is the top-level WDL probe with capture resolution described in
// spec.md §4.F: stored tables encode positions without en passant rights,
// so captures (and ep in particular) are reconciled via a shallow
// capture-only negamax.
func (lp *LocalProber) ProbeWDL(pos *board.Position) (wdl, success int) {
	if pos.MaterialKey() == board.KvKKey() {
		return 0, 1
	}

	moves := legalCapturesOrEvasions(pos)

	bestCap := -3
	bestEp := -3
	sawEp := false

	for _, m := range moves {
		if !m.IsCapture(pos) {
			continue
		}
		if m.IsEnPassant() {
			sawEp = true
		}

		undo := pos.MakeMove(m)
		v, succ := lp.probeAB(pos, -2, -bestCap)
		pos.UnmakeMove(m, undo)
		v = -v

		if succ == 0 {
			return 0, 0
		}
		if v > bestCap {
			if v == 2 {
				return 2, 2
			}
			if !m.IsEnPassant() {
				bestCap = v
			} else if v > bestEp {
				bestEp = v
			}
		}
	}

	v, succ := lp.probeWDLTable(pos)
	if succ == 0 {
		return 0, 0
	}

	if bestEp > bestCap {
		if bestEp > v {
			return bestEp, 2
		}
		bestCap = bestEp
	}

	if bestCap >= v {
		succ = 1
		if bestCap > 0 {
			succ = 2
		}
		return bestCap, succ
	}

	// Stalemate subtlety: if ep captures existed and the table says draw,
	// check whether the position without ep rights is actually stalemate —
	// if so, the real value (with ep available) is bestEp, not 0.
	if sawEp && bestEp > -3 && v == 0 {
		if isStalemateExceptEP(pos) {
			return bestEp, 2
		}
	}

	return v, 1
}

// probeAB is the internal fail-soft negamax over captures only, terminal
// evaluation is the stored table value.
func (lp *LocalProber) probeAB(pos *board.Position, alpha, beta int) (value, success int) {
	moves := legalCapturesOrEvasions(pos)

	for _, m := range moves {
		if !m.IsCapture(pos) {
			continue
		}

		undo := pos.MakeMove(m)
		v, succ := lp.probeAB(pos, -beta, -alpha)
		v = -v
		pos.UnmakeMove(m, undo)

		if succ == 0 {
			return 0, 0
		}
		if v > alpha {
			alpha = v
			if alpha >= beta {
				return alpha, 1
			}
		}
	}

	v, succ := lp.probeWDLTable(pos)
	if succ == 0 {
		return 0, 0
	}
	if v > alpha {
		alpha = v
	}
	return alpha, 1
}

// legalCapturesOrEvasions returns all legal captures (and under-promotion
// captures, which the move generator already emits directly), or, if in
// check, all legal evasions.
func legalCapturesOrEvasions(pos *board.Position) []board.Move {
	if pos.InCheck() {
		return pos.GenerateLegalMoves().Slice()
	}

	pseudo := pos.GenerateCaptures()
	out := make([]board.Move, 0, pseudo.Len())
	for i := 0; i < pseudo.Len(); i++ {
		m := pseudo.Get(i)
		if pos.IsLegal(m) {
			out = append(out, m)
		}
	}
	return out
}

// isStalemateExceptEP checks whether pos, with en passant captures
// excluded, has any legal move at all — the stalemate subtlety of spec.md
// §4.F step 6.
func isStalemateExceptEP(pos *board.Position) bool {
	legal := pos.GenerateLegalMoves()
	for i := 0; i < legal.Len(); i++ {
		if !legal.Get(i).IsEnPassant() {
			return false
		}
	}
	return true
}
