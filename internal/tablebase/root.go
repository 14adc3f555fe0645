package tablebase

import (
	"github.com/kagechess/kage/internal/board"
)

// RootProber combines WDL and DTZ probing into the root move filtering and
// selection policy of spec.md §4.H: play the best-scoring move under the
// tablebase's WDL ordering, breaking ties with DTZ, while steering away
// from positions a fifty-move-rule reset would turn into cursed outcomes.
type RootProber struct {
	wdl *LocalProber
	dtz *DTZProber
}

// NewRootProber builds a root prober sharing wdl's registry.
func NewRootProber(wdl *LocalProber, dtz *DTZProber) *RootProber {
	return &RootProber{wdl: wdl, dtz: dtz}
}

// rootCandidate is one root move's post-move DTZ verdict, already negated
// and ply-adjusted to the root side-to-move's perspective (see
// rootMoveValue) — exactly TB_root_probe's per-move rm[i].value.
type rootCandidate struct {
	move board.Move
	dtz  int
}

// RootProbeDTZ ranks every legal root move against the DTZ tables and
// applies tbprobe.c's TB_root_probe fifty-move-rule budget: a winning root
// keeps every move within budget of the DTZ-optimal line (relaxed to the
// full 99-cnt50 allowance when no repetition threatens a premature draw),
// a losing root plays on normally until the defense itself approaches the
// fifty-move limit, and a drawing root keeps only moves that themselves
// resolve to dtz 0. ok is false if any candidate move's probe failed, per
// spec.md §4.H's "abstain entirely on partial information" rule.
func (rp *RootProber) RootProbeDTZ(pos *board.Position, history []uint64) (filtered []board.Move, rootWDL int, ok bool) {
	legal := pos.GenerateLegalMoves()
	if legal.Len() == 0 {
		return nil, 0, false
	}

	rootDTZ, succ := rp.dtz.ProbeDTZ(pos)
	if succ == 0 {
		return nil, 0, false
	}
	cnt50 := pos.HalfMoveClock

	candidates := make([]rootCandidate, 0, legal.Len())
	for i := 0; i < legal.Len(); i++ {
		m := legal.Get(i)

		undo := pos.MakeMove(m)
		v, valid := rp.rootMoveValue(pos, rootDTZ)
		pos.UnmakeMove(m, undo)

		if !valid {
			return nil, 0, false
		}
		candidates = append(candidates, rootCandidate{move: m, dtz: v})
	}

	rootWDL = wdlFromDTZAndCnt50(rootDTZ, cnt50)
	rep := hasRepeated(pos, history)

	filtered = filterRootCandidates(candidates, rootDTZ, cnt50, rep)
	if len(filtered) == 0 {
		return nil, 0, false
	}
	return filtered, rootWDL, true
}

// rootMoveValue computes one legal root move's post-move DTZ value from the
// root side-to-move's perspective, per tbprobe.c's TB_root_probe: a move
// that leaves the opponent checkmated is a mate-in-1, scored the same as
// any other zeroing win, without needing the child's DTZ table at all; a
// zeroing move's own DTZ table entry would misleadingly read 0, so its
// value is derived from WDL instead; any other move consults the child's
// own DTZ table with a one-ply distance adjustment. pos is already the
// post-move position; the caller unmakes it.
func (rp *RootProber) rootMoveValue(pos *board.Position, rootDTZ int) (int, bool) {
	if rootDTZ > 0 && pos.InCheck() && pos.GenerateLegalMoves().Len() == 0 {
		return 1, true
	}

	if pos.HalfMoveClock != 0 {
		d, s := rp.dtz.ProbeDTZ(pos)
		if s == 0 {
			return 0, false
		}
		v := -d
		switch {
		case v > 0:
			v++
		case v < 0:
			v--
		}
		return v, true
	}

	w, s := rp.wdl.ProbeWDL(pos)
	if s == 0 {
		return 0, false
	}
	return wdlToDTZ[-w+2], true
}

// wdlFromDTZAndCnt50 derives the root's own WDL-scale bucket from its DTZ
// and current fifty-move counter, per tbprobe.c's TB_root_probe: a nominal
// win/loss too far from zeroing to beat the fifty-move rule demotes to a
// cursed win/blessed loss.
func wdlFromDTZAndCnt50(dtz, cnt50 int) int {
	switch {
	case dtz > 0:
		if dtz+cnt50 <= 100 {
			return 2
		}
		return 1
	case dtz < 0:
		if -dtz+cnt50 <= 100 {
			return -2
		}
		return -1
	default:
		return 0
	}
}

// filterRootCandidates implements tbprobe.c's TB_root_probe filtering
// policy over already-scored candidates.
func filterRootCandidates(candidates []rootCandidate, rootDTZ, cnt50 int, repeated bool) []board.Move {
	var kept []rootCandidate

	switch {
	case rootDTZ > 0: // winning (or fifty-move-rule draw)
		best := 0
		for _, c := range candidates {
			if c.dtz > 0 && (best == 0 || c.dtz < best) {
				best = c.dtz
			}
		}
		if best == 0 {
			return nil
		}

		// If there has been no repetition since the last zeroing move and
		// there is fifty-move budget left, relax the allowed DTZ beyond the
		// optimal line so as not to repeat into an accidental draw.
		maxAllowed := best
		if !repeated && best+cnt50 <= 99 {
			maxAllowed = 99 - cnt50
		}
		for _, c := range candidates {
			if c.dtz > 0 && c.dtz <= maxAllowed {
				kept = append(kept, c)
			}
		}
		sortByDTZAscending(kept)

	case rootDTZ < 0: // losing (or fifty-move-rule draw)
		best := 0
		for _, c := range candidates {
			if c.dtz < best {
				best = c.dtz
			}
		}
		// Play on normally unless the best defense is already approaching
		// or inside the fifty-move-rule window; then play DTZ-optimal.
		if -best*2+cnt50 < 100 {
			kept = append(kept, candidates...)
			break
		}
		for _, c := range candidates {
			if c.dtz == best {
				kept = append(kept, c)
			}
		}

	default: // drawing: keep only moves that preserve the draw
		for _, c := range candidates {
			if c.dtz == 0 {
				kept = append(kept, c)
			}
		}
	}

	if len(kept) == 0 {
		return nil
	}
	out := make([]board.Move, len(kept))
	for i, c := range kept {
		out[i] = c.move
	}
	return out
}

func sortByDTZAscending(c []rootCandidate) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && absInt(c[j-1].dtz) > absInt(c[j].dtz); j-- {
			c[j-1], c[j] = c[j], c[j-1]
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// RootProbeWDL is the cheaper fallback used when no DTZ table covers the
// root material: only WDL ordering is applied, with no DTZ tie-breaking.
func (rp *RootProber) RootProbeWDL(pos *board.Position) (filtered []board.Move, rootWDL int, ok bool) {
	legal := pos.GenerateLegalMoves()
	if legal.Len() == 0 {
		return nil, 0, false
	}

	type wdlOnly struct {
		move board.Move
		wdl  int
	}
	candidates := make([]wdlOnly, 0, legal.Len())

	for i := 0; i < legal.Len(); i++ {
		m := legal.Get(i)

		undo := pos.MakeMove(m)
		v, succ := rp.wdl.ProbeWDL(pos)
		pos.UnmakeMove(m, undo)

		if succ == 0 {
			return nil, 0, false
		}
		candidates = append(candidates, wdlOnly{move: m, wdl: -v})
	}

	best := candidates[0].wdl
	for _, c := range candidates {
		if c.wdl > best {
			best = c.wdl
		}
	}

	for _, c := range candidates {
		if c.wdl == best {
			filtered = append(filtered, c.move)
		}
	}
	if len(filtered) == 0 {
		return nil, 0, false
	}
	return filtered, best, true
}

// hasRepeated reports whether pos's current position (by Zobrist key) has
// occurred earlier in the logical game history, used by the winning-root
// filter to decide whether the DTZ budget may be relaxed. Unlike a pointer
// walk over a search stack, this iterates the position's own recorded
// history so it works identically whether called from search or from a
// UCI "tb" diagnostic with no search stack at all.
func hasRepeated(pos *board.Position, history []uint64) bool {
	for _, h := range history {
		if h == pos.Hash {
			return true
		}
	}
	return false
}
