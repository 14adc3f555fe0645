package tablebase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kagechess/kage/internal/board"
)

func newLocalProberWithFixtures(t *testing.T, files map[string][]byte) *LocalProber {
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
	return NewLocalProber(reg)
}

func TestProbeWDLDirectTableLookupNoCaptures(t *testing.T) {
	// White king e1, rook a1, black king e8 to move for nobody: no captures
	// are available, so ProbeWDL should resolve straight off the table.
	wdl := buildPawnlessTable(false, false, krvkPieces, []byte{4, 2}, 0, nil)
	lp := newLocalProberWithFixtures(t, map[string][]byte{"KRvK.rtbw": wdl})

	pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	v, succ := lp.ProbeWDL(pos)
	if succ == 0 {
		t.Fatal("ProbeWDL should succeed against a registered table")
	}
	if v != 2 {
		t.Errorf("ProbeWDL = %d, want 2 (byte 4 -> wdl 2)", v)
	}
}

func TestProbeWDLResolvesCaptureThroughRecursiveTableLookup(t *testing.T) {
	// White king h1, queen a4, black king h8, rook a8: White's only capture
	// is Qxa8, collapsing KQvKR into KQvK. ProbeWDL resolves the win through
	// the KQvK table reached by the capture.
	kqvkr := buildPawnlessTable(false, false, kqvkrPieces, []byte{4, 0}, 0, nil)
	kqvk := buildPawnlessTable(false, false, kqvkPieces, []byte{4, 0}, 0, nil)

	lp := newLocalProberWithFixtures(t, map[string][]byte{
		"KQvKR.rtbw": kqvkr,
		"KQvK.rtbw":  kqvk,
	})

	pos, err := board.ParseFEN("r6k/8/8/8/Q7/8/8/7K w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	v, succ := lp.ProbeWDL(pos)
	if succ == 0 {
		t.Fatal("ProbeWDL should succeed across a capture into a second material")
	}
	if v != 2 {
		t.Errorf("ProbeWDL = %d, want 2 (Qxa8 reaches KQvK with Black to move, a Black loss)", v)
	}
}

func TestProbeWDLAbsentTableFails(t *testing.T) {
	lp := newLocalProberWithFixtures(t, nil)
	pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if _, succ := lp.ProbeWDL(pos); succ != 0 {
		t.Error("ProbeWDL should fail when no table is registered for the material")
	}
}

func TestProbeWDLKvKShortCircuits(t *testing.T) {
	lp := newLocalProberWithFixtures(t, nil)
	pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	v, succ := lp.ProbeWDL(pos)
	if succ == 0 || v != 0 {
		t.Errorf("ProbeWDL(KvK) = (%d, %d), want (0, nonzero) without touching the registry", v, succ)
	}
}

func TestIsStalemateExceptEPOnRealStalemate(t *testing.T) {
	pos, err := board.ParseFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if !isStalemateExceptEP(pos) {
		t.Error("a true stalemate position should report isStalemateExceptEP = true")
	}
}

func TestIsStalemateExceptEPFalseWithALegalMove(t *testing.T) {
	pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if isStalemateExceptEP(pos) {
		t.Error("a position with ordinary legal moves should report isStalemateExceptEP = false")
	}
}

func TestLegalCapturesOrEvasionsReturnsEvasionsWhenInCheck(t *testing.T) {
	// White king e1 in check from a black rook on e-file; the only legal
	// moves are evasions, none of which are captures.
	pos, err := board.ParseFEN("4r3/8/8/8/8/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if !pos.InCheck() {
		t.Fatal("test position should have White in check")
	}
	moves := legalCapturesOrEvasions(pos)
	if len(moves) == 0 {
		t.Fatal("expected at least one evasion")
	}
	all := pos.GenerateLegalMoves()
	if len(moves) != all.Len() {
		t.Errorf("in check, legalCapturesOrEvasions should return every legal move (%d), got %d", all.Len(), len(moves))
	}
}
