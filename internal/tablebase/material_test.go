package tablebase

import (
	"testing"

	"github.com/kagechess/kage/internal/board"
)

func TestParseMaterialNameRoundTrip(t *testing.T) {
	names := []string{"KQvK", "KRPvKRP", "KQPvKRP", "KBNvK"}
	for _, name := range names {
		counts, err := parseMaterialName(name)
		if err != nil {
			t.Fatalf("parseMaterialName(%q): %v", name, err)
		}
		if got := counts.materialName(); got != name {
			t.Errorf("materialName() round trip = %q, want %q", got, name)
		}
	}
}

func TestParseMaterialNameRejectsMalformed(t *testing.T) {
	cases := []string{"KQK", "KQvKX", "QvK", "KvQ"}
	for _, name := range cases {
		if _, err := parseMaterialName(name); err == nil {
			t.Errorf("parseMaterialName(%q) should have failed", name)
		}
	}
}

func TestPieceCountsHasPawnsAndSymmetric(t *testing.T) {
	counts, err := parseMaterialName("KPvKP")
	if err != nil {
		t.Fatal(err)
	}
	if !counts.hasPawns() {
		t.Error("KPvKP should report hasPawns")
	}
	if !counts.symmetric() {
		t.Error("KPvKP should be symmetric")
	}
	if counts.totalPieces() != 4 {
		t.Errorf("totalPieces() = %d, want 4", counts.totalPieces())
	}

	counts2, _ := parseMaterialName("KQvKR")
	if counts2.symmetric() {
		t.Error("KQvKR should not be symmetric")
	}
}

func TestMaterialKeyPCSMirror(t *testing.T) {
	counts, _ := parseMaterialName("KQvKR")
	key := board.MaterialKeyPCS([2][6]int(counts), false)
	mirror := board.MaterialKeyPCS([2][6]int(counts), true)
	if key == mirror {
		t.Error("asymmetric material should have distinct key and mirror key")
	}

	sym, _ := parseMaterialName("KPvKP")
	symKey := board.MaterialKeyPCS([2][6]int(sym), false)
	symMirror := board.MaterialKeyPCS([2][6]int(sym), true)
	if symKey != symMirror {
		t.Error("symmetric material should share key and mirror key")
	}
}
