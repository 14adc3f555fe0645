package tablebase

import (
	"testing"

	"github.com/kagechess/kage/internal/board"
)

var krvkPieces = []pieceSpec{
	{color: board.White, ptype: board.King},
	{color: board.White, ptype: board.Rook},
	{color: board.Black, ptype: board.King},
}

func TestParseTableHeaderWDLAsymmetricStoresTwoPerspectives(t *testing.T) {
	data := buildPawnlessTable(false, false, krvkPieces, []byte{4, 0}, 0, nil)

	payload, err := parseTableHeader(data, 0, pieceCounts{}, false)
	if err != nil {
		t.Fatalf("parseTableHeader: %v", err)
	}
	if payload.hasPawns {
		t.Error("hasPawns should be false")
	}
	if len(payload.pieces) != 2 {
		t.Fatalf("expected 2 stored perspectives for asymmetric WDL, got %d", len(payload.pieces))
	}

	v0, err := payload.pieces[0].decoder.decode(0)
	if err != nil || v0 != 4 {
		t.Errorf("pieces[0].decode(0) = (%d, %v), want (4, nil)", v0, err)
	}
	v1, err := payload.pieces[1].decoder.decode(0)
	if err != nil || v1 != 0 {
		t.Errorf("pieces[1].decode(0) = (%d, %v), want (0, nil)", v1, err)
	}
}

func TestParseTableHeaderSymmetricStoresOnePerspective(t *testing.T) {
	data := buildPawnlessTable(true, false, krvkPieces, []byte{2}, 0, nil)

	payload, err := parseTableHeader(data, 0, pieceCounts{}, false)
	if err != nil {
		t.Fatalf("parseTableHeader: %v", err)
	}
	if len(payload.pieces) != 1 {
		t.Fatalf("expected 1 stored perspective for symmetric material, got %d", len(payload.pieces))
	}
}

func TestParseTableHeaderDTZAlwaysStoresOnePerspective(t *testing.T) {
	// Asymmetric material, but DTZ: real Syzygy DTZ tables store exactly one
	// perspective regardless of symmetry (see selectDTZPerspective).
	data := buildPawnlessTable(false, true, krvkPieces, []byte{7}, dtzFlagMapped, []byte{0, 10, 20, 30, 40, 50, 60, 70})

	payload, err := parseTableHeader(data, 0, pieceCounts{}, true)
	if err != nil {
		t.Fatalf("parseTableHeader: %v", err)
	}
	if len(payload.pieces) != 1 {
		t.Fatalf("expected 1 stored perspective for a DTZ table, got %d", len(payload.pieces))
	}
	if payload.dtzFlags != dtzFlagMapped {
		t.Errorf("dtzFlags = %x, want %x", payload.dtzFlags, dtzFlagMapped)
	}
	if len(payload.dtzMap) != 8 || payload.dtzMap[7] != 70 {
		t.Errorf("dtzMap = %v, want an 8-entry map ending in 70", payload.dtzMap)
	}
}

func TestParseTableHeaderBadMagicRejected(t *testing.T) {
	data := buildPawnlessTable(true, false, krvkPieces, []byte{2}, 0, nil)
	data[0] = 'X'

	if _, err := parseTableHeader(data, 0, pieceCounts{}, false); err == nil {
		t.Error("expected an error for a bad magic header")
	}
}

func TestParseTableHeaderTruncatedRejected(t *testing.T) {
	data := buildPawnlessTable(true, false, krvkPieces, []byte{2}, 0, nil)

	if _, err := parseTableHeader(data[:len(data)-4], 0, pieceCounts{}, false); err == nil {
		t.Error("expected an error for a truncated table file")
	}
}

func TestResolveLeafCountsSumsChildren(t *testing.T) {
	raws := []rawSymbol{
		{leaf: true, value: 'A'},
		{leaf: true, value: 'B'},
		{left: 0, right: 1},
	}
	symbols, err := resolveLeafCounts(raws)
	if err != nil {
		t.Fatalf("resolveLeafCounts: %v", err)
	}
	if symbols[2].leafCount != 2 {
		t.Errorf("root symbol leafCount = %d, want 2", symbols[2].leafCount)
	}
}

func TestResolveLeafCountsRejectsCycle(t *testing.T) {
	raws := []rawSymbol{
		{left: 1, right: 1},
		{left: 0, right: 0},
	}
	if _, err := resolveLeafCounts(raws); err == nil {
		t.Error("expected an error for a cyclic symbol graph")
	}
}

func TestResolveLeafCountsRejectsDanglingReference(t *testing.T) {
	raws := []rawSymbol{
		{left: 5, right: 0},
	}
	if _, err := resolveLeafCounts(raws); err == nil {
		t.Error("expected an error for a dangling symbol reference")
	}
}
