package tablebase

import (
	"bytes"
	"encoding/binary"

	"github.com/kagechess/kage/internal/board"
)

// pieceSpec names one slot of a hand-authored perspective in piece-list
// order, mirroring what parsePerspective reads off disk.
type pieceSpec struct {
	color board.Color
	ptype board.PieceType
}

// appendU16/appendU32/appendU64 append little-endian integers, matching
// headerReader's u16/u32/u64 readers in format.go.
func appendU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func appendU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func appendU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// appendConstantDecoder writes a pairDecoder whose every logical index (the
// fixture only ever asks for index 0, see appendConstantPerspective) decodes
// to value. One leaf symbol, one sparse checkpoint, one block holding a
// single 1-bit canonical code — the smallest structure decodeWithinBlock and
// descend can walk.
func appendConstantDecoder(buf *bytes.Buffer, value byte) {
	appendU64(buf, 1) // size

	appendU32(buf, 1) // numSymbols
	buf.WriteByte(1)  // flag: leaf
	buf.WriteByte(value)

	buf.WriteByte(1) // minLen
	buf.WriteByte(1) // maxLen
	appendU32(buf, 0) // base[0]
	appendU16(buf, 1) // count[0]
	appendU16(buf, 0) // byLen[0] = symbol 0

	appendU32(buf, 1) // numSparse
	appendU32(buf, 0) // sparse[0].block
	appendU32(buf, 0) // sparse[0].offset

	appendU32(buf, 1)          // numBlocks
	appendU32(buf, 1)          // leaves
	appendU16(buf, 1)          // minSymLen
	bits := []byte{0x00}       // single 0 bit decodes symbol 0 at minLen=1
	appendU32(buf, uint32(len(bits)))
	buf.Write(bits)
}

// appendConstantPerspective writes a perspective whose single group has
// factor 0, so combine() always yields index 0 regardless of where pieces
// sit on the board — letting a fixture built for one declared square layout
// answer a probe against any real position carrying that material, without
// hand-computing a real combinadic index.
func appendConstantPerspective(buf *bytes.Buffer, pieces []pieceSpec, value byte) {
	buf.WriteByte(byte(len(pieces)))
	for _, p := range pieces {
		buf.WriteByte(byte(p.color)<<3 | byte(p.ptype))
	}
	for range pieces {
		buf.WriteByte(0) // groupOf: everyone in group 0
	}
	buf.WriteByte(1)   // numGroups
	appendU64(buf, 0) // factor[0] = 0

	appendConstantDecoder(buf, value)
}

// kqvkrPieces and kqvkPieces name the piece slots for the two-table capture
// scenario shared by wdl_test.go and dtz_test.go: a queen capturing a rook
// collapses KQvKR's material into KQvK.
var kqvkrPieces = []pieceSpec{
	{color: board.White, ptype: board.King},
	{color: board.White, ptype: board.Queen},
	{color: board.Black, ptype: board.King},
	{color: board.Black, ptype: board.Rook},
}

var kqvkPieces = []pieceSpec{
	{color: board.White, ptype: board.King},
	{color: board.White, ptype: board.Queen},
	{color: board.Black, ptype: board.King},
}

// buildPawnlessTable encodes a full Kage tablebase payload (see format.go's
// parseTableHeader) for pawnless material: magic, hasPawns=0, symmetric,
// one perspective per side to move (collapsed to one when symmetric or
// isDTZ), each always decoding to its given constant value. dtzFlags/dtzMap
// are only written when isDTZ is true.
func buildPawnlessTable(symmetric, isDTZ bool, pieces []pieceSpec, values []byte, dtzFlags byte, dtzMap []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("KGTB")
	buf.WriteByte(0) // hasPawns
	if symmetric {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	numPersp := len(values)
	for i := 0; i < numPersp; i++ {
		appendConstantPerspective(&buf, pieces, values[i])
	}

	if isDTZ {
		buf.WriteByte(dtzFlags)
		appendU16(&buf, uint16(len(dtzMap)))
		buf.Write(dtzMap)
	}

	return buf.Bytes()
}
