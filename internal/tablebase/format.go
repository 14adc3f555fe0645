package tablebase

import (
	"encoding/binary"
	"fmt"

	"github.com/kagechess/kage/internal/board"
)

// magic identifies a Kage tablebase payload. Real Syzygy v1 distributions
// carry their own magic bytes and bit layout (defined by tbcore.c, which
// the retrieval pack backing this repository did not include alongside
// tbprobe.c — see DESIGN.md); this reader therefore parses Kage's own
// serialization of the same logical structure spec.md §3/§4 describes
// (piece lists, norm/factor vectors, pair-coded payload, sparse index)
// rather than claiming bit-for-bit compatibility with third-party
// .rtbw/.rtbz distributions.
var magic = [4]byte{'K', 'G', 'T', 'B'}

// headerReader is a small cursor over a memory-mapped byte slice, used only
// during table parsing — never on the probe hot path.
type headerReader struct {
	data []byte
	pos  int
}

func newHeaderReader(data []byte) *headerReader {
	return &headerReader{data: data}
}

func (r *headerReader) need(n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("tablebase: corrupt table: truncated at offset %d (need %d bytes)", r.pos, n)
	}
	return nil
}

func (r *headerReader) readByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *headerReader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *headerReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *headerReader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *headerReader) sliceBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// rawSymbol is the on-disk shape of a pair-code tree node before leaf
// counts are resolved by a post-parse pass.
type rawSymbol struct {
	leaf  bool
	value byte
	left  uint16
	right uint16
}

func parseDecoder(r *headerReader) (*pairDecoder, error) {
	size, err := r.u64()
	if err != nil {
		return nil, err
	}

	numSymbols, err := r.u32()
	if err != nil {
		return nil, err
	}
	raws := make([]rawSymbol, numSymbols)
	for i := range raws {
		flag, err := r.readByte()
		if err != nil {
			return nil, err
		}
		if flag == 1 {
			v, err := r.readByte()
			if err != nil {
				return nil, err
			}
			raws[i] = rawSymbol{leaf: true, value: v}
		} else {
			l, err := r.u16()
			if err != nil {
				return nil, err
			}
			rr, err := r.u16()
			if err != nil {
				return nil, err
			}
			raws[i] = rawSymbol{left: l, right: rr}
		}
	}

	symbols, err := resolveLeafCounts(raws)
	if err != nil {
		return nil, err
	}

	minLen, err := r.readByte()
	if err != nil {
		return nil, err
	}
	maxLen, err := r.readByte()
	if err != nil {
		return nil, err
	}
	numLens := int(maxLen) - int(minLen) + 1
	if numLens <= 0 || numLens > 33 {
		return nil, fmt.Errorf("tablebase: corrupt table: invalid huffman length range [%d,%d]", minLen, maxLen)
	}

	base := make([]uint32, numLens)
	count := make([]int, numLens)
	var total int
	for i := 0; i < numLens; i++ {
		b, err := r.u32()
		if err != nil {
			return nil, err
		}
		c, err := r.u16()
		if err != nil {
			return nil, err
		}
		base[i] = b
		count[i] = int(c)
		total += int(c)
	}

	byLen := make([]uint16, total)
	for i := range byLen {
		s, err := r.u16()
		if err != nil {
			return nil, err
		}
		byLen[i] = s
	}

	numSparse, err := r.u32()
	if err != nil {
		return nil, err
	}
	sparse := make([]sparseEntry, numSparse)
	for i := range sparse {
		b, err := r.u32()
		if err != nil {
			return nil, err
		}
		o, err := r.u32()
		if err != nil {
			return nil, err
		}
		sparse[i] = sparseEntry{block: b, offset: o}
	}

	numBlocks, err := r.u32()
	if err != nil {
		return nil, err
	}
	blocks := make([]block, numBlocks)
	for i := range blocks {
		leaves, err := r.u32()
		if err != nil {
			return nil, err
		}
		minSymLen, err := r.u16()
		if err != nil {
			return nil, err
		}
		byteLen, err := r.u32()
		if err != nil {
			return nil, err
		}
		bits, err := r.sliceBytes(int(byteLen))
		if err != nil {
			return nil, err
		}
		blocks[i] = block{bits: bits, leaves: leaves, minSymLen: int(minSymLen)}
	}

	return &pairDecoder{
		symbols: symbols,
		huff:    huffmanTable{minLen: int(minLen), maxLen: int(maxLen), base: base, count: count, byLen: byLen},
		sparse:  sparse,
		blocks:  blocks,
		size:    size,
	}, nil
}

// resolveLeafCounts turns the on-disk (left,right) symbol graph into the
// runtime symbol table, computing each node's leafCount bottom-up. The
// graph must be acyclic (a DAG rooted at each top-level block symbol);
// cycles or dangling references are reported as a corrupt table.
func resolveLeafCounts(raws []rawSymbol) ([]symbol, error) {
	out := make([]symbol, len(raws))
	state := make([]int8, len(raws)) // 0=unvisited 1=in-progress 2=done

	var resolve func(i int) (uint32, error)
	resolve = func(i int) (uint32, error) {
		if i < 0 || i >= len(raws) {
			return 0, fmt.Errorf("tablebase: corrupt table: symbol index %d out of range", i)
		}
		if state[i] == 2 {
			return out[i].leafCount, nil
		}
		if state[i] == 1 {
			return 0, fmt.Errorf("tablebase: corrupt table: cyclic symbol graph at %d", i)
		}
		state[i] = 1
		r := raws[i]
		if r.leaf {
			out[i] = symbol{leaf: true, value: r.value, leafCount: 1}
			state[i] = 2
			return 1, nil
		}
		lc, err := resolve(int(r.left))
		if err != nil {
			return 0, err
		}
		rc, err := resolve(int(r.right))
		if err != nil {
			return 0, err
		}
		out[i] = symbol{left: r.left, right: r.right, leafCount: lc + rc}
		state[i] = 2
		return out[i].leafCount, nil
	}

	for i := range raws {
		if _, err := resolve(i); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func parsePerspective(r *headerReader, pawnFile int) (*perspective, error) {
	numPieces, err := r.readByte()
	if err != nil {
		return nil, err
	}

	colors := make([]board.Color, numPieces)
	types := make([]board.PieceType, numPieces)
	for i := 0; i < int(numPieces); i++ {
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		colors[i] = board.Color((b >> 3) & 0x1)
		types[i] = board.PieceType(b & 0x7)
	}

	groupOf := make([]int, numPieces)
	for i := range groupOf {
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		groupOf[i] = int(b)
	}

	numGroups, err := r.readByte()
	if err != nil {
		return nil, err
	}
	factor := make([]uint64, numGroups)
	for i := range factor {
		f, err := r.u64()
		if err != nil {
			return nil, err
		}
		factor[i] = f
	}

	decoder, err := parseDecoder(r)
	if err != nil {
		return nil, err
	}

	return &perspective{
		pieceColor: colors,
		pieceType:  types,
		groupOf:    groupOf,
		factor:     factor,
		pawnFile:   pawnFile,
		decoder:    decoder,
	}, nil
}

// parseTableHeader parses the full on-disk layout of a WDL or DTZ file into
// a populated TableEntry payload. The caller has already verified the file
// maps to a known material key; this only validates structural well
// formedness of the bytes themselves.
func parseTableHeader(data []byte, key uint64, counts pieceCounts, isDTZ bool) (*tablePayload, error) {
	r := newHeaderReader(data)

	var m [4]byte
	raw, err := r.sliceBytes(4)
	if err != nil {
		return nil, err
	}
	copy(m[:], raw)
	if m != magic {
		return nil, fmt.Errorf("tablebase: corrupt table: bad magic %v", m)
	}

	hasPawnsByte, err := r.readByte()
	if err != nil {
		return nil, err
	}
	symmetricByte, err := r.readByte()
	if err != nil {
		return nil, err
	}
	hasPawns := hasPawnsByte != 0
	symmetric := symmetricByte != 0

	payload := &tablePayload{hasPawns: hasPawns, symmetric: symmetric, isDTZ: isDTZ}

	// WDL stores both perspectives for asymmetric material (one per side to
	// move); DTZ always stores exactly one, regardless of symmetry — the
	// other side's distance is derived by search when the stored side
	// doesn't match (selectDTZPerspective), never by doubling up storage.
	numPersp := 2
	if symmetric || isDTZ {
		numPersp = 1
	}

	if !hasPawns {
		payload.pieces = make([]*perspective, numPersp)
		for i := 0; i < numPersp; i++ {
			p, err := parsePerspective(r, -1)
			if err != nil {
				return nil, err
			}
			payload.pieces[i] = p
		}
	} else {
		for f := 0; f < 4; f++ {
			for i := 0; i < numPersp; i++ {
				p, err := parsePerspective(r, f)
				if err != nil {
					return nil, err
				}
				payload.pawns[f] = append(payload.pawns[f], p)
			}
		}
	}

	if isDTZ {
		flags, err := r.readByte()
		if err != nil {
			return nil, err
		}
		payload.dtzFlags = flags
		mapLen, err := r.u16()
		if err != nil {
			return nil, err
		}
		valueMap, err := r.sliceBytes(int(mapLen))
		if err != nil {
			return nil, err
		}
		payload.dtzMap = append([]byte(nil), valueMap...)
	}

	return payload, nil
}
