package tablebase

import "fmt"

// symbol is one node of the canonical pair-code tree. A non-leaf symbol
// expands into (left, right) children; leafCount is the number of output
// bytes spanned by the symbol's full expansion (1 for a leaf, sum of
// children otherwise). This mirrors the Huffman-like "pair code" described
// in the format: every non-leaf symbol is a pair, and decoding walks the
// tree to materialize the logical byte stream on demand.
type symbol struct {
	leaf      bool
	value     byte
	left      uint16
	right     uint16
	leafCount uint32
}

// huffmanTable is a canonical Huffman code table: symbols are assigned
// codes of non-decreasing length, grouped by length in byLen.
type huffmanTable struct {
	minLen int
	maxLen int
	base   []uint32 // base[l-minLen] = first canonical code value of length l
	count  []int    // count[l-minLen] = number of symbols of length l
	byLen  []uint16 // symbol ids, grouped by length matching base/count
}

// sparseEntry is one checkpoint of the sparse index: every sparseStride-th
// logical element maps to the block containing it and the number of output
// bytes to skip forward from the block's start to reach that element.
type sparseEntry struct {
	block  uint32
	offset uint32
}

const sparseStride = 256

// block is one compressed block: a canonical-coded bitstream of symbols
// whose leaf expansion, concatenated, yields leaves output bytes.
type block struct {
	bits       []byte
	leaves     uint32
	minSymLen  int // shortest symbol length appearing in this block, as stored in the header; decoding does not read it
}

// pairDecoder decompresses a single indexed byte out of a table's
// compressed payload: locate the owning block via the sparse index, then
// walk forward symbol-by-symbol (each expanding to one or more leaves)
// until the target logical offset falls inside the current symbol, then
// descend that symbol's subtree to the exact leaf.
type pairDecoder struct {
	symbols []symbol
	huff    huffmanTable
	sparse  []sparseEntry
	blocks  []block
	size    uint64 // total logical element count (idx must be < size)
}

// decode returns the byte at logical index i, or an error if the block is
// malformed (symbol lookup out of range or premature stream end) — surfaced
// by callers through the success=0 ("corrupt table") channel.
func (d *pairDecoder) decode(i uint64) (byte, error) {
	if i >= d.size {
		return 0, fmt.Errorf("tablebase: index %d out of range (size %d)", i, d.size)
	}

	entry := d.sparse[i/sparseStride]
	blockID := entry.block
	remaining := (i % sparseStride) + uint64(entry.offset)

	for {
		if int(blockID) >= len(d.blocks) {
			return 0, fmt.Errorf("tablebase: corrupt table: block %d out of range", blockID)
		}
		b := &d.blocks[blockID]
		if remaining < uint64(b.leaves) {
			return d.decodeWithinBlock(b, uint32(remaining))
		}
		remaining -= uint64(b.leaves)
		blockID++
	}
}

// decodeWithinBlock walks symbols in b until the one containing offset is
// found, then descends its subtree to the requested leaf.
func (d *pairDecoder) decodeWithinBlock(b *block, offset uint32) (byte, error) {
	r := newBitReader(b.bits)
	var consumed uint32

	for {
		symID, ok := d.huff.decodeSymbol(r)
		if !ok {
			return 0, fmt.Errorf("tablebase: corrupt table: symbol stream ended prematurely")
		}
		if int(symID) >= len(d.symbols) {
			return 0, fmt.Errorf("tablebase: corrupt table: symbol %d out of range", symID)
		}
		sym := d.symbols[symID]
		if consumed+sym.leafCount > offset {
			return d.descend(sym, offset-consumed)
		}
		consumed += sym.leafCount
	}
}

// descend walks a symbol's subtree to the leaf at localOffset within its
// expansion.
func (d *pairDecoder) descend(s symbol, localOffset uint32) (byte, error) {
	for !s.leaf {
		left := d.symbols[s.left]
		if localOffset < left.leafCount {
			s = left
			continue
		}
		localOffset -= left.leafCount
		s = d.symbols[s.right]
	}
	if localOffset != 0 {
		return 0, fmt.Errorf("tablebase: corrupt table: leaf reached with nonzero residual offset")
	}
	return s.value, nil
}

// decodeSymbol reads one canonical Huffman code from r and returns its
// symbol id. Symbol lengths never exceed 32 bits per the format contract.
func (h *huffmanTable) decodeSymbol(r *bitReader) (uint16, bool) {
	code, ok := r.readBits(h.minLen)
	if !ok {
		return 0, false
	}
	l := h.minLen
	groupStart := 0
	for {
		li := l - h.minLen
		if li >= len(h.count) {
			return 0, false
		}
		n := h.count[li]
		if code >= h.base[li] && int(code-h.base[li]) < n {
			return h.byLen[groupStart+int(code-h.base[li])], true
		}
		groupStart += n
		if l >= h.maxLen || l >= 32 {
			return 0, false
		}
		bit, ok := r.readBits(1)
		if !ok {
			return 0, false
		}
		code = code<<1 | bit
		l++
	}
}

// bitReader reads big-endian bits from a little-endian byte slice; the
// format stores block payloads little-endian byte order but canonical
// Huffman codes are read most-significant-bit first within each byte.
type bitReader struct {
	data []byte
	pos  int // bit position from the start of data
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

func (r *bitReader) readBits(n int) (uint32, bool) {
	var v uint32
	for i := 0; i < n; i++ {
		byteIdx := r.pos >> 3
		if byteIdx >= len(r.data) {
			return 0, false
		}
		bitIdx := 7 - (r.pos & 7)
		bit := (r.data[byteIdx] >> uint(bitIdx)) & 1
		v = v<<1 | uint32(bit)
		r.pos++
	}
	return v, true
}
