package tablebase

import "testing"

// twoSymbolHuffman builds a flat one-bit canonical table over two leaf
// symbols: code 0 -> symbol 0, code 1 -> symbol 1.
func twoSymbolHuffman() huffmanTable {
	return huffmanTable{
		minLen: 1, maxLen: 1,
		base:  []uint32{0},
		count: []int{2},
		byLen: []uint16{0, 1},
	}
}

func TestPairDecoderWithinSingleBlock(t *testing.T) {
	d := &pairDecoder{
		symbols: []symbol{
			{leaf: true, value: 'A', leafCount: 1},
			{leaf: true, value: 'B', leafCount: 1},
		},
		huff:   twoSymbolHuffman(),
		sparse: []sparseEntry{{block: 0, offset: 0}},
		blocks: []block{
			{bits: []byte{0x40}, leaves: 3}, // codes 0,1,0 -> A,B,A
		},
		size: 3,
	}

	want := []byte{'A', 'B', 'A'}
	for i, w := range want {
		got, err := d.decode(uint64(i))
		if err != nil {
			t.Fatalf("decode(%d): %v", i, err)
		}
		if got != w {
			t.Errorf("decode(%d) = %q, want %q", i, got, w)
		}
	}
}

func TestPairDecoderAcrossBlockBoundary(t *testing.T) {
	d := &pairDecoder{
		symbols: []symbol{
			{leaf: true, value: 'A', leafCount: 1},
			{leaf: true, value: 'B', leafCount: 1},
		},
		huff:   twoSymbolHuffman(),
		sparse: []sparseEntry{{block: 0, offset: 0}},
		blocks: []block{
			{bits: []byte{0x40}, leaves: 2}, // codes 0,1 -> A,B
			{bits: []byte{0x80}, leaves: 2}, // codes 1,0 -> B,A
		},
		size: 4,
	}

	want := []byte{'A', 'B', 'B', 'A'}
	for i, w := range want {
		got, err := d.decode(uint64(i))
		if err != nil {
			t.Fatalf("decode(%d): %v", i, err)
		}
		if got != w {
			t.Errorf("decode(%d) = %q, want %q", i, got, w)
		}
	}
}

func TestPairDecoderSparseStrideOffsetsIntoLaterBlock(t *testing.T) {
	// Two sparse checkpoints, each pointing straight at its own block with
	// zero in-block offset, so index 256 (the second checkpoint) resolves
	// to block 1 rather than walking 256 leaves of block 0.
	d := &pairDecoder{
		symbols: []symbol{{leaf: true, value: 'Z', leafCount: 1}},
		huff: huffmanTable{
			minLen: 1, maxLen: 1,
			base:  []uint32{0},
			count: []int{1},
			byLen: []uint16{0},
		},
		sparse: []sparseEntry{
			{block: 0, offset: 0},
			{block: 1, offset: 0},
		},
		blocks: []block{
			{bits: []byte{0x00}, leaves: 1},
			{bits: []byte{0x00}, leaves: 1},
		},
		size: sparseStride + 1,
	}

	got, err := d.decode(sparseStride)
	if err != nil {
		t.Fatalf("decode(%d): %v", sparseStride, err)
	}
	if got != 'Z' {
		t.Errorf("decode(%d) = %q, want 'Z'", sparseStride, got)
	}
}

func TestPairDecoderDescendWalksNonLeafSubtree(t *testing.T) {
	// symbol 2 is a non-leaf pairing symbol 0 (leafCount 1) with symbol 1
	// (leafCount 1): its own expansion is [value-of-0, value-of-1].
	d := &pairDecoder{
		symbols: []symbol{
			{leaf: true, value: 'L', leafCount: 1},
			{leaf: true, value: 'R', leafCount: 1},
			{left: 0, right: 1, leafCount: 2},
		},
		huff: huffmanTable{
			minLen: 1, maxLen: 1,
			base:  []uint32{0},
			count: []int{1},
			byLen: []uint16{2},
		},
		sparse: []sparseEntry{{block: 0, offset: 0}},
		blocks: []block{{bits: []byte{0x00}, leaves: 2}},
		size:   2,
	}

	first, err := d.decode(0)
	if err != nil || first != 'L' {
		t.Errorf("decode(0) = (%q, %v), want ('L', nil)", first, err)
	}
	second, err := d.decode(1)
	if err != nil || second != 'R' {
		t.Errorf("decode(1) = (%q, %v), want ('R', nil)", second, err)
	}
}

func TestPairDecoderIndexOutOfRange(t *testing.T) {
	d := &pairDecoder{size: 1}
	if _, err := d.decode(1); err == nil {
		t.Error("expected an error decoding an index >= size")
	}
}

func TestPairDecoderBlockOutOfRange(t *testing.T) {
	d := &pairDecoder{
		sparse: []sparseEntry{{block: 5, offset: 0}},
		blocks: nil,
		size:   1,
	}
	if _, err := d.decode(0); err == nil {
		t.Error("expected an error when the sparse index names a nonexistent block")
	}
}

func TestPairDecoderPrematureStreamEnd(t *testing.T) {
	d := &pairDecoder{
		symbols: []symbol{{leaf: true, value: 'A', leafCount: 1}},
		huff: huffmanTable{
			minLen: 1, maxLen: 1,
			base:  []uint32{0},
			count: []int{1},
			byLen: []uint16{0},
		},
		sparse: []sparseEntry{{block: 0, offset: 0}},
		blocks: []block{{bits: []byte{}, leaves: 1}},
		size:   1,
	}
	if _, err := d.decode(0); err == nil {
		t.Error("expected an error when the bitstream ends before the target offset is reached")
	}
}

func TestPairDecoderSymbolOutOfRange(t *testing.T) {
	d := &pairDecoder{
		symbols: nil, // decodeSymbol will name symbol 0, which doesn't exist
		huff: huffmanTable{
			minLen: 1, maxLen: 1,
			base:  []uint32{0},
			count: []int{1},
			byLen: []uint16{0},
		},
		sparse: []sparseEntry{{block: 0, offset: 0}},
		blocks: []block{{bits: []byte{0x00}, leaves: 1}},
		size:   1,
	}
	if _, err := d.decode(0); err == nil {
		t.Error("expected an error when the decoded symbol id has no entry in symbols")
	}
}

func TestHuffmanDecodeSymbolGrowsPastMinLen(t *testing.T) {
	// minLen=1 has zero symbols, forcing decodeSymbol to read a second bit
	// to resolve length-2 codes: 00->sym0, 01->sym1.
	h := huffmanTable{
		minLen: 1, maxLen: 2,
		base:  []uint32{0, 0},
		count: []int{0, 2},
		byLen: []uint16{0, 1},
	}
	r := newBitReader([]byte{0x40}) // bits 0,1,0,0,0,0,0,0 -> first code read is "01"
	id, ok := h.decodeSymbol(r)
	if !ok {
		t.Fatal("decodeSymbol should succeed")
	}
	if id != 1 {
		t.Errorf("decodeSymbol = %d, want 1", id)
	}
}

func TestBitReaderReadsMSBFirst(t *testing.T) {
	r := newBitReader([]byte{0b10110000})
	for _, want := range []uint32{1, 0, 1, 1} {
		got, ok := r.readBits(1)
		if !ok {
			t.Fatal("readBits should succeed within the byte")
		}
		if got != want {
			t.Errorf("readBits = %d, want %d", got, want)
		}
	}
}

func TestBitReaderExhaustedReturnsFalse(t *testing.T) {
	r := newBitReader([]byte{0xFF})
	if _, ok := r.readBits(8); !ok {
		t.Fatal("expected the first 8 bits to succeed")
	}
	if _, ok := r.readBits(1); ok {
		t.Error("expected reading past the end of the buffer to fail")
	}
}
