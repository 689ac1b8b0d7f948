package dma

import (
	"errors"
	"testing"
)

func TestCheckPrecision(t *testing.T) {
	f := field(0, 4, 4)
	if err := checkPrecision(f, 15); err != nil {
		t.Errorf("15 in 4 bits: %v", err)
	}
	if err := checkPrecision(f, 16); !errors.Is(err, ErrPrecisionExceeded) {
		t.Errorf("16 in 4 bits got %v", err)
	}
	s := signedField(0, 5, 7)
	for _, v := range []int64{-64, -1, 0, 63} {
		if err := checkPrecision(s, uint64(v)); err != nil {
			t.Errorf("%d in signed 7 bits: %v", v, err)
		}
	}
	for _, v := range []int64{-65, 64, 127} {
		if err := checkPrecision(s, uint64(v)); !errors.Is(err, ErrPrecisionExceeded) {
			t.Errorf("%d in signed 7 bits got %v", v, err)
		}
	}
}

func TestCheckPrecisionRightShift(t *testing.T) {
	if err := checkPrecisionRightShift(Field{Lsb: 4, Mask: 0xF0}, 32); err != nil {
		t.Errorf("aligned field: %v", err)
	}
	if err := checkPrecisionRightShift(Field{Lsb: 4, Mask: 0xF8}, 32); !errors.Is(err, ErrPrecisionExceeded) {
		t.Errorf("mask below lsb got %v", err)
	}
	if err := checkPrecisionRightShift(field(0, 0, 20), 16); !errors.Is(err, ErrPrecisionExceeded) {
		t.Errorf("20 bits into 16 got %v", err)
	}
}

func TestPackWordAllOrNothing(t *testing.T) {
	terms := []term{
		{"a", field(0, 0, 4), 0xA},
		{"b", field(0, 4, 4), 0x10},
	}
	w, err := packWord(terms)
	if !errors.Is(err, ErrPrecisionExceeded) {
		t.Fatalf("got %v", err)
	}
	if w != 0 {
		t.Errorf("partial word got %#x != expected 0", w)
	}
	terms[1].v = 0x5
	w, err = packWord(terms)
	if err != nil {
		t.Fatal(err)
	}
	if w != 0x5A {
		t.Errorf("word mismatch got!=expected: %#x != %#x", w, 0x5A)
	}
}

func TestUnpackFieldSigned(t *testing.T) {
	f := signedField(0, 5, 7)
	neg := int32(-3)
	w := f.Shift(uint32(neg))
	v, err := unpackField(w, f, 32)
	if err != nil {
		t.Fatal(err)
	}
	if int64(v) != -3 {
		t.Errorf("signed unpack got %d != -3", int64(v))
	}
	u := field(0, 5, 7)
	v, _ = unpackField(w, u, 32)
	if v != 0x7D {
		t.Errorf("unsigned unpack got %#x != 0x7d", v)
	}
}

func TestBdPropTables(t *testing.T) {
	for gen, mods := range dmaMods {
		for tt, m := range mods {
			if m == nil {
				continue
			}
			p := m.bd
			if p.Gen != gen || p.Tile != TileType(tt) {
				t.Errorf("%v %v table labelled %v %v", gen, TileType(tt), p.Gen, p.Tile)
			}
			used := make([]uint32, p.NumWords)
			for _, d := range p.fields {
				if used[d.f.Idx]&d.f.Mask != 0 {
					t.Errorf("%v %v: %v overlaps word %d", gen, p.Tile, d.id, d.f.Idx)
				}
				used[d.f.Idx] |= d.f.Mask
				if err := checkPrecisionRightShift(d.f, 32); err != nil {
					t.Errorf("%v %v: %v: %v", gen, p.Tile, d.id, err)
				}
			}
			for _, id := range []FieldID{FieldBaseAddr, FieldLength, FieldValidBd, FieldLockAcqID} {
				if !p.Has(id) {
					t.Errorf("%v %v lacks %v", gen, p.Tile, id)
				}
			}
			if len(m.ch.StatusFields) != int(m.ch.NumChannels) {
				t.Errorf("%v %v: %d status layouts for %d channels", gen, p.Tile, len(m.ch.StatusFields), m.ch.NumChannels)
			}
		}
	}
}

func TestShimAddrSplit(t *testing.T) {
	p := aieMlShimBdProp
	low, high, err := p.splitAddr(0x1_2345_6788)
	if err != nil {
		t.Fatal(err)
	}
	if low != 0x2345_6788>>2 || high != 1 {
		t.Errorf("split got %#x,%#x", low, high)
	}
	if a := p.joinAddr(low, high); a != 0x1_2345_6788 {
		t.Errorf("join got %#x != %#x", a, uint64(0x1_2345_6788))
	}
	if _, _, err := p.splitAddr(0x1002); !errors.Is(err, ErrInvalidDesc) {
		t.Errorf("unaligned address got %v", err)
	}
}

func TestPatchAddr(t *testing.T) {
	p := aieShimBdProp
	words := []uint32{0, 0, 0xFFFF_FFFF, 0, 0}
	if err := p.PatchAddr(words, 0xBEEF_0000_1000); err != nil {
		t.Fatal(err)
	}
	if words[0] != 0x1000 {
		t.Errorf("low word got %#x != 0x1000", words[0])
	}
	if words[2] != 0xBEEF_FFFF {
		t.Errorf("high word got %#x != 0xbeefffff", words[2])
	}
	a, err := p.AddrOf(words)
	if err != nil {
		t.Fatal(err)
	}
	if a != 0xBEEF_0000_1000 {
		t.Errorf("addr got %#x", a)
	}
	if err := p.PatchAddr(words, 1<<48); !errors.Is(err, ErrPrecisionExceeded) {
		t.Errorf("49 bit address got %v", err)
	}
	if err := p.PatchAddr(words[:3], 0); !errors.Is(err, ErrInvalidArgs) {
		t.Errorf("short image got %v", err)
	}
}

func TestSplitBdChannel(t *testing.T) {
	c := splitBdChannel{half: 24}
	for _, tc := range []struct {
		bd, ch uint8
		ok     bool
	}{
		{10, 0, true},
		{10, 1, false},
		{23, 2, true},
		{24, 2, false},
		{24, 3, true},
		{47, 5, true},
	} {
		err := c.checkBdChannel(tc.bd, tc.ch)
		if (err == nil) != tc.ok {
			t.Errorf("bd %d ch %d got %v", tc.bd, tc.ch, err)
		}
		if err != nil && !errors.Is(err, ErrInvalidArgs) {
			t.Errorf("bd %d ch %d error %v not invalid args", tc.bd, tc.ch, err)
		}
	}
	if err := (anyBdChannel{}).checkBdChannel(40, 1); err != nil {
		t.Errorf("any: %v", err)
	}
}
