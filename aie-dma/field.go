package dma

import (
	"fmt"
	"math/bits"
)

// Field locates one software field inside a packed register word set.
type Field struct {
	// Idx is the index of the 32-bit word holding the field.
	Idx uint8
	// Lsb is the bit position of the least significant bit of the field.
	Lsb uint8
	// Mask selects the bits of the field within its word (already shifted).
	Mask uint32
	// Signed fields hold two's complement values.
	Signed bool
}

func field(idx, lsb, width uint8) Field {
	return Field{Idx: idx, Lsb: lsb, Mask: uint32((uint64(1)<<width)-1) << lsb}
}

func signedField(idx, lsb, width uint8) Field {
	f := field(idx, lsb, width)
	f.Signed = true
	return f
}

// Width returns the number of bits of the field.
func (f Field) Width() uint { return uint(bits.OnesCount32(f.Mask)) }

// Max returns the largest unsigned value the field can hold.
func (f Field) Max() uint32 { return f.Mask >> f.Lsb }

// Shift places v in the field position without any checks.
func (f Field) Shift(v uint32) uint32 { return (v << f.Lsb) & f.Mask }

// Get extracts the raw unsigned field value from a word.
func (f Field) Get(word uint32) uint32 { return (word & f.Mask) >> f.Lsb }

// checkPrecision fails when packing v into f would drop bits. Signed fields
// take v as a sign-extended two's complement value.
func checkPrecision(f Field, v uint64) error {
	w := f.Width()
	if f.Signed {
		s := int64(v)
		lo, hi := -(int64(1) << (w - 1)), int64(1)<<(w-1)-1
		if s < lo || s > hi {
			return fmt.Errorf("%w: %d does not fit signed %d-bit field", ErrPrecisionExceeded, s, w)
		}
		return nil
	}
	if uint(bits.Len64(v)) > w {
		return fmt.Errorf("%w: %#x does not fit %d-bit field", ErrPrecisionExceeded, v, w)
	}
	return nil
}

// checkPrecisionRightShift fails when shifting the field down by Lsb and
// masking would lose data: either mask bits lie below Lsb or the field is
// wider than the dstBits destination it is decoded into.
func checkPrecisionRightShift(f Field, dstBits uint) error {
	if f.Mask == 0 || uint8(bits.TrailingZeros32(f.Mask)) < f.Lsb {
		return fmt.Errorf("%w: mask %#x below lsb %d", ErrPrecisionExceeded, f.Mask, f.Lsb)
	}
	if f.Width() > dstBits {
		return fmt.Errorf("%w: %d-bit field into %d bits", ErrPrecisionExceeded, f.Width(), dstBits)
	}
	return nil
}

// term is one field contribution to a word.
type term struct {
	name string
	f    Field
	v    uint64
}

// packWord checks every term and only then combines them, so a single
// failing field yields no word at all.
func packWord(terms []term) (uint32, error) {
	for _, t := range terms {
		if err := checkPrecision(t.f, t.v); err != nil {
			return 0, fmt.Errorf("%s: %w", t.name, err)
		}
	}
	var word uint32
	for _, t := range terms {
		word |= t.f.Shift(uint32(t.v))
	}
	return word, nil
}

// unpackField extracts f from word after the reverse precision check.
// Signed fields are sign extended.
func unpackField(word uint32, f Field, dstBits uint) (uint64, error) {
	if err := checkPrecisionRightShift(f, dstBits); err != nil {
		return 0, err
	}
	raw := uint64(f.Get(word))
	if f.Signed {
		shift := 64 - f.Width()
		return uint64(int64(raw<<shift) >> shift), nil
	}
	return raw, nil
}
