package dma

import "fmt"

// fieldVals copies the dimensions, already in register form, and biases
// the interleave count.
func (md *AieMultiDim) fieldVals(p *BdProp, vals *fieldVals) error {
	vals[FieldXIncr] = uint64(md.X.Incr)
	vals[FieldXWrap] = uint64(md.X.Wrap)
	vals[FieldXOffset] = uint64(md.X.Offset)
	vals[FieldYIncr] = uint64(md.Y.Incr)
	vals[FieldYWrap] = uint64(md.Y.Wrap)
	vals[FieldYOffset] = uint64(md.Y.Offset)

	il := &md.Interleave
	if p.Has(FieldInterleaveCount) && il.Count == 0 {
		return fmt.Errorf("%w: interleave count 0", ErrInvalidDesc)
	}
	vals[FieldEnInterleave] = b2u(il.Enable)
	vals[FieldInterleaveCount] = uint64(il.Count) - 1
	vals[FieldBuffSelect] = uint64(il.BuffSelect)
	vals[FieldCurrPtr] = uint64(il.CurrPtr)
	return nil
}

func (md *AieMultiDim) decode(p *BdProp, vals *fieldVals) {
	if p.Has(FieldXIncr) {
		md.X = AieDim{Incr: uint32(vals[FieldXIncr]), Wrap: uint32(vals[FieldXWrap]), Offset: uint32(vals[FieldXOffset])}
		md.Y = AieDim{Incr: uint32(vals[FieldYIncr]), Wrap: uint32(vals[FieldYWrap]), Offset: uint32(vals[FieldYOffset])}
	}
	if p.Has(FieldEnInterleave) {
		md.Interleave = Interleave{
			Enable:     vals[FieldEnInterleave] != 0,
			BuffSelect: uint8(vals[FieldBuffSelect]),
			Count:      uint16(vals[FieldInterleaveCount]) + 1,
			CurrPtr:    uint8(vals[FieldCurrPtr]),
		}
	}
}
