package dma

import "fmt"

// fieldVals stores step sizes and the iteration step and wrap minus one.
// Dimension wraps are stored as they are.
func (md *AieMlMultiDim) fieldVals(p *BdProp, vals *fieldVals) error {
	for i, dim := range md.Dims {
		if !p.Has(stepFields[i]) {
			continue
		}
		if dim.StepSize == 0 {
			return fmt.Errorf("%w: dimension %d step 0", ErrInvalidDesc, i)
		}
		vals[stepFields[i]] = uint64(dim.StepSize) - 1
		if wrapFields[i] != noField {
			vals[wrapFields[i]] = uint64(dim.Wrap)
		}
	}
	it := &md.Iter
	if it.StepSize == 0 || it.Wrap == 0 {
		return fmt.Errorf("%w: iteration step %d wrap %d", ErrInvalidDesc, it.StepSize, it.Wrap)
	}
	vals[FieldIterStep] = uint64(it.StepSize) - 1
	vals[FieldIterWrap] = uint64(it.Wrap) - 1
	vals[FieldIterCurr] = uint64(it.Curr)
	return nil
}

func (md *AieMlMultiDim) decode(p *BdProp, vals *fieldVals) {
	for i := range md.Dims {
		if !p.Has(stepFields[i]) {
			continue
		}
		md.Dims[i].StepSize = uint32(vals[stepFields[i]]) + 1
		if p.Has(wrapFields[i]) {
			md.Dims[i].Wrap = uint32(vals[wrapFields[i]])
		}
	}
	md.Iter = Iteration{
		StepSize: uint32(vals[FieldIterStep]) + 1,
		Wrap:     uint32(vals[FieldIterWrap]) + 1,
		Curr:     uint8(vals[FieldIterCurr]),
	}
}
