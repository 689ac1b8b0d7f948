package dma

import "fmt"

// MultiDim is the addressing pattern of a BD. It is either an *AieMultiDim
// or an *AieMlMultiDim, matching the generation of the descriptor.
type MultiDim interface {
	multiDim()
}

// Dim is one addressing dimension as passed to SetMultiDim. StepSize is the
// address increment in words and Wrap the number of steps before the next
// dimension advances. Offset is used on AIE only.
type Dim struct {
	StepSize uint32
	Wrap     uint32
	Offset   uint32
}

// AieDim is an AIE addressing dimension in register form: Incr and Wrap
// hold the value minus one.
type AieDim struct {
	Incr   uint32
	Wrap   uint32
	Offset uint32
}

// Interleave is the AIE tile interleaving state. Count is the number of
// transfers per buffer.
type Interleave struct {
	Enable     bool
	BuffSelect uint8
	Count      uint16
	CurrPtr    uint8
}

// AieMultiDim is the two dimensional pattern of AIE tile BDs.
type AieMultiDim struct {
	X, Y       AieDim
	Interleave Interleave
}

func (*AieMultiDim) multiDim() {}

// newAieMultiDim returns the pattern of an unconfigured AIE BD, which walks
// the buffer contiguously.
func newAieMultiDim() *AieMultiDim {
	return &AieMultiDim{
		X:          AieDim{Incr: 0, Wrap: 0xFF, Offset: 1},
		Y:          AieDim{Incr: 0, Wrap: 0xFF, Offset: 0x100},
		Interleave: Interleave{Count: 1},
	}
}

func (md *AieMultiDim) set(dims []Dim) error {
	if len(dims) == 0 || len(dims) > 2 {
		return fmt.Errorf("%w: %d dimensions, want 1 or 2", ErrInvalidArgs, len(dims))
	}
	var xy [2]AieDim
	xy[0], xy[1] = md.X, md.Y
	for i, dim := range dims {
		if dim.StepSize == 0 || dim.Wrap == 0 {
			return fmt.Errorf("%w: dimension %d step %d wrap %d", ErrInvalidArgs, i, dim.StepSize, dim.Wrap)
		}
		xy[i] = AieDim{Incr: dim.StepSize - 1, Wrap: dim.Wrap - 1, Offset: dim.Offset}
	}
	md.X, md.Y = xy[0], xy[1]
	return nil
}

func (md *AieMultiDim) setInterleave(buffSelect uint8, count uint16, curr uint8) error {
	if count == 0 {
		return fmt.Errorf("%w: interleave count 0", ErrInvalidArgs)
	}
	md.Interleave = Interleave{
		Enable:     true,
		BuffSelect: buffSelect,
		Count:      count,
		CurrPtr:    curr,
	}
	return nil
}

// AieMlDim is an AIE-ML addressing dimension. StepSize is at least one.
type AieMlDim struct {
	StepSize uint32
	Wrap     uint32
}

// Iteration repeats a BD Wrap times, moving the buffer by StepSize words
// each time. Curr is the iteration the hardware is at.
type Iteration struct {
	StepSize uint32
	Wrap     uint32
	Curr     uint8
}

// AieMlMultiDim is the up to four dimensional pattern of AIE-ML BDs.
type AieMlMultiDim struct {
	Dims [4]AieMlDim
	Iter Iteration
}

func (*AieMlMultiDim) multiDim() {}

func newAieMlMultiDim() *AieMlMultiDim {
	md := &AieMlMultiDim{Iter: Iteration{StepSize: 1, Wrap: 1}}
	for i := range md.Dims {
		md.Dims[i].StepSize = 1
	}
	return md
}

func (md *AieMlMultiDim) set(p *BdProp, dims []Dim) error {
	n := 0
	for _, id := range stepFields {
		if p.Has(id) {
			n++
		}
	}
	if len(dims) == 0 || len(dims) > n {
		return fmt.Errorf("%w: %d dimensions, %v %v has %d", ErrInvalidArgs, len(dims), p.Gen, p.Tile, n)
	}
	next := newAieMlMultiDim().Dims
	for i, dim := range dims {
		step := p.byID[stepFields[i]]
		if dim.StepSize == 0 || dim.StepSize > step.Max()+1 {
			return fmt.Errorf("%w: dimension %d step %d outside 1..%d", ErrInvalidArgs, i, dim.StepSize, uint64(step.Max())+1)
		}
		wf, ok := p.Field(wrapFields[i])
		switch {
		case !ok && dim.Wrap != 0:
			return fmt.Errorf("%w: dimension %d has no wrap", ErrInvalidArgs, i)
		case ok && dim.Wrap > wf.Max()+1:
			return fmt.Errorf("%w: dimension %d wrap %d above %d", ErrInvalidArgs, i, dim.Wrap, uint64(wf.Max())+1)
		}
		next[i] = AieMlDim{StepSize: dim.StepSize, Wrap: dim.Wrap}
	}
	md.Dims = next
	return nil
}

func (md *AieMlMultiDim) setIteration(p *BdProp, it Iteration) error {
	step, wrap, curr := p.byID[FieldIterStep], p.byID[FieldIterWrap], p.byID[FieldIterCurr]
	switch {
	case it.StepSize == 0 || it.StepSize > step.Max()+1:
		return fmt.Errorf("%w: iteration step %d outside 1..%d", ErrInvalidArgs, it.StepSize, uint64(step.Max())+1)
	case it.Wrap == 0 || it.Wrap > wrap.Max()+1:
		return fmt.Errorf("%w: iteration wrap %d outside 1..%d", ErrInvalidArgs, it.Wrap, uint64(wrap.Max())+1)
	case uint32(it.Curr) > curr.Max():
		return fmt.Errorf("%w: iteration current %d above %d", ErrInvalidArgs, it.Curr, curr.Max())
	}
	md.Iter = it
	return nil
}

// checkPadding rejects padding of dimensions that do not iterate: a
// dimension with a zero wrap may not pad after itself and no higher
// dimension may pad at all.
func checkPadding(d *Desc) error {
	md, ok := d.MultiDim.(*AieMlMultiDim)
	if !ok {
		return fmt.Errorf("%w: no AIE-ML addressing pattern", ErrInvalidDesc)
	}
	for i := range d.Pad {
		if md.Dims[i].Wrap != 0 {
			continue
		}
		if d.Pad[i].After != 0 {
			return fmt.Errorf("%w: dimension %d pads after with wrap 0", ErrInvalidDesc, i)
		}
		for j := i + 1; j < len(d.Pad); j++ {
			if d.Pad[j].Before != 0 || d.Pad[j].After != 0 {
				return fmt.Errorf("%w: dimension %d pads above dimension %d with wrap 0", ErrInvalidDesc, j, i)
			}
		}
	}
	return nil
}
