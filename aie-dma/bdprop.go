package dma

import "fmt"

// FieldID names a software field of a buffer descriptor.
type FieldID uint8

const (
	FieldBaseAddr FieldID = iota
	FieldBaseAddrHigh
	FieldBaseAddrB
	FieldLength

	FieldLockAcqID
	FieldLockAcqEn
	FieldLockAcqVal
	FieldLockAcqValEn
	FieldLockRelID
	FieldLockRelEn
	FieldLockRelVal
	FieldLockRelValEn

	FieldLockBAcqID
	FieldLockBAcqEn
	FieldLockBAcqVal
	FieldLockBAcqValEn
	FieldLockBRelEn
	FieldLockBRelVal
	FieldLockBRelValEn

	FieldEnDoubleBuff
	FieldFifoMode
	FieldEnInterleave
	FieldInterleaveCount
	FieldBuffSelect
	FieldCurrPtr

	FieldXIncr
	FieldXWrap
	FieldXOffset
	FieldYIncr
	FieldYWrap
	FieldYOffset

	FieldD0Step
	FieldD0Wrap
	FieldD1Step
	FieldD1Wrap
	FieldD2Step
	FieldD2Wrap
	FieldD3Step

	FieldIterStep
	FieldIterWrap
	FieldIterCurr

	FieldD0PadBefore
	FieldD0PadAfter
	FieldD1PadBefore
	FieldD1PadAfter
	FieldD2PadBefore
	FieldD2PadAfter

	FieldValidBd
	FieldUseNextBd
	FieldNextBd
	FieldOutOfOrderBdID

	FieldEnPkt
	FieldPktID
	FieldPktType

	FieldSmid
	FieldBurstLen
	FieldQos
	FieldSecure
	FieldCache

	FieldEnCompression
	FieldTlastSuppress

	numFields
)

var fieldIDStrings = [...]string{
	FieldBaseAddr:        "base-addr",
	FieldBaseAddrHigh:    "base-addr-high",
	FieldBaseAddrB:       "base-addr-b",
	FieldLength:          "length",
	FieldLockAcqID:       "lock-acq-id",
	FieldLockAcqEn:       "lock-acq-en",
	FieldLockAcqVal:      "lock-acq-val",
	FieldLockAcqValEn:    "lock-acq-val-en",
	FieldLockRelID:       "lock-rel-id",
	FieldLockRelEn:       "lock-rel-en",
	FieldLockRelVal:      "lock-rel-val",
	FieldLockRelValEn:    "lock-rel-val-en",
	FieldLockBAcqID:      "lock-b-acq-id",
	FieldLockBAcqEn:      "lock-b-acq-en",
	FieldLockBAcqVal:     "lock-b-acq-val",
	FieldLockBAcqValEn:   "lock-b-acq-val-en",
	FieldLockBRelEn:      "lock-b-rel-en",
	FieldLockBRelVal:     "lock-b-rel-val",
	FieldLockBRelValEn:   "lock-b-rel-val-en",
	FieldEnDoubleBuff:    "en-double-buff",
	FieldFifoMode:        "fifo-mode",
	FieldEnInterleave:    "en-interleave",
	FieldInterleaveCount: "interleave-count",
	FieldBuffSelect:      "buff-select",
	FieldCurrPtr:         "curr-ptr",
	FieldXIncr:           "x-incr",
	FieldXWrap:           "x-wrap",
	FieldXOffset:         "x-offset",
	FieldYIncr:           "y-incr",
	FieldYWrap:           "y-wrap",
	FieldYOffset:         "y-offset",
	FieldD0Step:          "d0-step",
	FieldD0Wrap:          "d0-wrap",
	FieldD1Step:          "d1-step",
	FieldD1Wrap:          "d1-wrap",
	FieldD2Step:          "d2-step",
	FieldD2Wrap:          "d2-wrap",
	FieldD3Step:          "d3-step",
	FieldIterStep:        "iter-step",
	FieldIterWrap:        "iter-wrap",
	FieldIterCurr:        "iter-curr",
	FieldD0PadBefore:     "d0-pad-before",
	FieldD0PadAfter:      "d0-pad-after",
	FieldD1PadBefore:     "d1-pad-before",
	FieldD1PadAfter:      "d1-pad-after",
	FieldD2PadBefore:     "d2-pad-before",
	FieldD2PadAfter:      "d2-pad-after",
	FieldValidBd:         "valid-bd",
	FieldUseNextBd:       "use-next-bd",
	FieldNextBd:          "next-bd",
	FieldOutOfOrderBdID:  "out-of-order-bd-id",
	FieldEnPkt:           "en-pkt",
	FieldPktID:           "pkt-id",
	FieldPktType:         "pkt-type",
	FieldSmid:            "smid",
	FieldBurstLen:        "burst-len",
	FieldQos:             "qos",
	FieldSecure:          "secure",
	FieldCache:           "cache",
	FieldEnCompression:   "en-compression",
	FieldTlastSuppress:   "tlast-suppress",
}

func (id FieldID) String() string {
	if id < numFields {
		return fieldIDStrings[id]
	}
	return fmt.Sprintf("field(%d)", uint8(id))
}

// noField is never present in a BD.
const noField = numFields

// Dimension field sets of AIE-ML BDs, indexed by dimension.
var (
	stepFields      = [4]FieldID{FieldD0Step, FieldD1Step, FieldD2Step, FieldD3Step}
	wrapFields      = [4]FieldID{FieldD0Wrap, FieldD1Wrap, FieldD2Wrap, noField}
	padBeforeFields = [3]FieldID{FieldD0PadBefore, FieldD1PadBefore, FieldD2PadBefore}
	padAfterFields  = [3]FieldID{FieldD0PadAfter, FieldD1PadAfter, FieldD2PadAfter}
)

// fieldDef is one row of a BD register table.
type fieldDef struct {
	id FieldID
	f  Field
}

// BdProp is the buffer descriptor register layout of one generation and
// tile class. It is immutable once built.
type BdProp struct {
	Gen  Generation
	Tile TileType
	// Base is the register offset of BD 0 within the tile.
	Base uint32
	// Stride is the distance in bytes between consecutive BDs.
	Stride   uint32
	NumBds   uint8
	NumWords uint8
	// AddrAlign is the required alignment of buffer addresses in bytes.
	AddrAlign uint64
	// AddrShift converts a byte address into the address field value of
	// layouts without a high address field.
	AddrShift uint8
	// LenUnit is the granularity of the length field in bytes and LenBias
	// is subtracted from the length in units before it is stored.
	LenUnit uint32
	LenBias uint32
	// BurstLens maps burst length encodings to burst lengths.
	BurstLens []uint8

	fields []fieldDef
	byID   [numFields]Field
	has    [numFields]bool
}

func newBdProp(p BdProp, defs ...fieldDef) *BdProp {
	p.fields = defs
	for _, d := range defs {
		if p.has[d.id] {
			panic("dma: duplicate field " + d.id.String())
		}
		if d.f.Idx >= p.NumWords {
			panic("dma: field " + d.id.String() + " outside bd")
		}
		p.byID[d.id] = d.f
		p.has[d.id] = true
	}
	return &p
}

// Field returns the layout of id and whether the BD has such a field.
func (p *BdProp) Field(id FieldID) (Field, bool) {
	if id >= numFields {
		return Field{}, false
	}
	return p.byID[id], p.has[id]
}

// Has reports whether the BD has field id.
func (p *BdProp) Has(id FieldID) bool { return id < numFields && p.has[id] }

// BdOffset returns the register offset of the first word of bd within the
// tile.
func (p *BdProp) BdOffset(bd uint8) uint32 { return p.Base + uint32(bd)*p.Stride }

// fieldsOfWord returns the table rows of word idx in table order.
func (p *BdProp) fieldsOfWord(idx uint8) []fieldDef {
	var defs []fieldDef
	for _, d := range p.fields {
		if d.f.Idx == idx {
			defs = append(defs, d)
		}
	}
	return defs
}

// burstCode returns the encoding of burst length n.
func (p *BdProp) burstCode(n uint8) (uint64, bool) {
	for code, l := range p.BurstLens {
		if l == n {
			return uint64(code), true
		}
	}
	return 0, false
}

// splitAddr converts a byte address into base address field values.
func (p *BdProp) splitAddr(addr uint64) (low, high uint64, err error) {
	if addr%p.AddrAlign != 0 {
		return 0, 0, fmt.Errorf("%w: address %#x not %d byte aligned", ErrInvalidDesc, addr, p.AddrAlign)
	}
	if p.has[FieldBaseAddrHigh] {
		return uint64(uint32(addr)) >> p.byID[FieldBaseAddr].Lsb, addr >> 32, nil
	}
	return addr >> p.AddrShift, 0, nil
}

// joinAddr is the inverse of splitAddr.
func (p *BdProp) joinAddr(low, high uint64) uint64 {
	if p.has[FieldBaseAddrHigh] {
		return low<<p.byID[FieldBaseAddr].Lsb | high<<32
	}
	return low << p.AddrShift
}

// addrTerms returns the address field terms of split address low, high.
func (p *BdProp) addrTerms(low, high uint64) []term {
	ts := []term{{FieldBaseAddr.String(), p.byID[FieldBaseAddr], low}}
	if p.has[FieldBaseAddrHigh] {
		ts = append(ts, term{FieldBaseAddrHigh.String(), p.byID[FieldBaseAddrHigh], high})
	}
	return ts
}

// PatchAddr rewrites the base address fields of a packed BD image with addr,
// leaving all other fields untouched.
func (p *BdProp) PatchAddr(words []uint32, addr uint64) error {
	if len(words) != int(p.NumWords) {
		return fmt.Errorf("%w: %d words for a %d word bd", ErrInvalidArgs, len(words), p.NumWords)
	}
	low, high, err := p.splitAddr(addr)
	if err != nil {
		return err
	}
	ts := p.addrTerms(low, high)
	for _, t := range ts {
		if err := checkPrecision(t.f, t.v); err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
	}
	for _, t := range ts {
		words[t.f.Idx] = words[t.f.Idx]&^t.f.Mask | t.f.Shift(uint32(t.v))
	}
	return nil
}

// AddrOf returns the buffer address encoded in a packed BD image.
func (p *BdProp) AddrOf(words []uint32) (uint64, error) {
	if len(words) != int(p.NumWords) {
		return 0, fmt.Errorf("%w: %d words for a %d word bd", ErrInvalidArgs, len(words), p.NumWords)
	}
	lf := p.byID[FieldBaseAddr]
	low, err := unpackField(words[lf.Idx], lf, 32)
	if err != nil {
		return 0, err
	}
	var high uint64
	if hf, ok := p.Field(FieldBaseAddrHigh); ok {
		if high, err = unpackField(words[hf.Idx], hf, 32); err != nil {
			return 0, err
		}
	}
	return p.joinAddr(low, high), nil
}
