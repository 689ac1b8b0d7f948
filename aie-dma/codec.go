package dma

import (
	"fmt"
	"math"
)

// fieldVals holds the register value of every field of a BD, biases
// applied. Entries of fields the layout lacks are ignored.
type fieldVals [numFields]uint64

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// lockVal returns the register value of a lock value, zero when the value
// is not enabled. Signed values are sign extended for the precision guard.
func lockVal(v int8, en bool) uint64 {
	if !en {
		return 0
	}
	return uint64(int64(v))
}

// encode validates d and packs it into the BD words of its layout.
func (d *Desc) encode() ([]uint32, error) {
	if err := d.bound(); err != nil {
		return nil, err
	}
	if d.mod.validate != nil {
		if err := d.mod.validate(d); err != nil {
			return nil, err
		}
	}
	vals, err := d.fieldVals()
	if err != nil {
		return nil, err
	}
	return d.mod.bd.pack(&vals)
}

// pack builds every word from the table. All fields of a word pass the
// precision guard before any of them is combined.
func (p *BdProp) pack(vals *fieldVals) ([]uint32, error) {
	words := make([]uint32, p.NumWords)
	for idx := range words {
		defs := p.fieldsOfWord(uint8(idx))
		terms := make([]term, len(defs))
		for i, fd := range defs {
			terms[i] = term{name: fd.id.String(), f: fd.f, v: vals[fd.id]}
		}
		w, err := packWord(terms)
		if err != nil {
			return nil, fmt.Errorf("word %d: %w", idx, err)
		}
		words[idx] = w
	}
	return words, nil
}

// unpack extracts every field of the layout from words.
func (p *BdProp) unpack(words []uint32) (*fieldVals, error) {
	if len(words) != int(p.NumWords) {
		return nil, fmt.Errorf("%w: %d words for a %d word bd", ErrInvalidArgs, len(words), p.NumWords)
	}
	var vals fieldVals
	for _, fd := range p.fields {
		v, err := unpackField(words[fd.f.Idx], fd.f, 32)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", fd.id, err)
		}
		vals[fd.id] = v
	}
	return &vals, nil
}

// lenVal converts a byte length into the length field value.
func (p *BdProp) lenVal(length uint32) (uint64, error) {
	if length%p.LenUnit != 0 {
		return 0, fmt.Errorf("%w: length %d not a multiple of %d", ErrInvalidDesc, length, p.LenUnit)
	}
	units := length / p.LenUnit
	if units < p.LenBias {
		return 0, fmt.Errorf("%w: length %d below %d", ErrInvalidDesc, length, p.LenBias*p.LenUnit)
	}
	return uint64(units - p.LenBias), nil
}

// lenOf is the inverse of lenVal.
func (p *BdProp) lenOf(v uint64) (uint32, error) {
	n := (v + uint64(p.LenBias)) * uint64(p.LenUnit)
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: length of %d units", ErrPrecisionExceeded, v)
	}
	return uint32(n), nil
}

func (d *Desc) fieldVals() (fieldVals, error) {
	var vals fieldVals
	p := d.mod.bd

	low, high, err := p.splitAddr(d.Addr.Addr)
	if err != nil {
		return vals, err
	}
	vals[FieldBaseAddr], vals[FieldBaseAddrHigh] = low, high
	if p.Has(FieldBaseAddrB) {
		if vals[FieldBaseAddrB], _, err = p.splitAddr(d.AddrB.Addr); err != nil {
			return vals, err
		}
	}
	if vals[FieldLength], err = p.lenVal(d.Addr.Len); err != nil {
		return vals, err
	}

	l := &d.Lock
	vals[FieldLockAcqID] = uint64(l.AcqID)
	vals[FieldLockAcqEn] = b2u(l.AcqEn)
	vals[FieldLockAcqVal] = lockVal(l.AcqVal, l.AcqValEn)
	vals[FieldLockAcqValEn] = b2u(l.AcqValEn)
	vals[FieldLockRelID] = uint64(l.RelID)
	vals[FieldLockRelEn] = b2u(l.RelEn)
	vals[FieldLockRelVal] = lockVal(l.RelVal, l.RelValEn)
	vals[FieldLockRelValEn] = b2u(l.RelValEn)

	lb := &d.LockB
	vals[FieldLockBAcqID] = uint64(lb.AcqID)
	vals[FieldLockBAcqEn] = b2u(lb.AcqEn)
	vals[FieldLockBAcqVal] = lockVal(lb.AcqVal, lb.AcqValEn)
	vals[FieldLockBAcqValEn] = b2u(lb.AcqValEn)
	vals[FieldLockBRelEn] = b2u(lb.RelEn)
	vals[FieldLockBRelVal] = lockVal(lb.RelVal, lb.RelValEn)
	vals[FieldLockBRelValEn] = b2u(lb.RelValEn)

	vals[FieldEnDoubleBuff] = b2u(d.EnDoubleBuff)
	vals[FieldFifoMode] = uint64(d.FifoMode)
	vals[FieldEnCompression] = b2u(d.EnCompression)
	vals[FieldTlastSuppress] = b2u(d.TlastSuppress)

	vals[FieldValidBd] = b2u(d.BdEn.ValidBd)
	vals[FieldUseNextBd] = b2u(d.BdEn.UseNextBd)
	vals[FieldNextBd] = uint64(d.BdEn.NextBd)
	vals[FieldOutOfOrderBdID] = uint64(d.BdEn.OutOfOrderBdID)

	vals[FieldEnPkt] = b2u(d.Pkt.Enable)
	vals[FieldPktID] = uint64(d.Pkt.ID)
	vals[FieldPktType] = uint64(d.Pkt.Type)

	if p.Has(FieldBurstLen) {
		code, ok := p.burstCode(d.Axi.BurstLen)
		if !ok {
			return vals, fmt.Errorf("%w: %d not in %v", ErrInvalidBurstLength, d.Axi.BurstLen, p.BurstLens)
		}
		vals[FieldBurstLen] = code
	}
	vals[FieldSmid] = uint64(d.Axi.Smid)
	vals[FieldQos] = uint64(d.Axi.Qos)
	vals[FieldSecure] = b2u(d.Axi.Secure)
	vals[FieldCache] = uint64(d.Axi.Cache)

	for i, pad := range d.Pad {
		vals[padBeforeFields[i]] = uint64(pad.Before)
		vals[padAfterFields[i]] = uint64(pad.After)
	}

	switch md := d.MultiDim.(type) {
	case *AieMultiDim:
		err = md.fieldVals(p, &vals)
	case *AieMlMultiDim:
		err = md.fieldVals(p, &vals)
	default:
		err = fmt.Errorf("%w: no addressing pattern", ErrInvalidDesc)
	}
	return vals, err
}

// decode rebuilds a descriptor bound to m from BD words.
func decode(m *dmaMod, words []uint32) (Desc, error) {
	p := m.bd
	vals, err := p.unpack(words)
	if err != nil {
		return Desc{}, err
	}
	d := newDesc(m)

	d.Addr.Addr = p.joinAddr(vals[FieldBaseAddr], vals[FieldBaseAddrHigh])
	if d.Addr.Len, err = p.lenOf(vals[FieldLength]); err != nil {
		return Desc{}, err
	}

	d.Lock = decodeLock(p, vals, FieldLockAcqID, FieldLockAcqEn, FieldLockAcqVal, FieldLockAcqValEn,
		FieldLockRelID, FieldLockRelEn, FieldLockRelVal, FieldLockRelValEn)

	if p.Has(FieldEnDoubleBuff) {
		d.EnDoubleBuff = vals[FieldEnDoubleBuff] != 0
	}
	if p.Has(FieldBaseAddrB) {
		d.AddrB.Addr = p.joinAddr(vals[FieldBaseAddrB], 0)
		d.LockB = decodeLock(p, vals, FieldLockBAcqID, FieldLockBAcqEn, FieldLockBAcqVal, FieldLockBAcqValEn,
			noField, FieldLockBRelEn, FieldLockBRelVal, FieldLockBRelValEn)
	}
	d.FifoMode = uint8(vals[FieldFifoMode])
	d.EnCompression = vals[FieldEnCompression] != 0
	d.TlastSuppress = vals[FieldTlastSuppress] != 0

	d.BdEn = BdEnDesc{
		ValidBd:        vals[FieldValidBd] != 0,
		UseNextBd:      vals[FieldUseNextBd] != 0,
		NextBd:         uint8(vals[FieldNextBd]),
		OutOfOrderBdID: uint8(vals[FieldOutOfOrderBdID]),
	}
	d.Pkt = PktDesc{
		Enable: vals[FieldEnPkt] != 0,
		ID:     uint8(vals[FieldPktID]),
		Type:   uint8(vals[FieldPktType]),
	}

	if p.Has(FieldBurstLen) {
		code := vals[FieldBurstLen]
		if code >= uint64(len(p.BurstLens)) {
			return Desc{}, fmt.Errorf("%w: burst length code %d", ErrInvalidBurstLength, code)
		}
		d.Axi = AxiDesc{
			Smid:     uint8(vals[FieldSmid]),
			BurstLen: p.BurstLens[code],
			Qos:      uint8(vals[FieldQos]),
			Secure:   vals[FieldSecure] != 0,
			Cache:    uint8(vals[FieldCache]),
		}
	}

	if p.Has(FieldD0PadBefore) {
		for i := range d.Pad {
			d.Pad[i] = PadDesc{
				Before: uint8(vals[padBeforeFields[i]]),
				After:  uint8(vals[padAfterFields[i]]),
			}
		}
	}

	switch md := d.MultiDim.(type) {
	case *AieMultiDim:
		md.decode(p, vals)
	case *AieMlMultiDim:
		md.decode(p, vals)
	}
	return d, nil
}

// decodeLock reads one lock pair. Enables the layout lacks read as set and
// a missing release id is the acquire id.
func decodeLock(p *BdProp, vals *fieldVals, acqID, acqEn, acqVal, acqValEn, relID, relEn, relVal, relValEn FieldID) LockDesc {
	flag := func(id FieldID) bool {
		if !p.Has(id) {
			return true
		}
		return vals[id] != 0
	}
	l := LockDesc{
		AcqID:    uint8(vals[acqID]),
		AcqEn:    flag(acqEn),
		AcqValEn: flag(acqValEn),
		RelEn:    flag(relEn),
		RelValEn: flag(relValEn),
	}
	l.RelID = l.AcqID
	if p.Has(relID) {
		l.RelID = uint8(vals[relID])
	}
	if l.AcqValEn {
		l.AcqVal = int8(vals[acqVal])
	}
	if l.RelValEn {
		l.RelVal = int8(vals[relVal])
	}
	return l
}

// WriteBd packs d and writes it to BD slot bd of the tile at loc. Nothing is
// written unless every word packs. Shim BDs go through the backend's
// ShimDmaBdWriter when it has one.
func (dev *Device) WriteBd(d *Desc, loc Loc, bd uint8) error {
	if err := d.bound(); err != nil {
		return fail("WriteBd", err)
	}
	m, err := dev.mod(loc)
	if err != nil {
		return fail("WriteBd", err)
	}
	if m != d.mod {
		return fail("WriteBd", fmt.Errorf("%w: %v %v descriptor on %v %v at %v",
			ErrInvalidTile, d.Generation(), d.TileType(), m.bd.Gen, m.bd.Tile, loc))
	}
	p := m.bd
	if bd >= p.NumBds {
		return fail("WriteBd", fmt.Errorf("%w: bd %d of %d", ErrInvalidArgs, bd, p.NumBds))
	}
	words, err := d.encode()
	if err != nil {
		return fail("WriteBd", err)
	}
	addr := dev.TileAddr(loc) + uint64(p.BdOffset(bd))
	if p.Tile == TileTypeShim {
		if w, ok := dev.backend.(ShimDmaBdWriter); ok {
			return w.WriteShimDmaBd(ShimDmaBdArgs{
				Loc:     loc,
				Bd:      bd,
				Addr:    addr,
				Words:   words,
				BufAddr: d.Addr.Addr,
				Prop:    p,
			})
		}
	}
	return dev.backend.BlockWrite32(addr, words)
}

// ReadBd reads BD slot bd of the tile at loc back into a descriptor. No
// write time checks are applied to what the hardware holds.
func (dev *Device) ReadBd(loc Loc, bd uint8) (Desc, error) {
	m, err := dev.mod(loc)
	if err != nil {
		return Desc{}, fail("ReadBd", err)
	}
	p := m.bd
	if bd >= p.NumBds {
		return Desc{}, fail("ReadBd", fmt.Errorf("%w: bd %d of %d", ErrInvalidArgs, bd, p.NumBds))
	}
	addr := dev.TileAddr(loc) + uint64(p.BdOffset(bd))
	words := make([]uint32, p.NumWords)
	for i := range words {
		if words[i], err = dev.backend.Read32(addr + uint64(i)*4); err != nil {
			return Desc{}, fail("ReadBd", err)
		}
	}
	d, err := decode(m, words)
	if err != nil {
		return Desc{}, fail("ReadBd", err)
	}
	return d, nil
}

// UpdateBdLen rewrites only the length field of BD slot bd.
func (dev *Device) UpdateBdLen(loc Loc, bd uint8, length uint32) error {
	m, err := dev.mod(loc)
	if err != nil {
		return fail("UpdateBdLen", err)
	}
	p := m.bd
	if bd >= p.NumBds {
		return fail("UpdateBdLen", fmt.Errorf("%w: bd %d of %d", ErrInvalidArgs, bd, p.NumBds))
	}
	v, err := p.lenVal(length)
	if err != nil {
		return fail("UpdateBdLen", err)
	}
	f := p.byID[FieldLength]
	if err := checkPrecision(f, v); err != nil {
		return fail("UpdateBdLen", fmt.Errorf("%v: %w", FieldLength, err))
	}
	addr := dev.TileAddr(loc) + uint64(p.BdOffset(bd)) + uint64(f.Idx)*4
	if err := dev.backend.MaskWrite32(addr, f.Mask, f.Shift(uint32(v))); err != nil {
		return fail("UpdateBdLen", err)
	}
	return nil
}

// UpdateBdAddr rewrites only the buffer address field(s) of BD slot bd.
func (dev *Device) UpdateBdAddr(loc Loc, bd uint8, bufAddr uint64) error {
	m, err := dev.mod(loc)
	if err != nil {
		return fail("UpdateBdAddr", err)
	}
	p := m.bd
	if bd >= p.NumBds {
		return fail("UpdateBdAddr", fmt.Errorf("%w: bd %d of %d", ErrInvalidArgs, bd, p.NumBds))
	}
	low, high, err := p.splitAddr(bufAddr)
	if err != nil {
		return fail("UpdateBdAddr", err)
	}
	ts := p.addrTerms(low, high)
	for _, t := range ts {
		if err := checkPrecision(t.f, t.v); err != nil {
			return fail("UpdateBdAddr", fmt.Errorf("%s: %w", t.name, err))
		}
	}
	base := dev.TileAddr(loc) + uint64(p.BdOffset(bd))
	for _, t := range ts {
		if err := dev.backend.MaskWrite32(base+uint64(t.f.Idx)*4, t.f.Mask, t.f.Shift(uint32(t.v))); err != nil {
			return fail("UpdateBdAddr", err)
		}
	}
	return nil
}
