package dma

import (
	"fmt"
	"math"
)

// LockNoValue as a lock value acquires or releases the lock without a value.
// It lies outside the value range of every lock field. Layouts without
// value enables store it as value 0.
const LockNoValue int8 = math.MinInt8

// Lock names a hardware lock and the value used with it.
type Lock struct {
	ID    uint8
	Value int8
}

// AddrDesc is the buffer of a BD.
type AddrDesc struct {
	Addr uint64
	// Len is the transfer length in bytes.
	Len uint32
}

// LockDesc is the lock handshake of a BD.
type LockDesc struct {
	AcqID    uint8
	AcqEn    bool
	AcqVal   int8
	AcqValEn bool
	RelID    uint8
	RelEn    bool
	RelVal   int8
	RelValEn bool
}

// PadDesc is the zero padding of one memory tile dimension, in units of the
// dimension's step.
type PadDesc struct {
	Before uint8
	After  uint8
}

// BdEnDesc holds the BD enable and chaining fields.
type BdEnDesc struct {
	ValidBd        bool
	UseNextBd      bool
	NextBd         uint8
	OutOfOrderBdID uint8
}

// AxiDesc holds the AXI attributes of shim transfers.
type AxiDesc struct {
	Smid uint8
	// BurstLen is the burst length in beats, one of the values in
	// BdProp.BurstLens.
	BurstLen uint8
	Qos      uint8
	Secure   bool
	Cache    uint8
}

// PktDesc holds the packet switching header of a BD.
type PktDesc struct {
	Enable bool
	ID     uint8
	Type   uint8
}

// Desc is the software image of one buffer descriptor. A Desc is bound to
// the generation and tile class it was created for; WriteBd rejects it on
// any other tile class. Fields may be read freely but should be changed
// through the Set methods, which validate their arguments.
type Desc struct {
	mod *dmaMod

	Addr AddrDesc
	// AddrB is the second buffer of AIE tile double buffering. Its Len is
	// unused, both buffers have the length of Addr.
	AddrB AddrDesc
	Lock  LockDesc
	// LockB guards AddrB.
	LockB    LockDesc
	MultiDim MultiDim
	Pad      [3]PadDesc
	BdEn     BdEnDesc
	Axi      AxiDesc
	Pkt      PktDesc

	EnDoubleBuff  bool
	FifoMode      uint8
	EnCompression bool
	TlastSuppress bool
}

// NewDesc returns a descriptor holding the defaults of the tile class at loc.
func (dev *Device) NewDesc(loc Loc) (Desc, error) {
	m, err := dev.mod(loc)
	if err != nil {
		return Desc{}, fail("NewDesc", err)
	}
	return newDesc(m), nil
}

func newDesc(m *dmaMod) Desc {
	d := Desc{mod: m}
	switch m.bd.Gen {
	case GenAIE:
		d.MultiDim = newAieMultiDim()
	case GenAIEML:
		d.MultiDim = newAieMlMultiDim()
		// AIE-ML always releases and has no value enables.
		d.Lock.RelEn = true
		d.Lock.AcqValEn = true
		d.Lock.RelValEn = true
	}
	if len(m.bd.BurstLens) > 0 {
		d.Axi.BurstLen = m.bd.BurstLens[0]
	}
	return d
}

// Generation returns the generation the descriptor is bound to.
func (d *Desc) Generation() Generation { return d.mod.bd.Gen }

// TileType returns the tile class the descriptor is bound to.
func (d *Desc) TileType() TileType { return d.mod.bd.Tile }

// Prop returns the register layout the descriptor encodes to.
func (d *Desc) Prop() *BdProp { return d.mod.bd }

func (d *Desc) bound() error {
	if d.mod == nil {
		return fmt.Errorf("%w: descriptor not initialized", ErrInvalidDesc)
	}
	return nil
}

// need fails with ErrFeatureNotSupported unless the BD has field id.
func (d *Desc) need(id FieldID, what string) error {
	if err := d.bound(); err != nil {
		return err
	}
	if !d.mod.bd.Has(id) {
		return fmt.Errorf("%w: %s on %v %v", ErrFeatureNotSupported, what, d.mod.bd.Gen, d.mod.bd.Tile)
	}
	return nil
}

// SetAddrLen sets the buffer address and the transfer length in bytes.
// Width and alignment are checked when the BD is written.
func (d *Desc) SetAddrLen(addr uint64, length uint32) error {
	if err := d.bound(); err != nil {
		return fail("SetAddrLen", err)
	}
	d.Addr = AddrDesc{Addr: addr, Len: length}
	return nil
}

// setLockDesc fills ld from an acquire and release lock. A LockNoValue
// value disables the value of that side where the layout can.
func (d *Desc) setLockDesc(ld *LockDesc, acq, rel Lock) error {
	p := d.mod.bd
	if p.Gen == GenAIE && acq.ID != rel.ID {
		return fmt.Errorf("%w: acquire %d and release %d must match", ErrInvalidLockID, acq.ID, rel.ID)
	}
	idf := p.byID[FieldLockAcqID]
	if uint32(acq.ID) > idf.Max() || uint32(rel.ID) > idf.Max() {
		return fmt.Errorf("%w: %d/%d above %d", ErrInvalidLockID, acq.ID, rel.ID, idf.Max())
	}
	*ld = LockDesc{
		AcqID: acq.ID,
		AcqEn: true,
		RelID: rel.ID,
		RelEn: true,
	}
	hasEn := p.Has(FieldLockAcqValEn)
	if acq.Value != LockNoValue {
		ld.AcqVal, ld.AcqValEn = acq.Value, true
	} else if !hasEn {
		ld.AcqValEn = true
	}
	if rel.Value != LockNoValue {
		ld.RelVal, ld.RelValEn = rel.Value, true
	} else if !hasEn {
		ld.RelValEn = true
	}
	return nil
}

// SetLock sets the lock acquired before and released after the transfer.
// On AIE both must name the same lock.
func (d *Desc) SetLock(acq, rel Lock) error {
	if err := d.bound(); err != nil {
		return fail("SetLock", err)
	}
	if err := d.setLockDesc(&d.Lock, acq, rel); err != nil {
		return fail("SetLock", err)
	}
	return nil
}

// SetDoubleBuffer enables AIE tile double buffering with a second buffer at
// addr guarded by its own lock pair.
func (d *Desc) SetDoubleBuffer(addr uint64, acq, rel Lock) error {
	if err := d.need(FieldEnDoubleBuff, "double buffering"); err != nil {
		return fail("SetDoubleBuffer", err)
	}
	var ld LockDesc
	if err := d.setLockDesc(&ld, acq, rel); err != nil {
		return fail("SetDoubleBuffer", err)
	}
	d.AddrB = AddrDesc{Addr: addr}
	d.LockB = ld
	d.EnDoubleBuff = true
	return nil
}

// SetMultiDim sets the addressing pattern, dims[0] being the innermost
// dimension. Either every dimension is accepted or the descriptor is left
// unchanged.
func (d *Desc) SetMultiDim(dims []Dim) error {
	if err := d.bound(); err != nil {
		return fail("SetMultiDim", err)
	}
	var err error
	switch md := d.MultiDim.(type) {
	case *AieMultiDim:
		if !d.mod.bd.Has(FieldXIncr) {
			err = fmt.Errorf("%w: multi dimension addressing on %v %v", ErrFeatureNotSupported, GenAIE, d.mod.bd.Tile)
			break
		}
		err = md.set(dims)
	case *AieMlMultiDim:
		err = md.set(d.mod.bd, dims)
	default:
		err = fmt.Errorf("%w: no addressing pattern", ErrInvalidDesc)
	}
	if err != nil {
		return fail("SetMultiDim", err)
	}
	return nil
}

// SetInterleave enables AIE tile interleaving, alternating between the two
// buffers every count transfers starting at buffer buffSelect with the
// current pointer at curr.
func (d *Desc) SetInterleave(buffSelect uint8, count uint16, curr uint8) error {
	if err := d.need(FieldEnInterleave, "interleaving"); err != nil {
		return fail("SetInterleave", err)
	}
	md, ok := d.MultiDim.(*AieMultiDim)
	if !ok {
		return fail("SetInterleave", fmt.Errorf("%w: no AIE addressing pattern", ErrInvalidDesc))
	}
	if err := md.setInterleave(buffSelect, count, curr); err != nil {
		return fail("SetInterleave", err)
	}
	return nil
}

// SetIteration makes the BD repeat itself, advancing the buffer address by
// it.StepSize words on each of it.Wrap iterations.
func (d *Desc) SetIteration(it Iteration) error {
	if err := d.bound(); err != nil {
		return fail("SetIteration", err)
	}
	var err error
	switch md := d.MultiDim.(type) {
	case *AieMultiDim:
		err = fmt.Errorf("%w: bd iteration on %v", ErrFeatureNotSupported, GenAIE)
	case *AieMlMultiDim:
		err = md.setIteration(d.mod.bd, it)
	default:
		err = fmt.Errorf("%w: no addressing pattern", ErrInvalidDesc)
	}
	if err != nil {
		return fail("SetIteration", err)
	}
	return nil
}

// SetPadding sets the memory tile zero padding, pads[0] applying to the
// innermost dimension. The combination with the dimension wraps is checked
// when the BD is written.
func (d *Desc) SetPadding(pads []PadDesc) error {
	if err := d.need(FieldD0PadBefore, "padding"); err != nil {
		return fail("SetPadding", err)
	}
	if len(pads) > len(d.Pad) {
		return fail("SetPadding", fmt.Errorf("%w: %d padding dimensions", ErrInvalidArgs, len(pads)))
	}
	d.Pad = [3]PadDesc{}
	copy(d.Pad[:], pads)
	return nil
}

// SetAxi sets the AXI attributes of a shim BD.
func (d *Desc) SetAxi(axi AxiDesc) error {
	if err := d.need(FieldBurstLen, "axi attributes"); err != nil {
		return fail("SetAxi", err)
	}
	if _, ok := d.mod.bd.burstCode(axi.BurstLen); !ok {
		return fail("SetAxi", fmt.Errorf("%w: %d not in %v", ErrInvalidBurstLength, axi.BurstLen, d.mod.bd.BurstLens))
	}
	d.Axi = axi
	return nil
}

// SetPkt sets the packet header inserted before the transfer.
func (d *Desc) SetPkt(pkt PktDesc) error {
	if err := d.need(FieldPktID, "packet switching"); err != nil {
		return fail("SetPkt", err)
	}
	d.Pkt = pkt
	return nil
}

// SetNextBd chains the BD to next. With enable false the chain ends here.
func (d *Desc) SetNextBd(next uint8, enable bool) error {
	if err := d.bound(); err != nil {
		return fail("SetNextBd", err)
	}
	if next >= d.mod.bd.NumBds {
		return fail("SetNextBd", fmt.Errorf("%w: next bd %d of %d", ErrInvalidArgs, next, d.mod.bd.NumBds))
	}
	d.BdEn.NextBd = next
	d.BdEn.UseNextBd = enable
	return nil
}

// EnableBd marks the BD valid.
func (d *Desc) EnableBd() { d.BdEn.ValidBd = true }

// DisableBd marks the BD invalid.
func (d *Desc) DisableBd() { d.BdEn.ValidBd = false }

// SetOutOfOrderBdID sets the id reported by channels running out of order.
func (d *Desc) SetOutOfOrderBdID(id uint8) error {
	if err := d.need(FieldOutOfOrderBdID, "out of order bd id"); err != nil {
		return fail("SetOutOfOrderBdID", err)
	}
	d.BdEn.OutOfOrderBdID = id
	return nil
}

// SetFifoMode selects the AIE tile FIFO counter mode, 0 disabling it.
func (d *Desc) SetFifoMode(mode uint8) error {
	if err := d.need(FieldFifoMode, "fifo mode"); err != nil {
		return fail("SetFifoMode", err)
	}
	d.FifoMode = mode
	return nil
}

// EnableCompression enables compression of the transfer.
func (d *Desc) EnableCompression() error {
	if err := d.need(FieldEnCompression, "compression"); err != nil {
		return fail("EnableCompression", err)
	}
	d.EnCompression = true
	return nil
}

// EnableTlastSuppress suppresses TLAST at the end of the transfer.
func (d *Desc) EnableTlastSuppress() error {
	if err := d.need(FieldTlastSuppress, "tlast suppression"); err != nil {
		return fail("EnableTlastSuppress", err)
	}
	d.TlastSuppress = true
	return nil
}
