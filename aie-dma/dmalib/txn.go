package dmalib

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	dma "github.com/aiengine/dma/aie-dma"
)

// OpCode is the kind of a recorded register operation.
type OpCode uint8

const (
	OpWrite OpCode = iota + 1
	OpMaskWrite
	OpMaskPoll
	OpBlockWrite
)

func (c OpCode) String() string {
	switch c {
	case OpWrite:
		return "write"
	case OpMaskWrite:
		return "mask-write"
	case OpMaskPoll:
		return "mask-poll"
	case OpBlockWrite:
		return "block-write"
	}
	return fmt.Sprintf("op(%d)", uint8(c))
}

// Op is one recorded register operation.
type Op struct {
	Code OpCode
	Addr uint64
	// Mask and Value are the mask and value of writes and polls.
	Mask  uint32
	Value uint32
	// Busy and Timeout describe polls.
	Busy    bool
	Timeout time.Duration
	// Data holds the words of a block write.
	Data []uint32
}

var (
	errTxnMagic   = errors.New("dmalib: bad transaction magic")
	errTxnVersion = errors.New("dmalib: unsupported transaction version")
	errTxnOp      = errors.New("dmalib: bad transaction op")
)

const (
	txnMagic   = 0x54454941 // "AIET"
	txnVersion = 1
)

// Txn records register operations instead of performing them, producing a
// control stream that can be stored and replayed on a device later. Reads
// return the value last written to the register.
type Txn struct {
	ops    []Op
	shadow map[uint64]uint32
}

// NewTxn returns an empty transaction.
func NewTxn() *Txn {
	return &Txn{shadow: make(map[uint64]uint32)}
}

// Ops returns the recorded operations in order.
func (t *Txn) Ops() []Op { return t.ops }

// Read32 implements dma.Backend.
func (t *Txn) Read32(addr uint64) (uint32, error) {
	return t.shadow[addr], nil
}

// Write32 implements dma.Backend.
func (t *Txn) Write32(addr uint64, v uint32) error {
	t.ops = append(t.ops, Op{Code: OpWrite, Addr: addr, Mask: ^uint32(0), Value: v})
	t.shadow[addr] = v
	return nil
}

// MaskWrite32 implements dma.Backend.
func (t *Txn) MaskWrite32(addr uint64, mask, v uint32) error {
	t.ops = append(t.ops, Op{Code: OpMaskWrite, Addr: addr, Mask: mask, Value: v})
	t.shadow[addr] = t.shadow[addr]&^mask | v&mask
	return nil
}

// MaskPoll implements dma.Backend. The poll is recorded and reported as
// satisfied.
func (t *Txn) MaskPoll(addr uint64, mask, want uint32, timeout time.Duration) error {
	t.ops = append(t.ops, Op{Code: OpMaskPoll, Addr: addr, Mask: mask, Value: want, Timeout: timeout})
	return nil
}

// MaskPollBusy implements dma.Backend like MaskPoll.
func (t *Txn) MaskPollBusy(addr uint64, mask, want uint32, timeout time.Duration) error {
	t.ops = append(t.ops, Op{Code: OpMaskPoll, Addr: addr, Mask: mask, Value: want, Busy: true, Timeout: timeout})
	return nil
}

// BlockWrite32 implements dma.Backend.
func (t *Txn) BlockWrite32(addr uint64, data []uint32) error {
	t.ops = append(t.ops, Op{Code: OpBlockWrite, Addr: addr, Data: append([]uint32(nil), data...)})
	for i, v := range data {
		t.shadow[addr+uint64(i)*4] = v
	}
	return nil
}

// PatchShimBdAddr rewrites the buffer address of every recorded write of
// shim BD bd at loc with addr and returns how many were patched. Whole BD
// block writes and the masked address writes of UpdateBdAddr are patched,
// other partial writes of the BD are left alone.
func (t *Txn) PatchShimBdAddr(dev *dma.Device, loc dma.Loc, bd uint8, addr uint64) (int, error) {
	prop, err := dma.BdPropFor(dev.Generation(), dma.TileTypeShim)
	if err != nil {
		return 0, err
	}
	if bd >= prop.NumBds {
		return 0, fmt.Errorf("%w: bd %d of %d", dma.ErrInvalidArgs, bd, prop.NumBds)
	}
	img := make([]uint32, prop.NumWords)
	if err := prop.PatchAddr(img, addr); err != nil {
		return 0, err
	}
	var addrFields []dma.Field
	for _, id := range []dma.FieldID{dma.FieldBaseAddr, dma.FieldBaseAddrHigh} {
		if f, ok := prop.Field(id); ok {
			addrFields = append(addrFields, f)
		}
	}

	bdAddr := dev.TileAddr(loc) + uint64(prop.BdOffset(bd))
	n := 0
	for i := range t.ops {
		op := &t.ops[i]
		switch op.Code {
		case OpBlockWrite:
			if op.Addr != bdAddr || len(op.Data) != int(prop.NumWords) {
				continue
			}
			if err := prop.PatchAddr(op.Data, addr); err != nil {
				return n, err
			}
			n++
		case OpMaskWrite:
			hit := false
			for _, f := range addrFields {
				if op.Addr != bdAddr+4*uint64(f.Idx) || op.Mask&f.Mask == 0 {
					continue
				}
				op.Value = op.Value&^f.Mask | img[f.Idx]&f.Mask
				hit = true
			}
			if hit {
				n++
			}
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: no write of bd %d at %v", dma.ErrInvalidArgs, bd, loc)
	}
	t.rebuildShadow()
	return n, nil
}

func (t *Txn) rebuildShadow() {
	t.shadow = make(map[uint64]uint32)
	for _, op := range t.ops {
		switch op.Code {
		case OpWrite:
			t.shadow[op.Addr] = op.Value
		case OpMaskWrite:
			t.shadow[op.Addr] = t.shadow[op.Addr]&^op.Mask | op.Value&op.Mask
		case OpBlockWrite:
			for i, v := range op.Data {
				t.shadow[op.Addr+uint64(i)*4] = v
			}
		}
	}
}

// Replay performs the recorded operations on be in order and stops at the
// first failure.
func (t *Txn) Replay(be dma.Backend) error {
	for i, op := range t.ops {
		var err error
		switch op.Code {
		case OpWrite:
			err = be.Write32(op.Addr, op.Value)
		case OpMaskWrite:
			err = be.MaskWrite32(op.Addr, op.Mask, op.Value)
		case OpMaskPoll:
			if op.Busy {
				err = be.MaskPollBusy(op.Addr, op.Mask, op.Value, op.Timeout)
			} else {
				err = be.MaskPoll(op.Addr, op.Mask, op.Value, op.Timeout)
			}
		case OpBlockWrite:
			err = be.BlockWrite32(op.Addr, op.Data)
		default:
			err = fmt.Errorf("%w: %v", errTxnOp, op.Code)
		}
		if err != nil {
			return fmt.Errorf("op %d %v %#x: %w", i, op.Code, op.Addr, err)
		}
	}
	return nil
}

type txnHeader struct {
	Magic   uint32
	Version uint16
	Rsvd    uint16
	NumOps  uint32
}

type txnOpHeader struct {
	Code      uint8
	Busy      uint8
	Rsvd      uint16
	Mask      uint32
	Addr      uint64
	Value     uint32
	TimeoutUs uint32
	NumWords  uint32
}

// MarshalBinary encodes the operations as a little endian control stream:
// a header followed by one fixed size record per operation, block writes
// followed by their words.
func (t *Txn) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	hdr := txnHeader{Magic: txnMagic, Version: txnVersion, NumOps: uint32(len(t.ops))}
	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	for _, op := range t.ops {
		oh := txnOpHeader{
			Code:      uint8(op.Code),
			Mask:      op.Mask,
			Addr:      op.Addr,
			Value:     op.Value,
			TimeoutUs: uint32(op.Timeout / time.Microsecond),
			NumWords:  uint32(len(op.Data)),
		}
		if op.Busy {
			oh.Busy = 1
		}
		if err := binary.Write(&buf, binary.LittleEndian, &oh); err != nil {
			return nil, err
		}
		if len(op.Data) > 0 {
			if err := binary.Write(&buf, binary.LittleEndian, op.Data); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalTxn decodes a control stream written by MarshalBinary.
func UnmarshalTxn(b []byte) (*Txn, error) {
	r := bytes.NewReader(b)
	var hdr txnHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	if hdr.Magic != txnMagic {
		return nil, errTxnMagic
	}
	if hdr.Version != txnVersion {
		return nil, fmt.Errorf("%w: %d", errTxnVersion, hdr.Version)
	}
	t := NewTxn()
	for i := uint32(0); i < hdr.NumOps; i++ {
		var oh txnOpHeader
		if err := binary.Read(r, binary.LittleEndian, &oh); err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		op := Op{
			Code:    OpCode(oh.Code),
			Addr:    oh.Addr,
			Mask:    oh.Mask,
			Value:   oh.Value,
			Busy:    oh.Busy != 0,
			Timeout: time.Duration(oh.TimeoutUs) * time.Microsecond,
		}
		if op.Code < OpWrite || op.Code > OpBlockWrite {
			return nil, fmt.Errorf("%w: %v at %d", errTxnOp, op.Code, i)
		}
		if oh.NumWords > uint32(r.Len()/4) {
			return nil, fmt.Errorf("op %d: %w", i, io.ErrUnexpectedEOF)
		}
		if oh.NumWords > 0 {
			op.Data = make([]uint32, oh.NumWords)
			if err := binary.Read(r, binary.LittleEndian, op.Data); err != nil {
				return nil, fmt.Errorf("op %d: %w", i, err)
			}
		}
		t.ops = append(t.ops, op)
	}
	t.rebuildShadow()
	return t, nil
}
