package dma

import "time"

// Backend performs register I/O on an AI engine device. Addresses are
// absolute device addresses as returned by Device.TileAddr plus a register
// offset.
//
// MaskPoll samples addr until (value & mask) == want or timeout elapses and
// may yield or sleep between samples. MaskPollBusy does the same without
// yielding. Both return ErrTimeout when the value was never observed.
type Backend interface {
	Read32(addr uint64) (uint32, error)
	Write32(addr uint64, v uint32) error
	MaskWrite32(addr uint64, mask, v uint32) error
	MaskPoll(addr uint64, mask, want uint32, timeout time.Duration) error
	MaskPollBusy(addr uint64, mask, want uint32, timeout time.Duration) error
	BlockWrite32(addr uint64, data []uint32) error
}

// ShimDmaBdArgs is the request passed to a ShimDmaBdWriter.
type ShimDmaBdArgs struct {
	Loc Loc
	Bd  uint8
	// Addr is the device address of the first word of the BD.
	Addr  uint64
	Words []uint32
	// BufAddr is the buffer address the BD was built with. Backends that
	// translate virtual to physical addresses rewrite the address fields of
	// Words using Prop.PatchAddr.
	BufAddr uint64
	Prop    *BdProp
}

// ShimDmaBdWriter is implemented by backends that need to see shim BD
// writes as one operation, for instance to translate the buffer address or
// to record it for later patching. Backends without it receive a plain
// BlockWrite32.
type ShimDmaBdWriter interface {
	WriteShimDmaBd(args ShimDmaBdArgs) error
}
