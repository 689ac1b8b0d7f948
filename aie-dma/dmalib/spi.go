package dmalib

import (
	"encoding/binary"
	"fmt"
	"time"

	dma "github.com/aiengine/dma/aie-dma"
	"tinygo.org/x/drivers"
)

// SPI debug bridge commands. A frame is the command byte, a 48 bit big
// endian register address and a 32 bit big endian data word. On reads the
// bridge returns the register in the data word position.
const (
	spiCmdRead  = 0x0B
	spiCmdWrite = 0x02

	spiFrameLen = 1 + 6 + 4
	spiAddrMask = 1<<48 - 1
)

// SPIBridge accesses device registers through a SPI debug bridge, as found
// on evaluation boards where a microcontroller sits next to the array.
type SPIBridge struct {
	bus drivers.SPI
	// Poll paces MaskPoll.
	Poll PollConfig

	tx, rx [spiFrameLen]byte
}

// NewSPIBridge returns a bridge talking over bus.
func NewSPIBridge(bus drivers.SPI) *SPIBridge {
	return &SPIBridge{bus: bus}
}

func (b *SPIBridge) frame(cmd byte, addr uint64, v uint32) error {
	if addr&^uint64(spiAddrMask) != 0 {
		return fmt.Errorf("%w: address %#x beyond 48 bits", dma.ErrInvalidArgs, addr)
	}
	b.tx[0] = cmd
	var a [8]byte
	binary.BigEndian.PutUint64(a[:], addr)
	copy(b.tx[1:7], a[2:])
	binary.BigEndian.PutUint32(b.tx[7:], v)
	return b.bus.Tx(b.tx[:], b.rx[:])
}

// Read32 implements dma.Backend.
func (b *SPIBridge) Read32(addr uint64) (uint32, error) {
	if err := b.frame(spiCmdRead, addr, 0); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b.rx[7:]), nil
}

// Write32 implements dma.Backend.
func (b *SPIBridge) Write32(addr uint64, v uint32) error {
	return b.frame(spiCmdWrite, addr, v)
}

// MaskWrite32 implements dma.Backend with a read modify write.
func (b *SPIBridge) MaskWrite32(addr uint64, mask, v uint32) error {
	old, err := b.Read32(addr)
	if err != nil {
		return err
	}
	return b.Write32(addr, old&^mask|v&mask)
}

// MaskPoll implements dma.Backend.
func (b *SPIBridge) MaskPoll(addr uint64, mask, want uint32, timeout time.Duration) error {
	return pollYield(b.Read32, addr, mask, want, timeout, b.Poll)
}

// MaskPollBusy implements dma.Backend.
func (b *SPIBridge) MaskPollBusy(addr uint64, mask, want uint32, timeout time.Duration) error {
	return pollBusy(b.Read32, addr, mask, want, timeout)
}

// BlockWrite32 implements dma.Backend, one frame per word.
func (b *SPIBridge) BlockWrite32(addr uint64, data []uint32) error {
	for i, v := range data {
		if err := b.Write32(addr+uint64(i)*4, v); err != nil {
			return err
		}
	}
	return nil
}
