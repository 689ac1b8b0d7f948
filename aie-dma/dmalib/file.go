package dmalib

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	dma "github.com/aiengine/dma/aie-dma"
)

// RegisterFile is a register window such as a UIO or PCI resource file.
type RegisterFile interface {
	io.ReaderAt
	io.WriterAt
}

// File accesses registers through a RegisterFile. Device address Base maps
// to file offset 0 and registers are little endian.
type File struct {
	f    RegisterFile
	Base uint64
	// Poll paces MaskPoll.
	Poll PollConfig
}

// NewFile returns a backend for the window f of the device address space
// starting at base.
func NewFile(f RegisterFile, base uint64) *File {
	return &File{f: f, Base: base}
}

func (f *File) off(addr uint64) (int64, error) {
	if addr < f.Base || addr%4 != 0 {
		return 0, fmt.Errorf("%w: register %#x outside window at %#x", dma.ErrInvalidArgs, addr, f.Base)
	}
	return int64(addr - f.Base), nil
}

// Read32 implements dma.Backend.
func (f *File) Read32(addr uint64) (uint32, error) {
	off, err := f.off(addr)
	if err != nil {
		return 0, err
	}
	var b [4]byte
	if _, err := f.f.ReadAt(b[:], off); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// Write32 implements dma.Backend.
func (f *File) Write32(addr uint64, v uint32) error {
	off, err := f.off(addr)
	if err != nil {
		return err
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err = f.f.WriteAt(b[:], off)
	return err
}

// MaskWrite32 implements dma.Backend with a read modify write.
func (f *File) MaskWrite32(addr uint64, mask, v uint32) error {
	old, err := f.Read32(addr)
	if err != nil {
		return err
	}
	return f.Write32(addr, old&^mask|v&mask)
}

// MaskPoll implements dma.Backend.
func (f *File) MaskPoll(addr uint64, mask, want uint32, timeout time.Duration) error {
	return pollYield(f.Read32, addr, mask, want, timeout, f.Poll)
}

// MaskPollBusy implements dma.Backend.
func (f *File) MaskPollBusy(addr uint64, mask, want uint32, timeout time.Duration) error {
	return pollBusy(f.Read32, addr, mask, want, timeout)
}

// BlockWrite32 implements dma.Backend with a single write.
func (f *File) BlockWrite32(addr uint64, data []uint32) error {
	off, err := f.off(addr)
	if err != nil {
		return err
	}
	b := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(b[4*i:], v)
	}
	_, err = f.f.WriteAt(b, off)
	return err
}
