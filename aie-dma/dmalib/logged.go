package dmalib

import (
	"fmt"
	"time"

	dma "github.com/aiengine/dma/aie-dma"
	"github.com/platinasystems/log"
)

// Logged traces every operation on the wrapped backend at debug priority.
type Logged struct {
	dma.Backend
}

// NewLogged wraps be.
func NewLogged(be dma.Backend) *Logged {
	return &Logged{Backend: be}
}

func trace(format string, args ...interface{}) {
	log.Print("debug", "dmalib: ", fmt.Sprintf(format, args...))
}

// Read32 implements dma.Backend.
func (l *Logged) Read32(addr uint64) (uint32, error) {
	v, err := l.Backend.Read32(addr)
	trace("read32 %#x = %#x %v", addr, v, err)
	return v, err
}

// Write32 implements dma.Backend.
func (l *Logged) Write32(addr uint64, v uint32) error {
	err := l.Backend.Write32(addr, v)
	trace("write32 %#x %#x %v", addr, v, err)
	return err
}

// MaskWrite32 implements dma.Backend.
func (l *Logged) MaskWrite32(addr uint64, mask, v uint32) error {
	err := l.Backend.MaskWrite32(addr, mask, v)
	trace("maskwrite32 %#x mask %#x %#x %v", addr, mask, v, err)
	return err
}

// MaskPoll implements dma.Backend.
func (l *Logged) MaskPoll(addr uint64, mask, want uint32, timeout time.Duration) error {
	err := l.Backend.MaskPoll(addr, mask, want, timeout)
	trace("maskpoll %#x mask %#x want %#x in %v %v", addr, mask, want, timeout, err)
	return err
}

// MaskPollBusy implements dma.Backend.
func (l *Logged) MaskPollBusy(addr uint64, mask, want uint32, timeout time.Duration) error {
	err := l.Backend.MaskPollBusy(addr, mask, want, timeout)
	trace("maskpollbusy %#x mask %#x want %#x in %v %v", addr, mask, want, timeout, err)
	return err
}

// BlockWrite32 implements dma.Backend.
func (l *Logged) BlockWrite32(addr uint64, data []uint32) error {
	err := l.Backend.BlockWrite32(addr, data)
	trace("blockwrite32 %#x %#x %v", addr, data, err)
	return err
}

// WriteShimDmaBd implements dma.ShimDmaBdWriter, passing the request on to
// the wrapped backend if it handles shim BDs itself.
func (l *Logged) WriteShimDmaBd(args dma.ShimDmaBdArgs) error {
	var err error
	if w, ok := l.Backend.(dma.ShimDmaBdWriter); ok {
		err = w.WriteShimDmaBd(args)
	} else {
		err = l.Backend.BlockWrite32(args.Addr, args.Words)
	}
	trace("shimbd %v bd %d at %#x buf %#x %#x %v", args.Loc, args.Bd, args.Addr, args.BufAddr, args.Words, err)
	return err
}
