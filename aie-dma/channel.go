package dma

import (
	"errors"
	"fmt"
	"time"

	"github.com/platinasystems/log"
)

// busyMask returns the bits that are set while the channel works on a BD.
// The start queue size does not count that BD.
func (s *ChStatusFields) busyMask() uint32 {
	return s.Status.Mask | s.Stalled.Mask | s.StalledLockAcq.Mask |
		s.StalledLockRel.Mask | s.StalledStreamStarve.Mask | s.StalledTCT.Mask
}

// doneMask returns the bits that are all clear once the channel is idle
// with an empty start queue.
func (s *ChStatusFields) doneMask() uint32 {
	return s.busyMask() | s.ChannelRunning.Mask | s.QueueSize.Mask
}

// ChannelConfig is the AIE-ML channel control configuration.
type ChannelConfig struct {
	EnOutOfOrder  bool
	EnCompression bool
	ControllerID  uint8
	// FoTMode selects the finish on TLAST behavior of S2MM channels.
	FoTMode uint8
}

// chanMod resolves the DMA module at loc and checks the channel.
func (dev *Device) chanMod(loc Loc, ch uint8, dir Direction) (*dmaMod, error) {
	m, err := dev.mod(loc)
	if err != nil {
		return nil, err
	}
	if err := m.ch.checkChannel(ch, dir); err != nil {
		return nil, err
	}
	return m, nil
}

// CheckBdChannel fails with ErrInvalidArgs if bd may not be queued on
// channel ch of the tile at loc.
func (dev *Device) CheckBdChannel(loc Loc, bd, ch uint8) error {
	m, err := dev.mod(loc)
	if err != nil {
		return fail("CheckBdChannel", err)
	}
	if bd >= m.bd.NumBds {
		return fail("CheckBdChannel", fmt.Errorf("%w: bd %d of %d", ErrInvalidArgs, bd, m.bd.NumBds))
	}
	if err := m.bdCh.checkBdChannel(bd, ch); err != nil {
		return fail("CheckBdChannel", err)
	}
	return nil
}

// PushBdToQueue queues bd once on the channel.
func (dev *Device) PushBdToQueue(loc Loc, ch uint8, dir Direction, bd uint8) error {
	return dev.SetStartQueue(loc, ch, dir, bd, 1, false)
}

// SetStartQueue queues bd on the channel to run repeat times. With
// tokenIssue the channel issues a task completion token when done. AIE
// channels only run a BD once and issue no tokens.
func (dev *Device) SetStartQueue(loc Loc, ch uint8, dir Direction, bd uint8, repeat uint32, tokenIssue bool) error {
	m, err := dev.chanMod(loc, ch, dir)
	if err != nil {
		return fail("SetStartQueue", err)
	}
	if bd >= m.bd.NumBds {
		return fail("SetStartQueue", fmt.Errorf("%w: bd %d of %d", ErrInvalidArgs, bd, m.bd.NumBds))
	}
	if err := m.bdCh.checkBdChannel(bd, ch); err != nil {
		return fail("SetStartQueue", err)
	}
	if repeat == 0 {
		return fail("SetStartQueue", fmt.Errorf("%w: repeat count 0", ErrInvalidArgs))
	}
	c := m.ch
	if c.RepeatCount.Mask == 0 && (repeat != 1 || tokenIssue) {
		return fail("SetStartQueue", fmt.Errorf("%w: repeat count and token issue on %v", ErrFeatureNotSupported, m.bd.Gen))
	}
	ts := []term{{"start-bd", c.StartBd, uint64(bd)}}
	if c.RepeatCount.Mask != 0 {
		ts = append(ts,
			term{"repeat-count", c.RepeatCount, uint64(repeat) - 1},
			term{"en-token-issue", c.EnTokenIssue, b2u(tokenIssue)})
	}
	v, err := packWord(ts)
	if err != nil {
		return fail("SetStartQueue", err)
	}
	return dev.backend.Write32(dev.TileAddr(loc)+uint64(c.queueOffset(ch, dir)), v)
}

// ChannelEnable starts the channel.
func (dev *Device) ChannelEnable(loc Loc, ch uint8, dir Direction) error {
	return dev.setCtrlBit("ChannelEnable", loc, ch, dir, func(c *ChProp) Field { return c.Enable }, true)
}

// ChannelDisable stops the channel once its current BD completes.
func (dev *Device) ChannelDisable(loc Loc, ch uint8, dir Direction) error {
	return dev.setCtrlBit("ChannelDisable", loc, ch, dir, func(c *ChProp) Field { return c.Enable }, false)
}

// ChannelReset asserts or releases the channel reset.
func (dev *Device) ChannelReset(loc Loc, ch uint8, dir Direction, reset bool) error {
	return dev.setCtrlBit("ChannelReset", loc, ch, dir, func(c *ChProp) Field { return c.Reset }, reset)
}

func (dev *Device) setCtrlBit(op string, loc Loc, ch uint8, dir Direction, bit func(*ChProp) Field, on bool) error {
	m, err := dev.chanMod(loc, ch, dir)
	if err != nil {
		return fail(op, err)
	}
	f := bit(m.ch)
	return dev.backend.MaskWrite32(dev.TileAddr(loc)+uint64(m.ch.ctrlOffset(ch, dir)), f.Mask, f.Shift(uint32(b2u(on))))
}

// WriteChannelConfig programs the AIE-ML channel control fields other than
// enable and reset, which are left as they are.
func (dev *Device) WriteChannelConfig(loc Loc, ch uint8, dir Direction, cfg ChannelConfig) error {
	m, err := dev.chanMod(loc, ch, dir)
	if err != nil {
		return fail("WriteChannelConfig", err)
	}
	c := m.ch
	if c.ControllerID.Mask == 0 {
		return fail("WriteChannelConfig", fmt.Errorf("%w: channel configuration on %v", ErrFeatureNotSupported, m.bd.Gen))
	}
	ts := []term{
		{"en-out-of-order", c.EnOutOfOrder, b2u(cfg.EnOutOfOrder)},
		{"en-compression", c.EnCompress, b2u(cfg.EnCompression)},
		{"controller-id", c.ControllerID, uint64(cfg.ControllerID)},
		{"fot-mode", c.FoTMode, uint64(cfg.FoTMode)},
	}
	v, err := packWord(ts)
	if err != nil {
		return fail("WriteChannelConfig", err)
	}
	mask := c.EnOutOfOrder.Mask | c.EnCompress.Mask | c.ControllerID.Mask | c.FoTMode.Mask
	return dev.backend.MaskWrite32(dev.TileAddr(loc)+uint64(c.ctrlOffset(ch, dir)), mask, v)
}

func (dev *Device) readStatus(loc Loc, ch uint8, dir Direction) (uint32, *ChStatusFields, error) {
	m, err := dev.chanMod(loc, ch, dir)
	if err != nil {
		return 0, nil, err
	}
	v, err := dev.backend.Read32(dev.TileAddr(loc) + uint64(m.ch.statusOffset(ch, dir)))
	if err != nil {
		return 0, nil, err
	}
	return v, &m.ch.StatusFields[ch], nil
}

// GetChannelStatus returns the raw status bits of the channel.
func (dev *Device) GetChannelStatus(loc Loc, ch uint8, dir Direction) (uint32, error) {
	v, s, err := dev.readStatus(loc, ch, dir)
	if err != nil {
		return 0, fail("GetChannelStatus", err)
	}
	return v & s.mask(), nil
}

// GetPendingBdCount returns the number of BDs the channel has yet to
// complete: the queued ones plus the one in flight, if any.
func (dev *Device) GetPendingBdCount(loc Loc, ch uint8, dir Direction) (uint8, error) {
	v, s, err := dev.readStatus(loc, ch, dir)
	if err != nil {
		return 0, fail("GetPendingBdCount", err)
	}
	n := uint8(s.QueueSize.Get(v))
	if v&s.busyMask() != 0 {
		n++
	}
	return n, nil
}

// MaxQueueSize returns the depth of the channel start queues of the tile at
// loc.
func (dev *Device) MaxQueueSize(loc Loc) (uint8, error) {
	m, err := dev.mod(loc)
	if err != nil {
		return 0, fail("MaxQueueSize", err)
	}
	return m.ch.MaxQueueSize, nil
}

// WaitForDone blocks until the channel is neither running nor stalled and
// has no BDs queued, or timeout elapses, in which case an error wrapping
// ErrTimeout is returned. With busyPoll the backend samples without
// yielding.
func (dev *Device) WaitForDone(loc Loc, ch uint8, dir Direction, timeout time.Duration, busyPoll bool) error {
	m, err := dev.chanMod(loc, ch, dir)
	if err != nil {
		return fail("WaitForDone", err)
	}
	s := &m.ch.StatusFields[ch]
	addr := dev.TileAddr(loc) + uint64(m.ch.statusOffset(ch, dir))
	return dev.poll("WaitForDone", addr, s.doneMask(), 0, timeout, busyPoll)
}

// WaitForBdTaskQueueNotFull blocks until another BD may be pushed to the
// channel. It polls the most significant bit of the task queue size.
func (dev *Device) WaitForBdTaskQueueNotFull(loc Loc, ch uint8, dir Direction, timeout time.Duration, busyPoll bool) error {
	m, err := dev.chanMod(loc, ch, dir)
	if err != nil {
		return fail("WaitForBdTaskQueueNotFull", err)
	}
	if m.bd.Gen != GenAIEML {
		return fail("WaitForBdTaskQueueNotFull", fmt.Errorf("%w: task queue status on %v", ErrFeatureNotSupported, m.bd.Gen))
	}
	q := m.ch.StatusFields[ch].QueueSize
	full := uint32(1) << (uint(q.Lsb) + q.Width() - 1)
	addr := dev.TileAddr(loc) + uint64(m.ch.statusOffset(ch, dir))
	return dev.poll("WaitForBdTaskQueueNotFull", addr, full, 0, timeout, busyPoll)
}

func (dev *Device) poll(op string, addr uint64, mask, want uint32, timeout time.Duration, busyPoll bool) error {
	var err error
	if busyPoll {
		err = dev.backend.MaskPollBusy(addr, mask, want, timeout)
	} else {
		err = dev.backend.MaskPoll(addr, mask, want, timeout)
	}
	if errors.Is(err, ErrTimeout) {
		log.Print("warn", "dma: ", op, ": ", fmt.Sprintf("%#x mask %#x after %v", addr, mask, timeout))
	}
	return err
}
