package dma

import "fmt"

// Direction is the transfer direction of a DMA channel.
type Direction uint8

const (
	// S2MM channels move data from the stream switch into memory.
	S2MM Direction = iota
	// MM2S channels move data from memory onto the stream switch.
	MM2S
	numDirections
)

func (d Direction) String() string {
	switch d {
	case S2MM:
		return "s2mm"
	case MM2S:
		return "mm2s"
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// ChStatusFields is the layout of the status of one channel. Fields absent
// on a generation have a zero Mask.
type ChStatusFields struct {
	Status              Field
	Stalled             Field
	StalledLockAcq      Field
	StalledLockRel      Field
	StalledStreamStarve Field
	StalledTCT          Field
	QueueOverflow       Field
	ChannelRunning      Field
	QueueSize           Field
	CurBd               Field
}

// mask returns all status bits of the channel.
func (s *ChStatusFields) mask() uint32 {
	return s.Status.Mask | s.Stalled.Mask | s.StalledLockAcq.Mask |
		s.StalledLockRel.Mask | s.StalledStreamStarve.Mask | s.StalledTCT.Mask |
		s.QueueOverflow.Mask | s.ChannelRunning.Mask | s.QueueSize.Mask | s.CurBd.Mask
}

// ChProp is the channel register layout of one generation and tile class.
type ChProp struct {
	NumChannels  uint8
	MaxQueueSize uint8

	// Control register of channel ch in direction dir is at
	// CtrlBase[dir] + ch*CtrlStride, its start queue register follows at
	// QueueOffset bytes from it.
	CtrlBase    [numDirections]uint32
	CtrlStride  uint32
	QueueOffset uint32
	// Status register of channel ch is at StatusBase[dir] + ch*StatusStride.
	// A zero stride means one register is shared by all channels of a
	// direction.
	StatusBase   [numDirections]uint32
	StatusStride uint32

	Enable       Field
	Reset        Field
	EnOutOfOrder Field
	EnCompress   Field
	ControllerID Field
	FoTMode      Field

	StartBd      Field
	RepeatCount  Field
	EnTokenIssue Field

	// StatusFields is indexed by channel number.
	StatusFields []ChStatusFields
}

func (c *ChProp) ctrlOffset(ch uint8, dir Direction) uint32 {
	return c.CtrlBase[dir] + uint32(ch)*c.CtrlStride
}

func (c *ChProp) queueOffset(ch uint8, dir Direction) uint32 {
	return c.ctrlOffset(ch, dir) + c.QueueOffset
}

func (c *ChProp) statusOffset(ch uint8, dir Direction) uint32 {
	return c.StatusBase[dir] + uint32(ch)*c.StatusStride
}

func (c *ChProp) checkChannel(ch uint8, dir Direction) error {
	if dir >= numDirections {
		return fmt.Errorf("%w: direction %v", ErrInvalidArgs, dir)
	}
	if ch >= c.NumChannels {
		return fmt.Errorf("%w: channel %d of %d", ErrInvalidArgs, ch, c.NumChannels)
	}
	return nil
}

// bdChannelChecker decides whether a BD may be queued on a channel.
type bdChannelChecker interface {
	checkBdChannel(bd, ch uint8) error
}

// anyBdChannel allows every BD on every channel.
type anyBdChannel struct{}

func (anyBdChannel) checkBdChannel(bd, ch uint8) error { return nil }

// splitBdChannel dedicates BDs below half to even channels and the rest to
// odd channels.
type splitBdChannel struct {
	half uint8
}

func (s splitBdChannel) checkBdChannel(bd, ch uint8) error {
	if ch%2 == 0 && bd >= s.half {
		return fmt.Errorf("%w: bd %d not usable by even channel %d", ErrInvalidArgs, bd, ch)
	}
	if ch%2 == 1 && bd < s.half {
		return fmt.Errorf("%w: bd %d not usable by odd channel %d", ErrInvalidArgs, bd, ch)
	}
	return nil
}

// dmaMod ties together the layouts and checks of the DMA of one tile class.
type dmaMod struct {
	bd   *BdProp
	ch   *ChProp
	bdCh bdChannelChecker
	// validate runs tile class specific descriptor checks before encoding.
	validate func(d *Desc) error
}

var dmaMods = map[Generation][numTileTypes]*dmaMod{
	GenAIE: {
		TileTypeTile: {bd: aieTileBdProp, ch: aieTileChProp, bdCh: anyBdChannel{}},
		TileTypeShim: {bd: aieShimBdProp, ch: aieShimChProp, bdCh: anyBdChannel{}},
	},
	GenAIEML: {
		TileTypeTile:    {bd: aieMlTileBdProp, ch: aieMlTileChProp, bdCh: anyBdChannel{}},
		TileTypeShim:    {bd: aieMlShimBdProp, ch: aieMlShimChProp, bdCh: anyBdChannel{}},
		TileTypeMemTile: {bd: aieMlMemTileBdProp, ch: aieMlMemTileChProp, bdCh: splitBdChannel{half: 24}, validate: checkPadding},
	},
}
