package dma

import (
	"errors"
	"fmt"

	"github.com/platinasystems/log"
)

// DMA errors.
var (
	ErrInvalidArgs         = errors.New("dma: invalid arguments")
	ErrInvalidDesc         = errors.New("dma: invalid descriptor")
	ErrInvalidTile         = errors.New("dma: invalid tile")
	ErrPrecisionExceeded   = errors.New("dma: precision exceeded")
	ErrInvalidLockID       = errors.New("dma: invalid lock id")
	ErrInvalidBurstLength  = errors.New("dma: invalid burst length")
	ErrFeatureNotSupported = errors.New("dma: feature not supported")
	ErrTimeout             = errors.New("dma: timeout")
)

// Generation identifies the AI engine hardware generation of a device.
type Generation uint8

const (
	GenAIE Generation = iota + 1
	GenAIEML
)

func (g Generation) String() string {
	switch g {
	case GenAIE:
		return "aie"
	case GenAIEML:
		return "aie-ml"
	}
	return fmt.Sprintf("generation(%d)", uint8(g))
}

// TileType is the class of a tile in the array. Each class has its own DMA
// register layout.
type TileType uint8

const (
	TileTypeTile TileType = iota
	TileTypeShim
	TileTypeMemTile
	numTileTypes
)

var tileTypeStrings = [...]string{
	TileTypeTile:    "tile",
	TileTypeShim:    "shim",
	TileTypeMemTile: "memtile",
}

func (t TileType) String() string {
	if t < numTileTypes {
		return tileTypeStrings[t]
	}
	return fmt.Sprintf("tiletype(%d)", uint8(t))
}

// Loc is a tile coordinate in the array.
type Loc struct {
	Col uint8
	Row uint8
}

func (l Loc) String() string { return fmt.Sprintf("(%d,%d)", l.Col, l.Row) }

// Config describes the geometry and address map of an AI engine partition.
type Config struct {
	Generation Generation
	// BaseAddr is the device address of tile (0,0).
	BaseAddr uint64
	ColShift uint8
	RowShift uint8
	NumCols  uint8
	NumRows  uint8
	// ShimRow is the row of the interface tiles.
	ShimRow         uint8
	MemTileRowStart uint8
	MemTileNumRows  uint8
	AieTileRowStart uint8
	AieTileNumRows  uint8
}

// DefaultConfig returns the partition layout used by the reference boards of
// each generation.
func DefaultConfig(gen Generation) Config {
	switch gen {
	case GenAIE:
		return Config{
			Generation:      GenAIE,
			BaseAddr:        0x20000000000,
			ColShift:        23,
			RowShift:        18,
			NumCols:         50,
			NumRows:         9,
			ShimRow:         0,
			AieTileRowStart: 1,
			AieTileNumRows:  8,
		}
	case GenAIEML:
		return Config{
			Generation:      GenAIEML,
			BaseAddr:        0x20000000000,
			ColShift:        25,
			RowShift:        20,
			NumCols:         38,
			NumRows:         11,
			ShimRow:         0,
			MemTileRowStart: 1,
			MemTileNumRows:  2,
			AieTileRowStart: 3,
			AieTileNumRows:  8,
		}
	}
	return Config{}
}

// Device is a handle to one AI engine partition. All register traffic is
// issued through its Backend. A Device performs no locking; callers sharing
// one between goroutines must serialize access.
type Device struct {
	cfg     Config
	backend Backend
	mods    [numTileTypes]*dmaMod
}

// New returns a Device for the partition described by cfg.
func New(cfg Config, backend Backend) (*Device, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrInvalidArgs)
	}
	mods, ok := dmaMods[cfg.Generation]
	if !ok {
		return nil, fmt.Errorf("%w: unknown generation %v", ErrInvalidArgs, cfg.Generation)
	}
	if cfg.NumCols == 0 || cfg.NumRows == 0 {
		return nil, fmt.Errorf("%w: empty array %dx%d", ErrInvalidArgs, cfg.NumCols, cfg.NumRows)
	}
	if cfg.Generation == GenAIE && cfg.MemTileNumRows != 0 {
		return nil, fmt.Errorf("%w: %v has no memory tiles", ErrInvalidArgs, cfg.Generation)
	}
	return &Device{cfg: cfg, backend: backend, mods: mods}, nil
}

// Config returns the partition configuration.
func (dev *Device) Config() Config { return dev.cfg }

// Generation returns the hardware generation of the device.
func (dev *Device) Generation() Generation { return dev.cfg.Generation }

// Backend returns the register backend.
func (dev *Device) Backend() Backend { return dev.backend }

// TileAddr returns the absolute device address of the register space of
// the tile at loc.
func (dev *Device) TileAddr(loc Loc) uint64 {
	return dev.cfg.BaseAddr +
		uint64(loc.Col)<<dev.cfg.ColShift +
		uint64(loc.Row)<<dev.cfg.RowShift
}

// TileType returns the class of the tile at loc.
func (dev *Device) TileType(loc Loc) (TileType, error) {
	cfg := &dev.cfg
	if loc.Col >= cfg.NumCols || loc.Row >= cfg.NumRows {
		return 0, fmt.Errorf("%w: %v outside %dx%d array", ErrInvalidTile, loc, cfg.NumCols, cfg.NumRows)
	}
	switch {
	case loc.Row == cfg.ShimRow:
		return TileTypeShim, nil
	case cfg.MemTileNumRows != 0 && loc.Row >= cfg.MemTileRowStart &&
		loc.Row < cfg.MemTileRowStart+cfg.MemTileNumRows:
		return TileTypeMemTile, nil
	case loc.Row >= cfg.AieTileRowStart && loc.Row < cfg.AieTileRowStart+cfg.AieTileNumRows:
		return TileTypeTile, nil
	}
	return 0, fmt.Errorf("%w: %v not in any tile row range", ErrInvalidTile, loc)
}

// mod returns the DMA module properties of the tile at loc.
func (dev *Device) mod(loc Loc) (*dmaMod, error) {
	tt, err := dev.TileType(loc)
	if err != nil {
		return nil, err
	}
	m := dev.mods[tt]
	if m == nil {
		return nil, fmt.Errorf("%w: %v has no dma on %v", ErrInvalidTile, dev.cfg.Generation, tt)
	}
	return m, nil
}

// BdPropFor returns the buffer descriptor register layout of one generation
// and tile class.
func BdPropFor(gen Generation, tt TileType) (*BdProp, error) {
	mods, ok := dmaMods[gen]
	if !ok || tt >= numTileTypes || mods[tt] == nil {
		return nil, fmt.Errorf("%w: no buffer descriptors for %v %v", ErrInvalidTile, gen, tt)
	}
	return mods[tt].bd, nil
}

// fail logs a rejected operation and returns err unchanged.
func fail(op string, err error) error {
	log.Print("err", "dma: ", op, ": ", err)
	return err
}
