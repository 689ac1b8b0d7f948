package dma_test

import (
	"errors"
	"reflect"
	"testing"

	dma "github.com/aiengine/dma/aie-dma"
	"github.com/aiengine/dma/aie-dma/dmalib"
)

var (
	aieShim      = dma.Loc{Col: 1, Row: 0}
	aieTile      = dma.Loc{Col: 1, Row: 2}
	aieMlShim    = dma.Loc{Col: 2, Row: 0}
	aieMlMemTile = dma.Loc{Col: 2, Row: 1}
	aieMlTile    = dma.Loc{Col: 2, Row: 3}
)

func newDevice(t *testing.T, gen dma.Generation) (*dma.Device, *dmalib.Sim) {
	t.Helper()
	sim := dmalib.NewSim()
	dev, err := dma.New(dma.DefaultConfig(gen), sim)
	if err != nil {
		t.Fatal(err)
	}
	return dev, sim
}

func newDesc(t *testing.T, dev *dma.Device, loc dma.Loc) dma.Desc {
	t.Helper()
	d, err := dev.NewDesc(loc)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func bdAddr(t *testing.T, dev *dma.Device, loc dma.Loc, bd uint8) uint64 {
	t.Helper()
	tt, err := dev.TileType(loc)
	must(t, err)
	p, err := dma.BdPropFor(dev.Generation(), tt)
	must(t, err)
	return dev.TileAddr(loc) + uint64(p.BdOffset(bd))
}

func roundTrip(t *testing.T, dev *dma.Device, d *dma.Desc, loc dma.Loc, bd uint8) {
	t.Helper()
	must(t, dev.WriteBd(d, loc, bd))
	got, err := dev.ReadBd(loc, bd)
	must(t, err)
	if !reflect.DeepEqual(got, *d) {
		t.Errorf("%v bd %d read back\n got %+v\nwant %+v", loc, bd, got, *d)
		if !reflect.DeepEqual(got.MultiDim, d.MultiDim) {
			t.Errorf("multi dim got %+v != %+v", got.MultiDim, d.MultiDim)
		}
	}
}

func TestRoundTripDefaults(t *testing.T) {
	for _, tc := range []struct {
		gen dma.Generation
		loc dma.Loc
	}{
		{dma.GenAIE, aieTile},
		{dma.GenAIE, aieShim},
		{dma.GenAIEML, aieMlTile},
		{dma.GenAIEML, aieMlShim},
		{dma.GenAIEML, aieMlMemTile},
	} {
		dev, _ := newDevice(t, tc.gen)
		d := newDesc(t, dev, tc.loc)
		must(t, d.SetAddrLen(0x100, 64))
		roundTrip(t, dev, &d, tc.loc, 1)
	}
}

func TestRoundTripAieTile(t *testing.T) {
	dev, _ := newDevice(t, dma.GenAIE)
	d := newDesc(t, dev, aieTile)
	must(t, d.SetAddrLen(0x1000, 256))
	must(t, d.SetLock(dma.Lock{ID: 5, Value: 1}, dma.Lock{ID: 5, Value: 0}))
	must(t, d.SetMultiDim([]dma.Dim{
		{StepSize: 2, Wrap: 16, Offset: 3},
		{StepSize: 1, Wrap: 4, Offset: 0x40},
	}))
	must(t, d.SetInterleave(1, 8, 3))
	must(t, d.SetDoubleBuffer(0x2000, dma.Lock{ID: 6, Value: dma.LockNoValue}, dma.Lock{ID: 6, Value: 1}))
	must(t, d.SetPkt(dma.PktDesc{Enable: true, ID: 3, Type: 2}))
	must(t, d.SetNextBd(7, true))
	must(t, d.SetFifoMode(2))
	d.EnableBd()
	roundTrip(t, dev, &d, aieTile, 3)

	md := d.MultiDim.(*dma.AieMultiDim)
	if md.X.Incr != 1 || md.X.Wrap != 15 {
		t.Errorf("x stored as %+v, want register form", md.X)
	}
}

func TestRoundTripAieShim(t *testing.T) {
	dev, _ := newDevice(t, dma.GenAIE)
	d := newDesc(t, dev, aieShim)
	must(t, d.SetAddrLen(0x1234_5678_9AB0, 4096))
	must(t, d.SetLock(dma.Lock{ID: 3, Value: dma.LockNoValue}, dma.Lock{ID: 3, Value: 1}))
	must(t, d.SetAxi(dma.AxiDesc{Smid: 5, BurstLen: 8, Qos: 3, Secure: true, Cache: 9}))
	must(t, d.SetPkt(dma.PktDesc{Enable: true, ID: 31, Type: 7}))
	must(t, d.SetNextBd(2, false))
	d.EnableBd()
	roundTrip(t, dev, &d, aieShim, 15)
}

func TestRoundTripAieMlTile(t *testing.T) {
	dev, _ := newDevice(t, dma.GenAIEML)
	d := newDesc(t, dev, aieMlTile)
	must(t, d.SetAddrLen(0x400, 128))
	must(t, d.SetLock(dma.Lock{ID: 1, Value: -2}, dma.Lock{ID: 2, Value: 1}))
	must(t, d.SetMultiDim([]dma.Dim{
		{StepSize: 1, Wrap: 8},
		{StepSize: 8, Wrap: 4},
		{StepSize: 32},
	}))
	must(t, d.SetIteration(dma.Iteration{StepSize: 64, Wrap: 4, Curr: 1}))
	must(t, d.SetPkt(dma.PktDesc{Enable: true, ID: 9, Type: 1}))
	must(t, d.SetOutOfOrderBdID(5))
	must(t, d.EnableCompression())
	must(t, d.EnableTlastSuppress())
	must(t, d.SetNextBd(1, true))
	d.EnableBd()
	roundTrip(t, dev, &d, aieMlTile, 0)
}

func TestRoundTripAieMlMemTile(t *testing.T) {
	dev, _ := newDevice(t, dma.GenAIEML)
	d := newDesc(t, dev, aieMlMemTile)
	must(t, d.SetAddrLen(0x40000, 4*1000))
	must(t, d.SetLock(dma.Lock{ID: 64, Value: 1}, dma.Lock{ID: 65, Value: -3}))
	must(t, d.SetMultiDim([]dma.Dim{
		{StepSize: 1, Wrap: 10},
		{StepSize: 10, Wrap: 4},
		{StepSize: 40, Wrap: 2},
		{StepSize: 80},
	}))
	must(t, d.SetPadding([]dma.PadDesc{{Before: 1, After: 2}, {Before: 1}, {After: 1}}))
	must(t, d.SetIteration(dma.Iteration{StepSize: 1000, Wrap: 2}))
	must(t, d.SetNextBd(30, true))
	d.EnableBd()
	roundTrip(t, dev, &d, aieMlMemTile, 5)
}

func TestShimAddrSplitScenario(t *testing.T) {
	dev, sim := newDevice(t, dma.GenAIEML)
	d := newDesc(t, dev, aieMlShim)
	must(t, d.SetAddrLen(0x1_0000_0000, 4096))
	must(t, d.SetAxi(dma.AxiDesc{BurstLen: 16}))
	must(t, d.SetMultiDim([]dma.Dim{{StepSize: 1, Wrap: 32}, {StepSize: 32, Wrap: 32}, {StepSize: 1024}}))
	d.EnableBd()
	roundTrip(t, dev, &d, aieMlShim, 2)

	base := bdAddr(t, dev, aieMlShim, 2)
	if w := sim.Peek(base); w != 1024 {
		t.Errorf("length word got %#x != %#x", w, 1024)
	}
	if w := sim.Peek(base + 4); w != 0 {
		t.Errorf("address low word got %#x != 0", w)
	}
	if w := sim.Peek(base + 8); w&0xFFFF != 1 {
		t.Errorf("address high field got %#x != 1", w&0xFFFF)
	}
	if w := sim.Peek(base + 16); w>>30 != 2 {
		t.Errorf("burst length code got %d != 2", w>>30)
	}
	got, err := dev.ReadBd(aieMlShim, 2)
	must(t, err)
	if got.Addr.Addr != 0x1_0000_0000 {
		t.Errorf("address got %#x", got.Addr.Addr)
	}
}

func TestShimTranslate(t *testing.T) {
	dev, sim := newDevice(t, dma.GenAIEML)
	sim.Translate = func(va uint64) (uint64, error) { return va + 0x8000_0000, nil }
	d := newDesc(t, dev, aieMlShim)
	must(t, d.SetAddrLen(0x7fff_f000, 64))
	must(t, dev.WriteBd(&d, aieMlShim, 0))
	got, err := dev.ReadBd(aieMlShim, 0)
	must(t, err)
	if got.Addr.Addr != 0xffff_f000 {
		t.Errorf("translated address got %#x != 0xfffff000", got.Addr.Addr)
	}
}

func TestPrecisionRejection(t *testing.T) {
	dev, sim := newDevice(t, dma.GenAIEML)
	loc := aieMlTile
	base := bdAddr(t, dev, loc, 4)

	for _, tc := range []struct {
		name string
		set  func(d *dma.Desc) error
	}{
		{"length", func(d *dma.Desc) error { return d.SetAddrLen(0, 4<<14) }},
		{"address", func(d *dma.Desc) error { return d.SetAddrLen(1<<16, 4) }},
		{"lock value", func(d *dma.Desc) error {
			return d.SetLock(dma.Lock{ID: 1, Value: 64}, dma.Lock{ID: 1, Value: 0})
		}},
		{"packet id", func(d *dma.Desc) error { return d.SetPkt(dma.PktDesc{ID: 32}) }},
		{"out of order id", func(d *dma.Desc) error { return d.SetOutOfOrderBdID(64) }},
		{"wrap", func(d *dma.Desc) error { return d.SetMultiDim([]dma.Dim{{StepSize: 1, Wrap: 256}}) }},
	} {
		d := newDesc(t, dev, loc)
		must(t, d.SetAddrLen(0, 4))
		if err := tc.set(&d); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		err := dev.WriteBd(&d, loc, 4)
		if !errors.Is(err, dma.ErrPrecisionExceeded) {
			t.Errorf("%s: got %v", tc.name, err)
		}
		for i := uint64(0); i < 6; i++ {
			if w := sim.Peek(base + 4*i); w != 0 {
				t.Errorf("%s: word %d written %#x", tc.name, i, w)
			}
		}
	}
}

func TestAieMlLockValues(t *testing.T) {
	dev, sim := newDevice(t, dma.GenAIEML)
	for _, tc := range []struct {
		acq, rel dma.Lock
		acqVal   int8
		relVal   int8
	}{
		{dma.Lock{ID: 1, Value: -1}, dma.Lock{ID: 2, Value: 1}, -1, 1},
		{dma.Lock{ID: 1, Value: -64}, dma.Lock{ID: 2, Value: 63}, -64, 63},
		{dma.Lock{ID: 1, Value: dma.LockNoValue}, dma.Lock{ID: 2, Value: dma.LockNoValue}, 0, 0},
	} {
		d := newDesc(t, dev, aieMlTile)
		must(t, d.SetAddrLen(0x400, 64))
		must(t, d.SetLock(tc.acq, tc.rel))
		if !d.Lock.AcqValEn || !d.Lock.RelValEn {
			t.Errorf("%+v/%+v: value enables cleared on a layout without them", tc.acq, tc.rel)
		}
		roundTrip(t, dev, &d, aieMlTile, 6)

		got, err := dev.ReadBd(aieMlTile, 6)
		must(t, err)
		if got.Lock.AcqVal != tc.acqVal || got.Lock.RelVal != tc.relVal {
			t.Errorf("%+v/%+v: read back values %d/%d", tc.acq, tc.rel, got.Lock.AcqVal, got.Lock.RelVal)
		}
	}

	// acquire value -1 in bits 11:5 of the lock word
	d := newDesc(t, dev, aieMlTile)
	must(t, d.SetAddrLen(0x400, 64))
	must(t, d.SetLock(dma.Lock{ID: 1, Value: -1}, dma.Lock{ID: 2, Value: 1}))
	must(t, dev.WriteBd(&d, aieMlTile, 7))
	w := sim.Peek(bdAddr(t, dev, aieMlTile, 7) + 20)
	if f := w >> 5 & 0x7F; f != 0x7F {
		t.Errorf("acquire value field got %#x != 0x7f", f)
	}

	aie, _ := newDevice(t, dma.GenAIE)
	d = newDesc(t, aie, aieTile)
	must(t, d.SetAddrLen(0, 4))
	must(t, d.SetLock(dma.Lock{ID: 1, Value: -1}, dma.Lock{ID: 1, Value: 0}))
	if err := aie.WriteBd(&d, aieTile, 0); !errors.Is(err, dma.ErrPrecisionExceeded) {
		t.Errorf("aie lock value -1 got %v", err)
	}
}

func TestAieLengthBias(t *testing.T) {
	dev, sim := newDevice(t, dma.GenAIE)
	d := newDesc(t, dev, aieTile)
	must(t, d.SetAddrLen(0, 32))
	must(t, dev.WriteBd(&d, aieTile, 0))
	if w := sim.Peek(bdAddr(t, dev, aieTile, 0) + 24); w&0x1FFF != 7 {
		t.Errorf("length field got %d != 7", w&0x1FFF)
	}
	must(t, d.SetAddrLen(0, 0))
	if err := dev.WriteBd(&d, aieTile, 0); !errors.Is(err, dma.ErrInvalidDesc) {
		t.Errorf("zero length got %v", err)
	}
	must(t, d.SetAddrLen(0, 6))
	if err := dev.WriteBd(&d, aieTile, 0); !errors.Is(err, dma.ErrInvalidDesc) {
		t.Errorf("odd length got %v", err)
	}
}

func TestLockIDs(t *testing.T) {
	dev, _ := newDevice(t, dma.GenAIE)
	d := newDesc(t, dev, aieTile)
	if err := d.SetLock(dma.Lock{ID: 1}, dma.Lock{ID: 2}); !errors.Is(err, dma.ErrInvalidLockID) {
		t.Errorf("aie unequal ids got %v", err)
	}
	if err := d.SetLock(dma.Lock{ID: 16}, dma.Lock{ID: 16}); !errors.Is(err, dma.ErrInvalidLockID) {
		t.Errorf("aie id 16 got %v", err)
	}
	must(t, d.SetLock(dma.Lock{ID: 2, Value: dma.LockNoValue}, dma.Lock{ID: 2, Value: dma.LockNoValue}))
	if d.Lock.AcqValEn || d.Lock.RelValEn {
		t.Errorf("no value lock got %+v", d.Lock)
	}

	dev, _ = newDevice(t, dma.GenAIEML)
	d = newDesc(t, dev, aieMlTile)
	must(t, d.SetLock(dma.Lock{ID: 1}, dma.Lock{ID: 2}))
	if d.Lock.AcqID != 1 || d.Lock.RelID != 2 {
		t.Errorf("aie-ml lock got %+v", d.Lock)
	}
}

func TestPaddingConsistency(t *testing.T) {
	dev, sim := newDevice(t, dma.GenAIEML)
	loc := aieMlMemTile
	d := newDesc(t, dev, loc)
	must(t, d.SetAddrLen(0, 256))
	must(t, d.SetMultiDim([]dma.Dim{{StepSize: 1, Wrap: 4}, {StepSize: 4, Wrap: 0}}))
	must(t, d.SetPadding([]dma.PadDesc{{Before: 1}, {}, {Before: 1}}))
	if err := dev.WriteBd(&d, loc, 0); !errors.Is(err, dma.ErrInvalidDesc) {
		t.Errorf("pad above zero wrap got %v", err)
	}
	if w := sim.Peek(bdAddr(t, dev, loc, 0)); w != 0 {
		t.Errorf("rejected bd written %#x", w)
	}
	must(t, d.SetPadding([]dma.PadDesc{{Before: 1}, {}, {}}))
	must(t, dev.WriteBd(&d, loc, 0))

	must(t, d.SetPadding([]dma.PadDesc{{Before: 1}, {After: 1}}))
	if err := dev.WriteBd(&d, loc, 0); !errors.Is(err, dma.ErrInvalidDesc) {
		t.Errorf("pad after zero wrap got %v", err)
	}
}

func TestSetMultiDimAllOrNothing(t *testing.T) {
	dev, _ := newDevice(t, dma.GenAIEML)
	d := newDesc(t, dev, aieMlMemTile)
	must(t, d.SetMultiDim([]dma.Dim{{StepSize: 2, Wrap: 3}}))
	before := *d.MultiDim.(*dma.AieMlMultiDim)

	for _, dims := range [][]dma.Dim{
		{{StepSize: 1, Wrap: 2}, {StepSize: 0, Wrap: 2}},
		{{StepSize: 1, Wrap: 2}, {StepSize: 1<<17 + 1, Wrap: 1}},
		{{StepSize: 1, Wrap: 2}, {StepSize: 1, Wrap: 1<<10 + 1}},
		{{StepSize: 1}, {StepSize: 1}, {StepSize: 1}, {StepSize: 1, Wrap: 1}},
		{{StepSize: 1}, {StepSize: 1}, {StepSize: 1}, {StepSize: 1}, {StepSize: 1}},
	} {
		if err := d.SetMultiDim(dims); !errors.Is(err, dma.ErrInvalidArgs) {
			t.Errorf("%+v got %v", dims, err)
		}
		if after := *d.MultiDim.(*dma.AieMlMultiDim); after != before {
			t.Errorf("%+v changed pattern to %+v", dims, after)
		}
	}
	must(t, d.SetMultiDim([]dma.Dim{{StepSize: 1 << 17, Wrap: 1 << 10}}))

	dev, _ = newDevice(t, dma.GenAIE)
	d = newDesc(t, dev, aieTile)
	if err := d.SetMultiDim([]dma.Dim{{StepSize: 0, Wrap: 1}}); !errors.Is(err, dma.ErrInvalidArgs) {
		t.Errorf("aie step 0 got %v", err)
	}
	if err := d.SetMultiDim(make([]dma.Dim, 3)); !errors.Is(err, dma.ErrInvalidArgs) {
		t.Errorf("aie 3 dimensions got %v", err)
	}
}

func TestFeatureSupport(t *testing.T) {
	aie, _ := newDevice(t, dma.GenAIE)
	aieMl, _ := newDevice(t, dma.GenAIEML)

	tile := newDesc(t, aie, aieTile)
	if err := tile.SetIteration(dma.Iteration{StepSize: 1, Wrap: 1}); !errors.Is(err, dma.ErrFeatureNotSupported) {
		t.Errorf("aie iteration got %v", err)
	}
	if err := tile.SetAxi(dma.AxiDesc{BurstLen: 4}); !errors.Is(err, dma.ErrFeatureNotSupported) {
		t.Errorf("aie tile axi got %v", err)
	}
	if err := tile.EnableCompression(); !errors.Is(err, dma.ErrFeatureNotSupported) {
		t.Errorf("aie compression got %v", err)
	}
	shim := newDesc(t, aie, aieShim)
	if err := shim.SetMultiDim([]dma.Dim{{StepSize: 1, Wrap: 1}}); !errors.Is(err, dma.ErrFeatureNotSupported) {
		t.Errorf("aie shim multi dim got %v", err)
	}
	if err := shim.SetInterleave(0, 1, 0); !errors.Is(err, dma.ErrFeatureNotSupported) {
		t.Errorf("aie shim interleave got %v", err)
	}

	mem := newDesc(t, aieMl, aieMlMemTile)
	if err := mem.SetDoubleBuffer(0, dma.Lock{}, dma.Lock{}); !errors.Is(err, dma.ErrFeatureNotSupported) {
		t.Errorf("memtile double buffer got %v", err)
	}
	if err := mem.SetFifoMode(1); !errors.Is(err, dma.ErrFeatureNotSupported) {
		t.Errorf("memtile fifo mode got %v", err)
	}
	if err := mem.SetIteration(dma.Iteration{StepSize: 1, Wrap: 65}); !errors.Is(err, dma.ErrInvalidArgs) {
		t.Errorf("iteration wrap 65 got %v", err)
	}
	aieMlShimDesc := newDesc(t, aieMl, aieMlShim)
	if err := aieMlShimDesc.SetAxi(dma.AxiDesc{BurstLen: 32}); !errors.Is(err, dma.ErrInvalidBurstLength) {
		t.Errorf("burst 32 got %v", err)
	}
	if err := aieMlShimDesc.SetPadding([]dma.PadDesc{{Before: 1}}); !errors.Is(err, dma.ErrFeatureNotSupported) {
		t.Errorf("shim padding got %v", err)
	}
	if err := aieMlShimDesc.SetNextBd(16, true); !errors.Is(err, dma.ErrInvalidArgs) {
		t.Errorf("next bd 16 got %v", err)
	}
}

func TestWriteBdWrongTile(t *testing.T) {
	dev, _ := newDevice(t, dma.GenAIEML)
	d := newDesc(t, dev, aieMlTile)
	if err := dev.WriteBd(&d, aieMlMemTile, 0); !errors.Is(err, dma.ErrInvalidTile) {
		t.Errorf("tile bd on memtile got %v", err)
	}
	if err := dev.WriteBd(&d, aieMlTile, 16); !errors.Is(err, dma.ErrInvalidArgs) {
		t.Errorf("bd 16 got %v", err)
	}
	if err := dev.WriteBd(&d, dma.Loc{Col: 40, Row: 3}, 0); !errors.Is(err, dma.ErrInvalidTile) {
		t.Errorf("column 40 got %v", err)
	}
	var zero dma.Desc
	if err := dev.WriteBd(&zero, aieMlTile, 0); !errors.Is(err, dma.ErrInvalidDesc) {
		t.Errorf("zero descriptor got %v", err)
	}
	if _, err := dev.NewDesc(dma.Loc{Col: 0, Row: 11}); !errors.Is(err, dma.ErrInvalidTile) {
		t.Errorf("row 11 got %v", err)
	}
}

func TestUpdateBd(t *testing.T) {
	dev, _ := newDevice(t, dma.GenAIEML)
	d := newDesc(t, dev, aieMlShim)
	must(t, d.SetAddrLen(0x1000, 64))
	must(t, d.SetAxi(dma.AxiDesc{BurstLen: 8, Qos: 2}))
	d.EnableBd()
	must(t, dev.WriteBd(&d, aieMlShim, 7))

	must(t, dev.UpdateBdAddr(aieMlShim, 7, 0x2_0000_0040))
	must(t, dev.UpdateBdLen(aieMlShim, 7, 8192))
	got, err := dev.ReadBd(aieMlShim, 7)
	must(t, err)
	d.Addr = dma.AddrDesc{Addr: 0x2_0000_0040, Len: 8192}
	if !reflect.DeepEqual(got, d) {
		t.Errorf("updated bd got %+v want %+v", got, d)
	}

	if err := dev.UpdateBdLen(aieMlTile, 0, 4<<14); !errors.Is(err, dma.ErrPrecisionExceeded) {
		t.Errorf("tile length got %v", err)
	}
	if err := dev.UpdateBdAddr(aieMlShim, 7, 3); !errors.Is(err, dma.ErrInvalidDesc) {
		t.Errorf("unaligned address got %v", err)
	}
}

// failingReads is a Sim whose register reads fail.
type failingReads struct {
	*dmalib.Sim
	err error
}

func (f failingReads) Read32(addr uint64) (uint32, error) { return 0, f.err }

func TestReadBdBackendError(t *testing.T) {
	errBus := errors.New("bus error")
	dev, err := dma.New(dma.DefaultConfig(dma.GenAIEML), failingReads{dmalib.NewSim(), errBus})
	must(t, err)
	if _, err := dev.ReadBd(aieMlShim, 0); !errors.Is(err, errBus) {
		t.Errorf("read bd got %v", err)
	}
	if _, err := dev.GetPendingBdCount(aieMlShim, 0, dma.MM2S); !errors.Is(err, errBus) {
		t.Errorf("pending count got %v", err)
	}
}
