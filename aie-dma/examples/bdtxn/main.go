// Command bdtxn records the control stream of a memory tile to shim
// transfer, patches the shim buffer address into it and either writes the
// stream to a file or replays it on a simulated array.
//
//	bdtxn [-replay] [-o FILE] [-addr ADDR]
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	dma "github.com/aiengine/dma/aie-dma"
	"github.com/aiengine/dma/aie-dma/dmalib"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"
)

var (
	memTile = dma.Loc{Col: 1, Row: 1}
	shim    = dma.Loc{Col: 1, Row: 0}
)

const (
	memBd  = 24
	shimBd = 0
	words  = 1024
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Print("err", "bdtxn: ", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flag, args := flags.New(args, "-replay")
	parm, args := parms.New(args, "-o", "-addr")
	if len(args) > 0 {
		return fmt.Errorf("unexpected %v", args)
	}
	addr := uint64(0x4_0000_0000)
	if s := parm.ByName["-addr"]; len(s) > 0 {
		var err error
		if addr, err = strconv.ParseUint(s, 0, 64); err != nil {
			return err
		}
	}

	cfg := dma.DefaultConfig(dma.GenAIEML)
	txn := dmalib.NewTxn()
	dev, err := dma.New(cfg, txn)
	if err != nil {
		return err
	}
	if err := record(dev); err != nil {
		return err
	}
	n, err := txn.PatchShimBdAddr(dev, shim, shimBd, addr)
	if err != nil {
		return err
	}
	log.Print("debug", "bdtxn: patched ", n, " shim bd writes with ", fmt.Sprintf("%#x", addr))

	if fn := parm.ByName["-o"]; len(fn) > 0 {
		b, err := txn.MarshalBinary()
		if err != nil {
			return err
		}
		if err := os.WriteFile(fn, b, 0644); err != nil {
			return err
		}
		fmt.Printf("%d ops, %d bytes to %s\n", len(txn.Ops()), len(b), fn)
	}
	if !flag.ByName["-replay"] {
		return nil
	}

	sim := dmalib.NewSim()
	if err := txn.Replay(sim); err != nil {
		return err
	}
	hw, err := dma.New(cfg, sim)
	if err != nil {
		return err
	}
	d, err := hw.ReadBd(shim, shimBd)
	if err != nil {
		return err
	}
	fmt.Printf("replayed %d ops, shim bd %d at %#x len %d\n", len(txn.Ops()), shimBd, d.Addr.Addr, d.Addr.Len)
	return nil
}

// record moves words from the memory tile to the host through the shim,
// the memory tile sending an 8x128 block transposed.
func record(dev *dma.Device) error {
	mem, err := dev.NewDesc(memTile)
	if err != nil {
		return err
	}
	if err := mem.SetAddrLen(0, 4*words); err != nil {
		return err
	}
	if err := mem.SetMultiDim([]dma.Dim{
		{StepSize: 128, Wrap: 8},
		{StepSize: 1, Wrap: 128},
	}); err != nil {
		return err
	}
	if err := mem.SetLock(dma.Lock{ID: 64, Value: 1}, dma.Lock{ID: 65, Value: 1}); err != nil {
		return err
	}
	mem.EnableBd()
	if err := dev.WriteBd(&mem, memTile, memBd); err != nil {
		return err
	}

	host, err := dev.NewDesc(shim)
	if err != nil {
		return err
	}
	if err := host.SetAddrLen(0, 4*words); err != nil {
		return err
	}
	if err := host.SetAxi(dma.AxiDesc{BurstLen: 16}); err != nil {
		return err
	}
	host.EnableBd()
	if err := dev.WriteBd(&host, shim, shimBd); err != nil {
		return err
	}

	for _, step := range []func() error{
		func() error { return dev.ChannelEnable(memTile, 1, dma.MM2S) },
		func() error { return dev.SetStartQueue(memTile, 1, dma.MM2S, memBd, 1, true) },
		func() error { return dev.ChannelEnable(shim, 0, dma.S2MM) },
		func() error { return dev.PushBdToQueue(shim, 0, dma.S2MM, shimBd) },
		func() error { return dev.WaitForDone(shim, 0, dma.S2MM, time.Second, false) },
	} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
