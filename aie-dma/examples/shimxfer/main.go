// Command shimxfer programs a shim DMA transfer on a simulated array and
// prints the BD as read back from the registers.
//
//	shimxfer [-v] [-busy] [-gen aie|aie-ml] [-col N] [-addr ADDR] [-len BYTES] [-bd N]
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

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Print("err", "shimxfer: ", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flag, args := flags.New(args, "-v", "-busy")
	parm, args := parms.New(args, "-gen", "-col", "-addr", "-len", "-bd")
	if len(args) > 0 {
		return fmt.Errorf("unexpected %v", args)
	}

	gen := dma.GenAIEML
	switch parm.ByName["-gen"] {
	case "", "aie-ml":
	case "aie":
		gen = dma.GenAIE
	default:
		return fmt.Errorf("unknown generation %q", parm.ByName["-gen"])
	}
	col, err := uintParm(parm.ByName["-col"], 2, 8)
	if err != nil {
		return err
	}
	addr, err := uintParm(parm.ByName["-addr"], 0x8000_0000, 64)
	if err != nil {
		return err
	}
	length, err := uintParm(parm.ByName["-len"], 4096, 32)
	if err != nil {
		return err
	}
	bd, err := uintParm(parm.ByName["-bd"], 0, 8)
	if err != nil {
		return err
	}

	sim := dmalib.NewSim()
	var be dma.Backend = sim
	if flag.ByName["-v"] {
		be = dmalib.NewLogged(sim)
	}
	dev, err := dma.New(dma.DefaultConfig(gen), be)
	if err != nil {
		return err
	}
	loc := dma.Loc{Col: uint8(col), Row: dev.Config().ShimRow}

	d, err := dev.NewDesc(loc)
	if err != nil {
		return err
	}
	if err := d.SetAddrLen(addr, uint32(length)); err != nil {
		return err
	}
	if err := d.SetAxi(dma.AxiDesc{BurstLen: 16, Qos: 0xF}); err != nil {
		return err
	}
	d.EnableBd()
	if err := dev.WriteBd(&d, loc, uint8(bd)); err != nil {
		return err
	}

	if err := dev.ChannelEnable(loc, 0, dma.MM2S); err != nil {
		return err
	}
	if gen == dma.GenAIEML {
		if err := dev.WaitForBdTaskQueueNotFull(loc, 0, dma.MM2S, time.Millisecond, flag.ByName["-busy"]); err != nil {
			return err
		}
	}
	if err := dev.PushBdToQueue(loc, 0, dma.MM2S, uint8(bd)); err != nil {
		return err
	}
	if err := dev.WaitForDone(loc, 0, dma.MM2S, 10*time.Millisecond, flag.ByName["-busy"]); err != nil {
		return err
	}
	pending, err := dev.GetPendingBdCount(loc, 0, dma.MM2S)
	if err != nil {
		return err
	}

	got, err := dev.ReadBd(loc, uint8(bd))
	if err != nil {
		return err
	}
	fmt.Printf("%v %v bd %d: addr %#x len %d burst %d valid %v, %d pending\n",
		gen, loc, bd, got.Addr.Addr, got.Addr.Len, got.Axi.BurstLen, got.BdEn.ValidBd, pending)
	return nil
}

func uintParm(s string, def uint64, bitSize int) (uint64, error) {
	if len(s) == 0 {
		return def, nil
	}
	return strconv.ParseUint(s, 0, bitSize)
}
