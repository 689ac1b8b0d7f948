package dmalib

import (
	"sync"
	"time"

	dma "github.com/aiengine/dma/aie-dma"
)

// Sim is an in-memory register file. Registers never written read as zero.
// It is safe for concurrent use so tests can change status registers while
// a poll is in progress.
type Sim struct {
	// Poll paces MaskPoll.
	Poll PollConfig
	// OnWrite, if set, is called after every register write with the new
	// register value.
	OnWrite func(addr uint64, v uint32)
	// Translate, if set, maps shim BD buffer addresses before the BD is
	// stored, as a host driver would map virtual to physical addresses.
	Translate func(addr uint64) (uint64, error)

	mu   sync.Mutex
	regs map[uint64]uint32
}

// NewSim returns an empty simulator.
func NewSim() *Sim {
	return &Sim{regs: make(map[uint64]uint32)}
}

func (s *Sim) store(addr uint64, v uint32) {
	s.mu.Lock()
	s.regs[addr] = v
	s.mu.Unlock()
	if s.OnWrite != nil {
		s.OnWrite(addr, v)
	}
}

// Peek returns a register without going through the Backend interface.
func (s *Sim) Peek(addr uint64) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[addr]
}

// Poke sets a register, for instance to fake a channel status, without
// calling OnWrite.
func (s *Sim) Poke(addr uint64, v uint32) {
	s.mu.Lock()
	s.regs[addr] = v
	s.mu.Unlock()
}

// Read32 implements dma.Backend.
func (s *Sim) Read32(addr uint64) (uint32, error) {
	return s.Peek(addr), nil
}

// Write32 implements dma.Backend.
func (s *Sim) Write32(addr uint64, v uint32) error {
	s.store(addr, v)
	return nil
}

// MaskWrite32 implements dma.Backend.
func (s *Sim) MaskWrite32(addr uint64, mask, v uint32) error {
	s.mu.Lock()
	nv := s.regs[addr]&^mask | v&mask
	s.regs[addr] = nv
	s.mu.Unlock()
	if s.OnWrite != nil {
		s.OnWrite(addr, nv)
	}
	return nil
}

// MaskPoll implements dma.Backend.
func (s *Sim) MaskPoll(addr uint64, mask, want uint32, timeout time.Duration) error {
	return pollYield(s.Read32, addr, mask, want, timeout, s.Poll)
}

// MaskPollBusy implements dma.Backend.
func (s *Sim) MaskPollBusy(addr uint64, mask, want uint32, timeout time.Duration) error {
	return pollBusy(s.Read32, addr, mask, want, timeout)
}

// BlockWrite32 implements dma.Backend.
func (s *Sim) BlockWrite32(addr uint64, data []uint32) error {
	for i, v := range data {
		s.store(addr+uint64(i)*4, v)
	}
	return nil
}

// WriteShimDmaBd implements dma.ShimDmaBdWriter.
func (s *Sim) WriteShimDmaBd(args dma.ShimDmaBdArgs) error {
	if s.Translate == nil {
		return s.BlockWrite32(args.Addr, args.Words)
	}
	pa, err := s.Translate(args.BufAddr)
	if err != nil {
		return err
	}
	words := append([]uint32(nil), args.Words...)
	if err := args.Prop.PatchAddr(words, pa); err != nil {
		return err
	}
	return s.BlockWrite32(args.Addr, words)
}
