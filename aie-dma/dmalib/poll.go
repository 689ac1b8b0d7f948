// Package dmalib provides register backends for package dma: an in-memory
// simulator, a transaction recorder, a SPI debug bridge and a file backed
// register window.
package dmalib

import (
	"fmt"
	"runtime"
	"time"

	dma "github.com/aiengine/dma/aie-dma"
	"github.com/jpillora/backoff"
)

// PollConfig paces yielding polls. The wait between samples starts at Min
// and grows by Factor up to Max.
type PollConfig struct {
	Min    time.Duration
	Max    time.Duration
	Factor float64
}

// DefaultPollConfig is used by backends with a zero PollConfig.
var DefaultPollConfig = PollConfig{
	Min:    time.Microsecond,
	Max:    time.Millisecond,
	Factor: 2,
}

func (pc PollConfig) backoff() *backoff.Backoff {
	if pc.Min == 0 && pc.Max == 0 {
		pc = DefaultPollConfig
	}
	return &backoff.Backoff{
		Min:    pc.Min,
		Max:    pc.Max,
		Factor: pc.Factor,
		Jitter: false,
	}
}

type deadline struct {
	t time.Time
}

func newDeadline(timeout time.Duration) deadline {
	return deadline{t: time.Now().Add(timeout)}
}

func (dl deadline) expired() bool {
	return !time.Now().Before(dl.t)
}

func (dl deadline) remaining() time.Duration {
	return time.Until(dl.t)
}

func gosched() {
	runtime.Gosched()
}

// readFunc samples a register.
type readFunc func(addr uint64) (uint32, error)

func timeoutErr(addr uint64, mask, want, last uint32, timeout time.Duration) error {
	return fmt.Errorf("%w: %#x & %#x = %#x, want %#x after %v", dma.ErrTimeout, addr, mask, last&mask, want, timeout)
}

// pollYield samples addr until the masked value matches want, sleeping
// between samples with exponential backoff. It always samples at least once
// and never sleeps past the deadline.
func pollYield(read readFunc, addr uint64, mask, want uint32, timeout time.Duration, pc PollConfig) error {
	dl := newDeadline(timeout)
	b := pc.backoff()
	for {
		v, err := read(addr)
		if err != nil {
			return err
		}
		if v&mask == want {
			return nil
		}
		if dl.expired() {
			return timeoutErr(addr, mask, want, v, timeout)
		}
		d := b.Duration()
		if r := dl.remaining(); d > r {
			d = r
		}
		if d > 0 {
			time.Sleep(d)
		} else {
			gosched()
		}
	}
}

// pollBusy samples addr back to back until the masked value matches want.
func pollBusy(read readFunc, addr uint64, mask, want uint32, timeout time.Duration) error {
	dl := newDeadline(timeout)
	for {
		v, err := read(addr)
		if err != nil {
			return err
		}
		if v&mask == want {
			return nil
		}
		if dl.expired() {
			return timeoutErr(addr, mask, want, v, timeout)
		}
	}
}
