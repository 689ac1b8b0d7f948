package dmalib

import (
	"errors"
	"testing"
	"time"
)

func TestPollConfigBackoff(t *testing.T) {
	b := PollConfig{}.backoff()
	if b.Min != DefaultPollConfig.Min || b.Max != DefaultPollConfig.Max {
		t.Errorf("zero config got %v..%v", b.Min, b.Max)
	}
	b = PollConfig{Min: time.Millisecond, Max: 4 * time.Millisecond, Factor: 2}.backoff()
	for i, want := range []time.Duration{1, 2, 4, 4} {
		if d := b.Duration(); d != want*time.Millisecond {
			t.Errorf("step %d got %v != %v", i, d, want*time.Millisecond)
		}
	}
}

func TestPollSamplesOnce(t *testing.T) {
	n := 0
	read := func(uint64) (uint32, error) {
		n++
		return 0x10, nil
	}
	if err := pollYield(read, 0, 0x10, 0x10, 0, PollConfig{}); err != nil {
		t.Fatal(err)
	}
	if err := pollBusy(read, 0, 0x10, 0x10, 0); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("sampled %d times != 2", n)
	}
}

func TestPollReadError(t *testing.T) {
	errBus := errors.New("bus fault")
	read := func(uint64) (uint32, error) { return 0, errBus }
	if err := pollYield(read, 0, 1, 1, time.Second, PollConfig{}); !errors.Is(err, errBus) {
		t.Errorf("yield got %v", err)
	}
	if err := pollBusy(read, 0, 1, 1, time.Second); !errors.Is(err, errBus) {
		t.Errorf("busy got %v", err)
	}
}
