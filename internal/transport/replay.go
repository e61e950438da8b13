package transport

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"time"
)

// ReplayOptions controls how recorded sensor output is fed back.
type ReplayOptions struct {
	// MaxChunk bounds the size of each Read; actual sizes are drawn
	// uniformly from 1..MaxChunk so frames straddle chunk boundaries the way
	// radio notifications do. Defaults to 20 bytes, a typical BLE payload.
	MaxChunk int
	// Interval is the pause before each chunk. Zero replays as fast as the
	// reader drains.
	Interval time.Duration
	// Loop restarts from the beginning instead of returning io.EOF.
	Loop bool
	// Seed makes the chunk sizes reproducible.
	Seed uint64
}

// ReplayPort is a Port backed by recorded sensor output. It is used in dev
// mode and in tests in place of a real serial device.
type ReplayPort struct {
	mu       sync.Mutex
	data     []byte
	off      int
	rng      *rand.Rand
	opts     ReplayOptions
	timeout  time.Duration
	closed   chan struct{}
	closeErr sync.Once
}

// NewReplayPort creates a ReplayPort over data.
func NewReplayPort(data []byte, opts ReplayOptions) *ReplayPort {
	if opts.MaxChunk <= 0 {
		opts.MaxChunk = 20
	}
	return &ReplayPort{
		data:   data,
		rng:    rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		opts:   opts,
		closed: make(chan struct{}),
	}
}

// OpenReplay loads a fixture file and returns a ReplayPort over it. Dev mode
// uses it in place of OpenSerial.
func OpenReplay(path string, opts ReplayOptions) (*ReplayPort, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replay fixture %s: %w", path, err)
	}
	return NewReplayPort(data, opts), nil
}

// Read returns the next chunk of the recording.
func (p *ReplayPort) Read(buf []byte) (int, error) {
	if p.opts.Interval > 0 {
		t := time.NewTimer(p.opts.Interval)
		defer t.Stop()
		select {
		case <-p.closed:
			return 0, ErrPortClosed
		case <-t.C:
		}
	} else {
		select {
		case <-p.closed:
			return 0, ErrPortClosed
		default:
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.off >= len(p.data) {
		if !p.opts.Loop || len(p.data) == 0 {
			return 0, io.EOF
		}
		p.off = 0
	}

	n := 1 + p.rng.IntN(p.opts.MaxChunk)
	n = min(n, len(p.data)-p.off, len(buf))
	copy(buf, p.data[p.off:p.off+n])
	p.off += n
	return n, nil
}

// SetReadTimeout records the timeout. Reads are already bounded by the
// replay interval, so it only matters for inspection in tests.
func (p *ReplayPort) SetReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = timeout
	return nil
}

// Close stops the replay. Subsequent reads return ErrPortClosed.
func (p *ReplayPort) Close() error {
	p.closeErr.Do(func() { close(p.closed) })
	return nil
}
