// Package transport delivers raw byte chunks from one sensor channel. It sits
// below the capture pipeline: a Port yields whatever bytes the radio bridge
// hands over, with no framing guarantees beyond per-channel ordering.
package transport

import (
	"errors"
	"io"
	"time"
)

// ErrPortClosed is returned by Read once a port has been closed.
var ErrPortClosed = errors.New("port closed")

// Port is the minimal interface the capture pipeline needs from a sensor
// channel. Read may return fewer bytes than a full frame, or several frames
// at once.
type Port interface {
	io.Reader
	io.Closer
}

// TimeoutPort is implemented by ports whose Read can be bounded. A Read that
// times out returns 0, nil, which lets a producer observe cancellation at
// each poll interval.
type TimeoutPort interface {
	Port
	SetReadTimeout(timeout time.Duration) error
}

// Opener opens the port for one sensor channel.
type Opener func(path string, opts PortOptions) (Port, error)
