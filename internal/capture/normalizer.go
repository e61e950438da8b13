package capture

import (
	"time"

	"github.com/banshee-data/motion.capture/internal/timeutil"
)

// Normalizer timestamps a channel's readings relative to the instant its
// first frame parsed successfully.
type Normalizer struct {
	clock  timeutil.Clock
	origin time.Time
	set    bool
}

// NewNormalizer returns a Normalizer with no origin yet.
func NewNormalizer(clock timeutil.Clock) *Normalizer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Normalizer{clock: clock}
}

// Stamp turns parsed values into a Reading. The first call captures the
// origin; every call, the first included, measures elapsed time from it.
func (n *Normalizer) Stamp(values Frame) Reading {
	now := n.clock.Now()
	if !n.set {
		n.origin = now
		n.set = true
	}
	return Reading{
		Elapsed: float64(now.Sub(n.origin)) / float64(time.Millisecond),
		Values:  values,
	}
}

// Origin returns the captured origin, if any.
func (n *Normalizer) Origin() (time.Time, bool) {
	return n.origin, n.set
}
