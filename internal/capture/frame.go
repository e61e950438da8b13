package capture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/motion.capture/internal/exercise"
)

// FrameFields is the number of comma separated values in every frame: the
// sequence index followed by the six IMU axes.
const FrameFields = 1 + exercise.AxisCount

// Frame is the parsed content of one frame in wire order.
type Frame [FrameFields]float64

// Reading is one parsed, timestamped frame from a channel.
type Reading struct {
	// Elapsed is milliseconds since the channel's origin.
	Elapsed float64
	Values  Frame
}

// Project returns the values a reading contributes to a row. The sequence
// index is dropped unless the exercise records it.
func (r Reading) Project(includeIndex bool) []float64 {
	if includeIndex {
		out := make([]float64, FrameFields)
		copy(out, r.Values[:])
		return out
	}
	out := make([]float64, exercise.AxisCount)
	copy(out, r.Values[1:])
	return out
}

// FrameDecodeError reports a frame that could not be parsed. It carries the
// raw text for diagnostics.
type FrameDecodeError struct {
	Frame  string
	Reason string
}

func (e *FrameDecodeError) Error() string {
	return fmt.Sprintf("decode frame %q: %s", e.Frame, e.Reason)
}

// ParseFrame converts one frame into its seven values. A frame either parses
// completely or is rejected.
func ParseFrame(frame string) (Frame, error) {
	var out Frame

	parts := strings.Split(frame, ",")
	if len(parts) != FrameFields {
		return out, &FrameDecodeError{
			Frame:  frame,
			Reason: fmt.Sprintf("incorrect number of values: %d, want %d", len(parts), FrameFields),
		}
	}

	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Frame{}, &FrameDecodeError{
				Frame:  frame,
				Reason: fmt.Sprintf("field %d %q is not numeric", i, p),
			}
		}
		out[i] = v
	}
	return out, nil
}
