package capture

import (
	"bytes"
	"fmt"
	"strings"
)

// MaxTail bounds the bytes a channel may accumulate without seeing a
// newline. Real frames are under 100 bytes.
const MaxTail = 64 * 1024

// ChannelBuffer reassembles newline-delimited frames from arbitrarily split
// chunks. Between calls it holds only the incomplete trailing data.
type ChannelBuffer struct {
	tail []byte
}

// Append adds chunk to the retained tail and returns every complete frame,
// without its delimiter. Empty and whitespace-only frames are dropped. If the
// tail outgrows MaxTail it is discarded and reported as a FrameDecodeError;
// any complete frames are still returned.
func (b *ChannelBuffer) Append(chunk []byte) ([]string, error) {
	b.tail = append(b.tail, chunk...)

	var frames []string
	for {
		i := bytes.IndexByte(b.tail, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSuffix(string(b.tail[:i]), "\r")
		b.tail = b.tail[i+1:]
		if strings.TrimSpace(line) == "" {
			continue
		}
		frames = append(frames, line)
	}

	// keep the backing array from growing without bound across calls
	if len(b.tail) == 0 {
		b.tail = b.tail[:0:0]
	}

	if len(b.tail) > MaxTail {
		dropped := len(b.tail)
		preview := string(b.tail[:min(len(b.tail), 32)])
		b.tail = nil
		return frames, &FrameDecodeError{
			Frame:  preview,
			Reason: fmt.Sprintf("%d bytes without a frame delimiter", dropped),
		}
	}
	return frames, nil
}

// Pending returns the number of bytes held as an incomplete frame.
func (b *ChannelBuffer) Pending() int {
	return len(b.tail)
}

// Reset discards any incomplete frame.
func (b *ChannelBuffer) Reset() {
	b.tail = nil
}
