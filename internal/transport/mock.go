package transport

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// TestablePort implements TimeoutPort with fine-grained control over what
// reads return. Reads block until data is added, the input is ended, the
// port is closed or the read timeout elapses.
type TestablePort struct {
	mu sync.Mutex

	buf     bytes.Buffer
	notify  chan struct{}
	closed  bool
	eof     bool
	timeout time.Duration

	// ReadError is returned by the next Read call if set.
	ReadError error

	// ReadCalls records the number of Read calls.
	ReadCalls int

	// CloseCalls records the number of Close calls.
	CloseCalls int
}

// NewTestablePort creates a new TestablePort for testing.
func NewTestablePort() *TestablePort {
	return &TestablePort{notify: make(chan struct{}, 1)}
}

// AddReadData queues data to be returned by subsequent Read calls.
func (t *TestablePort) AddReadData(data []byte) {
	t.mu.Lock()
	t.buf.Write(data)
	t.mu.Unlock()
	t.wake()
}

// AddReadString is AddReadData for text.
func (t *TestablePort) AddReadString(s string) {
	t.AddReadData([]byte(s))
}

// EndInput makes Read return io.EOF once the queued data has been consumed.
func (t *TestablePort) EndInput() {
	t.mu.Lock()
	t.eof = true
	t.mu.Unlock()
	t.wake()
}

// SetError makes the next Read return err.
func (t *TestablePort) SetError(err error) {
	t.mu.Lock()
	t.ReadError = err
	t.mu.Unlock()
	t.wake()
}

func (t *TestablePort) wake() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// Read returns queued data, blocking while none is available.
func (t *TestablePort) Read(p []byte) (int, error) {
	t.mu.Lock()
	t.ReadCalls++
	t.mu.Unlock()

	for {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return 0, ErrPortClosed
		}
		if t.ReadError != nil {
			err := t.ReadError
			t.ReadError = nil
			t.mu.Unlock()
			return 0, err
		}
		if t.buf.Len() > 0 {
			n, _ := t.buf.Read(p)
			t.mu.Unlock()
			return n, nil
		}
		if t.eof {
			t.mu.Unlock()
			return 0, io.EOF
		}
		timeout := t.timeout
		t.mu.Unlock()

		if timeout <= 0 {
			<-t.notify
			continue
		}
		timer := time.NewTimer(timeout)
		select {
		case <-t.notify:
			timer.Stop()
		case <-timer.C:
			return 0, nil
		}
	}
}

// SetReadTimeout implements TimeoutPort.
func (t *TestablePort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// ReadTimeout returns the timeout last set with SetReadTimeout.
func (t *TestablePort) ReadTimeout() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeout
}

// Close marks the port as closed and wakes a blocked reader.
func (t *TestablePort) Close() error {
	t.mu.Lock()
	t.closed = true
	t.CloseCalls++
	t.mu.Unlock()
	t.wake()
	return nil
}

// Closed reports whether Close was called.
func (t *TestablePort) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
