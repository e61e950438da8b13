package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/motion.capture/internal/cadence"
	"github.com/banshee-data/motion.capture/internal/exercise"
	"github.com/banshee-data/motion.capture/internal/monitoring"
	"github.com/banshee-data/motion.capture/internal/sink"
	"github.com/banshee-data/motion.capture/internal/timeutil"
	"github.com/banshee-data/motion.capture/internal/transport"
)

const (
	DefaultPollInterval   = 100 * time.Millisecond
	DefaultReadChunkSize  = 256
	DefaultEventBuffer    = 64
	DefaultStatusInterval = time.Second
)

var (
	// ErrAlreadyStarted is returned by Start on a session that has left
	// the idle state.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrMissingPort is returned by NewSession when an active sensor has
	// no port.
	ErrMissingPort = errors.New("no port for active sensor")
)

var logf = monitoring.Prefixed("capture")

// Options tune a Session. The zero value is usable.
type Options struct {
	// ID names the session; a random UUID is used when empty.
	ID     string
	// Output describes where rows go, for the journal and status page.
	Output string

	Clock          timeutil.Clock
	ErrorThreshold int
	AbortMessage   string
	PollInterval   time.Duration
	ReadChunkSize  int
	EventBuffer    int
	StatusInterval time.Duration

	// Journal, if set, records the session and every counted error.
	Journal Journal
}

func (o Options) withDefaults() Options {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ReadChunkSize <= 0 {
		o.ReadChunkSize = DefaultReadChunkSize
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = DefaultEventBuffer
	}
	if o.StatusInterval <= 0 {
		o.StatusInterval = DefaultStatusInterval
	}
	return o
}

// message travels from a channel producer to the session consumer.
type message struct {
	sensor  exercise.SensorID
	reading Reading
	err     error
	// ended marks the producer's last message; cause is the read error
	// that ended it, nil for a clean end of input.
	ended   bool
	cause   error
}

// Session runs one capture: it reads every active sensor channel, emits
// synchronized rows to its sink and stops on request, when every source
// is exhausted, or aborts once the error budget is spent.
type Session struct {
	id    string
	cfg   exercise.Config
	ports map[exercise.SensorID]transport.Port
	rows  sink.RowSink
	opts  Options
	clock timeutil.Clock

	// owned by the consumer goroutine once started
	asm       *Assembler
	monitor   *ErrorMonitor
	events    *eventQueue
	connected map[exercise.SensorID]bool
	ended     int

	cadence *cadence.Tracker
	rowN    atomic.Int64
	errN    atomic.Int64

	mu      sync.Mutex
	state   State
	reason  Reason
	started time.Time
	cancel  context.CancelFunc
	result  Result
	done    chan struct{}

	producers sync.WaitGroup
	closePort sync.Once
	journaled bool

	subMu      sync.Mutex
	subs       map[string]chan Row
	subsClosed bool
}

// NewSession prepares a session for cfg. ports must hold exactly one port
// per active sensor; the session owns and closes them.
func NewSession(cfg exercise.Config, ports map[exercise.SensorID]transport.Port, rows sink.RowSink, opts Options) (*Session, error) {
	if err := cfg.ValidateSensors(); err != nil {
		return nil, err
	}
	if rows == nil {
		return nil, fmt.Errorf("exercise %q: nil row sink", cfg.Name)
	}
	for _, id := range cfg.Sensors {
		if ports[id] == nil {
			return nil, fmt.Errorf("sensor %s: %w", id, ErrMissingPort)
		}
	}
	for id := range ports {
		if !cfg.HasSensor(id) {
			return nil, fmt.Errorf("port given for sensor %s which %q does not use", id, cfg.Name)
		}
	}

	opts = opts.withDefaults()
	return &Session{
		id:        opts.ID,
		cfg:       cfg,
		ports:     ports,
		rows:      rows,
		opts:      opts,
		clock:     opts.Clock,
		asm:       NewAssembler(cfg),
		monitor:   NewErrorMonitor(opts.ErrorThreshold, opts.AbortMessage),
		events:    newEventQueue(opts.EventBuffer),
		connected: make(map[exercise.SensorID]bool, len(cfg.Sensors)),
		cadence:   cadence.NewTracker(0),
		done:      make(chan struct{}),
		subs:      make(map[string]chan Row),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Exercise returns the session's exercise configuration.
func (s *Session) Exercise() exercise.Config { return s.cfg }

// Events returns the outbound event stream. It is closed after the
// Finished event.
func (s *Session) Events() <-chan Event { return s.events.ch }

// Done is closed once the session has reached a terminal state and
// released its ports and sink.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start opens the sink with the exercise header and begins reading every
// channel. It may only be called once. Cancelling ctx has the same effect
// as Stop.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateCapturing
	s.started = s.clock.Now()
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.publish(EventStatus, StatusConnecting)

	if err := s.rows.Open(s.cfg.Columns); err != nil {
		err = fmt.Errorf("open row sink: %w", err)
		s.finish(StateAborted, ReasonSinkFailure, err.Error(), err, false)
		return err
	}

	if s.opts.Journal != nil {
		info := SessionInfo{
			ID:       s.id,
			Exercise: s.cfg.Name,
			Sensors:  s.cfg.Sensors,
			Columns:  s.cfg.Columns,
			Output:   s.opts.Output,
			Started:  s.started,
		}
		if err := s.opts.Journal.SessionStarted(ctx, info); err != nil {
			logf("session %s: journal start: %v", s.id, err)
		} else {
			s.journaled = true
		}
	}

	msgs := make(chan message, len(s.cfg.Sensors)*4)
	for _, id := range s.cfg.Sensors {
		s.producers.Add(1)
		go s.produce(ctx, id, s.ports[id], msgs)
	}
	go s.consume(ctx, msgs)

	logf("session %s: capturing %q from sensors %v", s.id, s.cfg.Name, s.cfg.Sensors)
	return nil
}

// Stop ends a capturing session and waits until its ports and sink are
// released. Nothing is emitted after Stop returns. Calling Stop on an idle
// or finished session does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != StateCapturing {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	<-s.done
}

// Wait blocks until the session is stopped or aborted and returns its
// result. On a session that was never started it returns immediately.
func (s *Session) Wait() Result {
	s.mu.Lock()
	if s.state == StateIdle {
		r := Result{ID: s.id, State: StateIdle}
		s.mu.Unlock()
		return r
	}
	s.mu.Unlock()

	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// produce owns one channel's buffer and normalizer.
func (s *Session) produce(ctx context.Context, id exercise.SensorID, port transport.Port, out chan<- message) {
	defer s.producers.Done()

	if tp, ok := port.(transport.TimeoutPort); ok {
		if err := tp.SetReadTimeout(s.opts.PollInterval); err != nil {
			logf("sensor %s: set read timeout: %v", id, err)
		}
	}

	send := func(m message) bool {
		select {
		case out <- m:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var buf ChannelBuffer
	norm := NewNormalizer(s.clock)
	chunk := make([]byte, s.opts.ReadChunkSize)

	for ctx.Err() == nil {
		n, err := port.Read(chunk)
		if n > 0 {
			frames, ferr := buf.Append(chunk[:n])
			for _, f := range frames {
				values, perr := ParseFrame(f)
				m := message{sensor: id, err: perr}
				if perr == nil {
					m.reading = norm.Stamp(values)
				}
				if !send(m) {
					return
				}
			}
			if ferr != nil && !send(message{sensor: id, err: ferr}) {
				return
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				err = nil
			}
			send(message{sensor: id, ended: true, cause: err})
			return
		}
	}
}

// consume is the only goroutine that touches the assembler, the monitor,
// the sink and the event queue once the session is running.
func (s *Session) consume(ctx context.Context, msgs <-chan message) {
	ticker := s.clock.NewTicker(s.opts.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.finish(StateStopped, ReasonRequested, "", nil, true)
			return
		case <-ticker.C():
			s.publish(EventRowCount, "")
		case m := <-msgs:
			if ctx.Err() != nil {
				s.finish(StateStopped, ReasonRequested, "", nil, true)
				return
			}
			if s.handle(m) {
				return
			}
		}
	}
}

// handle processes one message and reports whether the session finished.
func (s *Session) handle(m message) bool {
	switch {
	case m.ended:
		if m.cause != nil {
			logf("sensor %s: read: %v", m.sensor, m.cause)
		} else {
			logf("sensor %s: end of input", m.sensor)
		}
		s.ended++
		if s.ended == len(s.cfg.Sensors) {
			s.finish(StateStopped, ReasonSourcesExhausted, "", nil, true)
			return true
		}
		return false

	case m.err != nil:
		return s.recordError(m.sensor, m.err)
	}

	s.cadence.Observe(m.sensor, m.reading.Elapsed)
	if !s.connected[m.sensor] {
		s.connected[m.sensor] = true
		if len(s.connected) == len(s.cfg.Sensors) {
			s.publish(EventStatus, StatusConnected)
		}
	}

	row, ok, err := s.asm.Offer(m.sensor, m.reading)
	if err != nil {
		return s.recordError(m.sensor, err)
	}
	if !ok {
		return false
	}

	if err := s.rows.Write(row.Record()); err != nil {
		err = fmt.Errorf("write row: %w", err)
		s.finish(StateAborted, ReasonSinkFailure, err.Error(), err, true)
		return true
	}
	s.rowN.Add(1)
	s.broadcast(row)
	s.publish(EventRowCount, "")
	return false
}

func (s *Session) recordError(id exercise.SensorID, err error) bool {
	s.errN.Add(1)
	logf("sensor %s: %v", id, err)

	if s.journaled {
		if jerr := s.opts.Journal.ErrorRecorded(context.Background(), s.id, id, err, s.clock.Now()); jerr != nil {
			logf("session %s: journal error: %v", s.id, jerr)
		}
	}

	exceeded := s.monitor.Record(err)
	if exceeded == nil {
		return false
	}
	s.finish(StateAborted, ReasonErrorBudget, exceeded.Message, exceeded, true)
	return true
}

// finish tears the session down exactly once: stop producers, release
// ports, discard pending readings, close the sink and publish the terminal
// events.
func (s *Session) finish(state State, reason Reason, msg string, cause error, sinkOpen bool) {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	cancel()

	s.closePorts()
	s.producers.Wait()
	s.asm.Reset()

	var closeErr error
	if sinkOpen {
		if err := s.rows.Close(); err != nil {
			closeErr = fmt.Errorf("close row sink: %w", err)
			logf("session %s: %v", s.id, closeErr)
		}
	}
	if cause == nil {
		cause = closeErr
	}

	ended := s.clock.Now()
	s.mu.Lock()
	s.state = state
	s.reason = reason
	s.result = Result{
		ID:      s.id,
		State:   state,
		Reason:  reason,
		Message: msg,
		Rows:    int(s.rowN.Load()),
		Errors:  int(s.errN.Load()),
		Err:     cause,
		Started: s.started,
		Ended:   ended,
		Cadence: s.cadence.Summaries(),
	}
	result := s.result
	s.mu.Unlock()

	s.closeSubscribers()

	if s.journaled {
		if err := s.opts.Journal.SessionFinished(context.Background(), result); err != nil {
			logf("session %s: journal finish: %v", s.id, err)
		}
	}

	if state == StateAborted {
		logf("session %s: aborted: %s: %v", s.id, reason, cause)
		s.publish(EventAbort, msg)
	} else {
		logf("session %s: stopped: %s after %d rows", s.id, reason, result.Rows)
	}
	s.publish(EventFinished, msg)
	s.events.close()
	close(s.done)
}

func (s *Session) closePorts() {
	s.closePort.Do(func() {
		for id, p := range s.ports {
			if err := p.Close(); err != nil {
				logf("sensor %s: close port: %v", id, err)
			}
		}
	})
}

func (s *Session) publish(kind EventKind, msg string) {
	s.mu.Lock()
	state, reason := s.state, s.reason
	s.mu.Unlock()
	s.events.publish(Event{
		Kind:    kind,
		Time:    s.clock.Now(),
		State:   state,
		Reason:  reason,
		Message: msg,
		Rows:    int(s.rowN.Load()),
		Errors:  int(s.errN.Load()),
	})
}

// Subscribe returns a channel receiving every row emitted after the call.
// Rows are dropped for a subscriber that falls behind. The channel is
// closed by Unsubscribe or when the session finishes.
func (s *Session) Subscribe(buffer int) (string, <-chan Row) {
	id := uuid.NewString()
	ch := make(chan Row, max(buffer, 1))

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subsClosed {
		close(ch)
		return id, ch
	}
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber.
func (s *Session) Unsubscribe(id string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Session) broadcast(row Row) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- row:
		default:
		}
	}
}

func (s *Session) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subsClosed = true
}

// Snapshot is a point-in-time view of a session for status pages.
type Snapshot struct {
	ID       string              `json:"id"`
	Exercise string              `json:"exercise"`
	Sensors  []exercise.SensorID `json:"sensors"`
	Output   string              `json:"output,omitempty"`
	State    State               `json:"state"`
	Reason   Reason              `json:"reason,omitempty"`
	Rows     int                 `json:"rows"`
	Errors   int                 `json:"errors"`
	Started  time.Time           `json:"started,omitzero"`
	Elapsed  string              `json:"elapsed,omitempty"`
	Cadence  []cadence.Summary   `json:"cadence"`
}

// Snapshot reports the session's current progress.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	state, reason, started := s.state, s.reason, s.started
	ended := s.result.Ended
	s.mu.Unlock()

	snap := Snapshot{
		ID:       s.id,
		Exercise: s.cfg.Name,
		Sensors:  s.cfg.Sensors,
		Output:   s.opts.Output,
		State:    state,
		Reason:   reason,
		Rows:     int(s.rowN.Load()),
		Errors:   int(s.errN.Load()),
		Started:  started,
		Cadence:  s.cadence.Summaries(),
	}
	switch {
	case state == StateCapturing:
		snap.Elapsed = s.clock.Since(started).Round(time.Millisecond).String()
	case state.Terminal():
		snap.Elapsed = ended.Sub(started).Round(time.Millisecond).String()
	}
	return snap
}
