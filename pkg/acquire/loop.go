/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package acquire

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fuel-analytics/go-fuel/pkg/layers"
	"github.com/fuel-analytics/go-fuel/pkg/log"
	"github.com/fuel-analytics/go-fuel/pkg/serial"
)

const (
	DefaultInterval = 1000 * time.Millisecond
)

// FrameReader is the connection the loop reads from.
// *serial.Connection implements it.
type FrameReader interface {
	Device() string
	ReadFrame(size int) ([]byte, error)
	Close() error
}

var _ FrameReader = &serial.Connection{}

type Option func(*Loop)

func WithFrameSize(size int) Option {
	return func(l *Loop) {
		if size > 0 {
			l.frameSize = size
		}
	}
}

// WithSink adds a sink; may be given several times
func WithSink(sink Sink) Option {
	return func(l *Loop) {
		l.sinks = append(l.sinks, sink)
	}
}

func WithObserver(o Observer) Option {
	return func(l *Loop) {
		l.observer = o
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		l.now = now
	}
}

// Loop drives acquisition cycles over one connection and owns the session.
//
// cycleMu serializes cycles and transitions, so a transition requested while
// a read is in flight takes effect right after that cycle. mu guards the
// fields and is never held across a read.
type Loop struct {
	cycleMu sync.Mutex
	mu      sync.Mutex

	state   State
	conn    FrameReader
	session *Session
	seq     uint64

	frameSize int
	sinks     MultiSink
	observer  Observer
	now       func() time.Time
}

func NewLoop(opts ...Option) *Loop {
	l := &Loop{
		state:     Idle,
		frameSize: layers.FrameSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Attach hands an open connection to the loop. Only legal in Idle.
// A previously attached connection is closed.
func (l *Loop) Attach(conn FrameReader) error {
	l.cycleMu.Lock()
	defer l.cycleMu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != Idle {
		return serial.ErrState{What: "connection can only be attached when idle"}
	}
	if conn == nil {
		return serial.ErrState{What: "connection is not open"}
	}
	if l.conn != nil && l.conn != conn {
		l.conn.Close()
	}
	l.conn = conn
	log.Info("Connection attached: device: %s", conn.Device())
	return nil
}

// Attached tells if a connection is attached
func (l *Loop) Attached() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Start moves Idle or Paused to Running. From Idle a new session is created.
func (l *Loop) Start() error {
	l.cycleMu.Lock()
	defer l.cycleMu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case Running:
		return serial.ErrState{What: "acquisition is already running"}
	case Idle:
		if l.conn == nil {
			return serial.ErrState{What: "connection is not open"}
		}
		l.session = NewSession(l.conn.Device(), l.now())
		log.Info("Acquisition started: device: %s", l.conn.Device())
	case Paused:
		log.Info("Acquisition resumed: device: %s", l.conn.Device())
	}
	l.setState(Running)
	return nil
}

// Pause moves Running to Paused. The connection stays open.
func (l *Loop) Pause() error {
	l.cycleMu.Lock()
	defer l.cycleMu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != Running {
		return serial.ErrState{What: "acquisition is not running"}
	}
	l.setState(Paused)
	log.Info("Acquisition paused")
	return nil
}

// Stop moves Running or Paused to Idle, closes the connection and returns
// the finished session.
func (l *Loop) Stop() (*Session, error) {
	l.cycleMu.Lock()
	defer l.cycleMu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == Idle {
		return nil, serial.ErrState{What: "acquisition is not started"}
	}
	err := l.teardown()
	l.setState(Idle)
	log.Info("Acquisition stopped: cycles: %d accepted: %d",
		l.session.Counters.Cycles, l.session.Counters.Accepted)
	return l.session.Snapshot(), err
}

func (l *Loop) teardown() error {
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	return err
}

func (l *Loop) setState(state State) {
	l.state = state
	if l.observer != nil {
		l.observer.ObserveState(state)
	}
}

func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Session returns a copy of the current (or last finished) session, nil if
// there has been none.
func (l *Loop) Session() *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session == nil {
		return nil
	}
	return l.session.Snapshot()
}

// Cycle runs one read, decode and dispatch iteration. It does nothing unless
// the loop is Running. Timeouts, short reads and malformed frames are counted
// and absorbed. Connection and state errors move the loop to Idle and are
// returned.
func (l *Loop) Cycle(ctx context.Context) error {
	l.cycleMu.Lock()
	defer l.cycleMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	if l.state != Running {
		l.mu.Unlock()
		return nil
	}
	conn := l.conn
	l.session.Counters.Cycles++
	l.mu.Unlock()

	raw, err := conn.ReadFrame(l.frameSize)
	var samples []layers.Sample
	if err == nil {
		samples, err = layers.Decode(raw)
	}
	at := l.now()

	l.mu.Lock()
	outcome, fatal := l.classify(err)
	var seq uint64
	switch {
	case fatal != nil:
		log.Error("Acquisition cycle failed: %s", fatal)
		l.teardown()
		l.setState(Idle)
	case err != nil:
		log.Warning("Acquisition cycle skipped: %s", err)
	case l.session.Append(samples, at):
		l.seq++
		seq = l.seq
		l.session.Counters.LastSequence = seq
	default:
		outcome = OutcomeDropped
		log.Debug("Sample set dropped: length: %d channel count: %d", len(samples), l.session.ChannelCount)
	}
	l.mu.Unlock()

	if l.observer != nil {
		l.observer.ObserveCycle(outcome, samples)
	}
	if fatal != nil {
		return fatal
	}
	if outcome == OutcomeAccepted {
		l.sinks.Push(samples, seq)
	}
	return nil
}

// classify counts a cycle error in the session; the second value is set when
// the error is fatal.
func (l *Loop) classify(err error) (Outcome, error) {
	if err == nil {
		return OutcomeAccepted, nil
	}
	counters := &l.session.Counters
	var (
		timeoutErr   serial.ErrTimeout
		shortErr     serial.ErrShortRead
		malformedErr layers.ErrMalformedFrame
	)
	switch {
	case errors.As(err, &timeoutErr):
		counters.Timeouts++
		counters.ReadErrors++
		return OutcomeTimeout, nil
	case errors.As(err, &shortErr):
		counters.ShortReads++
		counters.ReadErrors++
		return OutcomeShortRead, nil
	case errors.As(err, &malformedErr):
		counters.Malformed++
		counters.ReadErrors++
		return OutcomeMalformed, nil
	case serial.IsFatal(err):
		return OutcomeFatal, err
	}
	return OutcomeFatal, serial.ErrConnection{Device: l.session.Device, What: "unexpected read failure", Err: err}
}

// Run triggers a cycle every interval until the context is done or a cycle
// fails fatally. Paused and Idle intervals do nothing.
func (l *Loop) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := l.Cycle(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
		}
	}
}
