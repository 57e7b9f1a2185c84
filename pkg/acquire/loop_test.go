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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fuel-analytics/go-fuel/pkg/layers"
	"github.com/fuel-analytics/go-fuel/pkg/serial"
)

type frameResult struct {
	raw []byte
	err error
}

// fakeReader replays scripted frames; an exhausted script times out
type fakeReader struct {
	mu     sync.Mutex
	frames []frameResult
	reads  int
	closed int
}

func (r *fakeReader) Device() string {
	return "/dev/ttyFAKE"
}

func (r *fakeReader) ReadFrame(size int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if len(r.frames) == 0 {
		return nil, serial.ErrTimeout{Device: r.Device(), Timeout: time.Second}
	}
	f := r.frames[0]
	r.frames = r.frames[1:]
	return f.raw, f.err
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

type recordingSink struct {
	sets [][]layers.Sample
	seqs []uint64
}

func (s *recordingSink) Push(samples []layers.Sample, seq uint64) {
	s.sets = append(s.sets, samples)
	s.seqs = append(s.seqs, seq)
}

type recordingObserver struct {
	outcomes []Outcome
	states   []State
}

func (o *recordingObserver) ObserveCycle(outcome Outcome, samples []layers.Sample) {
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) ObserveState(state State) {
	o.states = append(o.states, state)
}

func frameOf(values ...uint32) frameResult {
	samples := make([]layers.Sample, len(values))
	for i, v := range values {
		samples[i] = layers.Sample{Channel: uint8(i + 1), Value: v, Position: i}
	}
	return frameResult{raw: layers.Encode(samples)}
}

func timeout() frameResult {
	return frameResult{err: serial.ErrTimeout{Device: "/dev/ttyFAKE", Timeout: time.Second}}
}

func startedLoop(t *testing.T, reader *fakeReader, opts ...Option) *Loop {
	l := NewLoop(opts...)
	require.NoError(t, l.Attach(reader))
	require.NoError(t, l.Start())
	return l
}

func TestTimeoutsKeepRunning(t *testing.T) {
	reader := &fakeReader{frames: []frameResult{
		timeout(), frameOf(1, 2, 3, 4),
		timeout(), frameOf(5, 6, 7, 8),
		timeout(), frameOf(9, 10, 11, 12),
	}}
	l := startedLoop(t, reader)

	var prevErrors uint64
	for i := 0; i < 6; i++ {
		require.NoError(t, l.Cycle(context.Background()))
		require.Equal(t, Running, l.State())

		errs := l.Session().Counters.ReadErrors
		if i%2 == 0 {
			require.Equal(t, prevErrors+1, errs)
		} else {
			require.Equal(t, prevErrors, errs)
		}
		prevErrors = errs
	}
	session := l.Session()
	require.Equal(t, 3, session.Len())
	require.Equal(t, uint64(3), session.Counters.Timeouts)
	require.Equal(t, uint64(6), session.Counters.Cycles)
}

func TestRecoverableErrorsAreCounted(t *testing.T) {
	reader := &fakeReader{frames: []frameResult{
		{err: serial.ErrShortRead{Device: "/dev/ttyFAKE", Want: 32, Got: 7}},
		{raw: []byte{1, 2, 3}},
		frameOf(1, 2),
	}}
	observer := &recordingObserver{}
	l := startedLoop(t, reader, WithObserver(observer))

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Cycle(context.Background()))
	}
	counters := l.Session().Counters
	require.Equal(t, uint64(1), counters.ShortReads)
	require.Equal(t, uint64(1), counters.Malformed)
	require.Equal(t, uint64(2), counters.ReadErrors)
	require.Equal(t, uint64(1), counters.Accepted)
	require.Equal(t, []Outcome{OutcomeShortRead, OutcomeMalformed, OutcomeAccepted}, observer.outcomes)
	require.Equal(t, Running, l.State())
}

func TestFatalErrorMovesToIdle(t *testing.T) {
	cause := errors.New("device unplugged")
	reader := &fakeReader{frames: []frameResult{
		frameOf(1, 2),
		{err: serial.ErrConnection{Device: "/dev/ttyFAKE", What: "read failed", Err: cause}},
	}}
	observer := &recordingObserver{}
	l := startedLoop(t, reader, WithObserver(observer))

	require.NoError(t, l.Cycle(context.Background()))
	err := l.Cycle(context.Background())
	require.ErrorIs(t, err, cause)
	require.True(t, serial.IsFatal(err))
	require.Equal(t, Idle, l.State())
	require.Equal(t, 1, reader.closed)
	require.False(t, l.Attached())
	require.Equal(t, []State{Running, Idle}, observer.states)

	// the finished session stays available
	require.Equal(t, 1, l.Session().Len())

	// idle loops do not read
	require.NoError(t, l.Cycle(context.Background()))
	require.Equal(t, 2, reader.reads)

	require.Equal(t, serial.ErrState{What: "connection is not open"}, l.Start())
}

func TestUnexpectedReadErrorIsFatal(t *testing.T) {
	reader := &fakeReader{frames: []frameResult{{err: errors.New("boom")}}}
	l := startedLoop(t, reader)

	err := l.Cycle(context.Background())
	var connErr serial.ErrConnection
	require.True(t, errors.As(err, &connErr))
	require.Equal(t, Idle, l.State())
}

func TestTransitions(t *testing.T) {
	l := NewLoop()
	require.Equal(t, Idle, l.State())
	require.Nil(t, l.Session())

	require.Equal(t, serial.ErrState{What: "connection is not open"}, l.Start())
	require.Error(t, l.Pause())
	_, err := l.Stop()
	require.Equal(t, serial.ErrState{What: "acquisition is not started"}, err)
	require.Error(t, l.Attach(nil))

	reader := &fakeReader{frames: []frameResult{frameOf(1), frameOf(2)}}
	require.NoError(t, l.Attach(reader))
	require.NoError(t, l.Start())
	require.Equal(t, Running, l.State())
	require.Equal(t, serial.ErrState{What: "acquisition is already running"}, l.Start())
	require.Equal(t, serial.ErrState{What: "connection can only be attached when idle"}, l.Attach(&fakeReader{}))

	require.NoError(t, l.Cycle(context.Background()))
	require.NoError(t, l.Pause())
	require.Equal(t, Paused, l.State())
	require.Error(t, l.Pause())

	// paused loops keep the connection but do not read
	require.NoError(t, l.Cycle(context.Background()))
	require.Equal(t, 1, reader.reads)
	require.Equal(t, 0, reader.closed)

	// resuming keeps the session
	require.NoError(t, l.Start())
	require.NoError(t, l.Cycle(context.Background()))
	require.Equal(t, 2, l.Session().Len())

	session, err := l.Stop()
	require.NoError(t, err)
	require.Equal(t, Idle, l.State())
	require.Equal(t, 1, reader.closed)
	require.Equal(t, 2, session.Len())
	require.Equal(t, "/dev/ttyFAKE", session.Device)

	// a new start needs a new connection and begins a new session
	next := &fakeReader{}
	require.NoError(t, l.Attach(next))
	require.NoError(t, l.Start())
	require.Equal(t, 0, l.Session().Len())
}

func TestStopFromPaused(t *testing.T) {
	reader := &fakeReader{}
	l := startedLoop(t, reader)
	require.NoError(t, l.Pause())
	_, err := l.Stop()
	require.NoError(t, err)
	require.Equal(t, Idle, l.State())
	require.Equal(t, 1, reader.closed)
}

func TestSinksReceiveAcceptedSets(t *testing.T) {
	reader := &fakeReader{frames: []frameResult{
		frameOf(1, 2, 3, 4),
		frameOf(1, 2, 3),
		timeout(),
		frameOf(5, 6, 7, 8),
	}}
	sink := &recordingSink{}
	var funcSeqs []uint64
	funcSink := SinkFunc(func(samples []layers.Sample, seq uint64) {
		funcSeqs = append(funcSeqs, seq)
	})
	l := startedLoop(t, reader, WithFrameSize(16), WithSink(sink), WithSink(funcSink))

	for i := 0; i < 4; i++ {
		require.NoError(t, l.Cycle(context.Background()))
	}
	require.Len(t, sink.sets, 2)
	require.Equal(t, []uint64{1, 2}, sink.seqs)
	require.Equal(t, []uint64{1, 2}, funcSeqs)
	require.Equal(t, []uint32{5, 6, 7, 8}, layers.Values(sink.sets[1]))

	session := l.Session()
	require.Equal(t, uint64(1), session.Counters.Dropped)
	require.Equal(t, uint64(2), session.Counters.LastSequence)
}

func TestSequenceContinuesAcrossSessions(t *testing.T) {
	sink := &recordingSink{}
	l := startedLoop(t, &fakeReader{frames: []frameResult{frameOf(1)}}, WithSink(sink))
	require.NoError(t, l.Cycle(context.Background()))
	_, err := l.Stop()
	require.NoError(t, err)

	require.NoError(t, l.Attach(&fakeReader{frames: []frameResult{frameOf(2)}}))
	require.NoError(t, l.Start())
	require.NoError(t, l.Cycle(context.Background()))
	require.Equal(t, []uint64{1, 2}, sink.seqs)
}

func TestCycleHonorsContext(t *testing.T) {
	reader := &fakeReader{frames: []frameResult{frameOf(1)}}
	l := startedLoop(t, reader)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, l.Cycle(ctx), context.Canceled)
	require.Equal(t, 0, reader.reads)
}

func TestRun(t *testing.T) {
	reader := &fakeReader{frames: []frameResult{frameOf(1, 2), frameOf(3, 4), frameOf(5, 6)}}
	accepted := make(chan uint64, 10)
	l := startedLoop(t, reader, WithSink(SinkFunc(func(samples []layers.Sample, seq uint64) {
		accepted <- seq
	})))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- l.Run(ctx, 5*time.Millisecond)
	}()

	for want := uint64(1); want <= 3; want++ {
		select {
		case seq := <-accepted:
			require.Equal(t, want, seq)
		case <-time.After(5 * time.Second):
			t.Fatal("sample set was not pushed")
		}
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, Running, l.State())
}

func TestRunReturnsFatalError(t *testing.T) {
	reader := &fakeReader{frames: []frameResult{
		timeout(),
		{err: serial.ErrState{What: "read from a closed connection"}},
	}}
	l := startedLoop(t, reader)

	err := l.Run(context.Background(), time.Millisecond)
	require.Equal(t, serial.ErrState{What: "read from a closed connection"}, err)
	require.Equal(t, Idle, l.State())
}

func TestStateNames(t *testing.T) {
	require.Equal(t, "idle", Idle.String())
	require.Equal(t, "running", Running.String())
	require.Equal(t, "paused", Paused.String())
	require.Equal(t, "unknown", State(42).String())
	require.Equal(t, "short_read", OutcomeShortRead.String())

	data, err := Paused.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"paused"`, string(data))

	require.NotPanics(t, func() {
		MultiSink{nil, SinkFunc(func([]layers.Sample, uint64) {})}.Push(nil, 1)
	})
}

func TestConcurrentCyclesAreSerialized(t *testing.T) {
	var frames []frameResult
	for i := 0; i < 200; i++ {
		if i%3 == 0 {
			frames = append(frames, frameOf(uint32(i), uint32(i)))
		} else {
			frames = append(frames, frameOf(uint32(i), uint32(i), uint32(i)))
		}
	}
	reader := &fakeReader{frames: frames}
	sink := &recordingSink{}
	l := startedLoop(t, reader, WithSink(sink))

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.Cycle(context.Background())
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_ = l.Pause()
			_ = l.Start()
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, Running, l.State())
	session := l.Session()
	c := session.Counters
	require.Equal(t, c.Cycles, c.Accepted+c.Dropped+c.ReadErrors)
	require.Equal(t, uint64(session.Len()), c.Accepted)
	require.Equal(t, c.Accepted, c.LastSequence)
	require.Len(t, sink.seqs, int(c.Accepted))
	for i, seq := range sink.seqs {
		require.Equal(t, uint64(i+1), seq)
	}
	reader.mu.Lock()
	require.Equal(t, int(c.Cycles), reader.reads)
	reader.mu.Unlock()
	for _, row := range session.Rows {
		require.Len(t, row, session.ChannelCount)
	}
}
