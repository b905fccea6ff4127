package port_reader

import (
	"errors"
	"testing"
	"time"

	"github.com/NotCoffee418/tp4000zc_logger/pkg/interpreter"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort replays a fixed byte stream and then behaves like an idle link.
type fakePort struct {
	data   []byte
	reads  int
	closed int
	err    error
}

func (f *fakePort) ReadBytes(n int, timeout time.Duration) ([]byte, error) {
	f.reads++
	if f.err != nil && len(f.data) == 0 {
		return nil, f.err
	}
	n = min(n, len(f.data))
	out := f.data[:n]
	f.data = f.data[n:]
	return out, nil
}

func (f *fakePort) Close() error {
	f.closed++
	return nil
}

func mustEncode(t *testing.T, display string, labels ...string) protocol.Frame {
	t.Helper()
	frame, err := protocol.Encode(display, labels...)
	require.NoError(t, err)
	return frame
}

func stream(frames ...protocol.Frame) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, f[:]...)
	}
	return out
}

func connectedReader(t *testing.T, port *fakePort, maxRetries int) *DmmReader {
	t.Helper()
	p := NewDmmReaderWithOpener(func() (Port, error) { return port, nil }, time.Millisecond, maxRetries)
	require.NoError(t, p.Connect())
	t.Cleanup(p.Disconnect)
	return p
}

func TestReadFrameAligned(t *testing.T) {
	f1 := mustEncode(t, "12.34", protocol.LabelMilli, protocol.LabelVolts)
	f2 := mustEncode(t, "0.000", protocol.LabelOhms)
	p := connectedReader(t, &fakePort{data: stream(f1, f2)}, 3)

	got, retries, err := p.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, f1, got)
	assert.Equal(t, 0, retries)

	got, retries, err = p.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, f2, got)
	assert.Equal(t, 0, retries)
	assert.Equal(t, uint64(0), p.Resyncs.Load())
	assert.Equal(t, uint64(2), p.FramesRead.Load())
}

func TestReadFrameDroppedBytesResyncOnce(t *testing.T) {
	f1 := mustEncode(t, "1.111", protocol.LabelVolts)
	f2 := mustEncode(t, "2.222", protocol.LabelVolts)
	f3 := mustEncode(t, "3.333", protocol.LabelVolts)

	// bytes 6-8 of the first frame never arrive
	data := append([]byte{}, f1[:5]...)
	data = append(data, f1[8:]...)
	data = append(data, stream(f2, f3)...)
	p := connectedReader(t, &fakePort{data: data}, 3)

	got, retries, err := p.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, f3, got)
	assert.Equal(t, 1, retries)
	assert.Equal(t, uint64(1), p.Resyncs.Load())
}

func TestReadFrameMidFrameStart(t *testing.T) {
	f1 := mustEncode(t, "1.111", protocol.LabelVolts)
	f2 := mustEncode(t, "2.222", protocol.LabelVolts)
	f3 := mustEncode(t, "3.333", protocol.LabelVolts)
	f4 := mustEncode(t, "4.444", protocol.LabelVolts)

	data := append([]byte{}, f1[6:]...)
	data = append(data, stream(f2, f3, f4)...)
	p := connectedReader(t, &fakePort{data: data}, 3)

	got, retries, err := p.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, f3, got)
	assert.Equal(t, 1, retries)

	got, retries, err = p.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, f4, got)
	assert.Equal(t, 0, retries)
}

func TestReadFrameInvalidSyncValueConsumesAttempt(t *testing.T) {
	f1 := mustEncode(t, "1.111", protocol.LabelVolts)
	f2 := mustEncode(t, "2.222", protocol.LabelVolts)

	// a misaligned burst, then a stray 0xF3 seen by the synchronizer
	data := append([]byte{}, f1[1:]...)
	data = append(data, f1[0], 0xf3)
	data = append(data, stream(f2)...)
	p := connectedReader(t, &fakePort{data: data}, 3)

	got, retries, err := p.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, f2, got)
	assert.Equal(t, 1, retries)
}

func TestReadFrameReadFailure(t *testing.T) {
	junk := make([]byte, 0, 200)
	for i := range 200 {
		// position nibble cycles 2..14, never lining up with 1
		junk = append(junk, byte((i%13+2)<<4))
	}
	p := connectedReader(t, &fakePort{data: junk}, 3)

	_, retries, err := p.ReadFrame()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReadFailure))
	assert.Equal(t, 3, retries)

	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindReadFailure, fe.Kind)
	assert.Equal(t, 3, fe.Attempts)
	assert.Equal(t, uint64(3), p.Resyncs.Load())
}

func TestReadFrameNoData(t *testing.T) {
	port := &fakePort{}
	p := connectedReader(t, port, 3)

	_, _, err := p.ReadFrame()
	assert.True(t, errors.Is(err, ErrNoData))
	assert.False(t, errors.Is(err, ErrReadFailure))
	// one frame read and one synchronization byte, no retry loop
	assert.Equal(t, 2, port.reads)
}

func TestReadFrameTransportError(t *testing.T) {
	boom := errors.New("device unplugged")
	p := connectedReader(t, &fakePort{err: boom}, 3)

	_, _, err := p.ReadFrame()
	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, boom))
}

func TestSynchronize(t *testing.T) {
	for _, tc := range []struct {
		name     string
		data     []byte
		want     error
		leftover int
	}{
		{"no data", nil, ErrNoData, 0},
		{"position zero", []byte{0x05, 0x11}, ErrInvalidSyncValue, 1},
		{"position fifteen", []byte{0xf0, 0x11}, ErrInvalidSyncValue, 1},
		{"position one", append([]byte{0x10}, make([]byte, 20)...), nil, 7},
		{"position fourteen", append([]byte{0xe0}, make([]byte, 20)...), nil, 20},
		{"position five", append([]byte{0x50}, make([]byte, 20)...), nil, 11},
	} {
		t.Run(tc.name, func(t *testing.T) {
			port := &fakePort{data: tc.data}
			p := connectedReader(t, port, 3)

			err := p.synchronize()
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tc.want), "got %v", err)
			}
			assert.Len(t, port.data, tc.leftover)
		})
	}
}

func TestSynchronizeTwiceStaysAligned(t *testing.T) {
	frames := []protocol.Frame{
		mustEncode(t, "1.111", protocol.LabelVolts),
		mustEncode(t, "2.222", protocol.LabelVolts),
		mustEncode(t, "3.333", protocol.LabelVolts),
		mustEncode(t, "4.444", protocol.LabelVolts),
	}
	data := stream(frames...)[9:]

	once := connectedReader(t, &fakePort{data: append([]byte{}, data...)}, 3)
	require.NoError(t, once.synchronize())
	got, _, err := once.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, frames[1], got)

	twice := connectedReader(t, &fakePort{data: append([]byte{}, data...)}, 3)
	require.NoError(t, twice.synchronize())
	require.NoError(t, twice.synchronize())
	got, _, err = twice.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, frames[2], got)
	assert.True(t, got.Aligned())
}

func TestRunEndsOnNoDataAndClosesPort(t *testing.T) {
	port := &fakePort{}
	p := NewDmmReaderWithOpener(func() (Port, error) { return port, nil }, time.Millisecond, 3)

	called := false
	err := p.Run(func(interpreter.Reading) { called = true })

	assert.True(t, errors.Is(err, ErrNoData))
	assert.False(t, called)
	assert.Equal(t, 1, port.closed)
}

func TestRunDeliversReadingsInOrder(t *testing.T) {
	lead := mustEncode(t, "0.000", protocol.LabelVolts)
	frames := []protocol.Frame{
		mustEncode(t, "12.34", protocol.LabelMilli, protocol.LabelVolts),
		mustEncode(t, "12.34", protocol.LabelAC, protocol.LabelDC, protocol.LabelVolts),
		mustEncode(t, "1.000", protocol.LabelKilo, protocol.LabelOhms),
	}
	port := &fakePort{data: append(lead[:], stream(frames...)...)}
	p := NewDmmReaderWithOpener(func() (Port, error) { return port, nil }, time.Millisecond, 3)

	var got []interpreter.Reading
	err := p.Run(func(r interpreter.Reading) { got = append(got, r) })

	assert.True(t, errors.Is(err, ErrNoData))
	assert.Equal(t, 1, port.closed)
	require.Len(t, got, 3)
	assert.Equal(t, "12.34 mV", got[0].Text)
	assert.False(t, got[1].IsValid)
	assert.Nil(t, got[1].NumericValue)
	assert.Equal(t, "1.000 kOhms", got[2].Text)
	assert.False(t, got[2].Timestamp.IsZero())
}

func TestRunOpenFailure(t *testing.T) {
	boom := errors.New("no such device")
	p := NewDmmReaderWithOpener(func() (Port, error) { return nil, boom }, time.Millisecond, 3)

	err := p.Run(func(interpreter.Reading) {})
	assert.ErrorIs(t, err, boom)
}

func TestReadingsStopsWhenConsumerBreaks(t *testing.T) {
	var frames []protocol.Frame
	for range 5 {
		frames = append(frames, mustEncode(t, "5.000", protocol.LabelVolts))
	}
	port := &fakePort{data: stream(frames...)}
	p := connectedReader(t, port, 3)

	n := 0
	for reading, err := range p.Readings() {
		require.NoError(t, err)
		assert.True(t, reading.IsValid)
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
	assert.Len(t, port.data, 3*protocol.FrameLength)
}

func TestStartReadingReportsNoData(t *testing.T) {
	frame := mustEncode(t, "7.000", protocol.LabelVolts)
	port := &fakePort{data: stream(frame, frame)}
	p := NewDmmReaderWithOpener(func() (Port, error) { return port, nil }, time.Millisecond, 3)

	errCh := make(chan error, 1)
	p.StartReading(func(interpreter.Reading) {}, func(err error) { errCh <- err })

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, ErrNoData))
	case <-time.After(5 * time.Second):
		t.Fatal("reader did not finish")
	}
	latest := p.GetLatestReading()
	require.NotNil(t, latest)
	assert.Equal(t, "7.000 V", latest.Text)
}

func TestReadBeforeConnect(t *testing.T) {
	p := NewDmmReaderWithOpener(func() (Port, error) { return &fakePort{}, nil }, time.Millisecond, 3)

	_, _, err := p.ReadFrame()
	assert.True(t, errors.Is(err, ErrTransport))
	assert.ErrorIs(t, err, errNotConnected)

	assert.True(t, errors.Is(p.synchronize(), ErrTransport))

	n := 0
	for _, err := range p.Readings() {
		n++
		assert.ErrorIs(t, err, errNotConnected)
	}
	assert.Equal(t, 1, n)
}

func TestConnectWithoutOpener(t *testing.T) {
	p := NewDmmReaderWithOpener(nil, time.Millisecond, 3)
	assert.ErrorIs(t, p.Connect(), errNoOpener)
	// nothing to close
	p.Disconnect()
}
