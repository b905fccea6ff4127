package port_reader

import (
	"errors"
	"iter"
	"sync"
	"time"

	"github.com/NotCoffee418/tp4000zc_logger/pkg/interpreter"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/monitor"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/protocol"
	log "github.com/sirupsen/logrus"
)

var (
	errNotConnected = errors.New("port not connected")
	errNoOpener     = errors.New("no byte source configured")
)

const (
	DefaultReadTimeout = 3 * time.Second
	DefaultMaxRetries  = 3
)

// NewDmmReader creates a reader for the meter on a serial port.
func NewDmmReader(port, driver string, readTimeout time.Duration, maxRetries int) *DmmReader {
	p := NewDmmReaderWithOpener(nil, readTimeout, maxRetries)
	p.port = port
	p.driver = driver
	p.open = func() (Port, error) {
		return openSerial(p.driver, p.port, p.readTimeout)
	}
	return p
}

// NewDmmReaderWithOpener creates a reader over any byte source.
func NewDmmReaderWithOpener(open func() (Port, error), readTimeout time.Duration, maxRetries int) *DmmReader {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &DmmReader{
		port:        "custom",
		readTimeout: readTimeout,
		maxRetries:  maxRetries,
		open:        open,
	}
}

// Run opens the port, synchronizes, and hands every reading to handleReading
// until the link goes idle or framing fails. The port is closed on every exit
// path. errors.Is(err, ErrNoData) is the normal end of a session; nil is only
// returned after StopReading.
func (p *DmmReader) Run(handleReading func(reading interpreter.Reading)) error {
	if err := p.Connect(); err != nil {
		return err
	}
	defer p.Disconnect()

	if err := p.initialSync(); err != nil {
		return err
	}

	for reading, err := range p.Readings() {
		if err != nil {
			return err
		}
		handleReading(reading)
	}
	return nil
}

// Start listening for readings. Runs in goroutine.
func (p *DmmReader) StartReading(
	handleReading func(reading interpreter.Reading),
	handleError func(error),
) {
	p.stopSignal.Store(false)

	go func() {
		err := p.Run(func(reading interpreter.Reading) {
			p.readingMutex.Lock()
			p.latestReading = &reading
			p.readingMutex.Unlock()

			handleReading(reading)
		})
		if err == nil {
			log.Println("Stop signal received, disconnected")
			return
		}
		handleError(err)
	}()
}

// StopReading ends the acquisition loop after the current frame.
func (p *DmmReader) StopReading() {
	p.stopSignal.Store(true)
}

func (p *DmmReader) GetLatestReading() *interpreter.Reading {
	p.readingMutex.RLock()
	defer p.readingMutex.RUnlock()
	return p.latestReading
}

// Readings is a lazy sequence of readings from an open port. It ends after
// yielding the first framing error (including ErrNoData) and cannot be
// restarted, since it consumes the live link.
func (p *DmmReader) Readings() iter.Seq2[interpreter.Reading, error] {
	return func(yield func(interpreter.Reading, error) bool) {
		for !p.stopSignal.Load() {
			reading, err := p.Read()
			if err != nil {
				yield(interpreter.Reading{}, err)
				return
			}
			if !yield(reading, nil) {
				return
			}
		}
	}
}

// Read pulls one frame and turns it into a reading. Invalid readings are
// returned without error; only framing problems fail.
func (p *DmmReader) Read() (interpreter.Reading, error) {
	frame, retries, err := p.ReadFrame()
	if err != nil {
		return interpreter.Reading{}, err
	}

	reading := interpreter.Normalize(protocol.Decode(frame), retries, frame)
	reading.Timestamp = time.Now().UTC()
	monitor.ObserveReading(reading.IsValid, retries)

	if !reading.IsValid {
		log.WithFields(log.Fields{
			"display": reading.DisplayText,
			"frame":   frame.String(),
		}).Debug("Invalid reading")
	}
	return reading, nil
}

// ReadFrame returns the next frame whose position nibbles all check out,
// along with the number of failed attempts it took.
func (p *DmmReader) ReadFrame() (protocol.Frame, int, error) {
	var frame protocol.Frame
	if p.source == nil {
		return frame, 0, &FrameError{Kind: KindTransport, Err: errNotConnected}
	}

	for attempt := 0; attempt < p.maxRetries; attempt++ {
		data, err := p.source.ReadBytes(protocol.FrameLength, p.readTimeout)
		if err != nil {
			return frame, attempt, &FrameError{Kind: KindTransport, Err: err}
		}

		if len(data) == protocol.FrameLength {
			copy(frame[:], data)
			if frame.Aligned() {
				p.FramesRead.Add(1)
				monitor.FramesRead.Inc()
				return frame, attempt, nil
			}
			log.WithField("bytes", frame.String()).Debug("Frame out of alignment")
		} else {
			log.Debugf("Short read of %d bytes", len(data))
		}

		if err := p.synchronize(); err != nil {
			if errors.Is(err, ErrInvalidSyncValue) {
				continue
			}
			return frame, attempt, err
		}
	}

	p.ReadFailures.Add(1)
	monitor.ReadFailures.Inc()
	return frame, p.maxRetries, &FrameError{Kind: KindReadFailure, Attempts: p.maxRetries}
}

// synchronize reads one byte and discards the rest of its frame, so the next
// read starts at position 1 unless the link drops more bytes.
func (p *DmmReader) synchronize() error {
	if p.source == nil {
		return &FrameError{Kind: KindTransport, Err: errNotConnected}
	}
	p.Resyncs.Add(1)
	monitor.Resyncs.Inc()

	data, err := p.source.ReadBytes(1, p.readTimeout)
	if err != nil {
		return &FrameError{Kind: KindTransport, Err: err}
	}
	if len(data) != 1 {
		return ErrNoData
	}

	pos := int(data[0] >> 4)
	if pos == 0 || pos == 15 {
		monitor.InvalidSyncBytes.Inc()
		return &FrameError{Kind: KindInvalidSyncValue, Value: data[0]}
	}

	if bytesNeeded := protocol.FrameLength - pos; bytesNeeded > 0 {
		if _, err := p.source.ReadBytes(bytesNeeded, p.readTimeout); err != nil {
			return &FrameError{Kind: KindTransport, Err: err}
		}
	}
	return nil
}

// initialSync aligns a freshly opened port, skipping stray bytes with
// impossible position nibbles up to the retry budget.
func (p *DmmReader) initialSync() error {
	var err error
	for range p.maxRetries {
		err = p.synchronize()
		if !errors.Is(err, ErrInvalidSyncValue) {
			return err
		}
	}
	return err
}

// Connect opens the byte source. Readings and ReadFrame need an open source.
func (p *DmmReader) Connect() error {
	if p.open == nil {
		return errNoOpener
	}
	source, err := p.open()
	if err != nil {
		return err
	}

	p.source = source
	p.closeOnce = sync.Once{}
	log.Printf("Connected to multimeter on %s", p.port)
	return nil
}

// Disconnect closes the byte source. Only the first call after Connect has an effect.
func (p *DmmReader) Disconnect() {
	p.closeOnce.Do(func() {
		if p.source == nil {
			return
		}
		if err := p.source.Close(); err != nil {
			log.Warnf("Error closing %s: %v", p.port, err)
		}
		log.Println("Disconnected from multimeter")
	})
}
