package port_reader

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NotCoffee418/tp4000zc_logger/pkg/interpreter"
)

// ByteSource yields raw bytes from the meter link. ReadBytes returns between
// 0 and n bytes; fewer than n means the timeout elapsed or the stream ended.
type ByteSource interface {
	ReadBytes(n int, timeout time.Duration) ([]byte, error)
}

// Port is an exclusively owned byte source that must be closed once.
type Port interface {
	ByteSource
	io.Closer
}

// DmmReader drives one TP4000ZC link. It is not safe for concurrent reads:
// frame alignment is derived from the bytes consumed so far.
type DmmReader struct {
	port        string
	driver      string
	readTimeout time.Duration
	maxRetries  int
	open        func() (Port, error)

	source    Port
	closeOnce sync.Once

	latestReading *interpreter.Reading
	readingMutex  sync.RWMutex
	stopSignal    atomic.Bool

	// link statistics, read with Load
	Resyncs      atomic.Uint64
	FramesRead   atomic.Uint64
	ReadFailures atomic.Uint64
}
