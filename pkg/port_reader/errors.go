package port_reader

import "fmt"

// ErrorKind enumerates every way framing can fail.
type ErrorKind int

const (
	// KindNoData: nothing arrived within the read timeout while synchronizing.
	// Used as the normal end of a finite session.
	KindNoData ErrorKind = iota + 1
	// KindInvalidSyncValue: a byte with position nibble 0 or 15.
	KindInvalidSyncValue
	// KindReadFailure: the retry budget ran out without a well-formed frame.
	KindReadFailure
	// KindTransport: the byte source itself returned an error.
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoData:
		return "no data"
	case KindInvalidSyncValue:
		return "invalid sync value"
	case KindReadFailure:
		return "read failure"
	case KindTransport:
		return "transport error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// FrameError is returned by every framing operation.
type FrameError struct {
	Kind ErrorKind
	// Value is the offending byte for KindInvalidSyncValue.
	Value byte
	// Attempts is the number of read attempts made for KindReadFailure.
	Attempts int
	// Err is the underlying source error for KindTransport.
	Err error
}

var (
	ErrNoData           = &FrameError{Kind: KindNoData}
	ErrInvalidSyncValue = &FrameError{Kind: KindInvalidSyncValue}
	ErrReadFailure      = &FrameError{Kind: KindReadFailure}
	ErrTransport        = &FrameError{Kind: KindTransport}
)

func (e *FrameError) Error() string {
	switch e.Kind {
	case KindNoData:
		return "dmm: read from serial port timed out with no bytes read"
	case KindInvalidSyncValue:
		return fmt.Sprintf("dmm: invalid byte 0x%02x during synchronization", e.Value)
	case KindReadFailure:
		return fmt.Sprintf("dmm: no complete frame within %d attempts", e.Attempts)
	case KindTransport:
		return fmt.Sprintf("dmm: serial read failed: %v", e.Err)
	default:
		return "dmm: " + e.Kind.String()
	}
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// Is matches any FrameError of the same kind, so errors.Is(err, ErrNoData) works
// regardless of payload.
func (e *FrameError) Is(target error) bool {
	t, ok := target.(*FrameError)
	return ok && t.Kind == e.Kind
}
