package port_reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	jserial "github.com/jacobsa/go-serial/serial"
	tserial "github.com/tarm/serial"
)

// Serial drivers selectable in config.
const (
	DriverJacobsa = "jacobsa"
	DriverTarm    = "tarm"
)

// Fixed by the meter: 2400 baud, 8 data bits, no parity, 1 stop bit.
const baudRate = 2400

// portSource adapts a serial port whose reads return 0 bytes (or io.EOF)
// once the configured read timeout elapses.
type portSource struct {
	rwc io.ReadWriteCloser
}

func newPortSource(rwc io.ReadWriteCloser) *portSource {
	return &portSource{rwc: rwc}
}

func (s *portSource) ReadBytes(n int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	deadline := time.Now().Add(timeout)
	for got < n {
		m, err := s.rwc.Read(buf[got:])
		got += m
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded) {
				break
			}
			return buf[:got], err
		}
		if m == 0 || time.Now().After(deadline) {
			break
		}
	}
	return buf[:got], nil
}

func (s *portSource) Close() error {
	return s.rwc.Close()
}

// openSerial opens the meter port with the chosen driver.
func openSerial(driver, port string, timeout time.Duration) (Port, error) {
	switch driver {
	case DriverJacobsa, "":
		options := jserial.OpenOptions{
			PortName:              port,
			BaudRate:              baudRate,
			DataBits:              8,
			StopBits:              1,
			ParityMode:            jserial.PARITY_NONE,
			MinimumReadSize:       0,
			InterCharacterTimeout: interCharacterTimeout(timeout),
		}
		rwc, err := jserial.Open(options)
		if err != nil {
			return nil, fmt.Errorf("failed to open serial port: %w", err)
		}
		return newPortSource(rwc), nil

	case DriverTarm:
		c := &tserial.Config{
			Name:        port,
			Baud:        baudRate,
			Size:        8,
			Parity:      tserial.ParityNone,
			StopBits:    tserial.Stop1,
			ReadTimeout: timeout,
		}
		rwc, err := tserial.OpenPort(c)
		if err != nil {
			return nil, fmt.Errorf("failed to open serial port: %w", err)
		}
		return newPortSource(rwc), nil

	default:
		return nil, fmt.Errorf("unknown serial driver %q", driver)
	}
}

// termios VTIME counts tenths of a second in one byte.
func interCharacterTimeout(timeout time.Duration) uint {
	ms := timeout.Milliseconds()
	ms = (ms + 99) / 100 * 100
	switch {
	case ms < 100:
		ms = 100
	case ms > 25500:
		ms = 25500
	}
	return uint(ms)
}
