package main

import (
	"strings"
	"testing"
	"time"

	"github.com/NotCoffee418/tp4000zc_logger/pkg/interpreter"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(t *testing.T, display string, labels ...string) interpreter.Reading {
	t.Helper()
	frame, err := protocol.Encode(display, labels...)
	require.NoError(t, err)
	r := interpreter.Normalize(protocol.Decode(frame), 0, frame)
	r.Timestamp = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return r
}

func TestSessionStopsAtLimit(t *testing.T) {
	stopped := 0
	s := &session{limit: 2, stop: func() { stopped++ }}

	s.handle(reading(t, "1.000", protocol.LabelVolts))
	assert.Equal(t, 0, stopped)
	s.handle(reading(t, "1.000", protocol.LabelVolts, protocol.LabelAC, protocol.LabelDC))
	assert.Equal(t, 1, stopped)
	assert.Equal(t, 2, s.total)
	assert.Equal(t, 1, s.invalid)
}

func TestPresentation(t *testing.T) {
	line := presentation(reading(t, "12.34", protocol.LabelMilli, protocol.LabelVolts, protocol.LabelDC, protocol.LabelDelta))
	assert.True(t, strings.HasSuffix(line, "delta 12.34 mV DC"), line)

	line = presentation(reading(t, " 0.L ", protocol.LabelMega, protocol.LabelOhms))
	assert.Contains(t, line, interpreter.InvalidText)
	assert.Contains(t, line, "[ 0.L ]")
}
