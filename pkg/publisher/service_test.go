package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/NotCoffee418/tp4000zc_logger/pkg/config"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/interpreter"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/protocol"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReading(t *testing.T, display string) *interpreter.Reading {
	t.Helper()
	frame, err := protocol.Encode(display, protocol.LabelVolts, protocol.LabelDC)
	require.NoError(t, err)
	reading := interpreter.Normalize(protocol.Decode(frame), 0, frame)
	reading.Timestamp = time.Now().UTC()
	return &reading
}

func newTestPublisher(t *testing.T) (*ReadingPublisher, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	p, err := NewReadingPublisher(config.RedisConfig{
		Address: server.Addr(),
		Channel: "dmm:readings",
	}, "ttyUSB0")
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, server
}

func TestListKey(t *testing.T) {
	assert.Equal(t, "dmm:/dev/ttyUSB0:readings", listKey("/dev/ttyUSB0"))
}

func TestNewReadingPublisherUnreachable(t *testing.T) {
	// nothing listens on port 1
	_, err := NewReadingPublisher(config.RedisConfig{Address: "127.0.0.1:1", Channel: "dmm:readings"}, "test")
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestPublishDeliversOnChannel(t *testing.T) {
	p, server := newTestPublisher(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	subscriber := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer subscriber.Close()
	sub := subscriber.Subscribe(ctx, "dmm:readings")
	defer sub.Close()
	// wait for the subscription to be confirmed
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	reading := sampleReading(t, "1.234")
	require.NoError(t, p.Publish(ctx, reading))

	select {
	case msg := <-sub.Channel():
		got := interpreter.ReadingFromJsonBytes([]byte(msg.Payload))
		require.NotNil(t, got)
		assert.Equal(t, "1.234 V DC", got.Text)
	case <-ctx.Done():
		t.Fatal("reading was not published")
	}
}

func TestPublishCapsHistory(t *testing.T) {
	p, server := newTestPublisher(t)
	ctx := context.Background()

	first := sampleReading(t, "0.001")
	last := sampleReading(t, "9.999")
	require.NoError(t, p.Publish(ctx, first))
	for range historyLength + 4 {
		require.NoError(t, p.Publish(ctx, sampleReading(t, "5.000")))
	}
	require.NoError(t, p.Publish(ctx, last))

	history, err := server.List(listKey("ttyUSB0"))
	require.NoError(t, err)
	assert.Len(t, history, historyLength)

	// newest first, oldest trimmed
	newest := interpreter.ReadingFromJsonBytes([]byte(history[0]))
	require.NotNil(t, newest)
	assert.Equal(t, "9.999", newest.DisplayText)
	for _, entry := range history {
		assert.NotContains(t, entry, `"display_text":"0.001"`)
	}
}
