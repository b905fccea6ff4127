package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/NotCoffee418/tp4000zc_logger/pkg/config"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/interpreter"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Number of readings kept in the per-device history list.
const historyLength = 1000

// ReadingPublisher fans readings out over Redis pub/sub and keeps a capped
// history list per device.
type ReadingPublisher struct {
	client  *redis.Client
	channel string
	device  string
}

func NewReadingPublisher(cfg config.RedisConfig, device string) (*ReadingPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}
	log.Infof("Connected to redis at %s", cfg.Address)

	return &ReadingPublisher{
		client:  client,
		channel: cfg.Channel,
		device:  device,
	}, nil
}

// Publish sends the reading on the channel and records it in the history list.
// A failed history write is logged, not returned.
func (p *ReadingPublisher) Publish(ctx context.Context, reading *interpreter.Reading) error {
	data := reading.ToJsonBytes()
	if data == nil {
		return fmt.Errorf("failed to serialize reading")
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish reading: %w", err)
	}

	key := listKey(p.device)
	pipe := p.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, historyLength-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warnf("Failed to store reading history in %s: %v", key, err)
	}
	return nil
}

func (p *ReadingPublisher) Close() error {
	return p.client.Close()
}

func listKey(device string) string {
	return fmt.Sprintf("dmm:%s:readings", device)
}
