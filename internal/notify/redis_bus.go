package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisBus fans events out across processes over Redis pub/sub.
type RedisBus struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisBus(client *redis.Client, log *zap.Logger) *RedisBus {
	return &RedisBus{client: client, log: log}
}

func channel(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func (b *RedisBus) Publish(ctx context.Context, userID uint, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel(userID), raw).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, userID uint) (<-chan Event, func()) {
	ps := b.client.Subscribe(ctx, channel(userID))
	out := make(chan Event, subscriberBuffer)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range ps.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn("dropping malformed bus event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			select {
			case out <- ev:
			default:
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			_ = ps.Close()
			<-done
			close(out)
		})
	}
}
