package redis

import (
	"context"
	"fmt"
	"sync"

	"getlowlevel-service/internal/platform/logger"
	"github.com/redis/go-redis/v9"
)

// ChangeFeed fans out aggregate changes over Redis Pub/Sub so every instance
// serving a user's progress stream hears about writes made elsewhere.
type ChangeFeed struct {
	client *redis.Client
	log    *logger.Logger
}

func NewChangeFeed(client *redis.Client, log *logger.Logger) *ChangeFeed {
	if log == nil {
		log = logger.Nop()
	}
	return &ChangeFeed{client: client, log: log.With("component", "redis_change_feed")}
}

func progressChannel(uid string) string { return "progress:{" + uid + "}" }

func (f *ChangeFeed) Publish(ctx context.Context, uid string) error {
	return f.client.Publish(ctx, progressChannel(uid), "changed").Err()
}

func (f *ChangeFeed) Subscribe(ctx context.Context, uid string) (<-chan struct{}, func(), error) {
	sub := f.client.Subscribe(ctx, progressChannel(uid))

	// make sure the subscription is live before reporting success
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan struct{}, 1)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-stop:
				return
			case m, ok := <-msgs:
				if !ok || m == nil {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(stop)
			if err := sub.Close(); err != nil {
				f.log.Warn("close progress subscription", "uid", uid, "error", err)
			}
			<-done
		})
	}
	return out, cancel, nil
}
