package bus

import (
	"context"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mgn-dev/alx-backend/internal/domain"
)

var _ Bus = (*Redis)(nil)

// Redis implements Bus on Redis PUBLISH/SUBSCRIBE.
type Redis struct {
	rdb *goredis.Client
}

// NewRedis returns a Redis-backed bus. The caller owns the client
// lifecycle.
func NewRedis(rdb *goredis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Publish(ctx context.Context, channel, message string) error {
	if err := r.rdb.Publish(ctx, channel, message).Err(); err != nil {
		return errors.Wrapf(domain.ErrStoreUnavailable, "publish on %s: %v", channel, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, channel string) (<-chan string, error) {
	sub := r.rdb.Subscribe(ctx, channel)
	// Force the SUBSCRIBE round trip so a dead server fails here, not
	// silently on the stream.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, errors.Wrapf(domain.ErrStoreUnavailable, "subscribe %s: %v", channel, err)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
