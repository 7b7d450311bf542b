// Package bus is the out-of-band pub/sub channel used for free-form
// signaling between processes, independent of the job queue. Its one
// structured use is the shutdown sentinel.
package bus

import (
	"context"

	"go.uber.org/zap"
)

// KillMessage is the sentinel instructing subscribers to unsubscribe
// and shut down gracefully.
const KillMessage = "KILL_SERVER"

// Bus carries free-form string messages on named channels.
type Bus interface {
	// Publish sends a message to every current subscriber of channel.
	Publish(ctx context.Context, channel, message string) error
	// Subscribe returns a stream of messages for channel. The stream
	// closes and the subscription is released when ctx is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan string, error)
}

// WaitForSentinel consumes messages on channel, logging each, until the
// kill sentinel arrives or ctx is cancelled. It returns nil on the
// sentinel and ctx.Err() on cancellation, so callers can treat shutdown
// as plain context plumbing instead of comparing strings themselves.
func WaitForSentinel(ctx context.Context, b Bus, channel string, log *zap.Logger) error {
	msgs, err := b.Subscribe(ctx, channel)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ctx.Err()
			}
			log.Info("bus message", zap.String("channel", channel), zap.String("message", msg))
			if msg == KillMessage {
				return nil
			}
		}
	}
}
