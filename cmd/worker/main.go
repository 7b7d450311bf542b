// The worker binary processes push_notification jobs. It runs until it
// receives a signal or the KILL_SERVER sentinel on the bus channel,
// then drains in-flight jobs and exits.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mgn-dev/alx-backend/internal/bus"
	"github.com/mgn-dev/alx-backend/internal/config"
	"github.com/mgn-dev/alx-backend/internal/domain"
	"github.com/mgn-dev/alx-backend/internal/logging"
	"github.com/mgn-dev/alx-backend/internal/notification"
	"github.com/mgn-dev/alx-backend/internal/queue"
	"github.com/mgn-dev/alx-backend/internal/store"
	redisstore "github.com/mgn-dev/alx-backend/internal/store/redis"
)

func main() {
	cfg := config.Load()
	log, err := logging.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis client not connected to the server", zap.Error(err))
	}
	log.Info("Redis client connected to the server", zap.String("addr", cfg.RedisAddr))
	defer rdb.Close()

	jobs := redisstore.New(rdb,
		redisstore.WithLogger(log),
		redisstore.WithMaxRetries(cfg.JobMaxRetries),
	)
	jobs.Notify(func(ev store.Event) {
		log.Info("job transition",
			zap.String("job_id", ev.JobID),
			zap.String("type", ev.Type),
			zap.String("from", string(ev.From)),
			zap.String("to", string(ev.To)),
		)
	})

	notifier := notification.New(notification.DefaultBlacklist(), log)

	pool := queue.New(jobs, log,
		queue.WithTimeout(cfg.JobTimeout),
		queue.WithPollInterval(cfg.PollInterval),
	)
	if err := pool.Register(domain.TypePushNotification, cfg.NotifyConcurrency, notifier.Handle); err != nil {
		log.Fatal("handler registration failed", zap.Error(err))
	}
	pool.Start()

	eventBus := bus.NewRedis(rdb)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := bus.WaitForSentinel(gctx, eventBus, cfg.BusChannel, log)
		if err == nil {
			log.Info("kill message received, shutting down")
			stop()
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("subscriber exited", zap.Error(err))
	}
	pool.Stop()
	log.Info("worker stopped")
}
