package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mgn-dev/alx-backend/internal/api"
	"github.com/mgn-dev/alx-backend/internal/bus"
	"github.com/mgn-dev/alx-backend/internal/config"
	"github.com/mgn-dev/alx-backend/internal/counter"
	"github.com/mgn-dev/alx-backend/internal/domain"
	"github.com/mgn-dev/alx-backend/internal/logging"
	"github.com/mgn-dev/alx-backend/internal/metrics"
	"github.com/mgn-dev/alx-backend/internal/queue"
	"github.com/mgn-dev/alx-backend/internal/reservation"
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

	jobs := redisstore.New(rdb,
		redisstore.WithLogger(log),
		redisstore.WithMaxRetries(cfg.JobMaxRetries),
	)
	jobs.Notify(metrics.Observe)

	counters := counter.NewRedis(rdb)
	eventBus := bus.NewRedis(rdb)

	seats := reservation.NewSeats(counters, log)
	products := reservation.NewProducts(counters, reservation.DefaultCatalog(), log)

	// Acceptance opens only after the counters are reset.
	if err := seats.Reset(ctx, cfg.InitialSeatsCount); err != nil {
		log.Fatal("seat reset failed", zap.Error(err))
	}
	if err := products.Reset(ctx); err != nil {
		log.Fatal("product reset failed", zap.Error(err))
	}

	pool := queue.New(jobs, log,
		queue.WithTimeout(cfg.JobTimeout),
		queue.WithPollInterval(cfg.PollInterval),
	)
	if err := pool.Register(domain.TypeReserveSeat, cfg.SeatConcurrency, seats.HandleReserve); err != nil {
		log.Fatal("handler registration failed", zap.Error(err))
	}

	srv := api.New(log, jobs, pool, seats, products)
	httpSrv := &http.Server{Addr: cfg.APIAddr, Handler: srv.Routes()}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("API available", zap.String("addr", cfg.APIAddr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

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

	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		errs := httpSrv.Shutdown(shCtx)
		pool.Stop()
		return multierr.Append(errs, rdb.Close())
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
	log.Info("server stopped")
}
