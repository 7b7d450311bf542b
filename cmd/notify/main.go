// The notify binary creates push_notification jobs for the worker to
// process. With -publish it instead sends demo messages on the bus
// channel, ending with the kill sentinel.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mgn-dev/alx-backend/internal/bus"
	"github.com/mgn-dev/alx-backend/internal/config"
	"github.com/mgn-dev/alx-backend/internal/logging"
	"github.com/mgn-dev/alx-backend/internal/notification"
	redisstore "github.com/mgn-dev/alx-backend/internal/store/redis"
)

// demoBatch mirrors the classic demo data set: two blacklisted
// recipients and one deliverable.
func demoBatch() []notification.Payload {
	return []notification.Payload{
		{PhoneNumber: "4153518780", Message: "Hello!"},
		{PhoneNumber: "4153518781", Message: "World!"},
		{PhoneNumber: "4151234567", Message: "Welcome!"},
	}
}

func main() {
	jobsFile := flag.String("jobs", "", "JSON file with an array of {phoneNumber, message} payloads")
	publish := flag.Bool("publish", false, "publish demo bus messages instead of creating jobs")
	flag.Parse()

	cfg := config.Load()
	log, err := logging.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis client not connected to the server", zap.Error(err))
	}
	log.Info("Redis client connected to the server", zap.String("addr", cfg.RedisAddr))
	defer rdb.Close()

	if *publish {
		publishDemo(ctx, bus.NewRedis(rdb), cfg.BusChannel, log)
		return
	}

	payloads := demoBatch()
	if *jobsFile != "" {
		raw, err := os.ReadFile(*jobsFile)
		if err != nil {
			log.Fatal("read jobs file", zap.Error(err))
		}
		payloads = nil
		if err := json.Unmarshal(raw, &payloads); err != nil {
			log.Fatal("parse jobs file", zap.Error(err))
		}
	}

	jobs := redisstore.New(rdb, redisstore.WithLogger(log))
	created, err := notification.CreateJobs(ctx, jobs, payloads, log)
	if err != nil {
		log.Fatal("job creation failed", zap.Error(err))
	}
	log.Info("notification jobs enqueued", zap.Int("count", len(created)))
}

func publishDemo(ctx context.Context, b bus.Bus, channel string, log *zap.Logger) {
	messages := []string{
		"ALX Student #1 starts course",
		"ALX Student #2 starts course",
		bus.KillMessage,
		"ALX Student #3 starts course",
	}
	for _, msg := range messages {
		time.Sleep(100 * time.Millisecond)
		log.Info("about to send", zap.String("message", msg))
		if err := b.Publish(ctx, channel, msg); err != nil {
			log.Error("publish failed", zap.Error(err))
		}
	}
}
