package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppEnv            string        `env:"APP_ENV" envDefault:"development"`
	APIAddr           string        `env:"API_ADDR" envDefault:":1245"`
	RedisAddr         string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	InitialSeatsCount int64         `env:"INITIAL_SEATS_COUNT" envDefault:"50"`
	SeatConcurrency   int           `env:"SEAT_CONCURRENCY" envDefault:"1"`
	NotifyConcurrency int           `env:"NOTIFY_CONCURRENCY" envDefault:"2"`
	JobTimeout        time.Duration `env:"JOB_TIMEOUT" envDefault:"30s"`
	JobMaxRetries     int           `env:"JOB_MAX_RETRIES" envDefault:"3"`
	PollInterval      time.Duration `env:"POLL_INTERVAL" envDefault:"100ms"`
	BusChannel        string        `env:"BUS_CHANNEL" envDefault:"ALXchannel"`
}

func Load() Config {
	var c Config
	if err := env.Parse(&c); err != nil {
		log.Fatal(err)
	}
	return c
}
