package api

import (
	"fmt"
	"time"
)

type Config struct {
	Addr          string        `envconfig:"ADDR" default:":8080"`
	TurnTimeout   time.Duration `envconfig:"TURN_TIMEOUT" split_words:"true" default:"60s"`
	RatePerSecond float64       `envconfig:"RATE_PER_SECOND" split_words:"true" default:"1"`
	RateBurst     int           `envconfig:"RATE_BURST" split_words:"true" default:"5"`
	RateIdleTTL   time.Duration `envconfig:"RATE_IDLE_TTL" split_words:"true" default:"10m"`
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("http addr is empty")
	}
	if c.TurnTimeout < 0 {
		return fmt.Errorf("turn timeout must be >= 0")
	}
	if c.RatePerSecond < 0 || c.RateBurst < 0 {
		return fmt.Errorf("rate limit must be >= 0")
	}
	return nil
}
