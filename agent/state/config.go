package state

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	BackendUpstash  = "upstash"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Backend     string        `envconfig:"BACKEND" default:"upstash"`
	TTL         time.Duration `envconfig:"TTL" default:"1h"`
	KeyPrefix   string        `envconfig:"KEY_PREFIX" split_words:"true" default:"coach:memory:"`
	PostgresDSN string        `envconfig:"POSTGRES_DSN" split_words:"true"`
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case BackendUpstash, BackendMemory:
	case BackendPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("store backend %q requires POSTGRES_DSN", c.Backend)
		}
	default:
		return fmt.Errorf("unsupported store backend %q", c.Backend)
	}
	if c.TTL < 0 {
		return fmt.Errorf("store ttl must be >= 0")
	}
	return nil
}

// Open builds the configured backend. The returned close func releases any
// underlying connection pool and is never nil.
func Open(ctx context.Context, cfg Config, upstash UpstashRedisConfig) (Store, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendMemory:
		return NewMemoryStore(cfg.TTL), noop, nil
	case BackendPostgres:
		db, err := OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		store, err := NewPostgresStore(db, cfg.TTL)
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return store, db.Close, nil
	default:
		store, err := NewUpstashRedisStore(upstash, WithKeyPrefix(cfg.KeyPrefix), WithTTL(cfg.TTL))
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	}
}
