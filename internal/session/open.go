package session

import (
	"context"
	"fmt"

	"github.com/cwbudde/algo-keytune/internal/config"
)

// Open returns the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.SessionConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		budget, err := cfg.MaxMemoryBytes()
		if err != nil {
			return nil, err
		}
		return NewMemoryStore(cfg.TTL, cfg.Cleanup, budget), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.TTL)
	default:
		return nil, fmt.Errorf("session: unknown backend %q", cfg.Backend)
	}
}
