// Package storage holds the small amount of client state that must survive a restart:
// the stable user identifier and the persisted auth session.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/muhammadahmed9211/clinic-saas/internal/config"
	"github.com/muhammadahmed9211/clinic-saas/internal/security"
)

// ErrNotFound indicates the key has never been set or was removed.
var ErrNotFound = errors.New("storage: key not found")

const (
	KeyUserUUID = "userUUID"
	KeySession  = "session"
)

// Store is durable key/value storage scoped to this device.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, redisCfg config.RedisConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		client, err := DialRedis(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.KeyPrefix), nil
	case "file", "":
		var sealer *security.Sealer
		if cfg.Passphrase != "" {
			sealer = security.NewSealer(cfg.Passphrase)
		}
		return NewFileStore(os.ExpandEnv(cfg.Path), sealer)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
