package credstore

import (
	"context"
	"errors"
	"fmt"

	"clubhub/client/internal/config"
)

var ErrNotFound = errors.New("credential not found")

// Store is an async key-value store for small secrets. Get returns
// ErrNotFound when nothing is stored under key; Delete of an absent key
// is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Open builds the configured backend. The returned close func releases
// its connections and is always non-nil.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, func(), error) {
	var (
		store   Store
		closeFn = func() {}
	)

	switch cfg.Backend {
	case "memory":
		store = NewMemory()
	case "file":
		fs, err := NewFile(cfg.File)
		if err != nil {
			return nil, closeFn, err
		}
		store = fs
	case "redis":
		rs, err := NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, closeFn, err
		}
		store = rs
		closeFn = func() { _ = rs.Close() }
	case "postgres":
		ps, err := NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, closeFn, err
		}
		if err := ps.EnsureSchema(ctx); err != nil {
			ps.Close()
			return nil, closeFn, err
		}
		store = ps
		closeFn = ps.Close
	case "minio":
		ms, err := NewMinio(cfg.Minio)
		if err != nil {
			return nil, closeFn, err
		}
		if err := ms.EnsureBucket(ctx); err != nil {
			return nil, closeFn, err
		}
		store = ms
	default:
		return nil, closeFn, fmt.Errorf("credstore: unknown backend %q", cfg.Backend)
	}

	if cfg.Passphrase != "" {
		sealed, err := NewSealed(store, cfg.Passphrase)
		if err != nil {
			closeFn()
			return nil, func() {}, err
		}
		store = sealed
	}

	return store, closeFn, nil
}
