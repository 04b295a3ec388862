package credstore

import (
	"context"
	"fmt"

	"clubhub/client/internal/security"
)

// Sealed encrypts values before they reach the wrapped store.
type Sealed struct {
	inner  Store
	sealer *security.Sealer
}

func NewSealed(inner Store, passphrase string) (*Sealed, error) {
	sealer, err := security.NewSealer(passphrase)
	if err != nil {
		return nil, err
	}
	return &Sealed{inner: inner, sealer: sealer}, nil
}

func (s *Sealed) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := s.sealer.Open(raw)
	if err != nil {
		return nil, fmt.Errorf("credential %q: %w", key, err)
	}
	return plain, nil
}

func (s *Sealed) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return fmt.Errorf("seal credential: %w", err)
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *Sealed) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
