// Package credmemory is the session-scoped credential tier. Records live in process
// memory and disappear after the idle TTL or on restart.
package credmemory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/openkcm/session-gateway/internal/credstore"
	"github.com/openkcm/session-gateway/internal/serviceerr"
)

const name = "memory"

type Tier struct {
	cache *cache.Cache
	ttl   time.Duration
}

var _ = credstore.Tier(&Tier{})

// NewTier creates a tier whose records expire ttl after their last write.
// A zero ttl keeps records until they are deleted.
func NewTier(ttl, cleanupInterval time.Duration) *Tier {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	return &Tier{
		cache: cache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

func (t *Tier) Name() string {
	return name
}

func (t *Tier) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := t.cache.Get(key)
	if !ok {
		return nil, serviceerr.ErrNotFound
	}

	//nolint:forcetypeassert
	return v.([]byte), nil
}

func (t *Tier) Set(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	t.cache.Set(key, stored, cache.DefaultExpiration)

	return nil
}

func (t *Tier) Delete(_ context.Context, key string) error {
	t.cache.Delete(key)
	return nil
}

func (t *Tier) ItemCount() int {
	return t.cache.ItemCount()
}
