package credstore

import "context"

// Tier is one storage medium of the credential store.
//
// Get returns serviceerr.ErrNotFound when the key is absent. Delete must succeed for absent keys.
type Tier interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
