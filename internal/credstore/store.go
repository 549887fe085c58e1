// Package credstore persists session credentials for a client on a primary tier and
// falls back to a session-scoped tier when the primary refuses writes.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-gateway/internal/serviceerr"
)

// Key names one of the fixed records of a client.
type Key string

const (
	KeyTokens Key = "auth_tokens"
	KeyUser   Key = "auth_user"
)

// Keys lists every record Clear removes.
var Keys = []Key{KeyTokens, KeyUser}

// Backend holds the tiers shared by all clients.
type Backend struct {
	primary  Tier
	fallback Tier
}

func NewBackend(primary, fallback Tier) *Backend {
	return &Backend{
		primary:  primary,
		fallback: fallback,
	}
}

// Store returns the view of the backend for a single client.
func (b *Backend) Store(clientID string) *Store {
	return &Store{
		backend:  b,
		clientID: clientID,
	}
}

// Store reads and writes the records of one client.
type Store struct {
	backend  *Backend
	clientID string
}

func (s *Store) ClientID() string {
	return s.clientID
}

// Write stores value as JSON. The primary tier is tried first and the fallback tier
// takes the write when the primary fails. An error is returned only if both fail.
func (s *Store) Write(ctx context.Context, key Key, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	tierKey := s.tierKey(key)
	primary, fallback := s.backend.primary, s.backend.fallback

	primaryErr := primary.Set(ctx, tierKey, data)
	if primaryErr == nil {
		return nil
	}

	slogctx.Warn(ctx, "Primary credential tier refused the write, using fallback",
		"tier", primary.Name(), "key", string(key), "error", primaryErr)

	if err := fallback.Set(ctx, tierKey, data); err != nil {
		slogctx.Error(ctx, "Fallback credential tier refused the write",
			"tier", fallback.Name(), "key", string(key), "error", err)

		return fmt.Errorf("writing %s: %w", key, errors.Join(primaryErr, err, serviceerr.ErrStorageUnavailable))
	}

	// an older primary copy would shadow the value just written
	if err := primary.Delete(ctx, tierKey); err != nil {
		slogctx.Debug(ctx, "Could not drop stale primary record", "tier", primary.Name(), "key", string(key), "error", err)
	}

	return nil
}

// Read decodes the stored value into `into` and reports whether a usable value was found.
// A value that does not decode is treated as absent.
func (s *Store) Read(ctx context.Context, key Key, into any) bool {
	tierKey := s.tierKey(key)

	data, ok := s.get(ctx, s.backend.primary, tierKey)
	if !ok {
		data, ok = s.get(ctx, s.backend.fallback, tierKey)
	}
	if !ok {
		return false
	}

	if err := json.Unmarshal(data, into); err != nil {
		slogctx.Warn(ctx, "Discarding malformed credential record", "key", string(key), "error", err)
		return false
	}

	return true
}

// Remove deletes a record from both tiers. Failures are logged.
func (s *Store) Remove(ctx context.Context, key Key) {
	tierKey := s.tierKey(key)
	for _, tier := range []Tier{s.backend.primary, s.backend.fallback} {
		if err := tier.Delete(ctx, tierKey); err != nil {
			slogctx.Warn(ctx, "Could not delete credential record", "tier", tier.Name(), "key", string(key), "error", err)
		}
	}
}

// Clear removes every record of the client from both tiers.
func (s *Store) Clear(ctx context.Context) {
	for _, key := range Keys {
		s.Remove(ctx, key)
	}
}

func (s *Store) get(ctx context.Context, tier Tier, tierKey string) ([]byte, bool) {
	data, err := tier.Get(ctx, tierKey)
	switch {
	case err == nil:
		return data, true
	case errors.Is(err, serviceerr.ErrNotFound):
		return nil, false
	default:
		slogctx.Warn(ctx, "Credential tier read failed", "tier", tier.Name(), "error", err)
		return nil, false
	}
}

func (s *Store) tierKey(key Key) string {
	return s.clientID + ":" + string(key)
}
