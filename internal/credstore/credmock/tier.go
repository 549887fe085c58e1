package credmock

import (
	"context"
	"sync"

	"github.com/openkcm/session-gateway/internal/credstore"
	"github.com/openkcm/session-gateway/internal/serviceerr"
)

type TierOption func(*Tier)

// Tier is an in-memory credential tier with injectable failures.
type Tier struct {
	name string

	mu      sync.Mutex
	records map[string][]byte

	getErr, setErr, deleteErr error
}

func WithName(name string) TierOption {
	return func(t *Tier) { t.name = name }
}
func WithRecord(key string, value []byte) TierOption {
	return func(t *Tier) { t.records[key] = value }
}
func WithGetError(err error) TierOption {
	return func(t *Tier) { t.getErr = err }
}
func WithSetError(err error) TierOption {
	return func(t *Tier) { t.setErr = err }
}
func WithDeleteError(err error) TierOption {
	return func(t *Tier) { t.deleteErr = err }
}

var _ = credstore.Tier(&Tier{})

func NewInMemTier(opts ...TierOption) *Tier {
	t := &Tier{
		name:    "mock",
		records: make(map[string][]byte),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func (t *Tier) Name() string {
	return t.name
}

func (t *Tier) Get(_ context.Context, key string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.getErr != nil {
		return nil, t.getErr
	}
	if v, ok := t.records[key]; ok {
		return v, nil
	}
	return nil, serviceerr.ErrNotFound
}

func (t *Tier) Set(_ context.Context, key string, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.setErr != nil {
		return t.setErr
	}
	t.records[key] = value
	return nil
}

func (t *Tier) Delete(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.deleteErr != nil {
		return t.deleteErr
	}
	delete(t.records, key)
	return nil
}

// SetFailures replaces the injected errors.
func (t *Tier) SetFailures(getErr, setErr, deleteErr error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.getErr, t.setErr, t.deleteErr = getErr, setErr, deleteErr
}

// Raw returns the stored bytes for key, bypassing injected failures.
func (t *Tier) Raw(key string) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.records[key]
	return v, ok
}

// Put stores raw bytes for key, bypassing injected failures.
func (t *Tier) Put(key string, value []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records[key] = value
}

func (t *Tier) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.records)
}
