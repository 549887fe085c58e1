// Package credvalkey is the valkey backed primary credential tier.
package credvalkey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/session-gateway/internal/credstore"
	"github.com/openkcm/session-gateway/internal/serviceerr"
)

const (
	name       = "valkey"
	objectType = "credential"
)

var (
	ErrGetRecord    = errors.New("getting credential record from valkey")
	ErrSetRecord    = errors.New("setting credential record into valkey")
	ErrDeleteRecord = errors.New("deleting credential record from valkey")
)

type Tier struct {
	valkey valkey.Client
	prefix string
	ttl    time.Duration
}

var _ = credstore.Tier(&Tier{})

// NewTier creates the tier. Records expire ttl after their last write; a zero ttl keeps
// them until deleted.
func NewTier(valkeyClient valkey.Client, prefix string, ttl time.Duration) *Tier {
	prefix = strings.TrimSuffix(prefix, ":")
	return &Tier{
		valkey: valkeyClient,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (t *Tier) Name() string {
	return name
}

func (t *Tier) Get(ctx context.Context, key string) ([]byte, error) {
	bytes, err := t.valkey.Do(ctx, t.valkey.B().Get().Key(t.key(key)).Build()).AsBytes()
	if err != nil {
		valkeyErr, ok := valkey.IsValkeyErr(err)
		if ok && valkeyErr.IsNil() {
			return nil, serviceerr.ErrNotFound
		}

		return nil, errors.Join(ErrGetRecord, err)
	}

	return bytes, nil
}

func (t *Tier) Set(ctx context.Context, key string, value []byte) error {
	var cmd valkey.Completed
	if seconds := int64(t.ttl / time.Second); seconds > 0 {
		cmd = t.valkey.B().Set().Key(t.key(key)).Value(valkey.BinaryString(value)).ExSeconds(seconds).Build()
	} else {
		cmd = t.valkey.B().Set().Key(t.key(key)).Value(valkey.BinaryString(value)).Build()
	}

	if err := t.valkey.Do(ctx, cmd).Error(); err != nil {
		return errors.Join(ErrSetRecord, err)
	}

	return nil
}

func (t *Tier) Delete(ctx context.Context, key string) error {
	if err := t.valkey.Do(ctx, t.valkey.B().Del().Key(t.key(key)).Build()).Error(); err != nil {
		return errors.Join(ErrDeleteRecord, err)
	}

	return nil
}

func (t *Tier) key(key string) string {
	return fmt.Sprintf("%s:%s:%s", t.prefix, objectType, key)
}
